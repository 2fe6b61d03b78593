// Package storage holds completed uploads for the development server.
package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophxfer/internal/common"
)

// Storage is a flat object store of encrypted blobs.
type Storage interface {
	Put(ctx context.Context, key string, data []byte) error
	// GetRange returns bytes [start, end) of the object.
	GetRange(ctx context.Context, key string, start, end int64) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

func checkRange(start, end, size int64) error {
	if start < 0 || end < start || end > size {
		return fmt.Errorf("range %d-%d outside object of %d bytes", start, end, size)
	}
	return nil
}

type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string][]byte)}
}

func (s *MemoryStorage) Put(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[key] = append([]byte(nil), data...)
	return nil
}

func (s *MemoryStorage) GetRange(ctx context.Context, key string, start, end int64) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.objects[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if err := checkRange(start, end, int64(len(data))); err != nil {
		return nil, err
	}

	return append([]byte(nil), data[start:end]...), nil
}

func (s *MemoryStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.objects, key)
	return nil
}
