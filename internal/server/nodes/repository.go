package nodes

import (
	"context"
	"sort"
	"sync"

	"github.com/dmitrijs2005/gophxfer/internal/common"
)

type Repository interface {
	CreateSession(ctx context.Context, s *session) error
	GetSession(ctx context.Context, id string) (*session, error)
	SaveUpload(ctx context.Context, token string, u Upload) error
	// TakeUpload returns and forgets the upload behind token.
	TakeUpload(ctx context.Context, token string) (Upload, error)
	CreateNode(ctx context.Context, n Node) error
	GetNode(ctx context.Context, name string) (Node, error)
	ListNodes(ctx context.Context) ([]Node, error)
}

type MemoryRepository struct {
	mu       sync.Mutex
	sessions map[string]*session
	uploads  map[string]Upload
	nodes    map[string]Node
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sessions: make(map[string]*session),
		uploads:  make(map[string]Upload),
		nodes:    make(map[string]Node),
	}
}

func (r *MemoryRepository) CreateSession(ctx context.Context, s *session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[s.id] = s
	return nil
}

func (r *MemoryRepository) GetSession(ctx context.Context, id string) (*session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return s, nil
}

func (r *MemoryRepository) SaveUpload(ctx context.Context, token string, u Upload) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.uploads[token] = u
	return nil
}

func (r *MemoryRepository) TakeUpload(ctx context.Context, token string) (Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.uploads[token]
	if !ok {
		return Upload{}, common.ErrorNotFound
	}
	delete(r.uploads, token)
	return u, nil
}

func (r *MemoryRepository) CreateNode(ctx context.Context, n Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.nodes[n.Name]; ok {
		return ErrNameTaken
	}
	r.nodes[n.Name] = n
	return nil
}

func (r *MemoryRepository) GetNode(ctx context.Context, name string) (Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[name]
	if !ok {
		return Node{}, common.ErrorNotFound
	}
	return n, nil
}

func (r *MemoryRepository) ListNodes(ctx context.Context) ([]Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Node, 0, len(r.nodes))
	for _, n := range r.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
