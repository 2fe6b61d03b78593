package statecache

import "context"

type Repository interface {
	// Get returns the record content, or common.ErrorNotFound.
	Get(ctx context.Context, id uint32) ([]byte, error)
	// Put inserts or replaces a record.
	Put(ctx context.Context, id uint32, content []byte) error
	Delete(ctx context.Context, id uint32) error
	// Iterate calls fn for every record in ascending id order until fn
	// returns an error.
	Iterate(ctx context.Context, fn func(id uint32, content []byte) error) error
	Truncate(ctx context.Context) error

	Begin(ctx context.Context) error
	Commit() error
	Rollback() error
}
