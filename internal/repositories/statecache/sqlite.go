package statecache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/gophxfer/internal/common"
	"github.com/dmitrijs2005/gophxfer/internal/dbx"
	"github.com/dmitrijs2005/gophxfer/internal/filex"
	"github.com/dmitrijs2005/gophxfer/internal/migrations"
)

var ErrTxActive = errors.New("transaction already active")
var ErrNoTx = errors.New("no active transaction")

type SQLiteRepository struct {
	db *sql.DB

	mu sync.Mutex
	tx *sql.Tx
	q  dbx.DBTX
}

// NewSQLiteRepository wraps an already migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, q: db}
}

// Open opens (creating if needed) statecache_<name>.db in dir and migrates it.
func Open(ctx context.Context, dir, name string) (*SQLiteRepository, error) {
	dir, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "statecache_"+name+".db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open state cache: %w", err)
	}
	// one connection so that Begin/Commit span every statement
	db.SetMaxOpenConns(1)

	if err := migrations.Run(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewSQLiteRepository(db), nil
}

func (r *SQLiteRepository) conn() dbx.DBTX {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.q
}

func (r *SQLiteRepository) Get(ctx context.Context, id uint32) ([]byte, error) {
	var content []byte
	err := r.conn().QueryRowContext(ctx, `SELECT content FROM statecache WHERE id = ?`, id).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %d: %w", id, err)
	}
	return content, nil
}

func (r *SQLiteRepository) Put(ctx context.Context, id uint32, content []byte) error {
	if content == nil {
		content = []byte{}
	}
	_, err := r.conn().ExecContext(ctx, `INSERT OR REPLACE INTO statecache (id, content) VALUES (?, ?)`, id, content)
	if err != nil {
		return fmt.Errorf("failed to put record %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id uint32) error {
	_, err := r.conn().ExecContext(ctx, `DELETE FROM statecache WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete record %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) Iterate(ctx context.Context, fn func(id uint32, content []byte) error) error {
	rows, err := r.conn().QueryContext(ctx, `SELECT id, content FROM statecache ORDER BY id`)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uint32
		var content []byte
		if err := rows.Scan(&id, &content); err != nil {
			return fmt.Errorf("failed to scan record: %w", err)
		}
		if err := fn(id, content); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate records: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Truncate(ctx context.Context) error {
	if _, err := r.conn().ExecContext(ctx, `DELETE FROM statecache`); err != nil {
		return fmt.Errorf("failed to truncate state cache: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Begin(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tx != nil {
		return ErrTxActive
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin: %w", err)
	}
	r.tx, r.q = tx, tx
	return nil
}

func (r *SQLiteRepository) Commit() error {
	return r.finish((*sql.Tx).Commit)
}

func (r *SQLiteRepository) Rollback() error {
	return r.finish((*sql.Tx).Rollback)
}

func (r *SQLiteRepository) finish(end func(*sql.Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tx == nil {
		return ErrNoTx
	}
	tx := r.tx
	r.tx, r.q = nil, r.db
	return end(tx)
}

// Atomic runs fn against a repository bound to a fresh transaction that is
// committed if fn succeeds.
func (r *SQLiteRepository) Atomic(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	r.mu.Lock()
	active := r.tx != nil
	r.mu.Unlock()
	if active {
		return ErrTxActive
	}

	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, &txRepository{SQLiteRepository: &SQLiteRepository{db: r.db, q: tx}})
	})
}

func (r *SQLiteRepository) Close() error {
	r.mu.Lock()
	if r.tx != nil {
		_ = r.tx.Rollback()
		r.tx, r.q = nil, r.db
	}
	r.mu.Unlock()
	return r.db.Close()
}

// txRepository is handed to Atomic callbacks; nested transactions are refused.
type txRepository struct {
	*SQLiteRepository
}

func (*txRepository) Begin(context.Context) error { return ErrTxActive }
func (*txRepository) Commit() error               { return ErrNoTx }
func (*txRepository) Rollback() error             { return ErrNoTx }
