package statecache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophxfer/internal/common"
)

func openRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	r, err := Open(context.Background(), t.TempDir(), "acct")
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func collect(t *testing.T, r Repository) map[uint32]string {
	t.Helper()
	got := make(map[uint32]string)
	require.NoError(t, r.Iterate(context.Background(), func(id uint32, content []byte) error {
		got[id] = string(content)
		return nil
	}))
	return got
}

func TestOpen_CreatesNamedDatabase(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	r, err := Open(context.Background(), dir, "acct")
	require.NoError(t, err)
	defer r.Close()

	_, err = os.Stat(filepath.Join(dir, "statecache_acct.db"))
	require.NoError(t, err)
}

func TestPutAndGet(t *testing.T) {
	r := openRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, 7, []byte{0x01, 0x02}))
	v, err := r.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, v)

	require.NoError(t, r.Put(ctx, 7, []byte("new")))
	v, err = r.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), v)
}

func TestGet_MissingIsNotFound(t *testing.T) {
	r := openRepo(t)
	_, err := r.Get(context.Background(), 1)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestPut_EmptyContent(t *testing.T) {
	r := openRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, 3, nil))
	v, err := r.Get(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestIterate_AscendingAndStopsOnError(t *testing.T) {
	r := openRepo(t)
	ctx := context.Background()

	for _, id := range []uint32{30, 10, 20} {
		require.NoError(t, r.Put(ctx, id, []byte{byte(id)}))
	}

	var ids []uint32
	require.NoError(t, r.Iterate(ctx, func(id uint32, _ []byte) error {
		ids = append(ids, id)
		return nil
	}))
	assert.Equal(t, []uint32{10, 20, 30}, ids)

	stop := errors.New("stop")
	calls := 0
	err := r.Iterate(ctx, func(uint32, []byte) error {
		calls++
		return stop
	})
	require.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestDeleteAndTruncate(t *testing.T) {
	r := openRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, 1, []byte("a")))
	require.NoError(t, r.Put(ctx, 2, []byte("b")))
	require.NoError(t, r.Put(ctx, 3, []byte("c")))

	require.NoError(t, r.Delete(ctx, 2))
	require.NoError(t, r.Delete(ctx, 2), "deleting twice is fine")
	assert.Equal(t, map[uint32]string{1: "a", 3: "c"}, collect(t, r))

	require.NoError(t, r.Truncate(ctx))
	assert.Empty(t, collect(t, r))
}

func TestBeginCommit(t *testing.T) {
	r := openRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Begin(ctx))
	require.ErrorIs(t, r.Begin(ctx), ErrTxActive)
	require.NoError(t, r.Put(ctx, 1, []byte("a")))
	require.NoError(t, r.Put(ctx, 2, []byte("b")))
	require.NoError(t, r.Commit())

	assert.Equal(t, map[uint32]string{1: "a", 2: "b"}, collect(t, r))
	require.ErrorIs(t, r.Commit(), ErrNoTx)
}

func TestBeginRollback(t *testing.T) {
	r := openRepo(t)
	ctx := context.Background()
	require.NoError(t, r.Put(ctx, 1, []byte("keep")))

	require.NoError(t, r.Begin(ctx))
	require.NoError(t, r.Put(ctx, 1, []byte("changed")))
	require.NoError(t, r.Put(ctx, 2, []byte("gone")))
	require.NoError(t, r.Rollback())

	assert.Equal(t, map[uint32]string{1: "keep"}, collect(t, r))
	require.ErrorIs(t, r.Rollback(), ErrNoTx)
}

func TestAtomic(t *testing.T) {
	r := openRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Atomic(ctx, func(ctx context.Context, repo Repository) error {
		require.ErrorIs(t, repo.Begin(ctx), ErrTxActive)
		return repo.Put(ctx, 1, []byte("a"))
	}))

	boom := errors.New("boom")
	err := r.Atomic(ctx, func(ctx context.Context, repo Repository) error {
		require.NoError(t, repo.Put(ctx, 2, []byte("b")))
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, map[uint32]string{1: "a"}, collect(t, r))

	require.NoError(t, r.Begin(ctx))
	require.ErrorIs(t, r.Atomic(ctx, func(context.Context, Repository) error { return nil }), ErrTxActive)
	require.NoError(t, r.Rollback())
}

func newMockRepo(t *testing.T) (*SQLiteRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLiteRepository(db), mock
}

func TestSQLErrorsAreWrapped(t *testing.T) {
	ctx := context.Background()
	dbErr := errors.New("disk I/O error")

	r, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT content FROM statecache WHERE id = ?`)).
		WillReturnError(dbErr)
	_, err := r.Get(ctx, 5)
	require.ErrorIs(t, err, dbErr)
	assert.Contains(t, err.Error(), "record 5")

	mock.ExpectExec(regexp.QuoteMeta(`INSERT OR REPLACE INTO statecache`)).
		WillReturnError(dbErr)
	require.ErrorIs(t, r.Put(ctx, 5, []byte("x")), dbErr)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM statecache WHERE id = ?`)).
		WillReturnError(dbErr)
	require.ErrorIs(t, r.Delete(ctx, 5), dbErr)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM statecache`)).
		WillReturnError(dbErr)
	require.ErrorIs(t, r.Truncate(ctx), dbErr)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, content FROM statecache`)).
		WillReturnError(dbErr)
	require.ErrorIs(t, r.Iterate(ctx, func(uint32, []byte) error { return nil }), dbErr)

	mock.ExpectBegin().WillReturnError(dbErr)
	require.ErrorIs(t, r.Begin(ctx), dbErr)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIterate_RowErrorIsWrapped(t *testing.T) {
	r, mock := newMockRepo(t)
	rowErr := errors.New("corrupt page")

	rows := sqlmock.NewRows([]string{"id", "content"}).
		AddRow(int64(1), []byte("a")).
		AddRow(int64(2), []byte("b")).
		RowError(1, rowErr)
	mock.ExpectQuery(`SELECT id, content FROM statecache`).WillReturnRows(rows)

	var seen []uint32
	err := r.Iterate(context.Background(), func(id uint32, _ []byte) error {
		seen = append(seen, id)
		return nil
	})
	require.ErrorIs(t, err, rowErr)
	assert.Equal(t, []uint32{1}, seen)
}
