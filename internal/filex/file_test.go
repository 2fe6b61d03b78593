package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) func() {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	return func() { _ = os.Chdir(old) }
}

func TestEnsureDir_CreatesDirectoryInCWD(t *testing.T) {
	tmp := t.TempDir()
	defer chdir(t, tmp)()

	got, err := EnsureDir("statecache")
	require.NoError(t, err)

	want := filepath.Join(tmp, "statecache")
	require.Equal(t, want, got)

	fi, err := os.Stat(want)
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")

	if runtime.GOOS != "windows" {
		perm := fi.Mode().Perm()
		require.Equal(t, os.FileMode(0o700), perm&0o700)
	}
}

func TestEnsureDir_AbsoluteAndIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	first, err := EnsureDir(dir)
	require.NoError(t, err)
	second, err := EnsureDir(dir)
	require.NoError(t, err)

	require.Equal(t, dir, first)
	require.Equal(t, first, second)
}

func TestEnsureDir_FailsWhenPathIsFile(t *testing.T) {
	tmp := t.TempDir()
	f := filepath.Join(tmp, "file")
	require.NoError(t, os.WriteFile(f, []byte("x"), 0o600))

	_, err := EnsureDir(f)
	require.Error(t, err)
}

func TestLocalFile_ReadPadsWithZeros(t *testing.T) {
	path := filepath.Join(t.TempDir(), "src")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o600))

	f, err := OpenRead(path)
	require.NoError(t, err)
	defer f.Close()

	buf, err := f.Read(5, 3, 6)
	require.NoError(t, err)
	assert.Equal(t, []byte("world\x00\x00\x00"), buf)

	empty, err := f.Read(0, 0, 11)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestLocalFile_ReadPastEOFFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "src")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o600))

	f, err := OpenRead(path)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Read(10, 0, 0)
	require.Error(t, err)
}

func TestLocalFile_WriteAtOffsetsAndKeepsContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dst")

	f, err := OpenWrite(path)
	require.NoError(t, err)
	require.NoError(t, f.Write([]byte("world"), 6))
	require.NoError(t, f.Write([]byte("hello "), 0))
	require.NoError(t, f.Close())

	f, err = OpenWrite(path)
	require.NoError(t, err)
	size, err := f.Size()
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, int64(11), size)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))
}

func TestUnlink_MissingIsNotAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone")
	require.NoError(t, Unlink(path))

	require.NoError(t, os.WriteFile(path, nil, 0o600))
	require.NoError(t, Unlink(path))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestRename(t *testing.T) {
	dir := t.TempDir()
	from := filepath.Join(dir, "f.part")
	to := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(from, []byte("x"), 0o600))

	require.NoError(t, Rename(from, to))
	_, err := os.Stat(from)
	assert.True(t, os.IsNotExist(err))

	require.Error(t, Rename(from, to))
}
