package fsutil

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSFileSystem_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	var fsys OSFileSystem
	path := filepath.Join(dir, "a", "b.txt")

	require.NoError(t, fsys.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, fsys.WriteFile(path, []byte("hello"), 0o644))
	assert.True(t, fsys.Exists(path))

	data, err := fsys.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	moved := filepath.Join(dir, "a", "c.txt")
	require.NoError(t, fsys.Rename(path, moved))
	assert.False(t, fsys.Exists(path))

	info, err := fsys.Stat(moved)
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size())

	require.NoError(t, fsys.Remove(moved))
	assert.False(t, fsys.Exists(moved))
}

func TestMemoryFileSystem_WriteAndRead(t *testing.T) {
	m := NewMemoryFileSystem()
	require.NoError(t, m.WriteFile("/test/file.txt", []byte("hello world"), 0o644))

	data, err := m.ReadFile("/test/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	f, err := m.Open("/test/../test/file.txt")
	require.NoError(t, err)
	defer f.Close()
	all, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(all))

	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, "file.txt", info.Name())
	assert.Equal(t, int64(11), info.Size())
}

func TestMemoryFileSystem_DataIsolation(t *testing.T) {
	m := NewMemoryFileSystem()
	buf := []byte("abc")
	require.NoError(t, m.WriteFile("x", buf, 0o644))
	buf[0] = 'z'

	data, err := m.ReadFile("x")
	require.NoError(t, err)
	data[1] = 'z'

	again, err := m.ReadFile("x")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}

func TestMemoryFileSystem_NotExist(t *testing.T) {
	m := NewMemoryFileSystem()

	_, err := m.ReadFile("missing")
	assert.ErrorIs(t, err, fs.ErrNotExist)
	_, err = m.Open("missing")
	assert.ErrorIs(t, err, fs.ErrNotExist)
	_, err = m.Stat("missing")
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.ErrorIs(t, m.Remove("missing"), fs.ErrNotExist)
	assert.ErrorIs(t, m.Rename("missing", "other"), fs.ErrNotExist)
}

func TestMemoryFileSystem_MkdirAllAndStat(t *testing.T) {
	m := NewMemoryFileSystem()
	require.NoError(t, m.MkdirAll("/a/b/c", 0o755))

	for _, dir := range []string{"/a", "/a/b", "/a/b/c"} {
		info, err := m.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir(), dir)
	}
	require.NoError(t, m.Remove("/a/b/c"))
	assert.False(t, m.Exists("/a/b/c"))
	assert.True(t, m.Exists("/a/b"))
}

func TestMemoryFileSystem_Rename(t *testing.T) {
	m := NewMemoryFileSystem()
	require.NoError(t, m.WriteFile("old", []byte("new"), 0o600))
	require.NoError(t, m.WriteFile("dst", []byte("stale"), 0o644))

	require.NoError(t, m.Rename("old", "dst"))
	assert.Equal(t, []string{"dst"}, m.Files())

	info, err := m.Stat("dst")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode())
}

func TestMemoryFileSystem_InjectedErrors(t *testing.T) {
	boom := errors.New("disk full")
	m := NewMemoryFileSystem()
	m.WriteErr = boom
	assert.ErrorIs(t, m.WriteFile("x", nil, 0o644), boom)
	assert.Empty(t, m.Files())

	m.WriteErr = nil
	require.NoError(t, m.WriteFile("x", nil, 0o644))
	m.RenameErr = boom
	assert.ErrorIs(t, m.Rename("x", "y"), boom)
	assert.Equal(t, []string{"x"}, m.Files())
}

func TestWriteFileAtomic(t *testing.T) {
	m := NewMemoryFileSystem()
	require.NoError(t, m.MkdirAll("/out", 0o755))
	require.NoError(t, m.WriteFile("/out/result.json", []byte("old"), 0o644))

	require.NoError(t, WriteFileAtomic(m, "/out/result.json", []byte("new"), 0o644))
	data, err := m.ReadFile("/out/result.json")
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
	assert.Equal(t, []string{"/out/result.json"}, m.Files(), "temporary file must not remain")
}

func TestWriteFileAtomic_FailureKeepsPrevious(t *testing.T) {
	boom := errors.New("rename failed")
	m := NewMemoryFileSystem()
	require.NoError(t, m.MkdirAll("/out", 0o755))
	require.NoError(t, m.WriteFile("/out/result.json", []byte("old"), 0o644))
	m.RenameErr = boom

	err := WriteFileAtomic(m, "/out/result.json", []byte("new"), 0o644)
	assert.ErrorIs(t, err, boom)

	data, err := m.ReadFile("/out/result.json")
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
	assert.Equal(t, []string{"/out/result.json"}, m.Files())
}

func TestWriteFileAtomic_LeavesExistingTmpFileAlone(t *testing.T) {
	m := NewMemoryFileSystem()
	require.NoError(t, m.MkdirAll("/out", 0o755))
	require.NoError(t, m.WriteFile("/out/result.json.tmp", []byte("mine"), 0o644))

	require.NoError(t, WriteFileAtomic(m, "/out/result.json", []byte("new"), 0o644))
	data, err := m.ReadFile("/out/result.json.tmp")
	require.NoError(t, err)
	assert.Equal(t, "mine", string(data))

	m.RenameErr = errors.New("rename failed")
	require.Error(t, WriteFileAtomic(m, "/out/result.json", []byte("newer"), 0o644))
	data, err = m.ReadFile("/out/result.json.tmp")
	require.NoError(t, err)
	assert.Equal(t, "mine", string(data))
	assert.Equal(t, []string{"/out/result.json", "/out/result.json.tmp"}, m.Files())
}

func TestWriteFileAtomic_TempNamesAreUnique(t *testing.T) {
	m := NewMemoryFileSystem()
	a, err := tempName(m, "/out/result.json")
	require.NoError(t, err)
	b, err := tempName(m, "/out/result.json")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Regexp(t, `^/out/result\.json\.[0-9a-f]{8}\.tmp$`, a)
}

func TestWriteFileAtomic_MissingDirectory(t *testing.T) {
	m := NewMemoryFileSystem()
	err := WriteFileAtomic(m, "/nowhere/result.json", []byte("x"), 0o644)
	require.Error(t, err)
	assert.Empty(t, m.Files())
}

func TestWriteFileAtomic_OS(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	require.NoError(t, WriteFileAtomic(OSFileSystem{}, path, []byte("{}"), 0o644))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "out.json", entries[0].Name())
}
