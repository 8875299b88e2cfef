package filestore

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureExistsCreatesParentsAndFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	store := New(fsys)

	path := "resources/data/candidates.txt"
	require.NoError(t, store.EnsureExists(path))

	info, err := fsys.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Size())

	dirInfo, err := fsys.Stat("resources/data")
	require.NoError(t, err)
	assert.True(t, dirInfo.IsDir())
}

func TestEnsureExistsIsIdempotent(t *testing.T) {
	store := New(afero.NewMemMapFs())
	path := "data/candidates.txt"

	require.NoError(t, store.EnsureExists(path))
	require.NoError(t, store.WriteAll(path, []byte("keep me")))
	require.NoError(t, store.EnsureExists(path))

	data, err := store.ReadAll(path)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))
}

func TestWriteAllOverwrites(t *testing.T) {
	store := New(afero.NewMemMapFs())
	path := "candidates.txt"

	require.NoError(t, store.WriteAll(path, []byte("a much longer first version")))
	require.NoError(t, store.WriteAll(path, []byte("short")))

	data, err := store.ReadAll(path)
	require.NoError(t, err)
	assert.Equal(t, "short", string(data))
}

func TestReadAllMissingFile(t *testing.T) {
	store := New(afero.NewMemMapFs())

	_, err := store.ReadAll("nope.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.txt")
	assert.Error(t, store.Readable("nope.txt"))
}

func TestReadOnlyFilesystemReportsWriteError(t *testing.T) {
	base := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(base, "data/candidates.txt", []byte("x"), 0o644))
	store := New(afero.NewReadOnlyFs(base))

	require.NoError(t, store.EnsureExists("data/candidates.txt"))
	assert.Error(t, store.WriteAll("data/candidates.txt", []byte("y")))
	assert.Error(t, store.EnsureExists("data/other.txt"))
}

func TestOsFilesystem(t *testing.T) {
	store := New(nil)
	path := filepath.Join(t.TempDir(), "nested", "candidates.txt")

	require.NoError(t, store.EnsureExists(path))
	require.NoError(t, store.WriteAll(path, []byte("hello")))
	require.NoError(t, store.Readable(path))

	data, err := store.ReadAll(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}
