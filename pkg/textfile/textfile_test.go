package textfile

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.TraceLevel)
	return logger.WithContext(context.Background())
}

func TestRead(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "a.py")
	require.NoError(t, os.WriteFile(path, []byte("import os\n"), 0o640))

	f, err := Read(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, path, f.Path)
	assert.Equal(t, "import os\n", string(f.Content))
	assert.Equal(t, fs.FileMode(0o640), f.Mode)
	assert.Equal(t, Checksum([]byte("import os\n")), f.Checksum())

	t.Run("symlink_resolves", func(t *testing.T) {
		link := filepath.Join(dir, "link.py")
		require.NoError(t, os.Symlink(path, link))

		f, err := Read(ctx, link)
		require.NoError(t, err)
		assert.Equal(t, link, f.Path)
		resolved, err := filepath.EvalSymlinks(path)
		require.NoError(t, err)
		assert.Equal(t, resolved, f.Real)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := Read(ctx, filepath.Join(dir, "nope.py"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, fs.ErrNotExist))
	})

	t.Run("directory", func(t *testing.T) {
		_, err := Read(ctx, dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a regular file")
	})
}

func TestWriteAtomic(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))

	require.NoError(t, WriteAtomic(ctx, path, []byte("new"), 0o600))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should be renamed away")
}

func TestWriteAtomic_MissingDirectory(t *testing.T) {
	err := WriteAtomic(testContext(t), filepath.Join(t.TempDir(), "gone", "x"), []byte("x"), 0o644)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating temp file")
}

func TestCreateExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap")

	require.NoError(t, CreateExclusive(path, []byte("one"), 0o644))

	err := CreateExclusive(path, []byte("two"), 0o644)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrExist))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "one", string(got), "existing file must not be touched")
}
