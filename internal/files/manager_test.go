package files

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager() *Manager {
	return NewManager(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestManagerEnsureDirectory(t *testing.T) {
	root := t.TempDir()
	m := testManager()

	dir := filepath.Join(root, "um", "2024", "01", "02", "klines")
	require.NoError(t, m.EnsureDirectory(dir))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// Second call is a no-op.
	require.NoError(t, m.EnsureDirectory(dir))
}

func TestManagerMoveFile(t *testing.T) {
	root := t.TempDir()
	m := testManager()

	src := filepath.Join(root, "src.parquet")
	dst := filepath.Join(root, "out", "dst.parquet")
	require.NoError(t, os.WriteFile(src, []byte("data"), 0644))
	require.NoError(t, m.MoveFile(src, dst))

	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err))
	content, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), content)
}

func TestManagerCopyFile(t *testing.T) {
	root := t.TempDir()
	m := testManager()

	src := filepath.Join(root, "src.csv")
	dst := filepath.Join(root, "nested", "dst.csv")
	require.NoError(t, os.WriteFile(src, []byte("a,b\n"), 0644))
	require.NoError(t, m.CopyFile(src, dst))

	content, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, []byte("a,b\n"), content)

	// Source stays in place.
	_, err = os.Stat(src)
	assert.NoError(t, err)
}

func TestManagerDeleteFile(t *testing.T) {
	root := t.TempDir()
	m := testManager()

	path := filepath.Join(root, "gone.csv")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	require.NoError(t, m.DeleteFile(path))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, m.DeleteFile(path))
}

func TestManagerGetFileSize(t *testing.T) {
	root := t.TempDir()
	m := testManager()

	path := filepath.Join(root, "sized.csv")
	require.NoError(t, os.WriteFile(path, []byte("12345"), 0644))
	size, err := m.GetFileSize(path)
	require.NoError(t, err)
	assert.Equal(t, int64(5), size)
}
