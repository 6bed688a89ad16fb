package fileurl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "nested", "a.json")

	require.NoError(t, WriteFileAtomic(dst, []byte("one"), 0o644))
	require.NoError(t, WriteFileAtomic(dst, []byte("two"), 0o644))

	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "two", string(b))

	entries, err := os.ReadDir(filepath.Dir(dst))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")

	assert.True(t, IsExist(dst))
	assert.True(t, IsDir(filepath.Dir(dst)))
	assert.False(t, IsExist(filepath.Join(dir, "missing")))
}
