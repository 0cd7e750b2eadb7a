package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.log"), []byte("12345"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.log"), []byte("1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.txt"), nil, 0o644))
	require.NoError(t, MakeDir(filepath.Join(dir, "d.log", "nested")))

	files, err := ListFiles(dir, func(name string) bool { return strings.HasSuffix(name, ".log") })
	require.NoError(t, err)
	assert.Equal(t, []FileInfo{
		{Name: "a.log", Path: filepath.Join(dir, "a.log"), Size: 1},
		{Name: "b.log", Path: filepath.Join(dir, "b.log"), Size: 5},
	}, files)

	all, err := ListFiles(dir, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestListFilesMissingDir(t *testing.T) {
	_, err := ListFiles(filepath.Join(t.TempDir(), "missing"), nil)
	require.ErrorIs(t, err, os.ErrNotExist)
}
