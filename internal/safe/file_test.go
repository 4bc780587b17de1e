package safe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"a":1}]`), 0o600))

	t.Run("reads regular file", func(t *testing.T) {
		data, err := ReadFile(path, 0)
		require.NoError(t, err)
		assert.Equal(t, `[{"a":1}]`, string(data))
	})

	t.Run("follows symlinks", func(t *testing.T) {
		link := filepath.Join(dir, "link.json")
		require.NoError(t, os.Symlink(path, link))
		data, err := ReadFile(link, 0)
		require.NoError(t, err)
		assert.Equal(t, `[{"a":1}]`, string(data))
	})

	t.Run("rejects oversized file", func(t *testing.T) {
		_, err := ReadFile(path, 4)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds maximum allowed size of 4 bytes")
	})

	t.Run("rejects directory", func(t *testing.T) {
		_, err := ReadFile(dir, 0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a regular file")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadFile(filepath.Join(dir, "nope"), 0)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
