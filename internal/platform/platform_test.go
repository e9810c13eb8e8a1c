package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/bfstool/internal/bfstype"
)

func TestReadRegularFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.bin"), []byte("abcdef"), 0o600))
	require.NoError(t, os.Symlink(filepath.Join(dir, "a.bin"), filepath.Join(dir, "link.bin")))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o750))

	root, err := os.OpenRoot(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = root.Close() })

	got, err := ReadRegularFile(root, "a.bin", 16)
	require.NoError(t, err)
	assert.Equal(t, []byte("abcdef"), got)

	_, err = ReadRegularFile(root, "a.bin", 3)
	require.ErrorIs(t, err, bfstype.ErrEntryOverflow)

	_, err = ReadRegularFile(root, "link.bin", 16)
	require.ErrorIs(t, err, ErrSymlink)

	_, err = ReadRegularFile(root, "sub", 16)
	require.Error(t, err)
}
