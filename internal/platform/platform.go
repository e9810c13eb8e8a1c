// Package platform wraps the OS-specific parts of reading source trees.
package platform

import (
	"errors"
	"fmt"
	"os"

	"github.com/meigma/bfstool/internal/bfstype"
	"github.com/meigma/bfstool/internal/sizing"
)

// ErrSymlink is returned when attempting to open a symbolic link.
var ErrSymlink = errors.New("symbolic links not supported")

// ReadRegularFile reads a regular file below root without following
// symlinks. Files larger than maxSize fail with bfstype.ErrEntryOverflow.
func ReadRegularFile(root *os.Root, name string, maxSize uint64) ([]byte, error) {
	f, err := OpenFileNoFollow(root, name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", name)
	}
	if uint64(info.Size()) > maxSize { //nolint:gosec // size of a regular file is non-negative
		return nil, fmt.Errorf("%w: %s is %d bytes", bfstype.ErrEntryOverflow, name, info.Size())
	}
	return sizing.ReadAllWithLimit(f, maxSize, fmt.Errorf("%w: %s grew while reading", bfstype.ErrEntryOverflow, name))
}
