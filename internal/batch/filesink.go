package batch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strconv"
	"sync/atomic"

	"github.com/meigma/bfstool/internal/pathutil"
)

// FileSink writes entries below a destination directory.
//
// Files are written to a temporary file in the same directory, then renamed
// to the final path on Commit, so partially written files are never visible
// at the final path. All access goes through an [os.Root], so entry names
// cannot reach outside the destination.
type FileSink struct {
	root      *os.Root
	overwrite bool
	seq       atomic.Uint64
}

// FileSinkOption configures a FileSink.
type FileSinkOption func(*FileSink)

// WithOverwrite allows overwriting existing files.
// By default, existing files are skipped.
func WithOverwrite(overwrite bool) FileSinkOption {
	return func(s *FileSink) {
		s.overwrite = overwrite
	}
}

// NewFileSink creates a FileSink that writes to destDir, creating it if
// needed. Close releases the directory handle.
func NewFileSink(destDir string, opts ...FileSinkOption) (*FileSink, error) {
	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return nil, fmt.Errorf("create destination %s: %w", destDir, err)
	}
	root, err := os.OpenRoot(destDir)
	if err != nil {
		return nil, fmt.Errorf("open destination %s: %w", destDir, err)
	}
	s := &FileSink{root: root}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the destination directory.
func (s *FileSink) Close() error {
	return s.root.Close()
}

// ShouldProcess returns false if the file already exists and overwrite is
// disabled. Unsafe names are let through so that Writer reports them.
func (s *FileSink) ShouldProcess(item *Item) bool {
	if s.overwrite {
		return true
	}
	name, err := pathutil.Normalize(item.Entry.Name)
	if err != nil {
		return true
	}
	_, err = s.root.Stat(name)
	return errors.Is(err, fs.ErrNotExist)
}

// Writer returns a Committer that writes to a temp file and renames on Commit.
func (s *FileSink) Writer(item *Item) (Committer, error) {
	name, err := pathutil.Normalize(item.Entry.Name)
	if err != nil {
		return nil, err
	}

	dir := path.Dir(name)
	if err := s.root.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}

	tempName := path.Join(dir, ".bfstool-"+strconv.Itoa(os.Getpid())+"-"+strconv.FormatUint(s.seq.Add(1), 10))
	f, err := s.root.OpenFile(tempName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	return &fileCommitter{
		root:     s.root,
		destName: name,
		tempName: tempName,
		tempFile: f,
	}, nil
}

// fileCommitter writes to a temp file and renames on Commit.
type fileCommitter struct {
	root     *os.Root
	destName string
	tempName string
	tempFile *os.File
}

// Write implements io.Writer.
func (c *fileCommitter) Write(p []byte) (int, error) {
	return c.tempFile.Write(p)
}

// Commit closes the temp file and renames it to the final path.
func (c *fileCommitter) Commit() error {
	if err := c.tempFile.Close(); err != nil {
		_ = c.root.Remove(c.tempName) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := c.root.Rename(c.tempName, c.destName); err != nil {
		_ = c.root.Remove(c.tempName) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("rename to %s: %w", c.destName, err)
	}
	return nil
}

// Discard closes and removes the temp file.
func (c *fileCommitter) Discard() error {
	_ = c.tempFile.Close() //nolint:errcheck // we're cleaning up
	return c.root.Remove(c.tempName)
}
