package bfstool

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/edsrzf/mmap-go"

	"github.com/meigma/bfstool/internal/identify"
)

// ArchiveFile wraps an Archive with its memory-mapped backing file.
// Close must be called to release file resources; entries of a plaintext
// revision alias the mapping and are invalid afterwards.
//
//nolint:revive // ArchiveFile is intentionally named for clarity when imported
type ArchiveFile struct {
	*Archive
	file    *os.File
	mapping mmap.MMap
}

// Close unmaps and closes the underlying file.
func (af *ArchiveFile) Close() error {
	var err error
	if af.mapping != nil {
		err = af.mapping.Unmap()
		af.mapping = nil
	}
	if af.file != nil {
		if cerr := af.file.Close(); err == nil {
			err = cerr
		}
		af.file = nil
	}
	return err
}

// OpenFile memory-maps the archive at path read-only and parses it.
//
// Without WithRevision the archive is identified: by the CRC32 in its file
// name first when WithFastIdentify is set, then by hashing its content.
func OpenFile(path string, opts ...Option) (*ArchiveFile, error) {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	f, err := os.Open(path) //nolint:gosec // User-provided path is intentional
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat archive: %w", err)
	}

	var mapping mmap.MMap
	data := []byte{}
	if info.Size() > 0 {
		mapping, err = mmap.Map(f, mmap.RDONLY, 0)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("map archive: %w", err)
		}
		data = mapping
	}
	af := &ArchiveFile{file: f, mapping: mapping}

	rev, err := resolveRevision(&cfg, func() (IdentifyResult, error) {
		db, err := cfg.db()
		if err != nil {
			return IdentifyResult{}, err
		}
		return identifyData(db, filepath.Base(path), data, cfg.fastIdentify)
	})
	if err != nil {
		af.Close()
		return nil, err
	}

	a, err := parse(data, rev, &cfg)
	if err != nil {
		af.Close()
		return nil, err
	}
	af.Archive = a
	return af, nil
}

// identifyData runs the fast path when requested and falls back to hashing.
func identifyData(db *identify.Database, name string, data []byte, fast bool) (IdentifyResult, error) {
	if fast {
		if res := db.IdentifyFast(name, int64(len(data))); res.Found() {
			return res, nil
		}
	}
	return db.Identify(bytes.NewReader(data))
}
