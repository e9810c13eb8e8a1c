package bfstool

import (
	"bytes"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/meigma/bfstool/internal/bfstype"
	"github.com/meigma/bfstool/internal/cipher"
	"github.com/meigma/bfstool/internal/codec"
	"github.com/meigma/bfstool/internal/compress"
)

// Archive is a parsed container. It is safe for concurrent reads.
type Archive struct {
	model  *bfstype.Archive
	codec  codec.Codec
	dec    *compress.Codec
	logger *slog.Logger
}

// Parse decodes an archive held in memory. Entry payloads alias data, or a
// decrypted copy of it for encrypted revisions.
//
// The revision comes from WithRevision or, when absent, from identifying
// data against the known-file database.
func Parse(data []byte, opts ...Option) (*Archive, error) {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	rev, err := resolveRevision(&cfg, func() (IdentifyResult, error) {
		db, err := cfg.db()
		if err != nil {
			return IdentifyResult{}, err
		}
		return db.Identify(bytes.NewReader(data))
	})
	if err != nil {
		return nil, err
	}
	return parse(data, rev, &cfg)
}

func parse(data []byte, rev bfstype.Revision, cfg *config) (*Archive, error) {
	c, err := codec.ForRevision(rev)
	if err != nil {
		return nil, err
	}
	log := cfg.log()

	if cipher.Required(rev) && !cfg.plaintext {
		data, err = cipher.Decrypt(data, cfg.keys)
		if err != nil {
			return nil, err
		}
		log.Debug("decrypted archive", "revision", rev, "bytes", len(data))
	}

	model, err := c.Parse(data, codec.ParseOptions{Force: cfg.force})
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rev, err)
	}
	log.Debug("parsed archive", "revision", rev, "entries", len(model.Entries), "header_end", model.HeaderEnd)
	return &Archive{
		model:  model,
		codec:  c,
		dec:    compress.New(compress.WithMaxDecoderMemory(cfg.maxDecoded)),
		logger: cfg.logger,
	}, nil
}

// resolveRevision returns the configured revision or identifies one.
func resolveRevision(cfg *config, identifyFn func() (IdentifyResult, error)) (bfstype.Revision, error) {
	if cfg.hasRevision {
		return cfg.revision, nil
	}
	res, err := identifyFn()
	if err != nil {
		return 0, fmt.Errorf("identify archive: %w", err)
	}
	if !res.Found() {
		return 0, fmt.Errorf("%w: revision not given and archive not in the known-file database", ErrUnsupportedRevision)
	}
	rev, err := res.Record.Revision()
	if err != nil {
		return 0, fmt.Errorf("%w: known file %q has format %q", ErrUnsupportedRevision, res.Record.FileName, res.Record.Format)
	}
	cfg.log().Info("identified archive", "file", res.Record.FileName, "game", res.Record.Game, "revision", rev, "fast", res.Fast)
	return rev, nil
}

func (c *config) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.New(slog.DiscardHandler)
}

func (a *Archive) log() *slog.Logger {
	if a.logger != nil {
		return a.logger
	}
	return slog.New(slog.DiscardHandler)
}

// Revision returns the container revision.
func (a *Archive) Revision() Revision {
	return a.model.Revision
}

// Len returns the number of entries.
func (a *Archive) Len() int {
	return len(a.model.Entries)
}

// Entry returns the entry at index i. The returned value must not be modified.
func (a *Archive) Entry(i int) *Entry {
	return &a.model.Entries[i]
}

// Entries returns all entries in header order. The slice must not be modified.
func (a *Archive) Entries() []Entry {
	return a.model.Entries
}

// Summary describes an archive as a whole.
type Summary struct {
	Revision Revision
	// Version is the raw on-disk version word.
	Version uint32
	// PhysicalSize is the container's byte size.
	PhysicalSize uint64
	// HeaderSize is the zero-based offset of the last header byte.
	HeaderSize uint64
	FileCount  int
}

// Summary returns the archive's size and count figures.
func (a *Archive) Summary() Summary {
	return Summary{
		Revision:     a.model.Revision,
		Version:      a.model.Version,
		PhysicalSize: a.model.Size,
		HeaderSize:   a.model.HeaderSize(),
		FileCount:    len(a.model.Entries),
	}
}

// Bytes serializes the archive again. A parsed archive yields its input
// bytes, decrypted for encrypted revisions.
func (a *Archive) Bytes() ([]byte, error) {
	return a.codec.Serialize(a.model)
}

// ReadEntry decodes the entry at index i and verifies its CRC when the
// revision stores one.
func (a *Archive) ReadEntry(i int) ([]byte, error) {
	if i < 0 || i >= len(a.model.Entries) {
		return nil, fmt.Errorf("entry index %d out of range [0,%d)", i, len(a.model.Entries))
	}
	e := &a.model.Entries[i]
	ofDecoded := a.codec.Traits().CRCOfDecoded
	if e.HasCRC && !ofDecoded {
		if err := checkCRC(i, e, e.Payload); err != nil {
			return nil, err
		}
	}
	out, err := a.dec.Decode(e.Payload, e.Method, e.Size)
	if err != nil {
		return nil, fmt.Errorf("entry %d (%q) at offset %#x: %w", i, e.Name, e.Offset, err)
	}
	if e.HasCRC && ofDecoded {
		if err := checkCRC(i, e, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ReadFile decodes the first entry named name.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	for i := range a.model.Entries {
		if a.model.Entries[i].Name == name {
			return a.ReadEntry(i)
		}
	}
	return nil, fmt.Errorf("read %q: %w", name, fs.ErrNotExist)
}

func checkCRC(i int, e *Entry, data []byte) error {
	if got := bfstype.Checksum(data); got != e.CRC32 {
		return fmt.Errorf("%w: entry %d (%q) has crc %#08x, header says %#08x",
			ErrChecksumMismatch, i, e.Name, got, e.CRC32)
	}
	return nil
}
