package bfstool

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/meigma/bfstool/internal/bfstype"
	"github.com/meigma/bfstool/internal/cipher"
	"github.com/meigma/bfstool/internal/codec"
	"github.com/meigma/bfstool/internal/compress"
	"github.com/meigma/bfstool/internal/filter"
	"github.com/meigma/bfstool/internal/platform"
)

// File is one input of Create.
type File struct {
	// Name is the archive-relative slash path.
	Name string
	Data []byte
}

// dedupKey identifies content that can share one stored payload. Files only
// share when they would also be encoded and mirrored the same way.
type dedupKey struct {
	sum         uint64
	size        int
	method      bfstype.Method
	mirrors     int
	mirrorsWide int
}

// Create builds an archive of revision rev from files and returns it with
// its serialized bytes.
//
// Filter rules decide per file whether it is compressed with the configured
// method or stored. Copy rules add mirror copies. Identical files share one
// payload unless dedup is disabled. Hashed revisions reorder entries by name
// bucket, so the returned archive's order can differ from files.
//
// Bzf2001 output is enciphered with the key supplied by CreateWithKeys; it
// fails with ErrMissingKey when there is none, unless CreateWithDeciphered
// is set. The returned Archive always holds the plaintext.
func Create(ctx context.Context, files []File, rev Revision, opts ...CreateOption) (*Archive, []byte, error) {
	cfg := createConfig{method: bfstype.MethodZlib, level: compress.DefaultLevel}
	for _, opt := range opts {
		opt(&cfg)
	}
	log := cfg.log()

	c, err := codec.ForRevision(rev)
	if err != nil {
		return nil, nil, err
	}
	traits := c.Traits()
	if cfg.method == bfstype.MethodZstd && !traits.Zstd {
		return nil, nil, fmt.Errorf("%w: %s cannot store zstd payloads", ErrUnsupportedMethod, rev)
	}
	encipher := false
	if cipher.Required(rev) && !cfg.deciphered {
		if _, ok := cfg.keys.Key(cipher.ProfileBzf2001); !ok {
			return nil, nil, fmt.Errorf("%w: %s output is enciphered; supply a key or create it deciphered", ErrMissingKey, rev)
		}
		encipher = true
	}
	level := cfg.level
	if level < 0 {
		level = compress.DefaultLevel
	}
	enc := compress.New(compress.WithLevel(level))

	model := &bfstype.Archive{Revision: rev, Entries: make([]bfstype.Entry, 0, len(files))}
	seen := make(map[dedupKey]int)
	var shared int
	var bytesDone, bytesTotal uint64
	for _, f := range files {
		bytesTotal += uint64(len(f.Data))
	}
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		name := strings.ReplaceAll(f.Name, `\`, "/")
		method := bfstype.MethodStore
		if !cfg.hasFilter || filter.Evaluate(name, cfg.filter) == filter.Include {
			method = cfg.method
		}
		e := bfstype.Entry{
			Name: name,
			Size: uint64(len(f.Data)),
			Copy: bfstype.CopyDescriptor{Primary: i},
		}
		if traits.Copies {
			rule := filter.EvaluateCopies(name, cfg.copies)
			e.Mirrors = make([]uint64, rule.Total())
			e.MirrorsWide = int(rule.MirrorsWide)
		}

		key := dedupKey{size: len(f.Data), method: method, mirrors: len(e.Mirrors), mirrorsWide: e.MirrorsWide}
		if !cfg.noDedup && len(f.Data) > 0 {
			key.sum = xxhash.Sum64(f.Data)
			if p, ok := seen[key]; ok {
				prim := &model.Entries[p]
				e.Copy.Primary = p
				e.Method, e.Flags = prim.Method, prim.Flags
				e.CompressedSize, e.Payload = prim.CompressedSize, prim.Payload
				e.CRC32, e.HasCRC = prim.CRC32, prim.HasCRC
				prim.Copy.Count++
				shared++
				model.Entries = append(model.Entries, e)
				log.Debug("deduplicated", "name", name, "primary", prim.Name)
				bytesDone += e.Size
				cfg.reportProgress(StageCompressing, name, bytesDone, bytesTotal, i+1, len(files))
				continue
			}
			seen[key] = i
		}

		payload, used, err := enc.Encode(f.Data, method)
		if err != nil {
			return nil, nil, fmt.Errorf("encode %q: %w", name, err)
		}
		e.Method = used
		e.Payload = payload
		e.CompressedSize = uint64(len(payload))
		if traits.CRCOnCreate {
			e.HasCRC = true
			if traits.CRCOfDecoded {
				e.CRC32 = bfstype.Checksum(f.Data)
			} else {
				e.CRC32 = bfstype.Checksum(payload)
			}
		}
		model.Entries = append(model.Entries, e)
		log.Debug("encoded", "name", name, "method", used, "size", e.Size, "compressed", e.CompressedSize)
		bytesDone += e.Size
		cfg.reportProgress(StageCompressing, name, bytesDone, bytesTotal, i+1, len(files))
	}

	if err := c.Place(model, codec.PlaceOptions{Alignment: cfg.alignment}); err != nil {
		return nil, nil, err
	}
	plain, err := c.Serialize(model)
	if err != nil {
		return nil, nil, err
	}
	log.Info("created archive", "revision", rev, "entries", len(model.Entries), "shared", shared, "bytes", len(plain))

	// Re-read the output so the returned archive describes exactly what was
	// written.
	a, err := parse(plain, rev, &config{logger: cfg.logger, plaintext: true})
	if err != nil {
		return nil, nil, fmt.Errorf("re-read created archive: %w", err)
	}

	out := plain
	if encipher {
		if out, err = cipher.Encrypt(plain, cfg.keys); err != nil {
			return nil, nil, err
		}
	} else if cipher.Required(rev) {
		log.Info("archive written deciphered", "revision", rev)
	}
	return a, out, nil
}

// CreateFromDir builds an archive from every regular file below dir. Names
// are slash paths relative to dir in lexical order. Symbolic links are
// skipped.
func CreateFromDir(ctx context.Context, dir string, rev Revision, opts ...CreateOption) (*Archive, []byte, error) {
	cfg := createConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	maxSize := cfg.maxFileSize
	if maxSize == 0 {
		maxSize = math.MaxUint32
	}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, nil, err
	}
	defer root.Close()

	var files []File
	err = fs.WalkDir(root.FS(), ".", func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			cfg.log().Debug("skipping symlink", "path", p)
			return nil
		}
		data, err := platform.ReadRegularFile(root, filepath.FromSlash(p), maxSize)
		if err != nil {
			if errors.Is(err, platform.ErrSymlink) {
				return nil
			}
			return fmt.Errorf("read %s: %w", p, err)
		}
		files = append(files, File{Name: p, Data: data})
		cfg.reportProgress(StageEnumerating, p, 0, 0, len(files), 0)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return Create(ctx, files, rev, opts...)
}

func (c *createConfig) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.New(slog.DiscardHandler)
}

// reportProgress sends a progress event if a callback is configured.
func (c *createConfig) reportProgress(stage ProgressStage, path string, bytesDone, bytesTotal uint64, filesDone, filesTotal int) {
	if c.progress == nil {
		return
	}
	c.progress(ProgressEvent{
		Stage:      stage,
		Path:       path,
		BytesDone:  bytesDone,
		BytesTotal: bytesTotal,
		FilesDone:  filesDone,
		FilesTotal: filesTotal,
	})
}
