// Package compress encodes and decodes entry payloads.
//
// Payloads are handled as whole buffers. Decoded output must match the size
// recorded in the entry header exactly; anything else is reported as
// [bfstype.ErrSizeMismatch] so that a corrupt archive is never silently
// truncated.
package compress

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"

	"github.com/meigma/bfstool/internal/bfstype"
	"github.com/meigma/bfstool/internal/sizing"
)

// Method is an alias for bfstype.Method.
type Method = bfstype.Method

// DefaultLevel selects each algorithm's default compression level.
const DefaultLevel = -1

// Codec encodes and decodes payloads. A Codec is safe for concurrent use.
type Codec struct {
	pool      *DecoderPool
	level     int
	downgrade bool
}

// Option configures a Codec.
type Option func(*Codec)

// WithLevel sets the compression level. For zlib the range is 0-9, for zstd
// it is mapped with zstd.EncoderLevelFromZstd. DefaultLevel uses each
// algorithm's default.
func WithLevel(level int) Option {
	return func(c *Codec) {
		c.level = level
	}
}

// WithDowngrade controls whether Encode falls back to store when compression
// does not shrink the payload. It is enabled by default.
func WithDowngrade(enabled bool) Option {
	return func(c *Codec) {
		c.downgrade = enabled
	}
}

// WithMaxDecoderMemory caps the memory a zstd decoder may allocate.
func WithMaxDecoderMemory(limit uint64) Option {
	return func(c *Codec) {
		c.pool = NewDecoderPool(limit)
	}
}

// New creates a Codec.
func New(opts ...Option) *Codec {
	c := &Codec{level: DefaultLevel, downgrade: true}
	for _, opt := range opts {
		opt(c)
	}
	if c.pool == nil {
		c.pool = NewDecoderPool(0)
	}
	return c
}

var defaultCodec = New()

// Decode decodes data with the default Codec.
func Decode(data []byte, m Method, size uint64) ([]byte, error) {
	return defaultCodec.Decode(data, m, size)
}

// Encode encodes data with the default Codec.
func Encode(data []byte, m Method) ([]byte, Method, error) {
	return defaultCodec.Encode(data, m)
}

// Decode returns the decoded form of data, which must be exactly size bytes.
// For store the returned slice aliases data.
func (c *Codec) Decode(data []byte, m Method, size uint64) ([]byte, error) {
	switch m {
	case bfstype.MethodStore:
		if uint64(len(data)) != size {
			return nil, fmt.Errorf("%w: stored %d bytes, expected %d", bfstype.ErrSizeMismatch, len(data), size)
		}
		return data, nil
	case bfstype.MethodZlib:
		r, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: zlib: %v", bfstype.ErrDecompression, err)
		}
		defer r.Close()
		return readExact(r, size)
	case bfstype.MethodZstd:
		dec, release, err := c.pool.Get(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %v", bfstype.ErrDecompression, err)
		}
		defer release()
		return readExact(dec, size)
	default:
		return nil, fmt.Errorf("%w: %s", bfstype.ErrUnsupportedMethod, m)
	}
}

// readExact reads the whole stream and checks it against size.
func readExact(r io.Reader, size uint64) ([]byte, error) {
	errTooLong := fmt.Errorf("%w: decoded more than %d bytes", bfstype.ErrSizeMismatch, size)
	out, err := sizing.ReadAllWithLimit(r, size, errTooLong)
	if err != nil {
		if errors.Is(err, bfstype.ErrSizeMismatch) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", bfstype.ErrDecompression, err)
	}
	if uint64(len(out)) != size {
		return nil, fmt.Errorf("%w: decoded %d bytes, expected %d", bfstype.ErrSizeMismatch, len(out), size)
	}
	return out, nil
}

// Encode encodes data with the requested method and reports the method that
// was actually used. With downgrade enabled, a compressed result that is not
// smaller than data is discarded and data is returned as store.
func (c *Codec) Encode(data []byte, m Method) ([]byte, Method, error) {
	var (
		out []byte
		err error
	)
	switch m {
	case bfstype.MethodStore:
		return data, bfstype.MethodStore, nil
	case bfstype.MethodZlib:
		out, err = c.encodeZlib(data)
	case bfstype.MethodZstd:
		out, err = c.encodeZstd(data)
	default:
		return nil, bfstype.MethodUnknown, fmt.Errorf("%w: %s", bfstype.ErrUnsupportedMethod, m)
	}
	if err != nil {
		return nil, bfstype.MethodUnknown, err
	}
	if c.downgrade && len(out) >= len(data) {
		return data, bfstype.MethodStore, nil
	}
	return out, m, nil
}

func (c *Codec) encodeZlib(data []byte) ([]byte, error) {
	level := c.level
	if level == DefaultLevel {
		level = zlib.DefaultCompression
	}
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("create zlib encoder: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("zlib encode: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("zlib encode: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *Codec) encodeZstd(data []byte) ([]byte, error) {
	opts := []zstd.EOption{
		zstd.WithEncoderConcurrency(1),
		zstd.WithZeroFrames(true),
	}
	if c.level != DefaultLevel {
		opts = append(opts, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(c.level)))
	}
	enc, err := zstd.NewWriter(nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, make([]byte, 0, len(data)/2+64)), nil
}
