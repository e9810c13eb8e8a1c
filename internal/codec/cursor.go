package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/meigma/bfstool/internal/bfstype"
)

// reader is a bounds-checked little-endian cursor over a byte slice. The
// first failed read is sticky; later reads return zero values.
type reader struct {
	data []byte
	pos  int
	// high is the furthest offset any read has reached.
	high int
	err  error
}

func newReader(data []byte) *reader {
	return &reader{data: data}
}

func (r *reader) seek(pos uint64, what string) {
	if r.err != nil {
		return
	}
	if pos > uint64(len(r.data)) {
		r.err = fmt.Errorf("%w: %s at offset %#x is past end of input (%d bytes)",
			bfstype.ErrMalformedHeader, what, pos, len(r.data))
		return
	}
	r.pos = int(pos)
}

func (r *reader) take(n int, what string) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > len(r.data)-r.pos {
		r.err = fmt.Errorf("%w: %s at offset %#x needs %d bytes, %d remain",
			bfstype.ErrMalformedHeader, what, r.pos, n, len(r.data)-r.pos)
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	r.high = max(r.high, r.pos)
	return b
}

func (r *reader) u8(what string) uint8 {
	b := r.take(1, what)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u16(what string) uint16 {
	b := r.take(2, what)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) u32(what string) uint32 {
	b := r.take(4, what)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// writer appends little-endian fields to a growing buffer.
type writer struct {
	buf []byte
}

func newWriter(capacity int) *writer {
	return &writer{buf: make([]byte, 0, capacity)}
}

func (w *writer) u8(v uint8) { w.buf = append(w.buf, v) }

func (w *writer) u16(v uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }

func (w *writer) u32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }

func (w *writer) bytes(b []byte) { w.buf = append(w.buf, b...) }

func (w *writer) zeros(n int) { w.buf = append(w.buf, make([]byte, n)...) }

func (w *writer) len() int { return len(w.buf) }

func (w *writer) putU32(at int, v uint32) {
	binary.LittleEndian.PutUint32(w.buf[at:], v)
}
