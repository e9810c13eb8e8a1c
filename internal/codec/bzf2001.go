package codec

import (
	"bytes"
	"fmt"

	"github.com/meigma/bfstool/internal/bfstype"
	"github.com/meigma/bfstool/internal/sizing"
)

// Bzf2001 layout: magic, version, count, then count fixed-size file headers
// of flags u8, offset u32, size u32, packed u32, and a NUL-padded name.
const (
	bzf2001Header     = 12
	bzf2001FileHeader = 13 + 0x28
)

type bzf2001 struct{}

func (bzf2001) parseHeaders(r *reader, l *layout, a *bfstype.Archive, _ ParseOptions) error {
	count := r.u32("file count")
	if r.err != nil {
		return r.err
	}
	if err := checkCount(r, count, bzf2001FileHeader); err != nil {
		return err
	}

	a.Entries = make([]bfstype.Entry, 0, count)
	for i := range int(count) {
		flags := r.u8("flags")
		off := r.u32("data offset")
		size := r.u32("size")
		packed := r.u32("compressed size")
		name := r.take(l.nameField, "file name")
		if r.err != nil {
			return fmt.Errorf("entry %d: %w", i, r.err)
		}
		e := newEntry(l, i, flags, off, size, packed)
		e.Name = string(bytes.TrimRight(name, "\x00"))
		a.Entries = append(a.Entries, e)
	}
	a.HeaderEnd = uint64(r.pos)
	return nil
}

func (bzf2001) headerLen(_ *layout, a *bfstype.Archive) (uint64, error) {
	return bzf2001Header + uint64(len(a.Entries))*bzf2001FileHeader, nil
}

func (s bzf2001) writeHeaders(l *layout, a *bfstype.Archive) ([]byte, error) {
	n, _ := s.headerLen(l, a)
	count, err := sizing.Field32(uint64(len(a.Entries)), "file count", bfstype.ErrEntryOverflow)
	if err != nil {
		return nil, err
	}

	w := newWriter(int(n)) //nolint:gosec // bounded by entry count
	w.u32(l.magic)
	w.u32(l.version)
	w.u32(count)
	for i := range a.Entries {
		e := &a.Entries[i]
		if len(e.Name) > l.nameField {
			return nil, fmt.Errorf("%w: entry %d name %q is longer than %d bytes",
				bfstype.ErrInvalidName, i, e.Name, l.nameField)
		}
		flags, err := entryFlags(l, i, e)
		if err != nil {
			return nil, err
		}
		sz, err := narrowSizes(i, e)
		if err != nil {
			return nil, err
		}
		w.u8(flags)
		w.u32(sz.offset)
		w.u32(sz.size)
		w.u32(sz.packed)
		w.bytes([]byte(e.Name))
		w.zeros(l.nameField - len(e.Name))
	}
	return w.buf, nil
}
