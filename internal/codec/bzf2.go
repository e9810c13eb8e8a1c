package codec

import (
	"fmt"

	"github.com/meigma/bfstool/internal/bfstype"
	"github.com/meigma/bfstool/internal/sizing"
)

// Bzf2 layout: magic, version, header size, count, then count file headers
// of flags u8, offset u32, size u32, packed u32, crc u32, name length u16,
// and the name.
const (
	bzf2Header     = 16
	bzf2FileHeader = 19
)

type bzf2 struct{}

func (bzf2) parseHeaders(r *reader, l *layout, a *bfstype.Archive, _ ParseOptions) error {
	headerSize := r.u32("header size")
	count := r.u32("file count")
	if r.err != nil {
		return r.err
	}
	if err := checkCount(r, count, bzf2FileHeader); err != nil {
		return err
	}

	a.Entries = make([]bfstype.Entry, 0, count)
	for i := range int(count) {
		flags := r.u8("flags")
		off := r.u32("data offset")
		size := r.u32("size")
		packed := r.u32("compressed size")
		crc := r.u32("crc")
		nameLen := r.u16("name length")
		name := r.take(int(nameLen), "file name")
		if r.err != nil {
			return fmt.Errorf("entry %d: %w", i, r.err)
		}
		e := newEntry(l, i, flags, off, size, packed)
		e.Name = string(name)
		e.CRC32 = crc
		e.HasCRC = l.hasCRC(flags)
		a.Entries = append(a.Entries, e)
	}
	a.HeaderEnd = uint64(headerSize)
	return nil
}

func (bzf2) headerLen(_ *layout, a *bfstype.Archive) (uint64, error) {
	n := uint64(bzf2Header)
	for i := range a.Entries {
		n += bzf2FileHeader + uint64(len(a.Entries[i].Name))
	}
	return n, nil
}

func (s bzf2) writeHeaders(l *layout, a *bfstype.Archive) ([]byte, error) {
	n, _ := s.headerLen(l, a)
	headerSize, err := sizing.Field32(n, "header size", bfstype.ErrEntryOverflow)
	if err != nil {
		return nil, err
	}
	count, err := sizing.Field32(uint64(len(a.Entries)), "file count", bfstype.ErrEntryOverflow)
	if err != nil {
		return nil, err
	}

	w := newWriter(int(headerSize))
	w.u32(l.magic)
	w.u32(l.version)
	w.u32(headerSize)
	w.u32(count)
	for i := range a.Entries {
		e := &a.Entries[i]
		flags, err := entryFlags(l, i, e)
		if err != nil {
			return nil, err
		}
		sz, err := narrowSizes(i, e)
		if err != nil {
			return nil, err
		}
		nameLen, err := sizing.Field16(uint64(len(e.Name)), "name length", bfstype.ErrEntryOverflow)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		w.u8(flags)
		w.u32(sz.offset)
		w.u32(sz.size)
		w.u32(sz.packed)
		w.u32(e.CRC32)
		w.u16(nameLen)
		w.bytes([]byte(e.Name))
	}
	return w.buf, nil
}
