package codec

import (
	"fmt"

	"github.com/meigma/bfstool/internal/bfstype"
	"github.com/meigma/bfstool/internal/sizing"
)

// Bfs1 revision A layout: magic, version, header end, count, count u32
// file header offsets, the hash size, hashSize {u16 first index, u16 count}
// buckets, then the file headers. A file header is flags u8, copies u8,
// pad u16, offset, size, packed, crc, name length u16, the name, and copies
// u32 mirror offsets.
const (
	bfs1aHeader     = 16
	bfs1aFileHeader = 22
)

type bfs1a struct{}

func (bfs1a) parseHeaders(r *reader, l *layout, a *bfstype.Archive, opts ParseOptions) error {
	headerEnd := r.u32("header end")
	count := r.u32("file count")
	if r.err != nil {
		return r.err
	}
	if err := checkCount(r, count, 4+bfs1aFileHeader); err != nil {
		return err
	}
	offsets := make([]uint32, count)
	for i := range offsets {
		offsets[i] = r.u32("file header offset")
	}
	buckets := r.u32("hash size")
	if r.err != nil {
		return r.err
	}
	if buckets != hashSize && !opts.Force {
		return fmt.Errorf("%w: hash size %#x, want %#x", bfstype.ErrMalformedHeader, buckets, hashSize)
	}

	a.Entries = make([]bfstype.Entry, 0, count)
	for i, at := range offsets {
		r.seek(uint64(at), "file header")
		flags := r.u8("flags")
		copies := r.u8("copies")
		r.take(2, "padding")
		off := r.u32("data offset")
		size := r.u32("size")
		packed := r.u32("compressed size")
		crc := r.u32("crc")
		nameLen := r.u16("name length")
		name := r.take(int(nameLen), "file name")
		mirrors := readMirrors(r, int(copies))
		if r.err != nil {
			return fmt.Errorf("entry %d: %w", i, r.err)
		}
		e := newEntry(l, i, flags, off, size, packed)
		e.Name = string(name)
		e.CRC32 = crc
		e.HasCRC = l.hasCRC(flags)
		e.Mirrors = mirrors
		a.Entries = append(a.Entries, e)
	}
	a.HeaderEnd = uint64(headerEnd)
	return nil
}

func (bfs1a) headerLen(_ *layout, a *bfstype.Archive) (uint64, error) {
	n := uint64(bfs1aHeader) + 4*uint64(len(a.Entries)) + 4 + 4*hashSize
	for i := range a.Entries {
		e := &a.Entries[i]
		n += bfs1aFileHeader + uint64(len(e.Name)) + 4*uint64(len(e.Mirrors))
	}
	return n, nil
}

func (s bfs1a) writeHeaders(l *layout, a *bfstype.Archive) ([]byte, error) {
	n, _ := s.headerLen(l, a)
	headerEnd, err := sizing.Field32(n, "header end", bfstype.ErrEntryOverflow)
	if err != nil {
		return nil, err
	}
	count, err := sizing.Field32(uint64(len(a.Entries)), "file count", bfstype.ErrEntryOverflow)
	if err != nil {
		return nil, err
	}
	start, runs, err := bucketRuns(a.Entries)
	if err != nil {
		return nil, err
	}

	w := newWriter(int(headerEnd))
	w.u32(l.magic)
	w.u32(l.version)
	w.u32(headerEnd)
	w.u32(count)
	table := w.len()
	w.zeros(4 * len(a.Entries))
	w.u32(hashSize)
	for b := range hashSize {
		if runs[b] == 0 {
			w.u32(0)
			continue
		}
		first, err := sizing.Field16(uint64(start[b]), "bucket first index", bfstype.ErrEntryOverflow)
		if err != nil {
			return nil, err
		}
		cnt, err := sizing.Field16(uint64(runs[b]), "bucket count", bfstype.ErrEntryOverflow)
		if err != nil {
			return nil, err
		}
		w.u16(first)
		w.u16(cnt)
	}

	for i := range a.Entries {
		e := &a.Entries[i]
		w.putU32(table+4*i, uint32(w.len())) //nolint:gosec // below headerEnd
		flags, err := entryFlags(l, i, e)
		if err != nil {
			return nil, err
		}
		sz, err := narrowSizes(i, e)
		if err != nil {
			return nil, err
		}
		copies, _, err := copyCounts(l, i, e)
		if err != nil {
			return nil, err
		}
		nameLen, err := sizing.Field16(uint64(len(e.Name)), "name length", bfstype.ErrEntryOverflow)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		w.u8(flags)
		w.u8(copies)
		w.u16(0)
		w.u32(sz.offset)
		w.u32(sz.size)
		w.u32(sz.packed)
		w.u32(e.CRC32)
		w.u16(nameLen)
		w.bytes([]byte(e.Name))
		if err := writeMirrors(w, i, e); err != nil {
			return nil, err
		}
	}
	return w.buf, nil
}
