package codec

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/meigma/bfstool/internal/bfstype"
	"github.com/meigma/bfstool/internal/sizing"
)

// Bfs1 revisions B and C layout: magic, version, header end, count, hash
// size, hashSize {u32 first header offset, u32 count} buckets, a metadata
// header of five u32 section offsets relative to its own start, the name
// sections, then the file headers. A file header is flags u8, narrow copies
// u8, wide copies u16, offset, size, packed, crc, folder id u16, file id
// u16, and one u32 per mirror.
const (
	bfs1HashedHeader     = 20
	bfs1HashedFileHeader = 24
)

type bfs1Hashed struct{}

// sectionMark is the absolute start of one header section. rank is the
// section's position in on-disk field order.
type sectionMark struct {
	pos  uint64
	rank int
}

func (bfs1Hashed) parseHeaders(r *reader, l *layout, a *bfstype.Archive, opts ParseOptions) error {
	headerEnd := r.u32("header end")
	count := r.u32("file count")
	buckets := r.u32("hash size")
	if r.err != nil {
		return r.err
	}
	if buckets != hashSize && !opts.Force {
		return fmt.Errorf("%w: hash size %#x, want %#x", bfstype.ErrMalformedHeader, buckets, hashSize)
	}
	if err := checkCount(r, count, bfs1HashedFileHeader); err != nil {
		return err
	}
	if err := checkCount(r, buckets, 8); err != nil {
		return err
	}

	metaStart := uint64(bfs1HashedHeader) + 8*uint64(buckets)
	r.seek(metaStart, "name table header")
	t := &bfstype.NameTable{
		FileHeadersOffset: r.u32("file headers offset"),
		OffsetsOffset:     r.u32("name offsets offset"),
		LengthsOffset:     r.u32("name lengths offset"),
		DictOffset:        r.u32("name dictionary offset"),
		DataOffset:        r.u32("name data offset"),
	}
	if r.err != nil {
		return r.err
	}

	// A section runs up to the next section start, or to the header end.
	// Sections sharing a start are empty except the last in on-disk order.
	const (
		secOffsets = iota
		secLengths
		secDict
		secData
		secHeaders
		secEnd
	)
	marks := []sectionMark{
		{metaStart + uint64(t.OffsetsOffset), secOffsets},
		{metaStart + uint64(t.LengthsOffset), secLengths},
		{metaStart + uint64(t.DictOffset), secDict},
		{metaStart + uint64(t.DataOffset), secData},
		{metaStart + uint64(t.FileHeadersOffset), secHeaders},
		{uint64(headerEnd), secEnd},
	}
	slices.SortFunc(marks, func(x, y sectionMark) int {
		if c := cmp.Compare(x.pos, y.pos); c != 0 {
			return c
		}
		return cmp.Compare(x.rank, y.rank)
	})
	section := func(rank int, what string) []byte {
		k := slices.IndexFunc(marks, func(m sectionMark) bool { return m.rank == rank })
		start, end := marks[k].pos, marks[k].pos
		if k+1 < len(marks) {
			end = marks[k+1].pos
		}
		r.seek(start, what)
		return r.take(int(end-start), what) //nolint:gosec // take bounds it by the input length
	}

	raw := section(secOffsets, "name offsets")
	t.Offsets = make([]uint32, len(raw)/4)
	for i := range t.Offsets {
		t.Offsets[i] = binary.LittleEndian.Uint32(raw[4*i:])
	}
	raw = section(secLengths, "name lengths")
	t.Lengths = make([]uint16, len(raw)/2)
	for i := range t.Lengths {
		t.Lengths[i] = binary.LittleEndian.Uint16(raw[2*i:])
	}
	t.Dict = section(secDict, "name dictionary")
	t.Data = section(secData, "name data")
	if r.err != nil {
		return r.err
	}
	t.Dict = t.Dict[:len(t.Dict)&^1]
	if err := decodeStrings(t); err != nil {
		return err
	}

	r.seek(metaStart+uint64(t.FileHeadersOffset), "file headers")
	a.Entries = make([]bfstype.Entry, 0, count)
	t.EntryIDs = make([][2]uint16, 0, count)
	for i := range int(count) {
		flags := r.u8("flags")
		var narrow, wide int
		if l.narrowCopies {
			narrow = int(r.u8("copies"))
		} else {
			r.take(1, "padding")
		}
		if l.wideCopies {
			wide = int(r.u16("wide copies"))
		} else {
			r.take(2, "padding")
		}
		off := r.u32("data offset")
		size := r.u32("size")
		packed := r.u32("compressed size")
		crc := r.u32("crc")
		folder := r.u16("folder id")
		file := r.u16("file id")
		mirrors := readMirrors(r, narrow+wide)
		if r.err != nil {
			return fmt.Errorf("entry %d: %w", i, r.err)
		}
		if int(folder) >= len(t.Strings) || int(file) >= len(t.Strings) {
			return fmt.Errorf("%w: entry %d name ids %d/%d outside table of %d names",
				bfstype.ErrMalformedHeader, i, folder, file, len(t.Strings))
		}
		e := newEntry(l, i, flags, off, size, packed)
		e.Name = t.Strings[folder] + "/" + t.Strings[file]
		e.CRC32 = crc
		e.HasCRC = l.hasCRC(flags)
		e.Mirrors = mirrors
		e.MirrorsWide = wide
		a.Entries = append(a.Entries, e)
		t.EntryIDs = append(t.EntryIDs, [2]uint16{folder, file})
	}
	a.HeaderEnd = uint64(headerEnd)
	a.Names = t
	return nil
}

// names returns the retained table when it still fits the entries, or a
// freshly built one.
func (bfs1Hashed) names(a *bfstype.Archive) (*bfstype.NameTable, error) {
	if reusable(a.Names, a.Entries) {
		return a.Names, nil
	}
	return buildNameTable(a.Entries)
}

// nameTableStart is the absolute offset of the metadata header written by
// this package.
func nameTableStart() uint64 {
	return bfs1HashedHeader + 8*hashSize
}

func (s bfs1Hashed) headerLen(_ *layout, a *bfstype.Archive) (uint64, error) {
	t, err := s.names(a)
	if err != nil {
		return 0, err
	}
	n := nameTableStart() + uint64(t.FileHeadersOffset)
	for i := range a.Entries {
		n += bfs1HashedFileHeader + 4*uint64(len(a.Entries[i].Mirrors))
	}
	return n, nil
}

func (s bfs1Hashed) writeHeaders(l *layout, a *bfstype.Archive) ([]byte, error) {
	t, err := s.names(a)
	if err != nil {
		return nil, err
	}
	start, runs, err := bucketRuns(a.Entries)
	if err != nil {
		return nil, err
	}
	count, err := sizing.Field32(uint64(len(a.Entries)), "file count", bfstype.ErrEntryOverflow)
	if err != nil {
		return nil, err
	}

	// Absolute offset of every file header.
	at := make([]uint64, len(a.Entries)+1)
	at[0] = nameTableStart() + uint64(t.FileHeadersOffset)
	for i := range a.Entries {
		at[i+1] = at[i] + bfs1HashedFileHeader + 4*uint64(len(a.Entries[i].Mirrors))
	}
	headerEnd, err := sizing.Field32(at[len(a.Entries)], "header end", bfstype.ErrEntryOverflow)
	if err != nil {
		return nil, err
	}

	w := newWriter(int(headerEnd))
	w.u32(l.magic)
	w.u32(l.version)
	w.u32(headerEnd)
	w.u32(count)
	w.u32(hashSize)
	for b := range hashSize {
		if runs[b] == 0 {
			w.u32(0)
			w.u32(0)
			continue
		}
		w.u32(uint32(at[start[b]])) //nolint:gosec // below headerEnd
		w.u32(uint32(runs[b]))      //nolint:gosec // below count
	}

	w.u32(t.FileHeadersOffset)
	w.u32(t.OffsetsOffset)
	w.u32(t.LengthsOffset)
	w.u32(t.DictOffset)
	w.u32(t.DataOffset)
	w.zeros(int(t.FileHeadersOffset) - metaHeaderSize)
	base := int(nameTableStart())
	for i, off := range t.Offsets {
		w.putU32(base+int(t.OffsetsOffset)+4*i, off)
	}
	for i, n := range t.Lengths {
		binary.LittleEndian.PutUint16(w.buf[base+int(t.LengthsOffset)+2*i:], n)
	}
	copy(w.buf[base+int(t.DictOffset):], t.Dict)
	copy(w.buf[base+int(t.DataOffset):], t.Data)

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
		narrow, wide, err := copyCounts(l, i, e)
		if err != nil {
			return nil, err
		}
		w.u8(flags)
		w.u8(narrow)
		w.u16(wide)
		w.u32(sz.offset)
		w.u32(sz.size)
		w.u32(sz.packed)
		w.u32(e.CRC32)
		w.u16(t.EntryIDs[i][0])
		w.u16(t.EntryIDs[i][1])
		if err := writeMirrors(w, i, e); err != nil {
			return nil, err
		}
	}
	return w.buf, nil
}
