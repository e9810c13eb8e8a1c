package codec

import (
	"fmt"

	"github.com/meigma/bfstool/internal/bfstype"
	"github.com/meigma/bfstool/internal/sizing"
)

// sizes are the 32-bit payload fields every file header carries.
type sizes struct {
	offset, size, packed uint32
}

func narrowSizes(i int, e *bfstype.Entry) (sizes, error) {
	var s sizes
	var err error
	if s.offset, err = sizing.Field32(e.Offset, "offset", bfstype.ErrEntryOverflow); err != nil {
		return s, fmt.Errorf("entry %d (%q): %w", i, e.Name, err)
	}
	if s.size, err = sizing.Field32(e.Size, "size", bfstype.ErrEntryOverflow); err != nil {
		return s, fmt.Errorf("entry %d (%q): %w", i, e.Name, err)
	}
	if s.packed, err = sizing.Field32(e.CompressedSize, "compressed size", bfstype.ErrEntryOverflow); err != nil {
		return s, fmt.Errorf("entry %d (%q): %w", i, e.Name, err)
	}
	return s, nil
}

func entryFlags(l *layout, i int, e *bfstype.Entry) (uint8, error) {
	f, err := l.flags(e)
	if err != nil {
		return 0, fmt.Errorf("%w: entry %d (%q) cannot be tagged %s in %s",
			err, i, e.Name, e.Method, l.rev)
	}
	return f, nil
}

// copyCounts splits an entry's mirrors over the narrow and wide counters.
func copyCounts(l *layout, i int, e *bfstype.Entry) (narrow uint8, wide uint16, err error) {
	total := len(e.Mirrors)
	w := 0
	if l.wideCopies {
		w = e.MirrorsWide
	}
	if w < 0 || w > total {
		return 0, 0, fmt.Errorf("%w: entry %d (%q) has %d wide mirrors of %d",
			bfstype.ErrEntryOverflow, i, e.Name, w, total)
	}
	if narrow, err = sizing.Field8(uint64(total-w), "mirror count", bfstype.ErrEntryOverflow); err != nil {
		return 0, 0, fmt.Errorf("entry %d (%q): %w", i, e.Name, err)
	}
	if wide, err = sizing.Field16(uint64(w), "wide mirror count", bfstype.ErrEntryOverflow); err != nil {
		return 0, 0, fmt.Errorf("entry %d (%q): %w", i, e.Name, err)
	}
	return narrow, wide, nil
}

func writeMirrors(w *writer, i int, e *bfstype.Entry) error {
	for _, m := range e.Mirrors {
		v, err := sizing.Field32(m, "mirror offset", bfstype.ErrEntryOverflow)
		if err != nil {
			return fmt.Errorf("entry %d (%q): %w", i, e.Name, err)
		}
		w.u32(v)
	}
	return nil
}

func readMirrors(r *reader, n int) []uint64 {
	if n == 0 {
		return nil
	}
	out := make([]uint64, 0, n)
	for range n {
		out = append(out, uint64(r.u32("mirror offset")))
	}
	return out
}

// checkCount rejects entry counts the input cannot possibly hold.
func checkCount(r *reader, count uint32, minHeader int) error {
	if uint64(count)*uint64(minHeader) > uint64(len(r.data)) {
		return fmt.Errorf("%w: %d entries of at least %d bytes exceed input of %d bytes",
			bfstype.ErrMalformedHeader, count, minHeader, len(r.data))
	}
	return nil
}

func newEntry(l *layout, i int, flags uint8, off, size, packed uint32) bfstype.Entry {
	return bfstype.Entry{
		Method:         l.method(flags),
		Flags:          flags,
		Size:           uint64(size),
		CompressedSize: uint64(packed),
		Offset:         uint64(off),
		Copy:           bfstype.CopyDescriptor{Primary: i},
	}
}

// bucketRuns returns, for every bucket, the first entry index and the
// number of entries. Entries of one bucket must be adjacent.
func bucketRuns(entries []bfstype.Entry) (start, count [hashSize]int, err error) {
	prev := -1
	for i := range entries {
		b := int(bucket(entries[i].Name))
		if b != prev {
			if count[b] > 0 {
				return start, count, fmt.Errorf("%w: entry %d (%q) is not adjacent to the rest of name bucket %d",
					bfstype.ErrMalformedHeader, i, entries[i].Name, b)
			}
			start[b] = i
			prev = b
		}
		count[b]++
	}
	return start, count, nil
}
