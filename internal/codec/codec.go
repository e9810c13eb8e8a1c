// Package codec reads and writes the header tables of every supported
// container revision.
//
// Each revision is a strategy selected once by [ForRevision]. Parsing maps
// the input into a [bfstype.Archive] whose payloads alias the input buffer;
// serializing rebuilds the container byte for byte from the archive model.
package codec

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/meigma/bfstool/internal/bfstype"
	"github.com/meigma/bfstool/internal/sizing"
)

// ParseOptions configures parsing.
type ParseOptions struct {
	// Force skips the magic, version, and hash size checks.
	Force bool
}

// PlaceOptions configures payload placement for freshly built archives.
type PlaceOptions struct {
	// Alignment rounds every payload offset up to a multiple of this value.
	// Values below 2 pack payloads back to back.
	Alignment uint64
}

// Traits describes revision properties callers need outside the codec.
type Traits struct {
	// CRC reports whether file headers carry a CRC field.
	CRC bool

	// CRCOfDecoded reports whether the CRC covers decoded rather than stored bytes.
	CRCOfDecoded bool

	// CRCOnCreate reports whether newly created entries should carry a CRC.
	CRCOnCreate bool

	// Copies reports whether file headers store mirror offsets.
	Copies bool

	// Zstd reports whether the revision can tag zstd payloads.
	Zstd bool

	// MaxNameLen is the fixed name field width, or zero when names are
	// variable length.
	MaxNameLen int
}

// Codec reads and writes one container revision.
type Codec interface {
	// Revision returns the revision this codec handles.
	Revision() bfstype.Revision

	// Traits returns the revision's properties.
	Traits() Traits

	// Parse decodes a whole container held in memory.
	Parse(data []byte, opts ParseOptions) (*bfstype.Archive, error)

	// Serialize emits the container for a. Gaps between payloads and the
	// tail up to a.Size are zero.
	Serialize(a *bfstype.Archive) ([]byte, error)

	// Place assigns header end, payload offsets, and mirror offsets for an
	// archive built from scratch. Hashed revisions reorder entries by name
	// bucket first.
	Place(a *bfstype.Archive, opts PlaceOptions) error
}

// strategy is the per-revision part of a codec.
type strategy interface {
	// parseHeaders reads everything after magic and version. It fills
	// HeaderEnd, Entries without payloads, and Names.
	parseHeaders(r *reader, l *layout, a *bfstype.Archive, opts ParseOptions) error

	// headerLen returns the exclusive end of the header region for a.
	headerLen(l *layout, a *bfstype.Archive) (uint64, error)

	// writeHeaders emits the header region for a, magic and version included.
	writeHeaders(l *layout, a *bfstype.Archive) ([]byte, error)
}

type codec struct {
	lay   *layout
	strat strategy
}

// ForRevision returns the codec for rev.
func ForRevision(rev bfstype.Revision) (Codec, error) {
	lay, ok := layouts[rev]
	if !ok {
		return nil, fmt.Errorf("%w: %s", bfstype.ErrUnsupportedRevision, rev)
	}
	var strat strategy
	switch rev {
	case bfstype.Bzf2001:
		strat = bzf2001{}
	case bfstype.Bzf2:
		strat = bzf2{}
	case bfstype.Bfs1RevisionA:
		strat = bfs1a{}
	case bfstype.Bfs1RevisionB, bfstype.Bfs1RevisionC:
		strat = bfs1Hashed{}
	default:
		return nil, fmt.Errorf("%w: %s", bfstype.ErrUnsupportedRevision, rev)
	}
	return &codec{lay: lay, strat: strat}, nil
}

// Parse decodes data as revision rev.
func Parse(data []byte, rev bfstype.Revision, opts ParseOptions) (*bfstype.Archive, error) {
	c, err := ForRevision(rev)
	if err != nil {
		return nil, err
	}
	return c.Parse(data, opts)
}

// Serialize emits a using the codec for its revision.
func Serialize(a *bfstype.Archive) ([]byte, error) {
	c, err := ForRevision(a.Revision)
	if err != nil {
		return nil, err
	}
	return c.Serialize(a)
}

// Place assigns offsets in a using the codec for its revision.
func Place(a *bfstype.Archive, opts PlaceOptions) error {
	c, err := ForRevision(a.Revision)
	if err != nil {
		return err
	}
	return c.Place(a, opts)
}

func (c *codec) Revision() bfstype.Revision {
	return c.lay.rev
}

func (c *codec) Traits() Traits {
	return Traits{
		CRC:          c.lay.crc,
		CRCOfDecoded: c.lay.crcOfDecoded,
		CRCOnCreate:  c.lay.crcOnCreate,
		Copies:       c.lay.hasCopies(),
		Zstd:         c.lay.zstd,
		MaxNameLen:   c.lay.nameField,
	}
}

func (c *codec) Parse(data []byte, opts ParseOptions) (*bfstype.Archive, error) {
	a := &bfstype.Archive{
		Revision: c.lay.rev,
		Size:     uint64(len(data)),
	}

	r := newReader(data)
	magic := r.u32("magic")
	a.Version = r.u32("version")
	if r.err != nil {
		return nil, r.err
	}
	if !opts.Force {
		if magic != c.lay.magic {
			return nil, fmt.Errorf("%w: magic %#08x, want %#08x for %s",
				bfstype.ErrMalformedHeader, magic, c.lay.magic, c.lay.rev)
		}
		if a.Version != c.lay.version {
			return nil, fmt.Errorf("%w: version %#08x, want %#08x for %s",
				bfstype.ErrMalformedHeader, a.Version, c.lay.version, c.lay.rev)
		}
	}

	if err := c.strat.parseHeaders(r, c.lay, a, opts); err != nil {
		return nil, err
	}
	if err := checkHeaderEnd(a, uint64(r.high)); err != nil {
		return nil, err
	}
	if err := attachPayloads(data, a); err != nil {
		return nil, err
	}
	deriveCopies(a)
	return a, nil
}

func (c *codec) Serialize(a *bfstype.Archive) ([]byte, error) {
	if a.Revision != c.lay.rev {
		return nil, fmt.Errorf("%w: archive is %s, codec handles %s",
			bfstype.ErrUnsupportedRevision, a.Revision, c.lay.rev)
	}
	hdr, err := c.strat.writeHeaders(c.lay, a)
	if err != nil {
		return nil, err
	}
	return buildBody(c.lay, a, hdr)
}

func (c *codec) Place(a *bfstype.Archive, opts PlaceOptions) error {
	if a.Revision != c.lay.rev {
		return fmt.Errorf("%w: archive is %s, codec handles %s",
			bfstype.ErrUnsupportedRevision, a.Revision, c.lay.rev)
	}
	if err := checkPrimaries(a); err != nil {
		return err
	}
	if !c.lay.hasCopies() {
		for i := range a.Entries {
			a.Entries[i].Mirrors = nil
			a.Entries[i].MirrorsWide = 0
		}
	}
	if c.lay.hashed {
		groupByBucket(a)
	}

	end, err := c.strat.headerLen(c.lay, a)
	if err != nil {
		return err
	}
	pos := sizing.Align(end, 4)

	advance := func(i int, n uint64) error {
		next, ok := sizing.AddUint64(pos, n)
		if !ok {
			return fmt.Errorf("%w: entry %d placement overflows", bfstype.ErrEntryOverflow, i)
		}
		pos = next
		return nil
	}

	for i := range a.Entries {
		e := &a.Entries[i]
		if e.Copy.IsDuplicate(i) {
			continue
		}
		pos = sizing.Align(pos, opts.Alignment)
		e.Offset = pos
		if err := advance(i, e.CompressedSize); err != nil {
			return err
		}
		for m := range e.Mirrors {
			e.Mirrors[m] = pos
			if err := advance(i, e.CompressedSize); err != nil {
				return err
			}
		}
	}
	for i := range a.Entries {
		e := &a.Entries[i]
		if !e.Copy.IsDuplicate(i) {
			continue
		}
		p := &a.Entries[e.Copy.Primary]
		e.Offset = p.Offset
		e.Mirrors = slices.Clone(p.Mirrors)
		e.MirrorsWide = p.MirrorsWide
	}

	a.HeaderEnd = end
	a.Size = max(pos, end)
	return nil
}

// checkHeaderEnd rejects a recorded header end that lies past the input or
// before the last header byte actually read.
func checkHeaderEnd(a *bfstype.Archive, read uint64) error {
	if a.HeaderEnd > a.Size {
		return fmt.Errorf("%w: header end %#x is past end of input (%d bytes)",
			bfstype.ErrMalformedHeader, a.HeaderEnd, a.Size)
	}
	if a.HeaderEnd < read {
		return fmt.Errorf("%w: header end %#x precedes headers ending at %#x",
			bfstype.ErrMalformedHeader, a.HeaderEnd, read)
	}
	return nil
}

// attachPayloads points every entry at its stored bytes inside data.
// Non-empty payloads and mirrors must lie between the header end and the
// end of data.
func attachPayloads(data []byte, a *bfstype.Archive) error {
	size := uint64(len(data))
	for i := range a.Entries {
		e := &a.Entries[i]
		if e.CompressedSize > 0 && e.Offset < a.HeaderEnd {
			return fmt.Errorf("%w: entry %d (%q) payload at %#x overlaps header region ending at %#x",
				bfstype.ErrMalformedHeader, i, e.Name, e.Offset, a.HeaderEnd)
		}
		end, ok := sizing.AddUint64(e.Offset, e.CompressedSize)
		if !ok || end > size {
			return fmt.Errorf("%w: entry %d (%q) payload at %#x+%d exceeds input of %d bytes",
				bfstype.ErrMalformedHeader, i, e.Name, e.Offset, e.CompressedSize, size)
		}
		e.Payload = data[e.Offset:end:end]
		for _, m := range e.Mirrors {
			if e.CompressedSize > 0 && m < a.HeaderEnd {
				return fmt.Errorf("%w: entry %d (%q) mirror at %#x overlaps header region ending at %#x",
					bfstype.ErrMalformedHeader, i, e.Name, m, a.HeaderEnd)
			}
			mend, ok := sizing.AddUint64(m, e.CompressedSize)
			if !ok || mend > size {
				return fmt.Errorf("%w: entry %d (%q) mirror at %#x+%d exceeds input of %d bytes",
					bfstype.ErrMalformedHeader, i, e.Name, m, e.CompressedSize, size)
			}
		}
	}
	return nil
}

// deriveCopies marks entries that share a stored payload. The first entry
// in header order owns it.
func deriveCopies(a *bfstype.Archive) {
	type span struct{ off, n uint64 }
	owners := make(map[span]int)
	for i := range a.Entries {
		e := &a.Entries[i]
		e.Copy = bfstype.CopyDescriptor{Primary: i}
		if e.CompressedSize == 0 {
			continue
		}
		key := span{e.Offset, e.CompressedSize}
		if p, ok := owners[key]; ok {
			e.Copy.Primary = p
			a.Entries[p].Copy.Count++
			continue
		}
		owners[key] = i
	}
}

func checkPrimaries(a *bfstype.Archive) error {
	for i := range a.Entries {
		p := a.Entries[i].Copy.Primary
		if p < 0 || p >= len(a.Entries) || a.Entries[p].Copy.IsDuplicate(p) {
			return fmt.Errorf("%w: entry %d refers to copy owner %d which is not a primary",
				bfstype.ErrMalformedHeader, i, p)
		}
	}
	return nil
}

// groupByBucket stably reorders entries by name bucket and rewrites copy
// descriptors so that each group's owner is its earliest member.
func groupByBucket(a *bfstype.Archive) {
	n := len(a.Entries)
	buckets := make([]uint32, n)
	order := make([]int, n)
	for i := range a.Entries {
		buckets[i] = bucket(a.Entries[i].Name)
		order[i] = i
	}
	slices.SortStableFunc(order, func(x, y int) int {
		return cmp.Compare(buckets[x], buckets[y])
	})

	newIndex := make([]int, n)
	for to, from := range order {
		newIndex[from] = to
	}
	entries := make([]bfstype.Entry, n)
	for to, from := range order {
		entries[to] = a.Entries[from]
		entries[to].Copy.Primary = newIndex[a.Entries[from].Copy.Primary]
	}

	// Re-elect owners: the first member of every group in the new order.
	owner := make(map[int]int)
	for i := range entries {
		group := entries[i].Copy.Primary
		if _, ok := owner[group]; !ok {
			owner[group] = i
		}
	}
	for i := range entries {
		entries[i].Copy = bfstype.CopyDescriptor{Primary: owner[entries[i].Copy.Primary]}
	}
	for i := range entries {
		if p := entries[i].Copy.Primary; p != i {
			entries[p].Copy.Count++
			if entries[p].Payload == nil {
				entries[p].Payload = entries[i].Payload
			}
		}
	}
	a.Entries = entries
}

// buildBody lays hdr and every payload into a buffer of the archive's size.
func buildBody(l *layout, a *bfstype.Archive, hdr []byte) ([]byte, error) {
	headerEnd := uint64(len(hdr))
	size := max(a.Size, headerEnd)

	payloads := make([][]byte, len(a.Entries))
	for i := range a.Entries {
		e := &a.Entries[i]
		payload := e.Payload
		if payload == nil && e.Copy.IsDuplicate(i) && e.Copy.Primary >= 0 && e.Copy.Primary < len(a.Entries) {
			payload = a.Entries[e.Copy.Primary].Payload
		}
		if uint64(len(payload)) != e.CompressedSize {
			return nil, fmt.Errorf("%w: entry %d (%q) holds %d stored bytes, header says %d",
				bfstype.ErrSizeMismatch, i, e.Name, len(payload), e.CompressedSize)
		}
		payloads[i] = payload
		if e.CompressedSize == 0 {
			continue
		}

		offsets := []uint64{e.Offset}
		if l.hasCopies() {
			offsets = append(offsets, e.Mirrors...)
		}
		for _, off := range offsets {
			if off < headerEnd {
				return nil, fmt.Errorf("%w: entry %d (%q) payload at %#x overlaps header region ending at %#x",
					bfstype.ErrMalformedHeader, i, e.Name, off, headerEnd)
			}
			end, ok := sizing.AddUint64(off, e.CompressedSize)
			if !ok {
				return nil, fmt.Errorf("%w: entry %d (%q) payload end", bfstype.ErrEntryOverflow, i, e.Name)
			}
			size = max(size, end)
		}
	}

	n, err := sizing.ToInt(size, bfstype.ErrEntryOverflow)
	if err != nil {
		return nil, fmt.Errorf("%w: archive size %d", err, size)
	}
	out := make([]byte, n)
	copy(out, hdr)
	for i := range a.Entries {
		e := &a.Entries[i]
		if e.CompressedSize == 0 {
			continue
		}
		copy(out[e.Offset:], payloads[i])
		if l.hasCopies() {
			for _, m := range e.Mirrors {
				copy(out[m:], payloads[i])
			}
		}
	}
	return out, nil
}
