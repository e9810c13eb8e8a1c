package codec

import "github.com/meigma/bfstool/internal/bfstype"

// Flag bits shared by every revision that stores a flag byte.
const (
	flagCompressed uint8 = 0x01
	flagCRC        uint8 = 0x04
	flagZstd       uint8 = 0x08
)

// hashSize is the bucket count of the name hash table.
const hashSize = 0x3E5

// layout describes the fixed-width fields of one revision. Every revision is
// little-endian.
type layout struct {
	rev     bfstype.Revision
	magic   uint32
	version uint32

	// nameField is the width of a fixed, NUL-padded name field. Zero means
	// names are length-prefixed or stored in a name table.
	nameField int

	// hashed reports whether headers are grouped by name-hash bucket.
	hashed bool

	// crc reports whether file headers carry a CRC field and honor flagCRC.
	crc bool

	// crcOfDecoded reports whether the CRC covers decoded bytes rather than
	// stored bytes.
	crcOfDecoded bool

	// crcOnCreate reports whether freshly created entries get a CRC.
	crcOnCreate bool

	// narrowCopies and wideCopies report which mirror counters the file
	// header carries: a u8 at byte 1 and a u16 at bytes 2-3.
	narrowCopies bool
	wideCopies   bool

	// zstd reports whether flagZstd selects zstd for compressed entries.
	zstd bool
}

var layouts = map[bfstype.Revision]*layout{
	bfstype.Bzf2001: {
		rev:       bfstype.Bzf2001,
		magic:     0x667A6262, // "bbzf"
		version:   0x06062001,
		nameField: 0x28,
	},
	bfstype.Bzf2: {
		rev:         bfstype.Bzf2,
		magic:       0x32667A62, // "bzf2"
		version:     0x20021011,
		crc:         true,
		crcOnCreate: true,
	},
	bfstype.Bfs1RevisionA: {
		rev:          bfstype.Bfs1RevisionA,
		hashed:       true,
		magic:        0x31736662, // "bfs1"
		version:      0x20040505,
		crc:          true,
		crcOnCreate:  true,
		narrowCopies: true,
	},
	bfstype.Bfs1RevisionB: {
		rev:          bfstype.Bfs1RevisionB,
		hashed:       true,
		magic:        0x31736662,
		version:      0x20040505,
		crc:          true,
		crcOfDecoded: true,
		crcOnCreate:  true,
		narrowCopies: true,
		wideCopies:   true,
		zstd:         true,
	},
	bfstype.Bfs1RevisionC: {
		rev:          bfstype.Bfs1RevisionC,
		hashed:       true,
		magic:        0x31736662,
		version:      0x20070310,
		crc:          true,
		crcOfDecoded: true,
		narrowCopies: true,
		wideCopies:   true,
		zstd:         true,
	},
}

// hasCopies reports whether the revision stores mirror offsets.
func (l *layout) hasCopies() bool {
	return l.narrowCopies || l.wideCopies
}

// method maps a raw flag byte to a compression method.
func (l *layout) method(flags uint8) bfstype.Method {
	zstd := l.zstd && flags&flagZstd != 0
	switch {
	case flags&flagCompressed == 0 && zstd:
		return bfstype.MethodUnknown
	case flags&flagCompressed == 0:
		return bfstype.MethodStore
	case zstd:
		return bfstype.MethodZstd
	default:
		return bfstype.MethodZlib
	}
}

// hasCRC reports whether a raw flag byte marks the CRC field as valid.
func (l *layout) hasCRC(flags uint8) bool {
	return l.crc && flags&flagCRC != 0
}

// flags computes the on-disk flag byte for e. Bits the layout does not
// interpret are carried over from e.Flags.
func (l *layout) flags(e *bfstype.Entry) (uint8, error) {
	if e.Method == bfstype.MethodUnknown {
		return e.Flags, nil
	}

	known := flagCompressed
	if l.crc {
		known |= flagCRC
	}
	if l.zstd {
		known |= flagZstd
	}
	f := e.Flags &^ known

	switch e.Method {
	case bfstype.MethodStore:
	case bfstype.MethodZlib:
		f |= flagCompressed
	case bfstype.MethodZstd:
		if !l.zstd {
			return 0, bfstype.ErrUnsupportedMethod
		}
		f |= flagCompressed | flagZstd
	default:
		return 0, bfstype.ErrUnsupportedMethod
	}
	if l.crc && e.HasCRC {
		f |= flagCRC
	}
	return f, nil
}
