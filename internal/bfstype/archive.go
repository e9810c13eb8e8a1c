package bfstype

// Archive is the in-memory model of one container.
type Archive struct {
	Revision Revision

	// Version is the raw on-disk version word.
	Version uint32

	// Size is the physical byte size of the container.
	Size uint64

	// HeaderEnd is the exclusive end of the header region.
	HeaderEnd uint64

	Entries []Entry

	// Names is the decoded name table of revisions that store names in a
	// shared Huffman-coded table. It is nil for other revisions and for
	// archives built from scratch.
	Names *NameTable
}

// HeaderSize returns the zero-based offset of the last header byte.
func (a *Archive) HeaderSize() uint64 {
	if a.HeaderEnd == 0 {
		return 0
	}
	return a.HeaderEnd - 1
}

// NameTable is a Huffman-coded string table kept verbatim so that a parsed
// archive serializes back to the same bytes.
type NameTable struct {
	// Section offsets relative to the metadata header, in on-disk field order.
	FileHeadersOffset uint32
	OffsetsOffset     uint32
	LengthsOffset     uint32
	DictOffset        uint32
	DataOffset        uint32

	Offsets []uint32
	Lengths []uint16
	Dict    []byte
	Data    []byte

	// Strings is the decoded table. Index is the on-disk string ID.
	Strings []string

	// EntryIDs holds the folder and file string IDs of each entry in header
	// order, as read from disk.
	EntryIDs [][2]uint16
}
