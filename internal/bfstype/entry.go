package bfstype

import "hash/crc32"

// CopyDescriptor relates entries that share one stored payload.
//
// Primary is the index of the entry that owns the payload; for the owner
// itself Primary equals its own index. Count is the number of other entries
// sharing the owner's payload and is zero on non-owners.
type CopyDescriptor struct {
	Primary int
	Count   int
}

// IsDuplicate reports whether the entry at index i reuses another entry's payload.
func (c CopyDescriptor) IsDuplicate(i int) bool {
	return c.Primary != i
}

// Entry is one file record in an archive's header table.
type Entry struct {
	// Name is the archive-relative path. Some revisions allow it to be empty.
	Name string

	// Method is the encoding of Payload.
	Method Method

	// Flags is the raw on-disk flag byte. Bits this package does not
	// interpret are written back unchanged.
	Flags uint8

	// Size is the decoded size in bytes.
	Size uint64

	// CompressedSize is the stored size in bytes.
	CompressedSize uint64

	// Offset is the absolute position of the stored bytes in the archive.
	Offset uint64

	// CRC32 is the CRC-32/JAMCRC checksum, valid when HasCRC is set. Bzf2 and
	// revision A sum the stored bytes; revisions B and C sum the decoded bytes.
	CRC32  uint32
	HasCRC bool

	// Copy relates this entry to others sharing the same payload.
	Copy CopyDescriptor

	// Mirrors holds the offsets of additional on-disk copies of the payload.
	Mirrors []uint64

	// MirrorsWide counts mirrors carried in the wide copy field of revisions
	// that have two copy counters. It is informational for listing.
	MirrorsWide int

	// Payload is the stored bytes. After parsing it aliases the input buffer.
	Payload []byte
}

// End returns the exclusive end offset of the stored bytes.
func (e *Entry) End() uint64 {
	return e.Offset + e.CompressedSize
}

// Checksum returns the CRC-32/JAMCRC of b, the form CRC fields are stored in.
func Checksum(b []byte) uint32 {
	return ^crc32.ChecksumIEEE(b)
}
