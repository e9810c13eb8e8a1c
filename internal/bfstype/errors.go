package bfstype

import "errors"

// Sentinel errors for archive operations.
var (
	// ErrMalformedHeader is returned when a length or offset field is
	// inconsistent with the input.
	ErrMalformedHeader = errors.New("bfstool: malformed header")

	// ErrUnsupportedRevision is returned when no codec exists for a revision.
	ErrUnsupportedRevision = errors.New("bfstool: unsupported revision")

	// ErrDecompression is returned when a payload stream is corrupt.
	ErrDecompression = errors.New("bfstool: decompression failed")

	// ErrSizeMismatch is returned when decoded bytes disagree with the
	// recorded uncompressed size.
	ErrSizeMismatch = errors.New("bfstool: size mismatch")

	// ErrMissingKey is returned when a revision needs key material that was
	// not supplied.
	ErrMissingKey = errors.New("bfstool: missing key")

	// ErrEntryOverflow is returned when a value does not fit its fixed-width
	// on-disk field.
	ErrEntryOverflow = errors.New("bfstool: entry field overflow")

	// ErrUnsupportedMethod is returned when a revision cannot tag a method.
	ErrUnsupportedMethod = errors.New("bfstool: unsupported compression method")

	// ErrInvalidName is returned when an entry name cannot be stored by a revision.
	ErrInvalidName = errors.New("bfstool: invalid entry name")

	// ErrChecksumMismatch is returned when stored bytes disagree with the
	// recorded CRC.
	ErrChecksumMismatch = errors.New("bfstool: checksum mismatch")

	// ErrUnsafePath is returned when an entry name would escape the
	// extraction root.
	ErrUnsafePath = errors.New("bfstool: unsafe entry path")
)
