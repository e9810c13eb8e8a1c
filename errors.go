package bfstool

import (
	"github.com/meigma/bfstool/internal/bfstype"
	"github.com/meigma/bfstool/internal/filter"
	"github.com/meigma/bfstool/internal/identify"
	"github.com/meigma/bfstool/internal/keys"
)

// Errors re-exported from the shared model.
var (
	// ErrMalformedHeader is returned when a length or offset field is
	// inconsistent with the input.
	ErrMalformedHeader = bfstype.ErrMalformedHeader

	// ErrUnsupportedRevision is returned when no codec exists for a revision
	// or a revision cannot be determined.
	ErrUnsupportedRevision = bfstype.ErrUnsupportedRevision

	// ErrDecompression is returned when a payload stream is corrupt.
	ErrDecompression = bfstype.ErrDecompression

	// ErrSizeMismatch is returned when decoded bytes disagree with the
	// recorded size.
	ErrSizeMismatch = bfstype.ErrSizeMismatch

	// ErrMissingKey is returned when an encrypted revision has no usable key.
	ErrMissingKey = bfstype.ErrMissingKey

	// ErrEntryOverflow is returned when a value does not fit its on-disk field.
	ErrEntryOverflow = bfstype.ErrEntryOverflow

	// ErrUnsupportedMethod is returned when a revision cannot tag a method.
	ErrUnsupportedMethod = bfstype.ErrUnsupportedMethod

	// ErrInvalidName is returned when a revision cannot store an entry name.
	ErrInvalidName = bfstype.ErrInvalidName

	// ErrChecksumMismatch is returned when bytes disagree with a stored CRC.
	ErrChecksumMismatch = bfstype.ErrChecksumMismatch

	// ErrUnsafePath is returned when an entry name would escape the
	// extraction root.
	ErrUnsafePath = bfstype.ErrUnsafePath
)

// Errors re-exported from supporting packages.
var (
	// ErrInvalidRule is returned for malformed filter or copy rule lines.
	ErrInvalidRule = filter.ErrInvalidRule

	// ErrInvalidDatabase is returned for malformed known-file databases.
	ErrInvalidDatabase = identify.ErrInvalidDatabase

	// ErrInvalidKeyFile is returned for malformed key files.
	ErrInvalidKeyFile = keys.ErrInvalidKeyFile
)
