// Package bfstype defines shared types used across the bfstool package and its
// internal packages. This avoids circular imports between bfstool and the codec.
package bfstype

import "fmt"

// Method identifies the encoding of an entry's stored bytes.
type Method uint8

const (
	MethodStore Method = iota
	MethodZlib
	MethodZstd
	// MethodUnknown marks a flag combination this package cannot decode.
	// The raw flag byte is kept on the entry.
	MethodUnknown
)

// String returns the human-readable name of the method.
func (m Method) String() string {
	switch m {
	case MethodStore:
		return "store"
	case MethodZlib:
		return "zlib"
	case MethodZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// ParseMethod converts a method name back to a Method.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "store", "none":
		return MethodStore, nil
	case "zlib":
		return MethodZlib, nil
	case "zstd":
		return MethodZstd, nil
	default:
		return MethodUnknown, fmt.Errorf("%w: %q", ErrUnsupportedMethod, s)
	}
}
