// Package sizing provides safe size arithmetic and conversions to prevent overflow.
package sizing

import (
	"fmt"
	"io"
	"math"
)

// ToInt converts a uint64 to int, returning overflowErr if it doesn't fit.
func ToInt(size uint64, overflowErr error) (int, error) {
	if size > uint64(math.MaxInt) {
		return 0, overflowErr
	}
	return int(size), nil
}

// AddUint64 adds two uint64 values, returning (result, false) on overflow.
func AddUint64(a, b uint64) (uint64, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}

// Align rounds n up to a multiple of to. Values of to below 2 return n.
func Align(n, to uint64) uint64 {
	if to < 2 {
		return n
	}
	if r := n % to; r != 0 {
		return n + to - r
	}
	return n
}

// Field32 narrows v to a 32-bit on-disk field, wrapping overflowErr with the
// field name when it does not fit.
func Field32(v uint64, field string, overflowErr error) (uint32, error) {
	if v > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %s %d exceeds 32 bits", overflowErr, field, v)
	}
	return uint32(v), nil
}

// Field16 narrows v to a 16-bit on-disk field.
func Field16(v uint64, field string, overflowErr error) (uint16, error) {
	if v > math.MaxUint16 {
		return 0, fmt.Errorf("%w: %s %d exceeds 16 bits", overflowErr, field, v)
	}
	return uint16(v), nil
}

// Field8 narrows v to an 8-bit on-disk field.
func Field8(v uint64, field string, overflowErr error) (uint8, error) {
	if v > math.MaxUint8 {
		return 0, fmt.Errorf("%w: %s %d exceeds 8 bits", overflowErr, field, v)
	}
	return uint8(v), nil
}

// ReadAllWithLimit reads up to maxSize bytes from r.
// Returns overflowErr if more than maxSize bytes are available.
func ReadAllWithLimit(r io.Reader, maxSize uint64, overflowErr error) ([]byte, error) {
	if maxSize > uint64(math.MaxInt-1) {
		return nil, overflowErr
	}
	limit := int64(maxSize) + 1 //nolint:gosec // checked above
	lr := &io.LimitedReader{R: r, N: limit}
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) > maxSize {
		return nil, overflowErr
	}
	return data, nil
}
