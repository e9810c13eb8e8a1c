// Package cipher implements the XOR stream cipher used by bzf2001 archives.
//
// The cipher is symmetric: Encrypt and Decrypt apply the same keystream and
// output length always equals input length. There is no authentication, so a
// wrong key produces garbage that is only caught by header validation.
package cipher

import (
	"encoding/binary"
	"fmt"

	"github.com/meigma/bfstool/internal/bfstype"
)

// ProfileBzf2001 is the key ring profile consulted for bzf2001 archives.
const ProfileBzf2001 = "bzf2001"

const (
	// KeySize is the length of a bzf2001 key.
	KeySize = 256

	headerSize     = 0xC
	fileHeaderSize = 0x35
	countOffset    = 8
	dataOffsetPos  = 1
)

// Key is secret key material. Its formatting verbs never reveal the bytes.
type Key []byte

// String redacts the key.
func (k Key) String() string {
	return fmt.Sprintf("Key(%d bytes, redacted)", len(k))
}

// GoString redacts the key.
func (k Key) GoString() string {
	return k.String()
}

// KeyRing maps cipher profile names to key material. A nil KeyRing is empty.
type KeyRing map[string]Key

// Key returns the key for profile.
func (r KeyRing) Key(profile string) (Key, bool) {
	if r == nil {
		return nil, false
	}
	k, ok := r[profile]
	return k, ok && len(k) > 0
}

// Required reports whether archives of rev pass through the cipher.
func Required(rev bfstype.Revision) bool {
	return rev.Encrypted()
}

// Decrypt returns the plaintext of a bzf2001 archive. data is not modified.
func Decrypt(data []byte, keys KeyRing) ([]byte, error) {
	key, err := bzf2001Key(keys)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	copy(out, data)
	headersEnd := xorHeaders(out, key)
	// Reset points come from the now decrypted file headers.
	xorBody(out, key, headersEnd, resetOffsets(out, headersEnd))
	return out, nil
}

// Encrypt returns the ciphertext of a plaintext bzf2001 archive. data is not
// modified.
func Encrypt(data []byte, keys KeyRing) ([]byte, error) {
	key, err := bzf2001Key(keys)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	copy(out, data)
	headersEnd := headerRegionEnd(data)
	// Reset points come from the plaintext file headers before they are
	// enciphered.
	resets := resetOffsets(data, headersEnd)
	xorHeaders(out, key)
	xorBody(out, key, headersEnd, resets)
	return out, nil
}

func bzf2001Key(keys KeyRing) (Key, error) {
	key, ok := keys.Key(ProfileBzf2001)
	if !ok {
		return nil, fmt.Errorf("%w: profile %s", bfstype.ErrMissingKey, ProfileBzf2001)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: profile %s needs a %d byte key, got %d bytes",
			bfstype.ErrMissingKey, ProfileBzf2001, KeySize, len(key))
	}
	return key, nil
}

// headerRegionEnd returns the end of the file header region, clamped to the
// input length.
func headerRegionEnd(data []byte) int {
	if len(data) < headerSize {
		return len(data)
	}
	count := uint64(binary.LittleEndian.Uint32(data[countOffset:]))
	end := uint64(headerSize) + count*fileHeaderSize
	if end > uint64(len(data)) {
		return len(data)
	}
	return int(end)
}

// xorHeaders enciphers the file header region in place and returns its end.
func xorHeaders(data []byte, key Key) int {
	end := headerRegionEnd(data)
	for i := headerSize; i < end; i++ {
		data[i] ^= key[(i-headerSize)%KeySize]
	}
	return end
}

// resetOffsets reads the data offset of every complete plaintext file header.
func resetOffsets(plain []byte, headersEnd int) []uint64 {
	if headersEnd <= headerSize {
		return nil
	}
	n := (headersEnd - headerSize) / fileHeaderSize
	offsets := make([]uint64, 0, n)
	for i := range n {
		pos := headerSize + i*fileHeaderSize + dataOffsetPos
		offsets = append(offsets, uint64(binary.LittleEndian.Uint32(plain[pos:])))
	}
	return offsets
}

// xorBody enciphers everything after the headers in place. The key index
// wraps at KeySize and returns to zero whenever the position reaches the
// next file's data offset, taken in header order starting with the second.
func xorBody(data []byte, key Key, start int, resets []uint64) {
	keyPos := 0
	next := 1
	for p := start; p < len(data); p++ {
		data[p] ^= key[keyPos]
		keyPos++
		if keyPos == KeySize {
			keyPos = 0
		}
		if next < len(resets) && uint64(p+1) == resets[next] {
			next++
			keyPos = 0
		}
	}
}
