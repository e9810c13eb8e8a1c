package cipher

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/bfstool/internal/bfstype"
)

func testKeys() KeyRing {
	key := make(Key, KeySize)
	for i := range key {
		key[i] = byte(i*7 + 3)
	}
	return KeyRing{ProfileBzf2001: key}
}

// plainArchive builds a plaintext bzf2001 layout with files at the given
// data offsets and a body of bodyLen bytes.
func plainArchive(offsets []uint32, bodyLen int) []byte {
	headers := headerSize + len(offsets)*fileHeaderSize
	data := make([]byte, headers+bodyLen)
	binary.LittleEndian.PutUint32(data[0:], 0x667a6262)
	binary.LittleEndian.PutUint32(data[4:], 0x06062001)
	binary.LittleEndian.PutUint32(data[8:], uint32(len(offsets))) //nolint:gosec // test
	for i, off := range offsets {
		base := headerSize + i*fileHeaderSize
		data[base] = 0x01
		binary.LittleEndian.PutUint32(data[base+1:], off)
		copy(data[base+13:], fmt.Sprintf("file%d.txt", i))
	}
	for i := headers; i < len(data); i++ {
		data[i] = byte(i)
	}
	return data
}

func TestRoundTripArbitraryLengths(t *testing.T) {
	t.Parallel()

	keys := testKeys()
	r := rand.New(rand.NewPCG(1, 2)) //nolint:gosec // test data
	for _, n := range []int{0, 1, 11, 12, 13, 64, 0x35 + 12, 1000, 70000} {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(r.Uint32())
		}
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			t.Parallel()
			orig := bytes.Clone(data)

			enc, err := Encrypt(data, keys)
			require.NoError(t, err)
			assert.Len(t, enc, n)
			assert.Equal(t, orig, data, "input must not be modified")

			dec, err := Decrypt(enc, keys)
			require.NoError(t, err)
			assert.Equal(t, orig, dec)
		})
	}
}

func TestRoundTripArchiveLayout(t *testing.T) {
	t.Parallel()

	keys := testKeys()
	plain := plainArchive([]uint32{0xAB, 0x100, 0x300}, 0x400)
	enc, err := Encrypt(plain, keys)
	require.NoError(t, err)

	// The fixed header is never enciphered.
	assert.Equal(t, plain[:headerSize], enc[:headerSize])
	// The file header region uses the key from index zero.
	key := keys[ProfileBzf2001]
	assert.Equal(t, plain[headerSize]^key[0], enc[headerSize])
	// The keystream restarts at the second file's data offset.
	assert.Equal(t, plain[0x100]^key[0], enc[0x100])
	assert.Equal(t, plain[0x101]^key[1], enc[0x101])
	assert.Equal(t, plain[0x300]^key[0], enc[0x300])

	dec, err := Decrypt(enc, keys)
	require.NoError(t, err)
	assert.Equal(t, plain, dec)
}

func TestKeystreamWraps(t *testing.T) {
	t.Parallel()

	keys := testKeys()
	key := keys[ProfileBzf2001]
	plain := plainArchive([]uint32{0x41}, 600)
	enc, err := Encrypt(plain, keys)
	require.NoError(t, err)

	start := headerSize + fileHeaderSize
	assert.Equal(t, plain[start]^key[0], enc[start])
	assert.Equal(t, plain[start+KeySize]^key[0], enc[start+KeySize])
	assert.Equal(t, plain[start+KeySize+5]^key[5], enc[start+KeySize+5])
}

func TestMissingKey(t *testing.T) {
	t.Parallel()

	data := plainArchive([]uint32{0x41}, 16)
	orig := bytes.Clone(data)

	tests := []struct {
		name string
		keys KeyRing
	}{
		{"nil ring", nil},
		{"empty ring", KeyRing{}},
		{"other profile", KeyRing{"bfs2013": make(Key, KeySize)}},
		{"short key", KeyRing{ProfileBzf2001: make(Key, 16)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decrypt(data, tt.keys)
			require.ErrorIs(t, err, bfstype.ErrMissingKey)
			_, err = Encrypt(data, tt.keys)
			require.ErrorIs(t, err, bfstype.ErrMissingKey)
		})
	}
	assert.Equal(t, orig, data)
}

func TestKeyRedaction(t *testing.T) {
	t.Parallel()

	key := Key(bytes.Repeat([]byte{0xAB}, KeySize))
	for _, s := range []string{key.String(), fmt.Sprintf("%v", key), fmt.Sprintf("%#v", key), fmt.Sprint(KeyRing{"p": key})} {
		assert.NotContains(t, s, "ab ab")
		assert.NotContains(t, s, "171")
		assert.NotContains(t, s, "abab")
	}
}

func TestRequired(t *testing.T) {
	t.Parallel()

	assert.True(t, Required(bfstype.Bzf2001))
	for _, rev := range []bfstype.Revision{bfstype.Bzf2, bfstype.Bfs1RevisionA, bfstype.Bfs1RevisionB, bfstype.Bfs1RevisionC} {
		assert.False(t, Required(rev), rev.String())
	}
}
