package bfstool

import (
	"bytes"
	"context"
	"crypto/md5"  //nolint:gosec // test
	"crypto/sha1" //nolint:gosec // test
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meigma/bfstool/internal/testutil"
)

func testKeys() KeyRing {
	key := make(Key, 256)
	for i := range key {
		key[i] = byte(i*7 + 3)
	}
	return KeyRing{"bzf2001": key}
}

// europeFixture lays out the single-entry FlatOut europe archive (revision
// A) with synthetic payload bytes.
func europeFixture(t *testing.T) []byte {
	t.Helper()
	const name = "data/language/version.ini"
	u16 := func(b []byte, v uint16) []byte { return binary.LittleEndian.AppendUint16(b, v) }
	u32 := func(b []byte, v uint32) []byte { return binary.LittleEndian.AppendUint32(b, v) }

	var b []byte
	b = u32(b, 0x31736662)
	b = u32(b, 0x20040505)
	b = u32(b, 0xFDB)
	b = u32(b, 1)
	b = u32(b, 0xFAC)
	b = u32(b, 0x3E5)
	for bucket := range 0x3E5 {
		if bucket == 275 {
			b = u16(b, 0)
			b = u16(b, 1)
			continue
		}
		b = u32(b, 0)
	}
	require.Len(t, b, 0xFAC)

	b = append(b, 0x05, 0)
	b = u16(b, 0)
	b = u32(b, 0xFDC)
	b = u32(b, 0x44F)
	b = u32(b, 0x1D7)
	b = u32(b, 0xF6260C6E)
	b = u16(b, uint16(len(name)))
	b = append(b, name...)
	require.Len(t, b, 0xFDB)

	b = append(b, 0)
	b = append(b, testutil.Noise(0x1D7, 11)...)
	require.Len(t, b, 4531)
	return b
}

func testFiles() []File {
	return []File{
		{Name: "data/language/version.ini", Data: testutil.Text(720)},
		{Name: "data/cars/car1.bin", Data: testutil.Noise(700, 7)},
		{Name: "data/empty.bin", Data: nil},
	}
}

func mustCreate(t *testing.T, files []File, rev Revision, opts ...CreateOption) (*Archive, []byte) {
	t.Helper()
	a, out, err := Create(context.Background(), files, rev, opts...)
	require.NoError(t, err)
	return a, out
}

func indexOf(t *testing.T, a *Archive, name string) int {
	t.Helper()
	for i, e := range a.Entries() {
		if e.Name == name {
			return i
		}
	}
	require.Failf(t, "entry not found", "%q", name)
	return -1
}

func databaseFor(t *testing.T, name string, rev Revision, data []byte) *Database {
	t.Helper()
	m := md5.Sum(data)  //nolint:gosec // test
	s := sha1.Sum(data) //nolint:gosec // test
	yaml := fmt.Sprintf(`- file_name: %q
  game: FlatOut
  platform: PC
  format: %s
  filter: all
  copy_filter: none
  source: [Test]
  size: %d
  crc32: "%08X"
  md5: "%s"
  sha1: "%s"
`, name, rev, len(data), crc32.ChecksumIEEE(data), hex.EncodeToString(m[:]), hex.EncodeToString(s[:]))
	db, err := LoadDatabase(bytes.NewReader([]byte(yaml)))
	require.NoError(t, err)
	return db
}
