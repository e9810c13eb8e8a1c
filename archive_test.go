package bfstool

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/bfstool/internal/testutil"
)

func TestCreateParseRoundTrip(t *testing.T) {
	t.Parallel()

	revisions := []Revision{Bzf2001, Bzf2, Bfs1RevisionA, Bfs1RevisionB, Bfs1RevisionC}
	for _, rev := range revisions {
		t.Run(rev.String(), func(t *testing.T) {
			t.Parallel()

			files := testFiles()
			created, out, err := Create(t.Context(), files, rev, CreateWithKeys(testKeys()))
			require.NoError(t, err)

			a, err := Parse(out, WithRevision(rev), WithKeys(testKeys()))
			require.NoError(t, err)
			assert.Equal(t, rev, a.Revision())
			assert.Equal(t, len(files), a.Len())

			for _, f := range files {
				got, err := a.ReadFile(f.Name)
				require.NoError(t, err, f.Name)
				assert.Equal(t, len(f.Data), len(got), f.Name)
				assert.Equal(t, string(f.Data), string(got), f.Name)
			}

			plain, err := a.Bytes()
			require.NoError(t, err)
			want, err := Decrypt(out, rev, testKeys())
			require.NoError(t, err)
			assert.Equal(t, want, plain, "re-serialization is byte exact")

			createdPlain, err := created.Bytes()
			require.NoError(t, err)
			assert.Equal(t, want, createdPlain)
			if rev == Bzf2001 {
				assert.NotEqual(t, out, plain, "bzf2001 output is enciphered")
			}
		})
	}
}

func TestCreateChoosesCompressionByFilter(t *testing.T) {
	t.Parallel()

	rules, err := ParseFilterRules(strings.NewReader("+ **/*.ini\n"))
	require.NoError(t, err)

	text := []byte(strings.Repeat("compressible ", 64))
	files := []File{
		{Name: "data/a.ini", Data: text},
		{Name: "data/b.txt", Data: text},
	}
	a, _ := mustCreate(t, files, Bzf2, CreateWithFilter(rules))

	ini := a.Entry(indexOf(t, a, "data/a.ini"))
	txt := a.Entry(indexOf(t, a, "data/b.txt"))
	assert.Equal(t, MethodZlib, ini.Method)
	assert.Less(t, ini.CompressedSize, ini.Size)
	assert.Equal(t, MethodStore, txt.Method)
	assert.Equal(t, txt.Size, txt.CompressedSize)
}

func TestCreateStoresIncompressibleData(t *testing.T) {
	t.Parallel()

	a, _ := mustCreate(t, []File{{Name: "data/noise.bin", Data: testutil.Noise(512, 3)}}, Bfs1RevisionA)
	assert.Equal(t, MethodStore, a.Entry(0).Method)
}

func TestCreateZstd(t *testing.T) {
	t.Parallel()

	files := testFiles()
	a, out := mustCreate(t, files, Bfs1RevisionB, CreateWithMethod(MethodZstd))
	assert.Equal(t, MethodZstd, a.Entry(indexOf(t, a, "data/language/version.ini")).Method)

	parsed, err := Parse(out, WithRevision(Bfs1RevisionB))
	require.NoError(t, err)
	got, err := parsed.ReadFile("data/language/version.ini")
	require.NoError(t, err)
	assert.Equal(t, files[0].Data, got)
}

func TestCreateDeduplicates(t *testing.T) {
	t.Parallel()

	same := []byte(strings.Repeat("shared payload ", 32))
	files := []File{
		{Name: "data/one.bin", Data: same},
		{Name: "other/two.bin", Data: same},
		{Name: "data/three.bin", Data: []byte("different")},
	}

	tests := []struct {
		name  string
		rev   Revision
		dedup bool
	}{
		{name: "bzf2", rev: Bzf2, dedup: true},
		{name: "bfs1a", rev: Bfs1RevisionA, dedup: true},
		{name: "bfs1c", rev: Bfs1RevisionC, dedup: true},
		{name: "disabled", rev: Bfs1RevisionA, dedup: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, out := mustCreate(t, files, tt.rev, CreateWithDedup(tt.dedup))
			a, err := Parse(out, WithRevision(tt.rev))
			require.NoError(t, err)

			one := indexOf(t, a, "data/one.bin")
			two := indexOf(t, a, "other/two.bin")
			first, second := min(one, two), max(one, two)

			if tt.dedup {
				assert.Equal(t, a.Entry(one).Offset, a.Entry(two).Offset)
				assert.Equal(t, 1, a.Entry(first).Copy.Count)
				assert.Equal(t, first, a.Entry(second).Copy.Primary)
			} else {
				assert.NotEqual(t, a.Entry(one).Offset, a.Entry(two).Offset)
				assert.Zero(t, a.Entry(first).Copy.Count)
			}

			for _, i := range []int{one, two} {
				got, err := a.ReadEntry(i)
				require.NoError(t, err)
				assert.Equal(t, same, got)
			}
		})
	}
}

func TestCreateCopyRules(t *testing.T) {
	t.Parallel()

	rules, err := ParseCopyRules(strings.NewReader("1+2 data/language/**\n"))
	require.NoError(t, err)

	files := testFiles()
	_, out := mustCreate(t, files, Bfs1RevisionB, CreateWithCopyRules(rules))
	a, err := Parse(out, WithRevision(Bfs1RevisionB))
	require.NoError(t, err)

	rows := a.List()
	i := indexOf(t, a, "data/language/version.ini")
	assert.Equal(t, 3, rows[i].Mirrors)
	assert.Equal(t, 2, rows[i].MirrorsWide)
	assert.Zero(t, rows[indexOf(t, a, "data/cars/car1.bin")].Mirrors)

	e := a.Entry(i)
	for _, m := range e.Mirrors {
		assert.Equal(t, e.Payload, out[m:m+e.CompressedSize], "mirror at %#x", m)
	}
}

func TestCreateErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		files   []File
		rev     Revision
		opts    []CreateOption
		wantErr error
	}{
		{name: "zstd in bzf2", files: testFiles(), rev: Bzf2, opts: []CreateOption{CreateWithMethod(MethodZstd)}, wantErr: ErrUnsupportedMethod},
		{name: "bbfs", files: testFiles(), rev: Bbfs, wantErr: ErrUnsupportedRevision},
		{name: "long bzf2001 name", files: []File{{Name: strings.Repeat("n", 0x29)}}, rev: Bzf2001, opts: []CreateOption{CreateWithKeys(testKeys())}, wantErr: ErrInvalidName},
		{name: "bzf2001 without key", files: testFiles(), rev: Bzf2001, wantErr: ErrMissingKey},
		{name: "no folder in hashed revision", files: []File{{Name: "flat.bin"}}, rev: Bfs1RevisionB, wantErr: ErrInvalidName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := Create(t.Context(), tt.files, tt.rev, tt.opts...)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateDecipheredBzf2001(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts []CreateOption
	}{
		{name: "no key"},
		{name: "key ignored", opts: []CreateOption{CreateWithKeys(testKeys())}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opts := append([]CreateOption{CreateWithDeciphered(true)}, tt.opts...)
			created, out, err := Create(t.Context(), testFiles(), Bzf2001, opts...)
			require.NoError(t, err)

			plain, err := created.Bytes()
			require.NoError(t, err)
			assert.Equal(t, plain, out)

			a, err := Parse(out, WithRevision(Bzf2001), WithDeciphered(true))
			require.NoError(t, err)
			assert.Equal(t, 3, a.Len())

			enc, err := Encrypt(out, Bzf2001, testKeys())
			require.NoError(t, err)
			a, err = Parse(enc, WithRevision(Bzf2001), WithKeys(testKeys()))
			require.NoError(t, err)
			assert.Equal(t, 3, a.Len())
		})
	}
}

func TestCreateCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, _, err := Create(ctx, testFiles(), Bzf2)
	require.ErrorIs(t, err, context.Canceled)
}

func TestParseIdentifiesRevision(t *testing.T) {
	t.Parallel()

	_, out := mustCreate(t, testFiles(), Bfs1RevisionA)
	db := databaseFor(t, "europe.bin", Bfs1RevisionA, out)

	a, err := Parse(out, WithDatabase(db))
	require.NoError(t, err)
	assert.Equal(t, Bfs1RevisionA, a.Revision())

	empty, err := NewDatabase(nil)
	require.NoError(t, err)
	_, err = Parse(out, WithDatabase(empty))
	require.ErrorIs(t, err, ErrUnsupportedRevision)
}

func TestParseEncryptedNeedsKey(t *testing.T) {
	t.Parallel()

	_, out := mustCreate(t, testFiles(), Bzf2001, CreateWithKeys(testKeys()))

	_, err := Parse(out, WithRevision(Bzf2001))
	require.ErrorIs(t, err, ErrMissingKey)

	plain, err := Decrypt(out, Bzf2001, testKeys())
	require.NoError(t, err)
	a, err := Parse(plain, WithRevision(Bzf2001), WithDeciphered(true))
	require.NoError(t, err)
	assert.Equal(t, 3, a.Len())
}

func TestParseWrongRevision(t *testing.T) {
	t.Parallel()

	_, out := mustCreate(t, testFiles(), Bzf2)
	_, err := Parse(out, WithRevision(Bfs1RevisionA))
	require.ErrorIs(t, err, ErrMalformedHeader)
}

func TestParseEuropeListing(t *testing.T) {
	t.Parallel()

	data := europeFixture(t)
	a, err := Parse(data, WithRevision(Bfs1RevisionA))
	require.NoError(t, err)

	sum := a.Summary()
	assert.Equal(t, uint64(4058), sum.HeaderSize)
	assert.Equal(t, uint64(4531), sum.PhysicalSize)
	assert.Equal(t, 1, sum.FileCount)

	assert.Equal(t, []ListRow{{
		Method:         MethodZlib,
		Size:           1103,
		CompressedSize: 471,
		Copy:           CopyDescriptor{Primary: 0, Count: 0},
		Offset:         0x0FDC,
		Name:           "data/language/version.ini",
	}}, a.List())

	out, err := a.Bytes()
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestSummaryAndList(t *testing.T) {
	t.Parallel()

	files := testFiles()
	a, out := mustCreate(t, files, Bzf2)

	s := a.Summary()
	assert.Equal(t, Bzf2, s.Revision)
	assert.Equal(t, uint64(len(out)), s.PhysicalSize)
	assert.Equal(t, len(files), s.FileCount)
	assert.Equal(t, uint64(0x20021011), uint64(s.Version))
	assert.Positive(t, s.HeaderSize)
	assert.Less(t, s.HeaderSize, a.Entry(0).Offset)

	rows := a.List()
	require.Len(t, rows, len(files))
	for i, f := range files {
		assert.Equal(t, f.Name, rows[i].Name)
		assert.Equal(t, uint64(len(f.Data)), rows[i].Size)
		assert.Equal(t, a.Entry(i).Offset, rows[i].Offset)
	}
}

func TestReadEntryDetectsCorruption(t *testing.T) {
	t.Parallel()

	files := []File{{Name: "data/x.bin", Data: testutil.Noise(64, 9)}}
	a, out := mustCreate(t, files, Bzf2, CreateWithMethod(MethodStore))
	out[a.Entry(0).Offset] ^= 0xFF

	corrupt, err := Parse(out, WithRevision(Bzf2))
	require.NoError(t, err)
	_, err = corrupt.ReadEntry(0)
	require.ErrorIs(t, err, ErrChecksumMismatch)

	_, err = corrupt.ReadEntry(5)
	require.Error(t, err)
}

func TestDecryptPassesThroughPlainRevisions(t *testing.T) {
	t.Parallel()

	data := []byte("not enciphered")
	out, err := Decrypt(data, Bzf2, nil)
	require.NoError(t, err)
	assert.Equal(t, data, out)

	out, err = Encrypt(data, Bfs1RevisionC, nil)
	require.NoError(t, err)
	assert.Equal(t, data, out)

	_, err = Encrypt(data, Bzf2001, nil)
	require.ErrorIs(t, err, ErrMissingKey)
}
