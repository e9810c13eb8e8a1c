package bfstype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRevision(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    Revision
		wantErr bool
	}{
		{name: "canonical", input: "bfs2004a", want: Bfs1RevisionA},
		{name: "upper case", input: "BFS2004B", want: Bfs1RevisionB},
		{name: "alias", input: "bfs1c", want: Bfs1RevisionC},
		{name: "bzf2 alias", input: "bzf2", want: Bzf2},
		{name: "padded", input: "  bzf2001 ", want: Bzf2001},
		{name: "bbfs", input: "bfs2013", want: Bbfs},
		{name: "unknown", input: "pak", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseRevision(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnsupportedRevision)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRevisionNamesRoundTrip(t *testing.T) {
	t.Parallel()

	for _, rev := range Revisions {
		got, err := ParseRevision(rev.String())
		require.NoError(t, err)
		assert.Equal(t, rev, got)
	}
	assert.Equal(t, "unknown", RevisionUnknown.String())
	assert.True(t, Bzf2001.Encrypted())
	assert.False(t, Bfs1RevisionA.Encrypted())
}

func TestParseMethod(t *testing.T) {
	t.Parallel()

	for _, m := range []Method{MethodStore, MethodZlib, MethodZstd} {
		got, err := ParseMethod(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	got, err := ParseMethod("none")
	require.NoError(t, err)
	assert.Equal(t, MethodStore, got)

	_, err = ParseMethod("lzma")
	require.ErrorIs(t, err, ErrUnsupportedMethod)
	assert.Equal(t, "unknown", MethodUnknown.String())
}

func TestChecksum(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint32(0x340BC6D9), Checksum([]byte("123456789")))
	assert.Equal(t, uint32(0xFFFFFFFF), Checksum(nil))
}

func TestEntryHelpers(t *testing.T) {
	t.Parallel()

	e := Entry{Offset: 0x100, CompressedSize: 0x20}
	assert.Equal(t, uint64(0x120), e.End())

	c := CopyDescriptor{Primary: 2}
	assert.False(t, c.IsDuplicate(2))
	assert.True(t, c.IsDuplicate(3))

	assert.Zero(t, (&Archive{}).HeaderSize())
	assert.Equal(t, uint64(0x3F), (&Archive{HeaderEnd: 0x40}).HeaderSize())
}
