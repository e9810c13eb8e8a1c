package pathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/bfstool/internal/bfstype"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "plain", in: "data/language/version.ini", want: "data/language/version.ini"},
		{name: "backslashes", in: `data\cars\car.bin`, want: "data/cars/car.bin"},
		{name: "redundant parts", in: "data//./x.bin", want: "data/x.bin"},
		{name: "empty", in: "", wantErr: true},
		{name: "absolute", in: "/etc/passwd", wantErr: true},
		{name: "parent", in: "data/../../x", wantErr: true},
		{name: "windows parent", in: `..\x`, wantErr: true},
		{name: "drive letter", in: `C:\x`, wantErr: true},
		{name: "dot", in: ".", wantErr: true},
		{name: "nul", in: "a\x00b", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Normalize(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, bfstype.ErrUnsafePath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDirChild(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "data/language", Dir("data/language/version.ini"))
	assert.Equal(t, "", Dir("top.bin"))

	name, isDir := Child("data/language/version.ini", "data/")
	assert.Equal(t, "language", name)
	assert.True(t, isDir)

	name, isDir = Child("data/x.bin", "data/")
	assert.Equal(t, "x.bin", name)
	assert.False(t, isDir)
}
