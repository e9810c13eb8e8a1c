package bfstool

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/bfstool/internal/testutil"
)

func TestExtract(t *testing.T) {
	t.Parallel()

	files := testFiles()
	for _, rev := range []Revision{Bzf2, Bfs1RevisionA, Bfs1RevisionB, Bfs1RevisionC} {
		t.Run(rev.String(), func(t *testing.T) {
			t.Parallel()

			a, _ := mustCreate(t, files, rev)
			dest := t.TempDir()
			report, err := a.Extract(t.Context(), dest)
			require.NoError(t, err)
			assert.Equal(t, len(files), report.Extracted)
			assert.Zero(t, report.Failed)

			for _, f := range files {
				got, err := os.ReadFile(filepath.Join(dest, filepath.FromSlash(f.Name)))
				require.NoError(t, err, f.Name)
				assert.Equal(t, len(f.Data), len(got))
				assert.Equal(t, string(f.Data), string(got))
			}
		})
	}
}

func TestExtractPattern(t *testing.T) {
	t.Parallel()

	a, _ := mustCreate(t, testFiles(), Bzf2)
	dest := t.TempDir()

	report, err := a.Extract(t.Context(), dest, ExtractWithPattern("data/language/**"), ExtractWithWorkers(2))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Extracted)
	require.Len(t, report.Results, 1)

	assert.FileExists(t, filepath.Join(dest, "data", "language", "version.ini"))
	assert.NoFileExists(t, filepath.Join(dest, "data", "cars", "car1.bin"))
}

func TestExtractSkipsExisting(t *testing.T) {
	t.Parallel()

	a, _ := mustCreate(t, testFiles(), Bfs1RevisionA)
	dest := t.TempDir()
	target := filepath.Join(dest, "data", "cars", "car1.bin")
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o750))
	require.NoError(t, os.WriteFile(target, []byte("keep"), 0o600))

	report, err := a.Extract(t.Context(), dest)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, StatusSkipped, report.Results[indexOf(t, a, "data/cars/car1.bin")].Status)

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(got))

	report, err = a.Extract(t.Context(), dest, ExtractWithOverwrite(true))
	require.NoError(t, err)
	assert.Zero(t, report.Skipped)
	got, err = os.ReadFile(target)
	require.NoError(t, err)
	assert.Len(t, got, 700)
}

func TestExtractRecordsCorruptEntries(t *testing.T) {
	t.Parallel()

	files := []File{
		{Name: "data/bad.bin", Data: testutil.Noise(128, 11)},
		{Name: "data/good.bin", Data: testutil.Noise(128, 12)},
	}
	a, out := mustCreate(t, files, Bzf2, CreateWithMethod(MethodStore))
	out[a.Entry(0).Offset+5] ^= 0x55

	corrupt, err := Parse(out, WithRevision(Bzf2))
	require.NoError(t, err)

	dest := t.TempDir()
	report, err := corrupt.Extract(t.Context(), dest)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Extracted)
	require.ErrorIs(t, report.Results[0].Err, ErrChecksumMismatch)
	assert.NoFileExists(t, filepath.Join(dest, "data", "bad.bin"))
	assert.FileExists(t, filepath.Join(dest, "data", "good.bin"))
}

func TestExtractDeduplicatedEntries(t *testing.T) {
	t.Parallel()

	same := testutil.Noise(300, 5)
	files := []File{
		{Name: "a/one.bin", Data: same},
		{Name: "b/two.bin", Data: same},
	}
	a, _ := mustCreate(t, files, Bfs1RevisionB)

	dest := t.TempDir()
	report, err := a.Extract(t.Context(), dest)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Extracted)
	for _, f := range files {
		got, err := os.ReadFile(filepath.Join(dest, filepath.FromSlash(f.Name)))
		require.NoError(t, err)
		assert.Equal(t, same, got)
	}
}

func TestExtractProgress(t *testing.T) {
	t.Parallel()

	files := testFiles()
	a, _ := mustCreate(t, files, Bzf2)

	var (
		mu   sync.Mutex
		last ProgressEvent
		n    int
	)
	_, err := a.Extract(t.Context(), t.TempDir(), ExtractWithProgress(func(ev ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		last = ev
		n++
	}))
	require.NoError(t, err)

	assert.Equal(t, len(files), n)
	assert.Equal(t, StageExtracting, last.Stage)
	assert.Equal(t, len(files), last.FilesDone)
	assert.Equal(t, last.BytesTotal, last.BytesDone)
}
