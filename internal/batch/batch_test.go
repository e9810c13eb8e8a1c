package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/bfstool/internal/bfstype"
	"github.com/meigma/bfstool/internal/compress"
)

// mockSink captures processed entries for testing.
type mockSink struct {
	mu            sync.Mutex
	shouldProcess func(*Item) bool
	written       map[int][]byte
	discarded     map[int]bool
	errors        map[int]error
}

func newMockSink() *mockSink {
	return &mockSink{
		shouldProcess: func(*Item) bool { return true },
		written:       make(map[int][]byte),
		discarded:     make(map[int]bool),
		errors:        make(map[int]error),
	}
}

func (s *mockSink) ShouldProcess(item *Item) bool {
	return s.shouldProcess(item)
}

func (s *mockSink) Writer(item *Item) (Committer, error) {
	if err, ok := s.errors[item.Index]; ok {
		return nil, err
	}
	return &mockCommitter{sink: s, index: item.Index}, nil
}

type mockCommitter struct {
	sink  *mockSink
	index int
	data  []byte
}

func (c *mockCommitter) Write(p []byte) (int, error) {
	c.data = append(c.data, p...)
	return len(p), nil
}

func (c *mockCommitter) Commit() error {
	c.sink.mu.Lock()
	defer c.sink.mu.Unlock()
	c.sink.written[c.index] = c.data
	return nil
}

func (c *mockCommitter) Discard() error {
	c.sink.mu.Lock()
	defer c.sink.mu.Unlock()
	c.sink.discarded[c.index] = true
	return nil
}

// bufferedSink takes content through PutBuffered.
type bufferedSink struct {
	*mockSink
}

func (s *bufferedSink) PutBuffered(item *Item, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written[item.Index] = append([]byte(nil), content...)
	return nil
}

func storedEntry(name string, content []byte) *Entry {
	return &Entry{
		Name:           name,
		Method:         bfstype.MethodStore,
		Size:           uint64(len(content)),
		CompressedSize: uint64(len(content)),
		Payload:        content,
	}
}

func encodedEntry(t *testing.T, name string, content []byte, m bfstype.Method) *Entry {
	t.Helper()
	packed, got, err := compress.New(compress.WithDowngrade(false)).Encode(content, m)
	require.NoError(t, err)
	require.Equal(t, m, got)
	return &Entry{
		Name:           name,
		Method:         m,
		Size:           uint64(len(content)),
		CompressedSize: uint64(len(packed)),
		Payload:        packed,
	}
}

func items(entries ...*Entry) []Item {
	out := make([]Item, len(entries))
	for i, e := range entries {
		out[i] = Item{Index: i, Entry: e}
	}
	return out
}

func TestProcessDecodesEveryMethod(t *testing.T) {
	t.Parallel()

	content := []byte("data/language/version.ini data/language/version.ini data/language/version.ini")
	tests := []struct {
		name    string
		workers int
	}{
		{name: "serial", workers: -1},
		{name: "parallel", workers: 4},
		{name: "auto", workers: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			in := items(
				storedEntry("a/store.bin", content),
				encodedEntry(t, "a/zlib.bin", content, bfstype.MethodZlib),
				encodedEntry(t, "a/zstd.bin", content, bfstype.MethodZstd),
				storedEntry("a/empty.bin", nil),
			)
			sink := newMockSink()
			report, err := NewProcessor(nil, WithWorkers(tt.workers)).Process(context.Background(), in, sink)
			require.NoError(t, err)

			assert.Equal(t, 4, report.Extracted)
			assert.Zero(t, report.Failed)
			assert.Zero(t, report.Skipped)
			for i := range 3 {
				assert.Equal(t, content, sink.written[i], "entry %d", i)
			}
			assert.Empty(t, sink.written[3])
		})
	}
}

func TestProcessFailuresDoNotAbort(t *testing.T) {
	t.Parallel()

	good := []byte("hello")
	corrupt := storedEntry("a/corrupt.bin", []byte{1, 2, 3, 4})
	corrupt.Method = bfstype.MethodZlib
	corrupt.Size = 100
	short := storedEntry("a/short.bin", good)
	short.Size = 10
	unknown := storedEntry("a/unknown.bin", good)
	unknown.Method = bfstype.MethodUnknown

	in := items(storedEntry("a/ok.bin", good), corrupt, short, unknown, storedEntry("a/ok2.bin", good))
	sink := newMockSink()
	report, err := NewProcessor(nil, WithWorkers(2)).Process(context.Background(), in, sink)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Extracted)
	assert.Equal(t, 3, report.Failed)
	assert.ErrorIs(t, report.Results[1].Err, bfstype.ErrDecompression)
	assert.ErrorIs(t, report.Results[2].Err, bfstype.ErrSizeMismatch)
	assert.ErrorIs(t, report.Results[3].Err, bfstype.ErrUnsupportedMethod)
	assert.Equal(t, "a/corrupt.bin", report.Results[1].Name)
	assert.Equal(t, good, sink.written[0])
	assert.Equal(t, good, sink.written[4])
}

func TestProcessVerifiesCRC(t *testing.T) {
	t.Parallel()

	content := []byte("checksummed content checksummed content")

	tests := []struct {
		name      string
		ofDecoded bool
		sumOf     func(e *Entry) []byte
		corrupt   bool
		wantErr   error
	}{
		{name: "stored ok", sumOf: func(e *Entry) []byte { return e.Payload }},
		{name: "decoded ok", ofDecoded: true, sumOf: func(*Entry) []byte { return content }},
		{name: "stored mismatch", sumOf: func(e *Entry) []byte { return e.Payload }, corrupt: true, wantErr: bfstype.ErrChecksumMismatch},
		{name: "decoded mismatch", ofDecoded: true, sumOf: func(*Entry) []byte { return content }, corrupt: true, wantErr: bfstype.ErrChecksumMismatch},
		{name: "wrong coverage", sumOf: func(*Entry) []byte { return content }, wantErr: bfstype.ErrChecksumMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := encodedEntry(t, "a/crc.bin", content, bfstype.MethodZlib)
			e.HasCRC = true
			e.CRC32 = bfstype.Checksum(tt.sumOf(e))
			if tt.corrupt {
				e.CRC32 ^= 1
			}

			sink := newMockSink()
			report, err := NewProcessor(nil, WithCRCOfDecoded(tt.ofDecoded)).Process(context.Background(), items(e), sink)
			require.NoError(t, err)
			if tt.wantErr != nil {
				assert.Equal(t, 1, report.Failed)
				assert.ErrorIs(t, report.Results[0].Err, tt.wantErr)
				assert.Empty(t, sink.written)
				return
			}
			assert.Equal(t, 1, report.Extracted)
			assert.Equal(t, content, sink.written[0])
		})
	}
}

func TestProcessShouldProcess(t *testing.T) {
	t.Parallel()

	sink := newMockSink()
	sink.shouldProcess = func(it *Item) bool { return it.Index != 1 }

	in := items(storedEntry("a/x", []byte("x")), storedEntry("a/y", []byte("y")))
	report, err := NewProcessor(nil).Process(context.Background(), in, sink)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Extracted)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, StatusSkipped, report.Results[1].Status)
	assert.NotContains(t, sink.written, 1)
}

func TestProcessWriterError(t *testing.T) {
	t.Parallel()

	sink := newMockSink()
	boom := errors.New("disk full")
	sink.errors[0] = boom

	report, err := NewProcessor(nil).Process(context.Background(), items(storedEntry("a/x", []byte("x"))), sink)
	require.NoError(t, err)
	assert.ErrorIs(t, report.Results[0].Err, boom)
}

func TestProcessBufferedSink(t *testing.T) {
	t.Parallel()

	content := []byte("buffered")
	sink := &bufferedSink{mockSink: newMockSink()}
	report, err := NewProcessor(nil).Process(context.Background(), items(encodedEntry(t, "a/b", content, bfstype.MethodZstd)), sink)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Extracted)
	assert.Equal(t, content, sink.written[0])
}

func TestProcessCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := NewProcessor(nil).Process(ctx, items(storedEntry("a/x", []byte("x"))), newMockSink())
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, report.Failed)
	assert.ErrorIs(t, report.Results[0].Err, context.Canceled)
}

func TestProcessEmpty(t *testing.T) {
	t.Parallel()

	report, err := NewProcessor(nil).Process(context.Background(), nil, newMockSink())
	require.NoError(t, err)
	assert.Empty(t, report.Results)
}

func TestWorkerCount(t *testing.T) {
	t.Parallel()

	small := items(storedEntry("a/1", []byte("1")), storedEntry("a/2", []byte("2")), storedEntry("a/3", []byte("3")))
	all := []int{0, 1, 2}

	assert.Equal(t, 1, NewProcessor(nil, WithWorkers(-1)).workerCount(small, all))
	assert.Equal(t, 1, NewProcessor(nil).workerCount(small, all), "small entries stay serial")
	assert.Equal(t, 3, NewProcessor(nil, WithWorkers(8)).workerCount(small, all), "capped at entry count")
	assert.Equal(t, 1, NewProcessor(nil, WithWorkers(8)).workerCount(small, all[:1]))
}

func TestFileSink(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sink, err := NewFileSink(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })

	in := items(
		storedEntry("data/language/version.ini", []byte("v1")),
		storedEntry(`data\cars\car.bin`, []byte("car")),
		storedEntry("../escape.bin", []byte("x")),
	)
	report, err := NewProcessor(nil).Process(context.Background(), in, sink)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Extracted)
	assert.ErrorIs(t, report.Results[2].Err, bfstype.ErrUnsafePath)

	got, err := os.ReadFile(filepath.Join(dir, "data", "language", "version.ini"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)
	got, err = os.ReadFile(filepath.Join(dir, "data", "cars", "car.bin"))
	require.NoError(t, err)
	assert.Equal(t, []byte("car"), got)

	leftovers, err := filepath.Glob(filepath.Join(dir, "data", "*", ".bfstool-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestFileSinkSkipsExisting(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a", "x"), []byte("old"), 0o600))

	tests := []struct {
		name      string
		overwrite bool
		want      string
	}{
		{name: "keep", want: "old"},
		{name: "overwrite", overwrite: true, want: "new"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink, err := NewFileSink(dir, WithOverwrite(tt.overwrite))
			require.NoError(t, err)
			defer sink.Close()

			_, err = NewProcessor(nil).Process(context.Background(), items(storedEntry("a/x", []byte("new"))), sink)
			require.NoError(t, err)
			got, err := os.ReadFile(filepath.Join(dir, "a", "x"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestFileSinkDiscardRemovesTemp(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sink, err := NewFileSink(dir)
	require.NoError(t, err)
	defer sink.Close()

	w, err := sink.Writer(&Item{Entry: storedEntry("a/x", nil)})
	require.NoError(t, err)
	_, err = w.Write([]byte("partial"))
	require.NoError(t, err)
	require.NoError(t, w.Discard())

	entries, err := os.ReadDir(filepath.Join(dir, "a"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProcessorProgress(t *testing.T) {
	t.Parallel()

	in := items(
		storedEntry("a.bin", []byte("aaaa")),
		storedEntry("b.bin", []byte("bb")),
		storedEntry("c.bin", []byte("c")),
	)
	in[1].Entry.CompressedSize++

	var (
		mu     sync.Mutex
		events []bfstype.ProgressEvent
	)
	proc := NewProcessor(nil, WithWorkers(2), WithProcessorProgress(func(ev bfstype.ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev)
	}))
	report, err := proc.Process(context.Background(), in, newMockSink())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)

	require.Len(t, events, 3)
	for i, ev := range events {
		assert.Equal(t, bfstype.StageExtracting, ev.Stage)
		assert.Equal(t, i+1, ev.FilesDone)
		assert.Equal(t, 3, ev.FilesTotal)
		assert.Equal(t, uint64(7), ev.BytesTotal)
	}
	assert.Equal(t, uint64(5), events[2].BytesDone)
}
