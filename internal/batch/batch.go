// Package batch decodes archive entries and hands them to a sink.
//
// Entries are processed independently. A failing entry is recorded in the
// report and never stops the rest of the batch.
package batch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/bfstool/internal/bfstype"
	"github.com/meigma/bfstool/internal/compress"
	"github.com/meigma/bfstool/internal/sizing"
)

const (
	// parallelMinAvgBytes is the minimum average entry size to use parallel processing.
	// Below this threshold, serial processing is more efficient due to reduced overhead.
	parallelMinAvgBytes = 64 << 10
)

// Status is the outcome of one entry.
type Status uint8

const (
	StatusExtracted Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusExtracted:
		return "extracted"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Result is the outcome of one entry.
type Result struct {
	Index  int
	Name   string
	Status Status
	Err    error
}

// Report collects per-entry outcomes keyed by entry index.
type Report struct {
	Extracted int
	Skipped   int
	Failed    int
	Results   map[int]Result
}

func (r *Report) add(res Result) {
	r.Results[res.Index] = res
	switch res.Status {
	case StatusExtracted:
		r.Extracted++
	case StatusSkipped:
		r.Skipped++
	case StatusFailed:
		r.Failed++
	}
}

// Processor decodes, verifies, and writes entries.
type Processor struct {
	codec        *compress.Codec
	crcOfDecoded bool
	workers      int // 0 = auto, <0 = serial, >0 = fixed count
	logger       *slog.Logger
	progress     bfstype.ProgressFunc
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithWorkers sets the number of workers for parallel processing.
// Values < 0 force serial processing. Zero uses automatic heuristics.
// Values > 0 force a specific worker count.
func WithWorkers(n int) ProcessorOption {
	return func(p *Processor) {
		p.workers = n
	}
}

// WithCRCOfDecoded makes CRC checks cover decoded bytes instead of stored
// bytes.
func WithCRCOfDecoded(enabled bool) ProcessorOption {
	return func(p *Processor) {
		p.crcOfDecoded = enabled
	}
}

// WithProcessorLogger sets the logger for per-entry diagnostics.
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithProcessorProgress sets a callback that receives one event per
// finished entry, failed or not. Events arrive in completion order.
func WithProcessorProgress(fn bfstype.ProgressFunc) ProcessorOption {
	return func(p *Processor) {
		p.progress = fn
	}
}

// NewProcessor creates a batch processor decoding with codec. A nil codec
// uses compress defaults.
func NewProcessor(codec *compress.Codec, opts ...ProcessorOption) *Processor {
	if codec == nil {
		codec = compress.New()
	}
	p := &Processor{codec: codec}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Processor) log() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return slog.New(slog.DiscardHandler)
}

// Process decodes every item and writes it to sink.
//
// Items rejected by sink.ShouldProcess are reported as skipped. The returned
// error is non-nil only when ctx ends; entries not reached by then are
// reported as failed with the context's error.
func (p *Processor) Process(ctx context.Context, items []Item, sink Sink) (*Report, error) {
	report := &Report{Results: make(map[int]Result, len(items))}
	if len(items) == 0 {
		return report, ctx.Err()
	}

	results := make([]Result, len(items))
	todo := make([]int, 0, len(items))
	for i := range items {
		it := &items[i]
		results[i] = Result{Index: it.Index, Name: it.Entry.Name, Status: StatusSkipped}
		if sink.ShouldProcess(it) {
			todo = append(todo, i)
		}
	}

	workers := p.workerCount(items, todo)
	p.log().Debug("processing entries", "entries", len(todo), "skipped", len(items)-len(todo), "workers", workers)

	var bytesTotal uint64
	for _, i := range todo {
		bytesTotal += items[i].Entry.Size
	}

	var (
		mu        sync.Mutex
		filesDone int
		bytesDone uint64
	)
	record := func(i int, err error) {
		mu.Lock()
		defer mu.Unlock()
		filesDone++
		if err != nil {
			results[i].Status, results[i].Err = StatusFailed, err
		} else {
			results[i].Status = StatusExtracted
			bytesDone += items[i].Entry.Size
		}
		if p.progress != nil {
			p.progress(bfstype.ProgressEvent{
				Stage:      bfstype.StageExtracting,
				Path:       items[i].Entry.Name,
				BytesDone:  bytesDone,
				BytesTotal: bytesTotal,
				FilesDone:  filesDone,
				FilesTotal: len(todo),
			})
		}
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for _, i := range todo {
		if err := ctx.Err(); err != nil {
			record(i, err)
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				record(i, err)
				return nil
			}
			err := p.processItem(&items[i], sink)
			if err != nil {
				p.log().Warn("entry failed", "index", items[i].Index, "name", items[i].Entry.Name, "error", err)
			}
			record(i, err)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers report through results

	for _, res := range results {
		report.add(res)
	}
	return report, ctx.Err()
}

// processItem decodes, verifies, and writes a single entry.
func (p *Processor) processItem(it *Item, sink Sink) error {
	e := it.Entry
	if uint64(len(e.Payload)) != e.CompressedSize {
		return fmt.Errorf("%w: entry %d (%q) has %d stored bytes, header says %d",
			bfstype.ErrSizeMismatch, it.Index, e.Name, len(e.Payload), e.CompressedSize)
	}
	if e.HasCRC && !p.crcOfDecoded {
		if err := verifyCRC(it, e.Payload); err != nil {
			return err
		}
	}

	content, err := p.codec.Decode(e.Payload, e.Method, e.Size)
	if err != nil {
		return fmt.Errorf("entry %d (%q) at offset %#x: %w", it.Index, e.Name, e.Offset, err)
	}
	if e.HasCRC && p.crcOfDecoded {
		if err := verifyCRC(it, content); err != nil {
			return err
		}
	}

	if buffered, ok := sink.(BufferedSink); ok {
		if err := buffered.PutBuffered(it, content); err != nil {
			return fmt.Errorf("entry %d (%q): %w", it.Index, e.Name, err)
		}
		return nil
	}

	w, err := sink.Writer(it)
	if err != nil {
		return fmt.Errorf("entry %d (%q): %w", it.Index, e.Name, err)
	}
	if err := writeAll(w, content); err != nil {
		_ = w.Discard() //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("entry %d (%q): %w", it.Index, e.Name, err)
	}
	if err := w.Commit(); err != nil {
		return fmt.Errorf("entry %d (%q): commit: %w", it.Index, e.Name, err)
	}
	return nil
}

func verifyCRC(it *Item, data []byte) error {
	if got := bfstype.Checksum(data); got != it.Entry.CRC32 {
		return fmt.Errorf("%w: entry %d (%q) has crc %#08x, header says %#08x",
			bfstype.ErrChecksumMismatch, it.Index, it.Entry.Name, got, it.Entry.CRC32)
	}
	return nil
}

// workerCount determines the number of workers to use for processing.
func (p *Processor) workerCount(items []Item, todo []int) int {
	if len(todo) < 2 || p.workers < 0 {
		return 1
	}

	workers := p.workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
		if workers < 2 {
			return 1
		}
		// Only parallelize when entries are large enough to amortize goroutines.
		var total uint64
		for _, i := range todo {
			next, ok := sizing.AddUint64(total, items[i].Entry.Size)
			if !ok {
				total = ^uint64(0)
				break
			}
			total = next
		}
		if total/uint64(len(todo)) < parallelMinAvgBytes {
			return 1
		}
	}
	return min(workers, len(todo))
}

func writeAll(w io.Writer, data []byte) error {
	for len(data) > 0 {
		n, err := w.Write(data)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		data = data[n:]
	}
	return nil
}
