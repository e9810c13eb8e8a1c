// Command profiler exercises archive creation, parsing, reading, and
// extraction on synthetic data under the Go profilers.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand" //nolint:gosec // intentional use for reproducible benchmarks
	"net/http"
	_ "net/http/pprof" //nolint:gosec // intentional profiling endpoint
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"time"

	"github.com/felixge/fgprof"

	"github.com/meigma/bfstool"
	"github.com/meigma/bfstool/internal/testutil"
)

type config struct {
	mode       string
	files      int
	fileSize   int
	dirCount   int
	format     string
	method     string
	pattern    string
	duration   time.Duration
	iterations int
	workers    int
	pprofAddr  string
	cpuProfile string
	fgProfile  string
	memProfile string
	traceFile  string
	readRandom bool
	tempDir    string
	keepTemp   bool
	verbose    bool
	randomSeed int64
}

//nolint:unused // sink variables prevent compiler optimizations in profiling
var (
	sinkBytes   []byte
	sinkArchive *bfstool.Archive
)

//nolint:gocognit,gocyclo // main function complexity is acceptable for CLI tool
func main() {
	cfg := parseFlags()

	if cfg.pprofAddr != "" {
		go func() {
			log.Printf("pprof listening on %s", cfg.pprofAddr)
			//nolint:gosec // intentional pprof server without timeouts for profiling
			if err := http.ListenAndServe(cfg.pprofAddr, nil); err != nil {
				log.Printf("pprof server error: %v", err)
			}
		}()
	}

	dir, cleanup, err := setupTempDir(cfg)
	if err != nil {
		log.Fatal(err)
	}
	if cleanup != nil {
		defer cleanup() //nolint:errcheck // cleanup errors are non-fatal in profiler
	}

	rev, err := bfstool.ParseRevision(cfg.format)
	if err != nil {
		log.Fatal(err) //nolint:gocritic // exitAfterDefer is intentional - cleanup is best-effort
	}
	method, err := bfstool.ParseMethod(cfg.method)
	if err != nil {
		log.Fatal(err)
	}
	files := makeFiles(cfg)
	level := slog.LevelWarn
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	archive, data, err := buildArchive(files, rev, method, logger)
	if err != nil {
		log.Fatal(err)
	}

	if cfg.fgProfile != "" {
		stopFG, fgErr := startWallClockProfile(cfg.fgProfile)
		if fgErr != nil {
			log.Fatal(fgErr)
		}
		defer func() {
			if err := stopFG(); err != nil {
				log.Printf("fgprof stop error: %v", err)
			}
		}()
	}

	if cfg.cpuProfile != "" {
		cpuFile, cpuErr := os.Create(cfg.cpuProfile)
		if cpuErr != nil {
			log.Fatal(cpuErr)
		}
		if cpuErr = pprof.StartCPUProfile(cpuFile); cpuErr != nil {
			log.Fatal(cpuErr)
		}
		defer func() {
			pprof.StopCPUProfile()
			_ = cpuFile.Close()
		}()
	}

	if cfg.traceFile != "" {
		traceFile, traceErr := os.Create(cfg.traceFile)
		if traceErr != nil {
			log.Fatal(traceErr)
		}
		if traceErr = trace.Start(traceFile); traceErr != nil {
			log.Fatal(traceErr)
		}
		defer func() {
			trace.Stop()
			_ = traceFile.Close()
		}()
	}

	stats, err := runProfile(cfg, archive, data, files, rev, method, dir)
	if err != nil {
		log.Fatal(err)
	}

	if cfg.memProfile != "" {
		runtime.GC()
		f, err := os.Create(cfg.memProfile)
		if err != nil {
			log.Fatal(err)
		}
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal(err)
		}
		_ = f.Close()
	}

	fmt.Printf("mode=%s format=%s ops=%d bytes=%d elapsed=%s throughput=%.2f MB/s\n",
		cfg.mode,
		rev,
		stats.ops,
		stats.bytes,
		stats.elapsed,
		float64(stats.bytes)/(1024*1024)/stats.elapsed.Seconds(),
	)
}

type profileStats struct {
	ops     int
	bytes   int64
	elapsed time.Duration
}

//nolint:gocognit,gocyclo,gocritic // complexity is inherent to multi-mode profiler dispatch; hugeParam acceptable for profiler
func runProfile(cfg config, a *bfstool.Archive, data []byte, files []bfstool.File, rev bfstool.Revision, method bfstool.Method, rootDir string) (profileStats, error) {
	start := time.Now()
	ops := 0
	var byteCount int64

	shouldContinue := func() bool {
		if cfg.iterations > 0 {
			return ops < cfg.iterations
		}
		return time.Since(start) < cfg.duration
	}

	var total int64
	for _, f := range files {
		total += int64(len(f.Data))
	}

	switch cfg.mode {
	case "readfile":
		if a.Len() == 0 {
			return profileStats{}, errors.New("readfile needs at least one file")
		}
		rng := rand.New(rand.NewSource(cfg.randomSeed)) //nolint:gosec // intentional for reproducible benchmarks
		for shouldContinue() {
			i := pickIndex(a.Len(), ops, rng, cfg.readRandom)
			content, err := a.ReadEntry(i)
			if err != nil {
				return profileStats{}, err
			}
			sinkBytes = content
			byteCount += int64(len(content))
			ops++
		}

	case "parse":
		for shouldContinue() {
			parsed, err := bfstool.Parse(data, bfstool.WithRevision(rev), bfstool.WithDeciphered(true))
			if err != nil {
				return profileStats{}, err
			}
			sinkArchive = parsed
			byteCount += int64(len(data))
			ops++
		}

	case "extract":
		for shouldContinue() {
			destDir := filepath.Join(rootDir, "extract", fmt.Sprintf("iter-%d", ops))
			report, err := a.Extract(context.Background(), destDir, bfstool.ExtractWithWorkers(cfg.workers))
			if err != nil {
				return profileStats{}, err
			}
			if report.Failed > 0 {
				return profileStats{}, fmt.Errorf("%d entries failed", report.Failed)
			}
			if err := os.RemoveAll(destDir); err != nil {
				return profileStats{}, err
			}
			byteCount += total
			ops++
		}

	case "create":
		for shouldContinue() {
			_, out, err := buildArchive(files, rev, method, nil)
			if err != nil {
				return profileStats{}, err
			}
			sinkBytes = out
			byteCount += total
			ops++
		}

	default:
		return profileStats{}, fmt.Errorf("unknown mode: %s", cfg.mode)
	}

	return profileStats{
		ops:     ops,
		bytes:   byteCount,
		elapsed: time.Since(start),
	}, nil
}

func parseFlags() config {
	var cfg config
	flag.StringVar(&cfg.mode, "mode", "readfile", "mode: readfile, parse, extract, create")
	flag.IntVar(&cfg.files, "files", 512, "number of files")
	flag.IntVar(&cfg.fileSize, "file-size", 16<<10, "file size in bytes")
	flag.IntVar(&cfg.dirCount, "dir-count", 16, "number of directories")
	flag.StringVar(&cfg.format, "format", "bfs2004b", "archive format")
	flag.StringVar(&cfg.method, "method", "zlib", "compression: store, zlib, or zstd")
	flag.StringVar(&cfg.pattern, "pattern", "compressible", "pattern: compressible or random")
	flag.DurationVar(&cfg.duration, "duration", 10*time.Second, "duration to run (ignored if iterations > 0)")
	flag.IntVar(&cfg.iterations, "iterations", 0, "number of iterations to run")
	flag.IntVar(&cfg.workers, "workers", 0, "extract workers: <0 serial, 0 auto, >0 fixed")
	flag.StringVar(&cfg.pprofAddr, "pprof-addr", "", "pprof listen address (e.g. :6060)")
	flag.StringVar(&cfg.cpuProfile, "cpuprofile", "", "write CPU profile to file")
	flag.StringVar(&cfg.fgProfile, "fgprofile", "", "write fgprof (wall clock) profile to file")
	flag.StringVar(&cfg.memProfile, "memprofile", "", "write heap profile to file")
	flag.StringVar(&cfg.traceFile, "trace", "", "write trace to file")
	flag.BoolVar(&cfg.readRandom, "read-random", true, "randomize readfile entry selection")
	flag.StringVar(&cfg.tempDir, "temp-dir", "", "directory to use for extraction")
	flag.BoolVar(&cfg.keepTemp, "keep-temp", false, "keep temp dir after run")
	flag.BoolVar(&cfg.verbose, "verbose", false, "log archive creation")
	flag.Int64Var(&cfg.randomSeed, "seed", 1, "random seed")
	flag.Parse()
	return cfg
}

func pickIndex(n, idx int, rng *rand.Rand, random bool) int {
	if random {
		return rng.Intn(n)
	}
	return idx % n
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func setupTempDir(cfg config) (string, func() error, error) {
	if cfg.tempDir != "" {
		return cfg.tempDir, nil, os.MkdirAll(cfg.tempDir, 0o755) //nolint:gosec // 0o755 is intentional for profiler temp dirs
	}
	dir, err := os.MkdirTemp("", "bfstool-profiler-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() error {
		if cfg.keepTemp {
			return nil
		}
		return os.RemoveAll(dir)
	}
	return dir, cleanup, nil
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func makeFiles(cfg config) []bfstool.File {
	generated := testutil.Files(cfg.files, cfg.fileSize, cfg.dirCount, testutil.Pattern(cfg.pattern), cfg.randomSeed)
	files := make([]bfstool.File, len(generated))
	for i, f := range generated {
		files[i] = bfstool.File{Name: f.Name, Data: f.Data}
	}
	return files
}

// buildArchive creates the archive every mode works on. Encrypted revisions
// stay deciphered so no key is needed.
func buildArchive(files []bfstool.File, rev bfstool.Revision, method bfstool.Method, logger *slog.Logger) (*bfstool.Archive, []byte, error) {
	return bfstool.Create(context.Background(), files, rev,
		bfstool.CreateWithMethod(method),
		bfstool.CreateWithDeciphered(true),
		bfstool.CreateWithLogger(logger),
	)
}

// startWallClockProfile starts an fgprof profile written to path in pprof
// format. The returned function stops it and closes the file.
func startWallClockProfile(path string) (func() error, error) {
	f, err := os.Create(path) //nolint:gosec // User-provided path is intentional
	if err != nil {
		return nil, err
	}
	stop := fgprof.Start(f, fgprof.FormatPprof)
	return func() error {
		err := stop()
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		return err
	}, nil
}
