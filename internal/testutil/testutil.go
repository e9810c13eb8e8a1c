// Package testutil synthesizes archive content for tests, benchmarks, and
// the profiler.
package testutil

import (
	"fmt"
	"math/rand" //nolint:gosec // reproducible content, not security
	"os"
	"path/filepath"
	"strings"
)

// Pattern selects how generated file content looks to a compressor.
type Pattern string

const (
	// Compressible content is a repeated byte with a unique first byte.
	Compressible Pattern = "compressible"
	// Random content does not compress.
	Random Pattern = "random"
)

// File is one generated archive member.
type File struct {
	Name string
	Data []byte
}

// Noise returns n bytes that do not compress, fixed for a given seed.
func Noise(n int, seed int64) []byte {
	out := make([]byte, n)
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible content
	_, _ = rng.Read(out)                  //nolint:errcheck // never fails
	return out
}

// Text returns n bytes of repetitive text.
func Text(n int) []byte {
	line := "[version]\nbuild=1\n"
	return []byte(strings.Repeat(line, n/len(line)+1)[:n])
}

// Files generates count files of size bytes spread over dirCount folders.
// Names look like "data/dir03/file00042.dat".
func Files(count, size, dirCount int, pattern Pattern, seed int64) []File {
	if dirCount <= 0 {
		dirCount = 1
	}
	files := make([]File, 0, count)
	for i := range count {
		var content []byte
		switch pattern {
		case Random:
			content = Noise(size, seed+int64(i))
		default:
			content = make([]byte, size)
			fill := byte('a' + (i % 26))
			for j := range content {
				content[j] = fill
			}
			if len(content) > 0 {
				content[0] = byte(i)
			}
		}
		files = append(files, File{
			Name: fmt.Sprintf("data/dir%02d/file%05d.dat", i%dirCount, i),
			Data: content,
		})
	}
	return files
}

// WriteTree writes files below dir, creating folders as needed.
func WriteTree(dir string, files []File) error {
	for _, f := range files {
		p := filepath.Join(dir, filepath.FromSlash(f.Name))
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			return err
		}
		if err := os.WriteFile(p, f.Data, 0o600); err != nil {
			return err
		}
	}
	return nil
}
