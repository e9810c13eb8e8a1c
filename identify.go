package bfstool

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/meigma/bfstool/internal/identify"
)

// DefaultDatabase returns the embedded known-file database.
func DefaultDatabase() (*Database, error) {
	return identify.Default()
}

// LoadDatabase reads a YAML known-file database.
func LoadDatabase(r io.Reader) (*Database, error) {
	return identify.Load(r)
}

// IdentifyOption configures Identify and IdentifyFile.
type IdentifyOption func(*identifyConfig)

type identifyConfig struct {
	database   *Database
	fast       bool
	verifyFast bool
}

// IdentifyWithDatabase sets the known-file database.
// By default the embedded database is used.
func IdentifyWithDatabase(db *Database) IdentifyOption {
	return func(c *identifyConfig) {
		c.database = db
	}
}

// IdentifyWithFast trusts a CRC32 embedded in the file name instead of
// hashing content. A miss carries HintRetrySlow.
func IdentifyWithFast(enabled bool) IdentifyOption {
	return func(c *identifyConfig) {
		c.fast = enabled
	}
}

// IdentifyWithVerify hashes the content after a fast hit and reports the
// content-based result.
func IdentifyWithVerify(enabled bool) IdentifyOption {
	return func(c *identifyConfig) {
		c.verifyFast = enabled
	}
}

func (c *identifyConfig) db() (*Database, error) {
	if c.database != nil {
		return c.database, nil
	}
	return identify.Default()
}

// Identify matches data against the known-file database by digest.
func Identify(data []byte, opts ...IdentifyOption) (IdentifyResult, error) {
	cfg := identifyConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	db, err := cfg.db()
	if err != nil {
		return IdentifyResult{}, err
	}
	return db.Identify(bytes.NewReader(data))
}

// IdentifyFile identifies the file at path. With IdentifyWithFast the
// content is only read when verification is requested.
func IdentifyFile(path string, opts ...IdentifyOption) (IdentifyResult, error) {
	cfg := identifyConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	db, err := cfg.db()
	if err != nil {
		return IdentifyResult{}, err
	}

	if cfg.fast {
		info, err := os.Stat(path)
		if err != nil {
			return IdentifyResult{}, fmt.Errorf("stat %s: %w", path, err)
		}
		res := db.IdentifyFast(filepath.Base(path), info.Size())
		if !cfg.verifyFast || !res.Found() {
			return res, nil
		}
		f, err := os.Open(path) //nolint:gosec // User-provided path is intentional
		if err != nil {
			return IdentifyResult{}, err
		}
		defer f.Close()
		checked, ok, err := db.Verify(res, f)
		if err != nil {
			return IdentifyResult{}, err
		}
		if !ok {
			return checked, fmt.Errorf("%w: name says %s, content does not match", ErrChecksumMismatch, res.Digests.CRC32)
		}
		return checked, nil
	}

	f, err := os.Open(path) //nolint:gosec // User-provided path is intentional
	if err != nil {
		return IdentifyResult{}, err
	}
	defer f.Close()
	return db.Identify(f)
}
