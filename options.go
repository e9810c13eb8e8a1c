package bfstool

import (
	"log/slog"

	"github.com/meigma/bfstool/internal/bfstype"
	"github.com/meigma/bfstool/internal/cipher"
	"github.com/meigma/bfstool/internal/identify"
)

// Option configures Parse and OpenFile.
type Option func(*config)

type config struct {
	revision     bfstype.Revision
	hasRevision  bool
	keys         cipher.KeyRing
	force        bool
	fastIdentify bool
	database     *identify.Database
	maxDecoded   uint64
	logger       *slog.Logger

	// plaintext marks bytes that are already deciphered.
	plaintext bool
}

// WithRevision sets the container revision instead of identifying it.
func WithRevision(rev Revision) Option {
	return func(c *config) {
		c.revision = rev
		c.hasRevision = true
	}
}

// WithKeys supplies key material for encrypted revisions.
func WithKeys(keys KeyRing) Option {
	return func(c *config) {
		c.keys = keys
	}
}

// WithForce skips magic, version, and hash size checks.
func WithForce(force bool) Option {
	return func(c *config) {
		c.force = force
	}
}

// WithDeciphered marks input of an encrypted revision as already
// deciphered, such as the output of Decrypt.
func WithDeciphered(deciphered bool) Option {
	return func(c *config) {
		c.plaintext = deciphered
	}
}

// WithFastIdentify lets OpenFile trust a CRC32 embedded in the file name
// before falling back to hashing the content.
func WithFastIdentify(enabled bool) Option {
	return func(c *config) {
		c.fastIdentify = enabled
	}
}

// WithDatabase sets the known-file database used for identification.
// By default the embedded database is used.
func WithDatabase(db *Database) Option {
	return func(c *config) {
		c.database = db
	}
}

// WithMaxDecoderMemory caps the memory a zstd decoder may allocate.
// Zero means no limit.
func WithMaxDecoderMemory(limit uint64) Option {
	return func(c *config) {
		c.maxDecoded = limit
	}
}

// WithLogger sets the logger for diagnostics.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

func (c *config) db() (*identify.Database, error) {
	if c.database != nil {
		return c.database, nil
	}
	return identify.Default()
}

// ExtractOption configures Extract.
type ExtractOption func(*extractConfig)

type extractConfig struct {
	patterns  []string
	workers   int
	overwrite bool
	logger    *slog.Logger
	progress  ProgressFunc
}

// ExtractWithPattern limits extraction to entries matching any of the
// glob patterns. The default is every entry.
func ExtractWithPattern(patterns ...string) ExtractOption {
	return func(c *extractConfig) {
		c.patterns = append(c.patterns, patterns...)
	}
}

// ExtractWithWorkers sets the number of workers for parallel extraction.
// Values < 0 force serial processing. Zero uses automatic heuristics.
// Values > 0 force a specific worker count.
func ExtractWithWorkers(n int) ExtractOption {
	return func(c *extractConfig) {
		c.workers = n
	}
}

// ExtractWithOverwrite allows overwriting existing files.
// By default, existing files are skipped.
func ExtractWithOverwrite(overwrite bool) ExtractOption {
	return func(c *extractConfig) {
		c.overwrite = overwrite
	}
}

// ExtractWithLogger sets the logger for extraction diagnostics.
// If not set, the archive's logger is used.
func ExtractWithLogger(logger *slog.Logger) ExtractOption {
	return func(c *extractConfig) {
		c.logger = logger
	}
}

// ExtractWithProgress sets a callback receiving one event per finished
// entry.
func ExtractWithProgress(fn ProgressFunc) ExtractOption {
	return func(c *extractConfig) {
		c.progress = fn
	}
}

// CreateOption configures Create and CreateFromDir.
type CreateOption func(*createConfig)

type createConfig struct {
	filter      []FilterRule
	hasFilter   bool
	copies      []CopyRule
	method      bfstype.Method
	level       int
	alignment   uint64
	noDedup     bool
	keys        cipher.KeyRing
	deciphered  bool
	maxFileSize uint64
	logger      *slog.Logger
	progress    ProgressFunc
}

// CreateWithFilter sets the rules choosing which files are compressed.
// Files the rules exclude are stored. Without rules every file is
// compressed.
func CreateWithFilter(rules []FilterRule) CreateOption {
	return func(c *createConfig) {
		c.filter = rules
		c.hasFilter = true
	}
}

// CreateWithCopyRules sets the rules choosing mirror counts per file.
func CreateWithCopyRules(rules []CopyRule) CreateOption {
	return func(c *createConfig) {
		c.copies = rules
	}
}

// CreateWithMethod sets the compression method for included files.
// The default is zlib. MethodStore disables compression entirely.
func CreateWithMethod(m Method) CreateOption {
	return func(c *createConfig) {
		c.method = m
	}
}

// CreateWithLevel sets the compression level. Negative values use each
// algorithm's default.
func CreateWithLevel(level int) CreateOption {
	return func(c *createConfig) {
		c.level = level
	}
}

// CreateWithAlignment aligns every payload offset to a multiple of n bytes.
func CreateWithAlignment(n uint64) CreateOption {
	return func(c *createConfig) {
		c.alignment = n
	}
}

// CreateWithDedup controls whether identical files share one stored
// payload. It is enabled by default.
func CreateWithDedup(enabled bool) CreateOption {
	return func(c *createConfig) {
		c.noDedup = !enabled
	}
}

// CreateWithKeys supplies key material. Bzf2001 output is enciphered when
// a key is present.
func CreateWithKeys(keys KeyRing) CreateOption {
	return func(c *createConfig) {
		c.keys = keys
	}
}

// CreateWithDeciphered leaves output of an encrypted revision deciphered.
// The result can be read back with WithDeciphered or enciphered later with
// Encrypt. Without it, Create fails with ErrMissingKey when no key is given.
func CreateWithDeciphered(deciphered bool) CreateOption {
	return func(c *createConfig) {
		c.deciphered = deciphered
	}
}

// CreateWithMaxFileSize limits the size of files read by CreateFromDir.
// Zero uses the 32-bit limit of the size fields.
func CreateWithMaxFileSize(limit uint64) CreateOption {
	return func(c *createConfig) {
		c.maxFileSize = limit
	}
}

// CreateWithLogger sets the logger for creation diagnostics.
func CreateWithLogger(logger *slog.Logger) CreateOption {
	return func(c *createConfig) {
		c.logger = logger
	}
}

// CreateWithProgress sets a callback to receive progress updates while
// files are read and encoded.
func CreateWithProgress(fn ProgressFunc) CreateOption {
	return func(c *createConfig) {
		c.progress = fn
	}
}
