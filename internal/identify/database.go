// Package identify matches archives against a database of known releases.
package identify

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/meigma/bfstool/internal/bfstype"
)

// ErrInvalidDatabase is returned when reference data cannot be loaded.
var ErrInvalidDatabase = errors.New("identify: invalid database")

//go:embed known_files.yaml
var embeddedDatabase []byte

// Record describes one known archive release.
type Record struct {
	FileName   string   `yaml:"file_name"`
	Game       string   `yaml:"game"`
	Platform   string   `yaml:"platform"`
	Format     string   `yaml:"format"`
	Filter     string   `yaml:"filter"`
	CopyFilter string   `yaml:"copy_filter"`
	Source     []string `yaml:"source"`
	Size       int64    `yaml:"size,omitempty"`
	CRC32      string   `yaml:"crc32"`
	MD5        string   `yaml:"md5"`
	SHA1       string   `yaml:"sha1"`
}

// Revision resolves the record's format name.
func (r *Record) Revision() (bfstype.Revision, error) {
	return bfstype.ParseRevision(r.Format)
}

var (
	crcPattern  = regexp.MustCompile(`^[0-9A-F]{8}$`)
	md5Pattern  = regexp.MustCompile(`^[0-9A-F]{32}$`)
	sha1Pattern = regexp.MustCompile(`^[0-9A-F]{40}$`)
)

// Database is an immutable set of known records indexed by CRC32.
type Database struct {
	records []Record
	byCRC   map[string][]int
}

// New builds a Database from records. Digests are normalized to upper case
// and validated. Records sharing digests are all kept.
func New(records []Record) (*Database, error) {
	db := &Database{
		records: make([]Record, len(records)),
		byCRC:   make(map[string][]int, len(records)),
	}
	for i, rec := range records {
		rec.CRC32 = strings.ToUpper(strings.TrimSpace(rec.CRC32))
		rec.MD5 = strings.ToUpper(strings.TrimSpace(rec.MD5))
		rec.SHA1 = strings.ToUpper(strings.TrimSpace(rec.SHA1))
		rec.Source = append([]string(nil), rec.Source...)
		switch {
		case !crcPattern.MatchString(rec.CRC32):
			return nil, fmt.Errorf("%w: record %d (%s): crc32 %q", ErrInvalidDatabase, i, rec.FileName, rec.CRC32)
		case !md5Pattern.MatchString(rec.MD5):
			return nil, fmt.Errorf("%w: record %d (%s): md5 %q", ErrInvalidDatabase, i, rec.FileName, rec.MD5)
		case !sha1Pattern.MatchString(rec.SHA1):
			return nil, fmt.Errorf("%w: record %d (%s): sha1 %q", ErrInvalidDatabase, i, rec.FileName, rec.SHA1)
		}
		db.records[i] = rec
		db.byCRC[rec.CRC32] = append(db.byCRC[rec.CRC32], i)
	}
	return db, nil
}

// Load reads a YAML list of records.
func Load(r io.Reader) (*Database, error) {
	var records []Record
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&records); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDatabase, err)
	}
	return New(records)
}

// Default loads the database embedded in the binary.
func Default() (*Database, error) {
	return Load(bytes.NewReader(embeddedDatabase))
}

// Len returns the number of records.
func (d *Database) Len() int {
	return len(d.records)
}

// lookup returns copies of the records with the given CRC32.
func (d *Database) lookup(crc string) []Record {
	idx := d.byCRC[crc]
	if len(idx) == 0 {
		return nil
	}
	out := make([]Record, len(idx))
	for i, j := range idx {
		out[i] = d.records[j]
		out[i].Source = append([]string(nil), d.records[j].Source...)
	}
	return out
}
