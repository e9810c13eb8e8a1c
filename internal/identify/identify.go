package identify

import (
	"crypto/md5"  //nolint:gosec // digest of reference data, not security
	"crypto/sha1" //nolint:gosec // digest of reference data, not security
	"encoding/hex"
	"fmt"
	"hash/crc32"
	"io"
	"path"
	"strings"
)

// Hint tells a caller what to try after a miss.
type Hint uint8

const (
	HintNone Hint = iota
	// HintRetrySlow means the fast path missed and hashing the content
	// may still find a match.
	HintRetrySlow
	// HintUnknownFormat means a record matched but its format name does not
	// map to a known revision.
	HintUnknownFormat
)

// String returns a short description of the hint.
func (h Hint) String() string {
	switch h {
	case HintRetrySlow:
		return "retry without fast identify"
	case HintUnknownFormat:
		return "record format is unknown"
	default:
		return "none"
	}
}

// Digests holds content digests as upper-case hex.
type Digests struct {
	CRC32 string
	MD5   string
	SHA1  string
}

// Result is the outcome of an identification. A miss is a normal result
// with a nil Record.
type Result struct {
	// Record is the first matching record.
	Record *Record
	// Matches holds every matching record; re-released identical files
	// legitimately share digests.
	Matches []Record
	Hint    Hint
	// Digests is set when content was hashed.
	Digests Digests
	// Fast reports whether the result came from the file name alone.
	Fast bool
}

// Found reports whether a record matched.
func (r Result) Found() bool {
	return r.Record != nil
}

// Compute hashes r once and returns CRC32 (ISO-HDLC), MD5, and SHA1.
func Compute(r io.Reader) (Digests, error) {
	c := crc32.NewIEEE()
	m := md5.New()  //nolint:gosec // reference digest
	s := sha1.New() //nolint:gosec // reference digest
	if _, err := io.Copy(io.MultiWriter(c, m, s), r); err != nil {
		return Digests{}, fmt.Errorf("identify: hash content: %w", err)
	}
	return Digests{
		CRC32: fmt.Sprintf("%08X", c.Sum32()),
		MD5:   strings.ToUpper(hex.EncodeToString(m.Sum(nil))),
		SHA1:  strings.ToUpper(hex.EncodeToString(s.Sum(nil))),
	}, nil
}

// Identify hashes the whole content of r and returns the records matching
// on all three digests.
func (d *Database) Identify(r io.Reader) (Result, error) {
	sums, err := Compute(r)
	if err != nil {
		return Result{}, err
	}
	return d.Match(sums), nil
}

// Match returns the records agreeing with every digest in sums.
func (d *Database) Match(sums Digests) Result {
	res := Result{Digests: sums}
	for _, rec := range d.lookup(sums.CRC32) {
		if rec.MD5 == sums.MD5 && rec.SHA1 == sums.SHA1 {
			res.Matches = append(res.Matches, rec)
		}
	}
	return finish(res)
}

// IdentifyFast trusts a CRC32 embedded in the base of name and looks it up
// without reading content. The CRC is the last run of exactly eight hex
// digits in the name stem, e.g. "fo2a [1A2B3C4D].bfs". Records carrying a
// size must also match size. A miss or a name without a CRC yields
// HintRetrySlow.
func (d *Database) IdentifyFast(name string, size int64) Result {
	res := Result{Fast: true}
	crc, ok := CRCFromName(name)
	if !ok {
		res.Hint = HintRetrySlow
		return res
	}
	res.Digests.CRC32 = crc
	for _, rec := range d.lookup(crc) {
		if rec.Size != 0 && rec.Size != size {
			continue
		}
		res.Matches = append(res.Matches, rec)
	}
	res = finish(res)
	if !res.Found() {
		res.Hint = HintRetrySlow
	}
	return res
}

// Verify hashes r and returns the content-based result together with whether
// it confirms the record res was resolved to. It turns a fast result into a
// checked one.
func (d *Database) Verify(res Result, r io.Reader) (Result, bool, error) {
	if !res.Found() {
		return res, false, nil
	}
	sums, err := Compute(r)
	if err != nil {
		return res, false, err
	}
	checked := d.Match(sums)
	return checked, checked.Found() && sums.CRC32 == res.Record.CRC32, nil
}

func finish(res Result) Result {
	if len(res.Matches) == 0 {
		return res
	}
	res.Record = &res.Matches[0]
	if _, err := res.Record.Revision(); err != nil {
		res.Hint = HintUnknownFormat
	}
	return res
}

// CRCFromName extracts an upper-case CRC32 from a file name.
func CRCFromName(name string) (string, bool) {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	stem := strings.TrimSuffix(base, path.Ext(base))
	found := ""
	run := 0
	for i := 0; i <= len(stem); i++ {
		if i < len(stem) && isHex(stem[i]) {
			run++
			continue
		}
		if run == 8 {
			found = stem[i-8 : i]
		}
		run = 0
	}
	if found == "" {
		return "", false
	}
	return strings.ToUpper(found), true
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
