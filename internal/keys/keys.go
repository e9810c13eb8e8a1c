// Package keys loads cipher key material from a Keys.toml file.
//
// The file holds one table per cipher profile:
//
//	[bzf2001]
//	key = "<hex>"
//
// Key text never appears in returned errors.
package keys

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/BurntSushi/toml"

	"github.com/meigma/bfstool/internal/cipher"
)

// FileName is the key file's base name.
const FileName = "Keys.toml"

// ErrInvalidKeyFile is returned when a key file cannot be decoded.
var ErrInvalidKeyFile = errors.New("keys: invalid key file")

type profile struct {
	Key string `toml:"key"`
}

// Path returns the default key file location,
// $XDG_CONFIG_HOME/bfstool/Keys.toml or ~/.config/bfstool/Keys.toml.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "bfstool", FileName)
}

// Load reads the key file at the default path. A missing file yields an
// empty ring.
func Load() (cipher.KeyRing, error) {
	path := Path()
	if path == "" {
		return cipher.KeyRing{}, nil
	}
	return LoadFile(path)
}

// LoadFile reads the key file at path. A missing file yields an empty ring.
func LoadFile(path string) (cipher.KeyRing, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cipher.KeyRing{}, nil
		}
		return nil, fmt.Errorf("open key file: %w", err)
	}
	defer f.Close()
	ring, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ring, nil
}

// Decode parses key file content.
func Decode(r io.Reader) (cipher.KeyRing, error) {
	var doc map[string]profile
	md, err := toml.NewDecoder(r).Decode(&doc)
	if err != nil {
		// Parse errors can quote the offending line; report only where it is.
		var pe toml.ParseError
		if errors.As(err, &pe) {
			return nil, fmt.Errorf("%w: syntax error on line %d", ErrInvalidKeyFile, pe.Position.Line)
		}
		return nil, fmt.Errorf("%w: unexpected structure", ErrInvalidKeyFile)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: unknown key %q", ErrInvalidKeyFile, undecoded[0].String())
	}

	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	slices.Sort(names)

	ring := make(cipher.KeyRing, len(doc))
	for _, name := range names {
		text := doc[name].Key
		if text == "" {
			return nil, fmt.Errorf("%w: profile %s has no key", ErrInvalidKeyFile, name)
		}
		key, err := hex.DecodeString(text)
		if err != nil {
			return nil, fmt.Errorf("%w: profile %s key is not hex", ErrInvalidKeyFile, name)
		}
		ring[name] = cipher.Key(key)
	}
	return ring, nil
}
