package bfstool

import (
	"fmt"

	"github.com/meigma/bfstool/internal/cipher"
)

// Decrypt deciphers a whole archive of revision rev. Revisions without a
// cipher are returned unchanged. data is never modified.
func Decrypt(data []byte, rev Revision, keys KeyRing) ([]byte, error) {
	if !cipher.Required(rev) {
		return data, nil
	}
	out, err := cipher.Decrypt(data, keys)
	if err != nil {
		return nil, fmt.Errorf("decrypt %s: %w", rev, err)
	}
	return out, nil
}

// Encrypt enciphers a plaintext archive of revision rev. Revisions without
// a cipher are returned unchanged. data is never modified.
func Encrypt(data []byte, rev Revision, keys KeyRing) ([]byte, error) {
	if !cipher.Required(rev) {
		return data, nil
	}
	out, err := cipher.Encrypt(data, keys)
	if err != nil {
		return nil, fmt.Errorf("encrypt %s: %w", rev, err)
	}
	return out, nil
}
