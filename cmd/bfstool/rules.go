package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/meigma/bfstool"
)

// loadFilter resolves ref as a rule file when one exists at that path, and
// as a built-in profile name otherwise.
func loadFilter(ref string) ([]bfstool.FilterRule, error) {
	f, err := os.Open(ref)
	if errors.Is(err, fs.ErrNotExist) {
		return bfstool.NamedFilter(ref)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return bfstool.ParseFilterRules(f)
}

func loadCopyRules(ref string) ([]bfstool.CopyRule, error) {
	f, err := os.Open(ref)
	if errors.Is(err, fs.ErrNotExist) {
		return bfstool.NamedCopyRules(ref)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return bfstool.ParseCopyRules(f)
}

// writeFile writes data to a temp file next to path and renames it into
// place.
func writeFile(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
