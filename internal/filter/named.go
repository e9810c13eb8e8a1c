package filter

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed profiles
var profiles embed.FS

// Names lists the built-in filter profiles.
func Names() []string {
	return list("profiles/filters")
}

// CopyNames lists the built-in copy-filter profiles.
func CopyNames() []string {
	return list("profiles/copy")
}

// Named returns the rules of a built-in filter profile.
func Named(name string) ([]Rule, error) {
	f, err := profiles.Open(path.Join("profiles/filters", name+".txt"))
	if err != nil {
		return nil, fmt.Errorf("filter: unknown profile %q", name)
	}
	defer f.Close()
	return Parse(f)
}

// NamedCopyRules returns the rules of a built-in copy-filter profile.
func NamedCopyRules(name string) ([]CopyRule, error) {
	f, err := profiles.Open(path.Join("profiles/copy", name+".txt"))
	if err != nil {
		return nil, fmt.Errorf("filter: unknown copy profile %q", name)
	}
	defer f.Close()
	return ParseCopyRules(f)
}

func list(dir string) []string {
	entries, err := fs.ReadDir(profiles, dir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".txt"))
	}
	sort.Strings(names)
	return names
}
