package bfstype

import (
	"fmt"
	"strings"
)

// Revision identifies one historical container layout.
type Revision uint8

const (
	RevisionUnknown Revision = iota
	Bzf2001
	Bzf2
	Bfs1RevisionA
	Bfs1RevisionB
	Bfs1RevisionC
	Bbfs
)

// Revisions lists every known revision in chronological order.
var Revisions = []Revision{Bzf2001, Bzf2, Bfs1RevisionA, Bfs1RevisionB, Bfs1RevisionC, Bbfs}

var revisionNames = map[Revision]string{
	Bzf2001:       "bzf2001",
	Bzf2:          "bzf2002",
	Bfs1RevisionA: "bfs2004a",
	Bfs1RevisionB: "bfs2004b",
	Bfs1RevisionC: "bfs2007",
	Bbfs:          "bfs2013",
}

// String returns the format name used by the known-file database and the CLI.
func (r Revision) String() string {
	if name, ok := revisionNames[r]; ok {
		return name
	}
	return "unknown"
}

// ParseRevision resolves a format name. Matching is case-insensitive and
// accepts the revision names as well as the historical format names.
func ParseRevision(s string) (Revision, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	switch key {
	case "bzf2001":
		return Bzf2001, nil
	case "bzf2", "bzf2002":
		return Bzf2, nil
	case "bfs1a", "bfs2004a", "bfs1-a", "bfs1revisiona":
		return Bfs1RevisionA, nil
	case "bfs1b", "bfs2004b", "bfs1-b", "bfs1revisionb":
		return Bfs1RevisionB, nil
	case "bfs1c", "bfs2007", "bfs1-c", "bfs1revisionc":
		return Bfs1RevisionC, nil
	case "bbfs", "bfs2013":
		return Bbfs, nil
	}
	return RevisionUnknown, fmt.Errorf("%w: %q", ErrUnsupportedRevision, s)
}

// Encrypted reports whether archives of this revision are stored enciphered.
func (r Revision) Encrypted() bool {
	return r == Bzf2001
}
