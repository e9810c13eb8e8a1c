package batch

import (
	"io"

	"github.com/meigma/bfstool/internal/bfstype"
)

// Entry is an alias for bfstype.Entry.
type Entry = bfstype.Entry

// Item is one archive entry queued for processing. Index is the entry's
// position in its archive and keys the report.
type Item struct {
	Index int
	Entry *Entry
}

// Sink receives decoded and verified entry content.
//
// Implementations determine where content is written and can filter which
// entries to process.
type Sink interface {
	// ShouldProcess returns false if this entry should be skipped.
	ShouldProcess(item *Item) bool

	// Writer returns a writer for the entry's content.
	// The returned Committer has Commit called after a successful write, or
	// Discard called on any error.
	Writer(item *Item) (Committer, error)
}

// BufferedSink allows sinks to take decoded content without copying.
//
// Implementations should not mutate the content slice.
type BufferedSink interface {
	PutBuffered(item *Item, content []byte) error
}

// Committer is a writer that can be committed or discarded.
type Committer interface {
	io.Writer

	// Commit finalizes the write, making content available.
	Commit() error

	// Discard aborts the write and cleans up any temporary resources.
	Discard() error
}
