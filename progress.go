package bfstool

import "github.com/meigma/bfstool/internal/bfstype"

// Re-export progress types from the shared model.
type (
	// ProgressEvent represents a progress update during creation or extraction.
	ProgressEvent = bfstype.ProgressEvent

	// ProgressStage identifies the current phase of an operation.
	ProgressStage = bfstype.ProgressStage

	// ProgressFunc receives progress updates during operations.
	// Calls are never concurrent, but during extraction they may come from
	// worker goroutines.
	ProgressFunc = bfstype.ProgressFunc
)

// Re-export progress stage constants.
const (
	// StageEnumerating indicates CreateFromDir is walking the directory tree.
	StageEnumerating = bfstype.StageEnumerating

	// StageCompressing indicates files are being encoded.
	StageCompressing = bfstype.StageCompressing

	// StageExtracting indicates entries are being extracted.
	StageExtracting = bfstype.StageExtracting
)
