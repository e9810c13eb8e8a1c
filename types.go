package bfstool

import (
	"github.com/meigma/bfstool/internal/batch"
	"github.com/meigma/bfstool/internal/bfstype"
	"github.com/meigma/bfstool/internal/cipher"
	"github.com/meigma/bfstool/internal/filter"
	"github.com/meigma/bfstool/internal/identify"
	"github.com/meigma/bfstool/internal/keys"
)

// Revision identifies a container layout.
type Revision = bfstype.Revision

// Method identifies the encoding of an entry's stored bytes.
type Method = bfstype.Method

// Entry is one file record of an archive.
type Entry = bfstype.Entry

// CopyDescriptor relates entries that share one stored payload.
type CopyDescriptor = bfstype.CopyDescriptor

// KeyRing maps cipher profile names to key material.
type KeyRing = cipher.KeyRing

// Key is secret key material that never formats its bytes.
type Key = cipher.Key

// FilterRule is a glob with an include or exclude polarity.
type FilterRule = filter.Rule

// CopyRule assigns mirror counts to matching paths.
type CopyRule = filter.CopyRule

// Decision is the outcome of evaluating filter rules.
type Decision = filter.Decision

// ExtractReport collects per-entry extraction outcomes keyed by entry index.
type ExtractReport = batch.Report

// ExtractResult is the outcome of extracting one entry.
type ExtractResult = batch.Result

// ExtractStatus is the state of one extracted entry.
type ExtractStatus = batch.Status

// IdentifyResult is the outcome of an identification.
type IdentifyResult = identify.Result

// KnownFile describes one known archive release.
type KnownFile = identify.Record

// Database is an immutable set of known archive releases.
type Database = identify.Database

// Revision constants.
const (
	Bzf2001       = bfstype.Bzf2001
	Bzf2          = bfstype.Bzf2
	Bfs1RevisionA = bfstype.Bfs1RevisionA
	Bfs1RevisionB = bfstype.Bfs1RevisionB
	Bfs1RevisionC = bfstype.Bfs1RevisionC
	Bbfs          = bfstype.Bbfs
)

// Method constants.
const (
	MethodStore   = bfstype.MethodStore
	MethodZlib    = bfstype.MethodZlib
	MethodZstd    = bfstype.MethodZstd
	MethodUnknown = bfstype.MethodUnknown
)

// Filter decisions.
const (
	Exclude = filter.Exclude
	Include = filter.Include
)

// Extraction states.
const (
	StatusExtracted = batch.StatusExtracted
	StatusSkipped   = batch.StatusSkipped
	StatusFailed    = batch.StatusFailed
)

// Identification hints.
const (
	HintNone          = identify.HintNone
	HintRetrySlow     = identify.HintRetrySlow
	HintUnknownFormat = identify.HintUnknownFormat
)

// ParseRevision converts a revision name such as "bfs1a" to a Revision.
var ParseRevision = bfstype.ParseRevision

// ParseMethod converts a method name to a Method.
var ParseMethod = bfstype.ParseMethod

// Filter rule helpers re-exported from the filter engine.
var (
	ParseFilterRules = filter.Parse
	ParseCopyRules   = filter.ParseCopyRules
	EvaluateFilter   = filter.Evaluate
	EvaluateCopies   = filter.EvaluateCopies
	NamedFilter      = filter.Named
	NamedCopyRules   = filter.NamedCopyRules
	FilterNames      = filter.Names
	CopyFilterNames  = filter.CopyNames
)

// NewDatabase builds a known-file database from records.
var NewDatabase = identify.New

// Key file loading.
var (
	// LoadKeys reads the key file at the default location. A missing file
	// yields an empty ring.
	LoadKeys = keys.Load

	// LoadKeysFile reads the key file at path. A missing file yields an
	// empty ring.
	LoadKeysFile = keys.LoadFile

	// KeysPath returns the default key file location.
	KeysPath = keys.Path
)
