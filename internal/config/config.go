// Package config holds the immutable configuration types shared by the
// policy chain and the extraction driver: resource limits and the policy
// enums from the data model (overwrite mode, symlink behavior, extraction
// mode, selection).
//
// These types live in their own leaf package, separate from both
// internal/policy and the root safeunzip package, so that either can
// depend on them without creating an import cycle.
package config

import "github.com/archivekit/safeunzip/internal/entry"

const (
	DefaultMaxTotalBytes uint64 = 1 << 30   // 1 GiB
	DefaultMaxFileCount  int    = 10000
	DefaultMaxSingleFile uint64 = 100 << 20 // 100 MiB
	DefaultMaxPathDepth  int    = 50
)

// Limits are the immutable, inclusive upper bounds enforced by the policy
// chain's resource checks.
type Limits struct {
	MaxTotalBytes uint64
	MaxFileCount  int
	MaxSingleFile uint64
	MaxPathDepth  int
}

// DefaultLimits returns the library's default resource limits.
func DefaultLimits() Limits {
	return Limits{
		MaxTotalBytes: DefaultMaxTotalBytes,
		MaxFileCount:  DefaultMaxFileCount,
		MaxSingleFile: DefaultMaxSingleFile,
		MaxPathDepth:  DefaultMaxPathDepth,
	}
}

// OverwriteMode controls what happens when a file entry's target path
// already exists.
type OverwriteMode int

const (
	// OverwriteError fails the extraction if the target already exists.
	OverwriteError OverwriteMode = iota
	// OverwriteSkip counts the entry as skipped if the target already exists.
	OverwriteSkip
	// OverwriteReplace unlinks an existing symlink (if any) and truncates
	// an existing regular file before writing.
	OverwriteReplace
)

// SymlinkBehavior controls how symlink entries are handled.
type SymlinkBehavior int

const (
	// SymlinkSkip counts symlink entries as skipped without writing them.
	SymlinkSkip SymlinkBehavior = iota
	// SymlinkError rejects the extraction on the first symlink entry.
	SymlinkError
)

// ExtractionMode controls whether the driver validates the whole archive
// before writing anything.
type ExtractionMode int

const (
	// ModeStreaming runs a single pass: entries are validated and written
	// as they are read from the adapter.
	ModeStreaming ExtractionMode = iota
	// ModeValidateFirst runs a metadata-only validation pass over the
	// entire archive before a second pass performs the actual writes.
	// The validation pass ignores Selection, the filter and symlink
	// behavior, checking limits against every entry, so an archive can
	// fail validation because of entries the caller would have skipped.
	ModeValidateFirst
)

// FilterFunc is a user-supplied, advisory predicate over entry metadata.
// Returning false skips the entry. FilterFunc must never be treated as a
// security boundary - it runs after every fixed security check in the
// policy chain, never before.
type FilterFunc func(entry.Descriptor) bool

// Selection narrows which entries are extracted by exact name or glob
// pattern. A zero-value Selection matches everything. Directory entries
// are never narrowed by a Selection: the fields below apply to
// non-directory entries only.
type Selection struct {
	// Only, if non-empty, is the exact set of entry names to extract.
	Only []string
	// Include, if non-empty, is a set of glob patterns; at least one must
	// match for a non-directory entry to pass.
	Include []string
	// Exclude is a set of glob patterns; a match against any of them
	// skips the entry even if Only or Include matched.
	Exclude []string
}

// Empty reports whether the selection has no constraints at all.
func (s Selection) Empty() bool {
	return len(s.Only) == 0 && len(s.Include) == 0 && len(s.Exclude) == 0
}
