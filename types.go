package safeunzip

import (
	"github.com/archivekit/safeunzip/internal/config"
	"github.com/archivekit/safeunzip/internal/entry"
	"github.com/archivekit/safeunzip/internal/xerrors"
)

// OverwriteMode controls what happens when a file entry's target path
// already exists.
type OverwriteMode = config.OverwriteMode

const (
	OverwriteError   = config.OverwriteError
	OverwriteSkip    = config.OverwriteSkip
	OverwriteReplace = config.OverwriteReplace
)

// SymlinkBehavior controls how symlink entries are handled.
type SymlinkBehavior = config.SymlinkBehavior

const (
	SymlinkSkip  = config.SymlinkSkip
	SymlinkError = config.SymlinkError
)

// ExtractionMode controls whether the driver validates the whole archive
// before writing anything.
type ExtractionMode = config.ExtractionMode

const (
	ModeStreaming     = config.ModeStreaming
	ModeValidateFirst = config.ModeValidateFirst
)

// Limits are the resource bounds enforced by the policy chain.
type Limits = config.Limits

// DefaultLimits returns the library's default resource limits.
func DefaultLimits() Limits {
	return config.DefaultLimits()
}

// Selection narrows which entries are extracted by exact name or glob
// pattern.
type Selection = config.Selection

// FilterFunc is a user-supplied, advisory predicate over entry metadata.
type FilterFunc = config.FilterFunc

// Descriptor describes one archive entry, as seen by a FilterFunc.
type Descriptor = entry.Descriptor

// Report summarizes one Extract* call.
type Report struct {
	FilesExtracted int
	DirsCreated    int
	EntriesSkipped int
	BytesWritten   uint64
}

// Error is the tagged error sum returned by extraction failures.
type Error = xerrors.Error

// Kind identifies which member of the error sum an Error carries.
type Kind = xerrors.Kind

const (
	KindUnknown              = xerrors.KindUnknown
	KindPathEscape           = xerrors.KindPathEscape
	KindSymlinkNotAllowed    = xerrors.KindSymlinkNotAllowed
	KindTotalSizeExceeded    = xerrors.KindTotalSizeExceeded
	KindFileCountExceeded    = xerrors.KindFileCountExceeded
	KindFileTooLarge         = xerrors.KindFileTooLarge
	KindSizeMismatch         = xerrors.KindSizeMismatch
	KindPathTooDeep          = xerrors.KindPathTooDeep
	KindAlreadyExists        = xerrors.KindAlreadyExists
	KindInvalidFilename      = xerrors.KindInvalidFilename
	KindEncryptedEntry       = xerrors.KindEncryptedEntry
	KindUnsupportedEntryType = xerrors.KindUnsupportedEntryType
	KindDestinationNotFound  = xerrors.KindDestinationNotFound
	KindIO                   = xerrors.KindIO
	KindZip                  = xerrors.KindZip
	KindFormat               = xerrors.KindFormat
	KindJail                 = xerrors.KindJail
)

// Is reports whether err is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	return xerrors.Is(err, kind)
}

// GetKind extracts the Kind of err, or KindUnknown if err is not an
// *Error.
func GetKind(err error) Kind {
	return xerrors.GetKind(err)
}
