package xerrors

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

// Kind identifies which member of the error sum an Error carries.
//
// New Kind values may be added in a minor release; callers that switch on
// Kind should keep a default case.
type Kind int

const (
	KindUnknown Kind = iota
	KindPathEscape
	KindSymlinkNotAllowed
	KindTotalSizeExceeded
	KindFileCountExceeded
	KindFileTooLarge
	KindSizeMismatch
	KindPathTooDeep
	KindAlreadyExists
	KindInvalidFilename
	KindEncryptedEntry
	KindUnsupportedEntryType
	KindDestinationNotFound
	KindIO
	KindZip
	KindFormat
	KindJail
)

func (k Kind) String() string {
	switch k {
	case KindPathEscape:
		return "PathEscape"
	case KindSymlinkNotAllowed:
		return "SymlinkNotAllowed"
	case KindTotalSizeExceeded:
		return "TotalSizeExceeded"
	case KindFileCountExceeded:
		return "FileCountExceeded"
	case KindFileTooLarge:
		return "FileTooLarge"
	case KindSizeMismatch:
		return "SizeMismatch"
	case KindPathTooDeep:
		return "PathTooDeep"
	case KindAlreadyExists:
		return "AlreadyExists"
	case KindInvalidFilename:
		return "InvalidFilename"
	case KindEncryptedEntry:
		return "EncryptedEntry"
	case KindUnsupportedEntryType:
		return "UnsupportedEntryType"
	case KindDestinationNotFound:
		return "DestinationNotFound"
	case KindIO:
		return "Io"
	case KindZip:
		return "Zip"
	case KindFormat:
		return "Format"
	case KindJail:
		return "Jail"
	default:
		return "Unknown"
	}
}

// Error is the tagged error sum returned by the extraction driver.
type Error struct {
	wrapped error
	Kind    Kind

	// Entry-identifying fields, populated depending on Kind.
	Entry     string
	Detail    string
	Target    string
	Reason    string
	EntryType string
	Path      string

	// Numeric fields, populated depending on Kind.
	Limit     uint64
	WouldBe   uint64
	Attempted int
	Size      uint64
	Declared  uint64
	Actual    uint64
	Depth     int
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.message()
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) message() string {
	switch e.Kind {
	case KindPathEscape:
		return fmt.Sprintf("entry %q escapes destination root: %s", e.Entry, e.Detail)
	case KindSymlinkNotAllowed:
		return fmt.Sprintf("entry %q is a symlink to %q, which the current policy rejects", e.Entry, e.Target)
	case KindTotalSizeExceeded:
		return fmt.Sprintf("cumulative extracted size would reach %s, exceeding the %s limit",
			humanize.Bytes(e.WouldBe), humanize.Bytes(e.Limit))
	case KindFileCountExceeded:
		return fmt.Sprintf("extracting the next entry would bring the file count to %d, exceeding the limit of %d",
			e.Attempted, e.Limit)
	case KindFileTooLarge:
		return fmt.Sprintf("entry %q declares size %s, exceeding the per-file limit of %s",
			e.Entry, humanize.Bytes(e.Size), humanize.Bytes(e.Limit))
	case KindSizeMismatch:
		return fmt.Sprintf("entry %q declared %s but decompressed to at least %s",
			e.Entry, humanize.Bytes(e.Declared), humanize.Bytes(e.Actual))
	case KindPathTooDeep:
		return fmt.Sprintf("entry %q has %d path components, exceeding the limit of %d", e.Entry, e.Depth, int(e.Limit))
	case KindAlreadyExists:
		return fmt.Sprintf("entry %q already exists at the destination", e.Entry)
	case KindInvalidFilename:
		return fmt.Sprintf("entry %q has an invalid name: %s", e.Entry, e.Reason)
	case KindEncryptedEntry:
		return fmt.Sprintf("entry %q is encrypted", e.Entry)
	case KindUnsupportedEntryType:
		return fmt.Sprintf("entry %q has an unsupported type: %s", e.Entry, e.EntryType)
	case KindDestinationNotFound:
		return fmt.Sprintf("destination %q does not exist", e.Path)
	case KindIO:
		return "i/o error"
	case KindZip:
		return "zip format error"
	case KindFormat:
		return "archive format error"
	case KindJail:
		return "path jail error"
	default:
		return "unknown error"
	}
}

// Unwrap returns the wrapped error, if any, supporting errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.wrapped
}

// Is reports whether err is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var xerr *Error
	if errors.As(err, &xerr) {
		return xerr.Kind == kind
	}
	return false
}

// GetKind extracts the Kind of err, or KindUnknown if err is not an *Error.
func GetKind(err error) Kind {
	var xerr *Error
	if errors.As(err, &xerr) {
		return xerr.Kind
	}
	return KindUnknown
}

// PathEscape reports that an entry's resolved path lies outside the destination root.
func PathEscape(entry, detail string) *Error {
	return &Error{Kind: KindPathEscape, Entry: entry, Detail: detail}
}

// SymlinkNotAllowed reports a symlink entry rejected by SymlinkBehavior=Error.
func SymlinkNotAllowed(entry, target string) *Error {
	return &Error{Kind: KindSymlinkNotAllowed, Entry: entry, Target: target}
}

// TotalSizeExceeded reports that writing an entry would exceed the cumulative size limit.
func TotalSizeExceeded(limit, wouldBe uint64) *Error {
	return &Error{Kind: KindTotalSizeExceeded, Limit: limit, WouldBe: wouldBe}
}

// FileCountExceeded reports that the next non-directory entry would exceed the file count limit.
func FileCountExceeded(limit uint64, attempted int) *Error {
	return &Error{Kind: KindFileCountExceeded, Limit: limit, Attempted: attempted}
}

// FileTooLarge reports that an entry's declared size exceeds the per-file limit.
func FileTooLarge(entry string, size, limit uint64) *Error {
	return &Error{Kind: KindFileTooLarge, Entry: entry, Size: size, Limit: limit}
}

// SizeMismatch reports that an entry decompressed to more than its declared size.
func SizeMismatch(entry string, declared, actual uint64) *Error {
	return &Error{Kind: KindSizeMismatch, Entry: entry, Declared: declared, Actual: actual}
}

// PathTooDeep reports that an entry's path exceeds the maximum depth.
func PathTooDeep(entry string, depth, limit int) *Error {
	return &Error{Kind: KindPathTooDeep, Entry: entry, Depth: depth, Limit: uint64(limit)}
}

// AlreadyExists reports that OverwriteError found an existing path.
func AlreadyExists(entry string) *Error {
	return &Error{Kind: KindAlreadyExists, Entry: entry}
}

// InvalidFilename reports that the sanitizer rejected an entry's name.
func InvalidFilename(entry, reason string) *Error {
	return &Error{Kind: KindInvalidFilename, Entry: entry, Reason: reason}
}

// EncryptedEntry reports a ZIP entry with the encryption bit set.
func EncryptedEntry(entry string) *Error {
	return &Error{Kind: KindEncryptedEntry, Entry: entry}
}

// UnsupportedEntryType reports a TAR entry that is neither file, directory, nor symlink.
func UnsupportedEntryType(entry, entryType string) *Error {
	return &Error{Kind: KindUnsupportedEntryType, Entry: entry, EntryType: entryType}
}

// DestinationNotFound reports that the strict constructor's destination does not exist.
func DestinationNotFound(path string) *Error {
	return &Error{Kind: KindDestinationNotFound, Path: path}
}

// IO wraps an underlying I/O error.
func IO(err error) *Error {
	return &Error{Kind: KindIO, wrapped: err}
}

// Zip wraps an underlying archive/zip error.
func Zip(err error) *Error {
	return &Error{Kind: KindZip, wrapped: err}
}

// Format wraps an underlying archive/tar (or other format) parse error.
func Format(err error) *Error {
	return &Error{Kind: KindFormat, wrapped: err}
}

// Jail wraps an internal path-jail resolution error (filepath.EvalSymlinks failures and the like).
func Jail(err error) *Error {
	return &Error{Kind: KindJail, wrapped: err}
}
