// Package adapter normalizes archive formats into a single stream of
// entry.Descriptor values the extraction driver can run through the
// policy chain without knowing whether the underlying archive is a ZIP
// or a TAR.
package adapter

import (
	"io"

	"github.com/archivekit/safeunzip/internal/entry"
)

// Adapter iterates one archive's entries in the format's native order
// (central-directory order for ZIP, stream order for TAR).
//
// Next returns io.EOF once the archive is exhausted. Open returns the
// payload reader for the descriptor most recently returned by Next, and
// is only ever called for entry.KindFile descriptors - callers must not
// call Open for directories or symlinks.
type Adapter interface {
	Next() (entry.Descriptor, error)
	Open() (io.Reader, error)
	Close() error
}
