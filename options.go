package safeunzip

import (
	"github.com/sirupsen/logrus"

	"github.com/archivekit/safeunzip/internal/config"
)

// Option configures a Driver at construction time.
type Option func(*Driver)

// WithLimits overrides the default resource limits.
func WithLimits(limits config.Limits) Option {
	return func(d *Driver) {
		d.limits = limits
	}
}

// WithOverwriteMode sets what happens when a file entry's target already
// exists. Default: OverwriteError.
func WithOverwriteMode(mode OverwriteMode) Option {
	return func(d *Driver) {
		d.overwrite = mode
	}
}

// WithSymlinkBehavior sets how symlink entries are handled. Default:
// SymlinkSkip.
func WithSymlinkBehavior(behavior SymlinkBehavior) Option {
	return func(d *Driver) {
		d.symlink = behavior
	}
}

// WithExtractionMode selects streaming or validate-first extraction.
// Default: ModeStreaming.
func WithExtractionMode(mode ExtractionMode) Option {
	return func(d *Driver) {
		d.mode = mode
	}
}

// WithSelection narrows extraction to a subset of entries by exact name
// or glob pattern.
func WithSelection(selection Selection) Option {
	return func(d *Driver) {
		d.selection = selection
	}
}

// WithFilter installs an advisory predicate over entry metadata. The
// filter must be safe to call repeatedly and, if shared across Drivers,
// safe for concurrent use. It never widens what the fixed security
// checks allow - it only narrows further.
func WithFilter(filter FilterFunc) Option {
	return func(d *Driver) {
		d.filter = filter
	}
}

// WithLogger installs a structured logger for diagnostic, per-entry
// lifecycle events. Nil (the default) disables logging. The logger never
// influences any extraction decision.
func WithLogger(logger *logrus.Logger) Option {
	return func(d *Driver) {
		d.logger = logger
	}
}
