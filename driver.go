package safeunzip

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/archivekit/safeunzip/internal/config"
	"github.com/archivekit/safeunzip/internal/entry"
	"github.com/archivekit/safeunzip/internal/policy"
	"github.com/archivekit/safeunzip/internal/security"
	"github.com/archivekit/safeunzip/internal/xerrors"
)

// Driver is the extraction engine bound to one destination directory.
// It is safe to reuse across multiple Extract* calls and is not safe for
// concurrent use: a single Driver performs one extraction at a time.
//
// Every extraction runs through the same filename sanitizer, path jail,
// and policy chain; the options below only tune advisory and resource
// behavior, never the fixed security checks.
//
// In ModeStreaming, a Reject leaves already-written files on disk - the
// driver does not roll back partial extractions.
type Driver struct {
	jail *security.Jail

	limits    config.Limits
	overwrite config.OverwriteMode
	symlink   config.SymlinkBehavior
	mode      config.ExtractionMode
	selection config.Selection
	filter    config.FilterFunc
	logger    *logrus.Logger
}

// New returns a Driver rooted at destination, which must already exist.
func New(destination string, opts ...Option) (*Driver, error) {
	jail, err := security.NewJail(destination)
	if err != nil {
		return nil, err
	}

	d := &Driver{
		jail:      jail,
		limits:    config.DefaultLimits(),
		overwrite: config.OverwriteError,
		symlink:   config.SymlinkSkip,
		mode:      config.ModeStreaming,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// NewOrCreate is like New but creates destination (and any missing
// parents) first, mirroring os.MkdirAll's permissions.
func NewOrCreate(destination string, opts ...Option) (*Driver, error) {
	if err := os.MkdirAll(destination, 0o755); err != nil {
		return nil, xerrors.IO(err)
	}
	return New(destination, opts...)
}

// evaluate runs the fixed security checks, the jail, and - when
// enforceAdvisory is true - the advisory and resource checks, against
// one descriptor. enforceAdvisory is false only during pass 1 of
// ModeValidateFirst, which validates resource limits against every
// entry regardless of selection, symlink behavior, or filter.
func (d *Driver) evaluate(desc entry.Descriptor, totals *policy.Totals, enforceAdvisory bool) (target string, verdict policy.Verdict, reason string, err error) {
	in := policy.Input{
		Descriptor: desc,
		Limits:     d.limits,
		Symlink:    d.symlink,
		Selection:  d.selection,
		Filter:     d.filter,
		Totals:     totals,
	}

	if r := policy.Run(policy.SecurityChecks, in); r.Verdict == policy.Reject {
		return "", policy.Reject, "", r.Err
	}
	if err := security.SanitizeName(desc.Name); err != nil {
		return "", policy.Reject, "", err
	}

	target, err = d.jail.Resolve(desc.Name)
	if err != nil {
		return "", policy.Reject, "", err
	}
	in.TargetPath = target

	if enforceAdvisory {
		if r := policy.Run(policy.AdvisoryChecks, in); r.Verdict != policy.Allow {
			if r.Verdict == policy.Reject {
				return target, policy.Reject, "", r.Err
			}
			return target, policy.Skip, r.Reason, nil
		}
	}

	if r := policy.Run(policy.ResourceChecks, in); r.Verdict != policy.Allow {
		return target, policy.Reject, "", r.Err
	}

	return target, policy.Allow, "", nil
}

func (d *Driver) logSkip(desc entry.Descriptor, reason string) {
	if d.logger == nil {
		return
	}
	d.logger.WithFields(logrus.Fields{
		"entry":  desc.Name,
		"reason": reason,
	}).Debug("safeunzip: entry skipped")
}

func (d *Driver) logReject(desc entry.Descriptor, err error) {
	if d.logger == nil {
		return
	}
	d.logger.WithFields(logrus.Fields{
		"entry": desc.Name,
		"kind":  xerrors.GetKind(err).String(),
	}).Warn("safeunzip: entry rejected")
}

func (d *Driver) logMaterialized(desc entry.Descriptor) {
	if d.logger == nil {
		return
	}
	d.logger.WithFields(logrus.Fields{
		"entry": desc.Name,
		"kind":  desc.Kind.String(),
	}).Debug("safeunzip: entry materialized")
}

func reportFrom(totals *policy.Totals) Report {
	return Report{
		FilesExtracted: totals.FilesExtracted,
		DirsCreated:    totals.DirsCreated,
		EntriesSkipped: totals.EntriesSkipped,
		BytesWritten:   totals.BytesWritten,
	}
}
