package safeunzip

import (
	"io"

	"github.com/archivekit/safeunzip/internal/adapter"
	"github.com/archivekit/safeunzip/internal/entry"
	"github.com/archivekit/safeunzip/internal/policy"
	"github.com/archivekit/safeunzip/internal/xerrors"
)

// processEntry runs the full policy chain (enforceAdvisory=true) against
// one descriptor and, on Allow, materializes it.
func (d *Driver) processEntry(a adapter.Adapter, desc entry.Descriptor, totals *policy.Totals) error {
	target, verdict, reason, err := d.evaluate(desc, totals, true)
	switch verdict {
	case policy.Reject:
		d.logReject(desc, err)
		return err
	case policy.Skip:
		totals.EntriesSkipped++
		d.logSkip(desc, reason)
		return nil
	}

	if desc.Kind != entry.KindDirectory {
		totals.SeenFiles++
	}

	switch desc.Kind {
	case entry.KindDirectory:
		if err := d.materializeDirectory(target, totals); err != nil {
			d.logReject(desc, err)
			return err
		}
	case entry.KindFile:
		payload, err := a.Open()
		if err != nil {
			err = xerrors.IO(err)
			d.logReject(desc, err)
			return err
		}
		skippedBefore := totals.EntriesSkipped
		if err := d.materializeFile(target, desc, payload, totals); err != nil {
			d.logReject(desc, err)
			return err
		}
		if totals.EntriesSkipped != skippedBefore {
			// OverwriteSkip found the target already present.
			d.logSkip(desc, "target already exists")
			return nil
		}
	default:
		// KindSymlink never reaches here: CheckSymlinkBehavior resolves
		// every symlink descriptor to Skip or Reject, never Allow.
		totals.EntriesSkipped++
		return nil
	}

	d.logMaterialized(desc)
	return nil
}

// extractStreaming runs a single pass over a, validating and
// materializing each descriptor as it is read.
func (d *Driver) extractStreaming(a adapter.Adapter) (Report, error) {
	totals := &policy.Totals{}
	for {
		desc, err := a.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return reportFrom(totals), err
		}
		if err := d.processEntry(a, desc, totals); err != nil {
			return reportFrom(totals), err
		}
	}
	return reportFrom(totals), nil
}

// validateOnly runs pass 1 of ModeValidateFirst over a: steps 1-4 and
// 9-12 against every descriptor, ignoring selection, symlink behavior,
// and the user filter. It performs no filesystem writes.
func (d *Driver) validateOnly(a adapter.Adapter) error {
	totals := &policy.Totals{}
	for {
		desc, err := a.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		_, verdict, _, err := d.evaluate(desc, totals, false)
		if verdict == policy.Reject {
			return err
		}

		if desc.Kind != entry.KindDirectory {
			totals.SeenFiles++
		}
		totals.BytesWritten += desc.DeclaredSize
	}
}
