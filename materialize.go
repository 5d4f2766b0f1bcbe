package safeunzip

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/archivekit/safeunzip/internal/adapter"
	"github.com/archivekit/safeunzip/internal/config"
	"github.com/archivekit/safeunzip/internal/entry"
	"github.com/archivekit/safeunzip/internal/policy"
	"github.com/archivekit/safeunzip/internal/xerrors"
)

// copyChunkSize is the buffer size used when streaming a file entry's
// payload to disk.
const copyChunkSize = 32 * 1024

// ensureDirChain makes sure path and every ancestor up to (but not
// including) an already-existing directory exist, creating each missing
// one with mode 0o755 and counting it in totals.DirsCreated. It never
// follows a symlink in the path it creates: a missing component is
// always a fresh directory, never something resolved through a link.
func ensureDirChain(path string, totals *policy.Totals) error {
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return xerrors.IO(fmt.Errorf("%s exists and is not a directory", path))
		}
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return xerrors.IO(err)
	}

	parent := filepath.Dir(path)
	if parent != path {
		if err := ensureDirChain(parent, totals); err != nil {
			return err
		}
	}

	if err := os.Mkdir(path, 0o755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil
		}
		return xerrors.IO(err)
	}
	totals.DirsCreated++
	return nil
}

func (d *Driver) materializeDirectory(target string, totals *policy.Totals) error {
	return ensureDirChain(target, totals)
}

// materializeFile writes one file entry's payload to target under the
// driver's overwrite policy, enforcing the per-file cap and the
// cumulative size cap byte-by-byte as it copies.
func (d *Driver) materializeFile(target string, desc entry.Descriptor, payload io.Reader, totals *policy.Totals) error {
	if err := ensureDirChain(filepath.Dir(target), totals); err != nil {
		return err
	}

	f, skipped, err := d.openForWrite(target, desc)
	if err != nil {
		return err
	}
	if skipped {
		totals.EntriesSkipped++
		return nil
	}
	defer f.Close()

	bounded := adapter.NewBoundedReader(payload, d.limits.MaxSingleFile)
	buf := make([]byte, copyChunkSize)

	for {
		n, rerr := bounded.Read(buf)
		if n > 0 {
			wouldBe := totals.BytesWritten + uint64(n)
			if wouldBe > d.limits.MaxTotalBytes {
				return xerrors.TotalSizeExceeded(d.limits.MaxTotalBytes, wouldBe)
			}
			if _, werr := f.Write(buf[:n]); werr != nil {
				return xerrors.IO(werr)
			}
			totals.BytesWritten += uint64(n)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			// archive/zip withholds every byte past an entry's declared
			// uncompressed size and fails the read with zip.ErrFormat, so
			// the payload is known to be at least one byte longer than
			// declared.
			if errors.Is(rerr, zip.ErrFormat) {
				return xerrors.SizeMismatch(desc.Name, desc.DeclaredSize, desc.DeclaredSize+1)
			}
			return xerrors.IO(rerr)
		}
	}

	if bounded.Actual() > desc.DeclaredSize {
		return xerrors.SizeMismatch(desc.Name, desc.DeclaredSize, bounded.Actual())
	}

	if desc.HasMode {
		if err := f.Chmod(os.FileMode(desc.Mode & 0o777)); err != nil {
			return xerrors.IO(err)
		}
	}

	totals.FilesExtracted++
	return nil
}

// openForWrite opens target for writing under the driver's overwrite
// policy. The returned skipped is true only under OverwriteSkip when
// target already exists - the caller must not treat that as an error.
func (d *Driver) openForWrite(target string, desc entry.Descriptor) (*os.File, bool, error) {
	if d.overwrite == config.OverwriteReplace {
		if li, err := os.Lstat(target); err == nil && li.Mode()&os.ModeSymlink != 0 {
			if err := os.Remove(target); err != nil {
				return nil, false, xerrors.IO(err)
			}
		}
		f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, false, xerrors.IO(err)
		}
		return f, false, nil
	}

	// OverwriteError and OverwriteSkip both rely on O_EXCL as the
	// authoritative existence check - no Stat/Lstat probe beforehand,
	// which would leave a TOCTOU window between the probe and the open.
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			if d.overwrite == config.OverwriteSkip {
				return nil, true, nil
			}
			return nil, false, xerrors.AlreadyExists(desc.Name)
		}
		return nil, false, xerrors.IO(err)
	}
	return f, false, nil
}
