package safeunzip

import (
	"io"
	"os"

	"github.com/archivekit/safeunzip/internal/adapter"
	"github.com/archivekit/safeunzip/internal/config"
	"github.com/archivekit/safeunzip/internal/xerrors"
)

// ExtractZipReader extracts a ZIP archive from r, which must support
// random access and report its total size (ZIP's central directory sits
// at the end of the file).
func (d *Driver) ExtractZipReader(r io.ReaderAt, size int64) (Report, error) {
	if d.mode == config.ModeValidateFirst {
		validator, err := adapter.NewZIP(r, size)
		if err != nil {
			return Report{}, err
		}
		if err := d.validateOnly(validator); err != nil {
			validator.Close()
			return Report{}, err
		}
		validator.Close()
	}

	za, err := adapter.NewZIP(r, size)
	if err != nil {
		return Report{}, err
	}
	defer za.Close()

	return d.extractStreaming(za)
}

// ExtractZipFile extracts the ZIP archive at path.
func (d *Driver) ExtractZipFile(path string) (Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return Report{}, xerrors.IO(err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Report{}, xerrors.IO(err)
	}

	return d.ExtractZipReader(f, info.Size())
}
