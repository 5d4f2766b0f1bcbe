package safeunzip

import (
	"bytes"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/archivekit/safeunzip/internal/adapter"
	"github.com/archivekit/safeunzip/internal/config"
	"github.com/archivekit/safeunzip/internal/xerrors"
)

// ExtractTarReader extracts a TAR archive from r, a forward-only stream.
//
// Under ModeValidateFirst, since TAR has no central directory to rewind
// to, the entire stream is first buffered into memory so that pass 1 and
// pass 2 can each construct an independent adapter over the same bytes.
func (d *Driver) ExtractTarReader(r io.Reader) (Report, error) {
	if d.mode == config.ModeValidateFirst {
		buffered, err := adapter.BufferAll(r)
		if err != nil {
			return Report{}, err
		}
		return d.extractTarBuffered(buffered)
	}

	return d.extractStreaming(adapter.NewTAR(r))
}

// ExtractTarGzReader extracts a gzip-compressed TAR archive from r.
func (d *Driver) ExtractTarGzReader(r io.Reader) (Report, error) {
	if d.mode == config.ModeValidateFirst {
		// BufferAll needs the decompressed bytes directly, so this path
		// unwraps gzip by hand rather than through the TAR adapter.
		gz, err := gzip.NewReader(r)
		if err != nil {
			return Report{}, xerrors.Format(err)
		}
		defer gz.Close()

		buffered, err := adapter.BufferAll(gz)
		if err != nil {
			return Report{}, err
		}
		return d.extractTarBuffered(buffered)
	}

	ta, err := adapter.NewTarGz(r)
	if err != nil {
		return Report{}, err
	}
	defer ta.Close()

	return d.extractStreaming(ta)
}

// extractTarBuffered runs the two-pass ModeValidateFirst flow over
// already-decompressed TAR bytes held in memory.
func (d *Driver) extractTarBuffered(buffered []byte) (Report, error) {
	if err := d.validateOnly(adapter.NewTAR(bytes.NewReader(buffered))); err != nil {
		return Report{}, err
	}
	return d.extractStreaming(adapter.NewTAR(bytes.NewReader(buffered)))
}

// ExtractTarFile extracts the TAR archive at path.
func (d *Driver) ExtractTarFile(path string) (Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return Report{}, xerrors.IO(err)
	}
	defer f.Close()

	return d.ExtractTarReader(f)
}

// ExtractTarGzFile extracts the gzip-compressed TAR archive at path.
func (d *Driver) ExtractTarGzFile(path string) (Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return Report{}, xerrors.IO(err)
	}
	defer f.Close()

	return d.ExtractTarGzReader(f)
}
