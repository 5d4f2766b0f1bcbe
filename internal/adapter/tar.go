package adapter

import (
	"archive/tar"
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/archivekit/safeunzip/internal/entry"
	"github.com/archivekit/safeunzip/internal/xerrors"
)

// TAR implements Adapter over a streaming, non-seekable TAR reader.
type TAR struct {
	reader  *tar.Reader
	closer  io.Closer
	current *tar.Header
}

// NewTAR builds a TAR adapter over r. r is consumed sequentially and does
// not need to support seeking.
func NewTAR(r io.Reader) *TAR {
	return &TAR{reader: tar.NewReader(r)}
}

// NewTarGz builds a TAR adapter over a gzip-compressed stream.
func NewTarGz(r io.Reader) (*TAR, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, xerrors.Format(err)
	}
	return &TAR{reader: tar.NewReader(gz), closer: gz}, nil
}

// Next returns the next entry's descriptor, or io.EOF at the end of the
// stream.
func (t *TAR) Next() (entry.Descriptor, error) {
	hdr, err := t.reader.Next()
	if err == io.EOF {
		return entry.Descriptor{}, io.EOF
	}
	if err != nil {
		return entry.Descriptor{}, xerrors.Format(err)
	}
	t.current = hdr

	d := entry.Descriptor{
		Name:         hdr.Name,
		DeclaredSize: uint64(hdr.Size),
		HasMode:      true,
		Mode:         uint32(hdr.Mode) & zipModeMask,
		LinkTarget:   hdr.Linkname,
	}

	switch hdr.Typeflag {
	case tar.TypeReg, tar.TypeRegA:
		d.Kind = entry.KindFile
	case tar.TypeDir:
		d.Kind = entry.KindDirectory
		d.DeclaredSize = 0
	case tar.TypeSymlink:
		d.Kind = entry.KindSymlink
		d.DeclaredSize = 0
	case tar.TypeLink:
		d.UnsupportedKind = "hard_link"
	case tar.TypeBlock:
		d.UnsupportedKind = "block_device"
	case tar.TypeChar:
		d.UnsupportedKind = "character_device"
	case tar.TypeFifo:
		d.UnsupportedKind = "fifo"
	default:
		d.UnsupportedKind = "unknown"
	}

	return d, nil
}

// Open returns the payload reader for the entry last returned by Next.
// The reader is only valid until the next call to Next.
func (t *TAR) Open() (io.Reader, error) {
	return t.reader, nil
}

// Close releases the gzip decompressor, if any.
func (t *TAR) Close() error {
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

// BufferAll reads the entirety of r into memory, as ModeValidateFirst
// requires for TAR: the format has no central directory, so the only way
// to run a metadata-only validation pass and then a separate consuming
// pass is to construct two independent tar.Readers over the same bytes.
func BufferAll(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, xerrors.IO(err)
	}
	return buf.Bytes(), nil
}
