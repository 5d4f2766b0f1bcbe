package adapter

import (
	"archive/zip"
	"io"
	"io/fs"
	"os"

	"github.com/archivekit/safeunzip/internal/entry"
	"github.com/archivekit/safeunzip/internal/xerrors"
)

// maxSymlinkTargetRead caps how much of a symlink entry's own payload is
// read to recover its link target. ZIP stores the target as the entry's
// uncompressed content; a hostile archive could declare an enormous
// symlink payload, so the read itself is bounded independently of any
// driver-level size limit.
const maxSymlinkTargetRead = 4096

// zipModeMask isolates the permission bits of the Unix mode packed into
// the upper 16 bits of a ZIP entry's external attributes.
const zipModeMask = 0o7777

// ZIP implements Adapter over a ZIP central directory.
type ZIP struct {
	reader  *zip.Reader
	files   []*zip.File
	index   int
	current *zip.File
}

// NewZIP builds a ZIP adapter from a ReaderAt and its total size, as
// required by archive/zip to read the trailing central directory.
func NewZIP(r io.ReaderAt, size int64) (*ZIP, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, xerrors.Zip(err)
	}
	return &ZIP{reader: zr, files: zr.File}, nil
}

// Next returns the next entry's descriptor, or io.EOF when the central
// directory is exhausted.
func (z *ZIP) Next() (entry.Descriptor, error) {
	if z.index >= len(z.files) {
		return entry.Descriptor{}, io.EOF
	}
	f := z.files[z.index]
	z.index++
	z.current = f

	d := entry.Descriptor{
		Name:         f.Name,
		DeclaredSize: f.UncompressedSize64,
		IsEncrypted:  f.Flags&0x1 != 0,
	}

	mode := f.Mode()
	if f.ExternalAttrs>>16 != 0 {
		d.HasMode = true
		d.Mode = uint32(f.ExternalAttrs>>16) & zipModeMask
	}

	switch {
	case mode&fs.ModeSymlink != 0:
		d.Kind = entry.KindSymlink
		// UncompressedSize64 here is the length of the link target text,
		// not a payload size; the descriptor invariant is DeclaredSize ==
		// 0 for symlinks.
		d.DeclaredSize = 0
		target, err := readSymlinkTarget(f)
		if err != nil {
			return entry.Descriptor{}, xerrors.Zip(err)
		}
		d.LinkTarget = target
	case mode.IsDir() || len(f.Name) > 0 && f.Name[len(f.Name)-1] == '/':
		d.Kind = entry.KindDirectory
		d.DeclaredSize = 0
	default:
		d.Kind = entry.KindFile
	}

	return d, nil
}

// Open returns the payload reader for the descriptor last returned by
// Next. Callers must only call this for entry.KindFile descriptors.
func (z *ZIP) Open() (io.Reader, error) {
	if z.current == nil {
		return nil, xerrors.Zip(os.ErrInvalid)
	}
	r, err := z.current.Open()
	if err != nil {
		return nil, xerrors.Zip(err)
	}
	return r, nil
}

// Close is a no-op: archive/zip.Reader has nothing to release beyond the
// underlying ReaderAt, which the caller owns.
func (z *ZIP) Close() error {
	return nil
}

func readSymlinkTarget(f *zip.File) (string, error) {
	r, err := f.Open()
	if err != nil {
		return "", err
	}
	defer r.Close()

	bounded := NewBoundedReader(r, maxSymlinkTargetRead)
	buf, err := io.ReadAll(bounded)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}
