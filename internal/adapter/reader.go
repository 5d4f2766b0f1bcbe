package adapter

import "io"

// BoundedReader wraps a payload reader with a hard byte cap, so a lying
// or malicious declared size can never translate into reading more than
// cap bytes into memory or onto disk. Once the cap is reached, Read
// returns io.EOF even if the underlying reader has more data buffered.
// The driver then compares Actual against the entry's declared size and
// rejects the entry only when more was read than declared; a capped read
// that does not exceed the declared size is accepted as is.
type BoundedReader struct {
	underlying io.Reader
	cap        uint64
	read       uint64
	capped     bool
}

// NewBoundedReader returns a BoundedReader over r that will never yield
// more than cap bytes.
func NewBoundedReader(r io.Reader, cap uint64) *BoundedReader {
	return &BoundedReader{underlying: r, cap: cap}
}

func (b *BoundedReader) Read(p []byte) (int, error) {
	if b.read >= b.cap {
		b.capped = true
		return 0, io.EOF
	}

	remaining := b.cap - b.read
	if uint64(len(p)) > remaining {
		p = p[:remaining]
	}

	n, err := b.underlying.Read(p)
	b.read += uint64(n)

	if err == nil && b.read >= b.cap {
		// The underlying reader may still have more to give; the next
		// call will discover that and set capped.
	}

	return n, err
}

// Actual returns the number of bytes read so far.
func (b *BoundedReader) Actual() uint64 {
	return b.read
}

// Capped reports whether Read has returned a synthetic io.EOF because
// the cap was reached, as opposed to the underlying reader's own EOF.
func (b *BoundedReader) Capped() bool {
	return b.capped
}
