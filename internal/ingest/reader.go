package ingest

// reader.go holds io.Reader wrappers applied before text decoding.
//
//   - BOMSkippingReader: removes the UTF-8 BOM (0xEF 0xBB 0xBF) that Excel and
//     other Windows programs prepend to exported CSV files.
//   - SizeLimitReader: fails once more than a fixed number of bytes are read,
//     bounding decompressed archive entries.

import (
	"errors"
	"fmt"
	"io"
)

// BOMSkippingReader wraps an io.Reader and skips the UTF-8 BOM if present.
type BOMSkippingReader struct {
	reader     io.Reader
	bomChecked bool
	buf        [3]byte
	pending    []byte // bytes read during BOM detection that are not a BOM
}

// NewBOMSkippingReader creates a new BOM-skipping reader.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{reader: r}
}

// Read implements io.Reader. On the first read, it checks for and skips the BOM.
func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.bomChecked {
		r.bomChecked = true

		n, err := io.ReadFull(r.reader, r.buf[:])
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		if err != nil && err != io.EOF {
			return 0, err
		}

		isBOM := n == 3 && r.buf[0] == 0xEF && r.buf[1] == 0xBB && r.buf[2] == 0xBF
		if !isBOM {
			r.pending = r.buf[:n]
		}

		if err == io.EOF && len(r.pending) == 0 {
			return 0, io.EOF
		}
	}

	// Return bytes held back by BOM detection first
	if len(r.pending) > 0 {
		copied := copy(p, r.pending)
		r.pending = r.pending[copied:]
		return copied, nil
	}

	return r.reader.Read(p)
}

// ErrSizeLimit is returned by SizeLimitReader when the limit is exceeded.
var ErrSizeLimit = errors.New("file too large")

// SizeLimitReader returns at most Limit bytes and then fails with ErrSizeLimit,
// unlike io.LimitReader which silently truncates.
type SizeLimitReader struct {
	reader io.Reader
	Limit  int64
	read   int64
}

// NewSizeLimitReader wraps r. A limit <= 0 disables the check.
func NewSizeLimitReader(r io.Reader, limit int64) *SizeLimitReader {
	return &SizeLimitReader{reader: r, Limit: limit}
}

// Read implements io.Reader.
func (r *SizeLimitReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.read += int64(n)
	if r.Limit > 0 && r.read > r.Limit {
		return n, fmt.Errorf("%w: more than %d bytes", ErrSizeLimit, r.Limit)
	}
	return n, err
}

// BytesRead returns the number of bytes read so far.
func (r *SizeLimitReader) BytesRead() int64 {
	return r.read
}
