package ingest

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// macOSMetadataDir holds resource forks added by Finder's "Compress" action.
const macOSMetadataDir = "__MACOSX/"

// ListCSVEntries returns the names of the .csv entries in a zip archive, in
// archive order. Entries that cannot be opened are left out rather than
// failing the whole archive. An archive without .csv entries yields an empty
// slice and no error.
func ListCSVEntries(data []byte) ([]string, error) {
	zr, err := openZip(data)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		if !isCSVEntry(f) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			continue
		}
		rc.Close()
		names = append(names, f.Name)
	}
	return names, nil
}

// ExtractEntry returns the uncompressed bytes of the named entry.
func ExtractEntry(data []byte, name string) ([]byte, error) {
	return extractEntry(data, name, 0)
}

// extractEntry is ExtractEntry with an upper bound on the uncompressed size.
func extractEntry(data []byte, name string, limit int64) ([]byte, error) {
	zr, err := openZip(data)
	if err != nil {
		return nil, err
	}

	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", ErrCorruptArchive, name, err)
		}
		defer rc.Close()

		out, err := io.ReadAll(NewSizeLimitReader(rc, limit))
		if errors.Is(err, ErrSizeLimit) {
			return nil, fmt.Errorf("entry %s: %w", name, err)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrCorruptArchive, name, err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
}

func openZip(data []byte) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}
	return zr, nil
}

func isCSVEntry(f *zip.File) bool {
	if f.FileInfo().IsDir() || strings.HasPrefix(f.Name, macOSMetadataDir) {
		return false
	}
	return strings.HasSuffix(strings.ToLower(f.Name), ".csv")
}
