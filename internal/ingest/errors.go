package ingest

import "errors"

// Sentinel errors reported through [Result.Err]. Use errors.Is to test for them.
var (
	// ErrCorruptArchive means a .zip upload is not a readable zip container.
	ErrCorruptArchive = errors.New("corrupt archive")

	// ErrEntryNotFound means the selected archive entry does not exist.
	ErrEntryNotFound = errors.New("archive entry not found")

	// ErrUnsupportedWorkbookFormat means a workbook could not be opened,
	// either because it is damaged or because it uses the legacy binary layout.
	ErrUnsupportedWorkbookFormat = errors.New("unsupported workbook format")

	// ErrDecodeExhausted means no text decoding could be applied. The Latin-1
	// fallback accepts every byte, so this is not expected in practice.
	ErrDecodeExhausted = errors.New("decode exhausted")

	// ErrNoTabularContent means the batch held only documents or unrecognized files,
	// or an archive without .csv entries.
	ErrNoTabularContent = errors.New("no tabular content")

	// ErrEmptyFile means the selected file has no header row.
	ErrEmptyFile = errors.New("empty file")

	// ErrInvalidCSV means the CSV text could not be tokenized.
	ErrInvalidCSV = errors.New("invalid csv")
)
