package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Encoding names the text decoding that was applied to a file.
type Encoding string

const (
	EncodingUTF8   Encoding = "utf-8"
	EncodingLatin1 Encoding = "latin-1"
)

// DecodeText turns raw bytes into text. A leading UTF-8 BOM is dropped; the
// bytes are accepted as-is when they are valid UTF-8 and otherwise decoded as
// Latin-1 (ISO-8859-1), which maps every byte to a code point. This is a
// fallback, not detection: Windows-1252 or other single-byte inputs decode
// without error but may render some characters incorrectly.
func DecodeText(data []byte) (string, Encoding, error) {
	raw, err := io.ReadAll(NewBOMSkippingReader(bytes.NewReader(data)))
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrDecodeExhausted, err)
	}

	if utf8.Valid(raw) {
		return string(raw), EncodingUTF8, nil
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", "", fmt.Errorf("%w: latin-1: %v", ErrDecodeExhausted, err)
	}
	return string(decoded), EncodingLatin1, nil
}

// DecodeCSV decodes bytes with DecodeText and parses them as comma-separated
// values. The first record is the header; duplicate header names are kept.
func DecodeCSV(data []byte) (*Table, Encoding, error) {
	text, enc, err := DecodeText(data)
	if err != nil {
		return nil, "", err
	}

	header, rows, err := parseCSV(text)
	if err != nil {
		return nil, enc, err
	}

	t, err := buildTable(header, rows)
	if err != nil {
		return nil, enc, err
	}
	return t, enc, nil
}

// parseCSV tokenizes text into a header and data rows. Rows may have any
// number of fields; buildTable reconciles them with the header width.
//
// A quote inside an unquoted field (`tubo 5" pol`) is kept as text: the
// strict pass is retried with lazy quotes when it fails on a bare quote. A
// quoted field that never closes is still an error.
func parseCSV(text string) ([]string, [][]string, error) {
	records, err := readCSV(text, false)
	if errors.Is(err, csv.ErrBareQuote) {
		records, err = readCSV(text, true)
	}
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return nil, nil, fmt.Errorf("%w: line %d: %v", ErrInvalidCSV, perr.Line, perr.Err)
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}

	if len(records) == 0 {
		return nil, nil, ErrEmptyFile
	}
	return records[0], records[1:], nil
}

func readCSV(text string, lazy bool) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = lazy
	return r.ReadAll()
}

// buildTable converts a header and string rows into a typed table. Short rows
// are padded with missing values and extra trailing fields are dropped.
func buildTable(header []string, rows [][]string) (*Table, error) {
	names := headerNames(header)

	raw := make([][]string, len(names))
	for j := range raw {
		raw[j] = make([]string, len(rows))
	}
	for i, row := range rows {
		for j := range names {
			if j < len(row) {
				raw[j][i] = row[j]
			}
		}
	}

	cols := make([]Column, len(names))
	for j, name := range names {
		cols[j] = inferColumn(name, raw[j])
	}
	return NewTable(cols)
}

// headerNames returns the column names for a header row. Blank names are
// replaced with "Unnamed: <index>" so every column can be addressed.
func headerNames(header []string) []string {
	names := make([]string, len(header))
	for i, h := range header {
		if strings.TrimSpace(h) == "" {
			names[i] = "Unnamed: " + strconv.Itoa(i)
			continue
		}
		names[i] = h
	}
	return names
}
