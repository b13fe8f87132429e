package ingest

import (
	"strconv"
	"time"
)

// ContainerKind classifies an uploaded file by its filename suffix.
type ContainerKind string

const (
	KindArchive   ContainerKind = "archive"
	KindFlatTable ContainerKind = "flat-table"
	KindWorkbook  ContainerKind = "workbook"
	KindDocument  ContainerKind = "document"
	KindUnknown   ContainerKind = "unknown"
)

// File is one uploaded blob.
type File struct {
	Name string
	Data []byte
}

// Batch is the set of files submitted together by a user.
type Batch struct {
	Files []File

	// Entry selects an inner .csv entry when the chosen file is an archive.
	// Empty means the first entry.
	Entry string
}

// ColumnType is the inferred type of a column.
type ColumnType string

const (
	ColumnText    ColumnType = "text"
	ColumnInteger ColumnType = "integer"
	ColumnFloat   ColumnType = "float"
	ColumnDate    ColumnType = "date" // date or timestamp, from workbook date cells
	ColumnBoolean ColumnType = "boolean"
)

// Value is a single nullable cell. Only the field matching the column type is set.
type Value struct {
	Null  bool
	Text  string
	Int   int64
	Float float64
	Bool  bool
	Time  time.Time
}

// format renders v according to the column type it belongs to. Null values render as "".
func (v Value) format(t ColumnType) string {
	if v.Null {
		return ""
	}
	switch t {
	case ColumnInteger:
		return strconv.FormatInt(v.Int, 10)
	case ColumnFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case ColumnBoolean:
		return strconv.FormatBool(v.Bool)
	case ColumnDate:
		return formatTime(v.Time)
	default:
		return v.Text
	}
}

// formatTime renders midnight as a plain date and anything else with its clock.
func formatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.DateTime)
}

func (v Value) equal(o Value) bool {
	return v.Null == o.Null && v.Text == o.Text && v.Int == o.Int &&
		v.Float == o.Float && v.Bool == o.Bool && v.Time.Equal(o.Time)
}

// Any returns the Go value for v (nil, string, int64, float64, bool or time.Time).
func (v Value) Any(t ColumnType) any {
	if v.Null {
		return nil
	}
	switch t {
	case ColumnInteger:
		return v.Int
	case ColumnFloat:
		return v.Float
	case ColumnBoolean:
		return v.Bool
	case ColumnDate:
		return v.Time
	default:
		return v.Text
	}
}

// Column is a named, typed sequence of values.
type Column struct {
	Name   string
	Type   ColumnType
	Values []Value
}

// Format returns the display string of row i.
func (c Column) Format(i int) string {
	return c.Values[i].format(c.Type)
}

// Status is the outcome of an ingestion.
type Status string

const (
	StatusSuccess Status = "success"
	StatusEmpty   Status = "empty"
	StatusFailure Status = "failure"
)

// Result is the outcome of [Ingester.Ingest].
type Result struct {
	Status Status
	Kind   ContainerKind

	// Table and Name are set on success.
	Table *Table
	Name  string
	Roles Roles

	// Source is the uploaded file the table came from. Candidates lists the
	// .csv entries when Source is an archive.
	Source     string
	Candidates []string

	// Err is set for StatusFailure and StatusEmpty. It wraps a sentinel error.
	Err error
}

// OK reports whether the ingestion produced a table.
func (r Result) OK() bool {
	return r.Status == StatusSuccess && r.Table != nil
}
