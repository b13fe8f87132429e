package ingest

import "fmt"

// SheetColumn is the reserved column recording the originating sheet of each
// row when a multi-sheet workbook is flattened.
const SheetColumn = "__sheet__"

// Table is the canonical in-memory table produced by ingestion.
// All columns have the same length and row order follows the source.
type Table struct {
	Columns []Column
}

// NewTable validates that all columns have equal length.
func NewTable(cols []Column) (*Table, error) {
	for i := 1; i < len(cols); i++ {
		if len(cols[i].Values) != len(cols[0].Values) {
			return nil, fmt.Errorf("column %q has %d rows, expected %d",
				cols[i].Name, len(cols[i].Values), len(cols[0].Values))
		}
	}
	return &Table{Columns: cols}, nil
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int {
	if t == nil || len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

// ColumnNames returns the column names in order. Duplicates are preserved.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the first column with the given name.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Cell returns the value at row, col.
func (t *Table) Cell(row, col int) Value {
	return t.Columns[col].Values[row]
}

// Row returns the display strings of one row.
func (t *Table) Row(i int) []string {
	out := make([]string, len(t.Columns))
	for j, c := range t.Columns {
		out[j] = c.Format(i)
	}
	return out
}

// Head returns the first n rows as display strings.
func (t *Table) Head(n int) [][]string {
	return t.Slice(0, n)
}

// Slice returns up to limit rows starting at offset as display strings.
func (t *Table) Slice(offset, limit int) [][]string {
	total := t.NumRows()
	if offset < 0 {
		offset = 0
	}
	if offset >= total || limit <= 0 {
		return [][]string{}
	}
	end := min(offset+limit, total)
	rows := make([][]string, 0, end-offset)
	for i := offset; i < end; i++ {
		rows = append(rows, t.Row(i))
	}
	return rows
}

// Equal reports whether two tables have identical column names, order, types and cells.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if len(t.Columns) != len(o.Columns) {
		return false
	}
	for i := range t.Columns {
		a, b := t.Columns[i], o.Columns[i]
		if a.Name != b.Name || a.Type != b.Type || len(a.Values) != len(b.Values) {
			return false
		}
		for j := range a.Values {
			if !a.Values[j].equal(b.Values[j]) {
				return false
			}
		}
	}
	return true
}
