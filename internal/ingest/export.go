package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"reflect"
	"strconv"

	"github.com/parquet-go/parquet-go"
)

// exportBatchSize is the number of rows buffered per parquet write.
const exportBatchSize = 1000

// WriteCSV writes t as comma-separated values with a header row.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.ColumnNames()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := 0; i < t.NumRows(); i++ {
		if err := cw.Write(t.Row(i)); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteParquet writes t as a parquet file with one optional column per table
// column. Duplicate column names get a numeric suffix since parquet requires
// unique field names.
func WriteParquet(w io.Writer, t *Table) error {
	schema := parquet.NewSchema("table", tableNode(t))

	pw := parquet.NewWriter(w, schema)
	batch := make([]parquet.Row, 0, exportBatchSize)
	for i := 0; i < t.NumRows(); i++ {
		row := make(parquet.Row, len(t.Columns))
		for k, c := range t.Columns {
			row[k] = parquetValue(c.Values[i], c.Type).Level(0, definitionLevel(c.Values[i]), k)
		}
		batch = append(batch, row)

		if len(batch) == exportBatchSize {
			if _, err := pw.WriteRows(batch); err != nil {
				return fmt.Errorf("write parquet rows: %w", err)
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if _, err := pw.WriteRows(batch); err != nil {
			return fmt.Errorf("write parquet rows: %w", err)
		}
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

// orderedGroup is a parquet group whose fields follow the table's column
// order. parquet.Group returns its fields sorted by name.
type orderedGroup struct {
	parquet.Group
	fields []parquet.Field
}

func (g orderedGroup) Fields() []parquet.Field { return g.fields }

type orderedField struct {
	parquet.Node
	name string
}

func (f orderedField) Name() string { return f.name }

func (f orderedField) Value(base reflect.Value) reflect.Value {
	return base.MapIndex(reflect.ValueOf(f.name))
}

// tableNode returns the parquet schema root for t: one optional leaf per
// column, in column order.
func tableNode(t *Table) orderedGroup {
	names := UniqueNames(t.ColumnNames())
	g := orderedGroup{Group: parquet.Group{}, fields: make([]parquet.Field, len(names))}
	for j, c := range t.Columns {
		node := parquet.Optional(parquetNode(c.Type))
		g.Group[names[j]] = node
		g.fields[j] = orderedField{Node: node, name: names[j]}
	}
	return g
}

// UniqueNames returns names with repeated entries suffixed ".1", ".2", ...
func UniqueNames(names []string) []string {
	out := make([]string, len(names))
	used := make(map[string]bool, len(names))
	for i, n := range names {
		candidate := n
		for k := 1; used[candidate]; k++ {
			candidate = n + "." + strconv.Itoa(k)
		}
		used[candidate] = true
		out[i] = candidate
	}
	return out
}

func parquetNode(t ColumnType) parquet.Node {
	switch t {
	case ColumnInteger:
		return parquet.Leaf(parquet.Int64Type)
	case ColumnFloat:
		return parquet.Leaf(parquet.DoubleType)
	case ColumnBoolean:
		return parquet.Leaf(parquet.BooleanType)
	case ColumnDate:
		return parquet.Timestamp(parquet.Millisecond)
	default:
		return parquet.String()
	}
}

func parquetValue(v Value, t ColumnType) parquet.Value {
	if v.Null {
		return parquet.NullValue()
	}
	switch t {
	case ColumnInteger:
		return parquet.Int64Value(v.Int)
	case ColumnFloat:
		return parquet.DoubleValue(v.Float)
	case ColumnBoolean:
		return parquet.BooleanValue(v.Bool)
	case ColumnDate:
		return parquet.Int64Value(v.Time.UnixMilli())
	default:
		return parquet.ByteArrayValue([]byte(v.Text))
	}
}

func definitionLevel(v Value) int {
	if v.Null {
		return 0
	}
	return 1
}
