package ingest

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// sheet is the raw content of one worksheet. dates is parallel to rows and
// holds, per row, the cells formatted as dates keyed by column index.
type sheet struct {
	name   string
	header []string
	rows   [][]string
	dates  []map[int]time.Time
}

// NormalizeWorkbook reads every sheet of a workbook and concatenates them into
// one table. The columns are the union of all sheet headers in first-seen
// order followed by SheetColumn, which records each row's sheet name. Cells
// of columns a sheet lacks are missing. It also returns the sheet names.
func NormalizeWorkbook(data []byte) (*Table, []string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnsupportedWorkbookFormat, err)
	}
	defer func() {
		_ = f.Close()
	}()

	dr := newDateReader(f)
	names := f.GetSheetList()
	sheets := make([]sheet, 0, len(names))
	for _, name := range names {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, nil, fmt.Errorf("%w: sheet %q: %v", ErrUnsupportedWorkbookFormat, name, err)
		}
		dates := dr.scan(name, rows)
		rows, dates = dropBlankRows(rows, dates)
		if len(rows) == 0 {
			continue
		}
		sheets = append(sheets, sheet{name: name, header: rows[0], rows: rows[1:], dates: dates[1:]})
	}

	if len(sheets) == 0 {
		return nil, names, ErrEmptyFile
	}

	t, err := concatSheets(sheets)
	if err != nil {
		return nil, names, err
	}
	return t, names, nil
}

// concatSheets unions sheet columns by name. A name repeated inside one sheet
// is matched by occurrence, so the second "valor" of one sheet lines up with
// the second "valor" of another.
func concatSheets(sheets []sheet) (*Table, error) {
	type key struct {
		name string
		nth  int
	}

	var union []key
	index := make(map[key]int)
	positions := make([][]int, len(sheets)) // per sheet: source column -> union column

	for s, sh := range sheets {
		seen := make(map[string]int)
		header := headerNames(sh.header)
		positions[s] = make([]int, len(header))
		for j, name := range header {
			k := key{name: name, nth: seen[name]}
			seen[name]++
			pos, ok := index[k]
			if !ok {
				pos = len(union)
				index[k] = pos
				union = append(union, k)
			}
			positions[s][j] = pos
		}
	}

	total := 0
	for _, sh := range sheets {
		total += len(sh.rows)
	}

	raw := make([][]string, len(union))
	for j := range raw {
		raw[j] = make([]string, total)
	}
	stamps := make([]map[int]time.Time, len(union)) // per union column: row -> date
	origin := make([]Value, 0, total)

	row := 0
	for s, sh := range sheets {
		for r, cells := range sh.rows {
			for j, pos := range positions[s] {
				if j >= len(cells) {
					continue
				}
				raw[pos][row] = cells[j]
				if t, ok := sh.dates[r][j]; ok {
					if stamps[pos] == nil {
						stamps[pos] = make(map[int]time.Time)
					}
					stamps[pos][row] = t
					// Mixed columns fall back to text and show the date, not the serial.
					raw[pos][row] = formatTime(t)
				}
			}
			origin = append(origin, Value{Text: sh.name})
			row++
		}
	}

	cols := make([]Column, 0, len(union)+1)
	for j, k := range union {
		if c, ok := dateColumn(k.name, raw[j], stamps[j]); ok {
			cols = append(cols, c)
			continue
		}
		cols = append(cols, inferColumn(k.name, raw[j]))
	}
	cols = append(cols, Column{Name: SheetColumn, Type: ColumnText, Values: origin})
	return NewTable(cols)
}

// dateColumn builds a date column when every present cell was formatted as
// a date in the workbook.
func dateColumn(name string, cells []string, stamps map[int]time.Time) (Column, bool) {
	if len(stamps) == 0 {
		return Column{}, false
	}
	values := make([]Value, len(cells))
	for i, s := range cells {
		t, ok := stamps[i]
		switch {
		case ok:
			values[i] = Value{Time: t}
		case IsMissing(s):
			values[i] = Value{Null: true}
		default:
			return Column{}, false
		}
	}
	return Column{Name: name, Type: ColumnDate, Values: values}, true
}

// dropBlankRows removes rows whose cells are all empty, along with their date
// entries. excelize already trims trailing blank rows; this also removes gaps
// inside the sheet.
func dropBlankRows(rows [][]string, dates []map[int]time.Time) ([][]string, []map[int]time.Time) {
	out, outDates := rows[:0], dates[:0]
	for i, r := range rows {
		blank := true
		for _, c := range r {
			if c != "" {
				blank = false
				break
			}
		}
		if !blank {
			out = append(out, r)
			outDates = append(outDates, dates[i])
		}
	}
	return out, outDates
}

// dateReader finds cells whose number format is a date. Raw cell values of
// such cells are serial day numbers.
type dateReader struct {
	f        *excelize.File
	date1904 bool
	styles   map[int]bool // style id -> date format
}

func newDateReader(f *excelize.File) *dateReader {
	d := &dateReader{f: f, styles: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		d.date1904 = *props.Date1904
	}
	return d
}

// scan returns, for each row, the date cells keyed by column index. Rows
// without dates get a nil map.
func (d *dateReader) scan(sheetName string, rows [][]string) []map[int]time.Time {
	out := make([]map[int]time.Time, len(rows))
	for r, cells := range rows {
		for c, raw := range cells {
			t, ok := d.cell(sheetName, c+1, r+1, raw)
			if !ok {
				continue
			}
			if out[r] == nil {
				out[r] = make(map[int]time.Time)
			}
			out[r][c] = t
		}
	}
	return out
}

// cell converts the cell at col, row (1-based) when it is numeric and
// formatted as a date.
func (d *dateReader) cell(sheetName string, col, row int, raw string) (time.Time, bool) {
	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return time.Time{}, false
	}
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return time.Time{}, false
	}
	id, err := d.f.GetCellStyle(sheetName, ref)
	if err != nil {
		return time.Time{}, false
	}
	isDate, seen := d.styles[id]
	if !seen {
		isDate = d.isDateStyle(id)
		d.styles[id] = isDate
	}
	if !isDate {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(serial, d.date1904)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (d *dateReader) isDateStyle(id int) bool {
	style, err := d.f.GetStyle(id)
	if err != nil || style == nil {
		return false
	}
	if style.CustomNumFmt != nil {
		return isDateFormatCode(*style.CustomNumFmt)
	}
	switch style.NumFmt {
	case 14, 15, 16, 17, 22:
		return true
	}
	return false
}

// isDateFormatCode reports whether a custom number format shows a year or a
// day. Quoted text, bracketed sections and escaped characters are ignored,
// and only the first (positive) section is checked. Time-only formats are
// not dates.
func isDateFormatCode(code string) bool {
	var b strings.Builder
	quoted, bracket := false, false
	for i := 0; i < len(code); i++ {
		ch := code[i]
		switch {
		case ch == '"':
			quoted = !quoted
		case quoted:
		case ch == '[':
			bracket = true
		case ch == ']':
			bracket = false
		case bracket:
		case ch == '\\':
			i++
		case ch == ';':
			i = len(code)
		default:
			b.WriteByte(ch)
		}
	}
	f := strings.ToLower(b.String())
	return strings.ContainsAny(f, "yd")
}

// sheetLabel names a workbook table after its sheets for display.
func sheetLabel(file string, sheets []string) string {
	if len(sheets) <= 1 {
		return file
	}
	return file + " (" + strconv.Itoa(len(sheets)) + " sheets)"
}
