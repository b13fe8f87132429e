package ingest

// infer.go assigns a type to each column from its raw string cells.
//
// A column is numeric only when every non-missing cell parses as a number:
// integer if every cell is a base-10 integer, otherwise floating point.
// Columns made only of true/false literals are boolean. Everything else stays
// text. Dates are not inferred from text; workbook date cells become date
// columns in workbook.go.

import (
	"regexp"
	"strconv"
	"strings"
)

// numericRegex validates that a string is a plain decimal number.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// integerRegex validates a plain base-10 integer.
var integerRegex = regexp.MustCompile(`^[+-]?\d+$`)

// missingTokens are cell values treated as missing in addition to blank
// cells. They match the whole cell exactly, case and spacing included, so
// " NA " and "na" are text.
var missingTokens = map[string]bool{
	"NA": true, "N/A": true, "n/a": true, "<NA>": true,
	"#N/A": true, "#N/A N/A": true, "#NA": true,
	"NaN": true, "nan": true, "-NaN": true, "-nan": true,
	"1.#IND": true, "-1.#IND": true, "1.#QNAN": true, "-1.#QNAN": true,
	"NULL": true, "null": true, "None": true,
}

// IsMissing reports whether a raw cell represents a missing value: a cell
// that is empty or only whitespace, or one of the missing tokens.
func IsMissing(s string) bool {
	return missingTokens[s] || strings.TrimSpace(s) == ""
}

// InferType returns the column type for a set of raw cells.
func InferType(cells []string) ColumnType {
	allInt, allFloat, allBool := true, true, true
	present := 0

	for _, s := range cells {
		if IsMissing(s) {
			continue
		}
		present++
		s = strings.TrimSpace(s)

		if allInt {
			if _, ok := parseInt(s); !ok {
				allInt = false
			}
		}
		if allFloat {
			if _, ok := parseFloat(s); !ok {
				allFloat = false
			}
		}
		if allBool {
			if _, ok := parseBool(s); !ok {
				allBool = false
			}
		}
		if !allInt && !allFloat && !allBool {
			return ColumnText
		}
	}

	switch {
	case present == 0:
		return ColumnText
	case allInt:
		return ColumnInteger
	case allFloat:
		return ColumnFloat
	case allBool:
		return ColumnBoolean
	default:
		return ColumnText
	}
}

// inferColumn builds a typed column from raw cells.
func inferColumn(name string, cells []string) Column {
	typ := InferType(cells)
	values := make([]Value, len(cells))
	for i, s := range cells {
		values[i] = parseValue(s, typ)
	}
	return Column{Name: name, Type: typ, Values: values}
}

// parseValue converts one raw cell to a Value of the given type.
// The type must come from InferType over a set containing s.
func parseValue(s string, typ ColumnType) Value {
	if IsMissing(s) {
		return Value{Null: true}
	}
	trimmed := strings.TrimSpace(s)
	switch typ {
	case ColumnInteger:
		n, _ := parseInt(trimmed)
		return Value{Int: n}
	case ColumnFloat:
		f, _ := parseFloat(trimmed)
		return Value{Float: f}
	case ColumnBoolean:
		b, _ := parseBool(trimmed)
		return Value{Bool: b}
	default:
		return Value{Text: s}
	}
}

func parseInt(s string) (int64, bool) {
	if !integerRegex.MatchString(s) {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}

func parseFloat(s string) (float64, bool) {
	if !numericRegex.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	default:
		return false, false
	}
}
