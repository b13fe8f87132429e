package analyst

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// ChartKind names a chart that can accompany an answer.
type ChartKind string

const (
	ChartBar     ChartKind = "bar"
	ChartPie     ChartKind = "pie"
	ChartHeatmap ChartKind = "heatmap"
)

const (
	maxBars   = 20
	maxSlices = 8
)

// ErrNoChart means a query result has no shape the requested chart can show.
var ErrNoChart = errors.New("result cannot be charted")

// Chart is a chart built from a query result. Bar and pie charts have one
// series with a value per label. A heatmap has one series per row, each
// with a value per label (column).
type Chart struct {
	Kind   ChartKind `json:"kind"`
	Title  string    `json:"title,omitempty"`
	Labels []string  `json:"labels"`
	Series []Series  `json:"series"`
}

// Series is one named row of chart values. Missing lists the indexes of
// undefined values (the correlation of a constant column), which are 0 in
// Values.
type Series struct {
	Name    string    `json:"name"`
	Values  []float64 `json:"values"`
	Missing []int     `json:"missing,omitempty"`
}

// Defined reports whether the value at i is defined.
func (s Series) Defined(i int) bool {
	return !slices.Contains(s.Missing, i)
}

// chartDirective is the line a model reply uses to ask for a chart.
var chartDirective = regexp.MustCompile(`(?im)^[ \t*_` + "`" + `]*chart:\s*(bar|pie|heatmap)\b.*$`)

// ExtractChart finds a "chart: <kind>" line in reply and returns the kind
// along with the reply minus every such line.
func ExtractChart(reply string) (ChartKind, string, bool) {
	m := chartDirective.FindStringSubmatch(reply)
	if m == nil {
		return "", reply, false
	}
	rest := strings.TrimSpace(chartDirective.ReplaceAllString(reply, ""))
	return ChartKind(strings.ToLower(m[1])), rest, true
}

// BuildChart turns a result into a bar or pie chart. The first column holds
// the labels and the first numeric column after it the values. Bar charts
// keep the first maxBars rows; pie charts fold rows past maxSlices into an
// "Other" slice and reject negative values.
func BuildChart(kind ChartKind, res *QueryResult) (*Chart, error) {
	if kind != ChartBar && kind != ChartPie {
		return nil, fmt.Errorf("%w: unsupported kind %q", ErrNoChart, kind)
	}
	if res == nil || len(res.Columns) < 2 || len(res.Rows) == 0 {
		return nil, fmt.Errorf("%w: need a label column, a value column and rows", ErrNoChart)
	}

	valueCol := -1
	for _, j := range numericColumns(res) {
		if j > 0 {
			valueCol = j
			break
		}
	}
	if valueCol < 0 {
		return nil, fmt.Errorf("%w: no numeric value column", ErrNoChart)
	}

	var labels []string
	var values []float64
	for _, row := range res.Rows {
		if row[valueCol] == "" {
			continue
		}
		v, _ := strconv.ParseFloat(row[valueCol], 64)
		if kind == ChartPie && v < 0 {
			return nil, fmt.Errorf("%w: negative value %v in a pie chart", ErrNoChart, v)
		}
		labels = append(labels, row[0])
		values = append(values, v)
	}

	if len(values) == 0 {
		return nil, fmt.Errorf("%w: no values", ErrNoChart)
	}
	if kind == ChartPie {
		var total float64
		for _, v := range values {
			total += v
		}
		if total == 0 {
			return nil, fmt.Errorf("%w: pie chart of zeros", ErrNoChart)
		}
	}

	switch {
	case kind == ChartBar && len(values) > maxBars:
		labels, values = labels[:maxBars], values[:maxBars]
	case kind == ChartPie && len(values) > maxSlices:
		var other float64
		for _, v := range values[maxSlices-1:] {
			other += v
		}
		labels = append(labels[:maxSlices-1], "Other")
		values = append(values[:maxSlices-1], other)
	}

	return &Chart{
		Kind:   kind,
		Title:  res.Columns[valueCol] + " by " + res.Columns[0],
		Labels: labels,
		Series: []Series{{Name: res.Columns[valueCol], Values: values}},
	}, nil
}

// heatmap builds a correlation heatmap for the numeric columns of sample,
// which is the (possibly truncated) result of query. The correlations are
// computed by the engine over the full result of query, not the sample.
func heatmap(ctx context.Context, e *Engine, query string, sample *QueryResult) (*Chart, error) {
	if sample == nil {
		return nil, ErrNoChart
	}
	cols := numericColumns(sample)
	if len(cols) < 2 {
		return nil, fmt.Errorf("%w: a heatmap needs at least two numeric columns", ErrNoChart)
	}
	names := make([]string, len(cols))
	for i, j := range cols {
		names[i] = sample.Columns[j]
	}

	query, err := ValidateQuery(query)
	if err != nil {
		return nil, err
	}
	res, err := e.Query(ctx, correlationQuery(query, names))
	if err != nil {
		return nil, fmt.Errorf("correlate: %w", err)
	}
	if len(res.Rows) != 1 || len(res.Rows[0]) != len(names)*len(names) {
		return nil, fmt.Errorf("%w: unexpected correlation result", ErrNoChart)
	}

	chart := &Chart{Kind: ChartHeatmap, Title: "Correlation", Labels: names}
	for i, name := range names {
		s := Series{Name: name, Values: make([]float64, len(names))}
		for j := range names {
			cell := res.Rows[0][i*len(names)+j]
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil || math.IsNaN(v) {
				s.Missing = append(s.Missing, j)
				continue
			}
			s.Values[j] = v
		}
		chart.Series = append(chart.Series, s)
	}
	return chart, nil
}

// correlationQuery returns one row with corr(a, b) for every ordered pair of
// cols, row-major, over the rows of query.
func correlationQuery(query string, cols []string) string {
	exprs := make([]string, 0, len(cols)*len(cols))
	for _, a := range cols {
		for _, b := range cols {
			exprs = append(exprs, fmt.Sprintf("corr(%s::DOUBLE, %s::DOUBLE)", quoteIdent(a), quoteIdent(b)))
		}
	}
	return "SELECT " + strings.Join(exprs, ", ") + " FROM (" + query + ") AS q"
}

// numericColumns returns the indexes of result columns whose non-empty cells
// all parse as finite numbers. Columns with no values are not numeric.
func numericColumns(res *QueryResult) []int {
	var out []int
	for j := range res.Columns {
		present := 0
		numeric := true
		for _, row := range res.Rows {
			if j >= len(row) || row[j] == "" {
				continue
			}
			present++
			if f, err := strconv.ParseFloat(row[j], 64); err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				numeric = false
				break
			}
		}
		if numeric && present > 0 {
			out = append(out, j)
		}
	}
	return out
}
