package ingest

import (
	"math"
	"sort"
)

// ColumnSummary holds display statistics for one column.
type ColumnSummary struct {
	Name     string     `json:"name"`
	Type     ColumnType `json:"type"`
	NonNull  int        `json:"nonNull"`
	Missing  int        `json:"missing"`
	Distinct int        `json:"distinct"`
	Min      *float64   `json:"min,omitempty"` // numeric columns only
	Max      *float64   `json:"max,omitempty"`
	Mean     *float64   `json:"mean,omitempty"`
	Sum      *float64   `json:"sum,omitempty"`
}

// KeyMetrics are the headline figures computed from resolved roles. Fields
// are nil when the roles they need could not be resolved.
type KeyMetrics struct {
	TotalAmount       *float64 `json:"totalAmount,omitempty"`
	AverageTicket     *float64 `json:"averageTicket,omitempty"`
	TopCustomer       string   `json:"topCustomer,omitempty"`
	TopCustomerAmount *float64 `json:"topCustomerAmount,omitempty"`
	Records           int      `json:"records"`
}

// Summary is the overview shown next to the table preview.
type Summary struct {
	Name    string          `json:"name"`
	Rows    int             `json:"rows"`
	Columns []ColumnSummary `json:"columns"`
	Roles   map[Role]string `json:"roles"`
	Metrics KeyMetrics      `json:"metrics"`
	Preview [][]string      `json:"preview"`
}

// Summarize computes column statistics, key metrics and a preview of the
// first previewRows rows.
func Summarize(t *Table, name string, roles Roles, previewRows int) Summary {
	s := Summary{
		Name:    name,
		Rows:    t.NumRows(),
		Columns: make([]ColumnSummary, 0, t.NumColumns()),
		Roles:   map[Role]string(roles),
		Metrics: ComputeMetrics(t, roles),
		Preview: t.Head(previewRows),
	}
	for _, c := range t.Columns {
		s.Columns = append(s.Columns, summarizeColumn(c))
	}
	return s
}

func summarizeColumn(c Column) ColumnSummary {
	cs := ColumnSummary{Name: c.Name, Type: c.Type}
	distinct := make(map[string]struct{})

	var sum float64
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, v := range c.Values {
		if v.Null {
			cs.Missing++
			continue
		}
		cs.NonNull++
		distinct[c.Format(i)] = struct{}{}

		if f, ok := numeric(v, c.Type); ok {
			sum += f
			lo = math.Min(lo, f)
			hi = math.Max(hi, f)
		}
	}
	cs.Distinct = len(distinct)

	if isNumeric(c.Type) && cs.NonNull > 0 {
		mean := sum / float64(cs.NonNull)
		cs.Sum, cs.Min, cs.Max, cs.Mean = &sum, &lo, &hi, &mean
	}
	return cs
}

// ComputeMetrics derives total amount, average ticket and the top customer
// from the amount and customer roles.
func ComputeMetrics(t *Table, roles Roles) KeyMetrics {
	m := KeyMetrics{Records: t.NumRows()}

	amountName, ok := roles.Column(RoleAmount)
	if !ok {
		return m
	}
	amount, ok := t.Column(amountName)
	if !ok || !isNumeric(amount.Type) {
		return m
	}

	var total float64
	var counted int
	for _, v := range amount.Values {
		if f, ok := numeric(v, amount.Type); ok {
			total += f
			counted++
		}
	}
	m.TotalAmount = &total
	if counted > 0 {
		avg := total / float64(counted)
		m.AverageTicket = &avg
	}

	customerName, ok := roles.Column(RoleCustomer)
	if !ok {
		return m
	}
	customer, ok := t.Column(customerName)
	if !ok {
		return m
	}

	byCustomer := make(map[string]float64)
	for i, v := range amount.Values {
		f, ok := numeric(v, amount.Type)
		if !ok || customer.Values[i].Null {
			continue
		}
		byCustomer[customer.Format(i)] += f
	}
	if len(byCustomer) == 0 {
		return m
	}

	keys := make([]string, 0, len(byCustomer))
	for k := range byCustomer {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	top := keys[0]
	for _, k := range keys[1:] {
		if byCustomer[k] > byCustomer[top] {
			top = k
		}
	}
	topAmount := byCustomer[top]
	m.TopCustomer = top
	m.TopCustomerAmount = &topAmount
	return m
}

func isNumeric(t ColumnType) bool {
	return t == ColumnInteger || t == ColumnFloat
}

func numeric(v Value, t ColumnType) (float64, bool) {
	if v.Null {
		return 0, false
	}
	switch t {
	case ColumnInteger:
		return float64(v.Int), true
	case ColumnFloat:
		return v.Float, true
	default:
		return 0, false
	}
}
