package analyst

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractChart(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		wantKind ChartKind
		wantRest string
		wantOK   bool
	}{
		{
			name:     "after sql block",
			reply:    "```sql\nSELECT 1\n```\nchart: pie",
			wantKind: ChartPie,
			wantRest: "```sql\nSELECT 1\n```",
			wantOK:   true,
		},
		{
			name:     "markdown decorated",
			reply:    "SELECT setor, count(*) FROM dados GROUP BY 1\n**Chart: Bar**",
			wantKind: ChartBar,
			wantRest: "SELECT setor, count(*) FROM dados GROUP BY 1",
			wantOK:   true,
		},
		{name: "heatmap", reply: "chart: heatmap\nSELECT a, b FROM dados", wantKind: ChartHeatmap, wantRest: "SELECT a, b FROM dados", wantOK: true},
		{name: "none", reply: "SELECT 1", wantRest: "SELECT 1"},
		{name: "unknown kind", reply: "chart: scatter", wantRest: "chart: scatter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, rest, ok := ExtractChart(tt.reply)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantRest, rest)
		})
	}
}

func TestBuildChart_Bar(t *testing.T) {
	res := &QueryResult{
		Columns: []string{"setor", "total"},
		Rows:    [][]string{{"Varejo", "300.5"}, {"Indústria", "120"}, {"Serviços", ""}},
	}

	c, err := BuildChart(ChartBar, res)
	require.NoError(t, err)
	assert.Equal(t, ChartBar, c.Kind)
	assert.Equal(t, "total by setor", c.Title)
	assert.Equal(t, []string{"Varejo", "Indústria"}, c.Labels, "rows without a value are skipped")
	require.Len(t, c.Series, 1)
	assert.Equal(t, []float64{300.5, 120}, c.Series[0].Values)
}

func TestBuildChart_BarKeepsFirstRows(t *testing.T) {
	res := &QueryResult{Columns: []string{"cliente", "valor"}}
	for i := 0; i < maxBars+5; i++ {
		res.Rows = append(res.Rows, []string{fmt.Sprintf("c%d", i), fmt.Sprint(i)})
	}

	c, err := BuildChart(ChartBar, res)
	require.NoError(t, err)
	assert.Len(t, c.Labels, maxBars)
	assert.Equal(t, "c0", c.Labels[0])
}

func TestBuildChart_PieFoldsTail(t *testing.T) {
	res := &QueryResult{Columns: []string{"setor", "qtd"}}
	for i := 0; i < maxSlices+2; i++ {
		res.Rows = append(res.Rows, []string{fmt.Sprintf("s%d", i), "1"})
	}

	c, err := BuildChart(ChartPie, res)
	require.NoError(t, err)
	require.Len(t, c.Labels, maxSlices)
	assert.Equal(t, "Other", c.Labels[maxSlices-1])
	assert.Equal(t, 3.0, c.Series[0].Values[maxSlices-1])
}

func TestBuildChart_Errors(t *testing.T) {
	tests := []struct {
		name string
		kind ChartKind
		res  *QueryResult
	}{
		{"nil result", ChartBar, nil},
		{"single column", ChartBar, &QueryResult{Columns: []string{"total"}, Rows: [][]string{{"1"}}}},
		{"no rows", ChartBar, &QueryResult{Columns: []string{"a", "b"}}},
		{"no numeric column", ChartBar, &QueryResult{Columns: []string{"a", "b"}, Rows: [][]string{{"x", "y"}}}},
		{"negative pie", ChartPie, &QueryResult{Columns: []string{"a", "b"}, Rows: [][]string{{"x", "-1"}, {"y", "2"}}}},
		{"zero pie", ChartPie, &QueryResult{Columns: []string{"a", "b"}, Rows: [][]string{{"x", "0"}}}},
		{"heatmap is not built here", ChartHeatmap, &QueryResult{Columns: []string{"a", "b"}, Rows: [][]string{{"1", "2"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildChart(tt.kind, tt.res)
			assert.ErrorIs(t, err, ErrNoChart)
		})
	}
}

func TestNumericColumns(t *testing.T) {
	res := &QueryResult{
		Columns: []string{"nome", "valor", "vazio", "ano", "inf"},
		Rows: [][]string{
			{"Ana", "1.5", "", "2024", "Inf"},
			{"Bruno", "", "", "2023", "1"},
		},
	}
	assert.Equal(t, []int{1, 3}, numericColumns(res))
}

func TestHeatmap(t *testing.T) {
	tbl := decode(t, "valor,icms,fixo,nome\n100,18,1,a\n200,36,1,b\n300,54,1,c\n400,71,1,d\n")
	e, err := NewEngine(context.Background(), tbl, 2)
	require.NoError(t, err)
	defer e.Close()

	query := `SELECT "valor", "icms", "fixo", "nome" FROM dados;`
	sample, err := e.Query(context.Background(), query)
	require.NoError(t, err)
	require.True(t, sample.Truncated)

	c, err := heatmap(context.Background(), e, query, sample)
	require.NoError(t, err)
	assert.Equal(t, ChartHeatmap, c.Kind)
	assert.Equal(t, []string{"valor", "icms", "fixo"}, c.Labels)
	require.Len(t, c.Series, 3)

	assert.InDelta(t, 1.0, c.Series[0].Values[0], 1e-9)
	assert.InDelta(t, 1.0, c.Series[0].Values[1], 0.01, "computed over all rows, not the sample")
	assert.False(t, c.Series[0].Defined(2), "a constant column has no correlation")
	assert.True(t, c.Series[1].Defined(0))

	_, err = json.Marshal(c)
	assert.NoError(t, err)
}

func TestHeatmap_NeedsTwoNumericColumns(t *testing.T) {
	tbl := decode(t, "valor,nome\n1,a\n2,b\n")
	e, err := NewEngine(context.Background(), tbl, 10)
	require.NoError(t, err)
	defer e.Close()

	sample, err := e.Query(context.Background(), `SELECT "valor", "nome" FROM dados`)
	require.NoError(t, err)

	_, err = heatmap(context.Background(), e, `SELECT "valor", "nome" FROM dados`, sample)
	assert.ErrorIs(t, err, ErrNoChart)
}

func TestAsk_WithChart(t *testing.T) {
	p := &scriptedProvider{replies: []string{
		"```sql\nSELECT \"cliente\", SUM(\"valor_total\") AS total FROM dados GROUP BY 1 ORDER BY 2 DESC\n```\nchart: pie",
		"Bruno concentra a maior parte do faturamento.",
	}}
	a := New(p, Config{}, quietLogger())

	ans, err := a.Ask(context.Background(), salesInput(t), "Me dê um gráfico de pizza por cliente.")
	require.NoError(t, err)

	require.NotNil(t, ans.Chart)
	assert.Equal(t, ChartPie, ans.Chart.Kind)
	assert.Equal(t, []string{"Bruno", "Ana"}, ans.Chart.Labels)
	assert.Equal(t, []float64{200, 100.5}, ans.Chart.Series[0].Values)
	assert.False(t, strings.Contains(ans.SQL, "chart"))
	assert.Contains(t, p.requests[0].Prompt, "chart: pie")
}

func TestAsk_UnchartableResultStillAnswers(t *testing.T) {
	p := &scriptedProvider{replies: []string{
		"```sql\nSELECT SUM(\"valor_total\") AS total FROM dados\n```\nchart: bar",
		"O total é 300,5.",
	}}
	a := New(p, Config{}, quietLogger())

	ans, err := a.Ask(context.Background(), salesInput(t), "total em barras")
	require.NoError(t, err)
	assert.Nil(t, ans.Chart)
	assert.Equal(t, "O total é 300,5.", ans.Text)
}
