// Package analyst answers natural-language questions about the active table.
//
// A question is answered in two model calls. The first turns the question
// into one read-only SQL query over the table, which is loaded into an
// in-memory DuckDB database. The query result is then handed back to the
// model to phrase the answer. When the first reply carries no query (for
// example because the columns the question needs do not exist), that reply
// is the answer. A reply may also ask for a chart, which is built from the
// query result.
package analyst

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/JonMunkholm/nexus/internal/ingest"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// sampleRows is the number of table rows shown to the model.
const sampleRows = 5

// systemInstruction frames every call.
const systemInstruction = `You are NEXUS, an analyst for fiscal and financial data (Brazilian invoices, taxes, sales).
Be direct and precise, like a business analyst.
Rules:
1. Before using a column, check that it exists in the schema. If the columns a question needs
   are missing, say which columns are missing instead of guessing. Never fail silently.
2. For generic questions ("insights", "summary", "main metrics") compute total revenue,
   the customer with the highest value and the average ticket when the columns exist.
3. Questions about a distribution or a comparison (value by sector, operations by type) get a
   bar or pie chart. Questions about correlation get a heatmap.
4. Answer in the language the question was asked in.`

// Config configures an Analyst.
type Config struct {
	Model       string
	Temperature float64
	Timeout     time.Duration
	MaxRows     int
}

// Input is the table a question is asked about.
type Input struct {
	Table *ingest.Table
	Name  string
	Roles ingest.Roles
}

// Answer is the outcome of one question.
type Answer struct {
	Question string       `json:"question"`
	Text     string       `json:"answer"`
	SQL      string       `json:"sql,omitempty"`
	Result   *QueryResult `json:"result,omitempty"`
	Chart    *Chart       `json:"chart,omitempty"`
}

// Analyst turns questions into queries and answers.
type Analyst struct {
	provider Provider
	cfg      Config
	logger   *slog.Logger
}

// New returns an Analyst. A nil provider yields an Analyst whose Ask always
// fails with ErrNotConfigured.
func New(p Provider, cfg Config, logger *slog.Logger) *Analyst {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = DefaultMaxRows
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyst{provider: p, cfg: cfg, logger: logger}
}

// Enabled reports whether a provider is configured.
func (a *Analyst) Enabled() bool {
	return a != nil && a.provider != nil
}

// Ask answers question about in.
func (a *Analyst) Ask(ctx context.Context, in Input, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	ans := Answer{Question: question}

	if !a.Enabled() {
		return ans, ErrNotConfigured
	}
	if question == "" {
		return ans, ErrEmptyQuestion
	}
	if in.Table == nil {
		return ans, ErrNoTable
	}

	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}
	start := time.Now()

	engine, err := NewEngine(ctx, in.Table, a.cfg.MaxRows)
	if err != nil {
		return ans, fmt.Errorf("load table: %w", err)
	}
	defer engine.Close()

	reply, err := a.generate(ctx, queryPrompt(engine.Columns(), in, question))
	if err != nil {
		return ans, fmt.Errorf("generate query: %w", err)
	}

	kind, reply, wantChart := ExtractChart(reply)
	query, ok := ExtractSQL(reply)
	if !ok {
		ans.Text = strings.TrimSpace(reply)
		a.logger.InfoContext(ctx, "question answered without query",
			"table", in.Name, "duration_ms", time.Since(start).Milliseconds())
		return ans, nil
	}
	ans.SQL = query

	result, err := engine.Query(ctx, query)
	if err != nil {
		return ans, fmt.Errorf("run query: %w", err)
	}
	ans.Result = result

	if wantChart {
		ans.Chart, err = a.chart(ctx, engine, kind, query, result)
		if err != nil {
			a.logger.DebugContext(ctx, "chart skipped", "kind", kind, "error", err)
		}
	}

	text, err := a.generate(ctx, answerPrompt(question, query, result))
	if err != nil {
		return ans, fmt.Errorf("phrase answer: %w", err)
	}
	ans.Text = strings.TrimSpace(text)

	a.logger.InfoContext(ctx, "question answered",
		"table", in.Name,
		"rows", len(result.Rows),
		"truncated", result.Truncated,
		"chart", ans.Chart != nil,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return ans, nil
}

// chart builds the chart the model asked for. Failing to build one never
// fails the answer.
func (a *Analyst) chart(ctx context.Context, e *Engine, kind ChartKind, query string, res *QueryResult) (*Chart, error) {
	if kind == ChartHeatmap {
		return heatmap(ctx, e, query, res)
	}
	return BuildChart(kind, res)
}

func (a *Analyst) generate(ctx context.Context, prompt string) (string, error) {
	out, err := a.provider.Generate(ctx, Request{
		Model:       a.cfg.Model,
		Temperature: a.cfg.Temperature,
		System:      systemInstruction,
		Prompt:      prompt,
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", ErrNoAnswer
	}
	return out, nil
}

func queryPrompt(cols []EngineColumn, in Input, question string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "The table %q (from %s) has %d rows and these columns:\n",
		TableName, in.Name, in.Table.NumRows())
	for _, c := range cols {
		fmt.Fprintf(&b, "- %s %s", quoteIdent(c.Name), c.SQLType)
		if c.Source != c.Name {
			fmt.Fprintf(&b, " (header %q)", c.Source)
		}
		b.WriteString("\n")
	}

	if len(in.Roles) > 0 {
		b.WriteString("\nRecognized columns:\n")
		for _, r := range in.Roles.Sorted() {
			fmt.Fprintf(&b, "- %s: %s\n", r, in.Roles[r])
		}
	}

	b.WriteString("\nFirst rows (CSV):\n")
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	b.WriteString(strings.Join(names, ","))
	b.WriteString("\n")
	for _, row := range in.Table.Head(sampleRows) {
		b.WriteString(strings.Join(row, ","))
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nQuestion: %s\n\n", question)
	b.WriteString("Write one DuckDB SELECT query that answers the question and return it in a ```sql block. " +
		"Quote column names with double quotes. " +
		"If the question cannot be answered with these columns, do not write a query; explain which columns are missing.\n" +
		"When a chart fits the question, add a line `chart: bar`, `chart: pie` or `chart: heatmap` after the sql block. " +
		"For bar and pie charts the query returns a label column followed by a numeric column. " +
		"For a heatmap it returns the numeric columns to correlate, one row per record.")
	return b.String()
}

func answerPrompt(question, query string, res *QueryResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nQuery:\n%s\n\nResult (CSV", question, query)
	if res.Truncated {
		fmt.Fprintf(&b, ", first %d rows", len(res.Rows))
	}
	b.WriteString("):\n")
	b.WriteString(strings.Join(res.Columns, ","))
	b.WriteString("\n")
	for _, row := range res.Rows {
		b.WriteString(strings.Join(row, ","))
		b.WriteString("\n")
	}
	b.WriteString("\nAnswer the question using only this result. Do not show the SQL.")
	return b.String()
}
