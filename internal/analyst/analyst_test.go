package analyst

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/nexus/internal/ingest"
)

// scriptedProvider returns its replies in order and records the requests.
type scriptedProvider struct {
	mu       sync.Mutex
	replies  []string
	err      error
	requests []Request
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Generate(_ context.Context, req Request) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return "", p.err
	}
	if len(p.replies) == 0 {
		return "", nil
	}
	r := p.replies[0]
	p.replies = p.replies[1:]
	return r, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func salesInput(t *testing.T) Input {
	tbl := decode(t, "cliente,valor_total\nAna,100.5\nBruno,200\n")
	return Input{Table: tbl, Name: "sales.csv", Roles: ingest.ResolveRoles(tbl, ingest.DefaultRoleConfig())}
}

func TestAsk_QueryThenAnswer(t *testing.T) {
	p := &scriptedProvider{replies: []string{
		"```sql\nSELECT SUM(\"valor_total\") AS total FROM dados\n```",
		"O faturamento total é 300,5.",
	}}
	a := New(p, Config{Temperature: 0}, quietLogger())

	ans, err := a.Ask(context.Background(), salesInput(t), "  Qual o faturamento total?  ")
	require.NoError(t, err)

	assert.Equal(t, "Qual o faturamento total?", ans.Question)
	assert.Equal(t, "O faturamento total é 300,5.", ans.Text)
	assert.Equal(t, `SELECT SUM("valor_total") AS total FROM dados`, ans.SQL)
	require.NotNil(t, ans.Result)
	assert.Equal(t, [][]string{{"300.5"}}, ans.Result.Rows)

	require.Len(t, p.requests, 2)
	first := p.requests[0]
	assert.Equal(t, DefaultModel, first.Model)
	assert.Equal(t, 0.0, first.Temperature)
	assert.Contains(t, first.System, "NEXUS")
	assert.Contains(t, first.Prompt, `"valor_total" DOUBLE`)
	assert.Contains(t, first.Prompt, "amount: valor_total")
	assert.Contains(t, first.Prompt, "Ana,100.5")
	assert.Contains(t, p.requests[1].Prompt, "300.5")
}

func TestAsk_DirectAnswerWithoutQuery(t *testing.T) {
	p := &scriptedProvider{replies: []string{"Não posso calcular. A coluna 'ICMS' não foi encontrada."}}
	a := New(p, Config{}, quietLogger())

	ans, err := a.Ask(context.Background(), salesInput(t), "Qual o total de ICMS?")
	require.NoError(t, err)

	assert.Contains(t, ans.Text, "ICMS")
	assert.Empty(t, ans.SQL)
	assert.Nil(t, ans.Result)
	assert.Len(t, p.requests, 1)
}

func TestAsk_RejectsWriteQuery(t *testing.T) {
	p := &scriptedProvider{replies: []string{"```sql\nDELETE FROM dados\n```"}}
	a := New(p, Config{}, quietLogger())

	ans, err := a.Ask(context.Background(), salesInput(t), "apague tudo")
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.Equal(t, "DELETE FROM dados", ans.SQL)
}

func TestAsk_Errors(t *testing.T) {
	in := Input{Table: decode(t, "a\n1\n"), Name: "a.csv"}

	_, err := New(nil, Config{}, quietLogger()).Ask(context.Background(), in, "total?")
	assert.ErrorIs(t, err, ErrNotConfigured)

	a := New(&scriptedProvider{}, Config{}, quietLogger())

	_, err = a.Ask(context.Background(), in, "   ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)

	_, err = a.Ask(context.Background(), Input{}, "total?")
	assert.ErrorIs(t, err, ErrNoTable)

	_, err = a.Ask(context.Background(), in, "total?")
	assert.ErrorIs(t, err, ErrNoAnswer, "blank provider reply")

	boom := errors.New("quota exceeded")
	_, err = New(&scriptedProvider{err: boom}, Config{}, quietLogger()).Ask(context.Background(), in, "total?")
	assert.ErrorIs(t, err, boom)
}

func TestAsk_MapsToUserMessages(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{ErrNotConfigured, "ASK001"},
		{ErrReadOnly, "ASK002"},
		{ErrEmptyQuestion, "ASK003"},
		{ErrNoAnswer, "ASK004"},
		{ErrNoTable, "SES001"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.code, ingest.MapError(tt.err).Code)
		})
	}
}

func TestEnabled(t *testing.T) {
	var nilAnalyst *Analyst
	assert.False(t, nilAnalyst.Enabled())
	assert.False(t, New(nil, Config{}, nil).Enabled())
	assert.True(t, New(&scriptedProvider{}, Config{}, nil).Enabled())
}

func TestExampleQuestions(t *testing.T) {
	require.NotEmpty(t, ExampleQuestions)
	seen := make(map[string]bool)
	for _, q := range ExampleQuestions {
		assert.Equal(t, strings.TrimSpace(q), q)
		assert.NotEmpty(t, q)
		assert.False(t, seen[q], "duplicate example %q", q)
		seen[q] = true
	}
}
