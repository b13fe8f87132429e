package analyst

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    string
		wantErr bool
	}{
		{name: "simple select", query: "SELECT 1", want: "SELECT 1"},
		{name: "trailing semicolon", query: "select sum(valor) from dados;  ", want: "select sum(valor) from dados"},
		{name: "cte", query: "WITH t AS (SELECT 1 AS x) SELECT x FROM t", want: "WITH t AS (SELECT 1 AS x) SELECT x FROM t"},
		{name: "keyword inside literal", query: "SELECT * FROM dados WHERE op = 'delete; drop'", want: "SELECT * FROM dados WHERE op = 'delete; drop'"},
		{name: "column containing keyword", query: `SELECT "setor", updated_at FROM dados`, want: `SELECT "setor", updated_at FROM dados`},
		{name: "quoted identifier with keyword", query: `SELECT "Load", "Data Set" FROM dados`, want: `SELECT "Load", "Data Set" FROM dados`},
		{name: "quoted identifier with quote and semicolon", query: `SELECT "O'Neil;" FROM dados`, want: `SELECT "O'Neil;" FROM dados`},
		{name: "empty", query: "  ;", wantErr: true},
		{name: "quoted table function", query: `SELECT * FROM "read_csv" ('/etc/passwd')`, wantErr: true},
		{name: "delete", query: "DELETE FROM dados", wantErr: true},
		{name: "stacked statements", query: "SELECT 1; DROP TABLE dados", wantErr: true},
		{name: "create as select", query: "CREATE TABLE x AS SELECT 1", wantErr: true},
		{name: "file access", query: "SELECT * FROM read_csv('/etc/passwd')", wantErr: true},
		{name: "comment", query: "SELECT 1 -- hi", wantErr: true},
		{name: "attach", query: "SELECT 1 FROM dados, (ATTACH 'x.db')", wantErr: true},
		{name: "pragma", query: "PRAGMA table_info('dados')", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateQuery(tt.query)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrReadOnly)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractSQL(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		want   string
		wantOK bool
	}{
		{
			name:   "sql fence",
			reply:  "Here you go:\n```sql\nSELECT SUM(\"valor\") FROM dados\n```\nDone.",
			want:   `SELECT SUM("valor") FROM dados`,
			wantOK: true,
		},
		{
			name:   "sql fence preferred",
			reply:  "```\nnot sql\n```\n```SQL\nSELECT 2\n```",
			want:   "SELECT 2",
			wantOK: true,
		},
		{
			name:   "untagged fence",
			reply:  "```\nSELECT 1\n```",
			want:   "SELECT 1",
			wantOK: true,
		},
		{
			name:   "bare query",
			reply:  "  select count(*) from dados  ",
			want:   "select count(*) from dados",
			wantOK: true,
		},
		{
			name:   "direct answer",
			reply:  "Não posso calcular. As colunas 'ICMS' e 'PIS' não foram encontradas.",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractSQL(tt.reply)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
