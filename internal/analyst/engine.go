package analyst

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"

	duckdb "github.com/duckdb/duckdb-go/v2"

	"github.com/JonMunkholm/nexus/internal/ingest"
)

// TableName is the name the loaded table has inside the engine.
const TableName = "dados"

// DefaultMaxRows caps the rows returned by one query.
const DefaultMaxRows = 200

// EngineColumn describes one column as the engine sees it.
type EngineColumn struct {
	Name    string // SQL identifier, unique ignoring case
	Source  string // original header
	SQLType string
}

// QueryResult holds the rows of one query as display strings.
type QueryResult struct {
	Columns   []string
	Rows      [][]string
	Truncated bool
}

// Engine is an in-memory DuckDB database holding one table.
type Engine struct {
	db      *sql.DB
	columns []EngineColumn
	maxRows int
}

// NewEngine loads t into a fresh in-memory database. External file and
// network access is disabled once the table is loaded.
func NewEngine(ctx context.Context, t *ingest.Table, maxRows int) (*Engine, error) {
	if t == nil {
		return nil, ErrNoTable
	}
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	connector, err := duckdb.NewConnector("", nil)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	db := sql.OpenDB(connector)
	// One connection keeps the in-memory database and its settings in one place.
	db.SetMaxOpenConns(1)

	e := &Engine{db: db, columns: engineColumns(t), maxRows: maxRows}
	if err := e.load(ctx, t); err != nil {
		_ = db.Close()
		return nil, err
	}
	return e, nil
}

// Columns returns the engine's column layout.
func (e *Engine) Columns() []EngineColumn {
	return e.columns
}

// Close releases the database.
func (e *Engine) Close() error {
	return e.db.Close()
}

func (e *Engine) load(ctx context.Context, t *ingest.Table) error {
	defs := make([]string, len(e.columns))
	for i, c := range e.columns {
		defs[i] = quoteIdent(c.Name) + " " + c.SQLType
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(TableName), strings.Join(defs, ", "))

	conn, err := e.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	err = conn.Raw(func(raw any) error {
		driverConn, ok := raw.(driver.Conn)
		if !ok {
			return fmt.Errorf("unexpected raw conn type %T", raw)
		}
		appender, err := duckdb.NewAppenderFromConn(driverConn, "", TableName)
		if err != nil {
			return fmt.Errorf("create appender: %w", err)
		}
		defer func() { _ = appender.Close() }()

		row := make([]driver.Value, len(t.Columns))
		for i := 0; i < t.NumRows(); i++ {
			for j, c := range t.Columns {
				row[j] = c.Values[i].Any(c.Type)
			}
			if err := appender.AppendRow(row...); err != nil {
				return fmt.Errorf("append row %d: %w", i+1, err)
			}
		}
		return appender.Flush()
	})
	if err != nil {
		return err
	}

	for _, stmt := range []string{
		"SET enable_external_access = false",
		"SET lock_configuration = true",
	} {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("lock down engine: %w", err)
		}
	}
	return nil
}

// Query runs one read-only statement and returns at most maxRows rows.
func (e *Engine) Query(ctx context.Context, query string) (*QueryResult, error) {
	query, err := ValidateQuery(query)
	if err != nil {
		return nil, err
	}

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	res := &QueryResult{Columns: cols, Rows: [][]string{}}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if len(res.Rows) == e.maxRows {
			res.Truncated = true
			break
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out := make([]string, len(cols))
		for i, v := range values {
			out[i] = formatCell(v)
		}
		res.Rows = append(res.Rows, out)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return res, nil
}

// engineColumns maps table columns to SQL columns. DuckDB identifiers are
// case-insensitive, so names that collide ignoring case get a numeric suffix.
func engineColumns(t *ingest.Table) []EngineColumn {
	used := make(map[string]bool, len(t.Columns))
	out := make([]EngineColumn, len(t.Columns))
	for i, c := range t.Columns {
		name := c.Name
		for k := 2; used[strings.ToLower(name)]; k++ {
			name = c.Name + "_" + strconv.Itoa(k)
		}
		used[strings.ToLower(name)] = true
		out[i] = EngineColumn{Name: name, Source: c.Name, SQLType: sqlType(c.Type)}
	}
	return out
}

func sqlType(t ingest.ColumnType) string {
	switch t {
	case ingest.ColumnInteger:
		return "BIGINT"
	case ingest.ColumnFloat:
		return "DOUBLE"
	case ingest.ColumnBoolean:
		return "BOOLEAN"
	case ingest.ColumnDate:
		return "TIMESTAMP"
	default:
		return "VARCHAR"
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}
