package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/nexus/internal/ingest"
)

// schema creates the history table. It is safe to run on every start.
const schema = `
CREATE TABLE IF NOT EXISTS ingestion_history (
	id          UUID PRIMARY KEY,
	session_id  TEXT,
	source      TEXT,
	name        TEXT,
	kind        TEXT NOT NULL,
	status      TEXT NOT NULL,
	row_count   INTEGER NOT NULL DEFAULT 0,
	column_count INTEGER NOT NULL DEFAULT 0,
	error       TEXT,
	error_code  TEXT,
	ip_address  TEXT,
	user_agent  TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS ingestion_history_session_idx
	ON ingestion_history (session_id, created_at DESC);
`

// PostgresStore records entries in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates the history table if needed.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("migrate ingestion_history: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Record implements Recorder.
func (p *PostgresStore) Record(ctx context.Context, e Entry) error {
	id, err := uuid.Parse(e.ID)
	if err != nil {
		return fmt.Errorf("invalid entry id %q: %w", e.ID, err)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO ingestion_history
			(id, session_id, source, name, kind, status, row_count, column_count,
			 error, error_code, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		pgtype.UUID{Bytes: id, Valid: true},
		toPgText(e.SessionID), toPgText(e.Source), toPgText(e.Name),
		string(e.Kind), string(e.Status), e.Rows, e.Columns,
		toPgText(e.Error), toPgText(e.ErrorCode),
		toPgText(e.IPAddress), toPgText(e.UserAgent),
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ingestion_history: %w", err)
	}
	return nil
}

// List implements Recorder. Entries are returned newest first.
func (p *PostgresStore) List(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		conditions []string
		args       []any
	)
	if f.SessionID != "" {
		args = append(args, f.SessionID)
		conditions = append(conditions, fmt.Sprintf("session_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT id, session_id, source, name, kind, status, row_count, column_count,
		error, error_code, ip_address, user_agent, created_at
		FROM ingestion_history`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, f.limit())
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ingestion_history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// scanEntry scans a single ingestion_history row.
func scanEntry(rows pgx.Rows) (Entry, error) {
	var (
		id        pgtype.UUID
		sessionID pgtype.Text
		source    pgtype.Text
		name      pgtype.Text
		kind      string
		status    string
		nrows     int32
		ncols     int32
		errText   pgtype.Text
		errCode   pgtype.Text
		ipAddress pgtype.Text
		userAgent pgtype.Text
		createdAt pgtype.Timestamptz
	)
	err := rows.Scan(&id, &sessionID, &source, &name, &kind, &status, &nrows, &ncols,
		&errText, &errCode, &ipAddress, &userAgent, &createdAt)
	if err != nil {
		return Entry{}, fmt.Errorf("scan ingestion_history: %w", err)
	}

	e := Entry{
		Kind:      ingest.ContainerKind(kind),
		Status:    ingest.Status(status),
		Rows:      int(nrows),
		Columns:   int(ncols),
		SessionID: sessionID.String,
		Source:    source.String,
		Name:      name.String,
		Error:     errText.String,
		ErrorCode: errCode.String,
		IPAddress: ipAddress.String,
		UserAgent: userAgent.String,
		CreatedAt: createdAt.Time,
	}
	if id.Valid {
		e.ID = uuid.UUID(id.Bytes).String()
	}
	return e, nil
}

// toPgText converts a string to pgtype.Text, invalid when empty.
func toPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}
