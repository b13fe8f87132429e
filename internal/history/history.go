// Package history records the outcome of every ingestion so operators can see
// what was uploaded, by which session, and why an upload failed.
//
// Two stores implement Recorder: PostgresStore when a database URL is
// configured, MemoryStore otherwise.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/nexus/internal/ingest"
)

// DefaultLimit is the number of entries List returns when no limit is given.
const DefaultLimit = 50

// MaxLimit caps a single List call.
const MaxLimit = 500

// Entry is one recorded ingestion.
type Entry struct {
	ID        string               `json:"id"`
	SessionID string               `json:"sessionId,omitempty"`
	Source    string               `json:"source,omitempty"`
	Name      string               `json:"name,omitempty"`
	Kind      ingest.ContainerKind `json:"kind"`
	Status    ingest.Status        `json:"status"`
	Rows      int                  `json:"rows"`
	Columns   int                  `json:"columns"`
	Error     string               `json:"error,omitempty"`
	ErrorCode string               `json:"errorCode,omitempty"`
	IPAddress string               `json:"ipAddress,omitempty"`
	UserAgent string               `json:"userAgent,omitempty"`
	CreatedAt time.Time            `json:"createdAt"`
}

// Filter narrows List results.
type Filter struct {
	SessionID string
	Status    ingest.Status
	Limit     int
}

// limit returns the effective page size.
func (f Filter) limit() int {
	switch {
	case f.Limit <= 0:
		return DefaultLimit
	case f.Limit > MaxLimit:
		return MaxLimit
	default:
		return f.Limit
	}
}

// Recorder persists ingestion entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
	List(ctx context.Context, f Filter) ([]Entry, error)
}

// FromResult builds an Entry for res. Request metadata is taken from ctx.
func FromResult(ctx context.Context, sessionID string, res ingest.Result) Entry {
	e := Entry{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Source:    res.Source,
		Name:      res.Name,
		Kind:      res.Kind,
		Status:    res.Status,
		IPAddress: IPAddressFromContext(ctx),
		UserAgent: UserAgentFromContext(ctx),
		CreatedAt: time.Now().UTC(),
	}
	if res.OK() {
		e.Rows = res.Table.NumRows()
		e.Columns = res.Table.NumColumns()
	}
	if res.Err != nil {
		e.Error = res.Err.Error()
		e.ErrorCode = ingest.MapError(res.Err).Code
	}
	return e
}
