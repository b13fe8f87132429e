package web

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/JonMunkholm/nexus/internal/analyst"
	"github.com/JonMunkholm/nexus/internal/history"
	"github.com/JonMunkholm/nexus/internal/ingest"
	"github.com/JonMunkholm/nexus/internal/session"
)

const (
	defaultPageRows = 100
	maxPageRows     = 1000
)

// TableResponse describes the session's active table.
type TableResponse struct {
	ingest.Summary
	Kind       ingest.ContainerKind `json:"kind"`
	Source     string               `json:"source"`
	Candidates []string             `json:"candidates,omitempty"`
	UpdatedAt  time.Time            `json:"updatedAt"`
}

// RowsResponse is one page of table rows.
type RowsResponse struct {
	Columns []string   `json:"columns"`
	Offset  int        `json:"offset"`
	Limit   int        `json:"limit"`
	Total   int        `json:"total"`
	Rows    [][]string `json:"rows"`
}

// StatusResponse reports server load and capabilities.
type StatusResponse struct {
	Ingestions ingest.LimiterStatus `json:"ingestions"`
	Sessions   int                  `json:"sessions"`
	Analyst    bool                 `json:"analyst"`
	Loaded     bool                 `json:"loaded"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	_, state, _ := sessionFrom(r.Context())
	s.renderDashboard(w, http.StatusOK, state, nil)
}

// renderDashboard renders the main page for state, with an optional alert.
func (s *Server) renderDashboard(w http.ResponseWriter, status int, state *session.State, alert *ingest.UserMessage) {
	snap := state.Current()
	v := dashboardView{
		Snapshot:       snap,
		Alert:          alert,
		AnalystEnabled: s.analyst.Enabled(),
		Examples:       analyst.ExampleQuestions,
		MaxUploadMB:    s.cfg.Upload.MaxFileSize >> 20,
	}
	if snap.Loaded() {
		sum := ingest.Summarize(snap.Table, snap.Name, snap.Roles, s.cfg.Ingest.PreviewRows)
		v.Summary = &sum
	}
	renderHTML(w, status, dashboardPage(v))
}

// handleClear drops the session's table, archive and transcript.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	_, state, _ := sessionFrom(r.Context())
	state.Clear()
	redirectHome(w, r)
}

func (s *Server) handleDeleteTable(w http.ResponseWriter, r *http.Request) {
	_, state, _ := sessionFrom(r.Context())
	state.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetTable(w http.ResponseWriter, r *http.Request) {
	_, state, _ := sessionFrom(r.Context())
	snap := state.Current()
	if !snap.Loaded() {
		s.respondError(w, r, errNoTable, statusFor(errNoTable))
		return
	}

	writeJSON(w, http.StatusOK, TableResponse{
		Summary:    ingest.Summarize(snap.Table, snap.Name, snap.Roles, s.cfg.Ingest.PreviewRows),
		Kind:       snap.Kind,
		Source:     snap.Source,
		Candidates: snap.Candidates,
		UpdatedAt:  snap.UpdatedAt,
	})
}

// handleGetRows pages through the active table with offset and limit.
func (s *Server) handleGetRows(w http.ResponseWriter, r *http.Request) {
	_, state, _ := sessionFrom(r.Context())
	snap := state.Current()
	if !snap.Loaded() {
		s.respondError(w, r, errNoTable, statusFor(errNoTable))
		return
	}

	offset := parseIntParam(r, "offset", 0, 0)
	limit := min(parseIntParam(r, "limit", defaultPageRows, 1), maxPageRows)

	writeJSON(w, http.StatusOK, RowsResponse{
		Columns: snap.Table.ColumnNames(),
		Offset:  offset,
		Limit:   limit,
		Total:   snap.Table.NumRows(),
		Rows:    snap.Table.Slice(offset, limit),
	})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, ".csv", "text/csv; charset=utf-8", ingest.WriteCSV)
}

func (s *Server) handleExportParquet(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, ".parquet", "application/vnd.apache.parquet", ingest.WriteParquet)
}

// export encodes the active table into a buffer first so an encoding error
// can still be reported with a proper status.
func (s *Server) export(w http.ResponseWriter, r *http.Request, ext, contentType string,
	write func(io.Writer, *ingest.Table) error) {
	_, state, _ := sessionFrom(r.Context())
	snap := state.Current()
	if !snap.Loaded() {
		s.respondError(w, r, errNoTable, statusFor(errNoTable))
		return
	}

	var buf bytes.Buffer
	if err := write(&buf, snap.Table); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportName(snap.Name, ext)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// handleHistory lists the session's recorded ingestions, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, _, _ := sessionFrom(r.Context())

	entries, err := s.history.List(r.Context(), history.Filter{
		SessionID: id,
		Status:    ingest.Status(r.URL.Query().Get("status")),
		Limit:     parseIntParam(r, "limit", history.DefaultLimit, 1),
	})
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	_, state, _ := sessionFrom(r.Context())
	writeJSON(w, http.StatusOK, StatusResponse{
		Ingestions: s.limiter.Status(),
		Sessions:   s.sessions.Len(),
		Analyst:    s.analyst.Enabled(),
		Loaded:     state.Current().Loaded(),
	})
}
