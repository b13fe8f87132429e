package web

import (
	"net/http"
	"time"

	"github.com/JonMunkholm/nexus/internal/ingest"
)

// IngestResponse describes a successful ingestion.
type IngestResponse struct {
	Status     ingest.Status        `json:"status"`
	Kind       ingest.ContainerKind `json:"kind"`
	Name       string               `json:"name"`
	Source     string               `json:"source"`
	Candidates []string             `json:"candidates,omitempty"`
	Rows       int                  `json:"rows"`
	Columns    []string             `json:"columns"`
	Roles      ingest.Roles         `json:"roles,omitempty"`
	UpdatedAt  time.Time            `json:"updatedAt"`
}

func toIngestResponse(res ingest.Result) IngestResponse {
	return IngestResponse{
		Status:     res.Status,
		Kind:       res.Kind,
		Name:       res.Name,
		Source:     res.Source,
		Candidates: res.Candidates,
		Rows:       res.Table.NumRows(),
		Columns:    res.Table.ColumnNames(),
		Roles:      res.Roles,
		UpdatedAt:  time.Now().UTC(),
	}
}

// handleUpload ingests the uploaded files into the session and returns to
// the dashboard.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	b, err := s.readBatch(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	if _, err := s.ingestBatch(r, b); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	redirectHome(w, r)
}

// handleSelect switches the active table to another entry of the archive
// the session already holds.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	if _, err := s.selectEntry(w, r); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	redirectHome(w, r)
}

func (s *Server) handleAPIIngest(w http.ResponseWriter, r *http.Request) {
	b, err := s.readBatch(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	res, err := s.ingestBatch(r, b)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, toIngestResponse(res))
}

func (s *Server) handleAPISelect(w http.ResponseWriter, r *http.Request) {
	res, err := s.selectEntry(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, toIngestResponse(res))
}

// selectEntry re-ingests the session's archive with the requested entry.
func (s *Server) selectEntry(w http.ResponseWriter, r *http.Request) (ingest.Result, error) {
	entry, err := formValue(w, r, "entry")
	if err != nil {
		return ingest.Result{}, err
	}

	_, state, _ := sessionFrom(r.Context())
	source, data, ok := state.Archive()
	if !ok {
		return ingest.Result{}, errNoArchive
	}

	return s.ingestBatch(r, ingest.Batch{
		Files: []ingest.File{{Name: source, Data: data}},
		Entry: entry,
	})
}
