package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/JonMunkholm/nexus/internal/history"
	"github.com/JonMunkholm/nexus/internal/ingest"
	"github.com/JonMunkholm/nexus/internal/logging"
)

// multipartMemory is how much of a multipart body is kept in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// maxFormSize bounds non-upload request bodies.
const maxFormSize = 1 << 20

// parseIntParam parses an integer query parameter, falling back to def when
// it is missing, malformed or below min.
func parseIntParam(r *http.Request, name string, def, min int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return def
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < min {
		return def
	}
	return i
}

// readBatch reads every file of a multipart upload. Files may be sent under
// the "files" or "file" field; an optional "entry" field selects an archive
// entry.
func (s *Server) readBatch(w http.ResponseWriter, r *http.Request) (ingest.Batch, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return ingest.Batch{}, errNoFile
		}
		return ingest.Batch{}, fmt.Errorf("parse upload: %w", err)
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	b := ingest.Batch{Entry: strings.TrimSpace(r.FormValue("entry"))}
	for _, field := range []string{"files", "file"} {
		for _, fh := range r.MultipartForm.File[field] {
			f, err := fh.Open()
			if err != nil {
				return ingest.Batch{}, fmt.Errorf("open %s: %w", fh.Filename, err)
			}
			data, err := io.ReadAll(f)
			_ = f.Close()
			if err != nil {
				return ingest.Batch{}, fmt.Errorf("read %s: %w", fh.Filename, err)
			}
			b.Files = append(b.Files, ingest.File{Name: filepath.Base(fh.Filename), Data: data})
		}
	}
	if len(b.Files) == 0 {
		return ingest.Batch{}, errNoFile
	}
	return b, nil
}

// ingestBatch runs one ingestion under the process-wide limiter, records it
// in the history and applies a successful result to the caller's session.
// A failed or empty ingestion returns the result together with its error and
// leaves the session untouched.
func (s *Server) ingestBatch(r *http.Request, b ingest.Batch) (ingest.Result, error) {
	id, state, _ := sessionFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Upload.Timeout)
	defer cancel()

	res, err := s.limiter.Ingest(ctx, s.ingester, b)
	if err != nil {
		return ingest.Result{}, err
	}

	entry := history.FromResult(WithRequestMetadata(ctx, r), id, res)
	if err := s.history.Record(ctx, entry); err != nil {
		logging.FromContext(ctx).Warn("record ingestion history failed", "error", err)
	}

	if !res.OK() {
		return res, res.Err
	}
	state.Apply(res, archiveData(b, res))
	return res, nil
}

// archiveData returns the bytes of the archive a result came from, or nil
// when the result did not come from an archive.
func archiveData(b ingest.Batch, res ingest.Result) []byte {
	if res.Kind != ingest.KindArchive {
		return nil
	}
	for _, f := range b.Files {
		if f.Name == res.Source {
			return f.Data
		}
	}
	return nil
}

// decodeJSON decodes a bounded JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// formValue reads one field from a JSON or form-encoded body.
func formValue(w http.ResponseWriter, r *http.Request, field string) (string, error) {
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		var body map[string]string
		if err := decodeJSON(w, r, &body); err != nil {
			return "", err
		}
		return strings.TrimSpace(body[field]), nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	return strings.TrimSpace(r.FormValue(field)), nil
}

// redirectHome ends a form post. HTMX clients get an HX-Redirect header.
func redirectHome(w http.ResponseWriter, r *http.Request) {
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", "/")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// exportName derives a download filename from a table name.
func exportName(name, ext string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		out = "table"
	}
	return out + ext
}
