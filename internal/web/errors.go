package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is logged server-side with its technical detail and the request
// id, then mapped through ingest.MapError to a user message rendered in the
// format the client asked for: an HTML fragment for HTMX, JSON for the API,
// or the dashboard with an alert for browser form posts.

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/nexus/internal/analyst"
	"github.com/JonMunkholm/nexus/internal/ingest"
	"github.com/JonMunkholm/nexus/internal/logging"
)

var (
	errNoTable    = errors.New("no table loaded")
	errNoFile     = errors.New("no file provided")
	errNoArchive  = errors.New("no archive loaded")
	errBadRequest = errors.New("invalid request body")
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Action    string `json:"action,omitempty"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

// respondError logs err and returns a user-friendly response based on the
// request type (HTMX, JSON, or HTML).
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := ingest.MapError(err)
	requestID := middleware.GetReqID(r.Context())

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if statusCode >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	switch {
	case isHTMX(r):
		renderHTML(w, statusCode, errorAlert(userMsg))
	case wantsJSON(r):
		writeJSON(w, statusCode, ErrorResponse{
			Error:     userMsg.Message,
			Message:   userMsg.Message,
			Action:    userMsg.Action,
			Code:      userMsg.Code,
			RequestID: requestID,
		})
	default:
		s.respondErrorHTML(w, r, userMsg, statusCode)
	}
}

// respondErrorHTML re-renders the dashboard with an alert so a failed form
// post keeps the user's context.
func (s *Server) respondErrorHTML(w http.ResponseWriter, r *http.Request, msg ingest.UserMessage, statusCode int) {
	if _, state, ok := sessionFrom(r.Context()); ok {
		s.renderDashboard(w, statusCode, state, &msg)
		return
	}
	renderHTML(w, statusCode, errorPage(msg))
}

// statusFor picks the HTTP status for an error.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes), errors.Is(err, ingest.ErrSizeLimit):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ingest.ErrTooManyIngestions), errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, errNoFile), errors.Is(err, errBadRequest), errors.Is(err, analyst.ErrEmptyQuestion):
		return http.StatusBadRequest
	case errors.Is(err, errNoTable), errors.Is(err, analyst.ErrNoTable), errors.Is(err, errNoArchive):
		return http.StatusConflict
	case errors.Is(err, analyst.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, analyst.ErrReadOnly), errors.Is(err, analyst.ErrNoAnswer):
		return http.StatusBadGateway
	case isIngestFailure(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func isIngestFailure(err error) bool {
	for _, target := range []error{
		ingest.ErrCorruptArchive,
		ingest.ErrEntryNotFound,
		ingest.ErrUnsupportedWorkbookFormat,
		ingest.ErrDecodeExhausted,
		ingest.ErrNoTabularContent,
		ingest.ErrEmptyFile,
		ingest.ErrInvalidCSV,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON checks if the client prefers JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}
