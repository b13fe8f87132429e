package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/nexus/internal/analyst"
	"github.com/JonMunkholm/nexus/internal/ingest"
	"github.com/JonMunkholm/nexus/internal/logging"
	"github.com/JonMunkholm/nexus/internal/session"
)

// ask answers question about the session's table and appends the exchange
// to the transcript. A question that cannot be asked at all (empty, no
// table, no provider) is rejected without touching the transcript; any later
// failure is recorded as a failed assistant message.
func (s *Server) ask(r *http.Request, question string) (analyst.Answer, error) {
	_, state, _ := sessionFrom(r.Context())
	snap := state.Current()

	switch {
	case question == "":
		return analyst.Answer{}, analyst.ErrEmptyQuestion
	case !snap.Loaded():
		return analyst.Answer{}, errNoTable
	case !s.analyst.Enabled():
		return analyst.Answer{}, analyst.ErrNotConfigured
	}

	state.AppendMessage(session.Message{Speaker: session.SpeakerUser, Text: question})

	in := analyst.Input{Table: snap.Table, Name: snap.Name, Roles: snap.Roles}
	ans, err := s.analyst.Ask(r.Context(), in, question)
	if err != nil {
		state.AppendMessage(session.Message{
			Speaker: session.SpeakerAssistant,
			Text:    ingest.FormatUserError(err),
			SQL:     ans.SQL,
			Failed:  true,
		})
		return ans, err
	}

	state.AppendMessage(session.Message{
		Speaker: session.SpeakerAssistant,
		Text:    ans.Text,
		SQL:     ans.SQL,
		Chart:   ans.Chart,
	})
	return ans, nil
}

// isRejectedQuestion reports whether err stopped a question before it
// reached the analyst.
func isRejectedQuestion(err error) bool {
	return errors.Is(err, analyst.ErrEmptyQuestion) ||
		errors.Is(err, errNoTable) ||
		errors.Is(err, analyst.ErrNotConfigured)
}

// handleAsk answers a question from the dashboard form. Analyst failures
// are shown in the transcript rather than as a page error.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	question, err := formValue(w, r, "question")
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	if _, err := s.ask(r, question); err != nil {
		if isRejectedQuestion(err) {
			s.respondError(w, r, err, statusFor(err))
			return
		}
		logging.FromContext(r.Context()).Warn("question failed", "error", err, "code", ingest.MapError(err).Code)
	}
	redirectHome(w, r)
}

func (s *Server) handleAPIAsk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	ans, err := s.ask(r, strings.TrimSpace(req.Question))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, ans)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	_, state, _ := sessionFrom(r.Context())
	msgs := state.Current().Messages
	if msgs == nil {
		msgs = []session.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleExamples(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, analyst.ExampleQuestions)
}
