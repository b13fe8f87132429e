package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/nexus/internal/logging"
	"github.com/JonMunkholm/nexus/internal/session"
)

// sessionHeader lets API clients without a cookie jar carry their session.
const sessionHeader = "X-Session-ID"

type ctxKey int

const sessionKey ctxKey = iota

type sessionRef struct {
	id    string
	state *session.State
}

// withSession resolves the caller's session from the cookie (or the
// X-Session-ID header) and creates one when it is missing or expired. The
// session id is echoed in a cookie and in the X-Session-ID response header.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var presented string
		if c, err := r.Cookie(s.cfg.Session.CookieName); err == nil {
			presented = c.Value
		} else {
			presented = r.Header.Get(sessionHeader)
		}

		id, state := s.sessions.GetOrCreate(presented)
		if id != presented {
			http.SetCookie(w, &http.Cookie{
				Name:     s.cfg.Session.CookieName,
				Value:    id,
				Path:     "/",
				MaxAge:   int(s.cfg.Session.TTL.Seconds()),
				HttpOnly: true,
				Secure:   s.cfg.Security.SecureCookies,
				SameSite: http.SameSiteLaxMode,
			})
		}
		w.Header().Set(sessionHeader, id)

		ctx := logging.ContextWithSessionID(r.Context(), id)
		ctx = context.WithValue(ctx, sessionKey, sessionRef{id: id, state: state})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionFrom returns the session attached by withSession.
func sessionFrom(ctx context.Context) (string, *session.State, bool) {
	ref, ok := ctx.Value(sessionKey).(sessionRef)
	if !ok {
		return "", nil, false
	}
	return ref.id, ref.state, true
}
