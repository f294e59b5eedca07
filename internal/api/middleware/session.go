package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// DefaultSession is used when a request names no session.
const DefaultSession = "default"

// SessionHeader carries the browser session id.
const SessionHeader = "X-Session-ID"

// respondError writes a JSON error response
func respondError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// ExtractSession reads the session id from the header, then the cookie,
// then the "session" query parameter used by WebSocket clients.
func ExtractSession(r *http.Request) string {
	if s := strings.TrimSpace(r.Header.Get(SessionHeader)); s != "" {
		return s
	}
	if cookie, err := r.Cookie("session_id"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if s := strings.TrimSpace(r.URL.Query().Get("session")); s != "" {
		return s
	}
	return DefaultSession
}

type contextKey string

const (
	SessionContextKey contextKey = "session"
)

// Session stores the request's session id in the context. Ids containing
// the storage key separator are rejected.
func Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := ExtractSession(r)
		if strings.Contains(session, ":") || len(session) > 128 {
			respondError(w, "invalid session id", http.StatusBadRequest)
			return
		}
		ctx := context.WithValue(r.Context(), SessionContextKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetSession returns the session stored by Session, or DefaultSession.
func GetSession(ctx context.Context) string {
	if s, ok := ctx.Value(SessionContextKey).(string); ok && s != "" {
		return s
	}
	return DefaultSession
}
