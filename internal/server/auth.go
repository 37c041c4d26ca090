package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/cyberxz2077/Startup-Hub/internal/session"
)

type contextKey string

const identityKey contextKey = "identity"

const sessionCookie = "session_token"

// withIdentity resolves the caller's token, if any, and attaches the identity
// to the request context. Anonymous requests pass through; handlers that
// require auth call requireIdentity.
func (s *Server) withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			if cookie, err := r.Cookie(sessionCookie); err == nil {
				token = cookie.Value
			}
		}
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		identity, err := s.sessions.Get(r.Context(), token)
		if err != nil {
			if !errors.Is(err, session.ErrUnauthenticated) {
				s.logger.Warn("session lookup failed", zap.Error(err))
			}
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// identityFrom returns the authenticated identity, or nil.
func identityFrom(ctx context.Context) *session.Identity {
	identity, _ := ctx.Value(identityKey).(*session.Identity)
	return identity
}

// requireIdentity responds 401 and returns nil when the caller is anonymous.
func (s *Server) requireIdentity(w http.ResponseWriter, r *http.Request) *session.Identity {
	identity := identityFrom(r.Context())
	if identity == nil {
		s.respondError(w, http.StatusUnauthorized, "Unauthorized")
	}
	return identity
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
