package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"fitpay-billing/internal/domain/ports/repository"
)

// Server is the read-only ops API: recent ledger events and per-charge audit
// trails, for the manual reconciliation workflow. It never mutates billing
// state.
type Server struct {
	events repository.ProcessedEventRepository
	audit  repository.AuditLogRepository
	apiKey string
	auth   *AuthManager
	log    *zerolog.Logger
}

func NewServer(
	events repository.ProcessedEventRepository,
	audit repository.AuditLogRepository,
	apiKey string,
	auth *AuthManager,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "OpsServer").Logger()
	return &Server{
		events: events,
		audit:  audit,
		apiKey: apiKey,
		auth:   auth,
		log:    &l,
	}
}

// RegisterRoutes sets up the routing for the ops API.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/api/v1/events", eventsListHandler(s.events))
		r.Get("/api/v1/audit", auditListHandler(s.audit))
	})
	r.Post("/api/v1/token", s.tokenHandler)
}

// authMiddleware accepts either the static API key or a minted JWT as the
// bearer credential.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			s.log.Error().Msg("Ops API key is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			http.Error(w, "Unauthorized: Malformed token", http.StatusUnauthorized)
			return
		}

		if tokenParts[1] != s.apiKey {
			if s.auth == nil || s.auth.Verify(tokenParts[1]) != nil {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// tokenHandler exchanges the static API key for a short-lived JWT so humans
// don't have to paste the long-lived key into tools.
func (s *Server) tokenHandler(w http.ResponseWriter, r *http.Request) {
	if s.apiKey == "" || s.auth == nil {
		http.Error(w, "Not configured", http.StatusNotImplemented)
		return
	}
	authHeader := r.Header.Get("Authorization")
	if authHeader != "Bearer "+s.apiKey {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	token, err := s.auth.Mint()
	if err != nil {
		s.log.Error().Err(err).Msg("failed to mint ops token")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"token":"` + token + `"}`))
}
