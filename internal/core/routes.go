package core

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"subtrack/internal/types"
)

// defaultRedactedHeaders lists header names whose values are masked in request
// logs to prevent accidental leakage of credentials or session tokens.
var defaultRedactedHeaders = []string{
	"Authorization",
	"Cookie",
}

// MountRoutes defines the top-level routing hierarchy: the global middleware
// chain, the prefixed demo route group, and the unprefixed health check.
func (s *Server) MountRoutes() {
	s.registerGlobalMiddleware()

	// Demo routes live under the configured prefix so the backend can sit
	// behind a shared reverse proxy. The prefix root answers the billing
	// provider's reachability check.
	s.router.Route(s.Config.Server.RoutePrefix, func(r chi.Router) {
		r.Get("/", s.handleRoot)
		for _, registrar := range s.RouteRegistrars {
			registrar(r)
		}
	})

	s.router.Get("/health", s.HandleHealth)
}

// registerGlobalMiddleware applies middleware in strict order.
//
// Ordering rationale:
//  1. Recoverer     - outermost so it catches all downstream panics.
//  2. RequestID     - correlation ID must exist before anything logs.
//  3. RequestLogger - structured logging with redacted headers.
//  4. CORS          - browser access headers, handles OPTIONS preflight.
func (s *Server) registerGlobalMiddleware() {
	s.router.Use(s.Recoverer)
	s.router.Use(RequestIDMiddleware)
	s.router.Use(RequestLogger(s.Logger, defaultRedactedHeaders))
	s.router.Use(NewCORSMiddleware(s.corsAllowedOrigins()))
}

// handleRoot answers GET {prefix}/ with a minimal liveness body. The billing
// provider probes this path when validating the configured webhook host.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) corsAllowedOrigins() []string {
	if s.Config != nil && len(s.Config.Server.CorsAllowedOrigins) > 0 {
		return s.Config.Server.CorsAllowedOrigins
	}
	return []string{"*"}
}

// RequestIDMiddleware generates or propagates a unique request ID for
// correlation across logs. If the incoming request carries an X-Request-Id
// header that value is reused, otherwise a new UUID is generated. The ID is
// stored in the context and echoed as a response header.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := types.WithRequestID(r.Context(), requestID)
		w.Header().Set("X-Request-Id", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
