package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"starnotify/internal/types"
)

const defaultRequestTimeout = 30 * time.Second

// defaultRedactedHeaders lists header names whose values are masked in request
// logs.
var defaultRedactedHeaders = []string{
	"Authorization",
	"Cookie",
}

// MountRoutes registers middleware and all routes.
func (s *Server) MountRoutes() {
	s.registerGlobalMiddleware()

	s.router.Route("/v1", s.mountV1)

	s.router.Get("/health", s.HandleHealth)
	if s.MetricsHandler != nil {
		s.router.Method(http.MethodGet, "/metrics", s.MetricsHandler)
	}
}

// registerGlobalMiddleware applies middleware in order. Recoverer is outermost
// so every panic is caught.
func (s *Server) registerGlobalMiddleware() {
	s.router.Use(s.Recoverer)
	s.router.Use(ContextTimeoutMiddleware(s.requestTimeout()))
	s.router.Use(RequestIDMiddleware)
	s.router.Use(RequestLogger(s.Logger, defaultRedactedHeaders))
	s.router.Use(s.MetricsMiddleware)
}

func (s *Server) mountV1(r chi.Router) {
	r.Route("/measurements", func(r chi.Router) {
		r.Get("/", s.handleListMeasurements)
		r.Post("/", s.handleIngestMeasurement)
		r.Delete("/", s.handleResetSession)
	})
	r.Route("/properties", func(r chi.Router) {
		r.Get("/", s.handleListProperties)
		r.Put("/{name}", s.handleSetProperty)
	})
	r.Put("/config/{key}", s.handleApplyConfig)
	r.Route("/triggers", func(r chi.Router) {
		r.Get("/", s.handleListTriggers)
		r.Get("/{id}", s.handleGetTrigger)
	})
	r.Get("/deliveries", s.handleListDeliveries)
	r.Post("/channels/{channel}/test", s.handleTestChannel)
	r.Post("/channels/{channel}/send", s.handleSendMeasurement)
}

func (s *Server) requestTimeout() time.Duration {
	if s.RequestTimeout > 0 {
		return s.RequestTimeout
	}
	return defaultRequestTimeout
}

// ContextTimeoutMiddleware bounds each request by duration. Handlers and the
// collaborators they call observe the deadline through r.Context(); a dispatch
// cut short this way reports the cancellation instead of a transport timeout.
func ContextTimeoutMiddleware(duration time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), duration)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDMiddleware reuses the X-Request-Id header or generates a UUID. The
// id is stored in the request context, where types.GetRequestID reads it for
// logs and error bodies, and echoed in the X-Request-Id response header.
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
