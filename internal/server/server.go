package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/forcelink/forcelink/internal/database"
	"github.com/forcelink/forcelink/internal/handler"
	"github.com/forcelink/forcelink/internal/logger"
	"github.com/forcelink/forcelink/internal/metrics"
	"github.com/forcelink/forcelink/internal/repository"
)

type Server struct {
	httpServer *http.Server
	dbPool     database.Pool
}

// NewServer creates a new Server instance with the sync API mounted
func NewServer(port int, apiKey string, trustedProxies []string, dbPool database.Pool, engine handler.CycleRunner, queue repository.PushQueue, mappings repository.Mapping, links repository.Link, cache handler.MappingCache) *Server {
	r := chi.NewRouter()

	// Middleware stack
	// Chi middleware executes in order defined (outermost to innermost)
	detector := NewSuspiciousActivityDetector()

	r.Use(SecurityHeadersMiddleware())
	r.Use(AuthMiddleware(apiKey, trustedProxies, detector))
	r.Use(SecurityLoggingMiddleware(trustedProxies, detector))
	r.Use(RequestSizeLimitMiddleware(1 << 20)) // 1MB limit
	r.Use(metrics.Middleware)
	r.Use(loggingMiddleware)

	// Health check routes (unversioned)
	r.Get("/healthz", handler.HandleHealthz())
	r.Get("/readyz", handler.HandleReadyz(dbPool))

	// Version endpoint (public, for deployment verification)
	r.Get("/version", handler.HandleVersion())

	// Metrics endpoint (public, for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	syncHandler := handler.NewSyncHandler(engine)
	queueHandler := handler.NewQueueHandler(queue)
	mappingHandler := handler.NewMappingHandler(mappings, links, cache)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// On-demand cycle triggers
		r.Route("/sync", func(r chi.Router) {
			r.Post("/push", syncHandler.HandleRunPush)
			r.Post("/pull", syncHandler.HandleRunPull)
			r.Post("/reconcile", syncHandler.HandleRunReconcile)
			r.Post("/orphans", syncHandler.HandlePurgeOrphans)
		})

		// Push queue operations
		r.Route("/queue", func(r chi.Router) {
			r.Get("/depth", queueHandler.HandleDepth)
			r.Get("/quarantine", queueHandler.HandleListQuarantine)
			r.Post("/quarantine/retry", queueHandler.HandleRetry)
			r.Post("/quarantine/purge", queueHandler.HandlePurge)
		})

		// Mapping configuration
		r.Route("/mappings", func(r chi.Router) {
			r.Get("/", mappingHandler.HandleListMappings)
			r.Get("/get", mappingHandler.HandleGetMapping)
			r.Post("/invalidate", mappingHandler.HandleInvalidate)
		})

		// Link operations
		r.Post("/links/force-pull", mappingHandler.HandleForcePull)
	})

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		dbPool: dbPool,
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK, // default status
	}
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	if !rw.written {
		rw.statusCode = statusCode
		rw.written = true
		rw.ResponseWriter.WriteHeader(statusCode)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Skip logging for health check endpoints and metrics
		if strings.HasPrefix(r.URL.Path, "/healthz") ||
			strings.HasPrefix(r.URL.Path, "/readyz") ||
			strings.HasPrefix(r.URL.Path, "/metrics") {
			next.ServeHTTP(w, r)
			return
		}

		// Requests trigger cycles, so the request scope carries a cycle id
		// that the engine and its logs pick up from the context.
		cycleID := logger.GenerateCycleID()
		ctx := logger.WithCycleID(r.Context(), cycleID)
		r = r.WithContext(ctx)

		log := logger.FromContext(ctx)

		log.Info(LogMsgRequestStarted,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"content_length", r.ContentLength,
			"user_agent", r.UserAgent())

		// Sanitize headers for logging
		sanitizedHeaders := make(http.Header)
		for k, v := range r.Header {
			if strings.EqualFold(k, HeaderAPIKey) || strings.EqualFold(k, HeaderAuthorization) {
				sanitizedHeaders[k] = []string{RedactedValue}
			} else {
				sanitizedHeaders[k] = v
			}
		}
		log.Debug(LogMsgRequestHeaders, "headers", sanitizedHeaders)

		rw := newResponseWriter(w)

		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		log.Info(LogMsgRequestCompleted,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"duration", duration)
	})
}

// Start starts the server
func (s *Server) Start() error {
	slog.Default().Info(LogMsgServerStarting, "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Stop stops the server gracefully
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
