// Package server exposes the gateway over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/SanketP2003/Ai-Content-Detection/pkg/gateway"
	"github.com/SanketP2003/Ai-Content-Detection/pkg/logging"
	"github.com/SanketP2003/Ai-Content-Detection/pkg/provider"
	"github.com/SanketP2003/Ai-Content-Detection/pkg/telemetry"
)

// MaxBodyBytes caps request bodies, matching the web client's upload limit.
const MaxBodyBytes = 1 << 20

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// Dispatcher runs one task request. *gateway.Gateway implements it.
type Dispatcher interface {
	Handle(ctx context.Context, task provider.Task, body map[string]any) (any, error)
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the access logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics counts responses and mounts the exposition handler at path.
func WithMetrics(m *telemetry.Metrics, path string) Option {
	return func(s *Server) {
		s.metrics = m
		s.metricsPath = path
	}
}

// WithAllowedOrigins sets the CORS origin allow-list. "*" allows any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) { s.origins = origins }
}

// Server holds the HTTP router and the dispatcher its handlers call.
type Server struct {
	dispatcher  Dispatcher
	logger      *slog.Logger
	metrics     *telemetry.Metrics
	metricsPath string
	origins     []string

	handler http.Handler
}

// New creates a Server ready to use as an http.Handler.
func New(d Dispatcher, opts ...Option) *Server {
	s := &Server{
		dispatcher: d,
		logger:     slog.Default(),
		origins:    []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := chi.NewRouter()

	r.Use(s.requestID)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/healthz", handleHealth)
	if s.metrics != nil && s.metricsPath != "" {
		r.Method(http.MethodGet, s.metricsPath, s.metrics.Handler())
	}
	r.Post("/api/chat", s.handleTask(provider.TaskChat))
	r.Post("/api/detect/bulk-ai", s.handleTask(provider.TaskDetect))

	s.handler = otelhttp.NewHandler(r, "gateway.http",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// ServeHTTP makes Server satisfy the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "ok")
}

// errorResponse is the body of every non-2xx API answer.
type errorResponse struct {
	Error         string `json:"error"`
	Details       string `json:"details,omitempty"`
	ReceivedLines *int   `json:"received_lines,omitempty"`
}

func (s *Server) handleTask(task provider.Task) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "Request body too large"})
				return
			}
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON body"})
			return
		}

		res, err := s.dispatcher.Handle(r.Context(), task, body)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		switch v := res.(type) {
		case *provider.ChatResult:
			// The web client reads the reply with response.json().
			writeJSON(w, http.StatusOK, v.Text)
		default:
			writeJSON(w, http.StatusOK, v)
		}
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ge *gateway.Error
	if !errors.As(err, &ge) {
		logging.FromContext(r.Context(), s.logger).Error("unclassified handler error", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
		return
	}
	writeJSON(w, ge.HTTPStatus(), errorResponse{
		Error:         ge.Message,
		Details:       ge.Detail,
		ReceivedLines: ge.ReceivedLines,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// requestID takes the caller's request ID or mints one, and threads it
// through the context and the response headers.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

// accessLog records one metric sample and one debug line per response.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.metrics.ObserveHTTP(route, status)
		logging.FromContext(r.Context(), s.logger).Debug("http response",
			"method", r.Method,
			"route", route,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}
