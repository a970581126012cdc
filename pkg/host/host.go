package host

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vango-dev/waypoint/pkg/navigation"
	"github.com/vango-dev/waypoint/pkg/telemetry"
)

// DefaultTimeout bounds a navigation started by a request.
const DefaultTimeout = 10 * time.Second

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTimeout bounds each navigation started by a request.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMetricsHandler serves h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithCheckOrigin sets the origin check of the events endpoint.
func WithCheckOrigin(fn func(*http.Request) bool) Option {
	return func(s *Server) {
		s.checkOrigin = fn
	}
}

// Server serves a coordinator over HTTP.
type Server struct {
	coord       *navigation.Coordinator
	logger      *slog.Logger
	timeout     time.Duration
	metrics     http.Handler
	checkOrigin func(*http.Request) bool

	hub         *Hub
	unsubscribe func()
	mux         chi.Router
}

// New builds a server for coord and subscribes its event hub.
// Call Close to unsubscribe and disconnect event clients.
func New(coord *navigation.Coordinator, opts ...Option) *Server {
	s := &Server{
		coord:   coord,
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = NewHub(s.logger, s.checkOrigin)
	s.unsubscribe = coord.Subscribe(s.hub)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/navigate", s.handleNavigate)
	r.Get("/render", s.handleRender)
	r.Post("/back", s.handleBack)
	r.Get("/current", s.handleCurrent)
	r.Get("/routes", s.handleRoutes)
	r.Handle("/events", s.hub)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	s.mux = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Hub returns the event hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Close unsubscribes from the coordinator and disconnects event clients.
func (s *Server) Close() {
	s.unsubscribe()
	s.hub.Close()
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	commit, err := s.navigate(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	status := http.StatusOK
	if commit.NotFound {
		status = http.StatusNotFound
	}
	writeJSON(w, status, commitJSON(commit, boolParam(r, "html")))
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	commit, err := s.navigate(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Waypoint-Path", commit.URL())
	if commit.NotFound {
		w.WriteHeader(http.StatusNotFound)
	}
	if commit.View == nil {
		io.WriteString(w, commit.Title)
		return
	}
	if err := commit.View.Render(w); err != nil {
		s.logger.Error("rendering view", "view", commit.ViewID, "error", err)
	}
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	commit, err := s.coord.Back(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commitJSON(commit, boolParam(r, "html")))
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	commit := s.coord.Current()
	if commit == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, commitJSON(commit, boolParam(r, "html")))
}

func (s *Server) handleRoutes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Routes(s.coord.Table()))
}

func (s *Server) navigate(r *http.Request) (*navigation.Commit, error) {
	target := r.URL.Query().Get("path")
	if target == "" {
		target = "/"
	}
	var opts []navigation.NavigateOption
	if boolParam(r, "replace") {
		opts = append(opts, navigation.Replace())
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	return s.coord.Navigate(ctx, target, opts...)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, navigation.ErrNoHistory) {
		writeJSON(w, http.StatusConflict, ErrorJSON{Error: err.Error()})
		return
	}
	outcome := telemetry.Classify(err)
	writeJSON(w, statusFor(outcome, err), ErrorJSON{Error: err.Error(), Outcome: outcome})
}

func statusFor(outcome string, err error) int {
	switch outcome {
	case telemetry.OutcomeDenied:
		return http.StatusForbidden
	case telemetry.OutcomeRedirectLoop:
		return http.StatusLoopDetected
	case telemetry.OutcomeResolveError, telemetry.OutcomeLoadError:
		return http.StatusBadGateway
	case telemetry.OutcomeInvalidPath:
		return http.StatusBadRequest
	case telemetry.OutcomeCancelled:
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout
		}
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

func boolParam(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return v
}
