package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pfrederiksen/teamtemp/internal/aggregate"
	"github.com/pfrederiksen/teamtemp/internal/export"
	"github.com/pfrederiksen/teamtemp/internal/filter"
	"github.com/pfrederiksen/teamtemp/internal/logger"
	"github.com/pfrederiksen/teamtemp/internal/source"
)

// maxBodyBytes caps request bodies on POST /sources.
const maxBodyBytes = 64 << 10

// errBadRequest marks malformed query parameters and request bodies.
var errBadRequest = errors.New("bad request")

// Service is the application surface served over HTTP.
type Service interface {
	RegisterSource(ctx context.Context, url, tribe string) (source.Source, bool, error)
	ListSources(ctx context.Context) ([]source.Source, error)
	DeleteSource(ctx context.Context, id string) (bool, error)
	GetData(ctx context.Context, force bool) (*aggregate.Generation, error)
	Export(ctx context.Context, w io.Writer, format export.Format, force bool, f *filter.Filter) (string, error)
}

// Options configures a Server.
type Options struct {
	Addr            string
	Version         string
	ShutdownTimeout time.Duration
}

// Server serves the HTTP API.
type Server struct {
	svc    Service
	opts   Options
	router chi.Router
}

// New creates a Server for svc.
func New(svc Service, opts Options) *Server {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 15 * time.Second
	}
	s := &Server{svc: svc, opts: opts}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors)

	r.Get("/version", s.handleVersion)
	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/sources", func(r chi.Router) {
		r.Get("/", s.handleListSources)
		r.Post("/", s.handleAddSource)
		r.Delete("/{id}", s.handleDeleteSource)
	})

	r.Get("/data", s.handleData)
	r.Get("/export.xlsx", s.handleExport(export.FormatXLSX))
	r.Get("/export.csv", s.handleExport(export.FormatCSV))

	return r
}

// Run listens on opts.Addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", logger.Fields{"addr": s.opts.Addr, "version": s.opts.Version})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("Server shutdown complete", nil)
	return nil
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.opts.Version})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, logger.GetMetricsSnapshot())
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.svc.ListSources(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sources": sources})
}

type addSourceRequest struct {
	URL   string `json:"url"`
	Tribe string `json:"tribe"`
}

func (s *Server) handleAddSource(w http.ResponseWriter, r *http.Request) {
	var req addSourceRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: decoding request: %v", errBadRequest, err))
		return
	}

	src, created, err := s.svc.RegisterSource(r.Context(), req.URL, req.Tribe)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, src)
}

func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	deleted, err := s.svc.DeleteSource(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !deleted {
		writeError(w, fmt.Errorf("%w: %s", source.ErrNotFound, id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	force, err := parseForce(r)
	if err != nil {
		writeError(w, err)
		return
	}
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}

	gen, err := s.svc.GetData(r.Context(), force)
	if err != nil {
		writeError(w, err)
		return
	}

	records := f.Apply(gen.Records)
	if gen.HasErrors() {
		writeJSON(w, http.StatusOK, map[string]any{"data": records, "errors": gen.Errors})
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleExport(format export.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		force, err := parseForce(r)
		if err != nil {
			writeError(w, err)
			return
		}
		f, err := parseFilter(r)
		if err != nil {
			writeError(w, err)
			return
		}

		var buf bytes.Buffer
		name, err := s.svc.Export(r.Context(), &buf, format, force, f)
		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", format.ContentType())
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		buf.WriteTo(w) // nolint:errcheck
	}
}

// parseForce reads the optional force query parameter.
func parseForce(r *http.Request) (bool, error) {
	raw := r.URL.Query().Get("force")
	if raw == "" {
		return false, nil
	}
	force, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: force must be a boolean, got %q", errBadRequest, raw)
	}
	return force, nil
}

// parseFilter reads the optional tribe, team and dates query parameters.
// tribe and team may repeat or hold comma-separated values.
func parseFilter(r *http.Request) (*filter.Filter, error) {
	q := r.URL.Query()
	f, err := filter.New(filter.Criteria{
		Tribes: q["tribe"],
		Teams:  q["team"],
		Range:  q.Get("dates"),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return f, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) // nolint:errcheck
}

// writeError maps sentinel errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, source.ErrInvalid), errors.Is(err, errBadRequest):
		code = http.StatusBadRequest
	case errors.Is(err, source.ErrNotFound):
		code = http.StatusNotFound
	}
	if code == http.StatusInternalServerError {
		logger.Error("Request failed", nil, err)
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
