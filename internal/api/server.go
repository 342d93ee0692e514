// Package api exposes the triage pipeline over a small REST surface.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/deskd-io/deskd/internal/logbuf"
	"github.com/deskd-io/deskd/internal/metrics"
	"github.com/deskd-io/deskd/pkg/protocol"
)

// TicketService is what the server needs from the orchestrator.
type TicketService interface {
	ProcessTicket(ctx context.Context, text string) (*protocol.Result, error)
	MetricsSummary() metrics.Summary
	RecentInteractions(n int) []protocol.Interaction
	ExportMetrics(path string) error
}

// LogTailer abstracts the log ring so tests can stub it.
type LogTailer interface {
	Tail(n int, minLevel slog.Level, since time.Time) []logbuf.Entry
}

// Config holds API server configuration.
type Config struct {
	Host string
	Port int
	Key  string // Bearer token; empty disables auth

	ExportPath string // destination for POST /api/metrics/export
}

// Server is the deskd REST API server.
type Server struct {
	svc    TicketService
	cfg    Config
	logger *slog.Logger
	logs   LogTailer
	srv    *http.Server
}

// NewServer creates the API server. logs may be nil.
func NewServer(svc TicketService, cfg Config, logger *slog.Logger, logs LogTailer) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		svc:    svc,
		cfg:    cfg,
		logger: logger,
		logs:   logs,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/tickets", s.requireAuth(s.handlePostTicket))
	mux.HandleFunc("GET /api/metrics", s.requireAuth(s.handleMetrics))
	mux.HandleFunc("GET /api/metrics/recent", s.requireAuth(s.handleRecent))
	mux.HandleFunc("POST /api/metrics/export", s.requireAuth(s.handleExport))
	mux.HandleFunc("GET /api/logs", s.requireAuth(s.handleLogs))

	s.srv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.corsMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start begins listening. Blocks until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutCtx)
	}()

	s.logger.Info("api server starting", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api: serve: %w", err)
	}
	return nil
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// --- Middleware ---

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Key == "" {
			next(w, r)
			return
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.cfg.Key {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next(w, r)
	}
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type postTicketRequest struct {
	Text string `json:"text"`
}

func (s *Server) handlePostTicket(w http.ResponseWriter, r *http.Request) {
	var req postTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	// Empty text is a valid submission; the pipeline degrades it to a
	// generic greeting rather than rejecting it.
	result, err := s.svc.ProcessTicket(r.Context(), req.Text)
	if err != nil {
		s.logger.Error("ticket processing failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.MetricsSummary())
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	n := 10
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			n = parsed
		}
	}
	interactions := s.svc.RecentInteractions(n)
	if interactions == nil {
		interactions = []protocol.Interaction{}
	}
	writeJSON(w, http.StatusOK, interactions)
}

type exportRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	path := s.cfg.ExportPath
	if r.Body != nil && r.ContentLength != 0 {
		var req exportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
			return
		}
		if req.Path != "" {
			path = req.Path
		}
	}
	if path == "" {
		path = "metrics_log.json"
	}

	if err := s.svc.ExportMetrics(path); err != nil {
		s.logger.Error("metrics export failed", "path", path, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "exported", "path": path})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if s.logs == nil {
		writeJSON(w, http.StatusOK, []logbuf.Entry{})
		return
	}

	limit := 200
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	minLevel := slog.LevelDebug
	if lvl := r.URL.Query().Get("level"); lvl != "" {
		minLevel = logbuf.ParseLevel(lvl)
	}

	var since time.Time
	if v := r.URL.Query().Get("since"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			since = time.UnixMilli(ms)
		}
	}

	entries := s.logs.Tail(limit, minLevel, since)
	if entries == nil {
		entries = []logbuf.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
