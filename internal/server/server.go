// Package server exposes the analyze service over HTTP.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Aman-CERP/nearmatch/internal/analyze"
	"github.com/Aman-CERP/nearmatch/internal/errors"
)

// maxBodyBytes bounds the size of an analyze request body.
const maxBodyBytes = 1 << 20

// Config holds HTTP transport settings.
type Config struct {
	// Addr is the listen address, e.g. ":8888".
	Addr string
	// ReadTimeout bounds reading a whole request, including its body.
	ReadTimeout time.Duration
	// ShutdownGrace is how long in-flight requests may run after the
	// serve context is cancelled.
	ShutdownGrace time.Duration
}

// Server serves POST /analyze, GET /healthz and GET /readyz.
type Server struct {
	cfg      Config
	analyzer analyze.Analyzer
	handler  http.Handler

	mu   sync.Mutex
	addr net.Addr
}

// New creates a Server for a.
func New(cfg Config, a analyze.Analyzer) *Server {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 10 * time.Second
	}

	s := &Server{cfg: cfg, analyzer: a}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /analyze", s.handleAnalyze)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	s.handler = withRequestID(mux)

	return s
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the bound address once the server is serving, or nil.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// ListenAndServe listens on the configured address and serves until ctx is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errors.New(errors.ErrCodeListenFailed,
			fmt.Sprintf("failed to listen on %s", s.cfg.Addr), err).
			WithSuggestion("Choose another address with --addr or NEARMATCH_HTTP_ADDR")
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully. It returns nil after a clean shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	slog.Info("http_listening", slog.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.New(errors.ErrCodeListenFailed, "http server stopped", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGrace)
	defer cancel()

	slog.Info("http_shutting_down", slog.Duration("grace", s.cfg.ShutdownGrace))
	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = srv.Close()
		return fmt.Errorf("http shutdown: %w", err)
	}
	<-errCh
	return nil
}

type analyzeRequest struct {
	Text *string `json:"text"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		msg := "request body must be a JSON object"
		if stderrors.Is(err, io.EOF) {
			msg = "request body is empty"
		}
		s.writeError(w, r, errors.ValidationError(msg, err).
			WithSuggestion(`Send {"text": "..."}`))
		return
	}
	if req.Text == nil {
		s.writeError(w, r, errors.ValidationError(`missing field "text"`, nil).
			WithSuggestion(`Send {"text": "..."}`))
		return
	}

	res, err := s.analyzer.Analyze(r.Context(), *req.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	st := s.analyzer.Status()
	code := http.StatusOK
	if !st.Ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, st)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)

	attrs := append([]any{slog.String("request_id", RequestID(r.Context()))}, errors.FormatForLog(err)...)
	if code >= http.StatusInternalServerError {
		slog.Error("analyze_failed", attrs...)
	} else {
		slog.Debug("analyze_rejected", attrs...)
	}

	body, jerr := errors.FormatJSON(err)
	if jerr != nil {
		http.Error(w, http.StatusText(code), code)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}

// statusFor maps an error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.IsClientError(err):
		return http.StatusBadRequest
	case errors.GetCode(err) == errors.ErrCodeNotReady:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
