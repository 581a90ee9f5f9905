package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"
)

// RequestHandler answers the daemon's RPC methods.
type RequestHandler interface {
	HandleAnalyze(ctx context.Context, params AnalyzeParams) (AnalyzeResult, error)
	GetStatus() StatusResult
}

// Server listens on a Unix socket and serves one request per connection.
type Server struct {
	socketPath string
	handler    RequestHandler
	timeout    time.Duration
	grace      time.Duration

	mu       sync.Mutex
	listener net.Listener
	started  time.Time
	shutdown bool
	conns    sync.WaitGroup
}

// NewServer creates a server for socketPath. Each connection must finish
// within timeout.
func NewServer(socketPath string, h RequestHandler, timeout time.Duration) *Server {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Server{
		socketPath: socketPath,
		handler:    h,
		timeout:    timeout,
		grace:      timeout,
	}
}

// ListenAndServe serves until ctx is cancelled and returns ctx.Err().
// A stale socket file left by a crashed daemon is replaced.
func (s *Server) ListenAndServe(ctx context.Context) error {
	_ = os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.socketPath, err)
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(s.socketPath)
	}()

	s.mu.Lock()
	s.listener = listener
	s.started = time.Now()
	s.mu.Unlock()

	slog.Info("daemon_listening", slog.String("socket", s.socketPath))

	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.closed() {
				break
			}
			slog.Error("daemon_accept_failed", slog.String("error", err.Error()))
			continue
		}

		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.waitConns()
	return ctx.Err()
}

func (s *Server) waitConns() {
	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.grace):
		slog.Warn("daemon_shutdown_timeout", slog.Duration("grace", s.grace))
	}
}

func (s *Server) closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer func() { _ = conn.Close() }()

	if err := conn.SetDeadline(time.Now().Add(s.timeout)); err != nil {
		slog.Warn("daemon_deadline_failed", slog.String("error", err.Error()))
	}

	encoder := json.NewEncoder(conn)

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		_ = encoder.Encode(NewErrorResponse("", ErrCodeParseError, "failed to parse request"))
		return
	}
	if req.JSONRPC != "2.0" {
		_ = encoder.Encode(NewErrorResponse(req.ID, ErrCodeInvalidRequest, `jsonrpc must be "2.0"`))
		return
	}

	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	_ = encoder.Encode(s.handleRequest(reqCtx, req))
}

func (s *Server) handleRequest(ctx context.Context, req Request) Response {
	switch req.Method {
	case MethodPing:
		return NewSuccessResponse(req.ID, PingResult{Pong: true})
	case MethodStatus:
		return NewSuccessResponse(req.ID, s.status())
	case MethodAnalyze:
		return s.handleAnalyze(ctx, req)
	default:
		return NewErrorResponse(req.ID, ErrCodeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method))
	}
}

func (s *Server) handleAnalyze(ctx context.Context, req Request) Response {
	if s.handler == nil {
		return NewErrorResponse(req.ID, ErrCodeInternalError, "no analyze handler configured")
	}

	raw, err := json.Marshal(req.Params)
	if err != nil {
		return NewErrorResponse(req.ID, ErrCodeInvalidParams, "failed to encode params")
	}
	var params AnalyzeParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return NewErrorResponse(req.ID, ErrCodeInvalidParams, "params must be {\"text\": string}")
	}

	result, err := s.handler.HandleAnalyze(ctx, params)
	if err != nil {
		return newAppErrorResponse(req.ID, err)
	}
	return NewSuccessResponse(req.ID, result)
}

func (s *Server) status() StatusResult {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	var st StatusResult
	if s.handler != nil {
		st = s.handler.GetStatus()
	}
	st.Running = true
	st.PID = os.Getpid()
	st.Uptime = time.Since(started).Round(time.Second).String()
	return st
}

// Close stops accepting connections.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdown = true
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}
