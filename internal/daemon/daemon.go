package daemon

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Aman-CERP/nearmatch/internal/analyze"
)

// Daemon serves an Analyzer over the daemon socket and owns the PID file.
type Daemon struct {
	cfg      Config
	analyzer analyze.Analyzer
	backend  string
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithBackend names the store backend reported by the status method.
func WithBackend(name string) Option {
	return func(d *Daemon) { d.backend = name }
}

// NewDaemon validates cfg and creates a daemon serving a.
func NewDaemon(cfg Config, a analyze.Analyzer, opts ...Option) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid daemon config: %w", err)
	}
	if a == nil {
		return nil, fmt.Errorf("daemon requires an analyzer")
	}
	d := &Daemon{cfg: cfg, analyzer: a}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Start writes the PID file and serves until ctx is cancelled. It returns
// ctx.Err() after a normal shutdown.
func (d *Daemon) Start(ctx context.Context) error {
	if err := d.cfg.EnsureDir(); err != nil {
		return err
	}

	pid := NewPIDFile(d.cfg.PIDPath)
	if err := pid.Acquire(); err != nil {
		return err
	}
	defer func() {
		if err := pid.Remove(); err != nil {
			slog.Warn("daemon_pid_remove_failed", slog.String("error", err.Error()))
		}
	}()

	srv := NewServer(d.cfg.SocketPath, d, d.cfg.Timeout)
	srv.grace = d.cfg.ShutdownGracePeriod

	slog.Info("daemon_started",
		slog.String("socket", d.cfg.SocketPath),
		slog.String("backend", d.backend))
	err := srv.ListenAndServe(ctx)
	slog.Info("daemon_stopped")
	return err
}

// HandleAnalyze implements RequestHandler.
func (d *Daemon) HandleAnalyze(ctx context.Context, params AnalyzeParams) (AnalyzeResult, error) {
	res, err := d.analyzer.Analyze(ctx, params.Text)
	if err != nil {
		return AnalyzeResult{}, err
	}
	return newAnalyzeResult(res), nil
}

// GetStatus implements RequestHandler.
func (d *Daemon) GetStatus() StatusResult {
	st := d.analyzer.Status()
	return StatusResult{
		Ready:        st.Ready,
		Backend:      d.backend,
		Texts:        st.Cache.Texts,
		Fingerprints: st.Cache.Fingerprints,
	}
}
