package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/nearmatch/internal/config"
	"github.com/Aman-CERP/nearmatch/internal/logging"
	"github.com/Aman-CERP/nearmatch/internal/mcp"
	"github.com/Aman-CERP/nearmatch/internal/output"
	"github.com/Aman-CERP/nearmatch/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		transport string
		addr      string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve analyze requests over HTTP or MCP",
		Long: `Load every stored text, then serve analyze requests until interrupted.

Transports:
  http   POST /analyze, GET /healthz, GET /readyz on --addr
  stdio  MCP server on stdin/stdout with the analyze_text and
         cache_status tools

Listeners only start once the store has been loaded.`,
		Example: `  nearmatch serve
  nearmatch serve --addr 127.0.0.1:9000
  nearmatch serve --transport stdio`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd, transport, addr)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "", "Transport: http or stdio (default from config)")
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (default from config)")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, transport, addr string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if transport != "" {
		cfg.Server.Transport = transport
	}
	if addr != "" {
		cfg.Server.HTTPAddr = addr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid serve options: %w", err)
	}

	restore, err := setupServeLogging(cmd, cfg)
	if err != nil {
		return err
	}
	defer restore()

	if cfg.Server.Transport == "stdio" {
		if err := verifyStdinForMCP(); err != nil {
			slog.Warn("mcp_stdin_is_terminal", slog.String("error", err.Error()))
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := openEngine(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer eng.Close()

	st := eng.cache.Stats()
	slog.Info("cache_warmed",
		slog.String("backend", string(eng.backend)),
		slog.Int("texts", st.Texts),
		slog.Int("fingerprints", st.Fingerprints))

	switch cfg.Server.Transport {
	case "stdio":
		srv, err := mcp.NewServer(eng.service)
		if err != nil {
			return err
		}
		return srv.Serve(ctx, "stdio")

	default:
		srv := server.New(server.Config{
			Addr:          cfg.Server.HTTPAddr,
			ReadTimeout:   cfg.ReadTimeoutDuration(),
			ShutdownGrace: cfg.ShutdownGraceDuration(),
		}, eng.service)
		slog.Info("http_server_starting", slog.String("addr", cfg.Server.HTTPAddr))
		return srv.ListenAndServe(ctx)
	}
}

// setupServeLogging installs the server logger and returns a function that
// restores the previous default logger. The stdio transport never logs to
// stderr or stdout.
func setupServeLogging(cmd *cobra.Command, cfg *config.Config) (func(), error) {
	level := cfg.Server.LogLevel
	if debugMode {
		level = "debug"
	}

	var logCfg logging.Config
	if cfg.Server.Transport == "stdio" {
		logCfg = logging.StdioConfig(level)
	} else {
		logCfg = logging.DefaultConfig()
		logCfg.Level = level
		logCfg.FilePath = logging.DefaultLogPath()
		logCfg.Stderr = cmd.ErrOrStderr()
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}

	prev := slog.Default()
	slog.SetDefault(logger)
	return func() {
		slog.SetDefault(prev)
		cleanup()
	}, nil
}

// verifyStdinForMCP reports an error when stdin is an interactive terminal.
// MCP clients connect through a pipe; a terminal usually means the command
// was started by hand.
func verifyStdinForMCP() error {
	if output.IsTTY(os.Stdin) {
		return fmt.Errorf("stdin is a terminal; the stdio transport expects an MCP client on a pipe")
	}
	return nil
}
