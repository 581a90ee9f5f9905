package cmd

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/nearmatch/internal/config"
	"github.com/Aman-CERP/nearmatch/internal/daemon"
	"github.com/Aman-CERP/nearmatch/internal/logging"
	"github.com/Aman-CERP/nearmatch/internal/output"
)

// Polling used while waiting for the daemon to come up or go away.
const (
	daemonPollInterval = 100 * time.Millisecond
	daemonStartPolls   = 50
	daemonStopPolls    = 50
)

func newDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Manage the background analyze daemon",
		Long: `The daemon keeps the cache loaded in memory so that 'nearmatch analyze'
does not read the whole store on every call.

Commands:
  start   Start the daemon (runs in background by default)
  stop    Stop the running daemon
  status  Show daemon status`,
		Example: `  nearmatch daemon start      # Start daemon in background
  nearmatch daemon start -f   # Run in foreground (for debugging)
  nearmatch daemon status     # Check if daemon is running
  nearmatch daemon stop       # Stop the daemon`,
	}

	cmd.AddCommand(newDaemonStartCmd())
	cmd.AddCommand(newDaemonStopCmd())
	cmd.AddCommand(newDaemonStatusCmd())

	return cmd
}

func newDaemonStartCmd() *cobra.Command {
	var foreground bool

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the background daemon",
		Long: `Start the analyze daemon in the background.

Use --foreground for debugging or to see logs in real-time.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemonStart(cmd.Context(), cmd, foreground)
		},
	}

	cmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in foreground (don't daemonize)")
	return cmd
}

func newDaemonStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		Long:  `Send SIGTERM to the daemon and wait for it to exit. SIGKILL follows if it does not.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemonStop(cmd)
		},
	}
}

func newDaemonStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemonStatus(cmd.Context(), cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func runDaemonStart(ctx context.Context, cmd *cobra.Command, foreground bool) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dcfg := daemonConfig(cfg)

	client := daemon.NewClient(dcfg)
	if client.IsRunning() {
		out.Status("", "Daemon is already running")
		return nil
	}

	if foreground {
		return runDaemonForeground(ctx, cmd, out, cfg)
	}

	out.Status("", "Starting daemon in background...")

	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	bgCmd := exec.Command(execPath, "daemon", "start", "--foreground")
	bgCmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := bgCmd.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	// Reap the child and notice if it dies before it is reachable.
	done := make(chan error, 1)
	go func() { done <- bgCmd.Wait() }()

	for i := 0; i < daemonStartPolls; i++ {
		select {
		case err := <-done:
			if err != nil {
				return fmt.Errorf("daemon process exited unexpectedly: %w (see %s)", err, logging.DefaultLogPath())
			}
			return fmt.Errorf("daemon process exited unexpectedly with code 0")
		case <-time.After(daemonPollInterval):
		}

		if client.IsRunning() {
			out.Successf("Daemon started (pid: %d)", bgCmd.Process.Pid)
			return nil
		}
	}

	return fmt.Errorf("daemon failed to start within %s", daemonPollInterval*daemonStartPolls)
}

// runDaemonForeground serves until SIGINT or SIGTERM.
func runDaemonForeground(ctx context.Context, cmd *cobra.Command, out *output.Writer, cfg *config.Config) error {
	dcfg := daemonConfig(cfg)

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Server.LogLevel
	if debugMode {
		logCfg.Level = "debug"
	}
	logCfg.FilePath = logging.DefaultLogPath()
	logCfg.Stderr = cmd.ErrOrStderr()
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	prev := slog.Default()
	slog.SetDefault(logger)
	defer func() {
		slog.SetDefault(prev)
		cleanup()
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := openEngine(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer eng.Close()

	d, err := daemon.NewDaemon(dcfg, eng.service, daemon.WithBackend(string(eng.backend)))
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	out.Status("", "Starting daemon in foreground...")
	out.Field("Socket", dcfg.SocketPath)
	out.Field("Logs", logging.DefaultLogPath())
	out.Status("", "Press Ctrl+C to stop")

	err = d.Start(ctx)
	if stderrors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runDaemonStop(cmd *cobra.Command) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pidFile := daemon.NewPIDFile(daemonConfig(cfg).PIDPath)

	if !pidFile.IsRunning() {
		out.Status("", "Daemon is not running")
		return nil
	}

	pid, err := pidFile.Read()
	if err != nil {
		return fmt.Errorf("failed to read PID: %w", err)
	}

	if err := pidFile.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}

	for i := 0; i < daemonStopPolls; i++ {
		time.Sleep(daemonPollInterval)
		if !pidFile.IsRunning() {
			out.Successf("Daemon stopped (was pid: %d)", pid)
			return nil
		}
	}

	out.Warning("Daemon not responding, sending SIGKILL")
	if err := pidFile.Signal(syscall.SIGKILL); err != nil {
		return fmt.Errorf("failed to kill daemon: %w", err)
	}
	_ = pidFile.Remove()

	out.Success("Daemon killed")
	return nil
}

func runDaemonStatus(ctx context.Context, cmd *cobra.Command, jsonOutput bool) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dcfg := daemonConfig(cfg)
	client := daemon.NewClient(dcfg)

	status := &daemon.StatusResult{}
	if client.IsRunning() {
		status, err = client.Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to get status: %w", err)
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	if !status.Running {
		out.Status("", "Daemon is not running")
		out.Status("", "Run 'nearmatch daemon start' to start it")
		return nil
	}

	out.Success("Daemon is running")
	out.Field("PID", fmt.Sprint(status.PID))
	out.Field("Uptime", status.Uptime)
	out.Field("Backend", status.Backend)
	out.Field("Ready", fmt.Sprint(status.Ready))
	out.Field("Texts", fmt.Sprint(status.Texts))
	out.Field("Fingerprints", fmt.Sprint(status.Fingerprints))
	out.Field("Socket", dcfg.SocketPath)

	return nil
}
