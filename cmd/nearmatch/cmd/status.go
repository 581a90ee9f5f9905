package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/nearmatch/internal/config"
	"github.com/Aman-CERP/nearmatch/internal/daemon"
	"github.com/Aman-CERP/nearmatch/internal/errors"
	"github.com/Aman-CERP/nearmatch/internal/output"
	"github.com/Aman-CERP/nearmatch/internal/store"
)

// statusReport is the --json output of the status command.
type statusReport struct {
	Backend   string               `json:"backend"`
	DataDir   string               `json:"data_dir,omitempty"`
	StorePath string               `json:"store_path,omitempty"`
	Texts     *int                 `json:"texts,omitempty"`
	StoreNote string               `json:"store_note,omitempty"`
	HTTPAddr  string               `json:"http_addr"`
	Daemon    *daemon.StatusResult `json:"daemon"`
}

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show store and daemon status",
		Long: `Display the configured store backend and location, the number of stored
texts and whether the daemon is running.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runStatus(ctx context.Context, cmd *cobra.Command, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	backend, err := store.ParseBackend(cfg.Store.Backend)
	if err != nil {
		return err
	}

	report := statusReport{
		Backend:  string(backend),
		HTTPAddr: cfg.Server.HTTPAddr,
		Daemon:   &daemon.StatusResult{},
	}
	if backend != store.BackendMemory {
		report.DataDir = cfg.Store.Path
		report.StorePath = store.Path(cfg.Store.Path, backend)
	}

	client := daemon.NewClient(daemonConfig(cfg))
	if client.IsRunning() {
		if st, err := client.Status(ctx); err == nil {
			report.Daemon = st
			report.Texts = &st.Texts
		}
	}
	if report.Texts == nil {
		report.Texts, report.StoreNote = countStored(ctx, cfg, backend)
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	out := output.New(cmd.OutOrStdout())
	out.Header("nearmatch status")
	out.Field("Backend", report.Backend)
	if report.StorePath != "" {
		out.Field("Store", report.StorePath)
	}
	if report.Texts != nil {
		out.Field("Texts", fmt.Sprint(*report.Texts))
	} else {
		out.Field("Texts", report.StoreNote)
	}
	out.Field("HTTP address", report.HTTPAddr)
	if report.Daemon.Running {
		out.Field("Daemon", fmt.Sprintf("running (pid %d, up %s)", report.Daemon.PID, report.Daemon.Uptime))
	} else {
		out.Field("Daemon", "not running")
	}

	return nil
}

// countStored counts stored texts without warming a cache. When the count
// is unavailable it returns a short note saying why.
func countStored(ctx context.Context, cfg *config.Config, backend store.Backend) (*int, string) {
	if backend == store.BackendMemory {
		return nil, "in memory, nothing persisted"
	}

	lock := store.NewDirLock(cfg.Store.Path)
	if err := lock.TryLock(); err != nil {
		if errors.GetCode(err) == errors.ErrCodeStoreLocked {
			return nil, "in use by another process"
		}
		return nil, err.Error()
	}
	defer func() { _ = lock.Unlock() }()

	s, err := store.Open(store.Options{Backend: backend, DataDir: cfg.Store.Path, CacheMB: cfg.Store.CacheMB})
	if err != nil {
		return nil, err.Error()
	}
	defer func() { _ = s.Close() }()

	n, err := s.Count(ctx)
	if err != nil {
		return nil, err.Error()
	}
	return &n, ""
}
