package cmd

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/nearmatch/internal/daemon"
	"github.com/Aman-CERP/nearmatch/internal/errors"
	"github.com/Aman-CERP/nearmatch/internal/output"
)

// Values for output.Match.Source.
const (
	sourceDaemon = "daemon"
	sourceLocal  = "local"
)

// analyzeResult is the --json output of the analyze command.
type analyzeResult struct {
	Text             string  `json:"text"`
	Fingerprint      int     `json:"fingerprint"`
	NearestByValue   *string `json:"nearestByValue"`
	NearestByLexical *string `json:"nearestByLexical"`
	Source           string  `json:"source"`
}

func newAnalyzeCmd() *cobra.Command {
	var (
		jsonOutput bool
		local      bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <text>",
		Short: "Find the known texts nearest to a word, then remember it",
		Long: `Look up the known text with the closest letter-sum fingerprint and the
lexically closest known text, then record the new text.

The running daemon answers when there is one. Otherwise the store is
opened in-process, which takes the data directory lock for the duration
of the command.`,
		Example: `  nearmatch analyze hello
  nearmatch analyze Hello --json
  nearmatch analyze hello --local`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), cmd, args[0], jsonOutput, local)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&local, "local", false, "Never use the daemon")

	return cmd
}

func runAnalyze(ctx context.Context, cmd *cobra.Command, text string, jsonOutput, local bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var res *analyzeResult
	if !local {
		res, err = analyzeViaDaemon(ctx, daemon.NewClient(daemonConfig(cfg)), text)
		if err != nil {
			return err
		}
	}

	if res == nil {
		eng, err := openEngine(ctx, cfg, false)
		if err != nil {
			return err
		}
		defer eng.Close()

		r, err := eng.service.Analyze(ctx, text)
		if err != nil {
			return err
		}
		res = &analyzeResult{
			Text:             r.Query.Text,
			Fingerprint:      r.Query.Fingerprint,
			NearestByValue:   r.NearestByValue,
			NearestByLexical: r.NearestByLexical,
			Source:           sourceLocal,
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	output.New(cmd.OutOrStdout()).Match(output.Match{
		Text:             res.Text,
		Fingerprint:      res.Fingerprint,
		NearestByValue:   res.NearestByValue,
		NearestByLexical: res.NearestByLexical,
		Source:           res.Source,
	})
	return nil
}

// analyzeViaDaemon returns nil without error when no daemon answers, so the
// caller can fall back to a local engine. Errors the daemon reports about
// the request itself are returned as is.
func analyzeViaDaemon(ctx context.Context, client *daemon.Client, text string) (*analyzeResult, error) {
	if !client.IsRunning() {
		return nil, nil
	}

	r, err := client.Analyze(ctx, text)
	if err != nil {
		if errors.GetCode(err) == errors.ErrCodeDaemonUnavailable {
			slog.Debug("daemon_unavailable_falling_back", slog.String("error", err.Error()))
			return nil, nil
		}
		return nil, err
	}

	return &analyzeResult{
		Text:             r.Text,
		Fingerprint:      r.Fingerprint,
		NearestByValue:   r.NearestByValue,
		NearestByLexical: r.NearestByLexical,
		Source:           sourceDaemon,
	}, nil
}
