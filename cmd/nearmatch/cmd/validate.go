package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/nearmatch/internal/output"
	"github.com/Aman-CERP/nearmatch/internal/validation"
)

func newValidateCmd() *cobra.Command {
	var (
		file       string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run the matching scenarios against a fresh in-memory engine",
		Long: `Run lookup scenarios and report which ones pass. Each scenario seeds
a new in-memory engine, analyzes a sequence of texts and checks both
nearest matches of every step.

The built-in scenarios are used unless --file names a YAML file in the
same format.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd.Context(), cmd, file, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "YAML scenario file (default: built-in scenarios)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runValidate(ctx context.Context, cmd *cobra.Command, file string, jsonOutput bool) error {
	scenarios, err := validation.Load(file)
	if err != nil {
		return err
	}

	report := validation.NewValidator(nil).RunAll(ctx, scenarios)

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		out := output.New(cmd.OutOrStdout())
		for _, r := range report.Results {
			if r.Passed {
				out.Successf("%s %s", r.ID, r.Name)
				continue
			}
			out.Errorf("%s %s", r.ID, r.Name)
			for _, f := range r.Failures {
				out.Status("", "    "+f)
			}
		}
		out.Newline()
		out.Statusf("", "%d/%d scenarios passed", report.Passed, report.Total)
	}

	if !report.OK() {
		return fmt.Errorf("%d of %d scenarios failed", report.Total-report.Passed, report.Total)
	}
	return nil
}
