package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"news_briefing/internal/pipeline"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Run the news pipeline once and print the run log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		entry, runErr := pipeline.Build(cfg, store, log).RunAndLog(cmd.Context())
		if err := printJSON(cmd, entry); err != nil {
			return err
		}
		return runErr
	},
}

var summarizeLimit int

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize stored articles that have no summary yet",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if summarizeLimit < 1 {
			return fmt.Errorf("%w: --limit %d", pipeline.ErrInvalidLimit, summarizeLimit)
		}
		store, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		res, err := pipeline.Build(cfg, store, log).Backfill(cmd.Context(), summarizeLimit)
		if err != nil {
			return err
		}
		return printJSON(cmd, res)
	},
}

func init() {
	summarizeCmd.Flags().IntVarP(&summarizeLimit, "limit", "n", pipeline.BackfillLimit, "maximum number of articles to summarize")
}

func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}
