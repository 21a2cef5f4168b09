package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"news_briefing/migrations"
)

var dbPath string

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the news database schema",
	Long: `migrate applies the embedded goose migrations to the SQLite database.

Commands:
  up          Migrate to the latest version
  up-one      Migrate one version up
  down        Roll back one version
  status      Show migration status
  version     Show current version
  reset       Roll back all migrations`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", envOrDefault("DATABASE_PATH", "./data/news.db"), "path to sqlite database")

	for _, c := range []struct{ name, short string }{
		{"up", "Migrate to the latest version"},
		{"up-one", "Migrate one version up"},
		{"down", "Roll back one version"},
		{"status", "Show migration status"},
		{"version", "Show current version"},
		{"reset", "Roll back all migrations"},
	} {
		rootCmd.AddCommand(&cobra.Command{
			Use:   c.name,
			Short: c.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd, c.name)
			},
		})
	}
}

func run(cmd *cobra.Command, name string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	return migrations.Command(db, name, cmd.OutOrStdout())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
