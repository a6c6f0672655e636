// Package cli implements the ponte command tree.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rmaia/ponte/internal/config"
	"github.com/rmaia/ponte/internal/engine"
	"github.com/rmaia/ponte/internal/store"
)

var version = "0.3.0"

var (
	configPath string
	dbPath     string
)

var rootCmd = &cobra.Command{
	Use:   "ponte",
	Short: "Article translation pipeline",
	Long: `ponte moves English source articles through a sequential pipeline:
intake → translated → formatted → publish-ready, driven by an external
text engine, producing Sanity CMS documents.

Use "ponte run" to process pending articles and "ponte status" to see
where every article stands.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "ponte.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "stage store database path (overrides config)")

	rootCmd.AddCommand(runCmd, intakeCmd, statusCmd, retryCmd, exportCmd)
}

// Execute runs the command tree. The process exits non-zero only on a
// command error; a run that merely left some articles in FAILED is clean.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ponte:", err)
		os.Exit(1)
	}
}

// loadConfig resolves the effective configuration for a command.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg, nil
}

// openStore opens the stage store database. Commands work against the
// repository interface, not the concrete store.
func openStore(cfg config.Config) (store.ArticleRepository, func(), error) {
	db, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	s, err := store.New(db)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("init store: %w", err)
	}
	return s, func() { db.Close() }, nil
}

// buildEngine constructs the engine client selected by the config.
func buildEngine(cfg config.Config) (engine.Client, error) {
	switch cfg.Engine.Kind {
	case "cli", "":
		return engine.NewCLIClient(
			engine.WithBinary(cfg.Engine.Binary),
			engine.WithTimeout(cfg.Engine.Timeout),
			engine.WithTargetLang(cfg.Engine.TargetLang),
			engine.WithSummaryWords(cfg.Pipeline.SummaryMaxWords),
		), nil
	case "api":
		return engine.NewAPIClient(cfg.Engine.APIKey,
			engine.WithModel(cfg.Engine.Model),
			engine.WithAPITimeout(cfg.Engine.Timeout),
			engine.WithAPITargetLang(cfg.Engine.TargetLang),
		), nil
	case "stub":
		slog.Warn("using stub engine, output is not a real translation")
		return engine.NewStubClient(), nil
	default:
		return nil, fmt.Errorf("unknown engine kind %q", cfg.Engine.Kind)
	}
}
