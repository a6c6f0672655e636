package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rmaia/ponte/internal/pipeline"
	"github.com/rmaia/ponte/internal/validate"
)

var maxArticles int

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process pending articles through the pipeline",
	Long: `Process pending articles, oldest first, each one to completion
before the next begins. Retryable failures leave the article in its
stage for the next run; only an unreachable engine aborts with a
non-zero exit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		s, closeStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		eng, err := buildEngine(cfg)
		if err != nil {
			return err
		}

		// Stop on SIGINT/SIGTERM; the orchestrator honors it between
		// articles, never mid-transition.
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		orch := pipeline.New(s, eng,
			&validate.Checker{SummaryTolerance: cfg.Pipeline.SummaryTolerance},
			pipeline.Config{
				MaxAttempts:     cfg.Pipeline.MaxAttempts,
				TargetLang:      cfg.Engine.TargetLang,
				SummaryMaxWords: cfg.Pipeline.SummaryMaxWords,
			})

		rep, err := orch.Run(ctx, maxArticles)
		printReport(cmd, rep)
		if errors.Is(err, context.Canceled) {
			cmd.Println("run interrupted")
			return nil
		}
		return err
	},
}

func init() {
	runCmd.Flags().IntVar(&maxArticles, "max-articles", 10, "maximum number of articles to process this run")
}

func printReport(cmd *cobra.Command, rep pipeline.Report) {
	cmd.Println(fmt.Sprintf("processed %d: %d advanced, %d retried, %d failed",
		rep.Processed, rep.Advanced, rep.Retried, rep.Failed))
}
