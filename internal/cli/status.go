package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rmaia/ponte/internal/model"
)

var showFailed bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show how many articles sit in each stage",
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

		ctx := cmd.Context()
		counts, err := s.CountByStage(ctx)
		if err != nil {
			return err
		}

		stages := []string{
			model.StageIntake, model.StageTranslated, model.StageFormatted,
			model.StagePublishReady, model.StageFailed,
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, stage := range stages {
			fmt.Fprintf(w, "%s\t%d\n", stage, counts[stage])
		}
		w.Flush()

		if !showFailed {
			return nil
		}

		failed, err := s.ListArticles(ctx, model.ArticleFilter{Stages: []string{model.StageFailed}})
		if err != nil {
			return err
		}
		for _, a := range failed {
			cmd.Println()
			cmd.Println(fmt.Sprintf("%s  %s", a.ID, a.Slug))
			if a.LastError != nil {
				cmd.Println("  " + formatLastError(*a.LastError))
			}
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&showFailed, "failed", false, "also list failed articles with their last error")
}

// formatLastError renders a stored ErrorInfo JSON blob on one line,
// falling back to the raw string for records from older versions.
func formatLastError(raw string) string {
	var info model.ErrorInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return raw
	}
	return fmt.Sprintf("%s: %s (at %s)", info.Stage, info.Message, info.FailedAt)
}
