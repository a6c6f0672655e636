package cli

import (
	"github.com/spf13/cobra"
)

var retryCmd = &cobra.Command{
	Use:   "retry <article-id>",
	Short: "Reset a failed article so the next run retries it",
	Long: `Move a FAILED article back to the stage implied by how far it got,
clearing its attempt counter and last error. This is the only backward
transition the pipeline permits.`,
	Args: cobra.ExactArgs(1),
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

		if err := s.ResetForRetry(cmd.Context(), args[0]); err != nil {
			return err
		}
		a, err := s.GetArticle(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		cmd.Println(a.ID + " reset to " + a.Stage)
		return nil
	},
}
