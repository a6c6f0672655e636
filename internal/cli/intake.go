package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rmaia/ponte/internal/intake"
)

var intakeCmd = &cobra.Command{
	Use:   "intake [dir]",
	Short: "Register source article files in the pipeline",
	Long: `Scan a directory of article JSON files and register every article
not yet known to the stage store. Re-scanning is idempotent: articles
are keyed by title-derived slug.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		dir := cfg.IntakeDir
		if len(args) > 0 {
			dir = args[0]
		}

		s, closeStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		loader := intake.NewLoader(s)
		loader.MaxTextLength = cfg.Pipeline.MaxTextLength

		sum, err := loader.ScanDir(cmd.Context(), dir)
		if err != nil {
			return err
		}
		cmd.Println(fmt.Sprintf("%s: %d registered, %d already known, %d invalid",
			dir, sum.Registered, sum.Skipped, sum.Invalid))
		return nil
	},
}
