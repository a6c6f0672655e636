package cli

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rmaia/ponte/internal/model"
)

var exportCmd = &cobra.Command{
	Use:   "export <article-id>",
	Short: "Print a publish-ready article's Sanity document",
	Long: `Write the Sanity CMS document of a publish-ready article to stdout,
ready to be imported into the CMS. Transmitting it is out of scope for
the pipeline.`,
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

		a, err := s.GetArticle(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if a.Stage != model.StagePublishReady {
			return fmt.Errorf("article %s is in %s, not %s", a.ID, a.Stage, model.StagePublishReady)
		}

		var out bytes.Buffer
		if err := json.Indent(&out, []byte(a.Document), "", "  "); err != nil {
			return fmt.Errorf("stored document is not valid JSON: %w", err)
		}
		cmd.Println(out.String())
		return nil
	},
}
