package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KtodaZ/the-exicon-project-sub000/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "exicon",
	Short: "Exercise-lexicon enrichment pipeline",
	Long:  "Fetches lexicon entries from the content API, enriches them in batches via Claude structured output, and upserts the results into the document store.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; real settings come from config.yaml / env vars.
		_ = godotenv.Load()

		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "cmd: load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "cmd: init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
