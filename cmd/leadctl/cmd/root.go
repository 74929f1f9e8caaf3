// Package cmd implements leadctl, the operator CLI for dry-running intake and
// cleaning up duplicate staging leads.
package cmd

import (
	"encoding/json"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/intake/classifier"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leadsources"
)

var (
	sourcesFile string
	databaseURL string
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "leadctl",
		Short:         "Lead intake operator tools",
		Long:          "Dry-run classification and extraction of inbound messages, and preview or commit staging lead deduplication.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
			if databaseURL == "" {
				databaseURL = os.Getenv("DATABASE_URL")
			}
			if sourcesFile == "" {
				sourcesFile = os.Getenv("LEAD_SOURCES_FILE")
			}
		},
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&sourcesFile, "sources", "", "lead source seed file (defaults to LEAD_SOURCES_FILE)")
	root.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Postgres URL (defaults to DATABASE_URL)")

	root.AddCommand(newClassifyCmd())
	root.AddCommand(newPreviewCmd())
	root.AddCommand(newDedupCmd())
	return root
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadClassifier builds a classifier from the seed file. Without one, only
// the built-in vendor and form rules apply.
func loadClassifier() (*classifier.Classifier, error) {
	if sourcesFile == "" {
		return classifier.New(nil), nil
	}
	regs, err := leadsources.LoadSeedFile(sourcesFile)
	if err != nil {
		return nil, err
	}
	return classifier.New(regs), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
