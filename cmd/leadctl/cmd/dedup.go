package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/dedup"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/repository"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/db"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/logger"
)

type databaseURLConfig string

func (c databaseURLConfig) GetDatabaseURL() string { return string(c) }

func newDedupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dedup",
		Short: "Find and remove duplicate staging leads",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "preview",
		Short: "Report duplicate staging leads and the fingerprint to commit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(e *dedup.Engine) error {
				report, err := e.Preview(cmd.Context())
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), report)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "commit <fingerprint>",
		Short: "Delete the leads a preview marked, if staging is unchanged",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(e *dedup.Engine) error {
				result, err := e.Commit(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
					return err
				}
				if result.Failed > 0 {
					return fmt.Errorf("%d leads could not be deleted", result.Failed)
				}
				return nil
			})
		},
	})

	return cmd
}

func withEngine(ctx context.Context, fn func(*dedup.Engine) error) error {
	if databaseURL == "" {
		return errors.New("database URL is required (--database-url or DATABASE_URL)")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	pool, err := db.NewPool(ctx, databaseURLConfig(databaseURL))
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	return fn(dedup.New(repository.New(pool), logger.NewWithWriter("production", os.Stderr), nil))
}
