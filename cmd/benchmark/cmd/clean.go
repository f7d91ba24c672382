package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moguls753/docbench/internal/runner"
)

func cleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Delete every record in the collection, keeping the collection",
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			store, err := openStore(c.Context(), cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			deleted, failed, err := runner.PreClean(c.Context(), store, cfg.Collection, cfg.Concurrency)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.OutOrStdout(), "Deleted %d records from %s (%d failed)\n", deleted, cfg.Collection, failed)
			if failed > 0 {
				return fmt.Errorf("%d deletes failed", failed)
			}
			return nil
		},
	}
}
