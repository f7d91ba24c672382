package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func countCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of records in the collection",
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

			count, err := store.CountRecords(c.Context(), cfg.Collection)
			if err != nil {
				return fmt.Errorf("count records: %w", err)
			}
			fmt.Fprintf(c.OutOrStdout(), "Total records in %s: %d\n", cfg.Collection, count)
			return nil
		},
	}
}
