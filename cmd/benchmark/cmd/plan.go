package cmd

import (
	"github.com/spf13/cobra"

	"github.com/moguls753/docbench/internal/benchmark/generator"
	"github.com/moguls753/docbench/internal/benchmark/plan"
	"github.com/moguls753/docbench/internal/display"
)

func planCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Validate the configuration and print the batch plan without touching a store",
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			gen, err := generator.New(cfg.GeneratorOptions())
			if err != nil {
				return err
			}
			p, err := plan.New(gen.Generate(cfg.Records), cfg.PlanOptions())
			if err != nil {
				return err
			}
			display.Plan(c.OutOrStdout(), p)
			return nil
		},
	}
}
