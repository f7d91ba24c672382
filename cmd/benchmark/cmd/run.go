package cmd

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/moguls753/docbench/internal/benchmark"
	"github.com/moguls753/docbench/internal/config"
	"github.com/moguls753/docbench/internal/container"
	"github.com/moguls753/docbench/internal/export"
	"github.com/moguls753/docbench/internal/metrics"
	"github.com/moguls753/docbench/internal/runner"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Provision a collection, write the generated records and report throughput",
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			return run(c, cfg)
		},
	}
}

func run(c *cobra.Command, cfg config.Config) (err error) {
	ctx := c.Context()

	if cfg.ComposeFile != "" {
		compose := container.NewCompose(cfg.ComposeFile, cfg.ComposeServices)
		if err := compose.Up(ctx); err != nil {
			return err
		}
		defer func() {
			if derr := compose.Down(context.WithoutCancel(ctx)); derr != nil {
				log.WithError(derr).Warn("failed to stop containers")
			}
		}()
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	if pinger, ok := store.(benchmark.Pinger); ok && cfg.ComposeFile != "" {
		if err := container.WaitForReady(ctx, cfg.Backend, pinger.Ping, cfg.ReadyTimeout); err != nil {
			store.Close()
			return err
		}
	}

	collector := metrics.New()
	if cfg.MetricsAddr != "" {
		serveCtx, stopServing := context.WithCancel(ctx)
		defer stopServing()
		go func() {
			if err := collector.Serve(serveCtx, cfg.MetricsAddr); err != nil {
				log.WithError(err).Error("metrics server stopped")
			}
		}()
	}

	opts := []runner.Option{runner.WithCollector(collector)}
	if cfg.IOContainer != "" {
		opts = append(opts, runner.WithIOSampler(func(ctx context.Context) (*container.IOStats, error) {
			return container.GetContainerIOStats(ctx, cfg.IOContainer)
		}))
	}

	report, err := runner.New(cfg, store, opts...).Run(ctx)
	if report == nil {
		return err
	}

	if werr := writeOutputs(c, cfg, report); werr != nil && err == nil {
		err = werr
	}
	return err
}

func writeOutputs(c *cobra.Command, cfg config.Config, report *runner.Report) error {
	if err := export.WriteReport(c.OutOrStdout(), report, cfg.ReportFormat); err != nil {
		return err
	}
	if cfg.ReportFile != "" {
		if err := export.ReportToFile(report, cfg.ReportFormat, cfg.ReportFile); err != nil {
			return err
		}
		fmt.Fprintf(c.OutOrStdout(), "Report written to %s\n", cfg.ReportFile)
	}
	if cfg.SamplesCSV != "" {
		if err := export.SamplesToCSV(report.Samples, cfg.SamplesCSV); err != nil {
			return err
		}
		fmt.Fprintf(c.OutOrStdout(), "Samples written to %s\n", cfg.SamplesCSV)
	}
	return nil
}
