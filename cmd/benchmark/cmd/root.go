package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/moguls753/docbench/internal/benchmark"
	"github.com/moguls753/docbench/internal/config"
	"github.com/moguls753/docbench/internal/logging"
)

const (
	configFileFlag = "config"
	envFileFlag    = "env-file"
)

// Exit codes.
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitInvalidConfig = 2
)

func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "benchmark",
		Short:         "Measure batched write throughput against a document store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.String(configFileFlag, "", "YAML configuration file")
	flags.String(envFileFlag, ".env", "dotenv file loaded into the environment when present")
	flags.String("log-level", "info", "log level: trace, debug, info, warn or error")
	flags.String("log-format", "text", "log format: text or json")
	config.AddFlags(flags)

	cmd.AddCommand(
		runCmd(),
		countCmd(),
		cleanCmd(),
		planCmd(),
	)

	return cmd
}

// loadConfig resolves the configuration for c and sets up logging from it.
func loadConfig(c *cobra.Command) (config.Config, error) {
	v := config.New()
	if err := v.BindPFlags(c.Flags()); err != nil {
		return config.Config{}, err
	}

	configFile, _ := c.Flags().GetString(configFileFlag)
	envFile, _ := c.Flags().GetString(envFileFlag)

	cfg, err := config.Load(v, configFile, envFile)
	if err != nil {
		return config.Config{}, err
	}
	if err := logging.Configure(cfg.LogLevel, cfg.LogFormat); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var cerr *benchmark.ConfigurationError
	if errors.As(err, &cerr) {
		return ExitInvalidConfig
	}
	return ExitFailure
}
