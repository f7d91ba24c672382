// Package config assembles the benchmark configuration from flags, BENCH_*
// environment variables, an optional YAML file, an optional .env file and
// defaults, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/moguls753/docbench/internal/benchmark/generator"
	"github.com/moguls753/docbench/internal/benchmark/plan"
)

const EnvPrefix = "BENCH"

const (
	BackendPostgres = "postgres"
	BackendPgx      = "pgx"
	BackendRedis    = "redis"
	BackendBolt     = "bolt"
	BackendMemory   = "memory"
)

const (
	GranularityAuto  = "auto"
	GranularityChunk = "chunk"
	GranularityBatch = "batch"
)

type Config struct {
	Backend   string `mapstructure:"backend" validate:"oneof=postgres pgx redis bolt memory"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access-key"`
	Database  string `mapstructure:"database" validate:"required"`

	Collection       string `mapstructure:"collection" validate:"required"`
	PartitionKeyPath string `mapstructure:"partition-key-path" validate:"required,startswith=/"`
	PartitionMode    string `mapstructure:"partition-mode" validate:"oneof=fixed random"`
	PartitionKey     string `mapstructure:"partition-key" validate:"required_if=PartitionMode fixed"`
	IDScheme         string `mapstructure:"id-scheme" validate:"oneof=uuid ulid"`

	Records           int    `mapstructure:"records"`
	BatchSize         int    `mapstructure:"batch-size"`
	MaxBatchSize      int    `mapstructure:"max-batch-size" validate:"gt=0"`
	Concurrency       int    `mapstructure:"concurrency" validate:"gt=0"`
	Throughput        int    `mapstructure:"throughput" validate:"gt=0"`
	BufferSize        int    `mapstructure:"buffer-size"`
	SampleGranularity string `mapstructure:"sample-granularity" validate:"oneof=auto chunk batch"`
	Seed              int64  `mapstructure:"seed"`

	CheckDatabase bool `mapstructure:"check-database"`
	Provision     bool `mapstructure:"provision"`
	Teardown      bool `mapstructure:"teardown"`
	PreClean      bool `mapstructure:"pre-clean"`
	Verify        bool `mapstructure:"verify"`

	ReportFormat string `mapstructure:"report-format" validate:"oneof=text json yaml"`
	ReportFile   string `mapstructure:"report-file"`
	SamplesCSV   string `mapstructure:"samples-csv"`
	MetricsAddr  string `mapstructure:"metrics-addr"`

	ComposeFile     string        `mapstructure:"compose-file"`
	ComposeServices []string      `mapstructure:"compose-services"`
	ReadyTimeout    time.Duration `mapstructure:"ready-timeout" validate:"gt=0"`
	IOContainer     string        `mapstructure:"io-container"`

	LogLevel  string `mapstructure:"log-level" validate:"oneof=trace debug info warn error"`
	LogFormat string `mapstructure:"log-format" validate:"oneof=text json"`
}

// PlanOptions returns the batching settings the planner works from.
func (c Config) PlanOptions() plan.Options {
	return plan.Options{
		BatchSize:    c.BatchSize,
		BufferSize:   c.BufferSize,
		MaxBatchSize: c.MaxBatchSize,
	}
}

// GeneratorOptions returns the record generator settings.
func (c Config) GeneratorOptions() generator.Options {
	return generator.Options{
		PartitionMode: c.PartitionMode,
		PartitionKey:  c.PartitionKey,
		IDScheme:      c.IDScheme,
		Seed:          c.Seed,
	}
}

// Granularity resolves "auto": per chunk when buffering, otherwise per batch.
func (c Config) Granularity() string {
	if c.SampleGranularity != GranularityAuto {
		return c.SampleGranularity
	}
	if c.BufferSize > 0 {
		return GranularityChunk
	}
	return GranularityBatch
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", BackendPostgres)
	v.SetDefault("endpoint", "")
	v.SetDefault("access-key", "")
	v.SetDefault("database", "")
	v.SetDefault("collection", "demo")
	v.SetDefault("partition-key-path", "/account")
	v.SetDefault("partition-mode", generator.PartitionFixed)
	v.SetDefault("partition-key", generator.DefaultPartitionKey)
	v.SetDefault("id-scheme", generator.IDSchemeUUID)
	v.SetDefault("records", 5000)
	v.SetDefault("batch-size", 100)
	v.SetDefault("max-batch-size", plan.DefaultMaxBatchSize)
	v.SetDefault("concurrency", 10)
	v.SetDefault("throughput", 10000)
	v.SetDefault("buffer-size", 0)
	v.SetDefault("sample-granularity", GranularityAuto)
	v.SetDefault("seed", 0)
	v.SetDefault("check-database", false)
	v.SetDefault("provision", true)
	v.SetDefault("teardown", true)
	v.SetDefault("pre-clean", false)
	v.SetDefault("verify", true)
	v.SetDefault("report-format", "text")
	v.SetDefault("report-file", "")
	v.SetDefault("samples-csv", "")
	v.SetDefault("metrics-addr", "")
	v.SetDefault("compose-file", "")
	v.SetDefault("compose-services", []string{})
	v.SetDefault("ready-timeout", 30*time.Second)
	v.SetDefault("io-container", "")
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "text")
}

// New returns a viper instance with defaults and BENCH_* environment lookup.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// AddFlags registers the run settings on fs. Only flags the user sets
// override the other sources.
func AddFlags(fs *pflag.FlagSet) {
	fs.String("backend", BackendPostgres, "store backend: postgres, pgx, redis, bolt or memory")
	fs.String("endpoint", "", "store endpoint (host:port, URL or bolt file path)")
	fs.String("access-key", "", "store credential, user:password or password")
	fs.String("database", "", "database name (redis: numeric DB index)")
	fs.String("collection", "demo", "collection to write into")
	fs.String("partition-key-path", "/account", "partition key path of the collection")
	fs.String("partition-mode", generator.PartitionFixed, "fixed or random partition keys")
	fs.String("partition-key", generator.DefaultPartitionKey, "partition key used in fixed mode")
	fs.String("id-scheme", generator.IDSchemeUUID, "record id scheme: uuid or ulid")
	fs.Int("records", 5000, "number of records to write")
	fs.Int("batch-size", 100, "records per batch")
	fs.Int("max-batch-size", plan.DefaultMaxBatchSize, "largest batch the store accepts")
	fs.Int("concurrency", 10, "batches in flight at once")
	fs.Int("throughput", 10000, "provisioned throughput recorded on the collection")
	fs.Int("buffer-size", 0, "records per buffer, 0 disables buffering")
	fs.String("sample-granularity", GranularityAuto, "TPS sample granularity: auto, chunk or batch")
	fs.Int64("seed", 0, "generator seed, 0 seeds from the clock")
	fs.Bool("check-database", false, "fail when the database does not exist")
	fs.Bool("provision", true, "create the collection if it is absent")
	fs.Bool("teardown", true, "delete a collection this run created")
	fs.Bool("pre-clean", false, "delete existing records before the run")
	fs.Bool("verify", true, "compare record counts before and after the run")
	fs.String("report-format", "text", "report format: text, json or yaml")
	fs.String("report-file", "", "write the report to this file")
	fs.String("samples-csv", "", "write TPS samples to this CSV file")
	fs.String("metrics-addr", "", "serve Prometheus metrics on this address")
	fs.String("compose-file", "", "docker compose file to start before and stop after the run")
	fs.StringSlice("compose-services", nil, "compose services to start, all when empty")
	fs.Duration("ready-timeout", 30*time.Second, "how long to wait for the store to answer")
	fs.String("io-container", "", "container whose block I/O is sampled around the run")
}

// Load reads envFile (when present) and configFile (when set) into v and
// decodes and validates the result.
func Load(v *viper.Viper, configFile, envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hooks); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
