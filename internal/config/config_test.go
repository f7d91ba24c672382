package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moguls753/docbench/internal/benchmark"
)

func setRequired(t *testing.T) {
	t.Setenv("BENCH_ENDPOINT", "localhost:5432")
	t.Setenv("BENCH_ACCESS_KEY", "benchmark:benchmark123")
	t.Setenv("BENCH_DATABASE", "uuid_benchmark")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load(New(), "", "")
	require.NoError(t, err)

	assert.Equal(t, BackendPostgres, cfg.Backend)
	assert.Equal(t, "demo", cfg.Collection)
	assert.Equal(t, "/account", cfg.PartitionKeyPath)
	assert.Equal(t, "fixed", cfg.PartitionMode)
	assert.Equal(t, "9ac25829-0152-426b-91ef-492d799bece9", cfg.PartitionKey)
	assert.Equal(t, 5000, cfg.Records)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 100, cfg.MaxBatchSize)
	assert.Equal(t, 10, cfg.Concurrency)
	assert.Equal(t, 10000, cfg.Throughput)
	assert.Zero(t, cfg.BufferSize)
	assert.True(t, cfg.Provision)
	assert.True(t, cfg.Teardown)
	assert.True(t, cfg.Verify)
	assert.False(t, cfg.PreClean)
	assert.Equal(t, 30*time.Second, cfg.ReadyTimeout)
	assert.Equal(t, GranularityBatch, cfg.Granularity())
}

func TestLoad_EnvironmentAndHooks(t *testing.T) {
	setRequired(t)
	t.Setenv("BENCH_RECORDS", "1000")
	t.Setenv("BENCH_BUFFER_SIZE", "250")
	t.Setenv("BENCH_READY_TIMEOUT", "5s")
	t.Setenv("BENCH_COMPOSE_SERVICES", "postgres,redis")

	cfg, err := Load(New(), "", "")
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.Records)
	assert.Equal(t, 250, cfg.BufferSize)
	assert.Equal(t, 5*time.Second, cfg.ReadyTimeout)
	assert.Equal(t, []string{"postgres", "redis"}, cfg.ComposeServices)
	assert.Equal(t, GranularityChunk, cfg.Granularity())
}

func TestLoad_Precedence(t *testing.T) {
	setRequired(t)
	dir := t.TempDir()

	configFile := filepath.Join(dir, "bench.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("records: 2000\nbatch-size: 50\nconcurrency: 3\n"), 0o644))
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("BENCH_COLLECTION=fromdotenv\nBENCH_CONCURRENCY=7\n"), 0o644))
	t.Cleanup(func() {
		os.Unsetenv("BENCH_COLLECTION")
		os.Unsetenv("BENCH_CONCURRENCY")
	})
	t.Setenv("BENCH_BATCH_SIZE", "40")

	v := New()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(fs)
	require.NoError(t, v.BindPFlags(fs))
	require.NoError(t, fs.Parse([]string{"--records", "4000"}))

	cfg, err := Load(v, configFile, envFile)
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Records, "flag beats config file")
	assert.Equal(t, 40, cfg.BatchSize, "environment beats config file")
	assert.Equal(t, 7, cfg.Concurrency, ".env populates the environment")
	assert.Equal(t, "fromdotenv", cfg.Collection)
	assert.Equal(t, 10000, cfg.Throughput, "flag defaults do not override")
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	setRequired(t)

	_, err := Load(New(), "", filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestValidate_ListsEveryProblem(t *testing.T) {
	t.Setenv("BENCH_BACKEND", "mongo")
	t.Setenv("BENCH_BATCH_SIZE", "500")
	t.Setenv("BENCH_RECORDS", "100")
	t.Setenv("BENCH_CONCURRENCY", "0")

	_, err := Load(New(), "", "")

	var cerr *benchmark.ConfigurationError
	require.True(t, errors.As(err, &cerr))
	assert.Contains(t, cerr.Problems, `backend must be one of [postgres pgx redis bolt memory], got "mongo"`)
	assert.Contains(t, cerr.Problems, "database is required")
	assert.Contains(t, cerr.Problems, "concurrency must be greater than 0, got 0")
	assert.Contains(t, cerr.Problems, "endpoint is required for the mongo backend")
	assert.Contains(t, cerr.Problems, "batch size 500 exceeds record count 100")
	assert.Contains(t, cerr.Problems, "batch size 500 exceeds the maximum of 100")
}

func TestValidate_BackendCredentials(t *testing.T) {
	base := func(backend string) Config {
		return Config{
			Backend:           backend,
			Database:          "db",
			Collection:        "demo",
			PartitionKeyPath:  "/account",
			PartitionMode:     "fixed",
			PartitionKey:      "k",
			IDScheme:          "uuid",
			Records:           10,
			BatchSize:         5,
			MaxBatchSize:      100,
			Concurrency:       1,
			Throughput:        400,
			SampleGranularity: GranularityAuto,
			ReportFormat:      "text",
			ReadyTimeout:      time.Second,
			LogLevel:          "info",
			LogFormat:         "text",
		}
	}

	assert.NoError(t, Validate(base(BackendMemory)))

	bolt := base(BackendBolt)
	assert.ErrorContains(t, Validate(bolt), "endpoint is required for the bolt backend")
	bolt.Endpoint = "bench.db"
	assert.NoError(t, Validate(bolt))

	redis := base(BackendRedis)
	redis.Endpoint = "localhost:6379"
	assert.ErrorContains(t, Validate(redis), "access-key is required for the redis backend")
}

func TestValidate_PartitionKeyPath(t *testing.T) {
	setRequired(t)
	t.Setenv("BENCH_PARTITION_KEY_PATH", "account")

	_, err := Load(New(), "", "")
	assert.ErrorContains(t, err, `partition-key-path must start with "/"`)
}
