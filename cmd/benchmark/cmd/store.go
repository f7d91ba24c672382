package cmd

import (
	"context"
	"fmt"

	"github.com/moguls753/docbench/internal/benchmark"
	"github.com/moguls753/docbench/internal/benchmark/boltstore"
	"github.com/moguls753/docbench/internal/benchmark/memstore"
	"github.com/moguls753/docbench/internal/benchmark/pgxstore"
	"github.com/moguls753/docbench/internal/benchmark/postgres"
	"github.com/moguls753/docbench/internal/benchmark/redisstore"
	"github.com/moguls753/docbench/internal/config"
)

// openStore connects the backend named by cfg.Backend. Pools are sized to the
// concurrency limit.
func openStore(ctx context.Context, cfg config.Config) (benchmark.Store, error) {
	pgConfig := postgres.Config{
		Endpoint:         cfg.Endpoint,
		AccessKey:        cfg.AccessKey,
		Database:         cfg.Database,
		MaxConns:         cfg.Concurrency,
		PartitionKeyPath: cfg.PartitionKeyPath,
	}

	switch cfg.Backend {
	case config.BackendPostgres:
		s, err := postgres.Open(pgConfig)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendPgx:
		s, err := pgxstore.Open(ctx, pgConfig)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendRedis:
		s, err := redisstore.Open(redisstore.Options{
			Endpoint:         cfg.Endpoint,
			AccessKey:        cfg.AccessKey,
			Database:         cfg.Database,
			PoolSize:         cfg.Concurrency,
			PartitionKeyPath: cfg.PartitionKeyPath,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendBolt:
		s, err := boltstore.Open(cfg.Endpoint, cfg.PartitionKeyPath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendMemory:
		s, err := memstore.New(cfg.Database)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown backend: %s", cfg.Backend)
	}
}
