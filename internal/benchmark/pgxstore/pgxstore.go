// Package pgxstore is the PostgreSQL backend on the pgx driver. It shares the
// table layout of package postgres but writes each batch with COPY.
package pgxstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/moguls753/docbench/internal/benchmark"
	"github.com/moguls753/docbench/internal/benchmark/postgres"
)

var copyColumns = []string{"partition_key", "id", "doc"}

type Store struct {
	pool     *pgxpool.Pool
	database string
	keyField string
}

// Open builds a lazily connecting pool for cfg.
func Open(ctx context.Context, cfg postgres.Config) (*Store, error) {
	dsn, err := postgres.DSN(cfg)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	poolCfg.LazyConnect = true

	pool, err := pgxpool.ConnectConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect pool: %w", err)
	}
	return &Store{pool: pool, database: cfg.Database, keyField: benchmark.PartitionKeyField(cfg.PartitionKeyPath)}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

func (s *Store) DatabaseExists(ctx context.Context) (bool, error) {
	var name string
	err := s.pool.QueryRow(ctx, "SELECT current_database()").Scan(&name)
	if code, _, ok := statusOf(err); ok && code == pgerrcode.InvalidCatalogName {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query current database: %w", err)
	}
	return name == s.database, nil
}

func (s *Store) CreateCollection(ctx context.Context, spec benchmark.CollectionSpec) error {
	s.keyField = benchmark.PartitionKeyField(spec.PartitionKeyPath)
	table := pgx.Identifier{spec.Name}.Sanitize()

	createSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			partition_key TEXT NOT NULL,
			id TEXT NOT NULL,
			doc JSONB NOT NULL,
			created_at TIMESTAMP DEFAULT NOW(),
			PRIMARY KEY (partition_key, id)
		)
	`, table)
	if _, err := s.pool.Exec(ctx, createSQL); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	// COMMENT does not take bind parameters.
	comment := fmt.Sprintf("partitionKeyPath=%s throughput=%d", spec.PartitionKeyPath, spec.Throughput)
	commentSQL := fmt.Sprintf("COMMENT ON TABLE %s IS %s", table, quoteLiteral(comment))
	if _, err := s.pool.Exec(ctx, commentSQL); err != nil {
		return fmt.Errorf("comment table: %w", err)
	}
	return nil
}

func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	if _, err := s.pool.Exec(ctx, "DROP TABLE "+pgx.Identifier{name}.Sanitize()); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	return nil
}

// SubmitBatch copies the batch inside a transaction, so a rejected row leaves
// nothing behind.
func (s *Store) SubmitBatch(ctx context.Context, name, partitionKey string, records []benchmark.SyntheticRecord) (benchmark.Result, error) {
	rows, err := copyRows(partitionKey, s.keyField, records)
	if err != nil {
		return benchmark.Result{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return benchmark.Result{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{name}, copyColumns, pgx.CopyFromRows(rows)); err != nil {
		if code, msg, ok := statusOf(err); ok {
			return benchmark.Result{StatusCode: code, Message: msg}, nil
		}
		return benchmark.Result{}, fmt.Errorf("copy batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		if code, msg, ok := statusOf(err); ok {
			return benchmark.Result{StatusCode: code, Message: msg}, nil
		}
		return benchmark.Result{}, fmt.Errorf("commit batch: %w", err)
	}
	return benchmark.Result{Success: true}, nil
}

func (s *Store) CountRecords(ctx context.Context, name string) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM "+pgx.Identifier{name}.Sanitize()).Scan(&count); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return count, nil
}

func (s *Store) ListRecords(ctx context.Context, name string) ([]benchmark.RecordRef, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, partition_key FROM "+pgx.Identifier{name}.Sanitize())
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var refs []benchmark.RecordRef
	for rows.Next() {
		var ref benchmark.RecordRef
		if err := rows.Scan(&ref.ID, &ref.PartitionKey); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (s *Store) DeleteRecord(ctx context.Context, name, id, partitionKey string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE partition_key = $1 AND id = $2", pgx.Identifier{name}.Sanitize())
	tag, err := s.pool.Exec(ctx, query, partitionKey, id)
	if err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("record %s not found in %s", id, name)
	}
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func copyRows(partitionKey, keyField string, records []benchmark.SyntheticRecord) ([][]interface{}, error) {
	rows := make([][]interface{}, len(records))
	for i, r := range records {
		doc, err := json.Marshal(r.Document(keyField))
		if err != nil {
			return nil, fmt.Errorf("encode record %s: %w", r.ID, err)
		}
		rows[i] = []interface{}{partitionKey, r.ID, string(doc)}
	}
	return rows, nil
}

func statusOf(err error) (code, message string, ok bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.Message, true
	}
	return "", "", false
}

// quoteLiteral assumes standard_conforming_strings, the server default.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
