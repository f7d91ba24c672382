// Package postgres stores benchmark collections as PostgreSQL tables through
// database/sql and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/moguls753/docbench/internal/benchmark"
)

// Store implements benchmark.Store for PostgreSQL. Every collection is a table
// keyed by (partition_key, id) with the document in a JSONB column.
type Store struct {
	db       *sql.DB
	database string
	keyField string
}

func (s *Store) CreateCollection(ctx context.Context, spec benchmark.CollectionSpec) error {
	s.keyField = benchmark.PartitionKeyField(spec.PartitionKeyPath)
	table := pq.QuoteIdentifier(spec.Name)

	createSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			partition_key TEXT NOT NULL,
			id TEXT NOT NULL,
			doc JSONB NOT NULL,
			created_at TIMESTAMP DEFAULT NOW(),
			PRIMARY KEY (partition_key, id)
		)
	`, table)
	if _, err := s.db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	// Provisioned throughput has no meaning here; keep it next to the table.
	comment := fmt.Sprintf("partitionKeyPath=%s throughput=%d", spec.PartitionKeyPath, spec.Throughput)
	commentSQL := fmt.Sprintf("COMMENT ON TABLE %s IS %s", table, pq.QuoteLiteral(comment))
	if _, err := s.db.ExecContext(ctx, commentSQL); err != nil {
		return fmt.Errorf("comment table: %w", err)
	}
	return nil
}

func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, "DROP TABLE "+pq.QuoteIdentifier(name)); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	return nil
}

func (s *Store) CountRecords(ctx context.Context, name string) (int64, error) {
	var count int64
	query := "SELECT count(*) FROM " + pq.QuoteIdentifier(name)
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return count, nil
}

func (s *Store) ListRecords(ctx context.Context, name string) ([]benchmark.RecordRef, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, partition_key FROM "+pq.QuoteIdentifier(name))
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
	query := fmt.Sprintf("DELETE FROM %s WHERE partition_key = $1 AND id = $2", pq.QuoteIdentifier(name))
	res, err := s.db.ExecContext(ctx, query, partitionKey, id)
	if err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("record %s not found in %s", id, name)
	}
	return nil
}

// statusOf extracts the SQLSTATE from a server error. ok is false for
// transport and client errors.
func statusOf(err error) (code, message string, ok bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Message, true
	}
	return "", "", false
}
