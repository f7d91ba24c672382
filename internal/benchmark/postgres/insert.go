package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/moguls753/docbench/internal/benchmark"
)

// SubmitBatch writes the batch with one multi-row INSERT inside a transaction.
// Server-side rejections come back as a failed Result carrying the SQLSTATE.
func (s *Store) SubmitBatch(ctx context.Context, name, partitionKey string, records []benchmark.SyntheticRecord) (benchmark.Result, error) {
	query, args, err := insertStatement(name, partitionKey, s.keyField, records)
	if err != nil {
		return benchmark.Result{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return benchmark.Result{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if code, msg, ok := statusOf(err); ok {
			return benchmark.Result{StatusCode: code, Message: msg}, nil
		}
		return benchmark.Result{}, fmt.Errorf("insert batch: %w", err)
	}
	if err := tx.Commit(); err != nil {
		if code, msg, ok := statusOf(err); ok {
			return benchmark.Result{StatusCode: code, Message: msg}, nil
		}
		return benchmark.Result{}, fmt.Errorf("commit batch: %w", err)
	}
	return benchmark.Result{Success: true}, nil
}

func insertStatement(name, partitionKey, keyField string, records []benchmark.SyntheticRecord) (string, []interface{}, error) {
	placeholders := make([]string, len(records))
	args := make([]interface{}, 0, len(records)*3)

	for i, r := range records {
		doc, err := json.Marshal(r.Document(keyField))
		if err != nil {
			return "", nil, fmt.Errorf("encode record %s: %w", r.ID, err)
		}
		placeholders[i] = fmt.Sprintf("($%d, $%d, $%d)", i*3+1, i*3+2, i*3+3)
		args = append(args, partitionKey, r.ID, string(doc))
	}

	sql := fmt.Sprintf("INSERT INTO %s (partition_key, id, doc) VALUES %s",
		pq.QuoteIdentifier(name), strings.Join(placeholders, ", "))
	return sql, args, nil
}
