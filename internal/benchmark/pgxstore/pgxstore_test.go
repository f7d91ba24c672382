package pgxstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moguls753/docbench/internal/benchmark"
	"github.com/moguls753/docbench/internal/benchmark/postgres"
	"github.com/moguls753/docbench/internal/benchmark/storetest"
)

func TestCopyRows(t *testing.T) {
	rows, err := copyRows("acct", "owner", storetest.Records("c", "acct", 3))
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, "acct", rows[0][0])
	assert.Equal(t, "c-2", rows[2][1])
	assert.Contains(t, rows[1][2], `"owner":"acct"`)
}

func TestStatusOf(t *testing.T) {
	wrapped := fmt.Errorf("copy: %w", &pgconn.PgError{Code: pgerrcode.UniqueViolation, Message: "duplicate key value"})

	code, msg, ok := statusOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, "23505", code)
	assert.Equal(t, "duplicate key value", msg)

	_, _, ok = statusOf(errors.New("connection reset"))
	assert.False(t, ok)
}

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, `'it''s'`, quoteLiteral("it's"))
	assert.Equal(t, `''`, quoteLiteral(""))
}

func TestStore_Conformance(t *testing.T) {
	raw := os.Getenv("BENCH_TEST_POSTGRES_URL")
	if raw == "" {
		t.Skip("BENCH_TEST_POSTGRES_URL not set")
	}
	cfg, err := postgres.ConfigFromURL(raw)
	require.NoError(t, err)

	storetest.Run(t, func(t *testing.T) benchmark.Store {
		s, err := Open(context.Background(), cfg)
		require.NoError(t, err)
		return s
	})
}
