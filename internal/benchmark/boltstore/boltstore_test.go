package boltstore

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/moguls753/docbench/internal/benchmark"
	"github.com/moguls753/docbench/internal/benchmark/storetest"
)

func TestStore_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) benchmark.Store {
		s, err := Open(filepath.Join(t.TempDir(), "bench.db"), "/account")
		require.NoError(t, err)
		return s
	})
}

func TestStore_StoresDocumentUnderPartitionField(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "bench.db"), "/account")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.CreateCollection(ctx, benchmark.CollectionSpec{Name: "demo", PartitionKeyPath: "/owner", Throughput: 400}))
	result, err := s.SubmitBatch(ctx, "demo", "o1", storetest.Records("r", "o1", 1))
	require.NoError(t, err)
	require.True(t, result.Success)

	var doc map[string]any
	err = s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte("demo")).Bucket([]byte("o1")).Get([]byte("r-0"))
		return json.Unmarshal(raw, &doc)
	})
	require.NoError(t, err)
	assert.Equal(t, "o1", doc["owner"])
	assert.Equal(t, "r-0", doc["id"])

	err = s.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket([]byte("demo")).Bucket(metaBucket)
		assert.Equal(t, "400", string(meta.Get(keyThrough)))
		return nil
	})
	require.NoError(t, err)
}

func TestStore_SubmitToMissingCollectionIsTransportError(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "bench.db"), "/account")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.SubmitBatch(context.Background(), "missing", "k", storetest.Records("r", "k", 1))
	assert.ErrorContains(t, err, "does not exist")
}
