// Package storetest holds the behaviour every benchmark.Store backend must share.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moguls753/docbench/internal/benchmark"
)

// Factory returns a connected store. The suite closes it.
type Factory func(t *testing.T) benchmark.Store

// Records builds n records for partition key with ids prefix-0 .. prefix-(n-1).
func Records(prefix, partitionKey string, n int) []benchmark.SyntheticRecord {
	records := make([]benchmark.SyntheticRecord, n)
	for i := range records {
		records[i] = benchmark.SyntheticRecord{
			ID:           fmt.Sprintf("%s-%d", prefix, i),
			PartitionKey: partitionKey,
			Balance:      1000 + float64(i),
			Description:  "conformance",
			CreatedAt:    1_700_000_000_000,
			UpdatedAt:    1_700_000_000_000,
			PID:          fmt.Sprintf("pid-%d", i),
			RandomValue:  i - 5,
		}
	}
	return records
}

// Run exercises the full capability set against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("create is idempotent", func(t *testing.T) {
		ctx := context.Background()
		store := open(t, newStore, "conf_create")

		require.NoError(t, store.CreateCollection(ctx, spec("conf_create")))
		require.NoError(t, store.CreateCollection(ctx, spec("conf_create")))

		count, err := store.CountRecords(ctx, "conf_create")
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("submit and count", func(t *testing.T) {
		ctx := context.Background()
		store := open(t, newStore, "conf_submit")
		require.NoError(t, store.CreateCollection(ctx, spec("conf_submit")))

		result, err := store.SubmitBatch(ctx, "conf_submit", "acct-a", Records("a", "acct-a", 5))
		require.NoError(t, err)
		assert.True(t, result.Success, result.Message)

		result, err = store.SubmitBatch(ctx, "conf_submit", "acct-b", Records("b", "acct-b", 3))
		require.NoError(t, err)
		assert.True(t, result.Success, result.Message)

		count, err := store.CountRecords(ctx, "conf_submit")
		require.NoError(t, err)
		assert.Equal(t, int64(8), count)
	})

	t.Run("batch is all or nothing", func(t *testing.T) {
		ctx := context.Background()
		store := open(t, newStore, "conf_atomic")
		require.NoError(t, store.CreateCollection(ctx, spec("conf_atomic")))

		result, err := store.SubmitBatch(ctx, "conf_atomic", "acct", Records("x", "acct", 2))
		require.NoError(t, err)
		require.True(t, result.Success, result.Message)

		// x-1 already exists, so y-0 must not be written either
		mixed := append(Records("y", "acct", 1), Records("x", "acct", 2)[1])
		result, err = store.SubmitBatch(ctx, "conf_atomic", "acct", mixed)
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.NotEmpty(t, result.StatusCode)

		count, err := store.CountRecords(ctx, "conf_atomic")
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("delete record", func(t *testing.T) {
		ctx := context.Background()
		store := open(t, newStore, "conf_delete")
		require.NoError(t, store.CreateCollection(ctx, spec("conf_delete")))

		_, err := store.SubmitBatch(ctx, "conf_delete", "acct", Records("d", "acct", 3))
		require.NoError(t, err)

		require.NoError(t, store.DeleteRecord(ctx, "conf_delete", "d-1", "acct"))

		count, err := store.CountRecords(ctx, "conf_delete")
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("list records", func(t *testing.T) {
		ctx := context.Background()
		store := open(t, newStore, "conf_list")
		lister, ok := store.(benchmark.RecordLister)
		if !ok {
			t.Skip("store cannot enumerate records")
		}
		require.NoError(t, store.CreateCollection(ctx, spec("conf_list")))
		_, err := store.SubmitBatch(ctx, "conf_list", "p1", Records("l", "p1", 2))
		require.NoError(t, err)
		_, err = store.SubmitBatch(ctx, "conf_list", "p2", Records("m", "p2", 1))
		require.NoError(t, err)

		refs, err := lister.ListRecords(ctx, "conf_list")
		require.NoError(t, err)

		sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
		assert.Equal(t, []benchmark.RecordRef{
			{ID: "l-0", PartitionKey: "p1"},
			{ID: "l-1", PartitionKey: "p1"},
			{ID: "m-0", PartitionKey: "p2"},
		}, refs)
	})

	t.Run("collections are isolated", func(t *testing.T) {
		ctx := context.Background()
		store := open(t, newStore, "conf_iso_a", "conf_iso_b")
		require.NoError(t, store.CreateCollection(ctx, spec("conf_iso_a")))
		require.NoError(t, store.CreateCollection(ctx, spec("conf_iso_b")))

		_, err := store.SubmitBatch(ctx, "conf_iso_a", "acct", Records("i", "acct", 4))
		require.NoError(t, err)

		count, err := store.CountRecords(ctx, "conf_iso_b")
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("delete collection drops its records", func(t *testing.T) {
		ctx := context.Background()
		store := open(t, newStore, "conf_drop")
		require.NoError(t, store.CreateCollection(ctx, spec("conf_drop")))
		_, err := store.SubmitBatch(ctx, "conf_drop", "acct", Records("z", "acct", 4))
		require.NoError(t, err)

		require.NoError(t, store.DeleteCollection(ctx, "conf_drop"))
		require.NoError(t, store.CreateCollection(ctx, spec("conf_drop")))

		count, err := store.CountRecords(ctx, "conf_drop")
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("ping", func(t *testing.T) {
		store := open(t, newStore)
		pinger, ok := store.(benchmark.Pinger)
		if !ok {
			t.Skip("store has no liveness probe")
		}
		assert.NoError(t, pinger.Ping(context.Background()))
	})
}

func spec(name string) benchmark.CollectionSpec {
	return benchmark.CollectionSpec{Name: name, PartitionKeyPath: "/account", Throughput: 400}
}

// open builds a store, drops any leftovers of the named collections and
// registers cleanup.
func open(t *testing.T, newStore Factory, collections ...string) benchmark.Store {
	t.Helper()
	store := newStore(t)
	for _, name := range collections {
		_ = store.DeleteCollection(context.Background(), name)
	}
	t.Cleanup(func() {
		for _, name := range collections {
			_ = store.DeleteCollection(context.Background(), name)
		}
		assert.NoError(t, store.Close())
	})
	return store
}
