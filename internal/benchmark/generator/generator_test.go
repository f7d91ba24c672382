package generator

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_FixedPartition(t *testing.T) {
	g, err := New(Options{Seed: 7})
	require.NoError(t, err)

	records := g.Generate(1000)

	require.Len(t, records, 1000)
	ids := make(map[string]struct{}, len(records))
	for _, r := range records {
		assert.Equal(t, DefaultPartitionKey, r.PartitionKey)
		assert.GreaterOrEqual(t, r.Balance, 1000.0)
		assert.Less(t, r.Balance, 5000.0)
		assert.GreaterOrEqual(t, r.RandomValue, -10000)
		assert.LessOrEqual(t, r.RandomValue, 10000)
		assert.NotEmpty(t, r.Description)
		_, err := uuid.Parse(r.ID)
		assert.NoError(t, err)
		ids[r.ID] = struct{}{}
	}
	assert.Len(t, ids, len(records), "ids must be unique")
}

func TestGenerate_RandomPartition(t *testing.T) {
	g, err := New(Options{PartitionMode: PartitionRandom, Seed: 7})
	require.NoError(t, err)

	records := g.Generate(200)

	keys := make(map[string]struct{}, len(records))
	for _, r := range records {
		keys[r.PartitionKey] = struct{}{}
	}
	assert.Len(t, keys, len(records))
}

func TestGenerate_CustomKeyAndClock(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	g, err := New(Options{PartitionKey: "acct-1", Seed: 1, Now: func() time.Time { return now }})
	require.NoError(t, err)

	r := g.Next()

	assert.Equal(t, "acct-1", r.PartitionKey)
	assert.Equal(t, now.UnixMilli(), r.CreatedAt)
	assert.Equal(t, now.UnixMilli(), r.UpdatedAt)
}

func TestGenerate_ULIDsAreSortedAndUnique(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	g, err := New(Options{IDScheme: IDSchemeULID, Seed: 3, Now: func() time.Time { return now }})
	require.NoError(t, err)

	records := g.Generate(500)

	for i, r := range records {
		id, err := ulid.ParseStrict(r.ID)
		require.NoError(t, err)
		assert.Equal(t, uint64(now.UnixMilli()), id.Time())
		if i > 0 {
			assert.Less(t, records[i-1].ID, r.ID)
		}
	}
}

func TestGenerate_SameSeedSameRecords(t *testing.T) {
	now := func() time.Time { return time.UnixMilli(42) }
	a, err := New(Options{Seed: 99, Now: now})
	require.NoError(t, err)
	b, err := New(Options{Seed: 99, Now: now})
	require.NoError(t, err)

	assert.Equal(t, a.Generate(10), b.Generate(10))
}

func TestNew_RejectsUnknownModes(t *testing.T) {
	_, err := New(Options{PartitionMode: "sharded"})
	assert.ErrorContains(t, err, "unknown partition mode")

	_, err = New(Options{IDScheme: "serial"})
	assert.ErrorContains(t, err, "unknown id scheme")
}
