package benchmark

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate_OverallIsRatioOfTotals(t *testing.T) {
	outcomes := []Outcome{
		{BatchIndex: 0, Size: 100, Success: true, Elapsed: 100 * time.Millisecond},
		{BatchIndex: 1, Size: 100, Success: true, Elapsed: 400 * time.Millisecond},
	}
	// Two uneven chunks: 100 records in 1s and 100 records in 4s.
	samples := []Sample{
		{Records: 100, Elapsed: time.Second},
		{Records: 100, Elapsed: 4 * time.Second},
	}

	m := Aggregate(outcomes, samples, 5*time.Second)

	assert.Equal(t, 200, m.TotalRecords)
	assert.InDelta(t, 40.0, m.OverallTPS, 1e-9)
	assert.InDelta(t, 62.5, m.AverageTPS, 1e-9)
	assert.InDelta(t, 25.0, m.MinTPS, 1e-9)
	assert.InDelta(t, 100.0, m.MaxTPS, 1e-9)
	assert.Equal(t, []float64{100, 25}, m.TPSSamples)
	assert.NotEqual(t, m.OverallTPS, m.AverageTPS)
}

func TestAggregate_Empty(t *testing.T) {
	m := Aggregate(nil, nil, 0)

	assert.Zero(t, m.TotalRecords)
	assert.Zero(t, m.OverallTPS)
	assert.Zero(t, m.AverageTPS)
	assert.Zero(t, m.MinTPS)
	assert.Zero(t, m.MaxTPS)
	assert.Empty(t, m.TPSSamples)
	assert.Empty(t, m.ErrorCounts)
}

func TestAggregate_ErrorTally(t *testing.T) {
	outcomes := []Outcome{
		{Size: 10, Success: true, Elapsed: time.Millisecond},
		{Size: 10, ErrorCode: "429", Message: "too many requests", Elapsed: time.Millisecond},
		{Size: 10, ErrorCode: "429", Message: "later message", Elapsed: time.Millisecond},
		{Size: 5, ErrorCode: ErrorCodeException, Message: "connection reset", Elapsed: time.Millisecond},
		{Size: 5},
	}

	m := Aggregate(outcomes, BatchSamples(outcomes), time.Second)

	require.Equal(t, map[string]int{"429": 2, ErrorCodeException: 1, ErrorCodeUnknown: 1}, m.ErrorCounts)
	assert.Equal(t, "too many requests", m.ErrorMessages["429"])
	assert.Equal(t, 10, m.SucceededRecords)
	assert.Equal(t, 30, m.FailedRecords)
	assert.Equal(t, 4, m.FailedBatches)
	assert.Equal(t, 5, m.Batches)
}

func TestAggregate_CancelledBatchesHaveNoLatency(t *testing.T) {
	outcomes := []Outcome{
		{Size: 10, Success: true, Elapsed: 10 * time.Millisecond},
		{Size: 10, ErrorCode: ErrorCodeCancelled},
	}

	samples := BatchSamples(outcomes)
	m := Aggregate(outcomes, samples, 10*time.Millisecond)

	assert.Len(t, samples, 1)
	assert.Equal(t, 10*time.Millisecond, m.LatencyP50)
	assert.Equal(t, 20, m.TotalRecords)
	assert.InDelta(t, 1000.0, m.OverallTPS, 1e-9)
	assert.Equal(t, 1, m.ErrorCounts[ErrorCodeCancelled])
}

func TestSample_TPS(t *testing.T) {
	assert.Equal(t, 0.0, Sample{Records: 100}.TPS())
	assert.InDelta(t, 200.0, Sample{Records: 100, Elapsed: 500 * time.Millisecond}.TPS(), 1e-9)
}

func TestCalculatePercentiles(t *testing.T) {
	latencies := make([]time.Duration, 0, 100)
	for i := 100; i >= 1; i-- {
		latencies = append(latencies, time.Duration(i)*time.Millisecond)
	}

	p50, p95, p99 := CalculatePercentiles(latencies)

	assert.Equal(t, 51*time.Millisecond, p50)
	assert.Equal(t, 96*time.Millisecond, p95)
	assert.Equal(t, 100*time.Millisecond, p99)
	// caller's slice keeps its order
	assert.Equal(t, 100*time.Millisecond, latencies[0])
}

func TestPartitionKeyField(t *testing.T) {
	tests := map[string]string{
		"/account":      "account",
		"account":       "account",
		"/nested/owner": "owner",
		"":              DefaultPartitionKeyField,
		"/":             DefaultPartitionKeyField,
	}
	for path, want := range tests {
		t.Run(path, func(t *testing.T) {
			assert.Equal(t, want, PartitionKeyField(path))
		})
	}
}

func TestSyntheticRecord_Document(t *testing.T) {
	r := SyntheticRecord{ID: "a", PartitionKey: "p", Balance: 1500, RandomValue: -3}

	doc := r.Document("owner")

	assert.Equal(t, "a", doc["id"])
	assert.Equal(t, "p", doc["owner"])
	assert.NotContains(t, doc, "account")
	assert.Equal(t, -3, doc["randomValue"])
}

func TestConfigurationError_Message(t *testing.T) {
	assert.Equal(t, "invalid configuration: a", NewConfigurationError("a").Error())
	assert.Equal(t, "invalid configuration: a; b", NewConfigurationError("a", "b").Error())
}
