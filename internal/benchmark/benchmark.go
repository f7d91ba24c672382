package benchmark

import (
	"context"
	"sort"
	"time"
)

// Store is the capability the harness needs from a document database.
// Implementations own their client and must make SubmitBatch atomic per batch.
type Store interface {
	// CreateCollection creates the collection if it does not exist yet.
	CreateCollection(ctx context.Context, spec CollectionSpec) error
	DeleteCollection(ctx context.Context, name string) error
	// SubmitBatch writes all records or none of them. A refusal reported by the
	// service is returned as an unsuccessful Result; only transport faults are errors.
	SubmitBatch(ctx context.Context, collection, partitionKey string, records []SyntheticRecord) (Result, error)
	CountRecords(ctx context.Context, collection string) (int64, error)
	DeleteRecord(ctx context.Context, collection, id, partitionKey string) error
	Close() error
}

// DatabaseChecker is implemented by stores that can tell whether the target database exists.
type DatabaseChecker interface {
	DatabaseExists(ctx context.Context) (bool, error)
}

// RecordLister is implemented by stores that can enumerate the records of a collection.
type RecordLister interface {
	ListRecords(ctx context.Context, collection string) ([]RecordRef, error)
}

// Pinger is implemented by stores with a cheap liveness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CollectionSpec describes the collection a run writes into.
type CollectionSpec struct {
	Name             string
	PartitionKeyPath string
	Throughput       int
}

// Result is the store's answer to a batch submission.
type Result struct {
	Success    bool
	StatusCode string
	Message    string
}

// RecordRef identifies one stored record.
type RecordRef struct {
	ID           string
	PartitionKey string
}

// Error codes used when the store did not supply one.
const (
	ErrorCodeException = "exception"
	ErrorCodeUnknown   = "unknown"
	ErrorCodeCancelled = "cancelled"
)

// Outcome is the result of submitting one batch.
type Outcome struct {
	BatchIndex int
	Chunk      int
	Size       int
	Success    bool
	ErrorCode  string
	Message    string
	Elapsed    time.Duration
}

// ElapsedMillis returns the batch duration in whole milliseconds.
func (o Outcome) ElapsedMillis() int64 {
	return o.Elapsed.Milliseconds()
}

// Sample is one throughput measurement: a number of records written over a wall-clock span.
type Sample struct {
	Records int
	Elapsed time.Duration
}

// TPS returns records per second, or 0 when no time elapsed.
func (s Sample) TPS() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Records) / s.Elapsed.Seconds()
}

func CalculatePercentiles(latencies []time.Duration) (p50, p95, p99 time.Duration) {
	if len(latencies) == 0 {
		return 0, 0, 0
	}

	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	n := len(sorted)
	p50 = sorted[n*50/100]
	p95 = sorted[n*95/100]
	p99 = sorted[n*99/100]

	return p50, p95, p99
}
