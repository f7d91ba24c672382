// Package plan slices a run's records into buffers (chunks) and batches.
package plan

import (
	"fmt"

	"github.com/moguls753/docbench/internal/benchmark"
)

// DefaultMaxBatchSize is the largest transactional batch most document stores accept.
const DefaultMaxBatchSize = 100

type Options struct {
	BatchSize int
	// BufferSize groups batches into chunks for progress reporting. 0 disables buffering.
	BufferSize   int
	MaxBatchSize int
}

// Chunk is a buffer of consecutive batches dispatched and timed together.
type Chunk struct {
	Index   int
	Batches []benchmark.Batch
}

// Records returns the number of records in the chunk.
func (c Chunk) Records() int {
	n := 0
	for _, b := range c.Batches {
		n += b.Size()
	}
	return n
}

type Plan struct {
	Chunks []Chunk
}

// Batches returns every batch of the plan in dispatch order.
func (p *Plan) Batches() []benchmark.Batch {
	var batches []benchmark.Batch
	for _, c := range p.Chunks {
		batches = append(batches, c.Batches...)
	}
	return batches
}

// Records returns the number of records covered by the plan.
func (p *Plan) Records() int {
	n := 0
	for _, c := range p.Chunks {
		n += c.Records()
	}
	return n
}

// Validate checks the sizing of a run. A zero maxBatchSize means DefaultMaxBatchSize.
func Validate(totalRecords, batchSize, bufferSize, maxBatchSize int) error {
	if maxBatchSize <= 0 {
		maxBatchSize = DefaultMaxBatchSize
	}

	var problems []string
	if totalRecords <= 0 {
		problems = append(problems, fmt.Sprintf("record count must be positive, got %d", totalRecords))
	}
	if batchSize <= 0 {
		problems = append(problems, fmt.Sprintf("batch size must be positive, got %d", batchSize))
	}
	if batchSize > totalRecords && totalRecords > 0 {
		problems = append(problems, fmt.Sprintf("batch size %d exceeds record count %d", batchSize, totalRecords))
	}
	if batchSize > maxBatchSize {
		problems = append(problems, fmt.Sprintf("batch size %d exceeds the maximum of %d", batchSize, maxBatchSize))
	}
	if bufferSize < 0 {
		problems = append(problems, fmt.Sprintf("buffer size must not be negative, got %d", bufferSize))
	}
	if bufferSize > 0 {
		if bufferSize < batchSize {
			problems = append(problems, fmt.Sprintf("buffer size %d is smaller than batch size %d", bufferSize, batchSize))
		}
		if bufferSize > totalRecords {
			problems = append(problems, fmt.Sprintf("buffer size %d exceeds record count %d", bufferSize, totalRecords))
		}
	}

	if len(problems) > 0 {
		return benchmark.NewConfigurationError(problems...)
	}
	return nil
}

// New validates opts against len(records) and slices the records. Batches are cut
// when they reach BatchSize or when the partition key changes, so a batch never
// spans two partitions. Without a buffer the whole run is one chunk.
func New(records []benchmark.SyntheticRecord, opts Options) (*Plan, error) {
	if err := Validate(len(records), opts.BatchSize, opts.BufferSize, opts.MaxBatchSize); err != nil {
		return nil, err
	}

	bufferSize := opts.BufferSize
	if bufferSize == 0 {
		bufferSize = len(records)
	}

	p := &Plan{}
	batchIndex := 0
	for start := 0; start < len(records); start += bufferSize {
		end := min(start+bufferSize, len(records))
		chunk := Chunk{Index: len(p.Chunks)}
		for _, group := range split(records[start:end], opts.BatchSize) {
			chunk.Batches = append(chunk.Batches, benchmark.Batch{
				Index:        batchIndex,
				Chunk:        chunk.Index,
				PartitionKey: group[0].PartitionKey,
				Records:      group,
			})
			batchIndex++
		}
		p.Chunks = append(p.Chunks, chunk)
	}

	return p, nil
}

func split(records []benchmark.SyntheticRecord, batchSize int) [][]benchmark.SyntheticRecord {
	var groups [][]benchmark.SyntheticRecord
	start := 0
	for i := 1; i <= len(records); i++ {
		if i == len(records) || i-start == batchSize || records[i].PartitionKey != records[start].PartitionKey {
			groups = append(groups, records[start:i:i])
			start = i
		}
	}
	return groups
}
