// Package generator produces synthetic account records for write benchmarks.
package generator

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/moguls753/docbench/internal/benchmark"
)

// Partition modes.
const (
	PartitionFixed  = "fixed"
	PartitionRandom = "random"
)

// ID schemes.
const (
	IDSchemeUUID = "uuid"
	IDSchemeULID = "ulid"
)

// DefaultPartitionKey is the account every record shares in fixed mode.
const DefaultPartitionKey = "9ac25829-0152-426b-91ef-492d799bece9"

const description = "This is a description of the document"

const (
	minBalance     = 1000.0
	maxBalance     = 5000.0
	maxRandomValue = 10000
)

type Options struct {
	PartitionMode string
	PartitionKey  string
	IDScheme      string
	Seed          int64
	Now           func() time.Time
}

// Generator is not safe for concurrent use.
type Generator struct {
	opts    Options
	rng     *rand.Rand
	entropy *ulid.MonotonicEntropy
}

func New(opts Options) (*Generator, error) {
	if opts.PartitionMode == "" {
		opts.PartitionMode = PartitionFixed
	}
	if opts.PartitionKey == "" {
		opts.PartitionKey = DefaultPartitionKey
	}
	if opts.IDScheme == "" {
		opts.IDScheme = IDSchemeUUID
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	switch opts.PartitionMode {
	case PartitionFixed, PartitionRandom:
	default:
		return nil, fmt.Errorf("unknown partition mode: %s", opts.PartitionMode)
	}
	switch opts.IDScheme {
	case IDSchemeUUID, IDSchemeULID:
	default:
		return nil, fmt.Errorf("unknown id scheme: %s", opts.IDScheme)
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	return &Generator{
		opts:    opts,
		rng:     rng,
		entropy: ulid.Monotonic(rng, 0),
	}, nil
}

// Generate returns n fresh records.
func (g *Generator) Generate(n int) []benchmark.SyntheticRecord {
	records := make([]benchmark.SyntheticRecord, n)
	for i := range records {
		records[i] = g.Next()
	}
	return records
}

// Next returns one fresh record.
func (g *Generator) Next() benchmark.SyntheticRecord {
	now := g.opts.Now()
	millis := now.UnixMilli()

	key := g.opts.PartitionKey
	if g.opts.PartitionMode == PartitionRandom {
		key = g.uuid()
	}

	return benchmark.SyntheticRecord{
		ID:           g.id(now),
		PartitionKey: key,
		Balance:      minBalance + g.rng.Float64()*(maxBalance-minBalance),
		Description:  description,
		CreatedAt:    millis,
		UpdatedAt:    millis,
		PID:          g.uuid(),
		RandomValue:  g.rng.Intn(2*maxRandomValue+1) - maxRandomValue,
	}
}

func (g *Generator) id(now time.Time) string {
	if g.opts.IDScheme == IDSchemeULID {
		return ulid.MustNew(ulid.Timestamp(now), g.entropy).String()
	}
	return g.uuid()
}

func (g *Generator) uuid() string {
	id, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		// math/rand never fails to read
		panic(err)
	}
	return id.String()
}
