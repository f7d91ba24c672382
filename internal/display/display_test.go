package display

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moguls753/docbench/internal/benchmark"
	"github.com/moguls753/docbench/internal/benchmark/plan"
	"github.com/moguls753/docbench/internal/benchmark/storetest"
	"github.com/moguls753/docbench/internal/runner"
)

func TestReport(t *testing.T) {
	r := &runner.Report{
		Settings: runner.Settings{Backend: "memory", Collection: "demo", Records: 500, BatchSize: 100, Concurrency: 5, Granularity: "batch"},
		Metrics: benchmark.RunMetrics{
			Batches:          5,
			TotalRecords:     500,
			SucceededRecords: 400,
			FailedRecords:    100,
			TotalElapsed:     2 * time.Second,
			OverallTPS:       250,
			TPSSamples:       []float64{100, 200, 300},
			LatencyP50:       40 * time.Millisecond,
			ErrorCounts:      map[string]int{"429": 1},
			ErrorMessages:    map[string]string{"429": "request rate is large"},
		},
		Verified:     true,
		InitialCount: 0,
		FinalCount:   400,
		Discrepancy:  &benchmark.Discrepancy{Expected: 500, Actual: 400},
	}

	var buf bytes.Buffer
	Report(&buf, r)
	out := buf.String()

	assert.Contains(t, out, "memory/demo")
	assert.Contains(t, out, "250.00 rec/s")
	assert.Contains(t, out, "│      200 │      200 │      100 │      100 │      300 │  50.0 │")
	assert.Contains(t, out, "│ 429         │       1 │ request rate is large")
	assert.Contains(t, out, "expected 500 records, found 400 (-100)")
	assert.NotContains(t, out, "cancelled")
}

func TestPlan(t *testing.T) {
	records := storetest.Records("r", "acct", 250)
	p, err := plan.New(records, plan.Options{BatchSize: 100, BufferSize: 200})
	require.NoError(t, err)

	var buf bytes.Buffer
	Plan(&buf, p)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

	assert.Equal(t, "250 records in 2 chunks, 3 batches", lines[0])
	require.Len(t, lines, 5)
	assert.Equal(t, []string{"0", "2", "200", "100", "1"}, strings.Fields(lines[3]))
	assert.Equal(t, []string{"1", "1", "50", "50", "1"}, strings.Fields(lines[4]))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
