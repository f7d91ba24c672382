package metrics

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moguls753/docbench/internal/benchmark"
)

func TestCollector_Observe(t *testing.T) {
	c := New()

	c.Observe(benchmark.Outcome{Size: 100, Success: true, Elapsed: 20 * time.Millisecond})
	c.Observe(benchmark.Outcome{Size: 100, Success: true, Elapsed: 30 * time.Millisecond})
	c.Observe(benchmark.Outcome{Size: 50, ErrorCode: "429", Elapsed: 10 * time.Millisecond})
	c.Observe(benchmark.Outcome{Size: 25, ErrorCode: benchmark.ErrorCodeCancelled})

	assert.Equal(t, 2.0, testutil.ToFloat64(c.batches.WithLabelValues(resultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.batches.WithLabelValues(resultFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.batches.WithLabelValues(resultCancelled)))
	assert.Equal(t, 200.0, testutil.ToFloat64(c.records.WithLabelValues(resultSuccess)))
	assert.Equal(t, 50.0, testutil.ToFloat64(c.records.WithLabelValues(resultFailure)))

	count, err := testutil.GatherAndCount(c.registry, "docbench_batch_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCollector_Track(t *testing.T) {
	c := New()
	var during float64
	submit := c.Track(func(ctx context.Context, b benchmark.Batch) (benchmark.Result, error) {
		during = testutil.ToFloat64(c.inFlight)
		return benchmark.Result{Success: true}, nil
	})

	_, err := submit(context.Background(), benchmark.Batch{})
	require.NoError(t, err)

	assert.Equal(t, 1.0, during)
	assert.Equal(t, 0.0, testutil.ToFloat64(c.inFlight))
}

func TestCollector_Handler(t *testing.T) {
	c := New()
	c.Observe(benchmark.Outcome{Size: 10, Success: true, Elapsed: time.Millisecond})

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `docbench_batches_total{result="success"} 1`), body)
	assert.Contains(t, body, "docbench_in_flight_batches 0")
}
