// Package metrics exposes run progress as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/moguls753/docbench/internal/benchmark"
	"github.com/moguls753/docbench/internal/benchmark/dispatch"
)

const namespace = "docbench"

const (
	resultSuccess   = "success"
	resultFailure   = "failure"
	resultCancelled = "cancelled"
)

// Collector holds the metrics of one run on its own registry.
type Collector struct {
	registry *prometheus.Registry

	batches       *prometheus.CounterVec
	records       *prometheus.CounterVec
	batchDuration prometheus.Histogram
	inFlight      prometheus.Gauge
}

func New() *Collector {
	batches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Batches finished, by result.",
		},
		[]string{"result"},
	)
	records := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Records in finished batches, by result.",
		},
		[]string{"result"},
	)
	batchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Wall clock time of one batch submission.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		},
	)
	inFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "in_flight_batches",
			Help:      "Batches currently being submitted.",
		},
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(batches, records, batchDuration, inFlight)

	return &Collector{
		registry:      registry,
		batches:       batches,
		records:       records,
		batchDuration: batchDuration,
		inFlight:      inFlight,
	}
}

// Track wraps submit so the in-flight gauge follows it.
func (c *Collector) Track(submit dispatch.SubmitFunc) dispatch.SubmitFunc {
	return func(ctx context.Context, batch benchmark.Batch) (benchmark.Result, error) {
		c.inFlight.Inc()
		defer c.inFlight.Dec()
		return submit(ctx, batch)
	}
}

// Observe records a finished batch. It satisfies dispatch.Observer.
func (c *Collector) Observe(o benchmark.Outcome) {
	result := resultSuccess
	switch {
	case o.ErrorCode == benchmark.ErrorCodeCancelled:
		result = resultCancelled
	case !o.Success:
		result = resultFailure
	}

	c.batches.WithLabelValues(result).Inc()
	c.records.WithLabelValues(result).Add(float64(o.Size))
	if result != resultCancelled {
		c.batchDuration.Observe(o.Elapsed.Seconds())
	}
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("metrics server shutdown")
		}
	}()

	log.WithField("addr", addr).Info("serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve metrics: %w", err)
	}
	return nil
}
