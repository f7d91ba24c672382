// Package runner drives one benchmark run against a store: provision, write,
// verify, report and tear down.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/moguls753/docbench/internal/benchmark"
	"github.com/moguls753/docbench/internal/benchmark/dispatch"
	"github.com/moguls753/docbench/internal/benchmark/generator"
	"github.com/moguls753/docbench/internal/benchmark/plan"
	"github.com/moguls753/docbench/internal/config"
	"github.com/moguls753/docbench/internal/container"
	"github.com/moguls753/docbench/internal/metrics"
)

// Settings echoes the configuration a report was produced with.
type Settings struct {
	Backend          string `json:"backend" yaml:"backend"`
	Collection       string `json:"collection" yaml:"collection"`
	PartitionKeyPath string `json:"partitionKeyPath" yaml:"partitionKeyPath"`
	PartitionMode    string `json:"partitionMode" yaml:"partitionMode"`
	IDScheme         string `json:"idScheme" yaml:"idScheme"`
	Records          int    `json:"records" yaml:"records"`
	BatchSize        int    `json:"batchSize" yaml:"batchSize"`
	BufferSize       int    `json:"bufferSize" yaml:"bufferSize"`
	Concurrency      int    `json:"concurrency" yaml:"concurrency"`
	Throughput       int    `json:"throughput" yaml:"throughput"`
	Granularity      string `json:"sampleGranularity" yaml:"sampleGranularity"`
}

// Report is the outcome of one run.
type Report struct {
	Settings         Settings               `json:"settings" yaml:"settings"`
	Metrics          benchmark.RunMetrics   `json:"metrics" yaml:"metrics"`
	Provisioned      bool                   `json:"provisioned" yaml:"provisioned"`
	PreCleaned       int                    `json:"preCleaned" yaml:"preCleaned"`
	PreCleanFailures int                    `json:"preCleanFailures" yaml:"preCleanFailures"`
	Verified         bool                   `json:"verified" yaml:"verified"`
	InitialCount     int64                  `json:"initialCount" yaml:"initialCount"`
	FinalCount       int64                  `json:"finalCount" yaml:"finalCount"`
	Discrepancy      *benchmark.Discrepancy `json:"discrepancy,omitempty" yaml:"discrepancy,omitempty"`
	Cancelled        bool                   `json:"cancelled" yaml:"cancelled"`
	ContainerIO      *container.IOMetrics   `json:"containerIo,omitempty" yaml:"containerIo,omitempty"`
	StartedAt        time.Time              `json:"startedAt" yaml:"startedAt"`
	FinishedAt       time.Time              `json:"finishedAt" yaml:"finishedAt"`

	// Samples are the throughput samples behind Metrics.TPSSamples.
	Samples []benchmark.Sample `json:"-" yaml:"-"`
}

type Option func(*Runner)

// WithCollector feeds every batch into c.
func WithCollector(c *metrics.Collector) Option {
	return func(r *Runner) {
		r.collector = c
	}
}

// WithObserver registers an additional per-batch observer.
func WithObserver(fn dispatch.Observer) Option {
	return func(r *Runner) {
		r.observers = append(r.observers, fn)
	}
}

// IOSampler snapshots the block I/O of the store's container.
type IOSampler func(ctx context.Context) (*container.IOStats, error)

// WithIOSampler samples container I/O before and after the writes.
func WithIOSampler(sample IOSampler) Option {
	return func(r *Runner) {
		r.sampleIO = sample
	}
}

// WithClock overrides the wall clock used for chunk and batch timing.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// Runner owns store for the duration of Run and closes it on every exit path.
type Runner struct {
	cfg       config.Config
	store     benchmark.Store
	collector *metrics.Collector
	observers []dispatch.Observer
	sampleIO  IOSampler
	now       func() time.Time
}

func New(cfg config.Config, store benchmark.Store, opts ...Option) *Runner {
	r := &Runner{
		cfg:   cfg,
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the whole lifecycle. Configuration problems are reported before
// the store is used. Batch failures are part of the report, not errors.
func (r *Runner) Run(ctx context.Context) (report *Report, err error) {
	provisioned := false
	defer func() {
		if p := recover(); p != nil {
			report = nil
			err = fmt.Errorf("run panicked: %v", p)
		}
		if terr := r.teardown(context.WithoutCancel(ctx), provisioned); terr != nil {
			err = multierror.Append(err, terr).ErrorOrNil()
		}
		if report != nil {
			report.FinishedAt = r.now()
		}
	}()

	if err := config.Validate(r.cfg); err != nil {
		return nil, err
	}

	cfg := r.cfg
	report = &Report{Settings: settingsOf(cfg), StartedAt: r.now()}

	if cfg.CheckDatabase {
		if err := r.checkDatabase(ctx); err != nil {
			return nil, err
		}
	}

	if cfg.Provision {
		created, err := r.provision(ctx)
		if err != nil {
			return nil, err
		}
		provisioned = created
		report.Provisioned = created
	}

	if cfg.PreClean {
		deleted, failed, err := PreClean(ctx, r.store, cfg.Collection, cfg.Concurrency)
		if err != nil {
			log.WithError(err).Warn("pre-clean skipped")
		}
		report.PreCleaned, report.PreCleanFailures = deleted, failed
	}

	if cfg.Verify {
		initial, err := r.store.CountRecords(ctx, cfg.Collection)
		if err != nil {
			log.WithError(err).Warn("initial count failed, verification disabled")
		} else {
			report.Verified = true
			report.InitialCount = initial
		}
	}

	gen, err := generator.New(cfg.GeneratorOptions())
	if err != nil {
		return nil, fmt.Errorf("create generator: %w", err)
	}
	records := gen.Generate(cfg.Records)

	p, err := plan.New(records, cfg.PlanOptions())
	if err != nil {
		return nil, err
	}

	fmt.Printf("Inserting %d records (concurrency=%d, batch=%d, buffer=%d)...\n",
		cfg.Records, cfg.Concurrency, cfg.BatchSize, cfg.BufferSize)

	ioBefore := r.snapshotIO(ctx)
	outcomes, chunkSamples, total := r.dispatchChunks(ctx, p)
	report.Cancelled = ctx.Err() != nil
	if ioAfter := r.snapshotIO(ctx); ioBefore != nil && ioAfter != nil {
		m := container.CalculateIOMetrics(ioBefore, ioAfter)
		report.ContainerIO = &m
	}

	samples := chunkSamples
	if cfg.Granularity() == config.GranularityBatch {
		samples = benchmark.BatchSamples(outcomes)
	}
	report.Samples = samples
	report.Metrics = benchmark.Aggregate(outcomes, samples, total)

	if report.Cancelled {
		log.Warn("run cancelled, skipping verification")
		report.Verified = false
	}
	if report.Verified {
		r.verify(ctx, report)
	}

	log.WithFields(log.Fields{
		"records":     report.Metrics.TotalRecords,
		"failed":      report.Metrics.FailedRecords,
		"elapsed":     report.Metrics.TotalElapsed.Round(time.Millisecond),
		"overall_tps": fmt.Sprintf("%.2f", report.Metrics.OverallTPS),
	}).Info("run complete")

	if report.Cancelled {
		return report, fmt.Errorf("run cancelled: %w", ctx.Err())
	}
	return report, nil
}

func (r *Runner) checkDatabase(ctx context.Context) error {
	checker, ok := r.store.(benchmark.DatabaseChecker)
	if !ok {
		log.WithField("backend", r.cfg.Backend).Warn("store cannot check database existence, skipping")
		return nil
	}
	exists, err := checker.DatabaseExists(ctx)
	if err != nil {
		return &benchmark.ProvisioningError{Op: "check database", Err: err}
	}
	if !exists {
		return &benchmark.ProvisioningError{Op: "check database", Err: fmt.Errorf("database %s does not exist", r.cfg.Database)}
	}
	return nil
}

// provision creates the collection unless it already answers a count. created
// reports whether this run made it.
func (r *Runner) provision(ctx context.Context) (created bool, err error) {
	if _, err := r.store.CountRecords(ctx, r.cfg.Collection); err == nil {
		log.WithField("collection", r.cfg.Collection).Info("collection already exists")
		return false, nil
	}

	spec := benchmark.CollectionSpec{
		Name:             r.cfg.Collection,
		PartitionKeyPath: r.cfg.PartitionKeyPath,
		Throughput:       r.cfg.Throughput,
	}
	fmt.Printf("Creating collection %s...\n", spec.Name)
	if err := r.store.CreateCollection(ctx, spec); err != nil {
		return false, &benchmark.ProvisioningError{Op: "create collection", Collection: spec.Name, Err: err}
	}
	return true, nil
}

// dispatchChunks writes the plan chunk by chunk. The returned duration is the
// sum of the per-chunk wall clocks.
func (r *Runner) dispatchChunks(ctx context.Context, p *plan.Plan) ([]benchmark.Outcome, []benchmark.Sample, time.Duration) {
	submit := func(ctx context.Context, b benchmark.Batch) (benchmark.Result, error) {
		return r.store.SubmitBatch(ctx, r.cfg.Collection, b.PartitionKey, b.Records)
	}

	opts := []dispatch.Option{dispatch.WithClock(r.now)}
	if r.collector != nil {
		submit = r.collector.Track(submit)
		opts = append(opts, dispatch.WithObserver(r.collector.Observe))
	}
	for _, fn := range r.observers {
		opts = append(opts, dispatch.WithObserver(fn))
	}

	outcomes := make([]benchmark.Outcome, 0, len(p.Batches()))
	samples := make([]benchmark.Sample, 0, len(p.Chunks))
	var total time.Duration

	for _, chunk := range p.Chunks {
		if ctx.Err() != nil {
			// no wall clock for chunks that never started
			outcomes = append(outcomes, dispatch.Dispatch(ctx, chunk.Batches, r.cfg.Concurrency, submit, opts...)...)
			continue
		}

		start := r.now()
		out := dispatch.Dispatch(ctx, chunk.Batches, r.cfg.Concurrency, submit, opts...)
		elapsed := r.now().Sub(start)

		total += elapsed
		outcomes = append(outcomes, out...)
		sample := benchmark.Sample{Records: chunk.Records(), Elapsed: elapsed}
		samples = append(samples, sample)

		log.WithFields(log.Fields{
			"chunk":   chunk.Index,
			"batches": len(chunk.Batches),
			"records": sample.Records,
			"elapsed": elapsed.Round(time.Millisecond),
			"tps":     fmt.Sprintf("%.2f", sample.TPS()),
		}).Info("chunk complete")
	}
	return outcomes, samples, total
}

func (r *Runner) snapshotIO(ctx context.Context) *container.IOStats {
	if r.sampleIO == nil {
		return nil
	}
	stats, err := r.sampleIO(context.WithoutCancel(ctx))
	if err != nil {
		log.WithError(err).Warn("failed to capture container I/O stats")
		return nil
	}
	return stats
}

func (r *Runner) verify(ctx context.Context, report *Report) {
	final, err := r.store.CountRecords(ctx, r.cfg.Collection)
	if err != nil {
		log.WithError(err).Warn("final count failed")
		report.Verified = false
		return
	}
	report.FinalCount = final

	expected := report.InitialCount + int64(r.cfg.Records)
	if final != expected {
		d := benchmark.Discrepancy{Expected: expected, Actual: final}
		report.Discrepancy = &d
		log.WithFields(log.Fields{
			"expected": d.Expected,
			"actual":   d.Actual,
		}).Warn("record count discrepancy: " + d.String())
	}
}

// teardown drops a collection this run created, when asked to, and always
// closes the store. Only the close error is returned.
func (r *Runner) teardown(ctx context.Context, provisioned bool) error {
	var result *multierror.Error

	if provisioned && r.cfg.Teardown {
		fmt.Printf("Deleting collection %s...\n", r.cfg.Collection)
		if err := r.store.DeleteCollection(ctx, r.cfg.Collection); err != nil {
			perr := &benchmark.ProvisioningError{Op: "delete collection", Collection: r.cfg.Collection, Err: err}
			log.WithError(perr).Warn("teardown failed")
		}
	}

	if err := r.store.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close store: %w", err))
	}
	return result.ErrorOrNil()
}

func settingsOf(cfg config.Config) Settings {
	return Settings{
		Backend:          cfg.Backend,
		Collection:       cfg.Collection,
		PartitionKeyPath: cfg.PartitionKeyPath,
		PartitionMode:    cfg.PartitionMode,
		IDScheme:         cfg.IDScheme,
		Records:          cfg.Records,
		BatchSize:        cfg.BatchSize,
		BufferSize:       cfg.BufferSize,
		Concurrency:      cfg.Concurrency,
		Throughput:       cfg.Throughput,
		Granularity:      cfg.Granularity(),
	}
}
