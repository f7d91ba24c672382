// Package dispatch submits batches concurrently behind a counting admission gate.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/moguls753/docbench/internal/benchmark"
)

// SubmitFunc writes one batch to the store.
type SubmitFunc func(ctx context.Context, batch benchmark.Batch) (benchmark.Result, error)

// Observer is told about every finished batch. It is called from many goroutines.
type Observer func(benchmark.Outcome)

type Option func(*dispatcher)

// WithObserver registers fn to be called after each batch completes.
func WithObserver(fn Observer) Option {
	return func(d *dispatcher) {
		d.observers = append(d.observers, fn)
	}
}

// WithClock overrides the time source used to measure batch latency.
func WithClock(now func() time.Time) Option {
	return func(d *dispatcher) {
		d.now = now
	}
}

type dispatcher struct {
	observers []Observer
	now       func() time.Time
}

// Dispatch submits every batch with at most limit submissions in flight and
// returns one outcome per batch, in batch order. Failures are recorded, never
// retried, and never stop other batches. Once ctx is done no further batches
// are admitted; those are reported as cancelled, while admitted batches run to
// completion with a context that ignores the cancellation. No timeout is added
// on top of whatever the store client enforces.
func Dispatch(ctx context.Context, batches []benchmark.Batch, limit int, submit SubmitFunc, opts ...Option) []benchmark.Outcome {
	d := &dispatcher{now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	if limit <= 0 {
		limit = 1
	}

	outcomes := make([]benchmark.Outcome, len(batches))
	gate := semaphore.NewWeighted(int64(limit))
	submitCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for i, batch := range batches {
		if err := admit(ctx, gate); err != nil {
			for j := i; j < len(batches); j++ {
				outcomes[j] = cancelled(batches[j], err)
			}
			break
		}

		wg.Add(1)
		go func(slot int, batch benchmark.Batch) {
			defer wg.Done()
			defer gate.Release(1)
			outcomes[slot] = d.run(submitCtx, batch, submit)
			d.notify(outcomes[slot])
		}(i, batch)
	}
	wg.Wait()

	return outcomes
}

// admit takes one permit unless ctx is done. Acquire may succeed on a done
// context when a permit frees up at the same time, so ctx is checked on both sides.
func admit(ctx context.Context, gate *semaphore.Weighted) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := gate.Acquire(ctx, 1); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		gate.Release(1)
		return err
	}
	return nil
}

func (d *dispatcher) run(ctx context.Context, batch benchmark.Batch, submit SubmitFunc) (outcome benchmark.Outcome) {
	outcome = benchmark.Outcome{
		BatchIndex: batch.Index,
		Chunk:      batch.Chunk,
		Size:       batch.Size(),
	}

	start := d.now()
	defer func() {
		outcome.Elapsed = d.now().Sub(start)
		if r := recover(); r != nil {
			outcome.Success = false
			outcome.ErrorCode = benchmark.ErrorCodeException
			outcome.Message = fmt.Sprintf("panic: %v", r)
		}
	}()

	result, err := submit(ctx, batch)
	switch {
	case err != nil:
		outcome.ErrorCode = benchmark.ErrorCodeException
		outcome.Message = err.Error()
	case !result.Success:
		outcome.ErrorCode = result.StatusCode
		if outcome.ErrorCode == "" {
			outcome.ErrorCode = benchmark.ErrorCodeUnknown
		}
		outcome.Message = result.Message
	default:
		outcome.Success = true
	}
	return outcome
}

func (d *dispatcher) notify(o benchmark.Outcome) {
	for _, fn := range d.observers {
		fn(o)
	}
}

func cancelled(batch benchmark.Batch, err error) benchmark.Outcome {
	return benchmark.Outcome{
		BatchIndex: batch.Index,
		Chunk:      batch.Chunk,
		Size:       batch.Size(),
		ErrorCode:  benchmark.ErrorCodeCancelled,
		Message:    err.Error(),
	}
}
