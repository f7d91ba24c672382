package runner

import (
	"context"
	"fmt"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/moguls753/docbench/internal/benchmark"
)

// PreClean deletes every record of collection with at most limit deletes in
// flight. Individual failures are counted and logged, never returned; err is
// set only when the records cannot be listed.
func PreClean(ctx context.Context, store benchmark.Store, collection string, limit int) (deleted, failed int, err error) {
	lister, ok := store.(benchmark.RecordLister)
	if !ok {
		return 0, 0, fmt.Errorf("store cannot list records")
	}
	refs, err := lister.ListRecords(ctx, collection)
	if err != nil {
		return 0, 0, fmt.Errorf("list records: %w", err)
	}

	fmt.Printf("Deleting %d existing records from %s...\n", len(refs), collection)

	var done, failed64 atomic.Int64
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, ref := range refs {
		ref := ref
		g.Go(func() error {
			if err := store.DeleteRecord(ctx, collection, ref.ID, ref.PartitionKey); err != nil {
				failed64.Add(1)
				log.WithFields(log.Fields{"id": ref.ID, "partition_key": ref.PartitionKey}).WithError(err).Warn("pre-clean delete failed")
				return nil
			}
			done.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	return int(done.Load()), int(failed64.Load()), nil
}
