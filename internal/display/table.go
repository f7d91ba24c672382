// Package display renders run reports as plain-text tables.
package display

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/moguls753/docbench/internal/benchmark/plan"
	"github.com/moguls753/docbench/internal/runner"
)

// Report writes the run summary, throughput statistics, latencies and the error tally.
func Report(w io.Writer, r *runner.Report) {
	m := r.Metrics
	s := r.Settings

	fmt.Fprintln(w, "\n"+strings.Repeat("=", 70))
	fmt.Fprintf(w, "Batch Write Benchmark - %s/%s\n", s.Backend, s.Collection)
	fmt.Fprintln(w, strings.Repeat("=", 70))

	fmt.Fprintf(w, "%-22s%d (batch=%d, buffer=%d, concurrency=%d)\n", "Records", s.Records, s.BatchSize, s.BufferSize, s.Concurrency)
	fmt.Fprintf(w, "%-22s%s (%s ids)\n", "Partition mode", s.PartitionMode, s.IDScheme)
	fmt.Fprintf(w, "%-22s%d\n", "Batches", m.Batches)
	fmt.Fprintf(w, "%-22s%d ok / %d failed\n", "Records written", m.SucceededRecords, m.FailedRecords)
	fmt.Fprintf(w, "%-22s%s\n", "Total time", m.TotalElapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "%-22s%.2f rec/s\n", "Overall TPS", m.OverallTPS)
	if r.Cancelled {
		fmt.Fprintf(w, "%-22s%s\n", "Status", "cancelled")
	}

	fmt.Fprintf(w, "\nThroughput per %s (records/sec, %d samples)\n", s.Granularity, len(m.TPSSamples))
	throughputTable(w, m.TPSSamples)

	fmt.Fprintln(w, "\nBatch Latency")
	fmt.Fprintln(w, "┌──────────┬──────────┬──────────┐")
	fmt.Fprintln(w, "│ p50      │ p95      │ p99      │")
	fmt.Fprintln(w, "├──────────┼──────────┼──────────┤")
	fmt.Fprintf(w, "│ %-8s │ %-8s │ %-8s │\n",
		m.LatencyP50.Round(time.Millisecond),
		m.LatencyP95.Round(time.Millisecond),
		m.LatencyP99.Round(time.Millisecond),
	)
	fmt.Fprintln(w, "└──────────┴──────────┴──────────┘")

	if len(m.ErrorCounts) > 0 {
		fmt.Fprintln(w, "\nErrors")
		errorTable(w, m.ErrorCounts, m.ErrorMessages)
	}

	if cio := r.ContainerIO; cio != nil {
		fmt.Fprintln(w, "\nContainer I/O")
		fmt.Fprintf(w, "%-22s%.1f read / %.1f write\n", "IOPS", cio.ReadIOPS, cio.WriteIOPS)
		fmt.Fprintf(w, "%-22s%.2f read / %.2f write\n", "MB/s", cio.ReadThroughputMB, cio.WriteThroughputMB)
	}

	if r.PreCleaned > 0 || r.PreCleanFailures > 0 {
		fmt.Fprintf(w, "\n%-22s%d deleted, %d failed\n", "Pre-clean", r.PreCleaned, r.PreCleanFailures)
	}
	if r.Verified {
		fmt.Fprintf(w, "\n%-22s%d -> %d\n", "Record count", r.InitialCount, r.FinalCount)
		if r.Discrepancy != nil {
			fmt.Fprintf(w, "%-22s%s\n", "Discrepancy", r.Discrepancy)
		}
	}
}

func errorTable(w io.Writer, counts map[string]int, messages map[string]string) {
	codes := make([]string, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	fmt.Fprintln(w, "┌─────────────┬─────────┬──────────────────────────────────────────────┐")
	fmt.Fprintln(w, "│ Code        │ Batches │ First message                                │")
	fmt.Fprintln(w, "├─────────────┼─────────┼──────────────────────────────────────────────┤")
	for _, code := range codes {
		fmt.Fprintf(w, "│ %-11s │ %7d │ %-44s │\n", code, counts[code], truncate(messages[code], 44))
	}
	fmt.Fprintln(w, "└─────────────┴─────────┴──────────────────────────────────────────────┘")
}

// Plan prints the chunks and batches a configuration produces.
func Plan(w io.Writer, p *plan.Plan) {
	fmt.Fprintf(w, "%d records in %d chunks, %d batches\n", p.Records(), len(p.Chunks), len(p.Batches()))
	fmt.Fprintln(w, strings.Repeat("-", 70))
	fmt.Fprintf(w, "%-8s%-10s%-10s%-12s%s\n", "Chunk", "Batches", "Records", "Smallest", "Partitions")
	for _, c := range p.Chunks {
		smallest := 0
		partitions := make(map[string]struct{})
		for i, b := range c.Batches {
			if i == 0 || b.Size() < smallest {
				smallest = b.Size()
			}
			partitions[b.PartitionKey] = struct{}{}
		}
		fmt.Fprintf(w, "%-8d%-10d%-10d%-12d%d\n", c.Index, len(c.Batches), c.Records(), smallest, len(partitions))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
