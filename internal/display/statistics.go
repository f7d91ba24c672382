package display

import (
	"fmt"
	"io"

	"github.com/moguls753/docbench/internal/benchmark/statistics"
)

func throughputTable(w io.Writer, samples []float64) {
	stats := statistics.Summarize(samples)

	fmt.Fprintln(w, "┌──────────┬──────────┬──────────┬──────────┬──────────┬───────┐")
	fmt.Fprintln(w, "│ Median   │ Mean     │ StdDev   │ Min      │ Max      │ CV %  │")
	fmt.Fprintln(w, "├──────────┼──────────┼──────────┼──────────┼──────────┼───────┤")
	fmt.Fprintf(w, "│ %8.0f │ %8.0f │ %8.0f │ %8.0f │ %8.0f │ %5.1f │\n",
		stats.Median,
		stats.Mean,
		stats.StdDev,
		stats.Min,
		stats.Max,
		stats.CV,
	)
	fmt.Fprintln(w, "└──────────┴──────────┴──────────┴──────────┴──────────┴───────┘")
}
