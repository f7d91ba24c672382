// Package export writes reports and throughput samples to files for plotting.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/moguls753/docbench/internal/benchmark"
)

// SamplesToCSV writes one row per throughput sample to outputPath.
func SamplesToCSV(samples []benchmark.Sample, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	if err := WriteSamples(file, samples); err != nil {
		return err
	}
	return file.Close()
}

func WriteSamples(w io.Writer, samples []benchmark.Sample) error {
	writer := csv.NewWriter(w)

	header := []string{"Sample", "Records", "Elapsed_ms", "TPS"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i, s := range samples {
		row := []string{
			fmt.Sprintf("%d", i),
			fmt.Sprintf("%d", s.Records),
			fmt.Sprintf("%d", s.Elapsed.Milliseconds()),
			fmt.Sprintf("%.2f", s.TPS()),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
