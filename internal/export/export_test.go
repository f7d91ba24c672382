package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	"github.com/moguls753/docbench/internal/benchmark"
	"github.com/moguls753/docbench/internal/runner"
)

func sampleReport() *runner.Report {
	return &runner.Report{
		Settings: runner.Settings{Backend: "memory", Collection: "demo", Records: 200},
		Metrics: benchmark.RunMetrics{
			TotalRecords: 200,
			OverallTPS:   400,
			ErrorCounts:  map[string]int{"409": 1},
		},
		Discrepancy: &benchmark.Discrepancy{Expected: 200, Actual: 100},
		Samples:     []benchmark.Sample{{Records: 100, Elapsed: 250 * time.Millisecond}},
	}
}

func TestSamplesToCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.csv")
	samples := []benchmark.Sample{
		{Records: 100, Elapsed: 500 * time.Millisecond},
		{Records: 50, Elapsed: 0},
	}

	require.NoError(t, SamplesToCSV(samples, path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"Sample", "Records", "Elapsed_ms", "TPS"},
		{"0", "100", "500", "200.00"},
		{"1", "50", "0", "0.00"},
	}, rows)
}

func TestWriteReport_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, sampleReport(), FormatJSON))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	metrics := decoded["metrics"].(map[string]any)
	assert.Equal(t, 400.0, metrics["overallTps"])
	assert.Equal(t, map[string]any{"expected": 200.0, "actual": 100.0}, decoded["discrepancy"])
	assert.NotContains(t, decoded, "Samples")
}

func TestWriteReport_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, sampleReport(), FormatYAML))

	var decoded struct {
		Settings runner.Settings `yaml:"settings"`
		Metrics  struct {
			OverallTPS  float64        `yaml:"overallTps"`
			ErrorCounts map[string]int `yaml:"errorCounts"`
		} `yaml:"metrics"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, "memory", decoded.Settings.Backend)
	assert.Equal(t, 400.0, decoded.Metrics.OverallTPS)
	assert.Equal(t, map[string]int{"409": 1}, decoded.Metrics.ErrorCounts)
}

func TestWriteReport_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, sampleReport(), FormatText))
	assert.Contains(t, buf.String(), "memory/demo")
}

func TestWriteReport_UnknownFormat(t *testing.T) {
	assert.Error(t, WriteReport(&bytes.Buffer{}, sampleReport(), "xml"))
}

func TestReportToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, ReportToFile(sampleReport(), FormatJSON, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"collection": "demo"`)
}
