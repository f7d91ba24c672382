package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moguls753/docbench/internal/benchmark"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := RootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitFailure, ExitCode(errors.New("boom")))
	assert.Equal(t, ExitInvalidConfig, ExitCode(benchmark.NewConfigurationError("records must be positive")))
}

func TestPlanCommand(t *testing.T) {
	out, err := execute(t, "plan",
		"--backend", "memory",
		"--database", "bench",
		"--records", "250",
		"--batch-size", "100",
		"--buffer-size", "200",
		"--seed", "1",
	)

	require.NoError(t, err)
	assert.Contains(t, out, "250 records in 2 chunks, 3 batches")
}

func TestPlanCommand_InvalidConfig(t *testing.T) {
	_, err := execute(t, "plan", "--backend", "memory", "--database", "bench", "--batch-size", "0")

	require.Error(t, err)
	assert.Equal(t, ExitInvalidConfig, ExitCode(err))
}

func TestRunCommand_MemoryBackend(t *testing.T) {
	dir := t.TempDir()
	reportPath := filepath.Join(dir, "report.json")
	samplesPath := filepath.Join(dir, "samples.csv")

	out, err := execute(t, "run",
		"--backend", "memory",
		"--database", "bench",
		"--records", "200",
		"--batch-size", "50",
		"--concurrency", "2",
		"--seed", "7",
		"--report-format", "json",
		"--report-file", reportPath,
		"--samples-csv", samplesPath,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Report written to "+reportPath)

	raw, err := os.ReadFile(reportPath)
	require.NoError(t, err)

	var report struct {
		Provisioned bool `json:"provisioned"`
		Verified    bool `json:"verified"`
		FinalCount  int  `json:"finalCount"`
		Metrics     struct {
			TotalRecords     int `json:"totalRecords"`
			SucceededRecords int `json:"succeededRecords"`
			Batches          int `json:"batches"`
		} `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(raw, &report))
	assert.True(t, report.Provisioned)
	assert.True(t, report.Verified)
	assert.Equal(t, 200, report.FinalCount)
	assert.Equal(t, 200, report.Metrics.SucceededRecords)
	assert.Equal(t, 4, report.Metrics.Batches)

	csv, err := os.ReadFile(samplesPath)
	require.NoError(t, err)
	// header plus one line per batch
	assert.Len(t, strings.Split(strings.TrimSpace(string(csv)), "\n"), 5)
}

func TestCountCommand_MissingCollection(t *testing.T) {
	_, err := execute(t, "count", "--backend", "memory", "--database", "bench")

	require.Error(t, err)
	assert.Equal(t, ExitFailure, ExitCode(err))
}
