package benchmark

import (
	"time"

	"github.com/moguls753/docbench/internal/benchmark/statistics"
)

// RunMetrics summarises one run.
//
// OverallTPS is the ratio of totals and is the authoritative figure. AverageTPS is
// the mean of the per-sample TPS values; the two differ whenever samples are uneven.
type RunMetrics struct {
	TotalRecords     int               `json:"totalRecords" yaml:"totalRecords"`
	SucceededRecords int               `json:"succeededRecords" yaml:"succeededRecords"`
	FailedRecords    int               `json:"failedRecords" yaml:"failedRecords"`
	Batches          int               `json:"batches" yaml:"batches"`
	FailedBatches    int               `json:"failedBatches" yaml:"failedBatches"`
	TotalElapsed     time.Duration     `json:"totalElapsed" yaml:"totalElapsed"`
	TPSSamples       []float64         `json:"tpsSamples" yaml:"tpsSamples"`
	OverallTPS       float64           `json:"overallTps" yaml:"overallTps"`
	AverageTPS       float64           `json:"averageTps" yaml:"averageTps"`
	MinTPS           float64           `json:"minTps" yaml:"minTps"`
	MaxTPS           float64           `json:"maxTps" yaml:"maxTps"`
	MedianTPS        float64           `json:"medianTps" yaml:"medianTps"`
	StdDevTPS        float64           `json:"stddevTps" yaml:"stddevTps"`
	LatencyP50       time.Duration     `json:"latencyP50" yaml:"latencyP50"`
	LatencyP95       time.Duration     `json:"latencyP95" yaml:"latencyP95"`
	LatencyP99       time.Duration     `json:"latencyP99" yaml:"latencyP99"`
	ErrorCounts      map[string]int    `json:"errorCounts" yaml:"errorCounts"`
	ErrorMessages    map[string]string `json:"errorMessages,omitempty" yaml:"errorMessages,omitempty"`
}

// TotalElapsedMillis returns the wall-clock duration of the run in milliseconds.
func (m RunMetrics) TotalElapsedMillis() int64 {
	return m.TotalElapsed.Milliseconds()
}

// Aggregate folds batch outcomes and throughput samples into RunMetrics.
// totalElapsed must be the wall clock measured around dispatch; per-batch
// durations overlap and are only used for latency percentiles. Batches that
// were never admitted count towards TotalRecords but not towards OverallTPS.
func Aggregate(outcomes []Outcome, samples []Sample, totalElapsed time.Duration) RunMetrics {
	m := RunMetrics{
		Batches:      len(outcomes),
		TotalElapsed: totalElapsed,
		TPSSamples:   make([]float64, 0, len(samples)),
		ErrorCounts:  make(map[string]int),
	}

	attempted := 0
	latencies := make([]time.Duration, 0, len(outcomes))
	for _, o := range outcomes {
		m.TotalRecords += o.Size
		if o.Success {
			m.SucceededRecords += o.Size
		} else {
			m.FailedRecords += o.Size
			m.FailedBatches++
			code := o.ErrorCode
			if code == "" {
				code = ErrorCodeUnknown
			}
			m.ErrorCounts[code]++
			if _, seen := m.ErrorMessages[code]; !seen && o.Message != "" {
				if m.ErrorMessages == nil {
					m.ErrorMessages = make(map[string]string)
				}
				m.ErrorMessages[code] = o.Message
			}
		}
		// never-started batches carry no latency
		if o.ErrorCode != ErrorCodeCancelled {
			attempted += o.Size
			latencies = append(latencies, o.Elapsed)
		}
	}

	for _, s := range samples {
		m.TPSSamples = append(m.TPSSamples, s.TPS())
	}

	if totalElapsed > 0 {
		m.OverallTPS = float64(attempted) / totalElapsed.Seconds()
	}

	summary := statistics.Summarize(m.TPSSamples)
	m.AverageTPS = summary.Mean
	m.MinTPS = summary.Min
	m.MaxTPS = summary.Max
	m.MedianTPS = summary.Median
	m.StdDevTPS = summary.StdDev

	m.LatencyP50, m.LatencyP95, m.LatencyP99 = CalculatePercentiles(latencies)

	return m
}

// BatchSamples turns every outcome into its own throughput sample.
func BatchSamples(outcomes []Outcome) []Sample {
	samples := make([]Sample, 0, len(outcomes))
	for _, o := range outcomes {
		if o.ErrorCode == ErrorCodeCancelled {
			continue
		}
		samples = append(samples, Sample{Records: o.Size, Elapsed: o.Elapsed})
	}
	return samples
}
