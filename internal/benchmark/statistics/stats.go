package statistics

import (
	"math"
	"sort"
)

// Summary holds the descriptive statistics of a series of throughput samples.
type Summary struct {
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	Median float64
	StdDev float64
	CV     float64 // Coefficient of Variation (%)
}

// Mean calculates the arithmetic mean
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Median calculates the median without reordering values
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := sortedCopy(values)
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2.0
	}
	return sorted[n/2]
}

// StdDev calculates the sample standard deviation
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	mean := Mean(values)
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	return math.Sqrt(variance / float64(len(values)-1))
}

// Summarize computes all measures at once. An empty series yields a zero Summary.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	sorted := sortedCopy(values)
	mean := Mean(values)
	stddev := StdDev(values)

	cv := 0.0
	if mean != 0 {
		cv = stddev / math.Abs(mean) * 100
	}

	return Summary{
		Count:  len(values),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   mean,
		Median: Median(values),
		StdDev: stddev,
		CV:     cv,
	}
}

func sortedCopy(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted
}
