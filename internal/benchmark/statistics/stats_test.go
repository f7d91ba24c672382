package statistics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize_Empty(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil))
	assert.Equal(t, Summary{}, Summarize([]float64{}))
}

func TestSummarize(t *testing.T) {
	values := []float64{400, 100, 300, 200}

	s := Summarize(values)

	assert.Equal(t, 4, s.Count)
	assert.Equal(t, 100.0, s.Min)
	assert.Equal(t, 400.0, s.Max)
	assert.Equal(t, 250.0, s.Mean)
	assert.Equal(t, 250.0, s.Median)
	assert.InDelta(t, 129.099, s.StdDev, 0.001)
	assert.InDelta(t, 51.64, s.CV, 0.01)
	// input order is left alone
	assert.Equal(t, []float64{400, 100, 300, 200}, values)
}

func TestMedian_Odd(t *testing.T) {
	assert.Equal(t, 3.0, Median([]float64{5, 1, 3}))
}

func TestStdDev_SingleValue(t *testing.T) {
	assert.Equal(t, 0.0, StdDev([]float64{42}))
}
