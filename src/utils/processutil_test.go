package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDuplicates(t *testing.T) {
	assert.Empty(t, Duplicates([]string{"a", "b"}))
	assert.Equal(t, []string{"a"}, Duplicates([]string{"a", "b", "a", "a"}))
}

func TestQuantileAndMedian(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	assert.InDelta(t, 1.75, Quantile(sorted, 0.25), 1e-9)
	assert.InDelta(t, 3.25, Quantile(sorted, 0.75), 1e-9)
	assert.Equal(t, 1.0, Quantile(sorted, 0))
	assert.Equal(t, 4.0, Quantile(sorted, 1))
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))

	assert.Equal(t, 2.5, Median([]float64{4, 1, 3, 2}))
	assert.Equal(t, 3.0, Median([]float64{5, 1, 3}))
}

func TestNonMissing(t *testing.T) {
	assert.Equal(t, []float64{1, 3}, NonMissing([]float64{1, math.NaN(), 3}))
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "", FormatFloat(math.NaN()))
	assert.Equal(t, "2", FormatFloat(2.0))
	assert.Equal(t, "8.1", FormatFloat(8.1))
	assert.Equal(t, "11000000", FormatFloat(1.1e7))
}

func TestIsIntegral(t *testing.T) {
	assert.True(t, IsIntegral(3))
	assert.False(t, IsIntegral(2.5))
	assert.False(t, IsIntegral(math.NaN()))
	assert.False(t, IsIntegral(math.Inf(1)))
}
