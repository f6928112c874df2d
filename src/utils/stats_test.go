package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeanAndStdDev(t *testing.T) {
	xs := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	assert.InDelta(t, 5.0, Mean(xs), 1e-12)
	// 样本标准差 sqrt(32/7)
	assert.InDelta(t, math.Sqrt(32.0/7.0), StdDev(xs), 1e-12)
}

func TestStdDevUndefinedForSingleValue(t *testing.T) {
	assert.True(t, math.IsNaN(StdDev([]float64{4.5})))
	assert.True(t, math.IsNaN(StdDev(nil)))
	assert.True(t, math.IsNaN(Mean(nil)))
}

func TestMedian(t *testing.T) {
	xs := []float64{3, 1, 2}
	assert.Equal(t, 2.0, Median(xs))
	assert.Equal(t, []float64{3, 1, 2}, xs, "入参不应被排序")

	assert.Equal(t, 2.5, Median([]float64{4, 1, 3, 2}))
	assert.True(t, math.IsNaN(Median(nil)))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 3.14, Round2(3.14159))
	assert.Equal(t, 26.5, Round2(26.499999))
	assert.Equal(t, -1.24, Round2(-1.2449))
	assert.True(t, math.IsNaN(Round2(math.NaN())))
}

func TestSetAndContains(t *testing.T) {
	s := Set([]string{"Urban", "Jam"})
	_, ok := s["Urban"]
	assert.True(t, ok)
	_, ok = s["urban"]
	assert.False(t, ok)

	assert.True(t, Contains([]int{1, 2, 3}, 2))
	assert.False(t, Contains([]int{}, 2))
}
