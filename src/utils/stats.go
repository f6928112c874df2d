package utils

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Mean 样本均值，空切片返回 NaN
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return stat.Mean(xs, nil)
}

// StdDev 样本标准差(N-1)，少于两个样本时无定义，返回 NaN
func StdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	return stat.StdDev(xs, nil)
}

// Median 中位数，偶数个时取中间两个的平均值；不修改入参
func Median(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// Round2 保留两位小数
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return math.Round(v*100) / 100
}

// Contains 判断切片中是否包含 item
func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// Set 把切片转换为集合，用于精确的成员判断
func Set[T comparable](items []T) map[T]struct{} {
	s := make(map[T]struct{}, len(items))
	for _, v := range items {
		s[v] = struct{}{}
	}
	return s
}
