package utils

import (
	"math"
	"sort"
	"strconv"

	"github.com/go-gota/gota/dataframe"
)

func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// 辅助函数：判断DataFrame是否有某列
func HasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// Duplicates 返回切片中重复出现的元素(按首次重复的顺序)
func Duplicates(items []string) []string {
	seen := make(map[string]bool, len(items))
	var dup []string
	for _, it := range items {
		if seen[it] && !Contains(dup, it) {
			dup = append(dup, it)
		}
		seen[it] = true
	}
	return dup
}

// NonMissing 去掉NaN，返回新切片
func NonMissing(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// SortedCopy 返回排序后的副本，不修改原切片
func SortedCopy(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted
}

// Quantile 线性插值分位数，sorted 必须已排序且不含NaN
// h = (n-1)*p
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 || p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	if lo+1 >= n {
		return sorted[n-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}

// Median 中位数，偶数个时取中间两个的平均
func Median(values []float64) float64 {
	return Quantile(SortedCopy(values), 0.5)
}

// FormatFloat 最短可还原的十进制表示，NaN 返回空串
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// IsIntegral 判断浮点数是否为整数值
func IsIntegral(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v == math.Trunc(v)
}
