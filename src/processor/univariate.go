package processor

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"MovieEDA/src/errs"
	"MovieEDA/src/table"
	"MovieEDA/src/utils"
)

// DefaultBins 直方图默认分箱数
const DefaultBins = 30

// Bin 直方图的一个区间 [Lower, Upper)，最后一个区间包含 Upper
type Bin struct {
	Lower float64
	Upper float64
	Count int
}

// Distribution 数值列的分布
type Distribution struct {
	Summary NumericSummary
	Bins    []Bin
	Log     bool
	Skipped int // 对数刻度下被忽略的非正值个数
}

// ValueCount 取值及其出现次数
type ValueCount struct {
	Value string
	Count int
}

// NumericalUnivariate 数值列的描述统计与直方图
// log 为 true 时按 log10 等宽分箱，区间边界仍以原始值表示。
func NumericalUnivariate(t *table.Table, feature string, bins int, log bool) (*Distribution, error) {
	if bins < 1 {
		return nil, fmt.Errorf("bins must be positive, got %d: %w", bins, errs.ErrValidation)
	}
	values, err := t.Floats(feature)
	if err != nil {
		return nil, err
	}

	d := &Distribution{Summary: describe(feature, values), Log: log}
	present := utils.NonMissing(values)
	if log {
		positive := present[:0:0]
		for _, v := range present {
			if v > 0 {
				positive = append(positive, math.Log10(v))
			}
		}
		d.Skipped = len(present) - len(positive)
		present = positive
	}
	if len(present) == 0 {
		return d, nil
	}

	d.Bins = histogram(utils.SortedCopy(present), bins)
	if log {
		for i := range d.Bins {
			d.Bins[i].Lower = math.Pow(10, d.Bins[i].Lower)
			d.Bins[i].Upper = math.Pow(10, d.Bins[i].Upper)
		}
	}
	return d, nil
}

// histogram 等宽分箱，sorted 必须非空且已排序
func histogram(sorted []float64, bins int) []Bin {
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		return []Bin{{Lower: lo, Upper: hi, Count: len(sorted)}}
	}

	dividers := make([]float64, bins+1)
	floats.Span(dividers, lo, hi)
	// stat.Histogram 的区间右开，最后一个边界略大于最大值
	upper := dividers[bins]
	dividers[bins] = math.Nextafter(hi, math.Inf(1))
	counts := stat.Histogram(nil, dividers, sorted, nil)

	out := make([]Bin, bins)
	for i := range out {
		out[i] = Bin{Lower: dividers[i], Upper: dividers[i+1], Count: int(counts[i])}
	}
	out[bins-1].Upper = upper
	return out
}

// CategoricalUnivariate 文本列的取值计数，按次数降序
func CategoricalUnivariate(t *table.Table, feature string) ([]ValueCount, error) {
	col, err := t.Column(feature)
	if err != nil {
		return nil, err
	}
	return ValueCounts(col), nil
}

// ValueCounts 统计非缺失值的出现次数，按次数降序，次数相同按首次出现顺序
func ValueCounts(s series.Series) []ValueCount {
	index := make(map[string]int)
	var counts []ValueCount
	for i := 0; i < s.Len(); i++ {
		if s.Elem(i).IsNA() {
			continue
		}
		v := table.Cell(s, i)
		if pos, ok := index[v]; ok {
			counts[pos].Count++
			continue
		}
		index[v] = len(counts)
		counts = append(counts, ValueCount{Value: v, Count: 1})
	}
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	return counts
}
