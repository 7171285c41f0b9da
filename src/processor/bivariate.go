package processor

import (
	"fmt"
	"math"

	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/stat"

	"MovieEDA/src/errs"
	"MovieEDA/src/table"
	"MovieEDA/src/utils"
)

// Correlation 两个数值列的配对统计
type Correlation struct {
	X, Y    string
	N       int     // 两列都不缺失的行数
	Pearson float64 // 少于两对或方差为0时为 NaN
}

// NumericalVsNumerical 计算两个数值列的 Pearson 相关系数
func NumericalVsNumerical(t *table.Table, feature1, feature2 string) (*Correlation, error) {
	x, err := t.Floats(feature1)
	if err != nil {
		return nil, err
	}
	y, err := t.Floats(feature2)
	if err != nil {
		return nil, err
	}

	var xs, ys []float64
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}

	c := &Correlation{X: feature1, Y: feature2, N: len(xs), Pearson: math.NaN()}
	if len(xs) > 1 {
		c.Pearson = stat.Correlation(xs, ys, nil)
	}
	return c, nil
}

// GroupSummary 某一类别下数值列的五数概括(箱线图数据)
type GroupSummary struct {
	Group  string
	Count  int
	Min    float64
	Q1     float64
	Median float64
	Q3     float64
	Max    float64
}

// NumericalVsCategorical 按类别列分组，统计数值列的五数概括
// 分组按首次出现顺序，类别或数值缺失的行不参与统计。
func NumericalVsCategorical(t *table.Table, categorical, numerical string) ([]GroupSummary, error) {
	cats, err := t.Column(categorical)
	if err != nil {
		return nil, err
	}
	if cats.Type() == series.Float {
		return nil, fmt.Errorf("column %q is continuous, not categorical: %w", categorical, errs.ErrValidation)
	}
	values, err := t.Floats(numerical)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	var groups []string
	var grouped [][]float64
	for i := range values {
		if cats.Elem(i).IsNA() || math.IsNaN(values[i]) {
			continue
		}
		g := table.Cell(cats, i)
		pos, ok := index[g]
		if !ok {
			pos = len(groups)
			index[g] = pos
			groups = append(groups, g)
			grouped = append(grouped, nil)
		}
		grouped[pos] = append(grouped[pos], values[i])
	}

	out := make([]GroupSummary, len(groups))
	for i, g := range groups {
		sorted := utils.SortedCopy(grouped[i])
		out[i] = GroupSummary{
			Group:  g,
			Count:  len(sorted),
			Min:    sorted[0],
			Q1:     utils.Quantile(sorted, 0.25),
			Median: utils.Quantile(sorted, 0.5),
			Q3:     utils.Quantile(sorted, 0.75),
			Max:    sorted[len(sorted)-1],
		}
	}
	return out, nil
}
