package processor

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"MovieEDA/src/table"
	"MovieEDA/src/utils"
)

// ColumnInfo 单列的类型与缺失情况
type ColumnInfo struct {
	Name    string
	Kind    table.Kind
	Type    string // gota 类型: int / float / string / bool
	NonNull int
	Missing int
}

// InspectTypes 返回每列的类型、非空与缺失个数，顺序与表相同
func InspectTypes(t *table.Table) []ColumnInfo {
	infos := make([]ColumnInfo, 0, t.Ncol())
	for _, name := range t.Names() {
		col, _ := t.Column(name)
		n, _ := t.NonMissingCount(name)
		infos = append(infos, ColumnInfo{
			Name:    name,
			Kind:    table.KindOf(col.Type()),
			Type:    string(col.Type()),
			NonNull: n,
			Missing: t.Nrow() - n,
		})
	}
	return infos
}

// NumericSummary 数值列的描述统计，空列的统计量为 NaN
type NumericSummary struct {
	Column string
	Count  int
	Mean   float64
	Std    float64 // 样本标准差
	Min    float64
	Q25    float64
	Median float64
	Q75    float64
	Max    float64
}

// CategoricalSummary 文本列的描述统计
type CategoricalSummary struct {
	Column string
	Count  int
	Unique int
	Top    string
	Freq   int
}

// Summary 全表的描述统计
type Summary struct {
	Numeric     []NumericSummary
	Categorical []CategoricalSummary
}

// SummaryStatistics 分别统计数值列与文本列
func SummaryStatistics(t *table.Table) Summary {
	var s Summary
	for _, name := range t.Names() {
		col, _ := t.Column(name)
		if table.KindOf(col.Type()) == table.Numeric {
			s.Numeric = append(s.Numeric, describe(name, col.Float()))
			continue
		}

		counts := ValueCounts(col)
		cs := CategoricalSummary{Column: name, Unique: len(counts)}
		for _, vc := range counts {
			cs.Count += vc.Count
		}
		if len(counts) > 0 {
			cs.Top, cs.Freq = counts[0].Value, counts[0].Count
		}
		s.Categorical = append(s.Categorical, cs)
	}
	return s
}

func describe(name string, values []float64) NumericSummary {
	present := utils.NonMissing(values)
	ns := NumericSummary{Column: name, Count: len(present)}
	if len(present) == 0 {
		nan := math.NaN()
		ns.Mean, ns.Std, ns.Min, ns.Q25, ns.Median, ns.Q75, ns.Max = nan, nan, nan, nan, nan, nan, nan
		return ns
	}

	sorted := utils.SortedCopy(present)
	ns.Mean = stat.Mean(sorted, nil)
	ns.Std = math.NaN()
	if len(sorted) > 1 {
		ns.Std = stat.StdDev(sorted, nil)
	}
	ns.Min = sorted[0]
	ns.Q25 = utils.Quantile(sorted, 0.25)
	ns.Median = utils.Quantile(sorted, 0.5)
	ns.Q75 = utils.Quantile(sorted, 0.75)
	ns.Max = sorted[len(sorted)-1]
	return ns
}
