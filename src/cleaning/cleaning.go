// Package cleaning 电影数据集的行过滤与列删除
package cleaning

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"MovieEDA/src/errs"
	"MovieEDA/src/table"
)

// DroppedColumns 清洗时删除的非必要元数据列
var DroppedColumns = []string{
	"backdrop_path",
	"keywords",
	"tagline",
	"imdb_id",
	"original_title",
	"poster_path",
	"spoken_languages",
	"homepage",
	"status",
}

var (
	voteColumns  = []string{"vote_average", "vote_count"}
	moneyColumns = []string{"budget", "revenue"}
	validColumns = append(append([]string{}, voteColumns...), moneyColumns...)
)

// DropColumns 删除 DroppedColumns 中的列，任一列不存在时返回 lookup 错误
func DropColumns(t *table.Table) (*table.Table, error) {
	out, err := t.Drop(DroppedColumns...)
	if err != nil {
		return nil, fmt.Errorf("删除列失败: %w", err)
	}
	return out, nil
}

// FilterValidRows 保留 vote_average、vote_count、budget、revenue 都大于0的行
// 缺失值不满足条件，结果行号从0连续
func FilterValidRows(t *table.Table) (*table.Table, error) {
	return positive(t, validColumns)
}

// FilterVotes 保留 vote_average 和 vote_count 都大于0的行
func FilterVotes(t *table.Table) (*table.Table, error) {
	return positive(t, voteColumns)
}

// FilterBudgetRevenue 保留 budget 和 revenue 都大于0的行
func FilterBudgetRevenue(t *table.Table) (*table.Table, error) {
	return positive(t, moneyColumns)
}

// CleanDataset 依次执行 FilterVotes、DropColumns、FilterBudgetRevenue
func CleanDataset(t *table.Table) (*table.Table, error) {
	steps := []func(*table.Table) (*table.Table, error){
		FilterVotes,
		DropColumns,
		FilterBudgetRevenue,
	}
	out := t
	for _, step := range steps {
		var err error
		if out, err = step(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func positive(t *table.Table, columns []string) (*table.Table, error) {
	filters := make([]dataframe.F, 0, len(columns))
	for _, name := range columns {
		kind, err := t.Kind(name)
		if err != nil {
			return nil, err
		}
		if kind != table.Numeric {
			return nil, fmt.Errorf("column %q is %s, not numeric: %w", name, kind, errs.ErrValidation)
		}
		filters = append(filters, dataframe.F{Colname: name, Comparator: series.Greater, Comparando: 0})
	}
	return t.Filter(dataframe.And, filters...)
}
