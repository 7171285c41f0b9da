// Package table 提供基于 gota DataFrame 的内存表
//
// Table 的所有变换都返回新表，不修改接收者。列分为数值列(Int/Float)
// 与文本列(String/Bool)，缺失值用 gota 的 NA 元素表示。
package table

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"MovieEDA/src/errs"
	"MovieEDA/src/utils"
)

// Kind 列的逻辑类型
type Kind int

const (
	Text Kind = iota
	Numeric
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Text:
		return "text"
	default:
		return "unknown"
	}
}

// KindOf 将 gota 的 series 类型映射为列类型
func KindOf(t series.Type) Kind {
	switch t {
	case series.Int, series.Float:
		return Numeric
	default:
		return Text
	}
}

// 读入时视为缺失值的字符串
var nanValues = []string{"", "NA", "NaN", "<nil>"}

// IsNA 判断字符串是否表示缺失值
func IsNA(v string) bool {
	return utils.Contains(nanValues, v)
}

// Table 封装 gota DataFrame
type Table struct {
	df dataframe.DataFrame
}

// FromRecords 由二维字符串构造表，第一行为表头
// 列类型按内容推断：全部可解析为整数 -> Int，浮点 -> Float，
// 布尔 -> Bool，其余为 String。全部缺失的列视为 Float。
func FromRecords(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return &Table{}, nil
	}

	headers := records[0]
	if dup := utils.Duplicates(headers); len(dup) > 0 {
		return nil, fmt.Errorf("duplicate column names %v: %w", dup, errs.ErrValidation)
	}

	rows := records[1:]
	columns := make([][]string, len(headers))
	for i := range columns {
		columns[i] = make([]string, 0, len(rows))
	}
	for r, row := range rows {
		if len(row) != len(headers) {
			return nil, fmt.Errorf("row %d has %d fields, want %d: %w", r+1, len(row), len(headers), errs.ErrFormat)
		}
		for i, v := range row {
			if IsNA(v) {
				v = "NaN"
			}
			columns[i] = append(columns[i], v)
		}
	}

	seriesList := make([]series.Series, len(headers))
	for i, colName := range headers {
		seriesList[i] = series.New(columns[i], detectType(columns[i]), colName)
	}
	return build(seriesList)
}

// FromDataFrame 包装已有的 DataFrame
func FromDataFrame(df dataframe.DataFrame) (*Table, error) {
	if df.Err != nil {
		return nil, fmt.Errorf("invalid dataframe: %w", df.Err)
	}
	if dup := utils.Duplicates(df.Names()); len(dup) > 0 {
		return nil, fmt.Errorf("duplicate column names %v: %w", dup, errs.ErrValidation)
	}
	return &Table{df: df}, nil
}

// build 由 series 构造新表，零列时返回空表(gota 不允许零列的 DataFrame)
func build(cols []series.Series) (*Table, error) {
	if len(cols) == 0 {
		return &Table{}, nil
	}
	df := dataframe.New(cols...)
	if df.Err != nil {
		return nil, fmt.Errorf("build dataframe: %w", df.Err)
	}
	return &Table{df: df}, nil
}

func detectType(values []string) series.Type {
	var hasInts, hasFloats, hasBools, hasStrings bool
	for _, v := range values {
		if v == "NaN" {
			continue
		}
		if _, err := strconv.Atoi(v); err == nil {
			hasInts = true
			continue
		}
		if _, err := strconv.ParseFloat(v, 64); err == nil {
			hasFloats = true
			continue
		}
		switch strings.ToLower(v) {
		case "true", "false":
			hasBools = true
			continue
		}
		hasStrings = true
	}

	switch {
	case hasStrings:
		return series.String
	case hasBools && (hasInts || hasFloats):
		return series.String
	case hasBools:
		return series.Bool
	case hasFloats:
		return series.Float
	case hasInts:
		return series.Int
	default:
		return series.Float
	}
}

// DataFrame 返回底层 DataFrame
func (t *Table) DataFrame() dataframe.DataFrame {
	return t.df
}

func (t *Table) Names() []string {
	if t.df.Ncol() == 0 {
		return []string{}
	}
	return t.df.Names()
}

func (t *Table) Nrow() int { return t.df.Nrow() }
func (t *Table) Ncol() int { return t.df.Ncol() }

// HasColumn 判断表是否有某列
func (t *Table) HasColumn(name string) bool {
	if t.df.Ncol() == 0 {
		return false
	}
	return utils.HasColumn(t.df, name)
}

// Column 返回指定列，不存在时返回 lookup 错误
func (t *Table) Column(name string) (series.Series, error) {
	if !t.HasColumn(name) {
		return series.Series{}, fmt.Errorf("column %q: %w", name, errs.ErrLookup)
	}
	return t.df.Col(name), nil
}

// Kind 返回列类型
func (t *Table) Kind(name string) (Kind, error) {
	s, err := t.Column(name)
	if err != nil {
		return Text, err
	}
	return KindOf(s.Type()), nil
}

// NumericColumns 按表中顺序返回所有数值列名
func (t *Table) NumericColumns() []string {
	var cols []string
	for _, name := range t.Names() {
		if KindOf(t.df.Col(name).Type()) == Numeric {
			cols = append(cols, name)
		}
	}
	return cols
}

// Floats 返回数值列的值，缺失为 NaN
func (t *Table) Floats(name string) ([]float64, error) {
	s, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	if KindOf(s.Type()) != Numeric {
		return nil, fmt.Errorf("column %q is %s, not numeric: %w", name, KindOf(s.Type()), errs.ErrValidation)
	}
	return s.Float(), nil
}

// Missing 返回每行是否缺失
func (t *Table) Missing(name string) ([]bool, error) {
	s, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	return s.IsNaN(), nil
}

// Strings 返回列的文本表示，缺失为空串
func (t *Table) Strings(name string) ([]string, error) {
	s, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, s.Len())
	for i := range out {
		out[i] = Cell(s, i)
	}
	return out, nil
}

// Cell 返回单元格的文本表示，缺失为空串，浮点使用最短表示
func Cell(s series.Series, i int) string {
	e := s.Elem(i)
	if e.IsNA() {
		return ""
	}
	if s.Type() == series.Float {
		return utils.FormatFloat(e.Float())
	}
	return e.String()
}

// Select 按给定顺序投影列
// 任一列不存在返回 lookup 错误，重复列名返回 validation 错误
func (t *Table) Select(names ...string) (*Table, error) {
	if dup := utils.Duplicates(names); len(dup) > 0 {
		return nil, fmt.Errorf("duplicate columns %v: %w", dup, errs.ErrValidation)
	}
	var missing []string
	for _, n := range names {
		if !t.HasColumn(n) {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("columns %v not in table: %w", missing, errs.ErrLookup)
	}
	if len(names) == 0 {
		return &Table{}, nil
	}
	return FromDataFrame(t.df.Select(names))
}

// Drop 删除给定列，任一列不存在返回 lookup 错误
func (t *Table) Drop(names ...string) (*Table, error) {
	for _, n := range names {
		if !t.HasColumn(n) {
			return nil, fmt.Errorf("column %q not in table: %w", n, errs.ErrLookup)
		}
	}
	var keep []string
	for _, n := range t.Names() {
		if !utils.Contains(names, n) {
			keep = append(keep, n)
		}
	}
	return t.Select(keep...)
}

// Rows 按行号取子表，结果行号从0连续
func (t *Table) Rows(indexes []int) (*Table, error) {
	for _, i := range indexes {
		if i < 0 || i >= t.Nrow() {
			return nil, fmt.Errorf("row %d out of range [0,%d): %w", i, t.Nrow(), errs.ErrValidation)
		}
	}
	if t.Ncol() == 0 {
		return &Table{}, nil
	}
	if len(indexes) == 0 {
		return t.emptyRows()
	}
	return FromDataFrame(t.df.Subset(indexes))
}

// emptyRows 保留列结构、零行
func (t *Table) emptyRows() (*Table, error) {
	cols := make([]series.Series, 0, t.Ncol())
	for _, name := range t.Names() {
		s := t.df.Col(name)
		cols = append(cols, series.New([]string{}, s.Type(), name))
	}
	return build(cols)
}

// Filter 按 gota 过滤条件筛选行
func (t *Table) Filter(agg dataframe.Aggregation, filters ...dataframe.F) (*Table, error) {
	for _, f := range filters {
		if !t.HasColumn(f.Colname) {
			return nil, fmt.Errorf("column %q not in table: %w", f.Colname, errs.ErrLookup)
		}
	}
	if t.Nrow() == 0 || len(filters) == 0 {
		return t, nil
	}
	res := t.df.FilterAggregation(agg, filters...)
	if res.Err != nil {
		return nil, fmt.Errorf("filter rows: %w", res.Err)
	}
	if res.Nrow() == 0 {
		return t.emptyRows()
	}
	return FromDataFrame(res)
}

// WithColumn 用同名 series 替换已有列，返回新表
func (t *Table) WithColumn(s series.Series) (*Table, error) {
	if !t.HasColumn(s.Name) {
		return nil, fmt.Errorf("column %q: %w", s.Name, errs.ErrLookup)
	}
	if s.Len() != t.Nrow() {
		return nil, fmt.Errorf("column %q has %d rows, want %d: %w", s.Name, s.Len(), t.Nrow(), errs.ErrValidation)
	}
	return FromDataFrame(t.df.Mutate(s))
}

// Records 返回含表头的二维字符串，缺失为空串
func (t *Table) Records() [][]string {
	names := t.Names()
	records := make([][]string, 0, t.Nrow()+1)
	records = append(records, append([]string(nil), names...))

	cols := make([]series.Series, len(names))
	for i, n := range names {
		cols[i] = t.df.Col(n)
	}
	for r := 0; r < t.Nrow(); r++ {
		row := make([]string, len(cols))
		for c, s := range cols {
			row[c] = Cell(s, r)
		}
		records = append(records, row)
	}
	return records
}

// NonMissingCount 统计每列的非缺失个数
func (t *Table) NonMissingCount(name string) (int, error) {
	miss, err := t.Missing(name)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, m := range miss {
		if !m {
			n++
		}
	}
	return n, nil
}
