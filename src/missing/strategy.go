// Package missing 实现缺失值的填充与删除策略
package missing

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/stat"

	"MovieEDA/src/config"
	"MovieEDA/src/errs"
	"MovieEDA/src/table"
	"MovieEDA/src/utils"
)

// Method 缺失值处理方法
type Method string

const (
	Mean     Method = "mean"
	Median   Method = "median"
	Mode     Method = "mode"
	Constant Method = "constant"
	Drop     Method = "drop"
)

// Axis drop 方法作用的方向
type Axis int

const (
	Rows    Axis = 0
	Columns Axis = 1
)

// ParseMethod 解析方法名，第二个返回值表示是否为已知方法
// 未知方法原样返回，交给 Handle 按警告处理
func ParseMethod(s string) (Method, bool) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case Mean, Median, Mode, Constant, Drop:
		return m, true
	default:
		return m, false
	}
}

// Strategy 一种缺失值处理策略
// FillValue 只对 constant 有效，Axis/Thresh 只对 drop 有效。
type Strategy struct {
	Method    Method
	FillValue *string
	Axis      Axis
	Thresh    *int
}

// NewFill 创建 mean / median / mode 策略
func NewFill(m Method) Strategy {
	return Strategy{Method: m}
}

// NewConstant 创建常量填充策略
func NewConstant(value string) Strategy {
	return Strategy{Method: Constant, FillValue: &value}
}

// NewDrop 创建删除策略，thresh 为 nil 时删除任何含缺失值的行/列
func NewDrop(axis Axis, thresh *int) Strategy {
	return Strategy{Method: Drop, Axis: axis, Thresh: thresh}
}

// FromConfig 由流水线配置构造策略
func FromConfig(cfg config.MissingConfig) Strategy {
	m, _ := ParseMethod(cfg.Method)
	return Strategy{
		Method:    m,
		FillValue: cfg.FillValue.Ptr(),
		Axis:      Axis(cfg.Axis),
		Thresh:    cfg.Thresh,
	}
}

func (s Strategy) String() string {
	switch s.Method {
	case Constant:
		if s.FillValue != nil {
			return fmt.Sprintf("constant(%s)", *s.FillValue)
		}
	case Drop:
		if s.Thresh != nil {
			return fmt.Sprintf("drop(axis=%d, thresh=%d)", s.Axis, *s.Thresh)
		}
		return fmt.Sprintf("drop(axis=%d)", s.Axis)
	}
	return string(s.Method)
}

// Handle 应用策略并返回新表，输入表不变
func (s Strategy) Handle(t *table.Table) (*table.Table, error) {
	return s.handle(t, slog.Default())
}

func (s Strategy) handle(t *table.Table, log *slog.Logger) (*table.Table, error) {
	switch s.Method {
	case Mean, Median:
		return fillNumeric(t, s.Method, log)
	case Mode:
		return fillMode(t)
	case Constant:
		if s.FillValue == nil {
			return nil, fmt.Errorf("constant method requires a fill value: %w", errs.ErrValidation)
		}
		if table.IsNA(*s.FillValue) {
			return nil, fmt.Errorf("fill value %q is itself a missing marker: %w", *s.FillValue, errs.ErrValidation)
		}
		return fillConstant(t, *s.FillValue)
	case Drop:
		return drop(t, s.Axis, s.Thresh, log)
	default:
		log.Warn("未知的缺失值处理方法，数据保持不变", "method", string(s.Method))
		return t, nil
	}
}

// fillNumeric 用每个数值列的均值/中位数填充
func fillNumeric(t *table.Table, m Method, log *slog.Logger) (*table.Table, error) {
	numeric := t.NumericColumns()
	if len(numeric) == 0 {
		log.Warn("没有数值列，跳过填充", "method", string(m))
		return t, nil
	}

	out := t
	for _, name := range numeric {
		vals, err := t.Floats(name)
		if err != nil {
			return nil, err
		}
		present := utils.NonMissing(vals)
		if len(present) == 0 || len(present) == len(vals) {
			continue
		}

		var v float64
		if m == Mean {
			v = stat.Mean(present, nil)
		} else {
			v = utils.Median(present)
		}

		col, _ := t.Column(name)
		typ := col.Type()
		if typ == series.Int && !utils.IsIntegral(v) {
			typ = series.Float
		}
		out, err = out.WithColumn(fillColumn(col, utils.FormatFloat(v), typ))
		if err != nil {
			return nil, err
		}
		log.Debug("已填充缺失值", "column", name, "method", string(m), "value", v)
	}
	return out, nil
}

// fillMode 用每列出现次数最多的值填充，并列时取最小值
func fillMode(t *table.Table) (*table.Table, error) {
	out := t
	for _, name := range t.Names() {
		col, _ := t.Column(name)
		v, ok := mode(col)
		if !ok {
			continue
		}
		var err error
		out, err = out.WithColumn(fillColumn(col, v, col.Type()))
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// mode 返回出现次数最多的值，并列时数值列按大小、文本列按字典序取最小
func mode(s series.Series) (string, bool) {
	counts := make(map[string]int)
	numbers := make(map[string]float64)
	numeric := table.KindOf(s.Type()) == table.Numeric
	for i := 0; i < s.Len(); i++ {
		e := s.Elem(i)
		if e.IsNA() {
			continue
		}
		v := table.Cell(s, i)
		counts[v]++
		if numeric {
			numbers[v] = e.Float()
		}
	}
	if len(counts) == 0 {
		return "", false
	}

	less := func(a, b string) bool {
		if numeric {
			return numbers[a] < numbers[b]
		}
		return a < b
	}
	var best string
	found := false
	for v, n := range counts {
		if !found || n > counts[best] || (n == counts[best] && less(v, best)) {
			best, found = v, true
		}
	}
	return best, true
}

// fillConstant 用常量填充所有列
// 整数列遇到小数值提升为浮点列，非数值的常量使数值列转为文本
func fillConstant(t *table.Table, value string) (*table.Table, error) {
	out := t
	for _, name := range t.Names() {
		col, _ := t.Column(name)
		if !hasMissing(col) {
			continue
		}
		typ := col.Type()
		switch {
		case parsesAs(value, typ):
		case typ == series.Int && parsesAs(value, series.Float):
			typ = series.Float
		default:
			typ = series.String
		}
		var err error
		out, err = out.WithColumn(fillColumn(col, value, typ))
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func parsesAs(v string, typ series.Type) bool {
	switch typ {
	case series.Int:
		_, err := strconv.Atoi(v)
		return err == nil
	case series.Float:
		_, err := strconv.ParseFloat(v, 64)
		return err == nil
	case series.Bool:
		switch strings.ToLower(v) {
		case "true", "false":
			return true
		}
		return false
	default:
		return true
	}
}

func hasMissing(s series.Series) bool {
	for _, na := range s.IsNaN() {
		if na {
			return true
		}
	}
	return false
}

// fillColumn 构造新列：缺失处填 value，其余保持原值
func fillColumn(s series.Series, value string, typ series.Type) series.Series {
	vals := make([]string, s.Len())
	for i := range vals {
		if s.Elem(i).IsNA() {
			vals[i] = value
		} else {
			vals[i] = table.Cell(s, i)
		}
	}
	return series.New(vals, typ, s.Name)
}

// drop 删除非缺失值个数不足 thresh 的行或列
func drop(t *table.Table, axis Axis, thresh *int, log *slog.Logger) (*table.Table, error) {
	switch axis {
	case Rows:
		return dropRows(t, thresh, log)
	case Columns:
		return dropColumns(t, thresh, log)
	default:
		return nil, fmt.Errorf("axis must be 0 (rows) or 1 (columns), got %d: %w", axis, errs.ErrValidation)
	}
}

func keep(present, total int, thresh *int) bool {
	if thresh == nil {
		return present == total
	}
	return present >= *thresh
}

func dropRows(t *table.Table, thresh *int, log *slog.Logger) (*table.Table, error) {
	present := make([]int, t.Nrow())
	for _, name := range t.Names() {
		miss, err := t.Missing(name)
		if err != nil {
			return nil, err
		}
		for i, m := range miss {
			if !m {
				present[i]++
			}
		}
	}

	var rows []int
	for i, n := range present {
		if keep(n, t.Ncol(), thresh) {
			rows = append(rows, i)
		}
	}
	removed := t.Nrow() - len(rows)
	if removed == 0 {
		log.Info("删除含缺失值的行", "removed", 0)
		return t, nil
	}
	out, err := t.Rows(rows)
	if err != nil {
		return nil, err
	}
	log.Info("删除含缺失值的行", "removed", removed, "remaining", out.Nrow())
	return out, nil
}

func dropColumns(t *table.Table, thresh *int, log *slog.Logger) (*table.Table, error) {
	var cols, removed []string
	for _, name := range t.Names() {
		n, err := t.NonMissingCount(name)
		if err != nil {
			return nil, err
		}
		if keep(n, t.Nrow(), thresh) {
			cols = append(cols, name)
		} else {
			removed = append(removed, name)
		}
	}
	if len(removed) == 0 {
		log.Info("删除含缺失值的列", "removed", 0)
		return t, nil
	}
	out, err := t.Select(cols...)
	if err != nil {
		return nil, err
	}
	log.Info("删除含缺失值的列", "removed", len(removed), "columns", removed)
	return out, nil
}
