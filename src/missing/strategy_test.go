package missing

import (
	"bytes"
	"log/slog"
	"math"
	"testing"

	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MovieEDA/src/config"
	"MovieEDA/src/errs"
	"MovieEDA/src/table"
)

func records(t *testing.T, rows [][]string) *table.Table {
	t.Helper()
	tbl, err := table.FromRecords(rows)
	require.NoError(t, err)
	return tbl
}

func movies(t *testing.T) *table.Table {
	return records(t, [][]string{
		{"title", "budget", "vote_average", "genre"},
		{"Alien", "1", "8.5", "Horror"},
		{"", "", "", "Drama"},
		{"Heat", "4", "7", ""},
		{"Ran", "", "6", "Drama"},
	})
}

func bufLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

func TestMeanFillsMissing(t *testing.T) {
	tbl := records(t, [][]string{{"x"}, {"1"}, {"NaN"}, {"3"}})

	out, err := NewFill(Mean).Handle(tbl)
	require.NoError(t, err)

	vals, err := out.Floats("x")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2.0, 3}, vals)
}

func TestMeanAndMedianKeepShapeAndValues(t *testing.T) {
	tbl := movies(t)
	for _, m := range []Method{Mean, Median} {
		out, err := NewFill(m).Handle(tbl)
		require.NoError(t, err, m)
		assert.Equal(t, tbl.Nrow(), out.Nrow(), m)
		assert.Equal(t, tbl.Names(), out.Names(), m)

		for _, name := range tbl.NumericColumns() {
			before, _ := tbl.Floats(name)
			after, err := out.Floats(name)
			require.NoError(t, err)
			for i := range before {
				assert.False(t, math.IsNaN(after[i]), "%s %s[%d]", m, name, i)
				if !math.IsNaN(before[i]) {
					assert.Equal(t, before[i], after[i])
				}
			}
		}

		// 文本列不变
		title, _ := out.Strings("title")
		assert.Equal(t, "", title[1])
	}
}

func TestMedianEvenCountAndIntColumn(t *testing.T) {
	tbl := movies(t)

	out, err := NewFill(Median).Handle(tbl)
	require.NoError(t, err)

	// budget 为 [1, NaN, 4, NaN]，中位数 2.5 不是整数，列转为浮点
	budget, err := out.Column("budget")
	require.NoError(t, err)
	assert.Equal(t, series.Float, budget.Type())
	assert.Equal(t, []float64{1, 2.5, 4, 2.5}, budget.Float())

	// vote_average 为 [8.5, NaN, 7, 6]
	votes, _ := out.Floats("vote_average")
	assert.Equal(t, 7.0, votes[1])
}

func TestMeanWithoutNumericColumns(t *testing.T) {
	tbl := records(t, [][]string{{"title"}, {"Alien"}, {""}})
	log, buf := bufLogger()

	out, err := NewFill(Mean).handle(tbl, log)
	require.NoError(t, err)
	assert.Same(t, tbl, out)
	assert.Contains(t, buf.String(), "level=WARN")
}

func TestModeSmallestModalValue(t *testing.T) {
	tbl := records(t, [][]string{
		{"genre", "year"},
		{"Drama", "1999"},
		{"Horror", "2001"},
		{"", ""},
		{"Horror", "2001"},
		{"Drama", "1999"},
	})

	out, err := NewFill(Mode).Handle(tbl)
	require.NoError(t, err)

	genre, _ := out.Strings("genre")
	assert.Equal(t, "Drama", genre[2])
	year, err := out.Column("year")
	require.NoError(t, err)
	assert.Equal(t, series.Int, year.Type())
	assert.Equal(t, "1999", table.Cell(year, 2))
}

func TestModeTieTakesSmallestNumber(t *testing.T) {
	tbl := records(t, [][]string{{"g", "label"}, {"10", "b"}, {"10", "b"}, {"9", "a"}, {"9", "a"}, {"", ""}, {"1", "c"}})

	out, err := NewFill(Mode).Handle(tbl)
	require.NoError(t, err)
	g, err := out.Floats("g")
	require.NoError(t, err)
	// 按数值比较，"10" 的字典序虽然更小
	assert.Equal(t, []float64{10, 10, 9, 9, 9, 1}, g)
	label, _ := out.Strings("label")
	assert.Equal(t, "a", label[4])
}

func TestModeAllMissingColumnUntouched(t *testing.T) {
	tbl := records(t, [][]string{{"a", "b"}, {"", "x"}, {"", ""}})

	out, err := NewFill(Mode).Handle(tbl)
	require.NoError(t, err)
	miss, _ := out.Missing("a")
	assert.Equal(t, []bool{true, true}, miss)
	b, _ := out.Strings("b")
	assert.Equal(t, []string{"x", "x"}, b)
}

func TestConstantFill(t *testing.T) {
	tbl := movies(t)

	out, err := NewConstant("0").Handle(tbl)
	require.NoError(t, err)
	assert.Equal(t, tbl.Nrow(), out.Nrow())
	assert.Equal(t, tbl.Names(), out.Names())

	for _, name := range tbl.Names() {
		beforeMiss, _ := tbl.Missing(name)
		before, _ := tbl.Strings(name)
		after, err := out.Strings(name)
		require.NoError(t, err)
		for i, m := range beforeMiss {
			if m {
				assert.Equal(t, "0", after[i], "%s[%d]", name, i)
			} else {
				assert.Equal(t, before[i], after[i], "%s[%d]", name, i)
			}
		}
	}

	budget, _ := out.Column("budget")
	assert.Equal(t, series.Int, budget.Type())
}

func TestConstantChangesKindWhenNeeded(t *testing.T) {
	tbl := records(t, [][]string{{"n"}, {"1"}, {""}})

	out, err := NewConstant("unknown").Handle(tbl)
	require.NoError(t, err)
	k, _ := out.Kind("n")
	assert.Equal(t, table.Text, k)
	vals, _ := out.Strings("n")
	assert.Equal(t, []string{"1", "unknown"}, vals)
}

func TestConstantPromotesIntToFloat(t *testing.T) {
	tbl := records(t, [][]string{{"runtime"}, {"90"}, {""}, {"120"}})

	out, err := NewConstant("1.5").Handle(tbl)
	require.NoError(t, err)
	col, err := out.Column("runtime")
	require.NoError(t, err)
	assert.Equal(t, series.Float, col.Type())
	assert.Equal(t, []string{"runtime"}, out.NumericColumns())
	vals, err := out.Floats("runtime")
	require.NoError(t, err)
	assert.Equal(t, []float64{90, 1.5, 120}, vals)
}

func TestConstantRequiresValue(t *testing.T) {
	_, err := Strategy{Method: Constant}.Handle(movies(t))
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = NewConstant("").Handle(movies(t))
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestDropRows(t *testing.T) {
	tbl := movies(t)

	out, err := NewDrop(Rows, nil).Handle(tbl)
	require.NoError(t, err)
	titles, _ := out.Strings("title")
	assert.Equal(t, []string{"Alien"}, titles)

	for _, k := range []int{0, 1, 2, 3, 4, 5} {
		thresh := k
		out, err := NewDrop(Rows, &thresh).Handle(tbl)
		require.NoError(t, err)

		kept := 0
		for i := 0; i < out.Nrow(); i++ {
			assert.GreaterOrEqual(t, nonMissingInRow(out, i), k)
			kept++
		}
		removed := 0
		for i := 0; i < tbl.Nrow(); i++ {
			if nonMissingInRow(tbl, i) < k {
				removed++
			}
		}
		assert.Equal(t, tbl.Nrow()-removed, kept, "thresh=%d", k)
	}
}

func nonMissingInRow(tbl *table.Table, row int) int {
	n := 0
	for _, name := range tbl.Names() {
		miss, _ := tbl.Missing(name)
		if !miss[row] {
			n++
		}
	}
	return n
}

func TestDropColumns(t *testing.T) {
	tbl := records(t, [][]string{
		{"a", "b", "c"},
		{"1", "", "x"},
		{"2", "", ""},
		{"3", "4", "y"},
	})
	log, buf := bufLogger()

	out, err := NewDrop(Columns, nil).handle(tbl, log)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, out.Names())
	assert.Contains(t, buf.String(), "removed=2")

	thresh := 2
	out, err = NewDrop(Columns, &thresh).Handle(tbl)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, out.Names())
}

func TestDropInvalidAxis(t *testing.T) {
	_, err := NewDrop(Axis(2), nil).Handle(movies(t))
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestUnknownMethodIsNoop(t *testing.T) {
	tbl := movies(t)
	log, buf := bufLogger()

	m, ok := ParseMethod("interpolate")
	assert.False(t, ok)

	out, err := Strategy{Method: m}.handle(tbl, log)
	require.NoError(t, err)
	assert.Same(t, tbl, out)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "interpolate")
}

func TestParseMethodAndFromConfig(t *testing.T) {
	m, ok := ParseMethod(" Median ")
	assert.True(t, ok)
	assert.Equal(t, Median, m)

	fill := config.Scalar("0")
	thresh := 3
	s := FromConfig(config.MissingConfig{Method: "drop", FillValue: &fill, Axis: 1, Thresh: &thresh})
	assert.Equal(t, Drop, s.Method)
	assert.Equal(t, Columns, s.Axis)
	assert.Equal(t, 3, *s.Thresh)
	assert.Equal(t, "drop(axis=1, thresh=3)", s.String())
}
