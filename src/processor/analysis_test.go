package processor

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"MovieEDA/src/errs"
	"MovieEDA/src/table"
)

func movies(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.FromRecords([][]string{
		{"title", "genre", "budget", "revenue", "vote_average"},
		{"Alien", "Horror", "11", "100", "8.5"},
		{"Heat", "Crime", "60", "180", "8.3"},
		{"Ran", "Drama", "12", "4", ""},
		{"Saw", "Horror", "1", "100", "6.5"},
		{"", "Horror", "", "", "5.0"},
	})
	require.NoError(t, err)
	return tbl
}

func TestInspectTypes(t *testing.T) {
	infos := InspectTypes(movies(t))
	require.Len(t, infos, 5)

	assert.Equal(t, ColumnInfo{Name: "title", Kind: table.Text, Type: "string", NonNull: 4, Missing: 1}, infos[0])
	assert.Equal(t, table.Numeric, infos[2].Kind)
	assert.Equal(t, "int", infos[2].Type)
	assert.Equal(t, 1, infos[4].Missing)
}

func TestSummaryStatistics(t *testing.T) {
	s := SummaryStatistics(movies(t))

	require.Len(t, s.Numeric, 3)
	budget := s.Numeric[0]
	assert.Equal(t, "budget", budget.Column)
	assert.Equal(t, 4, budget.Count)
	assert.InDelta(t, 21.0, budget.Mean, 1e-9)
	assert.Equal(t, 1.0, budget.Min)
	assert.InDelta(t, 8.5, budget.Q25, 1e-9)
	assert.InDelta(t, 11.5, budget.Median, 1e-9)
	assert.InDelta(t, 24.0, budget.Q75, 1e-9)
	assert.Equal(t, 60.0, budget.Max)
	// 样本标准差
	assert.InDelta(t, 26.4701, budget.Std, 1e-4)

	require.Len(t, s.Categorical, 2)
	genre := s.Categorical[1]
	assert.Equal(t, CategoricalSummary{Column: "genre", Count: 5, Unique: 3, Top: "Horror", Freq: 3}, genre)
}

func TestSummaryOfEmptyColumn(t *testing.T) {
	tbl, err := table.FromRecords([][]string{{"x"}, {""}})
	require.NoError(t, err)
	s := SummaryStatistics(tbl)
	require.Len(t, s.Numeric, 1)
	assert.Zero(t, s.Numeric[0].Count)
	assert.True(t, math.IsNaN(s.Numeric[0].Mean))
}

func TestNumericalUnivariate(t *testing.T) {
	d, err := NumericalUnivariate(movies(t), "budget", 2, false)
	require.NoError(t, err)
	require.Len(t, d.Bins, 2)
	assert.Equal(t, Bin{Lower: 1, Upper: 30.5, Count: 3}, d.Bins[0])
	assert.Equal(t, Bin{Lower: 30.5, Upper: 60, Count: 1}, d.Bins[1])

	total := 0
	for _, b := range d.Bins {
		total += b.Count
	}
	assert.Equal(t, d.Summary.Count, total)
}

func TestNumericalUnivariateLog(t *testing.T) {
	tbl, err := table.FromRecords([][]string{{"revenue"}, {"0"}, {"10"}, {"100"}, {"1000"}})
	require.NoError(t, err)

	d, err := NumericalUnivariate(tbl, "revenue", 2, true)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Skipped)
	require.Len(t, d.Bins, 2)
	assert.InDelta(t, 10, d.Bins[0].Lower, 1e-9)
	assert.InDelta(t, 1000, d.Bins[1].Upper, 1e-9)
	assert.Equal(t, 1, d.Bins[0].Count)
	assert.Equal(t, 2, d.Bins[1].Count)
}

func TestNumericalUnivariateErrors(t *testing.T) {
	_, err := NumericalUnivariate(movies(t), "genre", 10, false)
	assert.ErrorIs(t, err, errs.ErrValidation)
	_, err = NumericalUnivariate(movies(t), "nope", 10, false)
	assert.ErrorIs(t, err, errs.ErrLookup)
	_, err = NumericalUnivariate(movies(t), "budget", 0, false)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestSingleValueHistogram(t *testing.T) {
	assert.Equal(t, []Bin{{Lower: 3, Upper: 3, Count: 2}}, histogram([]float64{3, 3}, 5))
}

func TestCategoricalUnivariate(t *testing.T) {
	counts, err := CategoricalUnivariate(movies(t), "genre")
	require.NoError(t, err)
	assert.Equal(t, []ValueCount{{"Horror", 3}, {"Crime", 1}, {"Drama", 1}}, counts)
}

func TestNumericalVsNumerical(t *testing.T) {
	c, err := NumericalVsNumerical(movies(t), "budget", "revenue")
	require.NoError(t, err)
	assert.Equal(t, 4, c.N)
	assert.True(t, c.Pearson > 0.5 && c.Pearson <= 1)

	tbl, err := table.FromRecords([][]string{{"x", "y"}, {"1", "2"}, {"2", "4"}, {"3", "6"}})
	require.NoError(t, err)
	c, err = NumericalVsNumerical(tbl, "x", "y")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, c.Pearson, 1e-12)

	_, err = NumericalVsNumerical(movies(t), "budget", "title")
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestNumericalVsCategorical(t *testing.T) {
	groups, err := NumericalVsCategorical(movies(t), "genre", "vote_average")
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, "Horror", groups[0].Group)
	assert.Equal(t, 3, groups[0].Count)
	assert.Equal(t, 5.0, groups[0].Min)
	assert.Equal(t, 6.5, groups[0].Median)
	assert.Equal(t, 8.5, groups[0].Max)
	assert.Equal(t, "Crime", groups[1].Group)

	_, err = NumericalVsCategorical(movies(t), "vote_average", "budget")
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestInspectorExecute(t *testing.T) {
	tbl := movies(t)
	in := NewInspector(Inspection{Kind: DataTypes}, nil)

	var buf bytes.Buffer
	require.NoError(t, in.Execute(&buf, tbl))
	assert.Contains(t, buf.String(), "5 rows x 5 columns")
	assert.Contains(t, buf.String(), "vote_average")

	in.SetInspection(Inspection{Kind: NumericalPair, Feature: "budget", Feature2: "revenue", Corr: true})
	assert.Equal(t, NumericalPair, in.Inspection().Kind)
	buf.Reset()
	require.NoError(t, in.Execute(&buf, tbl))
	assert.Contains(t, buf.String(), "pearson")

	in.SetInspection(Inspection{Kind: CategoricalDistribution, Feature: "genre"})
	buf.Reset()
	require.NoError(t, in.Execute(&buf, tbl))
	assert.True(t, strings.Contains(buf.String(), "60.00%"))

	in.SetInspection(Inspection{Kind: NumericalDistribution, Feature: "missing"})
	assert.ErrorIs(t, in.Execute(&buf, tbl), errs.ErrLookup)

	in.SetInspection(Inspection{Kind: InspectionKind(99)})
	assert.ErrorIs(t, in.Execute(&buf, tbl), errs.ErrValidation)
}

func TestParseInspectionKind(t *testing.T) {
	k, err := ParseInspectionKind("Num-Cat")
	require.NoError(t, err)
	assert.Equal(t, NumericalByCategory, k)
	assert.Equal(t, "num-cat", k.String())

	_, err = ParseInspectionKind("scatter")
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestExportSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.xlsx")
	require.NoError(t, ExportSummary(SummaryStatistics(movies(t)), path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"numeric", "categorical"}, f.GetSheetList())
	rows, err := f.GetRows("categorical")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"genre", "5", "3", "Horror", "3"}, rows[2])
}
