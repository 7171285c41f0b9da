package processor

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"

	"MovieEDA/src/errs"
	"MovieEDA/src/table"
)

// InspectionKind 检查/分析的种类
type InspectionKind int

const (
	DataTypes InspectionKind = iota
	Statistics
	NumericalDistribution
	CategoricalDistribution
	NumericalPair
	NumericalByCategory
)

var inspectionNames = map[InspectionKind]string{
	DataTypes:               "types",
	Statistics:              "summary",
	NumericalDistribution:   "numerical",
	CategoricalDistribution: "categorical",
	NumericalPair:           "num-num",
	NumericalByCategory:     "num-cat",
}

func (k InspectionKind) String() string {
	if name, ok := inspectionNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseInspectionKind 由名称解析种类
func ParseInspectionKind(s string) (InspectionKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range inspectionNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown analysis %q: %w", s, errs.ErrValidation)
}

// Inspection 一次检查的参数
// Feature 用于单变量分析；NumericalPair 使用 Feature/Feature2，
// NumericalByCategory 中 Feature 为类别列、Feature2 为数值列。
type Inspection struct {
	Kind     InspectionKind
	Feature  string
	Feature2 string
	Bins     int
	Log      bool
	Corr     bool // NumericalPair 是否输出相关系数
}

// Inspector 持有当前的检查方式，可随时切换
type Inspector struct {
	mu         sync.RWMutex
	inspection Inspection
	log        *slog.Logger
}

func NewInspector(i Inspection, log *slog.Logger) *Inspector {
	if log == nil {
		log = slog.Default()
	}
	return &Inspector{inspection: i, log: log}
}

// SetInspection 切换检查方式
func (in *Inspector) SetInspection(i Inspection) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.inspection = i
}

// Inspection 返回当前检查方式
func (in *Inspector) Inspection() Inspection {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.inspection
}

// Execute 执行当前检查并把结果以表格形式写到 w
func (in *Inspector) Execute(w io.Writer, t *table.Table) error {
	i := in.Inspection()
	in.log.Debug("执行数据检查", "kind", i.Kind.String(), "feature", i.Feature, "feature2", i.Feature2)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	var err error
	switch i.Kind {
	case DataTypes:
		writeTypes(tw, t)
	case Statistics:
		writeSummary(tw, SummaryStatistics(t))
	case NumericalDistribution:
		bins := i.Bins
		if bins == 0 {
			bins = DefaultBins
		}
		var d *Distribution
		if d, err = NumericalUnivariate(t, i.Feature, bins, i.Log); err == nil {
			writeDistribution(tw, d)
		}
	case CategoricalDistribution:
		var counts []ValueCount
		if counts, err = CategoricalUnivariate(t, i.Feature); err == nil {
			writeCounts(tw, i.Feature, counts)
		}
	case NumericalPair:
		var c *Correlation
		if c, err = NumericalVsNumerical(t, i.Feature, i.Feature2); err == nil {
			writeCorrelation(tw, c, i.Corr)
		}
	case NumericalByCategory:
		var groups []GroupSummary
		if groups, err = NumericalVsCategorical(t, i.Feature, i.Feature2); err == nil {
			writeGroups(tw, i.Feature, i.Feature2, groups)
		}
	default:
		return fmt.Errorf("unknown inspection kind %d: %w", i.Kind, errs.ErrValidation)
	}
	if err != nil {
		return err
	}
	return tw.Flush()
}

func num(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func writeTypes(w io.Writer, t *table.Table) {
	fmt.Fprintf(w, "%d rows x %d columns\n", t.Nrow(), t.Ncol())
	fmt.Fprintln(w, "#\tColumn\tNon-Null\tMissing\tDtype")
	for i, c := range InspectTypes(t) {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\n", i, c.Name, c.NonNull, c.Missing, c.Type)
	}
}

func writeSummary(w io.Writer, s Summary) {
	fmt.Fprintln(w, "数值列")
	fmt.Fprintln(w, "column\tcount\tmean\tstd\tmin\t25%\t50%\t75%\tmax")
	for _, n := range s.Numeric {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			n.Column, n.Count, num(n.Mean), num(n.Std), num(n.Min), num(n.Q25), num(n.Median), num(n.Q75), num(n.Max))
	}
	fmt.Fprintln(w, "文本列")
	fmt.Fprintln(w, "column\tcount\tunique\ttop\tfreq")
	for _, c := range s.Categorical {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%d\n", c.Column, c.Count, c.Unique, c.Top, c.Freq)
	}
}

func writeDistribution(w io.Writer, d *Distribution) {
	s := d.Summary
	fmt.Fprintf(w, "%s 的分布\n", s.Column)
	fmt.Fprintf(w, "count\t%d\nmean\t%s\nstd\t%s\nmin\t%s\n25%%\t%s\n50%%\t%s\n75%%\t%s\nmax\t%s\n",
		s.Count, num(s.Mean), num(s.Std), num(s.Min), num(s.Q25), num(s.Median), num(s.Q75), num(s.Max))
	if d.Log && d.Skipped > 0 {
		fmt.Fprintf(w, "对数刻度忽略非正值\t%d\n", d.Skipped)
	}
	fmt.Fprintln(w, "lower\tupper\tcount")
	for _, b := range d.Bins {
		fmt.Fprintf(w, "%s\t%s\t%d\n", num(b.Lower), num(b.Upper), b.Count)
	}
}

func writeCounts(w io.Writer, feature string, counts []ValueCount) {
	total := 0
	for _, c := range counts {
		total += c.Count
	}
	fmt.Fprintf(w, "%s\tcount\tshare\n", feature)
	for _, c := range counts {
		fmt.Fprintf(w, "%s\t%d\t%.2f%%\n", c.Value, c.Count, float64(c.Count)/float64(total)*100)
	}
}

func writeCorrelation(w io.Writer, c *Correlation, corr bool) {
	fmt.Fprintf(w, "%s vs %s\n", c.X, c.Y)
	fmt.Fprintf(w, "pairs\t%d\n", c.N)
	if corr {
		fmt.Fprintf(w, "pearson\t%s\n", strconv.FormatFloat(c.Pearson, 'f', 4, 64))
	}
}

func writeGroups(w io.Writer, cat, numerical string, groups []GroupSummary) {
	fmt.Fprintf(w, "%s vs %s\n", cat, numerical)
	fmt.Fprintln(w, "group\tcount\tmin\tq1\tmedian\tq3\tmax")
	for _, g := range groups {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			g.Group, g.Count, num(g.Min), num(g.Q1), num(g.Median), num(g.Q3), num(g.Max))
	}
}
