package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MovieEDA/src/cleaning"
	"MovieEDA/src/errs"
)

type env struct {
	configDir  string
	interimDir string
	input      string
}

// newEnv 在临时目录准备配置与数据集
func newEnv(t *testing.T, pipeline string) env {
	t.Helper()
	dir := t.TempDir()
	e := env{
		configDir:  filepath.Join(dir, "config"),
		interimDir: filepath.Join(dir, "interim"),
		input:      filepath.Join(dir, "movies.csv"),
	}
	require.NoError(t, os.MkdirAll(e.configDir, 0755))

	cfg := fmt.Sprintf(`{
  "raw_dir": %q,
  "watch_dir": %q,
  "interim_dir": %q,
  "output_name": "cleaned_df",
  "log": {"name": "", "level": "info"}
}`, filepath.Join(dir, "raw"), filepath.Join(dir, "inbox"), e.interimDir)
	require.NoError(t, os.WriteFile(filepath.Join(e.configDir, "config.json"), []byte(cfg), 0644))
	if pipeline != "" {
		require.NoError(t, os.WriteFile(filepath.Join(e.configDir, "pipeline.yaml"), []byte(pipeline), 0644))
	}

	header := append([]string{"id", "title", "genres", "vote_average", "vote_count", "budget", "revenue", "runtime"}, cleaning.DroppedColumns...)
	rows := [][]string{
		{"1", "Alien", "Horror", "8.1", "100", "11000000", "104000000", "117"},
		{"2", "Heat", "Crime", "7.9", "90", "60000000", "187000000", ""},
		{"3", "Unreleased", "Drama", "0", "0", "0", "0", "90"},
		{"4", "Ran", "Horror", "8.2", "50", "12000000", "4000000", "162"},
	}
	var b strings.Builder
	b.WriteString(strings.Join(header, ",") + "\n")
	for _, r := range rows {
		for range cleaning.DroppedColumns {
			r = append(r, "x")
		}
		b.WriteString(strings.Join(r, ",") + "\n")
	}
	require.NoError(t, os.WriteFile(e.input, []byte(b.String()), 0644))
	return e
}

// run 执行命令，返回标准输出与日志输出
func (e env) run(args ...string) (string, string, error) {
	cmd := newRootCmd()
	var out, logs bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&logs)
	cmd.SetArgs(append([]string{"--config-dir", e.configDir}, args...))
	err := cmd.Execute()
	return out.String(), logs.String(), err
}

func TestCleanCommand(t *testing.T) {
	e := newEnv(t, "missing:\n  method: median\nfeatures: [title, runtime]\npersist: true\n")

	out, logs, err := e.run("clean", e.input)
	require.NoError(t, err)

	output := filepath.Join(e.interimDir, "cleaned_df.csv")
	assert.Contains(t, out, output)
	assert.Contains(t, out, "3 rows x 2 columns")
	assert.Contains(t, logs, "run_id=")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "title,runtime\nAlien,117\nHeat,139.5\nRan,162\n", string(data))
	assert.FileExists(t, filepath.Join(e.interimDir, "missing_handled.csv"))
}

func TestCleanCommandErrors(t *testing.T) {
	e := newEnv(t, "features: [title, tagline]\n")

	_, _, err := e.run("clean", e.input)
	assert.ErrorIs(t, err, errs.ErrLookup)

	_, _, err = e.run("clean", "movies.parquet")
	assert.ErrorIs(t, err, errs.ErrConfiguration)
}

func TestImputeAndSelectCommands(t *testing.T) {
	e := newEnv(t, "")

	out, _, err := e.run("impute", e.input, "--method", "constant", "--fill", "0", "--name", "filled")
	require.NoError(t, err)
	assert.Contains(t, out, "constant(0)")
	assert.FileExists(t, filepath.Join(e.interimDir, "filled.csv"))

	out, _, err = e.run("impute", e.input, "--method", "drop")
	require.NoError(t, err)
	assert.Contains(t, out, "-> 3 rows")

	out, _, err = e.run("select", e.input, "--features", "title,budget")
	require.NoError(t, err)
	assert.Equal(t, "title,budget (4 rows)\n", out)

	_, _, err = e.run("select", e.input, "--features", "title,tagline_x")
	assert.ErrorIs(t, err, errs.ErrLookup)
}

func TestInspectCommand(t *testing.T) {
	e := newEnv(t, "")

	out, _, err := e.run("inspect", "--kind", "types", e.input)
	require.NoError(t, err)
	assert.Contains(t, out, "vote_average")

	report := filepath.Join(t.TempDir(), "summary.xlsx")
	out, _, err = e.run("inspect", e.input, "--xlsx", report)
	require.NoError(t, err)
	assert.Contains(t, out, "budget")
	assert.FileExists(t, report)

	_, _, err = e.run("inspect", "--kind", "num-num", e.input)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestAnalyzeCommand(t *testing.T) {
	e := newEnv(t, "")

	out, _, err := e.run("analyze", "--kind", "categorical", "--feature", "genres", e.input)
	require.NoError(t, err)
	assert.Contains(t, out, "Horror")

	out, _, err = e.run("analyze", "--kind", "num-num", "--feature", "budget", "--feature2", "revenue", "--corr", e.input)
	require.NoError(t, err)
	assert.Contains(t, out, "pearson")

	_, _, err = e.run("analyze", "--kind", "scatter", "--feature", "budget", e.input)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestFetchOnceWithoutServer(t *testing.T) {
	e := newEnv(t, "")

	_, logs, err := e.run("fetch", "--once")
	require.NoError(t, err)
	assert.Contains(t, logs, "检查邮件失败")
}
