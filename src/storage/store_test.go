package storage

import (
	"os"
	"path/filepath"
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
		{"title", "budget", "vote_average"},
		{"Alien", "11000000", "8.1"},
		{"Heat", "", "7.9"},
	})
	require.NoError(t, err)
	return tbl
}

func TestStorePath(t *testing.T) {
	s := NewStore(filepath.Join("data", "interim"), false, nil)
	assert.Equal(t, filepath.Join("data", "interim", "cleaned_df.csv"), s.Path("cleaned_df"))
}

func TestStoreSaveCSV(t *testing.T) {
	base := filepath.Join(t.TempDir(), "nested", "interim")
	s := NewStore(base, false, nil)

	path, err := s.Save("features", movies(t))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "features.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "title,budget,vote_average\nAlien,11000000,8.1\nHeat,,7.9\n", string(data))

	// 再次保存覆盖原文件
	_, err = s.Save("features", movies(t))
	require.NoError(t, err)
}

func TestStoreSaveRejectsEmptyName(t *testing.T) {
	s := NewStore(t.TempDir(), false, nil)
	_, err := s.Save(" ", movies(t))
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestStoreSaveRejectsPathNames(t *testing.T) {
	base := t.TempDir()
	s := NewStore(filepath.Join(base, "interim"), false, nil)

	for _, name := range []string{"../../x", "sub/x", `sub\x`, ".."} {
		_, err := s.Save(name, movies(t))
		assert.ErrorIs(t, err, errs.ErrValidation, name)
	}
	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStoreSaveXLSX(t *testing.T) {
	base := t.TempDir()
	s := NewStore(base, true, nil)

	_, err := s.Save("cleaned_df", movies(t))
	require.NoError(t, err)

	f, err := excelize.OpenFile(filepath.Join(base, "cleaned_df.xlsx"))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Sheet1", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"title", "budget", "vote_average"}, rows[0])
	assert.Equal(t, "Alien", rows[1][0])
	assert.Equal(t, "11000000", rows[1][1])
	assert.Equal(t, "", rows[2][1])
}
