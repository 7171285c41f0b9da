package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"

	"MovieEDA/src/errs"
	"MovieEDA/src/table"
)

// Store 将表持久化到 <BaseDir>/<name>.csv
type Store struct {
	BaseDir string
	XLSX    bool // 同时导出 <name>.xlsx
	log     *slog.Logger
}

// NewStore 创建持久化目录配置，log 为 nil 时使用 slog.Default()
func NewStore(baseDir string, xlsx bool, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{BaseDir: baseDir, XLSX: xlsx, log: log}
}

// Path 由逻辑名得到确定的输出路径
func (s *Store) Path(name string) string {
	return filepath.Join(s.BaseDir, name+".csv")
}

// Check 持久化前的检查，s 为 nil 表示未配置输出目录
func (s *Store) Check(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name must not be empty when persisting: %w", errs.ErrValidation)
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("name %q must not contain a path: %w", name, errs.ErrValidation)
	}
	if s == nil {
		return fmt.Errorf("no output directory configured: %w", errs.ErrConfiguration)
	}
	return nil
}

// Save 写出 CSV(必要时创建父目录)，返回写出的路径
func (s *Store) Save(name string, t *table.Table) (string, error) {
	if err := s.Check(name); err != nil {
		return "", err
	}

	path := s.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("创建目录失败: %w", err)
	}

	s.log.Info("保存DataFrame", "path", path, "rows", t.Nrow(), "cols", t.Ncol())
	if err := writeCSVFile(path, t); err != nil {
		return "", err
	}

	if s.XLSX {
		xlsxPath := strings.TrimSuffix(path, ".csv") + ".xlsx"
		if err := SaveToExcel(t, xlsxPath); err != nil {
			return "", err
		}
		s.log.Info("已导出Excel", "path", xlsxPath)
	}
	return path, nil
}

func writeCSVFile(path string, t *table.Table) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建文件失败: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("关闭文件失败: %w", cerr)
		}
	}()
	return t.WriteCSV(f)
}

// SaveToExcel 将表保存为 Excel 文件
// 数值列写为数字，缺失值留空
func SaveToExcel(t *table.Table, filePath string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Sheet1"
	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return fmt.Errorf("创建Excel写入器失败: %w", err)
	}

	// 写入列名
	colNames := t.Names()
	header := make([]interface{}, len(colNames))
	for i, name := range colNames {
		header[i] = name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("写入表头失败: %w", err)
	}

	cols := make([]series.Series, len(colNames))
	for i, name := range colNames {
		cols[i], _ = t.Column(name)
	}

	// 写入数据
	for rowIdx := 0; rowIdx < t.Nrow(); rowIdx++ {
		row := make([]interface{}, len(cols))
		for colIdx, col := range cols {
			e := col.Elem(rowIdx)
			switch {
			case e.IsNA():
				row[colIdx] = nil
			case table.KindOf(col.Type()) == table.Numeric:
				row[colIdx] = e.Float()
			default:
				row[colIdx] = e.String()
			}
		}
		cell, _ := excelize.CoordinatesToCellName(1, rowIdx+2)
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("写入第%d行失败: %w", rowIdx+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("写入Excel失败: %w", err)
	}

	// 保存文件
	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("保存Excel文件失败: %w", err)
	}
	return nil
}
