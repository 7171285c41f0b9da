// reader.go
package file

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/tealeg/xlsx"

	"MovieEDA/src/errs"
	"MovieEDA/src/table"
)

// 支持的输入扩展名
const (
	ExtZip  = ".zip"
	ExtCSV  = ".csv"
	ExtXLSX = ".xlsx"
)

// Ingestor 将一个输入文件读入为表
type Ingestor interface {
	Ingest(path string) (*table.Table, error)
}

// Options 构造 Ingestor 的参数
type Options struct {
	OutputDir string // zip 解压目录
	Encoding  string // CSV 编码，空为 UTF-8
	SheetName string // xlsx 工作表，空为第一个
	HeaderRow int    // xlsx 表头所在行(从0开始)
	Log       *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Log == nil {
		return slog.Default()
	}
	return o.Log
}

// NewIngestor 按扩展名返回对应的 Ingestor，不支持的扩展名返回 configuration 错误
func NewIngestor(ext string, opts Options) (Ingestor, error) {
	switch normalizeExt(ext) {
	case ExtZip:
		return &ZipIngestor{OutputDir: opts.OutputDir, Encoding: opts.Encoding, log: opts.logger()}, nil
	case ExtCSV:
		return &CSVIngestor{Encoding: opts.Encoding}, nil
	case ExtXLSX:
		return &XLSXIngestor{SheetName: opts.SheetName, HeaderRow: opts.HeaderRow}, nil
	default:
		return nil, fmt.Errorf("no ingestor for extension %q: %w", ext, errs.ErrConfiguration)
	}
}

// Ingest 按文件扩展名选择 Ingestor 并读入
func Ingest(path string, opts Options) (*table.Table, error) {
	ing, err := NewIngestor(filepath.Ext(path), opts)
	if err != nil {
		return nil, err
	}
	return ing.Ingest(path)
}

// Supported 判断文件是否有可读入的扩展名
func Supported(path string) bool {
	switch normalizeExt(filepath.Ext(path)) {
	case ExtZip, ExtCSV, ExtXLSX:
		return true
	}
	return false
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// ZipIngestor 解压 zip 到 OutputDir，读入其中按文件名排序的第一个 CSV
type ZipIngestor struct {
	OutputDir string
	Encoding  string
	log       *slog.Logger
}

// Ingest 实现 Ingestor
func (z *ZipIngestor) Ingest(path string) (*table.Table, error) {
	if normalizeExt(filepath.Ext(path)) != ExtZip {
		return nil, fmt.Errorf("%s is not a .zip file: %w", path, errs.ErrFormat)
	}
	log := z.log
	if log == nil {
		log = slog.Default()
	}

	n, err := extract(path, z.OutputDir)
	if err != nil {
		return nil, err
	}
	log.Info("解压完成", "archive", path, "dir", z.OutputDir, "entries", n)

	csvFiles, err := listCSV(z.OutputDir)
	if err != nil {
		return nil, err
	}
	if len(csvFiles) == 0 {
		return nil, fmt.Errorf("no CSV file found in %s: %w %w", z.OutputDir, errs.ErrFormat, errs.ErrNotFound)
	}
	if len(csvFiles) > 1 {
		log.Warn("目录中有多个CSV文件，使用第一个", "files", csvFiles)
	}

	target := filepath.Join(z.OutputDir, csvFiles[0])
	log.Info("读取CSV", "path", target)
	return readCSVFile(target, z.Encoding)
}

// extract 解压全部条目，拒绝解压到 dir 之外的条目
func extract(archive, dir string) (int, error) {
	r, err := zip.OpenReader(archive)
	if err != nil {
		if r != nil {
			_ = r.Close()
		}
		return 0, fmt.Errorf("打开压缩包失败 %s: %v: %w", archive, err, errs.ErrFormat)
	}
	defer r.Close()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("创建解压目录失败: %w", err)
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return 0, err
	}

	for _, f := range r.File {
		target := filepath.Join(root, f.Name)
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return 0, fmt.Errorf("entry %q escapes output directory: %w", f.Name, errs.ErrFormat)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return 0, err
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return 0, err
		}
	}
	return len(r.File), nil
}

func extractFile(f *zip.File, target string) (err error) {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("读取条目 %s 失败: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("解压 %s 失败: %w", f.Name, err)
	}
	return nil
}

// listCSV 返回目录顶层的 CSV 文件名，按字典序排序
func listCSV(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("读取目录失败: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || normalizeExt(filepath.Ext(e.Name())) != ExtCSV {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// CSVIngestor 直接读入 CSV 文件
type CSVIngestor struct {
	Encoding string
}

// Ingest 实现 Ingestor
func (c *CSVIngestor) Ingest(path string) (*table.Table, error) {
	if normalizeExt(filepath.Ext(path)) != ExtCSV {
		return nil, fmt.Errorf("%s is not a .csv file: %w", path, errs.ErrFormat)
	}
	return readCSVFile(path, c.Encoding)
}

func readCSVFile(path, encoding string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开CSV失败: %w", err)
	}
	defer f.Close()

	var opts []table.Option
	if encoding != "" {
		opts = append(opts, table.WithEncoding(encoding))
	}
	t, err := table.ReadCSV(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("读取 %s 失败: %w", path, err)
	}
	return t, nil
}

// XLSXIngestor 读入 Excel 工作表
type XLSXIngestor struct {
	SheetName string
	HeaderRow int
}

// Ingest 实现 Ingestor
func (x *XLSXIngestor) Ingest(path string) (*table.Table, error) {
	if normalizeExt(filepath.Ext(path)) != ExtXLSX {
		return nil, fmt.Errorf("%s is not a .xlsx file: %w", path, errs.ErrFormat)
	}

	// 1. 使用tealeg/xlsx打开Excel文件
	xlFile, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("xlsx open file false: %v: %w", err, errs.ErrFormat)
	}
	if len(xlFile.Sheets) == 0 {
		return nil, fmt.Errorf("excel文件中没有工作表: %w", errs.ErrFormat)
	}

	// 2. 获取工作表，未指定时取第一个
	sheet := xlFile.Sheets[0]
	if x.SheetName != "" {
		var ok bool
		if sheet, ok = xlFile.Sheet[x.SheetName]; !ok {
			return nil, fmt.Errorf("sheet %q: %w", x.SheetName, errs.ErrNotFound)
		}
	}

	// 3. 转换为表
	return sheetToTable(sheet, x.HeaderRow)
}

// sheetToTable 将 xlsx.Sheet 转换为表，headerRow 之前的行被忽略
func sheetToTable(sheet *xlsx.Sheet, headerRow int) (*table.Table, error) {
	if headerRow < 0 || headerRow >= len(sheet.Rows) {
		return nil, fmt.Errorf("header row %d not in sheet %q (%d rows): %w", headerRow, sheet.Name, len(sheet.Rows), errs.ErrFormat)
	}

	var headers []string
	for _, cell := range sheet.Rows[headerRow].Cells {
		headers = append(headers, strings.TrimSpace(cell.Value))
	}
	// 去掉表头末尾的空单元格
	for len(headers) > 0 && headers[len(headers)-1] == "" {
		headers = headers[:len(headers)-1]
	}

	records := [][]string{headers}
	for _, row := range sheet.Rows[headerRow+1:] {
		if row == nil {
			continue
		}
		rec := make([]string, len(headers))
		empty := true
		for i, cell := range row.Cells {
			if i < len(headers) { // 确保不超出列数范围
				rec[i] = cell.Value
				if cell.Value != "" {
					empty = false
				}
			}
		}
		if !empty {
			records = append(records, rec)
		}
	}
	return table.FromRecords(records)
}
