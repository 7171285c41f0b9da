package processor

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"
)

// ExportSummary 将描述统计保存为 Excel，数值列和文本列各一个工作表
func ExportSummary(s Summary, filePath string) error {
	f := excelize.NewFile()
	defer f.Close()

	numericRows := [][]interface{}{{"column", "count", "mean", "std", "min", "25%", "50%", "75%", "max"}}
	for _, n := range s.Numeric {
		numericRows = append(numericRows, []interface{}{
			n.Column, n.Count, cell(n.Mean), cell(n.Std), cell(n.Min), cell(n.Q25), cell(n.Median), cell(n.Q75), cell(n.Max),
		})
	}
	categoricalRows := [][]interface{}{{"column", "count", "unique", "top", "freq"}}
	for _, c := range s.Categorical {
		categoricalRows = append(categoricalRows, []interface{}{c.Column, c.Count, c.Unique, c.Top, c.Freq})
	}

	// 默认的 Sheet1 改名为 numeric
	if err := f.SetSheetName("Sheet1", "numeric"); err != nil {
		return fmt.Errorf("重命名工作表失败: %w", err)
	}
	if _, err := f.NewSheet("categorical"); err != nil {
		return fmt.Errorf("创建工作表失败: %w", err)
	}

	for sheet, rows := range map[string][][]interface{}{"numeric": numericRows, "categorical": categoricalRows} {
		for i, row := range rows {
			addr, _ := excelize.CoordinatesToCellName(1, i+1)
			if err := f.SetSheetRow(sheet, addr, &row); err != nil {
				return fmt.Errorf("写入%s第%d行失败: %w", sheet, i+1, err)
			}
		}
	}

	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("保存Excel文件失败: %w", err)
	}
	return nil
}

// cell 缺失的统计量留空
func cell(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}
