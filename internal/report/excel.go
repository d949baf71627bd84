package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

const (
	sizeSheet    = "Position Size"
	capitalSheet = "Capital Required"
	riskSheet    = "Risk Amount"
)

// WriteGridXLSX 将仓位矩阵写入 Excel，每个指标一个工作表。
func WriteGridXLSX(g Grid, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("report: 创建目录 %s 失败: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	fx.SetSheetName(fx.GetSheetName(0), sizeSheet)
	for _, name := range []string{capitalSheet, riskSheet} {
		if _, err := fx.NewSheet(name); err != nil {
			return fmt.Errorf("report: 创建工作表 %s 失败: %w", name, err)
		}
	}

	headerStyle, err := fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"1F4E79"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("report: 创建表头样式失败: %w", err)
	}
	numFmt := "0.000"
	valueStyle, err := fx.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return fmt.Errorf("report: 创建数值样式失败: %w", err)
	}

	sheets := []struct {
		name  string
		value func(GridCell) float64
	}{
		{sizeSheet, func(c GridCell) float64 { return c.PositionSize }},
		{capitalSheet, func(c GridCell) float64 { return c.CapitalRequired }},
		{riskSheet, func(c GridCell) float64 { return c.RiskAmount }},
	}

	for _, sheet := range sheets {
		if err := writeGridSheet(fx, sheet.name, g, sheet.value, headerStyle, valueStyle); err != nil {
			return err
		}
	}

	if err := fx.SaveAs(path); err != nil {
		return fmt.Errorf("report: 保存 %s 失败: %w", path, err)
	}
	return nil
}

func writeGridSheet(fx *excelize.File, sheet string, g Grid, value func(GridCell) float64, headerStyle, valueStyle int) error {
	set := func(col, row int, v interface{}) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return fx.SetCellValue(sheet, cell, v)
	}

	if err := set(1, 1, "Risk % \\ Stop distance"); err != nil {
		return fmt.Errorf("report: 写入表头失败: %w", err)
	}
	for j, d := range g.StopDistances {
		if err := set(j+2, 1, d); err != nil {
			return fmt.Errorf("report: 写入表头失败: %w", err)
		}
	}

	for i, row := range g.Cells {
		if err := set(1, i+2, g.RiskLevels[i]); err != nil {
			return fmt.Errorf("report: 写入风险比例失败: %w", err)
		}
		for j, c := range row {
			var v interface{} = value(c)
			if c.Err != "" {
				v = c.Err
			}
			if err := set(j+2, i+2, v); err != nil {
				return fmt.Errorf("report: 写入单元格失败: %w", err)
			}
		}
	}

	lastCol, err := excelize.CoordinatesToCellName(len(g.StopDistances)+1, 1)
	if err != nil {
		return err
	}
	if err := fx.SetCellStyle(sheet, "A1", lastCol, headerStyle); err != nil {
		return fmt.Errorf("report: 设置表头样式失败: %w", err)
	}
	if len(g.Cells) > 0 {
		bottomRight, err := excelize.CoordinatesToCellName(len(g.StopDistances)+1, len(g.Cells)+1)
		if err != nil {
			return err
		}
		if err := fx.SetCellStyle(sheet, "B2", bottomRight, valueStyle); err != nil {
			return fmt.Errorf("report: 设置数值样式失败: %w", err)
		}
	}
	return fx.SetColWidth(sheet, "A", "A", 24)
}
