package httpapi

import (
	"bytes"
	"fmt"

	"sleepwise/internal/domain"

	"github.com/xuri/excelize/v2"
)

const insightsSheet = "Insights"

// InsightsExportHeader 导出表头
var InsightsExportHeader = []string{
	"ID",
	"Date (UTC)",
	"Sleep Duration (h)",
	"Physical Activity (min)",
	"Resting Heart Rate",
	"Daily Steps",
	"Stress Level",
	"Gender",
	"Age",
	"Height (cm)",
	"Weight (kg)",
	"Sleep Quality",
	"Disorder Level",
	"Disorder",
}

var insightsColumnWidths = []float64{38, 20, 18, 22, 18, 14, 12, 10, 8, 12, 12, 14, 14, 14}

// GenerateInsightsExport 生成 insights 导出 Excel；records 为空时只有表头
func GenerateInsightsExport(records []*domain.Insight) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo 之前文件必须保持打开，出错路径上各自 Close

	index, err := f.NewSheet(insightsSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range InsightsExportHeader {
		if err := setCellValue(f, col+1, 1, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell: %w", err)
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		cell := fmt.Sprintf("%s1", name)
		if err := f.SetCellStyle(insightsSheet, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		if err := f.SetColWidth(insightsSheet, name, name, insightsColumnWidths[col]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, in := range records {
		row := i + 2 // 第 1 行是表头
		for col, value := range insightRowValues(in) {
			if value == nil {
				continue
			}
			if err := setCellValue(f, col+1, row, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell value at row %d, col %d: %w", row, col+1, err)
			}
		}
	}

	// 冻结表头
	if err := f.SetPanes(insightsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

// insightRowValues 与 InsightsExportHeader 一一对应，nil 表示空单元格
func insightRowValues(in *domain.Insight) []any {
	values := []any{
		in.ID,
		in.Date.Format("2006-01-02 15:04:05"),
		in.SleepDuration,
		in.PhysicalActivity,
		intValue(in.RestingHeartrate),
		intValue(in.DailySteps),
		intValue(in.StressLevel),
		nil,
		intValue(in.Age),
		floatValue(in.Height),
		floatValue(in.Weight),
		in.SleepQuality,
		nil,
		nil,
	}
	if in.Gender != nil {
		values[7] = string(*in.Gender)
	}
	if in.DisorderLevel != nil {
		values[12] = *in.DisorderLevel
		values[13] = domain.DisorderLabel(*in.DisorderLevel)
	}
	return values
}

func setCellValue(f *excelize.File, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(insightsSheet, cell, value)
}

func intValue(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func floatValue(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
