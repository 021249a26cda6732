package report

import (
	"bytes"
	"fmt"
	"time"

	"clinic-monitor/internal/models"

	"github.com/xuri/excelize/v2"
)

// CycleSummaryHeader 周期概览表头
var CycleSummaryHeader = []string{
	"Tenant ID",
	"Evaluated Clinics",
	"Triggered",
	"Skipped",
	"Evaluated At",
}

// CycleAlertsHeader 触发明细表头
var CycleAlertsHeader = []string{
	"Tenant ID",
	"Clinic ID",
	"Alert Type",
	"Alert ID",
}

// CycleSkippedHeader 跳过明细表头
var CycleSkippedHeader = []string{
	"Tenant ID",
	"Clinic ID",
	"Alert Type",
	"Skip Reason",
}

// GenerateCycleReport 生成一轮监控评估的 Excel 报表
// 三个工作表：概览、触发明细、跳过明细（含跳过原因，供运营复查）
func GenerateCycleReport(evaluations []models.TenantEvaluation) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo 需要文件保持打开，出错路径各自 Close

	headerStyle, err := newHeaderStyle(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	summaryRows := make([][]interface{}, 0, len(evaluations))
	alertRows := make([][]interface{}, 0)
	skippedRows := make([][]interface{}, 0)
	for _, eval := range evaluations {
		summaryRows = append(summaryRows, []interface{}{
			eval.TenantID,
			eval.EvaluatedClinics,
			eval.Triggered,
			eval.Skipped,
			eval.EvaluatedAt.Format("2006-01-02 15:04:05"),
		})
		for _, alert := range eval.Alerts {
			alertRows = append(alertRows, []interface{}{
				eval.TenantID,
				alert.ClinicID,
				alert.Type,
				alert.AlertID,
			})
		}
		for _, detail := range eval.SkippedDetails {
			skippedRows = append(skippedRows, []interface{}{
				eval.TenantID,
				detail.ClinicID,
				detail.Type,
				detail.Reason,
			})
		}
	}

	sheets := []struct {
		name    string
		headers []string
		widths  []float64
		rows    [][]interface{}
	}{
		{"Summary", CycleSummaryHeader, []float64{38, 18, 12, 12, 20}, summaryRows},
		{"Alerts", CycleAlertsHeader, []float64{38, 38, 18, 38}, alertRows},
		{"Skipped", CycleSkippedHeader, []float64{38, 38, 18, 28}, skippedRows},
	}

	for i, sheet := range sheets {
		index, err := f.NewSheet(sheet.name)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet %s: %w", sheet.name, err)
		}
		if i == 0 {
			f.SetActiveSheet(index)
		}
		if err := writeSheet(f, sheet.name, sheet.headers, sheet.widths, sheet.rows, headerStyle); err != nil {
			f.Close()
			return nil, err
		}
	}

	// 删除默认的 Sheet1
	f.DeleteSheet("Sheet1")

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

// ComplianceReportHeader 合规到期报表表头
var ComplianceReportHeader = []string{
	"Tenant ID",
	"Clinic ID",
	"Document",
	"Expires At",
	"Status",
}

// GenerateComplianceReport 生成合规文件到期报表
// 按 deadline（now + thresholdDays）区分 expiring_soon 与 expired 两档
func GenerateComplianceReport(tenantID string, documents []models.ComplianceDocument, thresholdDays int, now time.Time) ([]byte, error) {
	f := excelize.NewFile()

	headerStyle, err := newHeaderStyle(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	deadline := now.AddDate(0, 0, thresholdDays)
	rows := make([][]interface{}, 0, len(documents))
	for _, doc := range documents {
		var status string
		switch {
		case doc.ExpiresAt.Before(now):
			status = "expired"
		case !doc.ExpiresAt.After(deadline):
			status = "expiring_soon"
		default:
			status = "valid"
		}
		rows = append(rows, []interface{}{
			tenantID,
			doc.ClinicID,
			doc.Name,
			doc.ExpiresAt.Format("2006-01-02"),
			status,
		})
	}

	sheetName := "Compliance"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := writeSheet(f, sheetName, ComplianceReportHeader, []float64{38, 38, 30, 15, 15}, rows, headerStyle); err != nil {
		f.Close()
		return nil, err
	}
	f.DeleteSheet("Sheet1")

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

// newHeaderStyle 表头样式（加粗、底色、边框、居中）
func newHeaderStyle(f *excelize.File) (int, error) {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
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
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create header style: %w", err)
	}
	return style, nil
}

// writeSheet 写入表头、列宽、数据行并冻结首行
func writeSheet(f *excelize.File, sheetName string, headers []string, widths []float64, rows [][]interface{}, headerStyle int) error {
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
	}

	for i := range headers {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if i < len(widths) && widths[i] > 0 {
			if err := f.SetColWidth(sheetName, col, col, widths[i]); err != nil {
				return fmt.Errorf("failed to set column width: %w", err)
			}
		}
	}

	for rowIdx, row := range rows {
		for colIdx, value := range row {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return fmt.Errorf("failed to set cell value %s: %w", cell, err)
			}
		}
	}

	// 冻结表头
	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		Split:       false,
		XSplit:      0,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}

	return nil
}
