package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Entries"

// WriteXLSX writes t as a workbook to w.
func WriteXLSX(w io.Writer, t Table) error {
	f, err := buildWorkbook(t)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

// SaveXLSX stores t under dir and returns the file path.
func SaveXLSX(dir string, t Table, from, to time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}
	f, err := buildWorkbook(t)
	if err != nil {
		return "", err
	}
	defer f.Close()

	filePath := filepath.Join(dir, FileName(from, to))
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}
	return filePath, nil
}

// FileName is the attachment name used for downloads.
func FileName(from, to time.Time) string {
	return fmt.Sprintf("entries_%s_to_%s.xlsx", from.Format("2006-01-02"), to.Format("2006-01-02"))
}

func buildWorkbook(t Table) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(defaultSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	_ = f.SetCellValue(defaultSheet, "A1", t.Title)
	lastCol, _ := excelize.ColumnNumberToName(max(len(t.Header), 1))
	_ = f.MergeCell(defaultSheet, "A1", lastCol+"1")

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(defaultSheet, "A1", "A1", titleStyle)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, h := range t.Header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(defaultSheet, cell, h)
		_ = f.SetCellStyle(defaultSheet, cell, cell, headerStyle)
	}

	for r, row := range t.Rows {
		for c, v := range row {
			if v == "" {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+3)
			_ = f.SetCellValue(defaultSheet, cell, v)
		}
	}

	_ = f.SetColWidth(defaultSheet, "A", "B", 12)
	if len(t.Header) > 2 {
		_ = f.SetColWidth(defaultSheet, "C", lastCol, 24)
	}
	_ = f.SetPanes(defaultSheet, &excelize.Panes{Freeze: true, XSplit: 2, YSplit: 2, TopLeftCell: "C3", ActivePane: "bottomRight"})
	return f, nil
}
