// Package export writes record tables as spreadsheets.
package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/siddheshvrane/solar-dashboard/internal/dashboard"
	"github.com/siddheshvrane/solar-dashboard/internal/models"
)

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// maxSheetName is Excel's limit on sheet title length.
const maxSheetName = 31

// Filename suggests a download name for src.
func Filename(src models.Source) string {
	return fmt.Sprintf("%s-records.xlsx", src)
}

// GenerateTable writes records in the order given, one row each, with the
// columns of spec. Readings are stored as numbers and missing optional
// readings as the placeholder text.
func GenerateTable(spec dashboard.TableSpec, records []models.Record) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo needs the file open, so Close is called on every path instead of deferred

	sheetName := spec.Title
	if sheetName == "" {
		sheetName = string(spec.Source)
	}
	if len(sheetName) > maxSheetName {
		sheetName = sheetName[:maxSheetName]
	}
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if sheetName != "Sheet1" {
		f.DeleteSheet("Sheet1")
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#F7FAFC"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "bottom", Color: "E2E8F0", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, col := range spec.Columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, col.Header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}

		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		width := 14.0
		if col.Field == dashboard.FieldDate {
			width = 24
		}
		if err := f.SetColWidth(sheetName, name, name, width); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for r, rec := range records {
		row := r + 2
		for c, col := range spec.Columns {
			cell, err := excelize.CoordinatesToCellName(c+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			var value interface{}
			if col.Field == dashboard.FieldDate {
				value = rec.Timestamp.Raw
			} else if v := dashboard.FieldValue(rec, col.Field); v != nil {
				value = *v
			} else {
				value = dashboard.Placeholder
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
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
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}
	return buf.Bytes(), nil
}
