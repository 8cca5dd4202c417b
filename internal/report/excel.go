// Package report renders a monthly attendance matrix as an .xlsx workbook.
//
// The layout is fixed: one sheet named after the month, a Name column, a
// column per calendar day, and a Total column. Every data cell carries the
// four-line status text and a status color fill. Given the same matrix the
// output is always identical.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/psitech/go-attendance-backend/internal/domain"
)

const (
	headerFill  = "FF8C00"
	presentFill = "00FF00"
	halfDayFill = "FFFF00"
	absentFill  = "FF0000"

	nameColWidth  = 22.0
	dayColWidth   = 14.0
	totalColWidth = 12.0
	dataRowHeight = 48.0
)

func fillFor(status domain.DayStatus) string {
	switch status {
	case domain.StatusPresent:
		return presentFill
	case domain.StatusHalfDay:
		return halfDayFill
	default:
		return absentFill
	}
}

// Build renders the matrix into an in-memory workbook. The caller owns the
// returned file and must Close it.
func Build(m domain.MonthlyMatrix) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := m.Month.String()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := layout(f, sheet, m); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// Write renders the matrix and streams the workbook to w.
func Write(w io.Writer, m domain.MonthlyMatrix) error {
	f, err := Build(m)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func layout(f *excelize.File, sheet string, m domain.MonthlyMatrix) error {
	days := m.Month.Days()
	totalCol := days + 2 // A is Name, then one column per day

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFill}},
		Alignment: &excelize.Alignment{
			Horizontal: "center", Vertical: "center",
		},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	nameStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Color: "000000"},
		Alignment: &excelize.Alignment{Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("name style: %w", err)
	}
	totalStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{
			Horizontal: "center", Vertical: "center",
		},
	})
	if err != nil {
		return fmt.Errorf("total style: %w", err)
	}
	dayStyles := make(map[string]int, 3)
	for _, fill := range []string{presentFill, halfDayFill, absentFill} {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{fill}},
			Alignment: &excelize.Alignment{
				Horizontal: "center", Vertical: "top", WrapText: true,
			},
		})
		if err != nil {
			return fmt.Errorf("day style: %w", err)
		}
		dayStyles[fill] = id
	}

	// Header row.
	if err := setCell(f, sheet, 1, 1, "Name", headerStyle); err != nil {
		return err
	}
	for d := 1; d <= days; d++ {
		if err := setCell(f, sheet, d+1, 1, d, headerStyle); err != nil {
			return err
		}
	}
	if err := setCell(f, sheet, totalCol, 1, "Total", headerStyle); err != nil {
		return err
	}

	// One row per user.
	for i, row := range m.Rows {
		r := i + 2
		if err := setCell(f, sheet, 1, r, row.DisplayName, nameStyle); err != nil {
			return err
		}
		for d, rec := range row.Days {
			style := dayStyles[fillFor(rec.Status)]
			if err := setCell(f, sheet, d+2, r, domain.RenderCell(rec), style); err != nil {
				return err
			}
		}
		total := domain.FormatMinutes(row.TotalMinutes)
		if err := setCell(f, sheet, totalCol, r, total, totalStyle); err != nil {
			return err
		}
		if err := f.SetRowHeight(sheet, r, dataRowHeight); err != nil {
			return fmt.Errorf("row height: %w", err)
		}
	}

	if err := f.SetColWidth(sheet, "A", "A", nameColWidth); err != nil {
		return fmt.Errorf("name column width: %w", err)
	}
	firstDay, err := excelize.ColumnNumberToName(2)
	if err != nil {
		return err
	}
	lastDay, err := excelize.ColumnNumberToName(days + 1)
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, firstDay, lastDay, dayColWidth); err != nil {
		return fmt.Errorf("day column width: %w", err)
	}
	totalName, err := excelize.ColumnNumberToName(totalCol)
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, totalName, totalName, totalColWidth); err != nil {
		return fmt.Errorf("total column width: %w", err)
	}

	// Keep the header row and name column visible while scrolling.
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      1,
		YSplit:      1,
		TopLeftCell: "B2",
		ActivePane:  "bottomRight",
	}); err != nil {
		return fmt.Errorf("freeze panes: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, v any, style int) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, cell, v); err != nil {
		return fmt.Errorf("cell %s: %w", cell, err)
	}
	if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
		return fmt.Errorf("cell %s style: %w", cell, err)
	}
	return nil
}
