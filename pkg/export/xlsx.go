package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

type Table struct {
	Title   string
	Headers []string
	Rows    [][]any
}

// ColumnChart places a column chart next to the table, plotting ValueCol
// against CategoryCol (zero-based column indexes into the table).
type ColumnChart struct {
	Title       string
	CategoryCol int
	ValueCol    int
}

func WriteXLSX(w io.Writer, sheet string, t Table, ch *ColumnChart) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	header := make([]any, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(t.Headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return err
	}

	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return err
		}
	}
	lastCol, err := excelize.ColumnNumberToName(len(t.Headers))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		return err
	}

	if ch != nil && len(t.Rows) > 0 {
		if err := addColumnChart(f, sheet, len(t.Headers), len(t.Rows), ch); err != nil {
			return err
		}
	}
	return f.Write(w)
}

func addColumnChart(f *excelize.File, sheet string, cols, rows int, ch *ColumnChart) error {
	catCol, err := excelize.ColumnNumberToName(ch.CategoryCol + 1)
	if err != nil {
		return err
	}
	valCol, err := excelize.ColumnNumberToName(ch.ValueCol + 1)
	if err != nil {
		return err
	}
	anchor, err := excelize.CoordinatesToCellName(cols+2, 2)
	if err != nil {
		return err
	}
	end := rows + 1
	return f.AddChart(sheet, anchor, &excelize.Chart{
		Type: excelize.Col,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("'%s'!$%s$1", sheet, valCol),
			Categories: fmt.Sprintf("'%s'!$%s$2:$%s$%d", sheet, catCol, catCol, end),
			Values:     fmt.Sprintf("'%s'!$%s$2:$%s$%d", sheet, valCol, valCol, end),
		}},
		Title:  []excelize.RichTextRun{{Text: ch.Title}},
		Legend: excelize.ChartLegend{Position: "bottom"},
	})
}
