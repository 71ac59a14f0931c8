package excel

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"shrimp/internal/errors"
	"shrimp/internal/pipeline"
)

// reportSheet is the single worksheet of the forecast report.
const reportSheet = "Semanas"

// WriteReport renders the four forecast week tables as one stacked worksheet:
// the first block carries the header row, the following blocks repeat only
// data rows, one blank row apart. Every row is labeled with its week and
// start date in the first column.
func WriteReport(weeks []pipeline.WeekTable) ([]byte, error) {
	if len(weeks) == 0 {
		return nil, errors.InvalidInput("no forecast weeks to export")
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(reportSheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	header := append([]string{"Semana", "Cliente"}, weeks[0].Columns...)
	if err := setRow(f, 1, toCells(header)); err != nil {
		return nil, err
	}

	rowNum := 2
	for wi, week := range weeks {
		label := fmt.Sprintf("Semana %d (%s)", week.Week, week.Date.Format("2006-01-02"))
		for ri, client := range week.Clients {
			cells := make([]interface{}, 0, len(week.Columns)+2)
			cells = append(cells, label, client)
			for _, v := range week.Values[ri] {
				cells = append(cells, v)
			}
			if err := setRow(f, rowNum, cells); err != nil {
				return nil, err
			}
			rowNum++
		}
		if wi < len(weeks)-1 {
			rowNum++ // blank separator row
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(reportSheet, cell, &cells)
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
