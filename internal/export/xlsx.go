package export

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"
)

var columns = []struct {
	header string
	width  float64
}{
	{"Timestamp", 24},
	{"Batch", 10},
	{"Session ID", 36},
	{"Reg No", 14},
	{"Name", 22},
	{"Subject", 20},
	{"Start", 10},
	{"End", 10},
	{"Location", 18},
}

// Workbook builds the attendance spreadsheet for one staged CSV file.
// Callers own closing the returned file.
func (s *Staging) Workbook(dateYMD, batchID string) (*excelize.File, error) {
	path := s.Path(dateYMD, batchID)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoStaging
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // staged lines are trusted; tolerate short rows
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	wb := excelize.NewFile()
	sheet := fmt.Sprintf("Attendance %s", dateYMD)
	if err := wb.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	header := make([]interface{}, len(columns))
	for i, col := range columns {
		header[i] = col.header
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := wb.SetColWidth(sheet, name, name, col.width); err != nil {
			return nil, err
		}
	}
	if err := wb.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}

	out := 2
	for i, row := range rows {
		if i == 0 {
			continue // header line
		}
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell, _ := excelize.CoordinatesToCellName(1, out)
		if err := wb.SetSheetRow(sheet, cell, &cells); err != nil {
			return nil, err
		}
		out++
	}
	return wb, nil
}
