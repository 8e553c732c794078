package api

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const summarySheet = "Sheet1"

var summaryHeadings = []string{
	"Employee ID", "Name", "Hire Date", "Years of Service", "Cycle",
	"Cycle Start", "Cycle End", "Entitlement", "Used", "Settled", "Balance", "Status", "Note",
}

// summaryWorkbook renders a summary as a single-sheet workbook with a
// totals row under the employee rows. The caller closes the file.
func summaryWorkbook(resp SummaryResponse) (*excelize.File, error) {
	f := excelize.NewFile()
	if _, err := f.NewSheet(summarySheet); err != nil {
		f.Close()
		return nil, err
	}

	for i, h := range summaryHeadings {
		if err := f.SetCellValue(summarySheet, cell(i, 1), h); err != nil {
			f.Close()
			return nil, err
		}
	}

	rowNo := 2
	for _, r := range resp.Rows {
		values := []any{r.EmployeeID, r.Name, r.HireDate, r.Years}
		if c := r.Cycle; c != nil {
			values = append(values, c.Label, c.CycleStart, c.CycleEnd, c.Entitlement, c.Used, c.Settled, c.Balance, c.Status)
		} else {
			values = append(values, "", "", "", 0, 0, 0, 0, "")
		}
		values = append(values, r.Note)

		for col, v := range values {
			if err := f.SetCellValue(summarySheet, cell(col, rowNo), v); err != nil {
				f.Close()
				return nil, err
			}
		}
		rowNo++
	}

	totals := map[int]any{
		0:  "Total",
		7:  resp.TotalEntitlement,
		8:  resp.TotalUsed,
		9:  resp.TotalSettled,
		10: resp.TotalBalance,
	}
	for col, v := range totals {
		if err := f.SetCellValue(summarySheet, cell(col, rowNo), v); err != nil {
			f.Close()
			return nil, err
		}
	}

	return f, nil
}

// cell converts a zero-based column and one-based row to "A1" notation.
func cell(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col+1, row)
	if err != nil {
		return fmt.Sprintf("A%d", row)
	}
	return name
}
