package provision

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/warp/leave-ledger/leave"
)

// LoadWorkbook reads employees from the first sheet of an .xlsx file.
//
// Row 1 is a header. Columns: employee_id, balance, leave dates (comma
// separated, optional). Rows with an empty id are skipped.
func LoadWorkbook(path string) ([]leave.Employee, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in excel file")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	var employees []leave.Employee
	for rowIndex, row := range rows {
		if rowIndex == 0 {
			continue
		}
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		if len(row) < 2 {
			return nil, fmt.Errorf("row %d: missing balance column", rowIndex+1)
		}

		balance, err := strconv.Atoi(strings.TrimSpace(row[1]))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid balance %q", rowIndex+1, row[1])
		}

		e := leave.Employee{
			ID:      strings.TrimSpace(row[0]),
			Balance: balance,
		}
		if len(row) > 2 {
			for _, d := range strings.Split(row[2], ",") {
				if d = strings.TrimSpace(d); d != "" {
					e.History = append(e.History, d)
				}
			}
		}
		employees = append(employees, e)
	}

	return employees, nil
}
