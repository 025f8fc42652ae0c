package service

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/timesheet-api/internal/domain"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Timesheet"

var exportHeader = []any{
	"Employee", "Mon", "Tues", "Wed", "Thur", "Fri", "Sat", "Sun",
	"Jobsite", "Jobsite #", "Total",
}

// ExportFilename возвращает имя файла выгрузки табеля
func ExportFilename(ts *domain.Timesheet) string {
	owner := fmt.Sprintf("user%d", ts.OwnerID)
	if ts.Owner != nil {
		owner = ts.Owner.Username
	}
	return fmt.Sprintf("timesheet_%s_%s.xlsx", owner, ts.WeekStart.Format("2006-01-02"))
}

// writeTimesheetXLSX пишет табель одним листом: шапка, строки, итог
func writeTimesheetXLSX(ts *domain.Timesheet, w io.Writer) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return err
	}

	owner := ""
	if ts.Owner != nil {
		owner = ts.Owner.DisplayName()
	}
	meta := [][]any{
		{"Owner", owner},
		{"Week of", ts.WeekStart.Format("2006-01-02")},
		{"Notes", ts.AdditionalNotes},
	}
	line := 1
	for _, values := range meta {
		if err := setRow(f, line, values); err != nil {
			return err
		}
		line++
	}

	line++
	if err := setRow(f, line, exportHeader); err != nil {
		return err
	}
	if err := f.SetPanes(exportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      line,
		TopLeftCell: fmt.Sprintf("A%d", line+1),
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	grand := decimal.Zero
	for i := range ts.Rows {
		line++
		row := &ts.Rows[i]
		total := row.TotalHours()
		grand = grand.Add(total)

		values := []any{row.EmployeeName}
		for _, day := range row.Days() {
			values = append(values, day)
		}
		values = append(values, row.JobsiteName, row.JobsiteNum, total.InexactFloat64())
		if err := setRow(f, line, values); err != nil {
			return err
		}
	}

	line++
	totalRow := make([]any, len(exportHeader))
	totalRow[0] = "Total"
	totalRow[len(totalRow)-1] = grand.InexactFloat64()
	if err := setRow(f, line, totalRow); err != nil {
		return err
	}

	return f.Write(w)
}

func setRow(f *excelize.File, line int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, line)
	if err != nil {
		return err
	}
	return f.SetSheetRow(exportSheet, cell, &values)
}
