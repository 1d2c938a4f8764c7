package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	dailySheet   = "Daily"
	monthlySheet = "Monthly"
)

// XLSXContentType is the MIME type of the spreadsheet written by WriteXLSX
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WriteXLSX writes a workbook with a Daily sheet and a Monthly sheet. Mixed
// months get separate export and withdrawal columns filled in; unmixed months
// use the single Net Flow column.
func WriteXLSX(w io.Writer, days []DayRow, months []MonthRow, precision int) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", dailySheet); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}
	if _, err := f.NewSheet(monthlySheet); err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}

	numFmt := "#,##0"
	if precision > 0 {
		numFmt += "." + strings.Repeat("0", precision)
	}
	style, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return fmt.Errorf("creating number style: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	dailyHeader := []interface{}{"Date", "Day", "Production MWh", "Flow MWh", "Direction", "Consumption MWh", "Gas m3", "Gas MMscf"}
	if err := writeRow(f, dailySheet, 1, dailyHeader); err != nil {
		return err
	}
	for i, d := range days {
		row := []interface{}{d.DateKey, d.Weekday, d.Production, d.Flow, string(d.Direction), d.Consumption, d.GasM3, d.GasMMscf}
		if err := writeRow(f, dailySheet, i+2, row); err != nil {
			return err
		}
	}

	monthlyHeader := []interface{}{"Month", "Days", "Production MWh", "Net Flow MWh", "Flow Direction", "Export MWh", "Withdrawal MWh", "Consumption MWh", "Gas m3", "Gas MMscf"}
	if err := writeRow(f, monthlySheet, 1, monthlyHeader); err != nil {
		return err
	}
	for i, m := range months {
		row := []interface{}{m.Month, m.Days, m.Production, nil, nil, nil, nil, m.Consumption, m.GasM3, m.GasMMscf}
		if label, v, ok := m.NetFlow(); ok {
			row[3], row[4] = v, label
		} else {
			row[4], row[5], row[6] = "Mixed", m.Export, m.Withdrawal
		}
		if err := writeRow(f, monthlySheet, i+2, row); err != nil {
			return err
		}
	}

	for _, sheet := range []struct {
		name string
		rows int
		cols int
	}{
		{dailySheet, len(days) + 1, len(dailyHeader)},
		{monthlySheet, len(months) + 1, len(monthlyHeader)},
	} {
		lastCol, _ := excelize.ColumnNumberToName(sheet.cols)
		if err := f.SetCellStyle(sheet.name, "A1", lastCol+"1", bold); err != nil {
			return fmt.Errorf("styling header: %w", err)
		}
		if sheet.rows > 1 {
			if err := f.SetCellStyle(sheet.name, "C2", fmt.Sprintf("%s%d", lastCol, sheet.rows), style); err != nil {
				return fmt.Errorf("styling numbers: %w", err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing %s row %d: %w", sheet, row, err)
	}
	return nil
}
