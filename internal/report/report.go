// Package report turns day records into daily and monthly tables and writes
// them as spreadsheets or plain text. All figures come from package calc.
package report

import (
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/jgoulah/plantlog/internal/calc"
	"github.com/jgoulah/plantlog/pkg/models"
)

// DayRow is one day's reportable metrics
type DayRow struct {
	DateKey     string
	Weekday     string
	Production  float64
	Flow        float64
	Direction   calc.Direction
	Consumption float64
	GasM3       float64
	GasMMscf    float64
}

// MonthRow aggregates the days of one YYYY-MM month
type MonthRow struct {
	Month       string
	Days        int
	Production  float64
	Export      float64 // sum of positive daily flows
	Withdrawal  float64 // sum of negative daily flows, as a positive number
	Consumption float64
	GasM3       float64
	GasMMscf    float64
}

// Mixed reports whether the month has both export and withdrawal days
func (m MonthRow) Mixed() bool {
	return m.Export > 0 && m.Withdrawal > 0
}

// NetFlow returns the single flow column of an unmixed month. ok is false for
// mixed months, which must show export and withdrawal separately.
func (m MonthRow) NetFlow() (label string, value float64, ok bool) {
	switch {
	case m.Mixed():
		return "", 0, false
	case m.Withdrawal > 0:
		return "Withdrawal", m.Withdrawal, true
	default:
		return "Export", m.Export, true
	}
}

// Build derives a DayRow for every record, sorted by date
func Build(records []models.DayRecord) []DayRow {
	rows := make([]DayRow, 0, len(records))
	for _, r := range records {
		flow := calc.FeederNetFlow(r)
		gas := calc.TotalGas(r)
		rows = append(rows, DayRow{
			DateKey:     r.DateKey,
			Weekday:     models.WeekdayLetter(r.DateKey),
			Production:  calc.TurbineNetProduction(r),
			Flow:        flow,
			Direction:   calc.FlowDirection(flow),
			Consumption: calc.Consumption(r),
			GasM3:       gas,
			GasMMscf:    calc.CubicMetersToMMscf(gas),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].DateKey < rows[j].DateKey })
	return rows
}

// Monthly groups day rows by the first 7 characters of their date key
func Monthly(rows []DayRow) []MonthRow {
	byMonth := make(map[string]*MonthRow)
	var order []string

	for _, r := range rows {
		key := models.MonthKey(r.DateKey)
		m, ok := byMonth[key]
		if !ok {
			m = &MonthRow{Month: key}
			byMonth[key] = m
			order = append(order, key)
		}
		m.Days++
		m.Production += r.Production
		m.Consumption += r.Consumption
		m.GasM3 += r.GasM3
		if r.Flow >= 0 {
			m.Export += r.Flow
		} else {
			m.Withdrawal += -r.Flow
		}
	}

	sort.Strings(order)
	out := make([]MonthRow, 0, len(order))
	for _, key := range order {
		m := byMonth[key]
		m.GasMMscf = calc.CubicMetersToMMscf(m.GasM3)
		out = append(out, *m)
	}
	return out
}

// FormatNumber groups thousands and rounds to precision decimals
func FormatNumber(v float64, precision int) string {
	if precision < 0 {
		precision = 0
	}
	return humanize.FormatFloat("#,###."+strings.Repeat("#", precision), v)
}
