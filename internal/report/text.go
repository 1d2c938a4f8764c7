package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// WriteText writes a plain-text report suitable for pasting into a message
func WriteText(w io.Writer, title string, days []DayRow, months []MonthRow, precision int) error {
	num := func(v float64) string { return FormatNumber(v, precision) }

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "%s\n", title)
	fmt.Fprintf(tw, "%s\n\n", strings.Repeat("=", len(title)))

	fmt.Fprintln(tw, "Date\tDay\tProduction MWh\tFlow MWh\tDirection\tConsumption MWh\tGas m3\tGas MMscf\t")
	for _, d := range days {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			d.DateKey, d.Weekday, num(d.Production), num(d.Flow), d.Direction,
			num(d.Consumption), num(d.GasM3), FormatNumber(d.GasMMscf, precision+2))
	}

	if len(months) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "Month\tDays\tProduction MWh\tFlow MWh\tConsumption MWh\tGas m3\tGas MMscf\t")
		for _, m := range months {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t\n",
				m.Month, m.Days, num(m.Production), monthFlowText(m, precision),
				num(m.Consumption), num(m.GasM3), FormatNumber(m.GasMMscf, precision+2))
		}
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("writing text report: %w", err)
	}
	return nil
}

func monthFlowText(m MonthRow, precision int) string {
	if label, v, ok := m.NetFlow(); ok {
		return fmt.Sprintf("%s %s", label, FormatNumber(v, precision))
	}
	return fmt.Sprintf("Export %s / Withdrawal %s",
		FormatNumber(m.Export, precision), FormatNumber(m.Withdrawal, precision))
}
