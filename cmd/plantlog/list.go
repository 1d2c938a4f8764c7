package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jgoulah/plantlog/internal/calc"
	"github.com/jgoulah/plantlog/internal/report"
	"github.com/jgoulah/plantlog/pkg/models"
)

var listMonth string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the saved days of a month",
	Long:  `Displays the summary of every saved day in a month, from the remote mirror when signed in and reachable, otherwise from the local log.`,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listMonth, "month", "", "Month to list as YYYY-MM (default: current month)")
	rootCmd.AddCommand(listCmd)
}

// monthOrCurrent validates a YYYY-MM flag, defaulting to the current month
func monthOrCurrent(month string) (string, error) {
	if month == "" {
		return time.Now().Format(models.MonthLayout), nil
	}
	if !models.IsMonthKey(month) {
		return "", fmt.Errorf("invalid month %q (use YYYY-MM)", month)
	}
	return month, nil
}

func runList(cmd *cobra.Command, args []string) error {
	month, err := monthOrCurrent(listMonth)
	if err != nil {
		return err
	}

	return withEnv(cmd, envOptions{}, func(ctx context.Context, env *appEnv) error {
		data, err := env.orch.ListMonth(ctx, month)
		if err != nil {
			return fmt.Errorf("listing %s: %w", month, err)
		}

		if len(data) == 0 {
			fmt.Printf("No data found for %s\n", month)
			return nil
		}

		precision := env.orch.LoadSettings(ctx).DecimalPrecision
		num := func(v float64) string { return report.FormatNumber(v, precision) }

		fmt.Printf("\n%s Plant Log:\n", month)
		fmt.Println("--------------------------------------------------------------------")
		fmt.Printf("%-12s  %3s  %14s  %14s  %11s  %14s\n", "Date", "Day", "Production", "Net Flow", "Direction", "Consumption")
		fmt.Println("--------------------------------------------------------------------")

		var production, consumption float64
		for _, d := range data {
			fmt.Printf("%-12s  %3s  %14s  %14s  %11s  %14s\n",
				d.DateKey, models.WeekdayLetter(d.DateKey), num(d.Production), num(d.ExportVal),
				calc.FlowDirection(d.ExportVal), num(d.Consumption))
			production += d.Production
			consumption += d.Consumption
		}

		fmt.Println("--------------------------------------------------------------------")
		fmt.Printf("Total: %s MWh produced, %s MWh consumed (%d days)\n", num(production), num(consumption), len(data))
		return nil
	})
}
