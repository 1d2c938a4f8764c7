package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jgoulah/plantlog/internal/report"
)

var (
	exportMonth  string
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a monthly report",
	Long: `Writes the daily figures and the monthly totals of a month as an xlsx
workbook or a plain-text table. Months with both export and withdrawal
days report the two totals separately.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportMonth, "month", "", "Month to export as YYYY-MM (default: current month)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "xlsx", "Report format: xlsx or text")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default: plantlog-MONTH.xlsx, or stdout for text)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	month, err := monthOrCurrent(exportMonth)
	if err != nil {
		return err
	}
	if exportFormat != "xlsx" && exportFormat != "text" {
		return fmt.Errorf("unknown format %q (xlsx or text)", exportFormat)
	}

	return withEnv(cmd, envOptions{}, func(ctx context.Context, env *appEnv) error {
		records, err := env.orch.MonthRecords(ctx, month)
		if err != nil {
			return fmt.Errorf("loading %s: %w", month, err)
		}
		if len(records) == 0 {
			return fmt.Errorf("no data found for %s", month)
		}

		precision := env.orch.LoadSettings(ctx).DecimalPrecision
		days := report.Build(records)
		months := report.Monthly(days)

		var buf bytes.Buffer
		if exportFormat == "xlsx" {
			err = report.WriteXLSX(&buf, days, months, precision)
		} else {
			err = report.WriteText(&buf, "Plant log "+month, days, months, precision)
		}
		if err != nil {
			return err
		}

		out := exportOut
		if out == "" && exportFormat == "xlsx" {
			out = fmt.Sprintf("plantlog-%s.xlsx", month)
		}
		if out == "" || out == "-" {
			_, err := io.Copy(os.Stdout, &buf)
			return err
		}

		if err := os.WriteFile(out, buf.Bytes(), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", out, err)
		}
		fmt.Printf("Wrote %d days to %s\n", len(days), out)
		return nil
	})
}
