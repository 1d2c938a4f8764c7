package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jgoulah/plantlog/internal/api"
	"github.com/jgoulah/plantlog/internal/daysync"
	"github.com/jgoulah/plantlog/internal/report"
	"github.com/jgoulah/plantlog/pkg/models"
)

var (
	showJSON     bool
	setFeeders   []string
	setTurbines  []string
	setNoPublish bool
)

var showCmd = &cobra.Command{
	Use:   "show DATE",
	Short: "Show a day's readings and derived figures",
	Long: `Shows the readings stored for DATE (YYYY-MM-DD) with yesterday's closing
readings carried into any empty feeder start or turbine previous value.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

var setCmd = &cobra.Command{
	Use:   "set DATE",
	Short: "Record meter readings for a day",
	Long: `Updates readings for DATE and saves the day. Unspecified readings keep
their current value, including values carried from the previous day.

Examples:
  plantlog set 2026-01-20 --feeder F1.start=1200 --feeder F1.end=950
  plantlog set 2026-01-20 --turbine A.present=1100 --turbine A.hours=20`,
	Args: cobra.ExactArgs(1),
	RunE: runSet,
}

var deleteCmd = &cobra.Command{
	Use:   "delete DATE",
	Short: "Delete a day from the local log and the remote mirror",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Print the record and metrics as JSON")
	setCmd.Flags().StringArrayVar(&setFeeders, "feeder", nil, "Feeder reading as ID.start=VALUE or ID.end=VALUE (repeatable)")
	setCmd.Flags().StringArrayVar(&setTurbines, "turbine", nil, "Turbine reading as ID.previous=, ID.present= or ID.hours=VALUE (repeatable)")
	setCmd.Flags().BoolVar(&setNoPublish, "no-publish", false, "Do not publish the day's summary to MQTT/Home Assistant")
	rootCmd.AddCommand(showCmd, setCmd, deleteCmd)
}

func parseDateArg(arg string) (string, error) {
	if !models.IsDateKey(arg) {
		return "", fmt.Errorf("invalid date %q (use YYYY-MM-DD)", arg)
	}
	return arg, nil
}

func runShow(cmd *cobra.Command, args []string) error {
	dateKey, err := parseDateArg(args[0])
	if err != nil {
		return err
	}

	return withEnv(cmd, envOptions{}, func(ctx context.Context, env *appEnv) error {
		record, source := env.orch.LoadDay(ctx, dateKey)
		if showJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(api.DayResponse{Record: record, Source: source, Metrics: api.Metrics(record)})
		}
		printDay(record, source, env.orch.LoadSettings(ctx).DecimalPrecision)
		return nil
	})
}

func printDay(record models.DayRecord, source daysync.Source, precision int) {
	num := func(v float64) string { return report.FormatNumber(v, precision) }
	m := api.Metrics(record)

	fmt.Printf("%s (%s)  source: %s\n", record.DateKey, models.WeekdayLetter(record.DateKey), source)
	fmt.Println("----------------------------------------------------------------")
	fmt.Printf("%-8s  %12s  %12s  %12s\n", "Feeder", "Start", "End", "Diff")
	for _, id := range models.Feeders {
		f := record.Feeders[id]
		fmt.Printf("%-8s  %12s  %12s  %12s\n", id, f.Start, f.End, num(m.Feeders[id].Diff))
	}
	fmt.Println("----------------------------------------------------------------")
	fmt.Printf("%-8s  %10s  %10s  %5s  %10s  %8s  %12s\n", "Turbine", "Previous", "Present", "Hours", "Diff", "MW/h", "Gas m3")
	for _, id := range models.Turbines {
		t := record.Turbines[id]
		tm := m.Turbines[id]
		fmt.Printf("%-8s  %10s  %10s  %5s  %10s  %8s  %12s\n",
			id, t.Previous, t.Present, t.Hours, num(tm.Diff), num(tm.MWPerHr), num(tm.GasM3))
	}
	fmt.Println("----------------------------------------------------------------")
	fmt.Printf("Net flow:    %s MWh (%s)\n", num(m.NetFlow), m.Direction)
	fmt.Printf("Production:  %s MWh\n", num(m.Production))
	fmt.Printf("Consumption: %s MWh\n", num(m.Consumption))
	fmt.Printf("Gas:         %s m3 (%s MMscf)\n", num(m.GasM3), report.FormatNumber(m.GasMMscf, precision+2))
}

func runSet(cmd *cobra.Command, args []string) error {
	dateKey, err := parseDateArg(args[0])
	if err != nil {
		return err
	}
	if len(setFeeders) == 0 && len(setTurbines) == 0 {
		return fmt.Errorf("nothing to set: use --feeder or --turbine")
	}

	return withEnv(cmd, envOptions{publish: !setNoPublish}, func(ctx context.Context, env *appEnv) error {
		record, _ := env.orch.LoadDay(ctx, dateKey)
		for _, e := range setFeeders {
			if err := applyFeederEdit(&record, e); err != nil {
				return err
			}
		}
		for _, e := range setTurbines {
			if err := applyTurbineEdit(&record, e); err != nil {
				return err
			}
		}

		if err := env.orch.SaveDay(ctx, record); err != nil {
			return err
		}
		fmt.Printf("Saved %s\n", dateKey)
		return nil
	})
}

// splitEdit parses ID.field=value
func splitEdit(edit string) (id, field, value string, err error) {
	key, value, ok := strings.Cut(edit, "=")
	if !ok {
		return "", "", "", fmt.Errorf("invalid reading %q (want ID.field=VALUE)", edit)
	}
	id, field, ok = strings.Cut(strings.TrimSpace(key), ".")
	if !ok || id == "" || field == "" {
		return "", "", "", fmt.Errorf("invalid reading %q (want ID.field=VALUE)", edit)
	}
	return strings.ToUpper(id), strings.ToLower(field), strings.TrimSpace(value), nil
}

func applyFeederEdit(r *models.DayRecord, edit string) error {
	id, field, value, err := splitEdit(edit)
	if err != nil {
		return err
	}
	if !models.IsFeeder(id) {
		return fmt.Errorf("unknown feeder %q", id)
	}
	fid := models.FeederID(id)

	f := r.Feeders[fid]
	switch field {
	case "start":
		f.Start = value
	case "end":
		f.End = value
	default:
		return fmt.Errorf("unknown feeder field %q (start or end)", field)
	}
	r.Feeders[fid] = f
	return nil
}

func applyTurbineEdit(r *models.DayRecord, edit string) error {
	id, field, value, err := splitEdit(edit)
	if err != nil {
		return err
	}
	if !models.IsTurbine(id) {
		return fmt.Errorf("unknown turbine %q", id)
	}
	tid := models.TurbineID(id)

	t := r.Turbines[tid]
	switch field {
	case "previous", "prev":
		t.Previous = value
	case "present", "pres":
		t.Present = value
	case "hours":
		t.Hours = value
	default:
		return fmt.Errorf("unknown turbine field %q (previous, present or hours)", field)
	}
	r.Turbines[tid] = t
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	dateKey, err := parseDateArg(args[0])
	if err != nil {
		return err
	}

	return withEnv(cmd, envOptions{}, func(ctx context.Context, env *appEnv) error {
		if err := env.orch.DeleteDay(ctx, dateKey); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", dateKey)
		return nil
	})
}
