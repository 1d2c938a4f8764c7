// Package calc derives energy-flow and gas figures from a day's raw readings.
// Every function is pure; malformed readings count as zero.
package calc

import "github.com/jgoulah/plantlog/pkg/models"

// MinHours keeps the generation rate finite when hours is zero or missing
const MinHours = 1e-6

// CubicFeetPerCubicMeter converts gas volumes for MMscf reporting
const CubicFeetPerCubicMeter = 35.3146667

// Direction describes the sign of a day's feeder flow
type Direction string

const (
	Export     Direction = "export"
	Withdrawal Direction = "withdrawal"
	Balanced   Direction = "balanced"
)

// FeederRow returns the numeric view of one feeder
func FeederRow(r models.DayRecord, id models.FeederID) models.FeederComputation {
	f := r.Feeders[id]
	start := models.ReadingValue(f.Start)
	end := models.ReadingValue(f.End)
	return models.FeederComputation{Start: start, End: end, Diff: start - end}
}

// FeederNetFlow is the signed sum of start - end over every feeder.
// Positive is net export, negative is net withdrawal.
func FeederNetFlow(r models.DayRecord) float64 {
	var total float64
	for _, id := range models.Feeders {
		total += FeederRow(r, id).Diff
	}
	return total
}

// TurbineRow returns the numeric view of one turbine
func TurbineRow(r models.DayRecord, id models.TurbineID) models.TurbineComputation {
	t := r.Turbines[id]
	prev := models.ReadingValue(t.Previous)
	pres := models.ReadingValue(t.Present)
	hours := models.ReadingValue(t.Hours)
	if hours < MinHours {
		hours = MinHours
	}
	diff := pres - prev
	return models.TurbineComputation{
		Prev:    prev,
		Pres:    pres,
		Hours:   hours,
		Diff:    diff,
		MWPerHr: diff / hours,
	}
}

// TurbineNetProduction is the sum of present - previous over every turbine
func TurbineNetProduction(r models.DayRecord) float64 {
	var total float64
	for _, id := range models.Turbines {
		total += TurbineRow(r, id).Diff
	}
	return total
}

// Consumption is what the plant used itself: production minus net export
func Consumption(r models.DayRecord) float64 {
	return TurbineNetProduction(r) - FeederNetFlow(r)
}

// GasForTurbine estimates gas use in cubic meters. The multiplier is picked by
// generation rate, each tier including its upper bound.
func GasForTurbine(diffMwh, mwPerHr float64) float64 {
	switch {
	case mwPerHr <= 3:
		return diffMwh * 1000
	case mwPerHr <= 5:
		return diffMwh * 700
	case mwPerHr <= 8:
		return diffMwh * 500
	default:
		return diffMwh * 420
	}
}

// CubicMetersToMMscf converts cubic meters to million standard cubic feet
func CubicMetersToMMscf(m3 float64) float64 {
	return m3 * CubicFeetPerCubicMeter / 1_000_000
}

// TurbineGas is the gas estimate for a single turbine
func TurbineGas(r models.DayRecord, id models.TurbineID) float64 {
	row := TurbineRow(r, id)
	return GasForTurbine(row.Diff, row.MWPerHr)
}

// TotalGas sums the per-turbine gas estimates; turbines are tiered independently
func TotalGas(r models.DayRecord) float64 {
	var total float64
	for _, id := range models.Turbines {
		total += TurbineGas(r, id)
	}
	return total
}

// FlowDirection labels a feeder net flow
func FlowDirection(flow float64) Direction {
	switch {
	case flow > 0:
		return Export
	case flow < 0:
		return Withdrawal
	default:
		return Balanced
	}
}

// Summarize builds the aggregate row for a record
func Summarize(r models.DayRecord) models.DaySummary {
	return models.DaySummary{
		DateKey:     r.DateKey,
		Production:  TurbineNetProduction(r),
		ExportVal:   FeederNetFlow(r),
		Consumption: Consumption(r),
		GasM3:       TotalGas(r),
	}
}
