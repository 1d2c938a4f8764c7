package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jgoulah/plantlog/internal/calc"
	"github.com/jgoulah/plantlog/pkg/models"
)

func record(dateKey, start, end string) models.DayRecord {
	r := models.NewDayRecord(dateKey)
	r.Feeders[models.FeederF2] = models.FeederReading{Start: start, End: end}
	r.Turbines[models.TurbineA] = models.TurbineReading{Previous: "1000", Present: "1100", Hours: "24"}
	return r
}

func sampleRecords() []models.DayRecord {
	return []models.DayRecord{
		record("2026-02-02", "500", "300"),  // export 200
		record("2026-01-21", "100", "400"),  // withdrawal 300
		record("2026-01-20", "500", "300"),  // export 200
		record("2026-02-01", "1000", "900"), // export 100
	}
}

func TestBuild_UsesDerivedMetrics(t *testing.T) {
	rows := Build(sampleRecords())

	require.Len(t, rows, 4)
	assert.Equal(t, "2026-01-20", rows[0].DateKey)
	assert.Equal(t, "T", rows[0].Weekday)
	assert.InDelta(t, 200, rows[0].Flow, 1e-9)
	assert.Equal(t, calc.Export, rows[0].Direction)
	assert.InDelta(t, 100, rows[0].Production, 1e-9)
	assert.InDelta(t, -100, rows[0].Consumption, 1e-9)
	assert.InDelta(t, 70000, rows[0].GasM3, 1e-9)
	assert.InDelta(t, calc.CubicMetersToMMscf(70000), rows[0].GasMMscf, 1e-12)

	assert.Equal(t, calc.Withdrawal, rows[1].Direction)
}

func TestMonthly_SplitsExportAndWithdrawal(t *testing.T) {
	months := Monthly(Build(sampleRecords()))
	require.Len(t, months, 2)

	jan := months[0]
	assert.Equal(t, "2026-01", jan.Month)
	assert.Equal(t, 2, jan.Days)
	assert.InDelta(t, 200, jan.Export, 1e-9)
	assert.InDelta(t, 300, jan.Withdrawal, 1e-9)
	assert.True(t, jan.Mixed())
	_, _, ok := jan.NetFlow()
	assert.False(t, ok)

	feb := months[1]
	assert.Equal(t, "2026-02", feb.Month)
	assert.False(t, feb.Mixed())
	label, v, ok := feb.NetFlow()
	require.True(t, ok)
	assert.Equal(t, "Export", label)
	assert.InDelta(t, 300, v, 1e-9)
	assert.InDelta(t, 200, feb.Production, 1e-9)
	assert.InDelta(t, 140000, feb.GasM3, 1e-9)
}

func TestMonthly_WithdrawalOnlyMonth(t *testing.T) {
	months := Monthly(Build([]models.DayRecord{record("2026-03-01", "0", "50")}))
	require.Len(t, months, 1)

	label, v, ok := months[0].NetFlow()
	require.True(t, ok)
	assert.Equal(t, "Withdrawal", label)
	assert.InDelta(t, 50, v, 1e-9)
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "1,234.50", FormatNumber(1234.5, 2))
	assert.Equal(t, "70,000", FormatNumber(70000, 0))
	assert.Equal(t, "-200.0", FormatNumber(-200, 1))
}

func TestWriteText(t *testing.T) {
	rows := Build(sampleRecords())
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, "Plant report 2026", rows, Monthly(rows), 2))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Plant report 2026"))
	assert.Contains(t, out, "2026-01-20")
	assert.Contains(t, out, "withdrawal")
	assert.Contains(t, out, "Export 200.00 / Withdrawal 300.00")
	assert.Contains(t, out, "Export 300.00")
}

func TestWriteXLSX(t *testing.T) {
	rows := Build(sampleRecords())
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, rows, Monthly(rows), 2))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Daily", "Monthly"}, f.GetSheetList())

	raw := excelize.Options{RawCellValue: true}
	v, err := f.GetCellValue("Daily", "A2", raw)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-20", v)
	v, err = f.GetCellValue("Daily", "D2", raw)
	require.NoError(t, err)
	assert.Equal(t, "200", v)

	// January is mixed: no net flow, separate columns
	v, err = f.GetCellValue("Monthly", "D2", raw)
	require.NoError(t, err)
	assert.Equal(t, "", v)
	v, err = f.GetCellValue("Monthly", "E2", raw)
	require.NoError(t, err)
	assert.Equal(t, "Mixed", v)
	v, err = f.GetCellValue("Monthly", "G2", raw)
	require.NoError(t, err)
	assert.Equal(t, "300", v)

	// February is export only
	v, err = f.GetCellValue("Monthly", "D3", raw)
	require.NoError(t, err)
	assert.Equal(t, "300", v)
	v, err = f.GetCellValue("Monthly", "E3", raw)
	require.NoError(t, err)
	assert.Equal(t, "Export", v)
}
