package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/plantlog/internal/localstore"
	"github.com/jgoulah/plantlog/pkg/models"
)

func TestApplyFeederEdit(t *testing.T) {
	r := models.NewDayRecord("2026-01-20")

	require.NoError(t, applyFeederEdit(&r, "F1.start=1200"))
	require.NoError(t, applyFeederEdit(&r, "f1.END = 950 "))
	assert.Equal(t, models.FeederReading{Start: "1200", End: "950"}, r.Feeders[models.FeederF1])

	assert.Error(t, applyFeederEdit(&r, "F9.start=1"))
	assert.Error(t, applyFeederEdit(&r, "F1.middle=1"))
	assert.Error(t, applyFeederEdit(&r, "F1start=1"))
	assert.Error(t, applyFeederEdit(&r, "F1.start"))
}

func TestApplyTurbineEdit(t *testing.T) {
	r := models.NewDayRecord("2026-01-20")

	require.NoError(t, applyTurbineEdit(&r, "A.previous=1000"))
	require.NoError(t, applyTurbineEdit(&r, "a.pres=1100"))
	require.NoError(t, applyTurbineEdit(&r, "A.hours=20"))
	assert.Equal(t, models.TurbineReading{Previous: "1000", Present: "1100", Hours: "20"}, r.Turbines[models.TurbineA])

	assert.Error(t, applyTurbineEdit(&r, "E.present=1"))
	assert.Error(t, applyTurbineEdit(&r, "A.rate=1"))
}

func TestParseDate(t *testing.T) {
	got, err := parseDate("2026-01-20")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC), got)

	got, err = parseDate("7d")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, -7), got, 24*time.Hour)

	_, err = parseDate("last week")
	assert.Error(t, err)
}

func TestFilterDates(t *testing.T) {
	dates := []string{"2026-01-19", "2026-01-20", "2026-01-21", "2026-01-22"}
	since := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 1, 21, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, dates, filterDates(dates, nil, nil))
	assert.Equal(t, []string{"2026-01-20", "2026-01-21"}, filterDates(dates, &since, &until))
	assert.Equal(t, []string{"2026-01-20", "2026-01-21", "2026-01-22"}, filterDates(dates, &since, nil))
}

func TestMonthOrCurrent(t *testing.T) {
	m, err := monthOrCurrent("")
	require.NoError(t, err)
	assert.True(t, models.IsMonthKey(m))

	m, err = monthOrCurrent("2026-01")
	require.NoError(t, err)
	assert.Equal(t, "2026-01", m)

	_, err = monthOrCurrent("2026-1")
	assert.Error(t, err)
}

func TestWriteBundleFile(t *testing.T) {
	dir := t.TempDir()
	bundle := localstore.Bundle{
		Version:  localstore.BundleVersion,
		Settings: models.DefaultSettings(),
		Days:     map[string]models.DayRecord{"2026-01-20": models.NewDayRecord("2026-01-20")},
	}

	path := filepath.Join(dir, "backup.json")
	require.NoError(t, writeBundleFile(path, bundle))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	got, err := localstore.ReadBundle(f)
	require.NoError(t, err)
	assert.Equal(t, bundle, got)

	assert.Error(t, writeBundleFile(filepath.Join(dir, "missing", "backup.json"), bundle))
}
