package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jgoulah/plantlog/internal/calc"
	"github.com/jgoulah/plantlog/internal/database"
	"github.com/jgoulah/plantlog/internal/daysync"
	"github.com/jgoulah/plantlog/internal/localstore"
	"github.com/jgoulah/plantlog/internal/report"
	"github.com/jgoulah/plantlog/pkg/models"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "plantlog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := zap.NewNop()
	orch := daysync.New(localstore.New(db, logger), logger)

	app := NewApp(logger)
	RegisterRoutes(app, orch)
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

const jan20 = `{
	"feeders": {"F2": {"start": "500", "end": "300"}},
	"turbines": {"A": {"previous": "1000", "present": "1100", "hours": ""}}
}`

func TestHealth(t *testing.T) {
	resp := do(t, newTestApp(t), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDay_InvalidDate(t *testing.T) {
	app := newTestApp(t)

	resp := do(t, app, http.MethodGet, "/days/2026-02-30", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]interface{}
	decode(t, resp, &body)
	assert.Equal(t, true, body["error"])

	resp = do(t, app, http.MethodPut, "/days/yesterday", jan20)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDay_SaveThenLoadLinksNextDay(t *testing.T) {
	app := newTestApp(t)

	resp := do(t, app, http.MethodPut, "/days/2026-01-20", jan20)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var saved DayResponse
	decode(t, resp, &saved)
	assert.Equal(t, "2026-01-20", saved.Record.DateKey)
	assert.Equal(t, "24", saved.Record.Turbines[models.TurbineA].Hours)
	assert.Len(t, saved.Record.Feeders, 4)
	assert.InDelta(t, 200, saved.Metrics.NetFlow, 1e-9)
	assert.Equal(t, calc.Export, saved.Metrics.Direction)
	assert.InDelta(t, 70000, saved.Metrics.GasM3, 1e-9)
	assert.InDelta(t, 70000, saved.Metrics.Turbines[models.TurbineA].GasM3, 1e-9)
	assert.Equal(t, daysync.SourceLocal, saved.Source)

	resp = do(t, app, http.MethodGet, "/days/2026-01-21", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var next DayResponse
	decode(t, resp, &next)
	assert.Equal(t, "300", next.Record.Feeders[models.FeederF2].Start)
	assert.Equal(t, "1100", next.Record.Turbines[models.TurbineA].Previous)
	assert.Equal(t, "", next.Record.Feeders[models.FeederF1].Start)
}

func TestDay_BodyDateMismatch(t *testing.T) {
	resp := do(t, newTestApp(t), http.MethodPut, "/days/2026-01-20", `{"dateKey": "2026-01-19"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMonthsAndDelete(t *testing.T) {
	app := newTestApp(t)
	require.Equal(t, http.StatusOK, do(t, app, http.MethodPut, "/days/2026-01-20", jan20).StatusCode)
	require.Equal(t, http.StatusOK, do(t, app, http.MethodPut, "/days/2026-02-01", jan20).StatusCode)

	var month struct {
		Month string              `json:"month"`
		Days  []models.DaySummary `json:"days"`
	}
	decode(t, do(t, app, http.MethodGet, "/months/2026-01", ""), &month)
	require.Len(t, month.Days, 1)
	assert.Equal(t, "2026-01-20", month.Days[0].DateKey)
	assert.InDelta(t, 100, month.Days[0].Production, 1e-9)

	assert.Equal(t, http.StatusBadRequest, do(t, app, http.MethodGet, "/months/january", "").StatusCode)

	assert.Equal(t, http.StatusNoContent, do(t, app, http.MethodDelete, "/days/2026-01-20", "").StatusCode)

	decode(t, do(t, app, http.MethodGet, "/months/2026-01", ""), &month)
	assert.Empty(t, month.Days)
}

func TestExport(t *testing.T) {
	app := newTestApp(t)
	require.Equal(t, http.StatusOK, do(t, app, http.MethodPut, "/days/2026-01-20", jan20).StatusCode)

	resp := do(t, app, http.MethodGet, "/export/2026-01.xlsx", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, report.XLSXContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "plantlog-2026-01.xlsx")

	resp = do(t, app, http.MethodGet, "/export/2026-01.txt", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "2026-01-20")
	assert.Contains(t, string(body), "Export 200.00")

	resp = do(t, app, http.MethodGet, "/export/2026-01.csv", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSettings(t *testing.T) {
	app := newTestApp(t)

	var settings models.UserSettings
	decode(t, do(t, app, http.MethodGet, "/settings", ""), &settings)
	assert.Equal(t, models.DefaultPrecision, settings.DecimalPrecision)

	resp := do(t, app, http.MethodPut, "/settings", `{"displayName": "Shift B", "decimalPrecision": 9}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, app, http.MethodPut, "/settings", `{"displayName": "Shift B", "decimalPrecision": 3}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	decode(t, do(t, app, http.MethodGet, "/settings", ""), &settings)
	assert.Equal(t, "Shift B", settings.DisplayName)
	assert.Equal(t, 3, settings.DecimalPrecision)
}
