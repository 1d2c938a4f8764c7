package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jgoulah/plantlog/internal/calc"
	"github.com/jgoulah/plantlog/internal/daysync"
	"github.com/jgoulah/plantlog/internal/report"
	"github.com/jgoulah/plantlog/pkg/models"
)

// Service is the day log as seen by the HTTP handlers
type Service interface {
	LoadDay(ctx context.Context, dateKey string) (models.DayRecord, daysync.Source)
	SaveDay(ctx context.Context, record models.DayRecord) error
	DeleteDay(ctx context.Context, dateKey string) error
	ListMonth(ctx context.Context, month string) ([]models.DaySummary, error)
	MonthRecords(ctx context.Context, month string) ([]models.DayRecord, error)
	LoadSettings(ctx context.Context) models.UserSettings
	SaveSettings(ctx context.Context, settings models.UserSettings) error
}

// DayResponse is a linked record with its derived figures
type DayResponse struct {
	Record  models.DayRecord `json:"record"`
	Source  daysync.Source   `json:"source"`
	Metrics DayMetrics       `json:"metrics"`
}

// DayMetrics holds every figure derived from a record
type DayMetrics struct {
	Feeders     map[models.FeederID]models.FeederComputation `json:"feeders"`
	Turbines    map[models.TurbineID]TurbineMetrics          `json:"turbines"`
	NetFlow     float64                                      `json:"netFlow"`
	Direction   calc.Direction                               `json:"direction"`
	Production  float64                                      `json:"production"`
	Consumption float64                                      `json:"consumption"`
	GasM3       float64                                      `json:"gasM3"`
	GasMMscf    float64                                      `json:"gasMMscf"`
}

// TurbineMetrics is a turbine row plus its gas estimate
type TurbineMetrics struct {
	models.TurbineComputation
	GasM3 float64 `json:"gasM3"`
}

// Metrics derives DayMetrics from a record
func Metrics(r models.DayRecord) DayMetrics {
	m := DayMetrics{
		Feeders:  make(map[models.FeederID]models.FeederComputation, len(models.Feeders)),
		Turbines: make(map[models.TurbineID]TurbineMetrics, len(models.Turbines)),
	}
	for _, id := range models.Feeders {
		m.Feeders[id] = calc.FeederRow(r, id)
	}
	for _, id := range models.Turbines {
		m.Turbines[id] = TurbineMetrics{TurbineComputation: calc.TurbineRow(r, id), GasM3: calc.TurbineGas(r, id)}
	}
	m.NetFlow = calc.FeederNetFlow(r)
	m.Direction = calc.FlowDirection(m.NetFlow)
	m.Production = calc.TurbineNetProduction(r)
	m.Consumption = calc.Consumption(r)
	m.GasM3 = calc.TotalGas(r)
	m.GasMMscf = calc.CubicMetersToMMscf(m.GasM3)
	return m
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, svc Service) {
	app.Get("/days/:date", func(c *fiber.Ctx) error {
		dateKey, err := dateParam(c)
		if err != nil {
			return err
		}
		record, source := svc.LoadDay(c.UserContext(), dateKey)
		return c.JSON(DayResponse{Record: record, Source: source, Metrics: Metrics(record)})
	})

	app.Put("/days/:date", func(c *fiber.Ctx) error {
		dateKey, err := dateParam(c)
		if err != nil {
			return err
		}

		var record models.DayRecord
		if err := c.BodyParser(&record); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
		}
		if record.DateKey != "" && record.DateKey != dateKey {
			return fiber.NewError(fiber.StatusBadRequest, "dateKey in body does not match path")
		}
		record.DateKey = dateKey

		if err := svc.SaveDay(c.UserContext(), record); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		saved, source := svc.LoadDay(c.UserContext(), dateKey)
		return c.JSON(DayResponse{Record: saved, Source: source, Metrics: Metrics(saved)})
	})

	app.Delete("/days/:date", func(c *fiber.Ctx) error {
		dateKey, err := dateParam(c)
		if err != nil {
			return err
		}
		if err := svc.DeleteDay(c.UserContext(), dateKey); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Get("/months/:month", func(c *fiber.Ctx) error {
		month, err := monthParam(c)
		if err != nil {
			return err
		}
		sums, err := svc.ListMonth(c.UserContext(), month)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{
			"month": month,
			"days":  sums,
		})
	})

	app.Get("/export/:month.:format", func(c *fiber.Ctx) error {
		month, err := monthParam(c)
		if err != nil {
			return err
		}
		format := c.Params("format")
		if format != "xlsx" && format != "txt" {
			return fiber.NewError(fiber.StatusBadRequest, "format must be xlsx or txt")
		}

		records, err := svc.MonthRecords(c.UserContext(), month)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		precision := svc.LoadSettings(c.UserContext()).DecimalPrecision
		days := report.Build(records)
		months := report.Monthly(days)

		var buf bytes.Buffer
		filename := fmt.Sprintf("plantlog-%s.%s", month, format)
		if format == "xlsx" {
			err = report.WriteXLSX(&buf, days, months, precision)
		} else {
			err = report.WriteText(&buf, "Plant log "+month, days, months, precision)
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		c.Attachment(filename)
		if format == "xlsx" {
			c.Set(fiber.HeaderContentType, report.XLSXContentType)
		} else {
			c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		}
		return c.Send(buf.Bytes())
	})

	app.Get("/settings", func(c *fiber.Ctx) error {
		return c.JSON(svc.LoadSettings(c.UserContext()))
	})

	app.Put("/settings", func(c *fiber.Ctx) error {
		var settings models.UserSettings
		if err := c.BodyParser(&settings); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
		}
		if err := svc.SaveSettings(c.UserContext(), settings); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(settings)
	})
}

func dateParam(c *fiber.Ctx) (string, error) {
	dateKey := c.Params("date")
	if !models.IsDateKey(dateKey) {
		return "", fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid date %q, use YYYY-MM-DD", dateKey))
	}
	return dateKey, nil
}

func monthParam(c *fiber.Ctx) (string, error) {
	month := c.Params("month")
	if !models.IsMonthKey(month) {
		return "", fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid month %q, use YYYY-MM", month))
	}
	return month, nil
}
