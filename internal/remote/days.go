package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jgoulah/plantlog/internal/calc"
	"github.com/jgoulah/plantlog/pkg/models"
)

// FetchDay returns the user's record for dateKey, or nil when none is stored
func (s *Store) FetchDay(ctx context.Context, userID uuid.UUID, dateKey string) (*models.DayRecord, error) {
	var record *models.DayRecord
	err := s.run(func() error {
		var dayID uuid.UUID
		err := s.db.QueryRowContext(ctx,
			`SELECT id FROM daily_data WHERE user_id = $1 AND date_key = $2`,
			userID, dateKey,
		).Scan(&dayID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("querying day: %w", err)
		}

		r := models.DayRecord{
			DateKey:  dateKey,
			Feeders:  make(map[models.FeederID]models.FeederReading),
			Turbines: make(map[models.TurbineID]models.TurbineReading),
		}
		if err := s.loadFeeders(ctx, userID, dayID, &r); err != nil {
			return err
		}
		if err := s.loadTurbines(ctx, userID, dayID, &r); err != nil {
			return err
		}

		r = r.Normalize()
		record = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Store) loadFeeders(ctx context.Context, userID, dayID uuid.UUID, r *models.DayRecord) error {
	rows, err := s.db.QueryContext(ctx, `
        SELECT f.name, f.start_reading, f.end_reading
        FROM feeders f
        JOIN daily_data d ON d.id = f.day_id
        WHERE f.day_id = $1 AND d.user_id = $2
    `, dayID, userID)
	if err != nil {
		return fmt.Errorf("querying feeders: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var f models.FeederReading
		if err := rows.Scan(&name, &f.Start, &f.End); err != nil {
			return fmt.Errorf("scanning feeder: %w", err)
		}
		r.Feeders[models.FeederID(name)] = f
	}
	return rows.Err()
}

func (s *Store) loadTurbines(ctx context.Context, userID, dayID uuid.UUID, r *models.DayRecord) error {
	rows, err := s.db.QueryContext(ctx, `
        SELECT t.name, t.previous_reading, t.present_reading, t.hours
        FROM turbines t
        JOIN daily_data d ON d.id = t.day_id
        WHERE t.day_id = $1 AND d.user_id = $2
    `, dayID, userID)
	if err != nil {
		return fmt.Errorf("querying turbines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var t models.TurbineReading
		if err := rows.Scan(&name, &t.Previous, &t.Present, &t.Hours); err != nil {
			return fmt.Errorf("scanning turbine: %w", err)
		}
		r.Turbines[models.TurbineID(name)] = t
	}
	return rows.Err()
}

// UpsertDay creates or updates the parent day row and its feeder and turbine rows
func (s *Store) UpsertDay(ctx context.Context, userID uuid.UUID, record models.DayRecord) error {
	record = record.Normalize()
	summary := calc.Summarize(record)

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var dayID uuid.UUID
		err := tx.QueryRowContext(ctx, `
            INSERT INTO daily_data (id, user_id, date_key, production, export_val, consumption)
            VALUES ($1, $2, $3, $4, $5, $6)
            ON CONFLICT (user_id, date_key) DO UPDATE
            SET production = EXCLUDED.production,
                export_val = EXCLUDED.export_val,
                consumption = EXCLUDED.consumption,
                updated_at = CURRENT_TIMESTAMP
            RETURNING id
        `, uuid.New(), userID, record.DateKey, summary.Production, summary.ExportVal, summary.Consumption).Scan(&dayID)
		if err != nil {
			return fmt.Errorf("upserting day: %w", err)
		}

		for _, id := range models.Feeders {
			f := record.Feeders[id]
			if _, err := tx.ExecContext(ctx, `
                INSERT INTO feeders (id, day_id, name, start_reading, end_reading)
                VALUES ($1, $2, $3, $4, $5)
                ON CONFLICT (day_id, name) DO UPDATE
                SET start_reading = EXCLUDED.start_reading, end_reading = EXCLUDED.end_reading
            `, uuid.New(), dayID, string(id), f.Start, f.End); err != nil {
				return fmt.Errorf("upserting feeder %s: %w", id, err)
			}
		}

		for _, id := range models.Turbines {
			t := record.Turbines[id]
			if _, err := tx.ExecContext(ctx, `
                INSERT INTO turbines (id, day_id, name, previous_reading, present_reading, hours)
                VALUES ($1, $2, $3, $4, $5, $6)
                ON CONFLICT (day_id, name) DO UPDATE
                SET previous_reading = EXCLUDED.previous_reading,
                    present_reading = EXCLUDED.present_reading,
                    hours = EXCLUDED.hours
            `, uuid.New(), dayID, string(id), t.Previous, t.Present, t.Hours); err != nil {
				return fmt.Errorf("upserting turbine %s: %w", id, err)
			}
		}

		return nil
	})
}

// DeleteDay removes the feeder and turbine rows of a day and then the day row
// itself. Nothing is removed unless every step succeeds.
func (s *Store) DeleteDay(ctx context.Context, userID uuid.UUID, dateKey string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		children := []struct{ table, query string }{
			{"feeders", `DELETE FROM feeders WHERE day_id IN (SELECT id FROM daily_data WHERE user_id = $1 AND date_key = $2)`},
			{"turbines", `DELETE FROM turbines WHERE day_id IN (SELECT id FROM daily_data WHERE user_id = $1 AND date_key = $2)`},
		}
		for _, c := range children {
			if _, err := tx.ExecContext(ctx, c.query, userID, dateKey); err != nil {
				return fmt.Errorf("deleting %s: %w", c.table, err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM daily_data WHERE user_id = $1 AND date_key = $2`, userID, dateKey,
		); err != nil {
			return fmt.Errorf("deleting day: %w", err)
		}
		return nil
	})
}

// ListMonth returns the stored aggregates for every saved day in month (YYYY-MM)
func (s *Store) ListMonth(ctx context.Context, userID uuid.UUID, month string) ([]models.DaySummary, error) {
	var out []models.DaySummary
	err := s.run(func() error {
		rows, err := s.db.QueryContext(ctx, `
            SELECT id, date_key, production, export_val, consumption
            FROM daily_data
            WHERE user_id = $1 AND date_key LIKE $2
            ORDER BY date_key
        `, userID, month+"-%")
		if err != nil {
			return fmt.Errorf("querying month: %w", err)
		}
		defer rows.Close()

		out = nil
		for rows.Next() {
			var sum models.DaySummary
			if err := rows.Scan(&sum.ID, &sum.DateKey, &sum.Production, &sum.ExportVal, &sum.Consumption); err != nil {
				return fmt.Errorf("scanning summary: %w", err)
			}
			out = append(out, sum)
		}
		return rows.Err()
	})
	return out, err
}
