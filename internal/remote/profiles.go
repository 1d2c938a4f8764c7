package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jgoulah/plantlog/pkg/models"
)

// FetchProfile returns the user's settings, or nil when no profile row exists
func (s *Store) FetchProfile(ctx context.Context, userID uuid.UUID) (*models.UserSettings, error) {
	var settings *models.UserSettings
	err := s.run(func() error {
		var p models.UserSettings
		err := s.db.QueryRowContext(ctx,
			`SELECT display_name, decimal_precision FROM profiles WHERE id = $1`, userID,
		).Scan(&p.DisplayName, &p.DecimalPrecision)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("querying profile: %w", err)
		}
		settings = &p
		return nil
	})
	return settings, err
}

// UpsertProfile writes the user's settings
func (s *Store) UpsertProfile(ctx context.Context, userID uuid.UUID, settings models.UserSettings) error {
	return s.run(func() error {
		_, err := s.db.ExecContext(ctx, `
            INSERT INTO profiles (id, display_name, decimal_precision)
            VALUES ($1, $2, $3)
            ON CONFLICT (id) DO UPDATE
            SET display_name = EXCLUDED.display_name,
                decimal_precision = EXCLUDED.decimal_precision,
                updated_at = CURRENT_TIMESTAMP
        `, userID, settings.DisplayName, settings.DecimalPrecision)
		if err != nil {
			return fmt.Errorf("upserting profile: %w", err)
		}
		return nil
	})
}

// SetCredentials attaches an email and password hash to a user's profile
func (s *Store) SetCredentials(ctx context.Context, userID uuid.UUID, email, passwordHash string) error {
	return s.run(func() error {
		_, err := s.db.ExecContext(ctx, `
            INSERT INTO profiles (id, email, password_hash)
            VALUES ($1, $2, $3)
            ON CONFLICT (id) DO UPDATE
            SET email = EXCLUDED.email,
                password_hash = EXCLUDED.password_hash,
                updated_at = CURRENT_TIMESTAMP
        `, userID, email, passwordHash)
		if err != nil {
			return fmt.Errorf("setting credentials: %w", err)
		}
		return nil
	})
}

// LookupCredentials returns the user id and password hash registered for email
func (s *Store) LookupCredentials(ctx context.Context, email string) (uuid.UUID, string, error) {
	var userID uuid.UUID
	var hash string
	err := s.run(func() error {
		err := s.db.QueryRowContext(ctx,
			`SELECT id, password_hash FROM profiles WHERE email = $1 AND password_hash IS NOT NULL`, email,
		).Scan(&userID, &hash)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("querying credentials: %w", err)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, "", err
	}
	return userID, hash, nil
}
