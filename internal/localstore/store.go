// Package localstore persists day records, the date index and user settings
// in a device-local keyed store.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/jgoulah/plantlog/pkg/models"
)

const (
	keyPrefix   = "plantlog:v1:"
	DayPrefix   = keyPrefix + "day:"
	DatesKey    = keyPrefix + "dates"
	SettingsKey = keyPrefix + "settings"
	SessionKey  = keyPrefix + "session"
)

// ErrInvalidDate is returned when a date key is not YYYY-MM-DD
var ErrInvalidDate = errors.New("invalid date key")

// KV is the keyed string storage the store is built on
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Updater is implemented by a KV that can apply several writes atomically.
// Calls made with the context passed to fn belong to the same transaction.
type Updater interface {
	Update(ctx context.Context, fn func(ctx context.Context) error) error
}

// KeyLister is implemented by a KV that can enumerate its keys
type KeyLister interface {
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Store reads and writes day records on top of a KV
type Store struct {
	kv     KV
	logger *zap.Logger

	// mu serializes read-modify-write cycles of the date index
	mu sync.Mutex
}

// New creates a Store
func New(kv KV, logger *zap.Logger) *Store {
	return &Store{kv: kv, logger: logger.Named("localstore")}
}

// DayKey returns the storage key for a date
func DayKey(dateKey string) string {
	return DayPrefix + dateKey
}

// FindDay returns the stored record for dateKey, or nil when there is none.
// Read and decode failures are logged and reported as absent.
func (s *Store) FindDay(ctx context.Context, dateKey string) *models.DayRecord {
	raw, ok, err := s.kv.Get(ctx, DayKey(dateKey))
	if err != nil {
		s.logger.Warn("reading day failed, treating as absent", zap.String("date", dateKey), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	var r models.DayRecord
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		s.logger.Warn("decoding day failed, treating as absent", zap.String("date", dateKey), zap.Error(err))
		return nil
	}
	r.DateKey = dateKey
	r = r.Normalize()
	return &r
}

// LoadDay returns the stored record for dateKey or a blank one
func (s *Store) LoadDay(ctx context.Context, dateKey string) models.DayRecord {
	if r := s.FindDay(ctx, dateKey); r != nil {
		return *r
	}
	return models.NewDayRecord(dateKey)
}

// SaveDay writes the record and adds its date to the index. When the KV is
// an Updater both writes commit together; otherwise a failed index write
// leaves the record stored and the error is returned.
func (s *Store) SaveDay(ctx context.Context, r models.DayRecord) error {
	if !models.IsDateKey(r.DateKey) {
		return fmt.Errorf("%w: %q", ErrInvalidDate, r.DateKey)
	}

	data, err := r.Normalize().MarshalCanonical()
	if err != nil {
		return fmt.Errorf("encoding day: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(ctx, func(ctx context.Context) error {
		if err := s.kv.Set(ctx, DayKey(r.DateKey), string(data)); err != nil {
			return fmt.Errorf("saving day %s: %w", r.DateKey, err)
		}

		dates, err := s.Dates(ctx)
		if err != nil {
			return err
		}
		return s.writeDates(ctx, append(dates, r.DateKey))
	})
}

// DeleteDay removes the record and its index entry
func (s *Store) DeleteDay(ctx context.Context, dateKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(ctx, func(ctx context.Context) error {
		if err := s.kv.Remove(ctx, DayKey(dateKey)); err != nil {
			return fmt.Errorf("deleting day %s: %w", dateKey, err)
		}

		dates, err := s.Dates(ctx)
		if err != nil {
			return err
		}
		kept := dates[:0]
		for _, d := range dates {
			if d != dateKey {
				kept = append(kept, d)
			}
		}
		return s.writeDates(ctx, kept)
	})
}

func (s *Store) update(ctx context.Context, fn func(ctx context.Context) error) error {
	if u, ok := s.kv.(Updater); ok {
		return u.Update(ctx, fn)
	}
	return fn(ctx)
}

// Dates returns the sorted list of dates with a saved record. A missing or
// corrupt index is rebuilt from the stored day keys when the KV can list them.
func (s *Store) Dates(ctx context.Context) ([]string, error) {
	raw, ok, err := s.kv.Get(ctx, DatesKey)
	if err != nil {
		return nil, fmt.Errorf("reading date index: %w", err)
	}
	if !ok {
		return s.scanDates(ctx)
	}

	var dates []string
	if err := json.Unmarshal([]byte(raw), &dates); err != nil {
		s.logger.Warn("date index is corrupt, rebuilding from stored days", zap.Error(err))
		return s.scanDates(ctx)
	}
	return models.SortDateKeys(dates), nil
}

// scanDates lists the dates of every stored day key
func (s *Store) scanDates(ctx context.Context) ([]string, error) {
	lister, ok := s.kv.(KeyLister)
	if !ok {
		return []string{}, nil
	}
	keys, err := lister.Keys(ctx, DayPrefix)
	if err != nil {
		return nil, fmt.Errorf("listing day keys: %w", err)
	}

	dates := make([]string, 0, len(keys))
	for _, k := range keys {
		if d := strings.TrimPrefix(k, DayPrefix); models.IsDateKey(d) {
			dates = append(dates, d)
		}
	}
	return models.SortDateKeys(dates), nil
}

func (s *Store) writeDates(ctx context.Context, dates []string) error {
	data, err := json.Marshal(models.SortDateKeys(dates))
	if err != nil {
		return fmt.Errorf("encoding date index: %w", err)
	}
	if err := s.kv.Set(ctx, DatesKey, string(data)); err != nil {
		return fmt.Errorf("saving date index: %w", err)
	}
	return nil
}

// DatesInMonth returns the indexed dates whose key starts with month (YYYY-MM)
func (s *Store) DatesInMonth(ctx context.Context, month string) ([]string, error) {
	dates, err := s.Dates(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, d := range dates {
		if strings.HasPrefix(d, month) {
			out = append(out, d)
		}
	}
	return out, nil
}

// LoadSettings returns the saved settings, or the defaults when none are readable
func (s *Store) LoadSettings(ctx context.Context) models.UserSettings {
	raw, ok, err := s.kv.Get(ctx, SettingsKey)
	if err != nil {
		s.logger.Warn("reading settings failed, using defaults", zap.Error(err))
		return models.DefaultSettings()
	}
	if !ok {
		return models.DefaultSettings()
	}

	settings := models.DefaultSettings()
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		s.logger.Warn("decoding settings failed, using defaults", zap.Error(err))
		return models.DefaultSettings()
	}
	return settings
}

// SaveSettings writes the settings
func (s *Store) SaveSettings(ctx context.Context, settings models.UserSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := s.kv.Set(ctx, SettingsKey, string(data)); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}
