package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jgoulah/plantlog/pkg/models"
)

// BundleVersion is written into every exported bundle
const BundleVersion = 1

// Bundle is a portable backup of everything stored on the device
type Bundle struct {
	Version  int                         `json:"version"`
	Settings models.UserSettings         `json:"settings"`
	Days     map[string]models.DayRecord `json:"days"`
}

// ExportBundle collects every indexed day record and the settings
func (s *Store) ExportBundle(ctx context.Context) (Bundle, error) {
	dates, err := s.Dates(ctx)
	if err != nil {
		return Bundle{}, err
	}

	b := Bundle{
		Version:  BundleVersion,
		Settings: s.LoadSettings(ctx),
		Days:     make(map[string]models.DayRecord, len(dates)),
	}
	for _, d := range dates {
		if r := s.FindDay(ctx, d); r != nil {
			b.Days[d] = *r
		}
	}
	return b, nil
}

// ImportBundle writes every record and the settings from b. Existing records
// with the same date are replaced.
func (s *Store) ImportBundle(ctx context.Context, b Bundle) error {
	if b.Version != BundleVersion {
		return fmt.Errorf("unsupported bundle version %d", b.Version)
	}

	for dateKey, r := range b.Days {
		r.DateKey = dateKey
		if err := s.SaveDay(ctx, r); err != nil {
			return fmt.Errorf("importing %s: %w", dateKey, err)
		}
	}
	return s.SaveSettings(ctx, b.Settings)
}

// WriteBundle encodes b as indented JSON
func WriteBundle(w io.Writer, b Bundle) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("encoding bundle: %w", err)
	}
	return nil
}

// ReadBundle decodes a bundle written by WriteBundle
func ReadBundle(r io.Reader) (Bundle, error) {
	var b Bundle
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return Bundle{}, fmt.Errorf("decoding bundle: %w", err)
	}
	return b, nil
}
