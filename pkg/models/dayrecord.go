package models

import (
	"encoding/json"
	"sort"
)

// FeederID identifies one of the plant's instrumented distribution lines
type FeederID string

// TurbineID identifies one of the plant's generation units
type TurbineID string

const (
	FeederF1 FeederID = "F1"
	FeederF2 FeederID = "F2"
	FeederF3 FeederID = "F3"
	FeederF4 FeederID = "F4"

	TurbineA TurbineID = "A"
	TurbineB TurbineID = "B"
	TurbineC TurbineID = "C"
	TurbineD TurbineID = "D"
)

// DefaultHours is the operating-hours value of a turbine nobody has touched
const DefaultHours = "24"

// Feeders is the fixed, ordered feeder set every record carries
var Feeders = []FeederID{FeederF1, FeederF2, FeederF3, FeederF4}

// Turbines is the fixed, ordered turbine set every record carries
var Turbines = []TurbineID{TurbineA, TurbineB, TurbineC, TurbineD}

// FeederReading holds the raw start/end-of-day meter text for a feeder
type FeederReading struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// TurbineReading holds the raw meter text and operating hours for a turbine
type TurbineReading struct {
	Previous string `json:"previous"`
	Present  string `json:"present"`
	Hours    string `json:"hours"`
}

// DayRecord represents a single calendar date's readings for one user
type DayRecord struct {
	DateKey  string                       `json:"dateKey"` // YYYY-MM-DD
	Feeders  map[FeederID]FeederReading   `json:"feeders"`
	Turbines map[TurbineID]TurbineReading `json:"turbines"`
}

// NewDayRecord returns the blank record for a date with every feeder and turbine present
func NewDayRecord(dateKey string) DayRecord {
	r := DayRecord{
		DateKey:  dateKey,
		Feeders:  make(map[FeederID]FeederReading, len(Feeders)),
		Turbines: make(map[TurbineID]TurbineReading, len(Turbines)),
	}
	for _, id := range Feeders {
		r.Feeders[id] = FeederReading{}
	}
	for _, id := range Turbines {
		r.Turbines[id] = TurbineReading{Hours: DefaultHours}
	}
	return r
}

// Normalize returns a copy of r restricted to the fixed identifier sets, with
// missing feeders and turbines filled in from the blank record.
func (r DayRecord) Normalize() DayRecord {
	out := NewDayRecord(r.DateKey)
	for _, id := range Feeders {
		if f, ok := r.Feeders[id]; ok {
			out.Feeders[id] = f
		}
	}
	for _, id := range Turbines {
		if t, ok := r.Turbines[id]; ok {
			if t.Hours == "" {
				t.Hours = DefaultHours
			}
			out.Turbines[id] = t
		}
	}
	return out
}

// Clone returns a deep copy of r
func (r DayRecord) Clone() DayRecord {
	out := DayRecord{
		DateKey:  r.DateKey,
		Feeders:  make(map[FeederID]FeederReading, len(r.Feeders)),
		Turbines: make(map[TurbineID]TurbineReading, len(r.Turbines)),
	}
	for id, f := range r.Feeders {
		out.Feeders[id] = f
	}
	for id, t := range r.Turbines {
		out.Turbines[id] = t
	}
	return out
}

// IsFeeder reports whether id belongs to the fixed feeder set
func IsFeeder(id string) bool {
	for _, f := range Feeders {
		if string(f) == id {
			return true
		}
	}
	return false
}

// IsTurbine reports whether id belongs to the fixed turbine set
func IsTurbine(id string) bool {
	for _, t := range Turbines {
		if string(t) == id {
			return true
		}
	}
	return false
}

// MarshalCanonical encodes the record as compact JSON. Map keys are sorted by
// encoding/json, so equal records always produce identical bytes.
func (r DayRecord) MarshalCanonical() ([]byte, error) {
	return json.Marshal(r)
}

// SortDateKeys sorts and deduplicates date keys in place, returning the result
func SortDateKeys(keys []string) []string {
	sort.Strings(keys)
	out := keys[:0]
	for _, k := range keys {
		if len(out) > 0 && out[len(out)-1] == k {
			continue
		}
		out = append(out, k)
	}
	return out
}
