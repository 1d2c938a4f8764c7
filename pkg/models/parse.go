package models

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical date key format
const DateLayout = "2006-01-02"

// MonthLayout is the YYYY-MM month key format
const MonthLayout = "2006-01"

// ParseReading parses raw meter text. It returns false for empty, malformed or
// non-finite input, in which case the value is 0.
func ParseReading(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ReadingValue is ParseReading with the failure case collapsed to 0
func ReadingValue(s string) float64 {
	v, _ := ParseReading(s)
	return v
}

// ClampHours normalizes an operating-hours entry into [1, 24].
// Empty input means a full day; anything non-numeric, zero or negative becomes 1.
func ClampHours(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultHours
	}
	v, ok := ParseReading(s)
	if !ok || v <= 0 {
		return "1"
	}
	if v > 24 {
		return DefaultHours
	}
	if v < 1 {
		return "1"
	}
	return s
}

// ParseDateKey parses a YYYY-MM-DD key in UTC
func ParseDateKey(dateKey string) (time.Time, error) {
	return time.Parse(DateLayout, dateKey)
}

// IsDateKey reports whether dateKey is a valid canonical date
func IsDateKey(dateKey string) bool {
	_, err := ParseDateKey(dateKey)
	return err == nil
}

// MonthKey returns the YYYY-MM prefix of a date key, or "" if it is too short
func MonthKey(dateKey string) string {
	if len(dateKey) < 7 {
		return ""
	}
	return dateKey[:7]
}

// IsMonthKey reports whether month is a valid YYYY-MM key
func IsMonthKey(month string) bool {
	_, err := time.Parse(MonthLayout, month)
	return err == nil
}

// WeekdayLetter returns the first letter of the weekday for calendar display,
// or "" when the date does not parse.
func WeekdayLetter(dateKey string) string {
	t, err := ParseDateKey(dateKey)
	if err != nil {
		return ""
	}
	return t.Weekday().String()[:1]
}
