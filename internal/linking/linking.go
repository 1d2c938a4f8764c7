// Package linking carries the previous day's closing meter readings into a
// day's blank opening readings. It is applied on every read and never stored.
package linking

import "github.com/jgoulah/plantlog/pkg/models"

// PreviousDateKey returns the calendar day before dateKey. It returns false
// when dateKey is not a valid YYYY-MM-DD date.
func PreviousDateKey(dateKey string) (string, bool) {
	t, err := models.ParseDateKey(dateKey)
	if err != nil {
		return "", false
	}
	return t.AddDate(0, 0, -1).Format(models.DateLayout), true
}

// Link returns a copy of today where every empty feeder start takes
// yesterday's end and every empty turbine previous takes yesterday's present.
// Explicit entries are never overwritten and neither argument is modified.
func Link(today models.DayRecord, yesterday *models.DayRecord) models.DayRecord {
	out := today.Clone()
	if yesterday == nil {
		return out
	}

	for id, f := range out.Feeders {
		prev, ok := yesterday.Feeders[id]
		if f.Start == "" && ok && prev.End != "" {
			f.Start = prev.End
			out.Feeders[id] = f
		}
	}
	for id, t := range out.Turbines {
		prev, ok := yesterday.Turbines[id]
		if t.Previous == "" && ok && prev.Present != "" {
			t.Previous = prev.Present
			out.Turbines[id] = t
		}
	}
	return out
}
