package model

import (
	"encoding/json"
	"time"
)

// DisplayLayout is the human-readable date form used in tables and exports.
const DisplayLayout = "January-02-2006"

// Date is a calendar date without time of day, always in UTC.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar day.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// Label returns the display form, or "" for a nil date.
func (d *Date) Label() string {
	if d == nil {
		return ""
	}
	return d.Format(DisplayLayout)
}

// DaysUntil returns the whole number of calendar days from d to other.
// The result is negative when other falls before d. Days are counted on Unix
// seconds because time.Duration saturates at about 292 years.
func (d Date) DaysUntil(other Date) int {
	from, to := NewDate(d.Time), NewDate(other.Time)
	return int((to.Unix() - from.Unix()) / 86400)
}

// MarshalJSON encodes the date in its display form.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(DisplayLayout))
}

// UnmarshalJSON accepts the display form or an ISO date.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for _, layout := range []string{DisplayLayout, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			*d = NewDate(t)
			return nil
		}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	*d = NewDate(t)
	return nil
}
