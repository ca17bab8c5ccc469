package prepare

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/floodaudit/floodaudit/internal/model"
)

// dateLayouts are tried in order; the first that parses wins.
var dateLayouts = []string{
	time.DateOnly,
	time.DateTime,
	"2006-01-02T15:04:05",
	time.RFC3339,
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"January 2, 2006",
	"Jan 2, 2006",
	model.DisplayLayout,
	"2 January 2006",
	"02-Jan-2006",
	"2006/01/02",
}

// parseAmount strips thousands separators and parses a currency amount.
// Empty, non-numeric and non-finite values report false.
func parseAmount(s string) (float64, bool) {
	s = strings.ReplaceAll(s, ",", "")
	return parseFinite(s)
}

// parseFinite parses a trimmed decimal number, rejecting NaN and ±Inf.
func parseFinite(s string) (float64, bool) {
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

// parseYear accepts integral numbers such as "2023", "2023.0" or " 2023 ".
func parseYear(s string) (int, bool) {
	v, ok := parseFinite(s)
	if !ok || v != math.Trunc(v) || v < 1 || v > 9999 {
		return 0, false
	}
	return int(v), true
}

// parseDate parses a calendar date, dropping any time of day. Unparseable input
// returns nil; the row is kept with the date missing.
func parseDate(s string) *model.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := model.NewDate(t)
			return &d
		}
	}
	return nil
}
