package prepare

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name   string
		s      string
		want   float64
		wantOK bool
	}{
		{"plain", "1000000", 1000000, true},
		{"thousands", "1,000,000", 1000000, true},
		{"decimals", "1,234.56", 1234.56, true},
		{"padded", "  500  ", 500, true},
		{"negative", "-12.5", -12.5, true},
		{"zero", "0", 0, true},
		{"empty", "", 0, false},
		{"whitespace", "   ", 0, false},
		{"only commas", ",,", 0, false},
		{"text", "abc", 0, false},
		{"nan", "NaN", 0, false},
		{"inf", "Inf", 0, false},
		{"negative inf", "-Infinity", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseAmount(tt.s)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseYear(t *testing.T) {
	tests := []struct {
		name   string
		s      string
		want   int
		wantOK bool
	}{
		{"integer", "2023", 2023, true},
		{"float form", "2023.0", 2023, true},
		{"padded", " 2022 ", 2022, true},
		{"fractional", "2023.5", 0, false},
		{"empty", "", 0, false},
		{"text", "FY2023", 0, false},
		{"zero", "0", 0, false},
		{"huge", "1e12", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseYear(tt.s)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name string
		s    string
		want string
	}{
		{"iso", "2023-01-01", "January-01-2023"},
		{"iso datetime", "2023-06-30 14:05:00", "June-30-2023"},
		{"iso T", "2023-06-30T14:05:00", "June-30-2023"},
		{"rfc3339", "2023-06-30T23:00:00+08:00", "June-30-2023"},
		{"us padded", "03/04/2022", "March-04-2022"},
		{"us short", "3/4/2022", "March-04-2022"},
		{"long month", "July 9, 2022", "July-09-2022"},
		{"short month", "Jul 9, 2022", "July-09-2022"},
		{"display", "July-09-2022", "July-09-2022"},
		{"padded", "  2022-07-09 ", "July-09-2022"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseDate(tt.s)
			if assert.NotNil(t, got) {
				assert.Equal(t, tt.want, got.Label())
			}
		})
	}
}

func TestParseDateInvalid(t *testing.T) {
	for _, s := range []string{"", "  ", "not a date", "2023-13-45", "31/31/2020"} {
		assert.Nil(t, parseDate(s), s)
	}
}

func TestParseFiniteRejectsNonFinite(t *testing.T) {
	_, ok := parseFinite("nan")
	assert.False(t, ok)
	v, ok := parseFinite("1e308")
	assert.True(t, ok)
	assert.False(t, math.IsInf(v, 0))
}
