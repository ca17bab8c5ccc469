package model

import (
	"encoding/json"
	"strings"
)

// Anomaly is a bit set of data-quality flags raised while preparing a project.
// Flagged rows are kept; the flags only mark them for review.
type Anomaly uint8

const (
	// AnomalyInvertedDates marks a completion date earlier than the start date.
	AnomalyInvertedDates Anomaly = 1 << iota
	// AnomalyZeroBudget marks an approved budget of zero; ratio metrics are undefined.
	AnomalyZeroBudget
	// AnomalyMissingDates marks a start or completion date that is absent or unparseable.
	AnomalyMissingDates
	// AnomalyCostOverrun marks a contract cost above the approved budget.
	AnomalyCostOverrun
)

var anomalyNames = []struct {
	flag Anomaly
	name string
}{
	{AnomalyInvertedDates, "inverted_dates"},
	{AnomalyZeroBudget, "zero_budget"},
	{AnomalyMissingDates, "missing_dates"},
	{AnomalyCostOverrun, "cost_overrun"},
}

// AllAnomalies lists every flag in a fixed order.
func AllAnomalies() []Anomaly {
	out := make([]Anomaly, len(anomalyNames))
	for i, a := range anomalyNames {
		out[i] = a.flag
	}
	return out
}

// Has reports whether every flag in f is set.
func (a Anomaly) Has(f Anomaly) bool {
	return a&f == f
}

// Names returns the snake_case names of the set flags.
func (a Anomaly) Names() []string {
	names := []string{}
	for _, n := range anomalyNames {
		if a.Has(n.flag) {
			names = append(names, n.name)
		}
	}
	return names
}

// String joins the flag names with "|", or returns "none".
func (a Anomaly) String() string {
	if a == 0 {
		return "none"
	}
	return strings.Join(a.Names(), "|")
}

// MarshalJSON encodes the set as a list of flag names.
func (a Anomaly) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Names())
}

// UnmarshalJSON decodes a list of flag names; unknown names are ignored.
func (a *Anomaly) UnmarshalJSON(b []byte) error {
	var names []string
	if err := json.Unmarshal(b, &names); err != nil {
		return err
	}
	*a = 0
	for _, name := range names {
		for _, n := range anomalyNames {
			if n.name == name {
				*a |= n.flag
			}
		}
	}
	return nil
}
