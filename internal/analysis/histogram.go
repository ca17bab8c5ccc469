package analysis

import (
	"gonum.org/v1/gonum/floats"

	"github.com/floodaudit/floodaudit/internal/model"
)

// Bin is one histogram bucket covering [Lower, Upper); the last bin is closed.
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// HistogramView is an equal-width histogram of one column.
type HistogramView struct {
	Field    string `json:"field"`
	Bins     []Bin  `json:"bins"`
	Total    int    `json:"total"`
	LogScale bool   `json:"log_scale"`
}

// Histogram buckets ContractCost or ApprovedBudgetForContract into bins
// equal-width bins. logScale asks the renderer for a logarithmic count axis.
func Histogram(projects []model.Project, field string, bins int, logScale bool) (HistogramView, error) {
	if err := checkField(field, AmountFields); err != nil {
		return HistogramView{}, err
	}
	vals := column(projects, field)
	return HistogramView{
		Field:    field,
		Bins:     equalWidth(vals, bins),
		Total:    len(vals),
		LogScale: logScale,
	}, nil
}

// equalWidth spreads [min, max] over n bins. A constant sample gets one bin of
// width 1 centered on the value.
func equalWidth(vals []float64, n int) []Bin {
	out := []Bin{}
	if len(vals) == 0 || n <= 0 {
		return out
	}
	lo, hi := floats.Min(vals), floats.Max(vals)
	if lo == hi {
		return []Bin{{Lower: lo - 0.5, Upper: hi + 0.5, Count: len(vals)}}
	}
	return fixedBins(vals, lo, hi, n)
}

func fixedBins(vals []float64, lo, hi float64, n int) []Bin {
	width := (hi - lo) / float64(n)
	out := make([]Bin, n)
	for i := range out {
		out[i].Lower = lo + float64(i)*width
		out[i].Upper = lo + float64(i+1)*width
	}
	out[n-1].Upper = hi
	for _, v := range vals {
		if v < lo || v > hi {
			continue
		}
		idx := int((v - lo) / width)
		if idx >= n {
			idx = n - 1
		}
		out[idx].Count++
	}
	return out
}

// Ceiling-bid screen window, in percent of budget.
const (
	VarianceLow  = -5.0
	VarianceHigh = 10.0
)

// BidVarianceView zooms on BudgetVariance around zero. A spike at exactly zero
// means bids matched the approved budget ceiling.
type BidVarianceView struct {
	Bins        []Bin `json:"bins"`
	InWindow    int   `json:"in_window"`
	ExactMatch  int   `json:"exact_match"`
	NearCeiling int   `json:"near_ceiling"`
}

// BidVariance histograms BudgetVariance restricted to the open interval
// (VarianceLow, VarianceHigh). NearCeiling counts variance in [0, 0.1).
func BidVariance(projects []model.Project, bins int) BidVarianceView {
	view := BidVarianceView{Bins: []Bin{}}
	var vals []float64
	for i := range projects {
		v := projects[i].BudgetVariance
		if v == nil || *v <= VarianceLow || *v >= VarianceHigh {
			continue
		}
		vals = append(vals, *v)
		if *v == 0 {
			view.ExactMatch++
		}
		if *v >= 0 && *v < 0.1 {
			view.NearCeiling++
		}
	}
	view.InWindow = len(vals)
	view.Bins = equalWidth(vals, bins)
	return view
}
