// Package analysis builds JSON-ready view models over prepared projects. Every
// function accepts an empty slice and returns a "no data" model instead of failing.
package analysis

import (
	"math"
	"slices"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/floodaudit/floodaudit/internal/model"
)

// ErrUnknownField is returned when a view is asked for a column it cannot use.
var ErrUnknownField = eris.New("unknown field")

// CategoryFields are the columns CountBy accepts.
var CategoryFields = []string{
	model.ColMainIsland, model.ColRegion, model.ColTypeOfWork, model.ColProvince,
	model.ColContractor, model.ColMunicipality, model.ColDistrictEngineeringOffice,
}

// AmountFields are the columns Histogram accepts.
var AmountFields = []string{model.ColContractCost, model.ColApprovedBudget}

// NumericFields are the columns Describe and BoxByRegion accept.
var NumericFields = []string{
	model.ColContractCost, model.ColApprovedBudget, model.ColFundingYear,
	model.ColDuration, model.ColBudgetDifference, model.ColBudgetVariance, model.ColRiskScore,
}

func checkField(field string, allowed []string) error {
	if !slices.Contains(allowed, field) {
		return eris.Wrapf(ErrUnknownField, "analysis: %q", field)
	}
	return nil
}

// column extracts the defined values of a numeric column.
func column(projects []model.Project, field string) []float64 {
	out := make([]float64, 0, len(projects))
	for i := range projects {
		if v, ok := projects[i].Numeric(field); ok {
			out = append(out, v)
		}
	}
	return out
}

// finite maps NaN and ±Inf to nil so the value survives JSON encoding.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

var printer = message.NewPrinter(language.English)

// Peso formats an amount as whole pesos with thousands separators.
func Peso(v float64) string {
	return printer.Sprintf("₱%.0f", v)
}

// PesoMillions formats an amount in millions with one decimal, e.g. "₱12.5 M".
func PesoMillions(v float64) string {
	return printer.Sprintf("₱%.1f M", v/1e6)
}
