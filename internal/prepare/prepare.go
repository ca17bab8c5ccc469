// Package prepare turns raw project rows into the cleaned, metric-augmented table
// consumed by every view. Prepare is pure: no I/O, no clock, no randomness.
package prepare

import (
	"slices"

	"github.com/floodaudit/floodaudit/internal/model"
)

// DropReason names the step that removed a row.
type DropReason string

const (
	DropInvalidAmount      DropReason = "invalid_amount"
	DropInvalidYear        DropReason = "invalid_year"
	DropExcludedYear       DropReason = "excluded_year"
	DropMissingCoordinates DropReason = "missing_coordinates"
)

// DropReasons lists every reason in pipeline order.
var DropReasons = []DropReason{DropInvalidAmount, DropInvalidYear, DropExcludedYear, DropMissingCoordinates}

// Options tunes the pipeline. The zero value is not useful; start from DefaultOptions.
type Options struct {
	// ExcludedYears are funding years treated as incomplete-data artifacts.
	ExcludedYears []int
	// SuspiciousThreshold is the RiskScore above which a project is flagged.
	SuspiciousThreshold float64
}

// DefaultOptions returns the dataset's standard exclusion window and audit threshold.
func DefaultOptions() Options {
	return Options{
		ExcludedYears:       []int{2018, 2019, 2020, 2021, 2025},
		SuspiciousThreshold: 0.99,
	}
}

// ExcludedRow is a raw row whose funding year falls in the excluded set.
type ExcludedRow struct {
	ProjectID    string `json:"ProjectId"`
	FundingYear  int    `json:"FundingYear"`
	ContractCost string `json:"ContractCost"`
}

// Report summarizes what the pipeline did to a table.
type Report struct {
	InputRows        int                `json:"input_rows"`
	OutputRows       int                `json:"output_rows"`
	Dropped          map[DropReason]int `json:"dropped"`
	BlankCounts      map[string]int     `json:"blank_counts"`
	DerivedColumns   int                `json:"derived_columns"`
	Anomalies        map[string]int     `json:"anomalies"`
	ExcludedYearRows []ExcludedRow      `json:"excluded_year_rows"`
}

// RowsRemoved returns how many input rows did not survive.
func (r *Report) RowsRemoved() int {
	return r.InputRows - r.OutputRows
}

// Result is the prepared table plus its report.
type Result struct {
	Projects []model.Project `json:"projects"`
	Report   Report          `json:"report"`
}

// Prepare runs the pipeline with DefaultOptions.
func Prepare(raw []model.RawRecord) *Result {
	return PrepareWith(raw, DefaultOptions())
}

// PrepareWith applies, in order:
//  1. amount coercion (thousands separators stripped),
//  2. drop of rows missing either amount,
//  3. date parsing (failures become missing),
//  4. duration in days,
//  5. (display formatting happens at the rendering boundary),
//  6. funding year coercion and drop of unparseable or excluded years,
//  7. BudgetDifference, BudgetVariance, RiskScore, IsSuspicious,
//  8. coordinate coercion and drop of rows missing either coordinate.
//
// Rows are independent, so each row runs the steps in sequence and the first failing
// drop step names its DropReason. Surviving rows keep their input order.
func PrepareWith(raw []model.RawRecord, opts Options) *Result {
	report := newReport(len(raw))
	res := &Result{Projects: make([]model.Project, 0, len(raw)), Report: report}
	if len(raw) == 0 {
		return res
	}

	for i := range raw {
		rec := &raw[i]
		countBlanks(rec, res.Report.BlankCounts)
		if y, ok := parseYear(rec.FundingYear); ok && slices.Contains(opts.ExcludedYears, y) {
			res.Report.ExcludedYearRows = append(res.Report.ExcludedYearRows, ExcludedRow{
				ProjectID:    rec.ProjectID,
				FundingYear:  y,
				ContractCost: rec.ContractCost,
			})
		}

		p, reason := prepareRow(rec, opts)
		if reason != "" {
			res.Report.Dropped[reason]++
			continue
		}
		for _, a := range model.AllAnomalies() {
			if p.Anomalies.Has(a) {
				res.Report.Anomalies[a.String()]++
			}
		}
		res.Projects = append(res.Projects, p)
	}

	res.Report.OutputRows = len(res.Projects)
	return res
}

func newReport(inputRows int) Report {
	r := Report{
		InputRows:        inputRows,
		Dropped:          make(map[DropReason]int, len(DropReasons)),
		BlankCounts:      make(map[string]int),
		DerivedColumns:   len(model.DerivedColumns),
		Anomalies:        make(map[string]int),
		ExcludedYearRows: []ExcludedRow{},
	}
	for _, d := range DropReasons {
		r.Dropped[d] = 0
	}
	for _, a := range model.AllAnomalies() {
		r.Anomalies[a.String()] = 0
	}
	return r
}

func countBlanks(rec *model.RawRecord, counts map[string]int) {
	for _, col := range model.RawColumns {
		if rec.IsBlank(col) {
			counts[col]++
		}
	}
}

// prepareRow runs every step on one record. A non-empty DropReason means the row
// is discarded and the returned project is meaningless.
func prepareRow(rec *model.RawRecord, opts Options) (model.Project, DropReason) {
	p := model.Project{
		ProjectID:                 rec.ProjectID,
		ProjectName:               rec.ProjectName,
		Contractor:                rec.Contractor,
		Region:                    rec.Region,
		Province:                  rec.Province,
		Municipality:              rec.Municipality,
		LegislativeDistrict:       rec.LegislativeDistrict,
		DistrictEngineeringOffice: rec.DistrictEngineeringOffice,
		TypeOfWork:                rec.TypeOfWork,
		MainIsland:                rec.MainIsland,
	}

	// Steps 1–2: amounts.
	cost, okCost := parseAmount(rec.ContractCost)
	budget, okBudget := parseAmount(rec.ApprovedBudgetForContract)
	if !okCost || !okBudget {
		return p, DropInvalidAmount
	}
	p.ContractCost = cost
	p.ApprovedBudgetForContract = budget

	// Steps 3–4: dates and duration.
	p.StartDate = parseDate(rec.StartDate)
	p.ActualCompletionDate = parseDate(rec.ActualCompletionDate)
	if p.StartDate != nil && p.ActualCompletionDate != nil {
		d := p.StartDate.DaysUntil(*p.ActualCompletionDate)
		p.Duration = &d
		if d < 0 {
			p.Anomalies |= model.AnomalyInvertedDates
		}
	} else {
		p.Anomalies |= model.AnomalyMissingDates
	}

	// Step 6: funding year.
	year, ok := parseYear(rec.FundingYear)
	if !ok {
		return p, DropInvalidYear
	}
	if slices.Contains(opts.ExcludedYears, year) {
		return p, DropExcludedYear
	}
	p.FundingYear = year

	// Step 7: derived metrics.
	deriveMetrics(&p, opts.SuspiciousThreshold)

	// Step 8: coordinates.
	lat, okLat := parseFinite(rec.ProjectLatitude)
	lon, okLon := parseFinite(rec.ProjectLongitude)
	if !okLat || !okLon {
		return p, DropMissingCoordinates
	}
	p.Latitude = lat
	p.Longitude = lon

	return p, ""
}

// deriveMetrics fills the budget metrics. A zero budget leaves the ratio metrics
// undefined, clears IsSuspicious and raises AnomalyZeroBudget.
func deriveMetrics(p *model.Project, threshold float64) {
	p.BudgetDifference = p.ApprovedBudgetForContract - p.ContractCost
	if p.ContractCost > p.ApprovedBudgetForContract {
		p.Anomalies |= model.AnomalyCostOverrun
	}

	if p.ApprovedBudgetForContract == 0 {
		p.Anomalies |= model.AnomalyZeroBudget
		p.IsSuspicious = false
		return
	}

	variance := p.BudgetDifference / p.ApprovedBudgetForContract * 100
	risk := p.ContractCost / p.ApprovedBudgetForContract
	p.BudgetVariance = &variance
	p.RiskScore = &risk
	p.IsSuspicious = risk > threshold
}
