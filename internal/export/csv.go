// Package export writes prepared projects as downloadable CSV and Excel files.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/floodaudit/floodaudit/internal/model"
)

// Row is one exported project with every value rendered as text. Field order is
// the file's column order.
type Row struct {
	ProjectID                 string `csv:"ProjectId"`
	ProjectName               string `csv:"ProjectName"`
	Contractor                string `csv:"Contractor"`
	Region                    string `csv:"Region"`
	Province                  string `csv:"Province"`
	Municipality              string `csv:"Municipality"`
	LegislativeDistrict       string `csv:"LegislativeDistrict"`
	DistrictEngineeringOffice string `csv:"DistrictEngineeringOffice"`
	TypeOfWork                string `csv:"TypeOfWork"`
	MainIsland                string `csv:"MainIsland"`
	ContractCost              string `csv:"ContractCost"`
	ApprovedBudgetForContract string `csv:"ApprovedBudgetForContract"`
	StartDate                 string `csv:"StartDate"`
	ActualCompletionDate      string `csv:"ActualCompletionDate"`
	FundingYear               string `csv:"FundingYear"`
	Latitude                  string `csv:"latitude"`
	Longitude                 string `csv:"longitude"`
	Duration                  string `csv:"Duration"`
	BudgetDifference          string `csv:"BudgetDifference"`
	BudgetVariance            string `csv:"BudgetVariance"`
	RiskScore                 string `csv:"RiskScore"`
	IsSuspicious              string `csv:"IsSuspicious"`
}

// Columns returns the export header.
func Columns() []string {
	h, _ := csvutil.Header(Row{}, "csv")
	return h
}

// ToRow renders a project. Missing optional values become empty strings and
// dates use the display layout.
func ToRow(p *model.Project) Row {
	return Row{
		ProjectID:                 p.ProjectID,
		ProjectName:               p.ProjectName,
		Contractor:                p.Contractor,
		Region:                    p.Region,
		Province:                  p.Province,
		Municipality:              p.Municipality,
		LegislativeDistrict:       p.LegislativeDistrict,
		DistrictEngineeringOffice: p.DistrictEngineeringOffice,
		TypeOfWork:                p.TypeOfWork,
		MainIsland:                p.MainIsland,
		ContractCost:              formatFloat(p.ContractCost),
		ApprovedBudgetForContract: formatFloat(p.ApprovedBudgetForContract),
		StartDate:                 p.StartDateLabel(),
		ActualCompletionDate:      p.CompletionDateLabel(),
		FundingYear:               strconv.Itoa(p.FundingYear),
		Latitude:                  formatFloat(p.Latitude),
		Longitude:                 formatFloat(p.Longitude),
		Duration:                  formatIntPtr(p.Duration),
		BudgetDifference:          formatFloat(p.BudgetDifference),
		BudgetVariance:            formatFloatPtr(p.BudgetVariance),
		RiskScore:                 formatFloatPtr(p.RiskScore),
		IsSuspicious:              strconv.FormatBool(p.IsSuspicious),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatIntPtr(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// WriteCSV writes the header and one line per project. Equal input gives
// byte-identical output.
func WriteCSV(w io.Writer, projects []model.Project) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	enc.AutoHeader = false

	if err := enc.EncodeHeader(Row{}); err != nil {
		return eris.Wrap(err, "export: csv header")
	}
	for i := range projects {
		if err := enc.Encode(ToRow(&projects[i])); err != nil {
			return eris.Wrapf(err, "export: csv row %d", i)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "export: csv flush")
	}
	return nil
}
