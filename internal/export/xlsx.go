package export

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/floodaudit/floodaudit/internal/analysis"
	"github.com/floodaudit/floodaudit/internal/model"
)

// Sheet names of the workbook.
const (
	ProjectsSheet = "Projects"
	SummarySheet  = "Summary"
)

// WriteXLSX writes a workbook with the project table and a KPI summary.
func WriteXLSX(w io.Writer, projects []model.Project) error {
	f := xlsx.NewFile()

	sheet, err := f.AddSheet(ProjectsSheet)
	if err != nil {
		return eris.Wrap(err, "export: add projects sheet")
	}
	addStringRow(sheet, Columns())
	for i := range projects {
		writeProjectRow(sheet.AddRow(), &projects[i])
	}

	summary, err := f.AddSheet(SummarySheet)
	if err != nil {
		return eris.Wrap(err, "export: add summary sheet")
	}
	writeSummary(summary, analysis.Summarize(projects))

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write xlsx")
	}
	return nil
}

func addStringRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

// writeProjectRow keeps amounts numeric so spreadsheet formulas work on them.
func writeProjectRow(row *xlsx.Row, p *model.Project) {
	r := ToRow(p)
	for _, s := range []string{
		r.ProjectID, r.ProjectName, r.Contractor, r.Region, r.Province, r.Municipality,
		r.LegislativeDistrict, r.DistrictEngineeringOffice, r.TypeOfWork, r.MainIsland,
	} {
		row.AddCell().SetString(s)
	}
	row.AddCell().SetFloat(p.ContractCost)
	row.AddCell().SetFloat(p.ApprovedBudgetForContract)
	row.AddCell().SetString(r.StartDate)
	row.AddCell().SetString(r.ActualCompletionDate)
	row.AddCell().SetInt(p.FundingYear)
	row.AddCell().SetFloat(p.Latitude)
	row.AddCell().SetFloat(p.Longitude)
	if p.Duration != nil {
		row.AddCell().SetInt(*p.Duration)
	} else {
		row.AddCell().SetString("")
	}
	row.AddCell().SetFloat(p.BudgetDifference)
	optionalFloat(row.AddCell(), p.BudgetVariance)
	optionalFloat(row.AddCell(), p.RiskScore)
	row.AddCell().SetBool(p.IsSuspicious)
}

func optionalFloat(c *xlsx.Cell, v *float64) {
	if v == nil {
		c.SetString("")
		return
	}
	c.SetFloat(*v)
}

func writeSummary(sheet *xlsx.Sheet, s analysis.Summary) {
	addStringRow(sheet, []string{"Metric", "Value"})
	kv := func(name string, set func(*xlsx.Cell)) {
		row := sheet.AddRow()
		row.AddCell().SetString(name)
		set(row.AddCell())
	}
	kv("Projects Found", func(c *xlsx.Cell) { c.SetInt(s.ProjectsFound) })
	kv("Flagged Projects", func(c *xlsx.Cell) { c.SetInt(s.FlaggedProjects) })
	kv("Total Contract Value", func(c *xlsx.Cell) { c.SetFloat(s.TotalContractValue) })
	kv("Suspicious Capital", func(c *xlsx.Cell) { c.SetFloat(s.SuspiciousCapital) })
	kv("Total Approved Budget", func(c *xlsx.Cell) { c.SetFloat(s.TotalApprovedBudget) })
	kv("Average Approved Budget", func(c *xlsx.Cell) { optionalFloat(c, s.AverageBudget) })
	kv("Average Contract Cost", func(c *xlsx.Cell) { optionalFloat(c, s.AverageCost) })
	kv("Average Duration (days)", func(c *xlsx.Cell) { optionalFloat(c, s.AverageDuration) })
	kv("Most Common Type of Work", func(c *xlsx.Cell) { c.SetString(s.MostCommonTypeOfWork) })
	if s.MostExpensive != nil {
		kv("Most Expensive Project", func(c *xlsx.Cell) { c.SetString(s.MostExpensive.ProjectName) })
		kv("Most Expensive Cost", func(c *xlsx.Cell) { c.SetFloat(s.MostExpensive.ContractCost) })
	}
}
