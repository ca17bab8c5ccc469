package analysis

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/floodaudit/floodaudit/internal/model"
)

// ProjectRef identifies one project in a view.
type ProjectRef struct {
	ProjectID    string  `json:"ProjectId"`
	ProjectName  string  `json:"ProjectName"`
	ContractCost float64 `json:"ContractCost"`
	Label        string  `json:"label"`
}

// Summary holds the headline KPIs.
type Summary struct {
	ProjectsFound        int               `json:"projects_found"`
	FlaggedProjects      int               `json:"flagged_projects"`
	TotalContractValue   float64           `json:"total_contract_value"`
	SuspiciousCapital    float64           `json:"suspicious_capital"`
	TotalApprovedBudget  float64           `json:"total_approved_budget"`
	AverageBudget        *float64          `json:"average_budget"`
	AverageCost          *float64          `json:"average_cost"`
	AverageDuration      *float64          `json:"average_duration"`
	MostCommonTypeOfWork string            `json:"most_common_type_of_work"`
	MostExpensive        *ProjectRef       `json:"most_expensive"`
	Labels               map[string]string `json:"labels"`
}

// Summarize computes the KPI block. With no projects every total is zero and every
// average is nil.
func Summarize(projects []model.Project) Summary {
	s := Summary{ProjectsFound: len(projects), Labels: map[string]string{}}
	if len(projects) == 0 {
		return s
	}

	costs := column(projects, model.ColContractCost)
	budgets := column(projects, model.ColApprovedBudget)
	durations := column(projects, model.ColDuration)

	s.TotalContractValue = floats.Sum(costs)
	s.TotalApprovedBudget = floats.Sum(budgets)
	s.AverageCost = finite(stat.Mean(costs, nil))
	s.AverageBudget = finite(stat.Mean(budgets, nil))
	if len(durations) > 0 {
		s.AverageDuration = finite(stat.Mean(durations, nil))
	}

	for i := range projects {
		if projects[i].IsSuspicious {
			s.FlaggedProjects++
			s.SuspiciousCapital += projects[i].ContractCost
		}
	}

	if counts := CountBy(projects, model.ColTypeOfWork, 1); len(counts) > 0 {
		s.MostCommonTypeOfWork = counts[0].Value
	}

	// First maximum wins, matching row order.
	top := &projects[floats.MaxIdx(costs)]
	s.MostExpensive = &ProjectRef{
		ProjectID:    top.ProjectID,
		ProjectName:  top.ProjectName,
		ContractCost: top.ContractCost,
		Label:        PesoMillions(top.ContractCost),
	}

	s.Labels["total_contract_value"] = Peso(s.TotalContractValue)
	s.Labels["suspicious_capital"] = Peso(s.SuspiciousCapital)
	s.Labels["total_approved_budget"] = Peso(s.TotalApprovedBudget)
	if s.AverageBudget != nil {
		s.Labels["average_budget"] = Peso(*s.AverageBudget)
	}
	if s.AverageCost != nil {
		s.Labels["average_cost"] = Peso(*s.AverageCost)
	}
	return s
}
