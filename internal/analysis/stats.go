package analysis

import (
	"cmp"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/floodaudit/floodaudit/internal/model"
)

// Description is the usual summary of a numeric column. Statistics that are
// undefined for the sample size are nil.
type Description struct {
	Field  string   `json:"field"`
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean"`
	Std    *float64 `json:"std"`
	Min    *float64 `json:"min"`
	Q25    *float64 `json:"q25"`
	Median *float64 `json:"median"`
	Q75    *float64 `json:"q75"`
	Max    *float64 `json:"max"`
}

// Describe summarizes one numeric column. Std is the sample standard deviation.
func Describe(projects []model.Project, field string) (Description, error) {
	if err := checkField(field, NumericFields); err != nil {
		return Description{}, err
	}
	vals := column(projects, field)
	d := Description{Field: field, Count: len(vals)}
	if len(vals) == 0 {
		return d, nil
	}

	sorted := slices.Clone(vals)
	slices.Sort(sorted)

	d.Mean = finite(stat.Mean(vals, nil))
	if len(vals) > 1 {
		d.Std = finite(stat.StdDev(vals, nil))
	}
	d.Min = finite(sorted[0])
	d.Q25 = finite(quantile(sorted, 0.25))
	d.Median = finite(quantile(sorted, 0.5))
	d.Q75 = finite(quantile(sorted, 0.75))
	d.Max = finite(sorted[len(sorted)-1])
	return d, nil
}

// quantile interpolates linearly between closest ranks of an ascending sample,
// the convention spreadsheet and dataframe tools use for quartiles.
func quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	h := float64(len(sorted)-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

// Box is one box-and-whisker summary. Whiskers reach the most extreme values
// within 1.5 IQR of the box.
type Box struct {
	Group       string  `json:"group"`
	Count       int     `json:"count"`
	Q1          float64 `json:"q1"`
	Median      float64 `json:"median"`
	Q3          float64 `json:"q3"`
	WhiskerLow  float64 `json:"whisker_low"`
	WhiskerHigh float64 `json:"whisker_high"`
	Outliers    int     `json:"outliers"`
}

// BoxByRegion builds a box per Region for a numeric column, ordered by region name.
func BoxByRegion(projects []model.Project, field string) ([]Box, error) {
	if err := checkField(field, NumericFields); err != nil {
		return nil, err
	}
	groups := make(map[string][]float64)
	for i := range projects {
		if v, ok := projects[i].Numeric(field); ok {
			groups[projects[i].Region] = append(groups[projects[i].Region], v)
		}
	}

	out := make([]Box, 0, len(groups))
	for region, vals := range groups {
		out = append(out, box(region, vals))
	}
	slices.SortFunc(out, func(a, b Box) int { return cmp.Compare(a.Group, b.Group) })
	return out, nil
}

func box(group string, vals []float64) Box {
	slices.Sort(vals)
	b := Box{
		Group:  group,
		Count:  len(vals),
		Q1:     quantile(vals, 0.25),
		Median: quantile(vals, 0.5),
		Q3:     quantile(vals, 0.75),
	}
	iqr := b.Q3 - b.Q1
	lowFence, highFence := b.Q1-1.5*iqr, b.Q3+1.5*iqr
	b.WhiskerLow, b.WhiskerHigh = b.Q1, b.Q3
	for _, v := range vals {
		if v < lowFence || v > highFence {
			b.Outliers++
			continue
		}
		b.WhiskerLow = min(b.WhiskerLow, v)
		b.WhiskerHigh = max(b.WhiskerHigh, v)
	}
	return b
}

// CorrelationFields are the columns of the correlation matrix, in order.
var CorrelationFields = []string{model.ColApprovedBudget, model.ColContractCost, model.ColFundingYear}

// CorrelationMatrix holds Pearson coefficients; undefined cells are nil.
type CorrelationMatrix struct {
	Fields []string     `json:"fields"`
	Values [][]*float64 `json:"values"`
	N      int          `json:"n"`
}

// Correlation computes the Pearson matrix of CorrelationFields.
func Correlation(projects []model.Project) CorrelationMatrix {
	cols := make([][]float64, len(CorrelationFields))
	for i, f := range CorrelationFields {
		cols[i] = column(projects, f)
	}

	m := CorrelationMatrix{
		Fields: CorrelationFields,
		Values: make([][]*float64, len(cols)),
		N:      len(projects),
	}
	for i := range cols {
		m.Values[i] = make([]*float64, len(cols))
		for j := range cols {
			if len(projects) < 2 {
				continue
			}
			m.Values[i][j] = finite(stat.Correlation(cols[i], cols[j], nil))
		}
	}
	return m
}

// RegressionView is an ordinary least squares fit of ContractCost on
// ApprovedBudgetForContract.
type RegressionView struct {
	N         int      `json:"n"`
	Slope     *float64 `json:"slope"`
	Intercept *float64 `json:"intercept"`
	RSquared  *float64 `json:"r_squared"`
}

// Regression fits cost = intercept + slope × budget. Fewer than two rows or a
// constant budget leave the fit undefined.
func Regression(projects []model.Project) RegressionView {
	x := column(projects, model.ColApprovedBudget)
	y := column(projects, model.ColContractCost)
	view := RegressionView{N: len(x)}
	if len(x) < 2 || floats.Min(x) == floats.Max(x) {
		return view
	}
	alpha, beta := stat.LinearRegression(x, y, nil, false)
	view.Intercept = finite(alpha)
	view.Slope = finite(beta)
	view.RSquared = finite(stat.RSquared(x, y, nil, alpha, beta))
	return view
}
