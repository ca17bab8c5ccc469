package analysis

import (
	"cmp"
	"slices"
	"strings"

	"github.com/floodaudit/floodaudit/internal/model"
)

// Count is one value of a categorical column and how many projects carry it.
type Count struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Share is a Count with its percentage of the total.
type Share struct {
	Value   string  `json:"value"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// CountBy tallies a categorical column, sorted by count descending then value
// ascending. Blank values are skipped. topN <= 0 returns every value.
func CountBy(projects []model.Project, field string, topN int) []Count {
	tally := make(map[string]int)
	for i := range projects {
		v, ok := projects[i].Category(field)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		tally[v]++
	}

	out := make([]Count, 0, len(tally))
	for v, n := range tally {
		out = append(out, Count{Value: v, Count: n})
	}
	slices.SortFunc(out, func(a, b Count) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Value, b.Value)
	})
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}

// CountByField is CountBy with field validation for request-driven callers.
func CountByField(projects []model.Project, field string, topN int) ([]Count, error) {
	if err := checkField(field, CategoryFields); err != nil {
		return nil, err
	}
	return CountBy(projects, field, topN), nil
}

// OthersLabel collects values below the share cutoff.
const OthersLabel = "Others"

// ShareBy returns each value's share of the column, folding values whose share is
// below minShare (a fraction, e.g. 0.01) into a trailing OthersLabel entry.
func ShareBy(projects []model.Project, field string, minShare float64) []Share {
	counts := CountBy(projects, field, 0)
	total := 0
	for _, c := range counts {
		total += c.Count
	}
	out := []Share{}
	if total == 0 {
		return out
	}

	others := 0
	for _, c := range counts {
		if float64(c.Count)/float64(total) < minShare {
			others += c.Count
			continue
		}
		out = append(out, Share{Value: c.Value, Count: c.Count, Percent: pct(c.Count, total)})
	}
	if others > 0 {
		out = append(out, Share{Value: OthersLabel, Count: others, Percent: pct(others, total)})
	}
	return out
}

func pct(n, total int) float64 {
	return float64(n) / float64(total) * 100
}

// ContractorTotal aggregates one contractor's projects.
type ContractorTotal struct {
	Contractor string  `json:"contractor"`
	Value      float64 `json:"value"`
	Count      int     `json:"count"`
}

// ContractorRanking lists the top contractors by total value and by project count.
type ContractorRanking struct {
	ByValue []ContractorTotal `json:"by_value"`
	ByCount []ContractorTotal `json:"by_count"`
}

// TopContractors ranks contractors by summed ContractCost and by number of
// projects, keeping the top n of each. Ties break on contractor name.
func TopContractors(projects []model.Project, n int) ContractorRanking {
	totals := make(map[string]*ContractorTotal)
	for i := range projects {
		name := projects[i].Contractor
		if strings.TrimSpace(name) == "" {
			continue
		}
		t, ok := totals[name]
		if !ok {
			t = &ContractorTotal{Contractor: name}
			totals[name] = t
		}
		t.Value += projects[i].ContractCost
		t.Count++
	}

	all := make([]ContractorTotal, 0, len(totals))
	for _, t := range totals {
		all = append(all, *t)
	}

	byValue := slices.Clone(all)
	slices.SortFunc(byValue, func(a, b ContractorTotal) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return cmp.Compare(a.Contractor, b.Contractor)
	})
	byCount := all
	slices.SortFunc(byCount, func(a, b ContractorTotal) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Contractor, b.Contractor)
	})

	if n > 0 {
		byValue = byValue[:min(n, len(byValue))]
		byCount = byCount[:min(n, len(byCount))]
	}
	return ContractorRanking{ByValue: byValue, ByCount: byCount}
}
