package filter

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/floodaudit/floodaudit/internal/model"
)

// matcher is Criteria compiled for one Apply call. cases.Caser is stateful, so each
// call gets its own.
type matcher struct {
	fold        cases.Caser
	name, id    string
	regions     map[string]struct{}
	provinces   map[string]struct{}
	types       map[string]struct{}
	contractors map[string]struct{}
	islands     map[string]struct{}
	years       *YearRange
	suspicious  bool
}

func compile(c Criteria) *matcher {
	m := &matcher{
		fold:        cases.Fold(),
		regions:     toSet(c.Regions),
		provinces:   toSet(c.Provinces),
		types:       toSet(c.TypesOfWork),
		contractors: toSet(c.Contractors),
		islands:     toSet(c.MainIslands),
		years:       c.YearRange,
		suspicious:  c.SuspiciousOnly,
	}
	m.name = m.fold.String(c.NameContains)
	m.id = m.fold.String(c.IDContains)
	return m
}

func toSet(vals []string) map[string]struct{} {
	if len(vals) == 0 {
		return nil
	}
	s := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		s[v] = struct{}{}
	}
	return s
}

func inSet(s map[string]struct{}, v string) bool {
	if s == nil {
		return true
	}
	_, ok := s[v]
	return ok
}

func (m *matcher) match(p *model.Project) bool {
	if m.suspicious && !p.IsSuspicious {
		return false
	}
	if m.years != nil && (p.FundingYear < m.years.Min || p.FundingYear > m.years.Max) {
		return false
	}
	if !inSet(m.regions, p.Region) || !inSet(m.provinces, p.Province) ||
		!inSet(m.types, p.TypeOfWork) || !inSet(m.contractors, p.Contractor) ||
		!inSet(m.islands, p.MainIsland) {
		return false
	}
	if m.name != "" && !strings.Contains(m.fold.String(p.ProjectName), m.name) {
		return false
	}
	if m.id != "" && !strings.Contains(m.fold.String(p.ProjectID), m.id) {
		return false
	}
	return true
}

// Apply returns the projects matching every criterion, in input order. Zero
// criteria return the input slice itself; otherwise a new slice is built and the
// input is never modified.
func Apply(projects []model.Project, c Criteria) []model.Project {
	if c.IsZero() {
		return projects
	}
	m := compile(c)
	out := make([]model.Project, 0, len(projects))
	for i := range projects {
		if m.match(&projects[i]) {
			out = append(out, projects[i])
		}
	}
	return out
}

// Count returns how many projects match without materializing them.
func Count(projects []model.Project, c Criteria) int {
	if c.IsZero() {
		return len(projects)
	}
	m := compile(c)
	n := 0
	for i := range projects {
		if m.match(&projects[i]) {
			n++
		}
	}
	return n
}

// OptionSet lists the values available to each filter control.
type OptionSet struct {
	Regions     []string `json:"regions"`
	Provinces   []string `json:"provinces"`
	TypesOfWork []string `json:"types_of_work"`
	Contractors []string `json:"contractors"`
	MainIslands []string `json:"main_islands"`
	YearMin     int      `json:"year_min"`
	YearMax     int      `json:"year_max"`
}

// Options collects the sorted distinct non-empty values of every categorical
// filter column and the funding year bounds.
func Options(projects []model.Project) OptionSet {
	set := OptionSet{
		Regions:     distinct(projects, func(p *model.Project) string { return p.Region }),
		Provinces:   distinct(projects, func(p *model.Project) string { return p.Province }),
		TypesOfWork: distinct(projects, func(p *model.Project) string { return p.TypeOfWork }),
		Contractors: distinct(projects, func(p *model.Project) string { return p.Contractor }),
		MainIslands: distinct(projects, func(p *model.Project) string { return p.MainIsland }),
	}
	for i := range projects {
		y := projects[i].FundingYear
		if i == 0 || y < set.YearMin {
			set.YearMin = y
		}
		if i == 0 || y > set.YearMax {
			set.YearMax = y
		}
	}
	return set
}

func distinct(projects []model.Project, get func(*model.Project) string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for i := range projects {
		v := get(&projects[i])
		if strings.TrimSpace(v) == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}
