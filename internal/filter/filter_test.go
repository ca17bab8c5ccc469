package filter

import (
	"net/url"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floodaudit/floodaudit/internal/model"
)

func sampleProjects() []model.Project {
	return []model.Project{
		{ProjectID: "P00123LZ", ProjectName: "River Wall Construction", Region: "Region III", Province: "Bulacan", TypeOfWork: "Construction of Flood Mitigation Structure", Contractor: "ACME", MainIsland: "Luzon", FundingYear: 2022, IsSuspicious: true},
		{ProjectID: "P00456VS", ProjectName: "Drainage Improvement", Region: "Region VII", Province: "Cebu", TypeOfWork: "Construction of Drainage Structure", Contractor: "BETA CORP", MainIsland: "Visayas", FundingYear: 2023},
		{ProjectID: "P00789MN", ProjectName: "Revetment along river", Region: "Region XI", Province: "Davao del Sur", TypeOfWork: "Construction of Revetment", Contractor: "ACME", MainIsland: "Mindanao", FundingYear: 2024, IsSuspicious: true},
		{ProjectID: "P01000LZ", ProjectName: "ÉSTERO wall", Region: "Region III", Province: "Pampanga", TypeOfWork: "Construction of Flood Mitigation Structure", Contractor: "GAMMA", MainIsland: "Luzon", FundingYear: 2023},
	}
}

func ids(ps []model.Project) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ProjectID)
	}
	return out
}

func TestApplyEmptyCriteriaIsIdentity(t *testing.T) {
	projects := sampleProjects()
	got := Apply(projects, Criteria{})
	assert.Equal(t, projects, got)
	assert.Equal(t, 4, Count(projects, Criteria{}))

	assert.Empty(t, Apply(nil, Criteria{Regions: []string{"Region III"}}))
}

func TestApplySinglePredicates(t *testing.T) {
	projects := sampleProjects()
	tests := []struct {
		name string
		c    Criteria
		want []string
	}{
		{"name case insensitive", Criteria{NameContains: "river"}, []string{"P00123LZ", "P00789MN"}},
		{"name unicode fold", Criteria{NameContains: "éstero"}, []string{"P01000LZ"}},
		{"id substring", Criteria{IDContains: "lz"}, []string{"P00123LZ", "P01000LZ"}},
		{"region", Criteria{Regions: []string{"Region III"}}, []string{"P00123LZ", "P01000LZ"}},
		{"province", Criteria{Provinces: []string{"Cebu", "Pampanga"}}, []string{"P00456VS", "P01000LZ"}},
		{"type of work", Criteria{TypesOfWork: []string{"Construction of Revetment"}}, []string{"P00789MN"}},
		{"contractor", Criteria{Contractors: []string{"ACME"}}, []string{"P00123LZ", "P00789MN"}},
		{"main island", Criteria{MainIslands: []string{"Visayas"}}, []string{"P00456VS"}},
		{"year range inclusive", Criteria{YearRange: &YearRange{Min: 2023, Max: 2023}}, []string{"P00456VS", "P01000LZ"}},
		{"suspicious only", Criteria{SuspiciousOnly: true}, []string{"P00123LZ", "P00789MN"}},
		{"no match", Criteria{Regions: []string{"NCR"}}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(projects, tt.c)
			assert.Equal(t, tt.want, ids(got))
			assert.Equal(t, len(tt.want), Count(projects, tt.c))
		})
	}
}

func TestApplyIsIntersection(t *testing.T) {
	projects := sampleProjects()
	a := Criteria{Regions: []string{"Region III"}}
	b := Criteria{YearRange: &YearRange{Min: 2023, Max: 2024}}
	both := Criteria{Regions: a.Regions, YearRange: b.YearRange}

	assert.Equal(t, ids(Apply(Apply(projects, a), b)), ids(Apply(projects, both)))
	assert.Equal(t, ids(Apply(Apply(projects, b), a)), ids(Apply(projects, both)))
	assert.Equal(t, []string{"P01000LZ"}, ids(Apply(projects, both)))
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	projects := sampleProjects()
	before := ids(projects)
	Apply(projects, Criteria{Contractors: []string{"GAMMA"}})
	assert.Equal(t, before, ids(projects))
}

func TestOptions(t *testing.T) {
	opts := Options(sampleProjects())
	assert.Equal(t, []string{"Region III", "Region VII", "Region XI"}, opts.Regions)
	assert.Equal(t, []string{"ACME", "BETA CORP", "GAMMA"}, opts.Contractors)
	assert.Equal(t, []string{"Luzon", "Mindanao", "Visayas"}, opts.MainIslands)
	assert.Equal(t, 2022, opts.YearMin)
	assert.Equal(t, 2024, opts.YearMax)

	empty := Options(nil)
	assert.Empty(t, empty.Regions)
	assert.Equal(t, 0, empty.YearMin)
}

func TestKeyIsOrderInsensitive(t *testing.T) {
	a := Criteria{Regions: []string{"B", "A"}, YearRange: &YearRange{Min: 2022, Max: 2024}}
	b := Criteria{Regions: []string{"A", "B", "A"}, YearRange: &YearRange{Min: 2022, Max: 2024}}
	c := Criteria{Regions: []string{"A"}}

	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
	assert.NotEqual(t, Criteria{}.Key(), Criteria{SuspiciousOnly: true}.Key())
	// Key must not reorder the caller's slice.
	assert.Equal(t, []string{"B", "A"}, a.Regions)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Criteria{}.Validate())

	err := Criteria{YearRange: &YearRange{Min: 2024, Max: 2022}}.Validate()
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInvalidCriteria))
	assert.Contains(t, err.Error(), "max")

	err = Criteria{Regions: []string{""}}.Validate()
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInvalidCriteria))
}

func TestFromQuery(t *testing.T) {
	q := url.Values{
		"name":        {" river "},
		"region":      {"Region III", " ", "Region XI"},
		"contractor":  {"ACME, INC."},
		"year_min":    {"2022"},
		"suspicious":  {"true"},
		"main_island": {"Luzon"},
	}
	c, err := FromQuery(q)
	require.NoError(t, err)
	assert.Equal(t, "river", c.NameContains)
	assert.Equal(t, []string{"Region III", "Region XI"}, c.Regions)
	assert.Equal(t, []string{"ACME, INC."}, c.Contractors)
	require.NotNil(t, c.YearRange)
	assert.Equal(t, YearRange{Min: 2022, Max: 9999}, *c.YearRange)
	assert.True(t, c.SuspiciousOnly)

	c, err = FromQuery(url.Values{})
	require.NoError(t, err)
	assert.True(t, c.IsZero())
}

func TestFromQueryInvalid(t *testing.T) {
	tests := []url.Values{
		{"year_min": {"soon"}},
		{"year_max": {"x"}},
		{"suspicious": {"maybe"}},
		{"year_min": {"2025"}, "year_max": {"2020"}},
	}
	for _, q := range tests {
		_, err := FromQuery(q)
		require.Error(t, err, q.Encode())
		assert.True(t, eris.Is(err, ErrInvalidCriteria), q.Encode())
	}
}
