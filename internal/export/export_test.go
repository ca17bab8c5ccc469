package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/floodaudit/floodaudit/internal/model"
)

func ptr[T any](v T) *T { return &v }

func sampleProjects() []model.Project {
	start := model.NewDate(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	end := model.NewDate(time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC))
	return []model.Project{
		{
			ProjectID: "P-1", ProjectName: "River Wall, Phase 1", Contractor: "ACME", Region: "Region III",
			ContractCost: 1000000, ApprovedBudgetForContract: 1000000, FundingYear: 2023,
			StartDate: &start, ActualCompletionDate: &end, Duration: ptr(180),
			Latitude: 14.8, Longitude: 120.9, BudgetDifference: 0,
			BudgetVariance: ptr(0.0), RiskScore: ptr(1.0), IsSuspicious: true,
		},
		{
			ProjectID: "P-2", ProjectName: "Seawall", ContractCost: 5, ApprovedBudgetForContract: 0,
			FundingYear: 2022, Latitude: 7.5, Longitude: 125.25, BudgetDifference: -5,
		},
	}
}

func TestColumns(t *testing.T) {
	cols := Columns()
	require.Len(t, cols, 22)
	assert.Equal(t, "ProjectId", cols[0])
	assert.Equal(t, "latitude", cols[15])
	assert.Equal(t, "IsSuspicious", cols[21])
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleProjects()))

	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Columns(), records[0])

	first := records[1]
	assert.Equal(t, "River Wall, Phase 1", first[1])
	assert.Equal(t, "1000000", first[10])
	assert.Equal(t, "January-01-2023", first[12])
	assert.Equal(t, "June-30-2023", first[13])
	assert.Equal(t, "2023", first[14])
	assert.Equal(t, "14.8", first[15])
	assert.Equal(t, "180", first[17])
	assert.Equal(t, "1", first[20])
	assert.Equal(t, "true", first[21])

	second := records[2]
	assert.Equal(t, "", second[12])
	assert.Equal(t, "", second[17])
	assert.Equal(t, "", second[19])
	assert.Equal(t, "", second[20])
	assert.Equal(t, "false", second[21])
}

func TestWriteCSVDeterministic(t *testing.T) {
	var a, b bytes.Buffer
	require.NoError(t, WriteCSV(&a, sampleProjects()))
	require.NoError(t, WriteCSV(&b, sampleProjects()))
	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, Columns(), records[0])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleProjects()))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)

	projects, ok := f.Sheet[ProjectsSheet]
	require.True(t, ok)
	require.Len(t, projects.Rows, 3)
	assert.Equal(t, "ProjectId", projects.Rows[0].Cells[0].String())
	assert.Equal(t, "P-1", projects.Rows[1].Cells[0].String())
	cost, err := projects.Rows[1].Cells[10].Float()
	require.NoError(t, err)
	assert.Equal(t, 1000000.0, cost)

	summary, ok := f.Sheet[SummarySheet]
	require.True(t, ok)
	assert.Equal(t, "Metric", summary.Rows[0].Cells[0].String())
	assert.Equal(t, "Projects Found", summary.Rows[1].Cells[0].String())
	n, err := summary.Rows[1].Cells[1].Int()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestWriteXLSXEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, nil))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	assert.Len(t, f.Sheet[ProjectsSheet].Rows, 1)
}
