// Package store persists prepared project tables as immutable snapshots so a
// dataset can be audited later without re-reading the source file.
package store

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/floodaudit/floodaudit/internal/filter"
	"github.com/floodaudit/floodaudit/internal/model"
)

// ErrNotFound is returned when no snapshot matches.
var ErrNotFound = eris.New("store: not found")

// Snapshot describes one saved prepared table.
type Snapshot struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Rows      int       `json:"rows"`
	CreatedAt time.Time `json:"created_at"`
}

// Store defines the persistence interface for prepared snapshots.
type Store interface {
	// SaveSnapshot writes projects in order under a new snapshot id.
	SaveSnapshot(ctx context.Context, source string, projects []model.Project) (*Snapshot, error)
	// LatestSnapshot returns the most recently saved snapshot, or ErrNotFound.
	LatestSnapshot(ctx context.Context) (*Snapshot, error)
	// ListProjects returns the snapshot rows matching c, in their original order.
	ListProjects(ctx context.Context, snapshotID string, c filter.Criteria) ([]model.Project, error)

	Migrate(ctx context.Context) error
	Close() error
}

// insertColumns is the column order used for both INSERT and COPY.
var insertColumns = []string{
	"snapshot_id", "row_index",
	"project_id", "project_name", "contractor", "region", "province", "municipality",
	"legislative_district", "engineering_office", "type_of_work", "main_island",
	"contract_cost", "approved_budget", "start_date", "completion_date", "duration",
	"funding_year", "latitude", "longitude",
	"budget_difference", "budget_variance", "risk_score", "is_suspicious", "anomalies",
	"geom",
}

// selectColumns matches the destinations in scanProject.
var selectColumns = insertColumns[2 : len(insertColumns)-1]

// projectValues flattens p into insertColumns order.
func projectValues(snapshotID string, index int, p *model.Project) ([]any, error) {
	point, err := pointEWKB(p.Longitude, p.Latitude)
	if err != nil {
		return nil, err
	}
	return []any{
		snapshotID, index,
		p.ProjectID, p.ProjectName, p.Contractor, p.Region, p.Province, p.Municipality,
		p.LegislativeDistrict, p.DistrictEngineeringOffice, p.TypeOfWork, p.MainIsland,
		p.ContractCost, p.ApprovedBudgetForContract, dateValue(p.StartDate), dateValue(p.ActualCompletionDate), intValue(p.Duration),
		p.FundingYear, p.Latitude, p.Longitude,
		p.BudgetDifference, floatValue(p.BudgetVariance), floatValue(p.RiskScore), p.IsSuspicious, int(p.Anomalies),
		point,
	}, nil
}

// pointEWKB encodes a WGS84 point so PostGIS consumers can read the column directly.
func pointEWKB(lon, lat float64) ([]byte, error) {
	g := geom.NewPointFlat(geom.XY, []float64{lon, lat}).SetSRID(4326)
	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "store: encode point")
	}
	return data, nil
}

func dateValue(d *model.Date) any {
	if d == nil {
		return nil
	}
	return d.Format(time.DateOnly)
}

func intValue(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func floatValue(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// scannable is satisfied by *sql.Rows and pgx.Rows.
type scannable interface {
	Scan(dest ...any) error
}

func scanProject(row scannable) (model.Project, error) {
	var (
		p                 model.Project
		start, completion *string
		duration          *int
		variance, risk    *float64
		anomalies         int
	)
	err := row.Scan(
		&p.ProjectID, &p.ProjectName, &p.Contractor, &p.Region, &p.Province, &p.Municipality,
		&p.LegislativeDistrict, &p.DistrictEngineeringOffice, &p.TypeOfWork, &p.MainIsland,
		&p.ContractCost, &p.ApprovedBudgetForContract, &start, &completion, &duration,
		&p.FundingYear, &p.Latitude, &p.Longitude,
		&p.BudgetDifference, &variance, &risk, &p.IsSuspicious, &anomalies,
	)
	if err != nil {
		return p, eris.Wrap(err, "store: scan project")
	}
	if p.StartDate, err = parseDate(start); err != nil {
		return p, err
	}
	if p.ActualCompletionDate, err = parseDate(completion); err != nil {
		return p, err
	}
	p.Duration = duration
	p.BudgetVariance = variance
	p.RiskScore = risk
	p.Anomalies = model.Anomaly(anomalies)
	return p, nil
}

func parseDate(s *string) (*model.Date, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, *s)
	if err != nil {
		return nil, eris.Wrapf(err, "store: parse date %q", *s)
	}
	d := model.NewDate(t)
	return &d, nil
}

// projectQuery builds the snapshot listing query. Set membership, year range
// and the suspicious flag are pushed down; the text predicates need Unicode
// case folding and are applied afterwards with filter.Apply.
func projectQuery(snapshotID string, c filter.Criteria, format sq.PlaceholderFormat) (string, []any, error) {
	q := sq.Select(selectColumns...).
		From("projects").
		Where(sq.Eq{"snapshot_id": snapshotID}).
		PlaceholderFormat(format)

	for _, in := range []struct {
		column string
		values []string
	}{
		{"region", c.Regions},
		{"province", c.Provinces},
		{"type_of_work", c.TypesOfWork},
		{"contractor", c.Contractors},
		{"main_island", c.MainIslands},
	} {
		if len(in.values) > 0 {
			q = q.Where(sq.Eq{in.column: in.values})
		}
	}
	if c.YearRange != nil {
		q = q.Where(sq.GtOrEq{"funding_year": c.YearRange.Min}).
			Where(sq.LtOrEq{"funding_year": c.YearRange.Max})
	}
	if c.SuspiciousOnly {
		q = q.Where(sq.Eq{"is_suspicious": true})
	}

	query, args, err := q.OrderBy("row_index").ToSql()
	if err != nil {
		return "", nil, eris.Wrap(err, "store: build project query")
	}
	return query, args, nil
}

// textOnly keeps the predicates projectQuery does not push down.
func textOnly(c filter.Criteria) filter.Criteria {
	return filter.Criteria{NameContains: c.NameContains, IDContains: c.IDContains}
}
