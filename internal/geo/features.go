package geo

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/floodaudit/floodaudit/internal/model"
)

var printer = message.NewPrinter(language.English)

// FeatureCollection renders one point feature per project with the popup
// properties and a marker color from the palette.
func FeatureCollection(projects []model.Project, palette *Palette) *geojson.FeatureCollection {
	if palette == nil {
		palette = DefaultPalette()
	}
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(projects))}
	for i := range projects {
		fc.Features = append(fc.Features, feature(&projects[i], palette))
	}
	if len(projects) > 0 {
		flat := make([]float64, 0, 2*len(projects))
		for i := range projects {
			flat = append(flat, projects[i].Longitude, projects[i].Latitude)
		}
		fc.BBox = geom.NewMultiPointFlat(geom.XY, flat).Bounds()
	}
	return fc
}

func feature(p *model.Project, palette *Palette) *geojson.Feature {
	var duration any
	if p.Duration != nil {
		duration = *p.Duration
	}
	var risk any
	if p.RiskScore != nil {
		risk = *p.RiskScore
	}

	return &geojson.Feature{
		ID:       p.ProjectID,
		Geometry: geom.NewPointFlat(geom.XY, []float64{p.Longitude, p.Latitude}),
		Properties: map[string]any{
			"tooltip":              "Project ID: " + p.ProjectID,
			"name":                 p.ProjectName,
			"cost":                 p.ContractCost,
			"cost_label":           printer.Sprintf("₱%.2f", p.ContractCost),
			"type_of_work":         p.TypeOfWork,
			"funding_year":         p.FundingYear,
			"municipality":         p.Municipality,
			"legislative_district": p.LegislativeDistrict,
			"region":               p.Region,
			"engineering_office":   p.DistrictEngineeringOffice,
			"start_date":           p.StartDateLabel(),
			"completion_date":      p.CompletionDateLabel(),
			"duration":             duration,
			"contractor":           p.Contractor,
			"risk_score":           risk,
			"suspicious":           p.IsSuspicious,
			"color":                palette.Color(p.TypeOfWork),
			"outside_area":         !Philippines.Contains(p.Latitude, p.Longitude),
		},
	}
}
