package analysis

import "github.com/floodaudit/floodaudit/internal/model"

// QualityView counts data-quality flags across the selection.
type QualityView struct {
	Rows            int            `json:"rows"`
	Flagged         int            `json:"flagged"`
	Anomalies       map[string]int `json:"anomalies"`
	UndefinedRisk   int            `json:"undefined_risk"`
	MissingDuration int            `json:"missing_duration"`
}

// DataQuality tallies each anomaly flag plus rows with undefined metrics.
func DataQuality(projects []model.Project) QualityView {
	q := QualityView{Rows: len(projects), Anomalies: make(map[string]int)}
	for _, a := range model.AllAnomalies() {
		q.Anomalies[a.String()] = 0
	}
	for i := range projects {
		p := &projects[i]
		if p.Anomalies != 0 {
			q.Flagged++
		}
		for _, a := range model.AllAnomalies() {
			if p.Anomalies.Has(a) {
				q.Anomalies[a.String()]++
			}
		}
		if p.RiskScore == nil {
			q.UndefinedRisk++
		}
		if p.Duration == nil {
			q.MissingDuration++
		}
	}
	return q
}
