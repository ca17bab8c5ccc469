package server

import (
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/floodaudit/floodaudit/internal/analysis"
	"github.com/floodaudit/floodaudit/internal/model"
)

// dashboardResponse bundles every panel of the main page into one round trip.
type dashboardResponse struct {
	Summary     analysis.Summary           `json:"summary"`
	ByIsland    []analysis.Count           `json:"by_island"`
	ByRegion    []analysis.Count           `json:"by_region"`
	ByType      []analysis.Count           `json:"by_type_of_work"`
	Contractors analysis.ContractorRanking `json:"contractors"`
	CostHist    analysis.HistogramView     `json:"cost_histogram"`
	Benford     analysis.BenfordView       `json:"benford"`
	BidVariance analysis.BidVarianceView   `json:"bid_variance"`
	Quality     analysis.QualityView       `json:"quality"`
}

// dashboard computes the panels concurrently. Each panel shares its cache key
// with the standalone endpoint, so either warms the other.
func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	s.handle(func(_ *http.Request, sc *scope) (any, error) {
		var (
			out dashboardResponse
			g   errgroup.Group
		)

		g.Go(func() (err error) {
			out.Summary, err = summaryView(s, sc)
			return err
		})
		g.Go(func() (err error) {
			out.ByIsland, err = countsView(s, sc, model.ColMainIsland, 0)
			return err
		})
		g.Go(func() (err error) {
			out.ByRegion, err = countsView(s, sc, model.ColRegion, 0)
			return err
		})
		g.Go(func() (err error) {
			out.ByType, err = countsView(s, sc, model.ColTypeOfWork, 0)
			return err
		})
		g.Go(func() (err error) {
			out.Contractors, err = contractorsView(s, sc, defaultContractors)
			return err
		})
		g.Go(func() (err error) {
			out.CostHist, err = histogramView(s, sc, model.ColContractCost, defaultBins, false)
			return err
		})
		g.Go(func() (err error) {
			out.Benford, err = benfordView(s, sc)
			return err
		})
		g.Go(func() (err error) {
			out.BidVariance, err = bidVarianceView(s, sc, defaultBins)
			return err
		})
		g.Go(func() (err error) {
			out.Quality, err = qualityView(s, sc)
			return err
		})

		if err := g.Wait(); err != nil {
			return nil, err
		}
		return out, nil
	})(w, r)
}
