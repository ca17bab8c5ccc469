package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/floodaudit/floodaudit/internal/analysis"
	"github.com/floodaudit/floodaudit/internal/filter"
	"github.com/floodaudit/floodaudit/internal/geo"
	"github.com/floodaudit/floodaudit/internal/model"
	"github.com/floodaudit/floodaudit/internal/prepare"
	"github.com/floodaudit/floodaudit/internal/session"
)

const (
	defaultBins        = 50
	defaultContractors = 10
)

// handle resolves the scope and writes whatever fn returns.
func (s *Server) handle(fn func(r *http.Request, sc *scope) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, err := s.scope(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		v, err := fn(r, sc)
		respond(w, r, v, err)
	}
}

func (s *Server) filterOptions(w http.ResponseWriter, r *http.Request) {
	s.handle(func(_ *http.Request, sc *scope) (any, error) {
		// Options always describe the whole table, not the filtered rows.
		return cacheFull(s, sc, "options", func(ps []model.Project) (filter.OptionSet, error) {
			return filter.Options(ps), nil
		})
	})(w, r)
}

// cacheFull memoizes compute over the unfiltered table.
func cacheFull[T any](s *Server, sc *scope, name string, compute func([]model.Project) (T, error)) (T, error) {
	full := &scope{
		snap:     sc.snap,
		key:      strconv.FormatUint(sc.snap.Version, 10),
		projects: sc.snap.Projects(),
	}
	return view(s, full, name, compute)
}

type projectsResponse struct {
	Total    int             `json:"total"`
	Count    int             `json:"count"`
	Offset   int             `json:"offset"`
	Projects []model.Project `json:"projects"`
}

func (s *Server) projects(w http.ResponseWriter, r *http.Request) {
	s.handle(func(r *http.Request, sc *scope) (any, error) {
		offset, err := intParam(r, "offset", 0, 0, len(sc.projects))
		if err != nil {
			return nil, err
		}
		limit, err := intParam(r, "limit", 0, 0, 100_000)
		if err != nil {
			return nil, err
		}
		page := sc.projects[offset:]
		if limit > 0 && len(page) > limit {
			page = page[:limit]
		}
		if page == nil {
			page = []model.Project{}
		}
		return projectsResponse{
			Total:    len(sc.snap.Projects()),
			Count:    len(sc.projects),
			Offset:   offset,
			Projects: page,
		}, nil
	})(w, r)
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	s.handle(func(_ *http.Request, sc *scope) (any, error) {
		return summaryView(s, sc)
	})(w, r)
}

func summaryView(s *Server, sc *scope) (analysis.Summary, error) {
	return view(s, sc, "summary", func(ps []model.Project) (analysis.Summary, error) {
		return analysis.Summarize(ps), nil
	})
}

func (s *Server) counts(w http.ResponseWriter, r *http.Request) {
	s.handle(func(r *http.Request, sc *scope) (any, error) {
		top, err := intParam(r, "top", 0, 0, 10_000)
		if err != nil {
			return nil, err
		}
		return countsView(s, sc, chi.URLParam(r, "field"), top)
	})(w, r)
}

func countsView(s *Server, sc *scope, field string, top int) ([]analysis.Count, error) {
	return view(s, sc, "counts", func(ps []model.Project) ([]analysis.Count, error) {
		return analysis.CountByField(ps, field, top)
	}, field, strconv.Itoa(top))
}

func (s *Server) contractors(w http.ResponseWriter, r *http.Request) {
	s.handle(func(r *http.Request, sc *scope) (any, error) {
		top, err := intParam(r, "top", defaultContractors, 1, 1000)
		if err != nil {
			return nil, err
		}
		return contractorsView(s, sc, top)
	})(w, r)
}

func contractorsView(s *Server, sc *scope, top int) (analysis.ContractorRanking, error) {
	return view(s, sc, "contractors", func(ps []model.Project) (analysis.ContractorRanking, error) {
		return analysis.TopContractors(ps, top), nil
	}, strconv.Itoa(top))
}

func (s *Server) histogram(w http.ResponseWriter, r *http.Request) {
	s.handle(func(r *http.Request, sc *scope) (any, error) {
		field := r.URL.Query().Get("field")
		if field == "" {
			field = model.ColContractCost
		}
		bins, err := intParam(r, "bins", defaultBins, 1, 500)
		if err != nil {
			return nil, err
		}
		logScale, err := boolParam(r, "log", false)
		if err != nil {
			return nil, err
		}
		return histogramView(s, sc, field, bins, logScale)
	})(w, r)
}

func histogramView(s *Server, sc *scope, field string, bins int, logScale bool) (analysis.HistogramView, error) {
	return view(s, sc, "histogram", func(ps []model.Project) (analysis.HistogramView, error) {
		return analysis.Histogram(ps, field, bins, logScale)
	}, field, strconv.Itoa(bins), strconv.FormatBool(logScale))
}

func (s *Server) benford(w http.ResponseWriter, r *http.Request) {
	s.handle(func(_ *http.Request, sc *scope) (any, error) {
		return benfordView(s, sc)
	})(w, r)
}

func benfordView(s *Server, sc *scope) (analysis.BenfordView, error) {
	return view(s, sc, "benford", func(ps []model.Project) (analysis.BenfordView, error) {
		return analysis.Benford(ps), nil
	})
}

func (s *Server) bidVariance(w http.ResponseWriter, r *http.Request) {
	s.handle(func(r *http.Request, sc *scope) (any, error) {
		bins, err := intParam(r, "bins", defaultBins, 1, 500)
		if err != nil {
			return nil, err
		}
		return bidVarianceView(s, sc, bins)
	})(w, r)
}

func bidVarianceView(s *Server, sc *scope, bins int) (analysis.BidVarianceView, error) {
	return view(s, sc, "bid-variance", func(ps []model.Project) (analysis.BidVarianceView, error) {
		return analysis.BidVariance(ps, bins), nil
	}, strconv.Itoa(bins))
}

func (s *Server) clusters(w http.ResponseWriter, r *http.Request) {
	s.handle(func(r *http.Request, sc *scope) (any, error) {
		opts := analysis.DefaultClusterOptions()
		var err error
		if opts.K, err = intParam(r, "k", opts.K, 2, 10); err != nil {
			return nil, err
		}
		seed, err := intParam(r, "seed", int(opts.Seed), 0, 1<<31-1)
		if err != nil {
			return nil, err
		}
		opts.Seed = uint64(seed)
		return view(s, sc, "clusters", func(ps []model.Project) (analysis.ClusterView, error) {
			return analysis.Cluster(ps, opts), nil
		}, strconv.Itoa(opts.K), strconv.Itoa(seed))
	})(w, r)
}

func (s *Server) describe(w http.ResponseWriter, r *http.Request) {
	s.handle(func(r *http.Request, sc *scope) (any, error) {
		field := chi.URLParam(r, "field")
		return view(s, sc, "describe", func(ps []model.Project) (analysis.Description, error) {
			return analysis.Describe(ps, field)
		}, field)
	})(w, r)
}

func (s *Server) box(w http.ResponseWriter, r *http.Request) {
	s.handle(func(r *http.Request, sc *scope) (any, error) {
		field := chi.URLParam(r, "field")
		return view(s, sc, "box", func(ps []model.Project) ([]analysis.Box, error) {
			return analysis.BoxByRegion(ps, field)
		}, field)
	})(w, r)
}

func (s *Server) correlation(w http.ResponseWriter, r *http.Request) {
	s.handle(func(_ *http.Request, sc *scope) (any, error) {
		return view(s, sc, "correlation", func(ps []model.Project) (analysis.CorrelationMatrix, error) {
			return analysis.Correlation(ps), nil
		})
	})(w, r)
}

func (s *Server) regression(w http.ResponseWriter, r *http.Request) {
	s.handle(func(_ *http.Request, sc *scope) (any, error) {
		return view(s, sc, "regression", func(ps []model.Project) (analysis.RegressionView, error) {
			return analysis.Regression(ps), nil
		})
	})(w, r)
}

type preparationResponse struct {
	Report  prepare.Report       `json:"report"`
	Quality analysis.QualityView `json:"quality"`
}

func (s *Server) preparation(w http.ResponseWriter, r *http.Request) {
	s.handle(func(_ *http.Request, sc *scope) (any, error) {
		q, err := qualityView(s, sc)
		if err != nil {
			return nil, err
		}
		return preparationResponse{Report: sc.snap.Result.Report, Quality: q}, nil
	})(w, r)
}

func qualityView(s *Server, sc *scope) (analysis.QualityView, error) {
	return view(s, sc, "quality", func(ps []model.Project) (analysis.QualityView, error) {
		return analysis.DataQuality(ps), nil
	})
}

func (s *Server) geoJSON(w http.ResponseWriter, r *http.Request) {
	sc, err := s.scope(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	body, err := view(s, sc, "geojson", func(ps []model.Project) ([]byte, error) {
		return json.Marshal(geo.FeatureCollection(ps, s.palette))
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(body)
}

type layersResponse struct {
	View           geo.View                             `json:"view"`
	TileLayers     []geo.TileLayer                      `json:"tile_layers"`
	Susceptibility map[string][]geo.SusceptibilityLevel `json:"susceptibility"`
}

func (s *Server) layers(w http.ResponseWriter, r *http.Request) {
	s.handle(func(_ *http.Request, sc *scope) (any, error) {
		v := geo.ViewFor(sc.projects)
		if sc.mapView != nil && *sc.mapView != session.DefaultMapView() {
			v.Lat, v.Lon, v.Zoom = sc.mapView.Lat, sc.mapView.Lon, sc.mapView.Zoom
		}
		return layersResponse{
			View:           v,
			TileLayers:     geo.TileLayers(),
			Susceptibility: geo.SusceptibilityLegend(),
		}, nil
	})(w, r)
}

func (s *Server) legend(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.palette.Legend())
}

type reloadResponse struct {
	Version uint64 `json:"version"`
	Source  string `json:"source"`
	Rows    int    `json:"rows"`
}

func (s *Server) reload(w http.ResponseWriter, r *http.Request) {
	snap, err := s.data.Reload(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.views.Purge()
	render.JSON(w, r, reloadResponse{Version: snap.Version, Source: snap.Source, Rows: len(snap.Projects())})
}
