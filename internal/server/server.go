// Package server exposes the dashboard views, downloads and sessions as a JSON
// HTTP API.
package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"

	"github.com/floodaudit/floodaudit/internal/cache"
	"github.com/floodaudit/floodaudit/internal/dataset"
	"github.com/floodaudit/floodaudit/internal/filter"
	"github.com/floodaudit/floodaudit/internal/geo"
	"github.com/floodaudit/floodaudit/internal/model"
	"github.com/floodaudit/floodaudit/internal/session"
)

// Options configures request limits and CORS.
type Options struct {
	RateLimit   float64
	RateBurst   int
	CORSOrigins []string
}

// Server wires the prepared dataset, sessions and the view cache to HTTP.
type Server struct {
	data     *dataset.Service
	sessions *session.Manager
	views    *cache.Views
	palette  *geo.Palette
	metrics  *Metrics
	opts     Options
}

// New creates a Server. A nil palette uses the embedded default.
func New(data *dataset.Service, sessions *session.Manager, views *cache.Views, palette *geo.Palette, opts Options) *Server {
	if palette == nil {
		palette = geo.DefaultPalette()
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	return &Server{
		data:     data,
		sessions: sessions,
		views:    views,
		palette:  palette,
		metrics:  NewMetrics(views, data),
		opts:     opts,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))
	r.Use(s.metrics.instrument)

	r.Get("/health", s.health)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(rateLimit(s.opts.RateLimit, s.opts.RateBurst, s.metrics.rateLimited.Inc))
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Post("/sessions", s.createSession)
		r.Get("/sessions/{id}", s.getSession)
		r.Put("/sessions/{id}", s.putSession)
		r.Delete("/sessions/{id}", s.deleteSession)

		r.Get("/filters", s.filterOptions)
		r.Get("/projects", s.projects)
		r.Get("/projects.csv", s.downloadCSV)
		r.Get("/projects.xlsx", s.downloadXLSX)
		r.Get("/projects.shp.zip", s.downloadShapefile)

		r.Get("/summary", s.summary)
		r.Get("/counts/{field}", s.counts)
		r.Get("/contractors", s.contractors)
		r.Get("/histogram", s.histogram)
		r.Get("/benford", s.benford)
		r.Get("/bid-variance", s.bidVariance)
		r.Get("/clusters", s.clusters)
		r.Get("/describe/{field}", s.describe)
		r.Get("/box/{field}", s.box)
		r.Get("/correlation", s.correlation)
		r.Get("/regression", s.regression)
		r.Get("/preparation", s.preparation)
		r.Get("/map", s.geoJSON)
		r.Get("/layers", s.layers)
		r.Get("/legend", s.legend)
		r.Get("/dashboard", s.dashboard)

		r.Post("/reload", s.reload)
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// scope is the filtered table a request operates on.
type scope struct {
	snap     *dataset.Snapshot
	criteria filter.Criteria
	key      string
	projects []model.Project
	mapView  *session.MapView
}

// scope resolves the request's criteria, from the session named by the
// "session" query parameter or else from the query string itself, and returns
// the memoized filtered rows.
func (s *Server) scope(r *http.Request) (*scope, error) {
	snap, err := s.data.Current(r.Context())
	if err != nil {
		return nil, err
	}

	sc := &scope{snap: snap}
	q := r.URL.Query()
	if id := q.Get("session"); id != "" {
		sess, err := s.sessions.Get(id)
		if err != nil {
			return nil, err
		}
		sc.criteria = sess.State.Criteria
		sc.mapView = &sess.State.Map
	} else if sc.criteria, err = filter.FromQuery(q); err != nil {
		return nil, err
	}

	sc.key = cache.Key(strconv.FormatUint(snap.Version, 10), sc.criteria.Key())
	sc.projects, err = cache.Get(s.views, cache.Key(sc.key, "rows"), func() ([]model.Project, error) {
		return filter.Apply(snap.Projects(), sc.criteria), nil
	})
	if err != nil {
		return nil, err
	}
	return sc, nil
}

// view memoizes compute over the scope's rows under name and params.
func view[T any](s *Server, sc *scope, name string, compute func([]model.Project) (T, error), params ...string) (T, error) {
	key := cache.Key(append([]string{sc.key, name}, params...)...)
	return cache.Get(s.views, key, func() (T, error) {
		return compute(sc.projects)
	})
}
