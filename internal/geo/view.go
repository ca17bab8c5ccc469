// Package geo turns prepared projects into map layers: GeoJSON markers,
// shapefiles, map extents and the type-of-work palette.
package geo

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/floodaudit/floodaudit/internal/model"
)

// Initial map view centered on the archipelago.
const (
	DefaultLat  = 11.891783
	DefaultLon  = 122.419922
	DefaultZoom = 6
)

// Extent is a lat/lon bounding box.
type Extent struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Center returns the middle of the box.
func (e Extent) Center() (lat, lon float64) {
	return (e.MinLat + e.MaxLat) / 2, (e.MinLon + e.MaxLon) / 2
}

// View is the initial map state for a selection.
type View struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Zoom   int     `json:"zoom"`
	Extent *Extent `json:"extent"`
}

// DefaultView returns the fixed initial view.
func DefaultView() View {
	return View{Lat: DefaultLat, Lon: DefaultLon, Zoom: DefaultZoom}
}

// Bounds returns the extent of the projects' coordinates; ok is false with no projects.
func Bounds(projects []model.Project) (Extent, bool) {
	if len(projects) == 0 {
		return Extent{}, false
	}
	flat := make([]float64, 0, 2*len(projects))
	for i := range projects {
		flat = append(flat, projects[i].Longitude, projects[i].Latitude)
	}
	b := geom.NewMultiPointFlat(geom.XY, flat).Bounds()
	return Extent{MinLon: b.Min(0), MinLat: b.Min(1), MaxLon: b.Max(0), MaxLat: b.Max(1)}, true
}

// ViewFor keeps the default center and zoom and attaches the selection extent.
func ViewFor(projects []model.Project) View {
	v := DefaultView()
	if e, ok := Bounds(projects); ok {
		v.Extent = &e
	}
	return v
}

// Area is a closed lon/lat ring used to sanity-check coordinates.
type Area struct {
	Name string
	ring []float64
}

// NewArea builds an area from lon/lat vertices; the ring is closed automatically.
func NewArea(name string, vertices [][2]float64) Area {
	ring := make([]float64, 0, 2*len(vertices)+2)
	for _, v := range vertices {
		ring = append(ring, v[0], v[1])
	}
	if n := len(vertices); n > 0 && vertices[0] != vertices[n-1] {
		ring = append(ring, vertices[0][0], vertices[0][1])
	}
	return Area{Name: name, ring: ring}
}

// Contains reports whether the point lies inside the ring.
func (a Area) Contains(lat, lon float64) bool {
	return xy.IsPointInRing(geom.XY, geom.Coord{lon, lat}, a.ring)
}

// Philippines is a generous envelope around the archipelago.
var Philippines = NewArea("Philippines", [][2]float64{
	{116.0, 4.2}, {127.2, 4.2}, {127.2, 21.3}, {116.0, 21.3},
})
