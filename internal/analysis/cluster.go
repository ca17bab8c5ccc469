package analysis

import (
	"cmp"
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/floodaudit/floodaudit/internal/model"
)

// MinClusterRows is the smallest sample Cluster will fit.
const MinClusterRows = 10

// ClusterOptions configures k-means.
type ClusterOptions struct {
	K       int    `json:"k"`
	NInit   int    `json:"n_init"`
	MaxIter int    `json:"max_iter"`
	Seed    uint64 `json:"seed"`
}

// DefaultClusterOptions returns four clusters, ten restarts and seed 42.
func DefaultClusterOptions() ClusterOptions {
	return ClusterOptions{K: 4, NInit: 10, MaxIter: 300, Seed: 42}
}

// ClusterPoint is one project and its assigned cluster.
type ClusterPoint struct {
	ProjectID    string  `json:"ProjectId"`
	ContractCost float64 `json:"ContractCost"`
	Duration     int     `json:"Duration"`
	Cluster      int     `json:"cluster"`
}

// ClusterView is the cost-versus-duration segmentation.
type ClusterView struct {
	Enough  bool           `json:"enough_data"`
	Message string         `json:"message,omitempty"`
	K       int            `json:"k"`
	Sizes   []int          `json:"sizes"`
	Inertia float64        `json:"inertia"`
	Points  []ClusterPoint `json:"points"`
}

// Cluster segments projects by log1p(ContractCost) and log1p(Duration), both
// standardized, with k-means++ seeding and NInit restarts keeping the lowest
// inertia. Only rows with a non-negative duration and cost take part. Cluster
// labels are ordered by ascending mean cost so equal input gives equal output.
func Cluster(projects []model.Project, opts ClusterOptions) ClusterView {
	view := ClusterView{K: opts.K, Sizes: []int{}, Points: []ClusterPoint{}}

	var pts []ClusterPoint
	for i := range projects {
		p := &projects[i]
		if p.Duration == nil || *p.Duration < 0 || p.ContractCost < 0 {
			continue
		}
		pts = append(pts, ClusterPoint{ProjectID: p.ProjectID, ContractCost: p.ContractCost, Duration: *p.Duration})
	}
	if opts.K < 1 || len(pts) < max(MinClusterRows, opts.K) {
		view.Message = "not enough data"
		return view
	}

	cost := make([]float64, len(pts))
	dur := make([]float64, len(pts))
	for i, p := range pts {
		cost[i] = math.Log1p(p.ContractCost)
		dur[i] = math.Log1p(float64(p.Duration))
	}
	standardize(cost)
	standardize(dur)
	data := make([][2]float64, len(pts))
	for i := range data {
		data[i] = [2]float64{cost[i], dur[i]}
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	best := fit{inertia: math.Inf(1)}
	for range max(opts.NInit, 1) {
		if f := kmeans(data, opts.K, max(opts.MaxIter, 1), rng); f.inertia < best.inertia {
			best = f
		}
	}

	labels := relabelByCost(best, opts.K)
	view.Enough = true
	view.Inertia = best.inertia
	view.Sizes = make([]int, opts.K)
	for i := range pts {
		pts[i].Cluster = labels[best.labels[i]]
		view.Sizes[pts[i].Cluster]++
	}
	view.Points = pts
	return view
}

// standardize rescales x in place to zero mean and unit population variance.
// Constant columns are only centered.
func standardize(x []float64) {
	mean, std := stat.PopMeanStdDev(x, nil)
	if std == 0 || math.IsNaN(std) {
		std = 1
	}
	floats.AddConst(-mean, x)
	floats.Scale(1/std, x)
}

type fit struct {
	centers [][2]float64
	labels  []int
	inertia float64
}

func sqDist(a, b [2]float64) float64 {
	dx, dy := a[0]-b[0], a[1]-b[1]
	return dx*dx + dy*dy
}

// kmeans runs Lloyd iterations from a k-means++ start until assignments settle.
func kmeans(data [][2]float64, k, maxIter int, rng *rand.Rand) fit {
	centers := seedCenters(data, k, rng)
	labels := make([]int, len(data))
	for i := range labels {
		labels[i] = -1
	}

	for range maxIter {
		changed := false
		for i, p := range data {
			c := nearest(p, centers)
			if c != labels[i] {
				labels[i] = c
				changed = true
			}
		}
		if !changed {
			break
		}

		sums := make([][2]float64, k)
		counts := make([]int, k)
		for i, p := range data {
			sums[labels[i]][0] += p[0]
			sums[labels[i]][1] += p[1]
			counts[labels[i]]++
		}
		for c := range centers {
			// An empty cluster keeps its previous center.
			if counts[c] > 0 {
				centers[c] = [2]float64{sums[c][0] / float64(counts[c]), sums[c][1] / float64(counts[c])}
			}
		}
	}

	inertia := 0.0
	for i, p := range data {
		inertia += sqDist(p, centers[labels[i]])
	}
	return fit{centers: centers, labels: labels, inertia: inertia}
}

func nearest(p [2]float64, centers [][2]float64) int {
	best, bestD := 0, math.Inf(1)
	for c, ctr := range centers {
		if d := sqDist(p, ctr); d < bestD {
			best, bestD = c, d
		}
	}
	return best
}

// seedCenters picks k starting centers with D² weighting.
func seedCenters(data [][2]float64, k int, rng *rand.Rand) [][2]float64 {
	centers := make([][2]float64, 0, k)
	centers = append(centers, data[rng.IntN(len(data))])

	dist := make([]float64, len(data))
	for len(centers) < k {
		total := 0.0
		for i, p := range data {
			dist[i] = sqDist(p, centers[nearest(p, centers)])
			total += dist[i]
		}
		if total == 0 {
			centers = append(centers, data[rng.IntN(len(data))])
			continue
		}
		target := rng.Float64() * total
		idx := len(data) - 1
		for i, d := range dist {
			target -= d
			if target <= 0 {
				idx = i
				break
			}
		}
		centers = append(centers, data[idx])
	}
	return centers
}

// relabelByCost maps fitted cluster ids to ids ordered by center cost.
func relabelByCost(f fit, k int) []int {
	order := make([]int, k)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(f.centers[a][0], f.centers[b][0])
	})
	labels := make([]int, k)
	for newID, oldID := range order {
		labels[oldID] = newID
	}
	return labels
}
