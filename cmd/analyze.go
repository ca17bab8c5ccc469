package main

import (
	"encoding/json"
	"io"
	"os"
	"slices"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/floodaudit/floodaudit/internal/analysis"
	"github.com/floodaudit/floodaudit/internal/filter"
	"github.com/floodaudit/floodaudit/internal/loader"
	"github.com/floodaudit/floodaudit/internal/model"
)

var (
	analyzeFilter string
	analyzeField  string
	analyzeTop    int
	analyzeBins   int
	analyzeLog    bool
	analyzeK      int
)

// analyzeViews maps a view name to its computation over the filtered rows.
var analyzeViews = map[string]func([]model.Project) (any, error){
	"summary": func(ps []model.Project) (any, error) { return analysis.Summarize(ps), nil },
	"counts": func(ps []model.Project) (any, error) {
		return analysis.CountByField(ps, fieldOr(model.ColRegion), analyzeTop)
	},
	"contractors": func(ps []model.Project) (any, error) {
		top := analyzeTop
		if top <= 0 {
			top = 10
		}
		return analysis.TopContractors(ps, top), nil
	},
	"histogram": func(ps []model.Project) (any, error) {
		return analysis.Histogram(ps, fieldOr(model.ColContractCost), analyzeBins, analyzeLog)
	},
	"benford":      func(ps []model.Project) (any, error) { return analysis.Benford(ps), nil },
	"bid-variance": func(ps []model.Project) (any, error) { return analysis.BidVariance(ps, analyzeBins), nil },
	"clusters": func(ps []model.Project) (any, error) {
		opts := analysis.DefaultClusterOptions()
		opts.K = analyzeK
		return analysis.Cluster(ps, opts), nil
	},
	"describe": func(ps []model.Project) (any, error) {
		return analysis.Describe(ps, fieldOr(model.ColContractCost))
	},
	"box": func(ps []model.Project) (any, error) {
		return analysis.BoxByRegion(ps, fieldOr(model.ColContractCost))
	},
	"correlation": func(ps []model.Project) (any, error) { return analysis.Correlation(ps), nil },
	"regression":  func(ps []model.Project) (any, error) { return analysis.Regression(ps), nil },
	"quality":     func(ps []model.Project) (any, error) { return analysis.DataQuality(ps), nil },
}

func viewNames() []string {
	names := make([]string, 0, len(analyzeViews))
	for name := range analyzeViews {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func fieldOr(def string) string {
	if analyzeField != "" {
		return analyzeField
	}
	return def
}

var analyzeCmd = &cobra.Command{
	Use:       "analyze <view>",
	Short:     "Print one dashboard view of the filtered projects as JSON",
	Long:      "Computes a view over the filtered projects. Views: summary, counts, contractors, histogram, benford, bid-variance, clusters, describe, box, correlation, regression, quality.",
	Args:      cobra.ExactArgs(1),
	ValidArgs: viewNames(),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("prepare"); err != nil {
			return err
		}
		compute, ok := analyzeViews[args[0]]
		if !ok {
			return eris.Errorf("analyze: unknown view %q", args[0])
		}
		criteria, err := parseCriteria(analyzeFilter)
		if err != nil {
			return err
		}

		snap, err := loadSnapshot(cmd.Context())
		if eris.Is(err, loader.ErrDataUnavailable) {
			// Nothing to render; a missing file is not a failure here.
			zap.L().Warn("analyze: dataset unavailable", zap.Error(err))
			return nil
		}
		if err != nil {
			return err
		}

		v, err := compute(filter.Apply(snap.Projects(), criteria))
		if err != nil {
			return err
		}
		return writeJSON(os.Stdout, v)
	},
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "encode output")
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeFilter, "filter", "", `filter criteria as a query string, e.g. "main_island=Luzon&suspicious=true"`)
	f.StringVar(&analyzeField, "field", "", "column for counts, histogram, describe and box")
	f.IntVar(&analyzeTop, "top", 0, "limit counts and contractors to the top N")
	f.IntVar(&analyzeBins, "bins", 50, "histogram bins")
	f.BoolVar(&analyzeLog, "log", false, "log-scale histogram")
	f.IntVar(&analyzeK, "k", 4, "number of clusters")
	rootCmd.AddCommand(analyzeCmd)
}
