package main

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/floodaudit/floodaudit/internal/export"
	"github.com/floodaudit/floodaudit/internal/filter"
	"github.com/floodaudit/floodaudit/internal/geo"
	"github.com/floodaudit/floodaudit/internal/model"
)

var (
	exportFormat string
	exportOut    string
	exportFilter string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the filtered projects as CSV, XLSX, GeoJSON or a shapefile",
	Example: `  floodaudit export --format csv --out ncr.csv --filter "region=NCR"
  floodaudit export --format shp --out suspicious.zip --filter "suspicious=true"`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("prepare"); err != nil {
			return err
		}
		write, err := exporterFor(exportFormat)
		if err != nil {
			return err
		}
		criteria, err := parseCriteria(exportFilter)
		if err != nil {
			return err
		}

		snap, err := loadSnapshot(cmd.Context())
		if err != nil {
			return err
		}
		projects := filter.Apply(snap.Projects(), criteria)

		if exportOut == "" || exportOut == "-" {
			return write(os.Stdout, projects)
		}
		if err := writeExport(exportOut, write, projects); err != nil {
			return err
		}
		zap.L().Info("export: wrote file",
			zap.String("format", exportFormat),
			zap.String("path", exportOut),
			zap.Int("rows", len(projects)),
		)
		return nil
	},
}

type exportFunc func(io.Writer, []model.Project) error

func exporterFor(format string) (exportFunc, error) {
	switch strings.ToLower(format) {
	case "csv":
		return export.WriteCSV, nil
	case "xlsx":
		return export.WriteXLSX, nil
	case "geojson":
		return func(w io.Writer, ps []model.Project) error {
			palette, err := geo.LoadPalette(cfg.Palette.Path)
			if err != nil {
				return err
			}
			return json.NewEncoder(w).Encode(geo.FeatureCollection(ps, palette))
		}, nil
	case "shp":
		return func(w io.Writer, ps []model.Project) error {
			return geo.WriteShapefileZip(w, "flood_control_projects", ps)
		}, nil
	default:
		return nil, eris.Errorf("export: unknown format %q (want csv, xlsx, geojson or shp)", format)
	}
}

// writeExport renders into path, removing a partial file on failure.
func writeExport(path string, write exportFunc, projects []model.Project) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	if err := write(f, projects); err != nil {
		f.Close()       //nolint:errcheck
		os.Remove(path) //nolint:errcheck
		return err
	}
	return eris.Wrapf(f.Close(), "export: close %s", path)
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format: csv, xlsx, geojson or shp (zipped)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output path (default stdout)")
	exportCmd.Flags().StringVar(&exportFilter, "filter", "", `filter criteria as a query string, e.g. "region=NCR&year_min=2023"`)
	rootCmd.AddCommand(exportCmd)
}
