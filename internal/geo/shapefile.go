package geo

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"github.com/floodaudit/floodaudit/internal/model"
)

// shapeFields are the DBF attributes written for every point. DBF names are
// limited to ten characters.
var shapeFields = []shp.Field{
	shp.StringField("PROJ_ID", 32),
	shp.StringField("NAME", 254),
	shp.StringField("TYPE_WORK", 120),
	shp.StringField("REGION", 64),
	shp.StringField("PROVINCE", 64),
	shp.StringField("CONTRACTOR", 254),
	shp.FloatField("COST", 18, 2),
	shp.FloatField("BUDGET", 18, 2),
	shp.NumberField("YEAR", 4),
	shp.FloatField("RISK", 12, 4),
	shp.NumberField("SUSPECT", 1),
}

// WriteShapefile writes an ESRI point shapefile (.shp, .shx, .dbf) at path.
func WriteShapefile(path string, projects []model.Project) error {
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return eris.Wrapf(err, "geo: create shapefile %s", path)
	}
	defer w.Close()

	if err := w.SetFields(shapeFields); err != nil {
		return eris.Wrap(err, "geo: set shapefile fields")
	}

	for i := range projects {
		p := &projects[i]
		row := int(w.Write(&shp.Point{X: p.Longitude, Y: p.Latitude}))

		suspect := 0
		if p.IsSuspicious {
			suspect = 1
		}
		values := []any{
			truncate(p.ProjectID, 32),
			truncate(p.ProjectName, 254),
			truncate(p.TypeOfWork, 120),
			truncate(p.Region, 64),
			truncate(p.Province, 64),
			truncate(p.Contractor, 254),
			p.ContractCost,
			p.ApprovedBudgetForContract,
			p.FundingYear,
			p.RiskScoreOr(0),
			suspect,
		}
		for field, v := range values {
			if err := w.WriteAttribute(row, field, v); err != nil {
				return eris.Wrapf(err, "geo: write attribute %d of %s", field, p.ProjectID)
			}
		}
	}
	return nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// WriteShapefileZip writes the shapefile set for projects into a zip archive
// named after base (e.g. "projects" gives projects.shp, projects.shx, projects.dbf).
func WriteShapefileZip(w io.Writer, base string, projects []model.Project) error {
	dir, err := os.MkdirTemp("", "floodaudit-shp-*")
	if err != nil {
		return eris.Wrap(err, "geo: create temp dir")
	}
	defer func() { _ = os.RemoveAll(dir) }()

	if err := WriteShapefile(filepath.Join(dir, base+".shp"), projects); err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		if err := addZipFile(zw, filepath.Join(dir, base+ext), base+ext); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return eris.Wrap(err, "geo: close zip")
	}
	return nil
}

func addZipFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "geo: open %s", name)
	}
	defer func() { _ = f.Close() }()

	dst, err := zw.Create(name)
	if err != nil {
		return eris.Wrapf(err, "geo: zip entry %s", name)
	}
	if _, err := io.Copy(dst, f); err != nil {
		return eris.Wrapf(err, "geo: zip copy %s", name)
	}
	return nil
}
