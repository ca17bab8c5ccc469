package fetcher

import (
	"archive/zip"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
)

// datasetExts are the table formats the loader reads.
var datasetExts = []string{".csv", ".tsv", ".xlsx"}

// IsZIP reports whether name looks like a ZIP archive.
func IsZIP(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".zip")
}

// ExtractDataset copies the first table file found in a ZIP archive to destPath.
// It returns the archive entry name.
func ExtractDataset(zipPath, destPath string) (string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", eris.Wrap(err, "zip: open archive")
	}
	defer r.Close() //nolint:errcheck

	for _, f := range r.File {
		if f.FileInfo().IsDir() || strings.HasPrefix(filepath.Base(f.Name), ".") {
			continue
		}
		if !slices.Contains(datasetExts, strings.ToLower(filepath.Ext(f.Name))) {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return "", eris.Wrap(err, "zip: open entry")
		}
		_, err = writeFile(destPath, rc)
		rc.Close() //nolint:errcheck
		if err != nil {
			return "", eris.Wrap(err, "zip: extract")
		}
		return f.Name, nil
	}
	return "", eris.Errorf("zip: no %s file in archive", strings.Join(datasetExts, "/"))
}
