// Package loader reads the raw projects dataset from disk into a model.RawTable.
package loader

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/floodaudit/floodaudit/internal/model"
)

// ErrDataUnavailable is returned (wrapped) when the source file is missing or cannot be
// parsed as a table. It is recoverable: the caller shows a warning and renders nothing.
var ErrDataUnavailable = eris.New("data unavailable")

// requiredColumns must all be present in the header; without them no row can survive
// preparation, so the file is treated as unparseable.
var requiredColumns = []string{
	model.ColContractCost,
	model.ColApprovedBudget,
	model.ColFundingYear,
	model.ColProjectLatitude,
	model.ColProjectLongitude,
}

// Options configures how a delimited file is parsed.
type Options struct {
	Delimiter rune // default ','; files ending in .tsv always use tab
}

// Load reads path into a RawTable. On any failure it returns an empty table for path
// together with an error wrapping ErrDataUnavailable.
func Load(ctx context.Context, path string, opts Options) (*model.RawTable, error) {
	empty := &model.RawTable{Source: path}

	info, err := os.Stat(path)
	if err != nil {
		return empty, unavailable(path, err)
	}
	if info.IsDir() {
		return empty, unavailable(path, eris.New("is a directory"))
	}

	var rows [][]string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = readXLSX(path)
	case ".tsv":
		rows, err = readDelimited(ctx, path, '\t')
	default:
		delim := opts.Delimiter
		if delim == 0 {
			delim = ','
		}
		rows, err = readDelimited(ctx, path, delim)
	}
	if err != nil {
		return empty, unavailable(path, err)
	}

	table, err := buildTable(path, rows)
	if err != nil {
		return empty, unavailable(path, err)
	}

	zap.L().Debug("loader: read dataset",
		zap.String("path", path),
		zap.Int("rows", table.Len()),
		zap.Int("columns", len(table.Header)),
	)
	return table, nil
}

func unavailable(path string, cause error) error {
	return eris.Wrapf(ErrDataUnavailable, "loader: %s: %v", path, cause)
}

// buildTable maps the header to source columns and converts each row into a RawRecord.
// Unknown columns are ignored; known columns missing from the header read as "".
func buildTable(path string, rows [][]string) (*model.RawTable, error) {
	if len(rows) == 0 {
		return nil, eris.New("no header row")
	}

	header := normalizeHeader(rows[0])
	colIdx := mapColumns(header)

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := colIdx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, eris.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	var absent []string
	for _, col := range model.RawColumns {
		if _, ok := colIdx[col]; !ok {
			absent = append(absent, col)
		}
	}
	if len(absent) > 0 {
		zap.L().Warn("loader: optional columns absent, values will be blank",
			zap.String("path", path),
			zap.Strings("columns", absent),
		)
	}

	records := make([]model.RawRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		var rec model.RawRecord
		for col, idx := range colIdx {
			if idx < len(row) {
				rec.SetField(col, row[idx])
			}
		}
		records = append(records, rec)
	}

	return &model.RawTable{Source: path, Header: header, Records: records}, nil
}

// normalizeHeader trims whitespace and a leading UTF-8 byte order mark.
func normalizeHeader(row []string) []string {
	header := make([]string, len(row))
	for i, col := range row {
		if i == 0 {
			col = strings.Trim(strings.TrimPrefix(col, "\ufeff"), `"`)
		}
		header[i] = strings.TrimSpace(col)
	}
	return header
}

// mapColumns builds a source column name → index map. Only exact matches of known
// columns are kept; the first occurrence of a duplicated name wins.
func mapColumns(header []string) map[string]int {
	known := make(map[string]bool, len(model.RawColumns))
	for _, col := range model.RawColumns {
		known[col] = true
	}
	m := make(map[string]int, len(header))
	for i, col := range header {
		if !known[col] {
			continue
		}
		if _, dup := m[col]; !dup {
			m[col] = i
		}
	}
	return m
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
