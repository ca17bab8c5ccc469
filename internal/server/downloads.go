package server

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/floodaudit/floodaudit/internal/export"
	"github.com/floodaudit/floodaudit/internal/geo"
	"github.com/floodaudit/floodaudit/internal/model"
)

const downloadBase = "flood_control_projects"

// download renders the filtered rows into a buffer first, so a failed export
// still produces a clean error response.
func (s *Server) download(ext, contentType string, write func(io.Writer, []model.Project) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, err := s.scope(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		var buf bytes.Buffer
		if err := write(&buf, sc.projects); err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadBase+ext))
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		_, _ = buf.WriteTo(w)
	}
}

func (s *Server) downloadCSV(w http.ResponseWriter, r *http.Request) {
	s.download(".csv", "text/csv; charset=utf-8", export.WriteCSV)(w, r)
}

func (s *Server) downloadXLSX(w http.ResponseWriter, r *http.Request) {
	s.download(".xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", export.WriteXLSX)(w, r)
}

func (s *Server) downloadShapefile(w http.ResponseWriter, r *http.Request) {
	s.download(".shp.zip", "application/zip", func(w io.Writer, ps []model.Project) error {
		return geo.WriteShapefileZip(w, downloadBase, ps)
	})(w, r)
}
