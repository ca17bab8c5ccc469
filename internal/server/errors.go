package server

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/floodaudit/floodaudit/internal/analysis"
	"github.com/floodaudit/floodaudit/internal/filter"
	"github.com/floodaudit/floodaudit/internal/loader"
	"github.com/floodaudit/floodaudit/internal/session"
)

// errBadParam marks a malformed query parameter or request body.
var errBadParam = eris.New("bad parameter")

type errorResponse struct {
	Status    int    `json:"status"`
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func statusFor(err error) int {
	switch {
	case eris.Is(err, loader.ErrDataUnavailable):
		return http.StatusServiceUnavailable
	case eris.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case eris.Is(err, filter.ErrInvalidCriteria),
		eris.Is(err, analysis.ErrUnknownField),
		eris.Is(err, session.ErrInvalidState),
		eris.Is(err, errBadParam):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		zap.L().Error("server: request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		msg = http.StatusText(status)
	}
	render.Status(r, status)
	render.JSON(w, r, errorResponse{
		Status:    status,
		Error:     msg,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// respond writes v as JSON, or the error.
func respond(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, v)
}
