package server

import (
	"net/http"
	"strconv"

	"github.com/rotisserie/eris"
)

// intParam reads an integer query parameter in [lo, hi], or def when absent.
func intParam(r *http.Request, name string, def, lo, hi int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || v > hi {
		return 0, eris.Wrapf(errBadParam, "%s must be an integer in [%d, %d], got %q", name, lo, hi, raw)
	}
	return v, nil
}

func boolParam(r *http.Request, name string, def bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, eris.Wrapf(errBadParam, "%s must be a boolean, got %q", name, raw)
	}
	return v, nil
}
