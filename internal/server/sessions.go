package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/rotisserie/eris"

	"github.com/floodaudit/floodaudit/internal/filter"
	"github.com/floodaudit/floodaudit/internal/session"
)

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, sess)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	respond(w, r, sess, err)
}

// stateUpdate replaces whichever parts of the session state are present.
type stateUpdate struct {
	Criteria *filter.Criteria `json:"criteria"`
	Map      *session.MapView `json:"map"`
}

func (s *Server) putSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	current, err := s.sessions.Get(id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var upd stateUpdate
	if err := render.DecodeJSON(r.Body, &upd); err != nil {
		writeError(w, r, eris.Wrapf(errBadParam, "session body: %v", err))
		return
	}
	st := current.State
	if upd.Criteria != nil {
		st.Criteria = *upd.Criteria
	}
	if upd.Map != nil {
		st.Map = *upd.Map
	}

	sess, err := s.sessions.Update(id, st)
	respond(w, r, sess, err)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	s.sessions.Delete(chi.URLParam(r, "id"))
	render.NoContent(w, r)
}
