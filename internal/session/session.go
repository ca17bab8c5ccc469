// Package session keeps per-user dashboard state: filter criteria and map view.
// Sessions never share mutable state; callers always receive copies.
package session

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/floodaudit/floodaudit/internal/filter"
	"github.com/floodaudit/floodaudit/internal/geo"
)

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = eris.New("session not found")

// ErrInvalidState is returned when an update fails validation.
var ErrInvalidState = eris.New("invalid session state")

// MapView is the map center and zoom level.
type MapView struct {
	Lat  float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon  float64 `json:"lon" validate:"gte=-180,lte=180"`
	Zoom int     `json:"zoom" validate:"gte=1,lte=20"`
}

// DefaultMapView returns the initial map view.
func DefaultMapView() MapView {
	v := geo.DefaultView()
	return MapView{Lat: v.Lat, Lon: v.Lon, Zoom: v.Zoom}
}

// State is everything a session remembers.
type State struct {
	Criteria filter.Criteria `json:"criteria"`
	Map      MapView         `json:"map"`
}

func (s State) clone() State {
	c := s.Criteria
	c.Regions = slices.Clone(c.Regions)
	c.Provinces = slices.Clone(c.Provinces)
	c.TypesOfWork = slices.Clone(c.TypesOfWork)
	c.Contractors = slices.Clone(c.Contractors)
	c.MainIslands = slices.Clone(c.MainIslands)
	if c.YearRange != nil {
		yr := *c.YearRange
		c.YearRange = &yr
	}
	return State{Criteria: c, Map: s.Map}
}

// Session is a snapshot of one session.
type Session struct {
	ID        string    `json:"id"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Manager holds sessions in memory and expires them after an idle TTL.
type Manager struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	validate *validator.Validate
	sessions map[string]*Session
}

// NewManager creates a Manager. A non-positive ttl disables expiry.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		ttl:      ttl,
		now:      time.Now,
		validate: validator.New(),
		sessions: make(map[string]*Session),
	}
}

// Create starts a session with empty criteria and the default map view.
func (m *Manager) Create() Session {
	now := m.now()
	s := &Session{
		ID:        uuid.NewString(),
		State:     State{Map: DefaultMapView()},
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	return m.snapshot(s)
}

// Get returns the session and refreshes its idle timer.
func (m *Manager) Get(id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(id)
	if err != nil {
		return Session{}, err
	}
	s.UpdatedAt = m.now()
	return m.snapshot(s), nil
}

// Update replaces the session state after validating it.
func (m *Manager) Update(id string, st State) (Session, error) {
	if err := st.Criteria.Validate(); err != nil {
		return Session{}, eris.Wrapf(ErrInvalidState, "session: %v", err)
	}
	if err := m.validate.Struct(st.Map); err != nil {
		return Session{}, eris.Wrapf(ErrInvalidState, "session: map: %v", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(id)
	if err != nil {
		return Session{}, err
	}
	s.State = st.clone()
	s.UpdatedAt = m.now()
	return m.snapshot(s), nil
}

// Delete removes a session; unknown ids are ignored.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep removes expired sessions and returns how many were removed.
func (m *Manager) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, s := range m.sessions {
		if now.Sub(s.UpdatedAt) > m.ttl {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				zap.L().Debug("session: swept expired sessions", zap.Int("removed", n))
			}
		}
	}
}

// lookup must be called with mu held. Expired sessions are removed on access.
func (m *Manager) lookup(id string) (*Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "session: %s", id)
	}
	if m.ttl > 0 && m.now().Sub(s.UpdatedAt) > m.ttl {
		delete(m.sessions, id)
		return nil, eris.Wrapf(ErrNotFound, "session: %s expired", id)
	}
	return s, nil
}

func (m *Manager) snapshot(s *Session) Session {
	out := *s
	out.State = s.State.clone()
	return out
}
