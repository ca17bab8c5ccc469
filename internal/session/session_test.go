package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floodaudit/floodaudit/internal/filter"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestManager(ttl time.Duration) (*Manager, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
	m := NewManager(ttl)
	m.now = clock.Now
	return m, clock
}

func TestCreateDefaults(t *testing.T) {
	m, _ := newTestManager(time.Hour)
	s := m.Create()

	assert.Len(t, s.ID, 36)
	assert.True(t, s.State.Criteria.IsZero())
	assert.Equal(t, MapView{Lat: 11.891783, Lon: 122.419922, Zoom: 6}, s.State.Map)
	assert.Equal(t, 1, m.Len())

	other := m.Create()
	assert.NotEqual(t, s.ID, other.ID)
}

func TestUpdateAndGet(t *testing.T) {
	m, _ := newTestManager(time.Hour)
	s := m.Create()

	st := State{
		Criteria: filter.Criteria{Regions: []string{"Region III"}, YearRange: &filter.YearRange{Min: 2022, Max: 2023}},
		Map:      MapView{Lat: 14.6, Lon: 121.0, Zoom: 10},
	}
	_, err := m.Update(s.ID, st)
	require.NoError(t, err)

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, st, got.State)
}

func TestSessionsAreIsolated(t *testing.T) {
	m, _ := newTestManager(time.Hour)
	a := m.Create()
	b := m.Create()

	regions := []string{"Region VII"}
	_, err := m.Update(a.ID, State{Criteria: filter.Criteria{Regions: regions}, Map: DefaultMapView()})
	require.NoError(t, err)

	// Caller-side mutation must not leak into the stored state.
	regions[0] = "tampered"
	got, err := m.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Region VII"}, got.State.Criteria.Regions)

	// Mutating a returned copy must not leak either.
	got.State.Criteria.Regions[0] = "tampered"
	again, err := m.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Region VII"}, again.State.Criteria.Regions)

	gotB, err := m.Get(b.ID)
	require.NoError(t, err)
	assert.True(t, gotB.State.Criteria.IsZero())
}

func TestUpdateRejectsInvalidState(t *testing.T) {
	m, _ := newTestManager(time.Hour)
	s := m.Create()

	_, err := m.Update(s.ID, State{Map: MapView{Lat: 200, Lon: 0, Zoom: 6}})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInvalidState))

	_, err = m.Update(s.ID, State{
		Criteria: filter.Criteria{YearRange: &filter.YearRange{Min: 2024, Max: 2020}},
		Map:      DefaultMapView(),
	})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInvalidState))
}

func TestUnknownSession(t *testing.T) {
	m, _ := newTestManager(time.Hour)
	_, err := m.Get("missing")
	assert.True(t, eris.Is(err, ErrNotFound))

	_, err = m.Update("missing", State{Map: DefaultMapView()})
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestExpiry(t *testing.T) {
	m, clock := newTestManager(30 * time.Minute)
	a := m.Create()
	b := m.Create()

	clock.Advance(20 * time.Minute)
	_, err := m.Get(a.ID) // refreshes a
	require.NoError(t, err)

	clock.Advance(15 * time.Minute)
	_, err = m.Get(b.ID)
	assert.True(t, eris.Is(err, ErrNotFound))

	_, err = m.Get(a.ID)
	assert.NoError(t, err)

	clock.Advance(31 * time.Minute)
	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 0, m.Len())
}

func TestNoExpiryWhenTTLDisabled(t *testing.T) {
	m, clock := newTestManager(0)
	s := m.Create()
	clock.Advance(1000 * time.Hour)
	assert.Equal(t, 0, m.Sweep())
	_, err := m.Get(s.ID)
	assert.NoError(t, err)
}

func TestDelete(t *testing.T) {
	m, _ := newTestManager(time.Hour)
	s := m.Create()
	m.Delete(s.ID)
	m.Delete("unknown")
	assert.Equal(t, 0, m.Len())
}

func TestRunStopsOnCancel(t *testing.T) {
	m, _ := newTestManager(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
