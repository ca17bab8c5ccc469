// Package dataset owns the prepared projects table behind the CLI and the API.
// It memoizes preparation per loaded table and versions each result so view
// caches can key on it.
package dataset

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/floodaudit/floodaudit/internal/loader"
	"github.com/floodaudit/floodaudit/internal/model"
	"github.com/floodaudit/floodaudit/internal/prepare"
)

// Snapshot is one prepared table. It is shared and read-only.
type Snapshot struct {
	Version  uint64
	Source   string
	LoadedAt time.Time
	Raw      *model.RawTable
	Result   *prepare.Result
}

// Projects returns the prepared rows.
func (s *Snapshot) Projects() []model.Project {
	return s.Result.Projects
}

// Service loads and prepares the configured source on demand.
type Service struct {
	path   string
	tables *loader.Cache
	opts   prepare.Options
	now    func() time.Time

	mu      sync.RWMutex
	current *Snapshot
	version uint64
	gen     uint64 // bumped by Invalidate
	group   singleflight.Group
}

// New creates a Service for path. tables may be shared with other services.
func New(path string, tables *loader.Cache, opts prepare.Options) *Service {
	return &Service{path: path, tables: tables, opts: opts, now: time.Now}
}

// Path returns the source file the service reads.
func (s *Service) Path() string {
	return s.path
}

// Current returns the prepared snapshot for the source file, preparing it the
// first time a given table is seen. Errors wrap loader.ErrDataUnavailable.
func (s *Service) Current(ctx context.Context) (*Snapshot, error) {
	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()

	raw, err := s.tables.Load(ctx, s.path)
	if err != nil {
		return nil, err
	}

	if snap := s.cached(raw); snap != nil {
		return snap, nil
	}

	// Keyed by table identity so a reload never joins a flight for an older table.
	v, _, _ := s.group.Do(fmt.Sprintf("%s@%p", s.path, raw), func() (any, error) {
		if snap := s.cached(raw); snap != nil {
			return snap, nil
		}

		start := s.now()
		res := prepare.PrepareWith(raw.Records, s.opts)

		s.mu.Lock()
		s.version++
		snap := &Snapshot{
			Version:  s.version,
			Source:   raw.Source,
			LoadedAt: start,
			Raw:      raw,
			Result:   res,
		}
		if s.gen == gen {
			s.current = snap
		}
		s.mu.Unlock()

		zap.L().Info("dataset: prepared",
			zap.String("source", raw.Source),
			zap.Uint64("version", snap.Version),
			zap.Int("input_rows", res.Report.InputRows),
			zap.Int("output_rows", res.Report.OutputRows),
			zap.Duration("elapsed", s.now().Sub(start)),
		)
		return snap, nil
	})
	return v.(*Snapshot), nil
}

func (s *Service) cached(raw *model.RawTable) *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current != nil && s.current.Raw == raw {
		return s.current
	}
	return nil
}

// Latest returns the last prepared snapshot without loading, or nil.
func (s *Service) Latest() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Invalidate drops the memoized table so the next Current re-reads the file.
func (s *Service) Invalidate() {
	s.tables.Invalidate(s.path)
	s.mu.Lock()
	s.current = nil
	s.gen++
	s.mu.Unlock()
}

// Reload re-reads and re-prepares the source file.
func (s *Service) Reload(ctx context.Context) (*Snapshot, error) {
	s.Invalidate()
	return s.Current(ctx)
}
