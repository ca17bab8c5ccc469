package loader

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/floodaudit/floodaudit/internal/model"
)

// LoadFunc reads one source file. Load is the production implementation.
type LoadFunc func(ctx context.Context, path string, opts Options) (*model.RawTable, error)

// Cache memoizes successful loads per cleaned path for the lifetime of the process.
// Entries are never evicted implicitly; Invalidate drops one after the file changes.
// Concurrent first loads of the same path share a single read. Failures are not cached,
// so a file that appears later is picked up on the next call.
type Cache struct {
	opts   Options
	loadFn LoadFunc

	mu     sync.RWMutex
	tables map[string]*model.RawTable
	group  singleflight.Group
}

// NewCache creates a Cache that reads files with Load.
func NewCache(opts Options) *Cache {
	return NewCacheWith(opts, Load)
}

// NewCacheWith creates a Cache backed by a custom LoadFunc.
func NewCacheWith(opts Options, fn LoadFunc) *Cache {
	return &Cache{
		opts:   opts,
		loadFn: fn,
		tables: make(map[string]*model.RawTable),
	}
}

// Load returns the memoized table for path, reading it on first use.
// The returned table is shared and must not be modified.
func (c *Cache) Load(ctx context.Context, path string) (*model.RawTable, error) {
	key := filepath.Clean(path)

	c.mu.RLock()
	t, ok := c.tables[key]
	c.mu.RUnlock()
	if ok {
		return t, nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		c.mu.RLock()
		t, ok := c.tables[key]
		c.mu.RUnlock()
		if ok {
			return t, nil
		}

		// The read is shared, so one caller going away must not fail the others.
		t, err := c.loadFn(context.WithoutCancel(ctx), path, c.opts)
		if err != nil {
			return t, err
		}

		c.mu.Lock()
		c.tables[key] = t
		c.mu.Unlock()
		return t, nil
	})

	table, _ := v.(*model.RawTable)
	if table == nil {
		table = &model.RawTable{Source: path}
	}
	if err != nil {
		if !eris.Is(err, ErrDataUnavailable) {
			err = eris.Wrapf(ErrDataUnavailable, "loader: %s: %v", path, err)
		}
		return table, err
	}
	if shared {
		zap.L().Debug("loader: shared concurrent load", zap.String("path", key))
	}
	return table, nil
}

// Invalidate forgets the memoized table for path.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	delete(c.tables, filepath.Clean(path))
	c.mu.Unlock()
}

// Len returns the number of memoized tables.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tables)
}
