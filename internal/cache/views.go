// Package cache memoizes computed views in a bounded LRU shared across sessions.
// Cached values must be treated as read-only by callers.
package cache

import (
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rotisserie/eris"
	"golang.org/x/sync/singleflight"
)

// Views is a bounded memo of view results keyed by Key.
type Views struct {
	lru    *lru.Cache[string, any]
	group  singleflight.Group
	hits   atomic.Int64
	misses atomic.Int64
}

// Stats reports cache effectiveness.
type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// New creates a cache holding at most size entries.
func New(size int) (*Views, error) {
	c, err := lru.New[string, any](size)
	if err != nil {
		return nil, eris.Wrapf(err, "cache: new lru (size %d)", size)
	}
	return &Views{lru: c}, nil
}

// Key joins the parts that identify a view result: table version, view name,
// criteria key and view parameters.
func Key(parts ...string) string {
	return strings.Join(parts, "|")
}

// Get returns the cached value for key, computing and storing it on a miss.
// Concurrent misses for the same key share one computation. Errors are not cached.
func Get[T any](v *Views, key string, compute func() (T, error)) (T, error) {
	if cached, ok := v.lru.Get(key); ok {
		if val, ok := cached.(T); ok {
			v.hits.Add(1)
			return val, nil
		}
	}

	res, err, _ := v.group.Do(key, func() (any, error) {
		if cached, ok := v.lru.Get(key); ok {
			if val, ok := cached.(T); ok {
				return val, nil
			}
		}
		v.misses.Add(1)
		val, err := compute()
		if err != nil {
			return nil, err
		}
		v.lru.Add(key, val)
		return val, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	val, ok := res.(T)
	if !ok {
		var zero T
		return zero, eris.Errorf("cache: %s holds %T", key, res)
	}
	return val, nil
}

// Purge drops every entry, typically after the source table changes.
func (v *Views) Purge() {
	v.lru.Purge()
}

// Stats returns current counters.
func (v *Views) Stats() Stats {
	return Stats{Entries: v.lru.Len(), Hits: v.hits.Load(), Misses: v.misses.Load()}
}
