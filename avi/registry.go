package avi

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// LibraryRegistry is a process-wide, lazily-initialized registry for
// external codec resources that are expensive or unsafe to initialize more
// than once per distinct key (e.g. an encoder adapter that loads a native
// library by path). Concurrent callers requesting the same key share one
// initialization; the result is cached and returned idempotently on every
// subsequent call (§9 design note "Global state").
//
// golang.org/x/sync/singleflight.Group.Do already provides exactly this
// "one in-flight call per key, all callers share the result" semantics, so
// LibraryRegistry is a thin, typed wrapper rather than a hand-rolled
// sync.Once-per-key map.
type LibraryRegistry struct {
	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]any
}

// NewLibraryRegistry creates an empty registry.
func NewLibraryRegistry() *LibraryRegistry {
	return &LibraryRegistry{cache: make(map[string]any)}
}

// DefaultRegistry is shared by encoder adapters that don't need isolation
// from one another (e.g. two MP3 encoder instances loading the same native
// library path).
var DefaultRegistry = NewLibraryRegistry()

// LoadOnce runs init() at most once per distinct key across the process
// (actually: across this registry's lifetime), regardless of how many
// goroutines call LoadOnce(key, ...) concurrently. A failed init() is not
// cached — the next caller retries.
func (r *LibraryRegistry) LoadOnce(key string, init func() (any, error)) (any, error) {
	r.mu.RLock()
	if v, ok := r.cache[key]; ok {
		r.mu.RUnlock()
		return v, nil
	}
	r.mu.RUnlock()

	v, err, _ := r.group.Do(key, func() (any, error) {
		r.mu.RLock()
		if v, ok := r.cache[key]; ok {
			r.mu.RUnlock()
			return v, nil
		}
		r.mu.RUnlock()
		v, err := init()
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.cache[key] = v
		r.mu.Unlock()
		return v, nil
	})
	if err != nil {
		return nil, newAVIError("load library", err)
	}
	return v, nil
}
