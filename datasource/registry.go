// Package datasource implements the data source registry (C7): name/type/
// tag indices over registered DataSource instances, a background health
// monitor, and an event stream for registration and health-flip events.
// Grounded on the teacher's engine/registry.go (single Lock() for mutation,
// RLock() for lookup, "already exists" duplicate-name error), generalized
// from a component-type registry to a named-instance registry with type
// and tag secondary indices and a liveness loop the teacher's registry
// doesn't need (components are stateless node factories, not live
// connections).
package datasource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bittoy/ruleflow/config"
	"github.com/bittoy/ruleflow/ruletypes"
)

// healthCheckInterval is how often the background monitor polls every
// registered source's IsHealthy, per spec.md §4.7.
const healthCheckInterval = 30 * time.Second

// shutdownGrace bounds how long Shutdown waits for the health-monitor
// goroutine to observe the stop signal and exit.
const shutdownGrace = 5 * time.Second

// Registry holds every registered DataSource, indexed by name, type, and
// tag, and runs a background health monitor over them.
//
// Concurrency model (spec.md §5 C7): a single mutex serializes Register/
// Unregister (the "single writer") and the health monitor's status
// updates; Lookup-by-name reads take the read lock. Statistics are plain
// ints read under the same lock, since registrations are comparatively
// rare next to per-request lookups through other components.
type Registry struct {
	mu sync.RWMutex

	byName map[string]*ruletypes.DataSourceRegistration
	byType map[string]map[string]struct{}
	byTag  map[string]map[string]struct{}

	listeners []ruletypes.Listener
	log       config.Logger

	stopCh   chan struct{}
	wg       sync.WaitGroup
	shutdown sync.Once
}

// NewRegistry returns an empty Registry and starts its background health
// monitor.
func NewRegistry(log config.Logger) *Registry {
	if log == nil {
		log = config.NopLogger()
	}
	r := &Registry{
		byName: map[string]*ruletypes.DataSourceRegistration{},
		byType: map[string]map[string]struct{}{},
		byTag:  map[string]map[string]struct{}{},
		log:    log,
		stopCh: make(chan struct{}),
	}
	r.wg.Add(1)
	go r.monitorHealth()
	return r
}

// Register adds src to the registry. Duplicate names are rejected with a
// DuplicateName error and the original registration is left untouched, per
// spec.md §7/§8 boundary behavior.
func (r *Registry) Register(src ruletypes.DataSource) error {
	r.mu.Lock()
	if _, exists := r.byName[src.Name()]; exists {
		r.mu.Unlock()
		return ruletypes.NewError(ruletypes.DuplicateName, "data source %q already registered", src.Name())
	}

	healthy := src.IsHealthy(context.Background())
	r.byName[src.Name()] = &ruletypes.DataSourceRegistration{Source: src, Healthy: healthy}
	r.index(src)
	r.mu.Unlock()

	r.emit(ruletypes.EventRegistered, src.Name(), fmt.Sprintf("registered type=%s", src.SourceType()))
	return nil
}

// Unregister removes name from the registry, closing its DataSource.
// Unregistering an absent name is a NotFound error.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	reg, ok := r.byName[name]
	if !ok {
		r.mu.Unlock()
		return ruletypes.NewError(ruletypes.NotFound, "data source %q not registered", name)
	}
	delete(r.byName, name)
	r.unindex(reg.Source)
	r.mu.Unlock()

	if err := reg.Source.Close(); err != nil {
		r.log.Warnf("data source %q: close error: %v", name, err)
	}
	r.emit(ruletypes.EventUnregistered, name, "unregistered")
	return nil
}

// Lookup returns the named DataSource, or false if not registered.
func (r *Registry) Lookup(name string) (ruletypes.DataSource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return reg.Source, true
}

// ByType returns the names of every registered source with the given
// SourceType.
func (r *Registry) ByType(sourceType string) []string {
	return r.namesFromIndex(r.byType, sourceType)
}

// ByTag returns the names of every registered source carrying the given tag.
func (r *Registry) ByTag(tag string) []string {
	return r.namesFromIndex(r.byTag, tag)
}

// Healthy returns the names of every currently healthy registered source,
// per spec.md §4.7's operation list.
func (r *Registry) Healthy() []string {
	return r.namesByHealth(true)
}

// Unhealthy returns the names of every currently unhealthy registered
// source, per spec.md §4.7's operation list.
func (r *Registry) Unhealthy() []string {
	return r.namesByHealth(false)
}

func (r *Registry) namesByHealth(healthy bool) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name, reg := range r.byName {
		if reg.Healthy == healthy {
			names = append(names, name)
		}
	}
	return names
}

func (r *Registry) namesFromIndex(index map[string]map[string]struct{}, key string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(index[key]))
	for name := range index[key] {
		names = append(names, name)
	}
	return names
}

// Statistics is the registry's point-in-time summary, per spec.md §8
// invariant 5.
type Statistics struct {
	Total     int
	Healthy   int
	Unhealthy int
}

// Statistics returns the current registration counts.
func (r *Registry) Statistics() Statistics {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := Statistics{Total: len(r.byName)}
	for _, reg := range r.byName {
		if reg.Healthy {
			stats.Healthy++
		} else {
			stats.Unhealthy++
		}
	}
	return stats
}

// AddListener registers l to receive every subsequent registry event. The
// listener slice is copy-on-write so emit never holds a lock while calling
// out to listener code.
func (r *Registry) AddListener(l ruletypes.Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := make([]ruletypes.Listener, len(r.listeners)+1)
	copy(next, r.listeners)
	next[len(next)-1] = l
	r.listeners = next
}

func (r *Registry) emit(eventType ruletypes.EventType, name, message string) {
	r.mu.RLock()
	listeners := r.listeners
	r.mu.RUnlock()

	event := ruletypes.Event{Type: eventType, Name: name, Timestamp: time.Now().UnixMilli(), Message: message}
	for _, l := range listeners {
		l.OnEvent(event)
	}
}

// index adds src's type to the type index and its type, data type and tags
// to the tag index. Callers must hold r.mu for writing.
func (r *Registry) index(src ruletypes.DataSource) {
	r.addToIndex(r.byType, src.SourceType(), src.Name())
	for _, tag := range append([]string{src.SourceType(), src.DataType()}, src.Tags()...) {
		if tag != "" {
			r.addToIndex(r.byTag, tag, src.Name())
		}
	}
}

// unindex removes src from the type and tag indices. Callers must hold r.mu
// for writing.
func (r *Registry) unindex(src ruletypes.DataSource) {
	r.removeFromIndex(r.byType, src.SourceType(), src.Name())
	for _, tag := range append([]string{src.SourceType(), src.DataType()}, src.Tags()...) {
		if tag != "" {
			r.removeFromIndex(r.byTag, tag, src.Name())
		}
	}
}

func (r *Registry) addToIndex(index map[string]map[string]struct{}, key, name string) {
	set, ok := index[key]
	if !ok {
		set = map[string]struct{}{}
		index[key] = set
	}
	set[name] = struct{}{}
}

func (r *Registry) removeFromIndex(index map[string]map[string]struct{}, key, name string) {
	if set, ok := index[key]; ok {
		delete(set, name)
		if len(set) == 0 {
			delete(index, key)
		}
	}
}

// monitorHealth polls every registered source at healthCheckInterval and
// emits HEALTH_LOST/HEALTH_RESTORED when a source's liveness flips.
func (r *Registry) monitorHealth() {
	defer r.wg.Done()
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.sweepHealth()
		case <-r.stopCh:
			return
		}
	}
}

// RefreshAll forces an immediate health resample of every registered
// source, outside the healthCheckInterval ticker, per spec.md §4.7's
// refreshAll() operation.
func (r *Registry) RefreshAll() {
	r.sweepHealth()
}

func (r *Registry) sweepHealth() {
	r.mu.RLock()
	snapshot := make([]*ruletypes.DataSourceRegistration, 0, len(r.byName))
	for _, reg := range r.byName {
		snapshot = append(snapshot, reg)
	}
	r.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), healthCheckInterval/2)
	defer cancel()

	for _, reg := range snapshot {
		healthy := reg.Source.IsHealthy(ctx)

		r.mu.Lock()
		wasHealthy := reg.Healthy
		reg.Healthy = healthy
		r.mu.Unlock()

		if healthy == wasHealthy {
			continue
		}
		if healthy {
			r.emit(ruletypes.EventHealthRestored, reg.Source.Name(), "health restored")
		} else {
			r.emit(ruletypes.EventHealthLost, reg.Source.Name(), "health check failed")
		}
	}
}

// Shutdown stops the background health monitor, waiting up to
// shutdownGrace for it to exit, and closes every registered data source.
// Idempotent: shutting down an already-shut-down registry is a no-op, per
// spec.md §3 Lifecycles and §4.7.
func (r *Registry) Shutdown() error {
	var firstErr error
	r.shutdown.Do(func() {
		close(r.stopCh)
		done := make(chan struct{})
		go func() {
			r.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(shutdownGrace):
			r.log.Warnf("data source registry: health monitor did not stop within %s", shutdownGrace)
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		for name, reg := range r.byName {
			if err := reg.Source.Close(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("data source %q: %w", name, err)
			}
		}
	})
	return firstErr
}
