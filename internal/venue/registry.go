// Package venue holds the registry of external venue connectors.
package venue

import (
	"sort"
	"sync"

	"github.com/alanyoungcy/liquiditycore/internal/domain"
)

// Registry is a name-keyed set of venue connectors. Registration happens
// during wiring; later reads take the read lock only.
type Registry struct {
	mu    sync.RWMutex
	byKey map[string]domain.VenueConnector
}

var _ domain.VenueRegistry = (*Registry)(nil)

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byKey: make(map[string]domain.VenueConnector)}
}

// Register adds or replaces the connector under its own name.
func (r *Registry) Register(conn domain.VenueConnector) {
	r.mu.Lock()
	r.byKey[conn.Name()] = conn
	r.mu.Unlock()
}

// Get returns the connector registered under name.
func (r *Registry) Get(name string) (domain.VenueConnector, bool) {
	r.mu.RLock()
	conn, ok := r.byKey[name]
	r.mu.RUnlock()
	return conn, ok
}

// All returns every registered connector in name order.
func (r *Registry) All() []domain.VenueConnector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byKey))
	for name := range r.byKey {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]domain.VenueConnector, 0, len(names))
	for _, name := range names {
		out = append(out, r.byKey[name])
	}
	return out
}
