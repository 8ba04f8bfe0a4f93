package providers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"lyrics-bridge-go/services/matching"
)

// Provider finds lyrics for a track in one upstream catalog.
type Provider interface {
	// Name returns the provider identifier used in logs and headers
	Name() string

	// LookupLyrics finds the best match for the query and fetches its lyrics.
	// Returns an error wrapping ErrNotFound when no candidate was found and
	// one wrapping ErrUpstream when the catalog could not be reached.
	LookupLyrics(ctx context.Context, query matching.SearchQuery) (*LookupResult, error)

	// Search returns scored candidates for the first strategy that yields any.
	Search(ctx context.Context, query matching.SearchQuery) ([]matching.Scored, error)
}

// Registry holds all registered providers
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

var (
	globalRegistry *Registry
	registryOnce   sync.Once
)

// GetRegistry returns the global provider registry
func GetRegistry() *Registry {
	registryOnce.Do(func() {
		globalRegistry = NewRegistry()
	})
	return globalRegistry
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider, replacing any provider with the same name
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get retrieves a provider by name
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", name)
	}
	return p, nil
}

// List returns all registered provider names in sorted order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register adds a provider to the global registry
func Register(p Provider) {
	GetRegistry().Register(p)
}

// Get retrieves a provider from the global registry
func Get(name string) (Provider, error) {
	return GetRegistry().Get(name)
}
