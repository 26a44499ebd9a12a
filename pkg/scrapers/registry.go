package scrapers

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"dealwatch/pkg/models"
)

// Factory builds a ready-to-run scraper for one store.
type Factory func() (Scraper, error)

// Registry maps store keys to scraper factories. Keys are case-insensitive.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces the factory for a store key.
func (r *Registry) Register(storeKey string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(storeKey)] = f
}

// Get builds the scraper for storeKey. An unknown key fails fast with an
// error that names the valid keys.
func (r *Registry) Get(storeKey string) (Scraper, error) {
	r.mu.RLock()
	f, ok := r.factories[strings.ToLower(storeKey)]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)",
			models.ErrStoreNotFound, storeKey, strings.Join(r.Stores(), ", "))
	}
	return f()
}

// Stores lists the registered store keys, sorted.
func (r *Registry) Stores() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.factories))
	for k := range r.factories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
