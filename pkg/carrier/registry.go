package carrier

import (
	"fmt"
	"sync"
)

// Registry manages registered delivery providers. It is populated once at
// startup and read concurrently afterwards.
type Registry struct {
	carriers map[Key]Carrier
	mu       sync.RWMutex
}

// NewRegistry creates a new carrier registry.
func NewRegistry() *Registry {
	return &Registry{
		carriers: make(map[Key]Carrier),
	}
}

// Register adds a carrier to the registry, replacing any existing entry
// with the same key.
func (r *Registry) Register(c Carrier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carriers[c.Key()] = c
}

// Get returns a carrier by key.
func (r *Registry) Get(key Key) (Carrier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.carriers[key]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCarrier, key)
}

// All returns all registered carriers.
func (r *Registry) All() []Carrier {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Carrier, 0, len(r.carriers))
	for _, c := range r.carriers {
		result = append(result, c)
	}
	return result
}

// Keys returns the keys of all registered carriers.
func (r *Registry) Keys() []Key {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]Key, 0, len(r.carriers))
	for key := range r.carriers {
		keys = append(keys, key)
	}
	return keys
}

// Count returns the number of registered carriers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.carriers)
}
