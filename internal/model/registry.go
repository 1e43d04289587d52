package model

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry holds the builders available to sweeps, keyed by kind.
type Registry struct {
	mu       sync.RWMutex
	builders map[Kind]Builder
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[Kind]Builder)}
}

// Register adds a builder. A builder of the same kind is replaced.
func (r *Registry) Register(b Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[b.Kind()] = b
}

// Get retrieves a builder by kind.
func (r *Registry) Get(kind Kind) (Builder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.builders[kind]
	return b, ok
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]Kind, 0, len(r.builders))
	for k := range r.builders {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

var defaultRegistry = func() *Registry {
	r := NewRegistry()
	r.Register(Linear{})
	r.Register(Hill{})
	r.Register(TwoState{})
	return r
}()

// Default returns the registry with the built-in kinetic schemes.
func Default() *Registry { return defaultRegistry }

// Lookup returns the built-in builder for kind.
func Lookup(kind Kind) (Builder, error) {
	b, ok := defaultRegistry.Get(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return b, nil
}

// Kinds lists the built-in kinds.
func Kinds() []Kind { return defaultRegistry.Kinds() }

// ParseKind accepts "linear", "Hill", "two-state", "TwoStateSweep" and similar spellings.
func ParseKind(s string) (Kind, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.TrimSuffix(norm, "sweep")
	norm = strings.NewReplacer("-", "", "_", "", " ", "").Replace(norm)
	switch Kind(norm) {
	case KindLinear, KindHill, KindTwoState:
		return Kind(norm), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}
