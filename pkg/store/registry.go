package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Factory opens a Repository from a backend-specific DSN.
type Factory func(ctx context.Context, dsn string) (Repository, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers a backend factory under name.
func Register(name string, f Factory) error {
	if name == "" {
		return fmt.Errorf("store: empty backend name")
	}
	if f == nil {
		return fmt.Errorf("store: nil factory for %q", name)
	}
	regMu.Lock()
	defer regMu.Unlock()
	if _, exists := factories[name]; exists {
		return fmt.Errorf("store: backend %q already registered", name)
	}
	factories[name] = f
	return nil
}

// Resolve gets a registered factory by name.
func Resolve(name string) (Factory, bool) {
	regMu.RLock()
	defer regMu.RUnlock()
	f, ok := factories[name]
	return f, ok
}

// Backends lists registered backend names in sorted order.
func Backends() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Open resolves backend and opens it with dsn.
func Open(ctx context.Context, backend, dsn string) (Repository, error) {
	f, ok := Resolve(backend)
	if !ok {
		return nil, fmt.Errorf("store: unknown backend %q (registered: %v)", backend, Backends())
	}
	return f(ctx, dsn)
}
