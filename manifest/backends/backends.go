// Package backends selects a manifest.Store implementation by name.
//
// Backends register themselves in init(); a binary enables one by importing
// its package, usually as a blank import:
//
//	import _ "xdao.co/facetreg/manifest/filestore"
package backends

import (
	"fmt"
	"sort"
	"sync"

	"xdao.co/facetreg/manifest"
)

// Options are the backend-independent settings a store is opened with.
type Options struct {
	// Location is a directory for file-based stores or a database path.
	Location string
}

// Backend opens one kind of manifest store.
type Backend struct {
	Name        string
	Description string

	// Open returns the store and an optional close function.
	Open func(opts Options) (manifest.Store, func() error, error)
}

var (
	mu       sync.RWMutex
	backends = map[string]Backend{}
)

// Register registers a backend.
func Register(b Backend) error {
	if b.Name == "" {
		return fmt.Errorf("backends: backend name is required")
	}
	if b.Open == nil {
		return fmt.Errorf("backends: backend %q missing Open", b.Name)
	}
	mu.Lock()
	defer mu.Unlock()
	if _, exists := backends[b.Name]; exists {
		return fmt.Errorf("backends: backend %q already registered", b.Name)
	}
	backends[b.Name] = b
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister(b Backend) {
	if err := Register(b); err != nil {
		panic(err)
	}
}

// List returns registered backends sorted by name.
func List() []Backend {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Backend, 0, len(backends))
	for _, b := range backends {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns registered backend names, sorted.
func Names() []string {
	bs := List()
	n := make([]string, 0, len(bs))
	for _, b := range bs {
		n = append(n, b.Name)
	}
	return n
}

// Open opens the named backend. The close function is never nil.
func Open(name string, opts Options) (manifest.Store, func() error, error) {
	mu.RLock()
	b, ok := backends[name]
	mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("unknown manifest backend %q (registered: %v)", name, Names())
	}
	store, closeFn, err := b.Open(opts)
	if err != nil {
		return nil, nil, err
	}
	if closeFn == nil {
		closeFn = func() error { return nil }
	}
	return store, closeFn, nil
}
