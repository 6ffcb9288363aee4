package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/yumet023/proplate/pkg/errors"
)

// Reader is the read-only view of a registry
type Reader[T any] interface {
	// Get retrieves an item from the registry
	Get(name string) (T, error)

	// List returns all registered names in sorted order
	List() []string

	// Has checks if an item is registered
	Has(name string) bool

	// Count returns the number of registered items
	Count() int
}

// Registry is a generic, thread-safe registry for storing and retrieving items by name
type Registry[T any] interface {
	Reader[T]

	// Register adds an item to the registry
	Register(name string, item T) error

	// Remove removes an item from the registry
	Remove(name string) error

	// Clear removes all items from the registry
	Clear()

	// Seal makes every later mutation fail with ErrPermission
	Seal()

	// Sealed reports whether Seal has been called
	Sealed() bool
}

type registry[T any] struct {
	mu     sync.RWMutex
	items  map[string]T
	sealed bool
}

// New creates a new Registry instance
func New[T any]() Registry[T] {
	return &registry[T]{
		items: make(map[string]T),
	}
}

func (r *registry[T]) Register(name string, item T) error {
	if name == "" {
		return errors.New(errors.ErrInvalidInput, "registry name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return errors.Newf(errors.ErrPermission, "cannot register '%s': registry is sealed", name)
	}
	if _, exists := r.items[name]; exists {
		return errors.Newf(errors.ErrAlreadyExists, "item '%s' is already registered", name)
	}

	r.items[name] = item
	return nil
}

func (r *registry[T]) Get(name string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, exists := r.items[name]
	if !exists {
		var zero T
		return zero, errors.Newf(errors.ErrNotFound, "item '%s' not found in registry", name)
	}

	return item, nil
}

func (r *registry[T]) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return errors.Newf(errors.ErrPermission, "cannot remove '%s': registry is sealed", name)
	}
	if _, exists := r.items[name]; !exists {
		return errors.Newf(errors.ErrNotFound, "item '%s' not found in registry", name)
	}

	delete(r.items, name)
	return nil
}

func (r *registry[T]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.items))
	for name := range r.items {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

func (r *registry[T]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.items[name]
	return exists
}

// Clear is a no-op on a sealed registry
func (r *registry[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return
	}
	r.items = make(map[string]T)
}

func (r *registry[T]) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.items)
}

func (r *registry[T]) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sealed = true
}

func (r *registry[T]) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sealed
}

// MustRegister registers an item and panics if registration fails.
// Registration errors during startup are programming errors.
func MustRegister[T any](reg Registry[T], name string, item T) {
	if err := reg.Register(name, item); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", name, err))
	}
}

// MustGet retrieves an item and panics if not found
func MustGet[T any](reg Reader[T], name string) T {
	item, err := reg.Get(name)
	if err != nil {
		panic(fmt.Sprintf("failed to get %s: %v", name, err))
	}
	return item
}
