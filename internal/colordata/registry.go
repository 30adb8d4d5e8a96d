package colordata

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/goran-ethernal/ColorScanner/internal/logger"
)

// Factory creates a kernel instance.
type Factory func(log *logger.Logger) (Kernel, error)

// Registry maps kernel names to factories. It is built explicitly at startup and
// handed to whoever needs to create kernels.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	log       *logger.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		log:       log,
	}
}

// DefaultRegistry returns a registry holding every built-in kernel.
func DefaultRegistry(log *logger.Logger) *Registry {
	r := NewRegistry(log)
	r.Register(EPOBCName, NewEPOBC)

	return r
}

// Register adds a factory under name. Names are case-insensitive and an existing entry is replaced.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name = strings.ToLower(name)
	if _, exists := r.factories[name]; exists {
		r.log.Infof("color kernel %s already registered, it will be overwritten", name)
	}

	r.factories[name] = factory
}

// GetFactory returns the factory for name, or nil.
func (r *Registry) GetFactory(name string) Factory {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.factories[strings.ToLower(name)]
}

// ListRegistered returns the registered kernel names in sorted order.
func (r *Registry) ListRegistered() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}

// Create instantiates the named kernels in the given order.
func (r *Registry) Create(names []string) ([]Kernel, error) {
	kernels := make([]Kernel, 0, len(names))
	for _, name := range names {
		factory := r.GetFactory(name)
		if factory == nil {
			return nil, fmt.Errorf("unknown color kernel: %s (registered kernels: %v)", name, r.ListRegistered())
		}

		kernel, err := factory(r.log)
		if err != nil {
			return nil, fmt.Errorf("failed to create color kernel %s: %w", name, err)
		}
		kernels = append(kernels, kernel)
	}

	return kernels, nil
}
