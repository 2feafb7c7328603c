package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/davidbz/agentrunner/internal/domain"
)

// Registry implements the ServiceRegistry interface.
type Registry struct {
	mu       sync.RWMutex
	services map[string]domain.AgentService
}

// NewRegistry creates a new agent service registry.
func NewRegistry() *Registry {
	return &Registry{
		mu:       sync.RWMutex{},
		services: make(map[string]domain.AgentService),
	}
}

// Register adds a backend to the registry.
func (r *Registry) Register(_ context.Context, service domain.AgentService) error {
	if service == nil {
		return errors.New("service cannot be nil")
	}

	name := service.Name()
	if name == "" {
		return errors.New("service name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.services[name]; exists {
		return fmt.Errorf("service %s already registered", name)
	}

	r.services[name] = service
	return nil
}

// Get retrieves a backend by name.
func (r *Registry) Get(_ context.Context, name string) (domain.AgentService, error) {
	if name == "" {
		return nil, errors.New("service name cannot be empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	service, exists := r.services[name]
	if !exists {
		return nil, fmt.Errorf("service %s not found", name)
	}

	return service, nil
}

// List returns the names of all registered backends, sorted.
func (r *Registry) List(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}
