package services

import (
	"fmt"
	"slices"
	"sync"
)

// Registry holds the services of one scenario in registration order.
type Registry struct {
	mu       sync.RWMutex
	order    []Service
	services map[string]Service
}

// NewRegistry creates a new service registry
func NewRegistry() *Registry {
	return &Registry{
		services: make(map[string]Service),
	}
}

// Register adds a service to the registry
func (r *Registry) Register(service Service) error {
	if service == nil {
		return fmt.Errorf("cannot register nil service")
	}

	name := service.GetName()
	if name == "" {
		return fmt.Errorf("service has empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.services[name]; exists {
		return fmt.Errorf("service %s already registered", name)
	}

	r.services[name] = service
	r.order = append(r.order, service)
	return nil
}

// Get returns a service by name
func (r *Registry) Get(name string) (Service, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	service, exists := r.services[name]
	return service, exists
}

// GetAll returns all registered services in registration order
func (r *Registry) GetAll() []Service {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.order)
}

// GetAllReversed returns all registered services, last registered first
func (r *Registry) GetAllReversed() []Service {
	all := r.GetAll()
	slices.Reverse(all)
	return all
}

// Len returns the number of registered services
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
