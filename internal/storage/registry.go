package storage

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// GenericConfig carries backend-specific settings to a StoreFactory.
type GenericConfig map[string]interface{}

// String returns the string value of key, or "" when missing or not a string.
func (c GenericConfig) String(key string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return ""
}

// StoreFactory opens a Store from a GenericConfig.
type StoreFactory interface {
	Create(config GenericConfig) (Store, error)
}

type Registry struct {
	factories map[string]StoreFactory
	mu        sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]StoreFactory),
	}
}

func (r *Registry) Register(storeType string, factory StoreFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[storeType] = factory
}

func (r *Registry) Create(storeType string, config GenericConfig) (Store, error) {
	r.mu.RLock()
	factory, exists := r.factories[storeType]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("storage type %s not registered (available: %s)",
			storeType, strings.Join(r.GetAvailableTypes(), ", "))
	}

	return factory.Create(config)
}

// GetAvailableTypes returns the registered store types in sorted order.
func (r *Registry) GetAvailableTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for storeType := range r.factories {
		types = append(types, storeType)
	}
	sort.Strings(types)
	return types
}
