package sale

import (
	"context"
	"fmt"
	"sync"
)

// ShippingProvider computes and applies shipping charges for orders it
// recognizes. The host order entity stays untouched; providers plug into
// the quote workflow through the registry.
type ShippingProvider interface {
	Name() string
	Applies(o *Order) bool
	ApplyShipping(ctx context.Context, o *Order) error
}

// ErrProviderNotFound indicates no registered provider matches.
var ErrProviderNotFound = fmt.Errorf("shipping provider not found")

// Registry manages registered shipping providers. Registration order is
// preserved for dispatch.
type Registry struct {
	providers []ShippingProvider
	byName    map[string]ShippingProvider
	mu        sync.RWMutex
}

// NewRegistry creates a new provider registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]ShippingProvider),
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(p ShippingProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[p.Name()]; !ok {
		r.providers = append(r.providers, p)
	}
	r.byName[p.Name()] = p
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (ShippingProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.byName[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
}

// Names returns the names of all registered providers.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		names = append(names, p.Name())
	}
	return names
}

// Count returns the number of registered providers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}

// Apply runs every provider that recognizes the order, sequentially in
// registration order. The first failure aborts.
func (r *Registry) Apply(ctx context.Context, o *Order) error {
	r.mu.RLock()
	providers := make([]ShippingProvider, len(r.providers))
	copy(providers, r.providers)
	r.mu.RUnlock()

	for _, p := range providers {
		if !p.Applies(o) {
			continue
		}
		if err := p.ApplyShipping(ctx, o); err != nil {
			return fmt.Errorf("%s: %w", p.Name(), err)
		}
	}
	return nil
}

// Quote transitions a draft order to quotation and applies shipping
// through the registered providers.
func Quote(ctx context.Context, reg *Registry, o *Order) error {
	if o.State != StateDraft {
		return fmt.Errorf("%w: cannot quote order %s in state %s", ErrInvalidState, o.ID, o.State)
	}
	o.State = StateQuotation
	return reg.Apply(ctx, o)
}
