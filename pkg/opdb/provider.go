package opdb

import (
	"context"
	"fmt"
)

// Provider is a component that keeps state in the store and can rebuild it
// after a restart.
type Provider interface {
	Namespaces() []string
	Restore(ctx context.Context, store Store) error
}

type ProviderRegistry struct {
	providers []Provider
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{}
}

func (r *ProviderRegistry) Register(p Provider) {
	r.providers = append(r.providers, p)
}

func (r *ProviderRegistry) RestoreAll(ctx context.Context, store Store) error {
	for _, p := range r.providers {
		if err := p.Restore(ctx, store); err != nil {
			return fmt.Errorf("restore %v: %w", p.Namespaces(), err)
		}
	}
	return nil
}

// ClearAll drops every namespace owned by a registered provider.
func (r *ProviderRegistry) ClearAll(ctx context.Context, store Store) error {
	for _, p := range r.providers {
		for _, ns := range p.Namespaces() {
			if err := store.Clear(ctx, ns); err != nil {
				return fmt.Errorf("clear %s: %w", ns, err)
			}
		}
	}
	return nil
}
