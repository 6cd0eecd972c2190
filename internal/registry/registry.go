// Package registry is the read-only catalogue of providers built at startup
package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/nexconsult/investigacao-api/internal/models"
	"github.com/nexconsult/investigacao-api/internal/providers"
)

// ErrProviderNotFound is returned when an id is not registered
var ErrProviderNotFound = errors.New("provider not found")

// DefaultCheckTimeout bounds a single IsConfigured check in Configured
const DefaultCheckTimeout = 5 * time.Second

// Registry holds one instance per provider id. It is immutable after New and
// safe for concurrent reads.
type Registry struct {
	ordered      []providers.Provider
	byID         map[models.ProviderID]providers.Provider
	checkTimeout time.Duration
	logger       *logrus.Logger
}

// New builds a registry. Duplicate ids are rejected.
func New(list []providers.Provider, logger *logrus.Logger) (*Registry, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	r := &Registry{
		ordered:      make([]providers.Provider, 0, len(list)),
		byID:         make(map[models.ProviderID]providers.Provider, len(list)),
		checkTimeout: DefaultCheckTimeout,
		logger:       logger,
	}
	for _, p := range list {
		if p == nil {
			return nil, errors.New("nil provider")
		}
		if _, dup := r.byID[p.ID()]; dup {
			return nil, fmt.Errorf("duplicate provider id %s", p.ID())
		}
		r.byID[p.ID()] = p
		r.ordered = append(r.ordered, p)
	}
	return r, nil
}

// WithCheckTimeout returns a copy using a different per-provider timeout for
// Configured
func (r *Registry) WithCheckTimeout(d time.Duration) *Registry {
	cp := *r
	cp.checkTimeout = d
	return &cp
}

// Get returns the provider registered under id
func (r *Registry) Get(id models.ProviderID) (providers.Provider, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// Lookup is Get with a wrapped ErrProviderNotFound
func (r *Registry) Lookup(id models.ProviderID) (providers.Provider, error) {
	p, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, id)
	}
	return p, nil
}

// All returns every provider in registration order
func (r *Registry) All() []providers.Provider {
	out := make([]providers.Provider, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// IDs returns the registered ids in registration order
func (r *Registry) IDs() []models.ProviderID {
	out := make([]models.ProviderID, 0, len(r.ordered))
	for _, p := range r.ordered {
		out = append(out, p.ID())
	}
	return out
}

// InvalidateConfigs drops every provider's cached configuration
func (r *Registry) InvalidateConfigs() {
	for _, p := range r.ordered {
		p.InvalidateConfig()
	}
}

// ByCategory returns providers of one category in registration order
func (r *Registry) ByCategory(category models.ProviderCategory) []providers.Provider {
	var out []providers.Provider
	for _, p := range r.ordered {
		if p.Category() == category {
			out = append(out, p)
		}
	}
	return out
}

// Configured checks every provider concurrently and returns those that are
// configured and active, in registration order. A failing or slow check only
// excludes that provider.
func (r *Registry) Configured(ctx context.Context) []providers.Provider {
	ok := make([]bool, len(r.ordered))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range r.ordered {
		i, p := i, p
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(gctx, r.checkTimeout)
			defer cancel()

			configured, err := p.IsConfigured(checkCtx)
			if err != nil {
				r.logger.WithFields(logrus.Fields{
					"provider": p.ID(),
					"error":    err.Error(),
				}).Warn("Provider configuration check failed")
				return nil
			}
			ok[i] = configured
			return nil
		})
	}
	_ = g.Wait()

	var out []providers.Provider
	for i, p := range r.ordered {
		if ok[i] {
			out = append(out, p)
		}
	}
	return out
}

// Catalogue returns the query types each registered provider declares. The
// planner validates depth maps against it.
func (r *Registry) Catalogue() map[models.ProviderID][]models.QueryType {
	out := make(map[models.ProviderID][]models.QueryType, len(r.ordered))
	for _, p := range r.ordered {
		out[p.ID()] = p.QueryTypes()
	}
	return out
}

// Infos lists registered providers with their configured flag
func (r *Registry) Infos(ctx context.Context) []models.ProviderInfo {
	configured := make(map[models.ProviderID]bool)
	for _, p := range r.Configured(ctx) {
		configured[p.ID()] = true
	}
	out := make([]models.ProviderInfo, 0, len(r.ordered))
	for _, p := range r.ordered {
		out = append(out, models.ProviderInfo{
			ID:         p.ID(),
			Name:       p.Name(),
			Category:   p.Category(),
			QueryTypes: p.QueryTypes(),
			Configured: configured[p.ID()],
		})
	}
	return out
}
