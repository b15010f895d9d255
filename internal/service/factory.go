package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bridgelabs/planbridge/internal/adapter/identity"
	"github.com/bridgelabs/planbridge/internal/adapter/planner"
	"github.com/bridgelabs/planbridge/internal/config"
	"github.com/bridgelabs/planbridge/internal/domain"
	"github.com/bridgelabs/planbridge/internal/domain/tenant"
	"github.com/bridgelabs/planbridge/internal/port/cache"
	"github.com/bridgelabs/planbridge/internal/port/gateway"
	"github.com/bridgelabs/planbridge/internal/port/linkstore"
	"github.com/bridgelabs/planbridge/internal/resilience"
)

// ClientFactory hands out API clients bound to a tenant's credentials.
// Clients are constructed lazily and reused per application registration;
// their token callback goes through the identity resolver, so a client
// never holds a token itself and never fetches more than once per expiry
// window.
type ClientFactory struct {
	cfg      config.Planner
	resolver *identity.Resolver
	store    linkstore.Store
	breaker  *resilience.Breaker

	mu      sync.Mutex
	clients map[string]*planner.Client
}

// NewClientFactory creates a ClientFactory. store supplies per-tenant
// integration configs; breaker, when non-nil, guards every outbound call
// of every client handed out.
func NewClientFactory(cfg config.Planner, resolver *identity.Resolver, store linkstore.Store, breaker *resilience.Breaker) *ClientFactory {
	return &ClientFactory{
		cfg:      cfg,
		resolver: resolver,
		store:    store,
		breaker:  breaker,
		clients:  make(map[string]*planner.Client),
	}
}

// ClientFor resolves credentials for the tenant and returns a client
// whose authorization header is populated per request. Resolution order:
// explicit override, the tenant's stored integration config, then the
// system-wide shared application. When none exists the call fails with
// domain.ErrIntegrationNotConfigured.
func (f *ClientFactory) ClientFor(ctx context.Context, tenantID string, override *tenant.IntegrationConfig) (gateway.Gateway, error) {
	ic, err := f.resolveConfig(ctx, tenantID, override)
	if err != nil {
		return nil, err
	}

	key := ic.DirectoryID + "|" + ic.ClientID

	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.clients[key]; ok {
		return c, nil
	}

	c := planner.NewClient(f.cfg.BaseURL, func(ctx context.Context) (string, error) {
		return f.resolver.Token(ctx, ic)
	}, f.cfg.Timeout)
	if f.breaker != nil {
		c.SetBreaker(f.breaker)
	}
	f.clients[key] = c
	return c, nil
}

func (f *ClientFactory) resolveConfig(ctx context.Context, tenantID string, override *tenant.IntegrationConfig) (tenant.IntegrationConfig, error) {
	if override != nil {
		return f.materialize(*override)
	}

	ic, err := f.store.GetIntegrationConfig(ctx, tenantID)
	switch {
	case err == nil && ic.Enabled:
		return f.materialize(*ic)
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return tenant.IntegrationConfig{}, fmt.Errorf("load integration config for tenant %s: %w", tenantID, err)
	}

	// No (enabled) tenant config: fall back to the shared application.
	if shared, ok := f.sharedConfig(tenantID); ok {
		return shared, nil
	}
	return tenant.IntegrationConfig{}, fmt.Errorf("tenant %s: %w", tenantID, domain.ErrIntegrationNotConfigured)
}

// materialize fills in the process-wide publisher application for
// shared-mode configs; owned-mode configs must be complete on their own.
func (f *ClientFactory) materialize(ic tenant.IntegrationConfig) (tenant.IntegrationConfig, error) {
	if ic.Mode == tenant.ModeShared {
		shared, ok := f.sharedConfig(ic.TenantID)
		if !ok {
			return tenant.IntegrationConfig{}, fmt.Errorf("tenant %s uses shared mode but no shared application is configured: %w",
				ic.TenantID, domain.ErrIntegrationNotConfigured)
		}
		// Shared mode still issues tokens against the tenant's own
		// directory when one is set.
		if ic.DirectoryID != "" {
			shared.DirectoryID = ic.DirectoryID
		}
		return shared, nil
	}

	if ic.DirectoryID == "" || ic.ClientID == "" || ic.SecretRef == "" {
		return tenant.IntegrationConfig{}, fmt.Errorf("tenant %s has an incomplete application registration: %w",
			ic.TenantID, domain.ErrIntegrationNotConfigured)
	}
	return ic, nil
}

func (f *ClientFactory) sharedConfig(tenantID string) (tenant.IntegrationConfig, bool) {
	if f.cfg.SharedDirectoryID == "" || f.cfg.SharedClientID == "" || f.cfg.SharedSecretRef == "" {
		return tenant.IntegrationConfig{}, false
	}
	return tenant.IntegrationConfig{
		TenantID:    tenantID,
		Mode:        tenant.ModeShared,
		DirectoryID: f.cfg.SharedDirectoryID,
		ClientID:    f.cfg.SharedClientID,
		SecretRef:   f.cfg.SharedSecretRef,
		Enabled:     true,
	}, true
}

// SyncProvider builds tenant-scoped SyncServices on demand.
type SyncProvider struct {
	factory      *ClientFactory
	cache        cache.Cache
	directoryTTL time.Duration
}

// NewSyncProvider creates a SyncProvider. cache may be nil to disable
// directory-lookup caching.
func NewSyncProvider(factory *ClientFactory, c cache.Cache, directoryTTL time.Duration) *SyncProvider {
	return &SyncProvider{factory: factory, cache: c, directoryTTL: directoryTTL}
}

// ForTenant returns a SyncService bound to the tenant's credentials.
func (p *SyncProvider) ForTenant(ctx context.Context, tenantID string) (*SyncService, error) {
	gw, err := p.factory.ClientFor(ctx, tenantID, nil)
	if err != nil {
		return nil, err
	}
	return NewSyncService(gw, p.cache, p.directoryTTL), nil
}
