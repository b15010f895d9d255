package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bridgelabs/planbridge/internal/adapter/identity"
	"github.com/bridgelabs/planbridge/internal/config"
	"github.com/bridgelabs/planbridge/internal/domain"
	"github.com/bridgelabs/planbridge/internal/domain/tenant"
	"github.com/bridgelabs/planbridge/internal/secrets"
	"github.com/bridgelabs/planbridge/internal/service"
)

// fakeStore is an in-memory linkstore.Store; factory tests only exercise
// the integration-config side.
type fakeStore struct {
	configs map[string]*tenant.IntegrationConfig
	links   map[string]*tenant.TaskLink
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		configs: make(map[string]*tenant.IntegrationConfig),
		links:   make(map[string]*tenant.TaskLink),
	}
}

func (s *fakeStore) GetIntegrationConfig(_ context.Context, tenantID string) (*tenant.IntegrationConfig, error) {
	if cfg, ok := s.configs[tenantID]; ok {
		cp := *cfg
		return &cp, nil
	}
	return nil, fmt.Errorf("integration config for tenant %s: %w", tenantID, domain.ErrNotFound)
}

func (s *fakeStore) PutIntegrationConfig(_ context.Context, cfg *tenant.IntegrationConfig) error {
	cp := *cfg
	s.configs[cfg.TenantID] = &cp
	return nil
}

func (s *fakeStore) DeleteIntegrationConfig(_ context.Context, tenantID string) error {
	if _, ok := s.configs[tenantID]; !ok {
		return fmt.Errorf("integration config for tenant %s: %w", tenantID, domain.ErrNotFound)
	}
	delete(s.configs, tenantID)
	return nil
}

func (s *fakeStore) ListIntegrationConfigs(context.Context) ([]tenant.IntegrationConfig, error) {
	var out []tenant.IntegrationConfig
	for _, cfg := range s.configs {
		out = append(out, *cfg)
	}
	return out, nil
}

func (s *fakeStore) GetTaskLink(_ context.Context, tenantID, localID string) (*tenant.TaskLink, error) {
	for _, l := range s.links {
		if l.TenantID == tenantID && l.LocalID == localID {
			cp := *l
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("task link %s/%s: %w", tenantID, localID, domain.ErrNotFound)
}

func (s *fakeStore) GetTaskLinkByTaskID(_ context.Context, tenantID, taskID string) (*tenant.TaskLink, error) {
	for _, l := range s.links {
		if l.TenantID == tenantID && l.TaskID == taskID {
			cp := *l
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("task link for task %s: %w", taskID, domain.ErrNotFound)
}

func (s *fakeStore) CreateTaskLink(_ context.Context, link *tenant.TaskLink) error {
	if link.ID == "" {
		link.ID = fmt.Sprintf("link-%d", len(s.links)+1)
	}
	cp := *link
	s.links[link.ID] = &cp
	return nil
}

func (s *fakeStore) UpdateTaskLinkEtags(_ context.Context, id, etag, detailsEtag string) error {
	l, ok := s.links[id]
	if !ok {
		return fmt.Errorf("task link %s: %w", id, domain.ErrNotFound)
	}
	l.Etag = etag
	if detailsEtag != "" {
		l.DetailsEtag = detailsEtag
	}
	return nil
}

func (s *fakeStore) DeleteTaskLink(_ context.Context, id string) error {
	if _, ok := s.links[id]; !ok {
		return fmt.Errorf("task link %s: %w", id, domain.ErrNotFound)
	}
	delete(s.links, id)
	return nil
}

func (s *fakeStore) ListTaskLinks(_ context.Context, tenantID, planID string) ([]tenant.TaskLink, error) {
	var out []tenant.TaskLink
	for _, l := range s.links {
		if l.TenantID == tenantID && l.PlanID == planID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func newFactory(t *testing.T, cfg config.Planner, store *fakeStore) *service.ClientFactory {
	t.Helper()
	vault, err := secrets.NewVault(func() (map[string]string, error) {
		return map[string]string{"SHARED_SECRET": "x", "OWN_SECRET": "y"}, nil
	})
	if err != nil {
		t.Fatalf("vault: %v", err)
	}
	resolver := identity.NewResolver("http://127.0.0.1:1", "api/.default", vault, time.Second)
	return service.NewClientFactory(cfg, resolver, store, nil)
}

func sharedPlannerConfig() config.Planner {
	return config.Planner{
		BaseURL:           "http://127.0.0.1:1",
		Timeout:           time.Second,
		SharedDirectoryID: "shared-dir",
		SharedClientID:    "shared-client",
		SharedSecretRef:   "SHARED_SECRET",
	}
}

func TestClientForFallsBackToSharedApp(t *testing.T) {
	f := newFactory(t, sharedPlannerConfig(), newFakeStore())
	gw, err := f.ClientFor(t.Context(), "tenant-without-config", nil)
	if err != nil {
		t.Fatalf("expected shared-app fallback, got %v", err)
	}
	if gw == nil {
		t.Fatal("expected a gateway")
	}
}

func TestClientForUnconfigured(t *testing.T) {
	cfg := sharedPlannerConfig()
	cfg.SharedClientID = "" // no shared application either
	f := newFactory(t, cfg, newFakeStore())

	_, err := f.ClientFor(t.Context(), "tenant-1", nil)
	if !errors.Is(err, domain.ErrIntegrationNotConfigured) {
		t.Fatalf("expected ErrIntegrationNotConfigured, got %v", err)
	}
}

func TestClientForDisabledConfigFallsBack(t *testing.T) {
	store := newFakeStore()
	_ = store.PutIntegrationConfig(t.Context(), &tenant.IntegrationConfig{
		TenantID: "tenant-1", Mode: tenant.ModeOwned,
		DirectoryID: "d", ClientID: "c", SecretRef: "OWN_SECRET",
		Enabled: false,
	})
	f := newFactory(t, sharedPlannerConfig(), store)

	// Disabled configs are ignored; the shared app still serves.
	if _, err := f.ClientFor(t.Context(), "tenant-1", nil); err != nil {
		t.Fatalf("expected shared fallback for disabled config, got %v", err)
	}
}

func TestClientForIncompleteOwnedConfig(t *testing.T) {
	store := newFakeStore()
	_ = store.PutIntegrationConfig(t.Context(), &tenant.IntegrationConfig{
		TenantID: "tenant-1", Mode: tenant.ModeOwned,
		DirectoryID: "d", // missing client id and secret ref
		Enabled:     true,
	})
	f := newFactory(t, sharedPlannerConfig(), store)

	_, err := f.ClientFor(t.Context(), "tenant-1", nil)
	if !errors.Is(err, domain.ErrIntegrationNotConfigured) {
		t.Fatalf("expected ErrIntegrationNotConfigured, got %v", err)
	}
}

func TestClientForSharedModeKeepsTenantDirectory(t *testing.T) {
	store := newFakeStore()
	_ = store.PutIntegrationConfig(t.Context(), &tenant.IntegrationConfig{
		TenantID: "tenant-1", Mode: tenant.ModeShared,
		DirectoryID: "tenant-own-dir",
		Enabled:     true,
	})
	f := newFactory(t, sharedPlannerConfig(), store)

	// Materializes fine: shared app credentials against the tenant's
	// directory.
	if _, err := f.ClientFor(t.Context(), "tenant-1", nil); err != nil {
		t.Fatalf("shared-mode config failed: %v", err)
	}
}

func TestClientForReusesClientsPerRegistration(t *testing.T) {
	f := newFactory(t, sharedPlannerConfig(), newFakeStore())
	ctx := t.Context()

	a, err := f.ClientFor(ctx, "tenant-a", nil)
	if err != nil {
		t.Fatalf("tenant-a: %v", err)
	}
	b, err := f.ClientFor(ctx, "tenant-b", nil)
	if err != nil {
		t.Fatalf("tenant-b: %v", err)
	}
	// Both tenants resolve to the shared application, so they share one
	// underlying client.
	if a != b {
		t.Fatal("expected one client per application registration")
	}
}
