// Package linkstore defines the persistence port for tenant integration
// configurations and task links (remote id/etag pairs kept alongside
// local work items).
package linkstore

import (
	"context"

	"github.com/bridgelabs/planbridge/internal/domain/tenant"
)

// Store is the port interface for durable integration state.
type Store interface {
	// Integration configs (read-mostly; supplied by tenant administrators).
	GetIntegrationConfig(ctx context.Context, tenantID string) (*tenant.IntegrationConfig, error)
	PutIntegrationConfig(ctx context.Context, cfg *tenant.IntegrationConfig) error
	DeleteIntegrationConfig(ctx context.Context, tenantID string) error
	ListIntegrationConfigs(ctx context.Context) ([]tenant.IntegrationConfig, error)

	// Task links.
	GetTaskLink(ctx context.Context, tenantID, localID string) (*tenant.TaskLink, error)
	GetTaskLinkByTaskID(ctx context.Context, tenantID, taskID string) (*tenant.TaskLink, error)
	CreateTaskLink(ctx context.Context, link *tenant.TaskLink) error
	UpdateTaskLinkEtags(ctx context.Context, id, etag, detailsEtag string) error
	DeleteTaskLink(ctx context.Context, id string) error
	ListTaskLinks(ctx context.Context, tenantID, planID string) ([]tenant.TaskLink, error)
}
