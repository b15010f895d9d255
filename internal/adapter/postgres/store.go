package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bridgelabs/planbridge/internal/domain"
	"github.com/bridgelabs/planbridge/internal/domain/tenant"
	"github.com/bridgelabs/planbridge/internal/port/linkstore"
)

// Store implements linkstore.Store on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Compile-time interface check.
var _ linkstore.Store = (*Store)(nil)

// NewStore creates a Store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --- Integration configs ---

func (s *Store) GetIntegrationConfig(ctx context.Context, tenantID string) (*tenant.IntegrationConfig, error) {
	var ic tenant.IntegrationConfig
	err := s.pool.QueryRow(ctx,
		`SELECT tenant_id, mode, directory_id, client_id, secret_ref, enabled, created_at, updated_at
		 FROM integration_configs WHERE tenant_id = $1`, tenantID,
	).Scan(&ic.TenantID, &ic.Mode, &ic.DirectoryID, &ic.ClientID, &ic.SecretRef, &ic.Enabled, &ic.CreatedAt, &ic.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("integration config for tenant %s: %w", tenantID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get integration config %s: %w", tenantID, err)
	}
	return &ic, nil
}

func (s *Store) PutIntegrationConfig(ctx context.Context, cfg *tenant.IntegrationConfig) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO integration_configs (tenant_id, mode, directory_id, client_id, secret_ref, enabled)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (tenant_id) DO UPDATE SET
		   mode = EXCLUDED.mode,
		   directory_id = EXCLUDED.directory_id,
		   client_id = EXCLUDED.client_id,
		   secret_ref = EXCLUDED.secret_ref,
		   enabled = EXCLUDED.enabled,
		   updated_at = now()`,
		cfg.TenantID, cfg.Mode, cfg.DirectoryID, cfg.ClientID, cfg.SecretRef, cfg.Enabled)
	if err != nil {
		return fmt.Errorf("put integration config %s: %w", cfg.TenantID, err)
	}
	return nil
}

func (s *Store) DeleteIntegrationConfig(ctx context.Context, tenantID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM integration_configs WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return fmt.Errorf("delete integration config %s: %w", tenantID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("integration config for tenant %s: %w", tenantID, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) ListIntegrationConfigs(ctx context.Context) ([]tenant.IntegrationConfig, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT tenant_id, mode, directory_id, client_id, secret_ref, enabled, created_at, updated_at
		 FROM integration_configs ORDER BY tenant_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list integration configs: %w", err)
	}
	defer rows.Close()

	var configs []tenant.IntegrationConfig
	for rows.Next() {
		var ic tenant.IntegrationConfig
		if err := rows.Scan(&ic.TenantID, &ic.Mode, &ic.DirectoryID, &ic.ClientID, &ic.SecretRef, &ic.Enabled, &ic.CreatedAt, &ic.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan integration config: %w", err)
		}
		configs = append(configs, ic)
	}
	return configs, rows.Err()
}

// --- Task links ---

const taskLinkColumns = `id, tenant_id, local_id, plan_id, bucket_id, task_id, etag, details_etag, created_at, updated_at`

func scanTaskLink(row pgx.Row) (*tenant.TaskLink, error) {
	var l tenant.TaskLink
	err := row.Scan(&l.ID, &l.TenantID, &l.LocalID, &l.PlanID, &l.BucketID, &l.TaskID, &l.Etag, &l.DetailsEtag, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Store) GetTaskLink(ctx context.Context, tenantID, localID string) (*tenant.TaskLink, error) {
	link, err := scanTaskLink(s.pool.QueryRow(ctx,
		`SELECT `+taskLinkColumns+` FROM task_links WHERE tenant_id = $1 AND local_id = $2`,
		tenantID, localID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("task link %s/%s: %w", tenantID, localID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get task link %s/%s: %w", tenantID, localID, err)
	}
	return link, nil
}

func (s *Store) GetTaskLinkByTaskID(ctx context.Context, tenantID, taskID string) (*tenant.TaskLink, error) {
	link, err := scanTaskLink(s.pool.QueryRow(ctx,
		`SELECT `+taskLinkColumns+` FROM task_links WHERE tenant_id = $1 AND task_id = $2`,
		tenantID, taskID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("task link for task %s: %w", taskID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get task link for task %s: %w", taskID, err)
	}
	return link, nil
}

func (s *Store) CreateTaskLink(ctx context.Context, link *tenant.TaskLink) error {
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO task_links (id, tenant_id, local_id, plan_id, bucket_id, task_id, etag, details_etag)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		link.ID, link.TenantID, link.LocalID, link.PlanID, link.BucketID, link.TaskID, link.Etag, link.DetailsEtag)
	if err != nil {
		return fmt.Errorf("create task link %s: %w", link.LocalID, err)
	}
	return nil
}

// UpdateTaskLinkEtags replaces the stored version tags after a
// successful mutation. Empty detailsEtag leaves the stored one intact.
func (s *Store) UpdateTaskLinkEtags(ctx context.Context, id, etag, detailsEtag string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE task_links
		 SET etag = $2,
		     details_etag = CASE WHEN $3 = '' THEN details_etag ELSE $3 END,
		     updated_at = now()
		 WHERE id = $1`,
		id, etag, detailsEtag)
	if err != nil {
		return fmt.Errorf("update task link %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task link %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteTaskLink(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM task_links WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task link %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task link %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) ListTaskLinks(ctx context.Context, tenantID, planID string) ([]tenant.TaskLink, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+taskLinkColumns+` FROM task_links
		 WHERE tenant_id = $1 AND plan_id = $2 ORDER BY created_at ASC`,
		tenantID, planID)
	if err != nil {
		return nil, fmt.Errorf("list task links for plan %s: %w", planID, err)
	}
	defer rows.Close()

	var links []tenant.TaskLink
	for rows.Next() {
		var l tenant.TaskLink
		if err := rows.Scan(&l.ID, &l.TenantID, &l.LocalID, &l.PlanID, &l.BucketID, &l.TaskID, &l.Etag, &l.DetailsEtag, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan task link: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}
