// Package tenant defines how a tenant authenticates against the remote
// work-management service.
package tenant

import "time"

// AppMode selects between the shared publisher application and a
// tenant-supplied (bring-your-own-app) registration.
type AppMode string

const (
	// ModeShared uses the process-wide publisher application.
	ModeShared AppMode = "shared"
	// ModeOwned uses a tenant-scoped application registration.
	ModeOwned AppMode = "owned"
)

// IntegrationConfig identifies the application a tenant authenticates
// with. For ModeShared the directory/client fields are resolved from
// process configuration; for ModeOwned they are tenant-supplied.
// SecretRef names a vault entry, the secret itself is never stored here.
type IntegrationConfig struct {
	TenantID    string    `json:"tenantId"`
	Mode        AppMode   `json:"mode"`
	DirectoryID string    `json:"directoryId,omitempty"`
	ClientID    string    `json:"clientId,omitempty"`
	SecretRef   string    `json:"secretRef,omitempty"`
	Enabled     bool      `json:"enabled"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TaskLink records the remote identifiers and version tags persisted for
// a local work item, so later updates and deletes can present the etag
// most recently observed.
type TaskLink struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenantId"`
	LocalID     string    `json:"localId"`
	PlanID      string    `json:"planId"`
	BucketID    string    `json:"bucketId,omitempty"`
	TaskID      string    `json:"taskId"`
	Etag        string    `json:"etag"`
	DetailsEtag string    `json:"detailsEtag,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
