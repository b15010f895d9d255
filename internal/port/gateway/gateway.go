// Package gateway defines the port interface over the remote
// work-management API's resource hierarchy (group → plan → bucket →
// task → task details, plus channel/tab resources for UI surfacing).
//
// Every method is a single network round trip. Implementations classify
// remote failures onto the domain error taxonomy before returning, so
// callers never inspect raw transport errors. Mutations on versioned
// resources take the caller's most recently observed etag and forward it
// as a conditional header; a stale etag surfaces as domain.ErrConflict.
package gateway

import (
	"context"

	"github.com/bridgelabs/planbridge/internal/domain/remote"
)

// Gateway is the typed call surface over the remote resource API.
type Gateway interface {
	// Groups and directory lookups.
	ListGroups(ctx context.Context) ([]remote.Group, error)
	GetGroup(ctx context.Context, groupID string) (*remote.Group, error)
	ListGroupsForUser(ctx context.Context, userID string) ([]remote.Group, error)
	SearchGroups(ctx context.Context, namePrefix string) ([]remote.Group, error)
	FindUserByEmail(ctx context.Context, email string) (*remote.User, error)
	GetUser(ctx context.Context, userID string) (*remote.User, error)

	// Plans.
	ListPlans(ctx context.Context, groupID string) ([]remote.Plan, error)
	CreatePlan(ctx context.Context, groupID, title string) (*remote.Plan, error)

	// Buckets.
	ListBuckets(ctx context.Context, planID string) ([]remote.Bucket, error)
	CreateBucket(ctx context.Context, planID, name, orderHint string) (*remote.Bucket, error)

	// Tasks. Update and Delete require the task's current etag.
	ListTasks(ctx context.Context, planID string) ([]remote.Task, error)
	GetTask(ctx context.Context, taskID string) (*remote.Task, error)
	CreateTask(ctx context.Context, spec remote.TaskSpec) (*remote.Task, error)
	UpdateTask(ctx context.Context, taskID, etag string, patch remote.TaskPatch) (*remote.Task, error)
	DeleteTask(ctx context.Context, taskID, etag string) error

	// Task details carry their own etag, independent of the task's.
	GetTaskDetails(ctx context.Context, taskID string) (*remote.TaskDetails, error)
	UpdateTaskDetails(ctx context.Context, taskID, etag, description string) (*remote.TaskDetails, error)

	// Channel/tab resources, used by best-effort UI surfacing only.
	ListChannels(ctx context.Context, teamID string) ([]remote.Channel, error)
	CreateTab(ctx context.Context, teamID, channelID, planID, displayName string) (string, error)
}
