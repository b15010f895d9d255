package messagequeue

import "time"

// TaskEvent is the payload published on sync.task.* subjects after a
// successful remote mutation. Etag is the version tag observed after
// the mutation, so consumers can detect whether their view is current.
type TaskEvent struct {
	EventID  string    `json:"event_id"`
	TenantID string    `json:"tenant_id"`
	PlanID   string    `json:"plan_id,omitempty"`
	BucketID string    `json:"bucket_id,omitempty"`
	TaskID   string    `json:"task_id"`
	LocalID  string    `json:"local_id,omitempty"`
	Title    string    `json:"title,omitempty"`
	Etag     string    `json:"etag,omitempty"`
	At       time.Time `json:"at"`
}

// PlanEvent is the payload published on sync.plan.* and sync.bucket.*
// subjects.
type PlanEvent struct {
	EventID  string    `json:"event_id"`
	TenantID string    `json:"tenant_id"`
	GroupID  string    `json:"group_id,omitempty"`
	PlanID   string    `json:"plan_id"`
	BucketID string    `json:"bucket_id,omitempty"`
	Title    string    `json:"title,omitempty"`
	At       time.Time `json:"at"`
}
