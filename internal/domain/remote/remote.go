// Package remote defines the resource model of the external
// work-management service: groups own plans, plans contain buckets,
// buckets contain tasks. Tasks and task details carry independent
// version tags (etags) used for optimistic concurrency.
package remote

// Group is a team/organizational unit that owns plans. Read-mostly;
// this service never creates groups.
type Group struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Description string `json:"description,omitempty"`
	Mail        string `json:"mail,omitempty"`
}

// Plan is the project-equivalent container. One plan per local project.
type Plan struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	OwnerID   string `json:"owner"`
	CreatedAt string `json:"createdDateTime,omitempty"`
}

// Bucket is a named column within a plan. Names are unique per plan from
// this service's perspective; uniqueness is enforced by get-or-create
// logic, not by the remote service.
type Bucket struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	PlanID    string `json:"planId"`
	OrderHint string `json:"orderHint,omitempty"`
}

// Assignment is the per-user metadata attached to a task assignment.
type Assignment struct {
	Type      string `json:"@odata.type"`
	OrderHint string `json:"orderHint"`
}

// Task is a work item. Etag is the optimistic-concurrency token: every
// mutation must present the etag most recently observed for the task,
// and must replace it with the one returned before writing again.
type Task struct {
	ID              string                `json:"id"`
	PlanID          string                `json:"planId"`
	BucketID        string                `json:"bucketId,omitempty"`
	Title           string                `json:"title"`
	PercentComplete int                   `json:"percentComplete"`
	StartDate       string                `json:"startDateTime,omitempty"`
	DueDate         string                `json:"dueDateTime,omitempty"`
	Assignments     map[string]Assignment `json:"assignments,omitempty"`
	OrderHint       string                `json:"orderHint,omitempty"`
	Etag            string                `json:"@odata.etag"`
}

// TaskDetails is a separately versioned sub-resource of a task. Its etag
// is independent of the task's etag; callers track both.
type TaskDetails struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
	Etag        string `json:"@odata.etag"`
}

// User is a directory identity resolvable by email, used to bridge local
// person records to remote assignable identities.
type User struct {
	ID            string `json:"id"`
	DisplayName   string `json:"displayName"`
	Mail          string `json:"mail,omitempty"`
	PrincipalName string `json:"userPrincipalName"`
}

// Channel is a team conversation channel, used only for best-effort UI
// surfacing (tab pinning).
type Channel struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// TaskSpec describes a task to create.
type TaskSpec struct {
	PlanID          string
	BucketID        string
	Title           string
	StartDate       string
	DueDate         string
	PercentComplete int
	AssigneeIDs     []string
}

// TaskPatch carries the fields of a partial task update. Nil fields are
// omitted from the outgoing payload.
type TaskPatch struct {
	Title           *string
	BucketID        *string
	PercentComplete *int
	StartDate       *string
	DueDate         *string
	AssigneeIDs     []string // full replacement when non-nil
}

// TabPinResult reports the outcome of the best-effort tab pin. A failed
// pin never fails the primary operation; Reason explains a false Pinned.
type TabPinResult struct {
	Pinned bool   `json:"pinned"`
	TabID  string `json:"tabId,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// PlanReport aggregates task state for a plan, grouped the way status
// reporting consumes it.
type PlanReport struct {
	PlanID     string         `json:"planId"`
	Total      int            `json:"total"`
	NotStarted int            `json:"notStarted"`
	InProgress int            `json:"inProgress"`
	Complete   int            `json:"complete"`
	ByBucket   map[string]int `json:"byBucket"`
}
