// Package service orchestrates gateway calls into idempotent,
// conflict-safe task/bucket/plan operations.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bridgelabs/planbridge/internal/domain"
	"github.com/bridgelabs/planbridge/internal/domain/remote"
	"github.com/bridgelabs/planbridge/internal/port/cache"
	"github.com/bridgelabs/planbridge/internal/port/gateway"
)

// SyncService is the domain-facing surface of the adapter: bucket
// provisioning, task CRUD with etag-gated mutations, assignment
// management and directory lookups. It performs no automatic retries;
// a conflict is surfaced as domain.ErrConflict and the caller owns the
// read-modify-write loop.
type SyncService struct {
	gw           gateway.Gateway
	cache        cache.Cache
	directoryTTL time.Duration
}

// NewSyncService creates a SyncService over the given gateway. cache,
// when non-nil, holds read-mostly directory lookups (user-by-email,
// group search) for directoryTTL.
func NewSyncService(gw gateway.Gateway, c cache.Cache, directoryTTL time.Duration) *SyncService {
	return &SyncService{gw: gw, cache: c, directoryTTL: directoryTTL}
}

// --- Groups ---

// ListGroupsForUser resolves the teams visible to a remote user via
// direct membership lookup.
func (s *SyncService) ListGroupsForUser(ctx context.Context, remoteUserID string) ([]remote.Group, error) {
	return s.gw.ListGroupsForUser(ctx, remoteUserID)
}

// SearchGroups finds groups by display-name prefix. The query is
// escaped by the gateway before being embedded in a filter expression.
func (s *SyncService) SearchGroups(ctx context.Context, query string) ([]remote.Group, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is empty", domain.ErrValidation)
	}

	key := "groups:search:" + query
	var cached []remote.Group
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	groups, err := s.gw.SearchGroups(ctx, query)
	if err != nil {
		return nil, err
	}
	s.cachePut(ctx, key, groups)
	return groups, nil
}

// VisibleGroups prefers direct membership lookup and falls back to a
// name-prefix search when no membership mapping exists locally
// (remoteUserID empty).
func (s *SyncService) VisibleGroups(ctx context.Context, remoteUserID, namePrefix string) ([]remote.Group, error) {
	if remoteUserID != "" {
		return s.ListGroupsForUser(ctx, remoteUserID)
	}
	return s.SearchGroups(ctx, namePrefix)
}

// --- Plans ---

// CreatePlan creates a plan owned by the given group.
func (s *SyncService) CreatePlan(ctx context.Context, groupID, title string) (*remote.Plan, error) {
	if groupID == "" || strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: group id and title are required", domain.ErrValidation)
	}
	return s.gw.CreatePlan(ctx, groupID, strings.TrimSpace(title))
}

// ListPlans lists the plans owned by a group.
func (s *SyncService) ListPlans(ctx context.Context, groupID string) ([]remote.Plan, error) {
	return s.gw.ListPlans(ctx, groupID)
}

// --- Buckets ---

// GetOrCreateBucket returns the bucket with the given name in the plan,
// creating it at the end of the visible ordering when absent. The bool
// reports whether a bucket was created. Listing happens immediately
// before creation, so sequential callers always converge on one bucket;
// two truly concurrent callers can still both create (the remote service
// enforces no name uniqueness), in which case the first exact match in
// list order wins on subsequent calls.
func (s *SyncService) GetOrCreateBucket(ctx context.Context, planID, name string) (*remote.Bucket, bool, error) {
	if planID == "" || name == "" {
		return nil, false, fmt.Errorf("%w: plan id and bucket name are required", domain.ErrValidation)
	}

	buckets, err := s.gw.ListBuckets(ctx, planID)
	if err != nil {
		return nil, false, err
	}
	for i := range buckets {
		if buckets[i].Name == name {
			return &buckets[i], false, nil
		}
	}

	bucket, err := s.gw.CreateBucket(ctx, planID, name, "")
	if err != nil {
		return nil, false, err
	}
	return bucket, true, nil
}

// --- Tasks ---

// CreateTask creates a task from the spec and returns it with its
// initial etag, which the caller must persist for future mutations.
func (s *SyncService) CreateTask(ctx context.Context, spec remote.TaskSpec) (*remote.Task, error) {
	if spec.PlanID == "" || strings.TrimSpace(spec.Title) == "" {
		return nil, fmt.Errorf("%w: plan id and title are required", domain.ErrValidation)
	}
	if !validPercent(spec.PercentComplete) {
		return nil, fmt.Errorf("%w: percentComplete must be 0, 50 or 100", domain.ErrValidation)
	}
	return s.gw.CreateTask(ctx, spec)
}

// UpdateTask applies a partial update gated on the caller's most
// recently observed etag. A stale etag fails with domain.ErrConflict;
// the caller must re-fetch and retry. Nothing here retries a conflicted
// write, since a naive retry would clobber the concurrent change.
func (s *SyncService) UpdateTask(ctx context.Context, taskID, etag string, patch remote.TaskPatch) (*remote.Task, error) {
	if taskID == "" || etag == "" {
		return nil, fmt.Errorf("%w: task id and etag are required", domain.ErrValidation)
	}
	if patch.PercentComplete != nil && !validPercent(*patch.PercentComplete) {
		return nil, fmt.Errorf("%w: percentComplete must be 0, 50 or 100", domain.ErrValidation)
	}
	return s.gw.UpdateTask(ctx, taskID, etag, patch)
}

// UpdateTaskDetails updates the description on the task-details
// sub-resource. Details carry their own etag, distinct from the task's;
// callers track both separately.
func (s *SyncService) UpdateTaskDetails(ctx context.Context, taskID, etag, description string) (*remote.TaskDetails, error) {
	if taskID == "" || etag == "" {
		return nil, fmt.Errorf("%w: task id and etag are required", domain.ErrValidation)
	}
	return s.gw.UpdateTaskDetails(ctx, taskID, etag, description)
}

// DeleteTask deletes the task, gated on its current etag. There is no
// soft delete; once accepted the task is gone from the remote service.
func (s *SyncService) DeleteTask(ctx context.Context, taskID, etag string) error {
	if taskID == "" || etag == "" {
		return fmt.Errorf("%w: task id and etag are required", domain.ErrValidation)
	}
	return s.gw.DeleteTask(ctx, taskID, etag)
}

// MarkComplete sets percentComplete to 100, gated on the caller's etag.
func (s *SyncService) MarkComplete(ctx context.Context, taskID, etag string) (*remote.Task, error) {
	pct := 100
	return s.UpdateTask(ctx, taskID, etag, remote.TaskPatch{PercentComplete: &pct})
}

// MarkInProgress sets percentComplete to 50, gated on the caller's etag.
func (s *SyncService) MarkInProgress(ctx context.Context, taskID, etag string) (*remote.Task, error) {
	pct := 50
	return s.UpdateTask(ctx, taskID, etag, remote.TaskPatch{PercentComplete: &pct})
}

// GetTask fetches a task. A task deleted out-of-band is an expected,
// non-exceptional outcome for polling callers, so Not-Found and Gone
// return (nil, nil); every other failure is surfaced.
func (s *SyncService) GetTask(ctx context.Context, taskID string) (*remote.Task, error) {
	task, err := s.gw.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return task, nil
}

// ListTasks lists all tasks in a plan.
func (s *SyncService) ListTasks(ctx context.Context, planID string) ([]remote.Task, error) {
	return s.gw.ListTasks(ctx, planID)
}

// GetTaskDetails fetches the details sub-resource, with the same
// not-found tolerance as GetTask.
func (s *SyncService) GetTaskDetails(ctx context.Context, taskID string) (*remote.TaskDetails, error) {
	details, err := s.gw.GetTaskDetails(ctx, taskID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return details, nil
}

// --- Users ---

// FindUserByEmail resolves a directory user by email. The address is
// normalized (trimmed, lowercased) before querying so lookups are
// case-insensitive. Returns (nil, nil) when no user matches.
func (s *SyncService) FindUserByEmail(ctx context.Context, email string) (*remote.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is empty", domain.ErrValidation)
	}

	key := "user:email:" + email
	var cached remote.User
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	user, err := s.gw.FindUserByEmail(ctx, email)
	if err != nil || user == nil {
		return nil, err
	}
	s.cachePut(ctx, key, user)
	return user, nil
}

// --- Channels and tabs (best-effort UI surfacing) ---

// defaultChannel is the placeholder returned when channel listing is
// not permitted for the current credentials.
var defaultChannel = remote.Channel{ID: "general", DisplayName: "General"}

// ListChannels lists a team's channels. Channel access is optional for
// this integration, so a permission-denied answer degrades to a single
// placeholder channel instead of failing the caller.
func (s *SyncService) ListChannels(ctx context.Context, teamID string) ([]remote.Channel, error) {
	channels, err := s.gw.ListChannels(ctx, teamID)
	if err != nil {
		if errors.Is(err, domain.ErrPermissionDenied) {
			slog.WarnContext(ctx, "channel listing not permitted, using placeholder",
				"team_id", teamID)
			return []remote.Channel{defaultChannel}, nil
		}
		return nil, err
	}
	if len(channels) == 0 {
		return []remote.Channel{defaultChannel}, nil
	}
	return channels, nil
}

// PinPlanTab pins the plan as a tab on one of the team's channels,
// preferring the general channel. Pinning is cosmetic: a permission
// failure is reported in the result, never raised, so the primary
// operation that triggered it is not rolled back.
func (s *SyncService) PinPlanTab(ctx context.Context, teamID, planID, displayName string) (remote.TabPinResult, error) {
	channels, err := s.ListChannels(ctx, teamID)
	if err != nil {
		if errors.Is(err, domain.ErrPermissionDenied) || errors.Is(err, domain.ErrNotFound) {
			return remote.TabPinResult{Pinned: false, Reason: err.Error()}, nil
		}
		return remote.TabPinResult{}, err
	}

	channel := channels[0]
	for _, ch := range channels {
		if strings.EqualFold(ch.DisplayName, "general") {
			channel = ch
			break
		}
	}

	tabID, err := s.gw.CreateTab(ctx, teamID, channel.ID, planID, displayName)
	if err != nil {
		if errors.Is(err, domain.ErrPermissionDenied) {
			slog.WarnContext(ctx, "tab pin not permitted",
				"team_id", teamID, "plan_id", planID)
			return remote.TabPinResult{Pinned: false, Reason: "insufficient permission to pin tab"}, nil
		}
		return remote.TabPinResult{}, err
	}
	return remote.TabPinResult{Pinned: true, TabID: tabID}, nil
}

// --- Reporting ---

// PlanReport aggregates task state for a plan.
func (s *SyncService) PlanReport(ctx context.Context, planID string) (*remote.PlanReport, error) {
	tasks, err := s.gw.ListTasks(ctx, planID)
	if err != nil {
		return nil, err
	}

	report := &remote.PlanReport{
		PlanID:   planID,
		Total:    len(tasks),
		ByBucket: make(map[string]int),
	}
	for _, t := range tasks {
		switch {
		case t.PercentComplete >= 100:
			report.Complete++
		case t.PercentComplete > 0:
			report.InProgress++
		default:
			report.NotStarted++
		}
		if t.BucketID != "" {
			report.ByBucket[t.BucketID]++
		}
	}
	return report, nil
}

// --- Helpers ---

func validPercent(p int) bool {
	return p == 0 || p == 50 || p == 100
}

// cacheGet loads a cached JSON value. Cache failures are treated as
// misses; the cache is an optimization, never a source of truth.
func (s *SyncService) cacheGet(ctx context.Context, key string, out any) bool {
	if s.cache == nil {
		return false
	}
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil || !ok {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

func (s *SyncService) cachePut(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = s.cache.Set(ctx, key, data, s.directoryTTL)
}
