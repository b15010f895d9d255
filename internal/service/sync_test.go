package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bridgelabs/planbridge/internal/domain"
	"github.com/bridgelabs/planbridge/internal/domain/remote"
	"github.com/bridgelabs/planbridge/internal/service"
)

// fakeGateway is an in-memory stand-in for the remote API with the same
// concurrency semantics: every mutation bumps the resource's etag and a
// stale etag is rejected with domain.ErrConflict.
type fakeGateway struct {
	mu sync.Mutex

	groups      map[string]remote.Group
	memberships map[string][]remote.Group
	plans       map[string][]remote.Plan   // keyed by group ID
	buckets     map[string][]remote.Bucket // keyed by plan ID
	tasks       map[string]*remote.Task
	details     map[string]*remote.TaskDetails
	users       []remote.User
	channels    []remote.Channel

	channelsErr error
	tabErr      error

	version        int
	bucketCreates  int
	searchCalls    int
	userLookups    int
	lastTabChannel string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		groups:      make(map[string]remote.Group),
		memberships: make(map[string][]remote.Group),
		plans:       make(map[string][]remote.Plan),
		buckets:     make(map[string][]remote.Bucket),
		tasks:       make(map[string]*remote.Task),
		details:     make(map[string]*remote.TaskDetails),
	}
}

func (g *fakeGateway) nextEtag() string {
	g.version++
	return fmt.Sprintf("W/%q", fmt.Sprint(g.version))
}

func (g *fakeGateway) nextID(prefix string) string {
	g.version++
	return fmt.Sprintf("%s-%d", prefix, g.version)
}

func (g *fakeGateway) ListGroups(context.Context) ([]remote.Group, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []remote.Group
	for _, grp := range g.groups {
		out = append(out, grp)
	}
	return out, nil
}

func (g *fakeGateway) GetGroup(_ context.Context, id string) (*remote.Group, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if grp, ok := g.groups[id]; ok {
		return &grp, nil
	}
	return nil, fmt.Errorf("group %s: %w", id, domain.ErrNotFound)
}

func (g *fakeGateway) ListGroupsForUser(_ context.Context, userID string) ([]remote.Group, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.memberships[userID], nil
}

func (g *fakeGateway) SearchGroups(_ context.Context, namePrefix string) ([]remote.Group, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.searchCalls++
	var out []remote.Group
	for _, grp := range g.groups {
		if strings.HasPrefix(grp.DisplayName, namePrefix) {
			out = append(out, grp)
		}
	}
	return out, nil
}

func (g *fakeGateway) FindUserByEmail(_ context.Context, email string) (*remote.User, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.userLookups++
	for i := range g.users {
		if strings.EqualFold(g.users[i].Mail, email) {
			return &g.users[i], nil
		}
	}
	return nil, nil
}

func (g *fakeGateway) GetUser(_ context.Context, id string) (*remote.User, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.users {
		if g.users[i].ID == id {
			return &g.users[i], nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
}

func (g *fakeGateway) ListPlans(_ context.Context, groupID string) ([]remote.Plan, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.plans[groupID], nil
}

func (g *fakeGateway) CreatePlan(_ context.Context, groupID, title string) (*remote.Plan, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	plan := remote.Plan{ID: g.nextID("plan"), Title: title, OwnerID: groupID}
	g.plans[groupID] = append(g.plans[groupID], plan)
	return &plan, nil
}

func (g *fakeGateway) ListBuckets(_ context.Context, planID string) ([]remote.Bucket, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.buckets[planID], nil
}

func (g *fakeGateway) CreateBucket(_ context.Context, planID, name, orderHint string) (*remote.Bucket, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.bucketCreates++
	bucket := remote.Bucket{ID: g.nextID("bucket"), Name: name, PlanID: planID, OrderHint: orderHint}
	g.buckets[planID] = append(g.buckets[planID], bucket)
	return &bucket, nil
}

func (g *fakeGateway) ListTasks(_ context.Context, planID string) ([]remote.Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []remote.Task
	for _, t := range g.tasks {
		if t.PlanID == planID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (g *fakeGateway) GetTask(_ context.Context, taskID string) (*remote.Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (g *fakeGateway) CreateTask(_ context.Context, spec remote.TaskSpec) (*remote.Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	task := &remote.Task{
		ID:              g.nextID("task"),
		PlanID:          spec.PlanID,
		BucketID:        spec.BucketID,
		Title:           spec.Title,
		PercentComplete: spec.PercentComplete,
		StartDate:       spec.StartDate,
		DueDate:         spec.DueDate,
		Etag:            g.nextEtag(),
	}
	if len(spec.AssigneeIDs) > 0 {
		task.Assignments = make(map[string]remote.Assignment, len(spec.AssigneeIDs))
		for _, id := range spec.AssigneeIDs {
			task.Assignments[id] = remote.Assignment{Type: "#microsoft.graph.plannerAssignment", OrderHint: " !"}
		}
	}
	g.tasks[task.ID] = task
	g.details[task.ID] = &remote.TaskDetails{ID: task.ID, Etag: g.nextEtag()}
	cp := *task
	return &cp, nil
}

func (g *fakeGateway) UpdateTask(_ context.Context, taskID, etag string, patch remote.TaskPatch) (*remote.Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}
	if t.Etag != etag {
		return nil, fmt.Errorf("task %s etag mismatch: %w", taskID, domain.ErrConflict)
	}
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.BucketID != nil {
		t.BucketID = *patch.BucketID
	}
	if patch.PercentComplete != nil {
		t.PercentComplete = *patch.PercentComplete
	}
	if patch.StartDate != nil {
		t.StartDate = *patch.StartDate
	}
	if patch.DueDate != nil {
		t.DueDate = *patch.DueDate
	}
	if patch.AssigneeIDs != nil {
		t.Assignments = make(map[string]remote.Assignment, len(patch.AssigneeIDs))
		for _, id := range patch.AssigneeIDs {
			t.Assignments[id] = remote.Assignment{Type: "#microsoft.graph.plannerAssignment", OrderHint: " !"}
		}
	}
	t.Etag = g.nextEtag()
	cp := *t
	return &cp, nil
}

func (g *fakeGateway) DeleteTask(_ context.Context, taskID, etag string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}
	if t.Etag != etag {
		return fmt.Errorf("task %s etag mismatch: %w", taskID, domain.ErrConflict)
	}
	delete(g.tasks, taskID)
	delete(g.details, taskID)
	return nil
}

func (g *fakeGateway) GetTaskDetails(_ context.Context, taskID string) (*remote.TaskDetails, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	d, ok := g.details[taskID]
	if !ok {
		return nil, fmt.Errorf("task details %s: %w", taskID, domain.ErrNotFound)
	}
	cp := *d
	return &cp, nil
}

func (g *fakeGateway) UpdateTaskDetails(_ context.Context, taskID, etag, description string) (*remote.TaskDetails, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	d, ok := g.details[taskID]
	if !ok {
		return nil, fmt.Errorf("task details %s: %w", taskID, domain.ErrNotFound)
	}
	if d.Etag != etag {
		return nil, fmt.Errorf("task details %s etag mismatch: %w", taskID, domain.ErrConflict)
	}
	d.Description = description
	d.Etag = g.nextEtag()
	cp := *d
	return &cp, nil
}

func (g *fakeGateway) ListChannels(_ context.Context, _ string) ([]remote.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.channelsErr != nil {
		return nil, g.channelsErr
	}
	return g.channels, nil
}

func (g *fakeGateway) CreateTab(_ context.Context, _, channelID, _, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.tabErr != nil {
		return "", g.tabErr
	}
	g.lastTabChannel = channelID
	return g.nextID("tab"), nil
}

// memCache is a trivial cache.Cache for tests.
type memCache struct {
	mu sync.Mutex
	m  map[string][]byte
}

func newMemCache() *memCache { return &memCache{m: make(map[string][]byte)} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
	return nil
}

func newService(g *fakeGateway) *service.SyncService {
	return service.NewSyncService(g, newMemCache(), time.Minute)
}

// --- Buckets ---

func TestGetOrCreateBucketIdempotent(t *testing.T) {
	g := newFakeGateway()
	svc := newService(g)
	ctx := t.Context()

	first, created, err := svc.GetOrCreateBucket(ctx, "plan-1", "Sprint 12")
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	if !created {
		t.Fatal("expected first call to create the bucket")
	}

	second, created, err := svc.GetOrCreateBucket(ctx, "plan-1", "Sprint 12")
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if created {
		t.Fatal("expected second call to reuse the bucket")
	}
	if first.ID != second.ID {
		t.Fatalf("expected same bucket, got %s and %s", first.ID, second.ID)
	}
	if g.bucketCreates != 1 {
		t.Fatalf("expected 1 bucket creation, got %d", g.bucketCreates)
	}
}

func TestGetOrCreateBucketValidation(t *testing.T) {
	svc := newService(newFakeGateway())
	if _, _, err := svc.GetOrCreateBucket(t.Context(), "", "name"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

// --- Tasks ---

func TestCreateTaskRejectsInvalidPercent(t *testing.T) {
	svc := newService(newFakeGateway())
	_, err := svc.CreateTask(t.Context(), remote.TaskSpec{
		PlanID: "plan-1", Title: "x", PercentComplete: 37,
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestUpdateTaskStaleEtagConflicts(t *testing.T) {
	g := newFakeGateway()
	svc := newService(g)
	ctx := t.Context()

	task, err := svc.CreateTask(ctx, remote.TaskSpec{PlanID: "plan-1", Title: "x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// A successful update invalidates the original etag.
	title := "renamed"
	updated, err := svc.UpdateTask(ctx, task.ID, task.Etag, remote.TaskPatch{Title: &title})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Etag == task.Etag {
		t.Fatal("expected update to rotate the etag")
	}

	_, err = svc.UpdateTask(ctx, task.ID, task.Etag, remote.TaskPatch{Title: &title})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict on stale etag, got %v", err)
	}

	// Retry with the fresh etag succeeds: the caller owns the
	// read-modify-write loop.
	if _, err := svc.UpdateTask(ctx, task.ID, updated.Etag, remote.TaskPatch{Title: &title}); err != nil {
		t.Fatalf("retry with fresh etag: %v", err)
	}
}

func TestGetTaskVanishedReturnsNil(t *testing.T) {
	svc := newService(newFakeGateway())
	task, err := svc.GetTask(t.Context(), "gone")
	if err != nil {
		t.Fatalf("expected nil error for missing task, got %v", err)
	}
	if task != nil {
		t.Fatalf("expected nil task, got %v", task)
	}
}

func TestMarkCompleteAndReport(t *testing.T) {
	g := newFakeGateway()
	svc := newService(g)
	ctx := t.Context()

	t1, _ := svc.CreateTask(ctx, remote.TaskSpec{PlanID: "plan-1", Title: "a"})
	t2, _ := svc.CreateTask(ctx, remote.TaskSpec{PlanID: "plan-1", Title: "b"})
	if _, err := svc.MarkComplete(ctx, t1.ID, t1.Etag); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := svc.MarkInProgress(ctx, t2.ID, t2.Etag); err != nil {
		t.Fatalf("in progress: %v", err)
	}
	if _, err := svc.CreateTask(ctx, remote.TaskSpec{PlanID: "plan-1", Title: "c"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	report, err := svc.PlanReport(ctx, "plan-1")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Total != 3 || report.Complete != 1 || report.InProgress != 1 || report.NotStarted != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

// --- Directory lookups ---

func TestFindUserByEmailNormalizesAndCaches(t *testing.T) {
	g := newFakeGateway()
	g.users = []remote.User{{ID: "u1", DisplayName: "Alice", Mail: "alice@example.com"}}
	svc := newService(g)
	ctx := t.Context()

	user, err := svc.FindUserByEmail(ctx, "  Alice@Example.COM ")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if user == nil || user.ID != "u1" {
		t.Fatalf("expected u1, got %v", user)
	}

	// Same address in a different casing hits the cache.
	if _, err := svc.FindUserByEmail(ctx, "ALICE@example.com"); err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	if g.userLookups != 1 {
		t.Fatalf("expected 1 gateway lookup, got %d", g.userLookups)
	}
}

func TestFindUserByEmailNoMatch(t *testing.T) {
	svc := newService(newFakeGateway())
	user, err := svc.FindUserByEmail(t.Context(), "nobody@example.com")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if user != nil {
		t.Fatalf("expected nil user, got %v", user)
	}
}

func TestSearchGroupsCaches(t *testing.T) {
	g := newFakeGateway()
	g.groups["g1"] = remote.Group{ID: "g1", DisplayName: "Platform"}
	svc := newService(g)
	ctx := t.Context()

	for range 2 {
		groups, err := svc.SearchGroups(ctx, "Plat")
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(groups) != 1 {
			t.Fatalf("expected 1 group, got %d", len(groups))
		}
	}
	if g.searchCalls != 1 {
		t.Fatalf("expected 1 gateway search, got %d", g.searchCalls)
	}
}

// --- Channels and tabs ---

func TestListChannelsPermissionFallback(t *testing.T) {
	g := newFakeGateway()
	g.channelsErr = fmt.Errorf("list channels: %w", domain.ErrPermissionDenied)
	svc := newService(g)

	channels, err := svc.ListChannels(t.Context(), "team-1")
	if err != nil {
		t.Fatalf("expected placeholder fallback, got error %v", err)
	}
	if len(channels) != 1 || channels[0].ID != "general" {
		t.Fatalf("expected general placeholder, got %v", channels)
	}
}

func TestPinPlanTabPrefersGeneral(t *testing.T) {
	g := newFakeGateway()
	g.channels = []remote.Channel{
		{ID: "c1", DisplayName: "Random"},
		{ID: "c2", DisplayName: "General"},
	}
	svc := newService(g)

	result, err := svc.PinPlanTab(t.Context(), "team-1", "plan-1", "Tasks")
	if err != nil {
		t.Fatalf("pin: %v", err)
	}
	if !result.Pinned {
		t.Fatalf("expected pinned, got %+v", result)
	}
	if g.lastTabChannel != "c2" {
		t.Fatalf("expected tab on general channel c2, got %s", g.lastTabChannel)
	}
}

func TestPinPlanTabDeniedIsReportedNotRaised(t *testing.T) {
	g := newFakeGateway()
	g.channels = []remote.Channel{{ID: "c1", DisplayName: "General"}}
	g.tabErr = fmt.Errorf("create tab: %w", domain.ErrPermissionDenied)
	svc := newService(g)

	result, err := svc.PinPlanTab(t.Context(), "team-1", "plan-1", "Tasks")
	if err != nil {
		t.Fatalf("pin must not fail on permission denial, got %v", err)
	}
	if result.Pinned {
		t.Fatal("expected pinned=false")
	}
	if result.Reason == "" {
		t.Fatal("expected a reason for the failed pin")
	}
}

// --- Full lifecycle ---

func TestTaskLifecycle(t *testing.T) {
	g := newFakeGateway()
	g.groups["g1"] = remote.Group{ID: "g1", DisplayName: "Platform"}
	g.users = []remote.User{{ID: "u1", Mail: "alice@example.com"}}
	svc := newService(g)
	ctx := t.Context()

	plan, err := svc.CreatePlan(ctx, "g1", "Roadmap")
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	bucket, _, err := svc.GetOrCreateBucket(ctx, plan.ID, "Backlog")
	if err != nil {
		t.Fatalf("bucket: %v", err)
	}

	user, err := svc.FindUserByEmail(ctx, "alice@example.com")
	if err != nil || user == nil {
		t.Fatalf("user lookup: %v, %v", user, err)
	}

	task, err := svc.CreateTask(ctx, remote.TaskSpec{
		PlanID:      plan.ID,
		BucketID:    bucket.ID,
		Title:       "Write the proposal",
		DueDate:     "2026-09-01T00:00:00Z",
		AssigneeIDs: []string{user.ID},
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, ok := task.Assignments[user.ID]; !ok {
		t.Fatal("expected assignment for alice")
	}

	details, err := svc.GetTaskDetails(ctx, task.ID)
	if err != nil || details == nil {
		t.Fatalf("details: %v, %v", details, err)
	}
	details, err = svc.UpdateTaskDetails(ctx, task.ID, details.Etag, "Full context in the wiki.")
	if err != nil {
		t.Fatalf("update details: %v", err)
	}
	if details.Description == "" {
		t.Fatal("expected description set")
	}

	done, err := svc.MarkComplete(ctx, task.ID, task.Etag)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.PercentComplete != 100 {
		t.Fatalf("expected 100%%, got %d", done.PercentComplete)
	}

	if err := svc.DeleteTask(ctx, task.ID, done.Etag); err != nil {
		t.Fatalf("delete: %v", err)
	}
	gone, err := svc.GetTask(ctx, task.ID)
	if err != nil || gone != nil {
		t.Fatalf("expected (nil, nil) after delete, got %v, %v", gone, err)
	}
}
