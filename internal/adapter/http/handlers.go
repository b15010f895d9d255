package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	otelx "github.com/bridgelabs/planbridge/internal/adapter/otel"
	"github.com/bridgelabs/planbridge/internal/domain"
	"github.com/bridgelabs/planbridge/internal/domain/remote"
	"github.com/bridgelabs/planbridge/internal/domain/tenant"
	"github.com/bridgelabs/planbridge/internal/middleware"
	"github.com/bridgelabs/planbridge/internal/port/linkstore"
	"github.com/bridgelabs/planbridge/internal/port/messagequeue"
	"github.com/bridgelabs/planbridge/internal/service"
)

// Handlers holds the HTTP handler dependencies. Metrics may be nil.
type Handlers struct {
	Provider *service.SyncProvider
	Store    linkstore.Store
	Queue    messagequeue.Queue
	Metrics  *otelx.Metrics
}

// noteMutationError records a conflict metric before the error is
// written, so stale-etag rejections are visible in dashboards.
func (h *Handlers) noteMutationError(ctx context.Context, err error) {
	if errors.Is(err, domain.ErrConflict) {
		h.Metrics.Conflict(ctx)
	}
}

// syncFor resolves the per-tenant sync service for the request. On
// failure (typically an unconfigured integration) the error is written
// and ok is false.
func (h *Handlers) syncFor(w http.ResponseWriter, r *http.Request) (*service.SyncService, string, bool) {
	tenantID := middleware.TenantIDFromContext(r.Context())
	svc, err := h.Provider.ForTenant(r.Context(), tenantID)
	if err != nil {
		writeDomainError(w, err, "integration not found")
		return nil, "", false
	}
	return svc, tenantID, true
}

// publish sends an event to the queue best-effort. Events are
// informational; a publish failure is logged, never surfaced to the
// caller whose mutation already succeeded.
func (h *Handlers) publish(ctx context.Context, subject string, event any) {
	if h.Queue == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		slog.ErrorContext(ctx, "marshal event", "subject", subject, "error", err)
		return
	}
	if err := h.Queue.Publish(ctx, subject, data); err != nil {
		slog.ErrorContext(ctx, "publish event", "subject", subject, "error", err)
	}
}

func (h *Handlers) publishTask(ctx context.Context, subject, tenantID string, task *remote.Task, localID string) {
	h.publish(ctx, subject, messagequeue.TaskEvent{
		EventID:  uuid.NewString(),
		TenantID: tenantID,
		PlanID:   task.PlanID,
		BucketID: task.BucketID,
		TaskID:   task.ID,
		LocalID:  localID,
		Title:    task.Title,
		Etag:     task.Etag,
		At:       time.Now().UTC(),
	})
}

// ---------------------------------------------------------------------------
// Integration configuration
// ---------------------------------------------------------------------------

type integrationRequest struct {
	Mode        tenant.AppMode `json:"mode"`
	DirectoryID string         `json:"directoryId"`
	ClientID    string         `json:"clientId"`
	SecretRef   string         `json:"secretRef"`
	Enabled     bool           `json:"enabled"`
}

// GetIntegration returns the stored integration config for the tenant.
func (h *Handlers) GetIntegration(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantIDFromContext(r.Context())
	cfg, err := h.Store.GetIntegrationConfig(r.Context(), tenantID)
	if err != nil {
		writeDomainError(w, err, "integration not found")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// PutIntegration creates or replaces the tenant's integration config.
func (h *Handlers) PutIntegration(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[integrationRequest](w, r)
	if !ok {
		return
	}
	if req.Mode != tenant.ModeShared && req.Mode != tenant.ModeOwned {
		writeError(w, http.StatusBadRequest, "mode must be shared or owned")
		return
	}
	if req.Mode == tenant.ModeOwned {
		if req.DirectoryID == "" || req.ClientID == "" || req.SecretRef == "" {
			writeError(w, http.StatusBadRequest, "owned mode requires directoryId, clientId and secretRef")
			return
		}
	}

	tenantID := middleware.TenantIDFromContext(r.Context())
	cfg := &tenant.IntegrationConfig{
		TenantID:    tenantID,
		Mode:        req.Mode,
		DirectoryID: req.DirectoryID,
		ClientID:    req.ClientID,
		SecretRef:   req.SecretRef,
		Enabled:     req.Enabled,
	}
	if err := h.Store.PutIntegrationConfig(r.Context(), cfg); err != nil {
		writeDomainError(w, err, "integration not found")
		return
	}

	stored, err := h.Store.GetIntegrationConfig(r.Context(), tenantID)
	if err != nil {
		writeDomainError(w, err, "integration not found")
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

// DeleteIntegration removes the tenant's integration config.
func (h *Handlers) DeleteIntegration(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantIDFromContext(r.Context())
	if err := h.Store.DeleteIntegrationConfig(r.Context(), tenantID); err != nil {
		writeDomainError(w, err, "integration not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListIntegrations returns all tenants' integration configs.
func (h *Handlers) ListIntegrations(w http.ResponseWriter, r *http.Request) {
	configs, err := h.Store.ListIntegrationConfigs(r.Context())
	if err != nil {
		writeDomainError(w, err, "integrations not found")
		return
	}
	if configs == nil {
		configs = []tenant.IntegrationConfig{}
	}
	writeJSON(w, http.StatusOK, configs)
}

// ---------------------------------------------------------------------------
// Groups and users
// ---------------------------------------------------------------------------

// ListGroups resolves the groups visible to the caller, either by remote
// user membership (userId) or by display-name prefix (query).
func (h *Handlers) ListGroups(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	query := r.URL.Query().Get("query")
	if userID == "" && query == "" {
		writeError(w, http.StatusBadRequest, "userId or query is required")
		return
	}

	svc, _, ok := h.syncFor(w, r)
	if !ok {
		return
	}
	groups, err := svc.VisibleGroups(r.Context(), userID, query)
	if err != nil {
		writeDomainError(w, err, "groups not found")
		return
	}
	if groups == nil {
		groups = []remote.Group{}
	}
	writeJSON(w, http.StatusOK, groups)
}

// LookupUser resolves a remote directory user by email.
func (h *Handlers) LookupUser(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if !requireField(w, email, "email") {
		return
	}

	svc, _, ok := h.syncFor(w, r)
	if !ok {
		return
	}
	user, err := svc.FindUserByEmail(r.Context(), email)
	if err != nil {
		writeDomainError(w, err, "user not found")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "no user matches that email")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ---------------------------------------------------------------------------
// Plans and buckets
// ---------------------------------------------------------------------------

type createPlanRequest struct {
	Title string `json:"title"`
}

// CreatePlan creates a plan owned by the group.
func (h *Handlers) CreatePlan(w http.ResponseWriter, r *http.Request) {
	groupID := urlParam(r, "groupID")
	req, ok := readJSON[createPlanRequest](w, r)
	if !ok {
		return
	}

	svc, tenantID, ok := h.syncFor(w, r)
	if !ok {
		return
	}
	plan, err := svc.CreatePlan(r.Context(), groupID, req.Title)
	if err != nil {
		writeDomainError(w, err, "group not found")
		return
	}

	h.publish(r.Context(), messagequeue.SubjectPlanCreated, messagequeue.PlanEvent{
		EventID:  uuid.NewString(),
		TenantID: tenantID,
		GroupID:  groupID,
		PlanID:   plan.ID,
		Title:    plan.Title,
		At:       time.Now().UTC(),
	})
	writeJSON(w, http.StatusCreated, plan)
}

// ListPlans lists the plans owned by the group.
func (h *Handlers) ListPlans(w http.ResponseWriter, r *http.Request) {
	svc, _, ok := h.syncFor(w, r)
	if !ok {
		return
	}
	plans, err := svc.ListPlans(r.Context(), urlParam(r, "groupID"))
	if err != nil {
		writeDomainError(w, err, "group not found")
		return
	}
	if plans == nil {
		plans = []remote.Plan{}
	}
	writeJSON(w, http.StatusOK, plans)
}

type ensureBucketRequest struct {
	Name string `json:"name"`
}

// EnsureBucket returns the named bucket in the plan, creating it when
// absent. Calling it twice with the same name yields the same bucket.
func (h *Handlers) EnsureBucket(w http.ResponseWriter, r *http.Request) {
	planID := urlParam(r, "id")
	req, ok := readJSON[ensureBucketRequest](w, r)
	if !ok {
		return
	}

	svc, tenantID, ok := h.syncFor(w, r)
	if !ok {
		return
	}
	bucket, created, err := svc.GetOrCreateBucket(r.Context(), planID, req.Name)
	if err != nil {
		writeDomainError(w, err, "plan not found")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		h.publish(r.Context(), messagequeue.SubjectBucketCreated, messagequeue.PlanEvent{
			EventID:  uuid.NewString(),
			TenantID: tenantID,
			PlanID:   planID,
			BucketID: bucket.ID,
			Title:    bucket.Name,
			At:       time.Now().UTC(),
		})
	}
	writeJSON(w, status, bucket)
}

// ListPlanTasks lists all tasks in the plan.
func (h *Handlers) ListPlanTasks(w http.ResponseWriter, r *http.Request) {
	svc, _, ok := h.syncFor(w, r)
	if !ok {
		return
	}
	tasks, err := svc.ListTasks(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "plan not found")
		return
	}
	if tasks == nil {
		tasks = []remote.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// PlanReport aggregates task completion state for the plan.
func (h *Handlers) PlanReport(w http.ResponseWriter, r *http.Request) {
	svc, _, ok := h.syncFor(w, r)
	if !ok {
		return
	}
	report, err := svc.PlanReport(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "plan not found")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ListPlanLinks lists the locally persisted task links for the plan.
func (h *Handlers) ListPlanLinks(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantIDFromContext(r.Context())
	links, err := h.Store.ListTaskLinks(r.Context(), tenantID, urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "plan not found")
		return
	}
	if links == nil {
		links = []tenant.TaskLink{}
	}
	writeJSON(w, http.StatusOK, links)
}

type pinTabRequest struct {
	TeamID      string `json:"teamId"`
	DisplayName string `json:"displayName"`
}

// PinPlanTab pins the plan as a tab on the team's general channel.
// Pinning is best-effort: insufficient permission reports pinned=false
// instead of failing.
func (h *Handlers) PinPlanTab(w http.ResponseWriter, r *http.Request) {
	planID := urlParam(r, "id")
	req, ok := readJSON[pinTabRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.TeamID, "teamId") {
		return
	}
	if req.DisplayName == "" {
		req.DisplayName = "Tasks"
	}

	svc, _, ok := h.syncFor(w, r)
	if !ok {
		return
	}
	result, err := svc.PinPlanTab(r.Context(), req.TeamID, planID, req.DisplayName)
	if err != nil {
		writeDomainError(w, err, "team not found")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ListChannels lists a team's channels, degrading to a placeholder when
// channel access is not granted.
func (h *Handlers) ListChannels(w http.ResponseWriter, r *http.Request) {
	svc, _, ok := h.syncFor(w, r)
	if !ok {
		return
	}
	channels, err := svc.ListChannels(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "team not found")
		return
	}
	writeJSON(w, http.StatusOK, channels)
}

// ---------------------------------------------------------------------------
// Tasks
// ---------------------------------------------------------------------------

type createTaskRequest struct {
	LocalID         string   `json:"localId"`
	PlanID          string   `json:"planId"`
	BucketID        string   `json:"bucketId"`
	BucketName      string   `json:"bucketName"`
	Title           string   `json:"title"`
	StartDate       string   `json:"startDate"`
	DueDate         string   `json:"dueDate"`
	PercentComplete int      `json:"percentComplete"`
	AssigneeIDs     []string `json:"assigneeIds"`
	Description     string   `json:"description"`
}

type taskResponse struct {
	Task *remote.Task     `json:"task"`
	Link *tenant.TaskLink `json:"link,omitempty"`
}

// CreateTask creates a remote task, optionally provisioning its bucket
// by name and setting its description, and persists a task link when a
// local ID is supplied.
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[createTaskRequest](w, r)
	if !ok {
		return
	}

	svc, tenantID, ok := h.syncFor(w, r)
	if !ok {
		return
	}

	ctx, span := otelx.StartSyncSpan(r.Context(), "task.create", tenantID)
	defer span.End()
	r = r.WithContext(ctx)

	bucketID := req.BucketID
	if bucketID == "" && req.BucketName != "" {
		bucket, created, err := svc.GetOrCreateBucket(r.Context(), req.PlanID, req.BucketName)
		if err != nil {
			writeDomainError(w, err, "plan not found")
			return
		}
		bucketID = bucket.ID
		if created {
			h.publish(r.Context(), messagequeue.SubjectBucketCreated, messagequeue.PlanEvent{
				EventID:  uuid.NewString(),
				TenantID: tenantID,
				PlanID:   req.PlanID,
				BucketID: bucket.ID,
				Title:    bucket.Name,
				At:       time.Now().UTC(),
			})
		}
	}

	task, err := svc.CreateTask(r.Context(), remote.TaskSpec{
		PlanID:          req.PlanID,
		BucketID:        bucketID,
		Title:           req.Title,
		StartDate:       req.StartDate,
		DueDate:         req.DueDate,
		PercentComplete: req.PercentComplete,
		AssigneeIDs:     req.AssigneeIDs,
	})
	if err != nil {
		writeDomainError(w, err, "plan not found")
		return
	}

	// Details are a separately versioned sub-resource created alongside
	// the task; setting the description requires reading its etag first.
	detailsEtag := ""
	if req.Description != "" {
		details, err := svc.GetTaskDetails(r.Context(), task.ID)
		if err == nil && details != nil {
			updated, err := svc.UpdateTaskDetails(r.Context(), task.ID, details.Etag, req.Description)
			if err != nil {
				slog.ErrorContext(r.Context(), "set task description",
					"task_id", task.ID, "error", err)
			} else {
				detailsEtag = updated.Etag
			}
		}
	}

	resp := taskResponse{Task: task}
	if req.LocalID != "" {
		link := &tenant.TaskLink{
			TenantID:    tenantID,
			LocalID:     req.LocalID,
			PlanID:      task.PlanID,
			BucketID:    task.BucketID,
			TaskID:      task.ID,
			Etag:        task.Etag,
			DetailsEtag: detailsEtag,
		}
		if err := h.Store.CreateTaskLink(r.Context(), link); err != nil {
			writeDomainError(w, err, "task link not found")
			return
		}
		resp.Link = link
	}

	h.Metrics.TaskCreated(r.Context())
	h.publishTask(r.Context(), messagequeue.SubjectTaskCreated, tenantID, task, req.LocalID)
	writeJSON(w, http.StatusCreated, resp)
}

// GetTask fetches a remote task.
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	svc, _, ok := h.syncFor(w, r)
	if !ok {
		return
	}
	task, err := svc.GetTask(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

type updateTaskRequest struct {
	Etag            string   `json:"etag"`
	Title           *string  `json:"title"`
	BucketID        *string  `json:"bucketId"`
	PercentComplete *int     `json:"percentComplete"`
	StartDate       *string  `json:"startDate"`
	DueDate         *string  `json:"dueDate"`
	AssigneeIDs     []string `json:"assigneeIds"`
}

// resolveEtag returns the etag to gate a mutation on: the one supplied
// by the caller, or the most recently persisted one from the task link.
// The link, when found, is returned so handlers can refresh its etags
// after the mutation.
func (h *Handlers) resolveEtag(ctx context.Context, tenantID, taskID, given string) (string, *tenant.TaskLink) {
	link, err := h.Store.GetTaskLinkByTaskID(ctx, tenantID, taskID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			slog.ErrorContext(ctx, "load task link", "task_id", taskID, "error", err)
		}
		link = nil
	}
	if given != "" {
		return given, link
	}
	if link != nil {
		return link.Etag, link
	}
	return "", nil
}

// refreshLink persists the post-mutation etags on the task link.
func (h *Handlers) refreshLink(ctx context.Context, link *tenant.TaskLink, etag, detailsEtag string) {
	if link == nil {
		return
	}
	if err := h.Store.UpdateTaskLinkEtags(ctx, link.ID, etag, detailsEtag); err != nil {
		slog.ErrorContext(ctx, "refresh task link etags", "link_id", link.ID, "error", err)
	}
}

// UpdateTask applies a partial update gated on the task's etag. A stale
// etag returns 409; the caller must re-fetch and retry.
func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	taskID := urlParam(r, "id")
	req, ok := readJSON[updateTaskRequest](w, r)
	if !ok {
		return
	}

	svc, tenantID, ok := h.syncFor(w, r)
	if !ok {
		return
	}

	ctx, span := otelx.StartTaskSpan(r.Context(), "task.update", tenantID, taskID)
	defer span.End()
	r = r.WithContext(ctx)

	etag, link := h.resolveEtag(r.Context(), tenantID, taskID, req.Etag)
	task, err := svc.UpdateTask(r.Context(), taskID, etag, remote.TaskPatch{
		Title:           req.Title,
		BucketID:        req.BucketID,
		PercentComplete: req.PercentComplete,
		StartDate:       req.StartDate,
		DueDate:         req.DueDate,
		AssigneeIDs:     req.AssigneeIDs,
	})
	if err != nil {
		h.noteMutationError(r.Context(), err)
		writeDomainError(w, err, "task not found")
		return
	}

	h.refreshLink(r.Context(), link, task.Etag, "")
	subject := messagequeue.SubjectTaskUpdated
	h.Metrics.TaskUpdated(r.Context())
	if task.PercentComplete >= 100 {
		subject = messagequeue.SubjectTaskCompleted
		h.Metrics.TaskCompleted(r.Context())
	}
	localID := ""
	if link != nil {
		localID = link.LocalID
	}
	h.publishTask(r.Context(), subject, tenantID, task, localID)
	writeJSON(w, http.StatusOK, task)
}

// CompleteTask marks the task 100% complete.
func (h *Handlers) CompleteTask(w http.ResponseWriter, r *http.Request) {
	h.setProgress(w, r, true)
}

// StartTask marks the task in progress (50%).
func (h *Handlers) StartTask(w http.ResponseWriter, r *http.Request) {
	h.setProgress(w, r, false)
}

type progressRequest struct {
	Etag string `json:"etag"`
}

func (h *Handlers) setProgress(w http.ResponseWriter, r *http.Request, complete bool) {
	taskID := urlParam(r, "id")
	req, ok := readJSON[progressRequest](w, r)
	if !ok {
		return
	}

	svc, tenantID, ok := h.syncFor(w, r)
	if !ok {
		return
	}

	etag, link := h.resolveEtag(r.Context(), tenantID, taskID, req.Etag)
	var (
		task *remote.Task
		err  error
	)
	if complete {
		task, err = svc.MarkComplete(r.Context(), taskID, etag)
	} else {
		task, err = svc.MarkInProgress(r.Context(), taskID, etag)
	}
	if err != nil {
		h.noteMutationError(r.Context(), err)
		writeDomainError(w, err, "task not found")
		return
	}

	h.refreshLink(r.Context(), link, task.Etag, "")
	subject := messagequeue.SubjectTaskUpdated
	h.Metrics.TaskUpdated(r.Context())
	if complete {
		subject = messagequeue.SubjectTaskCompleted
		h.Metrics.TaskCompleted(r.Context())
	}
	localID := ""
	if link != nil {
		localID = link.LocalID
	}
	h.publishTask(r.Context(), subject, tenantID, task, localID)
	writeJSON(w, http.StatusOK, task)
}

// DeleteTask deletes the remote task, gated on its etag (from the
// If-Match header or the stored link), and removes the task link.
func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	taskID := urlParam(r, "id")

	svc, tenantID, ok := h.syncFor(w, r)
	if !ok {
		return
	}

	ctx, span := otelx.StartTaskSpan(r.Context(), "task.delete", tenantID, taskID)
	defer span.End()
	r = r.WithContext(ctx)

	etag, link := h.resolveEtag(r.Context(), tenantID, taskID, r.Header.Get("If-Match"))
	if err := svc.DeleteTask(r.Context(), taskID, etag); err != nil {
		h.noteMutationError(r.Context(), err)
		writeDomainError(w, err, "task not found")
		return
	}
	h.Metrics.TaskDeleted(r.Context())

	localID := ""
	if link != nil {
		localID = link.LocalID
		if err := h.Store.DeleteTaskLink(r.Context(), link.ID); err != nil {
			slog.ErrorContext(r.Context(), "delete task link", "link_id", link.ID, "error", err)
		}
	}
	h.publish(r.Context(), messagequeue.SubjectTaskDeleted, messagequeue.TaskEvent{
		EventID:  uuid.NewString(),
		TenantID: tenantID,
		TaskID:   taskID,
		LocalID:  localID,
		At:       time.Now().UTC(),
	})
	w.WriteHeader(http.StatusNoContent)
}

// GetTaskDetails fetches the task's details sub-resource.
func (h *Handlers) GetTaskDetails(w http.ResponseWriter, r *http.Request) {
	svc, _, ok := h.syncFor(w, r)
	if !ok {
		return
	}
	details, err := svc.GetTaskDetails(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	if details == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, details)
}

type updateDetailsRequest struct {
	Etag        string `json:"etag"`
	Description string `json:"description"`
}

// UpdateTaskDetails replaces the task description. Details carry their
// own etag, tracked separately from the task's.
func (h *Handlers) UpdateTaskDetails(w http.ResponseWriter, r *http.Request) {
	taskID := urlParam(r, "id")
	req, ok := readJSON[updateDetailsRequest](w, r)
	if !ok {
		return
	}

	svc, tenantID, ok := h.syncFor(w, r)
	if !ok {
		return
	}

	etag := req.Etag
	link, err := h.Store.GetTaskLinkByTaskID(r.Context(), tenantID, taskID)
	if err != nil {
		link = nil
	}
	if etag == "" && link != nil {
		etag = link.DetailsEtag
	}

	details, err := svc.UpdateTaskDetails(r.Context(), taskID, etag, req.Description)
	if err != nil {
		h.noteMutationError(r.Context(), err)
		writeDomainError(w, err, "task not found")
		return
	}

	if link != nil {
		h.refreshLink(r.Context(), link, link.Etag, details.Etag)
	}
	writeJSON(w, http.StatusOK, details)
}

// GetLink returns the persisted task link for a local work item.
func (h *Handlers) GetLink(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantIDFromContext(r.Context())
	link, err := h.Store.GetTaskLink(r.Context(), tenantID, urlParam(r, "localID"))
	if err != nil {
		writeDomainError(w, err, "task link not found")
		return
	}
	writeJSON(w, http.StatusOK, link)
}
