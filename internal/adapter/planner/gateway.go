package planner

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/bridgelabs/planbridge/internal/domain/remote"
)

// assignmentType is the discriminator the remote API requires on every
// task assignment entry.
const assignmentType = "#microsoft.graph.plannerAssignment"

// orderHintEnd is the opaque "place at end" marker. Stable mid-list
// insertion would need the documented order-hint generation algorithm;
// nothing here requires it.
const orderHintEnd = " !"

// --- Groups and directory ---

func (c *Client) ListGroups(ctx context.Context) ([]remote.Group, error) {
	data, err := c.get(ctx, "/groups?$select=id,displayName,description,mail")
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return decodeList[remote.Group](data)
}

func (c *Client) GetGroup(ctx context.Context, groupID string) (*remote.Group, error) {
	data, err := c.get(ctx, "/groups/"+url.PathEscape(groupID)+"?$select=id,displayName,description,mail")
	if err != nil {
		return nil, fmt.Errorf("get group %s: %w", groupID, err)
	}
	return decodeObject[remote.Group](data)
}

func (c *Client) ListGroupsForUser(ctx context.Context, userID string) ([]remote.Group, error) {
	path := "/users/" + url.PathEscape(userID) + "/memberOf/microsoft.graph.group?$select=id,displayName,description,mail"
	data, err := c.get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("list groups for user %s: %w", userID, err)
	}
	return decodeList[remote.Group](data)
}

func (c *Client) SearchGroups(ctx context.Context, namePrefix string) ([]remote.Group, error) {
	filter := fmt.Sprintf("startswith(displayName,'%s')", escapeFilterValue(namePrefix))
	path := "/groups?$select=id,displayName,description,mail&$filter=" + url.QueryEscape(filter)
	data, err := c.get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("search groups: %w", err)
	}
	return decodeList[remote.Group](data)
}

func (c *Client) FindUserByEmail(ctx context.Context, email string) (*remote.User, error) {
	esc := escapeFilterValue(email)
	filter := fmt.Sprintf("mail eq '%s' or userPrincipalName eq '%s'", esc, esc)
	path := "/users?$select=id,displayName,mail,userPrincipalName&$filter=" + url.QueryEscape(filter)
	data, err := c.get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	users, err := decodeList[remote.User](data)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

func (c *Client) GetUser(ctx context.Context, userID string) (*remote.User, error) {
	data, err := c.get(ctx, "/users/"+url.PathEscape(userID)+"?$select=id,displayName,mail,userPrincipalName")
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", userID, err)
	}
	return decodeObject[remote.User](data)
}

// --- Plans ---

func (c *Client) ListPlans(ctx context.Context, groupID string) ([]remote.Plan, error) {
	data, err := c.get(ctx, "/groups/"+url.PathEscape(groupID)+"/planner/plans?$select=id,title,owner,createdDateTime")
	if err != nil {
		return nil, fmt.Errorf("list plans for group %s: %w", groupID, err)
	}
	return decodeList[remote.Plan](data)
}

func (c *Client) CreatePlan(ctx context.Context, groupID, title string) (*remote.Plan, error) {
	payload := map[string]string{
		"owner": groupID,
		"title": title,
	}
	data, err := c.post(ctx, "/planner/plans", payload)
	if err != nil {
		return nil, fmt.Errorf("create plan %q: %w", title, err)
	}
	return decodeObject[remote.Plan](data)
}

// --- Buckets ---

func (c *Client) ListBuckets(ctx context.Context, planID string) ([]remote.Bucket, error) {
	data, err := c.get(ctx, "/planner/plans/"+url.PathEscape(planID)+"/buckets?$select=id,name,planId,orderHint")
	if err != nil {
		return nil, fmt.Errorf("list buckets for plan %s: %w", planID, err)
	}
	return decodeList[remote.Bucket](data)
}

func (c *Client) CreateBucket(ctx context.Context, planID, name, orderHint string) (*remote.Bucket, error) {
	if orderHint == "" {
		orderHint = orderHintEnd
	}
	payload := map[string]string{
		"name":      name,
		"planId":    planID,
		"orderHint": orderHint,
	}
	data, err := c.post(ctx, "/planner/buckets", payload)
	if err != nil {
		return nil, fmt.Errorf("create bucket %q: %w", name, err)
	}
	return decodeObject[remote.Bucket](data)
}

// --- Tasks ---

const taskSelect = "$select=id,planId,bucketId,title,percentComplete,startDateTime,dueDateTime,assignments,orderHint"

func (c *Client) ListTasks(ctx context.Context, planID string) ([]remote.Task, error) {
	data, err := c.get(ctx, "/planner/plans/"+url.PathEscape(planID)+"/tasks?"+taskSelect)
	if err != nil {
		return nil, fmt.Errorf("list tasks for plan %s: %w", planID, err)
	}
	return decodeList[remote.Task](data)
}

func (c *Client) GetTask(ctx context.Context, taskID string) (*remote.Task, error) {
	data, err := c.get(ctx, "/planner/tasks/"+url.PathEscape(taskID))
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", taskID, err)
	}
	return decodeObject[remote.Task](data)
}

func (c *Client) CreateTask(ctx context.Context, spec remote.TaskSpec) (*remote.Task, error) {
	payload := map[string]any{
		"planId": spec.PlanID,
		"title":  spec.Title,
	}
	if spec.BucketID != "" {
		payload["bucketId"] = spec.BucketID
	}
	if spec.StartDate != "" {
		payload["startDateTime"] = spec.StartDate
	}
	if spec.DueDate != "" {
		payload["dueDateTime"] = spec.DueDate
	}
	if spec.PercentComplete != 0 {
		payload["percentComplete"] = spec.PercentComplete
	}
	if len(spec.AssigneeIDs) > 0 {
		payload["assignments"] = assignmentMap(spec.AssigneeIDs)
	}

	data, err := c.post(ctx, "/planner/tasks", payload)
	if err != nil {
		return nil, fmt.Errorf("create task %q: %w", spec.Title, err)
	}
	return decodeObject[remote.Task](data)
}

// UpdateTask sends only the fields present in patch. The etag must be
// the one most recently observed for the task; the remote service
// rejects stale values and that rejection surfaces as domain.ErrConflict.
func (c *Client) UpdateTask(ctx context.Context, taskID, etag string, patch remote.TaskPatch) (*remote.Task, error) {
	payload := map[string]any{}
	if patch.Title != nil {
		payload["title"] = *patch.Title
	}
	if patch.BucketID != nil {
		payload["bucketId"] = *patch.BucketID
	}
	if patch.PercentComplete != nil {
		payload["percentComplete"] = *patch.PercentComplete
	}
	if patch.StartDate != nil {
		payload["startDateTime"] = *patch.StartDate
	}
	if patch.DueDate != nil {
		payload["dueDateTime"] = *patch.DueDate
	}
	if patch.AssigneeIDs != nil {
		payload["assignments"] = assignmentMap(patch.AssigneeIDs)
	}

	data, err := c.patch(ctx, "/planner/tasks/"+url.PathEscape(taskID), etag, payload)
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", taskID, err)
	}
	return decodeObject[remote.Task](data)
}

func (c *Client) DeleteTask(ctx context.Context, taskID, etag string) error {
	if err := c.delete(ctx, "/planner/tasks/"+url.PathEscape(taskID), etag); err != nil {
		return fmt.Errorf("delete task %s: %w", taskID, err)
	}
	return nil
}

// --- Task details ---

func (c *Client) GetTaskDetails(ctx context.Context, taskID string) (*remote.TaskDetails, error) {
	data, err := c.get(ctx, "/planner/tasks/"+url.PathEscape(taskID)+"/details")
	if err != nil {
		return nil, fmt.Errorf("get task details %s: %w", taskID, err)
	}
	return decodeObject[remote.TaskDetails](data)
}

func (c *Client) UpdateTaskDetails(ctx context.Context, taskID, etag, description string) (*remote.TaskDetails, error) {
	payload := map[string]string{"description": description}
	data, err := c.patch(ctx, "/planner/tasks/"+url.PathEscape(taskID)+"/details", etag, payload)
	if err != nil {
		return nil, fmt.Errorf("update task details %s: %w", taskID, err)
	}
	return decodeObject[remote.TaskDetails](data)
}

// --- Channels and tabs ---

func (c *Client) ListChannels(ctx context.Context, teamID string) ([]remote.Channel, error) {
	data, err := c.get(ctx, "/teams/"+url.PathEscape(teamID)+"/channels?$select=id,displayName")
	if err != nil {
		return nil, fmt.Errorf("list channels for team %s: %w", teamID, err)
	}
	return decodeList[remote.Channel](data)
}

func (c *Client) CreateTab(ctx context.Context, teamID, channelID, planID, displayName string) (string, error) {
	payload := map[string]any{
		"displayName":         displayName,
		"teamsApp@odata.bind": "https://graph.microsoft.com/v1.0/appCatalogs/teamsApps/com.microsoft.teamspace.tab.planner",
		"configuration": map[string]string{
			"entityId":   planID,
			"contentUrl": fmt.Sprintf("https://tasks.office.com/planner/%s", planID),
		},
	}
	path := "/teams/" + url.PathEscape(teamID) + "/channels/" + url.PathEscape(channelID) + "/tabs"
	data, err := c.post(ctx, path, payload)
	if err != nil {
		return "", fmt.Errorf("create tab for plan %s: %w", planID, err)
	}
	tab, err := decodeObject[struct {
		ID string `json:"id"`
	}](data)
	if err != nil {
		return "", err
	}
	return tab.ID, nil
}

// assignmentMap expresses assignees the way the remote API expects:
// a map keyed by user id with an ordering hint and a type discriminator.
func assignmentMap(ids []string) map[string]remote.Assignment {
	m := make(map[string]remote.Assignment, len(ids))
	for _, id := range ids {
		m[id] = remote.Assignment{Type: assignmentType, OrderHint: orderHintEnd}
	}
	return m
}

// escapeFilterValue escapes user-supplied input embedded in an OData
// filter expression. Single quotes terminate a string literal there, so
// unescaped input could rewrite the filter.
func escapeFilterValue(v string) string {
	return strings.ReplaceAll(v, "'", "''")
}
