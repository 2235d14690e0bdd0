package server

import (
	"encoding/json"

	"doable/internal/domain"
)

// Request payloads

type CreateTeamRequest struct {
	ID        *string `json:"id,omitempty"`
	Name      string  `json:"name"`
	Key       string  `json:"key"`
	ActorName string  `json:"actor_name,omitempty"`
}

type CreateProjectRequest struct {
	ID          *string `json:"id,omitempty"`
	Name        string  `json:"name"`
	Key         string  `json:"key"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
	Status      *string `json:"status,omitempty" enum:"planned,active,paused,completed,canceled"`
}

type UpdateProjectRequest struct {
	Name        *string `json:"name,omitempty"`
	Key         *string `json:"key,omitempty"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
	Status      *string `json:"status,omitempty" enum:"planned,active,paused,completed,canceled"`
}

type CreateIssueRequest struct {
	ID          *string  `json:"id,omitempty"`
	ProjectID   string   `json:"project_id"`
	Title       string   `json:"title"`
	Description *string  `json:"description,omitempty"`
	StateID     string   `json:"state_id"`
	Priority    string   `json:"priority" enum:"none,low,medium,high,urgent"`
	AssigneeID  *string  `json:"assignee_id,omitempty"`
	LabelIDs    []string `json:"label_ids,omitempty"`
	DueDate     *string  `json:"due_date,omitempty" format:"date"`
}

type UpdateIssueRequest struct {
	ProjectID     *string  `json:"project_id,omitempty"`
	Title         *string  `json:"title,omitempty"`
	Description   *string  `json:"description,omitempty"`
	StateID       *string  `json:"state_id,omitempty"`
	Priority      *string  `json:"priority,omitempty" enum:"none,low,medium,high,urgent"`
	AssigneeID    *string  `json:"assignee_id,omitempty"`
	ClearAssignee bool     `json:"clear_assignee,omitempty"`
	DueDate       *string  `json:"due_date,omitempty" format:"date"`
	AddLabels     []string `json:"add_labels,omitempty"`
	RemoveLabels  []string `json:"remove_labels,omitempty"`
}

type CreateWorkflowStateRequest struct {
	ID       *string `json:"id,omitempty"`
	Name     string  `json:"name"`
	Type     string  `json:"type" enum:"unstarted,started,completed,canceled"`
	Color    *string `json:"color,omitempty"`
	Position int     `json:"position,omitempty"`
}

type CreateLabelRequest struct {
	Name  string  `json:"name"`
	Color *string `json:"color,omitempty"`
}

type AddMemberRequest struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty" enum:"admin,developer,viewer"`
}

type UpdateMemberRoleRequest struct {
	Role string `json:"role" enum:"admin,developer,viewer"`
}

type CreateInvitationRequest struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty" enum:"admin,developer,viewer"`
}

type AcceptInvitationRequest struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
}

// ChatToolRequest is one tool call emitted by the assistant, relayed by
// the chat frontend. Arguments carries the raw model-produced values;
// absent, JSON null, and the literal strings "null"/"undefined" are all
// treated as not provided.
type ChatToolRequest struct {
	Tool      string         `json:"tool" enum:"create_issue,update_issue,delete_issue,create_project,update_project,delete_project,invite_member,remove_member,revoke_invitation"`
	Arguments map[string]any `json:"arguments,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// Response payloads

type TeamResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Key       string `json:"key"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type ProjectResponse struct {
	ID          string `json:"id"`
	TeamID      string `json:"team_id"`
	Name        string `json:"name"`
	Key         string `json:"key"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
	Status      string `json:"status" enum:"planned,active,paused,completed,canceled"`
	CreatedAt   string `json:"created_at" format:"date-time"`
	UpdatedAt   string `json:"updated_at" format:"date-time"`
}

type IssueResponse struct {
	ID          string   `json:"id"`
	TeamID      string   `json:"team_id"`
	ProjectID   string   `json:"project_id"`
	Number      int      `json:"number"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	StateID     string   `json:"state_id"`
	Priority    string   `json:"priority" enum:"none,low,medium,high,urgent"`
	AssigneeID  *string  `json:"assignee_id,omitempty"`
	LabelIDs    []string `json:"label_ids"`
	DueDate     *string  `json:"due_date,omitempty" format:"date"`
	CreatedAt   string   `json:"created_at" format:"date-time"`
	UpdatedAt   string   `json:"updated_at" format:"date-time"`
	CompletedAt *string  `json:"completed_at,omitempty" format:"date-time"`
}

type WorkflowStateResponse struct {
	ID       string `json:"id"`
	TeamID   string `json:"team_id"`
	Name     string `json:"name"`
	Type     string `json:"type" enum:"unstarted,started,completed,canceled"`
	Color    string `json:"color,omitempty"`
	Position int    `json:"position"`
}

type LabelResponse struct {
	ID     string `json:"id"`
	TeamID string `json:"team_id"`
	Name   string `json:"name"`
	Color  string `json:"color,omitempty"`
}

type MemberResponse struct {
	TeamID   string `json:"team_id"`
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role" enum:"admin,developer,viewer"`
	JoinedAt string `json:"joined_at" format:"date-time"`
}

type InvitationResponse struct {
	ID        string `json:"id"`
	TeamID    string `json:"team_id"`
	Email     string `json:"email"`
	Role      string `json:"role" enum:"admin,developer,viewer"`
	Status    string `json:"status" enum:"pending,accepted,revoked,expired"`
	InvitedBy string `json:"invited_by"`
	CreatedAt string `json:"created_at" format:"date-time"`
	ExpiresAt string `json:"expires_at" format:"date-time"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	TeamID     string         `json:"team_id,omitempty"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

// ChatResponse reports the outcome of one chat tool call. OK is false
// when the call needs a clarification; Message then holds the question
// to relay verbatim to the user.
type ChatResponse struct {
	OK       bool   `json:"ok"`
	Message  string `json:"message"`
	EntityID string `json:"entity_id,omitempty"`
	Display  string `json:"display,omitempty"`
}

type paginatedProjects struct {
	Items      []ProjectResponse `json:"items"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

type paginatedIssues struct {
	Items      []IssueResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// Conversion helpers

func teamResponse(t domain.Team) TeamResponse {
	return TeamResponse(t)
}

func projectResponse(p domain.Project) ProjectResponse {
	return ProjectResponse(p)
}

func issueResponse(i domain.Issue) IssueResponse {
	return IssueResponse{
		ID:          i.ID,
		TeamID:      i.TeamID,
		ProjectID:   i.ProjectID,
		Number:      i.Number,
		Title:       i.Title,
		Description: i.Description,
		StateID:     i.StateID,
		Priority:    i.Priority,
		AssigneeID:  i.AssigneeID,
		LabelIDs:    nonNilSlice(i.LabelIDs),
		DueDate:     i.DueDate,
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
		CompletedAt: i.CompletedAt,
	}
}

func stateResponse(s domain.WorkflowState) WorkflowStateResponse {
	return WorkflowStateResponse(s)
}

func labelResponse(l domain.Label) LabelResponse {
	return LabelResponse(l)
}

func memberResponse(m domain.Member) MemberResponse {
	return MemberResponse(m)
}

func invitationResponse(inv domain.Invitation) InvitationResponse {
	return InvitationResponse(inv)
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		TeamID:     e.TeamID,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		ActorID:    e.ActorID,
		Payload:    decodeJSONMap(e.Payload),
	}
}

// JSON helpers

func decodeJSONMap(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var tmp any
	if err := json.Unmarshal([]byte(raw), &tmp); err != nil {
		return nil
	}
	if obj, ok := tmp.(map[string]any); ok {
		return obj
	}
	return nil
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
