package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"doable/internal/config"
	"doable/internal/domain"
	"doable/internal/events"
	"doable/internal/repo"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

var validPriorities = map[string]bool{
	"none":   true,
	"low":    true,
	"medium": true,
	"high":   true,
	"urgent": true,
}

var validRoles = map[string]bool{
	"admin":     true,
	"developer": true,
	"viewer":    true,
}

func newID() string {
	return uuid.NewString()
}

// InitTeam creates a team, seeds its workflow states from config, and adds
// the acting user as an admin member.
func (e Engine) InitTeam(ctx context.Context, teamID, name, key, actorID, actorName string) (domain.Team, error) {
	if strings.TrimSpace(name) == "" {
		return domain.Team{}, errors.New("team name is required")
	}
	if strings.TrimSpace(key) == "" {
		return domain.Team{}, errors.New("team key is required")
	}
	if teamID == "" {
		teamID = newID()
	}
	now := e.now().UTC().Format(time.RFC3339)
	t := domain.Team{ID: teamID, Name: name, Key: strings.ToUpper(key), CreatedAt: now}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Team{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertTeam(ctx, tx, t); err != nil {
		return domain.Team{}, fmt.Errorf("insert team: %w", err)
	}
	states := config.Default(t.ID, t.Name, t.Key).Workflow.States
	if e.Config != nil && len(e.Config.Workflow.States) > 0 {
		states = e.Config.Workflow.States
	}
	for i, st := range states {
		ws := domain.WorkflowState{
			ID:       newID(),
			TeamID:   t.ID,
			Name:     st.Name,
			Type:     st.Type,
			Color:    st.Color,
			Position: i,
		}
		if err := e.Repo.InsertWorkflowState(ctx, tx, ws); err != nil {
			return domain.Team{}, fmt.Errorf("seed workflow state %s: %w", st.Name, err)
		}
	}
	if actorID != "" {
		m := domain.Member{
			TeamID:   t.ID,
			UserID:   actorID,
			UserName: actorName,
			Role:     "admin",
			JoinedAt: now,
		}
		if m.UserName == "" {
			m.UserName = actorID
		}
		if err := e.Repo.InsertMember(ctx, tx, m); err != nil {
			return domain.Team{}, fmt.Errorf("insert member: %w", err)
		}
	}
	if err := e.Events.Append(ctx, tx, "team.created", t.ID, "team", t.ID, actorID, events.EventPayload{"name": t.Name, "key": t.Key}); err != nil {
		return domain.Team{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Team{}, err
	}
	return t, nil
}

// ProjectCreateOptions are parameters for creating a project.
type ProjectCreateOptions struct {
	ID          string
	TeamID      string
	Name        string
	Key         string
	Description string
	Color       string
	Status      string
	ActorID     string
}

func (e Engine) CreateProject(ctx context.Context, opts ProjectCreateOptions) (domain.Project, error) {
	if strings.TrimSpace(opts.Name) == "" {
		return domain.Project{}, errors.New("project name is required")
	}
	if strings.TrimSpace(opts.Key) == "" {
		return domain.Project{}, errors.New("project key is required")
	}
	if _, err := e.Repo.GetTeam(ctx, opts.TeamID); err != nil {
		return domain.Project{}, err
	}
	if opts.Color == "" {
		opts.Color = e.Config.ProjectColor()
	}
	if opts.Status == "" {
		opts.Status = e.Config.ProjectStatus()
	}
	now := e.now().UTC().Format(time.RFC3339)
	p := domain.Project{
		ID:          opts.ID,
		TeamID:      opts.TeamID,
		Name:        opts.Name,
		Key:         strings.ToLower(opts.Key),
		Description: opts.Description,
		Color:       opts.Color,
		Status:      opts.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if p.ID == "" {
		p.ID = newID()
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertProject(ctx, tx, p); err != nil {
		return domain.Project{}, fmt.Errorf("insert project: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "project.created", p.TeamID, "project", p.ID, opts.ActorID, events.EventPayload{"name": p.Name, "key": p.Key, "status": p.Status}); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

// ProjectUpdateOptions carries optional field updates; nil means unchanged.
type ProjectUpdateOptions struct {
	ProjectID   string
	Name        *string
	Key         *string
	Description *string
	Color       *string
	Status      *string
	ActorID     string
}

var projectStatusTransitions = map[string][]string{
	"planned":   {"active", "canceled"},
	"active":    {"paused", "completed", "canceled"},
	"paused":    {"active", "canceled"},
	"completed": {},
	"canceled":  {},
}

func allowedProjectTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, s := range projectStatusTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (e Engine) UpdateProject(ctx context.Context, opts ProjectUpdateOptions) (domain.Project, error) {
	p, err := e.Repo.GetProject(ctx, opts.ProjectID)
	if err != nil {
		return domain.Project{}, err
	}
	changed := events.EventPayload{}
	if opts.Name != nil && *opts.Name != "" {
		p.Name = *opts.Name
		changed["name"] = p.Name
	}
	if opts.Key != nil && *opts.Key != "" {
		p.Key = strings.ToLower(*opts.Key)
		changed["key"] = p.Key
	}
	if opts.Description != nil {
		p.Description = *opts.Description
		changed["description"] = p.Description
	}
	if opts.Color != nil && *opts.Color != "" {
		p.Color = *opts.Color
		changed["color"] = p.Color
	}
	if opts.Status != nil && *opts.Status != "" {
		if !allowedProjectTransition(p.Status, *opts.Status) {
			return domain.Project{}, fmt.Errorf("cannot move project from %s to %s", p.Status, *opts.Status)
		}
		p.Status = *opts.Status
		changed["status"] = p.Status
	}
	if len(changed) == 0 {
		return p, nil
	}
	p.UpdatedAt = e.now().UTC().Format(time.RFC3339)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateProject(ctx, tx, p); err != nil {
		return domain.Project{}, err
	}
	if err := e.Events.Append(ctx, tx, "project.updated", p.TeamID, "project", p.ID, opts.ActorID, changed); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

func (e Engine) DeleteProject(ctx context.Context, projectID, actorID string) error {
	p, err := e.Repo.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	issues, err := e.Repo.ListIssues(ctx, repo.IssueFilters{ProjectID: projectID, Limit: 1})
	if err != nil {
		return err
	}
	if len(issues) > 0 {
		return fmt.Errorf("project %s still has issues", p.Key)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Repo.DeleteProject(ctx, tx, projectID); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "project.deleted", p.TeamID, "project", p.ID, actorID, events.EventPayload{"name": p.Name}); err != nil {
		return err
	}
	return tx.Commit()
}

// IssueCreateOptions are parameters for creating an issue.
type IssueCreateOptions struct {
	ID          string
	TeamID      string
	ProjectID   string
	Title       string
	Description string
	StateID     string
	Priority    string
	AssigneeID  string
	LabelIDs    []string
	DueDate     string
	ActorID     string
}

func (e Engine) CreateIssue(ctx context.Context, opts IssueCreateOptions) (domain.Issue, error) {
	if strings.TrimSpace(opts.Title) == "" {
		return domain.Issue{}, errors.New("title is required")
	}
	if !validPriorities[opts.Priority] {
		return domain.Issue{}, fmt.Errorf("invalid priority %q", opts.Priority)
	}
	p, err := e.Repo.GetProject(ctx, opts.ProjectID)
	if err != nil {
		return domain.Issue{}, err
	}
	if p.TeamID != opts.TeamID {
		return domain.Issue{}, fmt.Errorf("project %s not in team", p.Key)
	}
	state, err := e.Repo.GetWorkflowState(ctx, opts.StateID)
	if err != nil {
		return domain.Issue{}, err
	}
	if state.TeamID != opts.TeamID {
		return domain.Issue{}, fmt.Errorf("workflow state %s not in team", state.Name)
	}
	if opts.AssigneeID != "" {
		if _, err := e.Repo.GetMember(ctx, opts.TeamID, opts.AssigneeID); err != nil {
			return domain.Issue{}, fmt.Errorf("assignee %s: %w", opts.AssigneeID, err)
		}
	}
	now := e.now().UTC().Format(time.RFC3339)
	i := domain.Issue{
		ID:          opts.ID,
		TeamID:      opts.TeamID,
		ProjectID:   opts.ProjectID,
		Title:       opts.Title,
		Description: opts.Description,
		StateID:     opts.StateID,
		Priority:    opts.Priority,
		AssigneeID:  optionalString(opts.AssigneeID),
		DueDate:     optionalString(opts.DueDate),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if i.ID == "" {
		i.ID = newID()
	}
	if state.Type == "completed" {
		i.CompletedAt = &now
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Issue{}, err
	}
	defer tx.Rollback()

	number, err := e.Repo.NextIssueNumber(ctx, tx, opts.TeamID)
	if err != nil {
		return domain.Issue{}, err
	}
	i.Number = number
	if err := e.Repo.InsertIssue(ctx, tx, i); err != nil {
		return domain.Issue{}, fmt.Errorf("insert issue: %w", err)
	}
	if len(opts.LabelIDs) > 0 {
		if err := e.Repo.AddIssueLabels(ctx, tx, i.ID, opts.LabelIDs); err != nil {
			return domain.Issue{}, err
		}
		i.LabelIDs = opts.LabelIDs
	}
	if err := e.Events.Append(ctx, tx, "issue.created", i.TeamID, "issue", i.ID, opts.ActorID, events.EventPayload{"title": i.Title, "number": i.Number, "project_id": i.ProjectID}); err != nil {
		return domain.Issue{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Issue{}, err
	}
	return i, nil
}

// IssueUpdateOptions carries optional field updates; nil means unchanged.
// ClearAssignee removes the assignee regardless of AssigneeID.
type IssueUpdateOptions struct {
	IssueID       string
	ProjectID     *string
	Title         *string
	Description   *string
	StateID       *string
	Priority      *string
	AssigneeID    *string
	ClearAssignee bool
	DueDate       *string
	AddLabels     []string
	RemoveLabels  []string
	ActorID       string
}

func (e Engine) UpdateIssue(ctx context.Context, opts IssueUpdateOptions) (domain.Issue, error) {
	i, err := e.Repo.GetIssue(ctx, opts.IssueID)
	if err != nil {
		return domain.Issue{}, err
	}
	changed := events.EventPayload{}
	if opts.ProjectID != nil && *opts.ProjectID != "" {
		p, err := e.Repo.GetProject(ctx, *opts.ProjectID)
		if err != nil {
			return domain.Issue{}, err
		}
		if p.TeamID != i.TeamID {
			return domain.Issue{}, fmt.Errorf("project %s not in team", p.Key)
		}
		i.ProjectID = p.ID
		changed["project_id"] = p.ID
	}
	if opts.Title != nil && *opts.Title != "" {
		i.Title = *opts.Title
		changed["title"] = i.Title
	}
	if opts.Description != nil {
		i.Description = *opts.Description
		changed["description"] = i.Description
	}
	if opts.StateID != nil && *opts.StateID != "" {
		state, err := e.Repo.GetWorkflowState(ctx, *opts.StateID)
		if err != nil {
			return domain.Issue{}, err
		}
		if state.TeamID != i.TeamID {
			return domain.Issue{}, fmt.Errorf("workflow state %s not in team", state.Name)
		}
		i.StateID = state.ID
		changed["state_id"] = state.ID
		now := e.now().UTC().Format(time.RFC3339)
		if state.Type == "completed" {
			i.CompletedAt = &now
		} else {
			i.CompletedAt = nil
		}
	}
	if opts.Priority != nil && *opts.Priority != "" {
		if !validPriorities[*opts.Priority] {
			return domain.Issue{}, fmt.Errorf("invalid priority %q", *opts.Priority)
		}
		i.Priority = *opts.Priority
		changed["priority"] = i.Priority
	}
	if opts.ClearAssignee {
		i.AssigneeID = nil
		changed["assignee_id"] = nil
	} else if opts.AssigneeID != nil && *opts.AssigneeID != "" {
		if _, err := e.Repo.GetMember(ctx, i.TeamID, *opts.AssigneeID); err != nil {
			return domain.Issue{}, fmt.Errorf("assignee %s: %w", *opts.AssigneeID, err)
		}
		i.AssigneeID = opts.AssigneeID
		changed["assignee_id"] = *opts.AssigneeID
	}
	if opts.DueDate != nil {
		i.DueDate = optionalString(*opts.DueDate)
		changed["due_date"] = *opts.DueDate
	}
	if len(changed) == 0 && len(opts.AddLabels) == 0 && len(opts.RemoveLabels) == 0 {
		return i, nil
	}
	i.UpdatedAt = e.now().UTC().Format(time.RFC3339)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Issue{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateIssue(ctx, tx, i); err != nil {
		return domain.Issue{}, err
	}
	if len(opts.AddLabels) > 0 {
		if err := e.Repo.AddIssueLabels(ctx, tx, i.ID, opts.AddLabels); err != nil {
			return domain.Issue{}, err
		}
		changed["labels_added"] = opts.AddLabels
	}
	if len(opts.RemoveLabels) > 0 {
		if err := e.Repo.RemoveIssueLabels(ctx, tx, i.ID, opts.RemoveLabels); err != nil {
			return domain.Issue{}, err
		}
		changed["labels_removed"] = opts.RemoveLabels
	}
	if err := e.Events.Append(ctx, tx, "issue.updated", i.TeamID, "issue", i.ID, opts.ActorID, changed); err != nil {
		return domain.Issue{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Issue{}, err
	}
	labels, err := e.Repo.ListIssueLabels(ctx, i.ID)
	if err != nil {
		return domain.Issue{}, err
	}
	i.LabelIDs = labels
	return i, nil
}

func (e Engine) DeleteIssue(ctx context.Context, issueID, actorID string) error {
	i, err := e.Repo.GetIssue(ctx, issueID)
	if err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Repo.DeleteIssue(ctx, tx, issueID); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "issue.deleted", i.TeamID, "issue", i.ID, actorID, events.EventPayload{"title": i.Title, "number": i.Number}); err != nil {
		return err
	}
	return tx.Commit()
}

// WorkflowStateOptions are parameters for creating or updating a workflow state.
type WorkflowStateOptions struct {
	ID       string
	TeamID   string
	Name     string
	Type     string
	Color    string
	Position int
	ActorID  string
}

var validStateTypes = map[string]bool{
	"unstarted": true,
	"started":   true,
	"completed": true,
	"canceled":  true,
}

func (e Engine) CreateWorkflowState(ctx context.Context, opts WorkflowStateOptions) (domain.WorkflowState, error) {
	if strings.TrimSpace(opts.Name) == "" {
		return domain.WorkflowState{}, errors.New("state name is required")
	}
	if !validStateTypes[opts.Type] {
		return domain.WorkflowState{}, fmt.Errorf("invalid state type %q", opts.Type)
	}
	if _, err := e.Repo.GetTeam(ctx, opts.TeamID); err != nil {
		return domain.WorkflowState{}, err
	}
	s := domain.WorkflowState{
		ID:       opts.ID,
		TeamID:   opts.TeamID,
		Name:     opts.Name,
		Type:     opts.Type,
		Color:    opts.Color,
		Position: opts.Position,
	}
	if s.ID == "" {
		s.ID = newID()
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.WorkflowState{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertWorkflowState(ctx, tx, s); err != nil {
		return domain.WorkflowState{}, err
	}
	if err := e.Events.Append(ctx, tx, "workflow_state.created", s.TeamID, "workflow_state", s.ID, opts.ActorID, events.EventPayload{"name": s.Name, "type": s.Type}); err != nil {
		return domain.WorkflowState{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.WorkflowState{}, err
	}
	return s, nil
}

func (e Engine) DeleteWorkflowState(ctx context.Context, stateID, actorID string) error {
	s, err := e.Repo.GetWorkflowState(ctx, stateID)
	if err != nil {
		return err
	}
	issues, err := e.Repo.ListIssues(ctx, repo.IssueFilters{StateID: stateID, Limit: 1})
	if err != nil {
		return err
	}
	if len(issues) > 0 {
		return fmt.Errorf("workflow state %s still has issues", s.Name)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Repo.DeleteWorkflowState(ctx, tx, stateID); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "workflow_state.deleted", s.TeamID, "workflow_state", s.ID, actorID, events.EventPayload{"name": s.Name}); err != nil {
		return err
	}
	return tx.Commit()
}

func (e Engine) CreateLabel(ctx context.Context, teamID, name, color, actorID string) (domain.Label, error) {
	if strings.TrimSpace(name) == "" {
		return domain.Label{}, errors.New("label name is required")
	}
	if _, err := e.Repo.GetTeam(ctx, teamID); err != nil {
		return domain.Label{}, err
	}
	l := domain.Label{ID: newID(), TeamID: teamID, Name: name, Color: color}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Label{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertLabel(ctx, tx, l); err != nil {
		return domain.Label{}, err
	}
	if err := e.Events.Append(ctx, tx, "label.created", l.TeamID, "label", l.ID, actorID, events.EventPayload{"name": l.Name}); err != nil {
		return domain.Label{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Label{}, err
	}
	return l, nil
}

func (e Engine) DeleteLabel(ctx context.Context, labelID, actorID string) error {
	l, err := e.Repo.GetLabel(ctx, labelID)
	if err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Repo.DeleteLabel(ctx, tx, labelID); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "label.deleted", l.TeamID, "label", l.ID, actorID, events.EventPayload{"name": l.Name}); err != nil {
		return err
	}
	return tx.Commit()
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
