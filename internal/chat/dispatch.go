package chat

import (
	"context"
	"errors"
	"fmt"

	"doable/internal/domain"
	"doable/internal/engine"
	"doable/internal/repo"
)

// Dispatcher executes one store mutation per validated command. It never
// retries; a store failure comes back as a StoreError carrying the store's
// message. Identifiers in commands are already resolved, never raw names.
type Dispatcher struct {
	Engine   engine.Engine
	Snapshot Snapshot
	ActorID  string
}

// Result echoes enough of the mutated entity to render a confirmation.
type Result struct {
	EntityID string
	Display  string
	Message  string
}

func (d Dispatcher) issueDisplay(i domain.Issue) string {
	return fmt.Sprintf("%s-%d", d.Snapshot.TeamKey, i.Number)
}

func (d Dispatcher) CreateIssue(ctx context.Context, cmd CreateIssueCommand) (Result, error) {
	opts := engine.IssueCreateOptions{
		TeamID:      d.Snapshot.TeamID,
		ProjectID:   cmd.ProjectID,
		Title:       cmd.Title,
		Description: cmd.Description,
		StateID:     cmd.StateID,
		Priority:    cmd.Priority,
		LabelIDs:    cmd.LabelIDs,
		DueDate:     cmd.DueDate,
		ActorID:     d.ActorID,
	}
	if cmd.AssigneeID != nil {
		opts.AssigneeID = *cmd.AssigneeID
	}
	issue, err := d.Engine.CreateIssue(ctx, opts)
	if err != nil {
		return Result{}, &StoreError{Op: "create issue", Err: err}
	}
	display := d.issueDisplay(issue)
	return Result{
		EntityID: issue.ID,
		Display:  display,
		Message:  fmt.Sprintf("Created issue %s: %s", display, issue.Title),
	}, nil
}

func (d Dispatcher) UpdateIssue(ctx context.Context, cmd UpdateIssueCommand) (Result, error) {
	target, err := d.locateIssue(ctx, cmd.Locator)
	if err != nil {
		return Result{}, err
	}
	opts := engine.IssueUpdateOptions{
		IssueID:      target.ID,
		Title:        cmd.NewTitle,
		Description:  cmd.Description,
		StateID:      cmd.StateID,
		Priority:     cmd.Priority,
		ProjectID:    cmd.ProjectID,
		DueDate:      cmd.DueDate,
		AddLabels:    cmd.AddLabelIDs,
		RemoveLabels: cmd.RemoveLabelIDs,
		ActorID:      d.ActorID,
	}
	if cmd.SetAssignee {
		if cmd.AssigneeID == nil {
			opts.ClearAssignee = true
		} else {
			opts.AssigneeID = cmd.AssigneeID
		}
	}
	issue, err := d.Engine.UpdateIssue(ctx, opts)
	if err != nil {
		return Result{}, &StoreError{Op: "update issue", Err: err}
	}
	display := d.issueDisplay(issue)
	return Result{
		EntityID: issue.ID,
		Display:  display,
		Message:  fmt.Sprintf("Updated issue %s: %s", display, issue.Title),
	}, nil
}

func (d Dispatcher) DeleteIssue(ctx context.Context, cmd DeleteIssueCommand) (Result, error) {
	target, err := d.locateIssue(ctx, cmd.Locator)
	if err != nil {
		return Result{}, err
	}
	if err := d.Engine.DeleteIssue(ctx, target.ID, d.ActorID); err != nil {
		return Result{}, &StoreError{Op: "delete issue", Err: err}
	}
	display := d.issueDisplay(target)
	return Result{
		EntityID: target.ID,
		Display:  display,
		Message:  fmt.Sprintf("Deleted issue %s: %s", display, target.Title),
	}, nil
}

func (d Dispatcher) CreateProject(ctx context.Context, cmd CreateProjectCommand) (Result, error) {
	p, err := d.Engine.CreateProject(ctx, engine.ProjectCreateOptions{
		TeamID:      d.Snapshot.TeamID,
		Name:        cmd.Name,
		Key:         cmd.Key,
		Description: cmd.Description,
		Color:       cmd.Color,
		Status:      cmd.Status,
		ActorID:     d.ActorID,
	})
	if err != nil {
		return Result{}, &StoreError{Op: "create project", Err: err}
	}
	return Result{
		EntityID: p.ID,
		Display:  p.Key,
		Message:  fmt.Sprintf("Created project %s (%s)", p.Name, p.Key),
	}, nil
}

func (d Dispatcher) UpdateProject(ctx context.Context, cmd UpdateProjectCommand) (Result, error) {
	target, err := d.locateProject(cmd.Locator)
	if err != nil {
		return Result{}, err
	}
	p, err := d.Engine.UpdateProject(ctx, engine.ProjectUpdateOptions{
		ProjectID:   target.ID,
		Name:        cmd.NewName,
		Key:         cmd.Key,
		Description: cmd.Description,
		Color:       cmd.Color,
		Status:      cmd.Status,
		ActorID:     d.ActorID,
	})
	if err != nil {
		return Result{}, &StoreError{Op: "update project", Err: err}
	}
	return Result{
		EntityID: p.ID,
		Display:  p.Key,
		Message:  fmt.Sprintf("Updated project %s (%s)", p.Name, p.Key),
	}, nil
}

func (d Dispatcher) DeleteProject(ctx context.Context, cmd DeleteProjectCommand) (Result, error) {
	target, err := d.locateProject(cmd.Locator)
	if err != nil {
		return Result{}, err
	}
	if err := d.Engine.DeleteProject(ctx, target.ID, d.ActorID); err != nil {
		return Result{}, &StoreError{Op: "delete project", Err: err}
	}
	return Result{
		EntityID: target.ID,
		Display:  target.Key,
		Message:  fmt.Sprintf("Deleted project %s (%s)", target.Name, target.Key),
	}, nil
}

func (d Dispatcher) InviteMember(ctx context.Context, cmd InviteMemberCommand) (Result, error) {
	inv, err := d.Engine.InviteMember(ctx, engine.InviteOptions{
		TeamID:  d.Snapshot.TeamID,
		Email:   cmd.Email,
		Role:    cmd.Role,
		ActorID: d.ActorID,
	})
	if err != nil {
		return Result{}, &StoreError{Op: "invite member", Err: err}
	}
	return Result{
		EntityID: inv.ID,
		Display:  inv.Email,
		Message:  fmt.Sprintf("Invited %s as %s", inv.Email, inv.Role),
	}, nil
}

func (d Dispatcher) RemoveMember(ctx context.Context, cmd RemoveMemberCommand) (Result, error) {
	if err := d.Engine.RemoveMember(ctx, d.Snapshot.TeamID, cmd.UserID, d.ActorID); err != nil {
		return Result{}, &StoreError{Op: "remove member", Err: err}
	}
	return Result{
		EntityID: cmd.UserID,
		Display:  cmd.UserName,
		Message:  fmt.Sprintf("Removed %s from the team", cmd.UserName),
	}, nil
}

func (d Dispatcher) RevokeInvitation(ctx context.Context, cmd RevokeInvitationCommand) (Result, error) {
	inv, err := d.locateInvitation(ctx, cmd)
	if err != nil {
		return Result{}, err
	}
	if err := d.Engine.RevokeInvitation(ctx, inv.ID, d.ActorID); err != nil {
		return Result{}, &StoreError{Op: "revoke invitation", Err: err}
	}
	return Result{
		EntityID: inv.ID,
		Display:  inv.Email,
		Message:  fmt.Sprintf("Revoked invitation for %s", inv.Email),
	}, nil
}

// locateIssue finds the update/delete target by id, falling back to title
// search. More than one title hit is a MultiMatchError listing every match
// by display id.
func (d Dispatcher) locateIssue(ctx context.Context, loc IssueLocator) (domain.Issue, error) {
	if loc.ID != "" {
		issue, err := d.Engine.Repo.GetIssue(ctx, loc.ID)
		if err == nil && issue.TeamID == d.Snapshot.TeamID {
			return issue, nil
		}
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return domain.Issue{}, &StoreError{Op: "locate issue", Err: err}
		}
	}
	if loc.Title == "" {
		return domain.Issue{}, &ResolutionError{
			Field:   "issue",
			Value:   loc.ID,
			Message: fmt.Sprintf("The issue %q was not found.", loc.ID),
		}
	}
	matches, err := d.Engine.Repo.FindIssuesByTitle(ctx, d.Snapshot.TeamID, loc.Title)
	if err != nil {
		return domain.Issue{}, &StoreError{Op: "locate issue", Err: err}
	}
	switch len(matches) {
	case 0:
		return domain.Issue{}, &ResolutionError{
			Field:   "issue",
			Value:   loc.Title,
			Message: fmt.Sprintf("The issue %q was not found.", loc.Title),
		}
	case 1:
		return matches[0], nil
	}
	var displays []string
	for _, m := range matches {
		displays = append(displays, fmt.Sprintf("%s (%s)", d.issueDisplay(m), m.Title))
	}
	return domain.Issue{}, &MultiMatchError{Value: loc.Title, Matches: displays}
}

func (d Dispatcher) locateProject(loc ProjectLocator) (ProjectRef, error) {
	if loc.ID != "" {
		for _, p := range d.Snapshot.Projects {
			if p.ID == loc.ID {
				return p, nil
			}
		}
	}
	if loc.Name == "" {
		return ProjectRef{}, &ResolutionError{
			Field:   "project",
			Value:   loc.ID,
			Message: fmt.Sprintf("The project %q was not found. Available projects: %s.", loc.ID, d.Snapshot.AvailableProjects()),
		}
	}
	out := Resolve(RefFrom(loc.Name), d.Snapshot.projectCandidates())
	switch out.Kind {
	case OutcomeResolved:
		for _, p := range d.Snapshot.Projects {
			if p.ID == out.ID {
				return p, nil
			}
		}
	case OutcomeAmbiguous:
		var displays []string
		for _, c := range out.Candidates {
			displays = append(displays, fmt.Sprintf("%s (%s)", c.Name, c.ID))
		}
		return ProjectRef{}, &MultiMatchError{Value: loc.Name, Matches: displays}
	}
	return ProjectRef{}, &ResolutionError{
		Field:   "project",
		Value:   loc.Name,
		Message: fmt.Sprintf("The project %q was not found. Available projects: %s.", loc.Name, d.Snapshot.AvailableProjects()),
	}
}

func (d Dispatcher) locateInvitation(ctx context.Context, cmd RevokeInvitationCommand) (domain.Invitation, error) {
	if cmd.InvitationID != "" {
		inv, err := d.Engine.Repo.GetInvitation(ctx, cmd.InvitationID)
		if err == nil && inv.TeamID == d.Snapshot.TeamID {
			return inv, nil
		}
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return domain.Invitation{}, &StoreError{Op: "locate invitation", Err: err}
		}
	}
	if cmd.Email != "" {
		inv, err := d.Engine.Repo.PendingInvitationByEmail(ctx, d.Snapshot.TeamID, cmd.Email)
		if err == nil {
			return inv, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return domain.Invitation{}, &StoreError{Op: "locate invitation", Err: err}
		}
	}
	value := cmd.Email
	if value == "" {
		value = cmd.InvitationID
	}
	return domain.Invitation{}, &ResolutionError{
		Field:   "invitation",
		Value:   value,
		Message: fmt.Sprintf("No pending invitation found for %q.", value),
	}
}
