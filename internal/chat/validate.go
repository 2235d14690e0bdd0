package chat

import (
	"fmt"
	"net/mail"
	"strings"
)

// Validator checks command drafts for completeness against one snapshot and
// resolves every named reference to an identifier. All methods are pure
// over the snapshot; a returned error is always one of the typed errors in
// this package and its message is the clarification relayed to the user.
type Validator struct {
	Snapshot Snapshot
}

var validPriorities = []string{"none", "low", "medium", "high", "urgent"}

var validProjectStatuses = []string{"planned", "active", "paused", "completed", "canceled"}

var validRoles = []string{"admin", "developer", "viewer"}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

const priorityGuidance = "Valid priorities are: none, low, medium, high, urgent"

func (v Validator) projectGuidance() string {
	return fmt.Sprintf("Available projects: %s", v.Snapshot.AvailableProjects())
}

// IssueLocator identifies an issue for update or delete, by id or title.
type IssueLocator struct {
	ID    string
	Title string
}

// ProjectLocator identifies a project for update or delete, by id or name.
type ProjectLocator struct {
	ID   string
	Name string
}

// CreateIssueCommand is a fully resolved create-issue mutation.
type CreateIssueCommand struct {
	Title       string
	Description string
	ProjectID   string
	StateID     string
	Priority    string
	AssigneeID  *string
	LabelIDs    []string
	DueDate     string
}

// CreateIssue validates a create-issue draft. The required fields are
// title, workflow state, priority, and project. Priority must be an
// explicit value; a missing priority is never defaulted. Missing priority
// and project each get bespoke guidance because those are the fields the
// model tends to omit; any other missing combination gets the generic
// enumerated prompt.
func (v Validator) CreateIssue(d CreateIssueDraft) (CreateIssueCommand, error) {
	d = d.normalized()
	var missing []string
	if d.Title == nil {
		missing = append(missing, "title")
	}
	if d.WorkflowState == nil {
		missing = append(missing, "workflow state")
	}
	priorityMissing := d.Priority == nil || !contains(validPriorities, strings.ToLower(*d.Priority))
	if priorityMissing {
		missing = append(missing, "priority")
	}
	projectMissing := d.Project == nil
	if projectMissing {
		missing = append(missing, "project")
	}
	if len(missing) > 0 {
		onlyBespoke := len(missing) == boolCount(priorityMissing) + boolCount(projectMissing)
		var msg string
		switch {
		case onlyBespoke && priorityMissing && projectMissing:
			msg = fmt.Sprintf("Which priority and project should this issue have? %s. %s.", priorityGuidance, v.projectGuidance())
		case onlyBespoke && priorityMissing:
			msg = fmt.Sprintf("Which priority should this issue have? %s.", priorityGuidance)
		case onlyBespoke && projectMissing:
			msg = fmt.Sprintf("Which project should this issue belong to? %s.", v.projectGuidance())
		default:
			msg = fmt.Sprintf("I need a bit more information to create this issue. Missing: %s.", strings.Join(missing, ", "))
		}
		return CreateIssueCommand{}, &ValidationError{Command: "create-issue", Missing: missing, Message: msg}
	}

	cmd := CreateIssueCommand{
		Title:    *d.Title,
		Priority: strings.ToLower(*d.Priority),
	}
	if d.Description != nil {
		cmd.Description = *d.Description
	}
	if d.DueDate != nil {
		cmd.DueDate = *d.DueDate
	}
	stateID, err := v.resolveState(*d.WorkflowState)
	if err != nil {
		return CreateIssueCommand{}, err
	}
	cmd.StateID = stateID
	projectID, err := v.resolveProject(*d.Project)
	if err != nil {
		return CreateIssueCommand{}, err
	}
	cmd.ProjectID = projectID
	assigneeID, err := v.resolveAssignee(d.Assignee)
	if err != nil {
		return CreateIssueCommand{}, err
	}
	cmd.AssigneeID = assigneeID
	for _, name := range d.Labels {
		labelID, err := v.resolveLabel(name)
		if err != nil {
			return CreateIssueCommand{}, err
		}
		cmd.LabelIDs = append(cmd.LabelIDs, labelID)
	}
	return cmd, nil
}

func boolCount(b bool) int {
	if b {
		return 1
	}
	return 0
}

// UpdateIssueCommand is a validated update-issue mutation. The target is
// located from the locator by the dispatcher; SetAssignee with a nil
// AssigneeID clears the assignee.
type UpdateIssueCommand struct {
	Locator        IssueLocator
	NewTitle       *string
	Description    *string
	StateID        *string
	Priority       *string
	ProjectID      *string
	DueDate        *string
	SetAssignee    bool
	AssigneeID     *string
	AddLabelIDs    []string
	RemoveLabelIDs []string
}

func (v Validator) UpdateIssue(d UpdateIssueDraft) (UpdateIssueCommand, error) {
	d = d.normalized()
	if d.IssueID == nil && d.Title == nil {
		return UpdateIssueCommand{}, &ValidationError{
			Command: "update-issue",
			Missing: []string{"issue"},
			Message: "Which issue should I update? Give me its id or title.",
		}
	}
	cmd := UpdateIssueCommand{
		NewTitle:    d.NewTitle,
		Description: d.Description,
		DueDate:     d.DueDate,
	}
	if d.IssueID != nil {
		cmd.Locator.ID = *d.IssueID
	}
	if d.Title != nil {
		cmd.Locator.Title = *d.Title
	}
	if d.WorkflowState != nil {
		stateID, err := v.resolveState(*d.WorkflowState)
		if err != nil {
			return UpdateIssueCommand{}, err
		}
		cmd.StateID = &stateID
	}
	if d.Priority != nil {
		p := strings.ToLower(*d.Priority)
		if !contains(validPriorities, p) {
			return UpdateIssueCommand{}, &ValidationError{
				Command: "update-issue",
				Missing: []string{"priority"},
				Message: fmt.Sprintf("%q is not a priority I know. %s.", *d.Priority, priorityGuidance),
			}
		}
		cmd.Priority = &p
	}
	if d.Project != nil {
		projectID, err := v.resolveProject(*d.Project)
		if err != nil {
			return UpdateIssueCommand{}, err
		}
		cmd.ProjectID = &projectID
	}
	if d.AssigneeSet {
		assigneeID, err := v.resolveAssignee(d.Assignee)
		if err != nil {
			return UpdateIssueCommand{}, err
		}
		cmd.SetAssignee = true
		cmd.AssigneeID = assigneeID
	}
	for _, name := range d.AddLabels {
		labelID, err := v.resolveLabel(name)
		if err != nil {
			return UpdateIssueCommand{}, err
		}
		cmd.AddLabelIDs = append(cmd.AddLabelIDs, labelID)
	}
	for _, name := range d.RemoveLabels {
		labelID, err := v.resolveLabel(name)
		if err != nil {
			return UpdateIssueCommand{}, err
		}
		cmd.RemoveLabelIDs = append(cmd.RemoveLabelIDs, labelID)
	}
	return cmd, nil
}

type DeleteIssueCommand struct {
	Locator IssueLocator
}

func (v Validator) DeleteIssue(d DeleteIssueDraft) (DeleteIssueCommand, error) {
	d = d.normalized()
	if d.IssueID == nil && d.Title == nil {
		return DeleteIssueCommand{}, &ValidationError{
			Command: "delete-issue",
			Missing: []string{"issue"},
			Message: "Which issue should I delete? Give me its id or title.",
		}
	}
	var cmd DeleteIssueCommand
	if d.IssueID != nil {
		cmd.Locator.ID = *d.IssueID
	}
	if d.Title != nil {
		cmd.Locator.Title = *d.Title
	}
	return cmd, nil
}

// CreateProjectCommand is a validated create-project mutation. Color and
// status are left empty when absent; the store layer applies its
// configured defaults.
type CreateProjectCommand struct {
	Name        string
	Key         string
	Description string
	Color       string
	Status      string
}

func (v Validator) CreateProject(d CreateProjectDraft) (CreateProjectCommand, error) {
	d = d.normalized()
	var missing []string
	if d.Name == nil {
		missing = append(missing, "name")
	}
	if d.Key == nil {
		missing = append(missing, "key")
	}
	if len(missing) > 0 {
		return CreateProjectCommand{}, &ValidationError{
			Command: "create-project",
			Missing: missing,
			Message: fmt.Sprintf("I need a bit more information to create this project. Missing: %s.", strings.Join(missing, ", ")),
		}
	}
	cmd := CreateProjectCommand{Name: *d.Name, Key: *d.Key}
	if d.Description != nil {
		cmd.Description = *d.Description
	}
	if d.Color != nil {
		cmd.Color = *d.Color
	}
	if d.Status != nil {
		status := strings.ToLower(*d.Status)
		if !contains(validProjectStatuses, status) {
			return CreateProjectCommand{}, &ValidationError{
				Command: "create-project",
				Missing: []string{"status"},
				Message: fmt.Sprintf("%q is not a project status I know. Valid statuses are: %s.", *d.Status, strings.Join(validProjectStatuses, ", ")),
			}
		}
		cmd.Status = status
	}
	return cmd, nil
}

type UpdateProjectCommand struct {
	Locator     ProjectLocator
	NewName     *string
	Key         *string
	Description *string
	Color       *string
	Status      *string
}

func (v Validator) UpdateProject(d UpdateProjectDraft) (UpdateProjectCommand, error) {
	d = d.normalized()
	if d.ProjectID == nil && d.Name == nil {
		return UpdateProjectCommand{}, &ValidationError{
			Command: "update-project",
			Missing: []string{"project"},
			Message: "Which project should I update? Give me its id or name.",
		}
	}
	cmd := UpdateProjectCommand{
		NewName:     d.NewName,
		Key:         d.Key,
		Description: d.Description,
		Color:       d.Color,
	}
	if d.ProjectID != nil {
		cmd.Locator.ID = *d.ProjectID
	}
	if d.Name != nil {
		cmd.Locator.Name = *d.Name
	}
	if d.Status != nil {
		status := strings.ToLower(*d.Status)
		if !contains(validProjectStatuses, status) {
			return UpdateProjectCommand{}, &ValidationError{
				Command: "update-project",
				Missing: []string{"status"},
				Message: fmt.Sprintf("%q is not a project status I know. Valid statuses are: %s.", *d.Status, strings.Join(validProjectStatuses, ", ")),
			}
		}
		cmd.Status = &status
	}
	return cmd, nil
}

type DeleteProjectCommand struct {
	Locator ProjectLocator
}

func (v Validator) DeleteProject(d DeleteProjectDraft) (DeleteProjectCommand, error) {
	d = d.normalized()
	if d.ProjectID == nil && d.Name == nil {
		return DeleteProjectCommand{}, &ValidationError{
			Command: "delete-project",
			Missing: []string{"project"},
			Message: "Which project should I delete? Give me its id or name.",
		}
	}
	var cmd DeleteProjectCommand
	if d.ProjectID != nil {
		cmd.Locator.ID = *d.ProjectID
	}
	if d.Name != nil {
		cmd.Locator.Name = *d.Name
	}
	return cmd, nil
}

type InviteMemberCommand struct {
	Email string
	Role  string
}

// InviteMember validates an invitation draft. The email must parse as an
// address; the role defaults to developer when absent.
func (v Validator) InviteMember(d InviteMemberDraft) (InviteMemberCommand, error) {
	d = d.normalized()
	if d.Email == nil {
		return InviteMemberCommand{}, &ValidationError{
			Command: "invite-member",
			Missing: []string{"email"},
			Message: "Who should I invite? Give me their email address.",
		}
	}
	email := strings.TrimSpace(*d.Email)
	if len(email) < 5 {
		return InviteMemberCommand{}, &ValidationError{
			Command: "invite-member",
			Missing: []string{"email"},
			Message: fmt.Sprintf("%q does not look like a valid email address.", email),
		}
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return InviteMemberCommand{}, &ValidationError{
			Command: "invite-member",
			Missing: []string{"email"},
			Message: fmt.Sprintf("%q does not look like a valid email address.", email),
		}
	}
	role := "developer"
	if d.Role != nil {
		role = strings.ToLower(*d.Role)
		if !contains(validRoles, role) {
			return InviteMemberCommand{}, &ValidationError{
				Command: "invite-member",
				Missing: []string{"role"},
				Message: fmt.Sprintf("%q is not a role I know. Valid roles are: %s.", *d.Role, strings.Join(validRoles, ", ")),
			}
		}
	}
	return InviteMemberCommand{Email: email, Role: role}, nil
}

type RemoveMemberCommand struct {
	UserID   string
	UserName string
}

func (v Validator) RemoveMember(d RemoveMemberDraft) (RemoveMemberCommand, error) {
	d = d.normalized()
	if d.UserID == nil && d.UserName == nil {
		return RemoveMemberCommand{}, &ValidationError{
			Command: "remove-member",
			Missing: []string{"member"},
			Message: "Which member should I remove? Give me their id or name.",
		}
	}
	ref := Ref{}
	raw := ""
	if d.UserID != nil {
		ref.ID = *d.UserID
		raw = *d.UserID
	}
	if d.UserName != nil {
		ref.Name = *d.UserName
		raw = *d.UserName
	}
	out := Resolve(ref, v.Snapshot.memberCandidates())
	switch out.Kind {
	case OutcomeResolved:
		return RemoveMemberCommand{UserID: out.ID, UserName: out.Name}, nil
	case OutcomeAmbiguous:
		return RemoveMemberCommand{}, v.ambiguousError("member", raw, out.Candidates)
	}
	return RemoveMemberCommand{}, &ResolutionError{
		Field:   "member",
		Value:   raw,
		Message: fmt.Sprintf("The member %q was not found. Team members: %s.", raw, v.Snapshot.AvailableMembers()),
	}
}

type RevokeInvitationCommand struct {
	InvitationID string
	Email        string
}

func (v Validator) RevokeInvitation(d RevokeInvitationDraft) (RevokeInvitationCommand, error) {
	d = d.normalized()
	if d.InvitationID == nil && d.Email == nil {
		return RevokeInvitationCommand{}, &ValidationError{
			Command: "revoke-invitation",
			Missing: []string{"invitation"},
			Message: "Which invitation should I revoke? Give me its id or the invited email.",
		}
	}
	var cmd RevokeInvitationCommand
	if d.InvitationID != nil {
		cmd.InvitationID = *d.InvitationID
	}
	if d.Email != nil {
		cmd.Email = *d.Email
	}
	return cmd, nil
}

func (v Validator) resolveState(value string) (string, error) {
	out := Resolve(RefFrom(value), v.Snapshot.stateCandidates())
	switch out.Kind {
	case OutcomeResolved:
		return out.ID, nil
	case OutcomeAmbiguous:
		return "", v.ambiguousError("workflow state", value, out.Candidates)
	}
	return "", &ResolutionError{
		Field:   "workflow state",
		Value:   value,
		Message: fmt.Sprintf("The workflow state %q was not found. Available states: %s.", value, v.Snapshot.AvailableStates()),
	}
}

func (v Validator) resolveProject(value string) (string, error) {
	out := Resolve(RefFrom(value), v.Snapshot.projectCandidates())
	switch out.Kind {
	case OutcomeResolved:
		return out.ID, nil
	case OutcomeAmbiguous:
		return "", v.ambiguousError("project", value, out.Candidates)
	}
	return "", &ResolutionError{
		Field:   "project",
		Value:   value,
		Message: fmt.Sprintf("The project %q was not found. %s.", value, v.projectGuidance()),
	}
}

func (v Validator) resolveAssignee(value *string) (*string, error) {
	out := ResolveAssignee(value, v.Snapshot.memberCandidates())
	switch out.Kind {
	case OutcomeUnassigned:
		return nil, nil
	case OutcomeResolved:
		id := out.ID
		return &id, nil
	case OutcomeAmbiguous:
		return nil, v.ambiguousError("assignee", *value, out.Candidates)
	}
	return nil, &ResolutionError{
		Field:   "assignee",
		Value:   *value,
		Message: fmt.Sprintf("The member %q was not found. Team members: %s.", *value, v.Snapshot.AvailableMembers()),
	}
}

func (v Validator) resolveLabel(value string) (string, error) {
	out := Resolve(RefFrom(value), v.Snapshot.labelCandidates())
	switch out.Kind {
	case OutcomeResolved:
		return out.ID, nil
	case OutcomeAmbiguous:
		return "", v.ambiguousError("label", value, out.Candidates)
	}
	return "", &ResolutionError{
		Field:   "label",
		Value:   value,
		Message: fmt.Sprintf("The label %q was not found. Available labels: %s.", value, v.Snapshot.AvailableLabels()),
	}
}

func (v Validator) ambiguousError(field, value string, candidates []Candidate) error {
	var parts []string
	for _, c := range candidates {
		parts = append(parts, fmt.Sprintf("%s (%s)", c.Name, c.ID))
	}
	return &ResolutionError{
		Field:      field,
		Value:      value,
		Candidates: candidates,
		Message:    fmt.Sprintf("Multiple %ss match %q: %s. Which one did you mean?", field, value, strings.Join(parts, ", ")),
	}
}
