package chat

import "strings"

// Tool-call argument values may arrive as nil, empty, or the literal
// strings "null"/"undefined" depending on how the upstream model
// serialized them. clean folds all of those to nil so the validator only
// ever sees genuinely present values.
func clean(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	switch strings.ToLower(t) {
	case "null", "undefined":
		return nil
	}
	return &t
}

func cleanSlice(vs []string) []string {
	var out []string
	for _, v := range vs {
		if c := clean(&v); c != nil {
			out = append(out, *c)
		}
	}
	return out
}

// CreateIssueDraft holds the raw arguments of a create-issue tool call.
// Every field is independently nullable before validation.
type CreateIssueDraft struct {
	Title         *string
	Description   *string
	WorkflowState *string
	Priority      *string
	Project       *string
	Assignee      *string
	Labels        []string
	DueDate       *string
}

func (d CreateIssueDraft) normalized() CreateIssueDraft {
	return CreateIssueDraft{
		Title:         clean(d.Title),
		Description:   clean(d.Description),
		WorkflowState: clean(d.WorkflowState),
		Priority:      clean(d.Priority),
		Project:       clean(d.Project),
		Assignee:      d.Assignee,
		Labels:        cleanSlice(d.Labels),
		DueDate:       clean(d.DueDate),
	}
}

// UpdateIssueDraft locates an issue by IssueID or Title and applies the
// remaining fields as changes.
type UpdateIssueDraft struct {
	IssueID       *string
	Title         *string
	NewTitle      *string
	Description   *string
	WorkflowState *string
	Priority      *string
	Project       *string
	Assignee      *string
	AssigneeSet   bool
	AddLabels     []string
	RemoveLabels  []string
	DueDate       *string
}

func (d UpdateIssueDraft) normalized() UpdateIssueDraft {
	return UpdateIssueDraft{
		IssueID:       clean(d.IssueID),
		Title:         clean(d.Title),
		NewTitle:      clean(d.NewTitle),
		Description:   clean(d.Description),
		WorkflowState: clean(d.WorkflowState),
		Priority:      clean(d.Priority),
		Project:       clean(d.Project),
		Assignee:      d.Assignee,
		AssigneeSet:   d.AssigneeSet,
		AddLabels:     cleanSlice(d.AddLabels),
		RemoveLabels:  cleanSlice(d.RemoveLabels),
		DueDate:       clean(d.DueDate),
	}
}

type DeleteIssueDraft struct {
	IssueID *string
	Title   *string
}

func (d DeleteIssueDraft) normalized() DeleteIssueDraft {
	return DeleteIssueDraft{IssueID: clean(d.IssueID), Title: clean(d.Title)}
}

type CreateProjectDraft struct {
	Name        *string
	Key         *string
	Description *string
	Color       *string
	Status      *string
}

func (d CreateProjectDraft) normalized() CreateProjectDraft {
	return CreateProjectDraft{
		Name:        clean(d.Name),
		Key:         clean(d.Key),
		Description: clean(d.Description),
		Color:       clean(d.Color),
		Status:      clean(d.Status),
	}
}

// UpdateProjectDraft locates a project by ProjectID or Name.
type UpdateProjectDraft struct {
	ProjectID   *string
	Name        *string
	NewName     *string
	Key         *string
	Description *string
	Color       *string
	Status      *string
}

func (d UpdateProjectDraft) normalized() UpdateProjectDraft {
	return UpdateProjectDraft{
		ProjectID:   clean(d.ProjectID),
		Name:        clean(d.Name),
		NewName:     clean(d.NewName),
		Key:         clean(d.Key),
		Description: clean(d.Description),
		Color:       clean(d.Color),
		Status:      clean(d.Status),
	}
}

type DeleteProjectDraft struct {
	ProjectID *string
	Name      *string
}

func (d DeleteProjectDraft) normalized() DeleteProjectDraft {
	return DeleteProjectDraft{ProjectID: clean(d.ProjectID), Name: clean(d.Name)}
}

type InviteMemberDraft struct {
	Email *string
	Role  *string
}

func (d InviteMemberDraft) normalized() InviteMemberDraft {
	return InviteMemberDraft{Email: clean(d.Email), Role: clean(d.Role)}
}

type RemoveMemberDraft struct {
	UserID   *string
	UserName *string
}

func (d RemoveMemberDraft) normalized() RemoveMemberDraft {
	return RemoveMemberDraft{UserID: clean(d.UserID), UserName: clean(d.UserName)}
}

type RevokeInvitationDraft struct {
	InvitationID *string
	Email        *string
}

func (d RevokeInvitationDraft) normalized() RevokeInvitationDraft {
	return RevokeInvitationDraft{InvitationID: clean(d.InvitationID), Email: clean(d.Email)}
}
