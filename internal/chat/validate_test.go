package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func testSnapshot() Snapshot {
	return Snapshot{
		TeamID:  "team-1",
		TeamKey: "ACME",
		Projects: []ProjectRef{
			{ID: "p-1", Name: "Website", Key: "web", Status: "active"},
			{ID: "p-2", Name: "Mobile App", Key: "mob", Status: "active"},
		},
		States: []StateRef{
			{ID: "s-1", Name: "Backlog", Type: "unstarted"},
			{ID: "s-2", Name: "Todo", Type: "unstarted"},
			{ID: "s-3", Name: "In Progress", Type: "started"},
			{ID: "s-4", Name: "Done", Type: "completed"},
		},
		Labels: []LabelRef{
			{ID: "l-1", Name: "bug"},
			{ID: "l-2", Name: "feature"},
		},
		Members: []MemberRef{
			{UserID: "u-1", UserName: "Sarah Chen"},
			{UserID: "u-2", UserName: "Mike Jones"},
		},
	}
}

func TestCreateIssueComplete(t *testing.T) {
	v := Validator{Snapshot: testSnapshot()}
	cmd, err := v.CreateIssue(CreateIssueDraft{
		Title:         strp("Fix bug"),
		WorkflowState: strp("todo"),
		Priority:      strp("High"),
		Project:       strp("web"),
		Assignee:      strp("sarah"),
		Labels:        []string{"bug"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Fix bug", cmd.Title)
	assert.Equal(t, "s-2", cmd.StateID)
	assert.Equal(t, "high", cmd.Priority)
	assert.Equal(t, "p-1", cmd.ProjectID)
	require.NotNil(t, cmd.AssigneeID)
	assert.Equal(t, "u-1", *cmd.AssigneeID)
	assert.Equal(t, []string{"l-1"}, cmd.LabelIDs)
}

func TestCreateIssuePriorityOnlyPrompt(t *testing.T) {
	v := Validator{Snapshot: testSnapshot()}
	_, err := v.CreateIssue(CreateIssueDraft{
		Title:         strp("Fix bug"),
		WorkflowState: strp("todo"),
		Project:       strp("web"),
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"priority"}, verr.Missing)
	assert.Equal(t, "Which priority should this issue have? Valid priorities are: none, low, medium, high, urgent.", verr.Message)
}

func TestCreateIssueProjectOnlyPrompt(t *testing.T) {
	v := Validator{Snapshot: testSnapshot()}
	_, err := v.CreateIssue(CreateIssueDraft{
		Title:         strp("Fix bug"),
		WorkflowState: strp("todo"),
		Priority:      strp("high"),
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"project"}, verr.Missing)
	assert.Equal(t, "Which project should this issue belong to? Available projects: Website (web), Mobile App (mob).", verr.Message)
}

func TestCreateIssuePriorityAndProjectPrompt(t *testing.T) {
	v := Validator{Snapshot: testSnapshot()}
	_, err := v.CreateIssue(CreateIssueDraft{
		Title:         strp("Fix bug"),
		WorkflowState: strp("todo"),
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"priority", "project"}, verr.Missing)
	assert.Contains(t, verr.Message, "Which priority and project should this issue have?")
}

func TestCreateIssueGenericPrompt(t *testing.T) {
	v := Validator{Snapshot: testSnapshot()}
	_, err := v.CreateIssue(CreateIssueDraft{Priority: strp("high"), Project: strp("web")})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"title", "workflow state"}, verr.Missing)
	assert.Equal(t, "I need a bit more information to create this issue. Missing: title, workflow state.", verr.Message)
}

func TestCreateIssueExplicitNoneIsProvided(t *testing.T) {
	v := Validator{Snapshot: testSnapshot()}
	cmd, err := v.CreateIssue(CreateIssueDraft{
		Title:         strp("Triage later"),
		WorkflowState: strp("backlog"),
		Priority:      strp("none"),
		Project:       strp("web"),
	})
	require.NoError(t, err)
	assert.Equal(t, "none", cmd.Priority)
}

func TestCreateIssueNullStringsTreatedAbsent(t *testing.T) {
	v := Validator{Snapshot: testSnapshot()}
	_, err := v.CreateIssue(CreateIssueDraft{
		Title:         strp("Fix bug"),
		WorkflowState: strp("todo"),
		Priority:      strp("null"),
		Project:       strp("undefined"),
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"priority", "project"}, verr.Missing)
}

func TestCreateIssueUnknownState(t *testing.T) {
	v := Validator{Snapshot: testSnapshot()}
	_, err := v.CreateIssue(CreateIssueDraft{
		Title:         strp("Fix bug"),
		WorkflowState: strp("Shipped"),
		Priority:      strp("high"),
		Project:       strp("web"),
	})
	var rerr *ResolutionError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "workflow state", rerr.Field)
	assert.Contains(t, rerr.Message, "Available states: Backlog, Todo, In Progress, Done.")
}

func TestUpdateIssueNeedsLocator(t *testing.T) {
	v := Validator{Snapshot: testSnapshot()}
	_, err := v.UpdateIssue(UpdateIssueDraft{Priority: strp("low")})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Which issue should I update? Give me its id or title.", verr.Message)
}

func TestUpdateIssueInvalidPriority(t *testing.T) {
	v := Validator{Snapshot: testSnapshot()}
	_, err := v.UpdateIssue(UpdateIssueDraft{IssueID: strp("i-1"), Priority: strp("critical")})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, `"critical" is not a priority I know`)
}

func TestUpdateIssueAssigneeSentinelClears(t *testing.T) {
	v := Validator{Snapshot: testSnapshot()}
	cmd, err := v.UpdateIssue(UpdateIssueDraft{
		IssueID:     strp("i-1"),
		Assignee:    strp("unassigned"),
		AssigneeSet: true,
	})
	require.NoError(t, err)
	assert.True(t, cmd.SetAssignee)
	assert.Nil(t, cmd.AssigneeID)
}

func TestCreateProjectMissingFields(t *testing.T) {
	v := Validator{Snapshot: testSnapshot()}
	_, err := v.CreateProject(CreateProjectDraft{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"name", "key"}, verr.Missing)
}

func TestCreateProjectBadStatus(t *testing.T) {
	v := Validator{Snapshot: testSnapshot()}
	_, err := v.CreateProject(CreateProjectDraft{
		Name:   strp("Docs"),
		Key:    strp("doc"),
		Status: strp("shipping"),
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "Valid statuses are: planned, active, paused, completed, canceled.")
}

func TestInviteMemberEmailValidation(t *testing.T) {
	v := Validator{Snapshot: testSnapshot()}
	for _, bad := range []string{"nope", "a@b", "not an email", "x@"} {
		_, err := v.InviteMember(InviteMemberDraft{Email: strp(bad)})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, "email %q", bad)
		assert.Contains(t, verr.Message, "does not look like a valid email address")
	}
	cmd, err := v.InviteMember(InviteMemberDraft{Email: strp("dev@example.com")})
	require.NoError(t, err)
	assert.Equal(t, "dev@example.com", cmd.Email)
	assert.Equal(t, "developer", cmd.Role)
}

func TestInviteMemberBadRole(t *testing.T) {
	v := Validator{Snapshot: testSnapshot()}
	_, err := v.InviteMember(InviteMemberDraft{Email: strp("dev@example.com"), Role: strp("owner")})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "Valid roles are: admin, developer, viewer.")
}

func TestRemoveMemberResolvesName(t *testing.T) {
	v := Validator{Snapshot: testSnapshot()}
	cmd, err := v.RemoveMember(RemoveMemberDraft{UserName: strp("mike")})
	require.NoError(t, err)
	assert.Equal(t, "u-2", cmd.UserID)
	assert.Equal(t, "Mike Jones", cmd.UserName)

	_, err = v.RemoveMember(RemoveMemberDraft{UserName: strp("zelda")})
	var rerr *ResolutionError
	require.ErrorAs(t, err, &rerr)
	assert.Contains(t, rerr.Message, "Team members: Sarah Chen, Mike Jones.")
}
