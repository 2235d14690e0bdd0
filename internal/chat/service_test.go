package chat_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doable/internal/chat"
	"doable/internal/config"
	"doable/internal/db"
	"doable/internal/engine"
	"doable/internal/migrate"
)

func strp(s string) *string { return &s }

func newService(t *testing.T) (chat.Service, context.Context) {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))

	cfg := config.Default("team-1", "Acme", "ACME")
	eng := engine.New(conn, cfg)
	eng.Now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	_, err = eng.InitTeam(ctx, "team-1", "Acme", "ACME", "u-sarah", "Sarah Chen")
	require.NoError(t, err)
	_, err = eng.CreateProject(ctx, engine.ProjectCreateOptions{
		TeamID: "team-1", Name: "Website", Key: "web", ActorID: "u-sarah",
	})
	require.NoError(t, err)
	return chat.Service{Engine: eng}, ctx
}

func TestServiceCreateIssueEndToEnd(t *testing.T) {
	svc, ctx := newService(t)
	res, err := svc.CreateIssue(ctx, "team-1", "u-sarah", chat.CreateIssueDraft{
		Title:         strp("Fix bug"),
		WorkflowState: strp("todo"),
		Priority:      strp("high"),
		Project:       strp("web"),
		Assignee:      strp("sarah"),
	})
	require.NoError(t, err)
	assert.Equal(t, "ACME-1", res.Display)
	assert.Equal(t, "Created issue ACME-1: Fix bug", res.Message)

	issue, err := svc.Engine.Repo.GetIssue(ctx, res.EntityID)
	require.NoError(t, err)
	assert.Equal(t, "high", issue.Priority)
	require.NotNil(t, issue.AssigneeID)
	assert.Equal(t, "u-sarah", *issue.AssigneeID)
}

func TestServiceCreateIssueAsksForPriority(t *testing.T) {
	svc, ctx := newService(t)
	_, err := svc.CreateIssue(ctx, "team-1", "u-sarah", chat.CreateIssueDraft{
		Title:         strp("Fix bug"),
		WorkflowState: strp("todo"),
		Project:       strp("web"),
	})
	var verr *chat.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "Which priority should this issue have?")

	// nothing was created while clarification is pending
	issues, err := svc.Engine.Repo.FindIssuesByTitle(ctx, "team-1", "Fix bug")
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestServiceUpdateIssueByTitle(t *testing.T) {
	svc, ctx := newService(t)
	_, err := svc.CreateIssue(ctx, "team-1", "u-sarah", chat.CreateIssueDraft{
		Title:         strp("Fix bug"),
		WorkflowState: strp("todo"),
		Priority:      strp("high"),
		Project:       strp("web"),
	})
	require.NoError(t, err)

	res, err := svc.UpdateIssue(ctx, "team-1", "u-sarah", chat.UpdateIssueDraft{
		Title:         strp("Fix bug"),
		WorkflowState: strp("in progress"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Updated issue ACME-1: Fix bug", res.Message)
}

func TestServiceUpdateIssueMultiMatch(t *testing.T) {
	svc, ctx := newService(t)
	for i := 0; i < 2; i++ {
		_, err := svc.CreateIssue(ctx, "team-1", "u-sarah", chat.CreateIssueDraft{
			Title:         strp("Fix bug"),
			WorkflowState: strp("todo"),
			Priority:      strp("high"),
			Project:       strp("web"),
		})
		require.NoError(t, err)
	}
	_, err := svc.UpdateIssue(ctx, "team-1", "u-sarah", chat.UpdateIssueDraft{
		Title:    strp("Fix bug"),
		Priority: strp("low"),
	})
	var merr *chat.MultiMatchError
	require.ErrorAs(t, err, &merr)
	assert.Contains(t, merr.Error(), "ACME-1")
	assert.Contains(t, merr.Error(), "ACME-2")
}

func TestServiceDeleteIssueNotFound(t *testing.T) {
	svc, ctx := newService(t)
	_, err := svc.DeleteIssue(ctx, "team-1", "u-sarah", chat.DeleteIssueDraft{
		Title: strp("No such thing"),
	})
	var rerr *chat.ResolutionError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "issue", rerr.Field)
}

func TestServiceProjectLifecycle(t *testing.T) {
	svc, ctx := newService(t)
	res, err := svc.CreateProject(ctx, "team-1", "u-sarah", chat.CreateProjectDraft{
		Name: strp("Docs"),
		Key:  strp("doc"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Created project Docs (doc)", res.Message)

	res, err = svc.UpdateProject(ctx, "team-1", "u-sarah", chat.UpdateProjectDraft{
		Name:   strp("docs"),
		Status: strp("paused"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Updated project Docs (doc)", res.Message)

	res, err = svc.DeleteProject(ctx, "team-1", "u-sarah", chat.DeleteProjectDraft{
		Name: strp("Docs"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Deleted project Docs (doc)", res.Message)
}

func TestServiceInviteAndRevoke(t *testing.T) {
	svc, ctx := newService(t)
	res, err := svc.InviteMember(ctx, "team-1", "u-sarah", chat.InviteMemberDraft{
		Email: strp("dev@example.com"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Invited dev@example.com as developer", res.Message)

	res, err = svc.RevokeInvitation(ctx, "team-1", "u-sarah", chat.RevokeInvitationDraft{
		Email: strp("dev@example.com"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Revoked invitation for dev@example.com", res.Message)
}

func TestServiceRemoveMemberByName(t *testing.T) {
	svc, ctx := newService(t)
	_, err := svc.Engine.AddMember(ctx, engine.MemberAddOptions{
		TeamID: "team-1", UserID: "u-mike", UserName: "Mike Jones", Role: "developer", ActorID: "u-sarah",
	})
	require.NoError(t, err)

	res, err := svc.RemoveMember(ctx, "team-1", "u-sarah", chat.RemoveMemberDraft{
		UserName: strp("mike"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Removed Mike Jones from the team", res.Message)
}
