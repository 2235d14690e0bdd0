package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"doable/internal/config"
	"doable/internal/db"
	"doable/internal/engine"
	"doable/internal/migrate"
	"doable/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default("team-1", "Acme", "ACME")
	eng := engine.New(conn, cfg)
	eng.Now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	if _, err := eng.InitTeam(ctx, "team-1", "Acme", "ACME", "tester", "Tester"); err != nil {
		t.Fatalf("init team: %v", err)
	}
	return testEnv{Engine: eng, Ctx: ctx}
}

func (env testEnv) stateID(t *testing.T, name string) string {
	t.Helper()
	states, err := env.Engine.Repo.ListWorkflowStates(env.Ctx, "team-1")
	if err != nil {
		t.Fatalf("list states: %v", err)
	}
	for _, s := range states {
		if s.Name == name {
			return s.ID
		}
	}
	t.Fatalf("state %s not seeded", name)
	return ""
}

func (env testEnv) project(t *testing.T, name, key string) string {
	t.Helper()
	p, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{
		TeamID: "team-1", Name: name, Key: key, ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p.ID
}

func TestInitTeamSeedsDefaults(t *testing.T) {
	env := newTestEnv(t)
	states, err := env.Engine.Repo.ListWorkflowStates(env.Ctx, "team-1")
	if err != nil {
		t.Fatalf("list states: %v", err)
	}
	if len(states) != 6 {
		t.Fatalf("expected 6 default states, got %d", len(states))
	}
	members, err := env.Engine.Repo.ListMembers(env.Ctx, "team-1")
	if err != nil || len(members) != 1 {
		t.Fatalf("expected creator as member: %v", err)
	}
	if members[0].Role != "admin" {
		t.Fatalf("creator should be admin, got %s", members[0].Role)
	}
}

func TestInitTeamRollsBackOnSeedFailure(t *testing.T) {
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// Break state seeding so InitTeam fails partway through the transaction.
	if _, err := conn.Exec(`DROP TABLE workflow_states`); err != nil {
		t.Fatalf("drop workflow_states: %v", err)
	}
	eng := engine.New(conn, config.Default("team-1", "Acme", "ACME"))
	ctx := context.Background()
	if _, err := eng.InitTeam(ctx, "team-1", "Acme", "ACME", "tester", "Tester"); err == nil {
		t.Fatal("expected init to fail with workflow_states missing")
	}
	if _, err := eng.Repo.GetTeam(ctx, "team-1"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("team row should not survive failed init, got err %v", err)
	}
}

func TestIssueNumbering(t *testing.T) {
	env := newTestEnv(t)
	projectID := env.project(t, "Website", "web")
	todo := env.stateID(t, "Todo")
	for i := 1; i <= 3; i++ {
		issue, err := env.Engine.CreateIssue(env.Ctx, engine.IssueCreateOptions{
			TeamID: "team-1", ProjectID: projectID, Title: "work",
			StateID: todo, Priority: "medium", ActorID: "tester",
		})
		if err != nil {
			t.Fatalf("create issue %d: %v", i, err)
		}
		if issue.Number != i {
			t.Fatalf("expected issue number %d, got %d", i, issue.Number)
		}
	}
}

func TestIssueValidation(t *testing.T) {
	env := newTestEnv(t)
	projectID := env.project(t, "Website", "web")
	todo := env.stateID(t, "Todo")

	_, err := env.Engine.CreateIssue(env.Ctx, engine.IssueCreateOptions{
		TeamID: "team-1", ProjectID: projectID, StateID: todo, Priority: "medium", ActorID: "tester",
	})
	if err == nil {
		t.Fatal("expected missing title error")
	}
	_, err = env.Engine.CreateIssue(env.Ctx, engine.IssueCreateOptions{
		TeamID: "team-1", ProjectID: projectID, Title: "x", StateID: todo, Priority: "sky-high", ActorID: "tester",
	})
	if err == nil {
		t.Fatal("expected invalid priority error")
	}
	_, err = env.Engine.CreateIssue(env.Ctx, engine.IssueCreateOptions{
		TeamID: "team-1", ProjectID: "p-nope", Title: "x", StateID: todo, Priority: "medium", ActorID: "tester",
	})
	if err == nil {
		t.Fatal("expected unknown project error")
	}
}

func TestIssueUpdateAndClearAssignee(t *testing.T) {
	env := newTestEnv(t)
	projectID := env.project(t, "Website", "web")
	todo := env.stateID(t, "Todo")
	done := env.stateID(t, "Done")

	issue, err := env.Engine.CreateIssue(env.Ctx, engine.IssueCreateOptions{
		TeamID: "team-1", ProjectID: projectID, Title: "Fix bug",
		StateID: todo, Priority: "high", AssigneeID: "tester", ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("create issue: %v", err)
	}
	if issue.AssigneeID == nil || *issue.AssigneeID != "tester" {
		t.Fatalf("expected assignee tester, got %v", issue.AssigneeID)
	}

	newTitle := "Fix login bug"
	issue, err = env.Engine.UpdateIssue(env.Ctx, engine.IssueUpdateOptions{
		IssueID: issue.ID, Title: &newTitle, StateID: &done, ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("update issue: %v", err)
	}
	if issue.Title != "Fix login bug" || issue.StateID != done {
		t.Fatalf("update not applied: %+v", issue)
	}

	issue, err = env.Engine.UpdateIssue(env.Ctx, engine.IssueUpdateOptions{
		IssueID: issue.ID, ClearAssignee: true, ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("clear assignee: %v", err)
	}
	if issue.AssigneeID != nil {
		t.Fatalf("expected nil assignee, got %v", *issue.AssigneeID)
	}
}

func TestIssueLabels(t *testing.T) {
	env := newTestEnv(t)
	projectID := env.project(t, "Website", "web")
	todo := env.stateID(t, "Todo")
	bug, err := env.Engine.CreateLabel(env.Ctx, "team-1", "bug", "#ff0000", "tester")
	if err != nil {
		t.Fatalf("create label: %v", err)
	}
	feature, err := env.Engine.CreateLabel(env.Ctx, "team-1", "feature", "#00ff00", "tester")
	if err != nil {
		t.Fatalf("create label: %v", err)
	}

	issue, err := env.Engine.CreateIssue(env.Ctx, engine.IssueCreateOptions{
		TeamID: "team-1", ProjectID: projectID, Title: "Fix bug",
		StateID: todo, Priority: "high", LabelIDs: []string{bug.ID}, ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("create issue: %v", err)
	}
	if len(issue.LabelIDs) != 1 || issue.LabelIDs[0] != bug.ID {
		t.Fatalf("expected bug label, got %v", issue.LabelIDs)
	}

	issue, err = env.Engine.UpdateIssue(env.Ctx, engine.IssueUpdateOptions{
		IssueID: issue.ID, AddLabels: []string{feature.ID}, RemoveLabels: []string{bug.ID}, ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("update labels: %v", err)
	}
	if len(issue.LabelIDs) != 1 || issue.LabelIDs[0] != feature.ID {
		t.Fatalf("expected feature label only, got %v", issue.LabelIDs)
	}
}

func TestProjectDeleteBlockedByIssues(t *testing.T) {
	env := newTestEnv(t)
	projectID := env.project(t, "Website", "web")
	todo := env.stateID(t, "Todo")
	if _, err := env.Engine.CreateIssue(env.Ctx, engine.IssueCreateOptions{
		TeamID: "team-1", ProjectID: projectID, Title: "work", StateID: todo, Priority: "low", ActorID: "tester",
	}); err != nil {
		t.Fatalf("create issue: %v", err)
	}
	if err := env.Engine.DeleteProject(env.Ctx, projectID, "tester"); err == nil {
		t.Fatal("expected delete blocked while issues remain")
	}
}

func TestWorkflowStateDeleteBlockedByIssues(t *testing.T) {
	env := newTestEnv(t)
	projectID := env.project(t, "Website", "web")
	todo := env.stateID(t, "Todo")
	if _, err := env.Engine.CreateIssue(env.Ctx, engine.IssueCreateOptions{
		TeamID: "team-1", ProjectID: projectID, Title: "work", StateID: todo, Priority: "low", ActorID: "tester",
	}); err != nil {
		t.Fatalf("create issue: %v", err)
	}
	if err := env.Engine.DeleteWorkflowState(env.Ctx, todo, "tester"); err == nil {
		t.Fatal("expected delete blocked while issues remain")
	}
	backlog := env.stateID(t, "Backlog")
	if err := env.Engine.DeleteWorkflowState(env.Ctx, backlog, "tester"); err != nil {
		t.Fatalf("delete empty state: %v", err)
	}
}

func TestInvitationLifecycle(t *testing.T) {
	env := newTestEnv(t)
	inv, err := env.Engine.InviteMember(env.Ctx, engine.InviteOptions{
		TeamID: "team-1", Email: "dev@example.com", Role: "developer", ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if inv.Status != "pending" {
		t.Fatalf("expected pending, got %s", inv.Status)
	}

	// duplicate pending invite for the same email is rejected
	if _, err := env.Engine.InviteMember(env.Ctx, engine.InviteOptions{
		TeamID: "team-1", Email: "dev@example.com", Role: "developer", ActorID: "tester",
	}); err == nil {
		t.Fatal("expected duplicate invite error")
	}

	m, err := env.Engine.AcceptInvitation(env.Ctx, inv.ID, "u-dev", "Dev")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if m.Role != "developer" || m.UserID != "u-dev" {
		t.Fatalf("unexpected member: %+v", m)
	}

	// accepting twice fails
	if _, err := env.Engine.AcceptInvitation(env.Ctx, inv.ID, "u-dev", "Dev"); err == nil {
		t.Fatal("expected not-pending error")
	}
}

func TestInvitationExpiry(t *testing.T) {
	env := newTestEnv(t)
	inv, err := env.Engine.InviteMember(env.Ctx, engine.InviteOptions{
		TeamID: "team-1", Email: "late@example.com", Role: "viewer", ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	// jump past the configured expiry window
	env.Engine.Now = func() time.Time { return time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC) }
	if _, err := env.Engine.AcceptInvitation(env.Ctx, inv.ID, "u-late", "Late"); err == nil {
		t.Fatal("expected expired invitation error")
	}
}

func TestInviteRejectsBadEmail(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.InviteMember(env.Ctx, engine.InviteOptions{
		TeamID: "team-1", Email: "not-an-email", Role: "viewer", ActorID: "tester",
	}); err == nil {
		t.Fatal("expected invalid email error")
	}
}

func TestMemberRoleChange(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.AddMember(env.Ctx, engine.MemberAddOptions{
		TeamID: "team-1", UserID: "u-2", UserName: "Sam", Role: "viewer", ActorID: "tester",
	}); err != nil {
		t.Fatalf("add member: %v", err)
	}
	m, err := env.Engine.UpdateMemberRole(env.Ctx, "team-1", "u-2", "developer", "tester")
	if err != nil {
		t.Fatalf("set role: %v", err)
	}
	if m.Role != "developer" {
		t.Fatalf("expected developer, got %s", m.Role)
	}
	if _, err := env.Engine.UpdateMemberRole(env.Ctx, "team-1", "u-2", "owner", "tester"); err == nil {
		t.Fatal("expected invalid role error")
	}
	if err := env.Engine.RemoveMember(env.Ctx, "team-1", "u-2", "tester"); err != nil {
		t.Fatalf("remove member: %v", err)
	}
}

func TestEventLogRecordsMutations(t *testing.T) {
	env := newTestEnv(t)
	projectID := env.project(t, "Website", "web")
	todo := env.stateID(t, "Todo")
	issue, err := env.Engine.CreateIssue(env.Ctx, engine.IssueCreateOptions{
		TeamID: "team-1", ProjectID: projectID, Title: "work", StateID: todo, Priority: "low", ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("create issue: %v", err)
	}
	events, err := env.Engine.Repo.LatestEvents(env.Ctx, 10, "team-1", "issue.created", "", "")
	if err != nil {
		t.Fatalf("latest events: %v", err)
	}
	if len(events) != 1 || events[0].EntityID != issue.ID {
		t.Fatalf("expected issue.created event for %s, got %+v", issue.ID, events)
	}
}

func TestIssueListFilters(t *testing.T) {
	env := newTestEnv(t)
	web := env.project(t, "Website", "web")
	mob := env.project(t, "Mobile", "mob")
	todo := env.stateID(t, "Todo")
	for i, p := range []string{web, web, mob} {
		priority := "low"
		if i == 0 {
			priority = "urgent"
		}
		if _, err := env.Engine.CreateIssue(env.Ctx, engine.IssueCreateOptions{
			TeamID: "team-1", ProjectID: p, Title: "work", StateID: todo, Priority: priority, ActorID: "tester",
		}); err != nil {
			t.Fatalf("create issue: %v", err)
		}
	}
	issues, err := env.Engine.Repo.ListIssues(env.Ctx, repo.IssueFilters{TeamID: "team-1", ProjectID: web})
	if err != nil || len(issues) != 2 {
		t.Fatalf("expected 2 web issues, got %d (%v)", len(issues), err)
	}
	issues, err = env.Engine.Repo.ListIssues(env.Ctx, repo.IssueFilters{TeamID: "team-1", Priority: "urgent"})
	if err != nil || len(issues) != 1 {
		t.Fatalf("expected 1 urgent issue, got %d (%v)", len(issues), err)
	}
}
