package app

import (
	"context"
	"os"
	"testing"

	"doable/internal/config"
	"doable/internal/db"
	"doable/internal/migrate"
	"doable/internal/repo"
)

func TestResolveTeamAndConfigAutoInit(t *testing.T) {
	dir := t.TempDir()
	yml := config.GenerateDefault("team-1", "Acme", "ACME")
	if err := os.WriteFile(config.Path(dir), []byte(yml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	r := repo.Repo{DB: conn}
	ctx := context.Background()

	teamID, cfg, err := ResolveTeamAndConfig(ctx, dir, "", "u-abc123", r)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if teamID != "team-1" || cfg.Team.Key != "ACME" {
		t.Fatalf("unexpected team %s / key %s", teamID, cfg.Team.Key)
	}

	// the configured team was absent, so resolving initializes it and
	// records the actor as admin; with no display name available the
	// member name falls back to the actor id
	members, err := r.ListMembers(ctx, "team-1")
	if err != nil || len(members) != 1 {
		t.Fatalf("expected one member, got %d (%v)", len(members), err)
	}
	if members[0].UserID != "u-abc123" || members[0].UserName != "u-abc123" {
		t.Fatalf("member %s should fall back to actor id as name, got %q", members[0].UserID, members[0].UserName)
	}
	if members[0].Role != "admin" {
		t.Fatalf("creator should be admin, got %s", members[0].Role)
	}
}

func TestResolveTeamAndConfigRequiresTeam(t *testing.T) {
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	_, _, err = ResolveTeamAndConfig(context.Background(), dir, "", "u-1", repo.Repo{DB: conn})
	if err == nil {
		t.Fatal("expected error with no config and no teams")
	}
}
