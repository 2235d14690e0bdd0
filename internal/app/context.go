package app

import (
	"context"
	"errors"
	"fmt"

	"doable/internal/config"
	"doable/internal/engine"
	"doable/internal/repo"
)

// ResolveTeamAndConfig picks the active team and ensures it exists in
// the DB, seeding workflow states from config when the team is created.
// It prefers the override, then the workspace config, then the single
// team already in the DB.
func ResolveTeamAndConfig(ctx context.Context, workspace, teamOverride, actorID string, r repo.Repo) (string, *config.Config, error) {
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return "", nil, err
	}

	teamID := teamOverride
	if teamID == "" && cfg != nil {
		teamID = cfg.Team.ID
	}
	if teamID == "" {
		teams, err := r.ListTeams(ctx)
		if err != nil {
			return "", nil, err
		}
		if len(teams) == 1 {
			teamID = teams[0].ID
		} else {
			return "", nil, fmt.Errorf("team not specified; use --team or run doable init")
		}
	}

	if cfg == nil {
		if t, err := r.GetTeam(ctx, teamID); err == nil {
			cfg = config.Default(t.ID, t.Name, t.Key)
		} else if errors.Is(err, repo.ErrNotFound) {
			return "", nil, fmt.Errorf("team %s not found; run doable init first", teamID)
		} else {
			return "", nil, err
		}
	}

	if _, err := r.GetTeam(ctx, teamID); err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			return "", nil, err
		}
		e := engine.New(r.DB, cfg)
		if _, err := e.InitTeam(ctx, teamID, cfg.Team.Name, cfg.Team.Key, actorID, ""); err != nil {
			return "", nil, fmt.Errorf("init team: %w", err)
		}
	}
	return teamID, cfg, nil
}
