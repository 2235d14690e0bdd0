package chat

import (
	"context"
	"fmt"
	"strings"

	"doable/internal/repo"
)

// Snapshot is a read-only projection of a team's context, fetched once per
// conversational turn. It is immutable for the duration of one resolution
// pass; staleness is acceptable since the next turn re-fetches.
type Snapshot struct {
	TeamID   string
	TeamKey  string
	Projects []ProjectRef
	States   []StateRef
	Labels   []LabelRef
	Members  []MemberRef
}

type ProjectRef struct {
	ID     string
	Name   string
	Key    string
	Status string
}

type StateRef struct {
	ID   string
	Name string
	Type string
}

type LabelRef struct {
	ID   string
	Name string
}

type MemberRef struct {
	UserID   string
	UserName string
}

// LoadSnapshot fetches the team context collections from the store.
func LoadSnapshot(ctx context.Context, r repo.Repo, teamID string) (Snapshot, error) {
	team, err := r.GetTeam(ctx, teamID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load team: %w", err)
	}
	s := Snapshot{TeamID: team.ID, TeamKey: team.Key}
	projects, err := r.ListProjects(ctx, repo.ProjectFilters{TeamID: teamID})
	if err != nil {
		return Snapshot{}, fmt.Errorf("load projects: %w", err)
	}
	for _, p := range projects {
		s.Projects = append(s.Projects, ProjectRef{ID: p.ID, Name: p.Name, Key: p.Key, Status: p.Status})
	}
	states, err := r.ListWorkflowStates(ctx, teamID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load workflow states: %w", err)
	}
	for _, st := range states {
		s.States = append(s.States, StateRef{ID: st.ID, Name: st.Name, Type: st.Type})
	}
	labels, err := r.ListLabels(ctx, teamID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load labels: %w", err)
	}
	for _, l := range labels {
		s.Labels = append(s.Labels, LabelRef{ID: l.ID, Name: l.Name})
	}
	members, err := r.ListMembers(ctx, teamID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load members: %w", err)
	}
	for _, m := range members {
		s.Members = append(s.Members, MemberRef{UserID: m.UserID, UserName: m.UserName})
	}
	return s, nil
}

func (s Snapshot) projectCandidates() []Candidate {
	out := make([]Candidate, 0, len(s.Projects))
	for _, p := range s.Projects {
		out = append(out, Candidate{ID: p.ID, Name: p.Name})
	}
	return out
}

func (s Snapshot) stateCandidates() []Candidate {
	out := make([]Candidate, 0, len(s.States))
	for _, st := range s.States {
		out = append(out, Candidate{ID: st.ID, Name: st.Name})
	}
	return out
}

func (s Snapshot) labelCandidates() []Candidate {
	out := make([]Candidate, 0, len(s.Labels))
	for _, l := range s.Labels {
		out = append(out, Candidate{ID: l.ID, Name: l.Name})
	}
	return out
}

func (s Snapshot) memberCandidates() []Candidate {
	out := make([]Candidate, 0, len(s.Members))
	for _, m := range s.Members {
		out = append(out, Candidate{ID: m.UserID, Name: m.UserName})
	}
	return out
}

// AvailableProjects renders the project listing used in clarification prompts.
func (s Snapshot) AvailableProjects() string {
	var parts []string
	for _, p := range s.Projects {
		parts = append(parts, fmt.Sprintf("%s (%s)", p.Name, p.Key))
	}
	if len(parts) == 0 {
		return "none yet"
	}
	return strings.Join(parts, ", ")
}

// AvailableStates renders the workflow state listing for clarification prompts.
func (s Snapshot) AvailableStates() string {
	var parts []string
	for _, st := range s.States {
		parts = append(parts, st.Name)
	}
	if len(parts) == 0 {
		return "none yet"
	}
	return strings.Join(parts, ", ")
}

// AvailableMembers renders the member listing for clarification prompts.
func (s Snapshot) AvailableMembers() string {
	var parts []string
	for _, m := range s.Members {
		parts = append(parts, m.UserName)
	}
	if len(parts) == 0 {
		return "none yet"
	}
	return strings.Join(parts, ", ")
}

// AvailableLabels renders the label listing for clarification prompts.
func (s Snapshot) AvailableLabels() string {
	var parts []string
	for _, l := range s.Labels {
		parts = append(parts, l.Name)
	}
	if len(parts) == 0 {
		return "none yet"
	}
	return strings.Join(parts, ", ")
}
