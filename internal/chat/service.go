package chat

import (
	"context"

	"doable/internal/engine"
)

// Service runs one tool call end to end: load a fresh snapshot, validate
// and resolve the draft, dispatch the mutation. Every returned error is
// one of the typed errors in this package; its message is safe to relay
// to the user verbatim.
type Service struct {
	Engine engine.Engine
}

func (s Service) snapshot(ctx context.Context, teamID string) (Snapshot, error) {
	snap, err := LoadSnapshot(ctx, s.Engine.Repo, teamID)
	if err != nil {
		return Snapshot{}, &StoreError{Op: "load team context", Err: err}
	}
	return snap, nil
}

func (s Service) dispatcher(snap Snapshot, actorID string) Dispatcher {
	return Dispatcher{Engine: s.Engine, Snapshot: snap, ActorID: actorID}
}

func (s Service) CreateIssue(ctx context.Context, teamID, actorID string, d CreateIssueDraft) (Result, error) {
	snap, err := s.snapshot(ctx, teamID)
	if err != nil {
		return Result{}, err
	}
	cmd, err := Validator{Snapshot: snap}.CreateIssue(d)
	if err != nil {
		return Result{}, err
	}
	return s.dispatcher(snap, actorID).CreateIssue(ctx, cmd)
}

func (s Service) UpdateIssue(ctx context.Context, teamID, actorID string, d UpdateIssueDraft) (Result, error) {
	snap, err := s.snapshot(ctx, teamID)
	if err != nil {
		return Result{}, err
	}
	cmd, err := Validator{Snapshot: snap}.UpdateIssue(d)
	if err != nil {
		return Result{}, err
	}
	return s.dispatcher(snap, actorID).UpdateIssue(ctx, cmd)
}

func (s Service) DeleteIssue(ctx context.Context, teamID, actorID string, d DeleteIssueDraft) (Result, error) {
	snap, err := s.snapshot(ctx, teamID)
	if err != nil {
		return Result{}, err
	}
	cmd, err := Validator{Snapshot: snap}.DeleteIssue(d)
	if err != nil {
		return Result{}, err
	}
	return s.dispatcher(snap, actorID).DeleteIssue(ctx, cmd)
}

func (s Service) CreateProject(ctx context.Context, teamID, actorID string, d CreateProjectDraft) (Result, error) {
	snap, err := s.snapshot(ctx, teamID)
	if err != nil {
		return Result{}, err
	}
	cmd, err := Validator{Snapshot: snap}.CreateProject(d)
	if err != nil {
		return Result{}, err
	}
	return s.dispatcher(snap, actorID).CreateProject(ctx, cmd)
}

func (s Service) UpdateProject(ctx context.Context, teamID, actorID string, d UpdateProjectDraft) (Result, error) {
	snap, err := s.snapshot(ctx, teamID)
	if err != nil {
		return Result{}, err
	}
	cmd, err := Validator{Snapshot: snap}.UpdateProject(d)
	if err != nil {
		return Result{}, err
	}
	return s.dispatcher(snap, actorID).UpdateProject(ctx, cmd)
}

func (s Service) DeleteProject(ctx context.Context, teamID, actorID string, d DeleteProjectDraft) (Result, error) {
	snap, err := s.snapshot(ctx, teamID)
	if err != nil {
		return Result{}, err
	}
	cmd, err := Validator{Snapshot: snap}.DeleteProject(d)
	if err != nil {
		return Result{}, err
	}
	return s.dispatcher(snap, actorID).DeleteProject(ctx, cmd)
}

func (s Service) InviteMember(ctx context.Context, teamID, actorID string, d InviteMemberDraft) (Result, error) {
	snap, err := s.snapshot(ctx, teamID)
	if err != nil {
		return Result{}, err
	}
	cmd, err := Validator{Snapshot: snap}.InviteMember(d)
	if err != nil {
		return Result{}, err
	}
	return s.dispatcher(snap, actorID).InviteMember(ctx, cmd)
}

func (s Service) RemoveMember(ctx context.Context, teamID, actorID string, d RemoveMemberDraft) (Result, error) {
	snap, err := s.snapshot(ctx, teamID)
	if err != nil {
		return Result{}, err
	}
	cmd, err := Validator{Snapshot: snap}.RemoveMember(d)
	if err != nil {
		return Result{}, err
	}
	return s.dispatcher(snap, actorID).RemoveMember(ctx, cmd)
}

func (s Service) RevokeInvitation(ctx context.Context, teamID, actorID string, d RevokeInvitationDraft) (Result, error) {
	snap, err := s.snapshot(ctx, teamID)
	if err != nil {
		return Result{}, err
	}
	cmd, err := Validator{Snapshot: snap}.RevokeInvitation(d)
	if err != nil {
		return Result{}, err
	}
	return s.dispatcher(snap, actorID).RevokeInvitation(ctx, cmd)
}
