package engine

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"doable/internal/domain"
	"doable/internal/events"
	"doable/internal/repo"
)

// ValidEmail reports whether the address parses and is long enough to be real.
func ValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if len(email) < 5 {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email
}

// MemberAddOptions are parameters for adding a member directly.
type MemberAddOptions struct {
	TeamID   string
	UserID   string
	UserName string
	Email    string
	Role     string
	ActorID  string
}

func (e Engine) AddMember(ctx context.Context, opts MemberAddOptions) (domain.Member, error) {
	if strings.TrimSpace(opts.UserID) == "" {
		return domain.Member{}, errors.New("user id is required")
	}
	if opts.Role == "" {
		opts.Role = e.Config.InviteRole()
	}
	if !validRoles[opts.Role] {
		return domain.Member{}, fmt.Errorf("invalid role %q", opts.Role)
	}
	if _, err := e.Repo.GetTeam(ctx, opts.TeamID); err != nil {
		return domain.Member{}, err
	}
	m := domain.Member{
		TeamID:   opts.TeamID,
		UserID:   opts.UserID,
		UserName: opts.UserName,
		Email:    opts.Email,
		Role:     opts.Role,
		JoinedAt: e.now().UTC().Format(time.RFC3339),
	}
	if m.UserName == "" {
		m.UserName = m.UserID
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Member{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertMember(ctx, tx, m); err != nil {
		return domain.Member{}, err
	}
	if err := e.Events.Append(ctx, tx, "member.added", m.TeamID, "member", m.UserID, opts.ActorID, events.EventPayload{"user_name": m.UserName, "role": m.Role}); err != nil {
		return domain.Member{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Member{}, err
	}
	return m, nil
}

func (e Engine) UpdateMemberRole(ctx context.Context, teamID, userID, role, actorID string) (domain.Member, error) {
	if !validRoles[role] {
		return domain.Member{}, fmt.Errorf("invalid role %q", role)
	}
	m, err := e.Repo.GetMember(ctx, teamID, userID)
	if err != nil {
		return domain.Member{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Member{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateMemberRole(ctx, tx, teamID, userID, role); err != nil {
		return domain.Member{}, err
	}
	m.Role = role
	if err := e.Events.Append(ctx, tx, "member.updated", teamID, "member", userID, actorID, events.EventPayload{"role": role}); err != nil {
		return domain.Member{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Member{}, err
	}
	return m, nil
}

func (e Engine) RemoveMember(ctx context.Context, teamID, userID, actorID string) error {
	m, err := e.Repo.GetMember(ctx, teamID, userID)
	if err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Repo.DeleteMember(ctx, tx, teamID, userID); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "member.removed", teamID, "member", userID, actorID, events.EventPayload{"user_name": m.UserName}); err != nil {
		return err
	}
	return tx.Commit()
}

// InviteOptions are parameters for inviting someone by email.
type InviteOptions struct {
	TeamID  string
	Email   string
	Role    string
	ActorID string
}

func (e Engine) InviteMember(ctx context.Context, opts InviteOptions) (domain.Invitation, error) {
	if !ValidEmail(opts.Email) {
		return domain.Invitation{}, fmt.Errorf("invalid email address %q", opts.Email)
	}
	if opts.Role == "" {
		opts.Role = e.Config.InviteRole()
	}
	if !validRoles[opts.Role] {
		return domain.Invitation{}, fmt.Errorf("invalid role %q", opts.Role)
	}
	if _, err := e.Repo.GetTeam(ctx, opts.TeamID); err != nil {
		return domain.Invitation{}, err
	}
	if existing, err := e.Repo.PendingInvitationByEmail(ctx, opts.TeamID, opts.Email); err == nil {
		return domain.Invitation{}, fmt.Errorf("invitation %s already pending for %s", existing.ID, opts.Email)
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.Invitation{}, err
	}
	now := e.now().UTC()
	inv := domain.Invitation{
		ID:        newID(),
		TeamID:    opts.TeamID,
		Email:     opts.Email,
		Role:      opts.Role,
		Status:    "pending",
		InvitedBy: opts.ActorID,
		CreatedAt: now.Format(time.RFC3339),
		ExpiresAt: now.AddDate(0, 0, e.Config.InviteExpiryDays()).Format(time.RFC3339),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Invitation{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertInvitation(ctx, tx, inv); err != nil {
		return domain.Invitation{}, err
	}
	if err := e.Events.Append(ctx, tx, "invitation.created", inv.TeamID, "invitation", inv.ID, opts.ActorID, events.EventPayload{"email": inv.Email, "role": inv.Role}); err != nil {
		return domain.Invitation{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Invitation{}, err
	}
	return inv, nil
}

func (e Engine) RevokeInvitation(ctx context.Context, invitationID, actorID string) error {
	inv, err := e.Repo.GetInvitation(ctx, invitationID)
	if err != nil {
		return err
	}
	if inv.Status != "pending" {
		return fmt.Errorf("invitation is %s, not pending", inv.Status)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateInvitationStatus(ctx, tx, invitationID, "revoked"); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "invitation.revoked", inv.TeamID, "invitation", inv.ID, actorID, events.EventPayload{"email": inv.Email}); err != nil {
		return err
	}
	return tx.Commit()
}

// AcceptInvitation marks a pending invitation accepted and adds the member
// in the same transaction.
func (e Engine) AcceptInvitation(ctx context.Context, invitationID, userID, userName string) (domain.Member, error) {
	inv, err := e.Repo.GetInvitation(ctx, invitationID)
	if err != nil {
		return domain.Member{}, err
	}
	if inv.Status != "pending" {
		return domain.Member{}, fmt.Errorf("invitation is %s, not pending", inv.Status)
	}
	expires, err := time.Parse(time.RFC3339, inv.ExpiresAt)
	if err == nil && e.now().UTC().After(expires) {
		tx, err := e.DB.BeginTx(ctx, nil)
		if err != nil {
			return domain.Member{}, err
		}
		defer tx.Rollback()
		if err := e.Repo.UpdateInvitationStatus(ctx, tx, inv.ID, "expired"); err != nil {
			return domain.Member{}, err
		}
		if err := tx.Commit(); err != nil {
			return domain.Member{}, err
		}
		return domain.Member{}, fmt.Errorf("invitation expired at %s", inv.ExpiresAt)
	}
	m := domain.Member{
		TeamID:   inv.TeamID,
		UserID:   userID,
		UserName: userName,
		Email:    inv.Email,
		Role:     inv.Role,
		JoinedAt: e.now().UTC().Format(time.RFC3339),
	}
	if m.UserName == "" {
		m.UserName = userID
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Member{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateInvitationStatus(ctx, tx, inv.ID, "accepted"); err != nil {
		return domain.Member{}, err
	}
	if err := e.Repo.InsertMember(ctx, tx, m); err != nil {
		return domain.Member{}, err
	}
	if err := e.Events.Append(ctx, tx, "invitation.accepted", inv.TeamID, "invitation", inv.ID, userID, events.EventPayload{"email": inv.Email}); err != nil {
		return domain.Member{}, err
	}
	if err := e.Events.Append(ctx, tx, "member.added", inv.TeamID, "member", userID, userID, events.EventPayload{"user_name": m.UserName, "role": m.Role}); err != nil {
		return domain.Member{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Member{}, err
	}
	return m, nil
}
