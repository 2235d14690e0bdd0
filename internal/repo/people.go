package repo

import (
	"context"
	"database/sql"

	"doable/internal/domain"
)

func (r Repo) InsertMember(ctx context.Context, tx *sql.Tx, m domain.Member) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO members(team_id,user_id,user_name,email,role,joined_at) VALUES (?,?,?,?,?,?)`,
		m.TeamID, m.UserID, m.UserName, m.Email, m.Role, m.JoinedAt)
	return err
}

func (r Repo) GetMember(ctx context.Context, teamID, userID string) (domain.Member, error) {
	var m domain.Member
	err := r.DB.QueryRowContext(ctx, `SELECT team_id,user_id,user_name,COALESCE(email,''),role,joined_at FROM members WHERE team_id=? AND user_id=?`, teamID, userID).
		Scan(&m.TeamID, &m.UserID, &m.UserName, &m.Email, &m.Role, &m.JoinedAt)
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	return m, err
}

func (r Repo) ListMembers(ctx context.Context, teamID string) ([]domain.Member, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT team_id,user_id,user_name,COALESCE(email,''),role,joined_at FROM members WHERE team_id=? ORDER BY joined_at ASC, user_id ASC`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Member
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.TeamID, &m.UserID, &m.UserName, &m.Email, &m.Role, &m.JoinedAt); err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, nil
}

func (r Repo) UpdateMemberRole(ctx context.Context, tx *sql.Tx, teamID, userID, role string) error {
	res, err := tx.ExecContext(ctx, `UPDATE members SET role=? WHERE team_id=? AND user_id=?`, role, teamID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteMember(ctx context.Context, tx *sql.Tx, teamID, userID string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM members WHERE team_id=? AND user_id=?`, teamID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) InsertInvitation(ctx context.Context, tx *sql.Tx, inv domain.Invitation) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO invitations(id,team_id,email,role,status,invited_by,created_at,expires_at) VALUES (?,?,?,?,?,?,?,?)`,
		inv.ID, inv.TeamID, inv.Email, inv.Role, inv.Status, inv.InvitedBy, inv.CreatedAt, inv.ExpiresAt)
	return err
}

func (r Repo) GetInvitation(ctx context.Context, id string) (domain.Invitation, error) {
	var inv domain.Invitation
	err := r.DB.QueryRowContext(ctx, `SELECT id,team_id,email,role,status,invited_by,created_at,expires_at FROM invitations WHERE id=?`, id).
		Scan(&inv.ID, &inv.TeamID, &inv.Email, &inv.Role, &inv.Status, &inv.InvitedBy, &inv.CreatedAt, &inv.ExpiresAt)
	if err == sql.ErrNoRows {
		return inv, ErrNotFound
	}
	return inv, err
}

func (r Repo) ListInvitations(ctx context.Context, teamID, status string) ([]domain.Invitation, error) {
	query := `SELECT id,team_id,email,role,status,invited_by,created_at,expires_at FROM invitations WHERE team_id=?`
	args := []any{teamID}
	if status != "" {
		query += ` AND status=?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Invitation
	for rows.Next() {
		var inv domain.Invitation
		if err := rows.Scan(&inv.ID, &inv.TeamID, &inv.Email, &inv.Role, &inv.Status, &inv.InvitedBy, &inv.CreatedAt, &inv.ExpiresAt); err != nil {
			return nil, err
		}
		res = append(res, inv)
	}
	return res, nil
}

// PendingInvitationByEmail returns the pending invitation for an email, if any.
func (r Repo) PendingInvitationByEmail(ctx context.Context, teamID, email string) (domain.Invitation, error) {
	var inv domain.Invitation
	err := r.DB.QueryRowContext(ctx, `SELECT id,team_id,email,role,status,invited_by,created_at,expires_at FROM invitations WHERE team_id=? AND email=? COLLATE NOCASE AND status='pending' LIMIT 1`, teamID, email).
		Scan(&inv.ID, &inv.TeamID, &inv.Email, &inv.Role, &inv.Status, &inv.InvitedBy, &inv.CreatedAt, &inv.ExpiresAt)
	if err == sql.ErrNoRows {
		return inv, ErrNotFound
	}
	return inv, err
}

func (r Repo) UpdateInvitationStatus(ctx context.Context, tx *sql.Tx, id, status string) error {
	res, err := tx.ExecContext(ctx, `UPDATE invitations SET status=? WHERE id=?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
