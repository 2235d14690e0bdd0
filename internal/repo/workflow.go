package repo

import (
	"context"
	"database/sql"

	"doable/internal/domain"
)

func (r Repo) InsertWorkflowState(ctx context.Context, tx *sql.Tx, s domain.WorkflowState) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO workflow_states(id,team_id,name,type,color,position) VALUES (?,?,?,?,?,?)`,
		s.ID, s.TeamID, s.Name, s.Type, s.Color, s.Position)
	return err
}

func (r Repo) GetWorkflowState(ctx context.Context, id string) (domain.WorkflowState, error) {
	var s domain.WorkflowState
	err := r.DB.QueryRowContext(ctx, `SELECT id,team_id,name,type,COALESCE(color,''),position FROM workflow_states WHERE id=?`, id).
		Scan(&s.ID, &s.TeamID, &s.Name, &s.Type, &s.Color, &s.Position)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	return s, err
}

func (r Repo) ListWorkflowStates(ctx context.Context, teamID string) ([]domain.WorkflowState, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,team_id,name,type,COALESCE(color,''),position FROM workflow_states WHERE team_id=? ORDER BY position ASC, name ASC`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.WorkflowState
	for rows.Next() {
		var s domain.WorkflowState
		if err := rows.Scan(&s.ID, &s.TeamID, &s.Name, &s.Type, &s.Color, &s.Position); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, nil
}

func (r Repo) UpdateWorkflowState(ctx context.Context, tx *sql.Tx, s domain.WorkflowState) error {
	res, err := tx.ExecContext(ctx, `UPDATE workflow_states SET name=?, type=?, color=?, position=? WHERE id=?`,
		s.Name, s.Type, s.Color, s.Position, s.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteWorkflowState(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM workflow_states WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) InsertLabel(ctx context.Context, tx *sql.Tx, l domain.Label) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO labels(id,team_id,name,color) VALUES (?,?,?,?)`,
		l.ID, l.TeamID, l.Name, l.Color)
	return err
}

func (r Repo) GetLabel(ctx context.Context, id string) (domain.Label, error) {
	var l domain.Label
	err := r.DB.QueryRowContext(ctx, `SELECT id,team_id,name,COALESCE(color,'') FROM labels WHERE id=?`, id).
		Scan(&l.ID, &l.TeamID, &l.Name, &l.Color)
	if err == sql.ErrNoRows {
		return l, ErrNotFound
	}
	return l, err
}

func (r Repo) ListLabels(ctx context.Context, teamID string) ([]domain.Label, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,team_id,name,COALESCE(color,'') FROM labels WHERE team_id=? ORDER BY name ASC`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Label
	for rows.Next() {
		var l domain.Label
		if err := rows.Scan(&l.ID, &l.TeamID, &l.Name, &l.Color); err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, nil
}

func (r Repo) DeleteLabel(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM issue_labels WHERE label_id=?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM labels WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
