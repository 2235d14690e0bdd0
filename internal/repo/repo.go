package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"doable/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}

func (r Repo) InsertTeam(ctx context.Context, tx *sql.Tx, t domain.Team) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO teams(id,name,key,created_at) VALUES (?,?,?,?)`,
		t.ID, t.Name, t.Key, t.CreatedAt)
	return err
}

func (r Repo) GetTeam(ctx context.Context, id string) (domain.Team, error) {
	var t domain.Team
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,key,created_at FROM teams WHERE id=?`, id).
		Scan(&t.ID, &t.Name, &t.Key, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

func (r Repo) ListTeams(ctx context.Context) ([]domain.Team, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,key,created_at FROM teams ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Team
	for rows.Next() {
		var t domain.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.Key, &t.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, nil
}

const projectColumns = `id,team_id,name,key,COALESCE(description,'') AS description,COALESCE(color,'') AS color,status,created_at,updated_at`

func scanProjectRow(rows *sql.Rows) (domain.Project, error) {
	var p domain.Project
	err := rows.Scan(&p.ID, &p.TeamID, &p.Name, &p.Key, &p.Description, &p.Color, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r Repo) InsertProject(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO projects(id,team_id,name,key,description,color,status,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		p.ID, p.TeamID, p.Name, p.Key, p.Description, p.Color, p.Status, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r Repo) GetProject(ctx context.Context, id string) (domain.Project, error) {
	var p domain.Project
	err := r.DB.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=?`, id).
		Scan(&p.ID, &p.TeamID, &p.Name, &p.Key, &p.Description, &p.Color, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

func (r Repo) GetProjectByKey(ctx context.Context, teamID, key string) (domain.Project, error) {
	var p domain.Project
	err := r.DB.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE team_id=? AND key=?`, teamID, key).
		Scan(&p.ID, &p.TeamID, &p.Name, &p.Key, &p.Description, &p.Color, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

type ProjectFilters struct {
	TeamID          string
	Status          string
	Limit           int
	CursorCreatedAt string
	CursorID        string
}

func (r Repo) ListProjects(ctx context.Context, f ProjectFilters) ([]domain.Project, error) {
	var clauses []string
	var args []any
	if f.TeamID != "" {
		clauses = append(clauses, "team_id=?")
		args = append(args, f.TeamID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.CursorCreatedAt != "" && f.CursorID != "" {
		clauses = append(clauses, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, f.CursorCreatedAt, f.CursorCreatedAt, f.CursorID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + projectColumns + ` FROM projects ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Project
	for rows.Next() {
		p, err := scanProjectRow(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, nil
}

// FindProjectsByName returns projects whose name matches exactly, case-insensitively.
func (r Repo) FindProjectsByName(ctx context.Context, teamID, name string) ([]domain.Project, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE team_id=? AND name=? COLLATE NOCASE ORDER BY created_at DESC`, teamID, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Project
	for rows.Next() {
		p, err := scanProjectRow(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, nil
}

func (r Repo) UpdateProject(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	res, err := tx.ExecContext(ctx, `UPDATE projects SET name=?, key=?, description=?, color=?, status=?, updated_at=? WHERE id=?`,
		p.Name, p.Key, p.Description, p.Color, p.Status, p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteProject(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) CountIssuesByProject(ctx context.Context, teamID string) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT project_id, count(*) FROM issues WHERE team_id=? GROUP BY project_id`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]int{}
	for rows.Next() {
		var projectID string
		var count int
		if err := rows.Scan(&projectID, &count); err != nil {
			return nil, err
		}
		res[projectID] = count
	}
	return res, nil
}

func (r Repo) CountIssuesByState(ctx context.Context, teamID string) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT state_id, count(*) FROM issues WHERE team_id=? GROUP BY state_id`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]int{}
	for rows.Next() {
		var stateID string
		var count int
		if err := rows.Scan(&stateID, &count); err != nil {
			return nil, err
		}
		res[stateID] = count
	}
	return res, nil
}
