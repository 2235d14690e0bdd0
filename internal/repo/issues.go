package repo

import (
	"context"
	"database/sql"
	"strings"

	"doable/internal/domain"
)

const issueColumns = `id,team_id,project_id,number,title,COALESCE(description,'') AS description,state_id,priority,assignee_id,due_date,created_at,updated_at,completed_at`

func scanIssue(scan func(dest ...any) error) (domain.Issue, error) {
	var i domain.Issue
	var assigneeID, dueDate, completedAt sql.NullString
	err := scan(&i.ID, &i.TeamID, &i.ProjectID, &i.Number, &i.Title, &i.Description, &i.StateID, &i.Priority, &assigneeID, &dueDate, &i.CreatedAt, &i.UpdatedAt, &completedAt)
	if err != nil {
		return i, err
	}
	if assigneeID.Valid {
		i.AssigneeID = &assigneeID.String
	}
	if dueDate.Valid {
		i.DueDate = &dueDate.String
	}
	if completedAt.Valid {
		i.CompletedAt = &completedAt.String
	}
	return i, nil
}

// NextIssueNumber allocates the next per-team issue number inside a transaction.
func (r Repo) NextIssueNumber(ctx context.Context, tx *sql.Tx, teamID string) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(number),0)+1 FROM issues WHERE team_id=?`, teamID).Scan(&n)
	return n, err
}

func (r Repo) InsertIssue(ctx context.Context, tx *sql.Tx, i domain.Issue) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO issues(id,team_id,project_id,number,title,description,state_id,priority,assignee_id,due_date,created_at,updated_at,completed_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		i.ID, i.TeamID, i.ProjectID, i.Number, i.Title, i.Description, i.StateID, i.Priority,
		nullableStringPtr(i.AssigneeID), nullableStringPtr(i.DueDate), i.CreatedAt, i.UpdatedAt, nullableStringPtr(i.CompletedAt))
	return err
}

func (r Repo) UpdateIssue(ctx context.Context, tx *sql.Tx, i domain.Issue) error {
	res, err := tx.ExecContext(ctx, `UPDATE issues SET project_id=?, title=?, description=?, state_id=?, priority=?, assignee_id=?, due_date=?, updated_at=?, completed_at=? WHERE id=?`,
		i.ProjectID, i.Title, i.Description, i.StateID, i.Priority,
		nullableStringPtr(i.AssigneeID), nullableStringPtr(i.DueDate), i.UpdatedAt, nullableStringPtr(i.CompletedAt), i.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteIssue(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM issue_labels WHERE issue_id=?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM issues WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetIssue(ctx context.Context, id string) (domain.Issue, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+issueColumns+` FROM issues WHERE id=?`, id)
	i, err := scanIssue(row.Scan)
	if err == sql.ErrNoRows {
		return i, ErrNotFound
	}
	if err != nil {
		return i, err
	}
	labels, err := r.ListIssueLabels(ctx, i.ID)
	if err != nil {
		return i, err
	}
	i.LabelIDs = labels
	return i, nil
}

func (r Repo) GetIssueTx(ctx context.Context, tx *sql.Tx, id string) (domain.Issue, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+issueColumns+` FROM issues WHERE id=?`, id)
	i, err := scanIssue(row.Scan)
	if err == sql.ErrNoRows {
		return i, ErrNotFound
	}
	return i, err
}

func (r Repo) GetIssueByNumber(ctx context.Context, teamID string, number int) (domain.Issue, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+issueColumns+` FROM issues WHERE team_id=? AND number=?`, teamID, number)
	i, err := scanIssue(row.Scan)
	if err == sql.ErrNoRows {
		return i, ErrNotFound
	}
	if err != nil {
		return i, err
	}
	labels, err := r.ListIssueLabels(ctx, i.ID)
	if err != nil {
		return i, err
	}
	i.LabelIDs = labels
	return i, nil
}

type IssueFilters struct {
	TeamID          string
	ProjectID       string
	StateID         string
	Priority        string
	AssigneeID      string
	Limit           int
	CursorCreatedAt string
	CursorID        string
}

func (r Repo) ListIssues(ctx context.Context, f IssueFilters) ([]domain.Issue, error) {
	var clauses []string
	var args []any
	if f.TeamID != "" {
		clauses = append(clauses, "team_id=?")
		args = append(args, f.TeamID)
	}
	if f.ProjectID != "" {
		clauses = append(clauses, "project_id=?")
		args = append(args, f.ProjectID)
	}
	if f.StateID != "" {
		clauses = append(clauses, "state_id=?")
		args = append(args, f.StateID)
	}
	if f.Priority != "" {
		clauses = append(clauses, "priority=?")
		args = append(args, f.Priority)
	}
	if f.AssigneeID != "" {
		clauses = append(clauses, "assignee_id=?")
		args = append(args, f.AssigneeID)
	}
	if f.CursorCreatedAt != "" && f.CursorID != "" {
		clauses = append(clauses, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, f.CursorCreatedAt, f.CursorCreatedAt, f.CursorID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + issueColumns + ` FROM issues ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Issue
	for rows.Next() {
		i, err := scanIssue(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, i)
	}
	return res, nil
}

// FindIssuesByTitle returns issues whose title matches exactly, case-insensitively,
// falling back to substring containment when no exact match exists.
func (r Repo) FindIssuesByTitle(ctx context.Context, teamID, title string) ([]domain.Issue, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+issueColumns+` FROM issues WHERE team_id=? AND title=? COLLATE NOCASE ORDER BY number ASC`, teamID, title)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Issue
	for rows.Next() {
		i, err := scanIssue(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(res) > 0 {
		return res, nil
	}
	rows2, err := r.DB.QueryContext(ctx, `SELECT `+issueColumns+` FROM issues WHERE team_id=? AND title LIKE '%' || ? || '%' COLLATE NOCASE ORDER BY number ASC`, teamID, title)
	if err != nil {
		return nil, err
	}
	defer rows2.Close()
	for rows2.Next() {
		i, err := scanIssue(rows2.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, i)
	}
	return res, rows2.Err()
}

func (r Repo) ListIssueLabels(ctx context.Context, issueID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT label_id FROM issue_labels WHERE issue_id=?`, issueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r Repo) AddIssueLabels(ctx context.Context, tx *sql.Tx, issueID string, labelIDs []string) error {
	for _, id := range labelIDs {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO issue_labels(issue_id,label_id) VALUES (?,?)`, issueID, id); err != nil {
			return err
		}
	}
	return nil
}

func (r Repo) RemoveIssueLabels(ctx context.Context, tx *sql.Tx, issueID string, labelIDs []string) error {
	for _, id := range labelIDs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM issue_labels WHERE issue_id=? AND label_id=?`, issueID, id); err != nil {
			return err
		}
	}
	return nil
}
