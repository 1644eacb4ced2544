package sqlite

// Task persistence: fulfils tasks.Store.

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ironborrus-star/familycoins/family"
	"github.com/ironborrus-star/familycoins/tasks"
)

func (d *DB) CreateTask(ctx context.Context, t tasks.Task) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO tasks (id, family_id, title, description, reward_coins,
			status, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(t.ID), string(t.FamilyID), t.Title, t.Description, t.RewardCoins,
		string(t.Status), string(t.CreatedBy), t.CreatedAt, t.UpdatedAt)
	return err
}

func (d *DB) GetTask(ctx context.Context, id family.TaskID) (tasks.Task, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, family_id, title, description, reward_coins, status,
			created_by, created_at, updated_at
		FROM tasks WHERE id = ?`, string(id))

	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tasks.Task{}, &family.NotFoundError{Kind: "task", ID: string(id)}
	}
	return t, err
}

func (d *DB) ListTasks(ctx context.Context, familyID family.FamilyID, status tasks.TaskStatus) ([]tasks.Task, error) {
	query := `
		SELECT id, family_id, title, description, reward_coins, status,
			created_by, created_at, updated_at
		FROM tasks WHERE family_id = ?`
	args := []any{string(familyID)}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tasks.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (d *DB) UpdateTask(ctx context.Context, t tasks.Task) error {
	res, err := d.db.ExecContext(ctx, `
		UPDATE tasks SET title = ?, description = ?, reward_coins = ?,
			status = ?, updated_at = ?
		WHERE id = ?`,
		t.Title, t.Description, t.RewardCoins, string(t.Status), t.UpdatedAt, string(t.ID))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &family.NotFoundError{Kind: "task", ID: string(t.ID)}
	}
	return nil
}

func scanTask(row rowScanner) (tasks.Task, error) {
	var t tasks.Task
	var id, fid, status, createdBy string
	err := row.Scan(&id, &fid, &t.Title, &t.Description, &t.RewardCoins,
		&status, &createdBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return tasks.Task{}, err
	}
	t.ID = family.TaskID(id)
	t.FamilyID = family.FamilyID(fid)
	t.Status = tasks.TaskStatus(status)
	t.CreatedBy = family.UserID(createdBy)
	return t, nil
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

func (d *DB) CreateAssignment(ctx context.Context, a tasks.Assignment) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO task_assignments (id, task_id, child_id, status, proof,
			coins_earned, assigned_at, completed_at, reviewed_at, reviewed_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(a.ID), string(a.TaskID), string(a.ChildID), string(a.Status),
		a.Proof, a.CoinsEarned, a.AssignedAt, timeValue(a.CompletedAt),
		timeValue(a.ReviewedAt), string(a.ReviewedBy))
	return err
}

func (d *DB) GetAssignment(ctx context.Context, id family.AssignmentID) (tasks.Assignment, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, task_id, child_id, status, proof, coins_earned,
			assigned_at, completed_at, reviewed_at, reviewed_by
		FROM task_assignments WHERE id = ?`, string(id))

	a, err := scanAssignment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tasks.Assignment{}, &family.NotFoundError{Kind: "assignment", ID: string(id)}
	}
	return a, err
}

func (d *DB) ListAssignments(ctx context.Context, filter tasks.AssignmentFilter) ([]tasks.Assignment, error) {
	query := `
		SELECT id, task_id, child_id, status, proof, coins_earned,
			assigned_at, completed_at, reviewed_at, reviewed_by
		FROM task_assignments WHERE 1=1`
	var args []any
	if filter.TaskID != "" {
		query += ` AND task_id = ?`
		args = append(args, string(filter.TaskID))
	}
	if filter.ChildID != "" {
		query += ` AND child_id = ?`
		args = append(args, string(filter.ChildID))
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY assigned_at DESC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tasks.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (d *DB) UpdateAssignment(ctx context.Context, a tasks.Assignment) error {
	res, err := d.db.ExecContext(ctx, `
		UPDATE task_assignments SET status = ?, proof = ?, coins_earned = ?,
			completed_at = ?, reviewed_at = ?, reviewed_by = ?
		WHERE id = ?`,
		string(a.Status), a.Proof, a.CoinsEarned, timeValue(a.CompletedAt),
		timeValue(a.ReviewedAt), string(a.ReviewedBy), string(a.ID))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &family.NotFoundError{Kind: "assignment", ID: string(a.ID)}
	}
	return nil
}

func (d *DB) CountApprovedAssignments(ctx context.Context, childID family.UserID, taskID family.TaskID) (int, error) {
	query := `SELECT COUNT(*) FROM task_assignments WHERE child_id = ? AND status = ?`
	args := []any{string(childID), string(family.AssignmentApproved)}
	if taskID != "" {
		query += ` AND task_id = ?`
		args = append(args, string(taskID))
	}
	var n int
	err := d.db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

func scanAssignment(row rowScanner) (tasks.Assignment, error) {
	var a tasks.Assignment
	var id, taskID, childID, status, reviewedBy string
	var completedAt, reviewedAt sql.NullTime
	err := row.Scan(&id, &taskID, &childID, &status, &a.Proof, &a.CoinsEarned,
		&a.AssignedAt, &completedAt, &reviewedAt, &reviewedBy)
	if err != nil {
		return tasks.Assignment{}, err
	}
	a.ID = family.AssignmentID(id)
	a.TaskID = family.TaskID(taskID)
	a.ChildID = family.UserID(childID)
	a.Status = family.AssignmentStatus(status)
	a.CompletedAt = scanTimePtr(completedAt)
	a.ReviewedAt = scanTimePtr(reviewedAt)
	a.ReviewedBy = family.UserID(reviewedBy)
	return a, nil
}
