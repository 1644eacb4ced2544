package sqlite

// Goal persistence: fulfils goals.Store. Goals are stored as aggregates;
// CreateGoal writes the goal, its conditions, and its progress rows in one
// transaction, and deletes cascade through foreign keys.

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ironborrus-star/familycoins/family"
	"github.com/ironborrus-star/familycoins/goals"
)

func (d *DB) CreateGoal(ctx context.Context, g *goals.Goal) error {
	executorIDs, err := json.Marshal(g.Executor.UserIDs)
	if err != nil {
		return err
	}
	metadata, err := json.Marshal(g.Metadata)
	if err != nil {
		return err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO goals (id, family_id, executor_type, executor_user_ids, title,
			description, kind, target_item_id, status, deadline, reward_coins,
			metadata, created_by, created_at, updated_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(g.ID), string(g.FamilyID), string(g.Executor.Type), string(executorIDs),
		g.Title, g.Description, string(g.Kind), string(g.TargetItemID), string(g.Status),
		dateValue(g.Deadline), g.RewardCoins, string(metadata), string(g.CreatedBy),
		g.CreatedAt, g.UpdatedAt, timeValue(g.CompletedAt))
	if err != nil {
		return err
	}

	for _, c := range g.Conditions {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO goal_conditions (id, goal_id, kind, target_value,
				target_task_id, description, weight, streak_required, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			string(c.ID), string(c.GoalID), string(c.Kind), c.TargetValue,
			string(c.TargetTaskID), c.Description, c.Weight.String(),
			c.StreakRequired, c.CreatedAt)
		if err != nil {
			return err
		}
	}

	for _, p := range g.Progress {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO goal_progress (id, goal_id, condition_id, user_id,
				current_value, streak_count, last_activity, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			string(p.ID), string(p.GoalID), string(p.ConditionID), string(p.UserID),
			p.CurrentValue, p.StreakCount, dateValue(p.LastActivity), p.UpdatedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) GetGoal(ctx context.Context, id goals.GoalID) (*goals.Goal, error) {
	row := d.db.QueryRowContext(ctx, goalSelect+` WHERE id = ?`, string(id))
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &family.NotFoundError{Kind: "goal", ID: string(id)}
	}
	if err != nil {
		return nil, err
	}
	if err := d.loadGoalChildren(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (d *DB) ListGoals(ctx context.Context, filter goals.ListFilter) ([]*goals.Goal, error) {
	query := goalSelect + ` WHERE 1=1`
	var args []any
	if filter.FamilyID != "" {
		query += ` AND family_id = ?`
		args = append(args, string(filter.FamilyID))
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*goals.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		// Executor membership lives in a JSON column; filter in Go.
		if filter.ExecutorID != "" && !g.Executor.Includes(filter.ExecutorID) {
			continue
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, g := range out {
		if err := d.loadGoalChildren(ctx, g); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (d *DB) ListActiveGoalsForUser(ctx context.Context, userID family.UserID) ([]*goals.Goal, error) {
	return d.ListGoals(ctx, goals.ListFilter{ExecutorID: userID, Status: goals.StatusActive})
}

func (d *DB) UpdateGoal(ctx context.Context, g *goals.Goal) error {
	res, err := d.db.ExecContext(ctx, `
		UPDATE goals SET title = ?, description = ?, status = ?, deadline = ?,
			reward_coins = ?, updated_at = ?, completed_at = ?
		WHERE id = ?`,
		g.Title, g.Description, string(g.Status), dateValue(g.Deadline),
		g.RewardCoins, g.UpdatedAt, timeValue(g.CompletedAt), string(g.ID))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &family.NotFoundError{Kind: "goal", ID: string(g.ID)}
	}
	return nil
}

func (d *DB) SaveProgress(ctx context.Context, p goals.Progress) error {
	res, err := d.db.ExecContext(ctx, `
		UPDATE goal_progress SET current_value = ?, streak_count = ?,
			last_activity = ?, updated_at = ?
		WHERE id = ?`,
		p.CurrentValue, p.StreakCount, dateValue(p.LastActivity), p.UpdatedAt, string(p.ID))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &family.NotFoundError{Kind: "goal_progress", ID: string(p.ID)}
	}
	return nil
}

func (d *DB) DeleteGoal(ctx context.Context, id goals.GoalID) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, string(id))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &family.NotFoundError{Kind: "goal", ID: string(id)}
	}
	return nil
}

func (d *DB) CreateAchievement(ctx context.Context, a goals.Achievement) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO goal_achievements (id, goal_id, child_id, achieved_at,
			reward_coins_earned, notes)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(a.ID), string(a.GoalID), string(a.ChildID), a.AchievedAt,
		a.RewardCoinsEarned, a.Notes)
	return err
}

func (d *DB) ListAchievements(ctx context.Context, goalID goals.GoalID) ([]goals.Achievement, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, goal_id, child_id, achieved_at, reward_coins_earned, notes
		FROM goal_achievements WHERE goal_id = ? ORDER BY achieved_at`, string(goalID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []goals.Achievement
	for rows.Next() {
		var a goals.Achievement
		var id, gid, cid string
		if err := rows.Scan(&id, &gid, &cid, &a.AchievedAt, &a.RewardCoinsEarned, &a.Notes); err != nil {
			return nil, err
		}
		a.ID = goals.AchievementID(id)
		a.GoalID = goals.GoalID(gid)
		a.ChildID = family.UserID(cid)
		out = append(out, a)
	}
	return out, rows.Err()
}

// =============================================================================
// SCANNING
// =============================================================================

const goalSelect = `
	SELECT id, family_id, executor_type, executor_user_ids, title, description,
		kind, target_item_id, status, deadline, reward_coins, metadata,
		created_by, created_at, updated_at, completed_at
	FROM goals`

func scanGoal(row rowScanner) (*goals.Goal, error) {
	var g goals.Goal
	var id, fid, execType, execIDs, kind, targetItem, status, metadata, createdBy string
	var deadline sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(&id, &fid, &execType, &execIDs, &g.Title, &g.Description,
		&kind, &targetItem, &status, &deadline, &g.RewardCoins, &metadata,
		&createdBy, &g.CreatedAt, &g.UpdatedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	g.ID = goals.GoalID(id)
	g.FamilyID = family.FamilyID(fid)
	g.Executor.Type = goals.ExecutorType(execType)
	if err := json.Unmarshal([]byte(execIDs), &g.Executor.UserIDs); err != nil {
		return nil, fmt.Errorf("goal %s: executor ids: %w", id, err)
	}
	g.Kind = goals.Kind(kind)
	g.TargetItemID = family.ItemID(targetItem)
	g.Status = goals.Status(status)
	if g.Deadline, err = scanDate(deadline); err != nil {
		return nil, fmt.Errorf("goal %s: deadline: %w", id, err)
	}
	if err := json.Unmarshal([]byte(metadata), &g.Metadata); err != nil {
		return nil, fmt.Errorf("goal %s: metadata: %w", id, err)
	}
	g.CreatedBy = family.UserID(createdBy)
	g.CompletedAt = scanTimePtr(completedAt)
	return &g, nil
}

// loadGoalChildren fills in the conditions and progress rows.
func (d *DB) loadGoalChildren(ctx context.Context, g *goals.Goal) error {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, goal_id, kind, target_value, target_task_id, description,
			weight, streak_required, created_at
		FROM goal_conditions WHERE goal_id = ? ORDER BY created_at, id`, string(g.ID))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var c goals.Condition
		var id, gid, kind, taskID, weight string
		if err := rows.Scan(&id, &gid, &kind, &c.TargetValue, &taskID,
			&c.Description, &weight, &c.StreakRequired, &c.CreatedAt); err != nil {
			return err
		}
		c.ID = goals.ConditionID(id)
		c.GoalID = goals.GoalID(gid)
		c.Kind = goals.ConditionKind(kind)
		c.TargetTaskID = family.TaskID(taskID)
		if c.Weight, err = decimal.NewFromString(weight); err != nil {
			return fmt.Errorf("condition %s: weight: %w", id, err)
		}
		g.Conditions = append(g.Conditions, c)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	prows, err := d.db.QueryContext(ctx, `
		SELECT id, goal_id, condition_id, user_id, current_value, streak_count,
			last_activity, updated_at
		FROM goal_progress WHERE goal_id = ?`, string(g.ID))
	if err != nil {
		return err
	}
	defer prows.Close()

	for prows.Next() {
		var p goals.Progress
		var id, gid, cid, uid string
		var lastActivity sql.NullString
		if err := prows.Scan(&id, &gid, &cid, &uid, &p.CurrentValue,
			&p.StreakCount, &lastActivity, &p.UpdatedAt); err != nil {
			return err
		}
		p.ID = goals.ProgressID(id)
		p.GoalID = goals.GoalID(gid)
		p.ConditionID = goals.ConditionID(cid)
		p.UserID = family.UserID(uid)
		if p.LastActivity, err = scanDate(lastActivity); err != nil {
			return fmt.Errorf("progress %s: last activity: %w", id, err)
		}
		g.Progress = append(g.Progress, p)
	}
	return prows.Err()
}
