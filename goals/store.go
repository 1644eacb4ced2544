/*
store.go - Persistence interface for goal aggregates

PURPOSE:
  Defines the interface between the goal engine and the database. Goals are
  stored as aggregates: CreateGoal persists the goal, its conditions, and
  its progress rows atomically; DeleteGoal cascades to conditions, progress,
  and achievements.

IMPLEMENTATIONS:
  - storage/sqlite: Production SQLite with foreign-key cascade
  - storage/memory: In-memory for tests and dev
*/
package goals

import (
	"context"

	"github.com/ironborrus-star/familycoins/family"
)

// ListFilter narrows a goal listing. Zero-valued fields match everything.
type ListFilter struct {
	FamilyID   family.FamilyID
	ExecutorID family.UserID // goals where this user is in the executor set
	Status     Status
}

// Store persists goal aggregates.
type Store interface {
	// CreateGoal persists a goal with its conditions and progress rows
	// atomically: either the whole aggregate commits or none of it does.
	CreateGoal(ctx context.Context, g *Goal) error

	// GetGoal loads a full aggregate (conditions + progress), or
	// NotFoundError.
	GetGoal(ctx context.Context, id GoalID) (*Goal, error)

	// ListGoals returns aggregates matching the filter, newest first.
	ListGoals(ctx context.Context, filter ListFilter) ([]*Goal, error)

	// ListActiveGoalsForUser returns active goals where the user is an
	// executor. Hot path for the event hooks.
	ListActiveGoalsForUser(ctx context.Context, userID family.UserID) ([]*Goal, error)

	// UpdateGoal updates the goal row's own fields (title, status,
	// deadline, reward, timestamps). Conditions are immutable after
	// creation; progress is updated through SaveProgress.
	UpdateGoal(ctx context.Context, g *Goal) error

	// SaveProgress updates one progress row.
	SaveProgress(ctx context.Context, p Progress) error

	// DeleteGoal removes the goal and cascades to conditions, progress,
	// and achievements.
	DeleteGoal(ctx context.Context, id GoalID) error

	// CreateAchievement appends one achievement record.
	CreateAchievement(ctx context.Context, a Achievement) error

	// ListAchievements returns achievements for a goal.
	ListAchievements(ctx context.Context, goalID GoalID) ([]Achievement, error)
}
