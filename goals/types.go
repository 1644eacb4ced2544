/*
Package goals provides the goal-progress engine.

PURPOSE:
  Goals describe what a family member (or group) is working toward: saving
  coins, buying a store item, building a habit, or a weighted mix of
  conditions. The engine keeps per-condition progress consistent as coin
  balances and task approvals change, decides completion, and pays out
  rewards through the ledger.

KEY CONCEPTS IN THIS FILE (types.go):
  - Goal: The aggregate - status, executor set, conditions, progress rows
  - Condition: One measurable requirement (coin threshold, task count, streak)
  - Progress: Live value of one condition for one executor
  - Achievement: Written exactly once per completion per executor
  - Metadata: Tagged variants (habit params, store-item snapshot) selected
    by goal kind and validated at construction - never an opaque blob

EXECUTORS:
  A goal applies to a resolved set of family members. The executor type
  records how the set was selected (one person, several children, all
  children, all parents, the whole family); the resolved user ids are
  stored on the goal so later membership changes don't move the goalposts.

COMPLETION:
  Mixed goals complete when the weighted sum of per-condition fractional
  progress reaches 1.0. Every other kind completes when each condition
  meets its target. Group goals require every executor to satisfy the
  conditions. See progress.go.

SEE ALSO:
  - engine.go: Operations and event hooks
  - progress.go: Completion evaluation and streak algorithm
  - validate.go: Creation-time validation rules
*/
package goals

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ironborrus-star/familycoins/family"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type (
	GoalID        string
	ConditionID   string
	ProgressID    string
	AchievementID string
)

func NewGoalID() GoalID               { return GoalID(uuid.NewString()) }
func NewConditionID() ConditionID     { return ConditionID(uuid.NewString()) }
func NewProgressID() ProgressID       { return ProgressID(uuid.NewString()) }
func NewAchievementID() AchievementID { return AchievementID(uuid.NewString()) }

// =============================================================================
// ENUMS
// =============================================================================

// Kind classifies what a goal is about.
type Kind string

const (
	KindCoinSaving    Kind = "coin_saving"
	KindStoreItem     Kind = "store_item"
	KindHabitBuilding Kind = "habit_building"
	KindMixed         Kind = "mixed"
)

func (k Kind) Valid() bool {
	switch k {
	case KindCoinSaving, KindStoreItem, KindHabitBuilding, KindMixed:
		return true
	}
	return false
}

// Status is the goal workflow state. Transitions are monotonic except
// active <-> paused.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusPaused    Status = "paused"
	StatusCancelled Status = "cancelled"
)

// ExecutorType records how the participant set was selected.
type ExecutorType string

const (
	ExecutorIndividual       ExecutorType = "individual"
	ExecutorMultipleChildren ExecutorType = "multiple_children"
	ExecutorAllChildren      ExecutorType = "all_children"
	ExecutorAllParents       ExecutorType = "all_parents"
	ExecutorWholeFamily      ExecutorType = "whole_family"
)

// ConditionKind classifies one measurable requirement.
type ConditionKind string

const (
	ConditionCoinAmount     ConditionKind = "coin_amount"
	ConditionTaskCompletion ConditionKind = "task_completion"
	ConditionHabitStreak    ConditionKind = "habit_streak"
	ConditionHabitActions   ConditionKind = "habit_actions"
	ConditionCustom         ConditionKind = "custom"
)

func (k ConditionKind) Valid() bool {
	switch k {
	case ConditionCoinAmount, ConditionTaskCompletion, ConditionHabitStreak,
		ConditionHabitActions, ConditionCustom:
		return true
	}
	return false
}

// =============================================================================
// EXECUTOR
// =============================================================================

// Executor is the resolved participant set of a goal. For individual and
// multiple_children selections UserIDs comes from the caller; for the
// all_* and whole_family selections it is resolved from family membership
// at creation time.
type Executor struct {
	Type    ExecutorType
	UserIDs []family.UserID
}

// Includes reports whether the user participates in this goal.
func (e Executor) Includes(id family.UserID) bool {
	for _, uid := range e.UserIDs {
		if uid == id {
			return true
		}
	}
	return false
}

// =============================================================================
// CONDITION
// =============================================================================

// Condition is one measurable requirement within a goal.
type Condition struct {
	ID             ConditionID
	GoalID         GoalID
	Kind           ConditionKind
	TargetValue    int           // >= 1
	TargetTaskID   family.TaskID // optional; empty = any task (wildcard)
	Description    string
	Weight         decimal.Decimal // in [0,1]; mixed goals must sum to 1.0
	StreakRequired bool
	CreatedAt      time.Time
}

// =============================================================================
// PROGRESS
// =============================================================================

// Progress is the live value of one condition for one executor.
// CurrentValue only decreases on streak resets and coin re-syncs from the
// authoritative balance.
type Progress struct {
	ID           ProgressID
	GoalID       GoalID
	ConditionID  ConditionID
	UserID       family.UserID
	CurrentValue int
	StreakCount  int
	LastActivity family.Date
	UpdatedAt    time.Time
}

// =============================================================================
// ACHIEVEMENT
// =============================================================================

// Achievement records a completed goal for one executor, exactly once.
type Achievement struct {
	ID                AchievementID
	GoalID            GoalID
	ChildID           family.UserID
	AchievedAt        time.Time
	RewardCoinsEarned int
	Notes             string
}

// =============================================================================
// METADATA - Tagged variants selected by goal kind
// =============================================================================

// PeriodUnit measures habit periods.
type PeriodUnit string

const (
	PeriodDays   PeriodUnit = "days"
	PeriodWeeks  PeriodUnit = "weeks"
	PeriodMonths PeriodUnit = "months"
)

// RewardType names what a habit pays out.
type RewardType string

const (
	RewardCoins     RewardType = "coins"
	RewardBadge     RewardType = "badge"
	RewardStoreItem RewardType = "store_item"
)

// HabitParams describes a habit-building goal. Required for
// KindHabitBuilding, forbidden otherwise.
type HabitParams struct {
	Name           string
	Description    string
	ActionsCount   int // > 0
	PeriodValue    int // > 0
	PeriodUnit     PeriodUnit
	StreakRequired bool
	RewardType     RewardType
	RewardValue    int
	RewardItemID   family.ItemID // when RewardType == RewardStoreItem
	StartDate      family.Date
	EndDate        family.Date
}

// StoreItemParams snapshots the targeted catalog item. Required for
// KindStoreItem, forbidden otherwise. The snapshot keeps the goal stable
// if the item is later repriced or removed.
type StoreItemParams struct {
	ItemID     family.ItemID
	Name       string
	PriceCoins int
}

// Metadata holds the kind-specific variant. At most one field is set,
// matching the goal kind; validated at construction.
type Metadata struct {
	Habit     *HabitParams
	StoreItem *StoreItemParams
}

// =============================================================================
// GOAL - Aggregate root
// =============================================================================

// Goal owns its conditions, progress rows, and achievements
// (cascade-deleted with the goal).
type Goal struct {
	ID           GoalID
	FamilyID     family.FamilyID
	Executor     Executor
	Title        string
	Description  string
	Kind         Kind
	TargetItemID family.ItemID // set for store-item goals
	Status       Status
	Deadline     family.Date // zero = no deadline
	RewardCoins  int
	Metadata     Metadata
	CreatedBy    family.UserID
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time

	Conditions []Condition
	Progress   []Progress
}

// ProgressFor returns the progress row for one (condition, executor) pair.
func (g *Goal) ProgressFor(condID ConditionID, userID family.UserID) *Progress {
	for i := range g.Progress {
		if g.Progress[i].ConditionID == condID && g.Progress[i].UserID == userID {
			return &g.Progress[i]
		}
	}
	return nil
}

// =============================================================================
// STATISTICS
// =============================================================================

// Statistics aggregates goal counts by status.
type Statistics struct {
	TotalGoals     int
	ActiveGoals    int
	CompletedGoals int
	PausedGoals    int
	CancelledGoals int
	CompletionRate float64 // percent of total
}

// ChildStatistics is one child's slice of the family statistics.
type ChildStatistics struct {
	ChildID   family.UserID
	ChildName string
	Stats     Statistics
}

// FamilyStatistics is the family-wide rollup plus per-child breakdown.
type FamilyStatistics struct {
	Family   Statistics
	Children []ChildStatistics
}
