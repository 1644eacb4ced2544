/*
validate.go - Goal creation validation

PURPOSE:
  Executor resolution and the validation rules applied when a goal is
  created. Conditions are immutable after creation, so everything checked
  here stays true for the goal's lifetime.

RULES:
  - individual: exactly one executor; children may only target themselves
  - multiple_children: at least two executors, all children, same family
  - all_children / all_parents: resolved from membership, must be non-empty
  - whole_family: every member
  - every condition: non-empty description handled by kind defaults,
    target >= 1, weight in [0,1]
  - mixed goals: weights must sum to 1.0 within a 0.01 tolerance
  - store_item goals: target item must exist, belong to the family, and
    be available
  - habit goals: positive actions count and period value
*/
package goals

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ironborrus-star/familycoins/family"
)

// weightSumTolerance allows for client-side rounding when mixed-goal
// weights are entered as e.g. 0.33/0.33/0.34.
var weightSumTolerance = decimal.NewFromFloat(0.01)

// ExecutorInput is the caller's executor selection before resolution.
type ExecutorInput struct {
	Type    ExecutorType
	UserIDs []family.UserID // required for individual and multiple_children
}

// ConditionInput is one requested condition.
type ConditionInput struct {
	Kind           ConditionKind
	TargetValue    int
	TargetTaskID   family.TaskID
	Description    string
	Weight         decimal.Decimal
	StreakRequired bool
}

// =============================================================================
// EXECUTOR RESOLUTION
// =============================================================================

// resolveExecutor turns the caller's selection into a concrete user set,
// enforcing role and membership rules. creator is the authenticated user
// creating the goal.
func resolveExecutor(ctx context.Context, users family.UserDirectory, creator family.User, in ExecutorInput) (Executor, error) {
	switch in.Type {
	case ExecutorIndividual:
		if len(in.UserIDs) != 1 {
			return Executor{}, &family.ValidationError{
				Rule:    "executor_arity",
				Message: "individual goals need exactly one executor",
			}
		}
		target, err := users.GetUser(ctx, in.UserIDs[0])
		if err != nil {
			return Executor{}, err
		}
		if target.FamilyID != creator.FamilyID {
			return Executor{}, &family.ForbiddenError{Message: "executor is not in your family"}
		}
		if creator.IsChild() && target.ID != creator.ID {
			return Executor{}, &family.ForbiddenError{Message: "children can only create goals for themselves"}
		}
		return Executor{Type: in.Type, UserIDs: []family.UserID{target.ID}}, nil

	case ExecutorMultipleChildren:
		if len(in.UserIDs) < 2 {
			return Executor{}, &family.ValidationError{
				Rule:    "executor_arity",
				Message: "multiple_children goals need at least two executors",
			}
		}
		seen := make(map[family.UserID]bool, len(in.UserIDs))
		resolved := make([]family.UserID, 0, len(in.UserIDs))
		for _, id := range in.UserIDs {
			if seen[id] {
				return Executor{}, &family.ValidationError{
					Rule:    "executor_duplicate",
					Message: fmt.Sprintf("duplicate executor %s", id),
				}
			}
			seen[id] = true
			u, err := users.GetUser(ctx, id)
			if err != nil {
				return Executor{}, err
			}
			if u.FamilyID != creator.FamilyID {
				return Executor{}, &family.ForbiddenError{Message: "executor is not in your family"}
			}
			if !u.IsChild() {
				return Executor{}, &family.ValidationError{
					Rule:    "executor_role",
					Message: fmt.Sprintf("user %s is not a child", id),
				}
			}
			resolved = append(resolved, u.ID)
		}
		return Executor{Type: in.Type, UserIDs: resolved}, nil

	case ExecutorAllChildren, ExecutorAllParents, ExecutorWholeFamily:
		members, err := users.ListFamilyMembers(ctx, creator.FamilyID)
		if err != nil {
			return Executor{}, err
		}
		switch in.Type {
		case ExecutorAllChildren:
			members = family.Children(members)
		case ExecutorAllParents:
			members = family.Parents(members)
		}
		if len(members) == 0 {
			return Executor{}, &family.ValidationError{
				Rule:    "executor_empty",
				Message: fmt.Sprintf("no members match executor type %s", in.Type),
			}
		}
		resolved := make([]family.UserID, len(members))
		for i, m := range members {
			resolved[i] = m.ID
		}
		return Executor{Type: in.Type, UserIDs: resolved}, nil
	}

	return Executor{}, &family.ValidationError{
		Rule:    "executor_type",
		Message: fmt.Sprintf("unknown executor type %q", in.Type),
	}
}

// =============================================================================
// CONDITION VALIDATION
// =============================================================================

// validateConditions applies per-condition rules plus the mixed-goal
// weight-sum rule.
func validateConditions(kind Kind, conds []ConditionInput) error {
	if len(conds) == 0 {
		return &family.ValidationError{
			Rule:    "conditions_empty",
			Message: "a goal needs at least one condition",
		}
	}

	weightSum := decimal.Zero
	for i, c := range conds {
		if !c.Kind.Valid() {
			return &family.ValidationError{
				Rule:    "condition_kind",
				Message: fmt.Sprintf("condition %d: unknown kind %q", i, c.Kind),
			}
		}
		if c.TargetValue < 1 {
			return &family.ValidationError{
				Rule:    "target_value",
				Message: fmt.Sprintf("condition %d: target must be at least 1", i),
			}
		}
		if c.Weight.IsNegative() || c.Weight.GreaterThan(decimalOne) {
			return &family.ValidationError{
				Rule:    "weight_range",
				Message: fmt.Sprintf("condition %d: weight must be between 0 and 1", i),
			}
		}
		weightSum = weightSum.Add(c.Weight)
	}

	if kind == KindMixed {
		if weightSum.Sub(decimalOne).Abs().GreaterThan(weightSumTolerance) {
			return &family.ValidationError{
				Rule:    "weight_sum",
				Message: fmt.Sprintf("mixed goal weights must sum to 1.0, got %s", weightSum),
			}
		}
	}
	return nil
}

// =============================================================================
// METADATA VALIDATION
// =============================================================================

// validateMetadata checks that the kind-specific variant is present and
// well-formed, and that no foreign variant is set.
func validateMetadata(kind Kind, md Metadata) error {
	switch kind {
	case KindHabitBuilding:
		if md.Habit == nil {
			return &family.ValidationError{
				Rule:    "metadata_habit",
				Message: "habit goals need habit parameters",
			}
		}
		if md.StoreItem != nil {
			return &family.ValidationError{
				Rule:    "metadata_variant",
				Message: "habit goals cannot carry store-item parameters",
			}
		}
		h := md.Habit
		if h.ActionsCount <= 0 {
			return &family.ValidationError{
				Rule:    "habit_actions",
				Message: "habit actions count must be positive",
			}
		}
		if h.PeriodValue <= 0 {
			return &family.ValidationError{
				Rule:    "habit_period",
				Message: "habit period value must be positive",
			}
		}
		switch h.PeriodUnit {
		case PeriodDays, PeriodWeeks, PeriodMonths:
		default:
			return &family.ValidationError{
				Rule:    "habit_period_unit",
				Message: fmt.Sprintf("unknown period unit %q", h.PeriodUnit),
			}
		}
		if h.RewardType == RewardStoreItem && h.RewardItemID == "" {
			return &family.ValidationError{
				Rule:    "habit_reward_item",
				Message: "store-item rewards need an item id",
			}
		}

	case KindStoreItem:
		if md.StoreItem == nil {
			return &family.ValidationError{
				Rule:    "metadata_store_item",
				Message: "store-item goals need an item snapshot",
			}
		}
		if md.Habit != nil {
			return &family.ValidationError{
				Rule:    "metadata_variant",
				Message: "store-item goals cannot carry habit parameters",
			}
		}

	default:
		if md.Habit != nil || md.StoreItem != nil {
			return &family.ValidationError{
				Rule:    "metadata_variant",
				Message: fmt.Sprintf("%s goals carry no metadata", kind),
			}
		}
	}
	return nil
}
