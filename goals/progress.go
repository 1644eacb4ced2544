/*
progress.go - Completion evaluation, percentages, and the streak algorithm

PURPOSE:
  Pure functions over a goal aggregate. The engine mutates progress rows
  and then asks these functions whether the goal is done and how far along
  it is.

COMPLETION RULES:
  mixed:      sum over conditions of min(1, current/target) * weight >= 1.0
  all others: every condition's current_value >= target_value

  Group goals evaluate per executor; the goal completes only when every
  executor satisfies the rule. A missing progress row counts as zero.

PERCENTAGES:
  Per-condition percentage = min(100, current/target * 100). The goal-level
  percentage is the weight-blended sum capped at 100. For non-mixed kinds
  the blended figure is display-only; real completion is the condition-wise
  AND above.

WEIGHTS:
  Weights are decimals, not floats. 0.1 + 0.2 + 0.7 must equal exactly 1.0
  when a parent types it in, so the arithmetic here never rounds.
*/
package goals

import (
	"github.com/shopspring/decimal"

	"github.com/ironborrus-star/familycoins/family"
)

var (
	decimalOne     = decimal.NewFromInt(1)
	decimalHundred = decimal.NewFromInt(100)
)

// =============================================================================
// COMPLETION EVALUATION
// =============================================================================

// IsComplete reports whether every executor satisfies the goal's
// completion rule.
func IsComplete(g *Goal) bool {
	for _, uid := range g.Executor.UserIDs {
		if !executorComplete(g, uid) {
			return false
		}
	}
	return len(g.Executor.UserIDs) > 0
}

func executorComplete(g *Goal, userID family.UserID) bool {
	if g.Kind == KindMixed {
		return weightedFraction(g, userID).GreaterThanOrEqual(decimalOne)
	}
	for i := range g.Conditions {
		cond := &g.Conditions[i]
		p := g.ProgressFor(cond.ID, userID)
		if p == nil || p.CurrentValue < cond.TargetValue {
			return false
		}
	}
	return true
}

// weightedFraction is the weighted sum of per-condition fractional
// progress for one executor, uncapped.
func weightedFraction(g *Goal, userID family.UserID) decimal.Decimal {
	total := decimal.Zero
	for i := range g.Conditions {
		cond := &g.Conditions[i]
		p := g.ProgressFor(cond.ID, userID)
		value := 0
		if p != nil {
			value = p.CurrentValue
		}
		total = total.Add(conditionFraction(cond, value).Mul(cond.Weight))
	}
	return total
}

// conditionFraction is min(1, current/target).
func conditionFraction(cond *Condition, current int) decimal.Decimal {
	if cond.TargetValue <= 0 {
		return decimal.Zero
	}
	f := decimal.NewFromInt(int64(current)).Div(decimal.NewFromInt(int64(cond.TargetValue)))
	if f.GreaterThan(decimalOne) {
		return decimalOne
	}
	return f
}

// =============================================================================
// PROGRESS SUMMARY
// =============================================================================

// ConditionProgress is the display view of one condition's progress.
// For group goals the reported value is the minimum across executors,
// consistent with the every-executor completion rule.
type ConditionProgress struct {
	ConditionID  ConditionID
	Description  string
	CurrentValue int
	TargetValue  int
	Percentage   float64
}

// Summary is the display view of a whole goal's progress.
type Summary struct {
	GoalID      GoalID
	Overall     float64 // weight-blended percentage, capped at 100
	Conditions  []ConditionProgress
	IsCompleted bool
}

// Summarize computes the display summary for a goal aggregate.
func Summarize(g *Goal) Summary {
	s := Summary{GoalID: g.ID, IsCompleted: g.Status == StatusCompleted}

	overall := decimal.Zero
	for i := range g.Conditions {
		cond := &g.Conditions[i]
		value := minExecutorValue(g, cond)
		pct := conditionFraction(cond, value).Mul(decimalHundred)
		s.Conditions = append(s.Conditions, ConditionProgress{
			ConditionID:  cond.ID,
			Description:  cond.Description,
			CurrentValue: value,
			TargetValue:  cond.TargetValue,
			Percentage:   pctFloat(pct),
		})
		overall = overall.Add(pct.Mul(cond.Weight))
	}
	if overall.GreaterThan(decimalHundred) {
		overall = decimalHundred
	}
	s.Overall = pctFloat(overall)
	return s
}

// minExecutorValue returns the smallest current value across executors.
func minExecutorValue(g *Goal, cond *Condition) int {
	lowest := 0
	for i, uid := range g.Executor.UserIDs {
		value := 0
		if p := g.ProgressFor(cond.ID, uid); p != nil {
			value = p.CurrentValue
		}
		if i == 0 || value < lowest {
			lowest = value
		}
	}
	return lowest
}

func pctFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// =============================================================================
// STREAK ALGORITHM
// =============================================================================

// applyStreak advances a streak progress row for activity on today.
// Idempotent within a day; consecutive days extend the streak; a gap
// resets it to 1.
func applyStreak(p *Progress, today family.Date) {
	switch {
	case p.LastActivity.Equal(today.AddDays(-1)):
		p.StreakCount++
	case !p.LastActivity.Equal(today):
		p.StreakCount = 1
	}
	// Already recorded today: streak count unchanged.
	p.CurrentValue = p.StreakCount
	p.LastActivity = today
}

// applyDailyAction counts distinct activity days for habit_streak
// conditions that don't require consecutive days. Idempotent within a day.
func applyDailyAction(p *Progress, today family.Date) bool {
	if p.LastActivity.Equal(today) {
		return false
	}
	p.CurrentValue++
	p.LastActivity = today
	return true
}
