package goals

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ironborrus-star/familycoins/family"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

func w(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

// buildGoal assembles an aggregate with one progress row per
// (condition, executor) pair, all starting at zero.
func buildGoal(kind Kind, executors []family.UserID, conds []Condition) *Goal {
	g := &Goal{
		ID:       NewGoalID(),
		Kind:     kind,
		Status:   StatusActive,
		Executor: Executor{Type: ExecutorIndividual, UserIDs: executors},
	}
	for i := range conds {
		conds[i].ID = NewConditionID()
		conds[i].GoalID = g.ID
		g.Conditions = append(g.Conditions, conds[i])
	}
	for i := range g.Conditions {
		for _, uid := range executors {
			g.Progress = append(g.Progress, Progress{
				ID:          NewProgressID(),
				GoalID:      g.ID,
				ConditionID: g.Conditions[i].ID,
				UserID:      uid,
			})
		}
	}
	return g
}

func setProgress(g *Goal, condIdx int, uid family.UserID, value int) {
	p := g.ProgressFor(g.Conditions[condIdx].ID, uid)
	p.CurrentValue = value
}

// =============================================================================
// COMPLETION - NON-MIXED (AND of thresholds)
// =============================================================================

func TestIsComplete_SingleCondition(t *testing.T) {
	uid := family.UserID("child-1")
	g := buildGoal(KindCoinSaving, []family.UserID{uid}, []Condition{
		{Kind: ConditionCoinAmount, TargetValue: 100, Weight: w(1)},
	})

	// GIVEN: Progress below the target
	setProgress(g, 0, uid, 99)
	if IsComplete(g) {
		t.Fatal("99/100 should not be complete")
	}

	// WHEN: Progress reaches the target
	setProgress(g, 0, uid, 100)
	if !IsComplete(g) {
		t.Fatal("100/100 should be complete")
	}

	// THEN: Overshoot stays complete
	setProgress(g, 0, uid, 150)
	if !IsComplete(g) {
		t.Fatal("150/100 should be complete")
	}
}

func TestIsComplete_NonMixed_RequiresEveryCondition(t *testing.T) {
	uid := family.UserID("child-1")
	g := buildGoal(KindHabitBuilding, []family.UserID{uid}, []Condition{
		{Kind: ConditionTaskCompletion, TargetValue: 5, Weight: w(0.5)},
		{Kind: ConditionHabitStreak, TargetValue: 7, Weight: w(0.5)},
	})

	// One condition massively overshot, the other short: not complete.
	// Weights play no role outside mixed goals.
	setProgress(g, 0, uid, 50)
	setProgress(g, 1, uid, 6)
	if IsComplete(g) {
		t.Fatal("overshoot on one condition must not compensate another")
	}

	setProgress(g, 1, uid, 7)
	if !IsComplete(g) {
		t.Fatal("both conditions at target should complete")
	}
}

func TestIsComplete_GroupGoal_RequiresEveryExecutor(t *testing.T) {
	a, b := family.UserID("child-a"), family.UserID("child-b")
	g := buildGoal(KindCoinSaving, []family.UserID{a, b}, []Condition{
		{Kind: ConditionCoinAmount, TargetValue: 50, Weight: w(1)},
	})
	g.Executor.Type = ExecutorMultipleChildren

	setProgress(g, 0, a, 50)
	setProgress(g, 0, b, 49)
	if IsComplete(g) {
		t.Fatal("goal must wait for every executor")
	}

	setProgress(g, 0, b, 50)
	if !IsComplete(g) {
		t.Fatal("all executors at target should complete")
	}
}

func TestIsComplete_NoExecutors_NeverCompletes(t *testing.T) {
	g := buildGoal(KindCoinSaving, nil, []Condition{
		{Kind: ConditionCoinAmount, TargetValue: 1, Weight: w(1)},
	})
	if IsComplete(g) {
		t.Fatal("a goal with no executors cannot complete")
	}
}

// =============================================================================
// COMPLETION - MIXED (weighted sum)
// =============================================================================

func TestIsComplete_Mixed_WeightedSumReachesOne(t *testing.T) {
	uid := family.UserID("child-1")
	g := buildGoal(KindMixed, []family.UserID{uid}, []Condition{
		{Kind: ConditionCoinAmount, TargetValue: 100, Weight: w(0.6)},
		{Kind: ConditionTaskCompletion, TargetValue: 10, Weight: w(0.4)},
	})

	// GIVEN: 100% of a 0.6-weight condition and 75% of a 0.4-weight one
	setProgress(g, 0, uid, 100)
	setProgress(g, 1, uid, 7) // 0.6 + 0.28 = 0.88
	if IsComplete(g) {
		t.Fatal("0.88 weighted sum should not complete")
	}

	// WHEN: The second condition also reaches 100%
	setProgress(g, 1, uid, 10)
	if !IsComplete(g) {
		t.Fatal("1.0 weighted sum should complete")
	}
}

func TestIsComplete_Mixed_FractionCapsAtOne(t *testing.T) {
	// Overshoot on one condition cannot drag the weighted sum over 1.0
	// while another condition is still at zero.
	uid := family.UserID("child-1")
	g := buildGoal(KindMixed, []family.UserID{uid}, []Condition{
		{Kind: ConditionCoinAmount, TargetValue: 10, Weight: w(0.5)},
		{Kind: ConditionTaskCompletion, TargetValue: 10, Weight: w(0.5)},
	})

	setProgress(g, 0, uid, 1000) // capped to fraction 1.0 -> contributes 0.5
	if IsComplete(g) {
		t.Fatal("capped fraction must not complete a half-finished mixed goal")
	}
}

func TestIsComplete_Mixed_ExactDecimalArithmetic(t *testing.T) {
	// 0.1 + 0.2 + 0.7 at full progress must be exactly 1.0, which float64
	// arithmetic famously gets wrong.
	uid := family.UserID("child-1")
	g := buildGoal(KindMixed, []family.UserID{uid}, []Condition{
		{Kind: ConditionCoinAmount, TargetValue: 10, Weight: w(0.1)},
		{Kind: ConditionTaskCompletion, TargetValue: 10, Weight: w(0.2)},
		{Kind: ConditionHabitActions, TargetValue: 10, Weight: w(0.7)},
	})
	for i := range g.Conditions {
		setProgress(g, i, uid, 10)
	}
	if !IsComplete(g) {
		t.Fatal("weights 0.1+0.2+0.7 at full progress must complete")
	}
}

// =============================================================================
// SUMMARY PERCENTAGES
// =============================================================================

func TestSummarize_PercentagesCapAt100(t *testing.T) {
	uid := family.UserID("child-1")
	g := buildGoal(KindCoinSaving, []family.UserID{uid}, []Condition{
		{Kind: ConditionCoinAmount, TargetValue: 100, Description: "save coins", Weight: w(1)},
	})
	setProgress(g, 0, uid, 250)

	s := Summarize(g)
	if got := s.Conditions[0].Percentage; got != 100 {
		t.Fatalf("condition percentage = %v, want 100", got)
	}
	if s.Overall != 100 {
		t.Fatalf("overall = %v, want 100", s.Overall)
	}
}

func TestSummarize_GroupGoal_ReportsMinimumExecutor(t *testing.T) {
	a, b := family.UserID("child-a"), family.UserID("child-b")
	g := buildGoal(KindCoinSaving, []family.UserID{a, b}, []Condition{
		{Kind: ConditionCoinAmount, TargetValue: 100, Weight: w(1)},
	})
	setProgress(g, 0, a, 80)
	setProgress(g, 0, b, 20)

	s := Summarize(g)
	if got := s.Conditions[0].CurrentValue; got != 20 {
		t.Fatalf("group progress value = %d, want the slowest executor's 20", got)
	}
	if got := s.Conditions[0].Percentage; got != 20 {
		t.Fatalf("group percentage = %v, want 20", got)
	}
}

func TestSummarize_WeightedOverall(t *testing.T) {
	uid := family.UserID("child-1")
	g := buildGoal(KindMixed, []family.UserID{uid}, []Condition{
		{Kind: ConditionCoinAmount, TargetValue: 100, Weight: w(0.5)},
		{Kind: ConditionTaskCompletion, TargetValue: 10, Weight: w(0.5)},
	})
	setProgress(g, 0, uid, 50) // 50% * 0.5 = 25
	setProgress(g, 1, uid, 10) // 100% * 0.5 = 50

	s := Summarize(g)
	if s.Overall != 75 {
		t.Fatalf("overall = %v, want 75", s.Overall)
	}
}

// =============================================================================
// STREAK ALGORITHM
// =============================================================================

func day(y int, m time.Month, d int) family.Date { return family.NewDate(y, m, d) }

func TestApplyStreak_FirstActivityStartsAtOne(t *testing.T) {
	p := &Progress{}
	applyStreak(p, day(2026, 3, 10))

	if p.StreakCount != 1 || p.CurrentValue != 1 {
		t.Fatalf("streak=%d current=%d, want 1/1", p.StreakCount, p.CurrentValue)
	}
	if !p.LastActivity.Equal(day(2026, 3, 10)) {
		t.Fatal("last activity should be today")
	}
}

func TestApplyStreak_ConsecutiveDaysExtend(t *testing.T) {
	p := &Progress{}
	applyStreak(p, day(2026, 3, 10))
	applyStreak(p, day(2026, 3, 11))
	applyStreak(p, day(2026, 3, 12))

	if p.StreakCount != 3 {
		t.Fatalf("streak = %d, want 3", p.StreakCount)
	}
}

func TestApplyStreak_SameDayIsIdempotent(t *testing.T) {
	p := &Progress{}
	applyStreak(p, day(2026, 3, 10))
	applyStreak(p, day(2026, 3, 10))
	applyStreak(p, day(2026, 3, 10))

	if p.StreakCount != 1 {
		t.Fatalf("streak = %d after repeated same-day activity, want 1", p.StreakCount)
	}
}

func TestApplyStreak_GapResetsToOne(t *testing.T) {
	// GIVEN: A 5-day streak ending March 10
	p := &Progress{StreakCount: 5, CurrentValue: 5, LastActivity: day(2026, 3, 10)}

	// WHEN: The next activity is March 13 (two days skipped)
	applyStreak(p, day(2026, 3, 13))

	// THEN: The streak restarts at 1, not 0
	if p.StreakCount != 1 || p.CurrentValue != 1 {
		t.Fatalf("streak=%d current=%d after gap, want 1/1", p.StreakCount, p.CurrentValue)
	}
}

func TestApplyStreak_MonthBoundary(t *testing.T) {
	p := &Progress{StreakCount: 2, CurrentValue: 2, LastActivity: day(2026, 2, 28)}
	applyStreak(p, day(2026, 3, 1))

	if p.StreakCount != 3 {
		t.Fatalf("streak = %d across month boundary, want 3", p.StreakCount)
	}
}

// =============================================================================
// DISTINCT-DAY COUNTER
// =============================================================================

func TestApplyDailyAction_CountsDistinctDays(t *testing.T) {
	p := &Progress{}

	if !applyDailyAction(p, day(2026, 3, 10)) {
		t.Fatal("first activity of the day should count")
	}
	if applyDailyAction(p, day(2026, 3, 10)) {
		t.Fatal("second activity same day should not count")
	}
	if !applyDailyAction(p, day(2026, 3, 15)) {
		t.Fatal("a later day should count even after a gap")
	}
	if p.CurrentValue != 2 {
		t.Fatalf("current = %d, want 2 distinct days", p.CurrentValue)
	}
}
