/*
engine.go - Goal engine operations and event hooks

PURPOSE:
  The Engine is the only writer of goal state. It creates goals (resolving
  executors and seeding progress rows), manages the status workflow, reacts
  to coin-balance and task-approval events, and pays out rewards when a
  goal completes.

EVENT FLOW:
  ledger commit -> BalanceChanged -> re-sync coin_amount rows -> evaluate
  task approval -> TaskApproved   -> bump task/habit rows     -> evaluate

  coin_amount progress is an absolute mirror of the live balance, never an
  increment, so replays and missed events self-heal on the next change.
  task_completion progress is re-derived from the approved-assignment count
  when the task directory can provide it, falling back to a +1 increment.

COMPLETION ORDERING:
  completeGoal persists status=completed BEFORE crediting rewards, and the
  stored status is authoritative: a reward credit fires BalanceChanged
  re-entrantly and can complete sibling goals mid-loop, so the hooks
  re-read each goal before touching it and completeGoal pays out only on
  the first active -> completed transition.

PERMISSIONS:
  Parents manage any goal in their family. Children manage only goals they
  created, and can only create individual goals targeting themselves.
*/
package goals

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ironborrus-star/familycoins/coins"
	"github.com/ironborrus-star/familycoins/family"
)

// CoinLedger is the slice of the coin ledger the engine needs: reading
// live balances when seeding coin conditions and crediting rewards.
// *coins.Ledger satisfies it.
type CoinLedger interface {
	GetOrCreateBalance(ctx context.Context, userID family.UserID) (coins.Balance, error)
	Credit(ctx context.Context, userID family.UserID, amount int, txType coins.TransactionType, description string, ref coins.Reference) (coins.Transaction, coins.Balance, error)
}

// Engine coordinates goal state. All collaborators are injected; the
// engine keeps no globals.
type Engine struct {
	store   Store
	users   family.UserDirectory
	catalog family.StoreCatalog
	tasks   family.TaskDirectory
	ledger  CoinLedger
	logger  *slog.Logger
	now     func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger used for swallowed hook failures.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a goal engine. Attach it to the ledger afterwards
// (ledger.AttachListener(engine)) so coin movements drive progress.
func NewEngine(store Store, users family.UserDirectory, catalog family.StoreCatalog, tasks family.TaskDirectory, ledger CoinLedger, opts ...EngineOption) *Engine {
	e := &Engine{
		store:   store,
		users:   users,
		catalog: catalog,
		tasks:   tasks,
		ledger:  ledger,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// =============================================================================
// CREATE
// =============================================================================

// CreateGoalInput is the full goal-creation request.
type CreateGoalInput struct {
	Title       string
	Description string
	Kind        Kind
	Executor    ExecutorInput
	Conditions  []ConditionInput
	Deadline    family.Date
	RewardCoins int
	Metadata    Metadata
}

// CreateGoal validates, resolves the executor set, seeds progress rows,
// and persists the aggregate. Coin conditions start at the executor's
// live balance, so a goal can complete at creation time.
func (e *Engine) CreateGoal(ctx context.Context, actorID family.UserID, in CreateGoalInput) (*Goal, error) {
	creator, err := e.users.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}

	if in.Title == "" {
		return nil, &family.ValidationError{Rule: "title", Message: "title is required"}
	}
	if !in.Kind.Valid() {
		return nil, &family.ValidationError{
			Rule: "kind", Message: fmt.Sprintf("unknown goal kind %q", in.Kind),
		}
	}
	if in.RewardCoins < 0 {
		return nil, &family.ValidationError{
			Rule: "reward_coins", Message: "reward cannot be negative",
		}
	}
	if err := validateConditions(in.Kind, in.Conditions); err != nil {
		return nil, err
	}
	if err := validateMetadata(in.Kind, in.Metadata); err != nil {
		return nil, err
	}

	executor, err := resolveExecutor(ctx, e.users, creator, in.Executor)
	if err != nil {
		return nil, err
	}

	var targetItem family.ItemID
	if in.Kind == KindStoreItem {
		item, err := e.catalog.GetAvailableItem(ctx, in.Metadata.StoreItem.ItemID, creator.FamilyID)
		if err != nil {
			return nil, err
		}
		// Refresh the snapshot from the catalog; the client copy may be stale.
		in.Metadata.StoreItem = &StoreItemParams{
			ItemID:     item.ID,
			Name:       item.Name,
			PriceCoins: item.PriceCoins,
		}
		targetItem = item.ID
	}

	now := e.now()
	g := &Goal{
		ID:           NewGoalID(),
		FamilyID:     creator.FamilyID,
		Executor:     executor,
		Title:        in.Title,
		Description:  in.Description,
		Kind:         in.Kind,
		TargetItemID: targetItem,
		Status:       StatusActive,
		Deadline:     in.Deadline,
		RewardCoins:  in.RewardCoins,
		Metadata:     in.Metadata,
		CreatedBy:    creator.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	for _, ci := range in.Conditions {
		g.Conditions = append(g.Conditions, Condition{
			ID:             NewConditionID(),
			GoalID:         g.ID,
			Kind:           ci.Kind,
			TargetValue:    ci.TargetValue,
			TargetTaskID:   ci.TargetTaskID,
			Description:    ci.Description,
			Weight:         ci.Weight,
			StreakRequired: ci.StreakRequired,
			CreatedAt:      now,
		})
	}

	// One progress row per (condition, executor).
	for i := range g.Conditions {
		cond := &g.Conditions[i]
		for _, uid := range executor.UserIDs {
			p := Progress{
				ID:          NewProgressID(),
				GoalID:      g.ID,
				ConditionID: cond.ID,
				UserID:      uid,
				UpdatedAt:   now,
			}
			if cond.Kind == ConditionCoinAmount {
				b, err := e.ledger.GetOrCreateBalance(ctx, uid)
				if err != nil {
					return nil, err
				}
				p.CurrentValue = b.Balance
			}
			g.Progress = append(g.Progress, p)
		}
	}

	if err := e.store.CreateGoal(ctx, g); err != nil {
		return nil, err
	}

	// A coin goal may already be satisfied by the seeded balances.
	if IsComplete(g) {
		if err := e.completeGoal(ctx, g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// CreateStoreItemGoal is the convenience path for "save up for this item":
// a single coin_amount condition targeting the item's price.
func (e *Engine) CreateStoreItemGoal(ctx context.Context, actorID family.UserID, childID family.UserID, itemID family.ItemID, deadline family.Date) (*Goal, error) {
	creator, err := e.users.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	item, err := e.catalog.GetAvailableItem(ctx, itemID, creator.FamilyID)
	if err != nil {
		return nil, err
	}

	return e.CreateGoal(ctx, actorID, CreateGoalInput{
		Title: fmt.Sprintf("Save up for %s", item.Name),
		Kind:  KindStoreItem,
		Executor: ExecutorInput{
			Type:    ExecutorIndividual,
			UserIDs: []family.UserID{childID},
		},
		Conditions: []ConditionInput{{
			Kind:        ConditionCoinAmount,
			TargetValue: item.PriceCoins,
			Description: fmt.Sprintf("Save %d coins", item.PriceCoins),
			Weight:      decimal.NewFromInt(1),
		}},
		Deadline: deadline,
		Metadata: Metadata{StoreItem: &StoreItemParams{
			ItemID:     item.ID,
			Name:       item.Name,
			PriceCoins: item.PriceCoins,
		}},
	})
}

// =============================================================================
// READ
// =============================================================================

// GetGoal loads one goal, restricted to the actor's family.
func (e *Engine) GetGoal(ctx context.Context, actorID family.UserID, id GoalID) (*Goal, error) {
	actor, err := e.users.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	g, err := e.store.GetGoal(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.FamilyID != actor.FamilyID {
		return nil, &family.NotFoundError{Kind: "goal", ID: string(id)}
	}
	return g, nil
}

// ListGoals lists the actor's family's goals, optionally filtered by
// status and executor.
func (e *Engine) ListGoals(ctx context.Context, actorID family.UserID, status Status, executorID family.UserID) ([]*Goal, error) {
	actor, err := e.users.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return e.store.ListGoals(ctx, ListFilter{
		FamilyID:   actor.FamilyID,
		ExecutorID: executorID,
		Status:     status,
	})
}

// GetProgress returns the display summary for one goal.
func (e *Engine) GetProgress(ctx context.Context, actorID family.UserID, id GoalID) (Summary, error) {
	g, err := e.GetGoal(ctx, actorID, id)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(g), nil
}

// ListAchievements returns the achievement records for one goal.
func (e *Engine) ListAchievements(ctx context.Context, actorID family.UserID, id GoalID) ([]Achievement, error) {
	if _, err := e.GetGoal(ctx, actorID, id); err != nil {
		return nil, err
	}
	return e.store.ListAchievements(ctx, id)
}

// =============================================================================
// UPDATE / WORKFLOW
// =============================================================================

// UpdateGoalInput carries optional field updates; nil means unchanged.
type UpdateGoalInput struct {
	Title       *string
	Description *string
	Deadline    *family.Date
	RewardCoins *int
}

// UpdateGoal edits mutable goal fields. Completed and cancelled goals are
// frozen.
func (e *Engine) UpdateGoal(ctx context.Context, actorID family.UserID, id GoalID, in UpdateGoalInput) (*Goal, error) {
	g, err := e.authorizeManage(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if g.Status != StatusActive && g.Status != StatusPaused {
		return nil, &family.InvalidStateError{
			Entity: "goal", From: string(g.Status), To: string(g.Status),
		}
	}

	if in.Title != nil {
		if *in.Title == "" {
			return nil, &family.ValidationError{Rule: "title", Message: "title is required"}
		}
		g.Title = *in.Title
	}
	if in.Description != nil {
		g.Description = *in.Description
	}
	if in.Deadline != nil {
		g.Deadline = *in.Deadline
	}
	if in.RewardCoins != nil {
		if *in.RewardCoins < 0 {
			return nil, &family.ValidationError{
				Rule: "reward_coins", Message: "reward cannot be negative",
			}
		}
		g.RewardCoins = *in.RewardCoins
	}

	g.UpdatedAt = e.now()
	if err := e.store.UpdateGoal(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// PauseGoal suspends progress evaluation. Only active goals can pause.
func (e *Engine) PauseGoal(ctx context.Context, actorID family.UserID, id GoalID) (*Goal, error) {
	return e.transition(ctx, actorID, id, StatusActive, StatusPaused)
}

// ResumeGoal reactivates a paused goal and immediately re-evaluates it:
// coin balances may have crossed the target while paused.
func (e *Engine) ResumeGoal(ctx context.Context, actorID family.UserID, id GoalID) (*Goal, error) {
	g, err := e.transition(ctx, actorID, id, StatusPaused, StatusActive)
	if err != nil {
		return nil, err
	}
	if err := e.resyncCoinConditions(ctx, g); err != nil {
		return nil, err
	}
	if IsComplete(g) {
		if err := e.completeGoal(ctx, g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// CancelGoal terminally cancels an active or paused goal.
func (e *Engine) CancelGoal(ctx context.Context, actorID family.UserID, id GoalID) (*Goal, error) {
	g, err := e.authorizeManage(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if g.Status != StatusActive && g.Status != StatusPaused {
		return nil, &family.InvalidStateError{
			Entity: "goal", From: string(g.Status), To: string(StatusCancelled),
		}
	}
	g.Status = StatusCancelled
	g.UpdatedAt = e.now()
	if err := e.store.UpdateGoal(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// DeleteGoal removes the goal and everything under it.
func (e *Engine) DeleteGoal(ctx context.Context, actorID family.UserID, id GoalID) error {
	if _, err := e.authorizeManage(ctx, actorID, id); err != nil {
		return err
	}
	return e.store.DeleteGoal(ctx, id)
}

func (e *Engine) transition(ctx context.Context, actorID family.UserID, id GoalID, from, to Status) (*Goal, error) {
	g, err := e.authorizeManage(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if g.Status != from {
		return nil, &family.InvalidStateError{
			Entity: "goal", From: string(g.Status), To: string(to),
		}
	}
	g.Status = to
	g.UpdatedAt = e.now()
	if err := e.store.UpdateGoal(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// authorizeManage loads a goal and checks the actor may modify it.
func (e *Engine) authorizeManage(ctx context.Context, actorID family.UserID, id GoalID) (*Goal, error) {
	actor, err := e.users.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	g, err := e.store.GetGoal(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.FamilyID != actor.FamilyID {
		return nil, &family.NotFoundError{Kind: "goal", ID: string(id)}
	}
	if actor.IsChild() && g.CreatedBy != actor.ID {
		return nil, &family.ForbiddenError{Message: "children can only manage goals they created"}
	}
	return g, nil
}

// =============================================================================
// EVENT HOOKS
// =============================================================================

// BalanceChanged implements coins.BalanceListener. Every coin_amount
// condition the user participates in is re-synced to the new absolute
// balance, then the goal is evaluated.
func (e *Engine) BalanceChanged(ctx context.Context, userID family.UserID, newBalance int) error {
	active, err := e.store.ListActiveGoalsForUser(ctx, userID)
	if err != nil {
		return err
	}

	for _, listed := range active {
		// A reward credit earlier in this loop re-enters the hook and may
		// have completed goals we are still holding; re-read before writing.
		g, err := e.store.GetGoal(ctx, listed.ID)
		if err != nil {
			return err
		}
		if g.Status != StatusActive {
			continue
		}
		changed := false
		for i := range g.Conditions {
			cond := &g.Conditions[i]
			if cond.Kind != ConditionCoinAmount {
				continue
			}
			p := g.ProgressFor(cond.ID, userID)
			if p == nil || p.CurrentValue == newBalance {
				continue
			}
			p.CurrentValue = newBalance
			p.UpdatedAt = e.now()
			if err := e.store.SaveProgress(ctx, *p); err != nil {
				return err
			}
			changed = true
		}
		if changed && IsComplete(g) {
			if err := e.completeGoal(ctx, g); err != nil {
				return err
			}
		}
	}
	return nil
}

// TaskApproved advances task_completion, habit_actions, and habit_streak
// conditions for the assignment's child. No-op unless the assignment is
// in the approved state.
func (e *Engine) TaskApproved(ctx context.Context, assignmentID family.AssignmentID) error {
	ref, err := e.tasks.GetAssignment(ctx, assignmentID)
	if err != nil {
		return err
	}
	if ref.Status != family.AssignmentApproved {
		return nil
	}

	active, err := e.store.ListActiveGoalsForUser(ctx, ref.ChildID)
	if err != nil {
		return err
	}
	today := family.DateOf(e.now())

	for _, listed := range active {
		// Same re-read as BalanceChanged: completing a goal below credits
		// its reward, which can complete siblings before we reach them.
		g, err := e.store.GetGoal(ctx, listed.ID)
		if err != nil {
			return err
		}
		if g.Status != StatusActive {
			continue
		}
		changed := false
		for i := range g.Conditions {
			cond := &g.Conditions[i]
			if cond.TargetTaskID != "" && cond.TargetTaskID != ref.TaskID {
				continue
			}
			p := g.ProgressFor(cond.ID, ref.ChildID)
			if p == nil {
				continue
			}

			switch cond.Kind {
			case ConditionTaskCompletion:
				if err := e.advanceTaskCount(ctx, ref.ChildID, cond, p); err != nil {
					return err
				}
			case ConditionHabitActions:
				p.CurrentValue++
			case ConditionHabitStreak:
				if cond.StreakRequired {
					applyStreak(p, today)
				} else if !applyDailyAction(p, today) {
					continue
				}
			default:
				continue
			}

			p.UpdatedAt = e.now()
			if err := e.store.SaveProgress(ctx, *p); err != nil {
				return err
			}
			changed = true
		}
		if changed && IsComplete(g) {
			if err := e.completeGoal(ctx, g); err != nil {
				return err
			}
		}
	}
	return nil
}

// advanceTaskCount re-derives the count from the authoritative approved
// total when the task directory supports it; otherwise increments.
func (e *Engine) advanceTaskCount(ctx context.Context, childID family.UserID, cond *Condition, p *Progress) error {
	if counter, ok := e.tasks.(family.ApprovedTaskCounter); ok {
		n, err := counter.CountApprovedAssignments(ctx, childID, cond.TargetTaskID)
		if err != nil {
			return err
		}
		p.CurrentValue = n
		return nil
	}
	p.CurrentValue++
	return nil
}

// resyncCoinConditions refreshes every coin_amount row from live balances.
func (e *Engine) resyncCoinConditions(ctx context.Context, g *Goal) error {
	for i := range g.Conditions {
		cond := &g.Conditions[i]
		if cond.Kind != ConditionCoinAmount {
			continue
		}
		for _, uid := range g.Executor.UserIDs {
			p := g.ProgressFor(cond.ID, uid)
			if p == nil {
				continue
			}
			b, err := e.ledger.GetOrCreateBalance(ctx, uid)
			if err != nil {
				return err
			}
			if p.CurrentValue == b.Balance {
				continue
			}
			p.CurrentValue = b.Balance
			p.UpdatedAt = e.now()
			if err := e.store.SaveProgress(ctx, *p); err != nil {
				return err
			}
		}
	}
	return nil
}

// =============================================================================
// COMPLETION
// =============================================================================

// completeGoal marks the goal completed, then pays rewards and writes one
// achievement per executor. Status commits first: the reward credit fires
// BalanceChanged, and completed goals are invisible to the hook. The
// stored status is checked before anything else, so a caller holding a
// stale aggregate cannot complete the same goal twice.
func (e *Engine) completeGoal(ctx context.Context, g *Goal) error {
	current, err := e.store.GetGoal(ctx, g.ID)
	if err != nil {
		return err
	}
	if current.Status != StatusActive {
		return nil
	}

	now := e.now()
	g.Status = StatusCompleted
	g.CompletedAt = &now
	g.UpdatedAt = now
	if err := e.store.UpdateGoal(ctx, g); err != nil {
		return err
	}

	for _, uid := range g.Executor.UserIDs {
		if g.RewardCoins > 0 {
			_, _, err := e.ledger.Credit(ctx, uid, g.RewardCoins, coins.TxEarned,
				fmt.Sprintf("Goal completed: %s", g.Title),
				coins.Reference{Type: coins.RefGoal, ID: string(g.ID)})
			if err != nil {
				// The goal is already completed; a failed payout must not
				// unwind it. Surface in logs for manual follow-up.
				e.logger.Error("goal reward credit failed",
					"goal_id", string(g.ID),
					"user_id", string(uid),
					"reward", g.RewardCoins,
					"error", err)
				continue
			}
		}
		a := Achievement{
			ID:                NewAchievementID(),
			GoalID:            g.ID,
			ChildID:           uid,
			AchievedAt:        now,
			RewardCoinsEarned: g.RewardCoins,
			Notes:             fmt.Sprintf("Completed goal: %s", g.Title),
		}
		if err := e.store.CreateAchievement(ctx, a); err != nil {
			return err
		}
	}

	e.logger.Info("goal completed",
		"goal_id", string(g.ID),
		"kind", string(g.Kind),
		"executors", len(g.Executor.UserIDs),
		"reward", g.RewardCoins)
	return nil
}

// =============================================================================
// STATISTICS
// =============================================================================

// GetFamilyStatistics rolls up goal counts for the actor's family, with a
// per-child breakdown over the goals each child participates in.
func (e *Engine) GetFamilyStatistics(ctx context.Context, actorID family.UserID) (FamilyStatistics, error) {
	actor, err := e.users.GetUser(ctx, actorID)
	if err != nil {
		return FamilyStatistics{}, err
	}

	all, err := e.store.ListGoals(ctx, ListFilter{FamilyID: actor.FamilyID})
	if err != nil {
		return FamilyStatistics{}, err
	}

	out := FamilyStatistics{Family: tally(all)}

	members, err := e.users.ListFamilyMembers(ctx, actor.FamilyID)
	if err != nil {
		return FamilyStatistics{}, err
	}
	for _, m := range family.Children(members) {
		var mine []*Goal
		for _, g := range all {
			if g.Executor.Includes(m.ID) {
				mine = append(mine, g)
			}
		}
		out.Children = append(out.Children, ChildStatistics{
			ChildID:   m.ID,
			ChildName: m.Name,
			Stats:     tally(mine),
		})
	}
	return out, nil
}

func tally(goals []*Goal) Statistics {
	var s Statistics
	for _, g := range goals {
		s.TotalGoals++
		switch g.Status {
		case StatusActive:
			s.ActiveGoals++
		case StatusCompleted:
			s.CompletedGoals++
		case StatusPaused:
			s.PausedGoals++
		case StatusCancelled:
			s.CancelledGoals++
		}
	}
	if s.TotalGoals > 0 {
		s.CompletionRate = float64(s.CompletedGoals) / float64(s.TotalGoals) * 100
	}
	return s
}
