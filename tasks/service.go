/*
service.go - Task lifecycle operations

PURPOSE:
  Creating tasks with assignments, the complete/approve/reject workflow,
  and the approval-time coin credit. The service also fulfils the
  assignment-lookup contracts the goal engine consumes.

APPROVAL ORDERING:
  approve persists status=approved, then credits the ledger, then fires
  the approval hook. The credit and the hook are both downstream of the
  committed approval, so a crash between steps leaves an approved
  assignment whose coins can be granted manually, never phantom coins.
*/
package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ironborrus-star/familycoins/coins"
	"github.com/ironborrus-star/familycoins/family"
)

// CoinLedger is the slice of the ledger the task service needs.
// *coins.Ledger satisfies it.
type CoinLedger interface {
	Credit(ctx context.Context, userID family.UserID, amount int, txType coins.TransactionType, description string, ref coins.Reference) (coins.Transaction, coins.Balance, error)
}

// Service coordinates task state.
type Service struct {
	store    Store
	users    family.UserDirectory
	ledger   CoinLedger
	listener ApprovalListener
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for swallowed hook failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a task service with a no-op approval listener. Wire
// the goal engine in afterwards with AttachListener.
func NewService(store Store, users family.UserDirectory, ledger CoinLedger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		users:    users,
		ledger:   ledger,
		listener: NopApprovalListener{},
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AttachListener replaces the approval listener. Passing nil restores the
// no-op.
func (s *Service) AttachListener(l ApprovalListener) {
	if l == nil {
		l = NopApprovalListener{}
	}
	s.listener = l
}

// =============================================================================
// TASK DEFINITIONS
// =============================================================================

// CreateTaskInput is a task-creation request.
type CreateTaskInput struct {
	Title       string
	Description string
	RewardCoins int
	AssigneeIDs []family.UserID
}

// CreateTask creates a task and one assignment per assignee. Parent-only;
// every assignee must be a child of the parent's family.
func (s *Service) CreateTask(ctx context.Context, actorID family.UserID, in CreateTaskInput) (Task, []Assignment, error) {
	actor, err := s.users.GetUser(ctx, actorID)
	if err != nil {
		return Task{}, nil, err
	}
	if !actor.IsParent() {
		return Task{}, nil, &family.ForbiddenError{Message: "only parents can create tasks"}
	}
	if in.Title == "" {
		return Task{}, nil, &family.ValidationError{Rule: "title", Message: "title is required"}
	}
	if in.RewardCoins < 0 {
		return Task{}, nil, &family.ValidationError{
			Rule: "reward_coins", Message: "reward cannot be negative",
		}
	}

	assignees := make([]family.User, 0, len(in.AssigneeIDs))
	for _, id := range in.AssigneeIDs {
		u, err := s.users.GetUser(ctx, id)
		if err != nil {
			return Task{}, nil, err
		}
		if u.FamilyID != actor.FamilyID {
			return Task{}, nil, &family.ForbiddenError{Message: "assignee is not in your family"}
		}
		if !u.IsChild() {
			return Task{}, nil, &family.ValidationError{
				Rule: "assignee_role", Message: fmt.Sprintf("user %s is not a child", id),
			}
		}
		assignees = append(assignees, u)
	}

	now := s.now()
	t := Task{
		ID:          family.NewTaskID(),
		FamilyID:    actor.FamilyID,
		Title:       in.Title,
		Description: in.Description,
		RewardCoins: in.RewardCoins,
		Status:      TaskActive,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateTask(ctx, t); err != nil {
		return Task{}, nil, err
	}

	var created []Assignment
	for _, child := range assignees {
		a := Assignment{
			ID:         family.NewAssignmentID(),
			TaskID:     t.ID,
			ChildID:    child.ID,
			Status:     family.AssignmentAssigned,
			AssignedAt: now,
		}
		if err := s.store.CreateAssignment(ctx, a); err != nil {
			return Task{}, nil, err
		}
		created = append(created, a)
	}
	return t, created, nil
}

// GetTask returns one task, restricted to the actor's family.
func (s *Service) GetTask(ctx context.Context, actorID family.UserID, id family.TaskID) (Task, error) {
	actor, err := s.users.GetUser(ctx, actorID)
	if err != nil {
		return Task{}, err
	}
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return Task{}, err
	}
	if t.FamilyID != actor.FamilyID {
		return Task{}, &family.NotFoundError{Kind: "task", ID: string(id)}
	}
	return t, nil
}

// ListTasks lists the actor's family's tasks, optionally by status.
func (s *Service) ListTasks(ctx context.Context, actorID family.UserID, status TaskStatus) ([]Task, error) {
	actor, err := s.users.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return s.store.ListTasks(ctx, actor.FamilyID, status)
}

// SetTaskStatus moves a task between active, paused, and archived.
// Archived is terminal. Parent-only.
func (s *Service) SetTaskStatus(ctx context.Context, actorID family.UserID, id family.TaskID, status TaskStatus) (Task, error) {
	actor, err := s.users.GetUser(ctx, actorID)
	if err != nil {
		return Task{}, err
	}
	if !actor.IsParent() {
		return Task{}, &family.ForbiddenError{Message: "only parents can manage tasks"}
	}
	t, err := s.GetTask(ctx, actorID, id)
	if err != nil {
		return Task{}, err
	}
	switch status {
	case TaskActive, TaskPaused, TaskArchived:
	default:
		return Task{}, &family.ValidationError{
			Rule: "task_status", Message: fmt.Sprintf("unknown status %q", status),
		}
	}
	if t.Status == TaskArchived {
		return Task{}, &family.InvalidStateError{
			Entity: "task", From: string(t.Status), To: string(status),
		}
	}
	t.Status = status
	t.UpdatedAt = s.now()
	if err := s.store.UpdateTask(ctx, t); err != nil {
		return Task{}, err
	}
	return t, nil
}

// =============================================================================
// ASSIGNMENT WORKFLOW
// =============================================================================

// ListAssignments lists assignments in the actor's family. Children see
// only their own.
func (s *Service) ListAssignments(ctx context.Context, actorID family.UserID, filter AssignmentFilter) ([]Assignment, error) {
	actor, err := s.users.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor.IsChild() {
		filter.ChildID = actor.ID
	}
	out, err := s.store.ListAssignments(ctx, filter)
	if err != nil {
		return nil, err
	}
	// Drop assignments whose task belongs to another family.
	filtered := out[:0]
	for _, a := range out {
		t, err := s.store.GetTask(ctx, a.TaskID)
		if err != nil {
			return nil, err
		}
		if t.FamilyID == actor.FamilyID {
			filtered = append(filtered, a)
		}
	}
	return filtered, nil
}

// CompleteAssignment lets the assigned child mark the work done.
func (s *Service) CompleteAssignment(ctx context.Context, actorID family.UserID, id family.AssignmentID, proof string) (Assignment, error) {
	a, err := s.store.GetAssignment(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	if a.ChildID != actorID {
		return Assignment{}, &family.ForbiddenError{Message: "only the assigned child can complete this"}
	}
	if a.Status != family.AssignmentAssigned {
		return Assignment{}, &family.InvalidStateError{
			Entity: "assignment", From: string(a.Status), To: string(family.AssignmentCompleted),
		}
	}

	now := s.now()
	a.Status = family.AssignmentCompleted
	a.Proof = proof
	a.CompletedAt = &now
	if err := s.store.UpdateAssignment(ctx, a); err != nil {
		return Assignment{}, err
	}
	return a, nil
}

// ApproveAssignment accepts completed work, credits the task's reward to
// the child, and fires the approval hook. Parent-only.
func (s *Service) ApproveAssignment(ctx context.Context, actorID family.UserID, id family.AssignmentID) (Assignment, error) {
	a, t, err := s.reviewable(ctx, actorID, id)
	if err != nil {
		return Assignment{}, err
	}

	now := s.now()
	a.Status = family.AssignmentApproved
	a.CoinsEarned = t.RewardCoins
	a.ReviewedAt = &now
	a.ReviewedBy = actorID
	if err := s.store.UpdateAssignment(ctx, a); err != nil {
		return Assignment{}, err
	}

	if t.RewardCoins > 0 {
		_, _, err := s.ledger.Credit(ctx, a.ChildID, t.RewardCoins, coins.TxEarned,
			fmt.Sprintf("Task approved: %s", t.Title),
			coins.Reference{Type: coins.RefTask, ID: string(t.ID)})
		if err != nil {
			// Approval stands; the missing credit shows up in logs.
			s.logger.Error("task reward credit failed",
				"assignment_id", string(a.ID),
				"child_id", string(a.ChildID),
				"reward", t.RewardCoins,
				"error", err)
		}
	}

	if err := s.listener.TaskApproved(ctx, a.ID); err != nil {
		s.logger.Error("task approval hook failed",
			"assignment_id", string(a.ID),
			"error", err)
	}
	return a, nil
}

// RejectAssignment declines completed work. Terminal; no coins move.
func (s *Service) RejectAssignment(ctx context.Context, actorID family.UserID, id family.AssignmentID) (Assignment, error) {
	a, _, err := s.reviewable(ctx, actorID, id)
	if err != nil {
		return Assignment{}, err
	}

	now := s.now()
	a.Status = family.AssignmentRejected
	a.ReviewedAt = &now
	a.ReviewedBy = actorID
	if err := s.store.UpdateAssignment(ctx, a); err != nil {
		return Assignment{}, err
	}
	return a, nil
}

// reviewable loads an assignment in the completed state and verifies the
// actor is a parent of the task's family.
func (s *Service) reviewable(ctx context.Context, actorID family.UserID, id family.AssignmentID) (Assignment, Task, error) {
	actor, err := s.users.GetUser(ctx, actorID)
	if err != nil {
		return Assignment{}, Task{}, err
	}
	if !actor.IsParent() {
		return Assignment{}, Task{}, &family.ForbiddenError{Message: "only parents can review assignments"}
	}
	a, err := s.store.GetAssignment(ctx, id)
	if err != nil {
		return Assignment{}, Task{}, err
	}
	t, err := s.store.GetTask(ctx, a.TaskID)
	if err != nil {
		return Assignment{}, Task{}, err
	}
	if t.FamilyID != actor.FamilyID {
		return Assignment{}, Task{}, &family.NotFoundError{Kind: "assignment", ID: string(id)}
	}
	if a.Status != family.AssignmentCompleted {
		return Assignment{}, Task{}, &family.InvalidStateError{
			Entity: "assignment", From: string(a.Status), To: "reviewed",
		}
	}
	return a, t, nil
}

// =============================================================================
// GOAL-ENGINE CONTRACTS
// =============================================================================

// GetAssignment implements family.TaskDirectory.
func (s *Service) GetAssignment(ctx context.Context, id family.AssignmentID) (family.AssignmentRef, error) {
	a, err := s.store.GetAssignment(ctx, id)
	if err != nil {
		return family.AssignmentRef{}, err
	}
	return family.AssignmentRef{
		ID:      a.ID,
		TaskID:  a.TaskID,
		ChildID: a.ChildID,
		Status:  a.Status,
	}, nil
}

// CountApprovedAssignments implements family.ApprovedTaskCounter.
func (s *Service) CountApprovedAssignments(ctx context.Context, childID family.UserID, taskID family.TaskID) (int, error) {
	return s.store.CountApprovedAssignments(ctx, childID, taskID)
}
