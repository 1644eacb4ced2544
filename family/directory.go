/*
directory.go - Collaborator contracts consumed by the core services

PURPOSE:
  The goal engine and ledger do not own users, tasks, or the store catalog.
  They consume them through the narrow interfaces defined here. The storage
  package and the thin task/shop services fulfil these contracts; tests use
  in-memory implementations.

WHY INTERFACES HERE?
  Keeping the contracts in the shared package avoids import cycles: coins
  must not import goals (the ledger notifies the engine through a hook the
  engine implements), and goals must not import tasks or shop directly.
*/
package family

import "context"

// =============================================================================
// USER DIRECTORY
// =============================================================================

// UserDirectory resolves users and family membership.
type UserDirectory interface {
	// GetUser returns a user by id, or NotFoundError.
	GetUser(ctx context.Context, id UserID) (User, error)

	// ListFamilyMembers returns every member of a family.
	ListFamilyMembers(ctx context.Context, familyID FamilyID) ([]User, error)
}

// =============================================================================
// TASK DIRECTORY
// =============================================================================

// AssignmentStatus is the lifecycle state of one task assignment.
// Transitions: assigned -> completed -> approved | rejected, each exactly once.
type AssignmentStatus string

const (
	AssignmentAssigned  AssignmentStatus = "assigned"
	AssignmentCompleted AssignmentStatus = "completed"
	AssignmentApproved  AssignmentStatus = "approved"
	AssignmentRejected  AssignmentStatus = "rejected"
)

// AssignmentRef is the view of an assignment the goal engine needs.
type AssignmentRef struct {
	ID      AssignmentID
	TaskID  TaskID
	ChildID UserID
	Status  AssignmentStatus
}

// TaskDirectory resolves task assignments for goal-progress hooks.
type TaskDirectory interface {
	// GetAssignment returns an assignment view, or NotFoundError.
	GetAssignment(ctx context.Context, id AssignmentID) (AssignmentRef, error)
}

// ApprovedTaskCounter is an optional upgrade of TaskDirectory. When the
// directory can count approved assignments authoritatively, the goal engine
// re-derives task_completion progress from that count instead of
// incrementing by one, which closes the lost-increment race between
// concurrent approvals. An empty taskID counts approvals across all tasks.
type ApprovedTaskCounter interface {
	CountApprovedAssignments(ctx context.Context, childID UserID, taskID TaskID) (int, error)
}

// =============================================================================
// STORE CATALOG
// =============================================================================

// ItemRef is the view of a store item the goal engine needs when validating
// store-item goals.
type ItemRef struct {
	ID         ItemID
	FamilyID   FamilyID
	Name       string
	PriceCoins int
	Available  bool
}

// StoreCatalog resolves purchasable items within a family.
type StoreCatalog interface {
	// GetAvailableItem returns an in-family, available item, or
	// NotFoundError if the item is missing, foreign, or unavailable.
	GetAvailableItem(ctx context.Context, id ItemID, familyID FamilyID) (ItemRef, error)
}
