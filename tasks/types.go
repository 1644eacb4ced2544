/*
Package tasks provides the chore/task lifecycle.

PURPOSE:
  Parents define tasks with coin rewards and assign them to children.
  Children mark assignments done; parents approve or reject. Approval is
  the moment coins are earned: the service credits the ledger and then
  notifies the goal engine.

ASSIGNMENT LIFECYCLE:
  assigned -> completed -> approved | rejected
  Each edge happens exactly once. A rejected assignment is terminal; the
  parent re-assigns the task if the child should try again.

SEE ALSO:
  - service.go: Operations, approval hook
  - coins: The ledger credited on approval
*/
package tasks

import (
	"context"
	"time"

	"github.com/ironborrus-star/familycoins/family"
)

// TaskStatus is the lifecycle state of a task definition.
type TaskStatus string

const (
	TaskActive   TaskStatus = "active"
	TaskPaused   TaskStatus = "paused"
	TaskArchived TaskStatus = "archived"
)

// Task is a reusable chore definition owned by a family.
type Task struct {
	ID          family.TaskID
	FamilyID    family.FamilyID
	Title       string
	Description string
	RewardCoins int
	Status      TaskStatus
	CreatedBy   family.UserID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Assignment is one child's instance of a task.
type Assignment struct {
	ID          family.AssignmentID
	TaskID      family.TaskID
	ChildID     family.UserID
	Status      family.AssignmentStatus
	Proof       string // child's completion note
	CoinsEarned int    // set on approval
	AssignedAt  time.Time
	CompletedAt *time.Time
	ReviewedAt  *time.Time
	ReviewedBy  family.UserID
}

// AssignmentFilter narrows an assignment listing. Zero fields match all.
type AssignmentFilter struct {
	TaskID  family.TaskID
	ChildID family.UserID
	Status  family.AssignmentStatus
}

// Store persists tasks and assignments.
type Store interface {
	CreateTask(ctx context.Context, t Task) error
	GetTask(ctx context.Context, id family.TaskID) (Task, error)
	ListTasks(ctx context.Context, familyID family.FamilyID, status TaskStatus) ([]Task, error)
	UpdateTask(ctx context.Context, t Task) error

	CreateAssignment(ctx context.Context, a Assignment) error
	GetAssignment(ctx context.Context, id family.AssignmentID) (Assignment, error)
	ListAssignments(ctx context.Context, filter AssignmentFilter) ([]Assignment, error)
	UpdateAssignment(ctx context.Context, a Assignment) error

	// CountApprovedAssignments counts approvals for a child; empty taskID
	// counts across all tasks.
	CountApprovedAssignments(ctx context.Context, childID family.UserID, taskID family.TaskID) (int, error)
}

// ApprovalListener is notified after an assignment is approved and the
// reward credited. The goal engine implements this. Errors are logged by
// the service and never propagated to the approving parent.
type ApprovalListener interface {
	TaskApproved(ctx context.Context, assignmentID family.AssignmentID) error
}

// NopApprovalListener is the default listener; it does nothing.
type NopApprovalListener struct{}

func (NopApprovalListener) TaskApproved(context.Context, family.AssignmentID) error { return nil }
