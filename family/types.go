/*
Package family provides the core shared types for the family coins system.

PURPOSE:
  This package contains the types every other package depends on: type-safe
  identifiers, family membership (parents and children), calendar dates for
  streak tracking, the error taxonomy, and the collaborator contracts the
  goal engine and ledger consume (user directory, task directory, store
  catalog).

KEY CONCEPTS IN THIS FILE (types.go):
  - UserID/FamilyID/TaskID/...: Type-safe identifiers
  - Role: parent or child; role constraints drive goal-creation rules
  - User: A family member record as seen by the core services

DESIGN PRINCIPLES:
  1. Type Safety: Strong typing for IDs prevents mixing user/goal/task IDs
  2. No persistence here: this package defines contracts, storage/ fulfils them
  3. Collaborator boundaries: auth, password hashing, and HTTP validation
     live outside the core and are consumed through narrow interfaces

SEE ALSO:
  - errors.go: Error taxonomy shared by all services
  - date.go: Day-granular dates for streaks and deadlines
  - directory.go: Collaborator contracts
*/
package family

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type (
	FamilyID     string
	UserID       string
	TaskID       string
	AssignmentID string
	ItemID       string
	PurchaseID   string
)

func NewFamilyID() FamilyID         { return FamilyID(uuid.NewString()) }
func NewUserID() UserID             { return UserID(uuid.NewString()) }
func NewTaskID() TaskID             { return TaskID(uuid.NewString()) }
func NewAssignmentID() AssignmentID { return AssignmentID(uuid.NewString()) }
func NewItemID() ItemID             { return ItemID(uuid.NewString()) }
func NewPurchaseID() PurchaseID     { return PurchaseID(uuid.NewString()) }

// =============================================================================
// ROLES AND MEMBERS
// =============================================================================

// Role distinguishes parents from children. Parents approve tasks, adjust
// balances, and may create goals for anyone in the family; children may
// only create goals for themselves.
type Role string

const (
	RoleParent Role = "parent"
	RoleChild  Role = "child"
)

// User is a family member as seen by the core services. Credentials and
// avatars belong to the auth collaborator, not here.
type User struct {
	ID        UserID
	FamilyID  FamilyID
	Name      string
	Username  string
	Role      Role
	CreatedAt time.Time
}

func (u User) IsParent() bool { return u.Role == RoleParent }
func (u User) IsChild() bool  { return u.Role == RoleChild }

// Children filters a member list down to children.
func Children(members []User) []User {
	var out []User
	for _, m := range members {
		if m.IsChild() {
			out = append(out, m)
		}
	}
	return out
}

// Parents filters a member list down to parents.
func Parents(members []User) []User {
	var out []User
	for _, m := range members {
		if m.IsParent() {
			out = append(out, m)
		}
	}
	return out
}
