/*
Package coins provides coin balance accounting and transaction history.

PURPOSE:
  The ledger is the source of truth for every coin movement in a family:
  task rewards, goal bonuses, store purchases, and manual parent
  adjustments. Each movement appends an immutable transaction and updates
  the per-user balance summary.

CRITICAL INVARIANTS:
  1. balance = total_earned - total_spent, and balance never goes negative
  2. Transactions are append-only; corrections are new adjustments
  3. The penalty path clamps at zero: the recorded transaction amount may
     exceed the actual balance delta (the one sanctioned mismatch)

GOAL HOOK:
  The ledger holds a BalanceListener (no-op by default). Every committed
  balance change notifies the listener best-effort: a failing listener is
  logged and swallowed, never rolled back into the triggering credit/debit.

SEE ALSO:
  - ledger.go: Operations
  - goals: Implements BalanceListener to re-sync coin_amount conditions
*/
package coins

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ironborrus-star/familycoins/family"
)

// =============================================================================
// TRANSACTION - Immutable log entry
// =============================================================================

type TransactionID string

func NewTransactionID() TransactionID { return TransactionID(uuid.NewString()) }

// TransactionType classifies a coin movement.
type TransactionType string

const (
	TxEarned  TransactionType = "earned"  // Task rewards, goal bonuses
	TxSpent   TransactionType = "spent"   // Store purchases
	TxBonus   TransactionType = "bonus"   // Positive manual adjustment
	TxPenalty TransactionType = "penalty" // Negative manual adjustment
)

// ReferenceType names the entity a transaction originated from.
type ReferenceType string

const (
	RefTask     ReferenceType = "task"
	RefPurchase ReferenceType = "purchase"
	RefGoal     ReferenceType = "goal"
	RefManual   ReferenceType = "manual"
)

// Reference optionally links a transaction to its originating entity.
// The zero value means no reference.
type Reference struct {
	Type ReferenceType
	ID   string
}

func (r Reference) IsZero() bool { return r.Type == "" && r.ID == "" }

// Transaction is one immutable ledger entry. Amount is signed: positive
// for earnings, negative for spending and penalties.
type Transaction struct {
	ID          TransactionID
	UserID      family.UserID
	Amount      int
	Type        TransactionType
	Description string
	Reference   Reference
	CreatedAt   time.Time
}

// =============================================================================
// BALANCE - Per-user summary
// =============================================================================

// Balance is the per-user coin summary. One row per user, lazily created.
type Balance struct {
	UserID      family.UserID
	Balance     int
	TotalEarned int
	TotalSpent  int
	UpdatedAt   time.Time
}

// =============================================================================
// PAGINATION
// =============================================================================

// Page selects a window of transaction history.
type Page struct {
	Limit  int
	Offset int
}

// DefaultPageLimit applies when Page.Limit is zero or negative.
const DefaultPageLimit = 20

// TransactionPage is one page of history, newest first.
type TransactionPage struct {
	Transactions []Transaction
	TotalCount   int
	HasMore      bool
}

// =============================================================================
// STORE - Persistence interface
// =============================================================================

// Store persists balances and transactions. Transactions are append-only.
type Store interface {
	// GetBalance returns the balance row and whether it exists.
	GetBalance(ctx context.Context, userID family.UserID) (Balance, bool, error)

	// SaveBalance inserts or updates a balance row.
	SaveBalance(ctx context.Context, b Balance) error

	// AppendTransaction appends one immutable transaction.
	AppendTransaction(ctx context.Context, tx Transaction) error

	// ListTransactions returns a page of transactions newest-first plus the
	// total matching count. A nil filter matches every transaction type.
	ListTransactions(ctx context.Context, userID family.UserID, page Page, filter *TransactionType) ([]Transaction, int, error)
}

// =============================================================================
// BALANCE LISTENER - Best-effort goal hook
// =============================================================================

// BalanceListener is notified after a balance change commits. The goal
// engine implements this to re-sync coin_amount conditions. Errors are
// logged by the ledger and never propagated to the triggering operation.
type BalanceListener interface {
	BalanceChanged(ctx context.Context, userID family.UserID, newBalance int) error
}

// NopListener is the default listener; it does nothing.
type NopListener struct{}

func (NopListener) BalanceChanged(context.Context, family.UserID, int) error { return nil }
