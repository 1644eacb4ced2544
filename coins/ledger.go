/*
ledger.go - Coin ledger operations

PURPOSE:
  Implements credit, debit, manual adjustment, and history listing over the
  Store interface. Every mutation appends a transaction, updates the balance
  summary, and then notifies the goal hook best-effort.

ADJUSTMENT SEMANTICS:
  Positive adjustments route through Credit with kind=bonus. Negative
  adjustments clamp the resulting balance at zero: the transaction records
  the full requested amount, but total_spent only grows by what was
  actually removed. This is the one path where transaction amount and
  balance delta may differ.
*/
package coins

import (
	"context"
	"log/slog"
	"time"

	"github.com/ironborrus-star/familycoins/family"
)

// Ledger owns coin balances and transaction history for a family's users.
type Ledger struct {
	store    Store
	listener BalanceListener
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger used for swallowed hook failures.
func WithLogger(l *slog.Logger) Option {
	return func(led *Ledger) { led.logger = l }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(led *Ledger) { led.now = now }
}

// NewLedger creates a ledger with a no-op balance listener. Wire the goal
// engine in afterwards with AttachListener; the engine needs the ledger to
// read live balances, so it cannot exist before the ledger does.
func NewLedger(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:    store,
		listener: NopListener{},
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// AttachListener replaces the balance listener. Passing nil restores the no-op.
func (l *Ledger) AttachListener(listener BalanceListener) {
	if listener == nil {
		listener = NopListener{}
	}
	l.listener = listener
}

// =============================================================================
// BALANCE
// =============================================================================

// GetOrCreateBalance lazily materializes a zero balance. Repeated calls
// with an existing balance are side-effect-free.
func (l *Ledger) GetOrCreateBalance(ctx context.Context, userID family.UserID) (Balance, error) {
	b, ok, err := l.store.GetBalance(ctx, userID)
	if err != nil {
		return Balance{}, err
	}
	if ok {
		return b, nil
	}
	b = Balance{UserID: userID, UpdatedAt: l.now()}
	if err := l.store.SaveBalance(ctx, b); err != nil {
		return Balance{}, err
	}
	return b, nil
}

// =============================================================================
// CREDIT / DEBIT
// =============================================================================

// Credit adds coins to a user. Amount must be positive.
func (l *Ledger) Credit(ctx context.Context, userID family.UserID, amount int, txType TransactionType, description string, ref Reference) (Transaction, Balance, error) {
	if amount <= 0 {
		return Transaction{}, Balance{}, &family.ValidationError{
			Rule: "amount_positive", Message: "credit amount must be positive",
		}
	}

	b, err := l.GetOrCreateBalance(ctx, userID)
	if err != nil {
		return Transaction{}, Balance{}, err
	}

	tx := Transaction{
		ID:          NewTransactionID(),
		UserID:      userID,
		Amount:      amount,
		Type:        txType,
		Description: description,
		Reference:   ref,
		CreatedAt:   l.now(),
	}
	if err := l.store.AppendTransaction(ctx, tx); err != nil {
		return Transaction{}, Balance{}, err
	}

	b.Balance += amount
	b.TotalEarned += amount
	b.UpdatedAt = l.now()
	if err := l.store.SaveBalance(ctx, b); err != nil {
		return Transaction{}, Balance{}, err
	}

	l.notify(ctx, userID, b.Balance)
	return tx, b, nil
}

// Debit removes coins from a user. Fails with InsufficientFundsError when
// the balance cannot cover the amount; the balance is left untouched.
func (l *Ledger) Debit(ctx context.Context, userID family.UserID, amount int, description string, ref Reference) (Transaction, Balance, error) {
	if amount <= 0 {
		return Transaction{}, Balance{}, &family.ValidationError{
			Rule: "amount_positive", Message: "debit amount must be positive",
		}
	}

	b, err := l.GetOrCreateBalance(ctx, userID)
	if err != nil {
		return Transaction{}, Balance{}, err
	}
	if b.Balance < amount {
		return Transaction{}, Balance{}, &family.InsufficientFundsError{
			UserID:    userID,
			Required:  amount,
			Available: b.Balance,
		}
	}

	tx := Transaction{
		ID:          NewTransactionID(),
		UserID:      userID,
		Amount:      -amount,
		Type:        TxSpent,
		Description: description,
		Reference:   ref,
		CreatedAt:   l.now(),
	}
	if err := l.store.AppendTransaction(ctx, tx); err != nil {
		return Transaction{}, Balance{}, err
	}

	b.Balance -= amount
	b.TotalSpent += amount
	b.UpdatedAt = l.now()
	if err := l.store.SaveBalance(ctx, b); err != nil {
		return Transaction{}, Balance{}, err
	}

	l.notify(ctx, userID, b.Balance)
	return tx, b, nil
}

// =============================================================================
// MANUAL ADJUSTMENT
// =============================================================================

// ManualAdjust applies a parent-initiated signed correction to a child's
// balance. Positive amounts are bonuses; negative amounts are penalties
// clamped so the balance never drops below zero.
func (l *Ledger) ManualAdjust(ctx context.Context, childID family.UserID, signedAmount int, reason string, actorID family.UserID) (Transaction, Balance, error) {
	if signedAmount == 0 {
		return Transaction{}, Balance{}, &family.ValidationError{
			Rule: "amount_nonzero", Message: "adjustment amount must be non-zero",
		}
	}

	ref := Reference{Type: RefManual, ID: string(actorID)}

	if signedAmount > 0 {
		return l.Credit(ctx, childID, signedAmount, TxBonus, reason, ref)
	}

	b, err := l.GetOrCreateBalance(ctx, childID)
	if err != nil {
		return Transaction{}, Balance{}, err
	}

	// Record the full requested penalty, remove only what exists.
	tx := Transaction{
		ID:          NewTransactionID(),
		UserID:      childID,
		Amount:      signedAmount,
		Type:        TxPenalty,
		Description: reason,
		Reference:   ref,
		CreatedAt:   l.now(),
	}
	if err := l.store.AppendTransaction(ctx, tx); err != nil {
		return Transaction{}, Balance{}, err
	}

	removed := -signedAmount
	if removed > b.Balance {
		removed = b.Balance
	}
	b.Balance -= removed
	b.TotalSpent += removed
	b.UpdatedAt = l.now()
	if err := l.store.SaveBalance(ctx, b); err != nil {
		return Transaction{}, Balance{}, err
	}

	l.notify(ctx, childID, b.Balance)
	return tx, b, nil
}

// =============================================================================
// HISTORY
// =============================================================================

// ListTransactions returns a page of history, newest first.
func (l *Ledger) ListTransactions(ctx context.Context, userID family.UserID, page Page, filter *TransactionType) (TransactionPage, error) {
	if page.Limit <= 0 {
		page.Limit = DefaultPageLimit
	}
	if page.Offset < 0 {
		page.Offset = 0
	}

	txs, total, err := l.store.ListTransactions(ctx, userID, page, filter)
	if err != nil {
		return TransactionPage{}, err
	}

	return TransactionPage{
		Transactions: txs,
		TotalCount:   total,
		HasMore:      page.Offset+page.Limit < total,
	}, nil
}

// =============================================================================
// GOAL HOOK
// =============================================================================

// notify informs the listener of a committed balance change. Failures are
// logged and swallowed: goal progress is eventually consistent, the coin
// movement is not.
func (l *Ledger) notify(ctx context.Context, userID family.UserID, newBalance int) {
	if err := l.listener.BalanceChanged(ctx, userID, newBalance); err != nil {
		l.logger.Error("balance change hook failed",
			"user_id", string(userID),
			"balance", newBalance,
			"error", err)
	}
}
