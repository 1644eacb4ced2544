package coins_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironborrus-star/familycoins/coins"
	"github.com/ironborrus-star/familycoins/family"
	"github.com/ironborrus-star/familycoins/storage/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestLedger(t *testing.T) (*coins.Ledger, *memory.Memory) {
	t.Helper()
	store := memory.New()
	fixed := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ledger := coins.NewLedger(store, coins.WithClock(func() time.Time { return fixed }))
	return ledger, store
}

const childID = family.UserID("child-1")

// recordingListener captures balance change notifications.
type recordingListener struct {
	calls []int
	err   error
}

func (l *recordingListener) BalanceChanged(_ context.Context, _ family.UserID, newBalance int) error {
	l.calls = append(l.calls, newBalance)
	return l.err
}

// =============================================================================
// BALANCE INVARIANTS
// =============================================================================

func TestLedger_GetOrCreateBalance_LazyAndIdempotent(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	b, err := ledger.GetOrCreateBalance(ctx, childID)
	require.NoError(t, err)
	assert.Equal(t, 0, b.Balance)
	assert.Equal(t, 0, b.TotalEarned)
	assert.Equal(t, 0, b.TotalSpent)

	again, err := ledger.GetOrCreateBalance(ctx, childID)
	require.NoError(t, err)
	assert.Equal(t, b, again)
}

func TestLedger_CreditDebit_MaintainsEarnedSpentIdentity(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	_, _, err := ledger.Credit(ctx, childID, 100, coins.TxEarned, "chores", coins.Reference{})
	require.NoError(t, err)
	_, b, err := ledger.Debit(ctx, childID, 30, "toy", coins.Reference{})
	require.NoError(t, err)

	assert.Equal(t, 70, b.Balance)
	assert.Equal(t, 100, b.TotalEarned)
	assert.Equal(t, 30, b.TotalSpent)
	assert.Equal(t, b.Balance, b.TotalEarned-b.TotalSpent)
}

func TestLedger_Credit_RejectsNonPositiveAmount(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	for _, amount := range []int{0, -5} {
		_, _, err := ledger.Credit(ctx, childID, amount, coins.TxEarned, "", coins.Reference{})
		assert.ErrorIs(t, err, family.ErrValidation)
	}
}

func TestLedger_Debit_InsufficientFunds_ReportsDeficit(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	_, _, err := ledger.Credit(ctx, childID, 20, coins.TxEarned, "", coins.Reference{})
	require.NoError(t, err)

	_, _, err = ledger.Debit(ctx, childID, 50, "too expensive", coins.Reference{})
	require.ErrorIs(t, err, family.ErrInsufficientFunds)

	var fundsErr *family.InsufficientFundsError
	require.True(t, errors.As(err, &fundsErr))
	assert.Equal(t, childID, fundsErr.UserID)
	assert.Equal(t, 50, fundsErr.Required)
	assert.Equal(t, 20, fundsErr.Available)

	// Balance untouched, no transaction appended.
	b, err := ledger.GetOrCreateBalance(ctx, childID)
	require.NoError(t, err)
	assert.Equal(t, 20, b.Balance)

	page, err := ledger.ListTransactions(ctx, childID, coins.Page{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalCount)
}

// =============================================================================
// MANUAL ADJUSTMENTS
// =============================================================================

func TestLedger_ManualAdjust_PositiveIsBonus(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	tx, b, err := ledger.ManualAdjust(ctx, childID, 25, "great report card", "parent-1")
	require.NoError(t, err)

	assert.Equal(t, coins.TxBonus, tx.Type)
	assert.Equal(t, 25, tx.Amount)
	assert.Equal(t, coins.RefManual, tx.Reference.Type)
	assert.Equal(t, "parent-1", tx.Reference.ID)
	assert.Equal(t, 25, b.Balance)
	assert.Equal(t, 25, b.TotalEarned)
}

func TestLedger_ManualAdjust_PenaltyClampsAtZero(t *testing.T) {
	// GIVEN: A child with 30 coins
	ledger, _ := newTestLedger(t)
	ctx := context.Background()
	_, _, err := ledger.Credit(ctx, childID, 30, coins.TxEarned, "", coins.Reference{})
	require.NoError(t, err)

	// WHEN: A 50-coin penalty is applied
	tx, b, err := ledger.ManualAdjust(ctx, childID, -50, "broken window", "parent-1")
	require.NoError(t, err)

	// THEN: The transaction records the full penalty, the balance stops at
	// zero, and total_spent only grows by what was actually removed.
	assert.Equal(t, coins.TxPenalty, tx.Type)
	assert.Equal(t, -50, tx.Amount)
	assert.Equal(t, 0, b.Balance)
	assert.Equal(t, 30, b.TotalSpent)
}

func TestLedger_ManualAdjust_RejectsZero(t *testing.T) {
	ledger, _ := newTestLedger(t)

	_, _, err := ledger.ManualAdjust(context.Background(), childID, 0, "noop", "parent-1")
	assert.ErrorIs(t, err, family.ErrValidation)
}

// =============================================================================
// LISTENER HOOK
// =============================================================================

func TestLedger_Notify_ListenerSeesCommittedBalances(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	listener := &recordingListener{}
	ledger.AttachListener(listener)

	_, _, err := ledger.Credit(ctx, childID, 100, coins.TxEarned, "", coins.Reference{})
	require.NoError(t, err)
	_, _, err = ledger.Debit(ctx, childID, 40, "", coins.Reference{})
	require.NoError(t, err)

	assert.Equal(t, []int{100, 60}, listener.calls)
}

func TestLedger_Notify_ListenerErrorIsSwallowed(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	listener := &recordingListener{err: errors.New("hook down")}
	ledger.AttachListener(listener)

	_, b, err := ledger.Credit(ctx, childID, 10, coins.TxEarned, "", coins.Reference{})
	require.NoError(t, err)
	assert.Equal(t, 10, b.Balance)
}

func TestLedger_AttachListener_NilRestoresNoop(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ledger.AttachListener(nil)

	_, _, err := ledger.Credit(context.Background(), childID, 5, coins.TxEarned, "", coins.Reference{})
	assert.NoError(t, err)
}

// =============================================================================
// HISTORY PAGINATION
// =============================================================================

func TestLedger_ListTransactions_PaginationAndFilter(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _, err := ledger.Credit(ctx, childID, 10, coins.TxEarned, "earn", coins.Reference{})
		require.NoError(t, err)
	}
	_, _, err := ledger.Debit(ctx, childID, 15, "spend", coins.Reference{})
	require.NoError(t, err)

	page, err := ledger.ListTransactions(ctx, childID, coins.Page{Limit: 4}, nil)
	require.NoError(t, err)
	assert.Len(t, page.Transactions, 4)
	assert.Equal(t, 6, page.TotalCount)
	assert.True(t, page.HasMore)

	rest, err := ledger.ListTransactions(ctx, childID, coins.Page{Limit: 4, Offset: 4}, nil)
	require.NoError(t, err)
	assert.Len(t, rest.Transactions, 2)
	assert.False(t, rest.HasMore)

	spent := coins.TxSpent
	filtered, err := ledger.ListTransactions(ctx, childID, coins.Page{}, &spent)
	require.NoError(t, err)
	require.Equal(t, 1, filtered.TotalCount)
	assert.Equal(t, -15, filtered.Transactions[0].Amount)
}

func TestLedger_ListTransactions_DefaultsLimit(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		_, _, err := ledger.Credit(ctx, childID, 1, coins.TxEarned, "", coins.Reference{})
		require.NoError(t, err)
	}

	page, err := ledger.ListTransactions(ctx, childID, coins.Page{}, nil)
	require.NoError(t, err)
	assert.Len(t, page.Transactions, coins.DefaultPageLimit)
	assert.True(t, page.HasMore)
}
