package tasks_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironborrus-star/familycoins/coins"
	"github.com/ironborrus-star/familycoins/family"
	"github.com/ironborrus-star/familycoins/storage/memory"
	"github.com/ironborrus-star/familycoins/tasks"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type taskEnv struct {
	svc    *tasks.Service
	ledger *coins.Ledger
	parent family.User
	child  family.User
	other  family.User // child in a different family
}

func newTaskEnv(t *testing.T) *taskEnv {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	env := &taskEnv{
		ledger: coins.NewLedger(store, coins.WithClock(clock)),
	}
	env.svc = tasks.NewService(store, store, env.ledger, tasks.WithClock(clock))

	fid := family.NewFamilyID()
	env.parent = family.User{ID: family.NewUserID(), FamilyID: fid, Name: "Dana", Username: "dana", Role: family.RoleParent, CreatedAt: now}
	env.child = family.User{ID: family.NewUserID(), FamilyID: fid, Name: "Max", Username: "max", Role: family.RoleChild, CreatedAt: now}
	env.other = family.User{ID: family.NewUserID(), FamilyID: family.NewFamilyID(), Name: "Kim", Username: "kim", Role: family.RoleChild, CreatedAt: now}
	for _, u := range []family.User{env.parent, env.child, env.other} {
		require.NoError(t, store.SaveUser(ctx, u))
	}
	return env
}

type recordingApprovalListener struct {
	approved []family.AssignmentID
}

func (l *recordingApprovalListener) TaskApproved(_ context.Context, id family.AssignmentID) error {
	l.approved = append(l.approved, id)
	return nil
}

// =============================================================================
// TASK CREATION
// =============================================================================

func TestService_CreateTask_AssignsEachChild(t *testing.T) {
	env := newTaskEnv(t)
	ctx := context.Background()

	task, as, err := env.svc.CreateTask(ctx, env.parent.ID, tasks.CreateTaskInput{
		Title:       "Clean room",
		RewardCoins: 15,
		AssigneeIDs: []family.UserID{env.child.ID},
	})
	require.NoError(t, err)

	assert.Equal(t, tasks.TaskActive, task.Status)
	require.Len(t, as, 1)
	assert.Equal(t, family.AssignmentAssigned, as[0].Status)
	assert.Equal(t, env.child.ID, as[0].ChildID)
}

func TestService_CreateTask_ChildForbidden(t *testing.T) {
	env := newTaskEnv(t)

	_, _, err := env.svc.CreateTask(context.Background(), env.child.ID, tasks.CreateTaskInput{
		Title: "Nope", AssigneeIDs: []family.UserID{env.child.ID},
	})
	assert.ErrorIs(t, err, family.ErrForbidden)
}

func TestService_CreateTask_RejectsForeignAndParentAssignees(t *testing.T) {
	env := newTaskEnv(t)
	ctx := context.Background()

	_, _, err := env.svc.CreateTask(ctx, env.parent.ID, tasks.CreateTaskInput{
		Title: "Chore", AssigneeIDs: []family.UserID{env.other.ID},
	})
	assert.ErrorIs(t, err, family.ErrForbidden)

	_, _, err = env.svc.CreateTask(ctx, env.parent.ID, tasks.CreateTaskInput{
		Title: "Chore", AssigneeIDs: []family.UserID{env.parent.ID},
	})
	assert.ErrorIs(t, err, family.ErrValidation)
}

// =============================================================================
// ASSIGNMENT WORKFLOW
// =============================================================================

func setupAssignment(t *testing.T, env *taskEnv, reward int) tasks.Assignment {
	t.Helper()
	_, as, err := env.svc.CreateTask(context.Background(), env.parent.ID, tasks.CreateTaskInput{
		Title:       "Dishes",
		RewardCoins: reward,
		AssigneeIDs: []family.UserID{env.child.ID},
	})
	require.NoError(t, err)
	return as[0]
}

func TestService_Complete_OnlyAssignedChild(t *testing.T) {
	env := newTaskEnv(t)
	ctx := context.Background()
	a := setupAssignment(t, env, 10)

	_, err := env.svc.CompleteAssignment(ctx, env.parent.ID, a.ID, "")
	assert.ErrorIs(t, err, family.ErrForbidden)

	done, err := env.svc.CompleteAssignment(ctx, env.child.ID, a.ID, "photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, family.AssignmentCompleted, done.Status)
	assert.Equal(t, "photo.jpg", done.Proof)
	require.NotNil(t, done.CompletedAt)

	// Completing twice is an illegal transition.
	_, err = env.svc.CompleteAssignment(ctx, env.child.ID, a.ID, "")
	assert.ErrorIs(t, err, family.ErrInvalidState)
}

func TestService_Approve_CreditsRewardAndNotifies(t *testing.T) {
	// GIVEN: A completed 10-coin assignment and an attached listener
	env := newTaskEnv(t)
	ctx := context.Background()
	listener := &recordingApprovalListener{}
	env.svc.AttachListener(listener)

	a := setupAssignment(t, env, 10)
	_, err := env.svc.CompleteAssignment(ctx, env.child.ID, a.ID, "")
	require.NoError(t, err)

	// WHEN: The parent approves
	approved, err := env.svc.ApproveAssignment(ctx, env.parent.ID, a.ID)
	require.NoError(t, err)

	// THEN: Status, earned coins, ledger credit, and hook all line up
	assert.Equal(t, family.AssignmentApproved, approved.Status)
	assert.Equal(t, 10, approved.CoinsEarned)
	assert.Equal(t, env.parent.ID, approved.ReviewedBy)

	b, err := env.ledger.GetOrCreateBalance(ctx, env.child.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, b.Balance)

	page, err := env.ledger.ListTransactions(ctx, env.child.ID, coins.Page{}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, page.TotalCount)
	assert.Equal(t, coins.TxEarned, page.Transactions[0].Type)
	assert.Equal(t, coins.RefTask, page.Transactions[0].Reference.Type)

	assert.Equal(t, []family.AssignmentID{a.ID}, listener.approved)
}

func TestService_Approve_RequiresCompletedState(t *testing.T) {
	env := newTaskEnv(t)
	ctx := context.Background()
	a := setupAssignment(t, env, 10)

	// Straight from assigned: rejected.
	_, err := env.svc.ApproveAssignment(ctx, env.parent.ID, a.ID)
	assert.ErrorIs(t, err, family.ErrInvalidState)

	_, err = env.svc.CompleteAssignment(ctx, env.child.ID, a.ID, "")
	require.NoError(t, err)
	_, err = env.svc.ApproveAssignment(ctx, env.parent.ID, a.ID)
	require.NoError(t, err)

	// Approving twice: rejected, and no double credit.
	_, err = env.svc.ApproveAssignment(ctx, env.parent.ID, a.ID)
	assert.ErrorIs(t, err, family.ErrInvalidState)

	b, err := env.ledger.GetOrCreateBalance(ctx, env.child.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, b.Balance)
}

func TestService_Approve_ChildForbidden(t *testing.T) {
	env := newTaskEnv(t)
	ctx := context.Background()
	a := setupAssignment(t, env, 10)

	_, err := env.svc.CompleteAssignment(ctx, env.child.ID, a.ID, "")
	require.NoError(t, err)

	_, err = env.svc.ApproveAssignment(ctx, env.child.ID, a.ID)
	assert.ErrorIs(t, err, family.ErrForbidden)
}

func TestService_Reject_NoCoinsMove(t *testing.T) {
	env := newTaskEnv(t)
	ctx := context.Background()
	a := setupAssignment(t, env, 10)

	_, err := env.svc.CompleteAssignment(ctx, env.child.ID, a.ID, "")
	require.NoError(t, err)

	rejected, err := env.svc.RejectAssignment(ctx, env.parent.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, family.AssignmentRejected, rejected.Status)
	assert.Equal(t, 0, rejected.CoinsEarned)

	b, err := env.ledger.GetOrCreateBalance(ctx, env.child.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, b.Balance)
}

// =============================================================================
// GOAL-ENGINE CONTRACTS
// =============================================================================

func TestService_CountApprovedAssignments(t *testing.T) {
	env := newTaskEnv(t)
	ctx := context.Background()

	var lastTask family.TaskID
	for i := 0; i < 3; i++ {
		a := setupAssignment(t, env, 0)
		lastTask = a.TaskID
		_, err := env.svc.CompleteAssignment(ctx, env.child.ID, a.ID, "")
		require.NoError(t, err)
		_, err = env.svc.ApproveAssignment(ctx, env.parent.ID, a.ID)
		require.NoError(t, err)
	}

	all, err := env.svc.CountApprovedAssignments(ctx, env.child.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 3, all)

	one, err := env.svc.CountApprovedAssignments(ctx, env.child.ID, lastTask)
	require.NoError(t, err)
	assert.Equal(t, 1, one)
}

func TestService_TaskStatus_ArchivedIsTerminal(t *testing.T) {
	env := newTaskEnv(t)
	ctx := context.Background()

	task, _, err := env.svc.CreateTask(ctx, env.parent.ID, tasks.CreateTaskInput{
		Title: "Seasonal chore", AssigneeIDs: []family.UserID{env.child.ID},
	})
	require.NoError(t, err)

	_, err = env.svc.SetTaskStatus(ctx, env.parent.ID, task.ID, tasks.TaskArchived)
	require.NoError(t, err)

	_, err = env.svc.SetTaskStatus(ctx, env.parent.ID, task.ID, tasks.TaskActive)
	assert.ErrorIs(t, err, family.ErrInvalidState)
}
