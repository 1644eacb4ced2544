package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironborrus-star/familycoins/api"
	"github.com/ironborrus-star/familycoins/coins"
	"github.com/ironborrus-star/familycoins/goals"
	"github.com/ironborrus-star/familycoins/shop"
	"github.com/ironborrus-star/familycoins/storage/memory"
	"github.com/ironborrus-star/familycoins/tasks"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type apiEnv struct {
	router http.Handler
	parent api.UserDTO
	child  api.UserDTO
}

// newAPIEnv wires the full service graph over the in-memory store and
// registers one parent and one child in the same family.
func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	store := memory.New()

	ledger := coins.NewLedger(store)
	taskSvc := tasks.NewService(store, store, ledger)
	shopSvc := shop.NewService(store, store, ledger)
	engine := goals.NewEngine(store, store, shopSvc, taskSvc, ledger)
	ledger.AttachListener(engine)
	taskSvc.AttachListener(engine)

	env := &apiEnv{router: api.NewRouter(api.NewHandler(store, ledger, engine, taskSvc, shopSvc))}

	env.parent = env.createUser(t, "", "Dana", "dana", "parent")
	env.child = env.createUser(t, env.parent.FamilyID, "Max", "max", "child")
	return env
}

func (e *apiEnv) createUser(t *testing.T, familyID, name, username, role string) api.UserDTO {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/users", "", map[string]any{
		"family_id": familyID, "name": name, "username": username, "role": role,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var u api.UserDTO
	decode(t, rec, &u)
	return u
}

// do issues a request against the router, acting as the given user.
func (e *apiEnv) do(t *testing.T, method, path, actorID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actorID != "" {
		req.Header.Set("X-User-ID", actorID)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(out), rec.Body.String())
}

// createAssignment makes a one-child task and returns its assignment ID.
func (e *apiEnv) createAssignment(t *testing.T, reward int) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/tasks", e.parent.ID, map[string]any{
		"title":        "Dishes",
		"reward_coins": reward,
		"assignee_ids": []string{e.child.ID},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Task        api.TaskDTO         `json:"task"`
		Assignments []api.AssignmentDTO `json:"assignments"`
	}
	decode(t, rec, &resp)
	require.Len(t, resp.Assignments, 1)
	return resp.Assignments[0].ID
}

// =============================================================================
// AUTHENTICATION
// =============================================================================

func TestAPI_MissingActorHeader(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodGet, "/api/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_UnknownActor(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodGet, "/api/tasks", "no-such-user", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// =============================================================================
// USERS
// =============================================================================

func TestAPI_CreateUser_GeneratesFamilyWhenOmitted(t *testing.T) {
	env := newAPIEnv(t)

	u := env.createUser(t, "", "Solo", "solo", "parent")
	assert.NotEmpty(t, u.FamilyID)
	assert.NotEqual(t, env.parent.FamilyID, u.FamilyID)
}

func TestAPI_CreateUser_RejectsBadRole(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodPost, "/api/users", "", map[string]any{
		"name": "X", "username": "x", "role": "admin",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_ListFamilyMembers(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodGet, "/api/families/"+env.parent.FamilyID+"/members", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var members []api.UserDTO
	decode(t, rec, &members)
	assert.Len(t, members, 2)
}

// =============================================================================
// TASK FLOW: ASSIGN -> COMPLETE -> APPROVE -> COINS
// =============================================================================

func TestAPI_TaskApprovalFlow(t *testing.T) {
	// GIVEN: A 25-coin assignment
	env := newAPIEnv(t)
	aid := env.createAssignment(t, 25)

	// The child cannot approve their own work.
	rec := env.do(t, http.MethodPost, "/api/assignments/"+aid+"/approve", env.child.ID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// WHEN: The child completes and the parent approves
	rec = env.do(t, http.MethodPost, "/api/assignments/"+aid+"/complete", env.child.ID,
		map[string]any{"proof": "photo.jpg"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/assignments/"+aid+"/approve", env.parent.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var approved api.AssignmentDTO
	decode(t, rec, &approved)
	assert.Equal(t, "approved", approved.Status)
	assert.Equal(t, 25, approved.CoinsEarned)

	// THEN: The balance and history reflect the credit
	rec = env.do(t, http.MethodGet, "/api/users/"+env.child.ID+"/balance", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var bal api.BalanceDTO
	decode(t, rec, &bal)
	assert.Equal(t, 25, bal.Balance)

	rec = env.do(t, http.MethodGet, "/api/users/"+env.child.ID+"/transactions?type=earned", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page api.TransactionPageDTO
	decode(t, rec, &page)
	require.Equal(t, 1, page.TotalCount)
	assert.Equal(t, "task", page.Transactions[0].RefType)

	// Approving twice is a conflict.
	rec = env.do(t, http.MethodPost, "/api/assignments/"+aid+"/approve", env.parent.ID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_CreateTask_ChildForbidden(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodPost, "/api/tasks", env.child.ID, map[string]any{
		"title": "Nope", "assignee_ids": []string{env.child.ID},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// =============================================================================
// ADJUSTMENTS
// =============================================================================

func TestAPI_Adjustments(t *testing.T) {
	env := newAPIEnv(t)

	// Children cannot adjust.
	rec := env.do(t, http.MethodPost, "/api/users/"+env.child.ID+"/adjustments", env.child.ID,
		map[string]any{"amount": 100, "reason": "self-service"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/users/"+env.child.ID+"/adjustments", env.parent.ID,
		map[string]any{"amount": 40, "reason": "extra help"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Transaction api.TransactionDTO `json:"transaction"`
		Balance     api.BalanceDTO     `json:"balance"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, "bonus", resp.Transaction.Type)
	assert.Equal(t, 40, resp.Balance.Balance)

	// Zero amount is a validation error.
	rec = env.do(t, http.MethodPost, "/api/users/"+env.child.ID+"/adjustments", env.parent.ID,
		map[string]any{"amount": 0, "reason": "noop"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// GOALS
// =============================================================================

func TestAPI_GoalLifecycleAndProgress(t *testing.T) {
	// GIVEN: A child saving toward 100 coins
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodPost, "/api/goals", env.parent.ID, map[string]any{
		"title":         "Save for the fair",
		"kind":          "coin_saving",
		"executor_type": "individual",
		"executor_user_ids": []string{env.child.ID},
		"conditions": []map[string]any{
			{"kind": "coin_amount", "target_value": 100, "description": "save coins", "weight": 1},
		},
		"reward_coins": 10,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var g api.GoalDTO
	decode(t, rec, &g)
	assert.Equal(t, "active", g.Status)
	require.Len(t, g.Progress, 1)
	assert.Equal(t, 0, g.Progress[0].CurrentValue)

	// WHEN: Coins arrive through an adjustment
	rec = env.do(t, http.MethodPost, "/api/users/"+env.child.ID+"/adjustments", env.parent.ID,
		map[string]any{"amount": 60, "reason": "garage sale"})
	require.Equal(t, http.StatusCreated, rec.Code)

	// THEN: The progress endpoint tracks the live balance
	rec = env.do(t, http.MethodGet, "/api/goals/"+g.ID+"/progress", env.child.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var prog api.GoalProgressDTO
	decode(t, rec, &prog)
	assert.Equal(t, float64(60), prog.Overall)
	assert.False(t, prog.IsCompleted)

	// Crossing the target completes the goal and pays the reward.
	rec = env.do(t, http.MethodPost, "/api/users/"+env.child.ID+"/adjustments", env.parent.ID,
		map[string]any{"amount": 40, "reason": "allowance"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/goals/"+g.ID, env.child.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &g)
	assert.Equal(t, "completed", g.Status)
	require.NotNil(t, g.CompletedAt)

	rec = env.do(t, http.MethodGet, "/api/goals/"+g.ID+"/achievements", env.parent.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var achievements []api.AchievementDTO
	decode(t, rec, &achievements)
	require.Len(t, achievements, 1)
	assert.Equal(t, 10, achievements[0].RewardCoinsEarned)

	rec = env.do(t, http.MethodGet, "/api/users/"+env.child.ID+"/balance", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var bal api.BalanceDTO
	decode(t, rec, &bal)
	assert.Equal(t, 110, bal.Balance)
}

func TestAPI_GoalValidationAndTransitions(t *testing.T) {
	env := newAPIEnv(t)

	// Mixed goal with weights summing to 0.5: rejected.
	rec := env.do(t, http.MethodPost, "/api/goals", env.parent.ID, map[string]any{
		"title":         "Badly weighted",
		"kind":          "mixed",
		"executor_type": "individual",
		"executor_user_ids": []string{env.child.ID},
		"conditions": []map[string]any{
			{"kind": "coin_amount", "target_value": 10, "weight": 0.5},
		},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/goals", env.parent.ID, map[string]any{
		"title":         "Pausable",
		"kind":          "coin_saving",
		"executor_type": "individual",
		"executor_user_ids": []string{env.child.ID},
		"conditions": []map[string]any{
			{"kind": "coin_amount", "target_value": 500, "weight": 1},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var g api.GoalDTO
	decode(t, rec, &g)

	// Resume on an active goal is a conflict.
	rec = env.do(t, http.MethodPost, "/api/goals/"+g.ID+"/resume", env.parent.ID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/goals/"+g.ID+"/pause", env.parent.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// A child cannot manage a parent-created goal.
	rec = env.do(t, http.MethodPost, "/api/goals/"+g.ID+"/cancel", env.child.ID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/goals/"+g.ID, env.parent.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/goals/"+g.ID, env.parent.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_Statistics(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodPost, "/api/goals", env.parent.ID, map[string]any{
		"title":         "Counted",
		"kind":          "coin_saving",
		"executor_type": "individual",
		"executor_user_ids": []string{env.child.ID},
		"conditions": []map[string]any{
			{"kind": "coin_amount", "target_value": 500, "weight": 1},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/statistics", env.parent.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats api.FamilyStatisticsDTO
	decode(t, rec, &stats)
	assert.Equal(t, 1, stats.Family.TotalGoals)
	assert.Equal(t, 1, stats.Family.ActiveGoals)
	require.Len(t, stats.Children, 1)
	assert.Equal(t, env.child.ID, stats.Children[0].ChildID)
}

// =============================================================================
// STORE
// =============================================================================

func TestAPI_StorePurchaseFlow(t *testing.T) {
	// GIVEN: A 30-coin item and a child holding 50 coins
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodPost, "/api/store/items", env.parent.ID, map[string]any{
		"name": "Movie night", "price_coins": 30,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var item api.ItemDTO
	decode(t, rec, &item)

	rec = env.do(t, http.MethodPost, "/api/users/"+env.child.ID+"/adjustments", env.parent.ID,
		map[string]any{"amount": 50, "reason": "allowance"})
	require.Equal(t, http.StatusCreated, rec.Code)

	// WHEN: The child buys the item
	rec = env.do(t, http.MethodPost, "/api/store/items/"+item.ID+"/purchase", env.child.ID, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var pr api.PurchaseResponse
	decode(t, rec, &pr)
	assert.Equal(t, 20, pr.Balance.Balance)
	assert.Equal(t, 30, pr.Purchase.PricePaid)

	// THEN: The history shows it and the parent can redeem it
	rec = env.do(t, http.MethodGet, "/api/users/"+env.child.ID+"/purchases", env.child.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history []api.PurchaseDTO
	decode(t, rec, &history)
	require.Len(t, history, 1)

	rec = env.do(t, http.MethodPost, "/api/purchases/"+pr.Purchase.ID+"/use", env.parent.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var used api.PurchaseDTO
	decode(t, rec, &used)
	assert.Equal(t, "used", used.Status)

	// Buying again with 20 coins left is an insufficient-funds 400.
	rec = env.do(t, http.MethodPost, "/api/store/items/"+item.ID+"/purchase", env.child.ID, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_StoreItemGoalShortcut(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodPost, "/api/store/items", env.parent.ID, map[string]any{
		"name": "Bicycle", "price_coins": 200,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var item api.ItemDTO
	decode(t, rec, &item)

	rec = env.do(t, http.MethodPost, "/api/goals/store-item", env.parent.ID, map[string]any{
		"child_id": env.child.ID, "item_id": item.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var g api.GoalDTO
	decode(t, rec, &g)
	assert.Equal(t, "store_item", g.Kind)
	assert.Equal(t, item.ID, g.TargetItemID)
	require.Len(t, g.Conditions, 1)
	assert.Equal(t, 200, g.Conditions[0].TargetValue)
}
