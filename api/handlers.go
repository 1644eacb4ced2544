/*
handlers.go - HTTP API handlers for the family coins system

PURPOSE:
  Exposes the ledger, task lifecycle, goal engine, and reward store via a
  REST API. Handles HTTP request/response and JSON serialization, and
  delegates all business rules to the domain services.

ENDPOINTS:
  Users:
    POST   /api/users                        Create user
    GET    /api/users/{id}                   Get user
    GET    /api/families/{id}/members        List family members

  Coins:
    GET    /api/users/{id}/balance           Balance summary
    GET    /api/users/{id}/transactions      Paged history (?limit&offset&type)
    POST   /api/users/{id}/adjustments       Manual bonus/penalty

  Tasks:
    POST   /api/tasks                        Create task with assignments
    GET    /api/tasks                        List tasks (?status)
    GET    /api/tasks/{id}                   Get task
    POST   /api/tasks/{id}/status            active/paused/archived
    GET    /api/assignments                  List assignments (?task_id&child_id&status)
    POST   /api/assignments/{id}/complete    Child marks done
    POST   /api/assignments/{id}/approve     Parent approves, coins credited
    POST   /api/assignments/{id}/reject      Parent rejects

  Goals:
    POST   /api/goals                        Create goal
    POST   /api/goals/store-item             Save-for-item shortcut
    GET    /api/goals                        List (?status&executor_id)
    GET    /api/goals/{id}                   Get aggregate
    PUT    /api/goals/{id}                   Edit mutable fields
    POST   /api/goals/{id}/pause|resume|cancel
    DELETE /api/goals/{id}
    GET    /api/goals/{id}/progress          Percentage summary
    GET    /api/goals/{id}/achievements
    GET    /api/statistics                   Family rollup

  Store:
    POST   /api/store/items                  Create item
    GET    /api/store/items                  List catalog
    POST   /api/store/items/{id}/availability
    POST   /api/store/items/{id}/purchase    Buy (debits balance)
    GET    /api/users/{id}/purchases
    POST   /api/purchases/{id}/use           Parent redeems

AUTHENTICATION:
  The acting user is taken from the X-User-ID header. Real credential
  checking sits in front of this service; the handlers enforce role and
  family rules through the domain services.

ERROR HANDLING:
  Domain errors map to HTTP statuses:
  - 400: validation, insufficient funds
  - 403: role/ownership violations
  - 404: missing entities
  - 409: illegal status transitions
  - 500: everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ironborrus-star/familycoins/coins"
	"github.com/ironborrus-star/familycoins/family"
	"github.com/ironborrus-star/familycoins/goals"
	"github.com/ironborrus-star/familycoins/shop"
	"github.com/ironborrus-star/familycoins/tasks"
)

// UserStore is the user persistence the API needs on top of the
// read-only directory.
type UserStore interface {
	family.UserDirectory
	SaveUser(ctx context.Context, u family.User) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Users  UserStore
	Ledger *coins.Ledger
	Goals  *goals.Engine
	Tasks  *tasks.Service
	Shop   *shop.Service
}

// NewHandler creates a handler over the wired services.
func NewHandler(users UserStore, ledger *coins.Ledger, engine *goals.Engine, taskSvc *tasks.Service, shopSvc *shop.Service) *Handler {
	return &Handler{
		Users:  users,
		Ledger: ledger,
		Goals:  engine,
		Tasks:  taskSvc,
		Shop:   shopSvc,
	}
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// CreateUser registers a family member.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	role := family.Role(req.Role)
	if role != family.RoleParent && role != family.RoleChild {
		writeError(w, http.StatusBadRequest, "Role must be parent or child", nil)
		return
	}
	if req.Name == "" || req.Username == "" {
		writeError(w, http.StatusBadRequest, "Name and username are required", nil)
		return
	}

	fid := family.FamilyID(req.FamilyID)
	if fid == "" {
		fid = family.NewFamilyID()
	}
	u := family.User{
		ID:        family.NewUserID(),
		FamilyID:  fid,
		Name:      req.Name,
		Username:  req.Username,
		Role:      role,
		CreatedAt: nowUTC(),
	}
	if err := h.Users.SaveUser(r.Context(), u); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(u))
}

// GetUser returns one user.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.Users.GetUser(r.Context(), family.UserID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(u))
}

// ListFamilyMembers returns every member of a family.
func (h *Handler) ListFamilyMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.Users.ListFamilyMembers(r.Context(), family.FamilyID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]UserDTO, len(members))
	for i, m := range members {
		dtos[i] = toUserDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// COIN HANDLERS
// =============================================================================

// GetBalance returns a user's coin balance, creating a zero balance on
// first read.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	b, err := h.Ledger.GetOrCreateBalance(r.Context(), family.UserID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(b))
}

// GetTransactions returns a page of transaction history.
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	var page coins.Page
	page.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	page.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))

	var filter *coins.TransactionType
	if t := r.URL.Query().Get("type"); t != "" {
		tt := coins.TransactionType(t)
		filter = &tt
	}

	result, err := h.Ledger.ListTransactions(r.Context(), family.UserID(chi.URLParam(r, "id")), page, filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dto := TransactionPageDTO{
		Transactions: make([]TransactionDTO, len(result.Transactions)),
		TotalCount:   result.TotalCount,
		HasMore:      result.HasMore,
	}
	for i, tx := range result.Transactions {
		dto.Transactions[i] = toTransactionDTO(tx)
	}
	writeJSON(w, http.StatusOK, dto)
}

// CreateAdjustment applies a manual bonus or penalty. Parent-only.
func (h *Handler) CreateAdjustment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	if !actor.IsParent() {
		writeDomainError(w, &family.ForbiddenError{Message: "only parents can adjust balances"})
		return
	}

	var req AdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	childID := family.UserID(chi.URLParam(r, "id"))
	child, err := h.Users.GetUser(r.Context(), childID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if child.FamilyID != actor.FamilyID {
		writeDomainError(w, &family.NotFoundError{Kind: "user", ID: string(childID)})
		return
	}

	tx, b, err := h.Ledger.ManualAdjust(r.Context(), childID, req.Amount, req.Reason, actor.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"transaction": toTransactionDTO(tx),
		"balance":     toBalanceDTO(b),
	})
}

// =============================================================================
// TASK HANDLERS
// =============================================================================

// CreateTask creates a task with one assignment per assignee.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	assignees := make([]family.UserID, len(req.AssigneeIDs))
	for i, id := range req.AssigneeIDs {
		assignees[i] = family.UserID(id)
	}
	t, as, err := h.Tasks.CreateTask(r.Context(), actor.ID, tasks.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		RewardCoins: req.RewardCoins,
		AssigneeIDs: assignees,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]AssignmentDTO, len(as))
	for i, a := range as {
		dtos[i] = toAssignmentDTO(a)
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"task":        toTaskDTO(t),
		"assignments": dtos,
	})
}

// ListTasks lists the actor's family's tasks.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	out, err := h.Tasks.ListTasks(r.Context(), actor.ID, tasks.TaskStatus(r.URL.Query().Get("status")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]TaskDTO, len(out))
	for i, t := range out {
		dtos[i] = toTaskDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetTask returns one task.
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	t, err := h.Tasks.GetTask(r.Context(), actor.ID, family.TaskID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskDTO(t))
}

// SetTaskStatus moves a task between active, paused, and archived.
func (h *Handler) SetTaskStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	var req SetTaskStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	t, err := h.Tasks.SetTaskStatus(r.Context(), actor.ID, family.TaskID(chi.URLParam(r, "id")), tasks.TaskStatus(req.Status))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskDTO(t))
}

// ListAssignments lists assignments visible to the actor.
func (h *Handler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	out, err := h.Tasks.ListAssignments(r.Context(), actor.ID, tasks.AssignmentFilter{
		TaskID:  family.TaskID(q.Get("task_id")),
		ChildID: family.UserID(q.Get("child_id")),
		Status:  family.AssignmentStatus(q.Get("status")),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]AssignmentDTO, len(out))
	for i, a := range out {
		dtos[i] = toAssignmentDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CompleteAssignment lets the assigned child mark work done.
func (h *Handler) CompleteAssignment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	var req CompleteAssignmentRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}
	a, err := h.Tasks.CompleteAssignment(r.Context(), actor.ID, family.AssignmentID(chi.URLParam(r, "id")), req.Proof)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentDTO(a))
}

// ApproveAssignment accepts completed work and credits the reward.
func (h *Handler) ApproveAssignment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	a, err := h.Tasks.ApproveAssignment(r.Context(), actor.ID, family.AssignmentID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentDTO(a))
}

// RejectAssignment declines completed work.
func (h *Handler) RejectAssignment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	a, err := h.Tasks.RejectAssignment(r.Context(), actor.ID, family.AssignmentID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentDTO(a))
}

// =============================================================================
// GOAL HANDLERS
// =============================================================================

// CreateGoal creates a goal from a full definition.
func (h *Handler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	var req CreateGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in, err := goalInputFromRequest(req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	g, err := h.Goals.CreateGoal(r.Context(), actor.ID, in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGoalDTO(g))
}

// CreateStoreItemGoal creates a save-for-item goal.
func (h *Handler) CreateStoreItemGoal(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	var req CreateStoreItemGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	deadline, err := parseOptionalDate(req.Deadline)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid deadline", err)
		return
	}
	g, err := h.Goals.CreateStoreItemGoal(r.Context(), actor.ID,
		family.UserID(req.ChildID), family.ItemID(req.ItemID), deadline)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGoalDTO(g))
}

// ListGoals lists the actor's family's goals.
func (h *Handler) ListGoals(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	out, err := h.Goals.ListGoals(r.Context(), actor.ID,
		goals.Status(q.Get("status")), family.UserID(q.Get("executor_id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]GoalDTO, len(out))
	for i, g := range out {
		dtos[i] = toGoalDTO(g)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetGoal returns one goal aggregate.
func (h *Handler) GetGoal(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	g, err := h.Goals.GetGoal(r.Context(), actor.ID, goals.GoalID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalDTO(g))
}

// UpdateGoal edits mutable goal fields.
func (h *Handler) UpdateGoal(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	var req UpdateGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in := goals.UpdateGoalInput{
		Title:       req.Title,
		Description: req.Description,
		RewardCoins: req.RewardCoins,
	}
	if req.Deadline != nil {
		d, err := parseOptionalDate(*req.Deadline)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid deadline", err)
			return
		}
		in.Deadline = &d
	}

	g, err := h.Goals.UpdateGoal(r.Context(), actor.ID, goals.GoalID(chi.URLParam(r, "id")), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalDTO(g))
}

// PauseGoal suspends a goal.
func (h *Handler) PauseGoal(w http.ResponseWriter, r *http.Request) {
	h.goalTransition(w, r, h.Goals.PauseGoal)
}

// ResumeGoal reactivates a paused goal.
func (h *Handler) ResumeGoal(w http.ResponseWriter, r *http.Request) {
	h.goalTransition(w, r, h.Goals.ResumeGoal)
}

// CancelGoal terminally cancels a goal.
func (h *Handler) CancelGoal(w http.ResponseWriter, r *http.Request) {
	h.goalTransition(w, r, h.Goals.CancelGoal)
}

func (h *Handler) goalTransition(w http.ResponseWriter, r *http.Request, fn func(context.Context, family.UserID, goals.GoalID) (*goals.Goal, error)) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	g, err := fn(r.Context(), actor.ID, goals.GoalID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalDTO(g))
}

// DeleteGoal removes a goal and its history.
func (h *Handler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	if err := h.Goals.DeleteGoal(r.Context(), actor.ID, goals.GoalID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetGoalProgress returns the percentage summary.
func (h *Handler) GetGoalProgress(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	s, err := h.Goals.GetProgress(r.Context(), actor.ID, goals.GoalID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalProgressDTO(s))
}

// ListGoalAchievements returns a goal's achievement records.
func (h *Handler) ListGoalAchievements(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	out, err := h.Goals.ListAchievements(r.Context(), actor.ID, goals.GoalID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]AchievementDTO, len(out))
	for i, a := range out {
		dtos[i] = toAchievementDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetStatistics returns the family-wide goal rollup.
func (h *Handler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	stats, err := h.Goals.GetFamilyStatistics(r.Context(), actor.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dto := FamilyStatisticsDTO{Family: toStatisticsDTO(stats.Family)}
	for _, c := range stats.Children {
		dto.Children = append(dto.Children, ChildStatisticsDTO{
			ChildID:   string(c.ChildID),
			ChildName: c.ChildName,
			Stats:     toStatisticsDTO(c.Stats),
		})
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// STORE HANDLERS
// =============================================================================

// CreateItem adds a catalog entry.
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	it, err := h.Shop.CreateItem(r.Context(), actor.ID, shop.CreateItemInput{
		Name:        req.Name,
		Description: req.Description,
		PriceCoins:  req.PriceCoins,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toItemDTO(it))
}

// ListItems lists the family catalog.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	out, err := h.Shop.ListItems(r.Context(), actor.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]ItemDTO, len(out))
	for i, it := range out {
		dtos[i] = toItemDTO(it)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SetItemAvailability toggles purchasability.
func (h *Handler) SetItemAvailability(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	var req SetAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	it, err := h.Shop.SetItemAvailability(r.Context(), actor.ID, family.ItemID(chi.URLParam(r, "id")), req.Available)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemDTO(it))
}

// PurchaseItem buys an item for the acting child.
func (h *Handler) PurchaseItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	p, b, err := h.Shop.PurchaseItem(r.Context(), actor.ID, family.ItemID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, PurchaseResponse{
		Purchase: toPurchaseDTO(p),
		Balance:  toBalanceDTO(b),
	})
}

// ListPurchases returns a child's purchase history.
func (h *Handler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	out, err := h.Shop.ListPurchases(r.Context(), actor.ID, family.UserID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]PurchaseDTO, len(out))
	for i, p := range out {
		dtos[i] = toPurchaseDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// MarkPurchaseUsed records redemption.
func (h *Handler) MarkPurchaseUsed(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	p, err := h.Shop.MarkPurchaseUsed(r.Context(), actor.ID, family.PurchaseID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPurchaseDTO(p))
}

// =============================================================================
// HELPERS
// =============================================================================

// requireActor resolves the acting user from the X-User-ID header.
func (h *Handler) requireActor(w http.ResponseWriter, r *http.Request) (family.User, bool) {
	id := r.Header.Get("X-User-ID")
	if id == "" {
		writeError(w, http.StatusUnauthorized, "X-User-ID header is required", nil)
		return family.User{}, false
	}
	u, err := h.Users.GetUser(r.Context(), family.UserID(id))
	if err != nil {
		if family.IsNotFound(err) {
			writeError(w, http.StatusUnauthorized, "Unknown user", nil)
			return family.User{}, false
		}
		writeDomainError(w, err)
		return family.User{}, false
	}
	return u, true
}

func goalInputFromRequest(req CreateGoalRequest) (goals.CreateGoalInput, error) {
	deadline, err := parseOptionalDate(req.Deadline)
	if err != nil {
		return goals.CreateGoalInput{}, &family.ValidationError{
			Rule: "deadline", Message: "deadline must be YYYY-MM-DD",
		}
	}

	in := goals.CreateGoalInput{
		Title:       req.Title,
		Description: req.Description,
		Kind:        goals.Kind(req.Kind),
		Executor: goals.ExecutorInput{
			Type: goals.ExecutorType(req.ExecutorType),
		},
		Deadline:    deadline,
		RewardCoins: req.RewardCoins,
	}
	for _, id := range req.ExecutorUserIDs {
		in.Executor.UserIDs = append(in.Executor.UserIDs, family.UserID(id))
	}

	for _, c := range req.Conditions {
		in.Conditions = append(in.Conditions, goals.ConditionInput{
			Kind:           goals.ConditionKind(c.Kind),
			TargetValue:    c.TargetValue,
			TargetTaskID:   family.TaskID(c.TargetTaskID),
			Description:    c.Description,
			Weight:         decimal.NewFromFloat(c.Weight),
			StreakRequired: c.StreakRequired,
		})
	}

	if req.Habit != nil {
		start, err := parseOptionalDate(req.Habit.StartDate)
		if err != nil {
			return goals.CreateGoalInput{}, &family.ValidationError{
				Rule: "habit_start_date", Message: "start date must be YYYY-MM-DD",
			}
		}
		end, err := parseOptionalDate(req.Habit.EndDate)
		if err != nil {
			return goals.CreateGoalInput{}, &family.ValidationError{
				Rule: "habit_end_date", Message: "end date must be YYYY-MM-DD",
			}
		}
		in.Metadata.Habit = &goals.HabitParams{
			Name:           req.Habit.Name,
			Description:    req.Habit.Description,
			ActionsCount:   req.Habit.ActionsCount,
			PeriodValue:    req.Habit.PeriodValue,
			PeriodUnit:     goals.PeriodUnit(req.Habit.PeriodUnit),
			StreakRequired: req.Habit.StreakRequired,
			RewardType:     goals.RewardType(req.Habit.RewardType),
			RewardValue:    req.Habit.RewardValue,
			RewardItemID:   family.ItemID(req.Habit.RewardItemID),
			StartDate:      start,
			EndDate:        end,
		}
	}
	if req.StoreItem != nil {
		in.Metadata.StoreItem = &goals.StoreItemParams{
			ItemID:     family.ItemID(req.StoreItem.ItemID),
			Name:       req.StoreItem.Name,
			PriceCoins: req.StoreItem.PriceCoins,
		}
	}
	return in, nil
}

func nowUTC() time.Time { return time.Now().UTC() }

func parseOptionalDate(s string) (family.Date, error) {
	if s == "" {
		return family.Date{}, nil
	}
	return family.ParseDate(s)
}

// writeDomainError maps the error taxonomy to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, family.ErrValidation), errors.Is(err, family.ErrInsufficientFunds):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, family.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error(), nil)
	case errors.Is(err, family.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, family.ErrInvalidState):
		writeError(w, http.StatusConflict, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
