/*
Package memory provides the in-memory storage backend.

PURPOSE:
  A single Memory value implements every store interface in the system
  (users, coins, goals, tasks, shop) behind one RWMutex. Used by tests and
  local development; storage/sqlite is the durable counterpart.

COPY DISCIPLINE:
  Reads return deep copies and writes store deep copies, so callers can
  mutate aggregates freely without aliasing the store's state.
*/
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ironborrus-star/familycoins/coins"
	"github.com/ironborrus-star/familycoins/family"
	"github.com/ironborrus-star/familycoins/goals"
	"github.com/ironborrus-star/familycoins/shop"
	"github.com/ironborrus-star/familycoins/tasks"
)

// Memory holds all state in maps. Safe for concurrent use.
type Memory struct {
	mu sync.RWMutex

	users        map[family.UserID]family.User
	balances     map[family.UserID]coins.Balance
	transactions []coins.Transaction

	goals        map[goals.GoalID]*goals.Goal
	achievements map[goals.GoalID][]goals.Achievement

	tasks       map[family.TaskID]tasks.Task
	assignments map[family.AssignmentID]tasks.Assignment

	items     map[family.ItemID]shop.Item
	purchases map[family.PurchaseID]shop.Purchase
}

// New creates an empty store.
func New() *Memory {
	return &Memory{
		users:        make(map[family.UserID]family.User),
		balances:     make(map[family.UserID]coins.Balance),
		goals:        make(map[goals.GoalID]*goals.Goal),
		achievements: make(map[goals.GoalID][]goals.Achievement),
		tasks:        make(map[family.TaskID]tasks.Task),
		assignments:  make(map[family.AssignmentID]tasks.Assignment),
		items:        make(map[family.ItemID]shop.Item),
		purchases:    make(map[family.PurchaseID]shop.Purchase),
	}
}

// =============================================================================
// USERS - family.UserDirectory plus seeding helpers
// =============================================================================

// SaveUser inserts or updates a user record.
func (m *Memory) SaveUser(ctx context.Context, u family.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *Memory) GetUser(ctx context.Context, id family.UserID) (family.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return family.User{}, &family.NotFoundError{Kind: "user", ID: string(id)}
	}
	return u, nil
}

func (m *Memory) ListFamilyMembers(ctx context.Context, familyID family.FamilyID) ([]family.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []family.User
	for _, u := range m.users {
		if u.FamilyID == familyID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// =============================================================================
// COINS - coins.Store
// =============================================================================

func (m *Memory) GetBalance(ctx context.Context, userID family.UserID) (coins.Balance, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.balances[userID]
	return b, ok, nil
}

func (m *Memory) SaveBalance(ctx context.Context, b coins.Balance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[b.UserID] = b
	return nil
}

func (m *Memory) AppendTransaction(ctx context.Context, tx coins.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions = append(m.transactions, tx)
	return nil
}

func (m *Memory) ListTransactions(ctx context.Context, userID family.UserID, page coins.Page, filter *coins.TransactionType) ([]coins.Transaction, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []coins.Transaction
	for _, tx := range m.transactions {
		if tx.UserID != userID {
			continue
		}
		if filter != nil && tx.Type != *filter {
			continue
		}
		matched = append(matched, tx)
	}
	// Newest first; the log is append-ordered.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := page.Offset
	if start > total {
		start = total
	}
	end := start + page.Limit
	if end > total {
		end = total
	}
	return append([]coins.Transaction(nil), matched[start:end]...), total, nil
}

// =============================================================================
// GOALS - goals.Store
// =============================================================================

func copyGoal(g *goals.Goal) *goals.Goal {
	cp := *g
	cp.Executor.UserIDs = append([]family.UserID(nil), g.Executor.UserIDs...)
	cp.Conditions = append([]goals.Condition(nil), g.Conditions...)
	cp.Progress = append([]goals.Progress(nil), g.Progress...)
	if g.CompletedAt != nil {
		t := *g.CompletedAt
		cp.CompletedAt = &t
	}
	if g.Metadata.Habit != nil {
		h := *g.Metadata.Habit
		cp.Metadata.Habit = &h
	}
	if g.Metadata.StoreItem != nil {
		si := *g.Metadata.StoreItem
		cp.Metadata.StoreItem = &si
	}
	return &cp
}

func (m *Memory) CreateGoal(ctx context.Context, g *goals.Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.goals[g.ID] = copyGoal(g)
	return nil
}

func (m *Memory) GetGoal(ctx context.Context, id goals.GoalID) (*goals.Goal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.goals[id]
	if !ok {
		return nil, &family.NotFoundError{Kind: "goal", ID: string(id)}
	}
	return copyGoal(g), nil
}

func (m *Memory) ListGoals(ctx context.Context, filter goals.ListFilter) ([]*goals.Goal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*goals.Goal
	for _, g := range m.goals {
		if filter.FamilyID != "" && g.FamilyID != filter.FamilyID {
			continue
		}
		if filter.Status != "" && g.Status != filter.Status {
			continue
		}
		if filter.ExecutorID != "" && !g.Executor.Includes(filter.ExecutorID) {
			continue
		}
		out = append(out, copyGoal(g))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) ListActiveGoalsForUser(ctx context.Context, userID family.UserID) ([]*goals.Goal, error) {
	return m.ListGoals(ctx, goals.ListFilter{ExecutorID: userID, Status: goals.StatusActive})
}

func (m *Memory) UpdateGoal(ctx context.Context, g *goals.Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.goals[g.ID]
	if !ok {
		return &family.NotFoundError{Kind: "goal", ID: string(g.ID)}
	}
	// Goal-row fields only; conditions and progress rows are owned by
	// CreateGoal and SaveProgress.
	cur.Title = g.Title
	cur.Description = g.Description
	cur.Status = g.Status
	cur.Deadline = g.Deadline
	cur.RewardCoins = g.RewardCoins
	cur.UpdatedAt = g.UpdatedAt
	if g.CompletedAt != nil {
		t := *g.CompletedAt
		cur.CompletedAt = &t
	}
	return nil
}

func (m *Memory) SaveProgress(ctx context.Context, p goals.Progress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.goals[p.GoalID]
	if !ok {
		return &family.NotFoundError{Kind: "goal", ID: string(p.GoalID)}
	}
	for i := range g.Progress {
		if g.Progress[i].ID == p.ID {
			g.Progress[i] = p
			return nil
		}
	}
	return &family.NotFoundError{Kind: "goal_progress", ID: string(p.ID)}
}

func (m *Memory) DeleteGoal(ctx context.Context, id goals.GoalID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.goals[id]; !ok {
		return &family.NotFoundError{Kind: "goal", ID: string(id)}
	}
	delete(m.goals, id)
	delete(m.achievements, id)
	return nil
}

func (m *Memory) CreateAchievement(ctx context.Context, a goals.Achievement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.achievements[a.GoalID] = append(m.achievements[a.GoalID], a)
	return nil
}

func (m *Memory) ListAchievements(ctx context.Context, goalID goals.GoalID) ([]goals.Achievement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]goals.Achievement(nil), m.achievements[goalID]...), nil
}

// =============================================================================
// TASKS - tasks.Store
// =============================================================================

func (m *Memory) CreateTask(ctx context.Context, t tasks.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[t.ID] = t
	return nil
}

func (m *Memory) GetTask(ctx context.Context, id family.TaskID) (tasks.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return tasks.Task{}, &family.NotFoundError{Kind: "task", ID: string(id)}
	}
	return t, nil
}

func (m *Memory) ListTasks(ctx context.Context, familyID family.FamilyID, status tasks.TaskStatus) ([]tasks.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []tasks.Task
	for _, t := range m.tasks {
		if t.FamilyID != familyID {
			continue
		}
		if status != "" && t.Status != status {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) UpdateTask(ctx context.Context, t tasks.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[t.ID]; !ok {
		return &family.NotFoundError{Kind: "task", ID: string(t.ID)}
	}
	m.tasks[t.ID] = t
	return nil
}

func (m *Memory) CreateAssignment(ctx context.Context, a tasks.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments[a.ID] = a
	return nil
}

func (m *Memory) GetAssignment(ctx context.Context, id family.AssignmentID) (tasks.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assignments[id]
	if !ok {
		return tasks.Assignment{}, &family.NotFoundError{Kind: "assignment", ID: string(id)}
	}
	return a, nil
}

func (m *Memory) ListAssignments(ctx context.Context, filter tasks.AssignmentFilter) ([]tasks.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []tasks.Assignment
	for _, a := range m.assignments {
		if filter.TaskID != "" && a.TaskID != filter.TaskID {
			continue
		}
		if filter.ChildID != "" && a.ChildID != filter.ChildID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssignedAt.After(out[j].AssignedAt) })
	return out, nil
}

func (m *Memory) UpdateAssignment(ctx context.Context, a tasks.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assignments[a.ID]; !ok {
		return &family.NotFoundError{Kind: "assignment", ID: string(a.ID)}
	}
	m.assignments[a.ID] = a
	return nil
}

func (m *Memory) CountApprovedAssignments(ctx context.Context, childID family.UserID, taskID family.TaskID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, a := range m.assignments {
		if a.ChildID != childID || a.Status != family.AssignmentApproved {
			continue
		}
		if taskID != "" && a.TaskID != taskID {
			continue
		}
		n++
	}
	return n, nil
}

// =============================================================================
// SHOP - shop.Store
// =============================================================================

func (m *Memory) CreateItem(ctx context.Context, it shop.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[it.ID] = it
	return nil
}

func (m *Memory) GetItem(ctx context.Context, id family.ItemID) (shop.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.items[id]
	if !ok {
		return shop.Item{}, &family.NotFoundError{Kind: "store_item", ID: string(id)}
	}
	return it, nil
}

func (m *Memory) ListItems(ctx context.Context, familyID family.FamilyID, availableOnly bool) ([]shop.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []shop.Item
	for _, it := range m.items {
		if it.FamilyID != familyID {
			continue
		}
		if availableOnly && !it.Available {
			continue
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) UpdateItem(ctx context.Context, it shop.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[it.ID]; !ok {
		return &family.NotFoundError{Kind: "store_item", ID: string(it.ID)}
	}
	m.items[it.ID] = it
	return nil
}

func (m *Memory) CreatePurchase(ctx context.Context, p shop.Purchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purchases[p.ID] = p
	return nil
}

func (m *Memory) GetPurchase(ctx context.Context, id family.PurchaseID) (shop.Purchase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.purchases[id]
	if !ok {
		return shop.Purchase{}, &family.NotFoundError{Kind: "purchase", ID: string(id)}
	}
	return p, nil
}

func (m *Memory) ListPurchases(ctx context.Context, childID family.UserID) ([]shop.Purchase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []shop.Purchase
	for _, p := range m.purchases {
		if p.ChildID == childID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PurchasedAt.After(out[j].PurchasedAt) })
	return out, nil
}

func (m *Memory) UpdatePurchase(ctx context.Context, p shop.Purchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.purchases[p.ID]; !ok {
		return &family.NotFoundError{Kind: "purchase", ID: string(p.ID)}
	}
	m.purchases[p.ID] = p
	return nil
}
