/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Structural validation (required fields, ranges) happens in the domain
  services; handlers only translate JSON to domain inputs and map the
  error taxonomy to HTTP statuses.

SEE ALSO:
  - handlers.go: Uses these types
  - server.go: Router setup and middleware
*/
package api

import (
	"time"

	"github.com/ironborrus-star/familycoins/coins"
	"github.com/ironborrus-star/familycoins/family"
	"github.com/ironborrus-star/familycoins/goals"
	"github.com/ironborrus-star/familycoins/shop"
	"github.com/ironborrus-star/familycoins/tasks"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// USERS
// =============================================================================

type UserDTO struct {
	ID        string `json:"id"`
	FamilyID  string `json:"family_id"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

type CreateUserRequest struct {
	FamilyID string `json:"family_id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func toUserDTO(u family.User) UserDTO {
	return UserDTO{
		ID:        string(u.ID),
		FamilyID:  string(u.FamilyID),
		Name:      u.Name,
		Username:  u.Username,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// COINS
// =============================================================================

type BalanceDTO struct {
	UserID      string `json:"user_id"`
	Balance     int    `json:"balance"`
	TotalEarned int    `json:"total_earned"`
	TotalSpent  int    `json:"total_spent"`
	UpdatedAt   string `json:"updated_at"`
}

type TransactionDTO struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Amount      int    `json:"amount"`
	Type        string `json:"type"`
	Description string `json:"description"`
	RefType     string `json:"ref_type,omitempty"`
	RefID       string `json:"ref_id,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type TransactionPageDTO struct {
	Transactions []TransactionDTO `json:"transactions"`
	TotalCount   int              `json:"total_count"`
	HasMore      bool             `json:"has_more"`
}

type AdjustmentRequest struct {
	Amount int    `json:"amount"` // signed: positive bonus, negative penalty
	Reason string `json:"reason"`
}

func toBalanceDTO(b coins.Balance) BalanceDTO {
	return BalanceDTO{
		UserID:      string(b.UserID),
		Balance:     b.Balance,
		TotalEarned: b.TotalEarned,
		TotalSpent:  b.TotalSpent,
		UpdatedAt:   b.UpdatedAt.Format(time.RFC3339),
	}
}

func toTransactionDTO(tx coins.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:          string(tx.ID),
		UserID:      string(tx.UserID),
		Amount:      tx.Amount,
		Type:        string(tx.Type),
		Description: tx.Description,
		RefType:     string(tx.Reference.Type),
		RefID:       tx.Reference.ID,
		CreatedAt:   tx.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// TASKS
// =============================================================================

type TaskDTO struct {
	ID          string `json:"id"`
	FamilyID    string `json:"family_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	RewardCoins int    `json:"reward_coins"`
	Status      string `json:"status"`
	CreatedBy   string `json:"created_by"`
	CreatedAt   string `json:"created_at"`
}

type AssignmentDTO struct {
	ID          string  `json:"id"`
	TaskID      string  `json:"task_id"`
	ChildID     string  `json:"child_id"`
	Status      string  `json:"status"`
	Proof       string  `json:"proof,omitempty"`
	CoinsEarned int     `json:"coins_earned"`
	AssignedAt  string  `json:"assigned_at"`
	CompletedAt *string `json:"completed_at,omitempty"`
	ReviewedAt  *string `json:"reviewed_at,omitempty"`
	ReviewedBy  string  `json:"reviewed_by,omitempty"`
}

type CreateTaskRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	RewardCoins int      `json:"reward_coins"`
	AssigneeIDs []string `json:"assignee_ids"`
}

type SetTaskStatusRequest struct {
	Status string `json:"status"`
}

type CompleteAssignmentRequest struct {
	Proof string `json:"proof"`
}

func toTaskDTO(t tasks.Task) TaskDTO {
	return TaskDTO{
		ID:          string(t.ID),
		FamilyID:    string(t.FamilyID),
		Title:       t.Title,
		Description: t.Description,
		RewardCoins: t.RewardCoins,
		Status:      string(t.Status),
		CreatedBy:   string(t.CreatedBy),
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
	}
}

func toAssignmentDTO(a tasks.Assignment) AssignmentDTO {
	dto := AssignmentDTO{
		ID:          string(a.ID),
		TaskID:      string(a.TaskID),
		ChildID:     string(a.ChildID),
		Status:      string(a.Status),
		Proof:       a.Proof,
		CoinsEarned: a.CoinsEarned,
		AssignedAt:  a.AssignedAt.Format(time.RFC3339),
		ReviewedBy:  string(a.ReviewedBy),
	}
	if a.CompletedAt != nil {
		s := a.CompletedAt.Format(time.RFC3339)
		dto.CompletedAt = &s
	}
	if a.ReviewedAt != nil {
		s := a.ReviewedAt.Format(time.RFC3339)
		dto.ReviewedAt = &s
	}
	return dto
}

// =============================================================================
// GOALS
// =============================================================================

type ConditionRequest struct {
	Kind           string  `json:"kind"`
	TargetValue    int     `json:"target_value"`
	TargetTaskID   string  `json:"target_task_id,omitempty"`
	Description    string  `json:"description"`
	Weight         float64 `json:"weight"`
	StreakRequired bool    `json:"streak_required"`
}

type HabitParamsDTO struct {
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	ActionsCount   int    `json:"actions_count"`
	PeriodValue    int    `json:"period_value"`
	PeriodUnit     string `json:"period_unit"`
	StreakRequired bool   `json:"streak_required"`
	RewardType     string `json:"reward_type"`
	RewardValue    int    `json:"reward_value"`
	RewardItemID   string `json:"reward_item_id,omitempty"`
	StartDate      string `json:"start_date,omitempty"`
	EndDate        string `json:"end_date,omitempty"`
}

type StoreItemParamsDTO struct {
	ItemID     string `json:"item_id"`
	Name       string `json:"name,omitempty"`
	PriceCoins int    `json:"price_coins,omitempty"`
}

type CreateGoalRequest struct {
	Title           string              `json:"title"`
	Description     string              `json:"description"`
	Kind            string              `json:"kind"`
	ExecutorType    string              `json:"executor_type"`
	ExecutorUserIDs []string            `json:"executor_user_ids,omitempty"`
	Conditions      []ConditionRequest  `json:"conditions"`
	Deadline        string              `json:"deadline,omitempty"` // YYYY-MM-DD
	RewardCoins     int                 `json:"reward_coins"`
	Habit           *HabitParamsDTO     `json:"habit,omitempty"`
	StoreItem       *StoreItemParamsDTO `json:"store_item,omitempty"`
}

type CreateStoreItemGoalRequest struct {
	ChildID  string `json:"child_id"`
	ItemID   string `json:"item_id"`
	Deadline string `json:"deadline,omitempty"`
}

type UpdateGoalRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Deadline    *string `json:"deadline,omitempty"`
	RewardCoins *int    `json:"reward_coins,omitempty"`
}

type ConditionDTO struct {
	ID             string  `json:"id"`
	Kind           string  `json:"kind"`
	TargetValue    int     `json:"target_value"`
	TargetTaskID   string  `json:"target_task_id,omitempty"`
	Description    string  `json:"description"`
	Weight         float64 `json:"weight"`
	StreakRequired bool    `json:"streak_required"`
}

type ProgressDTO struct {
	ConditionID  string `json:"condition_id"`
	UserID       string `json:"user_id"`
	CurrentValue int    `json:"current_value"`
	StreakCount  int    `json:"streak_count"`
	LastActivity string `json:"last_activity,omitempty"`
}

type GoalDTO struct {
	ID              string         `json:"id"`
	FamilyID        string         `json:"family_id"`
	ExecutorType    string         `json:"executor_type"`
	ExecutorUserIDs []string       `json:"executor_user_ids"`
	Title           string         `json:"title"`
	Description     string         `json:"description,omitempty"`
	Kind            string         `json:"kind"`
	TargetItemID    string         `json:"target_item_id,omitempty"`
	Status          string         `json:"status"`
	Deadline        string         `json:"deadline,omitempty"`
	RewardCoins     int            `json:"reward_coins"`
	CreatedBy       string         `json:"created_by"`
	CreatedAt       string         `json:"created_at"`
	CompletedAt     *string        `json:"completed_at,omitempty"`
	Conditions      []ConditionDTO `json:"conditions"`
	Progress        []ProgressDTO  `json:"progress"`
}

type ConditionProgressDTO struct {
	ConditionID  string  `json:"condition_id"`
	Description  string  `json:"description"`
	CurrentValue int     `json:"current_value"`
	TargetValue  int     `json:"target_value"`
	Percentage   float64 `json:"percentage"`
}

type GoalProgressDTO struct {
	GoalID      string                 `json:"goal_id"`
	Overall     float64                `json:"overall_percentage"`
	Conditions  []ConditionProgressDTO `json:"conditions"`
	IsCompleted bool                   `json:"is_completed"`
}

type AchievementDTO struct {
	ID                string `json:"id"`
	GoalID            string `json:"goal_id"`
	ChildID           string `json:"child_id"`
	AchievedAt        string `json:"achieved_at"`
	RewardCoinsEarned int    `json:"reward_coins_earned"`
	Notes             string `json:"notes,omitempty"`
}

type StatisticsDTO struct {
	TotalGoals     int     `json:"total_goals"`
	ActiveGoals    int     `json:"active_goals"`
	CompletedGoals int     `json:"completed_goals"`
	PausedGoals    int     `json:"paused_goals"`
	CancelledGoals int     `json:"cancelled_goals"`
	CompletionRate float64 `json:"completion_rate"`
}

type ChildStatisticsDTO struct {
	ChildID   string        `json:"child_id"`
	ChildName string        `json:"child_name"`
	Stats     StatisticsDTO `json:"stats"`
}

type FamilyStatisticsDTO struct {
	Family   StatisticsDTO        `json:"family"`
	Children []ChildStatisticsDTO `json:"children"`
}

func toGoalDTO(g *goals.Goal) GoalDTO {
	dto := GoalDTO{
		ID:           string(g.ID),
		FamilyID:     string(g.FamilyID),
		ExecutorType: string(g.Executor.Type),
		Title:        g.Title,
		Description:  g.Description,
		Kind:         string(g.Kind),
		TargetItemID: string(g.TargetItemID),
		Status:       string(g.Status),
		Deadline:     g.Deadline.String(),
		RewardCoins:  g.RewardCoins,
		CreatedBy:    string(g.CreatedBy),
		CreatedAt:    g.CreatedAt.Format(time.RFC3339),
	}
	for _, uid := range g.Executor.UserIDs {
		dto.ExecutorUserIDs = append(dto.ExecutorUserIDs, string(uid))
	}
	if g.CompletedAt != nil {
		s := g.CompletedAt.Format(time.RFC3339)
		dto.CompletedAt = &s
	}
	for _, c := range g.Conditions {
		weight, _ := c.Weight.Float64()
		dto.Conditions = append(dto.Conditions, ConditionDTO{
			ID:             string(c.ID),
			Kind:           string(c.Kind),
			TargetValue:    c.TargetValue,
			TargetTaskID:   string(c.TargetTaskID),
			Description:    c.Description,
			Weight:         weight,
			StreakRequired: c.StreakRequired,
		})
	}
	for _, p := range g.Progress {
		dto.Progress = append(dto.Progress, ProgressDTO{
			ConditionID:  string(p.ConditionID),
			UserID:       string(p.UserID),
			CurrentValue: p.CurrentValue,
			StreakCount:  p.StreakCount,
			LastActivity: p.LastActivity.String(),
		})
	}
	return dto
}

func toGoalProgressDTO(s goals.Summary) GoalProgressDTO {
	dto := GoalProgressDTO{
		GoalID:      string(s.GoalID),
		Overall:     s.Overall,
		IsCompleted: s.IsCompleted,
	}
	for _, c := range s.Conditions {
		dto.Conditions = append(dto.Conditions, ConditionProgressDTO{
			ConditionID:  string(c.ConditionID),
			Description:  c.Description,
			CurrentValue: c.CurrentValue,
			TargetValue:  c.TargetValue,
			Percentage:   c.Percentage,
		})
	}
	return dto
}

func toAchievementDTO(a goals.Achievement) AchievementDTO {
	return AchievementDTO{
		ID:                string(a.ID),
		GoalID:            string(a.GoalID),
		ChildID:           string(a.ChildID),
		AchievedAt:        a.AchievedAt.Format(time.RFC3339),
		RewardCoinsEarned: a.RewardCoinsEarned,
		Notes:             a.Notes,
	}
}

func toStatisticsDTO(s goals.Statistics) StatisticsDTO {
	return StatisticsDTO{
		TotalGoals:     s.TotalGoals,
		ActiveGoals:    s.ActiveGoals,
		CompletedGoals: s.CompletedGoals,
		PausedGoals:    s.PausedGoals,
		CancelledGoals: s.CancelledGoals,
		CompletionRate: s.CompletionRate,
	}
}

// =============================================================================
// SHOP
// =============================================================================

type ItemDTO struct {
	ID          string `json:"id"`
	FamilyID    string `json:"family_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	PriceCoins  int    `json:"price_coins"`
	Available   bool   `json:"available"`
	CreatedAt   string `json:"created_at"`
}

type CreateItemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCoins  int    `json:"price_coins"`
}

type SetAvailabilityRequest struct {
	Available bool `json:"available"`
}

type PurchaseDTO struct {
	ID          string `json:"id"`
	ItemID      string `json:"item_id"`
	ChildID     string `json:"child_id"`
	PricePaid   int    `json:"price_paid"`
	Status      string `json:"status"`
	PurchasedAt string `json:"purchased_at"`
}

type PurchaseResponse struct {
	Purchase PurchaseDTO `json:"purchase"`
	Balance  BalanceDTO  `json:"balance"`
}

func toItemDTO(it shop.Item) ItemDTO {
	return ItemDTO{
		ID:          string(it.ID),
		FamilyID:    string(it.FamilyID),
		Name:        it.Name,
		Description: it.Description,
		PriceCoins:  it.PriceCoins,
		Available:   it.Available,
		CreatedAt:   it.CreatedAt.Format(time.RFC3339),
	}
}

func toPurchaseDTO(p shop.Purchase) PurchaseDTO {
	return PurchaseDTO{
		ID:          string(p.ID),
		ItemID:      string(p.ItemID),
		ChildID:     string(p.ChildID),
		PricePaid:   p.PricePaid,
		Status:      string(p.Status),
		PurchasedAt: p.PurchasedAt.Format(time.RFC3339),
	}
}
