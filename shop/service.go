/*
service.go - Reward store operations

PURPOSE:
  Catalog management (parent-only), purchasing (child debits the ledger),
  and purchase history. The service also fulfils the catalog contract the
  goal engine uses to validate store-item goals.

PURCHASE ORDERING:
  The debit commits first. If writing the purchase record then fails, the
  coins are gone but the ledger transaction still references the purchase
  id, so the record can be reconstructed. The reverse order would risk a
  recorded purchase that was never paid for.
*/
package shop

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ironborrus-star/familycoins/coins"
	"github.com/ironborrus-star/familycoins/family"
)

// CoinLedger is the slice of the ledger the store needs. *coins.Ledger
// satisfies it.
type CoinLedger interface {
	Debit(ctx context.Context, userID family.UserID, amount int, description string, ref coins.Reference) (coins.Transaction, coins.Balance, error)
}

// Service coordinates the catalog and purchases.
type Service struct {
	store  Store
	users  family.UserDirectory
	ledger CoinLedger
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a store service.
func NewService(store Store, users family.UserDirectory, ledger CoinLedger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		users:  users,
		ledger: ledger,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// =============================================================================
// CATALOG
// =============================================================================

// CreateItemInput is a catalog-entry request.
type CreateItemInput struct {
	Name        string
	Description string
	PriceCoins  int
}

// CreateItem adds a catalog entry. Parent-only.
func (s *Service) CreateItem(ctx context.Context, actorID family.UserID, in CreateItemInput) (Item, error) {
	actor, err := s.users.GetUser(ctx, actorID)
	if err != nil {
		return Item{}, err
	}
	if !actor.IsParent() {
		return Item{}, &family.ForbiddenError{Message: "only parents can manage the store"}
	}
	if in.Name == "" {
		return Item{}, &family.ValidationError{Rule: "name", Message: "name is required"}
	}
	if in.PriceCoins <= 0 {
		return Item{}, &family.ValidationError{
			Rule: "price_coins", Message: "price must be positive",
		}
	}

	now := s.now()
	it := Item{
		ID:          family.NewItemID(),
		FamilyID:    actor.FamilyID,
		Name:        in.Name,
		Description: in.Description,
		PriceCoins:  in.PriceCoins,
		Available:   true,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateItem(ctx, it); err != nil {
		return Item{}, err
	}
	return it, nil
}

// ListItems lists the actor's family catalog. Children see only
// available items.
func (s *Service) ListItems(ctx context.Context, actorID family.UserID) ([]Item, error) {
	actor, err := s.users.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return s.store.ListItems(ctx, actor.FamilyID, actor.IsChild())
}

// SetItemAvailability toggles whether an item can be purchased or
// targeted by new goals. Parent-only.
func (s *Service) SetItemAvailability(ctx context.Context, actorID family.UserID, id family.ItemID, available bool) (Item, error) {
	actor, err := s.users.GetUser(ctx, actorID)
	if err != nil {
		return Item{}, err
	}
	if !actor.IsParent() {
		return Item{}, &family.ForbiddenError{Message: "only parents can manage the store"}
	}
	it, err := s.store.GetItem(ctx, id)
	if err != nil {
		return Item{}, err
	}
	if it.FamilyID != actor.FamilyID {
		return Item{}, &family.NotFoundError{Kind: "store_item", ID: string(id)}
	}
	it.Available = available
	it.UpdatedAt = s.now()
	if err := s.store.UpdateItem(ctx, it); err != nil {
		return Item{}, err
	}
	return it, nil
}

// =============================================================================
// PURCHASES
// =============================================================================

// PurchaseItem buys an item for the acting child, debiting their balance.
// Insufficient funds surface unchanged so callers can report the deficit.
func (s *Service) PurchaseItem(ctx context.Context, actorID family.UserID, itemID family.ItemID) (Purchase, coins.Balance, error) {
	actor, err := s.users.GetUser(ctx, actorID)
	if err != nil {
		return Purchase{}, coins.Balance{}, err
	}
	item, err := s.GetAvailableItem(ctx, itemID, actor.FamilyID)
	if err != nil {
		return Purchase{}, coins.Balance{}, err
	}

	purchaseID := family.NewPurchaseID()
	_, bal, err := s.ledger.Debit(ctx, actor.ID, item.PriceCoins,
		fmt.Sprintf("Purchased: %s", item.Name),
		coins.Reference{Type: coins.RefPurchase, ID: string(purchaseID)})
	if err != nil {
		return Purchase{}, coins.Balance{}, err
	}

	now := s.now()
	p := Purchase{
		ID:          purchaseID,
		ItemID:      item.ID,
		ChildID:     actor.ID,
		PricePaid:   item.PriceCoins,
		Status:      PurchasePurchased,
		PurchasedAt: now,
		UpdatedAt:   now,
	}
	if err := s.store.CreatePurchase(ctx, p); err != nil {
		s.logger.Error("purchase record write failed after debit",
			"purchase_id", string(purchaseID),
			"child_id", string(actor.ID),
			"item_id", string(item.ID),
			"error", err)
		return Purchase{}, coins.Balance{}, err
	}
	return p, bal, nil
}

// ListPurchases returns a child's purchase history. Children see only
// their own; parents may view any child in the family.
func (s *Service) ListPurchases(ctx context.Context, actorID family.UserID, childID family.UserID) ([]Purchase, error) {
	actor, err := s.users.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor.IsChild() && childID != actor.ID {
		return nil, &family.ForbiddenError{Message: "children can only view their own purchases"}
	}
	child, err := s.users.GetUser(ctx, childID)
	if err != nil {
		return nil, err
	}
	if child.FamilyID != actor.FamilyID {
		return nil, &family.NotFoundError{Kind: "user", ID: string(childID)}
	}
	return s.store.ListPurchases(ctx, childID)
}

// MarkPurchaseUsed records redemption of a purchased item. Parent-only.
func (s *Service) MarkPurchaseUsed(ctx context.Context, actorID family.UserID, id family.PurchaseID) (Purchase, error) {
	actor, err := s.users.GetUser(ctx, actorID)
	if err != nil {
		return Purchase{}, err
	}
	if !actor.IsParent() {
		return Purchase{}, &family.ForbiddenError{Message: "only parents can redeem purchases"}
	}
	p, err := s.store.GetPurchase(ctx, id)
	if err != nil {
		return Purchase{}, err
	}
	child, err := s.users.GetUser(ctx, p.ChildID)
	if err != nil {
		return Purchase{}, err
	}
	if child.FamilyID != actor.FamilyID {
		return Purchase{}, &family.NotFoundError{Kind: "purchase", ID: string(id)}
	}
	if p.Status != PurchasePurchased {
		return Purchase{}, &family.InvalidStateError{
			Entity: "purchase", From: string(p.Status), To: string(PurchaseUsed),
		}
	}
	p.Status = PurchaseUsed
	p.UpdatedAt = s.now()
	if err := s.store.UpdatePurchase(ctx, p); err != nil {
		return Purchase{}, err
	}
	return p, nil
}

// =============================================================================
// GOAL-ENGINE CONTRACT
// =============================================================================

// GetAvailableItem implements family.StoreCatalog: an item that exists,
// belongs to the family, and is available.
func (s *Service) GetAvailableItem(ctx context.Context, id family.ItemID, familyID family.FamilyID) (family.ItemRef, error) {
	it, err := s.store.GetItem(ctx, id)
	if err != nil {
		return family.ItemRef{}, err
	}
	if it.FamilyID != familyID || !it.Available {
		return family.ItemRef{}, &family.NotFoundError{Kind: "store_item", ID: string(id)}
	}
	return family.ItemRef{
		ID:         it.ID,
		FamilyID:   it.FamilyID,
		Name:       it.Name,
		PriceCoins: it.PriceCoins,
		Available:  it.Available,
	}, nil
}
