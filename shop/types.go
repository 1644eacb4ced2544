/*
Package shop provides the family reward store.

PURPOSE:
  Parents stock a per-family catalog of items purchasable with coins.
  Buying an item debits the child's ledger balance atomically with the
  purchase record; the goal engine validates store-item goals against the
  same catalog.

SEE ALSO:
  - service.go: Operations
  - coins: The ledger debited on purchase
*/
package shop

import (
	"context"
	"time"

	"github.com/ironborrus-star/familycoins/family"
)

// Item is one catalog entry.
type Item struct {
	ID          family.ItemID
	FamilyID    family.FamilyID
	Name        string
	Description string
	PriceCoins  int
	Available   bool
	CreatedBy   family.UserID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PurchaseStatus tracks redemption of a bought item.
type PurchaseStatus string

const (
	PurchasePurchased PurchaseStatus = "purchased"
	PurchaseUsed      PurchaseStatus = "used"
	PurchaseExpired   PurchaseStatus = "expired"
)

// Purchase records one item bought by one child. PricePaid snapshots the
// price at purchase time; later repricing doesn't rewrite history.
type Purchase struct {
	ID          family.PurchaseID
	ItemID      family.ItemID
	ChildID     family.UserID
	PricePaid   int
	Status      PurchaseStatus
	PurchasedAt time.Time
	UpdatedAt   time.Time
}

// Store persists the catalog and purchase records.
type Store interface {
	CreateItem(ctx context.Context, it Item) error
	GetItem(ctx context.Context, id family.ItemID) (Item, error)
	ListItems(ctx context.Context, familyID family.FamilyID, availableOnly bool) ([]Item, error)
	UpdateItem(ctx context.Context, it Item) error

	CreatePurchase(ctx context.Context, p Purchase) error
	GetPurchase(ctx context.Context, id family.PurchaseID) (Purchase, error)
	ListPurchases(ctx context.Context, childID family.UserID) ([]Purchase, error)
	UpdatePurchase(ctx context.Context, p Purchase) error
}
