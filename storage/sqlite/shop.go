package sqlite

// Store catalog and purchase persistence: fulfils shop.Store.

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ironborrus-star/familycoins/family"
	"github.com/ironborrus-star/familycoins/shop"
)

func (d *DB) CreateItem(ctx context.Context, it shop.Item) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO store_items (id, family_id, name, description, price_coins,
			available, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(it.ID), string(it.FamilyID), it.Name, it.Description,
		it.PriceCoins, it.Available, string(it.CreatedBy), it.CreatedAt, it.UpdatedAt)
	return err
}

func (d *DB) GetItem(ctx context.Context, id family.ItemID) (shop.Item, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, family_id, name, description, price_coins, available,
			created_by, created_at, updated_at
		FROM store_items WHERE id = ?`, string(id))

	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return shop.Item{}, &family.NotFoundError{Kind: "store_item", ID: string(id)}
	}
	return it, err
}

func (d *DB) ListItems(ctx context.Context, familyID family.FamilyID, availableOnly bool) ([]shop.Item, error) {
	query := `
		SELECT id, family_id, name, description, price_coins, available,
			created_by, created_at, updated_at
		FROM store_items WHERE family_id = ?`
	args := []any{string(familyID)}
	if availableOnly {
		query += ` AND available = 1`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []shop.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (d *DB) UpdateItem(ctx context.Context, it shop.Item) error {
	res, err := d.db.ExecContext(ctx, `
		UPDATE store_items SET name = ?, description = ?, price_coins = ?,
			available = ?, updated_at = ?
		WHERE id = ?`,
		it.Name, it.Description, it.PriceCoins, it.Available, it.UpdatedAt, string(it.ID))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &family.NotFoundError{Kind: "store_item", ID: string(it.ID)}
	}
	return nil
}

func scanItem(row rowScanner) (shop.Item, error) {
	var it shop.Item
	var id, fid, createdBy string
	err := row.Scan(&id, &fid, &it.Name, &it.Description, &it.PriceCoins,
		&it.Available, &createdBy, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return shop.Item{}, err
	}
	it.ID = family.ItemID(id)
	it.FamilyID = family.FamilyID(fid)
	it.CreatedBy = family.UserID(createdBy)
	return it, nil
}

// =============================================================================
// PURCHASES
// =============================================================================

func (d *DB) CreatePurchase(ctx context.Context, p shop.Purchase) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO purchases (id, item_id, child_id, price_paid, status,
			purchased_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(p.ID), string(p.ItemID), string(p.ChildID), p.PricePaid,
		string(p.Status), p.PurchasedAt, p.UpdatedAt)
	return err
}

func (d *DB) GetPurchase(ctx context.Context, id family.PurchaseID) (shop.Purchase, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, item_id, child_id, price_paid, status, purchased_at, updated_at
		FROM purchases WHERE id = ?`, string(id))

	p, err := scanPurchase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return shop.Purchase{}, &family.NotFoundError{Kind: "purchase", ID: string(id)}
	}
	return p, err
}

func (d *DB) ListPurchases(ctx context.Context, childID family.UserID) ([]shop.Purchase, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, item_id, child_id, price_paid, status, purchased_at, updated_at
		FROM purchases WHERE child_id = ? ORDER BY purchased_at DESC`, string(childID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []shop.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (d *DB) UpdatePurchase(ctx context.Context, p shop.Purchase) error {
	res, err := d.db.ExecContext(ctx, `
		UPDATE purchases SET status = ?, updated_at = ? WHERE id = ?`,
		string(p.Status), p.UpdatedAt, string(p.ID))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &family.NotFoundError{Kind: "purchase", ID: string(p.ID)}
	}
	return nil
}

func scanPurchase(row rowScanner) (shop.Purchase, error) {
	var p shop.Purchase
	var id, itemID, childID, status string
	err := row.Scan(&id, &itemID, &childID, &p.PricePaid, &status,
		&p.PurchasedAt, &p.UpdatedAt)
	if err != nil {
		return shop.Purchase{}, err
	}
	p.ID = family.PurchaseID(id)
	p.ItemID = family.ItemID(itemID)
	p.ChildID = family.UserID(childID)
	p.Status = shop.PurchaseStatus(status)
	return p, nil
}
