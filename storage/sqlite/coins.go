package sqlite

// Coin persistence: fulfils coins.Store.

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ironborrus-star/familycoins/coins"
	"github.com/ironborrus-star/familycoins/family"
)

func (d *DB) GetBalance(ctx context.Context, userID family.UserID) (coins.Balance, bool, error) {
	var b coins.Balance
	var id string
	err := d.db.QueryRowContext(ctx, `
		SELECT user_id, balance, total_earned, total_spent, updated_at
		FROM coin_balances WHERE user_id = ?`, string(userID)).
		Scan(&id, &b.Balance, &b.TotalEarned, &b.TotalSpent, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return coins.Balance{}, false, nil
	}
	if err != nil {
		return coins.Balance{}, false, err
	}
	b.UserID = family.UserID(id)
	return b, true, nil
}

func (d *DB) SaveBalance(ctx context.Context, b coins.Balance) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO coin_balances (user_id, balance, total_earned, total_spent, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			balance      = excluded.balance,
			total_earned = excluded.total_earned,
			total_spent  = excluded.total_spent,
			updated_at   = excluded.updated_at`,
		string(b.UserID), b.Balance, b.TotalEarned, b.TotalSpent, b.UpdatedAt)
	return err
}

func (d *DB) AppendTransaction(ctx context.Context, tx coins.Transaction) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO coin_transactions (id, user_id, amount, type, description, ref_type, ref_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(tx.ID), string(tx.UserID), tx.Amount, string(tx.Type),
		tx.Description, string(tx.Reference.Type), tx.Reference.ID, tx.CreatedAt)
	return err
}

func (d *DB) ListTransactions(ctx context.Context, userID family.UserID, page coins.Page, filter *coins.TransactionType) ([]coins.Transaction, int, error) {
	where := `WHERE user_id = ?`
	args := []any{string(userID)}
	if filter != nil {
		where += ` AND type = ?`
		args = append(args, string(*filter))
	}

	var total int
	if err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM coin_transactions `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, user_id, amount, type, description, ref_type, ref_id, created_at
		FROM coin_transactions `+where+`
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?`, append(args, page.Limit, page.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []coins.Transaction
	for rows.Next() {
		var tx coins.Transaction
		var id, uid, typ, refType string
		if err := rows.Scan(&id, &uid, &tx.Amount, &typ, &tx.Description,
			&refType, &tx.Reference.ID, &tx.CreatedAt); err != nil {
			return nil, 0, err
		}
		tx.ID = coins.TransactionID(id)
		tx.UserID = family.UserID(uid)
		tx.Type = coins.TransactionType(typ)
		tx.Reference.Type = coins.ReferenceType(refType)
		out = append(out, tx)
	}
	return out, total, rows.Err()
}
