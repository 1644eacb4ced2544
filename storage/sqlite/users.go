package sqlite

// User persistence: fulfils family.UserDirectory plus a SaveUser helper
// used by registration and tests.

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ironborrus-star/familycoins/family"
)

// SaveUser inserts or updates a user record.
func (d *DB) SaveUser(ctx context.Context, u family.User) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO users (id, family_id, name, username, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			family_id = excluded.family_id,
			name      = excluded.name,
			username  = excluded.username,
			role      = excluded.role`,
		string(u.ID), string(u.FamilyID), u.Name, u.Username, string(u.Role), u.CreatedAt)
	return err
}

func (d *DB) GetUser(ctx context.Context, id family.UserID) (family.User, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, family_id, name, username, role, created_at
		FROM users WHERE id = ?`, string(id))

	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return family.User{}, &family.NotFoundError{Kind: "user", ID: string(id)}
	}
	return u, err
}

func (d *DB) ListFamilyMembers(ctx context.Context, familyID family.FamilyID) ([]family.User, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, family_id, name, username, role, created_at
		FROM users WHERE family_id = ? ORDER BY created_at`, string(familyID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []family.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func scanUser(row rowScanner) (family.User, error) {
	var u family.User
	var id, fid, role string
	if err := row.Scan(&id, &fid, &u.Name, &u.Username, &role, &u.CreatedAt); err != nil {
		return family.User{}, err
	}
	u.ID = family.UserID(id)
	u.FamilyID = family.FamilyID(fid)
	u.Role = family.Role(role)
	return u, nil
}
