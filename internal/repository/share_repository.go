// The sharing ledger: a many-to-many relation between users and boxes.
// All sharing state lives in the box_shares table and is read through
// the explicit queries below; nothing else in the codebase derives
// sharing state any other way.
package repository

import (
	"context"
	"database/sql"

	"github.com/romastokriceri/mystorage/internal/model"
)

// ShareRepo provides access to the `box_shares` table.
type ShareRepo struct{ DB *sql.DB }

func NewShareRepo(db *sql.DB) *ShareRepo { return &ShareRepo{DB: db} }

// Grant records that userID may view boxID. The composite primary key
// on (box_id, user_id) enforces at-most-one grant per pair; a duplicate
// insert surfaces as ErrAlreadyShared.
func (r *ShareRepo) Grant(ctx context.Context, boxID, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO box_shares (box_id, user_id) VALUES (?,?)", boxID, userID)
	if isDuplicate(err) {
		return ErrAlreadyShared
	}
	return err
}

// Revoke removes the grant for (boxID, userID). Revoking a grant that
// does not exist is a deliberate no-op: the caller wanted the user to
// have no access, and that is already true.
func (r *ShareRepo) Revoke(ctx context.Context, boxID, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM box_shares WHERE box_id=? AND user_id=?", boxID, userID)
	return err
}

// HasGrant reports whether an active grant exists for (boxID, userID).
// This is the single read consulted by the policy engine.
func (r *ShareRepo) HasGrant(ctx context.Context, boxID, userID uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM box_shares WHERE box_id=? AND user_id=? LIMIT 1",
		boxID, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListUsersForBox returns the users holding a grant for boxID, ordered
// by when they were granted access.
func (r *ShareRepo) ListUsersForBox(ctx context.Context, boxID uint64) ([]*model.User, error) {
	const q = `SELECT u.id, u.username, u.email, u.password_hash, u.created_at, u.updated_at
	           FROM users u
	           JOIN box_shares bs ON bs.user_id = u.id
	           WHERE bs.box_id = ? ORDER BY bs.shared_at, u.id`
	rows, err := r.DB.QueryContext(ctx, q, boxID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.User
	for rows.Next() {
		u := new(model.User)
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
