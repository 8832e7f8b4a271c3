package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/romastokriceri/mystorage/internal/model"
)

// ItemRepo provides access to the `items` table. Access control for
// items is entirely inherited from the parent box, so no owner column
// exists here and no ownership filtering happens in this repository.
type ItemRepo struct{ DB *sql.DB }

func NewItemRepo(db *sql.DB) *ItemRepo { return &ItemRepo{DB: db} }

const itemCols = `id, name, COALESCE(description,''), category,
	COALESCE(photo_url,''), box_id, created_at, updated_at`

// Create inserts an item into the given box. The caller has already
// verified that the box exists and that the actor may view it.
func (r *ItemRepo) Create(ctx context.Context, boxID uint64, name, description, category, photoURL string) (*model.Item, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO items (name, description, category, photo_url, box_id) VALUES (?,?,?,?,?)",
		name, description, category, photoURL, boxID)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID fetches an item by primary key.
func (r *ItemRepo) GetByID(ctx context.Context, id uint64) (*model.Item, error) {
	var it model.Item
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+itemCols+" FROM items WHERE id=? LIMIT 1", id).
		Scan(&it.ID, &it.Name, &it.Description, &it.Category, &it.PhotoURL,
			&it.BoxID, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return &it, nil
}

// ListByBox returns all items in a box ordered by id.
func (r *ItemRepo) ListByBox(ctx context.Context, boxID uint64) ([]*model.Item, error) {
	return r.list(ctx, "SELECT "+itemCols+" FROM items WHERE box_id=? ORDER BY id", boxID)
}

// ListByBoxes returns the items of every box in boxIDs ordered by id.
// Used by the unscoped item listing, where the caller passes the set of
// boxes the actor may view. An empty set short-circuits to no rows.
func (r *ItemRepo) ListByBoxes(ctx context.Context, boxIDs []uint64) ([]*model.Item, error) {
	if len(boxIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(boxIDs)), ",")
	args := make([]any, len(boxIDs))
	for i, id := range boxIDs {
		args[i] = id
	}
	return r.list(ctx, "SELECT "+itemCols+" FROM items WHERE box_id IN ("+placeholders+") ORDER BY id", args...)
}

func (r *ItemRepo) list(ctx context.Context, q string, args ...any) ([]*model.Item, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Item
	for rows.Next() {
		it := new(model.Item)
		if err := rows.Scan(&it.ID, &it.Name, &it.Description, &it.Category, &it.PhotoURL,
			&it.BoxID, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update applies a merge patch: only non-nil fields overwrite stored
// values. box_id has no patch field, so items cannot be moved between
// boxes through update.
func (r *ItemRepo) Update(ctx context.Context, id uint64, p model.ItemPatch) (*model.Item, error) {
	set := []string{}
	args := []any{}
	if p.Name != nil {
		set = append(set, "name=?")
		args = append(args, *p.Name)
	}
	if p.Description != nil {
		set = append(set, "description=?")
		args = append(args, *p.Description)
	}
	if p.Category != nil {
		set = append(set, "category=?")
		args = append(args, *p.Category)
	}
	if p.PhotoURL != nil {
		set = append(set, "photo_url=?")
		args = append(args, *p.PhotoURL)
	}
	if len(set) > 0 {
		set = append(set, "updated_at=CURRENT_TIMESTAMP")
		args = append(args, id)
		if _, err := r.DB.ExecContext(ctx,
			"UPDATE items SET "+strings.Join(set, ", ")+" WHERE id=?", args...); err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, id)
}

// Delete removes a single item. Returns ErrItemNotFound when no row was
// deleted.
func (r *ItemRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM items WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrItemNotFound
	}
	return nil
}
