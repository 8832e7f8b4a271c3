// Box persistence. Reads come in three flavors used by the handlers and
// the policy engine: by id (any box), owned-by list, and shared-with
// list via the box_shares ledger. Deletion cascades to items and grants
// inside a single transaction so a concurrent reader never observes a
// half-deleted box.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/romastokriceri/mystorage/internal/model"
)

// BoxRepo provides access to the `boxes` table.
type BoxRepo struct{ DB *sql.DB }

func NewBoxRepo(db *sql.DB) *BoxRepo { return &BoxRepo{DB: db} }

const boxCols = `id, name, COALESCE(description,''), COALESCE(location,''),
	COALESCE(photo_url,''), qr_code, owner_id, created_at, updated_at`

// Create inserts a new box owned by ownerID and generates a fresh QR
// token for it. The token is the first 8 characters of a v4 UUID, which
// is short enough to print on a label and unique enough in practice;
// the unique index on qr_code catches the rare collision, in which case
// a new token is tried.
func (r *BoxRepo) Create(ctx context.Context, ownerID uint64, name, description, location, photoURL string) (*model.Box, error) {
	for {
		qr := uuid.NewString()[:8]
		res, err := r.DB.ExecContext(ctx,
			"INSERT INTO boxes (name, description, location, photo_url, qr_code, owner_id) VALUES (?,?,?,?,?,?)",
			name, description, location, photoURL, qr, ownerID)
		if err != nil {
			if isDuplicate(err) {
				continue // qr_code collision, retry with a new token
			}
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		return r.GetByID(ctx, uint64(id))
	}
}

// GetByID fetches a box regardless of owner. Ownership and sharing are
// judged by the policy engine, not here.
func (r *BoxRepo) GetByID(ctx context.Context, id uint64) (*model.Box, error) {
	var b model.Box
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+boxCols+" FROM boxes WHERE id=? LIMIT 1", id).
		Scan(&b.ID, &b.Name, &b.Description, &b.Location, &b.PhotoURL,
			&b.QRCode, &b.OwnerID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBoxNotFound
		}
		return nil, err
	}
	return &b, nil
}

// ListByOwner returns all boxes owned by ownerID ordered by id.
func (r *BoxRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]*model.Box, error) {
	return r.list(ctx, "SELECT "+boxCols+" FROM boxes WHERE owner_id=? ORDER BY id", ownerID)
}

// ListSharedWith returns all boxes userID can view through a grant,
// ordered by id. The join against box_shares is the explicit ledger
// read; there are no lazy back-references anywhere in this codebase.
func (r *BoxRepo) ListSharedWith(ctx context.Context, userID uint64) ([]*model.Box, error) {
	const q = `SELECT b.id, b.name, COALESCE(b.description,''), COALESCE(b.location,''),
	       COALESCE(b.photo_url,''), b.qr_code, b.owner_id, b.created_at, b.updated_at
	       FROM boxes b
	       JOIN box_shares bs ON bs.box_id = b.id
	       WHERE bs.user_id = ? ORDER BY b.id`
	return r.list(ctx, q, userID)
}

func (r *BoxRepo) list(ctx context.Context, q string, args ...any) ([]*model.Box, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Box
	for rows.Next() {
		b := new(model.Box)
		if err := rows.Scan(&b.ID, &b.Name, &b.Description, &b.Location, &b.PhotoURL,
			&b.QRCode, &b.OwnerID, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update applies a merge patch: only non-nil fields of the patch
// overwrite stored values. owner_id and qr_code have no corresponding
// patch fields and therefore can never change here. Returns
// ErrBoxNotFound when the id does not resolve.
func (r *BoxRepo) Update(ctx context.Context, id uint64, p model.BoxPatch) (*model.Box, error) {
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
	if p.Location != nil {
		set = append(set, "location=?")
		args = append(args, *p.Location)
	}
	if p.PhotoURL != nil {
		set = append(set, "photo_url=?")
		args = append(args, *p.PhotoURL)
	}
	if len(set) > 0 {
		set = append(set, "updated_at=CURRENT_TIMESTAMP")
		args = append(args, id)
		// RowsAffected is 0 both for a missing row and for a no-op write
		// of identical values, so existence is confirmed by the re-read.
		if _, err := r.DB.ExecContext(ctx,
			"UPDATE boxes SET "+strings.Join(set, ", ")+" WHERE id=?", args...); err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, id)
}

// DeleteCascade removes the box, its items and its sharing grants in
// one transaction. Callers decide ownership before calling; this method
// only guarantees atomicity of the cascade.
func (r *BoxRepo) DeleteCascade(ctx context.Context, id uint64) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	var exists uint64
	if err = tx.QueryRowContext(ctx, "SELECT id FROM boxes WHERE id=? FOR UPDATE", id).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrBoxNotFound
		}
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM items WHERE box_id=?", id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM box_shares WHERE box_id=?", id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM boxes WHERE id=?", id); err != nil {
		return err
	}
	return nil
}
