// Package handler implements the HTTP endpoints. Handlers depend on
// narrow store interfaces rather than concrete repositories so tests
// can drive them with in-memory fakes; the repository types satisfy
// these interfaces directly.
package handler

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/romastokriceri/mystorage/internal/middleware"
	"github.com/romastokriceri/mystorage/internal/model"
)

// UserStore is the identity store surface used by handlers.
type UserStore interface {
	Create(ctx context.Context, username, email, password string, cost int) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// BoxStore is the box registry surface used by handlers.
type BoxStore interface {
	Create(ctx context.Context, ownerID uint64, name, description, location, photoURL string) (*model.Box, error)
	GetByID(ctx context.Context, id uint64) (*model.Box, error)
	ListByOwner(ctx context.Context, ownerID uint64) ([]*model.Box, error)
	ListSharedWith(ctx context.Context, userID uint64) ([]*model.Box, error)
	Update(ctx context.Context, id uint64, p model.BoxPatch) (*model.Box, error)
	DeleteCascade(ctx context.Context, id uint64) error
}

// ItemStore is the item registry surface used by handlers.
type ItemStore interface {
	Create(ctx context.Context, boxID uint64, name, description, category, photoURL string) (*model.Item, error)
	GetByID(ctx context.Context, id uint64) (*model.Item, error)
	ListByBox(ctx context.Context, boxID uint64) ([]*model.Item, error)
	ListByBoxes(ctx context.Context, boxIDs []uint64) ([]*model.Item, error)
	Update(ctx context.Context, id uint64, p model.ItemPatch) (*model.Item, error)
	Delete(ctx context.Context, id uint64) error
}

// ShareStore is the sharing ledger surface used by handlers.
type ShareStore interface {
	Grant(ctx context.Context, boxID, userID uint64) error
	Revoke(ctx context.Context, boxID, userID uint64) error
	ListUsersForBox(ctx context.Context, boxID uint64) ([]*model.User, error)
}

// TokenStore is the refresh token surface used by the auth handler.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// getUserID extracts the authenticated user id placed in the context by
// the JWT middleware.
func getUserID(c echo.Context) (uint64, error) {
	if uid, ok := c.Get(middleware.ContextUserID).(uint64); ok && uid != 0 {
		return uid, nil
	}
	return 0, errors.New("no authenticated user in context")
}
