package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/romastokriceri/mystorage/internal/model"
	"github.com/romastokriceri/mystorage/internal/policy"
	"github.com/romastokriceri/mystorage/internal/queue"
	"github.com/romastokriceri/mystorage/internal/repository"
	queue_publisher "github.com/romastokriceri/mystorage/internal/service"
)

// BoxHandler implements the box CRUD and sharing endpoints. Every
// operation fetches the box first (missing -> 404 for everyone) and
// then consults the policy engine; the fetch-then-authorize order is
// deliberate and must not be swapped.
type BoxHandler struct {
	Boxes  BoxStore
	Items  ItemStore
	Shares ShareStore
	Users  UserStore
	Policy *policy.Engine

	// Publish sends a share event to the broker. Overridable in tests;
	// failures are ignored by the handler since the publisher logs them.
	Publish func(ctx context.Context, ev queue.BoxSharedEvent) error
}

func NewBoxHandler(boxes BoxStore, items ItemStore, shares ShareStore, users UserStore, pol *policy.Engine) *BoxHandler {
	if boxes == nil || items == nil || shares == nil || users == nil || pol == nil {
		panic("nil dependency passed to NewBoxHandler")
	}
	return &BoxHandler{
		Boxes:   boxes,
		Items:   items,
		Shares:  shares,
		Users:   users,
		Policy:  pol,
		Publish: queue_publisher.PublishBoxShared,
	}
}

// boxResp embeds the box and adds its item list, mirroring the shape
// GetBox returns.
type boxResp struct {
	*model.Box
	Items []*model.Item `json:"items"`
}

// ListBoxes handles GET /v1/boxes. The result is the union of boxes the
// actor owns and boxes shared with them; the latter carry is_shared.
func (h *BoxHandler) ListBoxes(c echo.Context) error {
	actor, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()

	owned, err := h.Boxes.ListByOwner(ctx, actor)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	shared, err := h.Boxes.ListSharedWith(ctx, actor)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	all := make([]*model.Box, 0, len(owned)+len(shared))
	all = append(all, owned...)
	for _, b := range shared {
		b.IsShared = true
		all = append(all, b)
	}
	return c.JSON(http.StatusOK, echo.Map{"boxes": all})
}

// CreateBox handles POST /v1/boxes. The actor becomes the owner and a
// fresh QR token is generated server-side.
func (h *BoxHandler) CreateBox(c echo.Context) error {
	actor, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Location    string `json:"location"`
		PhotoURL    string `json:"photo_url"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	box, err := h.Boxes.Create(c.Request().Context(), actor, name, body.Description, body.Location, body.PhotoURL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create box"})
	}
	return c.JSON(http.StatusCreated, box)
}

// GetBox handles GET /v1/boxes/:id and returns the box together with
// its items.
func (h *BoxHandler) GetBox(c echo.Context) error {
	_, box, ok := h.loadAndAuthorize(c, policy.OpView)
	if !ok {
		return nil
	}
	items, err := h.Items.ListByBox(c.Request().Context(), box.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if items == nil {
		items = []*model.Item{}
	}
	return c.JSON(http.StatusOK, boxResp{Box: box, Items: items})
}

// UpdateBox handles PATCH/PUT /v1/boxes/:id. Only the owner may update;
// the patch is a merge patch, so absent fields keep their stored
// values, and owner_id/qr_code are not patchable at all.
func (h *BoxHandler) UpdateBox(c echo.Context) error {
	_, box, ok := h.loadAndAuthorize(c, policy.OpEdit)
	if !ok {
		return nil
	}
	var patch model.BoxPatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name cannot be empty"})
	}
	updated, err := h.Boxes.Update(c.Request().Context(), box.ID, patch)
	if err != nil {
		if errors.Is(err, repository.ErrBoxNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "box not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, updated)
}

// DeleteBox handles DELETE /v1/boxes/:id. Only the owner may delete.
// Items and grants go with the box in one transaction.
func (h *BoxHandler) DeleteBox(c echo.Context) error {
	_, box, ok := h.loadAndAuthorize(c, policy.OpEdit)
	if !ok {
		return nil
	}
	if err := h.Boxes.DeleteCascade(c.Request().Context(), box.ID); err != nil {
		if errors.Is(err, repository.ErrBoxNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "box not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ShareBox handles POST /v1/boxes/:id/share. The owner grants view
// access to another user, addressed by email.
func (h *BoxHandler) ShareBox(c echo.Context) error {
	actor, box, ok := h.loadAndAuthorize(c, policy.OpShare)
	if !ok {
		return nil
	}
	var body struct {
		UserEmail string `json:"user_email"`
	}
	if err := c.Bind(&body); err != nil || strings.TrimSpace(body.UserEmail) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_email required"})
	}
	ctx := c.Request().Context()

	grantee, err := h.Users.GetByEmail(ctx, body.UserEmail)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	// The owner is implicitly authorized for everything; a self-grant
	// would be meaningless noise in the ledger.
	if grantee.ID == box.OwnerID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot share a box with its owner"})
	}
	if err := h.Shares.Grant(ctx, box.ID, grantee.ID); err != nil {
		if errors.Is(err, repository.ErrAlreadyShared) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "already shared"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "share failed"})
	}

	ev := queue.BoxSharedEvent{
		BoxID:        box.ID,
		BoxName:      box.Name,
		OwnerID:      actor,
		GranteeID:    grantee.ID,
		GranteeEmail: grantee.Email,
		SharedAt:     time.Now().UTC().Format(time.RFC3339),
	}
	// Detached from the request: broker trouble must not fail the share.
	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = h.Publish(pubCtx, ev)
	}()

	return c.JSON(http.StatusOK, echo.Map{"message": "box shared successfully"})
}

// UnshareBox handles DELETE /v1/boxes/:id/share/:user_id. Revoking a
// grant that does not exist succeeds: the desired end state already
// holds.
func (h *BoxHandler) UnshareBox(c echo.Context) error {
	_, box, ok := h.loadAndAuthorize(c, policy.OpShare)
	if !ok {
		return nil
	}
	granteeID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	if err := h.Shares.Revoke(c.Request().Context(), box.ID, granteeID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "unshare failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ListShares handles GET /v1/boxes/:id/shares and returns the users the
// box is currently shared with. Owner only, like share/unshare.
func (h *BoxHandler) ListShares(c echo.Context) error {
	_, box, ok := h.loadAndAuthorize(c, policy.OpShare)
	if !ok {
		return nil
	}
	users, err := h.Shares.ListUsersForBox(c.Request().Context(), box.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	out := make([]userPart, 0, len(users))
	for _, u := range users {
		out = append(out, userPart{ID: u.ID, Username: u.Username, Email: u.Email})
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out})
}

// loadAndAuthorize parses :id, loads the box and runs the policy
// check, in that order: a missing box is 404 for everyone, a present
// box the actor may not touch is 403. On failure the response has
// already been written and ok is false. On success the box is returned
// with IsShared derived for the actor.
func (h *BoxHandler) loadAndAuthorize(c echo.Context, op policy.Op) (actor uint64, box *model.Box, ok bool) {
	actor, err := getUserID(c)
	if err != nil {
		_ = c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		return 0, nil, false
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
		return 0, nil, false
	}
	box, err = h.Boxes.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrBoxNotFound) {
			_ = c.JSON(http.StatusNotFound, echo.Map{"error": "box not found"})
		} else {
			_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		return 0, nil, false
	}
	if err := h.Policy.Authorize(c.Request().Context(), actor, box, op); err != nil {
		if errors.Is(err, policy.ErrDenied) {
			_ = c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
		} else {
			_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		return 0, nil, false
	}
	box.IsShared = box.OwnerID != actor
	return actor, box, true
}
