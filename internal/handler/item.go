package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/romastokriceri/mystorage/internal/model"
	"github.com/romastokriceri/mystorage/internal/policy"
	"github.com/romastokriceri/mystorage/internal/repository"
)

// ItemHandler implements the item endpoints. Items carry no access
// state of their own: every decision here loads the parent box and asks
// the policy engine for OpView, which covers all item operations for
// owners and grant holders alike.
type ItemHandler struct {
	Items  ItemStore
	Boxes  BoxStore
	Policy *policy.Engine
}

func NewItemHandler(items ItemStore, boxes BoxStore, pol *policy.Engine) *ItemHandler {
	if items == nil || boxes == nil || pol == nil {
		panic("nil dependency passed to NewItemHandler")
	}
	return &ItemHandler{Items: items, Boxes: boxes, Policy: pol}
}

// ListItems handles GET /v1/items with an optional box_id query
// parameter. With box_id the box must exist (404) and be viewable
// (403). Without it, the result is every item in every box the actor
// can view.
func (h *ItemHandler) ListItems(c echo.Context) error {
	actor, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()

	if raw := c.QueryParam("box_id"); raw != "" {
		boxID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid box_id"})
		}
		box, err := h.Boxes.GetByID(ctx, boxID)
		if err != nil {
			if errors.Is(err, repository.ErrBoxNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "box not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		if err := h.Policy.Authorize(ctx, actor, box, policy.OpView); err != nil {
			if errors.Is(err, policy.ErrDenied) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		items, err := h.Items.ListByBox(ctx, boxID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		return c.JSON(http.StatusOK, echo.Map{"items": emptyIfNil(items)})
	}

	// No box filter: collect the boxes the actor can view and list
	// their items.
	owned, err := h.Boxes.ListByOwner(ctx, actor)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	shared, err := h.Boxes.ListSharedWith(ctx, actor)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	ids := make([]uint64, 0, len(owned)+len(shared))
	for _, b := range owned {
		ids = append(ids, b.ID)
	}
	for _, b := range shared {
		ids = append(ids, b.ID)
	}
	items, err := h.Items.ListByBoxes(ctx, ids)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": emptyIfNil(items)})
}

// CreateItem handles POST /v1/items. The parent box must exist and be
// viewable by the actor.
func (h *ItemHandler) CreateItem(c echo.Context) error {
	actor, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Category    string `json:"category"`
		PhotoURL    string `json:"photo_url"`
		BoxID       uint64 `json:"box_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	name := strings.TrimSpace(body.Name)
	category := strings.TrimSpace(body.Category)
	if name == "" || category == "" || body.BoxID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, category and box_id are required"})
	}
	ctx := c.Request().Context()

	box, err := h.Boxes.GetByID(ctx, body.BoxID)
	if err != nil {
		if errors.Is(err, repository.ErrBoxNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "box not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if err := h.Policy.Authorize(ctx, actor, box, policy.OpView); err != nil {
		if errors.Is(err, policy.ErrDenied) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	item, err := h.Items.Create(ctx, box.ID, name, body.Description, category, body.PhotoURL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create item"})
	}
	return c.JSON(http.StatusCreated, item)
}

// GetItem handles GET /v1/items/:id.
func (h *ItemHandler) GetItem(c echo.Context) error {
	_, item, ok := h.loadAndAuthorize(c)
	if !ok {
		return nil
	}
	return c.JSON(http.StatusOK, item)
}

// UpdateItem handles PATCH/PUT /v1/items/:id with merge-patch
// semantics: absent fields keep their stored values.
func (h *ItemHandler) UpdateItem(c echo.Context) error {
	_, item, ok := h.loadAndAuthorize(c)
	if !ok {
		return nil
	}
	var patch model.ItemPatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name cannot be empty"})
	}
	if patch.Category != nil && strings.TrimSpace(*patch.Category) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "category cannot be empty"})
	}
	updated, err := h.Items.Update(c.Request().Context(), item.ID, patch)
	if err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "item not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, updated)
}

// DeleteItem handles DELETE /v1/items/:id.
func (h *ItemHandler) DeleteItem(c echo.Context) error {
	_, item, ok := h.loadAndAuthorize(c)
	if !ok {
		return nil
	}
	if err := h.Items.Delete(c.Request().Context(), item.ID); err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "item not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// loadAndAuthorize parses :id, loads the item, then its parent box, and
// asks the policy engine for OpView. Missing item -> 404 before any
// permission consideration; the response is written on failure.
func (h *ItemHandler) loadAndAuthorize(c echo.Context) (actor uint64, item *model.Item, ok bool) {
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
	ctx := c.Request().Context()

	item, err = h.Items.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			_ = c.JSON(http.StatusNotFound, echo.Map{"error": "item not found"})
		} else {
			_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		return 0, nil, false
	}
	box, err := h.Boxes.GetByID(ctx, item.BoxID)
	if err != nil {
		// The parent box is gone while the item survived; the cascade
		// makes this unreachable, but treat it as not found.
		_ = c.JSON(http.StatusNotFound, echo.Map{"error": "box not found"})
		return 0, nil, false
	}
	if err := h.Policy.Authorize(ctx, actor, box, policy.OpView); err != nil {
		if errors.Is(err, policy.ErrDenied) {
			_ = c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
		} else {
			_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		return 0, nil, false
	}
	return actor, item, true
}

func emptyIfNil(items []*model.Item) []*model.Item {
	if items == nil {
		return []*model.Item{}
	}
	return items
}
