package model

import "time"

// Item is a thing stored inside a box. Items have no access control of
// their own: whoever can view the parent box can create, update and
// delete its items.
type Item struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	BoxID       uint64    `json:"box_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ItemPatch carries a merge patch for an item update. Nil fields are
// left untouched. BoxID is not patchable: items are not moved between
// boxes through update.
type ItemPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	PhotoURL    *string `json:"photo_url"`
}
