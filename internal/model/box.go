// Package model defines the row structs persisted by the repository
// layer. Each struct mirrors one table; optional columns use sql.Null*
// at the repository level and plain strings here, with empty meaning
// absent.
package model

import "time"

// Box is a physical storage container. Each box belongs to exactly one
// owner; OwnerID never changes after creation. QRCode is a short opaque
// token generated by the server at creation time and unique across all
// boxes.
type Box struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	QRCode      string    `json:"qr_code"`
	OwnerID     uint64    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// IsShared is derived per request: true when the box is visible to
	// the current actor through a grant rather than ownership. It is not
	// a column.
	IsShared bool `json:"is_shared"`
}

// BoxPatch carries a merge patch for a box update. Nil fields are left
// untouched. Ownership and the QR code are deliberately not patchable.
type BoxPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Location    *string `json:"location"`
	PhotoURL    *string `json:"photo_url"`
}
