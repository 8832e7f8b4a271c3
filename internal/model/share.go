package model

import "time"

// BoxShare is one row of the sharing ledger: user UserID may view box
// BoxID and everything in it. The table has a composite primary key on
// (box_id, user_id), so at most one grant exists per pair.
type BoxShare struct {
	BoxID    uint64    `json:"box_id"`
	UserID   uint64    `json:"user_id"`
	SharedAt time.Time `json:"shared_at"`
}
