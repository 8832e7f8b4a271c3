// Package queue defines message payloads exchanged over the message
// broker and the background consumer that turns them into notification
// log lines.
package queue

// BoxSharedEvent is published when an owner grants another user access
// to a box. It carries enough information for downstream consumers to
// notify the grantee without querying the primary database.
type BoxSharedEvent struct {
	BoxID        uint64 `json:"box_id"`
	BoxName      string `json:"box_name"`
	OwnerID      uint64 `json:"owner_id"`
	GranteeID    uint64 `json:"grantee_id"`
	GranteeEmail string `json:"grantee_email"`
	SharedAt     string `json:"shared_at"`
}
