// Package repository contains the data access layer. Sentinel errors
// defined here let handlers translate storage outcomes into HTTP
// statuses without string matching.
package repository

import (
	"errors"
	"strings"
)

// ErrUserExists is returned when registration collides with an existing
// username or email. Handlers map it to HTTP 409.
var ErrUserExists = errors.New("username or email already exists")

// ErrUserNotFound is returned when a user id or email does not resolve.
var ErrUserNotFound = errors.New("user not found")

// ErrBoxNotFound is returned when a box id does not resolve.
var ErrBoxNotFound = errors.New("box not found")

// ErrItemNotFound is returned when an item id does not resolve.
var ErrItemNotFound = errors.New("item not found")

// ErrAlreadyShared is returned when a grant already exists for a
// (box, user) pair. The box_shares primary key makes this a storage
// level guarantee, not just an application check.
var ErrAlreadyShared = errors.New("box already shared with this user")

// isDuplicate reports whether err is a MySQL duplicate-key violation
// (error 1062). Unique indexes back every conflict sentinel above.
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1062")
}
