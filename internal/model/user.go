package model

import "time"

// User represents a row in the `users` table. Username and email are
// both unique; the password is stored only as a bcrypt hash. The json
// tags match the public API representation; the password hash is never
// serialized.
type User struct {
	ID           uint64    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
