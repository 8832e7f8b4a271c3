package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/romastokriceri/mystorage/internal/model"
	"github.com/romastokriceri/mystorage/internal/utils"
)

// UserRepo provides access to the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = "id, username, email, password_hash, created_at, updated_at"

// Create hashes the password and inserts a new user. The email is
// normalized to lower case before storage so lookups are case
// insensitive. ErrUserExists is returned when either the username or
// the email collides with an existing row.
func (r *UserRepo) Create(ctx context.Context, username, email, password string, cost int) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return nil, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash) VALUES (?,?,?)",
		username, email, hash)
	if err != nil {
		if isDuplicate(err) {
			return nil, ErrUserExists
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID fetches a user by primary key.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return r.getOne(ctx, "SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.getOne(ctx, "SELECT "+userCols+" FROM users WHERE email=? LIMIT 1", email)
}

// GetByUsername fetches a user by exact username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getOne(ctx, "SELECT "+userCols+" FROM users WHERE username=? LIMIT 1", username)
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (*model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx, q, arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}
