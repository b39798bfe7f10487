package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/buildfast/internal/model"
)

const userColumns = "id, email, name, created_at"

// CreateUser inserts a new user. Generates a UUID if ID is empty.
func (s *SQLStore) CreateUser(ctx context.Context, user model.User) (*model.User, error) {
	user.Email = strings.TrimSpace(strings.ToLower(user.Email))
	if user.Email == "" {
		return nil, fmt.Errorf("user email must not be empty")
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = time.Now().UTC()

	_, err := s.exec(ctx,
		"INSERT INTO users (id, email, name, created_at) VALUES (?, ?, ?, ?)",
		user.ID, user.Email, user.Name, user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating user %s: %w", user.Email, err)
	}
	return &user, nil
}

// GetUser retrieves a user by ID.
func (s *SQLStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := s.get(ctx, &user, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	if err != nil {
		return nil, wrapNotFound(err, "user %s", id)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email address, case-insensitively.
func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	var user model.User
	err := s.get(ctx, &user, "SELECT "+userColumns+" FROM users WHERE email = ?", email)
	if err != nil {
		return nil, wrapNotFound(err, "user %s", email)
	}
	return &user, nil
}

// wrapNotFound turns sql.ErrNoRows into ErrNotFound and wraps anything
// else with the given subject.
func wrapNotFound(err error, format string, args ...any) error {
	subject := fmt.Sprintf(format, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", subject, ErrNotFound)
	}
	return fmt.Errorf("getting %s: %w", subject, err)
}
