// Package users provides the user store: creation with username uniqueness
// enforced by the database, and lookups by id and username.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.CreateUser(ctx, "alice", hash)
//	var verr *users.ValidationError
//	if errors.As(err, &verr) { ... verr.Messages ... }
package users

import (
	"context"
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"
	"github.com/samber/oops"
	"gorm.io/gorm"

	"github.com/mrlokans/session-auth/internal/entities"
)

// MaxUsernameLength matches the column size of entities.User.Username.
const MaxUsernameLength = 100

// Validation messages, phrased as full sentences for API clients.
const (
	MsgUsernameBlank   = "Username can't be blank"
	MsgUsernameTooLong = "Username is too long (maximum is 100 characters)"
	MsgUsernameTaken   = "Username has already been taken"
	MsgPasswordBlank   = "Password can't be blank"
)

// ErrNotFound is returned when no user matches a lookup.
var ErrNotFound = errors.New("user not found")

// ValidationError reports why a user record was rejected by the store.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, ", ")
}

// ValidateUsername returns the store's rule violations for a username.
func ValidateUsername(username string) []string {
	var msgs []string
	if strings.TrimSpace(username) == "" {
		msgs = append(msgs, MsgUsernameBlank)
	}
	if len(username) > MaxUsernameLength {
		msgs = append(msgs, MsgUsernameTooLong)
	}
	return msgs
}

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateUser persists a user with an already hashed credential. Constraint
// violations, including a duplicate username, come back as *ValidationError.
func (r *Repository) CreateUser(ctx context.Context, username, passwordHash string) (*entities.User, error) {
	msgs := ValidateUsername(username)
	if passwordHash == "" {
		msgs = append(msgs, MsgPasswordBlank)
	}
	if len(msgs) > 0 {
		return nil, &ValidationError{Messages: msgs}
	}

	user := &entities.User{
		Username:     username,
		PasswordHash: passwordHash,
	}

	// The unique index on username is the only uniqueness check.
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, &ValidationError{Messages: []string{MsgUsernameTaken}}
		}
		return nil, oops.Code("USER_CREATE_FAILED").
			With("username", username).
			Wrap(err)
	}

	return user, nil
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(ctx context.Context, id uint) (*entities.User, error) {
	var user entities.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, oops.Code("USER_LOOKUP_FAILED").With("user_id", id).Wrap(err)
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*entities.User, error) {
	var user entities.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, oops.Code("USER_LOOKUP_FAILED").With("username", username).Wrap(err)
	}
	return &user, nil
}

// DeleteUser removes a user. Sessions that still reference the id resolve to
// no user afterwards.
func (r *Repository) DeleteUser(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&entities.User{}, id)
	if result.Error != nil {
		return oops.Code("USER_DELETE_FAILED").With("user_id", id).Wrap(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
