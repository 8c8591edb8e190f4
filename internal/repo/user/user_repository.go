package user

import (
	"context"

	"github.com/mkrupp/homecase-users/internal/domain"
)

// Repository defines the interface for user data persistence.
// Implementations serialize all operations so uniqueness checks and id
// assignment are atomic with the write that depends on them.
type Repository interface {
	// CreateUser stores a new user and returns it with its assigned ID.
	// Returns ErrUserAlreadyExists if the email is already taken.
	CreateUser(ctx context.Context, user domain.NewUser) (domain.User, error)

	// ListUsers returns every stored user in insertion order.
	// Returns an empty, non-nil slice when there are none.
	ListUsers(ctx context.Context) ([]domain.User, error)

	// GetUserByID retrieves a user by ID.
	// Returns ErrUserNotFound if no user has that ID.
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)

	// UpdateUser overwrites the fields present in patch and returns the stored result.
	// Returns ErrUserNotFound if no user has that ID, or ErrUserAlreadyExists if
	// the resulting email belongs to another user.
	UpdateUser(ctx context.Context, id int64, patch domain.UserPatch) (domain.User, error)

	// DeleteUser permanently removes a user.
	// Returns ErrUserNotFound if no user has that ID.
	DeleteUser(ctx context.Context, id int64) error

	// Close releases any resources held by the repository.
	// Returns an error if cleanup fails.
	Close() error
}

// RepositoryFactory is a function that creates a new Repository instance.
// Returns an error if initialization fails.
type RepositoryFactory func() (Repository, error)
