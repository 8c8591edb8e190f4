package usersvc

import (
	"context"
	"fmt"

	"github.com/mkrupp/homecase-users/internal/domain"
	"github.com/mkrupp/homecase-users/internal/infra/logging"
	"github.com/mkrupp/homecase-users/internal/repo/user"
)

// UserService validates user requests and applies them to the user repository.
// It holds no per-request state.
type UserService struct {
	UserRepo user.Repository
	Log      logging.Logger
}

// NewUserService creates a new UserService backed by a repository from the given factory.
// Returns an error if the repository cannot be created.
func NewUserService(repoFactory user.RepositoryFactory) (*UserService, error) {
	userRepo, err := repoFactory()
	if err != nil {
		return nil, fmt.Errorf("new user repo: %w", err)
	}

	return &UserService{
		UserRepo: userRepo,
		Log:      logging.GetLogger("svc.usersvc.user_service"),
	}, nil
}

// CreateUser validates req and stores a new user.
// Returns ErrInvalidRequest if name or email is missing, or ErrUserAlreadyExists
// if the email is taken. No store call is made for an invalid request.
func (s *UserService) CreateUser(ctx context.Context, req domain.CreateUserRequest) (created domain.User, err error) {
	log := s.Log

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "create user failed", "error", err)
		} else {
			log.DebugContext(ctx, "user created", logging.Group("user", "id", created.ID))
		}
	}()

	newUser, err := validateCreate(req)
	if err != nil {
		return domain.User{}, err
	}

	created, err = s.UserRepo.CreateUser(ctx, newUser)
	if err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	return created, nil
}

// ListUsers returns every stored user in insertion order.
func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.UserRepo.ListUsers(ctx)
	if err != nil {
		s.Log.ErrorContext(ctx, "list users failed", "error", err)

		return nil, fmt.Errorf("list users: %w", err)
	}

	return users, nil
}

// GetUser returns the user with the given ID, or ErrUserNotFound.
func (s *UserService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	found, err := s.UserRepo.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return found, nil
}

// UpdateUser overwrites the fields present in patch on the user with the given ID.
// The existing record is looked up first, so a missing user yields ErrUserNotFound
// without attempting a write. Absent fields keep their stored values.
func (s *UserService) UpdateUser(ctx context.Context, id int64, patch domain.UserPatch) (updated domain.User, err error) {
	log := s.Log.With(logging.Group("user", "id", id))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "update user failed", "error", err)
		} else {
			log.DebugContext(ctx, "user updated")
		}
	}()

	if err := validatePatch(patch); err != nil {
		return domain.User{}, err
	}

	existing, err := s.UserRepo.GetUserByID(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}

	merged := patch.Apply(*existing)

	updated, err = s.UserRepo.UpdateUser(ctx, id, mergedPatch(merged))
	if err != nil {
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}

	return updated, nil
}

// DeleteUser permanently removes the user with the given ID.
// Returns ErrUserNotFound if it does not exist.
func (s *UserService) DeleteUser(ctx context.Context, id int64) (err error) {
	log := s.Log.With(logging.Group("user", "id", id))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "delete user failed", "error", err)
		} else {
			log.DebugContext(ctx, "user deleted")
		}
	}()

	if _, err := s.UserRepo.GetUserByID(ctx, id); err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	if err := s.UserRepo.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	return nil
}

// Close releases resources held by the service, such as database connections.
// Returns an error if cleanup fails.
func (s *UserService) Close() error {
	if err := s.UserRepo.Close(); err != nil {
		return fmt.Errorf("close user repo: %w", err)
	}

	return nil
}
