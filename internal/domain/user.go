package domain

import "errors"

var (
	// ErrUserAlreadyExists is returned when a write would give two users the same email.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrUserNotFound is returned when looking up a non-existent user.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidRequest is returned when required input is missing or empty.
	ErrInvalidRequest = errors.New("invalid request")
)

// User represents a stored user record.
type User struct {
	ID    int64  `json:"id"    db:"id"`    // Store-assigned, never reused
	Name  string `json:"name"  db:"name"`  // Display name
	Email string `json:"email" db:"email"` // Unique across live users
	Age   *int64 `json:"age"   db:"age"`   // Optional, encoded as null when unset
}

// NewUser holds the fields required to create a user.
type NewUser struct {
	Name  string
	Email string
	Age   *int64
}

// InvalidRequestError carries the client-facing reason a request was rejected.
// It matches ErrInvalidRequest with errors.Is.
type InvalidRequestError struct {
	Reason string
}

// NewInvalidRequestError returns an InvalidRequestError with the given reason.
func NewInvalidRequestError(reason string) *InvalidRequestError {
	return &InvalidRequestError{Reason: reason}
}

func (e *InvalidRequestError) Error() string {
	return "invalid request: " + e.Reason
}

// Is reports whether target is ErrInvalidRequest.
func (e *InvalidRequestError) Is(target error) bool {
	return target == ErrInvalidRequest //nolint:errorlint
}
