package service

import (
	"errors"
	"fmt"

	"tennisluv/internal/backend"
)

var (
	ErrNotAuthenticated = errors.New("please sign in first")
	ErrAdminRequired    = fmt.Errorf("admin role required: %w", backend.ErrForbidden)
	ErrRateLimited      = errors.New("too many attempts, please wait a moment")
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotOwner         = fmt.Errorf("only your own bookings can be deleted: %w", backend.ErrForbidden)
	ErrSelfChange       = errors.New("you cannot change or delete your own account here")
	ErrSheetsDisabled   = errors.New("google sheets publishing is not configured")
)

// NeedsLogin reports whether err means the session has no valid credentials
// and the caller should be sent to the login page.
func NeedsLogin(err error) bool {
	return errors.Is(err, ErrNotAuthenticated) || errors.Is(err, backend.ErrAuthExpired)
}

// ValidationError lists the fields a form failed on.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("please check the fields: %v", e.Fields)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }
