package service

import (
	"errors"

	"tennisluv/internal/backend"
	"tennisluv/internal/selection"
)

// UserMessage is the text shown to a person for err. Backend messages are shown as
// they come; anything unexpected gets a generic line.
func UserMessage(err error) string {
	var rule *selection.RuleError
	if errors.As(err, &rule) {
		return rule.Error()
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	for _, known := range []error{
		ErrNotAuthenticated, ErrRateLimited, ErrSelfChange,
		ErrSheetsDisabled, ErrNotOwner, ErrAdminRequired,
		ErrInvalidInput, backend.ErrInvalidHours,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	switch {
	case errors.Is(err, backend.ErrAuthExpired):
		return "Your session has expired. Please sign in again."
	case errors.Is(err, backend.ErrForbidden):
		return "You are not allowed to do this."
	case errors.Is(err, backend.ErrConflict):
		return "The slot was taken in the meantime."
	case errors.Is(err, backend.ErrNotFound):
		return "The entry no longer exists."
	case errors.Is(err, backend.ErrServer):
		return "The booking service is not reachable right now. Please try again."
	}
	return "Something went wrong. Please try again."
}
