package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrAuthExpired means the bearer token is missing, expired or rejected (401).
	ErrAuthExpired = errors.New("session expired, please log in again")
	// ErrForbidden means the backend denied the operation (403).
	ErrForbidden = errors.New("not allowed")
	// ErrConflict means a quota or double-booking conflict (409).
	ErrConflict = errors.New("conflict")
	// ErrNotFound is a 404 from the backend.
	ErrNotFound = errors.New("not found")
	// ErrServer covers every other non-2xx status and transport failures.
	ErrServer = errors.New("backend unavailable")
)

// APIError keeps the backend's status and message while matching one of the
// sentinel errors with errors.Is.
type APIError struct {
	Status  int
	Path    string
	Message string
	kind    error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Status > 0 {
		return fmt.Sprintf("%s (http %d)", e.kind, e.Status)
	}
	return e.kind.Error()
}

func (e *APIError) Unwrap() error { return e.kind }

// IsQuotaConflict reports a 409 caused by the daily limit rather than a taken slot.
func (e *APIError) IsQuotaConflict() bool {
	if e.Status != http.StatusConflict {
		return false
	}
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "limit") || strings.Contains(msg, "kontingent")
}

// errorBody is the backend's error JSON.
type errorBody struct {
	Path    string `json:"path"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func kindForStatus(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return ErrAuthExpired
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusConflict:
		return ErrConflict
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return ErrServer
	}
}

// NewAPIError builds the error a response with status and message would produce.
func NewAPIError(status int, message string) *APIError {
	return &APIError{Status: status, Message: message, kind: kindForStatus(status)}
}

// newAPIError classifies a non-2xx response. body may be JSON or plain text.
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status, kind: kindForStatus(status)}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && (eb.Message != "" || eb.Error != "") {
		apiErr.Path = eb.Path
		apiErr.Message = eb.Message
		if apiErr.Message == "" {
			apiErr.Message = eb.Error
		}
		return apiErr
	}

	text := strings.TrimSpace(string(body))
	if len(text) > 300 {
		text = text[:300]
	}
	if strings.HasPrefix(text, "<") {
		// html error pages from proxies are not worth showing
		text = ""
	}
	apiErr.Message = strings.Trim(text, `"`)
	return apiErr
}

func transportError(err error) *APIError {
	return &APIError{kind: ErrServer, Message: fmt.Sprintf("%s: %v", ErrServer, err)}
}

// Outcome maps an error to a short label for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAuthExpired):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
