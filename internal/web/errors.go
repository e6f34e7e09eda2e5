package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"tennisluv/internal/backend"
	"tennisluv/internal/selection"
	"tennisluv/internal/service"
	"tennisluv/internal/session"
)

func statusFor(err error) int {
	var rule *selection.RuleError
	switch {
	case service.NeedsLogin(err):
		return http.StatusUnauthorized
	case errors.As(err, &rule):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, backend.ErrInvalidHours):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, backend.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, backend.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, backend.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrSheetsDisabled):
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

// fail reports err as a banner and redirects back. Missing or expired
// credentials end up on the login page instead.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, back string) {
	sess := sessionFrom(r)
	if service.NeedsLogin(err) {
		if !s.sessions.HandleError(r.Context(), sess, err) {
			sess.AddFlash(session.FlashInfo, service.UserMessage(err))
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if statusFor(err) == http.StatusBadGateway {
		s.logger.Warn().Err(err).Str("request_id", requestIDFrom(r.Context())).Str("path", r.URL.Path).Msg("request failed")
	}
	sess.AddFlash(session.FlashError, service.UserMessage(err))
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

func writeError(w http.ResponseWriter, statusCode int, message, reason string) {
	writeJSON(w, statusCode, errorBody{Error: message, Reason: reason})
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusUnauthorized {
		s.sessions.HandleError(r.Context(), sessionFrom(r), err)
	}
	if status == http.StatusBadGateway {
		s.logger.Warn().Err(err).Str("request_id", requestIDFrom(r.Context())).Str("path", r.URL.Path).Msg("api request failed")
	}
	writeError(w, status, service.UserMessage(err), reasonFor(err))
}

func reasonFor(err error) string {
	if reason := selection.ReasonOf(err); reason != "" {
		return string(reason)
	}
	switch {
	case service.NeedsLogin(err):
		return "auth"
	case errors.Is(err, service.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, service.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, backend.ErrForbidden):
		return "forbidden"
	case errors.Is(err, backend.ErrConflict):
		return "conflict"
	case errors.Is(err, backend.ErrNotFound):
		return "not_found"
	}
	return ""
}
