// Package session holds the per-visitor state the front end keeps between
// requests: the backend bearer token, the cached profile and the selection.
package session

import (
	"time"

	"tennisluv/internal/models"
	"tennisluv/internal/selection"

	"github.com/google/uuid"
)

type FlashKind string

const (
	FlashInfo    FlashKind = "info"
	FlashSuccess FlashKind = "success"
	FlashError   FlashKind = "error"
)

// Flash is a dismissible banner shown once on the next rendered page.
type Flash struct {
	Kind    FlashKind `json:"kind"`
	Message string    `json:"message"`
}

type Session struct {
	ID        string           `json:"id"`
	Token     string           `json:"token,omitempty"`
	User      *models.User     `json:"user,omitempty"`
	Selection *selection.State `json:"selection,omitempty"`
	Flashes   []Flash          `json:"flashes,omitempty"`
	// PendingEmail is the address waiting for verification after registration.
	PendingEmail string `json:"pendingEmail,omitempty"`
	// Pinned sessions keep their id across sign-in.
	Pinned    bool      `json:"pinned,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// New creates an anonymous session with a random id.
func New(now time.Time) *Session {
	return &Session{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
}

// NewWithID creates an anonymous session under a caller-chosen id, used by the
// bot where the Telegram user id is the key.
func NewWithID(id string, now time.Time) *Session {
	return &Session{ID: id, Pinned: true, CreatedAt: now, UpdatedAt: now}
}

func (s *Session) Authenticated() bool {
	return s != nil && s.Token != "" && s.User != nil
}

func (s *Session) IsAdmin() bool {
	return s.Authenticated() && s.User.IsAdminRole()
}

// SignIn stores the credentials of a successful login.
func (s *Session) SignIn(token string, user *models.User) {
	s.Token = token
	s.User = user
	s.Selection = nil
	s.PendingEmail = ""
}

// Renew moves the session to a fresh random id and returns the old one.
func (s *Session) Renew() string {
	old := s.ID
	s.ID = uuid.NewString()
	return old
}

// SignOut drops credentials and selection but keeps the id and pending flashes.
func (s *Session) SignOut() {
	s.Token = ""
	s.User = nil
	s.Selection = nil
}

func (s *Session) AddFlash(kind FlashKind, msg string) {
	if msg == "" {
		return
	}
	s.Flashes = append(s.Flashes, Flash{Kind: kind, Message: msg})
}

// PopFlashes returns and clears the pending banners.
func (s *Session) PopFlashes() []Flash {
	f := s.Flashes
	s.Flashes = nil
	return f
}

// SelectionFor returns the selection state, creating one for day if missing.
func (s *Session) SelectionFor(day time.Time) *selection.State {
	if s.Selection == nil {
		s.Selection = selection.NewState(day)
	}
	return s.Selection
}
