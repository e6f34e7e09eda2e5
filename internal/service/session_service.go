package service

import (
	"context"
	"errors"
	"time"

	"tennisluv/internal/backend"
	"tennisluv/internal/domain"
	"tennisluv/internal/events"
	"tennisluv/internal/models"
	"tennisluv/internal/session"

	"github.com/rs/zerolog"
)

const sessionExpiredMessage = "Your session has expired. Please sign in again."

type SessionService struct {
	repo     domain.SessionRepository
	eventBus domain.EventPublisher
	locks    *keyedMutex
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewSessionService(repo domain.SessionRepository, eventBus domain.EventPublisher, logger *zerolog.Logger) *SessionService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &SessionService{
		repo:     repo,
		eventBus: eventBus,
		locks:    newKeyedMutex(),
		logger:   logger,
		now:      time.Now,
	}
}

// Lock serializes all work on one session. The returned func releases it.
func (s *SessionService) Lock(id string) func() {
	return s.locks.Lock(id)
}

// Hydrate loads the session with id or starts an anonymous one when the id is
// empty, unknown or expired.
func (s *SessionService) Hydrate(ctx context.Context, id string) (*session.Session, error) {
	if id != "" {
		sess, err := s.repo.Get(ctx, id)
		if err != nil {
			s.logger.Error().Err(err).Str("session_id", id).Msg("failed to load session")
			return nil, err
		}
		if sess != nil {
			return sess, nil
		}
	}
	return session.New(s.now()), nil
}

// HydrateWithID is Hydrate for callers that choose the id themselves.
func (s *SessionService) HydrateWithID(ctx context.Context, id string) (*session.Session, error) {
	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", id).Msg("failed to load session")
		return nil, err
	}
	if sess == nil {
		sess = session.NewWithID(id, s.now())
	}
	return sess, nil
}

// Start signs the session in and persists it. Unpinned sessions move to a new
// id so that an id issued before login never carries the token.
func (s *SessionService) Start(ctx context.Context, sess *session.Session, token string, user *models.User) error {
	sess.SignIn(token, user)
	if sess.Pinned {
		return s.Save(ctx, sess)
	}
	oldID := sess.Renew()
	if err := s.Save(ctx, sess); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, oldID); err != nil {
		s.logger.Warn().Err(err).Str("session_id", oldID).Msg("failed to delete pre-login session")
	}
	return nil
}

func (s *SessionService) Save(ctx context.Context, sess *session.Session) error {
	sess.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, sess); err != nil {
		s.logger.Error().Err(err).Str("session_id", sess.ID).Msg("failed to save session")
		return err
	}
	return nil
}

// Teardown signs out a session whose backend token was rejected.
func (s *SessionService) Teardown(ctx context.Context, sess *session.Session) error {
	email := ""
	if sess.User != nil {
		email = sess.User.Email
	}
	sess.SignOut()
	sess.AddFlash(session.FlashError, sessionExpiredMessage)

	s.logger.Info().Str("session_id", sess.ID).Str("email", email).Msg("session expired")
	s.publish(events.EventSessionExpired, events.UserEventPayload{SessionID: sess.ID, UserEmail: email, Change: "expired"})
	return s.Save(ctx, sess)
}

// HandleError tears the session down when err says the token is no longer
// valid. It reports whether that happened.
func (s *SessionService) HandleError(ctx context.Context, sess *session.Session, err error) bool {
	if !errors.Is(err, backend.ErrAuthExpired) {
		return false
	}
	if terr := s.Teardown(ctx, sess); terr != nil {
		s.logger.Error().Err(terr).Msg("session teardown failed")
	}
	return true
}

// Destroy removes the session from the store.
func (s *SessionService) Destroy(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Allow applies a fixed-window limit to key. Store errors let the call pass.
func (s *SessionService) Allow(ctx context.Context, key string, limit int, window time.Duration) bool {
	if limit <= 0 {
		return true
	}
	ok, err := s.repo.CheckRateLimit(ctx, key, limit, window)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("rate limit check failed")
		return true
	}
	return ok
}

func (s *SessionService) publish(eventType string, payload any) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}
