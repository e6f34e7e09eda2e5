package service

import (
	"context"
	"strings"
	"time"

	"tennisluv/internal/backend"
	"tennisluv/internal/domain"
	"tennisluv/internal/events"
	"tennisluv/internal/models"
	"tennisluv/internal/session"

	"github.com/rs/zerolog"
)

// LoginLimit throttles login attempts per client key.
type LoginLimit struct {
	Attempts int
	Window   time.Duration
}

type AccountService struct {
	backend  domain.AccountBackend
	sessions *SessionService
	eventBus domain.EventPublisher
	limit    LoginLimit
	logger   *zerolog.Logger
}

func NewAccountService(accounts domain.AccountBackend, sessions *SessionService, eventBus domain.EventPublisher, limit LoginLimit, logger *zerolog.Logger) *AccountService {
	if limit.Attempts > 0 && limit.Window <= 0 {
		limit.Window = time.Minute
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &AccountService{
		backend:  accounts,
		sessions: sessions,
		eventBus: eventBus,
		limit:    limit,
		logger:   logger,
	}
}

type LoginInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// Login authenticates against the backend, caches the profile and signs the
// session in. clientKey identifies the caller for throttling (IP or chat id).
func (s *AccountService) Login(ctx context.Context, sess *session.Session, clientKey, email, password string) error {
	in := LoginInput{Email: normalizeEmail(email), Password: password}
	if err := Validate(in); err != nil {
		return err
	}
	if !s.sessions.Allow(ctx, "login:"+clientKey, s.limit.Attempts, s.limit.Window) {
		s.logger.Warn().Str("client", clientKey).Msg("login rate limited")
		return ErrRateLimited
	}

	auth, err := s.backend.Login(ctx, in.Email, in.Password)
	if err != nil {
		s.logger.Info().Err(err).Str("email", in.Email).Msg("login failed")
		return err
	}

	user, err := s.backend.Me(ctx, auth.Token)
	if err != nil {
		if auth.User.Email == "" {
			return err
		}
		s.logger.Warn().Err(err).Str("email", in.Email).Msg("profile fetch failed, using login response")
		fromLogin := auth.User
		user = &fromLogin
	}
	if err := s.sessions.Start(ctx, sess, auth.Token, user); err != nil {
		return err
	}
	s.logger.Info().Str("session_id", sess.ID).Str("email", user.Email).Bool("admin", user.IsAdminRole()).Msg("user signed in")
	return nil
}

// Register creates the account and remembers the address that now waits for
// verification.
func (s *AccountService) Register(ctx context.Context, sess *session.Session, req backend.RegisterRequest) error {
	req.Email = normalizeEmail(req.Email)
	if err := Validate(req); err != nil {
		return err
	}
	if _, err := s.backend.Register(ctx, req); err != nil {
		return err
	}
	sess.PendingEmail = req.Email
	s.logger.Info().Str("email", req.Email).Msg("user registered")
	return s.sessions.Save(ctx, sess)
}

// Verify confirms an address with the token from the verification mail.
func (s *AccountService) Verify(ctx context.Context, verificationToken string) (string, error) {
	verificationToken = strings.TrimSpace(verificationToken)
	if verificationToken == "" {
		return "", ErrInvalidInput
	}
	return s.backend.Verify(ctx, verificationToken)
}

// CheckVerification asks whether the pending address was confirmed. A
// confirmed address is no longer pending.
func (s *AccountService) CheckVerification(ctx context.Context, sess *session.Session) (*backend.VerificationStatus, error) {
	if sess.PendingEmail == "" {
		return nil, ErrInvalidInput
	}
	st, err := s.backend.CheckVerification(ctx, sess.PendingEmail)
	if err != nil {
		return nil, err
	}
	if st.Enabled {
		sess.PendingEmail = ""
		if err := s.sessions.Save(ctx, sess); err != nil {
			return nil, err
		}
	}
	return st, nil
}

func (s *AccountService) ResendVerification(ctx context.Context, sess *session.Session) (string, error) {
	if sess.PendingEmail == "" {
		return "", ErrInvalidInput
	}
	return s.backend.ResendVerification(ctx, sess.PendingEmail)
}

// Profile re-reads the profile and refreshes the cached copy.
func (s *AccountService) Profile(ctx context.Context, sess *session.Session) (*models.User, error) {
	if !sess.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	user, err := s.backend.Me(ctx, sess.Token)
	if err != nil {
		return nil, err
	}
	sess.User = user
	return user, s.sessions.Save(ctx, sess)
}

func (s *AccountService) UpdateProfile(ctx context.Context, sess *session.Session, upd backend.ProfileUpdate) (*models.User, error) {
	if !sess.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	upd.Email = normalizeEmail(upd.Email)
	if err := Validate(upd); err != nil {
		return nil, err
	}

	user, err := s.backend.UpdateMe(ctx, sess.Token, upd)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Email == "" {
		if user, err = s.backend.Me(ctx, sess.Token); err != nil {
			return nil, err
		}
	}
	sess.User = user
	s.publish(events.EventUserChanged, events.UserEventPayload{SessionID: sess.ID, UserID: user.ID, UserEmail: user.Email, Change: "profile"})
	return user, s.sessions.Save(ctx, sess)
}

// DeleteAccount deletes the signed-in account and ends the session.
func (s *AccountService) DeleteAccount(ctx context.Context, sess *session.Session) error {
	if !sess.Authenticated() {
		return ErrNotAuthenticated
	}
	if err := s.backend.DeleteMe(ctx, sess.Token); err != nil {
		return err
	}
	email := sess.User.Email
	sess.SignOut()
	s.publish(events.EventUserChanged, events.UserEventPayload{SessionID: sess.ID, UserEmail: email, Change: "deleted"})
	s.logger.Info().Str("email", email).Msg("account deleted")
	return s.sessions.Save(ctx, sess)
}

// Logout drops the credentials but keeps the session for flashes.
func (s *AccountService) Logout(ctx context.Context, sess *session.Session) error {
	sess.SignOut()
	return s.sessions.Save(ctx, sess)
}

func (s *AccountService) publish(eventType string, payload any) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
