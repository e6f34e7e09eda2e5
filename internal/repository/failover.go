package repository

import (
	"context"
	"sync"
	"time"

	"tennisluv/internal/domain"
	"tennisluv/internal/session"

	"github.com/rs/zerolog"
)

// FailoverSessionRepository uses primary until it fails, then serves from
// fallback and probes primary again after a growing delay.
type FailoverSessionRepository struct {
	primary    domain.SessionRepository
	fallback   domain.SessionRepository
	logger     *zerolog.Logger
	probeDelay func(attempt int) time.Duration

	mu        sync.Mutex
	isDown    bool
	failures  int
	nextProbe time.Time
	now       func() time.Time
}

// NewFailoverSessionRepository wires the two stores. probeDelay maps the number
// of consecutive failures to the wait before the next probe; nil means one minute.
func NewFailoverSessionRepository(primary, fallback domain.SessionRepository, logger *zerolog.Logger, probeDelay func(attempt int) time.Duration) *FailoverSessionRepository {
	if probeDelay == nil {
		probeDelay = func(int) time.Duration { return time.Minute }
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &FailoverSessionRepository{
		primary:    primary,
		fallback:   fallback,
		logger:     logger,
		probeDelay: probeDelay,
		now:        time.Now,
	}
}

// usePrimary reports whether the next call should go to primary.
func (r *FailoverSessionRepository) usePrimary() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.isDown || !r.now().Before(r.nextProbe)
}

func (r *FailoverSessionRepository) markResult(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		if r.isDown {
			r.logger.Info().Str("op", op).Msg("Primary session repository recovered")
		}
		r.isDown = false
		r.failures = 0
		return
	}
	r.failures++
	r.isDown = true
	r.nextProbe = r.now().Add(r.probeDelay(r.failures))
	r.logger.Error().Err(err).Str("op", op).Int("failures", r.failures).
		Msg("Primary session repository failed, falling back to memory")
}

// Degraded reports whether calls are currently served by the fallback.
func (r *FailoverSessionRepository) Degraded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isDown
}

func (r *FailoverSessionRepository) Get(ctx context.Context, id string) (*session.Session, error) {
	if r.usePrimary() {
		s, err := r.primary.Get(ctx, id)
		r.markResult("get", err)
		if err == nil {
			if s == nil {
				// written while primary was down
				return r.fallback.Get(ctx, id)
			}
			return s, nil
		}
	}
	return r.fallback.Get(ctx, id)
}

func (r *FailoverSessionRepository) Save(ctx context.Context, s *session.Session) error {
	if r.usePrimary() {
		err := r.primary.Save(ctx, s)
		r.markResult("save", err)
		if err == nil {
			// keep no stale copy behind for the read path above
			_ = r.fallback.Delete(ctx, s.ID)
			return nil
		}
	}
	return r.fallback.Save(ctx, s)
}

func (r *FailoverSessionRepository) Delete(ctx context.Context, id string) error {
	fbErr := r.fallback.Delete(ctx, id)
	if r.usePrimary() {
		err := r.primary.Delete(ctx, id)
		r.markResult("delete", err)
		if err == nil {
			return nil
		}
	}
	return fbErr
}

func (r *FailoverSessionRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		r.markResult("rate_limit", err)
		if err == nil {
			return allowed, nil
		}
	}
	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}
