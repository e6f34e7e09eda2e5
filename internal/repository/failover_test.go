package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"tennisluv/internal/session"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Get(ctx context.Context, id string) (*session.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Session), args.Error(1)
}

func (m *mockRepo) Save(ctx context.Context, s *session.Session) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *mockRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockRepo) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func TestFailoverSessionRepository(t *testing.T) {
	primary := new(mockRepo)
	fallback := new(mockRepo)
	logger := zerolog.New(io.Discard)
	now := time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)
	repo := NewFailoverSessionRepository(primary, fallback, &logger, func(attempt int) time.Duration {
		return time.Duration(attempt) * time.Minute
	})
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	t.Run("PrimarySuccess", func(t *testing.T) {
		s := session.NewWithID("1", now)
		primary.On("Get", ctx, "1").Return(s, nil).Once()

		got, err := repo.Get(ctx, "1")
		assert.NoError(t, err)
		assert.Equal(t, s, got)
		primary.AssertExpectations(t)
	})

	t.Run("PrimaryMissFallsThrough", func(t *testing.T) {
		s := session.NewWithID("11", now)
		primary.On("Get", ctx, "11").Return(nil, nil).Once()
		fallback.On("Get", ctx, "11").Return(s, nil).Once()

		got, err := repo.Get(ctx, "11")
		assert.NoError(t, err)
		assert.Equal(t, s, got)
		fallback.AssertExpectations(t)
	})

	t.Run("PrimaryFailFallbackSuccess", func(t *testing.T) {
		s := session.NewWithID("2", now)
		primary.On("Get", ctx, "2").Return(nil, errors.New("fail")).Once()
		fallback.On("Get", ctx, "2").Return(s, nil).Once()

		got, err := repo.Get(ctx, "2")
		assert.NoError(t, err)
		assert.Equal(t, s, got)
		assert.True(t, repo.Degraded())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("NoProbeBeforeDelay", func(t *testing.T) {
		s := session.NewWithID("3", now)
		fallback.On("Save", ctx, s).Return(nil).Once()

		assert.NoError(t, repo.Save(ctx, s))
		primary.AssertNotCalled(t, "Save", ctx, s)
		fallback.AssertExpectations(t)
	})

	t.Run("ProbeFailsAndBacksOff", func(t *testing.T) {
		now = now.Add(61 * time.Second)
		primary.On("Get", ctx, "33").Return(nil, errors.New("still fail")).Once()
		fallback.On("Get", ctx, "33").Return(nil, nil).Once()

		_, err := repo.Get(ctx, "33")
		assert.NoError(t, err)
		assert.True(t, repo.Degraded())
		assert.Equal(t, now.Add(2*time.Minute), repo.nextProbe)
		primary.AssertExpectations(t)
	})

	t.Run("RecoveryAfterBackoff", func(t *testing.T) {
		now = now.Add(2 * time.Minute)
		s := session.NewWithID("4", now)
		primary.On("Save", ctx, s).Return(nil).Once()
		fallback.On("Delete", ctx, "4").Return(nil).Once()

		assert.NoError(t, repo.Save(ctx, s))
		assert.False(t, repo.Degraded())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("DeleteRemovesFromBoth", func(t *testing.T) {
		fallback.On("Delete", ctx, "5").Return(nil).Once()
		primary.On("Delete", ctx, "5").Return(nil).Once()

		assert.NoError(t, repo.Delete(ctx, "5"))
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("CheckRateLimitFailover", func(t *testing.T) {
		primary.On("CheckRateLimit", ctx, "bot:6", 10, time.Minute).Return(false, errors.New("fail")).Once()
		fallback.On("CheckRateLimit", ctx, "bot:6", 10, time.Minute).Return(true, nil).Once()

		allowed, err := repo.CheckRateLimit(ctx, "bot:6", 10, time.Minute)
		assert.NoError(t, err)
		assert.True(t, allowed)
		assert.True(t, repo.Degraded())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("DeleteWhileDown", func(t *testing.T) {
		fallback.On("Delete", ctx, "7").Return(nil).Once()

		assert.NoError(t, repo.Delete(ctx, "7"))
		fallback.AssertExpectations(t)
	})
}

func TestFailoverWithRealStores(t *testing.T) {
	ctx := context.Background()
	primary := new(mockRepo)
	fallback := NewMemorySessionRepository(time.Hour)
	repo := NewFailoverSessionRepository(primary, fallback, nil, nil)

	s := session.NewWithID("web-9", time.Now())
	primary.On("Save", ctx, s).Return(errors.New("redis down")).Once()
	assert.NoError(t, repo.Save(ctx, s))

	got, err := repo.Get(ctx, "web-9")
	assert.NoError(t, err)
	if assert.NotNil(t, got) {
		assert.Equal(t, "web-9", got.ID)
	}
	primary.AssertExpectations(t)
}
