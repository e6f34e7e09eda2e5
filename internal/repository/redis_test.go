package repository

import (
	"context"
	"testing"
	"time"

	"tennisluv/internal/config"
	"tennisluv/internal/models"
	"tennisluv/internal/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSessionRepository(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	defer Close(client)

	repo := NewRedisSessionRepository(client, time.Hour)
	ctx := context.Background()
	day := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)

	t.Run("SaveAndGet", func(t *testing.T) {
		sess := session.NewWithID("web-1", day)
		sess.SignIn("tok", &models.User{Email: "anna@club.at", MaxDailyBookingHours: 2})
		sess.SelectionFor(day).Slots = []models.Slot{{CourtID: 3, Hour: 10}}

		require.NoError(t, repo.Save(ctx, sess))
		assert.True(t, s.Exists(sessionKeyPrefix+"web-1"))
		assert.Equal(t, time.Hour, s.TTL(sessionKeyPrefix+"web-1"))

		got, err := repo.Get(ctx, "web-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "tok", got.Token)
		assert.Equal(t, 2, got.User.MaxDailyBookingHours)
		assert.Equal(t, []models.Slot{{CourtID: 3, Hour: 10}}, got.Selection.Slots)
	})

	t.Run("GetMissing", func(t *testing.T) {
		got, err := repo.Get(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Expiry", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, session.NewWithID("short", day)))
		s.FastForward(2 * time.Hour)
		got, err := repo.Get(ctx, "short")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, session.NewWithID("bye", day)))
		require.NoError(t, repo.Delete(ctx, "bye"))
		got, _ := repo.Get(ctx, "bye")
		assert.Nil(t, got)
	})

	t.Run("CorruptPayload", func(t *testing.T) {
		require.NoError(t, s.Set(sessionKeyPrefix+"bad", "{not json"))
		_, err := repo.Get(ctx, "bad")
		assert.Error(t, err)
	})

	t.Run("RateLimit", func(t *testing.T) {
		key := "bot:42"
		for i := 0; i < 2; i++ {
			allowed, err := repo.CheckRateLimit(ctx, key, 2, time.Minute)
			require.NoError(t, err)
			assert.True(t, allowed)
		}
		allowed, err := repo.CheckRateLimit(ctx, key, 2, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)

		s.FastForward(time.Minute + time.Second)
		allowed, err = repo.CheckRateLimit(ctx, key, 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, Ping(ctx, client))
	})
}

func TestRedisSessionRepositoryUnavailable(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()
	repo := NewRedisSessionRepository(client, time.Hour)
	s.Close()

	ctx := context.Background()
	_, err = repo.Get(ctx, "x")
	assert.Error(t, err)
	assert.Error(t, repo.Save(ctx, session.NewWithID("x", time.Now())))
	assert.Error(t, Ping(ctx, client))

	nilRepo := NewRedisSessionRepository(nil, time.Hour)
	_, err = nilRepo.Get(ctx, "x")
	assert.Error(t, err)
}
