package repository

import (
	"context"
	"testing"
	"time"

	"tennisluv/internal/models"
	"tennisluv/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySessionRepository(t *testing.T) {
	repo := NewMemorySessionRepository(time.Hour)
	ctx := context.Background()
	now := time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	t.Run("SaveAndGet", func(t *testing.T) {
		s := session.NewWithID("abc", now)
		s.SignIn("tok", &models.User{Email: "anna@club.at"})
		require.NoError(t, repo.Save(ctx, s))

		got, err := repo.Get(ctx, "abc")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "tok", got.Token)
		assert.NotSame(t, s, got)

		got.Token = "changed"
		again, _ := repo.Get(ctx, "abc")
		assert.Equal(t, "tok", again.Token)
	})

	t.Run("Expiry", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, session.NewWithID("old", now)))
		now = now.Add(2 * time.Hour)
		got, err := repo.Get(ctx, "old")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, session.NewWithID("gone", now)))
		require.NoError(t, repo.Delete(ctx, "gone"))
		got, _ := repo.Get(ctx, "gone")
		assert.Nil(t, got)
	})

	t.Run("Sweep", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, session.NewWithID("a", now)))
		require.NoError(t, repo.Save(ctx, session.NewWithID("b", now)))
		now = now.Add(2 * time.Hour)
		assert.GreaterOrEqual(t, repo.Sweep(), 2)
	})

	t.Run("RateLimit", func(t *testing.T) {
		key := "login:1.2.3.4"
		allowed, _ := repo.CheckRateLimit(ctx, key, 2, time.Second)
		assert.True(t, allowed)
		allowed, _ = repo.CheckRateLimit(ctx, key, 2, time.Second)
		assert.True(t, allowed)
		allowed, _ = repo.CheckRateLimit(ctx, key, 2, time.Second)
		assert.False(t, allowed)

		now = now.Add(time.Second + 10*time.Millisecond)
		allowed, _ = repo.CheckRateLimit(ctx, key, 2, time.Second)
		assert.True(t, allowed)
	})
}
