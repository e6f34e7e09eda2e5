package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tennisluv/internal/events"
	"tennisluv/internal/models"
	"tennisluv/internal/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, redisAddr string) string {
	t.Helper()
	dir := t.TempDir()
	body := fmt.Sprintf(`
app:
  name: tennisluv-test
backend:
  base_url: http://127.0.0.1:1
booking:
  courts:
    - { id: 1, name: Platz 1 }
  entry_types:
    - { id: 1, name: Buchung, category: booking }
    - { id: 9, name: Sperre, category: locked }
redis:
  address: %q
logging:
  level: debug
  output: file
  file_path: %s
exports:
  path: %s
`, redisAddr, filepath.Join(dir, "app.log"), filepath.Join(dir, "exports"))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestNew(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("CONFIG_PATH", writeConfig(t, mr.Addr()))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	a, err := New(context.Background(), cfg, "test")
	require.NoError(t, err)
	defer a.Close()

	assert.False(t, a.SheetsEnabled())
	assert.NotNil(t, a.Redis)
	_, ok := a.Catalog.ByID(9)
	assert.True(t, ok)
	assert.DirExists(t, cfg.Exports.Path)

	t.Run("SessionsGoToRedis", func(t *testing.T) {
		sess := session.NewWithID("tg:1", time.Now())
		sess.SignIn("tok", &models.User{Email: "anna@club.at"})
		require.NoError(t, a.Sessions.Save(context.Background(), sess))
		assert.NotEmpty(t, mr.Keys())

		got, err := a.Sessions.HydrateWithID(context.Background(), "tg:1")
		require.NoError(t, err)
		assert.Equal(t, "tok", got.Token)
	})

	t.Run("AuditLog", func(t *testing.T) {
		require.NoError(t, a.EventBus.PublishJSON(events.EventEntryDeleted, events.BookingEventPayload{
			UserEmail: "anna@club.at",
			CourtID:   1,
			Date:      time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC),
			StartHour: 10,
			EndHour:   11,
		}))
		data, err := os.ReadFile(cfg.Logging.FilePath)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"event":"entry_deleted"`)
		assert.Contains(t, string(data), `"date":"2025-06-03"`)
	})
}

func TestNewWithoutRedis(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeConfig(t, ""))
	cfg, err := LoadConfig()
	require.NoError(t, err)

	a, err := New(context.Background(), cfg, "test")
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Redis)
	sess := session.NewWithID("tg:2", time.Now())
	require.NoError(t, a.Sessions.Save(context.Background(), sess))
}

func TestNewRejectsBadSubmitMode(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeConfig(t, ""))
	cfg, err := LoadConfig()
	require.NoError(t, err)
	cfg.Backend.SubmitMode = "bulk"

	_, err = New(context.Background(), cfg, "test")
	assert.Error(t, err)
}

func TestRedisProbeBackoff(t *testing.T) {
	assert.Equal(t, 5*time.Second, redisProbe.NextDelay(1))
	assert.Equal(t, 10*time.Second, redisProbe.NextDelay(2))
	assert.Equal(t, 40*time.Second, redisProbe.NextDelay(4))
	assert.Equal(t, 5*time.Minute, redisProbe.NextDelay(20))
}
