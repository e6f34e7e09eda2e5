package domain

import (
	"context"
	"time"

	"tennisluv/internal/backend"
	"tennisluv/internal/models"
	"tennisluv/internal/session"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// SessionRepository stores sessions by id. Get returns nil, nil for unknown ids.
type SessionRepository interface {
	Get(ctx context.Context, id string) (*session.Session, error)
	Save(ctx context.Context, s *session.Session) error
	Delete(ctx context.Context, id string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// EntryStore is the part of the booking backend the grid works with.
type EntryStore interface {
	ListCourts(ctx context.Context, token string) ([]models.Court, error)
	ListDay(ctx context.Context, token string, courts []models.Court, day time.Time) (*backend.DayResult, error)
	CreateEntry(ctx context.Context, token string, req backend.CreateEntryRequest) ([]models.Entry, error)
	UpdateEntryType(ctx context.Context, token string, e models.Entry, entryTypeID int64) (*models.Entry, error)
	DeleteEntry(ctx context.Context, token string, e models.Entry) error
}

type AccountBackend interface {
	Login(ctx context.Context, email, password string) (*backend.AuthResponse, error)
	Register(ctx context.Context, req backend.RegisterRequest) (*backend.AuthResponse, error)
	Verify(ctx context.Context, verificationToken string) (string, error)
	CheckVerification(ctx context.Context, email string) (*backend.VerificationStatus, error)
	ResendVerification(ctx context.Context, email string) (string, error)
	Me(ctx context.Context, token string) (*models.User, error)
	UpdateMe(ctx context.Context, token string, upd backend.ProfileUpdate) (*models.User, error)
	DeleteMe(ctx context.Context, token string) error
}

type AdminBackend interface {
	ListUsers(ctx context.Context, token string) ([]models.User, error)
	DeleteUser(ctx context.Context, token string, userID int64) error
	SetAdmin(ctx context.Context, token string, userID int64, isAdmin bool) (*models.User, error)
	SetMembershipPaid(ctx context.Context, token string, userID int64, paid bool) (*models.User, error)
	SetBookingHours(ctx context.Context, token string, userID int64, hours int) (*models.User, error)
	ListFutureEntries(ctx context.Context, token string) ([]models.Entry, error)
	AdminDeleteEntry(ctx context.Context, token string, courtID int64, day time.Time, hour int) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload any) error
}

// SheetsWriter publishes the entry table to a spreadsheet.
type SheetsWriter interface {
	Publish(ctx context.Context, entries []models.Entry, courts []models.Court, from, to time.Time) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}
