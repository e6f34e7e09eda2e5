package service

import (
	"context"
	"sync"
	"time"

	"tennisluv/internal/backend"
	"tennisluv/internal/models"
	"tennisluv/internal/session"

	"github.com/stretchr/testify/mock"
)

var (
	testNow = time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)
	testDay = time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)

	testCourts = []models.Court{{ID: 1, Name: "Platz 1"}, {ID: 2, Name: "Platz 2"}, {ID: 3, Name: "Platz 3"}}
)

func member() *models.User {
	return &models.User{ID: 7, Email: "anna@club.at", FirstName: "Anna", MembershipPaid: true, MaxDailyBookingHours: 3}
}

func adminUser() *models.User {
	return &models.User{ID: 1, Email: "admin@club.at", IsAdmin: true}
}

func signedIn(u *models.User) *session.Session {
	s := session.NewWithID("s1", testNow)
	s.SignIn("tok", u)
	return s
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ListCourts(ctx context.Context, token string) ([]models.Court, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Court), args.Error(1)
}

func (m *mockStore) ListDay(ctx context.Context, token string, courts []models.Court, day time.Time) (*backend.DayResult, error) {
	args := m.Called(ctx, token, courts, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backend.DayResult), args.Error(1)
}

func (m *mockStore) CreateEntry(ctx context.Context, token string, req backend.CreateEntryRequest) ([]models.Entry, error) {
	args := m.Called(ctx, token, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Entry), args.Error(1)
}

func (m *mockStore) UpdateEntryType(ctx context.Context, token string, e models.Entry, entryTypeID int64) (*models.Entry, error) {
	args := m.Called(ctx, token, e, entryTypeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Entry), args.Error(1)
}

func (m *mockStore) DeleteEntry(ctx context.Context, token string, e models.Entry) error {
	return m.Called(ctx, token, e).Error(0)
}

type mockAccounts struct {
	mock.Mock
}

func (m *mockAccounts) Login(ctx context.Context, email, password string) (*backend.AuthResponse, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backend.AuthResponse), args.Error(1)
}

func (m *mockAccounts) Register(ctx context.Context, req backend.RegisterRequest) (*backend.AuthResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backend.AuthResponse), args.Error(1)
}

func (m *mockAccounts) Verify(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

func (m *mockAccounts) CheckVerification(ctx context.Context, email string) (*backend.VerificationStatus, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backend.VerificationStatus), args.Error(1)
}

func (m *mockAccounts) ResendVerification(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *mockAccounts) Me(ctx context.Context, token string) (*models.User, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAccounts) UpdateMe(ctx context.Context, token string, upd backend.ProfileUpdate) (*models.User, error) {
	args := m.Called(ctx, token, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAccounts) DeleteMe(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

type mockAdmin struct {
	mock.Mock
}

func (m *mockAdmin) ListUsers(ctx context.Context, token string) ([]models.User, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *mockAdmin) DeleteUser(ctx context.Context, token string, userID int64) error {
	return m.Called(ctx, token, userID).Error(0)
}

func (m *mockAdmin) SetAdmin(ctx context.Context, token string, userID int64, isAdmin bool) (*models.User, error) {
	args := m.Called(ctx, token, userID, isAdmin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAdmin) SetMembershipPaid(ctx context.Context, token string, userID int64, paid bool) (*models.User, error) {
	args := m.Called(ctx, token, userID, paid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAdmin) SetBookingHours(ctx context.Context, token string, userID int64, hours int) (*models.User, error) {
	args := m.Called(ctx, token, userID, hours)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAdmin) ListFutureEntries(ctx context.Context, token string) ([]models.Entry, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Entry), args.Error(1)
}

func (m *mockAdmin) AdminDeleteEntry(ctx context.Context, token string, courtID int64, day time.Time, hour int) error {
	return m.Called(ctx, token, courtID, day, hour).Error(0)
}

// eventRecorder collects published event types.
type eventRecorder struct {
	mu       sync.Mutex
	types    []string
	payloads []any
}

func (r *eventRecorder) PublishJSON(eventType string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, eventType)
	r.payloads = append(r.payloads, payload)
	return nil
}

func (r *eventRecorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.types...)
}

type fakeQueue struct {
	entries []models.Entry
	from    time.Time
	to      time.Time
	err     error
}

func (q *fakeQueue) EnqueuePublish(_ context.Context, entries []models.Entry, _ []models.Court, from, to time.Time) (string, error) {
	q.entries, q.from, q.to = entries, from, to
	if q.err != nil {
		return "", q.err
	}
	return "task-1", nil
}
