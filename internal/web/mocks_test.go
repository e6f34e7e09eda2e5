package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"tennisluv/internal/backend"
	"tennisluv/internal/catalog"
	"tennisluv/internal/config"
	"tennisluv/internal/models"
	"tennisluv/internal/repository"
	"tennisluv/internal/selection"
	"tennisluv/internal/service"
	"tennisluv/internal/session"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const cookieName = "tl_session"

var testCourts = []models.Court{{ID: 1, Name: "Platz 1"}, {ID: 2, Name: "Platz 2"}}

func member() *models.User {
	return &models.User{ID: 7, Email: "anna@club.at", FirstName: "Anna", LastName: "Berger", MembershipPaid: true, MaxDailyBookingHours: 3}
}

func adminUser() *models.User {
	return &models.User{ID: 1, Email: "admin@club.at", FirstName: "Eva", IsAdmin: true}
}

func today() time.Time {
	return models.Day(time.Now().UTC())
}

type mockStore struct{ mock.Mock }

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

type mockAccounts struct{ mock.Mock }

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

type mockAdmin struct{ mock.Mock }

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

type harness struct {
	t        *testing.T
	handler  http.Handler
	repo     *repository.MemorySessionRepository
	store    *mockStore
	accounts *mockAccounts
	admin    *mockAdmin
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	repo := repository.NewMemorySessionRepository(time.Hour)
	store := &mockStore{}
	accounts := &mockAccounts{}
	adminBackend := &mockAdmin{}
	cat := catalog.Default()

	sessions := service.NewSessionService(repo, nil, nil)
	machine := selection.NewMachine(cat, selection.DefaultRules())
	srv, err := NewServer(Deps{
		Config: config.WebConfig{
			SessionCookie: cookieName,
			SessionTTL:    3600,
			CSRFKey:       "test-secret",
		},
		Sessions: sessions,
		Booking:  service.NewBookingService(store, machine, nil, selection.SubmitRange, testCourts, nil),
		Accounts: service.NewAccountService(accounts, sessions, nil, service.LoginLimit{Attempts: 5, Window: time.Minute}, nil),
		Admin:    service.NewAdminService(adminBackend, store, nil, cat, nil, t.TempDir(), testCourts, nil),
		Catalog:  cat,
	})
	require.NoError(t, err)

	return &harness{t: t, handler: srv.Handler(), repo: repo, store: store, accounts: accounts, admin: adminBackend}
}

// signIn stores a signed-in session and returns its cookie.
func (h *harness) signIn(u *models.User) *http.Cookie {
	h.t.Helper()
	sess := session.NewWithID("sess-"+u.Email, time.Now())
	sess.SignIn("tok", u)
	require.NoError(h.t, h.repo.Save(context.Background(), sess))
	return &http.Cookie{Name: cookieName, Value: sess.ID}
}

func (h *harness) session(id string) *session.Session {
	h.t.Helper()
	sess, err := h.repo.Get(context.Background(), id)
	require.NoError(h.t, err)
	return sess
}

func (h *harness) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

var csrfFieldRe = regexp.MustCompile(`name="gorilla\.csrf\.Token" value="([^"]+)"`)

// csrfToken loads page and returns the form token and the cookies it set.
func (h *harness) csrfToken(page string, cookies ...*http.Cookie) (string, []*http.Cookie) {
	h.t.Helper()
	rec := h.do(httptest.NewRequest(http.MethodGet, page, http.NoBody), cookies...)
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	m := csrfFieldRe.FindStringSubmatch(rec.Body.String())
	require.Len(h.t, m, 2, "csrf field missing")
	return m[1], rec.Result().Cookies()
}

func (h *harness) expectDay(entries ...models.Entry) {
	h.store.On("ListCourts", mock.Anything, "tok").Return(testCourts, nil)
	h.store.On("ListDay", mock.Anything, "tok", testCourts, mock.Anything).Return(&backend.DayResult{Date: today(), Entries: entries}, nil)
}
