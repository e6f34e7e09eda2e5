package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"tennisluv/internal/backend"
	"tennisluv/internal/catalog"
	"tennisluv/internal/config"
	"tennisluv/internal/models"
	"tennisluv/internal/repository"
	"tennisluv/internal/selection"
	"tennisluv/internal/service"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// fakeTelegram records everything the bot sends.
type fakeTelegram struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	updates  chan tgbotapi.Update
	stopped  bool
}

func newFakeTelegram() *fakeTelegram {
	return &fakeTelegram{updates: make(chan tgbotapi.Update, 8)}
}

func (f *fakeTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeTelegram) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeTelegram) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeTelegram) GetSelf() tgbotapi.User {
	return tgbotapi.User{ID: 1, UserName: "tennisluv_test_bot"}
}

func (f *fakeTelegram) StopReceivingUpdates() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

// texts returns the text of every sent message or edit.
func (f *fakeTelegram) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeTelegram) last() tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[len(f.sent)-1]
}

// callbackAnswers returns the texts of answered callback queries.
func (f *fakeTelegram) callbackAnswers() []tgbotapi.CallbackConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.CallbackConfig
	for _, c := range f.requests {
		if cb, ok := c.(tgbotapi.CallbackConfig); ok {
			out = append(out, cb)
		}
	}
	return out
}

// fakeBackend serves the subset of the booking API the bot touches.
type fakeBackend struct {
	mu      sync.Mutex
	entries []models.Entry
	created []backend.CreateEntryRequest
	deleted []string
	logins  int
}

func (fb *fakeBackend) handler() http.Handler {
	r := chi.NewRouter()
	r.Post("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		fb.mu.Lock()
		fb.logins++
		fb.mu.Unlock()
		if body.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeTestJSON(w, map[string]any{"token": "tok", "email": body.Email})
	})
	r.Get("/api/user/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeTestJSON(w, member())
	})
	r.Get("/api/tennis-courts", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, testCourts)
	})
	r.Get("/api/entries/{court}/{date}", func(w http.ResponseWriter, r *http.Request) {
		court, _ := strconv.ParseInt(chi.URLParam(r, "court"), 10, 64)
		day, _ := models.ParseDay(chi.URLParam(r, "date"))
		fb.mu.Lock()
		defer fb.mu.Unlock()
		out := []models.Entry{}
		for _, e := range fb.entries {
			if e.CourtID == court && e.Date.Equal(day) {
				out = append(out, e)
			}
		}
		writeTestJSON(w, out)
	})
	r.Post("/api/entries", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			EntryDate   string `json:"entryDate"`
			StartHour   int    `json:"startHour"`
			EndHour     int    `json:"endHour"`
			CourtID     int64  `json:"tennisCourtId"`
			EntryTypeID int64  `json:"entryTypeId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		day, _ := models.ParseDay(body.EntryDate)
		req := backend.CreateEntryRequest{Date: day, StartHour: body.StartHour, EndHour: body.EndHour, CourtID: body.CourtID, EntryTypeID: body.EntryTypeID}
		fb.mu.Lock()
		defer fb.mu.Unlock()
		fb.created = append(fb.created, req)
		var made []models.Entry
		for h := req.StartHour; h < req.EndHour; h++ {
			e := models.Entry{ID: int64(len(fb.entries) + 100), Date: req.Date, StartHour: h, CourtID: req.CourtID, EntryTypeID: req.EntryTypeID, OwnerEmail: member().Email}
			fb.entries = append(fb.entries, e)
			made = append(made, e)
		}
		writeTestJSON(w, made)
	})
	r.Delete("/api/entries/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		fb.mu.Lock()
		defer fb.mu.Unlock()
		fb.deleted = append(fb.deleted, chi.URLParam(r, "id"))
		kept := fb.entries[:0]
		for _, e := range fb.entries {
			if e.ID != id {
				kept = append(kept, e)
			}
		}
		fb.entries = kept
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

func writeTestJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

var testCourts = []models.Court{{ID: 1, Name: "Platz 1"}, {ID: 2, Name: "Platz 2"}}

func member() *models.User {
	return &models.User{ID: 7, Email: "anna@club.at", FirstName: "Anna", LastName: "Berger", MembershipPaid: true, MaxDailyBookingHours: 3}
}

func tomorrow() time.Time {
	return models.Day(time.Now().UTC()).AddDate(0, 0, 1)
}

type testEnv struct {
	bot     *Bot
	tg      *fakeTelegram
	fb      *fakeBackend
	repo    *repository.MemorySessionRepository
	updates int
}

func newTestEnv(t *testing.T, cfg config.BotConfig) *testEnv {
	t.Helper()
	fb := &fakeBackend{}
	srv := httptest.NewServer(fb.handler())
	t.Cleanup(srv.Close)

	client := backend.NewClient(srv.URL, 5*time.Second, nil)
	repo := repository.NewMemorySessionRepository(time.Hour)
	cat := catalog.Default()
	sessions := service.NewSessionService(repo, nil, nil)
	machine := selection.NewMachine(cat, selection.DefaultRules())
	tg := newFakeTelegram()

	b := NewBot(tg, Deps{
		Config:   cfg,
		Sessions: sessions,
		Booking:  service.NewBookingService(client, machine, nil, selection.SubmitRange, testCourts, nil),
		Accounts: service.NewAccountService(client, sessions, nil, service.LoginLimit{Attempts: 5, Window: time.Minute}, nil),
		Admin:    service.NewAdminService(client, client, nil, cat, nil, t.TempDir(), testCourts, nil),
	})
	return &testEnv{bot: b, tg: tg, fb: fb, repo: repo}
}

const testUserID = 42

func (e *testEnv) nextID() int {
	e.updates++
	return e.updates
}

func (e *testEnv) command(text string) {
	cmd, _, _ := strings.Cut(text, " ")
	e.bot.processUpdate(context.Background(), tgbotapi.Update{
		UpdateID: e.nextID(),
		Message: &tgbotapi.Message{
			MessageID: 500 + e.updates,
			From:      &tgbotapi.User{ID: testUserID, FirstName: "Anna"},
			Chat:      &tgbotapi.Chat{ID: testUserID},
			Text:      text,
			Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
		},
	})
}

func (e *testEnv) press(data string) {
	e.bot.processUpdate(context.Background(), tgbotapi.Update{
		UpdateID: e.nextID(),
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "cb" + strconv.Itoa(e.updates),
			From: &tgbotapi.User{ID: testUserID},
			Message: &tgbotapi.Message{
				MessageID: 77,
				Chat:      &tgbotapi.Chat{ID: testUserID},
			},
			Data: data,
		},
	})
}

func (e *testEnv) signIn(t *testing.T) {
	t.Helper()
	e.command("/login anna@club.at secret")
}
