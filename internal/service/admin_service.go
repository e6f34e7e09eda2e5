package service

import (
	"context"
	"io"
	"sort"
	"strings"
	"time"

	"tennisluv/internal/backend"
	"tennisluv/internal/catalog"
	"tennisluv/internal/domain"
	"tennisluv/internal/events"
	"tennisluv/internal/export"
	"tennisluv/internal/models"
	"tennisluv/internal/session"

	"github.com/rs/zerolog"
)

// SheetsQueue schedules a background sheet publish.
type SheetsQueue interface {
	EnqueuePublish(ctx context.Context, entries []models.Entry, courts []models.Court, from, to time.Time) (string, error)
}

type AdminService struct {
	admin          domain.AdminBackend
	store          domain.EntryStore
	sheets         SheetsQueue
	catalog        *catalog.Catalog
	eventBus       domain.EventPublisher
	exportDir      string
	fallbackCourts []models.Court
	logger         *zerolog.Logger
	loc            *time.Location
	now            func() time.Time
}

func NewAdminService(admin domain.AdminBackend, store domain.EntryStore, sheets SheetsQueue, cat *catalog.Catalog, eventBus domain.EventPublisher, exportDir string, fallbackCourts []models.Court, logger *zerolog.Logger) *AdminService {
	if cat == nil {
		cat = catalog.Default()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &AdminService{
		admin:          admin,
		store:          store,
		sheets:         sheets,
		catalog:        cat,
		eventBus:       eventBus,
		exportDir:      exportDir,
		fallbackCourts: fallbackCourts,
		logger:         logger,
		now:            time.Now,
	}
}

// UseLocation sets the club's time zone, which decides where exports start.
func (s *AdminService) UseLocation(loc *time.Location) {
	s.loc = loc
}

func requireAdmin(sess *session.Session) error {
	if !sess.Authenticated() {
		return ErrNotAuthenticated
	}
	if !sess.IsAdmin() {
		return ErrAdminRequired
	}
	return nil
}

// Users lists all accounts ordered by name.
func (s *AdminService) Users(ctx context.Context, sess *session.Session) ([]models.User, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	users, err := s.admin.ListUsers(ctx, sess.Token)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(users, func(i, j int) bool {
		a, b := strings.ToLower(users[i].LastName), strings.ToLower(users[j].LastName)
		if a != b {
			return a < b
		}
		return strings.ToLower(users[i].Email) < strings.ToLower(users[j].Email)
	})
	return users, nil
}

func (s *AdminService) SetAdmin(ctx context.Context, sess *session.Session, userID int64, isAdmin bool) (*models.User, error) {
	if err := s.checkTarget(sess, userID); err != nil {
		return nil, err
	}
	u, err := s.admin.SetAdmin(ctx, sess.Token, userID, isAdmin)
	if err != nil {
		return nil, err
	}
	s.userChanged(sess, userID, u, "admin")
	return u, nil
}

func (s *AdminService) SetMembershipPaid(ctx context.Context, sess *session.Session, userID int64, paid bool) (*models.User, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	u, err := s.admin.SetMembershipPaid(ctx, sess.Token, userID, paid)
	if err != nil {
		return nil, err
	}
	s.userChanged(sess, userID, u, "membership")
	return u, nil
}

// SetBookingHours sets a user's daily quota, 0 to 24 hours.
func (s *AdminService) SetBookingHours(ctx context.Context, sess *session.Session, userID int64, hours int) (*models.User, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	if hours < 0 || hours > 24 {
		return nil, backend.ErrInvalidHours
	}
	u, err := s.admin.SetBookingHours(ctx, sess.Token, userID, hours)
	if err != nil {
		return nil, err
	}
	s.userChanged(sess, userID, u, "booking_hours")
	return u, nil
}

func (s *AdminService) DeleteUser(ctx context.Context, sess *session.Session, userID int64) error {
	if err := s.checkTarget(sess, userID); err != nil {
		return err
	}
	if err := s.admin.DeleteUser(ctx, sess.Token, userID); err != nil {
		return err
	}
	s.userChanged(sess, userID, nil, "deleted")
	return nil
}

// FutureEntries lists upcoming entries by date, hour and court.
func (s *AdminService) FutureEntries(ctx context.Context, sess *session.Session) ([]models.Entry, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	entries, err := s.admin.ListFutureEntries(ctx, sess.Token)
	if err != nil {
		return nil, err
	}
	sortEntries(entries)
	return entries, nil
}

func (s *AdminService) DeleteEntry(ctx context.Context, sess *session.Session, courtID int64, day time.Time, hour int) error {
	if err := requireAdmin(sess); err != nil {
		return err
	}
	if err := s.admin.AdminDeleteEntry(ctx, sess.Token, courtID, day, hour); err != nil {
		return err
	}
	s.publish(events.EventEntryDeleted, events.BookingEventPayload{
		SessionID: sess.ID,
		UserEmail: sess.User.Email,
		CourtID:   courtID,
		Date:      models.Day(day),
		StartHour: hour,
		EndHour:   hour + 1,
		Result:    "ok",
	})
	return nil
}

// ExportRange is the default export window: today until the last future entry.
func (s *AdminService) ExportRange(entries []models.Entry) (time.Time, time.Time) {
	from := models.Today(s.now(), s.loc)
	to := from
	for _, e := range entries {
		if d := models.Day(e.Date); d.After(to) {
			to = d
		}
	}
	return from, to
}

// Snapshot is the export input for one date range.
type Snapshot struct {
	Table   export.Table
	Entries []models.Entry
	Courts  []models.Court
	From    time.Time
	To      time.Time
}

// Snapshot collects future entries within [from, to]. Zero bounds fall back to
// ExportRange.
func (s *AdminService) Snapshot(ctx context.Context, sess *session.Session, from, to time.Time) (*Snapshot, error) {
	entries, err := s.FutureEntries(ctx, sess)
	if err != nil {
		return nil, err
	}
	defFrom, defTo := s.ExportRange(entries)
	if from.IsZero() {
		from = defFrom
	}
	if to.IsZero() {
		to = defTo
	}
	if to.Before(from) {
		return nil, ErrInvalidInput
	}
	courts := s.courts(ctx, sess.Token)
	return &Snapshot{
		Table:   export.BuildTable(s.catalog, entries, courts, from, to),
		Entries: entries,
		Courts:  courts,
		From:    from,
		To:      to,
	}, nil
}

// ExportXLSX writes the entries workbook to w and returns what it contains.
func (s *AdminService) ExportXLSX(ctx context.Context, sess *session.Session, w io.Writer, from, to time.Time) (*Snapshot, error) {
	snap, err := s.Snapshot(ctx, sess, from, to)
	if err != nil {
		return nil, err
	}
	if err := export.WriteXLSX(w, snap.Table); err != nil {
		return nil, err
	}
	return snap, nil
}

// SaveXLSX stores the workbook in the export directory and returns its path.
func (s *AdminService) SaveXLSX(ctx context.Context, sess *session.Session, from, to time.Time) (string, error) {
	snap, err := s.Snapshot(ctx, sess, from, to)
	if err != nil {
		return "", err
	}
	path, err := export.SaveXLSX(s.exportDir, snap.Table, snap.From, snap.To)
	if err != nil {
		return "", err
	}
	s.logger.Info().Str("path", path).Int("rows", len(snap.Table.Rows)).Msg("xlsx export saved")
	return path, nil
}

// PublishSheets queues the same table for the Google spreadsheet.
func (s *AdminService) PublishSheets(ctx context.Context, sess *session.Session, from, to time.Time) (string, error) {
	if s.sheets == nil {
		return "", ErrSheetsDisabled
	}
	snap, err := s.Snapshot(ctx, sess, from, to)
	if err != nil {
		return "", err
	}
	id, err := s.sheets.EnqueuePublish(ctx, snap.Entries, snap.Courts, snap.From, snap.To)
	if err != nil {
		return "", err
	}
	s.logger.Info().Str("task_id", id).Msg("sheets publish queued")
	return id, nil
}

func (s *AdminService) courts(ctx context.Context, token string) []models.Court {
	if s.store == nil {
		return s.fallbackCourts
	}
	courts, err := s.store.ListCourts(ctx, token)
	if err != nil || len(courts) == 0 {
		if err != nil {
			s.logger.Warn().Err(err).Msg("listing courts failed, using configured courts")
		}
		return s.fallbackCourts
	}
	return courts
}

func (s *AdminService) checkTarget(sess *session.Session, userID int64) error {
	if err := requireAdmin(sess); err != nil {
		return err
	}
	if sess.User.ID != 0 && sess.User.ID == userID {
		return ErrSelfChange
	}
	return nil
}

func (s *AdminService) userChanged(sess *session.Session, userID int64, u *models.User, change string) {
	p := events.UserEventPayload{SessionID: sess.ID, UserID: userID, Change: change}
	if u != nil {
		p.UserEmail = u.Email
	}
	s.logger.Info().Int64("user_id", userID).Str("change", change).Str("by", sess.User.Email).Msg("user changed by admin")
	s.publish(events.EventUserChanged, p)
}

func (s *AdminService) publish(eventType string, payload any) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}

func sortEntries(entries []models.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.StartHour != b.StartHour {
			return a.StartHour < b.StartHour
		}
		return a.CourtID < b.CourtID
	})
}
