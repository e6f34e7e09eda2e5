package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"tennisluv/internal/backend"
	"tennisluv/internal/domain"
	"tennisluv/internal/events"
	"tennisluv/internal/metrics"
	"tennisluv/internal/models"
	"tennisluv/internal/selection"
	"tennisluv/internal/session"

	"github.com/rs/zerolog"
)

// BookingView is everything a front end needs to draw the day.
type BookingView struct {
	Grid selection.Grid
	User *models.User
	// Failed lists courts whose entries could not be loaded; they are shown empty.
	Failed map[int64]string
	// CourtsFallback is set when the court list came from configuration.
	CourtsFallback bool
}

type SubmitResult struct {
	Requests int
	Hours    int
	Updated  bool
}

type BookingService struct {
	store          domain.EntryStore
	machine        *selection.Machine
	eventBus       domain.EventPublisher
	mode           selection.SubmitMode
	fallbackCourts []models.Court
	logger         *zerolog.Logger
	loc            *time.Location
	now            func() time.Time
}

func NewBookingService(store domain.EntryStore, machine *selection.Machine, eventBus domain.EventPublisher, mode selection.SubmitMode, fallbackCourts []models.Court, logger *zerolog.Logger) *BookingService {
	if mode == "" {
		mode = selection.SubmitRange
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &BookingService{
		store:          store,
		machine:        machine,
		eventBus:       eventBus,
		mode:           mode,
		fallbackCourts: fallbackCourts,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *BookingService) Machine() *selection.Machine { return s.machine }

// UseLocation sets the club's time zone, which decides the current day.
func (s *BookingService) UseLocation(loc *time.Location) {
	s.loc = loc
}

func (s *BookingService) today() time.Time {
	return models.Today(s.now(), s.loc)
}

func (s *BookingService) state(sess *session.Session) (*selection.State, error) {
	if !sess.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	return sess.SelectionFor(s.today()), nil
}

// View loads courts and entries of day and renders the grid. A zero day keeps
// the currently selected date unless that date has passed and nothing is
// selected on it, then the grid moves to today.
func (s *BookingService) View(ctx context.Context, sess *session.Session, day time.Time) (*BookingView, error) {
	st, err := s.state(sess)
	if err != nil {
		return nil, err
	}
	if day.IsZero() {
		if today := s.today(); st.Date.Before(today) && len(st.Slots) == 0 && st.Editing == nil && !st.Submitting {
			day = today
		}
	}
	if !day.IsZero() && !models.Day(day).Equal(st.Date) {
		s.machine.ChangeDate(st, day)
	}

	courts, fallback, err := s.courts(ctx, sess.Token)
	if err != nil {
		return nil, err
	}
	res, err := s.load(ctx, sess, courts, st.Date)
	if err != nil {
		return nil, err
	}

	view := &BookingView{
		Grid:           s.machine.Grid(st, sess.User, courts),
		User:           sess.User,
		CourtsFallback: fallback,
	}
	if len(res.Failed) > 0 {
		view.Failed = make(map[int64]string, len(res.Failed))
		for id, ferr := range res.Failed {
			view.Failed[id] = ferr.Error()
		}
	}
	return view, nil
}

// ChangeDate switches the grid to day, dropping the selection.
func (s *BookingService) ChangeDate(ctx context.Context, sess *session.Session, day time.Time) (*BookingView, error) {
	if day.IsZero() {
		day = s.today()
	}
	return s.View(ctx, sess, day)
}

// Refresh re-fetches the selected day.
func (s *BookingService) Refresh(ctx context.Context, sess *session.Session) (*BookingView, error) {
	return s.View(ctx, sess, time.Time{})
}

// Toggle adds or removes one hour from the selection using the entries of the
// last fetch.
func (s *BookingService) Toggle(ctx context.Context, sess *session.Session, courtID int64, hour int) (selection.Outcome, error) {
	st, err := s.state(sess)
	if err != nil {
		return "", err
	}
	out, err := s.machine.Toggle(st, sess.User, courtID, hour)
	if err != nil {
		s.reject(sess, err)
		return "", err
	}
	s.logger.Debug().
		Str("session_id", sess.ID).
		Int64("court_id", courtID).
		Int("hour", hour).
		Str("outcome", string(out)).
		Msg("slot toggled")
	return out, nil
}

func (s *BookingService) SelectEntryType(ctx context.Context, sess *session.Session, typeID int64) error {
	st, err := s.state(sess)
	if err != nil {
		return err
	}
	if err := s.machine.SelectEntryType(st, sess.User, typeID); err != nil {
		s.reject(sess, err)
		return err
	}
	return nil
}

// Cancel clears the selection without any backend call.
func (s *BookingService) Cancel(ctx context.Context, sess *session.Session) error {
	st, err := s.state(sess)
	if err != nil {
		return err
	}
	s.machine.Cancel(st)
	return nil
}

// Submit books or relabels the selection. typeID 0 uses the selected type or
// the booking type.
func (s *BookingService) Submit(ctx context.Context, sess *session.Session, typeID int64) (*SubmitResult, error) {
	st, err := s.state(sess)
	if err != nil {
		return nil, err
	}
	plan, err := s.machine.Plan(st, sess.User, typeID, s.mode)
	if err != nil {
		s.reject(sess, err)
		return nil, err
	}
	if err := s.machine.BeginSubmit(st); err != nil {
		s.reject(sess, err)
		return nil, err
	}

	day := st.Date
	err = s.execute(ctx, sess.Token, plan)
	if err != nil {
		keep := true
		var apiErr *backend.APIError
		switch {
		case errors.Is(err, backend.ErrAuthExpired):
			keep = false
		case errors.Is(err, backend.ErrConflict):
			keep = errors.As(err, &apiErr) && apiErr.IsQuotaConflict()
		}
		s.machine.Failed(st, keep)
		metrics.IncSubmitted(backend.Outcome(err), 0)
		s.publishPlan(sess, plan, backend.Outcome(err))
		s.logger.Warn().Err(err).Str("session_id", sess.ID).Bool("kept_selection", keep).Msg("submission failed")

		// the slot was taken or part of a per-hour plan may have gone through
		if !errors.Is(err, backend.ErrAuthExpired) && (!keep || len(plan.Requests) > 1) {
			_ = s.reloadQuietly(ctx, sess, day)
		}
		return nil, err
	}

	s.machine.Succeeded(st, sess.User, plan)
	metrics.IncSubmitted("ok", plan.Hours())
	s.publishPlan(sess, plan, "ok")
	s.logger.Info().
		Str("session_id", sess.ID).
		Str("user", sess.User.Email).
		Int("requests", len(plan.Requests)).
		Int("hours", plan.Hours()).
		Msg("selection submitted")

	if err := s.reloadQuietly(ctx, sess, day); err != nil && errors.Is(err, backend.ErrAuthExpired) {
		return nil, err
	}
	return &SubmitResult{
		Requests: len(plan.Requests),
		Hours:    plan.Hours(),
		Updated:  len(plan.Requests) == 1 && plan.Requests[0].Kind == selection.RequestUpdate,
	}, nil
}

// Delete removes the entry at (courtID, hour) on the selected day.
func (s *BookingService) Delete(ctx context.Context, sess *session.Session, courtID int64, hour int) error {
	st, err := s.state(sess)
	if err != nil {
		return err
	}
	target := models.Entry{CourtID: courtID, Date: st.Date, StartHour: hour}
	if e := st.EntryAt(courtID, hour); e != nil {
		if !sess.User.IsAdminRole() && !sess.User.Owns(*e) {
			return ErrNotOwner
		}
		target = *e
	}

	if err := s.store.DeleteEntry(ctx, sess.Token, target); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sess.ID).Str("entry", target.Key()).Msg("delete failed")
		return err
	}
	s.machine.EntryDeleted(st, sess.User, courtID, hour)
	s.publish(events.EventEntryDeleted, events.BookingEventPayload{
		SessionID: sess.ID,
		UserEmail: sess.User.Email,
		CourtID:   courtID,
		Date:      st.Date,
		StartHour: hour,
		EndHour:   hour + 1,
		Result:    "ok",
	})

	if err := s.reloadQuietly(ctx, sess, st.Date); err != nil && errors.Is(err, backend.ErrAuthExpired) {
		return err
	}
	return nil
}

func (s *BookingService) execute(ctx context.Context, token string, plan *selection.Plan) error {
	if plan.Mode == selection.SubmitPerHour && len(plan.Requests) > 1 {
		errs := make([]error, len(plan.Requests))
		var wg sync.WaitGroup
		for i, r := range plan.Requests {
			wg.Add(1)
			go func(i int, r selection.Request) {
				defer wg.Done()
				errs[i] = s.send(ctx, token, r)
			}(i, r)
		}
		wg.Wait()
		// requests are in hour order, so this is the earliest failing hour
		for _, err := range errs {
			if err != nil {
				return err
			}
		}
		return nil
	}

	for _, r := range plan.Requests {
		if err := s.send(ctx, token, r); err != nil {
			return err
		}
	}
	return nil
}

func (s *BookingService) send(ctx context.Context, token string, r selection.Request) error {
	if r.Kind == selection.RequestUpdate {
		_, err := s.store.UpdateEntryType(ctx, token, *r.Entry, r.EntryTypeID)
		return err
	}
	_, err := s.store.CreateEntry(ctx, token, backend.CreateEntryRequest{
		Date:        r.Date,
		StartHour:   r.StartHour,
		EndHour:     r.EndHour,
		CourtID:     r.CourtID,
		EntryTypeID: r.EntryTypeID,
	})
	return err
}

// courts returns the backend's courts, or the configured ones when the backend
// cannot list them.
func (s *BookingService) courts(ctx context.Context, token string) ([]models.Court, bool, error) {
	courts, err := s.store.ListCourts(ctx, token)
	if err != nil {
		if errors.Is(err, backend.ErrAuthExpired) {
			return nil, false, err
		}
		s.logger.Warn().Err(err).Msg("listing courts failed, using configured courts")
		return s.fallbackCourts, true, nil
	}
	if len(courts) == 0 {
		return s.fallbackCourts, true, nil
	}
	return courts, false, nil
}

func (s *BookingService) load(ctx context.Context, sess *session.Session, courts []models.Court, day time.Time) (*backend.DayResult, error) {
	res, err := s.store.ListDay(ctx, sess.Token, courts, day)
	if err != nil {
		return nil, err
	}
	st := sess.SelectionFor(day)
	if !s.machine.ApplyEntries(st, sess.User, day, res.Entries) {
		s.logger.Debug().Str("session_id", sess.ID).Time("day", day).Msg("discarded entries of a date no longer selected")
	}
	return res, nil
}

func (s *BookingService) reloadQuietly(ctx context.Context, sess *session.Session, day time.Time) error {
	courts, _, err := s.courts(ctx, sess.Token)
	if err == nil {
		_, err = s.load(ctx, sess, courts, day)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", sess.ID).Msg("re-fetch after change failed")
	}
	return err
}

func (s *BookingService) reject(sess *session.Session, err error) {
	if reason := selection.ReasonOf(err); reason != "" {
		metrics.IncRejection(string(reason))
		s.logger.Debug().Str("session_id", sess.ID).Str("reason", string(reason)).Msg("selection rejected")
	}
}

func (s *BookingService) publishPlan(sess *session.Session, plan *selection.Plan, result string) {
	for _, r := range plan.Requests {
		eventType := events.EventBookingSubmitted
		if r.Kind == selection.RequestUpdate {
			eventType = events.EventEntryRelabeled
		}
		s.publish(eventType, events.BookingEventPayload{
			SessionID:   sess.ID,
			UserEmail:   sess.User.Email,
			CourtID:     r.CourtID,
			Date:        r.Date,
			StartHour:   r.StartHour,
			EndHour:     r.EndHour,
			EntryTypeID: r.EntryTypeID,
			Result:      result,
		})
	}
}

func (s *BookingService) publish(eventType string, payload any) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}
