package web

import (
	"fmt"
	"net/http"

	"tennisluv/internal/models"
	"tennisluv/internal/service"
	"tennisluv/internal/session"
)

func (s *Server) handleBooking(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	day, err := parseDate(r.URL.Query().Get("date"))
	if err != nil {
		sess.AddFlash(session.FlashError, service.UserMessage(err))
	}
	view, err := s.booking.View(r.Context(), sess, day)
	if err != nil {
		if service.NeedsLogin(err) {
			s.fail(w, r, err, "/login")
			return
		}
		s.errorPage(w, r, statusFor(err), service.UserMessage(err))
		return
	}
	s.page(w, r, http.StatusOK, "booking", "Platzbuchung", view)
}

func (s *Server) handleDate(w http.ResponseWriter, r *http.Request) {
	day, err := parseDate(r.PostFormValue("date"))
	if err != nil {
		s.fail(w, r, err, "/booking")
		return
	}
	if day.IsZero() {
		http.Redirect(w, r, "/booking", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/booking?date="+day.Format(models.DateLayout), http.StatusSeeOther)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	slot, err := parseSlot(r)
	if err == nil {
		_, err = s.booking.Toggle(r.Context(), sessionFrom(r), slot.Court, slot.Hour)
	}
	if err != nil {
		s.fail(w, r, err, "/booking")
		return
	}
	http.Redirect(w, r, "/booking", http.StatusSeeOther)
}

func (s *Server) handleType(w http.ResponseWriter, r *http.Request) {
	typeID, err := intField(r, "entryTypeId")
	if err == nil {
		err = s.booking.SelectEntryType(r.Context(), sessionFrom(r), typeID)
	}
	if err != nil {
		s.fail(w, r, err, "/booking")
		return
	}
	http.Redirect(w, r, "/booking", http.StatusSeeOther)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	typeID, err := intField(r, "entryTypeId")
	if err != nil {
		s.fail(w, r, err, "/booking")
		return
	}
	res, err := s.booking.Submit(r.Context(), sess, typeID)
	if err != nil {
		s.fail(w, r, err, "/booking")
		return
	}
	sess.AddFlash(session.FlashSuccess, submitMessage(res))
	http.Redirect(w, r, "/booking", http.StatusSeeOther)
}

func submitMessage(res *service.SubmitResult) string {
	if res.Updated {
		return "The entry was updated."
	}
	if res.Hours == 1 {
		return "Booked 1 hour."
	}
	return fmt.Sprintf("Booked %d hours.", res.Hours)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.booking.Cancel(r.Context(), sessionFrom(r)); err != nil {
		s.fail(w, r, err, "/booking")
		return
	}
	http.Redirect(w, r, "/booking", http.StatusSeeOther)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	slot, err := parseSlot(r)
	if err == nil {
		err = s.booking.Delete(r.Context(), sess, slot.Court, slot.Hour)
	}
	if err != nil {
		s.fail(w, r, err, "/booking")
		return
	}
	sess.AddFlash(session.FlashSuccess, "The booking was cancelled.")
	http.Redirect(w, r, "/booking", http.StatusSeeOther)
}
