package web

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"tennisluv/internal/export"
	"tennisluv/internal/models"
	"tennisluv/internal/service"
	"tennisluv/internal/session"

	"github.com/go-chi/chi/v5"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	users, err := s.admin.Users(r.Context(), sess)
	if err != nil {
		s.adminFailed(w, r, err)
		return
	}
	entries, err := s.admin.FutureEntries(r.Context(), sess)
	if err != nil {
		s.adminFailed(w, r, err)
		return
	}
	content := struct {
		Users         []models.User
		Entries       []models.Entry
		SheetsEnabled bool
	}{users, entries, s.sheetsEnabled}
	s.page(w, r, http.StatusOK, "admin", "Verwaltung", content)
}

func (s *Server) adminFailed(w http.ResponseWriter, r *http.Request, err error) {
	if service.NeedsLogin(err) {
		s.fail(w, r, err, "/login")
		return
	}
	s.errorPage(w, r, statusFor(err), service.UserMessage(err))
}

func userID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &service.ValidationError{Fields: []string{"id"}}
	}
	return id, nil
}

// adminUserAction runs fn for the user in the path and reports the result.
func (s *Server) adminUserAction(w http.ResponseWriter, r *http.Request, done string, fn func(id int64) error) {
	id, err := userID(r)
	if err == nil {
		err = fn(id)
	}
	if err != nil {
		s.fail(w, r, err, "/admin")
		return
	}
	sessionFrom(r).AddFlash(session.FlashSuccess, done)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (s *Server) handleSetAdmin(w http.ResponseWriter, r *http.Request) {
	s.adminUserAction(w, r, "Admin role updated.", func(id int64) error {
		v, err := parseBool(r.PostFormValue("value"))
		if err != nil {
			return err
		}
		_, err = s.admin.SetAdmin(r.Context(), sessionFrom(r), id, v)
		return err
	})
}

func (s *Server) handleSetMembership(w http.ResponseWriter, r *http.Request) {
	s.adminUserAction(w, r, "Membership fee status updated.", func(id int64) error {
		v, err := parseBool(r.PostFormValue("value"))
		if err != nil {
			return err
		}
		_, err = s.admin.SetMembershipPaid(r.Context(), sessionFrom(r), id, v)
		return err
	})
}

func (s *Server) handleSetHours(w http.ResponseWriter, r *http.Request) {
	s.adminUserAction(w, r, "Daily booking hours updated.", func(id int64) error {
		hours, err := intField(r, "hours")
		if err != nil {
			return err
		}
		form := hoursForm{Hours: int(hours)}
		if err := checkForm(form); err != nil {
			return err
		}
		_, err = s.admin.SetBookingHours(r.Context(), sessionFrom(r), id, form.Hours)
		return err
	})
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	s.adminUserAction(w, r, "Member deleted.", func(id int64) error {
		return s.admin.DeleteUser(r.Context(), sessionFrom(r), id)
	})
}

func (s *Server) handleAdminDeleteEntry(w http.ResponseWriter, r *http.Request) {
	form, day, err := parseAdminEntry(r)
	if err == nil {
		err = s.admin.DeleteEntry(r.Context(), sessionFrom(r), form.Court, day, form.Hour)
	}
	if err != nil {
		s.fail(w, r, err, "/admin")
		return
	}
	sessionFrom(r).AddFlash(session.FlashSuccess, "Entry deleted.")
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (s *Server) handlePublishSheets(w http.ResponseWriter, r *http.Request) {
	from, to, err := exportRange(r.PostFormValue("from"), r.PostFormValue("to"))
	if err == nil {
		_, err = s.admin.PublishSheets(r.Context(), sessionFrom(r), from, to)
	}
	if err != nil {
		s.fail(w, r, err, "/admin")
		return
	}
	sessionFrom(r).AddFlash(session.FlashSuccess, "Publishing to Google Sheets was queued.")
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, err := exportRange(q.Get("from"), q.Get("to"))
	if err != nil {
		s.fail(w, r, err, "/admin")
		return
	}
	var buf bytes.Buffer
	snap, err := s.admin.ExportXLSX(r.Context(), sessionFrom(r), &buf, from, to)
	if err != nil {
		s.fail(w, r, err, "/admin")
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(snap.From, snap.To)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func exportRange(rawFrom, rawTo string) (time.Time, time.Time, error) {
	from, err := parseDate(rawFrom)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseDate(rawTo)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}
