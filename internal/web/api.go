package web

import (
	"encoding/json"
	"net/http"
	"time"

	"tennisluv/internal/models"
	"tennisluv/internal/selection"
	"tennisluv/internal/service"
	"tennisluv/internal/session"
)

type apiCell struct {
	CourtID    int64  `json:"courtId"`
	Hour       int    `json:"hour"`
	Label      string `json:"label,omitempty"`
	Category   string `json:"category,omitempty"`
	Own        bool   `json:"own,omitempty"`
	Selected   bool   `json:"selected,omitempty"`
	Editing    bool   `json:"editing,omitempty"`
	Selectable bool   `json:"selectable"`
	Reason     string `json:"reason,omitempty"`
}

type apiRow struct {
	Hour  int       `json:"hour"`
	Cells []apiCell `json:"cells"`
}

type apiView struct {
	Date           string             `json:"date"`
	Phase          selection.Phase    `json:"phase"`
	Remaining      int                `json:"remaining"`
	Limit          int                `json:"limit"`
	Booked         int                `json:"booked"`
	Courts         []models.Court     `json:"courts"`
	Rows           []apiRow           `json:"rows"`
	Permitted      []models.EntryType `json:"permittedTypes"`
	Failed         map[int64]string   `json:"failedCourts,omitempty"`
	CourtsFallback bool               `json:"courtsFallback,omitempty"`
	Outcome        string             `json:"outcome,omitempty"`
	Flashes        []session.Flash    `json:"flashes,omitempty"`
}

func toAPIView(v *service.BookingView) apiView {
	g := v.Grid
	out := apiView{
		Date:           g.Date.Format(models.DateLayout),
		Phase:          g.Phase,
		Remaining:      g.Remaining,
		Limit:          g.Limit,
		Booked:         g.Booked,
		Courts:         g.Courts,
		Rows:           make([]apiRow, 0, len(g.Rows)),
		Permitted:      g.Permitted,
		Failed:         v.Failed,
		CourtsFallback: v.CourtsFallback,
	}
	for _, row := range g.Rows {
		r := apiRow{Hour: row.Hour, Cells: make([]apiCell, 0, len(row.Cells))}
		for _, c := range row.Cells {
			r.Cells = append(r.Cells, apiCell{
				CourtID:    c.CourtID,
				Hour:       c.Hour,
				Label:      c.Label,
				Category:   string(c.Category),
				Own:        c.Own,
				Selected:   c.Selected,
				Editing:    c.Editing,
				Selectable: c.Selectable,
				Reason:     c.Reason,
			})
		}
		out.Rows = append(out.Rows, r)
	}
	return out
}

// decodeJSON reads a strict JSON body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &service.ValidationError{Fields: []string{"body"}}
	}
	return nil
}

// respond re-reads the day and writes it, with the outcome of the action.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, day time.Time, outcome string) {
	sess := sessionFrom(r)
	view, err := s.booking.View(r.Context(), sess, day)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := toAPIView(view)
	out.Outcome = outcome
	out.Flashes = sess.PopFlashes()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) apiView(w http.ResponseWriter, r *http.Request) {
	day, err := parseDate(r.URL.Query().Get("date"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.respond(w, r, day, "")
}

func (s *Server) apiDate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Date string `json:"date"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	day, err := parseDate(body.Date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	view, err := s.booking.ChangeDate(r.Context(), sessionFrom(r), day)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAPIView(view))
}

func (s *Server) apiToggle(w http.ResponseWriter, r *http.Request) {
	var slot slotForm
	err := decodeJSON(r, &slot)
	if err == nil {
		err = checkForm(slot)
	}
	var out selection.Outcome
	if err == nil {
		out, err = s.booking.Toggle(r.Context(), sessionFrom(r), slot.Court, slot.Hour)
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.respond(w, r, time.Time{}, string(out))
}

func (s *Server) apiType(w http.ResponseWriter, r *http.Request) {
	var body struct {
		EntryTypeID int64 `json:"entryTypeId"`
	}
	err := decodeJSON(r, &body)
	if err == nil {
		err = s.booking.SelectEntryType(r.Context(), sessionFrom(r), body.EntryTypeID)
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.respond(w, r, time.Time{}, "")
}

func (s *Server) apiSubmit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		EntryTypeID int64 `json:"entryTypeId"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	res, err := s.booking.Submit(r.Context(), sessionFrom(r), body.EntryTypeID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	outcome := "booked"
	if res.Updated {
		outcome = "updated"
	}
	s.respond(w, r, time.Time{}, outcome)
}

func (s *Server) apiCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.booking.Cancel(r.Context(), sessionFrom(r)); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.respond(w, r, time.Time{}, "cancelled")
}

func (s *Server) apiDelete(w http.ResponseWriter, r *http.Request) {
	var slot slotForm
	err := decodeJSON(r, &slot)
	if err == nil {
		err = checkForm(slot)
	}
	if err == nil {
		err = s.booking.Delete(r.Context(), sessionFrom(r), slot.Court, slot.Hour)
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.respond(w, r, time.Time{}, "deleted")
}
