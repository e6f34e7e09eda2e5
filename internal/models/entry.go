package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the wire format of calendar days used by the backend.
const DateLayout = "2006-01-02"

// Category is the coarse class of an entry type used for permission checks.
type Category string

const (
	CategoryBooking    Category = "booking"
	CategoryCourse     Category = "course"
	CategoryTournament Category = "tournament"
	CategoryLocked     Category = "locked"
)

type EntryType struct {
	ID       int64    `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Category Category `json:"category" yaml:"category"`
}

type Court struct {
	ID   int64  `json:"tennisCourtId" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Entry is one booked hour on one court.
type Entry struct {
	ID            int64     `json:"entryId,omitempty"`
	Date          time.Time `json:"entryDate"`
	StartHour     int       `json:"startHour"`
	CourtID       int64     `json:"tennisCourtId"`
	CourtName     string    `json:"tennisCourtName,omitempty"`
	EntryTypeID   int64     `json:"entryTypeId,omitempty"`
	EntryTypeName string    `json:"entryTypeName,omitempty"`
	OwnerEmail    string    `json:"userEmail,omitempty"`
	OwnerName     string    `json:"userName,omitempty"`
}

// Key identifies the entry the way the backend does: court, day and hour.
func (e Entry) Key() string {
	return fmt.Sprintf("%d/%s/%d", e.CourtID, e.Date.Format(DateLayout), e.StartHour)
}

// MarshalJSON writes entryDate as a plain calendar day.
func (e Entry) MarshalJSON() ([]byte, error) {
	type alias Entry
	return json.Marshal(struct {
		alias
		Date string `json:"entryDate"`
	}{alias: alias(e), Date: e.Date.Format(DateLayout)})
}

// UnmarshalJSON accepts entryDate as YYYY-MM-DD or as an RFC 3339 timestamp.
func (e *Entry) UnmarshalJSON(data []byte) error {
	type alias Entry
	aux := struct {
		*alias
		Date string `json:"entryDate"`
	}{alias: (*alias)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Date == "" {
		return nil
	}
	d, err := time.Parse(DateLayout, aux.Date)
	if err != nil {
		ts, tsErr := time.Parse(time.RFC3339, aux.Date)
		if tsErr != nil {
			return fmt.Errorf("entryDate %q: %w", aux.Date, err)
		}
		d = Day(ts)
	}
	e.Date = d
	return nil
}

// Slot is a (court, hour) coordinate in the daily grid.
type Slot struct {
	CourtID int64 `json:"courtId"`
	Hour    int   `json:"hour"`
}

// Day truncates t to the calendar day in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Today is the calendar date of now in loc, as a UTC midnight like ParseDay
// returns. A nil loc means UTC.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string in UTC.
func ParseDay(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
