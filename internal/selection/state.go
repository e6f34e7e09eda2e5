// Package selection implements the booking-grid selection state machine.
//
// A State is plain data so it can be stored with the session; all rules live on
// Machine and are expressed once in CanSelect, which both the grid renderer and
// Toggle use.
package selection

import (
	"sort"
	"time"

	"tennisluv/internal/catalog"
	"tennisluv/internal/models"
)

type Phase string

const (
	PhaseEmpty      Phase = "empty"
	PhaseSelecting  Phase = "selecting"
	PhaseReady      Phase = "ready"
	PhaseSubmitting Phase = "submitting"
)

// State is the in-progress selection of one session.
type State struct {
	Date        time.Time      `json:"date"`
	Slots       []models.Slot  `json:"slots,omitempty"`
	Editing     *models.Entry  `json:"editing,omitempty"`
	EntryTypeID int64          `json:"entryTypeId,omitempty"`
	BookedToday int            `json:"bookedToday"`
	Entries     []models.Entry `json:"entries,omitempty"`
	Submitting  bool           `json:"submitting,omitempty"`
}

func NewState(day time.Time) *State {
	return &State{Date: models.Day(day)}
}

func (s *State) IsSelected(courtID int64, hour int) bool {
	for _, sl := range s.Slots {
		if sl.CourtID == courtID && sl.Hour == hour {
			return true
		}
	}
	return false
}

func (s *State) EntryAt(courtID int64, hour int) *models.Entry {
	for i := range s.Entries {
		if s.Entries[i].CourtID == courtID && s.Entries[i].StartHour == hour {
			return &s.Entries[i]
		}
	}
	return nil
}

func (s *State) CourtID() int64 {
	if len(s.Slots) == 0 {
		return 0
	}
	return s.Slots[0].CourtID
}

// Hours returns the selected hours in ascending order.
func (s *State) Hours() []int {
	hours := make([]int, 0, len(s.Slots))
	for _, sl := range s.Slots {
		hours = append(hours, sl.Hour)
	}
	sort.Ints(hours)
	return hours
}

func (s *State) clearSelection() {
	s.Slots = nil
	s.Editing = nil
	s.EntryTypeID = 0
}

func (s *State) add(sl models.Slot) {
	s.Slots = append(s.Slots, sl)
	sort.Slice(s.Slots, func(i, j int) bool { return s.Slots[i].Hour < s.Slots[j].Hour })
}

func (s *State) remove(courtID int64, hour int) {
	out := s.Slots[:0]
	for _, sl := range s.Slots {
		if sl.CourtID == courtID && sl.Hour == hour {
			continue
		}
		out = append(out, sl)
	}
	s.Slots = out
	if len(s.Slots) == 0 {
		s.Slots = nil
	}
}

// Rules configures the grid and quota defaults.
type Rules struct {
	OpeningHour          int
	ClosingHour          int
	DefaultMaxDailyHours int
}

func DefaultRules() Rules {
	return Rules{
		OpeningHour:          models.DefaultOpeningHour,
		ClosingHour:          models.DefaultClosingHour,
		DefaultMaxDailyHours: models.DefaultMaxDailyBookingHours,
	}
}

// Machine applies the selection rules to States. It holds no per-session data.
type Machine struct {
	catalog *catalog.Catalog
	rules   Rules
}

func NewMachine(c *catalog.Catalog, rules Rules) *Machine {
	if c == nil {
		c = catalog.Default()
	}
	if rules.ClosingHour < rules.OpeningHour || rules.ClosingHour == 0 {
		d := DefaultRules()
		rules.OpeningHour, rules.ClosingHour = d.OpeningHour, d.ClosingHour
	}
	if rules.DefaultMaxDailyHours <= 0 {
		rules.DefaultMaxDailyHours = models.DefaultMaxDailyBookingHours
	}
	return &Machine{catalog: c, rules: rules}
}

func (m *Machine) Catalog() *catalog.Catalog { return m.catalog }

func (m *Machine) Rules() Rules { return m.rules }

// GridHours lists the bookable start hours of a day.
func (m *Machine) GridHours() []int {
	hours := make([]int, 0, m.rules.ClosingHour-m.rules.OpeningHour+1)
	for h := m.rules.OpeningHour; h <= m.rules.ClosingHour; h++ {
		hours = append(hours, h)
	}
	return hours
}

// DailyLimit is the actor's quota of booking hours per day.
func (m *Machine) DailyLimit(actor *models.User) int {
	if actor != nil && actor.MaxDailyBookingHours > 0 {
		return actor.MaxDailyBookingHours
	}
	return m.rules.DefaultMaxDailyHours
}

// Remaining is the number of hours the actor may still add to the selection.
// Admins are not limited and get -1.
func (m *Machine) Remaining(st *State, actor *models.User) int {
	if actor.IsAdminRole() {
		return -1
	}
	left := m.DailyLimit(actor) - st.BookedToday - len(st.Slots)
	if left < 0 {
		return 0
	}
	return left
}

// Phase derives the state-machine phase from the data.
func (m *Machine) Phase(st *State, actor *models.User) Phase {
	switch {
	case st.Submitting:
		return PhaseSubmitting
	case len(st.Slots) == 0:
		return PhaseEmpty
	case m.validateSelection(st, actor) == nil:
		return PhaseReady
	default:
		return PhaseSelecting
	}
}

// ChangeDate moves the state to another day. Selection, loaded entries and the
// booked-hours counter are cleared.
func (m *Machine) ChangeDate(st *State, day time.Time) {
	st.clearSelection()
	st.Date = models.Day(day)
	st.Entries = nil
	st.BookedToday = 0
	st.Submitting = false
}

// Cancel drops all transient selection state.
func (m *Machine) Cancel(st *State) {
	st.clearSelection()
	st.Submitting = false
}

// ApplyEntries installs the freshly fetched entries of day. It returns false and
// changes nothing when day is no longer the selected date.
func (m *Machine) ApplyEntries(st *State, actor *models.User, day time.Time, entries []models.Entry) bool {
	if !sameDay(st.Date, day) {
		return false
	}
	st.Entries = entries
	st.BookedToday = m.countOwnBookings(st, actor)

	if st.Editing != nil {
		current := st.EntryAt(st.Editing.CourtID, st.Editing.StartHour)
		if current == nil {
			st.clearSelection()
		} else {
			edited := *current
			st.Editing = &edited
		}
		return true
	}
	for _, sl := range st.Slots {
		if st.EntryAt(sl.CourtID, sl.Hour) != nil {
			// someone else took a selected hour; a partial selection could have a gap
			st.clearSelection()
			break
		}
	}
	return true
}

// EntryDeleted updates local bookkeeping after a successful delete.
// The selection is only touched when the deleted entry was being edited.
func (m *Machine) EntryDeleted(st *State, actor *models.User, courtID int64, hour int) {
	e := st.EntryAt(courtID, hour)
	if e != nil {
		if actor.Owns(*e) && m.catalog.Resolve(*e).Category == models.CategoryBooking && st.BookedToday > 0 {
			st.BookedToday--
		}
		out := st.Entries[:0]
		for _, x := range st.Entries {
			if x.CourtID == courtID && x.StartHour == hour {
				continue
			}
			out = append(out, x)
		}
		st.Entries = out
	}
	if st.Editing != nil && st.Editing.CourtID == courtID && st.Editing.StartHour == hour {
		st.clearSelection()
	}
}

func (m *Machine) countOwnBookings(st *State, actor *models.User) int {
	n := 0
	for _, e := range st.Entries {
		if actor.Owns(e) && m.catalog.Resolve(e).Category == models.CategoryBooking {
			n++
		}
	}
	return n
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
