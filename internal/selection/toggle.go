package selection

import (
	"tennisluv/internal/models"
)

// Outcome describes what a successful Toggle did.
type Outcome string

const (
	OutcomeAdded   Outcome = "added"
	OutcomeRemoved Outcome = "removed"
	OutcomeEditing Outcome = "editing"
)

// CanSelect reports whether toggling (courtID, hour) is allowed for actor in the
// current state, without changing it. A nil result means Toggle will succeed.
func (m *Machine) CanSelect(st *State, actor *models.User, courtID int64, hour int) error {
	if st.Submitting {
		return ErrBusy
	}
	if hour < m.rules.OpeningHour || hour > m.rules.ClosingHour {
		return ErrOutsideHours
	}

	if e := st.EntryAt(courtID, hour); e != nil {
		if actor.IsAdminRole() {
			return nil
		}
		return m.occupiedError(actor, *e)
	}

	if actor.IsAdminRole() {
		if st.Editing != nil || st.IsSelected(courtID, hour) || len(st.Slots) == 0 {
			return nil
		}
		if st.CourtID() != courtID {
			return ErrSameCourt
		}
		return nil
	}

	if len(m.catalog.Permitted(actor)) == 0 {
		return ErrNotPermitted
	}

	if st.IsSelected(courtID, hour) {
		hours := st.Hours()
		if hour != hours[0] && hour != hours[len(hours)-1] {
			// dropping an inner hour would leave a gap
			return ErrNotAdjacent
		}
		return nil
	}

	if len(st.Slots) > 0 {
		if st.CourtID() != courtID {
			return ErrSameCourt
		}
		hours := st.Hours()
		if hour != hours[0]-1 && hour != hours[len(hours)-1]+1 {
			return ErrNotAdjacent
		}
	}

	if st.BookedToday+len(st.Slots)+1 > m.DailyLimit(actor) {
		return ErrDailyLimit
	}
	return nil
}

// Toggle applies a click on a grid cell. On error the state is unchanged.
func (m *Machine) Toggle(st *State, actor *models.User, courtID int64, hour int) (Outcome, error) {
	if err := m.CanSelect(st, actor, courtID, hour); err != nil {
		return "", err
	}

	if e := st.EntryAt(courtID, hour); e != nil {
		// only admins get here
		if st.Editing != nil && st.Editing.Key() == e.Key() {
			st.clearSelection()
			return OutcomeRemoved, nil
		}
		edited := *e
		st.Slots = []models.Slot{{CourtID: courtID, Hour: hour}}
		st.Editing = &edited
		st.EntryTypeID = m.catalog.Resolve(edited).ID
		return OutcomeEditing, nil
	}

	if st.Editing != nil {
		st.clearSelection()
	}
	if st.IsSelected(courtID, hour) {
		st.remove(courtID, hour)
		if len(st.Slots) == 0 {
			st.EntryTypeID = 0
		}
		return OutcomeRemoved, nil
	}
	st.add(models.Slot{CourtID: courtID, Hour: hour})
	return OutcomeAdded, nil
}

// SelectEntryType sets the type the next submit will use.
func (m *Machine) SelectEntryType(st *State, actor *models.User, typeID int64) error {
	if !m.catalog.IsPermitted(actor, typeID) {
		return ErrEntryType
	}
	st.EntryTypeID = typeID
	return nil
}

func (m *Machine) occupiedError(actor *models.User, e models.Entry) error {
	switch m.catalog.Resolve(e).Category {
	case models.CategoryBooking:
		if actor.Owns(e) {
			return ErrOwnBooking
		}
		return ErrForeignBooking
	case models.CategoryCourse:
		return ErrCourse
	case models.CategoryTournament:
		return ErrTournament
	default:
		return ErrLocked
	}
}

// validateSelection re-checks the invariants of a non-empty selection.
func (m *Machine) validateSelection(st *State, actor *models.User) error {
	if len(st.Slots) == 0 {
		return ErrEmpty
	}
	court := st.CourtID()
	for _, sl := range st.Slots {
		if sl.CourtID != court {
			return ErrSameCourt
		}
		if sl.Hour < m.rules.OpeningHour || sl.Hour > m.rules.ClosingHour {
			return ErrOutsideHours
		}
	}
	if actor.IsAdminRole() {
		return nil
	}
	if st.Editing != nil {
		return ErrEntryType
	}
	if len(m.catalog.Permitted(actor)) == 0 {
		return ErrNotPermitted
	}
	hours := st.Hours()
	if hours[len(hours)-1]-hours[0]+1 != len(hours) {
		return ErrNotAdjacent
	}
	if st.BookedToday+len(hours) > m.DailyLimit(actor) {
		return ErrDailyLimit
	}
	return nil
}
