package selection

import (
	"fmt"
	"time"

	"tennisluv/internal/models"
)

// SubmitMode selects how a create is split into backend requests.
type SubmitMode string

const (
	// SubmitRange sends one request per contiguous run of hours.
	SubmitRange SubmitMode = "range"
	// SubmitPerHour sends one request per hour, concurrently.
	SubmitPerHour SubmitMode = "per_hour"
)

func ParseSubmitMode(s string) (SubmitMode, error) {
	switch SubmitMode(s) {
	case "", SubmitRange:
		return SubmitRange, nil
	case SubmitPerHour:
		return SubmitPerHour, nil
	default:
		return "", fmt.Errorf("unknown submit mode %q", s)
	}
}

type RequestKind string

const (
	RequestCreate RequestKind = "create"
	RequestUpdate RequestKind = "update"
)

// Request is one backend call of a submission. EndHour is exclusive.
type Request struct {
	Kind        RequestKind
	Date        time.Time
	CourtID     int64
	StartHour   int
	EndHour     int
	EntryTypeID int64
	Entry       *models.Entry
}

// Hours is the number of booked hours the request covers.
func (r Request) Hours() int {
	if r.Kind == RequestUpdate {
		return 0
	}
	return r.EndHour - r.StartHour
}

type Plan struct {
	Mode        SubmitMode
	EntryTypeID int64
	Requests    []Request
}

// Hours is the total number of new hours the plan books.
func (p *Plan) Hours() int {
	n := 0
	for _, r := range p.Requests {
		n += r.Hours()
	}
	return n
}

// Plan validates the selection once more and turns it into backend requests.
// typeID 0 keeps the type already chosen in the state, or the booking type.
func (m *Machine) Plan(st *State, actor *models.User, typeID int64, mode SubmitMode) (*Plan, error) {
	if st.Submitting {
		return nil, ErrBusy
	}
	if err := m.validateSelection(st, actor); err != nil {
		return nil, err
	}

	if typeID == 0 {
		typeID = st.EntryTypeID
	}
	if typeID == 0 {
		typeID = m.catalog.BookingType().ID
	}
	if !m.catalog.IsPermitted(actor, typeID) {
		return nil, ErrEntryType
	}

	plan := &Plan{Mode: mode, EntryTypeID: typeID}
	if st.Editing != nil {
		edited := *st.Editing
		plan.Requests = []Request{{
			Kind:        RequestUpdate,
			Date:        st.Date,
			CourtID:     edited.CourtID,
			StartHour:   edited.StartHour,
			EndHour:     edited.StartHour + 1,
			EntryTypeID: typeID,
			Entry:       &edited,
		}}
		return plan, nil
	}

	court := st.CourtID()
	hours := st.Hours()
	if mode == SubmitPerHour {
		for _, h := range hours {
			plan.Requests = append(plan.Requests, Request{
				Kind: RequestCreate, Date: st.Date, CourtID: court,
				StartHour: h, EndHour: h + 1, EntryTypeID: typeID,
			})
		}
		return plan, nil
	}
	for _, run := range contiguousRuns(hours) {
		plan.Requests = append(plan.Requests, Request{
			Kind: RequestCreate, Date: st.Date, CourtID: court,
			StartHour: run[0], EndHour: run[1] + 1, EntryTypeID: typeID,
		})
	}
	return plan, nil
}

// BeginSubmit marks the state as submitting; Toggle and Plan are refused until
// Succeeded or Failed is called.
func (m *Machine) BeginSubmit(st *State) error {
	if st.Submitting {
		return ErrBusy
	}
	st.Submitting = true
	return nil
}

// Succeeded clears the selection and books the plan's hours optimistically
// until the next fetch replaces the counter.
func (m *Machine) Succeeded(st *State, actor *models.User, plan *Plan) {
	if plan != nil && !actor.IsAdminRole() {
		if t, ok := m.catalog.ByID(plan.EntryTypeID); ok && t.Category == models.CategoryBooking {
			st.BookedToday += plan.Hours()
		}
	}
	st.clearSelection()
	st.Submitting = false
}

// Failed leaves the submitting phase. keepSelection false drops the selection.
func (m *Machine) Failed(st *State, keepSelection bool) {
	st.Submitting = false
	if !keepSelection {
		st.clearSelection()
	}
}

// contiguousRuns splits sorted hours into [first,last] pairs without gaps.
func contiguousRuns(hours []int) [][2]int {
	var runs [][2]int
	for i, h := range hours {
		if i == 0 || h != hours[i-1]+1 {
			runs = append(runs, [2]int{h, h})
			continue
		}
		runs[len(runs)-1][1] = h
	}
	return runs
}
