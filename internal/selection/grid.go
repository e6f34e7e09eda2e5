package selection

import (
	"time"

	"tennisluv/internal/models"
)

// Cell is the rendered state of one (court, hour) coordinate.
type Cell struct {
	CourtID    int64
	Hour       int
	Entry      *models.Entry
	Category   models.Category
	Label      string
	Own        bool
	Selected   bool
	Editing    bool
	Selectable bool
	Reason     string
}

type Row struct {
	Hour  int
	Cells []Cell
}

type Grid struct {
	Date      time.Time
	Courts    []models.Court
	Rows      []Row
	Phase     Phase
	Remaining int
	Limit     int
	Booked    int
	Permitted []models.EntryType
}

// Grid renders the day for actor. Selectable is computed with CanSelect, so the
// view and Toggle never disagree.
func (m *Machine) Grid(st *State, actor *models.User, courts []models.Court) Grid {
	g := Grid{
		Date:      st.Date,
		Courts:    courts,
		Phase:     m.Phase(st, actor),
		Remaining: m.Remaining(st, actor),
		Limit:     m.DailyLimit(actor),
		Booked:    st.BookedToday,
		Permitted: m.catalog.Permitted(actor),
	}
	for _, h := range m.GridHours() {
		row := Row{Hour: h, Cells: make([]Cell, 0, len(courts))}
		for _, c := range courts {
			cell := Cell{CourtID: c.ID, Hour: h, Selected: st.IsSelected(c.ID, h)}
			if e := st.EntryAt(c.ID, h); e != nil {
				t := m.catalog.Resolve(*e)
				cell.Entry = e
				cell.Category = t.Category
				cell.Label = t.Name
				cell.Own = actor.Owns(*e)
				if t.Category == models.CategoryBooking && (actor.IsAdminRole() || cell.Own) && e.OwnerName != "" {
					cell.Label = e.OwnerName
				}
				cell.Editing = st.Editing != nil && st.Editing.Key() == e.Key()
			}
			if err := m.CanSelect(st, actor, c.ID, h); err != nil {
				cell.Reason = err.Error()
			} else {
				cell.Selectable = true
			}
			row.Cells = append(row.Cells, cell)
		}
		g.Rows = append(g.Rows, row)
	}
	return g
}
