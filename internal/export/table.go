// Package export renders court entries as a day/hour by court table for
// spreadsheets.
package export

import (
	"fmt"
	"sort"
	"time"

	"tennisluv/internal/catalog"
	"tennisluv/internal/models"
)

// Table is the rendered export: one row per day and hour that has entries,
// one column per court.
type Table struct {
	Title  string
	Header []string
	Rows   [][]string
}

// BuildTable renders entries dated within [from, to]. Courts missing from
// courts but referenced by an entry get their own column.
func BuildTable(cat *catalog.Catalog, entries []models.Entry, courts []models.Court, from, to time.Time) Table {
	if cat == nil {
		cat = catalog.Default()
	}
	from, to = models.Day(from), models.Day(to)

	cols := make(map[int64]int, len(courts))
	ordered := append([]models.Court(nil), courts...)
	for _, e := range entries {
		if !knownCourt(ordered, e.CourtID) {
			name := e.CourtName
			if name == "" {
				name = fmt.Sprintf("Court %d", e.CourtID)
			}
			ordered = append(ordered, models.Court{ID: e.CourtID, Name: name})
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	t := Table{
		Title:  fmt.Sprintf("%s - %s", from.Format("02.01.2006"), to.Format("02.01.2006")),
		Header: []string{"Date", "Hour"},
	}
	for i, c := range ordered {
		cols[c.ID] = i + 2
		t.Header = append(t.Header, c.Name)
	}

	type slotKey struct {
		day  string
		hour int
	}
	rows := make(map[slotKey][]string)
	var keys []slotKey
	for _, e := range entries {
		d := models.Day(e.Date)
		if d.Before(from) || d.After(to) {
			continue
		}
		k := slotKey{day: d.Format(models.DateLayout), hour: e.StartHour}
		row, ok := rows[k]
		if !ok {
			row = make([]string, len(t.Header))
			row[0] = k.day
			row[1] = fmt.Sprintf("%02d:00", k.hour)
			rows[k] = row
			keys = append(keys, k)
		}
		row[cols[e.CourtID]] = Label(cat, e)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].day != keys[j].day {
			return keys[i].day < keys[j].day
		}
		return keys[i].hour < keys[j].hour
	})
	for _, k := range keys {
		t.Rows = append(t.Rows, rows[k])
	}
	return t
}

// Label is the cell text of one entry: type name, plus the owner for bookings.
func Label(cat *catalog.Catalog, e models.Entry) string {
	typ := cat.Resolve(e)
	name := typ.Name
	if name == "" {
		name = string(typ.Category)
	}
	if typ.Category != models.CategoryBooking {
		return name
	}
	owner := e.OwnerName
	if owner == "" {
		owner = e.OwnerEmail
	}
	if owner == "" {
		return name
	}
	return name + ": " + owner
}

func knownCourt(courts []models.Court, id int64) bool {
	for _, c := range courts {
		if c.ID == id {
			return true
		}
	}
	return false
}
