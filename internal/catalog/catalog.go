// Package catalog holds the static list of entry types.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"tennisluv/internal/models"
)

var (
	ErrUnknownEntryType = errors.New("unknown entry type")
	ErrNoBookingType    = errors.New("catalog has no booking entry type")
)

// Catalog is read-only after construction.
type Catalog struct {
	types  []models.EntryType
	byID   map[int64]models.EntryType
	byName map[string]models.EntryType
}

// Default mirrors the entry types the backend seeds on first start.
func Default() *Catalog {
	c, _ := New([]models.EntryType{
		{ID: 1, Name: "Buchung", Category: models.CategoryBooking},
		{ID: 2, Name: "Kurs", Category: models.CategoryCourse},
		{ID: 3, Name: "Turnier", Category: models.CategoryTournament},
		{ID: 4, Name: "Gesperrt", Category: models.CategoryLocked},
	})
	return c
}

func New(types []models.EntryType) (*Catalog, error) {
	c := &Catalog{
		byID:   make(map[int64]models.EntryType, len(types)),
		byName: make(map[string]models.EntryType, len(types)),
	}
	hasBooking := false
	for _, t := range types {
		if t.ID <= 0 {
			return nil, fmt.Errorf("entry type %q has invalid id %d", t.Name, t.ID)
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate entry type id %d", t.ID)
		}
		switch t.Category {
		case models.CategoryBooking:
			hasBooking = true
		case models.CategoryCourse, models.CategoryTournament, models.CategoryLocked:
		default:
			return nil, fmt.Errorf("entry type %q has unknown category %q", t.Name, t.Category)
		}
		c.types = append(c.types, t)
		c.byID[t.ID] = t
		c.byName[strings.ToLower(strings.TrimSpace(t.Name))] = t
	}
	if !hasBooking {
		return nil, ErrNoBookingType
	}
	return c, nil
}

func (c *Catalog) All() []models.EntryType {
	out := make([]models.EntryType, len(c.types))
	copy(out, c.types)
	return out
}

func (c *Catalog) ByID(id int64) (models.EntryType, bool) {
	t, ok := c.byID[id]
	return t, ok
}

func (c *Catalog) ByName(name string) (models.EntryType, bool) {
	t, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// BookingType returns the first type of the booking category.
func (c *Catalog) BookingType() models.EntryType {
	for _, t := range c.types {
		if t.Category == models.CategoryBooking {
			return t
		}
	}
	return models.EntryType{}
}

// Resolve returns the type of an entry, by id first and by name otherwise.
// Entries of unknown type are treated as locked.
func (c *Catalog) Resolve(e models.Entry) models.EntryType {
	if t, ok := c.byID[e.EntryTypeID]; ok {
		return t
	}
	if t, ok := c.ByName(e.EntryTypeName); ok {
		return t
	}
	return models.EntryType{ID: e.EntryTypeID, Name: e.EntryTypeName, Category: models.CategoryLocked}
}

// Permitted lists the types the actor may create. Admins may create every type,
// members with a paid membership only bookings, everyone else nothing.
func (c *Catalog) Permitted(actor *models.User) []models.EntryType {
	if actor == nil {
		return nil
	}
	if actor.IsAdminRole() {
		return c.All()
	}
	if !actor.MembershipPaid {
		return nil
	}
	var out []models.EntryType
	for _, t := range c.types {
		if t.Category == models.CategoryBooking {
			out = append(out, t)
		}
	}
	return out
}

// IsPermitted reports whether the actor may create entries of the given type.
func (c *Catalog) IsPermitted(actor *models.User, typeID int64) bool {
	for _, t := range c.Permitted(actor) {
		if t.ID == typeID {
			return true
		}
	}
	return false
}
