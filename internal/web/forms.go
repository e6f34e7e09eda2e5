package web

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"tennisluv/internal/backend"
	"tennisluv/internal/models"
	"tennisluv/internal/service"
)

type slotForm struct {
	Court int64 `json:"courtId" validate:"gt=0"`
	Hour  int   `json:"hour" validate:"gte=0,lte=23"`
}

type adminEntryForm struct {
	Court int64  `validate:"gt=0"`
	Date  string `validate:"required,datetime=2006-01-02"`
	Hour  int    `validate:"gte=0,lte=23"`
}

type hoursForm struct {
	Hours int `validate:"gte=0,lte=24"`
}

func checkForm(v any) error {
	return service.Validate(v)
}

// intField parses a numeric form value; a malformed one is a field error.
func intField(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.PostFormValue(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &service.ValidationError{Fields: []string{name}}
	}
	return n, nil
}

func parseSlot(r *http.Request) (slotForm, error) {
	court, err := intField(r, "court")
	if err != nil {
		return slotForm{}, err
	}
	hour, err := intField(r, "hour")
	if err != nil {
		return slotForm{}, err
	}
	f := slotForm{Court: court, Hour: int(hour)}
	return f, checkForm(f)
}

func parseAdminEntry(r *http.Request) (adminEntryForm, time.Time, error) {
	court, err := intField(r, "court")
	if err != nil {
		return adminEntryForm{}, time.Time{}, err
	}
	hour, err := intField(r, "hour")
	if err != nil {
		return adminEntryForm{}, time.Time{}, err
	}
	f := adminEntryForm{Court: court, Date: strings.TrimSpace(r.PostFormValue("date")), Hour: int(hour)}
	if err := checkForm(f); err != nil {
		return f, time.Time{}, err
	}
	day, err := models.ParseDay(f.Date)
	if err != nil {
		return f, time.Time{}, &service.ValidationError{Fields: []string{"date"}}
	}
	return f, day, nil
}

// parseDate reads an optional YYYY-MM-DD value; empty yields the zero time.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	day, err := models.ParseDay(raw)
	if err != nil {
		return time.Time{}, &service.ValidationError{Fields: []string{"date"}}
	}
	return day, nil
}

func parseBool(raw string) (bool, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, &service.ValidationError{Fields: []string{"value"}}
	}
	return b, nil
}

func registerForm(r *http.Request) backend.RegisterRequest {
	return backend.RegisterRequest{
		FirstName:  strings.TrimSpace(r.PostFormValue("firstName")),
		LastName:   strings.TrimSpace(r.PostFormValue("lastName")),
		Email:      strings.TrimSpace(r.PostFormValue("email")),
		Password:   r.PostFormValue("password"),
		Salutation: strings.TrimSpace(r.PostFormValue("salutation")),
		Title:      strings.TrimSpace(r.PostFormValue("title")),
		PostalCode: strings.TrimSpace(r.PostFormValue("postalCode")),
		City:       strings.TrimSpace(r.PostFormValue("city")),
		Street:     strings.TrimSpace(r.PostFormValue("street")),
		Mobile:     strings.TrimSpace(r.PostFormValue("mobile")),
	}
}

func profileForm(r *http.Request) backend.ProfileUpdate {
	return backend.ProfileUpdate{
		FirstName:  strings.TrimSpace(r.PostFormValue("firstName")),
		LastName:   strings.TrimSpace(r.PostFormValue("lastName")),
		Email:      strings.TrimSpace(r.PostFormValue("email")),
		Salutation: strings.TrimSpace(r.PostFormValue("salutation")),
		Title:      strings.TrimSpace(r.PostFormValue("title")),
		PostalCode: strings.TrimSpace(r.PostFormValue("postalCode")),
		City:       strings.TrimSpace(r.PostFormValue("city")),
		Street:     strings.TrimSpace(r.PostFormValue("street")),
		Mobile:     strings.TrimSpace(r.PostFormValue("mobile")),
		Password:   r.PostFormValue("password"),
	}
}
