package models

import (
	"encoding/json"
	"strings"
)

type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

type User struct {
	ID                   int64  `json:"userId"`
	Email                string `json:"email"`
	FirstName            string `json:"firstName"`
	LastName             string `json:"lastName"`
	Salutation           string `json:"salutation,omitempty"`
	Title                string `json:"title,omitempty"`
	PostalCode           string `json:"postalCode,omitempty"`
	City                 string `json:"city,omitempty"`
	Street               string `json:"street,omitempty"`
	Mobile               string `json:"mobile,omitempty"`
	IsAdmin              bool   `json:"isAdmin"`
	MembershipPaid       bool   `json:"membershipPaid"`
	MaxDailyBookingHours int    `json:"maxDailyBookingHours"`
	Enabled              bool   `json:"enabled,omitempty"`
}

func (u *User) Role() Role {
	if u != nil && u.IsAdmin {
		return RoleAdmin
	}
	return RoleMember
}

func (u *User) IsAdminRole() bool {
	return u.Role() == RoleAdmin
}

// Owns reports whether the entry belongs to the user. Emails compare case-insensitively.
func (u *User) Owns(e Entry) bool {
	if u == nil || e.OwnerEmail == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(u.Email), strings.TrimSpace(e.OwnerEmail))
}

func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// UnmarshalJSON accepts the admin flag as "isAdmin", "admin" or a "role" string,
// since backend versions disagree on the field name.
func (u *User) UnmarshalJSON(data []byte) error {
	type alias User
	aux := struct {
		*alias
		Admin    *bool  `json:"admin"`
		RoleName string `json:"role"`
	}{alias: (*alias)(u)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Admin != nil && *aux.Admin {
		u.IsAdmin = true
	}
	if strings.EqualFold(aux.RoleName, string(RoleAdmin)) {
		u.IsAdmin = true
	}
	return nil
}
