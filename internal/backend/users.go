package backend

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"tennisluv/internal/models"
)

// ProfileUpdate carries the editable profile fields. An empty Password keeps
// the current one.
type ProfileUpdate struct {
	FirstName  string `json:"firstName" validate:"required,max=100"`
	LastName   string `json:"lastName" validate:"required,max=100"`
	Email      string `json:"email" validate:"required,email"`
	Salutation string `json:"salutation,omitempty" validate:"max=20"`
	Title      string `json:"title,omitempty" validate:"max=50"`
	PostalCode string `json:"postalCode,omitempty" validate:"max=10"`
	City       string `json:"city,omitempty" validate:"max=100"`
	Street     string `json:"street,omitempty" validate:"max=200"`
	Mobile     string `json:"mobile,omitempty" validate:"max=30"`
	Password   string `json:"password,omitempty" validate:"omitempty,min=8"`
}

// Me returns the profile of the token's owner, including role and quota.
func (c *Client) Me(ctx context.Context, token string) (*models.User, error) {
	if err := c.checkToken(token); err != nil {
		return nil, err
	}
	var u models.User
	if err := c.doGet(ctx, "me", "/api/user/me", token, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) UpdateMe(ctx context.Context, token string, upd ProfileUpdate) (*models.User, error) {
	if err := c.checkToken(token); err != nil {
		return nil, err
	}
	var u models.User
	if err := c.doPut(ctx, "update_me", "/api/user/update", token, upd, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) DeleteMe(ctx context.Context, token string) error {
	if err := c.checkToken(token); err != nil {
		return err
	}
	return c.doDelete(ctx, "delete_me", "/api/user/delete", token)
}

// ErrInvalidHours is returned before any request when a quota is out of range.
var ErrInvalidHours = errors.New("daily booking hours must be between 0 and 24")

func (c *Client) ListUsers(ctx context.Context, token string) ([]models.User, error) {
	if err := c.checkToken(token); err != nil {
		return nil, err
	}
	var users []models.User
	if err := c.doGet(ctx, "list_users", "/api/admin/users", token, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) DeleteUser(ctx context.Context, token string, userID int64) error {
	if err := c.checkToken(token); err != nil {
		return err
	}
	return c.doDelete(ctx, "delete_user", fmt.Sprintf("/api/admin/users/%d", userID), token)
}

func (c *Client) SetAdmin(ctx context.Context, token string, userID int64, isAdmin bool) (*models.User, error) {
	path := fmt.Sprintf("/api/admin/users/%d/admin-status?isAdmin=%s", userID, strconv.FormatBool(isAdmin))
	return c.putUser(ctx, "set_admin", path, token)
}

func (c *Client) SetMembershipPaid(ctx context.Context, token string, userID int64, paid bool) (*models.User, error) {
	path := fmt.Sprintf("/api/admin/users/%d/membership-status?membershipPaid=%s", userID, strconv.FormatBool(paid))
	return c.putUser(ctx, "set_membership", path, token)
}

func (c *Client) SetBookingHours(ctx context.Context, token string, userID int64, hours int) (*models.User, error) {
	if hours < 0 || hours > 24 {
		return nil, ErrInvalidHours
	}
	path := fmt.Sprintf("/api/admin/users/%d/booking-hours?hours=%d", userID, hours)
	return c.putUser(ctx, "set_booking_hours", path, token)
}

func (c *Client) putUser(ctx context.Context, op, path, token string) (*models.User, error) {
	if err := c.checkToken(token); err != nil {
		return nil, err
	}
	var u models.User
	if err := c.doPut(ctx, op, path, token, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListFutureEntries returns every entry from the current hour on.
func (c *Client) ListFutureEntries(ctx context.Context, token string) ([]models.Entry, error) {
	if err := c.checkToken(token); err != nil {
		return nil, err
	}
	var entries []models.Entry
	if err := c.doGet(ctx, "list_future_entries", "/api/admin/entries", token, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) AdminDeleteEntry(ctx context.Context, token string, courtID int64, day time.Time, hour int) error {
	if err := c.checkToken(token); err != nil {
		return err
	}
	path := fmt.Sprintf("/api/admin/entries/%d/%s/%d", courtID, day.Format(models.DateLayout), hour)
	return c.doDelete(ctx, "admin_delete_entry", path, token)
}
