package backend

import (
	"context"
	"encoding/json"
	"net/url"

	"tennisluv/internal/models"
)

// AuthResponse is the answer to login and register: a bearer token plus the
// parts of the profile the backend includes.
type AuthResponse struct {
	Token string
	User  models.User
}

func (a *AuthResponse) UnmarshalJSON(data []byte) error {
	var tok struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &tok); err != nil {
		return err
	}
	a.Token = tok.Token
	return json.Unmarshal(data, &a.User)
}

type RegisterRequest struct {
	FirstName  string `json:"firstName" validate:"required,max=100"`
	LastName   string `json:"lastName" validate:"required,max=100"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
	Salutation string `json:"salutation,omitempty" validate:"max=20"`
	Title      string `json:"title,omitempty" validate:"max=50"`
	PostalCode string `json:"postalCode,omitempty" validate:"max=10"`
	City       string `json:"city,omitempty" validate:"max=100"`
	Street     string `json:"street,omitempty" validate:"max=200"`
	Mobile     string `json:"mobile,omitempty" validate:"max=30"`
}

// VerificationStatus reports whether a registered email was confirmed.
type VerificationStatus struct {
	Enabled   bool   `json:"enabled"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	body := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{email, password}

	var resp AuthResponse
	if err := c.doPost(ctx, "login", "/api/auth/login", "", body, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, &APIError{kind: ErrServer, Message: "login response carried no token"}
	}
	if resp.User.Email == "" {
		resp.User.Email = email
	}
	return &resp, nil
}

// Register creates an account. The backend may answer without a usable token
// until the email is verified.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.doPost(ctx, "register", "/api/auth/register", "", req, &resp); err != nil {
		return nil, err
	}
	if resp.User.Email == "" {
		resp.User.Email = req.Email
	}
	return &resp, nil
}

// Verify confirms an email with the token from the verification mail.
func (c *Client) Verify(ctx context.Context, verificationToken string) (string, error) {
	var msg string
	path := "/api/auth/verify?token=" + url.QueryEscape(verificationToken)
	if err := c.doGet(ctx, "verify", path, "", &msg); err != nil {
		return "", err
	}
	return msg, nil
}

func (c *Client) CheckVerification(ctx context.Context, email string) (*VerificationStatus, error) {
	var st VerificationStatus
	path := "/api/auth/check-verification?email=" + url.QueryEscape(email)
	if err := c.doGet(ctx, "check_verification", path, "", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) ResendVerification(ctx context.Context, email string) (string, error) {
	body := struct {
		Email string `json:"email"`
	}{email}
	var resp struct {
		Message string `json:"message"`
	}
	if err := c.doPost(ctx, "resend_verification", "/api/auth/resend-verification", "", body, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}
