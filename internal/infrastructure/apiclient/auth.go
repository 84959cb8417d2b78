package apiclient

import (
	"context"
	"errors"
	"net/http"

	"github.com/darziflow/console/internal/core/domain"
	"github.com/darziflow/console/internal/core/ports"
)

var _ ports.AuthAPI = (*Client)(nil)

// wireUser is the backend's user shape. Mongo-backed deployments send _id.
type wireUser struct {
	ID                 string `json:"id"`
	MongoID            string `json:"_id"`
	Name               string `json:"name"`
	Email              string `json:"email"`
	Role               string `json:"role"`
	MustChangePassword bool   `json:"mustChangePassword"`
}

func (u wireUser) principal() *domain.Principal {
	id := u.ID
	if id == "" {
		id = u.MongoID
	}
	return &domain.Principal{
		ID:                 id,
		Name:               u.Name,
		Email:              u.Email,
		Role:               domain.ParseRole(u.Role),
		MustChangePassword: u.MustChangePassword,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Platform string `json:"platform"`
}

type loginResponse struct {
	User        wireUser `json:"user"`
	AccessToken string   `json:"accessToken"`
}

type meResponse struct {
	User wireUser `json:"user"`
}

// Login authenticates against POST /auth/login and, on success, persists the
// returned token as the default for every later request. Rejections carry
// domain.ErrInvalidCredentials and the backend's message verbatim.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (*domain.Principal, error) {
	platform := creds.Platform
	if platform == "" {
		platform = c.platform
	}

	var resp loginResponse
	err := c.Do(ctx, http.MethodPost, "/auth/login", loginRequest{
		Email:    creds.Email,
		Password: creds.Password,
		Platform: platform,
	}, &resp)
	if err != nil {
		return nil, asLoginError(err)
	}
	if resp.AccessToken == "" {
		return nil, &Error{
			Kind:    KindDecode,
			Status:  http.StatusOK,
			Method:  http.MethodPost,
			Path:    "/auth/login",
			Message: "login response carried no access token",
			Err:     errors.New("missing accessToken"),
		}
	}
	if err := c.SetToken(ctx, resp.AccessToken); err != nil {
		return nil, err
	}
	return resp.User.principal(), nil
}

// asLoginError turns a 4xx answer to the login call into a credentials
// rejection. Transport failures and 5xx pass through untouched.
func asLoginError(err error) error {
	var ae *Error
	if !errors.As(err, &ae) {
		return err
	}
	if ae.Kind != KindUnauthorized && ae.Kind != KindStatus {
		return err
	}
	if ae.Status < 400 || ae.Status >= 500 {
		return err
	}
	rejected := *ae
	rejected.Err = domain.ErrInvalidCredentials
	if rejected.Message == "" {
		rejected.Message = "Invalid email or password"
	}
	return &rejected
}

// Logout calls POST /auth/logout. It does not touch the token; the session
// store clears it whatever this returns.
func (c *Client) Logout(ctx context.Context) error {
	return c.Do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// Me resolves the current token to a principal via GET /auth/me.
func (c *Client) Me(ctx context.Context) (*domain.Principal, error) {
	var resp meResponse
	if err := c.Do(ctx, http.MethodGet, "/auth/me", nil, &resp); err != nil {
		return nil, err
	}
	if resp.User.Email == "" && resp.User.ID == "" && resp.User.MongoID == "" {
		return nil, &Error{
			Kind:   KindDecode,
			Status: http.StatusOK,
			Method: http.MethodGet,
			Path:   "/auth/me",
			Err:    errors.New("response carried no user"),
		}
	}
	return resp.User.principal(), nil
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangePassword calls POST /auth/change-password.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	return c.Do(ctx, http.MethodPost, "/auth/change-password", changePasswordRequest{
		CurrentPassword: current,
		NewPassword:     next,
	}, nil)
}
