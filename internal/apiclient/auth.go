package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/equiplend/frontend/internal/models"
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Registration struct {
	Username   string      `json:"username"`
	Email      string      `json:"email"`
	Password   string      `json:"password"`
	FirstName  string      `json:"first_name"`
	LastName   string      `json:"last_name"`
	Role       models.Role `json:"role"`
	Department string      `json:"department"`
}

// ObtainToken exchanges credentials for an access/refresh pair. Any non-2xx
// answer is reported as ErrInvalidCredentials.
func (c *Client) ObtainToken(ctx context.Context, creds Credentials) (*models.TokenPair, error) {
	var out models.TokenPair
	err := c.do(ctx, http.MethodPost, "/api/token/", "/api/token/", "", creds, &out)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidCredentials, apiErr.Message())
		}
		return nil, err
	}
	if out.Access == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrInvalidCredentials)
	}
	return &out, nil
}

// RefreshAccess trades a refresh token for a new access token. The refresh
// token is rotated only when the API returns a new one. Only a 400 or 401
// means the refresh token itself is bad; other failures come back as is.
func (c *Client) RefreshAccess(ctx context.Context, refresh string) (*models.TokenPair, error) {
	var out models.TokenPair
	in := map[string]string{"refresh": refresh}
	if err := c.do(ctx, http.MethodPost, "/api/token/refresh/", "/api/token/refresh/", "", in, &out); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) &&
			(apiErr.StatusCode == http.StatusBadRequest || apiErr.StatusCode == http.StatusUnauthorized) {
			return nil, fmt.Errorf("%w: refresh rejected", ErrUnauthorized)
		}
		return nil, err
	}
	if out.Refresh == "" {
		out.Refresh = refresh
	}
	return &out, nil
}

func (c *Client) Me(ctx context.Context, token string) (*models.Profile, error) {
	var out models.Profile
	if err := c.do(ctx, http.MethodGet, "/api/users/me/", "/api/users/me/", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, reg Registration) error {
	return c.do(ctx, http.MethodPost, "/api/users/register/", "/api/users/register/", "", reg, nil)
}
