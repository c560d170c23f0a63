package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/equiplend/frontend/internal/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// Session is everything the front-end knows about a signed-in user. It is
// created by login or signup and removed by logout; nothing else writes it.
type Session struct {
	ID           string      `json:"id"`
	AccessToken  string      `json:"access"`
	RefreshToken string      `json:"refresh,omitempty"`
	Role         models.Role `json:"role"`
	UserID       int64       `json:"user_id"`
	Username     string      `json:"username"`
	DisplayName  string      `json:"display_name"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Valid reports whether the session carries enough to call the API.
func (s *Session) Valid() bool {
	return s != nil && s.AccessToken != "" && s.Role.Valid()
}

func (s *Session) Privileged() bool {
	return s != nil && s.Role.Privileged()
}

// HomePath is where the user lands after signing in.
func (s *Session) HomePath() string {
	if s.Privileged() {
		return "/admin/dashboard"
	}
	return "/student/dashboard"
}

// HasRole reports whether the session role is one of roles.
func (s *Session) HasRole(roles ...models.Role) bool {
	if s == nil {
		return false
	}
	for _, r := range roles {
		if s.Role == r {
			return true
		}
	}
	return false
}

type Store interface {
	Save(ctx context.Context, s *Session) error
	Load(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

func newID() string { return uuid.NewString() }
