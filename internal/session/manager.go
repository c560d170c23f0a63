package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/equiplend/frontend/internal/apiclient"
	"github.com/equiplend/frontend/pkg/logging"
)

// refreshSkew refreshes a little before exp so an in-flight call does not
// race the expiry.
const refreshSkew = 30 * time.Second

// Manager owns the session lifecycle: login and signup create a session,
// logout deletes it, Resume loads and refreshes it.
type Manager struct {
	api   *apiclient.Client
	store Store
	now   func() time.Time
	newID func() string
}

func NewManager(api *apiclient.Client, store Store) *Manager {
	return &Manager{api: api, store: store, now: time.Now, newID: newID}
}

// Login obtains a token pair, loads the profile and stores a new session.
func (m *Manager) Login(ctx context.Context, creds apiclient.Credentials) (*Session, error) {
	pair, err := m.api.ObtainToken(ctx, creds)
	if err != nil {
		return nil, err
	}
	profile, err := m.api.Me(ctx, pair.Access)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if !profile.Role.Valid() {
		return nil, fmt.Errorf("load profile: unknown role %q", profile.Role)
	}

	sess := &Session{
		ID:           m.newID(),
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
		Role:         profile.Role,
		UserID:       profile.ID,
		Username:     profile.Username,
		DisplayName:  profile.DisplayName(),
		CreatedAt:    m.now().UTC(),
	}
	if err := m.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

// Signup registers the account and signs in with the same credentials.
func (m *Manager) Signup(ctx context.Context, reg apiclient.Registration) (*Session, error) {
	if err := m.api.Register(ctx, reg); err != nil {
		return nil, err
	}
	return m.Login(ctx, apiclient.Credentials{Username: reg.Username, Password: reg.Password})
}

// Logout removes the session. A missing session is not an error.
func (m *Manager) Logout(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, id); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return err
	}
	return nil
}

// userRevoker is implemented by stores that can find every session of a
// user.
type userRevoker interface {
	RevokeAllForUser(ctx context.Context, userID int64) error
}

// LogoutEverywhere ends all of the user's sessions. Stores without a user
// index only lose the current one.
func (m *Manager) LogoutEverywhere(ctx context.Context, sess *Session) error {
	if r, ok := m.store.(userRevoker); ok {
		return r.RevokeAllForUser(ctx, sess.UserID)
	}
	return m.Logout(ctx, sess.ID)
}

// Resume loads the session and refreshes its access token when it is about
// to expire. Any failure leaves the caller signed out.
func (m *Manager) Resume(ctx context.Context, id string) (*Session, error) {
	sess, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sess.Valid() {
		_ = m.store.Delete(ctx, id)
		return nil, ErrSessionNotFound
	}
	return m.EnsureFresh(ctx, sess)
}

// EnsureFresh trades the refresh token for a new access token when the
// current one is expiring. A rejected refresh drops the session.
func (m *Manager) EnsureFresh(ctx context.Context, sess *Session) (*Session, error) {
	if !NeedsRefresh(sess.AccessToken, m.now(), refreshSkew) {
		return sess, nil
	}

	log := logging.FromContext(ctx).With("session", "refresh")
	if sess.RefreshToken == "" {
		_ = m.store.Delete(ctx, sess.ID)
		log.Info("session_expired", "user_id", sess.UserID, "reason", "no refresh token")
		return nil, ErrSessionExpired
	}

	pair, err := m.api.RefreshAccess(ctx, sess.RefreshToken)
	if err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			_ = m.store.Delete(ctx, sess.ID)
			log.Info("session_expired", "user_id", sess.UserID, "reason", "refresh rejected")
			return nil, ErrSessionExpired
		}
		// server or transport trouble: keep the session, the API call will tell
		log.Warn("refresh_failed", "user_id", sess.UserID, "error", err)
		return sess, nil
	}

	out := *sess
	out.AccessToken = pair.Access
	out.RefreshToken = pair.Refresh
	if err := m.store.Save(ctx, &out); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	log.Debug("session_refreshed", "user_id", sess.UserID)
	return &out, nil
}

// Drop is called when the API rejects the session's token mid-request.
func (m *Manager) Drop(ctx context.Context, sess *Session) {
	if sess == nil {
		return
	}
	if err := m.store.Delete(ctx, sess.ID); err != nil {
		logging.FromContext(ctx).Warn("session_drop_failed", "user_id", sess.UserID, "error", err)
	}
}
