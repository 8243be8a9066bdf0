// Package session owns the authentication state of one client connection:
// the access and refresh tokens, their expiry, the user profile and the
// granted roles. Nothing outside a Manager mutates that state.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/raclient/internal/dispatch"
	"github.com/wolfeidau/raclient/internal/protocol"
	"github.com/wolfeidau/raclient/internal/telemetry"
	"github.com/wolfeidau/raclient/internal/transport"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	RoleAdmin     = "admin"
	RoleDeveloper = "developer"
	RolePlayer    = "player"
)

var (
	// ErrNotAuthenticated is returned when an operation needs a live session.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNoRefreshToken is returned by Refresh when no refresh token is held.
	ErrNoRefreshToken = errors.New("no refresh token")
)

// refreshTimeout bounds a shared refresh round trip.
const refreshTimeout = 60 * time.Second

var _ dispatch.Authorizer = (*Manager)(nil)

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now for expiry computations.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithPersister restores the session from p on construction and keeps p in
// step with every authenticate, refresh and logout.
func WithPersister(p Persister) Option {
	return func(m *Manager) {
		m.persister = p
	}
}

// Manager is the single source of truth for whether the client may call the
// server and as whom. It is safe for concurrent use.
type Manager struct {
	ch        transport.Channel
	now       func() time.Time
	persister Persister
	metrics   *telemetry.Metrics
	refreshes singleflight.Group

	mu      sync.RWMutex
	token   *oauth2.Token
	profile map[string]any
	roles   []string
}

// New creates a Manager that performs its own actions on ch.
func New(ch transport.Channel, opts ...Option) *Manager {
	m := &Manager{
		ch:      ch,
		now:     time.Now,
		metrics: telemetry.GetMetrics(),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.persister != nil {
		m.restore()
	}

	return m
}

// HashPassword returns the hex SHA-256 digest sent in place of a password.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Authenticate exchanges username and password for a session. On failure
// the previous session, if any, is left untouched.
func (m *Manager) Authenticate(ctx context.Context, username, password string) error {
	m.metrics.AuthenticateTotal.Add(ctx, 1)

	req := &protocol.AuthenticateRequest{
		Username:     username,
		PasswordHash: HashPassword(password),
	}

	var resp protocol.AuthenticateResponse
	if err := dispatch.Roundtrip(ctx, m.ch, req, "", &resp); err != nil {
		m.metrics.AuthenticateErrorsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", dispatch.ErrorKind(err)),
		))
		log.Warn().Err(err).Str("username", username).Msg("authentication failed")
		return err
	}

	now := m.now()

	m.mu.Lock()
	m.token = &oauth2.Token{
		AccessToken:  resp.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: resp.RefreshToken,
		Expiry:       now.Add(resp.Lifetime()),
	}
	m.profile = maps.Clone(resp.UserProfile)
	m.roles = slices.Clone(resp.Roles)
	state := m.snapshot()
	m.mu.Unlock()

	log.Info().
		Str("username", username).
		Strs("roles", resp.Roles).
		Time("expiry", state.Token.Expiry).
		Msg("authenticated")

	m.save(state)

	return nil
}

// Refresh replaces the access token and its expiry using the refresh token.
// Profile and roles are never changed by a refresh, and a failed refresh
// leaves the session as it was. Concurrent callers share one round trip,
// which is not cancelled with any one caller's ctx; each caller stops
// waiting when its own ctx ends.
func (m *Manager) Refresh(ctx context.Context) error {
	results := m.refreshes.DoChan("refresh", func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return nil, m.refresh(rctx)
	})

	select {
	case res := <-results:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) refresh(ctx context.Context) error {
	m.mu.RLock()
	var refreshToken string
	if m.token != nil {
		refreshToken = m.token.RefreshToken
	}
	m.mu.RUnlock()

	if refreshToken == "" {
		return ErrNoRefreshToken
	}

	m.metrics.TokenRefreshTotal.Add(ctx, 1)

	var resp protocol.RefreshTokenResponse
	err := dispatch.Roundtrip(ctx, m.ch, &protocol.RefreshTokenRequest{RefreshToken: refreshToken}, "", &resp)
	if err != nil {
		m.metrics.TokenRefreshErrorsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", dispatch.ErrorKind(err)),
		))
		log.Warn().Err(err).Msg("token refresh failed")
		return err
	}

	now := m.now()

	m.mu.Lock()
	if m.token == nil || m.token.RefreshToken != refreshToken {
		// logged out or re-authenticated while the refresh was in flight
		m.mu.Unlock()
		return ErrNotAuthenticated
	}
	m.token = &oauth2.Token{
		AccessToken:  resp.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: refreshToken,
		Expiry:       now.Add(resp.Lifetime()),
	}
	state := m.snapshot()
	m.mu.Unlock()

	log.Debug().Time("expiry", state.Token.Expiry).Msg("access token refreshed")

	m.save(state)

	return nil
}

// IsAuthenticated reports whether an access token is held and live. A token
// whose expiry has been reached is refreshed exactly once; the result of
// that refresh is the answer.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	m.mu.RLock()
	token := m.token
	m.mu.RUnlock()

	if token == nil || token.AccessToken == "" || token.Expiry.IsZero() {
		return false
	}

	if m.now().Before(token.Expiry) {
		return true
	}

	log.Debug().Time("expiry", token.Expiry).Msg("access token expired, refreshing")

	return m.Refresh(ctx) == nil
}

// Logout tells the server the access token is done with, ignoring the
// outcome, and then clears the session. It is safe to call repeatedly.
func (m *Manager) Logout(ctx context.Context) {
	m.metrics.LogoutTotal.Add(ctx, 1)

	accessToken := m.AccessToken()
	if accessToken != "" {
		var resp protocol.Ack
		if err := dispatch.Roundtrip(ctx, m.ch, &protocol.LogoutRequest{AccessToken: accessToken}, "", &resp); err != nil {
			log.Debug().Err(err).Msg("logout notification failed")
		}
	}

	m.mu.Lock()
	m.token = nil
	m.profile = nil
	m.roles = nil
	m.mu.Unlock()

	if m.persister != nil {
		if err := m.persister.Clear(); err != nil {
			log.Warn().Err(err).Msg("failed to clear persisted session")
		}
	}

	log.Info().Msg("logged out")
}

// AuthHeader returns "Bearer <access token>" when the session is
// authenticated, which may refresh the token first.
func (m *Manager) AuthHeader(ctx context.Context) (string, bool) {
	if !m.IsAuthenticated(ctx) {
		return "", false
	}

	token := m.AccessToken()
	if token == "" {
		return "", false
	}

	return "Bearer " + token, true
}

func (m *Manager) HasRole(role string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Contains(m.roles, role)
}

// IsDeveloper reports whether the developer or admin role was granted.
func (m *Manager) IsDeveloper() bool {
	return m.HasRole(RoleDeveloper) || m.HasRole(RoleAdmin)
}

func (m *Manager) IsPlayer() bool {
	return m.HasRole(RolePlayer)
}

// AccessToken returns the held access token without checking its expiry.
func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.token == nil {
		return ""
	}
	return m.token.AccessToken
}

// Expiry returns the access token expiry, zero when unauthenticated.
func (m *Manager) Expiry() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.token == nil {
		return time.Time{}
	}
	return m.token.Expiry
}

// Profile returns a copy of the user profile.
func (m *Manager) Profile() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.profile)
}

// Roles returns a copy of the granted roles.
func (m *Manager) Roles() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.roles)
}

// snapshot must be called with mu held.
func (m *Manager) snapshot() *State {
	token := *m.token
	return &State{
		Token:   &token,
		Profile: maps.Clone(m.profile),
		Roles:   slices.Clone(m.roles),
	}
}
