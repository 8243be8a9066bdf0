package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/raclient/internal/dispatch"
	"github.com/wolfeidau/raclient/internal/protocol"
	"github.com/wolfeidau/raclient/internal/transport/transporttest"
)

const (
	playerLogin    = `{"success":true,"access_token":"T1","refresh_token":"R1","roles":["player"],"expires_in":60}`
	developerLogin = `{"success":true,"access_token":"D1","refresh_token":"DR1","roles":["developer"],"user_profile":{"username":"dev"},"expires_in":30}`
	badCreds       = `{"success":false,"error":"bad creds"}`
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type memPersister struct {
	state  *State
	saves  int
	clears int
}

func (p *memPersister) Load() (*State, error) {
	if p.state == nil {
		return nil, ErrNoState
	}
	return p.state, nil
}

func (p *memPersister) Save(state *State) error {
	p.saves++
	p.state = state
	return nil
}

func (p *memPersister) Clear() error {
	p.clears++
	p.state = nil
	return nil
}

func TestHashPassword(t *testing.T) {
	assert.Equal(t, "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8", HashPassword("password"))
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("player scenario", func(t *testing.T) {
		rec := transporttest.New().
			Respond(protocol.ActionAuthenticate, playerLogin).
			Respond(protocol.ActionLaunchGame, `{"success":true,"session_id":"s1","stream_url":"https://stream/s1"}`)
		m := New(rec)

		require.NoError(t, m.Authenticate(ctx, "u", "p"))
		assert.True(t, m.IsAuthenticated(ctx))
		assert.True(t, m.IsPlayer())
		assert.False(t, m.IsDeveloper())

		call, ok := rec.Last()
		require.True(t, ok)
		assert.Equal(t, "u", call.Fields["username"])
		assert.Equal(t, HashPassword("p"), call.Fields["password_hash"])
		assert.NotContains(t, call.Fields, "password")

		rec.Reset()

		d := dispatch.New(rec, m)
		var resp protocol.LaunchGameResponse
		err := d.Call(ctx, dispatch.Player, &protocol.LaunchGameRequest{GameID: "g1", Mode: "stream"}, &resp)
		require.NoError(t, err)

		require.Equal(t, 1, rec.CallCount())
		call, _ = rec.Last()
		assert.Equal(t, protocol.ActionLaunchGame, call.Action)
		assert.Equal(t, "T1", call.Fields["auth_token"])
	})

	t.Run("stores profile roles and expiry", func(t *testing.T) {
		clock := newClock()
		rec := transporttest.New().Respond(protocol.ActionAuthenticate, developerLogin)
		m := New(rec, WithClock(clock.Now))

		require.NoError(t, m.Authenticate(ctx, "dev", "secret"))
		assert.Equal(t, "D1", m.AccessToken())
		assert.Equal(t, clock.Now().Add(30*time.Minute), m.Expiry())
		assert.Equal(t, map[string]any{"username": "dev"}, m.Profile())
		assert.Equal(t, []string{"developer"}, m.Roles())
		assert.True(t, m.IsDeveloper())
		assert.False(t, m.IsPlayer())
	})

	t.Run("admin is a developer", func(t *testing.T) {
		rec := transporttest.New().Respond(protocol.ActionAuthenticate, `{"success":true,"access_token":"A1","roles":["admin"]}`)
		m := New(rec)

		require.NoError(t, m.Authenticate(ctx, "root", "pw"))
		assert.True(t, m.IsDeveloper())
		assert.True(t, m.HasRole(RoleAdmin))
	})

	t.Run("expiry defaults to sixty minutes", func(t *testing.T) {
		clock := newClock()
		rec := transporttest.New().Respond(protocol.ActionAuthenticate, `{"success":true,"access_token":"T1"}`)
		m := New(rec, WithClock(clock.Now))

		require.NoError(t, m.Authenticate(ctx, "u", "p"))
		assert.Equal(t, clock.Now().Add(60*time.Minute), m.Expiry())
	})

	t.Run("fractional expires_in", func(t *testing.T) {
		clock := newClock()
		rec := transporttest.New().Respond(protocol.ActionAuthenticate, `{"success":true,"access_token":"T1","refresh_token":"R1","expires_in":60.0}`)
		m := New(rec, WithClock(clock.Now))

		require.NoError(t, m.Authenticate(ctx, "u", "p"))
		assert.True(t, m.IsAuthenticated(ctx))
		assert.Equal(t, clock.Now().Add(time.Hour), m.Expiry())

		rec = transporttest.New().Respond(protocol.ActionAuthenticate, `{"success":true,"access_token":"T1","expires_in":1.5}`)
		m = New(rec, WithClock(clock.Now))
		require.NoError(t, m.Authenticate(ctx, "u", "p"))
		assert.Equal(t, clock.Now().Add(90*time.Second), m.Expiry())
	})

	t.Run("bad credentials", func(t *testing.T) {
		rec := transporttest.New().Respond(protocol.ActionAuthenticate, badCreds)
		m := New(rec)

		err := m.Authenticate(ctx, "u", "wrong")

		var serverErr *protocol.ServerError
		require.ErrorAs(t, err, &serverErr)
		assert.Equal(t, "bad creds", serverErr.Message)
		assert.False(t, m.IsAuthenticated(ctx))

		header, ok := m.AuthHeader(ctx)
		assert.False(t, ok)
		assert.Empty(t, header)
	})

	t.Run("failure keeps the previous session", func(t *testing.T) {
		rec := transporttest.New().Respond(protocol.ActionAuthenticate, playerLogin)
		m := New(rec)
		require.NoError(t, m.Authenticate(ctx, "u", "p"))

		rec.Respond(protocol.ActionAuthenticate, badCreds)
		require.Error(t, m.Authenticate(ctx, "u", "wrong"))

		assert.True(t, m.IsAuthenticated(ctx))
		assert.Equal(t, "T1", m.AccessToken())
		assert.Equal(t, []string{"player"}, m.Roles())
	})

	t.Run("malformed and unreachable", func(t *testing.T) {
		rec := transporttest.New().Respond(protocol.ActionAuthenticate, `{not json`)
		m := New(rec)

		require.ErrorIs(t, m.Authenticate(ctx, "u", "p"), protocol.ErrMalformedResponse)

		rec.Fail(protocol.ActionAuthenticate, errors.New("connection refused"))
		require.ErrorIs(t, m.Authenticate(ctx, "u", "p"), dispatch.ErrTransport)

		rec.Respond(protocol.ActionAuthenticate, `{"success":true}`)
		require.ErrorIs(t, m.Authenticate(ctx, "u", "p"), protocol.ErrMissingField)

		assert.False(t, m.IsAuthenticated(ctx))
	})
}

func TestIsAuthenticated_Expiry(t *testing.T) {
	ctx := context.Background()

	t.Run("before expiry does not refresh", func(t *testing.T) {
		clock := newClock()
		rec := transporttest.New().Respond(protocol.ActionAuthenticate, playerLogin)
		m := New(rec, WithClock(clock.Now))
		require.NoError(t, m.Authenticate(ctx, "u", "p"))

		clock.Set(m.Expiry().Add(-time.Second))
		assert.True(t, m.IsAuthenticated(ctx))
		assert.Equal(t, 0, rec.Count(protocol.ActionRefreshToken))
	})

	t.Run("at expiry refreshes exactly once", func(t *testing.T) {
		clock := newClock()
		rec := transporttest.New().
			Respond(protocol.ActionAuthenticate, playerLogin).
			Respond(protocol.ActionRefreshToken, `{"success":true,"access_token":"T2","expires_in":15}`)
		m := New(rec, WithClock(clock.Now))
		require.NoError(t, m.Authenticate(ctx, "u", "p"))

		clock.Set(m.Expiry())
		assert.True(t, m.IsAuthenticated(ctx))
		assert.Equal(t, 1, rec.Count(protocol.ActionRefreshToken))

		call, _ := rec.Last()
		assert.Equal(t, "R1", call.Fields["refresh_token"])

		assert.Equal(t, "T2", m.AccessToken())
		assert.Equal(t, clock.Now().Add(15*time.Minute), m.Expiry())
		assert.Equal(t, []string{"player"}, m.Roles())

		header, ok := m.AuthHeader(ctx)
		assert.True(t, ok)
		assert.Equal(t, "Bearer T2", header)
		assert.Equal(t, 1, rec.Count(protocol.ActionRefreshToken))
	})

	t.Run("failed refresh reports false once and keeps state", func(t *testing.T) {
		clock := newClock()
		rec := transporttest.New().
			Respond(protocol.ActionAuthenticate, playerLogin).
			Respond(protocol.ActionRefreshToken, `{"success":false,"error":"refresh token revoked"}`)
		m := New(rec, WithClock(clock.Now))
		require.NoError(t, m.Authenticate(ctx, "u", "p"))

		clock.Set(m.Expiry().Add(time.Minute))
		assert.False(t, m.IsAuthenticated(ctx))
		assert.Equal(t, 1, rec.Count(protocol.ActionRefreshToken))

		assert.Equal(t, "T1", m.AccessToken())
		assert.Equal(t, []string{"player"}, m.Roles())
	})

	t.Run("without a refresh token", func(t *testing.T) {
		clock := newClock()
		rec := transporttest.New().Respond(protocol.ActionAuthenticate, `{"success":true,"access_token":"T1","expires_in":1}`)
		m := New(rec, WithClock(clock.Now))
		require.NoError(t, m.Authenticate(ctx, "u", "p"))

		require.ErrorIs(t, m.Refresh(ctx), ErrNoRefreshToken)

		clock.Set(m.Expiry())
		assert.False(t, m.IsAuthenticated(ctx))
		assert.Equal(t, 0, rec.Count(protocol.ActionRefreshToken))
	})

	t.Run("concurrent callers share one refresh", func(t *testing.T) {
		clock := newClock()
		release := make(chan struct{})
		rec := transporttest.New().
			Respond(protocol.ActionAuthenticate, playerLogin).
			Handle(protocol.ActionRefreshToken, func(protocol.Request, string) ([]byte, error) {
				<-release
				return []byte(`{"success":true,"access_token":"T2"}`), nil
			})
		m := New(rec, WithClock(clock.Now))
		require.NoError(t, m.Authenticate(ctx, "u", "p"))
		clock.Set(m.Expiry())

		const callers = 8
		var (
			started sync.WaitGroup
			done    sync.WaitGroup
			results = make(chan bool, callers)
		)
		started.Add(callers)
		done.Add(callers)
		for range callers {
			go func() {
				defer done.Done()
				started.Done()
				results <- m.IsAuthenticated(ctx)
			}()
		}

		started.Wait()
		time.Sleep(50 * time.Millisecond)
		close(release)
		done.Wait()
		close(results)

		for ok := range results {
			assert.True(t, ok)
		}
		assert.Equal(t, 1, rec.Count(protocol.ActionRefreshToken))
		assert.Equal(t, "T2", m.AccessToken())
	})

	t.Run("a cancelled caller does not fail the others", func(t *testing.T) {
		clock := newClock()
		inFlight := make(chan struct{})
		release := make(chan struct{})
		rec := transporttest.New().
			Respond(protocol.ActionAuthenticate, playerLogin).
			Handle(protocol.ActionRefreshToken, func(protocol.Request, string) ([]byte, error) {
				close(inFlight)
				<-release
				return []byte(`{"success":true,"access_token":"T2"}`), nil
			})
		m := New(rec, WithClock(clock.Now))
		require.NoError(t, m.Authenticate(ctx, "u", "p"))
		clock.Set(m.Expiry())

		first, cancel := context.WithCancel(ctx)
		firstResult := make(chan bool, 1)
		go func() { firstResult <- m.IsAuthenticated(first) }()
		<-inFlight

		secondResult := make(chan bool, 1)
		go func() { secondResult <- m.IsAuthenticated(ctx) }()
		time.Sleep(50 * time.Millisecond)

		cancel()
		assert.False(t, <-firstResult)

		close(release)
		assert.True(t, <-secondResult)
		assert.Equal(t, 1, rec.Count(protocol.ActionRefreshToken))
		assert.Equal(t, "T2", m.AccessToken())
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("twice is safe", func(t *testing.T) {
		rec := transporttest.New().
			Respond(protocol.ActionAuthenticate, playerLogin).
			Respond(protocol.ActionLogout, `{"success":true}`)
		m := New(rec)
		require.NoError(t, m.Authenticate(ctx, "u", "p"))

		m.Logout(ctx)
		require.Equal(t, 1, rec.Count(protocol.ActionLogout))
		call, _ := rec.Last()
		assert.Equal(t, "T1", call.Fields["access_token"])

		m.Logout(ctx)
		assert.Equal(t, 1, rec.Count(protocol.ActionLogout))

		assert.False(t, m.IsAuthenticated(ctx))
		assert.Empty(t, m.AccessToken())
		assert.True(t, m.Expiry().IsZero())
		assert.Empty(t, m.Roles())
		assert.Empty(t, m.Profile())
		require.ErrorIs(t, m.Refresh(ctx), ErrNoRefreshToken)
	})

	t.Run("clears state when the server fails", func(t *testing.T) {
		rec := transporttest.New().
			Respond(protocol.ActionAuthenticate, developerLogin).
			Fail(protocol.ActionLogout, errors.New("connection reset"))
		m := New(rec)
		require.NoError(t, m.Authenticate(ctx, "dev", "p"))

		m.Logout(ctx)
		assert.False(t, m.IsAuthenticated(ctx))
		assert.False(t, m.IsDeveloper())
	})

	t.Run("never authenticated", func(t *testing.T) {
		rec := transporttest.New()
		m := New(rec)

		m.Logout(ctx)
		assert.Equal(t, 0, rec.CallCount())
	})
}

func TestPersister(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	store := &memPersister{}

	rec := transporttest.New().
		Respond(protocol.ActionAuthenticate, developerLogin).
		Respond(protocol.ActionRefreshToken, `{"success":true,"access_token":"D2"}`).
		Respond(protocol.ActionLogout, `{"success":true}`)

	m := New(rec, WithClock(clock.Now), WithPersister(store))
	require.NoError(t, m.Authenticate(ctx, "dev", "p"))
	require.Equal(t, 1, store.saves)
	require.NotNil(t, store.state)
	assert.Equal(t, "D1", store.state.Token.AccessToken)

	restored := New(rec, WithClock(clock.Now), WithPersister(store))
	assert.True(t, restored.IsAuthenticated(ctx))
	assert.Equal(t, "D1", restored.AccessToken())
	assert.True(t, restored.IsDeveloper())
	assert.Equal(t, map[string]any{"username": "dev"}, restored.Profile())

	require.NoError(t, restored.Refresh(ctx))
	assert.Equal(t, 2, store.saves)
	assert.Equal(t, "D2", store.state.Token.AccessToken)

	restored.Logout(ctx)
	assert.Equal(t, 1, store.clears)
	assert.Nil(t, store.state)

	empty := New(rec, WithPersister(store))
	assert.False(t, empty.IsAuthenticated(ctx))
}

func TestTokenSource(t *testing.T) {
	ctx := context.Background()
	rec := transporttest.New().Respond(protocol.ActionAuthenticate, playerLogin)
	m := New(rec)

	_, err := m.TokenSource(ctx).Token()
	require.ErrorIs(t, err, ErrNotAuthenticated)

	require.NoError(t, m.Authenticate(ctx, "u", "p"))

	token, err := m.TokenSource(ctx).Token()
	require.NoError(t, err)
	assert.Equal(t, "T1", token.AccessToken)
	assert.Equal(t, "Bearer", token.Type())
}
