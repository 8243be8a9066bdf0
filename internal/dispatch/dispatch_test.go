package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/raclient/internal/protocol"
	"github.com/wolfeidau/raclient/internal/transport/transporttest"
)

type fakeAuth struct {
	authenticated bool
	developer     bool
	player        bool
	token         string
	checks        int
}

func (f *fakeAuth) IsAuthenticated(context.Context) bool {
	f.checks++
	return f.authenticated
}
func (f *fakeAuth) IsDeveloper() bool   { return f.developer }
func (f *fakeAuth) IsPlayer() bool      { return f.player }
func (f *fakeAuth) AccessToken() string { return f.token }

func TestDispatcher_Call(t *testing.T) {
	t.Run("stamps the access token and decodes the payload", func(t *testing.T) {
		rec := transporttest.New().Respond(protocol.ActionListGames, `{"success":true,"games":[{"game_id":"g1"}]}`)
		d := New(rec, &fakeAuth{authenticated: true, token: "T1"})

		var resp protocol.ListGamesResponse
		err := d.Call(context.Background(), Authenticated, &protocol.ListGamesRequest{}, &resp)
		require.NoError(t, err)
		require.Len(t, resp.Games, 1)
		assert.Equal(t, "g1", resp.Games[0].String("game_id"))

		call, ok := rec.Last()
		require.True(t, ok)
		assert.Equal(t, "T1", call.AuthToken)
		assert.Equal(t, protocol.ActionListGames, call.Action)
	})

	t.Run("closed gate sends nothing", func(t *testing.T) {
		cases := []struct {
			name string
			gate Gate
			auth *fakeAuth
		}{
			{"unauthenticated", Authenticated, &fakeAuth{}},
			{"not developer", Developer, &fakeAuth{authenticated: true, player: true}},
			{"not player", Player, &fakeAuth{authenticated: true, developer: true}},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				rec := transporttest.New().Respond(protocol.ActionListGames, `{"success":true}`)
				d := New(rec, tc.auth)

				var resp protocol.ListGamesResponse
				err := d.Call(context.Background(), tc.gate, &protocol.ListGamesRequest{}, &resp)
				require.ErrorIs(t, err, ErrNotPermitted)
				assert.Equal(t, "denied", ErrorKind(err))
				assert.Equal(t, 0, rec.CallCount())
			})
		}
	})

	t.Run("role gates do not consult token validity", func(t *testing.T) {
		rec := transporttest.New().Respond(protocol.ActionCreateGameProject, `{"success":true,"project_id":"p1"}`)
		auth := &fakeAuth{developer: true, token: "T1"}
		d := New(rec, auth)

		var resp protocol.CreateGameProjectResponse
		err := d.Call(context.Background(), Developer, &protocol.CreateGameProjectRequest{Name: "RPG"}, &resp)
		require.NoError(t, err)
		assert.Equal(t, 0, auth.checks)
	})

	t.Run("transport failure", func(t *testing.T) {
		rec := transporttest.New().Fail(protocol.ActionListGames, errors.New("connection lost"))
		d := New(rec, &fakeAuth{authenticated: true, token: "T1"})

		var resp protocol.ListGamesResponse
		err := d.Call(context.Background(), Authenticated, &protocol.ListGamesRequest{}, &resp)
		require.ErrorIs(t, err, ErrTransport)
		assert.Equal(t, "transport", ErrorKind(err))
		assert.Contains(t, err.Error(), "connection lost")
	})

	t.Run("server failure", func(t *testing.T) {
		rec := transporttest.New().Respond(protocol.ActionDeleteContent, `{"success":false,"error":"not found"}`)
		d := New(rec, &fakeAuth{authenticated: true, token: "T1"})

		var resp protocol.Ack
		err := d.Call(context.Background(), Authenticated, &protocol.DeleteContentRequest{AssetID: "a1"}, &resp)

		var serverErr *protocol.ServerError
		require.ErrorAs(t, err, &serverErr)
		assert.Equal(t, "not found", serverErr.Message)
		assert.Equal(t, "server", ErrorKind(err))
	})

	t.Run("malformed response", func(t *testing.T) {
		rec := transporttest.New().Respond(protocol.ActionDeleteContent, `garbage`)
		d := New(rec, &fakeAuth{authenticated: true, token: "T1"})

		var resp protocol.Ack
		err := d.Call(context.Background(), Authenticated, &protocol.DeleteContentRequest{AssetID: "a1"}, &resp)
		require.ErrorIs(t, err, protocol.ErrMalformedResponse)
		assert.Equal(t, "malformed", ErrorKind(err))
	})

	t.Run("invalid request is not sent", func(t *testing.T) {
		rec := transporttest.New()
		d := New(rec, &fakeAuth{authenticated: true, token: "T1"})

		var resp protocol.Ack
		err := d.Call(context.Background(), Authenticated, &protocol.DeleteContentRequest{}, &resp)
		require.ErrorIs(t, err, protocol.ErrMissingField)
		assert.Equal(t, 0, rec.CallCount())
	})
}

func TestRoundtrip_NoToken(t *testing.T) {
	rec := transporttest.New().Respond(protocol.ActionRefreshToken, `{"success":true,"access_token":"T2"}`)

	var resp protocol.RefreshTokenResponse
	err := Roundtrip(context.Background(), rec, &protocol.RefreshTokenRequest{RefreshToken: "R1"}, "", &resp)
	require.NoError(t, err)
	assert.Equal(t, "T2", resp.AccessToken)

	call, _ := rec.Last()
	assert.NotContains(t, call.Fields, "auth_token")
}

func TestGate_String(t *testing.T) {
	assert.Equal(t, "authenticated", Authenticated.String())
	assert.Equal(t, "developer", Developer.String())
	assert.Equal(t, "player", Player.String())
	assert.Equal(t, "unknown", Gate(42).String())
}
