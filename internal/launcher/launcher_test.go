package launcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/raclient/internal/dispatch"
	"github.com/wolfeidau/raclient/internal/protocol"
	"github.com/wolfeidau/raclient/internal/transport/transporttest"
)

type roles struct {
	player bool
}

func (roles) IsAuthenticated(context.Context) bool { return true }
func (roles) IsDeveloper() bool                    { return false }
func (r roles) IsPlayer() bool                     { return r.player }
func (roles) AccessToken() string                  { return "T1" }

func newLauncher(rec *transporttest.Recorder, player bool, client *http.Client) *Launcher {
	return New(dispatch.New(rec, roles{player: player}), client)
}

func TestLaunch(t *testing.T) {
	ctx := context.Background()
	rec := transporttest.New().Respond(protocol.ActionLaunchGame, `{"success":true,"session_id":"s1","stream_url":"https://stream/s1"}`)
	l := newLauncher(rec, true, nil)

	session, err := l.Launch(ctx, "g1", "")
	require.NoError(t, err)
	assert.Equal(t, &GameSession{GameID: "g1", SessionID: "s1", StreamURL: "https://stream/s1", Mode: ModeStream}, session)
	assert.Equal(t, session, l.Current())

	require.Equal(t, 1, rec.CallCount())
	call, _ := rec.Last()
	assert.Equal(t, "g1", call.Fields["game_id"])
	assert.Equal(t, "stream", call.Fields["mode"])
	assert.Equal(t, "T1", call.Fields["auth_token"])
}

func TestPlayerGate(t *testing.T) {
	ctx := context.Background()
	rec := transporttest.New().
		Respond(protocol.ActionLaunchGame, `{"success":true,"session_id":"s1"}`).
		Respond(protocol.ActionDownloadGame, `{"success":true,"download_url":"https://dl/g1"}`)
	l := newLauncher(rec, false, nil)

	_, err := l.Launch(ctx, "g1", ModeDownload)
	require.ErrorIs(t, err, dispatch.ErrNotPermitted)

	_, err = l.Download(ctx, "g1")
	require.ErrorIs(t, err, dispatch.ErrNotPermitted)

	assert.Equal(t, 0, rec.CallCount())
	assert.Nil(t, l.Current())
}

func TestStop(t *testing.T) {
	ctx := context.Background()
	rec := transporttest.New().
		Respond(protocol.ActionLaunchGame, `{"success":true,"session_id":"s1"}`).
		Respond(protocol.ActionStopGame, `{"success":true}`)
	l := newLauncher(rec, true, nil)

	require.ErrorIs(t, l.Stop(ctx), ErrNoGame)
	assert.Equal(t, 0, rec.CallCount())

	_, err := l.Launch(ctx, "g1", "stream")
	require.NoError(t, err)

	require.NoError(t, l.Stop(ctx))
	call, _ := rec.Last()
	assert.Equal(t, "s1", call.Fields["session_id"])
	assert.Nil(t, l.Current())

	require.ErrorIs(t, l.Stop(ctx), ErrNoGame)
}

func TestAttach(t *testing.T) {
	rec := transporttest.New().Respond(protocol.ActionStopGame, `{"success":true}`)
	l := newLauncher(rec, true, nil)

	l.Attach("g1", "s9")
	require.NoError(t, l.Stop(context.Background()))

	call, _ := rec.Last()
	assert.Equal(t, "s9", call.Fields["session_id"])
	assert.Nil(t, l.Current())
}

func TestStop_FailureKeepsSession(t *testing.T) {
	ctx := context.Background()
	rec := transporttest.New().
		Respond(protocol.ActionLaunchGame, `{"success":true,"session_id":"s1"}`).
		Respond(protocol.ActionStopGame, `{"success":false,"error":"session busy"}`)
	l := newLauncher(rec, true, nil)

	_, err := l.Launch(ctx, "g1", "stream")
	require.NoError(t, err)

	require.Error(t, l.Stop(ctx))
	require.NotNil(t, l.Current())
	assert.Equal(t, "s1", l.Current().SessionID)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	rec := transporttest.New().
		Respond(protocol.ActionListGames, `{"success":true,"games":[{"game_id":"g1"},{"game_id":"g2"}]}`).
		Respond(protocol.ActionGetPlayerProfile, `{"success":true,"profile":{"username":"u","level":7}}`).
		Respond(protocol.ActionGetAchievements, `{"success":true,"achievements":[{"name":"first blood"}]}`).
		Respond(protocol.ActionGetLeaderboard, `{"success":true,"leaderboard":[{"rank":1}]}`)
	l := newLauncher(rec, false, nil)

	games, err := l.ListGames(ctx)
	require.NoError(t, err)
	assert.Len(t, games, 2)

	profile, err := l.PlayerProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u", profile.String("username"))

	achievements, err := l.Achievements(ctx, "")
	require.NoError(t, err)
	assert.Len(t, achievements, 1)
	call, _ := rec.Last()
	assert.NotContains(t, call.Fields, "game_id")

	board, err := l.Leaderboard(ctx, "g1", "")
	require.NoError(t, err)
	assert.Len(t, board, 1)
	call, _ = rec.Last()
	assert.Equal(t, "global", call.Fields["category"])
	assert.Equal(t, "g1", call.Fields["game_id"])
}

func TestDownloadTo(t *testing.T) {
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/games/g1.zip" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("game archive"))
	}))
	defer srv.Close()

	rec := transporttest.New().Respond(protocol.ActionDownloadGame, `{"success":true,"download_url":"`+srv.URL+`/games/g1.zip"}`)
	l := newLauncher(rec, true, srv.Client())

	path := filepath.Join(t.TempDir(), "g1.zip")
	n, err := l.DownloadTo(ctx, "g1", path)
	require.NoError(t, err)
	assert.Equal(t, int64(len("game archive")), n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "game archive", string(data))

	rec.Respond(protocol.ActionDownloadGame, `{"success":true,"download_url":"`+srv.URL+`/games/missing.zip"}`)
	missing := filepath.Join(t.TempDir(), "missing.zip")
	_, err = l.DownloadTo(ctx, "g2", missing)
	require.Error(t, err)
	assert.NoFileExists(t, missing)
}
