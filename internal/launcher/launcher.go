// Package launcher lists, launches, stops and downloads games and reads
// player statistics. Launching, stopping and downloading need the player
// role.
package launcher

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/raclient/internal/dispatch"
	"github.com/wolfeidau/raclient/internal/protocol"
)

const (
	ModeStream   = "stream"
	ModeDownload = "download"

	DefaultCategory = "global"
)

// ErrNoGame is returned by Stop when no game session is running.
var ErrNoGame = errors.New("no game running")

// GameSession is a launched game.
type GameSession struct {
	GameID    string `json:"game_id"`
	SessionID string `json:"session_id"`
	StreamURL string `json:"stream_url,omitempty"`
	Mode      string `json:"mode"`
}

// Launcher performs game launcher actions and tracks the running game.
type Launcher struct {
	d    *dispatch.Dispatcher
	http *http.Client

	mu      sync.Mutex
	current *GameSession
}

// New creates a launcher. httpClient fetches downloads and should send the
// session bearer token; nil uses http.DefaultClient.
func New(d *dispatch.Dispatcher, httpClient *http.Client) *Launcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Launcher{d: d, http: httpClient}
}

// Current returns the running game session, or nil.
func (l *Launcher) Current() *GameSession {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current == nil {
		return nil
	}
	c := *l.current
	return &c
}

// Attach tracks a game session launched by another process so that Stop
// can end it.
func (l *Launcher) Attach(gameID, sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.current = &GameSession{GameID: gameID, SessionID: sessionID}
}

func (l *Launcher) ListGames(ctx context.Context) ([]protocol.Record, error) {
	var resp protocol.ListGamesResponse
	if err := l.d.Call(ctx, dispatch.Authenticated, &protocol.ListGamesRequest{}, &resp); err != nil {
		return nil, err
	}
	return resp.Games, nil
}

// Launch starts gameID in mode, ModeStream when empty, replacing any
// tracked session.
func (l *Launcher) Launch(ctx context.Context, gameID, mode string) (*GameSession, error) {
	if mode == "" {
		mode = ModeStream
	}

	var resp protocol.LaunchGameResponse
	if err := l.d.Call(ctx, dispatch.Player, &protocol.LaunchGameRequest{GameID: gameID, Mode: mode}, &resp); err != nil {
		return nil, err
	}

	session := &GameSession{
		GameID:    gameID,
		SessionID: resp.SessionID,
		StreamURL: resp.StreamURL,
		Mode:      mode,
	}

	l.mu.Lock()
	c := *session
	l.current = &c
	l.mu.Unlock()

	log.Info().
		Str("game_id", gameID).
		Str("session_id", session.SessionID).
		Str("mode", mode).
		Msg("game launched")

	return session, nil
}

// Stop ends the running game session.
func (l *Launcher) Stop(ctx context.Context) error {
	l.mu.Lock()
	if l.current == nil {
		l.mu.Unlock()
		return ErrNoGame
	}
	sessionID := l.current.SessionID
	l.mu.Unlock()

	var resp protocol.Ack
	if err := l.d.Call(ctx, dispatch.Player, &protocol.StopGameRequest{SessionID: sessionID}, &resp); err != nil {
		return err
	}

	l.mu.Lock()
	if l.current != nil && l.current.SessionID == sessionID {
		l.current = nil
	}
	l.mu.Unlock()

	log.Info().Str("session_id", sessionID).Msg("game stopped")

	return nil
}

// PlayerProfile returns the player's profile, empty when the server sends
// none.
func (l *Launcher) PlayerProfile(ctx context.Context) (protocol.Record, error) {
	var resp protocol.PlayerProfileResponse
	if err := l.d.Call(ctx, dispatch.Authenticated, &protocol.GetPlayerProfileRequest{}, &resp); err != nil {
		return nil, err
	}

	if resp.Profile == nil {
		return protocol.Record{}, nil
	}
	return resp.Profile, nil
}

// Achievements returns the player's achievements, for one game when gameID
// is not empty.
func (l *Launcher) Achievements(ctx context.Context, gameID string) ([]protocol.Record, error) {
	var resp protocol.AchievementsResponse
	if err := l.d.Call(ctx, dispatch.Authenticated, &protocol.GetAchievementsRequest{GameID: gameID}, &resp); err != nil {
		return nil, err
	}
	return resp.Achievements, nil
}

// Leaderboard returns a game's leaderboard in category, DefaultCategory
// when empty.
func (l *Launcher) Leaderboard(ctx context.Context, gameID, category string) ([]protocol.Record, error) {
	if category == "" {
		category = DefaultCategory
	}

	var resp protocol.LeaderboardResponse
	if err := l.d.Call(ctx, dispatch.Authenticated, &protocol.GetLeaderboardRequest{GameID: gameID, Category: category}, &resp); err != nil {
		return nil, err
	}
	return resp.Leaderboard, nil
}

// Download returns the URL a game can be downloaded from.
func (l *Launcher) Download(ctx context.Context, gameID string) (string, error) {
	var resp protocol.DownloadGameResponse
	if err := l.d.Call(ctx, dispatch.Player, &protocol.DownloadGameRequest{GameID: gameID}, &resp); err != nil {
		return "", err
	}
	return resp.DownloadURL, nil
}
