// Package devserver is an in-memory RaCore action server. It answers the
// protocol over a websocket and serves game downloads over HTTP, which is
// enough to exercise the client end to end without a real backend.
package devserver

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/raclient/internal/assets"
	httpmiddleware "github.com/wolfeidau/raclient/internal/http"
	"github.com/wolfeidau/raclient/internal/protocol"
	"github.com/wolfeidau/raclient/internal/session"
)

const (
	defaultExpiresIn  = protocol.DefaultExpiresIn
	defaultRefreshTTL = 24 * time.Hour
	maxMessageSize    = 64 << 20
)

// Config configures a Server.
type Config struct {
	Users []User
	Games []Game
	// Secret signs issued tokens and must be at least 32 bytes
	Secret []byte
	// ExpiresIn is the access token lifetime in minutes
	ExpiresIn  int
	RefreshTTL time.Duration
	// BaseURL is the public HTTP address used in download and stream URLs
	BaseURL string
	Now     func() time.Time
}

// Server answers protocol actions against in-memory state.
type Server struct {
	cfg      Config
	users    map[string]User
	games    map[string]Game
	tokens   *tokenIssuer
	state    *state
	upgrader websocket.Upgrader
}

// New validates cfg and returns a Server seeded with its users and games.
func New(cfg Config) (*Server, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("token signing secret must be at least 32 bytes")
	}
	if cfg.ExpiresIn <= 0 {
		cfg.ExpiresIn = defaultExpiresIn
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = defaultRefreshTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	s := &Server{
		cfg:    cfg,
		users:  make(map[string]User, len(cfg.Users)),
		games:  make(map[string]Game, len(cfg.Games)),
		tokens: newIssuer(cfg.Secret, cfg.Now),
		state:  newState(),
	}
	for _, u := range cfg.Users {
		s.users[u.Username] = u
	}
	for _, g := range cfg.Games {
		s.games[g.ID] = g
		if len(g.Leaderboard) > 0 {
			s.state.setLeaderboard(g.ID, "global", g.Leaderboard)
		}
	}

	return s, nil
}

// Handler routes the websocket endpoint at /ws and game downloads at
// /downloads/{game}.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.serveWebSocket)
	mux.HandleFunc("GET /downloads/{game}", s.serveDownload)

	return httpmiddleware.ClientIPMiddleware()(httpmiddleware.AccessLog(log.Logger)(mux))
}

// serveWebSocket answers each message on the connection in order.
func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	clientIP := httpmiddleware.ClientIPFromContext(r.Context())
	log.Info().Str("client_ip", clientIP).Msg("client connected")

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Str("client_ip", clientIP).Msg("connection closed")
			}
			return
		}

		if err := conn.WriteMessage(websocket.TextMessage, s.Handle(msg)); err != nil {
			log.Warn().Err(err).Str("client_ip", clientIP).Msg("failed to write response")
			return
		}
	}
}

// serveDownload streams a game payload to a bearer of a player access token.
func (s *Server) serveDownload(w http.ResponseWriter, r *http.Request) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		http.Error(w, "missing bearer token", http.StatusUnauthorized)
		return
	}

	claims, err := s.tokens.verify(token, kindAccess)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	if !authorized(protocol.ActionDownloadGame, claims.Roles) {
		http.Error(w, "insufficient permissions", http.StatusForbidden)
		return
	}

	game, ok := s.games[r.PathValue("game")]
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Header().Set("ETag", `"`+assets.Checksum(game.Payload)+`"`)
	if _, err := w.Write(game.Payload); err != nil {
		log.Warn().Err(err).Str("game_id", game.ID).Msg("failed to write download")
		return
	}

	log.Info().
		Str("game_id", game.ID).
		Str("user", claims.Subject).
		Str("client_ip", httpmiddleware.ClientIPFromContext(r.Context())).
		Msg("game downloaded")
}

// Handle answers one request message. It never fails: errors are reported
// in the response.
func (s *Server) Handle(msg []byte) []byte {
	resp := s.handle(msg)

	data, err := protocol.EncodeResponse(resp)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode response")
		data, _ = protocol.EncodeResponse(protocol.Failure("internal error"))
	}
	return data
}

func (s *Server) handle(msg []byte) protocol.Response {
	req, authToken, err := protocol.DecodeRequest(msg)
	if err != nil {
		log.Debug().Err(err).Msg("rejected request")
		return protocol.Failure(err.Error())
	}

	switch r := req.(type) {
	case *protocol.AuthenticateRequest:
		return s.authenticate(r)
	case *protocol.RefreshTokenRequest:
		return s.refresh(r)
	case *protocol.LogoutRequest:
		return s.logout(r)
	}

	claims, err := s.tokens.verify(authToken, kindAccess)
	if err != nil {
		return protocol.Failure("authentication required")
	}
	if !authorized(req.Action(), claims.Roles) {
		log.Debug().Str("action", req.Action().String()).Str("user", claims.Subject).Msg("permission denied")
		return protocol.Failure("insufficient permissions")
	}

	return s.dispatch(req, claims)
}

func (s *Server) dispatch(req protocol.Request, claims *Claims) protocol.Response {
	switch r := req.(type) {
	case *protocol.FetchContentRequest:
		return s.fetchContent(r)
	case *protocol.ListContentRequest:
		return &protocol.ListContentResponse{Status: protocol.OK(), ContentList: s.state.listAssets(r.ContentType)}
	case *protocol.CreateContentRequest:
		return s.createContent(r)
	case *protocol.UpdateContentRequest:
		return s.updateContent(r)
	case *protocol.DeleteContentRequest:
		if !s.state.deleteAsset(r.AssetID) {
			return protocol.Failure("asset not found")
		}
		return &protocol.Ack{Status: protocol.OK()}
	case *protocol.UploadBinaryAssetRequest:
		return s.uploadBinary(r)
	case *protocol.AnalyzeAssetRequest:
		return s.analyze(r)
	case *protocol.ListGamesRequest:
		return s.listGames()
	case *protocol.LaunchGameRequest:
		return s.launch(r, claims.Subject)
	case *protocol.StopGameRequest:
		if !s.state.endSession(r.SessionID, claims.Subject) {
			return protocol.Failure("game session not found")
		}
		return &protocol.Ack{Status: protocol.OK()}
	case *protocol.DownloadGameRequest:
		if _, ok := s.games[r.GameID]; !ok {
			return protocol.Failure("game not found")
		}
		return &protocol.DownloadGameResponse{Status: protocol.OK(), DownloadURL: s.cfg.BaseURL + "/downloads/" + r.GameID}
	case *protocol.GetPlayerProfileRequest:
		return s.playerProfile(claims)
	case *protocol.GetAchievementsRequest:
		return &protocol.AchievementsResponse{Status: protocol.OK(), Achievements: s.state.userAchievements(claims.Subject, r.GameID)}
	case *protocol.GetLeaderboardRequest:
		return &protocol.LeaderboardResponse{Status: protocol.OK(), Leaderboard: s.state.leaderboard(r.GameID, r.Category)}
	case *protocol.CreateGameProjectRequest:
		return s.createProject(r)
	case *protocol.LoadGameProjectRequest:
		p, ok := s.state.project(r.ProjectID)
		if !ok {
			return protocol.Failure("project not found")
		}
		return &protocol.LoadGameProjectResponse{Status: protocol.OK(), Project: &p}
	case *protocol.SaveGameProjectRequest:
		return s.saveProject(r)
	case *protocol.ListGameProjectsRequest:
		return &protocol.ListGameProjectsResponse{Status: protocol.OK(), Projects: s.state.listProjects()}
	case *protocol.SyncAssetsRequest:
		p, ok := s.state.project(r.ProjectID)
		if !ok {
			return protocol.Failure("project not found")
		}
		return &protocol.SyncAssetsResponse{Status: protocol.OK(), Assets: slices.Clone(p.Assets)}
	case *protocol.AddAssetRequest:
		return s.addAsset(r)
	default:
		return protocol.Failure(fmt.Sprintf("unsupported action %q", req.Action()))
	}
}

func (s *Server) authenticate(r *protocol.AuthenticateRequest) protocol.Response {
	u, ok := s.users[r.Username]
	want := session.HashPassword(u.Password)
	if !ok || subtle.ConstantTimeCompare([]byte(want), []byte(r.PasswordHash)) != 1 {
		log.Info().Str("user", r.Username).Msg("authentication failed")
		return protocol.Failure("invalid credentials")
	}

	access, err := s.tokens.issue(kindAccess, u.Username, u.Roles, s.accessTTL())
	if err != nil {
		return protocol.Failure("failed to issue token")
	}
	refresh, err := s.tokens.issue(kindRefresh, u.Username, nil, s.cfg.RefreshTTL)
	if err != nil {
		return protocol.Failure("failed to issue token")
	}

	log.Info().Str("user", u.Username).Strs("roles", u.Roles).Msg("user authenticated")

	expiresIn := float64(s.cfg.ExpiresIn)
	return &protocol.AuthenticateResponse{
		Status:       protocol.OK(),
		AccessToken:  access,
		RefreshToken: refresh,
		UserProfile:  s.profile(u),
		Roles:        slices.Clone(u.Roles),
		ExpiresIn:    &expiresIn,
	}
}

func (s *Server) refresh(r *protocol.RefreshTokenRequest) protocol.Response {
	claims, err := s.tokens.verify(r.RefreshToken, kindRefresh)
	if err != nil {
		return protocol.Failure("invalid refresh token")
	}

	u, ok := s.users[claims.Subject]
	if !ok {
		return protocol.Failure("invalid refresh token")
	}

	access, err := s.tokens.issue(kindAccess, u.Username, u.Roles, s.accessTTL())
	if err != nil {
		return protocol.Failure("failed to issue token")
	}

	expiresIn := float64(s.cfg.ExpiresIn)
	return &protocol.RefreshTokenResponse{Status: protocol.OK(), AccessToken: access, ExpiresIn: &expiresIn}
}

func (s *Server) logout(r *protocol.LogoutRequest) protocol.Response {
	claims, err := s.tokens.verify(r.AccessToken, kindAccess)
	if err != nil {
		return protocol.Failure("invalid access token")
	}
	s.tokens.revoke(claims)

	log.Info().Str("user", claims.Subject).Msg("user logged out")

	return &protocol.Ack{Status: protocol.OK()}
}

func (s *Server) accessTTL() time.Duration {
	return time.Duration(s.cfg.ExpiresIn) * time.Minute
}

func (s *Server) profile(u User) map[string]any {
	p := map[string]any{"username": u.Username}
	maps.Copy(p, u.Profile)
	return p
}

func (s *Server) fetchContent(r *protocol.FetchContentRequest) protocol.Response {
	a, ok := s.state.asset(r.AssetID)
	if !ok {
		return protocol.Failure("asset not found")
	}
	return &protocol.FetchContentResponse{Status: protocol.OK(), Asset: &a}
}

func (s *Server) createContent(r *protocol.CreateContentRequest) protocol.Response {
	now := s.cfg.Now().UTC()
	a := protocol.AssetRecord{
		AssetID:      uuid.NewString(),
		AssetType:    r.AssetType,
		Title:        r.Title,
		Content:      r.Content,
		Metadata:     map[string]any{},
		CreatedDate:  now,
		ModifiedDate: now,
	}
	s.state.putAsset(a)

	return &protocol.AssetIDResponse{Status: protocol.OK(), AssetID: a.AssetID}
}

func (s *Server) updateContent(r *protocol.UpdateContentRequest) protocol.Response {
	existing, ok := s.state.asset(r.Asset.AssetID)
	if !ok {
		return protocol.Failure("asset not found")
	}

	a := r.Asset
	a.CreatedDate = existing.CreatedDate
	a.ModifiedDate = s.cfg.Now().UTC()
	if a.Metadata == nil {
		a.Metadata = map[string]any{}
	}
	s.state.putAsset(a)

	return &protocol.Ack{Status: protocol.OK()}
}

func (s *Server) uploadBinary(r *protocol.UploadBinaryAssetRequest) protocol.Response {
	data, err := assets.Decode(r.FileData, r.Compressed, r.Compression, r.Checksum)
	if err != nil {
		return protocol.Failure(err.Error())
	}

	now := s.cfg.Now().UTC()
	a := protocol.AssetRecord{
		AssetID:   uuid.NewString(),
		AssetType: r.AssetType,
		Title:     r.Filename,
		Metadata: map[string]any{
			"filename": r.Filename,
			"size":     len(data),
			"format":   r.FormatName(),
		},
		CreatedDate:  now,
		ModifiedDate: now,
	}
	s.state.putAsset(a)
	s.state.putBinary(a.AssetID, data)

	log.Info().Str("asset_id", a.AssetID).Int("bytes", len(data)).Msg("binary asset stored")

	return &protocol.AssetIDResponse{Status: protocol.OK(), AssetID: a.AssetID}
}

func (s *Server) analyze(r *protocol.AnalyzeAssetRequest) protocol.Response {
	a, ok := s.state.asset(r.AssetID)
	if !ok {
		return protocol.Failure("asset not found")
	}

	size, binary := s.state.binarySize(a.AssetID)
	if !binary {
		size = len(a.Content)
	}

	return &protocol.AnalyzeAssetResponse{
		Status: protocol.OK(),
		Analysis: protocol.Record{
			"asset_id":   a.AssetID,
			"asset_type": a.AssetType,
			"binary":     binary,
			"size":       size,
			"words":      len(strings.Fields(a.Content)),
		},
	}
}

func (s *Server) listGames() protocol.Response {
	games := []protocol.Record{}
	for _, id := range slices.Sorted(maps.Keys(s.games)) {
		games = append(games, protocol.Record{"game_id": id, "title": s.games[id].Title})
	}
	return &protocol.ListGamesResponse{Status: protocol.OK(), Games: games}
}

func (s *Server) launch(r *protocol.LaunchGameRequest, username string) protocol.Response {
	if _, ok := s.games[r.GameID]; !ok {
		return protocol.Failure("game not found")
	}
	if r.Mode != "stream" && r.Mode != "download" {
		return protocol.Failure(fmt.Sprintf("unsupported mode %q", r.Mode))
	}

	sessionID := uuid.NewString()
	s.state.startSession(sessionID, username)

	if len(s.state.userAchievements(username, r.GameID)) == 0 {
		s.state.addAchievement(username, protocol.Record{
			"game_id":     r.GameID,
			"name":        "first_launch",
			"unlocked_at": s.cfg.Now().UTC().Format(time.RFC3339),
		})
	}

	resp := &protocol.LaunchGameResponse{Status: protocol.OK(), SessionID: sessionID}
	if r.Mode == "stream" {
		resp.StreamURL = s.cfg.BaseURL + "/stream/" + sessionID
	}

	log.Info().Str("game_id", r.GameID).Str("session_id", sessionID).Str("user", username).Msg("game launched")

	return resp
}

func (s *Server) playerProfile(claims *Claims) protocol.Response {
	u, ok := s.users[claims.Subject]
	if !ok {
		return protocol.Failure("player not found")
	}

	p := protocol.Record(s.profile(u))
	p["roles"] = slices.Clone(u.Roles)
	return &protocol.PlayerProfileResponse{Status: protocol.OK(), Profile: p}
}

func (s *Server) createProject(r *protocol.CreateGameProjectRequest) protocol.Response {
	now := s.cfg.Now().UTC()
	p := protocol.ProjectRecord{
		ProjectID:    uuid.NewString(),
		Name:         r.Name,
		Description:  r.Description,
		CreatedDate:  now,
		ModifiedDate: now,
		Assets:       []protocol.Record{},
		Scenes:       []protocol.Record{},
		Scripts:      []protocol.Record{},
	}
	s.state.putProject(p)

	return &protocol.CreateGameProjectResponse{Status: protocol.OK(), ProjectID: p.ProjectID}
}

func (s *Server) saveProject(r *protocol.SaveGameProjectRequest) protocol.Response {
	existing, ok := s.state.project(r.Project.ProjectID)
	if !ok {
		return protocol.Failure("project not found")
	}

	p := r.Project
	p.CreatedDate = existing.CreatedDate
	p.ModifiedDate = s.cfg.Now().UTC()
	s.state.putProject(p)

	return &protocol.Ack{Status: protocol.OK()}
}

func (s *Server) addAsset(r *protocol.AddAssetRequest) protocol.Response {
	if _, ok := s.state.project(r.ProjectID); !ok {
		return protocol.Failure("project not found")
	}

	data, err := assets.Decode(r.AssetData, false, "", "")
	if err != nil {
		return protocol.Failure(err.Error())
	}

	now := s.cfg.Now().UTC()
	a := protocol.AssetRecord{
		AssetID:      uuid.NewString(),
		AssetType:    r.AssetType,
		Title:        r.AssetName,
		Metadata:     map[string]any{"project_id": r.ProjectID, "size": len(data)},
		CreatedDate:  now,
		ModifiedDate: now,
	}
	s.state.putAsset(a)
	s.state.putBinary(a.AssetID, data)

	url := s.cfg.BaseURL + "/assets/" + a.AssetID
	s.state.appendProjectAsset(r.ProjectID, protocol.Record{
		"name":     r.AssetName,
		"type":     r.AssetType,
		"asset_id": a.AssetID,
		"url":      url,
	})

	return &protocol.AddAssetResponse{Status: protocol.OK(), AssetID: a.AssetID, AssetURL: url}
}
