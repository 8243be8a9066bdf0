package devserver

import (
	"maps"
	"slices"
	"sync"

	"github.com/wolfeidau/raclient/internal/protocol"
)

// User is an account the server accepts.
type User struct {
	Username string
	Password string
	Roles    []string
	Profile  map[string]any
}

// Game is a game the server offers. Leaderboard seeds its global category.
type Game struct {
	ID          string
	Title       string
	Payload     []byte
	Leaderboard []protocol.Record
}

// state is everything the server remembers. It is lost on restart.
type state struct {
	mu           sync.Mutex
	assets       map[string]protocol.AssetRecord
	binaries     map[string][]byte
	projects     map[string]protocol.ProjectRecord
	sessions     map[string]string
	achievements map[string][]protocol.Record
	scores       map[string][]protocol.Record
}

func newState() *state {
	return &state{
		assets:       make(map[string]protocol.AssetRecord),
		binaries:     make(map[string][]byte),
		projects:     make(map[string]protocol.ProjectRecord),
		sessions:     make(map[string]string),
		achievements: make(map[string][]protocol.Record),
		scores:       make(map[string][]protocol.Record),
	}
}

func (s *state) putAsset(a protocol.AssetRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[a.AssetID] = a
}

func (s *state) asset(id string) (protocol.AssetRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assets[id]
	return a, ok
}

func (s *state) deleteAsset(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assets[id]; !ok {
		return false
	}
	delete(s.assets, id)
	delete(s.binaries, id)
	return true
}

func (s *state) putBinary(id string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.binaries[id] = data
}

func (s *state) binarySize(id string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.binaries[id]
	return len(b), ok
}

// listAssets returns summaries sorted by ID, of one type when assetType is set.
func (s *state) listAssets(assetType string) []protocol.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := []protocol.Record{}
	for _, id := range slices.Sorted(maps.Keys(s.assets)) {
		a := s.assets[id]
		if assetType != "" && a.AssetType != assetType {
			continue
		}
		list = append(list, protocol.Record{
			"asset_id":   a.AssetID,
			"asset_type": a.AssetType,
			"title":      a.Title,
		})
	}
	return list
}

func (s *state) putProject(p protocol.ProjectRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[p.ProjectID] = p
}

func (s *state) project(id string) (protocol.ProjectRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	return p, ok
}

// appendProjectAsset adds ref to a project's assets.
func (s *state) appendProjectAsset(projectID string, ref protocol.Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[projectID]
	if !ok {
		return false
	}
	p.Assets = append(slices.Clone(p.Assets), ref)
	s.projects[projectID] = p
	return true
}

func (s *state) listProjects() []protocol.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := []protocol.Record{}
	for _, id := range slices.Sorted(maps.Keys(s.projects)) {
		p := s.projects[id]
		list = append(list, protocol.Record{
			"project_id":  p.ProjectID,
			"name":        p.Name,
			"description": p.Description,
		})
	}
	return list
}

func (s *state) startSession(sessionID, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = username
}

// endSession removes a game session owned by username.
func (s *state) endSession(sessionID, username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[sessionID] != username {
		return false
	}
	delete(s.sessions, sessionID)
	return true
}

func (s *state) userAchievements(username, gameID string) []protocol.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := []protocol.Record{}
	for _, a := range s.achievements[username] {
		if gameID != "" && a.String("game_id") != gameID {
			continue
		}
		list = append(list, a)
	}
	return list
}

func (s *state) addAchievement(username string, a protocol.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.achievements[username] = append(s.achievements[username], a)
}

func (s *state) leaderboard(gameID, category string) []protocol.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	board := slices.Clone(s.scores[gameID+"/"+category])
	if board == nil {
		board = []protocol.Record{}
	}
	return board
}

func (s *state) setLeaderboard(gameID, category string, board []protocol.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[gameID+"/"+category] = board
}
