package session

import (
	"errors"
	"maps"
	"slices"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// ErrNoState is returned by a Persister with nothing stored.
var ErrNoState = errors.New("no persisted session")

// State is the persisted form of a session.
type State struct {
	Token   *oauth2.Token  `json:"token"`
	Profile map[string]any `json:"profile,omitempty"`
	Roles   []string       `json:"roles,omitempty"`
}

// Persister keeps a session across process runs.
type Persister interface {
	Load() (*State, error)
	Save(state *State) error
	Clear() error
}

func (m *Manager) restore() {
	state, err := m.persister.Load()
	if err != nil {
		if !errors.Is(err, ErrNoState) {
			log.Warn().Err(err).Msg("failed to load persisted session")
		}
		return
	}

	if state.Token == nil || state.Token.AccessToken == "" || state.Token.Expiry.IsZero() {
		log.Warn().Msg("ignoring incomplete persisted session")
		return
	}

	token := *state.Token

	m.mu.Lock()
	m.token = &token
	m.profile = maps.Clone(state.Profile)
	m.roles = slices.Clone(state.Roles)
	m.mu.Unlock()

	log.Debug().Time("expiry", token.Expiry).Strs("roles", state.Roles).Msg("session restored")
}

func (m *Manager) save(state *State) {
	if m.persister == nil {
		return
	}

	if err := m.persister.Save(state); err != nil {
		log.Warn().Err(err).Msg("failed to persist session")
	}
}
