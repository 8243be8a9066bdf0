// Package credentials keeps raclient sessions on the local filesystem, one
// file per server, so a login survives between CLI invocations.
package credentials

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mr-tron/base58"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/raclient/internal/session"
)

// ErrServerMismatch is returned when a session file belongs to another server.
var ErrServerMismatch = errors.New("session file belongs to another server")

const fileVersion = 1

var _ session.Persister = (*Store)(nil)

// File represents the session file.
type File struct {
	Version int            `json:"version"`
	Server  string         `json:"server"`
	SavedAt time.Time      `json:"saved_at"`
	Session *session.State `json:"session"`
}

// Store manages the session file of one server.
type Store struct {
	baseDir string
	server  string
	path    string
}

// NewStore creates a new session store for server.
// If baseDir is empty, uses ~/.raclient/sessions/
func NewStore(baseDir, server string) (*Store, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".raclient", "sessions")
	}

	// Create directory with 0700 permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	s := &Store{
		baseDir: baseDir,
		server:  server,
		path:    filepath.Join(baseDir, Fingerprint(server)+".json"),
	}

	log.Debug().Str("baseDir", baseDir).Str("path", s.path).Msg("session store initialized")

	return s, nil
}

// Fingerprint names the session file of server: Base58 SHA256 of the URL.
func Fingerprint(server string) string {
	hash := sha256.Sum256([]byte(server))
	return base58.Encode(hash[:])
}

// Path returns the session file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the stored session, session.ErrNoState when there is none.
func (s *Store) Load() (*session.State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, session.ErrNoState
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}

	if f.Server != s.server {
		return nil, fmt.Errorf("%w: %s", ErrServerMismatch, f.Server)
	}

	if f.Session == nil {
		return nil, session.ErrNoState
	}

	return f.Session, nil
}

// Save writes the session file atomically.
func (s *Store) Save(state *session.State) error {
	f := File{
		Version: fileVersion,
		Server:  s.server,
		SavedAt: time.Now().UTC(),
		Session: state,
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// Write to temp file first
	tempPath := s.path + ".tmp"

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save session: %w", err)
	}

	log.Debug().Str("path", s.path).Msg("session saved")

	return nil
}

// Clear removes the session file. A missing file is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}
