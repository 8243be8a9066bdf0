package credentials

import (
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/raclient/internal/session"
	"golang.org/x/oauth2"
)

const server = "ws://localhost:7077/ws"

func sampleState() *session.State {
	return &session.State{
		Token: &oauth2.Token{
			AccessToken:  "T1",
			TokenType:    "Bearer",
			RefreshToken: "R1",
			Expiry:       time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC),
		},
		Profile: map[string]any{"username": "u"},
		Roles:   []string{"player"},
	}
}

func TestNewStore(t *testing.T) {
	t.Run("creates directory with correct permissions", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "sessions")

		store, err := NewStore(dir, server)
		require.NoError(t, err)
		assert.NotNil(t, store)

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
	})

	t.Run("names the file by server fingerprint", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewStore(dir, server)
		require.NoError(t, err)

		hash := sha256.Sum256([]byte(server))
		assert.Equal(t, filepath.Join(dir, base58.Encode(hash[:])+".json"), store.Path())
		assert.NotEqual(t, Fingerprint(server), Fingerprint("ws://other:7077/ws"))
	})
}

func TestStore_SaveLoadClear(t *testing.T) {
	store, err := NewStore(t.TempDir(), server)
	require.NoError(t, err)

	_, err = store.Load()
	require.ErrorIs(t, err, session.ErrNoState)

	require.NoError(t, store.Save(sampleState()))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	_, err = os.Stat(store.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "T1", loaded.Token.AccessToken)
	assert.Equal(t, "R1", loaded.Token.RefreshToken)
	assert.True(t, sampleState().Token.Expiry.Equal(loaded.Token.Expiry))
	assert.Equal(t, []string{"player"}, loaded.Roles)
	assert.Equal(t, "u", loaded.Profile["username"])

	require.NoError(t, store.Clear())
	_, err = store.Load()
	require.ErrorIs(t, err, session.ErrNoState)

	require.NoError(t, store.Clear())
}

func TestStore_ServerMismatch(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir, server)
	require.NoError(t, err)
	require.NoError(t, store.Save(sampleState()))

	// same file name, different recorded server
	other := &Store{baseDir: dir, server: "ws://evil/ws", path: store.Path()}
	_, err = other.Load()
	require.ErrorIs(t, err, ErrServerMismatch)
}

func TestStore_Corrupt(t *testing.T) {
	store, err := NewStore(t.TempDir(), server)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(store.Path(), []byte("{"), 0600))

	_, err = store.Load()
	require.Error(t, err)
	assert.NotErrorIs(t, err, session.ErrNoState)
}

func TestStore_RestoresSession(t *testing.T) {
	store, err := NewStore(t.TempDir(), server)
	require.NoError(t, err)

	state := sampleState()
	state.Token.Expiry = time.Now().Add(time.Hour)
	require.NoError(t, store.Save(state))

	m := session.New(nil, session.WithPersister(store))
	assert.Equal(t, "T1", m.AccessToken())
	assert.True(t, m.IsPlayer())
}
