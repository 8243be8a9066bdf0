package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/raclient/internal/assets"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, `
server: wss://racore.example.com/ws
timeout: 15
sessionDir: /tmp/sessions
compression: zstd
format: glb
`)

	cfg, err := Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, "wss://racore.example.com/ws", cfg.Server)
	assert.Equal(t, 15*time.Second, cfg.Timeout())
	assert.Equal(t, uint(DefaultDialAttempts), cfg.DialAttempts)
	assert.Equal(t, "/tmp/sessions", cfg.SessionDir)
	assert.Equal(t, assets.CompressionZstd, cfg.Compression)
	assert.Equal(t, "glb", cfg.Format)
}

func TestLoad_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")

	cfg, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(path, true)
	require.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(writeFile(t, "compression: rar\n"), true)
	require.Error(t, err)

	_, err = Load(writeFile(t, "server: [unclosed\n"), true)
	require.Error(t, err)
}

func TestLoad_EmptyFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, ""), true)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
