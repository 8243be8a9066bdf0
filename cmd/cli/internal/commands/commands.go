package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/raclient/cmd/cli/internal/credentials"
	"github.com/wolfeidau/raclient/internal/client"
	"github.com/wolfeidau/raclient/internal/config"
)

type Globals struct {
	Debug      bool
	Version    string
	Server     string
	Config     string
	SessionDir string
	CacheDir   string
}

// settings merges the config file with the global flags; flags win.
func (g *Globals) settings() (config.Config, error) {
	path, required := g.Config, true
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return config.Config{}, err
		}
		required = false
	}

	cfg, err := config.Load(path, required)
	if err != nil {
		return cfg, err
	}

	if g.Server != "" {
		cfg.Server = g.Server
	}
	if g.SessionDir != "" {
		cfg.SessionDir = g.SessionDir
	}
	if g.CacheDir != "" {
		cfg.CacheDir = g.CacheDir
	}

	return cfg, nil
}

// connect dials the server with the session stored for it.
func (g *Globals) connect(ctx context.Context) (*client.Client, error) {
	cfg, err := g.settings()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	store, err := credentials.NewStore(cfg.SessionDir, cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}

	clientCfg := client.DefaultConfig()
	clientCfg.ServerURL = cfg.Server
	clientCfg.Timeout = cfg.Timeout()
	clientCfg.DialAttempts = cfg.DialAttempts
	clientCfg.Compression = cfg.Compression
	clientCfg.Format = cfg.Format
	clientCfg.CacheDir = cfg.CacheDir
	clientCfg.Persister = store
	clientCfg.Logger = log.Logger

	dialCtx, cancel := context.WithTimeout(ctx, cfg.Timeout())
	defer cancel()

	c, err := client.Dial(dialCtx, clientCfg)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// withClient runs fn with a connected client and closes it afterwards.
func (g *Globals) withClient(ctx context.Context, fn func(c *client.Client) error) error {
	c, err := g.connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			log.Debug().Err(err).Msg("close failed")
		}
	}()

	return fn(c)
}

// requireLogin fails early with a hint when no live session is stored.
func requireLogin(ctx context.Context, c *client.Client) error {
	if !c.Session.IsAuthenticated(ctx) {
		return errors.New("not logged in, run: raclient login --username <name>")
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.RFC3339)
}
