package client

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/raclient/internal/assets"
	"github.com/wolfeidau/raclient/internal/content"
	"github.com/wolfeidau/raclient/internal/dispatch"
	"github.com/wolfeidau/raclient/internal/launcher"
	"github.com/wolfeidau/raclient/internal/logger"
	"github.com/wolfeidau/raclient/internal/project"
	"github.com/wolfeidau/raclient/internal/session"
	"github.com/wolfeidau/raclient/internal/transport"
)

// Config holds common client configuration
type Config struct {
	ServerURL    string
	Timeout      time.Duration
	DialAttempts uint
	Compression  assets.Compression
	Format       string
	// CacheDir holds cached downloads; empty keeps the cache in memory
	CacheDir  string
	Persister session.Persister
	Logger    zerolog.Logger
}

// DefaultConfig returns a default client configuration
func DefaultConfig() Config {
	return Config{
		ServerURL:    "ws://localhost:7077/ws",
		Timeout:      60 * time.Second,
		DialAttempts: 3,
		Compression:  assets.CompressionGzip,
		Logger:       log.Logger,
	}
}

// Client is one connection to a RaCore server with its session and domain
// managers. All managers share the session and the serialized channel.
type Client struct {
	Session  *session.Manager
	Content  *content.Manager
	Projects *project.Manager
	Launcher *launcher.Launcher

	closer func() error
}

// Dial connects to config.ServerURL over a websocket and builds a Client on it.
func Dial(ctx context.Context, config Config) (*Client, error) {
	ws, err := transport.Dial(ctx, transport.WebSocketConfig{
		URL:          config.ServerURL,
		ResponseWait: config.Timeout,
		DialAttempts: config.DialAttempts,
	})
	if err != nil {
		return nil, err
	}

	c := New(ws, config)
	c.closer = ws.Close

	return c, nil
}

// New builds a Client over ch. Sends on ch are serialized.
func New(ch transport.Channel, config Config) *Client {
	ch = transport.Serialize(logger.NewChannelCalls(config.Logger, ch))

	var opts []session.Option
	if config.Persister != nil {
		opts = append(opts, session.WithPersister(config.Persister))
	}

	sess := session.New(ch, opts...)
	d := dispatch.New(ch, sess)

	pipeline := assets.New(assets.Config{
		Compression: config.Compression,
		Format:      config.Format,
	})

	return &Client{
		Session:  sess,
		Content:  content.New(d, pipeline),
		Projects: project.New(d),
		Launcher: launcher.New(d, NewDownloadClient(sess.TokenSource(context.Background()), config.CacheDir, config.Timeout)),
	}
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	if err := c.closer(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}
