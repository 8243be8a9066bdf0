package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/raclient/internal/devserver"
	"github.com/wolfeidau/raclient/internal/telemetry"
)

type ServeCmd struct {
	Listen  string `help:"HTTP server listen address" default:"localhost:7077" env:"RASERVER_LISTEN"`
	BaseURL string `help:"public HTTP address used in download URLs, defaults to http://<listen>" env:"RASERVER_BASE_URL"`
	Cert    string `help:"path to TLS cert file" default:"" env:"RASERVER_TLS_CERT"`
	Key     string `help:"path to TLS key file" default:"" env:"RASERVER_TLS_KEY"`

	Secret     string        `help:"secret key for HMAC signing of access tokens" env:"RASERVER_TOKEN_SECRET"`
	ExpiresIn  int           `help:"access token lifetime in minutes" default:"60" env:"RASERVER_EXPIRES_IN"`
	RefreshTTL time.Duration `help:"refresh token lifetime" default:"24h" env:"RASERVER_REFRESH_TTL"`
	Users      string        `help:"YAML file of user accounts, defaults to the seeded admin, dev and player" type:"existingfile" env:"RASERVER_USERS"`

	Tracing bool `help:"enable tracing" default:"false" env:"RASERVER_TRACING"`
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	if c.Tracing {
		log.Info().Msg("Tracing is enabled")
		shutdown, err := telemetry.InitTelemetry(ctx, telemetry.Config{ServiceName: "raclient-server", Version: globals.Version})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	users := devserver.SeedUsers()
	if c.Users != "" {
		var err error
		if users, err = devserver.LoadUsers(c.Users); err != nil {
			return err
		}
	}

	secret := c.Secret
	if secret == "" {
		log.Warn().Msg("No token secret configured, using the development secret")
		secret = "dev-mode-secret-key-minimum-32-characters-long"
	}

	tls := c.Cert != "" || c.Key != ""
	if tls {
		if _, err := os.Stat(c.Cert); err != nil {
			return fmt.Errorf("TLS certificate not found at %s: %w", c.Cert, err)
		}
		if _, err := os.Stat(c.Key); err != nil {
			return fmt.Errorf("TLS key not found at %s: %w", c.Key, err)
		}
	}

	baseURL := c.BaseURL
	if baseURL == "" {
		scheme := "http"
		if tls {
			scheme = "https"
		}
		baseURL = scheme + "://" + c.Listen
	}

	s, err := devserver.New(devserver.Config{
		Users:      users,
		Games:      devserver.SeedGames(),
		Secret:     []byte(secret),
		ExpiresIn:  c.ExpiresIn,
		RefreshTTL: c.RefreshTTL,
		BaseURL:    baseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	srv := configureHTTPServer(c.Listen, s.Handler())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() {
		log.Info().Str("addr", c.Listen).Str("base_url", baseURL).Int("users", len(users)).Msg("Listening")
		if tls {
			errs <- srv.ListenAndServeTLS(c.Cert, c.Key)
			return
		}
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
