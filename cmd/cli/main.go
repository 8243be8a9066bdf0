package main

import (
	"context"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/raclient/cmd/cli/internal/commands"
	"github.com/wolfeidau/raclient/internal/logger"
	"github.com/wolfeidau/raclient/internal/telemetry"
)

var (
	version = "dev"
	cli     struct {
		Login    commands.LoginCmd    `cmd:"" help:"Log in to the server"`
		Logout   commands.LogoutCmd   `cmd:"" help:"Log out and forget the stored session"`
		Whoami   commands.WhoamiCmd   `cmd:"" help:"Show the stored session"`
		Content  commands.ContentCmd  `cmd:"" help:"Manage content assets"`
		Games    commands.GamesCmd    `cmd:"" help:"Launch games and read player statistics"`
		Projects commands.ProjectsCmd `cmd:"" help:"Manage game projects"`

		Server     string `help:"Server websocket URL" env:"RACLIENT_SERVER"`
		Config     string `help:"YAML config file path" env:"RACLIENT_CONFIG" type:"path"`
		SessionDir string `help:"Directory holding stored sessions" env:"RACLIENT_SESSION_DIR" type:"path"`
		CacheDir   string `help:"Directory caching game downloads" env:"RACLIENT_CACHE_DIR" type:"path"`
		Debug      bool   `help:"Enable debug mode."`
		Version    kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("raclient"),
		kong.Description("RaCore client"),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	log.Logger = logger.Setup(cli.Debug)

	shutdown := func(context.Context) error { return nil }
	if telemetry.Enabled() {
		var err error
		shutdown, err = telemetry.InitTelemetry(ctx, telemetry.Config{ServiceName: "raclient", Version: version})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(context.Context) error { return nil }
		}
	}

	err := cmd.Run(&commands.Globals{
		Debug:      cli.Debug,
		Version:    version,
		Server:     cli.Server,
		Config:     cli.Config,
		SessionDir: cli.SessionDir,
		CacheDir:   cli.CacheDir,
	})

	// flush before FatalIfErrorf exits
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if serr := shutdown(shutdownCtx); serr != nil {
		log.Error().Err(serr).Msg("Failed to shutdown telemetry")
	}
	cancel()

	cmd.FatalIfErrorf(err)
}
