package commands

import (
	"context"
	"fmt"

	"github.com/wolfeidau/raclient/internal/client"
)

// GamesCmd launches games and reads player statistics.
type GamesCmd struct {
	List         GamesListCmd         `cmd:"" help:"List available games"`
	Launch       GamesLaunchCmd       `cmd:"" help:"Launch a game"`
	Stop         GamesStopCmd         `cmd:"" help:"Stop a running game session"`
	Download     GamesDownloadCmd     `cmd:"" help:"Download a game for offline play"`
	Profile      GamesProfileCmd      `cmd:"" help:"Show the player profile"`
	Achievements GamesAchievementsCmd `cmd:"" help:"List achievements"`
	Leaderboard  GamesLeaderboardCmd  `cmd:"" help:"Show a game leaderboard"`
}

type GamesListCmd struct{}

func (l *GamesListCmd) Run(ctx context.Context, globals *Globals) error {
	return globals.withClient(ctx, func(c *client.Client) error {
		games, err := c.Launcher.ListGames(ctx)
		if err != nil {
			return fmt.Errorf("failed to list games: %w", err)
		}
		if len(games) == 0 {
			fmt.Println("No games available.")
			return nil
		}
		return printJSON(games)
	})
}

type GamesLaunchCmd struct {
	GameID string `arg:"" help:"Game ID"`
	Mode   string `help:"Launch mode" enum:"stream,download" default:"stream"`
}

func (l *GamesLaunchCmd) Run(ctx context.Context, globals *Globals) error {
	return globals.withClient(ctx, func(c *client.Client) error {
		session, err := c.Launcher.Launch(ctx, l.GameID, l.Mode)
		if err != nil {
			return fmt.Errorf("failed to launch game: %w", err)
		}
		return printJSON(session)
	})
}

type GamesStopCmd struct {
	SessionID string `arg:"" help:"Game session ID returned by launch"`
	GameID    string `help:"Game ID"`
}

func (s *GamesStopCmd) Run(ctx context.Context, globals *Globals) error {
	return globals.withClient(ctx, func(c *client.Client) error {
		c.Launcher.Attach(s.GameID, s.SessionID)
		if err := c.Launcher.Stop(ctx); err != nil {
			return fmt.Errorf("failed to stop game: %w", err)
		}
		fmt.Printf("Game session %s stopped.\n", s.SessionID)
		return nil
	})
}

type GamesDownloadCmd struct {
	GameID string `arg:"" help:"Game ID"`
	Output string `help:"Write the game to this path instead of printing the URL" short:"o" type:"path"`
}

func (d *GamesDownloadCmd) Run(ctx context.Context, globals *Globals) error {
	return globals.withClient(ctx, func(c *client.Client) error {
		if d.Output == "" {
			url, err := c.Launcher.Download(ctx, d.GameID)
			if err != nil {
				return fmt.Errorf("failed to get download URL: %w", err)
			}
			fmt.Println(url)
			return nil
		}

		n, err := c.Launcher.DownloadTo(ctx, d.GameID, d.Output)
		if err != nil {
			return fmt.Errorf("failed to download game: %w", err)
		}
		fmt.Printf("Downloaded %d bytes to %s\n", n, d.Output)
		return nil
	})
}

type GamesProfileCmd struct{}

func (p *GamesProfileCmd) Run(ctx context.Context, globals *Globals) error {
	return globals.withClient(ctx, func(c *client.Client) error {
		profile, err := c.Launcher.PlayerProfile(ctx)
		if err != nil {
			return fmt.Errorf("failed to get player profile: %w", err)
		}
		return printJSON(profile)
	})
}

type GamesAchievementsCmd struct {
	Game string `help:"Only achievements of this game"`
}

func (a *GamesAchievementsCmd) Run(ctx context.Context, globals *Globals) error {
	return globals.withClient(ctx, func(c *client.Client) error {
		achievements, err := c.Launcher.Achievements(ctx, a.Game)
		if err != nil {
			return fmt.Errorf("failed to get achievements: %w", err)
		}
		return printJSON(achievements)
	})
}

type GamesLeaderboardCmd struct {
	GameID   string `arg:"" help:"Game ID"`
	Category string `help:"Leaderboard category" default:"global"`
}

func (l *GamesLeaderboardCmd) Run(ctx context.Context, globals *Globals) error {
	return globals.withClient(ctx, func(c *client.Client) error {
		board, err := c.Launcher.Leaderboard(ctx, l.GameID, l.Category)
		if err != nil {
			return fmt.Errorf("failed to get leaderboard: %w", err)
		}
		return printJSON(board)
	})
}
