package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/wolfeidau/raclient/internal/client"
	"github.com/wolfeidau/raclient/internal/protocol"
)

// LoginCmd authenticates and stores the session for the server.
type LoginCmd struct {
	Username string `help:"Account username" required:""`
	Password string `help:"Account password" env:"RACLIENT_PASSWORD"`
}

func (l *LoginCmd) Run(ctx context.Context, globals *Globals) error {
	if l.Password == "" {
		return errors.New("password is required (use --password or RACLIENT_PASSWORD)")
	}

	return globals.withClient(ctx, func(c *client.Client) error {
		if err := c.Session.Authenticate(ctx, l.Username, l.Password); err != nil {
			var serverErr *protocol.ServerError
			if errors.As(err, &serverErr) {
				return fmt.Errorf("login failed: %s", serverErr.Message)
			}
			return fmt.Errorf("login failed: %w", err)
		}

		fmt.Printf("Logged in as %s (roles: %s)\n", l.Username, strings.Join(c.Session.Roles(), ", "))
		fmt.Printf("Session expires: %s\n", formatTime(c.Session.Expiry()))
		return nil
	})
}

// LogoutCmd ends the stored session.
type LogoutCmd struct{}

func (l *LogoutCmd) Run(ctx context.Context, globals *Globals) error {
	return globals.withClient(ctx, func(c *client.Client) error {
		c.Session.Logout(ctx)
		fmt.Println("Logged out.")
		return nil
	})
}

// WhoamiCmd shows the stored session.
type WhoamiCmd struct{}

func (w *WhoamiCmd) Run(ctx context.Context, globals *Globals) error {
	return globals.withClient(ctx, func(c *client.Client) error {
		if err := requireLogin(ctx, c); err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "Roles:\t%s\n", strings.Join(c.Session.Roles(), ", "))
		fmt.Fprintf(tw, "Developer:\t%t\n", c.Session.IsDeveloper())
		fmt.Fprintf(tw, "Player:\t%t\n", c.Session.IsPlayer())
		fmt.Fprintf(tw, "Expires:\t%s\n", formatTime(c.Session.Expiry()))
		writeProfile(tw, c.Session.Profile())
		return tw.Flush()
	})
}

// writeProfile prints profile fields sorted by key.
func writeProfile(w io.Writer, profile map[string]any) {
	for _, k := range slices.Sorted(maps.Keys(profile)) {
		fmt.Fprintf(w, "%s:\t%v\n", k, profile[k])
	}
}
