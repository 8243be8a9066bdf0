package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wolfeidau/raclient/internal/client"
	"github.com/wolfeidau/raclient/internal/content"
)

// ContentCmd manages content assets.
type ContentCmd struct {
	Fetch   ContentFetchCmd   `cmd:"" help:"Fetch a content asset"`
	List    ContentListCmd    `cmd:"" help:"List content assets"`
	Create  ContentCreateCmd  `cmd:"" help:"Create a content asset"`
	Update  ContentUpdateCmd  `cmd:"" help:"Update a content asset"`
	Delete  ContentDeleteCmd  `cmd:"" help:"Delete a content asset"`
	Upload  ContentUploadCmd  `cmd:"" help:"Upload a binary asset"`
	Analyze ContentAnalyzeCmd `cmd:"" help:"Analyze a content asset"`
}

type ContentFetchCmd struct {
	AssetID string `arg:"" help:"Asset ID"`
}

func (f *ContentFetchCmd) Run(ctx context.Context, globals *Globals) error {
	return globals.withClient(ctx, func(c *client.Client) error {
		asset, err := c.Content.Fetch(ctx, f.AssetID)
		if err != nil {
			return fmt.Errorf("failed to fetch content: %w", err)
		}
		return printJSON(asset)
	})
}

type ContentListCmd struct {
	Type string `help:"Filter by content type (blog, post, image, ...)"`
}

func (l *ContentListCmd) Run(ctx context.Context, globals *Globals) error {
	return globals.withClient(ctx, func(c *client.Client) error {
		list, err := c.Content.List(ctx, l.Type)
		if err != nil {
			return fmt.Errorf("failed to list content: %w", err)
		}
		if len(list) == 0 {
			fmt.Println("No content found.")
			return nil
		}
		return printJSON(list)
	})
}

type ContentCreateCmd struct {
	Type     string `help:"Content type" required:""`
	Title    string `help:"Content title" required:""`
	Body     string `help:"Content body"`
	BodyFile string `help:"Read the content body from a file" type:"existingfile"`
}

func (cr *ContentCreateCmd) Run(ctx context.Context, globals *Globals) error {
	body, err := readBody(cr.Body, cr.BodyFile)
	if err != nil {
		return err
	}

	return globals.withClient(ctx, func(c *client.Client) error {
		asset, err := c.Content.Create(ctx, cr.Type, cr.Title, body)
		if err != nil {
			return fmt.Errorf("failed to create content: %w", err)
		}
		fmt.Printf("Content created with ID: %s\n", asset.ID)
		return nil
	})
}

type ContentUpdateCmd struct {
	AssetID  string `arg:"" help:"Asset ID"`
	Title    string `help:"New title"`
	Body     string `help:"New content body"`
	BodyFile string `help:"Read the new content body from a file" type:"existingfile"`
}

func (u *ContentUpdateCmd) Run(ctx context.Context, globals *Globals) error {
	body, err := readBody(u.Body, u.BodyFile)
	if err != nil {
		return err
	}

	return globals.withClient(ctx, func(c *client.Client) error {
		asset, err := c.Content.Fetch(ctx, u.AssetID)
		if err != nil {
			return fmt.Errorf("failed to fetch content: %w", err)
		}

		if u.Title != "" {
			asset.Title = u.Title
		}
		if body != "" {
			asset.Content = body
		}

		if err := c.Content.Update(ctx, asset); err != nil {
			return fmt.Errorf("failed to update content: %w", err)
		}
		fmt.Printf("Content %s updated.\n", asset.ID)
		return nil
	})
}

type ContentDeleteCmd struct {
	AssetID string `arg:"" help:"Asset ID"`
}

func (d *ContentDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	return globals.withClient(ctx, func(c *client.Client) error {
		if err := c.Content.Delete(ctx, d.AssetID); err != nil {
			return fmt.Errorf("failed to delete content: %w", err)
		}
		fmt.Printf("Content %s deleted.\n", d.AssetID)
		return nil
	})
}

type ContentUploadCmd struct {
	File     string `arg:"" help:"File to upload" type:"existingfile"`
	Type     string `help:"Asset type (image, audio, video, model, ...)" required:""`
	Compress bool   `help:"Compress before upload" default:"true" negatable:""`
	Format   string `help:"Target format recorded with the asset"`
}

func (u *ContentUploadCmd) Run(ctx context.Context, globals *Globals) error {
	data, err := os.ReadFile(u.File)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	return globals.withClient(ctx, func(c *client.Client) error {
		id, err := c.Content.UploadBinary(ctx, content.Upload{
			AssetType: u.Type,
			Filename:  filepath.Base(u.File),
			Data:      data,
			Compress:  u.Compress,
			Format:    u.Format,
		})
		if err != nil {
			return fmt.Errorf("failed to upload asset: %w", err)
		}
		fmt.Printf("Asset uploaded with ID: %s\n", id)
		return nil
	})
}

type ContentAnalyzeCmd struct {
	AssetID string `arg:"" help:"Asset ID"`
}

func (a *ContentAnalyzeCmd) Run(ctx context.Context, globals *Globals) error {
	return globals.withClient(ctx, func(c *client.Client) error {
		analysis, err := c.Content.Analyze(ctx, a.AssetID)
		if err != nil {
			return fmt.Errorf("failed to analyze asset: %w", err)
		}
		return printJSON(analysis)
	})
}

func readBody(body, file string) (string, error) {
	if file == "" {
		return body, nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("failed to read body file: %w", err)
	}
	return string(data), nil
}
