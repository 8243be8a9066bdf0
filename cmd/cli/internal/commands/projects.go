package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wolfeidau/raclient/internal/client"
)

// ProjectsCmd manages game projects. The current project only lives for one
// command, so commands acting on it load --project first.
type ProjectsCmd struct {
	Create   ProjectsCreateCmd   `cmd:"" help:"Create a game project"`
	Load     ProjectsLoadCmd     `cmd:"" help:"Show a game project"`
	Save     ProjectsSaveCmd     `cmd:"" help:"Save a game project"`
	List     ProjectsListCmd     `cmd:"" help:"List game projects"`
	Sync     ProjectsSyncCmd     `cmd:"" help:"Sync the assets of a game project"`
	AddAsset ProjectsAddAssetCmd `cmd:"" name:"add-asset" help:"Add an asset to a game project"`
}

type ProjectsCreateCmd struct {
	Name        string `help:"Project name" required:""`
	Description string `help:"Project description"`
}

func (cr *ProjectsCreateCmd) Run(ctx context.Context, globals *Globals) error {
	return globals.withClient(ctx, func(c *client.Client) error {
		p, err := c.Projects.Create(ctx, cr.Name, cr.Description)
		if err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}
		fmt.Printf("Project created with ID: %s\n", p.ID)
		return nil
	})
}

type ProjectsLoadCmd struct {
	ProjectID string `arg:"" help:"Project ID"`
}

func (l *ProjectsLoadCmd) Run(ctx context.Context, globals *Globals) error {
	return globals.withClient(ctx, func(c *client.Client) error {
		p, err := c.Projects.Load(ctx, l.ProjectID)
		if err != nil {
			return fmt.Errorf("failed to load project: %w", err)
		}
		return printJSON(p)
	})
}

type ProjectsSaveCmd struct {
	Project     string `help:"Project ID" required:""`
	Name        string `help:"New project name"`
	Description string `help:"New project description"`
}

func (s *ProjectsSaveCmd) Run(ctx context.Context, globals *Globals) error {
	return globals.withClient(ctx, func(c *client.Client) error {
		if _, err := c.Projects.Load(ctx, s.Project); err != nil {
			return fmt.Errorf("failed to load project: %w", err)
		}

		if err := c.Projects.Rename(s.Name, s.Description); err != nil {
			return err
		}

		if err := c.Projects.Save(ctx); err != nil {
			return fmt.Errorf("failed to save project: %w", err)
		}
		fmt.Printf("Project %s saved.\n", s.Project)
		return nil
	})
}

type ProjectsListCmd struct{}

func (l *ProjectsListCmd) Run(ctx context.Context, globals *Globals) error {
	return globals.withClient(ctx, func(c *client.Client) error {
		projects, err := c.Projects.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list projects: %w", err)
		}
		if len(projects) == 0 {
			fmt.Println("No projects found.")
			return nil
		}
		return printJSON(projects)
	})
}

type ProjectsSyncCmd struct {
	Project string `help:"Project ID" required:""`
}

func (s *ProjectsSyncCmd) Run(ctx context.Context, globals *Globals) error {
	return globals.withClient(ctx, func(c *client.Client) error {
		if _, err := c.Projects.Load(ctx, s.Project); err != nil {
			return fmt.Errorf("failed to load project: %w", err)
		}

		synced, err := c.Projects.SyncAssets(ctx)
		if err != nil {
			return fmt.Errorf("failed to sync assets: %w", err)
		}
		return printJSON(synced)
	})
}

type ProjectsAddAssetCmd struct {
	Project string `help:"Project ID" required:""`
	File    string `arg:"" help:"Asset file" type:"existingfile"`
	Name    string `help:"Asset name, defaults to the file name"`
	Type    string `help:"Asset type (sprite, model, audio, script, ...)" required:""`
}

func (a *ProjectsAddAssetCmd) Run(ctx context.Context, globals *Globals) error {
	data, err := os.ReadFile(a.File)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	name := a.Name
	if name == "" {
		name = filepath.Base(a.File)
	}

	return globals.withClient(ctx, func(c *client.Client) error {
		if _, err := c.Projects.Load(ctx, a.Project); err != nil {
			return fmt.Errorf("failed to load project: %w", err)
		}

		ref, err := c.Projects.AddAsset(ctx, name, a.Type, data)
		if err != nil {
			return fmt.Errorf("failed to add asset: %w", err)
		}
		return printJSON(ref)
	})
}
