// Package project manages game projects. Creating and changing a project
// needs the developer role; loading one only needs an authenticated
// session.
package project

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/raclient/internal/assets"
	"github.com/wolfeidau/raclient/internal/dispatch"
	"github.com/wolfeidau/raclient/internal/protocol"
)

// ErrNoProject is returned by operations on the current project when none
// has been created or loaded.
var ErrNoProject = errors.New("no current project")

// Project is a game project and its asset, scene and script lists.
type Project struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	CreatedAt   time.Time         `json:"created_at,omitzero"`
	ModifiedAt  time.Time         `json:"modified_at,omitzero"`
	Assets      []protocol.Record `json:"assets"`
	Scenes      []protocol.Record `json:"scenes"`
	Scripts     []protocol.Record `json:"scripts"`
}

// AssetRef is the entry appended to a project's assets by AddAsset.
type AssetRef struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	AssetID string `json:"asset_id"`
	URL     string `json:"url"`
}

func (a AssetRef) record() protocol.Record {
	return protocol.Record{
		"name":     a.Name,
		"type":     a.Type,
		"asset_id": a.AssetID,
		"url":      a.URL,
	}
}

func projectFromRecord(r *protocol.ProjectRecord) *Project {
	return &Project{
		ID:          r.ProjectID,
		Name:        r.Name,
		Description: r.Description,
		CreatedAt:   r.CreatedDate,
		ModifiedAt:  r.ModifiedDate,
		Assets:      nonNil(r.Assets),
		Scenes:      nonNil(r.Scenes),
		Scripts:     nonNil(r.Scripts),
	}
}

func (p *Project) record() protocol.ProjectRecord {
	return protocol.ProjectRecord{
		ProjectID:    p.ID,
		Name:         p.Name,
		Description:  p.Description,
		CreatedDate:  p.CreatedAt,
		ModifiedDate: p.ModifiedAt,
		Assets:       nonNil(p.Assets),
		Scenes:       nonNil(p.Scenes),
		Scripts:      nonNil(p.Scripts),
	}
}

func (p *Project) clone() *Project {
	c := *p
	c.Assets = slices.Clone(p.Assets)
	c.Scenes = slices.Clone(p.Scenes)
	c.Scripts = slices.Clone(p.Scripts)
	return &c
}

func nonNil(records []protocol.Record) []protocol.Record {
	if records == nil {
		return []protocol.Record{}
	}
	return slices.Clone(records)
}

// Manager performs game project actions and holds the current project.
type Manager struct {
	d   *dispatch.Dispatcher
	now func() time.Time

	mu      sync.Mutex
	current *Project
}

func New(d *dispatch.Dispatcher) *Manager {
	return &Manager{
		d:   d,
		now: time.Now,
	}
}

// Current returns a copy of the current project, or nil.
func (m *Manager) Current() *Project {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return nil
	}
	return m.current.clone()
}

// Create creates a project and makes it current.
func (m *Manager) Create(ctx context.Context, name, description string) (*Project, error) {
	var resp protocol.CreateGameProjectResponse
	req := &protocol.CreateGameProjectRequest{Name: name, Description: description}
	if err := m.d.Call(ctx, dispatch.Developer, req, &resp); err != nil {
		return nil, err
	}

	now := m.now()
	p := &Project{
		ID:          resp.ProjectID,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		ModifiedAt:  now,
		Assets:      []protocol.Record{},
		Scenes:      []protocol.Record{},
		Scripts:     []protocol.Record{},
	}

	m.mu.Lock()
	m.current = p.clone()
	m.mu.Unlock()

	log.Info().Str("project_id", p.ID).Str("name", name).Msg("project created")

	return p, nil
}

// Load fetches a project and makes it current.
func (m *Manager) Load(ctx context.Context, projectID string) (*Project, error) {
	var resp protocol.LoadGameProjectResponse
	if err := m.d.Call(ctx, dispatch.Authenticated, &protocol.LoadGameProjectRequest{ProjectID: projectID}, &resp); err != nil {
		return nil, err
	}

	p := projectFromRecord(resp.Project)

	m.mu.Lock()
	m.current = p.clone()
	m.mu.Unlock()

	return p, nil
}

// Save sends the current project, stamping its modification time.
func (m *Manager) Save(ctx context.Context) error {
	m.mu.Lock()
	if m.current == nil {
		m.mu.Unlock()
		return ErrNoProject
	}
	p := m.current.clone()
	m.mu.Unlock()

	p.ModifiedAt = m.now()

	var resp protocol.Ack
	if err := m.d.Call(ctx, dispatch.Developer, &protocol.SaveGameProjectRequest{Project: p.record()}, &resp); err != nil {
		return err
	}

	m.mu.Lock()
	if m.current != nil && m.current.ID == p.ID {
		m.current.ModifiedAt = p.ModifiedAt
	}
	m.mu.Unlock()

	return nil
}

// Rename changes the name and description of the current project locally;
// empty values are left as they are. Save sends the change.
func (m *Manager) Rename(name, description string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return ErrNoProject
	}
	if name != "" {
		m.current.Name = name
	}
	if description != "" {
		m.current.Description = description
	}
	return nil
}

// List returns project summaries.
func (m *Manager) List(ctx context.Context) ([]protocol.Record, error) {
	var resp protocol.ListGameProjectsResponse
	if err := m.d.Call(ctx, dispatch.Authenticated, &protocol.ListGameProjectsRequest{}, &resp); err != nil {
		return nil, err
	}
	return resp.Projects, nil
}

// SyncAssets replaces the current project's assets with the server's list.
func (m *Manager) SyncAssets(ctx context.Context) ([]protocol.Record, error) {
	projectID, err := m.currentID()
	if err != nil {
		return nil, err
	}

	var resp protocol.SyncAssetsResponse
	if err := m.d.Call(ctx, dispatch.Developer, &protocol.SyncAssetsRequest{ProjectID: projectID}, &resp); err != nil {
		return nil, err
	}

	synced := nonNil(resp.Assets)

	m.mu.Lock()
	if m.current != nil && m.current.ID == projectID {
		m.current.Assets = slices.Clone(synced)
	}
	m.mu.Unlock()

	log.Debug().Str("project_id", projectID).Int("assets", len(synced)).Msg("project assets synced")

	return synced, nil
}

// AddAsset uploads data as a new asset of the current project and appends
// its reference to the project's assets.
func (m *Manager) AddAsset(ctx context.Context, name, assetType string, data []byte) (*AssetRef, error) {
	projectID, err := m.currentID()
	if err != nil {
		return nil, err
	}

	req := &protocol.AddAssetRequest{
		ProjectID: projectID,
		AssetName: name,
		AssetType: assetType,
		AssetData: assets.Encode(data),
	}

	var resp protocol.AddAssetResponse
	if err := m.d.Call(ctx, dispatch.Developer, req, &resp); err != nil {
		return nil, err
	}

	ref := &AssetRef{
		Name:    name,
		Type:    assetType,
		AssetID: resp.AssetID,
		URL:     resp.AssetURL,
	}

	m.mu.Lock()
	if m.current != nil && m.current.ID == projectID {
		m.current.Assets = append(m.current.Assets, ref.record())
	}
	m.mu.Unlock()

	log.Info().Str("project_id", projectID).Str("asset_id", ref.AssetID).Msg("asset added to project")

	return ref, nil
}

func (m *Manager) currentID() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return "", ErrNoProject
	}
	return m.current.ID, nil
}
