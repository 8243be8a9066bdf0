// Package content manages RaOS content assets such as blogs, posts, images
// and code, mirroring the most recently fetched or created asset locally.
package content

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/raclient/internal/assets"
	"github.com/wolfeidau/raclient/internal/dispatch"
	"github.com/wolfeidau/raclient/internal/protocol"
	"github.com/wolfeidau/raclient/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Asset is a content asset held on the server.
type Asset struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at,omitzero"`
	ModifiedAt time.Time      `json:"modified_at,omitzero"`
}

func assetFromRecord(r *protocol.AssetRecord) *Asset {
	return &Asset{
		ID:         r.AssetID,
		Type:       r.AssetType,
		Title:      r.Title,
		Content:    r.Content,
		Metadata:   maps.Clone(r.Metadata),
		CreatedAt:  r.CreatedDate,
		ModifiedAt: r.ModifiedDate,
	}
}

func (a *Asset) record() protocol.AssetRecord {
	metadata := a.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return protocol.AssetRecord{
		AssetID:      a.ID,
		AssetType:    a.Type,
		Title:        a.Title,
		Content:      a.Content,
		Metadata:     metadata,
		CreatedDate:  a.CreatedAt,
		ModifiedDate: a.ModifiedAt,
	}
}

func (a *Asset) clone() *Asset {
	c := *a
	c.Metadata = maps.Clone(a.Metadata)
	return &c
}

// Upload describes a binary asset to upload.
type Upload struct {
	AssetType string
	Filename  string
	Data      []byte
	// Compress applies the pipeline compression before encoding
	Compress bool
	// Format is forwarded to the server; the bytes are not converted
	Format string
}

// Manager performs content actions. Every action needs an authenticated
// session.
type Manager struct {
	d        *dispatch.Dispatcher
	pipeline *assets.Pipeline
	metrics  *telemetry.Metrics
	now      func() time.Time

	mu      sync.Mutex
	current *Asset
}

// New creates a content manager sending through d and preparing uploads
// with pipeline.
func New(d *dispatch.Dispatcher, pipeline *assets.Pipeline) *Manager {
	return &Manager{
		d:        d,
		pipeline: pipeline,
		metrics:  telemetry.GetMetrics(),
		now:      time.Now,
	}
}

// Current returns a copy of the most recently fetched or created asset.
func (m *Manager) Current() *Asset {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return nil
	}
	return m.current.clone()
}

func (m *Manager) setCurrent(a *Asset) {
	m.mu.Lock()
	m.current = a.clone()
	m.mu.Unlock()
}

// Fetch retrieves an asset and makes it the current asset.
func (m *Manager) Fetch(ctx context.Context, assetID string) (*Asset, error) {
	var resp protocol.FetchContentResponse
	if err := m.d.Call(ctx, dispatch.Authenticated, &protocol.FetchContentRequest{AssetID: assetID}, &resp); err != nil {
		return nil, err
	}

	asset := assetFromRecord(resp.Asset)
	m.setCurrent(asset)

	return asset, nil
}

// List returns asset summaries, filtered by contentType when not empty.
func (m *Manager) List(ctx context.Context, contentType string) ([]protocol.Record, error) {
	var resp protocol.ListContentResponse
	if err := m.d.Call(ctx, dispatch.Authenticated, &protocol.ListContentRequest{ContentType: contentType}, &resp); err != nil {
		return nil, err
	}
	return resp.ContentList, nil
}

// Create creates an asset and makes it the current asset.
func (m *Manager) Create(ctx context.Context, assetType, title, body string) (*Asset, error) {
	req := &protocol.CreateContentRequest{
		AssetType: assetType,
		Title:     title,
		Content:   body,
	}

	var resp protocol.AssetIDResponse
	if err := m.d.Call(ctx, dispatch.Authenticated, req, &resp); err != nil {
		return nil, err
	}

	now := m.now()
	asset := &Asset{
		ID:         resp.AssetID,
		Type:       assetType,
		Title:      title,
		Content:    body,
		Metadata:   map[string]any{},
		CreatedAt:  now,
		ModifiedAt: now,
	}
	m.setCurrent(asset)

	log.Info().Str("asset_id", asset.ID).Str("asset_type", assetType).Msg("content created")

	return asset, nil
}

// Update replaces the server copy of asset, stamping its modification
// time. The current asset is replaced when it has the same ID.
func (m *Manager) Update(ctx context.Context, asset *Asset) error {
	updated := asset.clone()
	updated.ModifiedAt = m.now()

	var resp protocol.Ack
	if err := m.d.Call(ctx, dispatch.Authenticated, &protocol.UpdateContentRequest{Asset: updated.record()}, &resp); err != nil {
		return err
	}

	asset.ModifiedAt = updated.ModifiedAt

	m.mu.Lock()
	if m.current != nil && m.current.ID == updated.ID {
		m.current = updated
	}
	m.mu.Unlock()

	return nil
}

// Delete removes an asset, dropping it as the current asset if it was.
func (m *Manager) Delete(ctx context.Context, assetID string) error {
	var resp protocol.Ack
	if err := m.d.Call(ctx, dispatch.Authenticated, &protocol.DeleteContentRequest{AssetID: assetID}, &resp); err != nil {
		return err
	}

	m.mu.Lock()
	if m.current != nil && m.current.ID == assetID {
		m.current = nil
	}
	m.mu.Unlock()

	return nil
}

// UploadBinary uploads a binary asset and returns its asset ID.
func (m *Manager) UploadBinary(ctx context.Context, upload Upload) (string, error) {
	payload, err := m.pipeline.Prepare(upload.Data, upload.Compress, upload.Format)
	if err != nil {
		return "", err
	}

	req := &protocol.UploadBinaryAssetRequest{
		AssetType:   upload.AssetType,
		Filename:    upload.Filename,
		FileData:    payload.Data,
		Compressed:  payload.Compressed,
		Format:      formatField(payload.Format),
		Compression: payload.Compression,
		Checksum:    payload.Checksum,
	}

	var resp protocol.AssetIDResponse
	if err := m.d.Call(ctx, dispatch.Authenticated, req, &resp); err != nil {
		return "", err
	}

	m.metrics.UploadBytesTotal.Add(ctx, int64(len(payload.Data)), metric.WithAttributes(
		attribute.String("asset_type", upload.AssetType),
		attribute.Bool("compressed", payload.Compressed),
	))

	log.Info().
		Str("asset_id", resp.AssetID).
		Str("filename", upload.Filename).
		Int("size", payload.Size).
		Msg("binary asset uploaded")

	return resp.AssetID, nil
}

func formatField(format string) *string {
	if format == "" {
		return nil
	}
	return &format
}

// Analyze returns the server's analysis of an asset.
func (m *Manager) Analyze(ctx context.Context, assetID string) (protocol.Record, error) {
	var resp protocol.AnalyzeAssetResponse
	if err := m.d.Call(ctx, dispatch.Authenticated, &protocol.AnalyzeAssetRequest{AssetID: assetID}, &resp); err != nil {
		return nil, err
	}

	if resp.Analysis == nil {
		return protocol.Record{}, nil
	}
	return resp.Analysis, nil
}
