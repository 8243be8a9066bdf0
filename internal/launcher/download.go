package launcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// DownloadTo resolves the download URL of gameID and writes the game to
// path. The file appears only once fully written.
func (l *Launcher) DownloadTo(ctx context.Context, gameID, path string) (int64, error) {
	url, err := l.Download(ctx, gameID)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create download request: %w", err)
	}

	res, err := l.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to download game: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("failed to download game: unexpected status %s", res.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("failed to create download file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after rename

	n, err := io.Copy(tmp, res.Body)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("failed to write download: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to write download: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("failed to save download: %w", err)
	}

	log.Info().
		Str("game_id", gameID).
		Str("path", path).
		Int64("bytes", n).
		Msg("game downloaded")

	return n, nil
}
