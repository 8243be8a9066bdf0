package protocol

import "time"

// DefaultExpiresIn is the token lifetime in minutes assumed when a server
// omits expires_in.
const DefaultExpiresIn = 60

// Status carries the fields common to every response.
type Status struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (s *Status) status() *Status { return s }

// Response is implemented by the response types of this package only.
// Validate reports a missing payload field of a successful response.
type Response interface {
	Validate() error
	status() *Status
}

// Ack is the response of actions that return nothing but the success flag.
type Ack struct {
	Status
}

func (*Ack) Validate() error { return nil }

type AuthenticateResponse struct {
	Status
	AccessToken  string         `json:"access_token,omitempty"`
	RefreshToken string         `json:"refresh_token,omitempty"`
	UserProfile  map[string]any `json:"user_profile,omitempty"`
	Roles        []string       `json:"roles,omitempty"`
	ExpiresIn    *float64       `json:"expires_in,omitempty"`
}

func (r *AuthenticateResponse) Validate() error {
	if r.AccessToken == "" {
		return missing(ActionAuthenticate, "access_token")
	}
	return nil
}

// Lifetime returns expires_in, a possibly fractional number of minutes, as a
// duration. An absent expires_in means DefaultExpiresIn minutes.
func (r *AuthenticateResponse) Lifetime() time.Duration {
	return lifetime(r.ExpiresIn)
}

type RefreshTokenResponse struct {
	Status
	AccessToken string `json:"access_token,omitempty"`
	ExpiresIn   *float64 `json:"expires_in,omitempty"`
}

func (r *RefreshTokenResponse) Validate() error {
	if r.AccessToken == "" {
		return missing(ActionRefreshToken, "access_token")
	}
	return nil
}

func (r *RefreshTokenResponse) Lifetime() time.Duration {
	return lifetime(r.ExpiresIn)
}

func lifetime(minutes *float64) time.Duration {
	if minutes == nil {
		return DefaultExpiresIn * time.Minute
	}
	return time.Duration(*minutes * float64(time.Minute))
}

type FetchContentResponse struct {
	Status
	Asset *AssetRecord `json:"asset,omitempty"`
}

func (r *FetchContentResponse) Validate() error {
	if r.Asset == nil {
		return missing(ActionFetchContent, "asset")
	}
	return nil
}

type ListContentResponse struct {
	Status
	ContentList []Record `json:"content_list,omitempty"`
}

func (*ListContentResponse) Validate() error { return nil }

// AssetIDResponse answers create_content and upload_binary_asset.
type AssetIDResponse struct {
	Status
	AssetID string `json:"asset_id,omitempty"`
}

func (r *AssetIDResponse) Validate() error {
	if r.AssetID == "" {
		return missing("asset", "asset_id")
	}
	return nil
}

type AnalyzeAssetResponse struct {
	Status
	Analysis Record `json:"analysis,omitempty"`
}

func (*AnalyzeAssetResponse) Validate() error { return nil }

type ListGamesResponse struct {
	Status
	Games []Record `json:"games,omitempty"`
}

func (*ListGamesResponse) Validate() error { return nil }

type LaunchGameResponse struct {
	Status
	SessionID string `json:"session_id,omitempty"`
	StreamURL string `json:"stream_url,omitempty"`
}

func (r *LaunchGameResponse) Validate() error {
	if r.SessionID == "" {
		return missing(ActionLaunchGame, "session_id")
	}
	return nil
}

type DownloadGameResponse struct {
	Status
	DownloadURL string `json:"download_url,omitempty"`
}

func (r *DownloadGameResponse) Validate() error {
	if r.DownloadURL == "" {
		return missing(ActionDownloadGame, "download_url")
	}
	return nil
}

type PlayerProfileResponse struct {
	Status
	Profile Record `json:"profile,omitempty"`
}

func (*PlayerProfileResponse) Validate() error { return nil }

type AchievementsResponse struct {
	Status
	Achievements []Record `json:"achievements,omitempty"`
}

func (*AchievementsResponse) Validate() error { return nil }

type LeaderboardResponse struct {
	Status
	Leaderboard []Record `json:"leaderboard,omitempty"`
}

func (*LeaderboardResponse) Validate() error { return nil }

type CreateGameProjectResponse struct {
	Status
	ProjectID string `json:"project_id,omitempty"`
}

func (r *CreateGameProjectResponse) Validate() error {
	if r.ProjectID == "" {
		return missing(ActionCreateGameProject, "project_id")
	}
	return nil
}

type LoadGameProjectResponse struct {
	Status
	Project *ProjectRecord `json:"project,omitempty"`
}

func (r *LoadGameProjectResponse) Validate() error {
	if r.Project == nil {
		return missing(ActionLoadGameProject, "project")
	}
	return nil
}

type ListGameProjectsResponse struct {
	Status
	Projects []Record `json:"projects,omitempty"`
}

func (*ListGameProjectsResponse) Validate() error { return nil }

type SyncAssetsResponse struct {
	Status
	Assets []Record `json:"assets,omitempty"`
}

func (*SyncAssetsResponse) Validate() error { return nil }

type AddAssetResponse struct {
	Status
	AssetID  string `json:"asset_id,omitempty"`
	AssetURL string `json:"asset_url,omitempty"`
}

func (r *AddAssetResponse) Validate() error {
	if r.AssetID == "" {
		return missing(ActionAddAsset, "asset_id")
	}
	return nil
}
