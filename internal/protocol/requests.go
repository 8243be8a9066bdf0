package protocol

import "time"

// Header carries the fields common to every request.
type Header struct {
	Action    Action `json:"action"`
	AuthToken string `json:"auth_token,omitempty"`
}

func (h *Header) header() *Header { return h }

// Request is implemented by the request types of this package only.
type Request interface {
	Action() Action
	Validate() error
	header() *Header
}

// AssetRecord is the wire form of a content asset.
type AssetRecord struct {
	AssetID      string         `json:"asset_id"`
	AssetType    string         `json:"asset_type"`
	Title        string         `json:"title"`
	Content      string         `json:"content"`
	Metadata     map[string]any `json:"metadata"`
	CreatedDate  time.Time      `json:"created_date,omitzero"`
	ModifiedDate time.Time      `json:"modified_date,omitzero"`
}

// ProjectRecord is the wire form of a game project.
type ProjectRecord struct {
	ProjectID    string    `json:"project_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	CreatedDate  time.Time `json:"created_date,omitzero"`
	ModifiedDate time.Time `json:"modified_date,omitzero"`
	Assets       []Record  `json:"assets"`
	Scenes       []Record  `json:"scenes"`
	Scripts      []Record  `json:"scripts"`
}

// Session actions.

type AuthenticateRequest struct {
	Header
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
}

func (*AuthenticateRequest) Action() Action { return ActionAuthenticate }

func (r *AuthenticateRequest) Validate() error {
	if r.Username == "" {
		return missing(ActionAuthenticate, "username")
	}
	if r.PasswordHash == "" {
		return missing(ActionAuthenticate, "password_hash")
	}
	return nil
}

type RefreshTokenRequest struct {
	Header
	RefreshToken string `json:"refresh_token"`
}

func (*RefreshTokenRequest) Action() Action { return ActionRefreshToken }

func (r *RefreshTokenRequest) Validate() error {
	if r.RefreshToken == "" {
		return missing(ActionRefreshToken, "refresh_token")
	}
	return nil
}

type LogoutRequest struct {
	Header
	AccessToken string `json:"access_token"`
}

func (*LogoutRequest) Action() Action { return ActionLogout }

func (r *LogoutRequest) Validate() error {
	if r.AccessToken == "" {
		return missing(ActionLogout, "access_token")
	}
	return nil
}

// Content actions.

type FetchContentRequest struct {
	Header
	AssetID string `json:"asset_id"`
}

func (*FetchContentRequest) Action() Action { return ActionFetchContent }

func (r *FetchContentRequest) Validate() error {
	if r.AssetID == "" {
		return missing(ActionFetchContent, "asset_id")
	}
	return nil
}

type ListContentRequest struct {
	Header
	ContentType string `json:"content_type,omitempty"`
}

func (*ListContentRequest) Action() Action  { return ActionListContent }
func (*ListContentRequest) Validate() error { return nil }

type CreateContentRequest struct {
	Header
	AssetType string `json:"asset_type"`
	Title     string `json:"title"`
	Content   string `json:"content"`
}

func (*CreateContentRequest) Action() Action { return ActionCreateContent }

func (r *CreateContentRequest) Validate() error {
	if r.AssetType == "" {
		return missing(ActionCreateContent, "asset_type")
	}
	if r.Title == "" {
		return missing(ActionCreateContent, "title")
	}
	return nil
}

type UpdateContentRequest struct {
	Header
	Asset AssetRecord `json:"asset"`
}

func (*UpdateContentRequest) Action() Action { return ActionUpdateContent }

func (r *UpdateContentRequest) Validate() error {
	if r.Asset.AssetID == "" {
		return missing(ActionUpdateContent, "asset.asset_id")
	}
	return nil
}

type DeleteContentRequest struct {
	Header
	AssetID string `json:"asset_id"`
}

func (*DeleteContentRequest) Action() Action { return ActionDeleteContent }

func (r *DeleteContentRequest) Validate() error {
	if r.AssetID == "" {
		return missing(ActionDeleteContent, "asset_id")
	}
	return nil
}

// UploadBinaryAssetRequest carries FileData as standard base64. Compression
// names the algorithm when it is not gzip; Checksum is the CRC-64/NVME of the
// uncompressed payload in hex. Format is always sent, null when no target
// format was requested.
type UploadBinaryAssetRequest struct {
	Header
	AssetType   string  `json:"asset_type"`
	Filename    string  `json:"filename"`
	FileData    string  `json:"file_data"`
	Compressed  bool    `json:"compressed"`
	Format      *string `json:"format"`
	Compression string  `json:"compression,omitempty"`
	Checksum    string  `json:"checksum,omitempty"`
}

// FormatName returns the requested target format, "" when none.
func (r *UploadBinaryAssetRequest) FormatName() string {
	if r.Format == nil {
		return ""
	}
	return *r.Format
}

func (*UploadBinaryAssetRequest) Action() Action { return ActionUploadBinaryAsset }

func (r *UploadBinaryAssetRequest) Validate() error {
	if r.AssetType == "" {
		return missing(ActionUploadBinaryAsset, "asset_type")
	}
	if r.Filename == "" {
		return missing(ActionUploadBinaryAsset, "filename")
	}
	return nil
}

type AnalyzeAssetRequest struct {
	Header
	AssetID string `json:"asset_id"`
}

func (*AnalyzeAssetRequest) Action() Action { return ActionAnalyzeAsset }

func (r *AnalyzeAssetRequest) Validate() error {
	if r.AssetID == "" {
		return missing(ActionAnalyzeAsset, "asset_id")
	}
	return nil
}

// Game launcher actions.

type ListGamesRequest struct {
	Header
}

func (*ListGamesRequest) Action() Action  { return ActionListGames }
func (*ListGamesRequest) Validate() error { return nil }

type LaunchGameRequest struct {
	Header
	GameID string `json:"game_id"`
	Mode   string `json:"mode"`
}

func (*LaunchGameRequest) Action() Action { return ActionLaunchGame }

func (r *LaunchGameRequest) Validate() error {
	if r.GameID == "" {
		return missing(ActionLaunchGame, "game_id")
	}
	if r.Mode == "" {
		return missing(ActionLaunchGame, "mode")
	}
	return nil
}

type StopGameRequest struct {
	Header
	SessionID string `json:"session_id"`
}

func (*StopGameRequest) Action() Action { return ActionStopGame }

func (r *StopGameRequest) Validate() error {
	if r.SessionID == "" {
		return missing(ActionStopGame, "session_id")
	}
	return nil
}

type DownloadGameRequest struct {
	Header
	GameID string `json:"game_id"`
}

func (*DownloadGameRequest) Action() Action { return ActionDownloadGame }

func (r *DownloadGameRequest) Validate() error {
	if r.GameID == "" {
		return missing(ActionDownloadGame, "game_id")
	}
	return nil
}

type GetPlayerProfileRequest struct {
	Header
}

func (*GetPlayerProfileRequest) Action() Action  { return ActionGetPlayerProfile }
func (*GetPlayerProfileRequest) Validate() error { return nil }

type GetAchievementsRequest struct {
	Header
	GameID string `json:"game_id,omitempty"`
}

func (*GetAchievementsRequest) Action() Action  { return ActionGetAchievements }
func (*GetAchievementsRequest) Validate() error { return nil }

type GetLeaderboardRequest struct {
	Header
	GameID   string `json:"game_id"`
	Category string `json:"category"`
}

func (*GetLeaderboardRequest) Action() Action { return ActionGetLeaderboard }

func (r *GetLeaderboardRequest) Validate() error {
	if r.GameID == "" {
		return missing(ActionGetLeaderboard, "game_id")
	}
	if r.Category == "" {
		return missing(ActionGetLeaderboard, "category")
	}
	return nil
}

// Game project actions.

type CreateGameProjectRequest struct {
	Header
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (*CreateGameProjectRequest) Action() Action { return ActionCreateGameProject }

func (r *CreateGameProjectRequest) Validate() error {
	if r.Name == "" {
		return missing(ActionCreateGameProject, "name")
	}
	return nil
}

type LoadGameProjectRequest struct {
	Header
	ProjectID string `json:"project_id"`
}

func (*LoadGameProjectRequest) Action() Action { return ActionLoadGameProject }

func (r *LoadGameProjectRequest) Validate() error {
	if r.ProjectID == "" {
		return missing(ActionLoadGameProject, "project_id")
	}
	return nil
}

type SaveGameProjectRequest struct {
	Header
	Project ProjectRecord `json:"project"`
}

func (*SaveGameProjectRequest) Action() Action { return ActionSaveGameProject }

func (r *SaveGameProjectRequest) Validate() error {
	if r.Project.ProjectID == "" {
		return missing(ActionSaveGameProject, "project.project_id")
	}
	return nil
}

type ListGameProjectsRequest struct {
	Header
}

func (*ListGameProjectsRequest) Action() Action  { return ActionListGameProjects }
func (*ListGameProjectsRequest) Validate() error { return nil }

type SyncAssetsRequest struct {
	Header
	ProjectID string `json:"project_id"`
}

func (*SyncAssetsRequest) Action() Action { return ActionSyncAssets }

func (r *SyncAssetsRequest) Validate() error {
	if r.ProjectID == "" {
		return missing(ActionSyncAssets, "project_id")
	}
	return nil
}

type AddAssetRequest struct {
	Header
	ProjectID string `json:"project_id"`
	AssetName string `json:"asset_name"`
	AssetType string `json:"asset_type"`
	AssetData string `json:"asset_data"`
}

func (*AddAssetRequest) Action() Action { return ActionAddAsset }

func (r *AddAssetRequest) Validate() error {
	if r.ProjectID == "" {
		return missing(ActionAddAsset, "project_id")
	}
	if r.AssetName == "" {
		return missing(ActionAddAsset, "asset_name")
	}
	if r.AssetType == "" {
		return missing(ActionAddAsset, "asset_type")
	}
	return nil
}
