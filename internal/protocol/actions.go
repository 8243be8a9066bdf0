// Package protocol defines the RaCore action protocol: newline free JSON
// requests tagged with an action name and JSON responses carrying a success
// flag. Every action has its own request and response type so a missing field
// is caught by Validate rather than silently defaulted.
package protocol

// Action is the value of the "action" field of a request.
type Action string

const (
	ActionAuthenticate Action = "authenticate"
	ActionRefreshToken Action = "refresh_token"
	ActionLogout       Action = "logout"

	ActionFetchContent      Action = "fetch_content"
	ActionListContent       Action = "list_content"
	ActionCreateContent     Action = "create_content"
	ActionUpdateContent     Action = "update_content"
	ActionDeleteContent     Action = "delete_content"
	ActionUploadBinaryAsset Action = "upload_binary_asset"
	ActionAnalyzeAsset      Action = "analyze_asset"

	ActionListGames        Action = "list_games"
	ActionLaunchGame       Action = "launch_game"
	ActionStopGame         Action = "stop_game"
	ActionDownloadGame     Action = "download_game"
	ActionGetPlayerProfile Action = "get_player_profile"
	ActionGetAchievements  Action = "get_achievements"
	ActionGetLeaderboard   Action = "get_leaderboard"

	ActionCreateGameProject Action = "create_game_project"
	ActionLoadGameProject   Action = "load_game_project"
	ActionSaveGameProject   Action = "save_game_project"
	ActionListGameProjects  Action = "list_game_projects"
	ActionSyncAssets        Action = "sync_assets"
	ActionAddAsset          Action = "add_asset"
)

// Actions lists every action in the catalogue.
var Actions = []Action{
	ActionAuthenticate,
	ActionRefreshToken,
	ActionLogout,
	ActionFetchContent,
	ActionListContent,
	ActionCreateContent,
	ActionUpdateContent,
	ActionDeleteContent,
	ActionUploadBinaryAsset,
	ActionAnalyzeAsset,
	ActionListGames,
	ActionLaunchGame,
	ActionStopGame,
	ActionDownloadGame,
	ActionGetPlayerProfile,
	ActionGetAchievements,
	ActionGetLeaderboard,
	ActionCreateGameProject,
	ActionLoadGameProject,
	ActionSaveGameProject,
	ActionListGameProjects,
	ActionSyncAssets,
	ActionAddAsset,
}

func (a Action) String() string {
	return string(a)
}

// Record is a loosely typed server object (game, achievement, leaderboard
// entry, listing row) the client passes through without interpreting.
type Record map[string]any

// String returns the value of key when it is a string.
func (r Record) String(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}
