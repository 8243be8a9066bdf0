package protocol

import (
	"encoding/json"
	"fmt"
)

// Encode validates req, stamps its header with the action tag and authToken
// (omitted when empty) and returns the JSON message.
func Encode(req Request, authToken string) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	h := req.header()
	h.Action = req.Action()
	h.AuthToken = authToken

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", req.Action(), err)
	}

	return data, nil
}

// Decode parses a response to action into resp. A response with
// success=false becomes a *ServerError; a successful response missing its
// payload fails with ErrMissingField.
func Decode(action Action, data []byte, resp Response) error {
	if err := json.Unmarshal(data, resp); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, action, err)
	}

	st := resp.status()
	if !st.Success {
		msg := st.Error
		if msg == "" {
			msg = "unknown error"
		}
		return &ServerError{Action: action, Message: msg}
	}

	return resp.Validate()
}

// EncodeResponse marshals a response, forcing the error field empty on
// success. Used by servers answering the protocol.
func EncodeResponse(resp Response) ([]byte, error) {
	st := resp.status()
	if st.Success {
		st.Error = ""
	}
	return json.Marshal(resp)
}

// Failure builds the response for a failed action.
func Failure(msg string) *Ack {
	return &Ack{Status: Status{Success: false, Error: msg}}
}

// OK returns a successful Status for embedding in a response literal.
func OK() Status {
	return Status{Success: true}
}

// DecodeRequest parses a request message into its concrete type using the
// action tag. It returns the request and the auth_token it carried.
func DecodeRequest(data []byte) (Request, string, error) {
	var h Header
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}

	req, err := newRequest(h.Action)
	if err != nil {
		return nil, "", err
	}

	if err := json.Unmarshal(data, req); err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", ErrMalformedRequest, h.Action, err)
	}

	if err := req.Validate(); err != nil {
		return nil, "", err
	}

	return req, h.AuthToken, nil
}

func newRequest(action Action) (Request, error) {
	switch action {
	case ActionAuthenticate:
		return &AuthenticateRequest{}, nil
	case ActionRefreshToken:
		return &RefreshTokenRequest{}, nil
	case ActionLogout:
		return &LogoutRequest{}, nil
	case ActionFetchContent:
		return &FetchContentRequest{}, nil
	case ActionListContent:
		return &ListContentRequest{}, nil
	case ActionCreateContent:
		return &CreateContentRequest{}, nil
	case ActionUpdateContent:
		return &UpdateContentRequest{}, nil
	case ActionDeleteContent:
		return &DeleteContentRequest{}, nil
	case ActionUploadBinaryAsset:
		return &UploadBinaryAssetRequest{}, nil
	case ActionAnalyzeAsset:
		return &AnalyzeAssetRequest{}, nil
	case ActionListGames:
		return &ListGamesRequest{}, nil
	case ActionLaunchGame:
		return &LaunchGameRequest{}, nil
	case ActionStopGame:
		return &StopGameRequest{}, nil
	case ActionDownloadGame:
		return &DownloadGameRequest{}, nil
	case ActionGetPlayerProfile:
		return &GetPlayerProfileRequest{}, nil
	case ActionGetAchievements:
		return &GetAchievementsRequest{}, nil
	case ActionGetLeaderboard:
		return &GetLeaderboardRequest{}, nil
	case ActionCreateGameProject:
		return &CreateGameProjectRequest{}, nil
	case ActionLoadGameProject:
		return &LoadGameProjectRequest{}, nil
	case ActionSaveGameProject:
		return &SaveGameProjectRequest{}, nil
	case ActionListGameProjects:
		return &ListGameProjectsRequest{}, nil
	case ActionSyncAssets:
		return &SyncAssetsRequest{}, nil
	case ActionAddAsset:
		return &AddAssetRequest{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}

// ActionOf returns the action tag of an encoded request, or "" when the
// message cannot be parsed.
func ActionOf(data []byte) Action {
	var h Header
	if err := json.Unmarshal(data, &h); err != nil {
		return ""
	}
	return h.Action
}
