package dispatch

import "context"

// Gate is the local check an action must pass before it is sent.
//
//	fetch/list/create/update/delete content, upload, analyze   Authenticated
//	list games, profile, achievements, leaderboard             Authenticated
//	list projects, load project                                Authenticated
//	create/save project, add asset, sync assets                Developer
//	launch/stop/download game                                  Player
//
// Load project needs only Authenticated while create and save need
// Developer.
type Gate int

const (
	// Authenticated requires a live access token, refreshing a stale one once.
	Authenticated Gate = iota
	// Developer requires the developer or admin role.
	Developer
	// Player requires the player role.
	Player
)

func (g Gate) String() string {
	switch g {
	case Authenticated:
		return "authenticated"
	case Developer:
		return "developer"
	case Player:
		return "player"
	default:
		return "unknown"
	}
}

func (g Gate) allows(ctx context.Context, auth Authorizer) bool {
	switch g {
	case Authenticated:
		return auth.IsAuthenticated(ctx)
	case Developer:
		return auth.IsDeveloper()
	case Player:
		return auth.IsPlayer()
	default:
		return false
	}
}
