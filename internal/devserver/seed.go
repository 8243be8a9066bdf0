package devserver

import "github.com/wolfeidau/raclient/internal/protocol"

// SeedUsers returns one account per role, each with password "password".
func SeedUsers() []User {
	return []User{
		{Username: "admin", Password: "password", Roles: []string{roleAdmin}, Profile: map[string]any{"display_name": "Admin"}},
		{Username: "dev", Password: "password", Roles: []string{roleDeveloper}, Profile: map[string]any{"display_name": "Developer"}},
		{Username: "player", Password: "password", Roles: []string{rolePlayer}, Profile: map[string]any{"display_name": "Player", "level": 1}},
	}
}

// SeedGames returns a small catalogue with placeholder payloads.
func SeedGames() []Game {
	return []Game{
		{
			ID:      "g1",
			Title:   "Starfall",
			Payload: []byte("starfall build 1"),
			Leaderboard: []protocol.Record{
				{"rank": 1, "player": "player", "score": 1200},
			},
		},
		{ID: "g2", Title: "Tidewater", Payload: []byte("tidewater build 7")},
	}
}
