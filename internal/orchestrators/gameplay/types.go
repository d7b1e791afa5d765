package gameplay

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/KirkDiggler/dogstory-api/internal/engine/game"
	"github.com/KirkDiggler/dogstory-api/internal/entities/world"
	"github.com/KirkDiggler/dogstory-api/internal/repositories/leaderboard"
)

// MapSummary identifies a map in listings
type MapSummary struct {
	ID   string
	Name string
}

// ListMapsOutput lists every loaded map in load order
type ListMapsOutput struct {
	Maps []MapSummary
}

// GetMapInput selects a map
type GetMapInput struct {
	MapID string
}

// GetMapOutput carries the full static map
type GetMapOutput struct {
	Map *world.Map
}

// JoinInput defines a join request
type JoinInput struct {
	Name  string
	MapID string
}

// JoinOutput returns the new player's credentials
type JoinOutput struct {
	Token    string
	PlayerID uint64
}

// ListPlayersInput is authorized by the caller's token
type ListPlayersInput struct {
	Token string
}

// PlayerInfo names one player in a session
type PlayerInfo struct {
	ID   uint64
	Name string
}

// ListPlayersOutput lists the players sharing the caller's session
type ListPlayersOutput struct {
	Players []PlayerInfo
}

// GetStateInput is authorized by the caller's token
type GetStateInput struct {
	Token string
}

// DogState is the public view of a dog
type DogState struct {
	ID        uint64
	Position  mgl64.Vec2
	Velocity  mgl64.Vec2
	Direction world.Direction
	Bag       []world.BagItem
	Score     int
}

// GetStateOutput is the state of the caller's session
type GetStateOutput struct {
	Dogs        []DogState
	LostObjects []world.LostObject
}

// MoveInput sets the caller's dog direction. Move is one of "U", "D", "L", "R" or "" to stop.
type MoveInput struct {
	Token string
	Move  string
}

// MoveOutput is empty on success
type MoveOutput struct{}

// TickInput advances the game clock
type TickInput struct {
	Delta time.Duration
}

// TickOutput summarizes one tick
type TickOutput struct {
	Now     time.Duration
	Reports []game.TickReport
	Retired []leaderboard.Record
	Saved   bool
}

// RecordsInput pages through the leaderboard. A zero Limit means leaderboard.MaxListLimit.
type RecordsInput struct {
	Offset int
	Limit  int
}

// RecordsOutput carries one page of the leaderboard
type RecordsOutput struct {
	Records []leaderboard.Record
}
