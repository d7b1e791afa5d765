package world

import (
	"strconv"

	"github.com/KirkDiggler/rpg-toolkit/core"
)

// Entity types published on the event bus
const (
	EntityTypeDog    = "dog"
	EntityTypeLoot   = "loot"
	EntityTypeOffice = "office"
)

// DogEntity exposes a dog to the toolkit event bus
type DogEntity struct {
	DogID uint64
	MapID string
	Name  string
}

// GetID returns the dog id as a string
func (e *DogEntity) GetID() string { return strconv.FormatUint(e.DogID, 10) }

// GetType returns EntityTypeDog
func (e *DogEntity) GetType() string { return EntityTypeDog }

// ItemEntity is a collected loot item or an office a bag was emptied at
type ItemEntity struct {
	ID    string
	Kind  string
	Value int
}

// GetID returns the item id
func (e *ItemEntity) GetID() string { return e.ID }

// GetType returns the item kind
func (e *ItemEntity) GetType() string { return e.Kind }

var (
	_ core.Entity = (*DogEntity)(nil)
	_ core.Entity = (*ItemEntity)(nil)
)
