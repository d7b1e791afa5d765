package world

import "github.com/go-gl/mathgl/mgl64"

// LostObject is a piece of loot lying on a road
type LostObject struct {
	ID       uint64
	Type     int
	Position mgl64.Vec2
}

// BagItem is a collected LostObject
type BagItem struct {
	ID   uint64
	Type int
}
