package world

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Direction is where a dog is facing
type Direction string

// Directions, encoded the way clients send them
const (
	DirectionNorth Direction = "U"
	DirectionSouth Direction = "D"
	DirectionWest  Direction = "L"
	DirectionEast  Direction = "R"
)

// MoveCommand is a player's steering input. The empty command stops the dog.
type MoveCommand string

// Move commands
const (
	MoveUp    MoveCommand = "U"
	MoveDown  MoveCommand = "D"
	MoveLeft  MoveCommand = "L"
	MoveRight MoveCommand = "R"
	MoveStop  MoveCommand = ""
)

// ParseMoveCommand validates a raw command string
func ParseMoveCommand(s string) (MoveCommand, bool) {
	switch cmd := MoveCommand(s); cmd {
	case MoveUp, MoveDown, MoveLeft, MoveRight, MoveStop:
		return cmd, true
	default:
		return "", false
	}
}

// Dog is a player's avatar. Times are game time since the world started.
type Dog struct {
	ID            uint64
	Name          string
	Position      mgl64.Vec2
	StartPosition mgl64.Vec2
	Velocity      mgl64.Vec2
	Direction     Direction
	Bag           []BagItem
	BagCapacity   int
	Score         int
	Value         int

	CreatedAt time.Duration
	Idle      bool
	IdleSince time.Duration
	Retired   bool
	PlayTime  time.Duration
	Reported  bool
}

// NewDog places a new dog facing north at position
func NewDog(id uint64, name string, position mgl64.Vec2, bagCapacity int, now time.Duration) *Dog {
	return &Dog{
		ID:            id,
		Name:          name,
		Position:      position,
		StartPosition: position,
		Direction:     DirectionNorth,
		Bag:           make([]BagItem, 0, bagCapacity),
		BagCapacity:   bagCapacity,
		CreatedAt:     now,
	}
}

// IsStopped reports whether the dog has no velocity
func (d *Dog) IsStopped() bool {
	return d.Velocity.X() == 0 && d.Velocity.Y() == 0
}

// SetMove applies a steering command at the given speed.
// Stopping keeps the current direction.
func (d *Dog) SetMove(cmd MoveCommand, speed float64) {
	if d.Retired {
		return
	}
	switch cmd {
	case MoveUp:
		d.Velocity, d.Direction = mgl64.Vec2{0, -speed}, DirectionNorth
	case MoveDown:
		d.Velocity, d.Direction = mgl64.Vec2{0, speed}, DirectionSouth
	case MoveLeft:
		d.Velocity, d.Direction = mgl64.Vec2{-speed, 0}, DirectionWest
	case MoveRight:
		d.Velocity, d.Direction = mgl64.Vec2{speed, 0}, DirectionEast
	default:
		d.Velocity = mgl64.Vec2{}
	}
	if !d.IsStopped() {
		d.Idle = false
	}
}

type moveCandidate struct {
	distance float64
	end      mgl64.Vec2
	mustStop bool
}

// beats orders candidates: longer distance first, then the one that keeps moving
func (c moveCandidate) beats(other moveCandidate) bool {
	if c.distance != other.distance {
		return c.distance > other.distance
	}
	return !c.mustStop && other.mustStop
}

// Move advances the dog along the roads for elapsed time.
// StartPosition is set to the position before the move.
func (d *Dog) Move(elapsed time.Duration, roads []Road) {
	d.StartPosition = d.Position
	if d.Retired || d.IsStopped() {
		return
	}

	seconds := elapsed.Seconds()
	var best moveCandidate
	found := false
	for _, road := range roads {
		c := d.candidateOn(road, seconds)
		if !found || c.beats(best) {
			best, found = c, true
		}
	}
	if !found {
		d.Velocity = mgl64.Vec2{}
		return
	}

	d.Position = best.end
	if best.mustStop {
		d.Velocity = mgl64.Vec2{}
	}
}

// candidateOn computes how far the dog may travel inside one road's rectangle.
// Axes with zero speed are left untouched.
func (d *Dog) candidateOn(road Road, seconds float64) moveCandidate {
	bounds := road.Bounds()
	if !bounds.Contains(d.Position) {
		return moveCandidate{end: d.Position, mustStop: true}
	}

	end := d.Position
	mustStop := false
	for axis := 0; axis < 2; axis++ {
		speed := d.Velocity[axis]
		if speed == 0 {
			continue
		}
		target := d.Position[axis] + speed*seconds
		switch {
		case speed > 0 && target >= bounds.Max[axis]:
			target, mustStop = bounds.Max[axis], true
		case speed < 0 && target <= bounds.Min[axis]:
			target, mustStop = bounds.Min[axis], true
		}
		end[axis] = target
	}

	return moveCandidate{
		distance: end.Sub(d.Position).Len(),
		end:      end,
		mustStop: mustStop,
	}
}

// PushIntoBag adds an item worth value. It returns false when the bag is full.
func (d *Dog) PushIntoBag(item BagItem, value int) bool {
	if len(d.Bag) >= d.BagCapacity {
		return false
	}
	d.Bag = append(d.Bag, item)
	d.Value += value
	return true
}

// EmptyBag moves the accumulated value into the score and returns it
func (d *Dog) EmptyBag() int {
	delivered := d.Value
	d.Score += delivered
	d.Value = 0
	d.Bag = d.Bag[:0]
	return delivered
}

// UpdateRetirement advances the idle timer for a tick spanning [start, end].
// A dog stopped since idleSince retires once end-idleSince reaches threshold.
// It returns true only on the tick the dog retires.
func (d *Dog) UpdateRetirement(start, end, threshold time.Duration) bool {
	if d.Retired {
		return false
	}
	if !d.IsStopped() {
		d.Idle = false
		return false
	}
	if !d.Idle {
		d.Idle = true
		d.IdleSince = start
	}
	if end-d.IdleSince < threshold {
		return false
	}
	d.Retired = true
	d.PlayTime = end - d.CreatedAt
	return true
}

// TakePlayTime reports a retired dog's play time the first time it is called
func (d *Dog) TakePlayTime() (time.Duration, bool) {
	if !d.Retired || d.Reported {
		return 0, false
	}
	d.Reported = true
	return d.PlayTime, true
}

// Clone returns a deep copy
func (d *Dog) Clone() *Dog {
	c := *d
	c.Bag = append(make([]BagItem, 0, len(d.Bag)), d.Bag...)
	return &c
}
