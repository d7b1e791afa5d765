// Package world holds the static map model and the dogs that move across it
package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/KirkDiggler/dogstory-api/internal/errors"
)

// RoadHalfWidth is how far the legal area extends on each side of a road's centerline
const RoadHalfWidth = 0.4

// Point is an integer grid coordinate
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Vec converts the point into entity space
func (p Point) Vec() mgl64.Vec2 {
	return mgl64.Vec2{float64(p.X), float64(p.Y)}
}

// Bounds is an axis-aligned rectangle in entity space
type Bounds struct {
	Min mgl64.Vec2
	Max mgl64.Vec2
}

// Contains reports whether p lies inside the rectangle, edges included
func (b Bounds) Contains(p mgl64.Vec2) bool {
	return p.X() >= b.Min.X() && p.X() <= b.Max.X() &&
		p.Y() >= b.Min.Y() && p.Y() <= b.Max.Y()
}

// Clamp returns the point of the rectangle closest to p
func (b Bounds) Clamp(p mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{
		math.Min(math.Max(p.X(), b.Min.X()), b.Max.X()),
		math.Min(math.Max(p.Y(), b.Min.Y()), b.Max.Y()),
	}
}

// Road is an axis-aligned segment between two grid points
type Road struct {
	Start Point
	End   Point
}

// NewHorizontalRoad creates a road running along the x axis
func NewHorizontalRoad(start Point, endX int) Road {
	return Road{Start: start, End: Point{X: endX, Y: start.Y}}
}

// NewVerticalRoad creates a road running along the y axis
func NewVerticalRoad(start Point, endY int) Road {
	return Road{Start: start, End: Point{X: start.X, Y: endY}}
}

// IsHorizontal reports whether the road runs along the x axis.
// A zero-length road is both horizontal and vertical.
func (r Road) IsHorizontal() bool {
	return r.Start.Y == r.End.Y
}

// IsVertical reports whether the road runs along the y axis
func (r Road) IsVertical() bool {
	return r.Start.X == r.End.X
}

// Validate rejects diagonal roads
func (r Road) Validate() error {
	if !r.IsHorizontal() && !r.IsVertical() {
		return errors.Configurationf("road (%d,%d)-(%d,%d) is neither horizontal nor vertical",
			r.Start.X, r.Start.Y, r.End.X, r.End.Y)
	}
	return nil
}

// Bounds is the legal rectangle of the road: the span between its ends
// widened by RoadHalfWidth in every direction.
func (r Road) Bounds() Bounds {
	return Bounds{
		Min: mgl64.Vec2{
			float64(min(r.Start.X, r.End.X)) - RoadHalfWidth,
			float64(min(r.Start.Y, r.End.Y)) - RoadHalfWidth,
		},
		Max: mgl64.Vec2{
			float64(max(r.Start.X, r.End.X)) + RoadHalfWidth,
			float64(max(r.Start.Y, r.End.Y)) + RoadHalfWidth,
		},
	}
}

// PointAlong returns the centerline point at fraction f in [0, 1] from Start to End
func (r Road) PointAlong(f float64) mgl64.Vec2 {
	f = math.Min(math.Max(f, 0), 1)
	start := r.Start.Vec()
	return start.Add(r.End.Vec().Sub(start).Mul(f))
}
