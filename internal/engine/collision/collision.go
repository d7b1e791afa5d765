// Package collision finds where moving gatherers touch stationary items during a tick.
//
// A gatherer is a circle swept along a straight segment from Start to End.
// An item is a circle that does not move. For every pair the detector finds
// the point of the segment closest to the item; if the distance between the
// centres is within the sum of the radii the pair collides at that point's
// fraction of the segment, its time in [0, 1].
//
// Only the earliest collision per item is reported. When two gatherers reach
// an item at exactly the same time the one with the lower ID gets it.
package collision

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// zeroLengthSq is the squared segment length below which a gatherer is treated as standing still
const zeroLengthSq = 1e-18

// Gatherer is a moving circle, typically a dog during one tick
type Gatherer struct {
	ID     uint64
	Start  mgl64.Vec2
	End    mgl64.Vec2
	Radius float64
}

// Item is a stationary circle: a piece of loot or an office
type Item struct {
	ID       uint64
	Position mgl64.Vec2
	Radius   float64
	IsOffice bool
}

// GatheringEvent records that a gatherer touched an item at Time in [0, 1]
type GatheringEvent struct {
	ItemID     uint64
	GathererID uint64
	SqDistance float64
	Time       float64
}

// CollectionResult is the closest approach of a segment to a point
type CollectionResult struct {
	ProjRatio  float64
	SqDistance float64
}

// IsCollected reports whether the approach is within radius
func (r CollectionResult) IsCollected(radius float64) bool {
	return r.SqDistance <= radius*radius
}

// TryCollectPoint projects c onto the segment a-b, clamping to the segment
func TryCollectPoint(a, b, c mgl64.Vec2) CollectionResult {
	move := b.Sub(a)
	rel := c.Sub(a)

	lenSq := move.LenSqr()
	if lenSq < zeroLengthSq {
		return CollectionResult{ProjRatio: 0, SqDistance: rel.LenSqr()}
	}

	t := math.Min(math.Max(rel.Dot(move)/lenSq, 0), 1)
	closest := a.Add(move.Mul(t))
	return CollectionResult{ProjRatio: t, SqDistance: c.Sub(closest).LenSqr()}
}

// FindGatherEvents returns the earliest event per item ordered by time, then item id.
// The result does not depend on the order of gatherers or items.
func FindGatherEvents(gatherers []Gatherer, items []Item) []GatheringEvent {
	earliest := make(map[uint64]GatheringEvent, len(items))

	for _, item := range items {
		for _, g := range gatherers {
			res := TryCollectPoint(g.Start, g.End, item.Position)
			if !res.IsCollected(g.Radius + item.Radius) {
				continue
			}
			ev := GatheringEvent{
				ItemID:     item.ID,
				GathererID: g.ID,
				SqDistance: res.SqDistance,
				Time:       res.ProjRatio,
			}
			if cur, ok := earliest[item.ID]; !ok || earlier(ev, cur) {
				earliest[item.ID] = ev
			}
		}
	}

	events := make([]GatheringEvent, 0, len(earliest))
	for _, ev := range earliest {
		events = append(events, ev)
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Time != events[j].Time {
			return events[i].Time < events[j].Time
		}
		return events[i].ItemID < events[j].ItemID
	})
	return events
}

func earlier(a, b GatheringEvent) bool {
	if a.Time != b.Time {
		return a.Time < b.Time
	}
	return a.GathererID < b.GathererID
}

// ValidGatherer reports whether g has finite coordinates and a usable radius
func ValidGatherer(g Gatherer) bool {
	return finiteVec(g.Start) && finiteVec(g.End) && validRadius(g.Radius)
}

// ValidItem reports whether it has finite coordinates and a usable radius
func ValidItem(it Item) bool {
	return finiteVec(it.Position) && validRadius(it.Radius)
}

func finiteVec(v mgl64.Vec2) bool {
	return finite(v.X()) && finite(v.Y())
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func validRadius(r float64) bool {
	return finite(r) && r >= 0
}
