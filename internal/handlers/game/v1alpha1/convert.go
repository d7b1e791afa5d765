package v1alpha1

import (
	"math"
	"strconv"

	"github.com/go-gl/mathgl/mgl64"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/KirkDiggler/dogstory-api/internal/entities/world"
	"github.com/KirkDiggler/dogstory-api/internal/errors"
	"github.com/KirkDiggler/dogstory-api/internal/orchestrators/gameplay"
)

func stringField(req *structpb.Struct, name string, required bool) (string, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		if required {
			return "", errors.InvalidArgumentf("%s is required", name)
		}
		return "", nil
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", errors.InvalidArgumentf("%s must be a string", name)
	}
	return s.StringValue, nil
}

func intField(req *structpb.Struct, name string, required bool) (int, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		if required {
			return 0, errors.InvalidArgumentf("%s is required", name)
		}
		return 0, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, errors.InvalidArgumentf("%s must be a number", name)
	}
	f := n.NumberValue
	if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, errors.InvalidArgumentf("%s must be a whole number", name)
	}
	return int(f), nil
}

func idKey(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func vec(v mgl64.Vec2) []any {
	return []any{v.X(), v.Y()}
}

func mapToFields(m *world.Map) map[string]any {
	roads := make([]any, 0, len(m.Roads))
	for _, r := range m.Roads {
		road := map[string]any{"x0": r.Start.X, "y0": r.Start.Y}
		if r.IsHorizontal() {
			road["x1"] = r.End.X
		} else {
			road["y1"] = r.End.Y
		}
		roads = append(roads, road)
	}

	buildings := make([]any, 0, len(m.Buildings))
	for _, b := range m.Buildings {
		buildings = append(buildings, map[string]any{"x": b.X, "y": b.Y, "w": b.Width, "h": b.Height})
	}

	offices := make([]any, 0, len(m.Offices))
	for _, o := range m.Offices {
		offices = append(offices, map[string]any{
			"id":      o.ID,
			"x":       o.Position.X,
			"y":       o.Position.Y,
			"offsetX": o.Offset.X,
			"offsetY": o.Offset.Y,
		})
	}

	lootTypes := make([]any, 0, len(m.LootTypes))
	for _, lt := range m.LootTypes {
		entry := map[string]any{
			"name":  lt.Name,
			"file":  lt.File,
			"type":  lt.Type,
			"scale": lt.Scale,
			"value": lt.Value,
		}
		if lt.Rotation != nil {
			entry["rotation"] = *lt.Rotation
		}
		if lt.Color != nil {
			entry["color"] = *lt.Color
		}
		lootTypes = append(lootTypes, entry)
	}

	return map[string]any{
		"id":          m.ID,
		"name":        m.Name,
		"dogSpeed":    m.DogSpeed,
		"bagCapacity": m.BagCapacity,
		"roads":       roads,
		"buildings":   buildings,
		"offices":     offices,
		"lootTypes":   lootTypes,
	}
}

func stateToFields(out *gameplay.GetStateOutput) map[string]any {
	dogs := make(map[string]any, len(out.Dogs))
	for _, d := range out.Dogs {
		bag := make([]any, 0, len(d.Bag))
		for _, item := range d.Bag {
			bag = append(bag, map[string]any{"id": item.ID, "type": item.Type})
		}
		dogs[idKey(d.ID)] = map[string]any{
			"pos":   vec(d.Position),
			"speed": vec(d.Velocity),
			"dir":   string(d.Direction),
			"bag":   bag,
			"score": d.Score,
		}
	}

	objects := make(map[string]any, len(out.LostObjects))
	for _, obj := range out.LostObjects {
		objects[idKey(obj.ID)] = map[string]any{
			"type": obj.Type,
			"pos":  vec(obj.Position),
		}
	}

	return map[string]any{
		"players":     dogs,
		"lostObjects": objects,
	}
}
