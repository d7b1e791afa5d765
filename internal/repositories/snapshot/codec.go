package snapshot

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/KirkDiggler/dogstory-api/internal/engine/game"
	"github.com/KirkDiggler/dogstory-api/internal/entities/world"
	"github.com/KirkDiggler/dogstory-api/internal/errors"
	"github.com/KirkDiggler/dogstory-api/internal/repositories/leaderboard"
	"github.com/KirkDiggler/dogstory-api/internal/services/players"
)

// FormatVersion is bumped whenever the encoded layout changes incompatibly
const FormatVersion = 2

type snapshotData struct {
	Version   int           `msgpack:"version"`
	SavedAt   time.Time     `msgpack:"saved_at"`
	Now       time.Duration `msgpack:"now_ns"`
	NextDogID uint64        `msgpack:"next_dog_id"`
	Sessions  []sessionData `msgpack:"sessions"`
	Players   []playerData  `msgpack:"players"`
	Pending   []recordData  `msgpack:"pending"`
}

type sessionData struct {
	MapID           string        `msgpack:"map_id"`
	NextItemID      uint64        `msgpack:"next_item_id"`
	TimeWithoutLoot time.Duration `msgpack:"time_without_loot_ns"`
	Dogs            []dogData     `msgpack:"dogs"`
	LostObjects     []objectData  `msgpack:"lost_objects"`
}

type dogData struct {
	ID            uint64        `msgpack:"id"`
	Name          string        `msgpack:"name"`
	Position      [2]float64    `msgpack:"pos"`
	StartPosition [2]float64    `msgpack:"start_pos"`
	Velocity      [2]float64    `msgpack:"speed"`
	Direction     string        `msgpack:"dir"`
	Bag           []bagItemData `msgpack:"bag"`
	BagCapacity   int           `msgpack:"bag_capacity"`
	Score         int           `msgpack:"score"`
	Value         int           `msgpack:"value"`
	CreatedAt     time.Duration `msgpack:"created_at_ns"`
	Idle          bool          `msgpack:"idle"`
	IdleSince     time.Duration `msgpack:"idle_since_ns"`
	Retired       bool          `msgpack:"retired"`
	PlayTime      time.Duration `msgpack:"play_time_ns"`
	Reported      bool          `msgpack:"reported"`
}

type bagItemData struct {
	ID   uint64 `msgpack:"id"`
	Type int    `msgpack:"type"`
}

type objectData struct {
	ID       uint64     `msgpack:"id"`
	Type     int        `msgpack:"type"`
	Position [2]float64 `msgpack:"pos"`
}

type playerData struct {
	Token string `msgpack:"token"`
	DogID uint64 `msgpack:"dog_id"`
	MapID string `msgpack:"map_id"`
}

type recordData struct {
	ID       string        `msgpack:"id"`
	Name     string        `msgpack:"name"`
	Score    int           `msgpack:"score"`
	PlayTime time.Duration `msgpack:"play_time_ns"`
}

// Encode serializes a snapshot
func Encode(snap *Snapshot) ([]byte, error) {
	if snap == nil {
		return nil, errors.InvalidArgument("snapshot cannot be nil")
	}

	data := snapshotData{
		Version:   FormatVersion,
		SavedAt:   snap.SavedAt.UTC(),
		Now:       snap.Game.Now,
		NextDogID: snap.Game.NextDogID,
		Sessions:  make([]sessionData, 0, len(snap.Game.Sessions)),
		Players:   make([]playerData, 0, len(snap.Players)),
		Pending:   make([]recordData, 0, len(snap.Pending)),
	}
	for _, s := range snap.Game.Sessions {
		data.Sessions = append(data.Sessions, toSessionData(s))
	}
	for _, p := range snap.Players {
		data.Players = append(data.Players, playerData{Token: p.Token, DogID: p.DogID, MapID: p.MapID})
	}
	for _, rec := range snap.Pending {
		data.Pending = append(data.Pending, recordData{
			ID:       rec.ID,
			Name:     rec.Name,
			Score:    rec.Score,
			PlayTime: rec.PlayTime,
		})
	}

	b, err := msgpack.Marshal(&data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode snapshot")
	}
	return b, nil
}

// Decode parses bytes produced by Encode
func Decode(b []byte) (*Snapshot, error) {
	var data snapshotData
	if err := msgpack.Unmarshal(b, &data); err != nil {
		return nil, errors.CorruptSnapshot("snapshot cannot be decoded: %v", err)
	}
	if data.Version != FormatVersion {
		return nil, errors.CorruptSnapshot("snapshot format version %d is not supported", data.Version)
	}

	snap := &Snapshot{
		SavedAt: data.SavedAt,
		Game: game.State{
			Now:       data.Now,
			NextDogID: data.NextDogID,
			Sessions:  make([]game.SessionState, 0, len(data.Sessions)),
		},
		Players: make([]players.Player, 0, len(data.Players)),
		Pending: make([]leaderboard.Record, 0, len(data.Pending)),
	}
	for _, s := range data.Sessions {
		st, err := fromSessionData(s)
		if err != nil {
			return nil, err
		}
		snap.Game.Sessions = append(snap.Game.Sessions, st)
	}
	for _, p := range data.Players {
		snap.Players = append(snap.Players, players.Player{Token: p.Token, DogID: p.DogID, MapID: p.MapID})
	}
	for _, rec := range data.Pending {
		snap.Pending = append(snap.Pending, leaderboard.Record{
			ID:       rec.ID,
			Name:     rec.Name,
			Score:    rec.Score,
			PlayTime: rec.PlayTime,
		})
	}
	return snap, nil
}

func toSessionData(s game.SessionState) sessionData {
	out := sessionData{
		MapID:           s.MapID,
		NextItemID:      s.NextItemID,
		TimeWithoutLoot: s.TimeWithoutLoot,
		Dogs:            make([]dogData, 0, len(s.Dogs)),
		LostObjects:     make([]objectData, 0, len(s.LostObjects)),
	}
	for _, d := range s.Dogs {
		dog := dogData{
			ID:            d.ID,
			Name:          d.Name,
			Position:      d.Position,
			StartPosition: d.StartPosition,
			Velocity:      d.Velocity,
			Direction:     string(d.Direction),
			Bag:           make([]bagItemData, 0, len(d.Bag)),
			BagCapacity:   d.BagCapacity,
			Score:         d.Score,
			Value:         d.Value,
			CreatedAt:     d.CreatedAt,
			Idle:          d.Idle,
			IdleSince:     d.IdleSince,
			Retired:       d.Retired,
			PlayTime:      d.PlayTime,
			Reported:      d.Reported,
		}
		for _, item := range d.Bag {
			dog.Bag = append(dog.Bag, bagItemData{ID: item.ID, Type: item.Type})
		}
		out.Dogs = append(out.Dogs, dog)
	}
	for _, obj := range s.LostObjects {
		out.LostObjects = append(out.LostObjects, objectData{ID: obj.ID, Type: obj.Type, Position: obj.Position})
	}
	return out
}

func fromSessionData(s sessionData) (game.SessionState, error) {
	out := game.SessionState{
		MapID:           s.MapID,
		NextItemID:      s.NextItemID,
		TimeWithoutLoot: s.TimeWithoutLoot,
		Dogs:            make([]world.Dog, 0, len(s.Dogs)),
		LostObjects:     make([]world.LostObject, 0, len(s.LostObjects)),
	}
	if s.MapID == "" {
		return out, errors.CorruptSnapshot("snapshot has a session without a map id")
	}
	for _, d := range s.Dogs {
		dir := world.Direction(d.Direction)
		switch dir {
		case world.DirectionNorth, world.DirectionSouth, world.DirectionWest, world.DirectionEast:
		default:
			return out, errors.CorruptSnapshot("dog %d has unknown direction %q", d.ID, d.Direction)
		}
		if d.BagCapacity < 0 || len(d.Bag) > d.BagCapacity {
			return out, errors.CorruptSnapshot("dog %d carries %d items with capacity %d", d.ID, len(d.Bag), d.BagCapacity)
		}
		dog := world.Dog{
			ID:            d.ID,
			Name:          d.Name,
			Position:      mgl64.Vec2(d.Position),
			StartPosition: mgl64.Vec2(d.StartPosition),
			Velocity:      mgl64.Vec2(d.Velocity),
			Direction:     dir,
			Bag:           make([]world.BagItem, 0, len(d.Bag)),
			BagCapacity:   d.BagCapacity,
			Score:         d.Score,
			Value:         d.Value,
			CreatedAt:     d.CreatedAt,
			Idle:          d.Idle,
			IdleSince:     d.IdleSince,
			Retired:       d.Retired,
			PlayTime:      d.PlayTime,
			Reported:      d.Reported,
		}
		for _, item := range d.Bag {
			dog.Bag = append(dog.Bag, world.BagItem{ID: item.ID, Type: item.Type})
		}
		out.Dogs = append(out.Dogs, dog)
	}
	for _, obj := range s.LostObjects {
		out.LostObjects = append(out.LostObjects, world.LostObject{
			ID:       obj.ID,
			Type:     obj.Type,
			Position: mgl64.Vec2(obj.Position),
		})
	}
	return out, nil
}
