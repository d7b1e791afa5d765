// Package gameplay is the application facade of the game server: it turns
// already-decoded requests into calls on the game registry, the player
// registry, the leaderboard and the snapshot store.
package gameplay

//go:generate mockgen -destination=mock/mock_service.go -package=gameplaymock github.com/KirkDiggler/dogstory-api/internal/orchestrators/gameplay Service

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/KirkDiggler/rpg-toolkit/events"
	"github.com/cenkalti/backoff/v5"

	"github.com/KirkDiggler/dogstory-api/internal/engine/game"
	"github.com/KirkDiggler/dogstory-api/internal/entities/world"
	"github.com/KirkDiggler/dogstory-api/internal/errors"
	"github.com/KirkDiggler/dogstory-api/internal/pkg/clock"
	"github.com/KirkDiggler/dogstory-api/internal/pkg/idgen"
	"github.com/KirkDiggler/dogstory-api/internal/repositories/leaderboard"
	"github.com/KirkDiggler/dogstory-api/internal/repositories/snapshot"
	"github.com/KirkDiggler/dogstory-api/internal/services/players"
)

// Events published on the bus
const (
	EventDogJoined     = "dog.joined"
	EventLootSpawned   = "loot.spawned"
	EventLootCollected = "loot.collected"
	EventLootDelivered = "loot.delivered"
	EventDogRetired    = "dog.retired"
)

// Defaults for optional settings
const (
	DefaultRetryAttempts = 3
	DefaultRetryInterval = 100 * time.Millisecond
)

// Service defines the game operations exposed to transports
type Service interface {
	ListMaps(ctx context.Context) (*ListMapsOutput, error)
	GetMap(ctx context.Context, input *GetMapInput) (*GetMapOutput, error)
	Join(ctx context.Context, input *JoinInput) (*JoinOutput, error)
	ListPlayers(ctx context.Context, input *ListPlayersInput) (*ListPlayersOutput, error)
	GetState(ctx context.Context, input *GetStateInput) (*GetStateOutput, error)
	Move(ctx context.Context, input *MoveInput) (*MoveOutput, error)
	Tick(ctx context.Context, input *TickInput) (*TickOutput, error)
	Records(ctx context.Context, input *RecordsInput) (*RecordsOutput, error)

	// SaveState writes a snapshot. It fails with FailedPrecondition when no store is configured.
	SaveState(ctx context.Context) error
	// RestoreState loads the stored snapshot, replacing the live game.
	// Returns NotFound when nothing was saved yet and a CorruptSnapshot error
	// when the snapshot cannot be applied.
	RestoreState(ctx context.Context) error
}

// Config holds the dependencies for the gameplay orchestrator
type Config struct {
	Game        *game.Registry
	Players     *players.Registry
	Leaderboard leaderboard.Repository

	// Snapshots is optional. Without it the game is never saved.
	Snapshots snapshot.Store
	// SavePeriod is the game time between automatic saves; zero saves only on request
	SavePeriod time.Duration

	RandomizeSpawn bool

	// Optional, defaults are used when unset
	EventBus      events.EventBus
	RecordIDs     idgen.Generator
	Clock         clock.Clock
	RetryAttempts uint
	RetryInterval time.Duration
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.Game == nil {
		vb.RequiredField("Game")
	}
	if c.Players == nil {
		vb.RequiredField("Players")
	}
	if c.Leaderboard == nil {
		vb.RequiredField("Leaderboard")
	}
	errors.ValidateNonNegative("SavePeriod", c.SavePeriod, vb)
	errors.ValidateNonNegative("RetryInterval", c.RetryInterval, vb)

	return vb.Build()
}

type orchestrator struct {
	game        *game.Registry
	players     *players.Registry
	leaderboard leaderboard.Repository
	snapshots   snapshot.Store
	eventBus    events.EventBus
	recordIDs   idgen.Generator
	clock       clock.Clock

	savePeriod     time.Duration
	randomizeSpawn bool
	retryAttempts  uint
	retryInterval  time.Duration

	// mu serializes everything that changes which dogs and players exist:
	// join, tick, save and restore
	mu        sync.Mutex
	pending   []leaderboard.Record
	sinceSave time.Duration
}

// NewOrchestrator creates a new gameplay orchestrator with the provided dependencies
func NewOrchestrator(cfg *Config) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	o := &orchestrator{
		game:           cfg.Game,
		players:        cfg.Players,
		leaderboard:    cfg.Leaderboard,
		snapshots:      cfg.Snapshots,
		eventBus:       cfg.EventBus,
		recordIDs:      cfg.RecordIDs,
		clock:          cfg.Clock,
		savePeriod:     cfg.SavePeriod,
		randomizeSpawn: cfg.RandomizeSpawn,
		retryAttempts:  cfg.RetryAttempts,
		retryInterval:  cfg.RetryInterval,
	}
	if o.eventBus == nil {
		o.eventBus = events.NewBus()
	}
	if o.recordIDs == nil {
		o.recordIDs = idgen.NewUUID("")
	}
	if o.clock == nil {
		o.clock = clock.New()
	}
	if o.retryAttempts == 0 {
		o.retryAttempts = DefaultRetryAttempts
	}
	if o.retryInterval == 0 {
		o.retryInterval = DefaultRetryInterval
	}
	return o, nil
}

func (o *orchestrator) ListMaps(_ context.Context) (*ListMapsOutput, error) {
	maps := o.game.Catalog().Maps()
	out := &ListMapsOutput{Maps: make([]MapSummary, 0, len(maps))}
	for _, m := range maps {
		out.Maps = append(out.Maps, MapSummary{ID: m.ID, Name: m.Name})
	}
	return out, nil
}

func (o *orchestrator) GetMap(_ context.Context, input *GetMapInput) (*GetMapOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	m, ok := o.game.Catalog().FindMap(input.MapID)
	if !ok {
		return nil, errors.NotFoundf("map %q not found", input.MapID).WithMeta("reason", "mapNotFound")
	}
	return &GetMapOutput{Map: m}, nil
}

func (o *orchestrator) Join(ctx context.Context, input *JoinInput) (*JoinOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("Name", input.Name, vb)
	errors.ValidateRequired("MapID", input.MapID, vb)
	if err := vb.Build(); err != nil {
		return nil, err
	}
	if _, ok := o.game.Catalog().FindMap(input.MapID); !ok {
		return nil, errors.NotFoundf("map %q not found", input.MapID).WithMeta("reason", "mapNotFound")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	dog, err := o.game.Join(input.MapID, input.Name, o.randomizeSpawn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to join game")
	}
	token, err := o.players.Add(dog.ID, input.MapID)
	if err != nil {
		o.game.Leave(input.MapID, dog.ID)
		return nil, errors.Wrap(err, "failed to register player")
	}

	slog.InfoContext(ctx, "player joined",
		"dog_id", dog.ID,
		"map_id", input.MapID,
		"name", input.Name,
	)
	o.publish(ctx, events.NewGameEvent(EventDogJoined, dogEntity(input.MapID, dog.ID, dog.Name), nil))

	return &JoinOutput{Token: token, PlayerID: dog.ID}, nil
}

func (o *orchestrator) ListPlayers(_ context.Context, input *ListPlayersInput) (*ListPlayersOutput, error) {
	player, err := o.authorize(input.tokenOf())
	if err != nil {
		return nil, err
	}
	s, err := o.game.Session(player.MapID)
	if err != nil {
		return nil, err
	}

	list := o.players.Players(player.MapID)
	out := &ListPlayersOutput{Players: make([]PlayerInfo, 0, len(list))}
	for _, p := range list {
		dog, ok := s.Dog(p.DogID)
		if !ok {
			continue
		}
		out.Players = append(out.Players, PlayerInfo{ID: dog.ID, Name: dog.Name})
	}
	return out, nil
}

func (o *orchestrator) GetState(_ context.Context, input *GetStateInput) (*GetStateOutput, error) {
	player, err := o.authorize(input.tokenOf())
	if err != nil {
		return nil, err
	}
	s, err := o.game.Session(player.MapID)
	if err != nil {
		return nil, err
	}

	view := s.View()
	out := &GetStateOutput{
		Dogs:        make([]DogState, 0, len(view.Dogs)),
		LostObjects: view.LostObjects,
	}
	for _, dog := range view.Dogs {
		out.Dogs = append(out.Dogs, DogState{
			ID:        dog.ID,
			Position:  dog.Position,
			Velocity:  dog.Velocity,
			Direction: dog.Direction,
			Bag:       dog.Bag,
			Score:     dog.Score,
		})
	}
	return out, nil
}

func (o *orchestrator) Move(_ context.Context, input *MoveInput) (*MoveOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	cmd, ok := world.ParseMoveCommand(input.Move)
	if !ok {
		return nil, errors.InvalidArgumentf("invalid move %q, expected one of U, D, L, R or empty", input.Move)
	}
	player, err := o.authorize(input.Token)
	if err != nil {
		return nil, err
	}
	s, err := o.game.Session(player.MapID)
	if err != nil {
		return nil, err
	}
	if err := s.SetMove(player.DogID, cmd); err != nil {
		return nil, err
	}
	return &MoveOutput{}, nil
}

func (o *orchestrator) Tick(ctx context.Context, input *TickInput) (*TickOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	if input.Delta < 0 {
		return nil, errors.InvalidArgumentf("time delta must not be negative, got %s", input.Delta)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	reports, err := o.game.Tick(ctx, input.Delta)
	if err != nil {
		return nil, err
	}
	for _, report := range reports {
		o.publishReport(ctx, report)
	}

	retired := o.players.GetRetiredPlayers(ctx, o.game)
	out := &TickOutput{
		Now:     o.game.Now(),
		Reports: reports,
		Retired: make([]leaderboard.Record, 0, len(retired)),
	}
	for _, r := range retired {
		rec := leaderboard.Record{
			ID:       o.recordIDs.Generate(),
			Name:     r.Name,
			Score:    r.Score,
			PlayTime: r.PlayTime,
		}
		out.Retired = append(out.Retired, rec)
		o.pending = append(o.pending, rec)
	}
	flushErr := o.flushPendingLocked(ctx)

	if o.snapshots != nil && o.savePeriod > 0 {
		o.sinceSave += input.Delta
		if o.sinceSave >= o.savePeriod {
			if err := o.saveLocked(ctx); err != nil {
				if flushErr != nil {
					slog.ErrorContext(ctx, "autosave failed", "error", err)
					return nil, flushErr
				}
				return nil, errors.Wrap(err, "autosave failed")
			}
			o.sinceSave = 0
			out.Saved = true
		}
	}

	if flushErr != nil {
		return nil, flushErr
	}
	return out, nil
}

// flushPendingLocked writes pending records to the leaderboard, retrying
// transient failures. Records that could not be written stay pending.
func (o *orchestrator) flushPendingLocked(ctx context.Context) error {
	if len(o.pending) == 0 {
		return nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = o.retryInterval
	expo.MaxInterval = 10 * o.retryInterval

	records := append([]leaderboard.Record(nil), o.pending...)
	_, err := backoff.Retry(ctx, func() (*leaderboard.SaveOutput, error) {
		out, err := o.leaderboard.Save(ctx, leaderboard.SaveInput{Records: records})
		if err != nil && !errors.IsRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		return out, err
	},
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(o.retryAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.WarnContext(ctx, "leaderboard write failed, retrying",
				"records", len(records),
				"retry_in", next,
				"error", err,
			)
		}),
	)
	if err != nil {
		slog.ErrorContext(ctx, "leaderboard write failed",
			"pending", len(o.pending),
			"error", err,
		)
		return errors.Wrapf(err, "failed to save %d retired players", len(records))
	}

	o.pending = nil
	return nil
}

func (o *orchestrator) Records(ctx context.Context, input *RecordsInput) (*RecordsOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	limit := input.Limit
	if limit == 0 {
		limit = leaderboard.MaxListLimit
	}
	vb := errors.NewValidationBuilder()
	errors.ValidateNonNegative("Offset", input.Offset, vb)
	errors.ValidateRange("Limit", limit, 1, leaderboard.MaxListLimit, vb)
	if err := vb.Build(); err != nil {
		return nil, err
	}

	out, err := o.leaderboard.List(ctx, leaderboard.ListInput{Offset: input.Offset, Limit: limit})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list records")
	}
	return &RecordsOutput{Records: out.Records}, nil
}

func (o *orchestrator) SaveState(ctx context.Context) error {
	if o.snapshots == nil {
		return errors.FailedPrecondition("no snapshot store configured")
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.saveLocked(ctx); err != nil {
		return err
	}
	o.sinceSave = 0
	return nil
}

func (o *orchestrator) saveLocked(ctx context.Context) error {
	snap := &snapshot.Snapshot{
		SavedAt: o.clock.Now(),
		Game:    o.game.Export(),
		Players: o.players.Export(),
		Pending: append([]leaderboard.Record(nil), o.pending...),
	}
	if err := o.snapshots.Save(ctx, snap); err != nil {
		return errors.Wrap(err, "failed to save snapshot")
	}

	slog.InfoContext(ctx, "snapshot saved",
		"sessions", len(snap.Game.Sessions),
		"players", len(snap.Players),
		"game_time", snap.Game.Now,
	)
	return nil
}

func (o *orchestrator) RestoreState(ctx context.Context) error {
	if o.snapshots == nil {
		return errors.FailedPrecondition("no snapshot store configured")
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	snap, err := o.snapshots.Load(ctx)
	if err != nil {
		return err
	}
	if err := o.checkPlayers(snap); err != nil {
		return err
	}
	if err := o.game.Import(snap.Game); err != nil {
		return err
	}
	if err := o.players.Import(snap.Players); err != nil {
		return err
	}
	o.pending = append([]leaderboard.Record(nil), snap.Pending...)
	o.sinceSave = 0

	slog.InfoContext(ctx, "snapshot restored",
		"saved_at", snap.SavedAt,
		"sessions", len(snap.Game.Sessions),
		"players", len(snap.Players),
		"pending_records", len(snap.Pending),
	)
	return nil
}

// checkPlayers makes sure every player has a well-formed unique token and
// points at a dog in the snapshot, so a bad snapshot is rejected before any
// live state is replaced
func (o *orchestrator) checkPlayers(snap *snapshot.Snapshot) error {
	dogs := make(map[string]map[uint64]struct{}, len(snap.Game.Sessions))
	for _, s := range snap.Game.Sessions {
		ids := make(map[uint64]struct{}, len(s.Dogs))
		for _, d := range s.Dogs {
			ids[d.ID] = struct{}{}
		}
		dogs[s.MapID] = ids
	}
	tokens := make(map[string]struct{}, len(snap.Players))
	for _, p := range snap.Players {
		if !idgen.IsValidToken(p.Token) {
			return errors.CorruptSnapshot("snapshot has malformed token for dog %d", p.DogID)
		}
		if _, dup := tokens[p.Token]; dup {
			return errors.CorruptSnapshot("snapshot has duplicate token for dog %d", p.DogID)
		}
		tokens[p.Token] = struct{}{}
		if _, ok := dogs[p.MapID][p.DogID]; !ok {
			return errors.CorruptSnapshot("player for dog %d references no dog on map %q", p.DogID, p.MapID)
		}
	}
	return nil
}

// authorize resolves a token. Malformed tokens are Unauthenticated, unknown ones NotFound.
func (o *orchestrator) authorize(token string) (players.Player, error) {
	token = strings.TrimSpace(token)
	if !idgen.IsValidToken(token) {
		return players.Player{}, errors.Unauthenticated("authorization token is missing or malformed").
			WithMeta("reason", "invalidToken")
	}
	p, ok := o.players.FindByToken(token)
	if !ok {
		return players.Player{}, errors.NotFound("player token has not been found").
			WithMeta("reason", "unknownToken")
	}
	return p, nil
}

func (o *orchestrator) publishReport(ctx context.Context, report game.TickReport) {
	for _, obj := range report.Spawned {
		o.publish(ctx, events.NewGameEvent(EventLootSpawned, nil, itemEntity(obj.ID, 0)))
	}
	for _, c := range report.Collected {
		o.publish(ctx, events.NewGameEvent(EventLootCollected,
			dogEntity(report.MapID, c.DogID, ""),
			itemEntity(c.Item.ID, c.Value),
		))
	}
	for _, d := range report.Delivered {
		o.publish(ctx, events.NewGameEvent(EventLootDelivered,
			dogEntity(report.MapID, d.DogID, ""),
			&world.ItemEntity{ID: d.OfficeID, Kind: world.EntityTypeOffice, Value: d.Value},
		))
	}
	for _, id := range report.Retired {
		o.publish(ctx, events.NewGameEvent(EventDogRetired, dogEntity(report.MapID, id, ""), nil))
	}
}

func (o *orchestrator) publish(ctx context.Context, event events.Event) {
	if err := o.eventBus.Publish(ctx, event); err != nil {
		slog.WarnContext(ctx, "event handler failed", "event", event.Type(), "error", err)
	}
}

func dogEntity(mapID string, id uint64, name string) *world.DogEntity {
	return &world.DogEntity{DogID: id, MapID: mapID, Name: name}
}

func itemEntity(id uint64, value int) *world.ItemEntity {
	return &world.ItemEntity{ID: strconv.FormatUint(id, 10), Kind: world.EntityTypeLoot, Value: value}
}

func (in *ListPlayersInput) tokenOf() string {
	if in == nil {
		return ""
	}
	return in.Token
}

func (in *GetStateInput) tokenOf() string {
	if in == nil {
		return ""
	}
	return in.Token
}
