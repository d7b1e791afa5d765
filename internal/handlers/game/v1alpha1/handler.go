// Package v1alpha1 exposes the gameplay orchestrator as a gRPC service
package v1alpha1

import (
	"context"
	"strings"
	"time"

	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/KirkDiggler/dogstory-api/internal/errors"
	"github.com/KirkDiggler/dogstory-api/internal/orchestrators/gameplay"
)

const (
	authorizationHeader = "authorization"
	bearerPrefix        = "bearer "
)

// HandlerConfig holds dependencies for the game handler
type HandlerConfig struct {
	Service gameplay.Service
	// ManualTick enables the Tick method. It is disabled when the server ticks on its own.
	ManualTick bool
}

// Validate ensures all required dependencies are present
func (c *HandlerConfig) Validate() error {
	if c.Service == nil {
		return errors.InvalidArgument("gameplay service is required")
	}
	return nil
}

// Handler implements GameServiceServer
type Handler struct {
	service    gameplay.Service
	manualTick bool
}

var _ GameServiceServer = (*Handler)(nil)

// NewHandler creates a new game handler with the given configuration
func NewHandler(cfg *HandlerConfig) (*Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Handler{service: cfg.Service, manualTick: cfg.ManualTick}, nil
}

// ListMaps returns {"maps": [{"id", "name"}]}
func (h *Handler) ListMaps(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	out, err := h.service.ListMaps(ctx)
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}
	maps := make([]any, 0, len(out.Maps))
	for _, m := range out.Maps {
		maps = append(maps, map[string]any{"id": m.ID, "name": m.Name})
	}
	return respond(map[string]any{"maps": maps})
}

// GetMap returns the full map for {"mapId"}
func (h *Handler) GetMap(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	mapID, err := stringField(req, "mapId", true)
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}
	out, err := h.service.GetMap(ctx, &gameplay.GetMapInput{MapID: mapID})
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}
	return respond(mapToFields(out.Map))
}

// Join creates a player from {"userName", "mapId"}
func (h *Handler) Join(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name, err := stringField(req, "userName", true)
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}
	mapID, err := stringField(req, "mapId", true)
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}

	out, err := h.service.Join(ctx, &gameplay.JoinInput{Name: name, MapID: mapID})
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}
	return respond(map[string]any{
		"authToken": out.Token,
		"playerId":  out.PlayerID,
	})
}

// ListPlayers returns the players of the caller's session keyed by id
func (h *Handler) ListPlayers(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	token, err := bearerToken(ctx)
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}
	out, err := h.service.ListPlayers(ctx, &gameplay.ListPlayersInput{Token: token})
	if err != nil {
		return nil, errors.ToGRPCError(authError(err))
	}

	list := make(map[string]any, len(out.Players))
	for _, p := range out.Players {
		list[idKey(p.ID)] = map[string]any{"name": p.Name}
	}
	return respond(map[string]any{"players": list})
}

// GetState returns dogs and lost objects of the caller's session
func (h *Handler) GetState(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	token, err := bearerToken(ctx)
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}
	out, err := h.service.GetState(ctx, &gameplay.GetStateInput{Token: token})
	if err != nil {
		return nil, errors.ToGRPCError(authError(err))
	}
	return respond(stateToFields(out))
}

// Move steers the caller's dog with {"move": "U"|"D"|"L"|"R"|""}
func (h *Handler) Move(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	token, err := bearerToken(ctx)
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}
	move, err := stringField(req, "move", false)
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}

	if _, err := h.service.Move(ctx, &gameplay.MoveInput{Token: token, Move: move}); err != nil {
		return nil, errors.ToGRPCError(authError(err))
	}
	return respond(map[string]any{})
}

// Tick advances the game by {"timeDelta": milliseconds}
func (h *Handler) Tick(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if !h.manualTick {
		return nil, errors.ToGRPCError(errors.FailedPrecondition("ticks are driven by the server").
			WithMeta("reason", "badRequest"))
	}
	delta, err := intField(req, "timeDelta", true)
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}

	out, err := h.service.Tick(ctx, &gameplay.TickInput{Delta: time.Duration(delta) * time.Millisecond})
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}
	return respond(map[string]any{
		"nowMs":   out.Now.Milliseconds(),
		"retired": len(out.Retired),
		"saved":   out.Saved,
	})
}

// Records returns one page of the leaderboard for {"start", "maxItems"}
func (h *Handler) Records(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	start, err := intField(req, "start", false)
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}
	maxItems, err := intField(req, "maxItems", false)
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}

	out, err := h.service.Records(ctx, &gameplay.RecordsInput{Offset: start, Limit: maxItems})
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}
	records := make([]any, 0, len(out.Records))
	for _, rec := range out.Records {
		records = append(records, map[string]any{
			"name":     rec.Name,
			"score":    rec.Score,
			"playTime": rec.PlayTime.Seconds(),
		})
	}
	return respond(map[string]any{"records": records})
}

// bearerToken reads "Bearer <token>" from the authorization metadata
func bearerToken(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", errors.Unauthenticated("authorization is missing").WithMeta("reason", "invalidToken")
	}
	values := md.Get(authorizationHeader)
	if len(values) == 0 {
		return "", errors.Unauthenticated("authorization is missing").WithMeta("reason", "invalidToken")
	}
	value := strings.TrimSpace(values[0])
	if len(value) < len(bearerPrefix) || !strings.EqualFold(value[:len(bearerPrefix)], bearerPrefix) {
		return "", errors.Unauthenticated("authorization must be a bearer token").WithMeta("reason", "invalidToken")
	}
	return strings.TrimSpace(value[len(bearerPrefix):]), nil
}

// authError reports unknown tokens as authentication failures
func authError(err error) error {
	if errors.IsNotFound(err) && errors.GetMeta(err)["reason"] == "unknownToken" {
		return errors.Unauthenticated(errors.GetMessage(err)).WithMeta("reason", "unknownToken")
	}
	return err
}

func respond(fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, errors.ToGRPCError(errors.Wrap(err, "failed to encode response"))
	}
	return out, nil
}
