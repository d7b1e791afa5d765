package v1alpha1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "dogstory.game.v1alpha1.GameService"

// Full method names
const (
	GameServiceListMapsMethod    = "/" + ServiceName + "/ListMaps"
	GameServiceGetMapMethod      = "/" + ServiceName + "/GetMap"
	GameServiceJoinMethod        = "/" + ServiceName + "/Join"
	GameServiceListPlayersMethod = "/" + ServiceName + "/ListPlayers"
	GameServiceGetStateMethod    = "/" + ServiceName + "/GetState"
	GameServiceMoveMethod        = "/" + ServiceName + "/Move"
	GameServiceTickMethod        = "/" + ServiceName + "/Tick"
	GameServiceRecordsMethod     = "/" + ServiceName + "/Records"
)

// GameServiceServer is the server API of the game service.
// Requests and responses are JSON-shaped structs.
type GameServiceServer interface {
	ListMaps(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetMap(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Join(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListPlayers(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetState(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Move(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Tick(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Records(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(GameServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(GameServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(GameServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// GameServiceDesc describes the game service for grpc.Server.RegisterService
var GameServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GameServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListMaps", Handler: unaryHandler(GameServiceListMapsMethod, GameServiceServer.ListMaps)},
		{MethodName: "GetMap", Handler: unaryHandler(GameServiceGetMapMethod, GameServiceServer.GetMap)},
		{MethodName: "Join", Handler: unaryHandler(GameServiceJoinMethod, GameServiceServer.Join)},
		{MethodName: "ListPlayers", Handler: unaryHandler(GameServiceListPlayersMethod, GameServiceServer.ListPlayers)},
		{MethodName: "GetState", Handler: unaryHandler(GameServiceGetStateMethod, GameServiceServer.GetState)},
		{MethodName: "Move", Handler: unaryHandler(GameServiceMoveMethod, GameServiceServer.Move)},
		{MethodName: "Tick", Handler: unaryHandler(GameServiceTickMethod, GameServiceServer.Tick)},
		{MethodName: "Records", Handler: unaryHandler(GameServiceRecordsMethod, GameServiceServer.Records)},
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterGameServiceServer registers srv on s
func RegisterGameServiceServer(s grpc.ServiceRegistrar, srv GameServiceServer) {
	s.RegisterService(&GameServiceDesc, srv)
}

// GameServiceClient calls the game service
type GameServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewGameServiceClient creates a client over cc
func NewGameServiceClient(cc grpc.ClientConnInterface) *GameServiceClient {
	return &GameServiceClient{cc: cc}
}

// Call invokes one of the GameService*Method names
func (c *GameServiceClient) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if req == nil {
		req = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
