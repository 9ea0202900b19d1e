// Package rpc exposes the game hub over a gRPC bidirectional stream.
//
// The service is described by api/proto/hangman/v1/game.proto. Its only
// message type is google.protobuf.Struct, so the descriptor is declared here
// directly instead of being generated.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "hangman.v1.GameService"

// PlayMethod is the full method path of the Play stream.
const PlayMethod = "/" + ServiceName + "/Play"

// GameServiceServer is the server API for GameService.
type GameServiceServer interface {
	Play(GameService_PlayServer) error
}

// GameService_PlayServer is the server side of a Play stream.
type GameService_PlayServer interface {
	Send(*structpb.Struct) error
	Recv() (*structpb.Struct, error)
	grpc.ServerStream
}

type playServer struct {
	grpc.ServerStream
}

func (s *playServer) Send(m *structpb.Struct) error {
	return s.ServerStream.SendMsg(m)
}

func (s *playServer) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := s.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func playHandler(srv any, stream grpc.ServerStream) error {
	return srv.(GameServiceServer).Play(&playServer{stream})
}

// ServiceDesc is the grpc.ServiceDesc for GameService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GameServiceServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Play",
			Handler:       playHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "hangman/v1/game.proto",
}

// RegisterGameServiceServer registers srv with s.
func RegisterGameServiceServer(s grpc.ServiceRegistrar, srv GameServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// GameService_PlayClient is the client side of a Play stream.
type GameService_PlayClient interface {
	Send(*structpb.Struct) error
	Recv() (*structpb.Struct, error)
	grpc.ClientStream
}

// GameServiceClient is the client API for GameService.
type GameServiceClient interface {
	Play(ctx context.Context, opts ...grpc.CallOption) (GameService_PlayClient, error)
}

type gameServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewGameServiceClient creates a client bound to cc.
func NewGameServiceClient(cc grpc.ClientConnInterface) GameServiceClient {
	return &gameServiceClient{cc: cc}
}

func (c *gameServiceClient) Play(ctx context.Context, opts ...grpc.CallOption) (GameService_PlayClient, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], PlayMethod, opts...)
	if err != nil {
		return nil, err
	}
	return &playClient{stream}, nil
}

type playClient struct {
	grpc.ClientStream
}

func (c *playClient) Send(m *structpb.Struct) error {
	return c.ClientStream.SendMsg(m)
}

func (c *playClient) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := c.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
