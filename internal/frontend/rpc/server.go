package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/hangman/internal/config"
	"github.com/cory-johannsen/hangman/internal/gameserver"
)

// Hub is the request dispatcher behind every stream.
type Hub interface {
	Connect() *gameserver.Mailbox
	Disconnect(id string)
	HandleMessage(id string, raw []byte)
}

// Server serves GameService on a gRPC listener.
type Server struct {
	cfg    config.GRPCConfig
	limits config.LimitsConfig
	hub    Hub
	logger *zap.Logger
	grpc   *grpc.Server

	mu       sync.Mutex
	listener net.Listener
	ready    chan struct{}
	once     sync.Once
}

// NewServer creates a gRPC server with GameService registered.
//
// Precondition: hub and logger must be non-nil.
func NewServer(cfg config.GRPCConfig, limits config.LimitsConfig, hub Hub, logger *zap.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		limits: limits,
		hub:    hub,
		logger: logger,
		grpc:   grpc.NewServer(),
		ready:  make(chan struct{}),
	}
	RegisterGameServiceServer(s.grpc, s)
	return s
}

// Start listens on the configured address and serves until Stop is called.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr(), err)
	}
	return s.Serve(lis)
}

// Serve accepts streams on lis until Stop is called.
//
// Postcondition: Returns nil after Stop, or the serve error.
func (s *Server) Serve(lis net.Listener) error {
	s.mu.Lock()
	s.listener = lis
	s.mu.Unlock()
	s.once.Do(func() { close(s.ready) })

	s.logger.Info("grpc server listening", zap.String("addr", lis.Addr().String()))
	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serving grpc: %w", err)
	}
	return nil
}

// Stop drains in-flight streams for up to five seconds, then closes the rest.
func (s *Server) Stop() {
	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		s.logger.Warn("grpc graceful stop timed out, closing streams")
		s.grpc.Stop()
		<-done
	}
}

// Addr blocks until Serve is running and returns the bound address.
func (s *Server) Addr() net.Addr {
	<-s.ready
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener.Addr()
}

// Play implements GameServiceServer. Inbound Structs are decoded as
// envelopes; everything the hub sends the participant is streamed back.
//
// Postcondition: The participant is disconnected from the hub before Play returns.
func (s *Server) Play(stream GameService_PlayServer) error {
	box := s.hub.Connect()
	id := box.ID()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.forward(stream, box)
	}()
	defer func() {
		s.hub.Disconnect(id)
		<-done
	}()

	limiter := rate.NewLimiter(rate.Limit(s.limits.MessagesPerSecond), s.limits.Burst)
	for {
		in, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if status.Code(err) == codes.Canceled {
				return nil
			}
			return err
		}
		if !limiter.Allow() {
			s.logger.Debug("dropping rate-limited frame", zap.String("conn_id", id))
			continue
		}
		raw, err := protojson.Marshal(in)
		if err != nil {
			s.logger.Debug("ignoring unencodable frame", zap.String("conn_id", id), zap.Error(err))
			continue
		}
		s.hub.HandleMessage(id, raw)
	}
}

// forward is the only goroutine that sends on stream. It drains box until
// the hub closes it, discarding messages once a send has failed.
func (s *Server) forward(stream GameService_PlayServer, box *gameserver.Mailbox) {
	broken := false
	for msg := range box.Out() {
		if broken {
			continue
		}
		out, err := toStruct(msg)
		if err != nil {
			s.logger.Error("encoding outbound message", zap.String("conn_id", box.ID()), zap.Error(err))
			continue
		}
		if err := stream.Send(out); err != nil {
			s.logger.Debug("grpc send failed", zap.String("conn_id", box.ID()), zap.Error(err))
			broken = true
		}
	}
}

// toStruct converts a hub message to its envelope Struct.
func toStruct(msg gameserver.Message) (*structpb.Struct, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s message: %w", msg.Type, err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("converting %s message: %w", msg.Type, err)
	}
	return out, nil
}
