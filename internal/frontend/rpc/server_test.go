package rpc

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/hangman/internal/config"
	"github.com/cory-johannsen/hangman/internal/game/session"
	"github.com/cory-johannsen/hangman/internal/gameserver"
)

var testLimits = config.LimitsConfig{MessagesPerSecond: 100, Burst: 100, OutboxSize: 64}

func newHub(t *testing.T) *gameserver.Hub {
	t.Helper()
	var n atomic.Int64
	hub := gameserver.NewHub(zaptest.NewLogger(t), gameserver.Settings{
		Word:               "CAT",
		DefaultMaxWrong:    6,
		DefaultTurnSeconds: 20,
		MaxWrongLimit:      26,
		TurnSecondsLimit:   300,
		HostName:           "Host",
		PlayerName:         "Player",
		NameMaxLength:      24,
		MaxRooms:           10,
		CodeLength:         5,
		Policy:             session.Policy{FreezeWhenFinished: true},
		OutboxSize:         64,
	}, gameserver.WithIDGenerator(func() string { return fmt.Sprintf("c%d", n.Add(1)) }))
	t.Cleanup(hub.Close)
	return hub
}

// testGRPCServer serves GameService over an in-memory listener and returns a client.
func testGRPCServer(t *testing.T, limits config.LimitsConfig) (GameServiceClient, *gameserver.Hub) {
	t.Helper()
	hub := newHub(t)
	srv := NewServer(config.GRPCConfig{}, limits, hub, zaptest.NewLogger(t))

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewGameServiceClient(conn), hub
}

func play(t *testing.T, client GameServiceClient) GameService_PlayClient {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	stream, err := client.Play(ctx)
	require.NoError(t, err)
	return stream
}

func send(t *testing.T, stream GameService_PlayClient, typ string, payload map[string]any) {
	t.Helper()
	fields := map[string]any{"type": typ}
	if payload != nil {
		fields["payload"] = payload
	}
	msg, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	require.NoError(t, stream.Send(msg))
}

func recv(t *testing.T, stream GameService_PlayClient) (string, *structpb.Value) {
	t.Helper()
	msg, err := stream.Recv()
	require.NoError(t, err)
	return msg.GetFields()["type"].GetStringValue(), msg.GetFields()["payload"]
}

func recvState(t *testing.T, stream GameService_PlayClient) map[string]*structpb.Value {
	t.Helper()
	typ, payload := recv(t, stream)
	require.Equal(t, gameserver.TypeSnapshot, typ)
	return payload.GetStructValue().GetFields()
}

func TestPlay_CreateJoinGuess(t *testing.T) {
	client, _ := testGRPCServer(t, testLimits)
	alice := play(t, client)
	bob := play(t, client)

	send(t, alice, gameserver.TypeCreate, map[string]any{"name": "Alice", "maxWrong": 4})
	state := recvState(t, alice)
	assert.Equal(t, "_ _ _", state["word"].GetStringValue())
	assert.Equal(t, float64(4), state["maxWrong"].GetNumberValue())
	typ, payload := recv(t, alice)
	require.Equal(t, gameserver.TypeRoomCreated, typ)
	code := payload.GetStringValue()
	assert.Equal(t, state["roomCode"].GetStringValue(), code)

	send(t, bob, gameserver.TypeJoin, map[string]any{"roomCode": strings.ToLower(code), "name": "Bob"})
	assert.Len(t, recvState(t, bob)["players"].GetListValue().GetValues(), 2)
	recvState(t, alice)

	send(t, alice, gameserver.TypeStartGame, nil)
	assert.Equal(t, "playing", recvState(t, alice)["status"].GetStringValue())
	recvState(t, bob)

	send(t, alice, gameserver.TypeGuess, map[string]any{"letter": "t"})
	assert.Equal(t, "_ _ T", recvState(t, bob)["word"].GetStringValue())
	recvState(t, alice)

	require.NoError(t, bob.CloseSend())
	state = recvState(t, alice)
	assert.Len(t, state["players"].GetListValue().GetValues(), 1)
}

func TestPlay_ErrorAndUnknownTypes(t *testing.T) {
	client, _ := testGRPCServer(t, testLimits)
	stream := play(t, client)

	send(t, stream, "dance", nil)
	send(t, stream, gameserver.TypeState, nil)
	typ, payload := recv(t, stream)
	assert.Equal(t, gameserver.TypeError, typ)
	assert.Equal(t, "room not found", payload.GetStringValue())
}

func TestPlay_StreamEndDisconnects(t *testing.T) {
	client, hub := testGRPCServer(t, testLimits)
	ctx, cancel := context.WithCancel(context.Background())
	stream, err := client.Play(ctx)
	require.NoError(t, err)

	send(t, stream, gameserver.TypeCreate, nil)
	recvState(t, stream)
	require.Equal(t, 1, hub.RoomCount())

	cancel()
	assert.Eventually(t, func() bool { return hub.RoomCount() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestPlay_RateLimit(t *testing.T) {
	client, _ := testGRPCServer(t, config.LimitsConfig{MessagesPerSecond: 0.01, Burst: 1, OutboxSize: 64})
	stream := play(t, client)

	send(t, stream, gameserver.TypeState, nil)
	send(t, stream, gameserver.TypeCreate, nil)
	typ, _ := recv(t, stream)
	assert.Equal(t, gameserver.TypeError, typ)

	require.NoError(t, stream.CloseSend())
	_, err := stream.Recv()
	assert.Error(t, err, "the dropped create produced nothing")
}

func TestServer_StartStop(t *testing.T) {
	srv := NewServer(config.GRPCConfig{Host: "127.0.0.1", Port: 0}, testLimits, newHub(t), zaptest.NewLogger(t))
	done := make(chan error, 1)
	go func() { done <- srv.Start() }()
	require.NotEmpty(t, srv.Addr().String())

	srv.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(6 * time.Second):
		t.Fatal("server did not stop")
	}
}
