package main

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/hangman/internal/config"
	"github.com/cory-johannsen/hangman/internal/game/session"
	"github.com/cory-johannsen/hangman/internal/testutil"
)

func testAppConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Game.DefaultWord = "CAT"
	cfg.WebSocket.Host, cfg.WebSocket.Port = "127.0.0.1", 0
	cfg.Telnet.Host, cfg.Telnet.Port = "127.0.0.1", 0
	cfg.GRPC.Enabled = true
	cfg.GRPC.Host, cfg.GRPC.Port = "127.0.0.1", 0
	return cfg
}

func TestDevConfigLoads(t *testing.T) {
	cfg, err := config.Load("../../configs/dev.yaml")
	require.NoError(t, err)
	assert.Equal(t, "PROGRAMMATION", cfg.Game.DefaultWord)
	assert.True(t, cfg.Telnet.Enabled)
	assert.False(t, cfg.Database.Enabled)
}

func TestInitializeApp_DisabledListenersAreNil(t *testing.T) {
	cfg := testAppConfig(t)
	cfg.Telnet.Enabled = false
	cfg.GRPC.Enabled = false

	app, cleanup, err := initializeApp(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer cleanup()
	assert.NotNil(t, app.WebSocket)
	assert.Nil(t, app.Telnet)
	assert.Nil(t, app.RPC)
	app.Hub.Close()
}

// TestApp_TelnetAndWebSocketShareRooms plays one game with a Telnet host and
// a WebSocket guest, then shuts the server down.
func TestApp_TelnetAndWebSocketShareRooms(t *testing.T) {
	cfg := testAppConfig(t)
	app, cleanup, err := initializeApp(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	host := testutil.NewTelnetClient(t, app.Telnet.Addr())
	host.ReadUntil("Welcome to Hangman.", 2*time.Second)
	out := host.Command("create Alice", "created.")
	m := regexp.MustCompile(`Room ([A-Z0-9]+) created\.`).FindStringSubmatch(out)
	require.Len(t, m, 2, "room code in %q", out)
	code := m[1]

	guest, _, err := gorillaws.DefaultDialer.Dial("ws://"+app.WebSocket.Addr().String()+"/ws", nil)
	require.NoError(t, err)
	defer guest.Close()

	readState := func() session.Snapshot {
		t.Helper()
		require.NoError(t, guest.SetReadDeadline(time.Now().Add(3*time.Second)))
		var frame struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		require.NoError(t, guest.ReadJSON(&frame))
		require.Equal(t, "state", frame.Type)
		var snap session.Snapshot
		require.NoError(t, json.Unmarshal(frame.Payload, &snap))
		return snap
	}

	require.NoError(t, guest.WriteJSON(map[string]any{"type": "join", "payload": map[string]any{"roomCode": code, "name": "Bob"}}))
	assert.Len(t, readState().Players, 2)
	host.ReadUntil("Bob", 2*time.Second)

	host.Command("start", "Your turn: type a letter.")
	assert.Equal(t, session.StatusPlaying, readState().Status)

	host.Send("c")
	assert.Equal(t, "C _ _", readState().Word)

	require.NoError(t, guest.WriteJSON(map[string]any{"type": "guess", "payload": map[string]any{"letter": "a"}}))
	assert.Equal(t, "C A _", readState().Word)
	host.ReadUntil("C A _", 2*time.Second)

	host.Send("t")
	final := readState()
	assert.Equal(t, session.StatusWon, final.Status)
	assert.Equal(t, "C A T", final.Word)
	host.ReadUntil("The word was found!", 2*time.Second)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
