package gameserver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/hangman/internal/game/session"
)

type memStore struct {
	mu    sync.Mutex
	saved []string
	fail  bool
	gate  chan struct{}
}

func (m *memStore) SaveResult(ctx context.Context, o session.Outcome) error {
	if m.gate != nil {
		<-m.gate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("connection refused")
	}
	m.saved = append(m.saved, o.RoomCode)
	return nil
}

func (m *memStore) codes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.saved...)
}

func TestArchive_WritesAndDrainsOnStop(t *testing.T) {
	store := &memStore{}
	a := NewArchive(zaptest.NewLogger(t), store, 8)
	go func() { _ = a.Run() }()

	require.True(t, a.Enqueue(session.Outcome{RoomCode: "AAAAA"}))
	assert.Eventually(t, func() bool { return len(store.codes()) == 1 }, time.Second, 5*time.Millisecond)

	require.True(t, a.Enqueue(session.Outcome{RoomCode: "BBBBB"}))
	require.True(t, a.Enqueue(session.Outcome{RoomCode: "CCCCC"}))
	a.Stop()
	assert.Equal(t, []string{"AAAAA", "BBBBB", "CCCCC"}, store.codes())

	assert.False(t, a.Enqueue(session.Outcome{RoomCode: "DDDDD"}))
	a.Stop()
}

func TestArchive_FullQueueRejects(t *testing.T) {
	store := &memStore{gate: make(chan struct{})}
	a := NewArchive(zaptest.NewLogger(t), store, 1)
	go func() { _ = a.Run() }()

	require.True(t, a.Enqueue(session.Outcome{RoomCode: "AAAAA"}))
	// Wait for the worker to pick up the first outcome and block in the store.
	assert.Eventually(t, func() bool { return len(a.queue) == 0 }, time.Second, 5*time.Millisecond)
	require.True(t, a.Enqueue(session.Outcome{RoomCode: "BBBBB"}))
	assert.False(t, a.Enqueue(session.Outcome{RoomCode: "CCCCC"}))

	close(store.gate)
	a.Stop()
	assert.Equal(t, []string{"AAAAA", "BBBBB"}, store.codes())
}

func TestArchive_StoreErrorsAreLogged(t *testing.T) {
	store := &memStore{fail: true}
	a := NewArchive(zaptest.NewLogger(t), store, 4)
	go func() { _ = a.Run() }()
	require.True(t, a.Enqueue(session.Outcome{RoomCode: "AAAAA"}))
	a.Stop()
	assert.Empty(t, store.codes())
}

func TestArchive_WiredToHub(t *testing.T) {
	store := &memStore{}
	a := NewArchive(zaptest.NewLogger(t), store, 4)
	go func() { _ = a.Run() }()

	h := newTestHub(t, testSettings(), WithOutcomeSink(a))
	box := h.Connect()
	code := createRoom(t, h, box, "Solo")
	send(h, box.ID(), TypeStartGame, nil)
	for _, l := range []string{"C", "A", "T"} {
		send(h, box.ID(), TypeGuess, map[string]any{"letter": l})
	}
	a.Stop()
	assert.Equal(t, []string{code}, store.codes())
}
