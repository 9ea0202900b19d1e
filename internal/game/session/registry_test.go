package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/hangman/internal/game/roster"
)

// seqSource replays a fixed sequence of draws, wrapping at the end.
type seqSource struct {
	mu    sync.Mutex
	draws []int
	i     int
}

func (s *seqSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.draws[s.i%len(s.draws)] % n
	s.i++
	return v
}

func host(i int) roster.Participant {
	return roster.Participant{ID: fmt.Sprintf("h%d", i), Name: fmt.Sprintf("Host%d", i)}
}

func TestRegistry_CreateAndGet(t *testing.T) {
	reg := NewRegistry()
	s, err := reg.Create(host(0), cfg("cat", 6))
	require.NoError(t, err)
	defer reg.Delete(s.Code())

	assert.Len(t, s.Code(), DefaultCodeLength)
	for _, r := range s.Code() {
		assert.Contains(t, CodeAlphabet, string(r))
	}
	got, ok := reg.Get(s.Code())
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, "h0", s.Host())
}

func TestRegistry_GetIsCaseInsensitive(t *testing.T) {
	reg := NewRegistry(WithSource(&seqSource{draws: []int{10, 11, 12, 13, 14}}))
	s, err := reg.Create(host(0), cfg("cat", 6))
	require.NoError(t, err)
	assert.Equal(t, "ABCDE", s.Code())

	_, ok := reg.Get(" abcde ")
	assert.True(t, ok)
	_, ok = reg.Get("ZZZZZ")
	assert.False(t, ok)
}

func TestRegistry_CapacityEnforced(t *testing.T) {
	reg := NewRegistry(WithCapacity(2))
	_, err := reg.Create(host(0), cfg("cat", 6))
	require.NoError(t, err)
	_, err = reg.Create(host(1), cfg("cat", 6))
	require.NoError(t, err)

	s, err := reg.Create(host(2), cfg("cat", 6))
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrCapacity)
	assert.Equal(t, 2, reg.Len())
	reg.Close()
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_RetriesOnCollision(t *testing.T) {
	// First room draws AAAAA; the second draws AAAAA again, then BBBBB.
	src := &seqSource{draws: []int{10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 11, 11, 11, 11, 11}}
	reg := NewRegistry(WithSource(src))
	a, err := reg.Create(host(0), cfg("cat", 6))
	require.NoError(t, err)
	b, err := reg.Create(host(1), cfg("cat", 6))
	require.NoError(t, err)
	assert.Equal(t, "AAAAA", a.Code())
	assert.Equal(t, "BBBBB", b.Code())
	reg.Close()
}

func TestRegistry_ExhaustedCodeSpace(t *testing.T) {
	reg := NewRegistry(WithSource(&seqSource{draws: []int{0}}), WithCodeLength(1))
	_, err := reg.Create(host(0), cfg("cat", 6))
	require.NoError(t, err)
	_, err = reg.Create(host(1), cfg("cat", 6))
	assert.Error(t, err)
	assert.Equal(t, 1, reg.Len())
	reg.Close()
}

func TestRegistry_RejectsInvalidConfig(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Create(host(0), Config{Word: "cat", MaxWrong: 0, TurnDuration: time.Second})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = reg.Create(host(0), Config{Word: "cat", MaxWrong: 6})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = reg.Create(host(0), cfg(" - ", 6))
	assert.ErrorIs(t, err, ErrInvalidWord)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_DeleteIdempotentAndCancels(t *testing.T) {
	reg := NewRegistry()
	s, err := reg.Create(host(0), Config{Word: "cat", MaxWrong: 6, TurnDuration: 10 * time.Millisecond})
	require.NoError(t, err)
	_, _ = s.Start("h0")
	require.True(t, s.clockArmed())

	reg.Delete(s.Code())
	reg.Delete(s.Code())
	assert.False(t, s.clockArmed())
	assert.True(t, s.Closed())
	_, ok := reg.Get(s.Code())
	assert.False(t, ok)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_ConcurrentCreateRespectsCapacity(t *testing.T) {
	reg := NewRegistry(WithCapacity(5))
	const n = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			if _, err := reg.Create(host(i), cfg("cat", 6)); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 5, created)
	assert.Equal(t, 5, reg.Len())
	assert.Len(t, reg.Codes(), 5)
	reg.Close()
}

func TestPropertyRegistryNeverExceedsCapacity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 6).Draw(t, "capacity")
		reg := NewRegistry(WithCapacity(capacity))
		defer reg.Close()
		var codes []string
		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			if len(codes) > 0 && rapid.Bool().Draw(t, "delete") {
				idx := rapid.IntRange(0, len(codes)-1).Draw(t, "victim")
				reg.Delete(codes[idx])
				codes = append(codes[:idx], codes[idx+1:]...)
			} else if s, err := reg.Create(host(i), cfg("cat", 6)); err == nil {
				codes = append(codes, s.Code())
			}
			if reg.Len() > capacity {
				t.Fatalf("registry holds %d rooms, capacity %d", reg.Len(), capacity)
			}
			if reg.Len() != len(codes) {
				t.Fatalf("registry holds %d rooms, expected %d", reg.Len(), len(codes))
			}
		}
	})
}
