package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cory-johannsen/hangman/internal/game/puzzle"
	"github.com/cory-johannsen/hangman/internal/game/roster"
)

const (
	// DefaultCapacity is the maximum number of concurrent rooms.
	DefaultCapacity = 10
	// DefaultCodeLength is the number of characters in a room code.
	DefaultCodeLength = 5

	maxCodeAttempts = 32
)

// ErrInvalidConfig is returned when MaxWrong or TurnDuration is not positive.
var ErrInvalidConfig = errors.New("invalid room configuration")

// Registry maps room codes to sessions. All methods are safe for concurrent use.
// The registry lock guards only the map; each session has its own lock.
//
// Invariant: len(rooms) <= capacity.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Session

	capacity   int
	codeLength int
	source     Source
	policy     Policy
	publisher  Publisher
	onFinish   func(Outcome)
	now        func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithCapacity sets the maximum number of concurrent rooms.
func WithCapacity(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.capacity = n
		}
	}
}

// WithCodeLength sets the room code length.
func WithCodeLength(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.codeLength = n
		}
	}
}

// WithSource replaces the random source used for room codes.
func WithSource(src Source) Option {
	return func(r *Registry) { r.source = src }
}

// WithPolicy sets the countdown policy applied to new rooms.
func WithPolicy(p Policy) Option {
	return func(r *Registry) { r.policy = p }
}

// WithPublisher sets the snapshot sink for every room.
func WithPublisher(p Publisher) Option {
	return func(r *Registry) { r.publisher = p }
}

// WithOutcomeHandler registers fn to be called, with the room lock held,
// when a room reaches won or lost. fn must not block.
func WithOutcomeHandler(fn func(Outcome)) Option {
	return func(r *Registry) { r.onFinish = fn }
}

// WithNow overrides the wall clock used for outcome timestamps.
func WithNow(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates an empty Registry.
//
// Postcondition: Returns a Registry with DefaultCapacity and DefaultCodeLength
// unless overridden by opts.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		rooms:      make(map[string]*Session),
		capacity:   DefaultCapacity,
		codeLength: DefaultCodeLength,
		source:     NewCryptoSource(),
		policy:     Policy{FreezeWhenFinished: true},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create allocates a new room hosted by host.
//
// Precondition: cfg.MaxWrong > 0, cfg.TurnDuration > 0, cfg.Word has a letter.
// Postcondition: Returns the new Session registered under a fresh code, or
// ErrCapacity, ErrInvalidConfig, ErrInvalidWord with the registry unchanged.
func (r *Registry) Create(host roster.Participant, cfg Config) (*Session, error) {
	if cfg.MaxWrong <= 0 || cfg.TurnDuration <= 0 {
		return nil, fmt.Errorf("%w: maxWrong=%d turn=%s", ErrInvalidConfig, cfg.MaxWrong, cfg.TurnDuration)
	}
	if !puzzle.New(cfg.Word).HasGuessable() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidWord, cfg.Word)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.rooms) >= r.capacity {
		return nil, ErrCapacity
	}
	code, err := r.freeCode()
	if err != nil {
		return nil, err
	}
	s := newSession(code, host, cfg, r)
	r.rooms[code] = s
	return s, nil
}

// freeCode draws codes until one is unused.
//
// Precondition: r.mu is held for writing.
func (r *Registry) freeCode() (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := newCode(r.source, r.codeLength)
		if _, taken := r.rooms[code]; !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free room code after %d attempts", maxCodeAttempts)
}

// Get looks up a room. Codes are matched case-insensitively.
//
// Postcondition: Returns (session, true) if found, or (nil, false) otherwise.
func (r *Registry) Get(code string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.rooms[NormalizeCode(code)]
	return s, ok
}

// Delete removes a room and cancels its countdown. Idempotent.
func (r *Registry) Delete(code string) {
	code = NormalizeCode(code)
	r.mu.Lock()
	s, ok := r.rooms[code]
	delete(r.rooms, code)
	r.mu.Unlock()
	if ok {
		s.close()
	}
}

// Len returns the number of active rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Capacity returns the configured room limit.
func (r *Registry) Capacity() int { return r.capacity }

// Codes returns the active room codes in no particular order.
func (r *Registry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.rooms))
	for code := range r.rooms {
		out = append(out, code)
	}
	return out
}

// Close tears down every room. Used at process shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	rooms := r.rooms
	r.rooms = make(map[string]*Session)
	r.mu.Unlock()
	for _, s := range rooms {
		s.close()
	}
}
