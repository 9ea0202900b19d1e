// Package session implements the per-room hangman state machine, the
// capacity-bounded room registry, and the redacted snapshot projection
// broadcast to participants.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/cory-johannsen/hangman/internal/game/clock"
	"github.com/cory-johannsen/hangman/internal/game/puzzle"
	"github.com/cory-johannsen/hangman/internal/game/roster"
)

// Status is the lifecycle phase of a room.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusPlaying Status = "playing"
	StatusWon     Status = "won"
	StatusLost    Status = "lost"
)

// Terminal reports whether no further transition can leave s.
func (s Status) Terminal() bool {
	return s == StatusWon || s == StatusLost
}

var (
	// ErrCapacity is returned when the registry already holds its maximum number of rooms.
	ErrCapacity = errors.New("maximum number of rooms reached")
	// ErrNotFound is returned when a room code is unknown or its room was torn down.
	ErrNotFound = errors.New("room not found")
	// ErrFinished is returned when joining a room that already reached won or lost.
	ErrFinished = errors.New("room already finished")
	// ErrInvalidWord is returned when a word has no guessable letter.
	ErrInvalidWord = errors.New("word has no guessable letter")
)

// Config is the immutable per-room configuration fixed at creation.
type Config struct {
	Word         string
	MaxWrong     int
	TurnDuration time.Duration
}

// Policy selects between the historical and the stricter clock behaviors.
type Policy struct {
	// ArmInLobby arms a countdown at creation, while the room is still waiting.
	ArmInLobby bool
	// FreezeWhenFinished cancels the countdown once the room is won or lost.
	// When false, a finished room keeps advancing turns until torn down.
	FreezeWhenFinished bool
}

// Publisher delivers a snapshot to the listed participant identities.
// Implementations must not block: Publish is invoked with the room lock held,
// which keeps deliveries in mutation order.
type Publisher interface {
	Publish(snap Snapshot, recipients []string)
}

// Outcome summarizes a room that reached a terminal status.
type Outcome struct {
	RoomCode   string
	Word       string
	Status     Status
	Wrong      int
	MaxWrong   int
	Guessed    []string
	Players    []string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Session is one room. All methods are safe for concurrent use; every
// mutation, including turn expiry, is serialized by the room's mutex.
type Session struct {
	mu sync.Mutex

	code     string
	host     string
	puzzle   *puzzle.Puzzle
	roster   *roster.Roster
	maxWrong int
	turn     time.Duration
	status   Status
	clock    *clock.TurnClock
	policy   Policy
	closed   bool

	startedAt time.Time

	publisher Publisher
	onFinish  func(Outcome)
	now       func() time.Time
}

func newSession(code string, host roster.Participant, cfg Config, r *Registry) *Session {
	s := &Session{
		code:      code,
		host:      host.ID,
		puzzle:    puzzle.New(cfg.Word),
		roster:    roster.New(),
		maxWrong:  cfg.MaxWrong,
		turn:      cfg.TurnDuration,
		status:    StatusWaiting,
		policy:    r.policy,
		publisher: r.publisher,
		onFinish:  r.onFinish,
		now:       r.now,
	}
	s.clock = clock.New(&s.mu)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.roster.Add(host)
	if s.policy.ArmInLobby {
		s.armNextTurn()
	}
	s.publish()
	return s
}

// Code returns the room code.
func (s *Session) Code() string { return s.code }

// Host returns the identity allowed to start the game.
func (s *Session) Host() string { return s.host }

// Status returns the current lifecycle phase.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Snapshot projects the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return project(s)
}

// Start moves the room from waiting to playing.
//
// Postcondition: Returns ErrNotFound if the room was torn down. Returns
// (false, nil) without change when identity is not the host or the room is
// not waiting. Otherwise the countdown is armed and a snapshot published.
func (s *Session) Start(identity string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrNotFound
	}
	if identity != s.host || s.status != StatusWaiting {
		return false, nil
	}
	s.status = StatusPlaying
	s.startedAt = s.now()
	s.armNextTurn()
	s.publish()
	return true, nil
}

// Join appends p to the turn order.
//
// Postcondition: Returns ErrNotFound for a torn-down room and ErrFinished for
// a won or lost room. The turn cursor, status, and countdown are untouched.
func (s *Session) Join(p roster.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrNotFound
	}
	if s.status.Terminal() {
		return ErrFinished
	}
	if s.roster.Contains(p.ID) {
		return nil
	}
	s.roster.Add(p)
	s.publish()
	return nil
}

// Guess resolves a letter from identity. Out-of-turn guesses, guesses while
// not playing, and malformed letters are ignored.
//
// Postcondition: Returns ErrNotFound for a torn-down room; otherwise reports
// whether the guess was accepted. An accepted guess always advances the turn.
func (s *Session) Guess(identity, raw string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrNotFound
	}
	if s.status != StatusPlaying {
		return false, nil
	}
	cur, ok := s.roster.Current()
	if !ok || cur.ID != identity {
		return false, nil
	}
	letter, ok := puzzle.NormalizeLetter(raw)
	if !ok {
		return false, nil
	}

	if s.puzzle.Record(letter) {
		if !s.puzzle.ApplyGuess(letter) {
			s.puzzle.RecordMiss()
		}
		switch {
		case s.puzzle.IsFullyRevealed():
			s.finish(StatusWon)
		case s.puzzle.Wrong() >= s.maxWrong:
			s.finish(StatusLost)
		}
	}

	s.roster.Advance()
	s.armNextTurn()
	s.publish()
	return true, nil
}

// Leave removes identity from the room.
//
// Postcondition: Returns (true, true) when identity was the last participant;
// the room is then closed with its countdown cancelled and the caller must
// delete it from the registry. The countdown is never restarted by a leave.
func (s *Session) Leave(identity string) (removed, empty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.roster.Remove(identity) {
		return false, false
	}
	if s.roster.Len() == 0 {
		s.closeLocked()
		return true, true
	}
	s.publish()
	return true, false
}

// Members returns the participant identities in turn order.
func (s *Session) Members() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roster.IDs()
}

// Closed reports whether the room has been torn down.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *Session) closeLocked() {
	s.closed = true
	s.clock.Cancel()
}

// expire runs with s.mu held, from the clock.
func (s *Session) expire() {
	if s.closed {
		return
	}
	s.roster.Advance()
	s.armNextTurn()
	s.publish()
}

// armNextTurn is the single place a countdown is (re)armed.
func (s *Session) armNextTurn() {
	if s.closed || (s.status.Terminal() && s.policy.FreezeWhenFinished) {
		s.clock.Cancel()
		return
	}
	s.clock.Start(s.turn, s.expire)
}

func (s *Session) finish(status Status) {
	s.status = status
	if s.onFinish == nil {
		return
	}
	players := make([]string, 0, s.roster.Len())
	for _, p := range s.roster.Participants() {
		players = append(players, p.Name)
	}
	s.onFinish(Outcome{
		RoomCode:   s.code,
		Word:       s.puzzle.Target(),
		Status:     status,
		Wrong:      s.puzzle.Wrong(),
		MaxWrong:   s.maxWrong,
		Guessed:    s.puzzle.GuessedLetters(),
		Players:    players,
		StartedAt:  s.startedAt,
		FinishedAt: s.now(),
	})
}

func (s *Session) publish() {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(project(s), s.roster.IDs())
}

