package gameserver

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/hangman/internal/game/session"
)

// ResultStore persists finished games.
type ResultStore interface {
	SaveResult(ctx context.Context, o session.Outcome) error
}

// Archive buffers finished games and writes them to a ResultStore from a
// single worker goroutine, keeping storage latency out of room locks.
type Archive struct {
	logger       *zap.Logger
	store        ResultStore
	writeTimeout time.Duration

	queue  chan session.Outcome
	stop   chan struct{}
	done   chan struct{}
	mu     sync.Mutex
	closed bool
	once   sync.Once
}

// NewArchive creates an Archive with a queue of size pending outcomes.
//
// Precondition: logger and store must be non-nil.
func NewArchive(logger *zap.Logger, store ResultStore, size int) *Archive {
	if size <= 0 {
		size = 128
	}
	return &Archive{
		logger:       logger,
		store:        store,
		writeTimeout: 5 * time.Second,
		queue:        make(chan session.Outcome, size),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Enqueue implements OutcomeSink.
//
// Postcondition: Returns false without blocking if the archive is stopped
// or its queue is full.
func (a *Archive) Enqueue(o session.Outcome) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return false
	}
	select {
	case a.queue <- o:
		return true
	default:
		return false
	}
}

// Run writes queued outcomes until Stop is called, then drains the queue.
// It blocks and always returns nil.
func (a *Archive) Run() error {
	defer close(a.done)
	for {
		select {
		case o := <-a.queue:
			a.write(o)
		case <-a.stop:
			a.drain()
			return nil
		}
	}
}

// Stop refuses new outcomes and waits for Run to drain. Idempotent.
//
// Precondition: Run has been started.
func (a *Archive) Stop() {
	a.once.Do(func() {
		a.mu.Lock()
		a.closed = true
		a.mu.Unlock()
		close(a.stop)
	})
	<-a.done
}

func (a *Archive) drain() {
	for {
		select {
		case o := <-a.queue:
			a.write(o)
		default:
			return
		}
	}
}

func (a *Archive) write(o session.Outcome) {
	ctx, cancel := context.WithTimeout(context.Background(), a.writeTimeout)
	defer cancel()
	if err := a.store.SaveResult(ctx, o); err != nil {
		a.logger.Error("archiving game result",
			zap.String("room", o.RoomCode),
			zap.Error(err),
		)
		return
	}
	a.logger.Debug("game result archived", zap.String("room", o.RoomCode))
}
