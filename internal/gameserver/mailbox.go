package gameserver

import (
	"fmt"
	"sync"
)

// Mailbox is a connection's bounded outbound queue. The hub pushes to it
// from inside room locks, so Push never blocks; the transport drains Out.
type Mailbox struct {
	id     string
	out    chan Message
	mu     sync.Mutex
	closed bool
}

// NewMailbox creates a Mailbox for the given identity.
//
// Precondition: id must be non-empty.
// Postcondition: Returns a Mailbox with an open channel of at least one slot.
func NewMailbox(id string, size int) *Mailbox {
	if size <= 0 {
		size = 64
	}
	return &Mailbox{
		id:  id,
		out: make(chan Message, size),
	}
}

// ID returns the participant identity this mailbox delivers to.
func (m *Mailbox) ID() string {
	return m.id
}

// Push enqueues msg.
//
// Postcondition: msg is queued, or an error is returned if the mailbox is
// closed or full. A full mailbox drops msg.
func (m *Mailbox) Push(msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("mailbox %s is closed", m.id)
	}
	select {
	case m.out <- msg:
		return nil
	default:
		return fmt.Errorf("mailbox %s buffer full", m.id)
	}
}

// Out returns the receive side of the queue. It is closed by Close.
func (m *Mailbox) Out() <-chan Message {
	return m.out
}

// Close closes the queue. Idempotent.
func (m *Mailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.out)
	}
}

// Closed reports whether Close has been called.
func (m *Mailbox) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
