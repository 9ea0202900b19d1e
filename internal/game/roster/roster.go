// Package roster provides the ordered participant list of a room, which
// doubles as its turn order.
package roster

// Participant is one connected player.
type Participant struct {
	// ID is the opaque connection-scoped identity assigned by the transport.
	ID string
	// Name is the display name shown to other players.
	Name string
}

// Roster is a ring of participants with a current-turn cursor.
// It is not safe for concurrent use; the owning session serializes access.
//
// Invariant: 0 <= current < len(players) whenever players is non-empty;
// current == 0 when empty.
type Roster struct {
	players []Participant
	current int
}

// New returns an empty Roster.
func New() *Roster {
	return &Roster{}
}

// Add appends p to the end of the turn order.
//
// Postcondition: The current index is unchanged.
func (r *Roster) Add(p Participant) {
	r.players = append(r.players, p)
}

// Remove deletes the participant with the given identity.
// When the removed slot is at or before the cursor, the cursor moves back by
// one (clamped at zero) so the ring keeps its relative order after compaction.
//
// Postcondition: Returns false if id was not present.
func (r *Roster) Remove(id string) bool {
	idx := r.indexOf(id)
	if idx < 0 {
		return false
	}
	r.players = append(r.players[:idx], r.players[idx+1:]...)
	if len(r.players) == 0 {
		r.current = 0
		return true
	}
	if idx <= r.current {
		r.current = max(0, r.current-1)
	}
	if r.current >= len(r.players) {
		r.current = len(r.players) - 1
	}
	return true
}

// Current returns the participant whose turn it is.
//
// Postcondition: Returns (zero, false) when the roster is empty.
func (r *Roster) Current() (Participant, bool) {
	if len(r.players) == 0 {
		return Participant{}, false
	}
	return r.players[r.current], true
}

// Advance moves the cursor to the next participant, wrapping at the end.
// It is a no-op on an empty roster.
func (r *Roster) Advance() {
	if len(r.players) == 0 {
		return
	}
	r.current = (r.current + 1) % len(r.players)
}

// Index returns the current cursor position.
func (r *Roster) Index() int { return r.current }

// Len returns the number of participants.
func (r *Roster) Len() int { return len(r.players) }

// Contains reports whether id is in the roster.
func (r *Roster) Contains(id string) bool { return r.indexOf(id) >= 0 }

// Participants returns a copy of the turn order.
func (r *Roster) Participants() []Participant {
	out := make([]Participant, len(r.players))
	copy(out, r.players)
	return out
}

// IDs returns the identities in turn order.
func (r *Roster) IDs() []string {
	out := make([]string, len(r.players))
	for i, p := range r.players {
		out[i] = p.ID
	}
	return out
}

func (r *Roster) indexOf(id string) int {
	for i, p := range r.players {
		if p.ID == id {
			return i
		}
	}
	return -1
}
