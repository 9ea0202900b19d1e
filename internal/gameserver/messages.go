package gameserver

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/cory-johannsen/hangman/internal/game/session"
)

// Inbound message types.
const (
	TypeCreate    = "create"
	TypeJoin      = "join"
	TypeStartGame = "startGame"
	TypeGuess     = "guess"
	TypeState     = "state"
)

// Outbound message types.
const (
	TypeRoomCreated = "roomCreated"
	TypeSnapshot    = "state"
	TypeError       = "error"
)

// Envelope is the inbound wire frame.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// OptionalInt is an integer field that tolerates JSON numbers, numeric
// strings, and garbage. Anything that is not a whole number leaves Set false.
type OptionalInt struct {
	Value int
	Set   bool
}

// Int returns a set OptionalInt.
func Int(v int) OptionalInt { return OptionalInt{Value: v, Set: true} }

// UnmarshalJSON never fails; unusable input is treated as absent.
func (o *OptionalInt) UnmarshalJSON(data []byte) error {
	*o = OptionalInt{}
	text := string(bytes.TrimSpace(data))
	if unquoted, err := strconv.Unquote(text); err == nil {
		text = strings.TrimSpace(unquoted)
	}
	if v, err := strconv.Atoi(text); err == nil {
		*o = Int(v)
	}
	return nil
}

// OptionalString is a string field that treats non-string JSON as absent.
type OptionalString struct {
	Value string
	Set   bool
}

// String returns a set OptionalString.
func String(v string) OptionalString { return OptionalString{Value: v, Set: true} }

// UnmarshalJSON never fails; non-string input is treated as absent.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	*o = OptionalString{}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*o = String(s)
	}
	return nil
}

// CreateRequest asks for a new room hosted by the sender.
type CreateRequest struct {
	Name        OptionalString `json:"name"`
	MaxWrong    OptionalInt    `json:"maxWrong"`
	TurnSeconds OptionalInt    `json:"turnSeconds"`
}

// JoinRequest asks to enter an existing room.
type JoinRequest struct {
	RoomCode OptionalString `json:"roomCode"`
	Name     OptionalString `json:"name"`
}

// StartRequest asks the host's room to begin play.
type StartRequest struct {
	RoomCode OptionalString `json:"roomCode"`
}

// GuessRequest submits one letter.
type GuessRequest struct {
	RoomCode OptionalString `json:"roomCode"`
	Letter   OptionalString `json:"letter"`
}

// Message is one outbound frame queued to a connection.
type Message struct {
	Type string
	// RoomCode is set for roomCreated.
	RoomCode string
	// Snapshot is set for state and shared read-only between recipients.
	Snapshot *session.Snapshot
	// Error is set for error.
	Error string
}

// MarshalJSON renders the {"type","payload"} envelope.
func (m Message) MarshalJSON() ([]byte, error) {
	var payload any
	switch m.Type {
	case TypeRoomCreated:
		payload = m.RoomCode
	case TypeSnapshot:
		payload = m.Snapshot
	default:
		payload = m.Error
	}
	return json.Marshal(struct {
		Type    string `json:"type"`
		Payload any    `json:"payload"`
	}{m.Type, payload})
}
