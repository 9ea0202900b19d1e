package session

import "time"

// PlayerView is one roster entry as seen by participants.
type PlayerView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsCurrent bool   `json:"isCurrent"`
}

// Snapshot is the redacted, display-ready state of a room.
// It never carries the hidden word.
type Snapshot struct {
	RoomCode        string       `json:"roomCode"`
	Host            string       `json:"host"`
	Word            string       `json:"word"`
	Guessed         []string     `json:"guessed"`
	Wrong           int          `json:"wrong"`
	MaxWrong        int          `json:"maxWrong"`
	Status          Status       `json:"status"`
	TurnSeconds     int          `json:"turnSeconds"`
	Players         []PlayerView `json:"players"`
	CurrentPlayerID *string      `json:"currentPlayerId"`
}

// project renders s from scratch. It reads state only and keeps no memory
// of earlier snapshots.
//
// Precondition: s.mu is held.
func project(s *Session) Snapshot {
	snap := Snapshot{
		RoomCode:    s.code,
		Host:        s.host,
		Word:        s.puzzle.Mask(),
		Guessed:     s.puzzle.GuessedLetters(),
		Wrong:       s.puzzle.Wrong(),
		MaxWrong:    s.maxWrong,
		Status:      s.status,
		TurnSeconds: int(s.turn / time.Second),
	}

	players := s.roster.Participants()
	snap.Players = make([]PlayerView, len(players))
	for i, p := range players {
		snap.Players[i] = PlayerView{
			ID:        p.ID,
			Name:      p.Name,
			IsCurrent: i == s.roster.Index(),
		}
	}
	if cur, ok := s.roster.Current(); ok {
		id := cur.ID
		snap.CurrentPlayerID = &id
	}
	return snap
}
