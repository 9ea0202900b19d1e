package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/hangman/internal/frontend/telnet"
	"github.com/cory-johannsen/hangman/internal/game/command"
	"github.com/cory-johannsen/hangman/internal/game/session"
	"github.com/cory-johannsen/hangman/internal/gameserver"
)

func playingSnapshot() *session.Snapshot {
	current := "c2"
	return &session.Snapshot{
		RoomCode:    "AB12C",
		Host:        "c1",
		Word:        "C _ _",
		Guessed:     []string{"C", "Z"},
		Wrong:       1,
		MaxWrong:    6,
		Status:      session.StatusPlaying,
		TurnSeconds: 20,
		Players: []session.PlayerView{
			{ID: "c1", Name: "Alice"},
			{ID: "c2", Name: "Bob", IsCurrent: true},
		},
		CurrentPlayerID: &current,
	}
}

func TestRenderSnapshot_Playing(t *testing.T) {
	stripped := telnet.StripANSI(RenderSnapshot(playingSnapshot(), "c2"))
	assert.Contains(t, stripped, "Room AB12C")
	assert.Contains(t, stripped, "[playing]")
	assert.Contains(t, stripped, "turn 20s")
	assert.Contains(t, stripped, "C _ _")
	assert.Contains(t, stripped, "Guessed: C Z")
	assert.Contains(t, stripped, "Wrong: 1/6")
	assert.Contains(t, stripped, "   Alice (host)")
	assert.Contains(t, stripped, " > Bob (you)")
	assert.Contains(t, stripped, "Your turn")
}

func TestRenderSnapshot_OtherViewer(t *testing.T) {
	stripped := telnet.StripANSI(RenderSnapshot(playingSnapshot(), "c1"))
	assert.Contains(t, stripped, "Alice (host) (you)")
	assert.NotContains(t, stripped, "Your turn")
}

func TestRenderSnapshot_Hints(t *testing.T) {
	snap := playingSnapshot()
	snap.Status = session.StatusWaiting
	snap.Guessed = nil
	assert.Contains(t, telnet.StripANSI(RenderSnapshot(snap, "c1")), "Type 'start' to begin.")
	assert.Contains(t, telnet.StripANSI(RenderSnapshot(snap, "c2")), "Waiting for the host")
	assert.Contains(t, telnet.StripANSI(RenderSnapshot(snap, "c2")), "Guessed: none")

	snap.Status = session.StatusWon
	assert.Contains(t, telnet.StripANSI(RenderSnapshot(snap, "c2")), "[won]")
	snap.Status = session.StatusLost
	assert.Contains(t, telnet.StripANSI(RenderSnapshot(snap, "c2")), "Out of guesses.")
}

func TestRenderMessage(t *testing.T) {
	assert.Contains(t, telnet.StripANSI(RenderMessage(gameserver.Message{Type: gameserver.TypeRoomCreated, RoomCode: "AB12C"}, "c1")), "Room AB12C created.")
	assert.Equal(t, "Error: room not found", telnet.StripANSI(RenderMessage(gameserver.Message{Type: gameserver.TypeError, Error: "room not found"}, "c1")))
	assert.Equal(t, "", RenderMessage(gameserver.Message{Type: "other"}, "c1"))
}

func TestRenderHelp(t *testing.T) {
	stripped := telnet.StripANSI(RenderHelp(command.DefaultRegistry()))
	assert.Contains(t, stripped, "Rooms:")
	assert.Contains(t, stripped, "create [name] [maxWrong] [turnSeconds]")
	assert.Contains(t, stripped, "join <code> [name]")
	assert.Contains(t, stripped, "System:")
}

// Property: the word line shows the mask verbatim.
func TestPropertyRenderSnapshotShowsMaskVerbatim(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		mask := rapid.StringMatching(`([A-Z_] ){0,10}[A-Z_]`).Draw(t, "mask")
		snap := playingSnapshot()
		snap.Word = mask
		stripped := telnet.StripANSI(RenderSnapshot(snap, "c1"))
		assert.Contains(t, stripped, "  "+mask+"\r\n")
	})
}
