package handlers

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/hangman/internal/frontend/telnet"
	"github.com/cory-johannsen/hangman/internal/game/command"
	"github.com/cory-johannsen/hangman/internal/game/session"
	"github.com/cory-johannsen/hangman/internal/gameserver"
)

// RenderMessage formats an outbound hub message as Telnet text for the
// participant self.
func RenderMessage(msg gameserver.Message, self string) string {
	switch msg.Type {
	case gameserver.TypeRoomCreated:
		return RenderRoomCreated(msg.RoomCode)
	case gameserver.TypeSnapshot:
		return RenderSnapshot(msg.Snapshot, self)
	case gameserver.TypeError:
		return RenderError(msg.Error)
	default:
		return ""
	}
}

// RenderRoomCreated announces a new room code to its host.
func RenderRoomCreated(code string) string {
	return telnet.Colorf(telnet.BrightGreen, "Room %s created.", code) + " " +
		telnet.Colorize(telnet.Dim, "Share the code, then type 'start' when everyone is in.")
}

// RenderError formats an error message as red Telnet text.
func RenderError(text string) string {
	return telnet.Colorize(telnet.Red, "Error: "+text)
}

// RenderSnapshot formats a room snapshot as colored Telnet text.
//
// Precondition: snap is non-nil.
func RenderSnapshot(snap *session.Snapshot, self string) string {
	var b strings.Builder

	b.WriteString("\r\n")
	b.WriteString(telnet.Colorf(telnet.BrightWhite, "Room %s", snap.RoomCode))
	b.WriteString("  ")
	b.WriteString(renderStatus(snap.Status))
	b.WriteString(telnet.Colorf(telnet.Dim, "  turn %ds", snap.TurnSeconds))
	b.WriteString("\r\n")

	b.WriteString("  ")
	b.WriteString(telnet.Colorize(telnet.Bold, snap.Word))
	b.WriteString("\r\n")

	guessed := "none"
	if len(snap.Guessed) > 0 {
		guessed = strings.Join(snap.Guessed, " ")
	}
	wrongColor := telnet.Green
	if snap.MaxWrong > 0 && snap.Wrong*2 >= snap.MaxWrong {
		wrongColor = telnet.Yellow
	}
	if snap.Wrong+1 >= snap.MaxWrong {
		wrongColor = telnet.Red
	}
	b.WriteString(fmt.Sprintf("  Guessed: %s   ", guessed))
	b.WriteString(telnet.Colorf(wrongColor, "Wrong: %d/%d", snap.Wrong, snap.MaxWrong))
	b.WriteString("\r\n")

	b.WriteString(telnet.Colorize(telnet.Cyan, "Players:"))
	b.WriteString("\r\n")
	for _, p := range snap.Players {
		marker := "   "
		if p.IsCurrent {
			marker = telnet.Colorize(telnet.BrightGreen, " > ")
		}
		b.WriteString(marker)
		b.WriteString(p.Name)
		if p.ID == snap.Host {
			b.WriteString(telnet.Colorize(telnet.Dim, " (host)"))
		}
		if p.ID == self {
			b.WriteString(telnet.Colorize(telnet.Dim, " (you)"))
		}
		b.WriteString("\r\n")
	}

	if hint := renderHint(snap, self); hint != "" {
		b.WriteString(hint)
		b.WriteString("\r\n")
	}
	return b.String()
}

func renderStatus(s session.Status) string {
	switch s {
	case session.StatusWaiting:
		return telnet.Colorize(telnet.Yellow, "[waiting]")
	case session.StatusPlaying:
		return telnet.Colorize(telnet.Cyan, "[playing]")
	case session.StatusWon:
		return telnet.Colorize(telnet.BrightGreen, "[won]")
	case session.StatusLost:
		return telnet.Colorize(telnet.Red, "[lost]")
	default:
		return string(s)
	}
}

func renderHint(snap *session.Snapshot, self string) string {
	switch {
	case snap.Status == session.StatusWaiting && snap.Host == self:
		return telnet.Colorize(telnet.Dim, "Type 'start' to begin.")
	case snap.Status == session.StatusWaiting:
		return telnet.Colorize(telnet.Dim, "Waiting for the host to start.")
	case snap.Status == session.StatusWon:
		return telnet.Colorize(telnet.BrightGreen, "The word was found!")
	case snap.Status == session.StatusLost:
		return telnet.Colorize(telnet.Red, "Out of guesses.")
	case snap.CurrentPlayerID != nil && *snap.CurrentPlayerID == self:
		return telnet.Colorize(telnet.BrightGreen, "Your turn: type a letter.")
	default:
		return ""
	}
}

// RenderHelp lists the commands grouped by category.
func RenderHelp(registry *command.Registry) string {
	var b strings.Builder
	b.WriteString(telnet.Colorize(telnet.BrightWhite, "Available commands:"))
	b.WriteString("\r\n")

	categories := []struct {
		name  string
		label string
	}{
		{command.CategoryRoom, "Rooms"},
		{command.CategoryPlay, "Play"},
		{command.CategorySystem, "System"},
	}
	byCategory := registry.CommandsByCategory()
	for _, cat := range categories {
		cmds := byCategory[cat.name]
		if len(cmds) == 0 {
			continue
		}
		b.WriteString(telnet.Colorize(telnet.Cyan, cat.label+":"))
		b.WriteString("\r\n")
		for _, cmd := range cmds {
			synopsis := cmd.Name
			if cmd.Usage != "" {
				synopsis += " " + cmd.Usage
			}
			b.WriteString(fmt.Sprintf("  %-38s %s\r\n", synopsis, telnet.Colorize(telnet.Dim, cmd.Help)))
		}
	}
	return b.String()
}
