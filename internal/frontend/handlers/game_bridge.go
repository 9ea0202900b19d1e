// Package handlers implements the Telnet session loop: it turns text
// commands into hub requests and renders hub messages as ANSI text.
package handlers

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cory-johannsen/hangman/internal/config"
	"github.com/cory-johannsen/hangman/internal/frontend/telnet"
	"github.com/cory-johannsen/hangman/internal/game/command"
	"github.com/cory-johannsen/hangman/internal/gameserver"
)

const prompt = "> "

// Hub is the subset of the game hub the Telnet frontend drives.
type Hub interface {
	Connect() *gameserver.Mailbox
	Disconnect(id string)
	Create(id string, req gameserver.CreateRequest)
	Join(id string, req gameserver.JoinRequest)
	Start(id string, req gameserver.StartRequest)
	Guess(id string, req gameserver.GuessRequest)
	State(id string)
}

// GameHandler runs one hangman session per Telnet connection.
type GameHandler struct {
	hub      Hub
	limits   config.LimitsConfig
	registry *command.Registry
	logger   *zap.Logger
}

// NewGameHandler creates a GameHandler.
//
// Precondition: hub and logger must be non-nil.
func NewGameHandler(hub Hub, limits config.LimitsConfig, logger *zap.Logger) *GameHandler {
	return &GameHandler{
		hub:      hub,
		limits:   limits,
		registry: command.DefaultRegistry(),
		logger:   logger,
	}
}

// HandleSession implements telnet.SessionHandler.
//
// Postcondition: The participant is disconnected from the hub and the
// forwarding goroutine has exited. Returns nil on quit, or the read error.
func (h *GameHandler) HandleSession(ctx context.Context, conn *telnet.Conn) error {
	box := h.hub.Connect()
	id := box.ID()

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.forwardMessages(conn, box)
	}()
	defer func() {
		h.hub.Disconnect(id)
		<-done
	}()

	_ = conn.WriteLine(telnet.Colorize(telnet.BrightWhite, "Welcome to Hangman."))
	_ = conn.WriteLine(telnet.Colorize(telnet.Dim, "Type 'create' to open a room, 'join <code>' to enter one, or 'help'."))
	_ = conn.WritePrompt(prompt)

	return h.commandLoop(ctx, conn, id)
}

// commandLoop reads and executes lines until quit, cancellation, or a read error.
func (h *GameHandler) commandLoop(ctx context.Context, conn *telnet.Conn, id string) error {
	limiter := rate.NewLimiter(rate.Limit(h.limits.MessagesPerSecond), h.limits.Burst)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := conn.ReadLine()
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			_ = conn.WritePrompt(prompt)
			continue
		}
		if !limiter.Allow() {
			_ = conn.WriteLine(telnet.Colorize(telnet.Yellow, "Slow down."))
			continue
		}
		if quit := h.execute(conn, id, line); quit {
			_ = conn.WriteLine(telnet.Colorize(telnet.Cyan, "Goodbye."))
			return nil
		}
	}
}

// execute runs one command line and reports whether the session should end.
func (h *GameHandler) execute(conn *telnet.Conn, id, line string) bool {
	parsed := command.Parse(line)
	cmd, ok := h.registry.Resolve(parsed.Command)
	if !ok {
		if command.IsBareLetter(line) {
			h.hub.Guess(id, gameserver.GuessRequest{Letter: gameserver.String(line)})
			return false
		}
		_ = conn.WriteLine(telnet.Colorf(telnet.Dim, "Unknown command '%s'. Type 'help'.", parsed.Command))
		_ = conn.WritePrompt(prompt)
		return false
	}

	h.logger.Debug("telnet command",
		zap.String("conn_id", id),
		zap.String("command", cmd.Name),
	)

	switch cmd.Handler {
	case command.HandlerCreate:
		args := command.ParseCreateArgs(parsed.Args)
		req := gameserver.CreateRequest{Name: gameserver.String(args.Name)}
		if args.HasMaxWrong {
			req.MaxWrong = gameserver.Int(args.MaxWrong)
		}
		if args.HasTurn {
			req.TurnSeconds = gameserver.Int(args.TurnSeconds)
		}
		h.hub.Create(id, req)

	case command.HandlerJoin:
		if len(parsed.Args) == 0 {
			_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Join which room? Usage: join <code> [name]"))
			_ = conn.WritePrompt(prompt)
			return false
		}
		h.hub.Join(id, gameserver.JoinRequest{
			RoomCode: gameserver.String(parsed.Args[0]),
			Name:     gameserver.String(strings.Join(parsed.Args[1:], " ")),
		})

	case command.HandlerStart:
		h.hub.Start(id, gameserver.StartRequest{})

	case command.HandlerGuess:
		if len(parsed.Args) != 1 {
			_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Guess one letter. Usage: guess <letter>"))
			_ = conn.WritePrompt(prompt)
			return false
		}
		h.hub.Guess(id, gameserver.GuessRequest{Letter: gameserver.String(parsed.Args[0])})

	case command.HandlerState:
		h.hub.State(id)

	case command.HandlerHelp:
		_ = conn.WriteLine(RenderHelp(h.registry))
		_ = conn.WritePrompt(prompt)

	case command.HandlerQuit:
		return true
	}
	return false
}

// forwardMessages renders mailbox messages until the mailbox is closed.
func (h *GameHandler) forwardMessages(conn *telnet.Conn, box *gameserver.Mailbox) {
	for msg := range box.Out() {
		text := RenderMessage(msg, box.ID())
		if text == "" {
			continue
		}
		if err := conn.WriteLine(text); err != nil {
			h.logger.Debug("telnet write failed", zap.String("conn_id", box.ID()), zap.Error(err))
			continue
		}
		_ = conn.WritePrompt(prompt)
	}
}
