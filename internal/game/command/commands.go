// Package command defines the text commands of the line-oriented frontends
// and parses input lines into them.
package command

// Categories for organizing commands in help output.
const (
	CategoryRoom   = "room"
	CategoryPlay   = "play"
	CategorySystem = "system"
)

// Handler identifiers mapping commands to hub requests or local actions.
const (
	HandlerCreate = "create"
	HandlerJoin   = "join"
	HandlerStart  = "start"
	HandlerGuess  = "guess"
	HandlerState  = "state"
	HandlerHelp   = "help"
	HandlerQuit   = "quit"
)

// Command is a player-invocable text command.
type Command struct {
	// Name is the canonical command name.
	Name string
	// Aliases are alternate names for this command.
	Aliases []string
	// Usage is the argument synopsis shown in help.
	Usage string
	// Help is the short help text displayed to players.
	Help string
	// Category groups the command in help output.
	Category string
	// Handler selects the action.
	Handler string
}

// BuiltinCommands returns the hangman commands in help order.
func BuiltinCommands() []Command {
	return []Command{
		{Name: "create", Aliases: []string{"new", "host"}, Usage: "[name] [maxWrong] [turnSeconds]", Help: "Open a new room and become its host", Category: CategoryRoom, Handler: HandlerCreate},
		{Name: "join", Aliases: []string{"jn"}, Usage: "<code> [name]", Help: "Join a room by its code", Category: CategoryRoom, Handler: HandlerJoin},
		{Name: "start", Aliases: []string{"go", "begin"}, Help: "Start the game (host only)", Category: CategoryRoom, Handler: HandlerStart},

		{Name: "guess", Aliases: []string{"gs"}, Usage: "<letter>", Help: "Guess a letter on your turn; a bare letter works too", Category: CategoryPlay, Handler: HandlerGuess},
		{Name: "state", Aliases: []string{"look", "board"}, Help: "Show the board", Category: CategoryPlay, Handler: HandlerState},

		{Name: "help", Aliases: []string{"?"}, Help: "Show available commands", Category: CategorySystem, Handler: HandlerHelp},
		{Name: "quit", Aliases: []string{"exit", "bye"}, Help: "Disconnect", Category: CategorySystem, Handler: HandlerQuit},
	}
}
