package command

import (
	"fmt"
	"strings"
)

// Registry maps command names and aliases to Command definitions.
type Registry struct {
	ordered  []*Command
	commands map[string]*Command // canonical name → command
	aliases  map[string]string   // alias → canonical name
}

// NewRegistry creates a Registry populated with the given commands.
//
// Precondition: No two commands may share a canonical name or alias, and no
// name or alias may be a single letter, since bare letters are guesses.
// Postcondition: Returns a Registry or an error on the first violation.
func NewRegistry(cmds []Command) (*Registry, error) {
	r := &Registry{
		commands: make(map[string]*Command, len(cmds)),
		aliases:  make(map[string]string),
	}

	for i := range cmds {
		cmd := &cmds[i]
		if err := r.claim(cmd.Name, cmd.Name); err != nil {
			return nil, err
		}
		r.commands[cmd.Name] = cmd
		r.ordered = append(r.ordered, cmd)

		for _, alias := range cmd.Aliases {
			if err := r.claim(alias, cmd.Name); err != nil {
				return nil, err
			}
			r.aliases[alias] = cmd.Name
		}
	}
	return r, nil
}

func (r *Registry) claim(word, owner string) error {
	if IsBareLetter(word) && strings.ToUpper(word) != strings.ToLower(word) {
		return fmt.Errorf("%q would shadow a letter guess", word)
	}
	if _, exists := r.commands[word]; exists {
		return fmt.Errorf("duplicate command name: %q", word)
	}
	if existing, exists := r.aliases[word]; exists {
		return fmt.Errorf("duplicate alias %q: used by %q and %q", word, existing, owner)
	}
	return nil
}

// DefaultRegistry creates a Registry with all built-in commands.
//
// Postcondition: Returns a Registry with all built-in commands registered.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(BuiltinCommands())
	if err != nil {
		panic(fmt.Sprintf("building default registry: %v", err))
	}
	return r
}

// Resolve looks up a command by lowercased name or alias.
//
// Postcondition: Returns (command, true) if found, or (nil, false).
func (r *Registry) Resolve(input string) (*Command, bool) {
	if cmd, ok := r.commands[input]; ok {
		return cmd, true
	}
	if canonical, ok := r.aliases[input]; ok {
		return r.commands[canonical], true
	}
	return nil, false
}

// Commands returns all registered commands in registration order.
func (r *Registry) Commands() []*Command {
	return append([]*Command(nil), r.ordered...)
}

// CommandsByCategory returns commands grouped by category, each group in
// registration order.
func (r *Registry) CommandsByCategory() map[string][]*Command {
	categories := make(map[string][]*Command)
	for _, cmd := range r.ordered {
		categories[cmd.Category] = append(categories[cmd.Category], cmd)
	}
	return categories
}
