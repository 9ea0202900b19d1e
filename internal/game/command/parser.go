package command

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// ParseResult holds the parsed command name and arguments from a text line.
type ParseResult struct {
	// Command is the first word of the input, lowercased.
	Command string
	// Args are the remaining words after the command.
	Args []string
	// RawArgs is the raw text after the command.
	RawArgs string
}

// Parse splits a text line into a command and arguments.
//
// Postcondition: Returns a ParseResult. If line is blank, Command is empty.
func Parse(line string) ParseResult {
	line = strings.TrimSpace(line)
	if line == "" {
		return ParseResult{}
	}
	word := strings.Fields(line)[0]
	rest := strings.TrimSpace(line[len(word):])
	return ParseResult{
		Command: strings.ToLower(word),
		Args:    strings.Fields(rest),
		RawArgs: rest,
	}
}

// IsBareLetter reports whether line is a single character, which the text
// frontends treat as a guess.
func IsBareLetter(line string) bool {
	line = strings.TrimSpace(line)
	return line != "" && utf8.RuneCountInString(line) == 1
}

// CreateArgs are the optional arguments of the create command.
type CreateArgs struct {
	Name        string
	MaxWrong    int
	TurnSeconds int
	HasMaxWrong bool
	HasTurn     bool
}

// ParseCreateArgs reads "[name...] [maxWrong] [turnSeconds]". Up to two
// trailing integers are taken as the numbers; the words before them form
// the name.
func ParseCreateArgs(args []string) CreateArgs {
	var nums []int
	end := len(args)
	for end > 0 && len(nums) < 2 {
		n, err := strconv.Atoi(args[end-1])
		if err != nil {
			break
		}
		nums = append([]int{n}, nums...)
		end--
	}

	out := CreateArgs{Name: strings.Join(args[:end], " ")}
	if len(nums) > 0 {
		out.MaxWrong, out.HasMaxWrong = nums[0], true
	}
	if len(nums) > 1 {
		out.TurnSeconds, out.HasTurn = nums[1], true
	}
	return out
}
