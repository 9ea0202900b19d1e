package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestParse_Empty(t *testing.T) {
	result := Parse("   ")
	assert.Equal(t, "", result.Command)
	assert.Nil(t, result.Args)
}

func TestParse_SingleWord(t *testing.T) {
	result := Parse("START")
	assert.Equal(t, "start", result.Command)
	assert.Empty(t, result.Args)
	assert.Equal(t, "", result.RawArgs)
}

func TestParse_WithArgs(t *testing.T) {
	result := Parse("  join   abcde  Zoé  Martin ")
	assert.Equal(t, "join", result.Command)
	assert.Equal(t, []string{"abcde", "Zoé", "Martin"}, result.Args)
	assert.Equal(t, "abcde  Zoé  Martin", result.RawArgs)
}

func TestParse_TabSeparated(t *testing.T) {
	result := Parse("guess\te")
	assert.Equal(t, "guess", result.Command)
	assert.Equal(t, []string{"e"}, result.Args)
}

func TestIsBareLetter(t *testing.T) {
	assert.True(t, IsBareLetter("e"))
	assert.True(t, IsBareLetter(" É "))
	assert.True(t, IsBareLetter("?"))
	assert.False(t, IsBareLetter(""))
	assert.False(t, IsBareLetter("ab"))
}

func TestParseCreateArgs(t *testing.T) {
	tests := []struct {
		in   []string
		want CreateArgs
	}{
		{nil, CreateArgs{}},
		{[]string{"Alice"}, CreateArgs{Name: "Alice"}},
		{[]string{"Alice", "3"}, CreateArgs{Name: "Alice", MaxWrong: 3, HasMaxWrong: true}},
		{[]string{"Mary", "Ann", "3", "45"}, CreateArgs{Name: "Mary Ann", MaxWrong: 3, HasMaxWrong: true, TurnSeconds: 45, HasTurn: true}},
		{[]string{"4", "30"}, CreateArgs{MaxWrong: 4, HasMaxWrong: true, TurnSeconds: 30, HasTurn: true}},
		{[]string{"R2", "1", "2", "3"}, CreateArgs{Name: "R2 1", MaxWrong: 2, HasMaxWrong: true, TurnSeconds: 3, HasTurn: true}},
		{[]string{"6", "x"}, CreateArgs{Name: "6 x"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseCreateArgs(tt.in), "args %q", tt.in)
	}
}

func TestPropertyParseAlwaysLowercasesCommand(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		word := rapid.StringMatching(`[A-Za-z]{1,20}`).Draw(t, "word")
		result := Parse(word + " arg")
		for _, c := range result.Command {
			if c >= 'A' && c <= 'Z' {
				t.Fatalf("command %q contains uppercase char in Parse result %q", word, result.Command)
			}
		}
		if result.RawArgs != "arg" {
			t.Fatalf("raw args %q", result.RawArgs)
		}
	})
}
