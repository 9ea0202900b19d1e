// Package puzzle holds the hidden-word state of a single hangman room:
// the target word, the reveal mask, the attempted letters, and the miss counter.
package puzzle

import (
	"fmt"
	"strings"
)

// Placeholder marks an unrevealed letter position in the mask.
const Placeholder = '_'

// Puzzle is the pure data state of one word.
//
// Invariant: len(mask) == len(target) at all times.
// Invariant: a mask slot only transitions from Placeholder to its target rune.
// Invariant: wrong never decreases; each letter appears in guessed at most once.
type Puzzle struct {
	target  []rune
	mask    []rune
	guessed []rune
	seen    map[rune]struct{}
	wrong   int
}

// New builds a Puzzle for word. The word is folded with NormalizeWord; every
// guessable letter starts hidden and every other rune is pre-revealed.
//
// Postcondition: Returns a Puzzle with zero wrong guesses and no guessed letters.
func New(word string) *Puzzle {
	target := []rune(NormalizeWord(word))
	mask := make([]rune, len(target))
	for i, r := range target {
		if IsGuessable(r) {
			mask[i] = Placeholder
		} else {
			mask[i] = r
		}
	}
	return &Puzzle{
		target: target,
		mask:   mask,
		seen:   make(map[rune]struct{}),
	}
}

// Len returns the number of runes in the target word.
func (p *Puzzle) Len() int { return len(p.target) }

// Target returns the hidden word. It must never reach a participant snapshot.
func (p *Puzzle) Target() string { return string(p.target) }

// Wrong returns the miss counter.
func (p *Puzzle) Wrong() int { return p.wrong }

// HasGuessed reports whether letter was already attempted.
func (p *Puzzle) HasGuessed(letter rune) bool {
	_, ok := p.seen[letter]
	return ok
}

// Record adds letter to the attempted set.
//
// Postcondition: Returns false without change if letter was already recorded.
func (p *Puzzle) Record(letter rune) bool {
	if p.HasGuessed(letter) {
		return false
	}
	p.seen[letter] = struct{}{}
	p.guessed = append(p.guessed, letter)
	return true
}

// ApplyGuess reveals every position holding letter.
//
// Precondition: letter is an uppercase guessable rune not previously applied.
// Postcondition: Returns true if at least one position was revealed.
func (p *Puzzle) ApplyGuess(letter rune) bool {
	hit := false
	for i, r := range p.target {
		if r == letter && p.mask[i] == Placeholder {
			p.mask[i] = r
			hit = true
		}
	}
	return hit
}

// RecordMiss increments the miss counter by one.
func (p *Puzzle) RecordMiss() { p.wrong++ }

// IsFullyRevealed reports whether no placeholder remains.
func (p *Puzzle) IsFullyRevealed() bool {
	for _, r := range p.mask {
		if r == Placeholder {
			return false
		}
	}
	return true
}

// Hidden returns the number of placeholders left in the mask.
func (p *Puzzle) Hidden() int {
	n := 0
	for _, r := range p.mask {
		if r == Placeholder {
			n++
		}
	}
	return n
}

// HasGuessable reports whether the word contains at least one guessable letter.
func (p *Puzzle) HasGuessable() bool {
	for _, r := range p.target {
		if IsGuessable(r) {
			return true
		}
	}
	return false
}

// Mask renders the reveal mask with single spaces between slots, e.g. "C _ T".
func (p *Puzzle) Mask() string {
	parts := make([]string, len(p.mask))
	for i, r := range p.mask {
		parts[i] = string(r)
	}
	return strings.Join(parts, " ")
}

// GuessedLetters returns the attempted letters in insertion order.
func (p *Puzzle) GuessedLetters() []string {
	out := make([]string, len(p.guessed))
	for i, r := range p.guessed {
		out[i] = string(r)
	}
	return out
}

// Check verifies the structural invariants of p.
//
// Postcondition: Returns nil when every invariant holds.
func (p *Puzzle) Check() error {
	if len(p.mask) != len(p.target) {
		return fmt.Errorf("mask length %d != target length %d", len(p.mask), len(p.target))
	}
	for i, r := range p.mask {
		if r != Placeholder && r != p.target[i] {
			return fmt.Errorf("mask[%d]=%q does not match target %q", i, r, p.target[i])
		}
		if r == Placeholder && !IsGuessable(p.target[i]) {
			return fmt.Errorf("non-guessable rune %q hidden at %d", p.target[i], i)
		}
	}
	if len(p.guessed) != len(p.seen) {
		return fmt.Errorf("guessed list has %d entries, set has %d", len(p.guessed), len(p.seen))
	}
	if p.wrong < 0 {
		return fmt.Errorf("negative wrong count %d", p.wrong)
	}
	return nil
}
