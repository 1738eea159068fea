// internal/game/types.go
//
// Core type definitions for the guessing engine.
// Defines:
//   - Status: round lifecycle (start → playing → victory, or error).
//   - Round: state for the single live round owned by an Engine.
//   - GuessResult / Position: outcome of an accepted guess or hint reveal.
//   - Sentinel errors for the failure taxonomy.

package game

import (
	"errors"
	"fmt"
	"time"

	"github.com/Zhosolune/guess-the-entry-vercel/internal/entry"
)

// Status is the lifecycle state of a round.
type Status string

const (
	StatusStart   Status = "start"
	StatusPlaying Status = "playing"
	StatusVictory Status = "victory"
	StatusError   Status = "error"
)

// Field names the text a matched position belongs to.
type Field string

const (
	FieldTitle   Field = "title"
	FieldPassage Field = "passage"
)

// Position is one occurrence of a guessed character. Index counts runes.
type Position struct {
	Field Field `json:"field"`
	Index int   `json:"index"`
}

// GuessResult reports an accepted guess or hint reveal.
type GuessResult struct {
	Success   bool       `json:"success"`
	IsCorrect bool       `json:"isCorrect"`
	Positions []Position `json:"matchedPositions"`
	Won       bool       `json:"wonRound"`
}

// Round is the state of one round. Revealed and Guessed hold the same
// characters in this implementation; both are kept because they are persisted
// separately.
type Round struct {
	ID        string
	Status    Status
	Category  string // as requested; may be entry.Random
	Entry     *entry.Entry
	Revealed  charSet
	Guessed   charSet
	Graveyard []rune // wrong guesses, in order
	Attempts  int
	HintCount int
	HintUsed  bool
	StartTime time.Time
}

// EffectiveCategory is the concrete category the entry was generated for.
func (r *Round) EffectiveCategory() string {
	if r.Entry != nil && entry.IsConcrete(r.Entry.Category) {
		return r.Entry.Category
	}
	return r.Category
}

func (r *Round) inGraveyard(c rune) bool {
	for _, g := range r.Graveyard {
		if g == c {
			return true
		}
	}
	return false
}

// Failure taxonomy. Everything a guess can be rejected for wraps
// ErrValidation; rate limiting is a kind of generation failure.
var (
	ErrGeneration  = errors.New("entry generation failed")
	ErrRateLimited = fmt.Errorf("%w: rate limit exceeded", ErrGeneration)

	ErrValidation      = errors.New("invalid request")
	ErrUnknownCategory = fmt.Errorf("%w: unknown category", ErrValidation)
	ErrNotPlaying      = fmt.Errorf("%w: no round in progress", ErrValidation)
	ErrInvalidChar     = fmt.Errorf("%w: expected exactly one character", ErrValidation)
	ErrScript          = fmt.Errorf("%w: character is not a guessable ideograph", ErrValidation)
	ErrAlreadyResolved = fmt.Errorf("%w: character already resolved", ErrValidation)
	ErrNotInEntry      = fmt.Errorf("%w: character does not occur in the entry", ErrValidation)
)
