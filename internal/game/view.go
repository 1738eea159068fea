// internal/game/view.go
//
// Client-facing projection of the round. Content characters that are not yet
// revealed are replaced with MaskRune; punctuation and rejected characters are
// always shown. The unmasked entry is only exposed once the round is won.

package game

import (
	"strings"

	"github.com/Zhosolune/guess-the-entry-vercel/internal/charclass"
	"github.com/Zhosolune/guess-the-entry-vercel/internal/entry"
)

// MaskRune stands in for an unrevealed content character.
const MaskRune = '■'

// View is what a player may see of the round.
type View struct {
	GameID            string       `json:"gameId,omitempty"`
	Status            Status       `json:"status"`
	Category          string       `json:"category,omitempty"`
	EffectiveCategory string       `json:"effectiveCategory,omitempty"`
	Title             string       `json:"title,omitempty"`
	Passage           string       `json:"passage,omitempty"`
	Guessed           []string     `json:"guessedChars"`
	Graveyard         []string     `json:"graveyard"`
	Attempts          int          `json:"attempts"`
	HintCount         int          `json:"hintCount"`
	HintUsed          bool         `json:"hintUsed"`
	Progress          int          `json:"progress"`
	StartTime         int64        `json:"startTime,omitempty"` // unix ms
	ElapsedSeconds    int64        `json:"elapsedSeconds"`
	Entry             *entry.Entry `json:"entry,omitempty"`
}

// View returns the current masked view.
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()

	r := &e.round
	v := View{
		GameID:    r.ID,
		Status:    r.Status,
		Category:  r.Category,
		Guessed:   r.Guessed.Strings(),
		Graveyard: runeStrings(r.Graveyard),
		Attempts:  r.Attempts,
		HintCount: r.HintCount,
		HintUsed:  r.HintUsed,
		Progress:  progress(r),
	}
	if r.Entry == nil {
		return v
	}
	v.EffectiveCategory = r.EffectiveCategory()
	v.Title = Mask(r.Entry.Title, &r.Revealed)
	v.Passage = Mask(r.Entry.Passage, &r.Revealed)
	v.StartTime = r.StartTime.UnixMilli()
	if r.Status == StatusPlaying {
		v.ElapsedSeconds = int64(e.opts.Now().Sub(r.StartTime).Seconds())
	}
	if r.Status == StatusVictory {
		ent := *r.Entry
		v.Entry = &ent
	}
	return v
}

// Mask hides the content characters of s that are not in revealed.
func Mask(s string, revealed interface{ Has(rune) bool }) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, c := range s {
		if charclass.IsContent(c) && !revealed.Has(c) {
			b.WriteRune(MaskRune)
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}
