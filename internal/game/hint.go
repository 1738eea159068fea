package game

import (
	"fmt"

	"github.com/Zhosolune/guess-the-entry-vercel/internal/charclass"
)

// Advice is a text-only hint. It does not change the round.
type Advice struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// adviceAttempts is the attempt count after which the nudge changes tone.
const adviceAttempts = 3

// Advise returns a hint message for the live round: a nudge toward the first
// unrevealed title character early on, otherwise a suggestion to change tack.
func (e *Engine) Advise() (Advice, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r := &e.round
	if r.Status != StatusPlaying || r.Entry == nil {
		return Advice{}, ErrNotPlaying
	}
	if r.Attempts < adviceAttempts {
		for i, c := range []rune(r.Entry.Title) {
			if charclass.IsContent(c) && !r.Revealed.Has(c) {
				return Advice{Type: "message", Message: fmt.Sprintf("可先关注词条第%d个字。", i+1)}, nil
			}
		}
	}
	return Advice{Type: "message", Message: "尝试次数较多，考虑换思路，先猜段落中的常用字。"}, nil
}
