package game

import (
	"errors"
	"fmt"
	"time"

	"github.com/Zhosolune/guess-the-entry-vercel/internal/persist"
)

func toSnapshot(r *Round) persist.RoundSnapshot {
	s := persist.RoundSnapshot{
		GameID:        r.ID,
		Status:        string(r.Status),
		Category:      r.Category,
		RevealedChars: r.Revealed.Strings(),
		GuessedChars:  r.Guessed.Strings(),
		Graveyard:     runeStrings(r.Graveyard),
		Attempts:      r.Attempts,
		HintCount:     r.HintCount,
		HintUsed:      r.HintUsed,
	}
	if r.Entry != nil {
		ent := *r.Entry
		s.Entry = &ent
	}
	if !r.StartTime.IsZero() {
		s.StartTime = r.StartTime.UnixMilli()
	}
	return s
}

// fromSnapshot rebuilds a round, rejecting snapshots that could not have been
// produced by the engine.
func fromSnapshot(s *persist.RoundSnapshot) (Round, error) {
	status := Status(s.Status)
	switch status {
	case StatusPlaying, StatusVictory:
	default:
		return Round{}, fmt.Errorf("status %q is not resumable", s.Status)
	}
	if s.Entry == nil {
		return Round{}, errors.New("snapshot has no entry")
	}
	if err := s.Entry.Validate(); err != nil {
		return Round{}, err
	}

	ent := *s.Entry
	r := Round{
		ID:        s.GameID,
		Status:    status,
		Category:  s.Category,
		Entry:     &ent,
		Revealed:  newCharSet(s.RevealedChars),
		Guessed:   newCharSet(s.GuessedChars),
		Attempts:  s.Attempts,
		HintCount: s.HintCount,
		HintUsed:  s.HintUsed,
		StartTime: time.UnixMilli(s.StartTime),
	}
	for _, g := range s.Graveyard {
		for _, c := range g {
			if r.Guessed.Has(c) {
				return Round{}, fmt.Errorf("character %q both guessed and wrong", c)
			}
			r.Graveyard = append(r.Graveyard, c)
		}
	}
	return r, nil
}
