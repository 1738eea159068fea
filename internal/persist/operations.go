// internal/persist/operations.go
//
// Domain mutations on the persisted document. Each is one load → patch → save
// cycle under the Store mutex.

package persist

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Zhosolune/guess-the-entry-vercel/internal/entry"
	"github.com/Zhosolune/guess-the-entry-vercel/internal/kv"
)

// Victory is the stats record committed when a round is won.
type Victory struct {
	GameID    string
	Category  string // effective (concrete) category
	TimeSpent int64  // seconds
	Attempts  int
	Percent   int
	HintCount int
	Perfect   bool
}

// UpdateSettings merges patch into the stored settings and returns the result.
func (s *Store) UpdateSettings(ctx context.Context, patch SettingsPatch) (Settings, error) {
	d, err := s.update(ctx, func(d *Document) error {
		d.Settings = d.Settings.Apply(patch)
		d.Timestamp = s.nowMs()
		return nil
	})
	if err != nil {
		return Settings{}, err
	}
	return d.Settings, nil
}

// PatchUI overlays patch onto the stored panel flags and returns the result.
func (s *Store) PatchUI(ctx context.Context, patch UIFlags) (UIFlags, error) {
	d, err := s.update(ctx, func(d *Document) error {
		d.UI = d.UI.Merge(patch)
		return nil
	})
	if err != nil {
		return UIFlags{}, err
	}
	return d.UI, nil
}

// SaveRound stores snap as the resumable round and upserts its running
// attempts count into the stats.
func (s *Store) SaveRound(ctx context.Context, snap RoundSnapshot) error {
	_, err := s.update(ctx, func(d *Document) error {
		d.LastGame = &snap
		d.Timestamp = s.nowMs()
		d.Stats.Attempts = upsertAttempts(d.Stats.Attempts, StatsItem{GameID: snap.GameID, Attempts: snap.Attempts})
		return nil
	})
	return err
}

// ClearRound drops the resumable round. Settings and stats are kept.
func (s *Store) ClearRound(ctx context.Context) error {
	_, err := s.update(ctx, func(d *Document) error {
		d.LastGame = nil
		return nil
	})
	return err
}

// LastRound returns the resumable round, or nil when there is none. It does
// not write.
func (s *Store) LastRound(ctx context.Context) (*RoundSnapshot, error) {
	d, err := s.Peek(ctx)
	if err != nil {
		return nil, err
	}
	return d.LastGame, nil
}

// AddExcluded records title as served for category. Blank titles are ignored.
func (s *Store) AddExcluded(ctx context.Context, title, category string) error {
	name := strings.TrimSpace(title)
	if name == "" {
		return nil
	}
	key := entry.Normalize(category)
	_, err := s.update(ctx, func(d *Document) error {
		d.ExcludedByCategory[key] = appendUnique(d.ExcludedByCategory[key], name)
		return nil
	})
	if err != nil {
		return err
	}
	s.dropLegacyKey(ctx)
	return nil
}

// Excluded returns the titles already served for category. It does not write.
func (s *Store) Excluded(ctx context.Context, category string) ([]string, error) {
	d, err := s.Peek(ctx)
	if err != nil {
		return nil, err
	}
	list := d.ExcludedByCategory[entry.Normalize(category)]
	out := make([]string, len(list))
	copy(out, list)
	return out, nil
}

func (s *Store) dropLegacyKey(ctx context.Context) {
	if err := s.kv.Delete(ctx, s.key(LegacyExcludedKey)); err != nil && !errors.Is(err, kv.ErrNotFound) {
		log.Warn().Err(err).Msg("remove legacy exclusion key")
	}
}

// RecordVictory bumps the counters and appends the per-game records for v.
// The in-progress attempts item written by SaveRound is replaced, not duplicated.
func (s *Store) RecordVictory(ctx context.Context, v Victory) error {
	_, err := s.update(ctx, func(d *Document) error {
		d.Stats.TotalGames++
		d.Stats.TotalSuccess++
		d.Stats.GameTime = append(d.Stats.GameTime, StatsItem{GameID: v.GameID, TimeSpent: v.TimeSpent, Category: v.Category})
		d.Stats.Attempts = upsertAttempts(d.Stats.Attempts, StatsItem{GameID: v.GameID, Attempts: v.Attempts, Category: v.Category})
		d.Stats.CompletionPercent = append(d.Stats.CompletionPercent, StatsItem{
			GameID:    v.GameID,
			Percent:   v.Percent,
			HintCount: v.HintCount,
			Perfect:   v.Perfect,
			Category:  v.Category,
		})
		d.Timestamp = s.nowMs()
		return nil
	})
	return err
}

func upsertAttempts(list []StatsItem, item StatsItem) []StatsItem {
	for i := range list {
		if list[i].GameID == item.GameID {
			if item.Category == "" {
				item.Category = list[i].Category
			}
			list[i] = item
			return list
		}
	}
	return append(list, item)
}

// errDenied aborts the update cycle without writing.
var errDenied = errors.New("rate limited")

// AllowCall is a sliding-window throttle keyed by an arbitrary tag. It allows
// the call iff fewer than limit calls for key happened in the last window,
// and records the call when allowed. limit <= 0 disables the throttle.
//
// This only rate-limits the legitimate client's own retries; clearing storage
// resets it.
func (s *Store) AllowCall(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	_, err := s.update(ctx, func(d *Document) error {
		now := s.nowMs()
		cutoff := now - window.Milliseconds()
		recent := make([]int64, 0, len(d.APIUsage[key])+1)
		for _, ts := range d.APIUsage[key] {
			if ts > cutoff {
				recent = append(recent, ts)
			}
		}
		if len(recent) >= limit {
			return errDenied
		}
		d.APIUsage[key] = append(recent, now)
		return nil
	})
	if errors.Is(err, errDenied) {
		return false, nil
	}
	return err == nil, err
}
