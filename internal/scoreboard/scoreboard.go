// Package scoreboard aggregates the raw per-game stats lists kept by the
// persistence store. Nothing here is stored; summaries are recomputed on read.
package scoreboard

import (
	"math"

	"github.com/Zhosolune/guess-the-entry-vercel/internal/entry"
	"github.com/Zhosolune/guess-the-entry-vercel/internal/persist"
)

// Summary is the scoreboard panel.
type Summary struct {
	TotalGames     int                 `json:"totalGames"`
	TotalSuccess   int                 `json:"totalSuccess"`
	WinRate        int                 `json:"winRate"` // percent
	PerfectSuccess int                 `json:"perfectSuccess"`
	AvgTimeSec     int                 `json:"avgTimeSec"`
	BestTimeSec    int64               `json:"bestTimeSec"`
	AvgAttempts    int                 `json:"avgAttempts"`
	AvgProgress    int                 `json:"avgProgress"`
	AvgHintCount   float64             `json:"avgHintCount"` // over rounds that used hints
	Categories     map[string]Category `json:"categories"`
}

// Category is one axis of the per-category breakdown.
type Category struct {
	Name        string `json:"name"`
	Wins        int    `json:"wins"`
	AvgTimeSec  int    `json:"avgTimeSec"`
	AvgAttempts int    `json:"avgAttempts"`
	AvgPercent  int    `json:"avgPercent"`
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v float64) { m.sum += v; m.n++ }

func (m mean) rounded() int {
	if m.n == 0 {
		return 0
	}
	return int(math.Round(m.sum / float64(m.n)))
}

// Summarize computes the scoreboard from s. Attempts are averaged over
// completed games only; in-progress items are ignored.
func Summarize(s persist.Stats) Summary {
	out := Summary{
		TotalGames:   s.TotalGames,
		TotalSuccess: s.TotalSuccess,
		Categories:   make(map[string]Category, len(entry.Categories)),
	}
	if s.TotalGames > 0 {
		out.WinRate = int(math.Round(float64(s.TotalSuccess) / float64(s.TotalGames) * 100))
	}

	type acc struct {
		wins                    int
		time, attempts, percent mean
	}
	per := make(map[string]*acc)
	bucket := func(cat string) *acc {
		a, ok := per[cat]
		if !ok {
			a = &acc{}
			per[cat] = a
		}
		return a
	}

	completed := make(map[string]bool, len(s.CompletionPercent))
	var progress, hints mean
	for _, it := range s.CompletionPercent {
		completed[it.GameID] = true
		if it.Perfect {
			out.PerfectSuccess++
		}
		progress.add(float64(it.Percent))
		if it.HintCount > 0 {
			hints.add(float64(it.HintCount))
		}
		a := bucket(it.Category)
		a.wins++
		a.percent.add(float64(it.Percent))
	}
	out.AvgProgress = progress.rounded()
	if hints.n > 0 {
		out.AvgHintCount = math.Round(hints.sum/float64(hints.n)*100) / 100
	}

	var elapsed mean
	for i, it := range s.GameTime {
		elapsed.add(float64(it.TimeSpent))
		if i == 0 || it.TimeSpent < out.BestTimeSec {
			out.BestTimeSec = it.TimeSpent
		}
		bucket(it.Category).time.add(float64(it.TimeSpent))
	}
	out.AvgTimeSec = elapsed.rounded()

	var attempts mean
	for _, it := range s.Attempts {
		if !completed[it.GameID] {
			continue
		}
		attempts.add(float64(it.Attempts))
		bucket(it.Category).attempts.add(float64(it.Attempts))
	}
	out.AvgAttempts = attempts.rounded()

	for _, key := range entry.Categories {
		c := Category{Name: entry.DisplayName(key)}
		if a, ok := per[key]; ok {
			c.Wins = a.wins
			c.AvgTimeSec = a.time.rounded()
			c.AvgAttempts = a.attempts.rounded()
			c.AvgPercent = a.percent.rounded()
		}
		out.Categories[key] = c
	}
	return out
}
