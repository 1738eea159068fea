// internal/generate/fallback.go
//
// Static fallback table.
//
// Sources (LoadFallback):
//   1. FALLBACK_ENTRIES_FILE, when configured: a YAML file of the same shape.
//   2. Otherwise the table embedded in assets/fallback_entries.yaml.
//
// Shape: category key → list of entries. The "random" row serves any
// category without rows of its own.

package generate

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/Zhosolune/guess-the-entry-vercel/assets"
	"github.com/Zhosolune/guess-the-entry-vercel/internal/entry"
	"github.com/Zhosolune/guess-the-entry-vercel/internal/metrics"
)

// Fallback serves entries from a fixed table. It never fails once loaded.
type Fallback struct {
	table map[string][]entry.Entry
}

var (
	defaultOnce     sync.Once
	defaultFallback *Fallback
	defaultErr      error
)

// DefaultFallback returns the embedded table, parsed once.
func DefaultFallback() (*Fallback, error) {
	defaultOnce.Do(func() {
		data, err := assets.FallbackEntries()
		if err != nil {
			defaultErr = err
			return
		}
		defaultFallback, defaultErr = ParseFallback(data)
	})
	return defaultFallback, defaultErr
}

// LoadFallback reads the table at path, or the embedded one when path is empty.
func LoadFallback(path string) (*Fallback, error) {
	if path == "" {
		return DefaultFallback()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseFallback(data)
}

// ParseFallback decodes and validates a YAML table. A "random" row is required.
func ParseFallback(data []byte) (*Fallback, error) {
	var raw map[string][]entry.Entry
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("fallback table: %w", err)
	}
	table := make(map[string][]entry.Entry, len(raw))
	for key, rows := range raw {
		cat := entry.Normalize(key)
		if !entry.IsKnown(cat) {
			return nil, fmt.Errorf("fallback table: unknown category %q", key)
		}
		for i, e := range rows {
			if err := e.Validate(); err != nil {
				return nil, fmt.Errorf("fallback table: %s[%d]: %w", key, i, err)
			}
			if e.Category == "" {
				e.Category = cat
			}
			e.Metadata.Source = "fallback"
			table[cat] = append(table[cat], e)
		}
	}
	if len(table[entry.Random]) == 0 {
		return nil, fmt.Errorf("fallback table: missing %q row", entry.Random)
	}
	return &Fallback{table: table}, nil
}

// Categories lists the keys that have rows, sorted.
func (f *Fallback) Categories() []string {
	out := make([]string, 0, len(f.table))
	for k := range f.table {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Generate implements Generator. It prefers a row whose title is not in
// exclude and falls back to the first row otherwise.
func (f *Fallback) Generate(_ context.Context, category string, exclude []string) (entry.Entry, error) {
	rows := f.table[category]
	if len(rows) == 0 {
		rows = f.table[entry.Random]
	}
	pick := rows[0]
	for _, e := range rows {
		if !contains(exclude, e.Title) {
			pick = e
			break
		}
	}
	if entry.IsConcrete(category) {
		pick.Category = category
	}
	return pick, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type withFallback struct {
	primary  Generator
	fallback Generator
}

// WithFallback serves from fallback whenever primary fails, except when the
// primary is not configured at all (MISSING_API_KEY), which is returned as is.
func WithFallback(primary, fallback Generator) Generator {
	return &withFallback{primary: primary, fallback: fallback}
}

func (w *withFallback) Generate(ctx context.Context, category string, exclude []string) (entry.Entry, error) {
	e, err := w.primary.Generate(ctx, category, exclude)
	if err == nil {
		return e, nil
	}
	code := CodeOf(err)
	if code == CodeMissingKey {
		return entry.Entry{}, err
	}
	if code == "" {
		code = "unknown"
	}
	metrics.FallbackServed.WithLabelValues(code).Inc()
	log.Warn().Err(err).Str("category", category).Msg("generation failed, serving fallback entry")
	return w.fallback.Generate(ctx, category, exclude)
}
