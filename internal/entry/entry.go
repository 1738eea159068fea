// internal/entry/entry.go
//
// Entry is the generated puzzle: a short title the player must reveal and an
// encyclopedia-style passage that is masked alongside it.
//
// Entries are immutable once fetched; the engine only reads them.

package entry

import (
	"errors"
	"strings"

	"github.com/Zhosolune/guess-the-entry-vercel/internal/charclass"
)

// Metadata carries generator-side descriptors of an entry.
type Metadata struct {
	Difficulty string `json:"difficulty,omitempty" yaml:"difficulty"`
	Source     string `json:"source,omitempty" yaml:"source"`
}

// Entry is a single generated title + passage pair.
type Entry struct {
	Title    string   `json:"title" yaml:"title"`
	Passage  string   `json:"passage" yaml:"passage"`
	Category string   `json:"category" yaml:"category"` // concrete category key, never Random
	Metadata Metadata `json:"metadata" yaml:"metadata"`
}

// ErrInvalid is returned by Validate for unusable entries.
var ErrInvalid = errors.New("invalid entry")

// Validate checks the minimum an entry needs to be playable: a title with at
// least one content character. Without one a round would be won before the
// first guess.
func (e Entry) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return errors.Join(ErrInvalid, errors.New("empty title"))
	}
	if charclass.CountContent(e.Title) == 0 {
		return errors.Join(ErrInvalid, errors.New("title has no guessable characters"))
	}
	return nil
}
