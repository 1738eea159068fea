// internal/persist/document.go
//
// Document is the single durable record kept per player. Everything except
// Integrity is "content": it is serialized canonically, checksummed and
// signed on every write, and verified on every read.
//
// Timestamps are unix milliseconds so a document survives a JSON round trip
// byte-for-byte (time.Time would lose its monotonic reading and zone).

package persist

import (
	"github.com/Zhosolune/guess-the-entry-vercel/internal/entry"
)

// Version is written into new documents.
const Version = "1.0.0"

// Settings are user preferences.
type Settings struct {
	Theme            string `json:"theme"`            // light | dark | system
	QuickRefPosition string `json:"quickRefPosition"` // bottom | left | right
	HintsEnabled     bool   `json:"hintsEnabled"`
}

// SettingsPatch carries a partial settings update; nil fields are left alone.
type SettingsPatch struct {
	Theme            *string `json:"theme,omitempty"`
	QuickRefPosition *string `json:"quickRefPosition,omitempty"`
	HintsEnabled     *bool   `json:"hintsEnabled,omitempty"`
}

// StatsItem is one per-game record. Which fields are set depends on the list
// it lives in.
type StatsItem struct {
	GameID    string `json:"gameId"`
	TimeSpent int64  `json:"timeSpent,omitempty"` // seconds
	Attempts  int    `json:"attempts,omitempty"`
	Percent   int    `json:"percent,omitempty"`
	HintCount int    `json:"hintCount,omitempty"`
	Perfect   bool   `json:"perfect,omitempty"`
	Category  string `json:"category,omitempty"`
}

// Stats are append-only per-game lists plus two counters. Aggregation is left
// to readers (see the scoreboard package).
type Stats struct {
	TotalSuccess      int         `json:"totalSuccess"`
	TotalGames        int         `json:"totalGames"`
	GameTime          []StatsItem `json:"gameTime"`
	Attempts          []StatsItem `json:"attempts"`
	CompletionPercent []StatsItem `json:"completionPercent"`
}

// Integrity holds the tamper-evidence fields. It is never part of the
// checksummed content.
type Integrity struct {
	Checksum    string `json:"checksum"`
	Signature   string `json:"signature"`
	ChangeCount int    `json:"changeCount"`
}

// UIFlags records drawer/panel state. Fields are pointers so the same type
// doubles as a patch.
type UIFlags struct {
	QuickRefOpen        *bool `json:"quickRefOpen,omitempty"`
	SettingsOpen        *bool `json:"settingsOpen,omitempty"`
	ScoreboardOpen      *bool `json:"scoreboardOpen,omitempty"`
	GameInfoOpen        *bool `json:"gameInfoOpen,omitempty"`
	GraveyardShowLabels *bool `json:"graveyardShowLabels,omitempty"`
	CorrectShowLabels   *bool `json:"correctShowLabels,omitempty"`
}

// RoundSnapshot is the serialized form of an in-progress or finished round.
// Sets are stored as arrays.
type RoundSnapshot struct {
	GameID        string       `json:"gameId"`
	Status        string       `json:"gameStatus"`
	Category      string       `json:"category"`
	Entry         *entry.Entry `json:"currentEntry"`
	RevealedChars []string     `json:"revealedChars"`
	GuessedChars  []string     `json:"guessedChars"`
	Graveyard     []string     `json:"graveyard"`
	Attempts      int          `json:"attempts"`
	HintCount     int          `json:"hintCount"`
	HintUsed      bool         `json:"hintUsed"`
	StartTime     int64        `json:"startTime"` // unix ms
}

// Document is the full persisted state.
type Document struct {
	Version            string              `json:"version"`
	Timestamp          int64               `json:"timestamp"` // unix ms
	Settings           Settings            `json:"settings"`
	ExcludedByCategory map[string][]string `json:"excludedByCategory"`
	Stats              Stats               `json:"stats"`
	Integrity          Integrity           `json:"integrity"`
	APIUsage           map[string][]int64  `json:"apiUsage"` // rate-limit key -> call times (unix ms)
	LastGame           *RoundSnapshot      `json:"lastGame"`
	UI                 UIFlags             `json:"ui"`
}

// content mirrors Document minus Integrity. Field order is fixed and map keys
// are sorted by encoding/json, which makes its encoding canonical.
type content struct {
	Version            string              `json:"version"`
	Timestamp          int64               `json:"timestamp"`
	Settings           Settings            `json:"settings"`
	ExcludedByCategory map[string][]string `json:"excludedByCategory"`
	Stats              Stats               `json:"stats"`
	APIUsage           map[string][]int64  `json:"apiUsage"`
	LastGame           *RoundSnapshot      `json:"lastGame"`
	UI                 UIFlags             `json:"ui"`
}

func (d *Document) content() content {
	return content{
		Version:            d.Version,
		Timestamp:          d.Timestamp,
		Settings:           d.Settings,
		ExcludedByCategory: d.ExcludedByCategory,
		Stats:              d.Stats,
		APIUsage:           d.APIUsage,
		LastGame:           d.LastGame,
		UI:                 d.UI,
	}
}

// DefaultSettings are applied to fresh documents.
func DefaultSettings() Settings {
	return Settings{Theme: "system", QuickRefPosition: "bottom", HintsEnabled: true}
}

// NewDocument returns a freshly initialized document stamped at nowMs.
func NewDocument(nowMs int64) *Document {
	d := &Document{
		Version:   Version,
		Timestamp: nowMs,
		Settings:  DefaultSettings(),
	}
	d.normalize()
	return d
}

// normalize replaces nil collections with empty ones so callers can append
// and index without checks. Call only after verification: it changes the
// encoding of null fields.
func (d *Document) normalize() {
	if d.Version == "" {
		d.Version = Version
	}
	if d.ExcludedByCategory == nil {
		d.ExcludedByCategory = map[string][]string{}
	}
	if d.APIUsage == nil {
		d.APIUsage = map[string][]int64{}
	}
	if d.Stats.GameTime == nil {
		d.Stats.GameTime = []StatsItem{}
	}
	if d.Stats.Attempts == nil {
		d.Stats.Attempts = []StatsItem{}
	}
	if d.Stats.CompletionPercent == nil {
		d.Stats.CompletionPercent = []StatsItem{}
	}
}

// Apply merges p into s.
func (s Settings) Apply(p SettingsPatch) Settings {
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	if p.QuickRefPosition != nil {
		s.QuickRefPosition = *p.QuickRefPosition
	}
	if p.HintsEnabled != nil {
		s.HintsEnabled = *p.HintsEnabled
	}
	return s
}

// Merge overlays the non-nil fields of p onto u.
func (u UIFlags) Merge(p UIFlags) UIFlags {
	if p.QuickRefOpen != nil {
		u.QuickRefOpen = p.QuickRefOpen
	}
	if p.SettingsOpen != nil {
		u.SettingsOpen = p.SettingsOpen
	}
	if p.ScoreboardOpen != nil {
		u.ScoreboardOpen = p.ScoreboardOpen
	}
	if p.GameInfoOpen != nil {
		u.GameInfoOpen = p.GameInfoOpen
	}
	if p.GraveyardShowLabels != nil {
		u.GraveyardShowLabels = p.GraveyardShowLabels
	}
	if p.CorrectShowLabels != nil {
		u.CorrectShowLabels = p.CorrectShowLabels
	}
	return u
}
