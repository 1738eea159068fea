// internal/game/engine.go
//
// Engine owns one player's live round.
// Responsibilities:
//   - Start rounds: resolve Random, rate-limit, fetch an entry while avoiding
//     already-served titles (one retry on collision), install the round.
//   - Apply guesses and hint reveals, enforcing the character rules from
//     charclass and the one-resolution-per-character rule.
//   - Detect victory (every content character of the title guessed) and
//     commit stats and the exclusion entry.
//   - Persist a snapshot after every mutation, best effort.
//
// Concurrency:
//   - mu guards the round. Generation runs outside the lock, so a slow
//     generator does not block reads of the current round; if two starts
//     overlap, the later one to finish wins.
//
// Persistence failures are logged and swallowed: the in-memory round stays
// authoritative for the session.

package game

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/Zhosolune/guess-the-entry-vercel/internal/charclass"
	"github.com/Zhosolune/guess-the-entry-vercel/internal/entry"
	"github.com/Zhosolune/guess-the-entry-vercel/internal/generate"
	"github.com/Zhosolune/guess-the-entry-vercel/internal/metrics"
	"github.com/Zhosolune/guess-the-entry-vercel/internal/persist"
)

// RateLimitKey tags generation calls in the persisted rate-limit log.
const RateLimitKey = "generateEntry"

// Defaults applied by New.
const (
	DefaultGenerateTimeout = 60 * time.Second
	DefaultRateLimit       = 10
	DefaultRateWindow      = 60 * time.Second
)

// Repository is the slice of the persistence store the engine needs.
// *persist.Store implements it.
type Repository interface {
	Excluded(ctx context.Context, category string) ([]string, error)
	AddExcluded(ctx context.Context, title, category string) error
	SaveRound(ctx context.Context, snap persist.RoundSnapshot) error
	ClearRound(ctx context.Context) error
	LastRound(ctx context.Context) (*persist.RoundSnapshot, error)
	RecordVictory(ctx context.Context, v persist.Victory) error
	AllowCall(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Options configure an Engine. Zero durations take the defaults; RateLimit
// <= 0 disables rate limiting.
type Options struct {
	GenerateTimeout time.Duration
	RateLimit       int
	RateWindow      time.Duration
	Now             func() time.Time // time.Now when nil
	Intn            func(n int) int  // category draw; crypto/rand when nil
	NewID           func() string    // round ids; random hex when nil
}

// Engine is the game state machine for one player.
type Engine struct {
	gen  generate.Generator
	repo Repository
	opts Options

	mu    sync.Mutex
	round Round
}

// New constructs an Engine in the Start state.
func New(gen generate.Generator, repo Repository, opts Options) *Engine {
	if opts.GenerateTimeout <= 0 {
		opts.GenerateTimeout = DefaultGenerateTimeout
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = DefaultRateWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = randomID
	}
	return &Engine{gen: gen, repo: repo, opts: opts, round: Round{Status: StatusStart}}
}

// StartRound begins a new round in category (a key, alias, or Random).
// On failure the current round is left as is, except that an idle engine
// moves to StatusError. Generation failures wrap ErrGeneration.
func (e *Engine) StartRound(ctx context.Context, category string) error {
	key := entry.Normalize(category)
	if !entry.IsKnown(key) {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	concrete := key
	if key == entry.Random {
		concrete = entry.Draw(e.opts.Intn)
	}

	ent, err := e.fetch(ctx, concrete)
	if err != nil {
		code := generate.CodeOf(err)
		if errors.Is(err, ErrRateLimited) {
			code = generate.CodeRateLimit
		}
		if code == "" {
			code = "unknown"
		}
		metrics.GenerationFailures.WithLabelValues(code).Inc()
		log.Error().Err(err).Str("category", concrete).Msg("start round failed")

		e.mu.Lock()
		if e.round.Status == StatusStart {
			e.round.Status = StatusError
		}
		e.mu.Unlock()
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.round = Round{
		ID:        e.opts.NewID(),
		Status:    StatusPlaying,
		Category:  key,
		Entry:     &ent,
		StartTime: e.opts.Now(),
	}
	metrics.RoundsStarted.WithLabelValues(concrete).Inc()
	e.persist(ctx)
	return nil
}

// fetch asks the generator for an entry in concrete, honoring the rate limit
// and the exclusion list.
func (e *Engine) fetch(ctx context.Context, concrete string) (entry.Entry, error) {
	if e.opts.RateLimit > 0 {
		ok, err := e.repo.AllowCall(ctx, RateLimitKey, e.opts.RateLimit, e.opts.RateWindow)
		if err != nil {
			log.Warn().Err(err).Msg("rate limit check failed, allowing call")
		} else if !ok {
			return entry.Entry{}, ErrRateLimited
		}
	}

	exclude, err := e.repo.Excluded(ctx, concrete)
	if err != nil {
		log.Warn().Err(err).Str("category", concrete).Msg("read exclusion list")
		exclude = nil
	}

	gctx, cancel := context.WithTimeout(ctx, e.opts.GenerateTimeout)
	defer cancel()

	ent, err := e.gen.Generate(gctx, concrete, exclude)
	if err != nil {
		return entry.Entry{}, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	if contains(exclude, ent.Title) {
		log.Info().Str("title", ent.Title).Str("category", concrete).Msg("generated title already served, retrying once")
		retryExclude := append(append([]string(nil), exclude...), ent.Title)
		ent, err = e.gen.Generate(gctx, concrete, retryExclude)
		if err != nil {
			return entry.Entry{}, fmt.Errorf("%w: %w", ErrGeneration, err)
		}
	}

	if err := ent.Validate(); err != nil {
		return entry.Entry{}, fmt.Errorf("%w: %w", ErrGeneration, &generate.Error{
			Code: generate.CodeInvalidStructure, Message: "unusable entry", Err: err,
		})
	}
	if !entry.IsConcrete(ent.Category) {
		ent.Category = concrete
	}
	return ent, nil
}

// ProcessGuess applies one player guess. Rejections wrap ErrValidation and
// leave the round untouched.
func (e *Engine) ProcessGuess(ctx context.Context, char string) (GuessResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.checkChar(char)
	if err != nil {
		return GuessResult{}, err
	}

	r := &e.round
	positions := locate(r.Entry, c)
	r.Attempts++
	if len(positions) > 0 {
		r.Guessed.Add(c)
		r.Revealed.Add(c)
		metrics.Guesses.WithLabelValues("correct").Inc()
	} else {
		r.Graveyard = append(r.Graveyard, c)
		metrics.Guesses.WithLabelValues("wrong").Inc()
	}

	won := e.checkVictory(ctx)
	e.persist(ctx)
	return GuessResult{Success: true, IsCorrect: len(positions) > 0, Positions: positions, Won: won}, nil
}

// RequestHintReveal reveals c as an assisted guess. c must occur in the
// entry. Hints do not count as attempts and make the round non-perfect.
func (e *Engine) RequestHintReveal(ctx context.Context, char string) (GuessResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.checkChar(char)
	if err != nil {
		return GuessResult{}, err
	}

	r := &e.round
	positions := locate(r.Entry, c)
	if len(positions) == 0 {
		return GuessResult{}, fmt.Errorf("%w: %q", ErrNotInEntry, char)
	}
	r.Guessed.Add(c)
	r.Revealed.Add(c)
	r.HintCount++
	r.HintUsed = true
	metrics.Guesses.WithLabelValues("hint").Inc()

	won := e.checkVictory(ctx)
	e.persist(ctx)
	return GuessResult{Success: true, IsCorrect: true, Positions: positions, Won: won}, nil
}

// checkChar validates a guess against the live round. Callers hold mu.
func (e *Engine) checkChar(char string) (rune, error) {
	r := &e.round
	if r.Status != StatusPlaying || r.Entry == nil {
		return 0, ErrNotPlaying
	}
	if utf8.RuneCountInString(char) != 1 {
		return 0, ErrInvalidChar
	}
	c, _ := utf8.DecodeRuneInString(char)
	if c == utf8.RuneError {
		return 0, ErrInvalidChar
	}
	if !charclass.IsContent(c) {
		return 0, fmt.Errorf("%w: %q is %s", ErrScript, char, charclass.Of(c))
	}
	if r.Guessed.Has(c) || r.Revealed.Has(c) || r.inGraveyard(c) {
		return 0, fmt.Errorf("%w: %q", ErrAlreadyResolved, char)
	}
	return c, nil
}

// checkVictory moves the round to Victory when every content character of the
// title has been guessed, committing stats and the exclusion entry.
// Callers hold mu.
func (e *Engine) checkVictory(ctx context.Context) bool {
	r := &e.round
	for _, c := range charclass.ContentRunes(r.Entry.Title) {
		if !r.Guessed.Has(c) {
			return false
		}
	}
	r.Status = StatusVictory

	v := persist.Victory{
		GameID:    r.ID,
		Category:  r.EffectiveCategory(),
		TimeSpent: int64(e.opts.Now().Sub(r.StartTime) / time.Second),
		Attempts:  r.Attempts,
		Percent:   progress(r),
		HintCount: r.HintCount,
		Perfect:   !r.HintUsed,
	}
	if err := e.repo.RecordVictory(ctx, v); err != nil {
		log.Warn().Err(err).Str("game", r.ID).Msg("record victory stats")
	}
	if err := e.repo.AddExcluded(ctx, r.Entry.Title, v.Category); err != nil {
		log.Warn().Err(err).Str("game", r.ID).Msg("add excluded entry")
	}
	metrics.RoundsWon.WithLabelValues(strconv.FormatBool(v.Perfect)).Inc()
	return true
}

// Progress returns the percentage of content positions revealed across title
// and passage, rounded to the nearest integer. It reads 100 only when every
// position is revealed, and 0 when no round is loaded.
func (e *Engine) Progress() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return progress(&e.round)
}

func progress(r *Round) int {
	if r.Entry == nil {
		return 0
	}
	total, shown := 0, 0
	for _, s := range []string{r.Entry.Title, r.Entry.Passage} {
		for _, c := range s {
			if !charclass.IsContent(c) {
				continue
			}
			total++
			if r.Revealed.Has(c) {
				shown++
			}
		}
	}
	if total == 0 {
		return 0
	}
	pct := (shown*100 + total/2) / total
	if pct == 100 && shown < total {
		pct = 99
	}
	return pct
}

// Reset returns the engine to Start and drops the persisted round. Settings
// and stats are untouched.
func (e *Engine) Reset(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.round = Round{Status: StatusStart}
	if err := e.repo.ClearRound(ctx); err != nil {
		log.Warn().Err(err).Msg("clear persisted round")
	}
}

// Restore loads the persisted round, if any, into an idle engine. It returns
// whether a round was restored. Unusable snapshots are ignored.
func (e *Engine) Restore(ctx context.Context) (bool, error) {
	snap, err := e.repo.LastRound(ctx)
	if err != nil {
		return false, err
	}
	if snap == nil {
		return false, nil
	}
	r, err := fromSnapshot(snap)
	if err != nil {
		log.Warn().Err(err).Str("game", snap.GameID).Msg("ignoring persisted round")
		return false, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.round.Status == StatusPlaying {
		return false, nil
	}
	e.round = r
	return true, nil
}

// Snapshot returns the serializable form of the current round.
func (e *Engine) Snapshot() persist.RoundSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return toSnapshot(&e.round)
}

// persist saves the current round, best effort. Callers hold mu so saves
// land in mutation order.
func (e *Engine) persist(ctx context.Context) {
	if err := e.repo.SaveRound(ctx, toSnapshot(&e.round)); err != nil {
		log.Warn().Err(err).Str("game", e.round.ID).Msg("persist round snapshot")
	}
}

// locate returns every occurrence of c in the entry.
func locate(ent *entry.Entry, c rune) []Position {
	var out []Position
	for _, f := range []struct {
		field Field
		text  string
	}{{FieldTitle, ent.Title}, {FieldPassage, ent.Passage}} {
		i := 0
		for _, r := range f.text {
			if r == c {
				out = append(out, Position{Field: f.field, Index: i})
			}
			i++
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// randomID returns 16 hex characters from crypto/rand.
func randomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
