package httpserver

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Zhosolune/guess-the-entry-vercel/internal/game"
	"github.com/Zhosolune/guess-the-entry-vercel/internal/persist"
)

// Session limits applied when Config leaves them zero.
const (
	DefaultSessionIdle = 30 * time.Minute
	DefaultMaxSessions = 10000
)

// session is one player's store and engine.
type session struct {
	store  *persist.Store
	engine *game.Engine

	lastSeen time.Time // guarded by sessions.mu

	restoreMu sync.Mutex
	restored  bool
}

// sessions maps player ids to live sessions. All durable state is in the KV,
// so an evicted session is rebuilt from storage on the player's next request.
type sessions struct {
	cfg  Config
	now  func() time.Time
	idle time.Duration
	max  int

	mu        sync.Mutex
	byID      map[string]*session
	lastSweep time.Time
}

func newSessions(cfg Config) *sessions {
	ss := &sessions{
		cfg:  cfg,
		now:  cfg.Now,
		idle: cfg.SessionIdle,
		max:  cfg.MaxSessions,
		byID: make(map[string]*session),
	}
	if ss.now == nil {
		ss.now = time.Now
	}
	if ss.idle <= 0 {
		ss.idle = DefaultSessionIdle
	}
	if ss.max <= 0 {
		ss.max = DefaultMaxSessions
	}
	ss.lastSweep = ss.now()
	return ss
}

// get returns the session for id, hydrating its engine from the persisted
// round until that succeeds once.
func (ss *sessions) get(ctx context.Context, id string) *session {
	ss.mu.Lock()
	now := ss.now()
	if now.Sub(ss.lastSweep) >= ss.idle/4 {
		ss.sweep(now)
	}
	s, ok := ss.byID[id]
	if !ok {
		if len(ss.byID) >= ss.max {
			ss.evictOldest()
		}
		opts := ss.cfg.State
		opts.Prefix = "player:" + id + ":"
		store := persist.New(ss.cfg.Backend, opts)
		s = &session{store: store, engine: game.New(ss.cfg.Generator, store, ss.cfg.Engine)}
		ss.byID[id] = s
	}
	s.lastSeen = now
	ss.mu.Unlock()

	s.restore(ctx, id)
	return s
}

// len reports the number of live sessions.
func (ss *sessions) len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.byID)
}

// sweep drops sessions idle longer than ss.idle. Callers hold mu.
func (ss *sessions) sweep(now time.Time) {
	for id, s := range ss.byID {
		if now.Sub(s.lastSeen) > ss.idle {
			delete(ss.byID, id)
		}
	}
	ss.lastSweep = now
}

// evictOldest drops the least recently seen session. Callers hold mu.
func (ss *sessions) evictOldest() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, s := range ss.byID {
		if oldestID == "" || s.lastSeen.Before(oldest) {
			oldestID, oldest = id, s.lastSeen
		}
	}
	if oldestID != "" {
		delete(ss.byID, oldestID)
		log.Debug().Str("player", oldestID).Msg("session evicted at capacity")
	}
}

// restore loads the persisted round into the engine. A storage error leaves
// the session unrestored so the next request tries again.
func (s *session) restore(ctx context.Context, id string) {
	s.restoreMu.Lock()
	defer s.restoreMu.Unlock()
	if s.restored {
		return
	}
	restored, err := s.engine.Restore(ctx)
	if err != nil {
		log.Warn().Err(err).Str("player", id).Msg("restore round")
		return
	}
	s.restored = true
	if restored {
		log.Debug().Str("player", id).Msg("resumed persisted round")
	}
}
