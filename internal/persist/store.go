// internal/persist/store.go
//
// Store is the persistence layer for one player's Document.
// Responsibilities:
//   - Load: read → decrypt? → decompress? → parse → verify, falling back to a
//     fresh default document on any corruption (never surfaced to callers).
//   - Save: seal integrity, bump changeCount, compress/encrypt per Options, write.
//   - Domain mutations (settings, stats, snapshot, exclusions, rate limit, UI)
//     as load → patch → save cycles.
//
// Concurrency:
//   - Every public method holds mu for its whole load/modify/save cycle, so
//     mutations through one Store never interleave. Two Stores pointed at the
//     same key are NOT coordinated; last write wins at the storage key.
//
// Errors:
//   - Storage I/O failures are returned (StorageFailure).
//   - Integrity failures are logged and recovered inside Load.

package persist

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Zhosolune/guess-the-entry-vercel/internal/kv"
	"github.com/Zhosolune/guess-the-entry-vercel/internal/metrics"
)

// Storage keys, relative to Options.Prefix.
const (
	DocumentKey       = "guess_the_entry_user_state_v1"
	SecretKey         = "guess_the_entry_state_secret"
	LegacyExcludedKey = "guess_the_entry_excluded_entries"
)

// MinSecretLen is the shortest deployment secret accepted; shorter ones are
// ignored in favour of a generated secret.
const MinSecretLen = 16

// Options configure a Store.
type Options struct {
	Prefix   string           // namespace prepended to every storage key
	Secret   []byte           // deployment secret; generated and stored when shorter than MinSecretLen
	Compress bool             // gzip payloads on write
	Encrypt  bool             // AES-GCM payloads on write
	Now      func() time.Time // clock; time.Now when nil
}

// Store reads and writes one Document through a KV.
type Store struct {
	kv   kv.KV
	opts Options

	mu   sync.Mutex // serializes load/modify/save cycles
	keys *keyring   // derived lazily, guarded by mu
}

// New constructs a Store over backend.
func New(backend kv.KV, opts Options) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{kv: backend, opts: opts}
}

func (s *Store) key(name string) string { return s.opts.Prefix + name }

func (s *Store) nowMs() int64 { return s.opts.Now().UnixMilli() }

// keyring resolves the state secret once and derives keys from it.
// Order: deployment secret, then stored secret, then a new random one.
func (s *Store) keyring(ctx context.Context) (*keyring, error) {
	if s.keys != nil {
		return s.keys, nil
	}
	secret := s.opts.Secret
	if len(secret) < MinSecretLen {
		var err error
		secret, err = s.storedSecret(ctx)
		if err != nil {
			return nil, err
		}
	}
	k, err := deriveKeys(secret)
	if err != nil {
		return nil, err
	}
	s.keys = k
	return k, nil
}

func (s *Store) storedSecret(ctx context.Context) ([]byte, error) {
	raw, err := s.kv.Get(ctx, s.key(SecretKey))
	if err == nil {
		if b, derr := base64.StdEncoding.DecodeString(raw); derr == nil && len(b) >= MinSecretLen {
			return b, nil
		}
		log.Warn().Str("key", s.key(SecretKey)).Msg("stored state secret unreadable, regenerating")
	} else if !errors.Is(err, kv.ErrNotFound) {
		return nil, fmt.Errorf("read secret: %w", err)
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	if err := s.kv.Put(ctx, s.key(SecretKey), base64.StdEncoding.EncodeToString(b)); err != nil {
		return nil, fmt.Errorf("write secret: %w", err)
	}
	return b, nil
}

// Load returns the current trusted document, creating it when absent and
// replacing it with defaults when it fails to decode or verify.
func (s *Store) Load(ctx context.Context) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Save seals and writes d. d.Integrity is updated in place.
func (s *Store) Save(ctx context.Context, d *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, d)
}

// Peek returns the current document like Load but never writes: an absent or
// rejected document yields unsaved defaults, and a legacy migration is only
// applied in memory. The next mutation persists whatever Peek reported.
func (s *Store) Peek(ctx context.Context) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.kv.Get(ctx, s.key(DocumentKey))
	if errors.Is(err, kv.ErrNotFound) {
		return NewDocument(s.nowMs()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	keys, err := s.keyring(ctx)
	if err != nil {
		return nil, err
	}
	d, _, err := s.decode(keys, []byte(raw))
	if err != nil {
		log.Debug().Err(err).Str("key", s.key(DocumentKey)).Msg("persisted state rejected on read")
		return NewDocument(s.nowMs()), nil
	}
	return d, nil
}

func (s *Store) load(ctx context.Context) (*Document, error) {
	keys, err := s.keyring(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := s.kv.Get(ctx, s.key(DocumentKey))
	if errors.Is(err, kv.ErrNotFound) {
		return s.fresh(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}

	d, migrated, err := s.decode(keys, []byte(raw))
	if err != nil {
		log.Warn().Err(err).Str("key", s.key(DocumentKey)).Msg("persisted state rejected, resetting to defaults")
		metrics.StateResets.WithLabelValues(resetReason(err)).Inc()
		return s.fresh(ctx)
	}
	if migrated {
		if err := s.kv.Delete(ctx, s.key(LegacyExcludedKey)); err != nil {
			log.Warn().Err(err).Msg("remove legacy exclusion key")
		}
		d.Timestamp = s.nowMs()
		if err := s.save(ctx, d); err != nil {
			return nil, err
		}
		log.Info().Str("key", s.key(DocumentKey)).Msg("migrated legacy exclusion list")
	}
	return d, nil
}

// fresh writes and returns a default document.
func (s *Store) fresh(ctx context.Context) (*Document, error) {
	d := NewDocument(s.nowMs())
	if err := s.save(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// legacyProbe detects the pre-category exclusion list.
type legacyProbe struct {
	ExcludedEntries json.RawMessage `json:"excludedEntries"`
}

// decode turns a stored payload into a verified document.
func (s *Store) decode(keys *keyring, payload []byte) (*Document, bool, error) {
	plain := payload
	if out, ok, err := decrypt(keys.aes, plain); ok {
		if err != nil {
			return nil, false, fmt.Errorf("decrypt: %w", err)
		}
		plain = out
	}
	if out, ok, err := decompress(plain); ok {
		if err != nil {
			return nil, false, fmt.Errorf("decompress: %w", err)
		}
		plain = out
	}

	var probe legacyProbe
	if err := json.Unmarshal(plain, &probe); err != nil {
		return nil, false, fmt.Errorf("parse: %w", err)
	}
	if len(probe.ExcludedEntries) > 0 {
		d, err := migrateLegacy(keys, plain, probe.ExcludedEntries)
		return d, err == nil, err
	}

	var d Document
	dec := json.NewDecoder(bytes.NewReader(plain))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return nil, false, fmt.Errorf("parse: %w", err)
	}
	if dec.More() {
		return nil, false, errors.New("parse: trailing data")
	}
	if err := keys.verify(&d); err != nil {
		return nil, false, err
	}
	// Key matching in encoding/json is case-insensitive; only the exact bytes
	// save produced are accepted.
	canon, err := json.Marshal(&d)
	if err != nil {
		return nil, false, fmt.Errorf("parse: %w", err)
	}
	if !bytes.Equal(canon, plain) {
		return nil, false, errors.New("parse: non-canonical document")
	}
	d.normalize()
	return &d, false, nil
}

func (s *Store) save(ctx context.Context, d *Document) error {
	keys, err := s.keyring(ctx)
	if err != nil {
		return err
	}
	d.normalize()
	d.Integrity.ChangeCount++
	if err := keys.seal(d); err != nil {
		return err
	}
	payload, err := json.Marshal(d)
	if err != nil {
		return err
	}
	if s.opts.Compress {
		if payload, err = compress(payload); err != nil {
			return fmt.Errorf("compress: %w", err)
		}
	}
	if s.opts.Encrypt {
		if payload, err = encrypt(keys.aes, payload); err != nil {
			return fmt.Errorf("encrypt: %w", err)
		}
	}
	if err := s.kv.Put(ctx, s.key(DocumentKey), string(payload)); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// update runs one load → fn → save cycle. fn returning an error aborts the write.
func (s *Store) update(ctx context.Context, fn func(d *Document) error) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if err := fn(d); err != nil {
		return nil, err
	}
	if err := s.save(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func resetReason(err error) string {
	if errors.Is(err, ErrIntegrity) {
		return "integrity"
	}
	return "decode"
}
