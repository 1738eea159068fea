// wiring.go
//
// Builds the runtime collaborators named by the configuration: the KV
// backend, the entry generator, and the store/engine options.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Zhosolune/guess-the-entry-vercel/internal/config"
	"github.com/Zhosolune/guess-the-entry-vercel/internal/game"
	"github.com/Zhosolune/guess-the-entry-vercel/internal/generate"
	"github.com/Zhosolune/guess-the-entry-vercel/internal/kv"
	"github.com/Zhosolune/guess-the-entry-vercel/internal/persist"
)

// openBackend opens the configured KV. The returned func releases it.
func openBackend(ctx context.Context, cfg *config.Config) (kv.KV, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		db, err := kv.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("using sqlite store")
		return db, func() { _ = db.Close() }, nil
	case config.BackendRedis:
		rdb, err := kv.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, "guess:")
		if err != nil {
			return nil, nil, fmt.Errorf("dial redis: %w", err)
		}
		log.Info().Str("addr", cfg.RedisAddr).Msg("using redis store")
		return rdb, func() { _ = rdb.Close() }, nil
	default:
		log.Warn().Msg("using in-memory store, state is lost on restart")
		return kv.NewMemory(), func() {}, nil
	}
}

// newGenerator builds the configured generator, wrapped so that network
// failures fall back to the static table.
func newGenerator(ctx context.Context, cfg *config.Config) (generate.Generator, func(), error) {
	fb, err := generate.LoadFallback(cfg.FallbackEntriesFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load fallback entries: %w", err)
	}

	switch cfg.Generator {
	case config.GeneratorGemini:
		g, err := generate.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, fmt.Errorf("gemini: %w", err)
		}
		return generate.WithFallback(g, fb), func() { _ = g.Close() }, nil
	case config.GeneratorFallback:
		return fb, func() {}, nil
	default:
		if cfg.DeepSeekAPIKey == "" {
			log.Warn().Msg("DEEPSEEK_API_KEY not set, rounds will fail until it is")
		}
		g := generate.NewDeepSeek(generate.DeepSeekConfig{
			APIKey:  cfg.DeepSeekAPIKey,
			BaseURL: cfg.DeepSeekBaseURL,
			Model:   cfg.DeepSeekModel,
			Timeout: cfg.GenerateTimeout,
		})
		return generate.WithFallback(g, fb), func() {}, nil
	}
}

func stateOptions(cfg *config.Config) persist.Options {
	var secret []byte
	if cfg.StateSecret != "" {
		secret = []byte(cfg.StateSecret)
		if len(secret) < persist.MinSecretLen {
			log.Warn().Int("min", persist.MinSecretLen).Msg("STATE_SECRET too short, using per-player generated secrets")
		}
	}
	return persist.Options{
		Secret:   secret,
		Compress: cfg.StateCompress,
		Encrypt:  cfg.StateEncrypt,
	}
}

func engineOptions(cfg *config.Config) game.Options {
	return game.Options{
		GenerateTimeout: cfg.GenerateTimeout,
		RateLimit:       cfg.RateLimit,
		RateWindow:      cfg.RateWindow,
	}
}

func tokenTTL(cfg *config.Config) time.Duration {
	return time.Duration(cfg.JWTExpiresDays) * 24 * time.Hour
}
