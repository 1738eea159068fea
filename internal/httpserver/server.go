// internal/httpserver/server.go
//
// HTTP server wiring for the guessing game.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/metrics".
//   - Player endpoints (anonymous identity, see player.go): rounds, guesses,
//     hints, settings, UI flags, stats, exclusion list.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Every player gets a persist.Store namespaced by player id over the one
//     shared KV backend, and a game.Engine hydrated from it on first use.
//   - Start/Serve run until their context ends, then drain in-flight requests
//     before returning, so callers can close the backend afterwards.

package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Zhosolune/guess-the-entry-vercel/internal/game"
	"github.com/Zhosolune/guess-the-entry-vercel/internal/generate"
	"github.com/Zhosolune/guess-the-entry-vercel/internal/kv"
	"github.com/Zhosolune/guess-the-entry-vercel/internal/persist"
)

// Config carries everything the server needs. Zero values take defaults.
type Config struct {
	Backend   kv.KV
	Generator generate.Generator
	State     persist.Options // Prefix is set per player
	Engine    game.Options

	ClientOrigin   string        // CORS origin; http://localhost:5173 when empty
	JWTSecret      string        // player token signing key
	TokenTTL       time.Duration // player token lifetime; 180 days when zero
	CookieName     string        // player token cookie; guess_player when empty
	SecureCookies  bool          // Secure + SameSite=None
	RequestTimeout time.Duration // per-request bound; generation timeout + 10s when zero

	ShutdownTimeout time.Duration // drain budget after the serve context ends; 10s when zero

	SessionIdle time.Duration    // drop player sessions unused this long; DefaultSessionIdle when zero
	MaxSessions int              // live session cap; DefaultMaxSessions when zero
	Now         func() time.Time // clock for session expiry; time.Now when nil
}

// Server bundles the router and player sessions.
type Server struct {
	r        *chi.Mux
	cfg      Config
	sessions *sessions
}

// New constructs a Server, installs middleware, and registers routes.
func New(cfg Config) *Server {
	if cfg.ClientOrigin == "" {
		cfg.ClientOrigin = "http://localhost:5173"
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 180 * 24 * time.Hour
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "guess_player"
	}
	if cfg.RequestTimeout <= 0 {
		gen := cfg.Engine.GenerateTimeout
		if gen <= 0 {
			gen = game.DefaultGenerateTimeout
		}
		cfg.RequestTimeout = gen + 10*time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{r: chi.NewRouter(), cfg: cfg, sessions: newSessions(cfg)}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                   // add X-Request-ID
	s.r.Use(chimw.RealIP)                      // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)                   // recover from panics
	s.r.Use(chimw.Timeout(cfg.RequestTimeout)) // bound handler time
	s.r.Use(jsonContentType)                   // default JSON responses
	s.r.Use(cors(cfg.ClientOrigin))            // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"guess-the-entry","endpoints":["/health","/metrics","POST /round/new","GET /round","POST /round/guess","POST /round/hint","GET /round/hint","POST /round/reset","/settings","PATCH /ui","GET /stats","GET /excluded/{category}"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Player endpoints; identity is minted on first contact.
	s.r.Group(func(r chi.Router) {
		r.Use(s.withPlayer)

		r.Post("/round/new", s.handleNewRound)
		r.Get("/round", s.handleRound)
		r.Post("/round/guess", s.handleGuess)
		r.Post("/round/hint", s.handleHintReveal)
		r.Get("/round/hint", s.handleAdvice)
		r.Post("/round/reset", s.handleReset)

		r.Get("/settings", s.handleGetSettings)
		r.Patch("/settings", s.handlePatchSettings)
		r.Patch("/ui", s.handlePatchUI)
		r.Get("/stats", s.handleStats)
		r.Get("/excluded/{category}", s.handleExcluded)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: r.URL.Path})
	})

	return s
}

// Start listens on addr and serves until ctx ends.
func (s *Server) Start(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve handles requests on ln until ctx ends, then shuts down gracefully:
// in-flight requests get up to ShutdownTimeout to finish. It returns nil after
// a clean shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for a single origin.
func cors(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Expose-Headers", playerTokenHeader)
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
