package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zhosolune/guess-the-entry-vercel/internal/entry"
	"github.com/Zhosolune/guess-the-entry-vercel/internal/game"
	"github.com/Zhosolune/guess-the-entry-vercel/internal/generate"
	"github.com/Zhosolune/guess-the-entry-vercel/internal/kv"
	"github.com/Zhosolune/guess-the-entry-vercel/internal/persist"
)

type stubGen struct {
	mu  sync.Mutex
	e   entry.Entry
	err error
}

func (g *stubGen) Generate(_ context.Context, category string, _ []string) (entry.Entry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return entry.Entry{}, g.err
	}
	e := g.e
	e.Category = category
	return e, nil
}

// client is a cookie-carrying test client against one Server.
type client struct {
	t      *testing.T
	h      http.Handler
	cookie *http.Cookie
}

func newTestServer(t *testing.T, g generate.Generator, engine game.Options) (*Server, *kv.Memory) {
	t.Helper()
	mem := kv.NewMemory()
	srv := New(Config{
		Backend:   mem,
		Generator: g,
		State:     persist.Options{Secret: []byte("http-test-state-secret")},
		Engine:    engine,
		JWTSecret: "http-test-jwt",
	})
	return srv, mem
}

func (c *client) do(method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	c.t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "guess_player" {
			c.cookie = ck
		}
	}
	var out map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func sunMoonGen() *stubGen {
	return &stubGen{e: entry.Entry{Title: "日月", Passage: "日月星辰。"}}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, sunMoonGen(), game.Options{})
	c := &client{t: t, h: srv.Router()}
	rec, body := c.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ok"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, sunMoonGen(), game.Options{})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestPlayRoundOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t, sunMoonGen(), game.Options{})
	c := &client{t: t, h: srv.Router()}

	rec, body := c.do(http.MethodPost, "/round/new", `{"category":"天文"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, c.cookie, "player cookie issued")
	assert.NotEmpty(t, rec.Header().Get(playerTokenHeader))
	assert.Equal(t, "playing", body["status"])
	assert.Equal(t, "■■", body["title"])
	assert.Equal(t, "■■■■。", body["passage"])
	assert.Nil(t, body["entry"], "entry hidden while playing")

	rec, body = c.do(http.MethodPost, "/round/guess", `{"char":"日"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["isCorrect"])
	assert.Len(t, body["matchedPositions"], 2)

	rec, body = c.do(http.MethodPost, "/round/guess", `{"char":"日"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_resolved", body["error"])

	rec, body = c.do(http.MethodPost, "/round/guess", `{"char":"a"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unsupported_char", body["error"])

	rec, body = c.do(http.MethodPost, "/round/hint", `{"char":"水"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "not_in_entry", body["error"])

	rec, body = c.do(http.MethodGet, "/round/hint", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "message", body["type"])

	rec, body = c.do(http.MethodPost, "/round/guess", `{"char":"月"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["wonRound"])
	round := body["round"].(map[string]any)
	assert.Equal(t, "victory", round["status"])
	assert.Equal(t, "日月", round["entry"].(map[string]any)["title"])

	rec, body = c.do(http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["totalSuccess"])
	assert.EqualValues(t, 1, body["perfectSuccess"])

	rec, body = c.do(http.MethodGet, "/excluded/astronomy", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"日月"}, body["titles"])

	rec, body = c.do(http.MethodPost, "/round/guess", `{"char":"星"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "not_playing", body["error"])

	rec, body = c.do(http.MethodPost, "/round/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "start", body["status"])
}

func TestPlayersAreIsolated(t *testing.T) {
	srv, _ := newTestServer(t, sunMoonGen(), game.Options{})
	alice := &client{t: t, h: srv.Router()}
	bob := &client{t: t, h: srv.Router()}

	rec, _ := alice.do(http.MethodPost, "/round/new", `{"category":"nature"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	_, body := bob.do(http.MethodGet, "/round", "")
	assert.Equal(t, "start", body["status"])
	_, body = alice.do(http.MethodGet, "/round", "")
	assert.Equal(t, "playing", body["status"])
}

func TestBearerTokenIdentifiesPlayer(t *testing.T) {
	srv, _ := newTestServer(t, sunMoonGen(), game.Options{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/round/new", strings.NewReader(`{"category":"nature"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	tok := rec.Header().Get(playerTokenHeader)
	require.NotEmpty(t, tok)

	req := httptest.NewRequest(http.MethodGet, "/round", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Contains(t, rec.Body.String(), `"status":"playing"`)
	assert.Empty(t, rec.Header().Get(playerTokenHeader), "valid token is not reissued")

	req = httptest.NewRequest(http.MethodGet, "/round", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Contains(t, rec.Body.String(), `"status":"start"`)
	assert.NotEmpty(t, rec.Header().Get(playerTokenHeader))
}

func TestRoundResumesAfterRestart(t *testing.T) {
	srv, mem := newTestServer(t, sunMoonGen(), game.Options{})
	c := &client{t: t, h: srv.Router()}
	c.do(http.MethodPost, "/round/new", `{"category":"nature"}`)
	c.do(http.MethodPost, "/round/guess", `{"char":"日"}`)

	restarted := New(Config{
		Backend:   mem,
		Generator: sunMoonGen(),
		State:     persist.Options{Secret: []byte("http-test-state-secret")},
		JWTSecret: "http-test-jwt",
	})
	c.h = restarted.Router()
	_, body := c.do(http.MethodGet, "/round", "")
	assert.Equal(t, "playing", body["status"])
	assert.Equal(t, "日■", body["title"])
}

func TestGenerationErrorsMapToStatus(t *testing.T) {
	g := &stubGen{err: &generate.Error{Code: generate.CodeTimeout, Message: "slow"}}
	srv, _ := newTestServer(t, g, game.Options{})
	c := &client{t: t, h: srv.Router()}

	rec, body := c.do(http.MethodPost, "/round/new", `{"category":"history"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "generation_failed", body["error"])
	assert.Equal(t, generate.CodeTimeout, body["code"])

	rec, body = c.do(http.MethodPost, "/round/new", `{"category":"cooking"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unknown_category", body["error"])
}

func TestRateLimitMapsTo429(t *testing.T) {
	srv, _ := newTestServer(t, sunMoonGen(), game.Options{RateLimit: 1})
	c := &client{t: t, h: srv.Router()}

	rec, _ := c.do(http.MethodPost, "/round/new", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec, body := c.do(http.MethodPost, "/round/new", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, generate.CodeRateLimit, body["code"])
}

func TestSettingsAndUI(t *testing.T) {
	srv, _ := newTestServer(t, sunMoonGen(), game.Options{})
	c := &client{t: t, h: srv.Router()}

	_, body := c.do(http.MethodGet, "/settings", "")
	assert.Equal(t, "system", body["theme"])
	assert.Equal(t, true, body["hintsEnabled"])

	rec, body := c.do(http.MethodPatch, "/settings", `{"theme":"dark","quickRefPosition":"left"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dark", body["theme"])
	assert.Equal(t, "left", body["quickRefPosition"])

	rec, body = c.do(http.MethodPatch, "/settings", `{"theme":"neon"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_theme", body["error"])

	rec, _ = c.do(http.MethodPatch, "/settings", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = c.do(http.MethodPatch, "/ui", `{"scoreboardOpen":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["scoreboardOpen"])
	_, body = c.do(http.MethodPatch, "/ui", `{"settingsOpen":false}`)
	assert.Equal(t, true, body["scoreboardOpen"])
	assert.Equal(t, false, body["settingsOpen"])
}

func TestStorageFailureMapsTo500(t *testing.T) {
	srv := New(Config{
		Backend:   brokenKV{},
		Generator: sunMoonGen(),
		JWTSecret: "http-test-jwt",
	})
	c := &client{t: t, h: srv.Router()}
	rec, body := c.do(http.MethodGet, "/settings", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "storage_failed", body["error"])
}

type brokenKV struct{}

var errDisk = errors.New("disk unavailable")

func (brokenKV) Get(context.Context, string) (string, error) { return "", errDisk }
func (brokenKV) Put(context.Context, string, string) error   { return errDisk }
func (brokenKV) Delete(context.Context, string) error        { return errDisk }

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, sunMoonGen(), game.Options{})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/round/guess", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
