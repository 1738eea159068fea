package httpserver

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zhosolune/guess-the-entry-vercel/internal/entry"
	"github.com/Zhosolune/guess-the-entry-vercel/internal/game"
	"github.com/Zhosolune/guess-the-entry-vercel/internal/kv"
	"github.com/Zhosolune/guess-the-entry-vercel/internal/persist"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// countingKV counts writes and can fail the first failGets reads.
type countingKV struct {
	kv.KV

	mu       sync.Mutex
	puts     int
	failGets int
}

func (c *countingKV) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	if c.failGets > 0 {
		c.failGets--
		c.mu.Unlock()
		return "", errDisk
	}
	c.mu.Unlock()
	return c.KV.Get(ctx, key)
}

func (c *countingKV) Put(ctx context.Context, key, value string) error {
	c.mu.Lock()
	c.puts++
	c.mu.Unlock()
	return c.KV.Put(ctx, key, value)
}

func (c *countingKV) Puts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.puts
}

func sessionServer(backend kv.KV, clk *testClock, idle time.Duration, max int) *Server {
	return New(Config{
		Backend:     backend,
		Generator:   sunMoonGen(),
		State:       persist.Options{Secret: []byte("http-test-state-secret")},
		JWTSecret:   "http-test-jwt",
		SessionIdle: idle,
		MaxSessions: max,
		Now:         clk.Now,
	})
}

func TestReadOnlyRoutesDoNotWrite(t *testing.T) {
	backend := &countingKV{KV: kv.NewMemory()}
	srv := sessionServer(backend, &testClock{t: time.Unix(1_700_000_000, 0)}, 0, 0)

	for _, path := range []string{"/round", "/round/hint", "/settings", "/stats", "/excluded/nature"} {
		c := &client{t: t, h: srv.Router()}
		c.do(http.MethodGet, path, "")
	}
	assert.Equal(t, 0, backend.Puts())
}

func TestIdleSessionsAreDropped(t *testing.T) {
	clk := &testClock{t: time.Unix(1_700_000_000, 0)}
	srv := sessionServer(kv.NewMemory(), clk, 10*time.Minute, 0)

	for i := 0; i < 3; i++ {
		c := &client{t: t, h: srv.Router()}
		c.do(http.MethodGet, "/round", "")
	}
	require.Equal(t, 3, srv.sessions.len())

	clk.Advance(11 * time.Minute)
	c := &client{t: t, h: srv.Router()}
	c.do(http.MethodGet, "/round", "")
	assert.Equal(t, 1, srv.sessions.len())
}

func TestSessionCapEvictsLeastRecent(t *testing.T) {
	clk := &testClock{t: time.Unix(1_700_000_000, 0)}
	srv := sessionServer(kv.NewMemory(), clk, 0, 2)

	first := &client{t: t, h: srv.Router()}
	rec, _ := first.do(http.MethodPost, "/round/new", `{"category":"nature"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	first.do(http.MethodPost, "/round/guess", `{"char":"日"}`)

	for i := 0; i < 2; i++ {
		clk.Advance(time.Second)
		c := &client{t: t, h: srv.Router()}
		c.do(http.MethodGet, "/round", "")
	}
	assert.Equal(t, 2, srv.sessions.len())

	// The evicted player's round comes back from storage.
	clk.Advance(time.Second)
	_, body := first.do(http.MethodGet, "/round", "")
	assert.Equal(t, "playing", body["status"])
	assert.Equal(t, "日■", body["title"])
	assert.Equal(t, 2, srv.sessions.len())
}

func TestRestoreRetriesAfterStorageError(t *testing.T) {
	mem := kv.NewMemory()
	clk := &testClock{t: time.Unix(1_700_000_000, 0)}
	c := &client{t: t, h: sessionServer(mem, clk, 0, 0).Router()}
	c.do(http.MethodPost, "/round/new", `{"category":"nature"}`)

	flaky := &countingKV{KV: mem, failGets: 1}
	c.h = sessionServer(flaky, clk, 0, 0).Router()

	_, body := c.do(http.MethodGet, "/round", "")
	assert.Equal(t, "start", body["status"])

	_, body = c.do(http.MethodGet, "/round", "")
	assert.Equal(t, "playing", body["status"])
}

// gatedGen blocks Generate until release is closed.
type gatedGen struct {
	entered chan struct{}
	release chan struct{}
}

func (g *gatedGen) Generate(ctx context.Context, category string, _ []string) (entry.Entry, error) {
	close(g.entered)
	<-g.release
	return entry.Entry{Title: "日月", Passage: "日月星辰。", Category: category}, nil
}

func TestServeDrainsInFlightRequests(t *testing.T) {
	gen := &gatedGen{entered: make(chan struct{}), release: make(chan struct{})}
	srv := New(Config{
		Backend:   kv.NewMemory(),
		Generator: gen,
		Engine:    game.Options{GenerateTimeout: 5 * time.Second},
		JWTSecret: "http-test-jwt",
	})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx, ln) }()

	type result struct {
		code int
		err  error
	}
	got := make(chan result, 1)
	go func() {
		resp, err := http.Post(base+"/round/new", "application/json", strings.NewReader(`{"category":"nature"}`))
		if err != nil {
			got <- result{err: err}
			return
		}
		_ = resp.Body.Close()
		got <- result{code: resp.StatusCode}
	}()

	<-gen.entered
	cancel()
	select {
	case err := <-served:
		t.Fatalf("Serve returned with a request in flight: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	close(gen.release)
	r := <-got
	require.NoError(t, r.err)
	assert.Equal(t, http.StatusOK, r.code)

	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after shutdown")
	}
}
