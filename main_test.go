package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zhosolune/guess-the-entry-vercel/internal/config"
	"github.com/Zhosolune/guess-the-entry-vercel/internal/kv"
	"github.com/Zhosolune/guess-the-entry-vercel/internal/persist"
	"github.com/Zhosolune/guess-the-entry-vercel/internal/scoreboard"
)

func TestOpenBackendMemory(t *testing.T) {
	b, closeFn, err := openBackend(context.Background(), &config.Config{StoreBackend: config.BackendMemory})
	require.NoError(t, err)
	defer closeFn()
	_, ok := b.(*kv.Memory)
	assert.True(t, ok)
}

func TestOpenBackendSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.db")
	b, closeFn, err := openBackend(context.Background(), &config.Config{
		StoreBackend: config.BackendSQLite,
		SQLitePath:   path,
	})
	require.NoError(t, err)
	defer closeFn()

	ctx := context.Background()
	require.NoError(t, b.Put(ctx, "k", "v"))
	got, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestNewGeneratorFallbackOnly(t *testing.T) {
	gen, closeFn, err := newGenerator(context.Background(), &config.Config{Generator: config.GeneratorFallback})
	require.NoError(t, err)
	defer closeFn()

	e, err := gen.Generate(context.Background(), "history", nil)
	require.NoError(t, err)
	assert.NoError(t, e.Validate())
	assert.Equal(t, "history", e.Category)
}

func TestNewGeneratorBadFallbackFile(t *testing.T) {
	_, _, err := newGenerator(context.Background(), &config.Config{
		Generator:           config.GeneratorFallback,
		FallbackEntriesFile: filepath.Join(t.TempDir(), "missing.yaml"),
	})
	assert.Error(t, err)
}

func TestStateAndEngineOptions(t *testing.T) {
	cfg := &config.Config{
		StateSecret:     "0123456789abcdef0123",
		StateCompress:   true,
		StateEncrypt:    true,
		GenerateTimeout: 30 * time.Second,
		RateLimit:       5,
		RateWindow:      time.Minute,
		JWTExpiresDays:  2,
	}
	so := stateOptions(cfg)
	assert.Equal(t, []byte(cfg.StateSecret), so.Secret)
	assert.True(t, so.Compress)
	assert.True(t, so.Encrypt)
	assert.Empty(t, so.Prefix)

	eo := engineOptions(cfg)
	assert.Equal(t, 30*time.Second, eo.GenerateTimeout)
	assert.Equal(t, 5, eo.RateLimit)
	assert.Equal(t, time.Minute, eo.RateWindow)

	assert.Equal(t, 48*time.Hour, tokenTTL(cfg))
}

func TestWriteInspect(t *testing.T) {
	d := persist.NewDocument(1000)
	out := inspectOutput{Player: "p1", Document: d, Summary: scoreboard.Summarize(d.Stats)}

	var js bytes.Buffer
	require.NoError(t, writeInspect(&js, "json", out))
	assert.Contains(t, js.String(), `"player": "p1"`)
	assert.Contains(t, js.String(), `"document"`)

	var ym bytes.Buffer
	require.NoError(t, writeInspect(&ym, "yaml", out))
	assert.Contains(t, ym.String(), "player: p1")

	assert.Error(t, writeInspect(&bytes.Buffer{}, "xml", out))
}

func TestInspectReadsPlayerDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.db")
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("SQLITE_PATH", path)
	t.Setenv("STATE_SECRET", "inspect-secret-0123456789")

	db, err := kv.OpenSQLite(path)
	require.NoError(t, err)
	st := persist.New(db, persist.Options{
		Prefix: "player:abc:",
		Secret: []byte("inspect-secret-0123456789"),
	})
	ctx := context.Background()
	require.NoError(t, st.AddExcluded(ctx, "长城", "history"))
	require.NoError(t, db.Close())

	cmd := newRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"inspect", "--player", "abc"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "长城")
}
