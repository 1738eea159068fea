package generate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zhosolune/guess-the-entry-vercel/internal/entry"
)

func TestDefaultFallbackCoversEveryCategory(t *testing.T) {
	fb, err := DefaultFallback()
	require.NoError(t, err)

	for _, c := range entry.Categories {
		e, err := fb.Generate(context.Background(), c, nil)
		require.NoError(t, err)
		assert.NoError(t, e.Validate(), c)
		assert.Equal(t, c, e.Category)
		assert.Equal(t, "fallback", e.Metadata.Source)
	}
	assert.Contains(t, fb.Categories(), entry.Random)
}

func TestFallbackSkipsExcludedRows(t *testing.T) {
	fb, err := ParseFallback([]byte(`
sports:
  - title: 世界杯
    passage: 足球比赛。
  - title: 奥运会
    passage: 综合运动会。
random:
  - title: 量子力学
    passage: 物理学理论。
    category: nature
`))
	require.NoError(t, err)
	ctx := context.Background()

	e, _ := fb.Generate(ctx, "sports", []string{"世界杯"})
	assert.Equal(t, "奥运会", e.Title)

	e, _ = fb.Generate(ctx, "sports", []string{"世界杯", "奥运会"})
	assert.Equal(t, "世界杯", e.Title, "all excluded: first row")

	e, _ = fb.Generate(ctx, "history", nil)
	assert.Equal(t, "量子力学", e.Title)
	assert.Equal(t, "history", e.Category)
}

func TestParseFallbackRejectsBadTables(t *testing.T) {
	_, err := ParseFallback([]byte("nature:\n  - title: 光合作用\n    passage: 过程。\n"))
	assert.Error(t, err, "missing random row")

	_, err = ParseFallback([]byte("cooking:\n  - title: 饺子\n    passage: 食物。\nrandom:\n  - title: 量子\n    passage: 理论。\n"))
	assert.Error(t, err, "unknown category")

	_, err = ParseFallback([]byte("random:\n  - title: ABC\n    passage: 理论。\n"))
	assert.ErrorIs(t, err, entry.ErrInvalid)
}

func TestLoadFallbackFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entries.yaml")
	require.NoError(t, os.WriteFile(path, []byte("随机:\n  - title: 量子力学\n    passage: 理论。\n"), 0o644))

	fb, err := LoadFallback(path)
	require.NoError(t, err)
	e, err := fb.Generate(context.Background(), entry.Random, nil)
	require.NoError(t, err)
	assert.Equal(t, "量子力学", e.Title)
	assert.Equal(t, entry.Random, e.Category)
}

type stubGenerator struct {
	e   entry.Entry
	err error
}

func (s stubGenerator) Generate(context.Context, string, []string) (entry.Entry, error) {
	return s.e, s.err
}

func TestWithFallback(t *testing.T) {
	fb, err := DefaultFallback()
	require.NoError(t, err)
	ctx := context.Background()

	ok := entry.Entry{Title: "世界杯", Passage: "比赛。", Category: "sports"}
	e, err := WithFallback(stubGenerator{e: ok}, fb).Generate(ctx, "sports", nil)
	require.NoError(t, err)
	assert.Equal(t, ok, e)

	e, err = WithFallback(stubGenerator{err: fail(CodeTimeout, "slow", nil)}, fb).Generate(ctx, "sports", nil)
	require.NoError(t, err)
	assert.Equal(t, "fallback", e.Metadata.Source)

	e, err = WithFallback(stubGenerator{err: errors.New("plain")}, fb).Generate(ctx, "nature", nil)
	require.NoError(t, err)
	assert.Equal(t, "光合作用", e.Title)

	_, err = WithFallback(stubGenerator{err: fail(CodeMissingKey, "no key", nil)}, fb).Generate(ctx, "sports", nil)
	assert.Equal(t, CodeMissingKey, CodeOf(err))
}
