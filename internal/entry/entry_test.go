package entry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "nature", Normalize("自然"))
	assert.Equal(t, "acgn", Normalize("ACGN"))
	assert.Equal(t, Random, Normalize("随机"))
	assert.Equal(t, "history", Normalize("  History "))
	assert.Equal(t, "science", Normalize("Science"))
}

func TestIsKnown(t *testing.T) {
	assert.True(t, IsKnown(Random))
	assert.True(t, IsKnown("movie"))
	assert.False(t, IsConcrete(Random))
	assert.False(t, IsKnown("science"))
}

func TestDrawCoversEveryCategory(t *testing.T) {
	for i, want := range Categories {
		got := Draw(func(n int) int {
			require.Equal(t, len(Categories), n)
			return i
		})
		assert.Equal(t, want, got)
	}
	assert.True(t, IsConcrete(Draw(nil)))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "天文", DisplayName("astronomy"))
	assert.Equal(t, "unknown", DisplayName("unknown"))
}

func TestValidate(t *testing.T) {
	require.NoError(t, Entry{Title: "日月", Passage: "日月。"}.Validate())
	assert.ErrorIs(t, Entry{Title: "  "}.Validate(), ErrInvalid)
	assert.ErrorIs(t, Entry{Title: "ABC"}.Validate(), ErrInvalid)
}
