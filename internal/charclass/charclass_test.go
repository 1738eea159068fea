package charclass

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOf(t *testing.T) {
	cases := []struct {
		r    rune
		want Class
	}{
		{'日', Content},
		{'一', Content},
		{'龥', Content},
		{'。', Punctuation},
		{'，', Punctuation},
		{'《', Punctuation},
		{'·', Punctuation},
		{' ', Punctuation},
		{'+', Punctuation},
		{'a', Rejected},
		{'Z', Rejected},
		{'7', Rejected},
		{'ア', Rejected},
	}
	for _, c := range cases {
		assert.Equalf(t, c.want, Of(c.r), "Of(%q)", c.r)
	}
}

func TestContentRunes(t *testing.T) {
	assert.Equal(t, []rune{'日', '月'}, ContentRunes("日月，日。"))
	assert.Empty(t, ContentRunes("abc，123"))
}

func TestCountContent(t *testing.T) {
	assert.Equal(t, 4, CountContent("日月，日A月。"))
	assert.Equal(t, 0, CountContent(""))
}

func TestClassString(t *testing.T) {
	assert.Equal(t, "content", Content.String())
	assert.Equal(t, "punctuation", Punctuation.String())
	assert.Equal(t, "rejected", Rejected.String())
}
