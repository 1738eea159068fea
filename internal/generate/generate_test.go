package generate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayload(t *testing.T) {
	e, err := parsePayload(`{"entry":"世界杯","encyclopedia":"足球比赛。","metadata":{"category":"football","difficulty":"easy"}}`, "sports", "deepseek")
	require.NoError(t, err)
	assert.Equal(t, "世界杯", e.Title)
	assert.Equal(t, "足球比赛。", e.Passage)
	assert.Equal(t, "sports", e.Category, "requested category wins")
	assert.Equal(t, "easy", e.Metadata.Difficulty)
	assert.Equal(t, "deepseek", e.Metadata.Source)
}

func TestParsePayloadStripsCodeFence(t *testing.T) {
	e, err := parsePayload("```json\n{\"entry\":\"银河系\",\"encyclopedia\":\"星系。\"}\n```", "astronomy", "gemini")
	require.NoError(t, err)
	assert.Equal(t, "银河系", e.Title)
}

func TestParsePayloadFailures(t *testing.T) {
	cases := map[string]struct {
		text string
		code string
	}{
		"empty":            {"   ", CodeEmpty},
		"not json":         {"词条：世界杯", CodeInvalidJSON},
		"missing entry":    {`{"encyclopedia":"文本。"}`, CodeInvalidStructure},
		"missing passage":  {`{"entry":"世界杯"}`, CodeInvalidStructure},
		"blank title":      {`{"entry":"  ","encyclopedia":"文本。"}`, CodeInvalidStructure},
		"latin title":      {`{"entry":"FIFA","encyclopedia":"文本。"}`, CodeInvalidStructure},
		"title too long":   {`{"entry":"一二三四五六七八九十一二三四五六七","encyclopedia":"文本。"}`, CodeInvalidStructure},
		"no content chars": {`{"entry":"世界杯","encyclopedia":"2022, Qatar."}`, CodeInvalidStructure},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parsePayload(tc.text, "sports", "deepseek")
			require.Error(t, err)
			assert.Equal(t, tc.code, CodeOf(err))
		})
	}
}

func TestPromptsIncludeCategoryAndExclusions(t *testing.T) {
	system, user, err := prompts("sports", []string{"世界杯", "奥运会"})
	require.NoError(t, err)
	assert.Contains(t, system, "JSON")
	assert.Contains(t, user, "体育")
	assert.Contains(t, user, "世界杯，奥运会")
}

func TestTransportErrorClassification(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	<-ctx.Done()
	assert.Equal(t, CodeTimeout, transportError(ctx, errors.New("dial tcp: i/o timeout")).Code)
	assert.Equal(t, CodeNetwork, transportError(context.Background(), errors.New("connection refused")).Code)
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := error(fail(CodeAPI, "call failed", inner))
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, CodeAPI, CodeOf(err))
	assert.Equal(t, "", CodeOf(inner))
}
