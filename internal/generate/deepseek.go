// internal/generate/deepseek.go
//
// DeepSeek backend over the OpenAI-compatible chat completions API.
// Requests JSON-object output at a high temperature so repeated calls for the
// same category vary.

package generate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/Zhosolune/guess-the-entry-vercel/internal/entry"
)

// DeepSeek defaults.
const (
	DefaultDeepSeekBaseURL = "https://api.deepseek.com"
	DefaultDeepSeekModel   = "deepseek-chat"
	DefaultTemperature     = 1.2
	defaultHTTPTimeout     = 60 * time.Second
)

// DeepSeekConfig configures NewDeepSeek. Zero fields take the defaults above.
type DeepSeekConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// DeepSeek generates entries with a DeepSeek chat model.
type DeepSeek struct {
	client      *openai.Client
	model       string
	temperature float32
	hasKey      bool
}

// NewDeepSeek builds a client. A missing key is reported per call as
// MISSING_API_KEY rather than here, so the server can still start.
func NewDeepSeek(cfg DeepSeekConfig) *DeepSeek {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultDeepSeekBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultDeepSeekModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = cfg.BaseURL
	config.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &DeepSeek{
		client:      openai.NewClientWithConfig(config),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		hasKey:      cfg.APIKey != "",
	}
}

// Generate implements Generator.
func (d *DeepSeek) Generate(ctx context.Context, category string, exclude []string) (entry.Entry, error) {
	if !d.hasKey {
		return entry.Entry{}, fail(CodeMissingKey, "DeepSeek API key not configured", nil)
	}
	system, user, err := prompts(category, exclude)
	if err != nil {
		return entry.Entry{}, fmt.Errorf("render prompt: %w", err)
	}

	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: d.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: d.temperature,
	})
	if err != nil {
		return entry.Entry{}, classifyOpenAI(ctx, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return entry.Entry{}, fail(CodeEmpty, "received empty response from API", nil)
	}
	return parsePayload(resp.Choices[0].Message.Content, category, "deepseek")
}

func classifyOpenAI(ctx context.Context, err error) *Error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fail(CodeAPI, fmt.Sprintf("API returned status %d", apiErr.HTTPStatusCode), err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fail(CodeAPI, fmt.Sprintf("API returned status %d", reqErr.HTTPStatusCode), err)
	}
	return transportError(ctx, err)
}
