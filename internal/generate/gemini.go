// internal/generate/gemini.go
//
// Gemini backend. Same prompts and payload as DeepSeek; JSON output is
// requested through the response MIME type.

package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/Zhosolune/guess-the-entry-vercel/internal/entry"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini generates entries with a Gemini model.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini dials the Gemini API. Close releases the client.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fail(CodeMissingKey, "Gemini API key not configured", nil)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	m := client.GenerativeModel(model)
	m.ResponseMIMEType = "application/json"
	m.SetTemperature(DefaultTemperature)
	m.SystemInstruction = genai.NewUserContent(genai.Text(strings.TrimSpace(systemPrompt)))
	return &Gemini{client: client, model: m}, nil
}

// Close releases the underlying client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

// Generate implements Generator.
func (g *Gemini) Generate(ctx context.Context, category string, exclude []string) (entry.Entry, error) {
	_, user, err := prompts(category, exclude)
	if err != nil {
		return entry.Entry{}, fmt.Errorf("render prompt: %w", err)
	}

	resp, err := g.model.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		return entry.Entry{}, transportError(ctx, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return entry.Entry{}, fail(CodeEmpty, "no content returned from Gemini", nil)
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text += string(t)
		}
	}
	return parsePayload(text, category, "gemini")
}
