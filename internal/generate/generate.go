// internal/generate/generate.go
//
// Entry generation collaborators.
//
// Responsibilities:
//   - Define the Generator contract the game engine consumes.
//   - Classify failures into coded *Error values (network, timeout, API,
//     malformed payload) so callers and metrics can tell them apart.
//   - Parse the model's JSON payload into an entry.Entry.
//
// Implementations:
//   - DeepSeek: OpenAI-compatible chat completions (go-openai).
//   - Gemini:   Google generative AI.
//   - Fallback: static per-category table, embedded or loaded from YAML.
//   - WithFallback wraps a network generator and serves the table on failure.

package generate

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/Zhosolune/guess-the-entry-vercel/internal/charclass"
	"github.com/Zhosolune/guess-the-entry-vercel/internal/entry"
)

// Generator produces one entry for a concrete category, avoiding the titles
// in exclude where it can.
type Generator interface {
	Generate(ctx context.Context, category string, exclude []string) (entry.Entry, error)
}

// Failure codes carried by *Error.
const (
	CodeMissingKey       = "MISSING_API_KEY"
	CodeTimeout          = "TIMEOUT"
	CodeNetwork          = "NETWORK_ERROR"
	CodeAPI              = "API_ERROR"
	CodeEmpty            = "EMPTY_RESPONSE"
	CodeInvalidJSON      = "INVALID_JSON"
	CodeInvalidStructure = "INVALID_STRUCTURE"
	CodeRateLimit        = "RATE_LIMIT"
)

// MaxTitleLen bounds the title length in runes.
const MaxTitleLen = 16

// Error is a classified generation failure.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// CodeOf returns the failure code of err, or "" when err is not an *Error.
func CodeOf(err error) string {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}

func fail(code, msg string, err error) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// transportError classifies a failed call. ctx decides timeouts so that a
// deadline surfaces as TIMEOUT whatever the client wrapped it in.
func transportError(ctx context.Context, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fail(CodeTimeout, "generation timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return fail(CodeNetwork, "request canceled", err)
	}
	return fail(CodeNetwork, "request failed", err)
}

//go:embed prompts/system.txt
var systemPrompt string

//go:embed prompts/user.txt
var userPromptText string

var userPrompt = template.Must(template.New("user").
	Funcs(template.FuncMap{"join": strings.Join}).
	Parse(userPromptText))

// prompts renders the system and user messages for one request.
func prompts(category string, exclude []string) (string, string, error) {
	var buf bytes.Buffer
	err := userPrompt.Execute(&buf, struct {
		Category string
		Exclude  []string
	}{Category: entry.DisplayName(category), Exclude: exclude})
	if err != nil {
		return "", "", err
	}
	return strings.TrimSpace(systemPrompt), buf.String(), nil
}

// payload is the JSON object the models are asked to return.
type payload struct {
	Entry        *string `json:"entry"`
	Encyclopedia *string `json:"encyclopedia"`
	Metadata     struct {
		Category   string `json:"category"`
		Difficulty string `json:"difficulty"`
	} `json:"metadata"`
}

// parsePayload decodes model output for category. The requested category
// wins over whatever the model claims.
func parsePayload(text, category, source string) (entry.Entry, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	if text == "" {
		return entry.Entry{}, fail(CodeEmpty, "empty response", nil)
	}

	var p payload
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return entry.Entry{}, fail(CodeInvalidJSON, "response is not valid JSON", err)
	}
	if p.Entry == nil || p.Encyclopedia == nil {
		return entry.Entry{}, fail(CodeInvalidStructure, "missing entry or encyclopedia", nil)
	}

	e := entry.Entry{
		Title:    strings.TrimSpace(*p.Entry),
		Passage:  strings.TrimSpace(*p.Encyclopedia),
		Category: category,
		Metadata: entry.Metadata{Difficulty: p.Metadata.Difficulty, Source: source},
	}
	if err := e.Validate(); err != nil {
		return entry.Entry{}, fail(CodeInvalidStructure, "unusable entry", err)
	}
	if utf8.RuneCountInString(e.Title) > MaxTitleLen {
		return entry.Entry{}, fail(CodeInvalidStructure, fmt.Sprintf("title longer than %d characters", MaxTitleLen), nil)
	}
	if charclass.CountContent(e.Passage) == 0 {
		return entry.Entry{}, fail(CodeInvalidStructure, "passage has no guessable characters", nil)
	}
	return e, nil
}
