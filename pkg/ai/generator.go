package ai

import (
	"context"
	"errors"
)

// ErrEmptyCompletion is returned when the model responds without usable text.
// Call sites must treat it as a hard failure; empty output is never defaulted.
var ErrEmptyCompletion = errors.New("model returned empty completion")

// ErrEmptyImage is returned when the image model responds without image data.
var ErrEmptyImage = errors.New("model returned no image payload")

// TextOptions tune a single text generation call.
type TextOptions struct {
	MaxTokens   int
	Temperature float64
}

// TextOption mutates TextOptions.
type TextOption func(*TextOptions)

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) TextOption {
	return func(o *TextOptions) { o.MaxTokens = n }
}

// WithTemperature sets sampling temperature.
func WithTemperature(t float64) TextOption {
	return func(o *TextOptions) { o.Temperature = t }
}

// TextGenerator generates text from a system prompt and user prompt.
// Each call is stateless: exactly one system message and one user message,
// no conversation history.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string, opts ...TextOption) (string, error)
}

// ImageGenerator renders a prompt into raw PNG bytes.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}
