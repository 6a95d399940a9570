package text

import "context"

// Request carries the information required to generate copy.
type Request struct {
	Prompt      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Usage reports the token counts consumed by one call. Cost is computed by
// the caller from the static pricing table.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Result is the normalized output of a text backend.
type Result struct {
	Text  string
	Model string
	Usage Usage
}

// Generator abstracts a text generation backend.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}
