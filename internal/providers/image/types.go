package image

import "context"

// Request carries the information required to generate one image.
type Request struct {
	Prompt string
	Model  string
	Size   string
}

// Result is the normalized output of an image backend. Data holds the raw
// bytes when the backend returns them inline; URL is the upstream location
// otherwise. Callers persist Data through the storage uploader and keep the
// resulting public URL.
type Result struct {
	URL    string
	Data   []byte
	Format string
	Model  string
	Size   string
}

// Generator abstracts an image generation backend.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}
