package embed

import "context"

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed returns the embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// Model returns the model identifier used by this embedder.
	Model() string
	// Dimensions returns the dimensionality of the produced vectors.
	Dimensions() int
}
