package port

import "context"

// Embedder abstracts the model that turns text into a dense vector.
// Implementations can target Ollama, Gemini, or a local hashing model.
// Implementations must be safe for concurrent use.
type Embedder interface {
	// ModelName returns the identifier of the model being used.
	ModelName() string

	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// BatchEmbedder is implemented by embedders that can embed several texts in
// one round trip.
type BatchEmbedder interface {
	Embedder

	// EmbedBatch generates embeddings for multiple texts in one call.
	// The result has one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingCache stores vectors keyed by model and text fingerprint.
type EmbeddingCache interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, vec []float32) error
}
