package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiEmbedModel = "text-embedding-004"

// embedContenter is the slice of genai.Models used by GeminiEmbedder.
type embedContenter interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// GeminiEmbedder implements port.BatchEmbedder on the Gemini API.
type GeminiEmbedder struct {
	models    embedContenter
	modelName string
	dimension int32
}

// NewGeminiEmbedder creates a Gemini-backed embedder. A dimension > 0 asks the
// API to truncate vectors to that size.
func NewGeminiEmbedder(ctx context.Context, apiKey, model string, dimension int) (*GeminiEmbedder, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGeminiEmbedder(client.Models, model, dimension), nil
}

func newGeminiEmbedder(models embedContenter, model string, dimension int) *GeminiEmbedder {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultGeminiEmbedModel
	}
	return &GeminiEmbedder{models: models, modelName: model, dimension: int32(dimension)}
}

// ModelName returns the embed model identifier.
func (g *GeminiEmbedder) ModelName() string {
	return g.modelName
}

// Embed generates a vector embedding for the given text.
func (g *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one call.
func (g *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, &genai.Content{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: t}},
		})
	}

	resp, err := g.models.EmbedContent(ctx, g.modelName, contents, g.config())
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini embed: unexpected number of embeddings for %d inputs", len(texts))
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, fmt.Errorf("gemini embed: empty embedding at index %d", i)
		}
		out[i] = e.Values
	}
	return out, nil
}

func (g *GeminiEmbedder) config() *genai.EmbedContentConfig {
	cfg := &genai.EmbedContentConfig{TaskType: "SEMANTIC_SIMILARITY"}
	if g.dimension > 0 {
		dim := g.dimension
		cfg.OutputDimensionality = &dim
	}
	return cfg
}
