package sdk

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const embeddingModel = openai.EmbeddingModelTextEmbedding3Small

// OpenAIEmbedder produces embedding vectors for duplicate detection.
type OpenAIEmbedder struct {
	client openai.Client
	log    zerolog.Logger
}

// NewOpenAIEmbedder returns an embedder backed by the OpenAI API, or nil
// when OPENAI_API_KEY is unset. A nil embedder disables vector dedup and
// the pipeline falls back to title similarity.
func NewOpenAIEmbedder() *OpenAIEmbedder {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil
	}
	return &OpenAIEmbedder{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		log:    log.With().Str("component", "embedder").Logger(),
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, nil
	}

	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: embeddingModel,
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embed: empty response")
	}

	return resp.Data[0].Embedding, nil
}
