package services

import (
	"context"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/wayBiggger/way-bigger-sub000/errs"
)

const (
	DefaultEmbeddingModel = "text-embedding-ada-002"
	maxEmbeddingInput     = 8000
)

// Embedder turns text into a vector.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// OpenAIEmbedder embeds through langchaingo's OpenAI client.
type OpenAIEmbedder struct {
	embedder embeddings.Embedder
}

func NewOpenAIEmbedder(apiKey, model string) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, errs.NewConfigError("OPENAI_API_KEY", nil)
	}
	if model == "" {
		model = DefaultEmbeddingModel
	}

	llm, err := openai.New(openai.WithToken(apiKey), openai.WithEmbeddingModel(model))
	if err != nil {
		return nil, errs.NewConfigError("openai client", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, errs.NewConfigError("openai embedder", err)
	}
	return &OpenAIEmbedder{embedder: embedder}, nil
}

func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vector, err := e.embedder.EmbedQuery(ctx, truncateRunes(text, maxEmbeddingInput))
	if err != nil {
		return nil, errs.NewServiceUnreachableError("openai embeddings", err)
	}
	return vector, nil
}

func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
