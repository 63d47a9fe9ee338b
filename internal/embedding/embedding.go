package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"document-qa/internal/config"
	"document-qa/internal/models"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// NewEmbedder creates an embedder for the configured provider. A non-empty apiKey takes
// precedence over the key from the config file.
func NewEmbedder(cfg *config.LLMConfig, apiKey string) (*embeddings.EmbedderImpl, error) {
	key := cfg.Key
	if strings.TrimSpace(apiKey) != "" {
		key = apiKey
	}

	log.Debug().Interface("config", map[string]string{
		"provider":        cfg.Provider,
		"base_url":        cfg.BaseURL,
		"embedding_model": cfg.Model,
	}).Msg("Creating embedder")

	var client embeddings.EmbedderClient
	switch cfg.Provider {
	case config.ProviderOllama:
		llm, err := ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, models.NewIndexingError("error initializing ollama embedder", err)
		}
		client = llm
	case config.ProviderOpenAI, "":
		llm, err := openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithToken(strings.TrimPrefix(strings.TrimSpace(key), "Bearer ")),
			openai.WithEmbeddingModel(cfg.Model),
		)
		if err != nil {
			return nil, models.NewIndexingError("error initializing openai embedder", err)
		}
		client = llm
	default:
		return nil, models.NewValidationError(fmt.Sprintf("unknown embedding provider %q", cfg.Provider))
	}

	opts := []embeddings.Option{embeddings.WithStripNewLines(cfg.StripNewLines)}
	if cfg.BatchSize > 0 {
		opts = append(opts, embeddings.WithBatchSize(cfg.BatchSize))
	}
	embedder, err := embeddings.NewEmbedder(client, opts...)
	if err != nil {
		return nil, models.NewIndexingError("error creating embedder", err)
	}
	return embedder, nil
}

// EmbedChunks embeds the content of every chunk in one batched call. The returned vectors
// line up with chunks by index.
func EmbedChunks(ctx context.Context, embedder embeddings.Embedder, chunks []models.Chunk) ([][]float32, error) {
	if len(chunks) == 0 {
		log.Info().Msg("No chunks to embed")
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, models.NewIndexingError("failed to embed document chunks", err)
	}
	if len(vectors) != len(chunks) {
		return nil, models.NewIndexingError(fmt.Sprintf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks)), nil)
	}

	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) == 0 || len(v) != dim {
			return nil, models.NewIndexingError(fmt.Sprintf("chunk %d has a %d dimensional embedding, expected %d", i, len(v), dim), nil)
		}
	}

	log.Debug().Int("chunks", len(chunks)).Int("dimensions", dim).Msg("Embedded chunks")
	return vectors, nil
}

// ValidateAPIKey checks the shape of a user supplied credential. An empty prefix accepts
// anything, including no key at all.
func ValidateAPIKey(key, prefix string) error {
	if prefix == "" {
		return nil
	}
	if !strings.HasPrefix(strings.TrimSpace(key), prefix) {
		return models.NewValidationErrorWithCause("please enter a valid API key", models.ErrInvalidAPIKey)
	}
	return nil
}
