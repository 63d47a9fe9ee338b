// Package session holds the per-user document state and runs the upload and ask actions.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"document-qa/internal/chromemdb"
	"document-qa/internal/chunker"
	"document-qa/internal/config"
	"document-qa/internal/embedding"
	"document-qa/internal/llmservice"
	"document-qa/internal/models"
	"document-qa/internal/parser"
	"document-qa/internal/rag"
	"document-qa/internal/telemetry"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
)

type EmbedderFactory func(apiKey string) (embeddings.Embedder, error)

type ChatModelFactory func(apiKey string) (llms.Model, error)

// Pipeline is everything a session needs to turn uploads into answers.
type Pipeline struct {
	NewEmbedder  EmbedderFactory
	NewChatModel ChatModelFactory
	ChunkOptions chunker.Options
	TopK         int
	KeyPrefix    string
}

// NewPipeline wires the configured providers.
func NewPipeline(cfg *config.Config) *Pipeline {
	embedCfg := cfg.EmbedLLM
	chatCfg := cfg.ChatLLM
	return &Pipeline{
		NewEmbedder: func(apiKey string) (embeddings.Embedder, error) {
			e, err := embedding.NewEmbedder(&embedCfg, apiKey)
			if err != nil {
				return nil, err
			}
			return e, nil
		},
		NewChatModel: func(apiKey string) (llms.Model, error) {
			return llmservice.NewChatModel(&chatCfg, apiKey)
		},
		ChunkOptions: chunker.FromConfig(&cfg.RAG),
		TopK:         cfg.RAG.TopK,
		KeyPrefix:    cfg.KeyPrefix(),
	}
}

type Session struct {
	ID        string
	CreatedAt time.Time

	pipeline *Pipeline

	// unix nanos of the last lookup through a Manager
	lastUsed atomic.Int64

	mu       sync.Mutex
	docNames []string
	index    *chromemdb.VectorDBManager
}

func New(id string, pipeline *Pipeline) *Session {
	now := time.Now()
	s := &Session{ID: id, CreatedAt: now, pipeline: pipeline}
	s.touch(now)
	return s
}

func (s *Session) touch(t time.Time) {
	s.lastUsed.Store(t.UnixNano())
}

// LastUsed is when the session was last looked up.
func (s *Session) LastUsed() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

// Upload replaces the loaded documents with files. On any failure the session is left with
// nothing loaded.
func (s *Session) Upload(ctx context.Context, files []parser.Upload, apiKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := embedding.ValidateAPIKey(apiKey, s.pipeline.KeyPrefix); err != nil {
		return err
	}
	if len(files) == 0 {
		return models.NewValidationErrorWithCause("please choose at least one document", models.ErrNoDocuments)
	}

	s.clear()
	start := time.Now()

	docs, err := parser.ParseUploads(files)
	if err != nil {
		return err
	}

	chunks, names, err := chunker.GetChunks(docs, s.pipeline.ChunkOptions)
	if err != nil {
		return err
	}
	telemetry.AddBreadcrumb(ctx, "upload", fmt.Sprintf("%d documents split into %d chunks", len(docs), len(chunks)))

	embedder, err := s.pipeline.NewEmbedder(apiKey)
	if err != nil {
		return asIndexingError(err)
	}

	index, err := chromemdb.EmbedAndIndex(ctx, embedder, chunks, "session-"+s.ID)
	if err != nil {
		return err
	}

	s.docNames = names
	s.index = index
	log.Info().
		Str("session", s.ID).
		Strs("documents", names).
		Int("chunks", index.Count()).
		Dur("took", time.Since(start)).
		Msg("Documents loaded")
	return nil
}

// Ask answers question against the loaded documents. A chat model is built for every call
// so a changed key takes effect immediately.
func (s *Session) Ask(ctx context.Context, question string, mode models.PromptMode, temperature float64, apiKey string) (*models.PromptResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := embedding.ValidateAPIKey(apiKey, s.pipeline.KeyPrefix); err != nil {
		return nil, err
	}
	if s.index == nil {
		return nil, models.NewValidationErrorWithCause("please upload documents first", models.ErrNoDocuments)
	}

	model, err := s.pipeline.NewChatModel(apiKey)
	if err != nil {
		var typed *models.Error
		if errors.As(err, &typed) {
			return nil, err
		}
		return nil, models.NewGenerationError("failed to create chat model", err)
	}

	resp, err := rag.NewRAG(s.index, model, s.pipeline.TopK).Query(ctx, question, mode, temperature)
	if err != nil {
		return nil, err
	}
	log.Info().Str("session", s.ID).Str("mode", string(mode)).Int("sources", len(resp.Sources)).Msg("Question answered")
	return resp, nil
}

func (s *Session) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index != nil
}

// DocNames returns a copy of the loaded document names in upload order.
func (s *Session) DocNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.docNames...)
}

// Index is the current similarity index, nil when nothing is loaded.
func (s *Session) Index() *chromemdb.VectorDBManager {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear()
}

func (s *Session) clear() {
	if s.index != nil {
		if err := s.index.DeleteCollection(); err != nil {
			log.Warn().Err(err).Str("session", s.ID).Msg("Failed to drop collection")
		}
	}
	s.docNames = nil
	s.index = nil
}

func asIndexingError(err error) error {
	var typed *models.Error
	if errors.As(err, &typed) {
		return err
	}
	return models.NewIndexingError("failed to create embedder", err)
}
