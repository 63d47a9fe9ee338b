package chromemdb

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"document-qa/internal/embedding"
	"document-qa/internal/models"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
)

// metadata keys stored next to every chunk
const (
	metaSource  = "source"
	metaPage    = "page"
	metaChunkID = "chunk_id"
	metaOrdinal = "ordinal"
)

// VectorDBManager is an in-memory similarity index over document chunks.
type VectorDBManager struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedder   embeddings.Embedder
}

// NewVectorDBManager creates an empty collection. Queries are embedded with embedder.
func NewVectorDBManager(collectionName string, embedder embeddings.Embedder) (*VectorDBManager, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	db := chromem.NewDB()
	embedFunc := func(ctx context.Context, text string) ([]float32, error) {
		return embedder.EmbedQuery(ctx, text)
	}
	c, err := db.GetOrCreateCollection(collectionName, nil, embedFunc)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %v", err)
	}
	return &VectorDBManager{db: db, collection: c, embedder: embedder}, nil
}

// AddChunks stores chunks with their precomputed embeddings. vectors[i] belongs to chunks[i].
func (m *VectorDBManager) AddChunks(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("got %d chunks but %d embeddings", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}

	offset := m.collection.Count()
	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		ordinal := strconv.Itoa(offset + i)
		docs[i] = chromem.Document{
			ID:      ordinal,
			Content: c.Content,
			Metadata: map[string]string{
				metaSource:  c.Source,
				metaPage:    strconv.Itoa(c.Page),
				metaChunkID: strconv.Itoa(c.ChunkID),
				metaOrdinal: ordinal,
			},
			Embedding: vectors[i],
		}
	}

	if err := m.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %v", err)
	}
	return nil
}

// Query returns up to k chunks ordered by descending similarity to text. k is clamped to
// the number of stored chunks; an empty index yields no results.
func (m *VectorDBManager) Query(ctx context.Context, text string, k int) ([]models.ScoredChunk, error) {
	n := m.collection.Count()
	if n == 0 || k <= 0 {
		return nil, nil
	}
	if k > n {
		k = n
	}

	queryEmbedding, err := m.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := m.collection.QueryEmbedding(ctx, queryEmbedding, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	out := make([]models.ScoredChunk, 0, len(results))
	for _, r := range results {
		page, _ := strconv.Atoi(r.Metadata[metaPage])
		chunkID, _ := strconv.Atoi(r.Metadata[metaChunkID])
		out = append(out, models.ScoredChunk{
			Chunk: models.Chunk{
				Content: r.Content,
				Source:  r.Metadata[metaSource],
				Page:    page,
				ChunkID: chunkID,
			},
			Score: r.Similarity,
		})
	}
	return out, nil
}

func (m *VectorDBManager) Count() int {
	return m.collection.Count()
}

// delete collection
func (m *VectorDBManager) DeleteCollection() error {
	err := m.db.DeleteCollection(m.collection.Name)
	if err != nil {
		return fmt.Errorf("failed to drop collection: %v", err)
	}
	return nil
}

// EmbedAndIndex embeds every chunk that has text and loads it into a fresh collection.
// Failures come back as IndexingErrors.
func EmbedAndIndex(ctx context.Context, embedder embeddings.Embedder, chunks []models.Chunk, collectionName string) (*VectorDBManager, error) {
	kept := make([]models.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if strings.TrimSpace(c.Content) == "" {
			continue
		}
		kept = append(kept, c)
	}
	if skipped := len(chunks) - len(kept); skipped > 0 {
		log.Debug().Int("skipped", skipped).Msg("Skipping chunks without text")
	}
	if len(kept) == 0 {
		return nil, models.NewIndexingError("no text could be extracted from the documents", nil)
	}

	vectors, err := embedding.EmbedChunks(ctx, embedder, kept)
	if err != nil {
		return nil, err
	}

	index, err := NewVectorDBManager(collectionName, embedder)
	if err != nil {
		return nil, models.NewIndexingError("failed to create vector index", err)
	}
	if err := index.AddChunks(ctx, kept, vectors); err != nil {
		return nil, models.NewIndexingError("failed to index chunks", err)
	}

	log.Info().Str("collection", collectionName).Int("chunks", index.Count()).Msg("Vector index built")
	return index, nil
}
