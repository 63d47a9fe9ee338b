package embedding

import (
	"context"
	"errors"
	"testing"

	"document-qa/internal/config"
	"document-qa/internal/models"
	"document-qa/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEmbedder struct {
	mock.Mock
}

func (m *mockEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if v := args.Get(0); v != nil {
		return v.([][]float32), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if v := args.Get(0); v != nil {
		return v.([]float32), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestEmbedChunks(t *testing.T) {
	chunks := []models.Chunk{
		{Content: "alpha beta", Source: "a", Page: 1, ChunkID: 1},
		{Content: "gamma", Source: "a", Page: 2, ChunkID: 1},
	}

	vectors, err := EmbedChunks(context.Background(), &testutil.Embedder{}, chunks)
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, testutil.Vector("alpha beta"), vectors[0])
	assert.Equal(t, testutil.Vector("gamma"), vectors[1])
}

func TestEmbedChunks_Empty(t *testing.T) {
	m := &mockEmbedder{}
	vectors, err := EmbedChunks(context.Background(), m, nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
	m.AssertNotCalled(t, "EmbedDocuments", mock.Anything, mock.Anything)
}

func TestEmbedChunks_ProviderFailure(t *testing.T) {
	m := &mockEmbedder{}
	cause := errors.New("401 unauthorized")
	m.On("EmbedDocuments", mock.Anything, []string{"x"}).Return(nil, cause)

	_, err := EmbedChunks(context.Background(), m, []models.Chunk{{Content: "x"}})
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.ErrCodeIndexing))
	assert.ErrorIs(t, err, cause)
	m.AssertExpectations(t)
}

func TestEmbedChunks_CountMismatch(t *testing.T) {
	m := &mockEmbedder{}
	m.On("EmbedDocuments", mock.Anything, []string{"x", "y"}).Return([][]float32{{1}}, nil)

	_, err := EmbedChunks(context.Background(), m, []models.Chunk{{Content: "x"}, {Content: "y"}})
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.ErrCodeIndexing))
}

func TestEmbedChunks_DimensionMismatch(t *testing.T) {
	m := &mockEmbedder{}
	m.On("EmbedDocuments", mock.Anything, []string{"x", "y"}).Return([][]float32{{1, 2}, {1}}, nil)

	_, err := EmbedChunks(context.Background(), m, []models.Chunk{{Content: "x"}, {Content: "y"}})
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.ErrCodeIndexing))
}

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		prefix  string
		wantErr bool
	}{
		{"valid", "sk-abc", "sk-", false},
		{"surrounding space", "  sk-abc ", "sk-", false},
		{"empty", "", "sk-", true},
		{"wrong prefix", "abc", "sk-", true},
		{"no prefix required", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAPIKey(tt.key, tt.prefix)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrInvalidAPIKey)
			assert.True(t, models.HasCode(err, models.ErrCodeValidation))
		})
	}
}

func TestNewEmbedder(t *testing.T) {
	t.Run("openai with key", func(t *testing.T) {
		cfg := config.Default().EmbedLLM
		e, err := NewEmbedder(&cfg, "sk-test")
		require.NoError(t, err)
		assert.NotNil(t, e)
	})

	t.Run("ollama", func(t *testing.T) {
		cfg := config.LLMConfig{Provider: config.ProviderOllama, BaseURL: "http://localhost:11434", Model: "nomic-embed-text"}
		e, err := NewEmbedder(&cfg, "")
		require.NoError(t, err)
		assert.NotNil(t, e)
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := config.LLMConfig{Provider: "bedrock", Model: "m"}
		_, err := NewEmbedder(&cfg, "sk-test")
		require.Error(t, err)
		assert.True(t, models.HasCode(err, models.ErrCodeValidation))
	})
}
