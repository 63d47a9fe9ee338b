package rag

import (
	"context"
	"fmt"
	"math"
	"strings"

	"document-qa/internal/llmservice"
	"document-qa/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"
)

// Retriever returns the k chunks most similar to text.
type Retriever interface {
	Query(ctx context.Context, text string, k int) ([]models.ScoredChunk, error)
}

type RAG struct {
	retriever Retriever
	llm       llms.Model
	topK      int
}

func NewRAG(retriever Retriever, llm llms.Model, topK int) *RAG {
	if topK <= 0 {
		topK = models.DefaultTopK
	}
	return &RAG{retriever: retriever, llm: llm, topK: topK}
}

// Query retrieves context for query, fills the prompt for mode and asks the chat model.
// The sources in the response are the retrieved chunks in ranking order.
func (r *RAG) Query(ctx context.Context, query string, mode models.PromptMode, temperature float64) (*models.PromptResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, models.NewValidationErrorWithCause("please enter a question", models.ErrEmptyQuery)
	}
	if err := ValidateTemperature(temperature); err != nil {
		return nil, err
	}

	sources, err := r.retriever.Query(ctx, query, r.topK)
	if err != nil {
		return nil, models.NewGenerationError("failed to retrieve context", err)
	}

	contents := make([]string, len(sources))
	for i, s := range sources {
		contents[i] = s.Content
	}

	prompt, err := BuildPrompt(mode, strings.Join(contents, models.ContextSeparator), query)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("mode", string(mode)).
		Float64("temperature", temperature).
		Int("sources", len(sources)).
		Msg("Querying chat model")

	answer, err := llmservice.GenerateContent(ctx, r.llm, prompt, temperature)
	if err != nil {
		return nil, models.NewGenerationError("failed to generate answer", err)
	}

	return &models.PromptResponse{
		Query:       query,
		Answer:      answer,
		Mode:        mode,
		Temperature: temperature,
		Sources:     sources,
	}, nil
}

// BuildPrompt renders the template for mode with the given context and question.
func BuildPrompt(mode models.PromptMode, context, question string) (string, error) {
	var tmpl string
	switch mode {
	case models.PromptModeRestricted:
		tmpl = models.RestrictedPromptTemplate
	case models.PromptModeCreative:
		tmpl = models.CreativePromptTemplate
	default:
		return "", models.NewValidationErrorWithCause(fmt.Sprintf("unknown prompt mode %q", mode), models.ErrInvalidPromptMode)
	}

	p := prompts.NewPromptTemplate(tmpl, []string{"context", "question"})
	out, err := p.Format(map[string]any{
		"context":  context,
		"question": question,
	})
	if err != nil {
		return "", models.NewGenerationError("failed to render prompt", err)
	}
	return out, nil
}

func ValidateTemperature(t float64) error {
	if math.IsNaN(t) || t < models.MinTemperature || t > models.MaxTemperature {
		return models.NewValidationErrorWithCause(
			fmt.Sprintf("temperature must be between %.1f and %.1f, got %v", models.MinTemperature, models.MaxTemperature, t),
			models.ErrInvalidTemperature,
		)
	}
	return nil
}

// TemperatureOptions lists the selectable temperatures from the minimum to the maximum in
// fixed steps, rounded to one decimal.
func TemperatureOptions() []float64 {
	steps := int(math.Round((models.MaxTemperature - models.MinTemperature) / models.TemperatureStep))
	out := make([]float64, 0, steps+1)
	for i := 0; i <= steps; i++ {
		v := models.MinTemperature + float64(i)*models.TemperatureStep
		out = append(out, math.Round(v*10)/10)
	}
	return out
}

// FormatSource renders one retrieved chunk the way it is shown under an answer.
func FormatSource(c models.ScoredChunk) string {
	return fmt.Sprintf("%s\n\n%s (pg %d)", c.Content, c.Source, c.Page)
}
