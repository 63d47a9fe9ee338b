package llmservice

import (
	"context"
	"fmt"
	"strings"

	"document-qa/internal/config"
	"document-qa/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// NewChatModel creates the chat client for the configured provider. A non-empty apiKey takes
// precedence over the key from the config file.
func NewChatModel(llmConfig *config.LLMConfig, apiKey string) (llms.Model, error) {
	key := llmConfig.Key
	if strings.TrimSpace(apiKey) != "" {
		key = apiKey
	}
	log.Debug().Str("provider", llmConfig.Provider).Str("model", llmConfig.Model).Msg("Creating chat model")

	switch llmConfig.Provider {
	case config.ProviderOllama:
		llm, err := ollama.New(
			ollama.WithServerURL(llmConfig.BaseURL),
			ollama.WithModel(llmConfig.Model),
		)
		if err != nil {
			return nil, models.NewGenerationError("error initializing ollama chat model", err)
		}
		return llm, nil
	case config.ProviderOpenAI, "":
		llm, err := openai.New(
			openai.WithBaseURL(llmConfig.BaseURL),
			openai.WithToken(strings.TrimPrefix(strings.TrimSpace(key), "Bearer ")),
			openai.WithModel(llmConfig.Model),
		)
		if err != nil {
			return nil, models.NewGenerationError("error initializing openai chat model", err)
		}
		return llm, nil
	default:
		return nil, models.NewValidationError(fmt.Sprintf("unknown chat provider %q", llmConfig.Provider))
	}
}

// GenerateContent sends prompt as a single human message and returns the first choice.
func GenerateContent(ctx context.Context, model llms.Model, prompt string, temperature float64) (string, error) {
	msgContent := []llms.MessageContent{
		{
			Role:  schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: prompt}},
		},
	}

	res, err := model.GenerateContent(ctx, msgContent, llms.WithTemperature(temperature))
	if err != nil {
		return "", err
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return res.Choices[0].Content, nil
}
