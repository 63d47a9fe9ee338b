// Package testutil holds deterministic stand-ins for the embedding and chat providers.
package testutil

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"

	"github.com/tmc/langchaingo/llms"
)

const embeddingDims = 64

// Embedder hashes lower-cased words into a fixed size bag-of-words vector. Texts that
// share words land close together. The last dimension is always set so no vector is zero.
type Embedder struct {
	mu    sync.Mutex
	Err   error
	Calls int
}

func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.Calls++
	err := e.Err
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = Vector(t)
	}
	return out, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.Calls++
	err := e.Err
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return Vector(text), nil
}

// Vector is the embedding Embedder produces for text.
func Vector(text string) []float32 {
	v := make([]float32, embeddingDims+1)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%embeddingDims]++
	}
	v[embeddingDims] = 0.1
	return v
}

// ChatModel answers every prompt with Reply, or with Respond when it is set, and records
// what it was asked.
type ChatModel struct {
	mu           sync.Mutex
	Reply        string
	Respond      func(prompt string) string
	Err          error
	Prompts      []string
	Temperatures []float64
}

var ErrNoContent = errors.New("no message content")

func (m *ChatModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}

	var prompt strings.Builder
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				prompt.WriteString(text.Text)
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prompts = append(m.Prompts, prompt.String())
	m.Temperatures = append(m.Temperatures, opts.Temperature)
	if m.Err != nil {
		return nil, m.Err
	}
	if prompt.Len() == 0 {
		return nil, ErrNoContent
	}

	reply := m.Reply
	if m.Respond != nil {
		reply = m.Respond(prompt.String())
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: reply}}}, nil
}

func (m *ChatModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// LastPrompt returns the most recent prompt, or "" when nothing was asked.
func (m *ChatModel) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Prompts) == 0 {
		return ""
	}
	return m.Prompts[len(m.Prompts)-1]
}

// CallCount is the number of GenerateContent calls so far.
func (m *ChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}
