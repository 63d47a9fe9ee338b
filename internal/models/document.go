package models

import (
	"fmt"
	"strings"
)

// Page is one page of a source document. Text is extracted on demand so pages that get
// trimmed away are never read.
type Page interface {
	PlainText() (string, error)
}

// TextPage is a page whose text is already known.
type TextPage string

func (p TextPage) PlainText() (string, error) { return string(p), nil }

// SourceDocument is one uploaded file
type SourceDocument struct {
	FileName string
	Metadata map[string]string
	Pages    []Page
}

// Chunk represents a parsed chunk with metadata
type Chunk struct {
	Content string `json:"content"`
	Source  string `json:"source"`
	Page    int    `json:"page"`
	ChunkID int    `json:"chunk_id"`
}

// ScoredChunk is a chunk returned by a similarity lookup.
type ScoredChunk struct {
	Chunk
	Score float32 `json:"score"`
}

type PromptMode string

const (
	PromptModeRestricted PromptMode = "Restricted"
	PromptModeCreative   PromptMode = "Creative"
)

// PromptModes lists the selectable modes in display order.
var PromptModes = []PromptMode{PromptModeRestricted, PromptModeCreative}

// ParsePromptMode accepts a mode name in any letter case.
func ParsePromptMode(s string) (PromptMode, error) {
	for _, m := range PromptModes {
		if strings.EqualFold(strings.TrimSpace(s), string(m)) {
			return m, nil
		}
	}
	return "", NewValidationErrorWithCause(fmt.Sprintf("unknown prompt mode %q", s), ErrInvalidPromptMode)
}

type PromptResponse struct {
	Query       string        `json:"query"`
	Answer      string        `json:"answer"`
	Mode        PromptMode    `json:"mode"`
	Temperature float64       `json:"temperature"`
	Sources     []ScoredChunk `json:"sources"`
}
