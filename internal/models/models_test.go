package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Format(t *testing.T) {
	assert.Equal(t, "[OUT_OF_RANGE] too many pages", NewOutOfRangeError("too many pages").Error())
	assert.Equal(t, "[PARSE_ERROR] failed to parse a.pdf: eof", NewParseError("failed to parse a.pdf", errors.New("eof")).Error())
}

func TestHasCode(t *testing.T) {
	cause := errors.New("401")
	err := fmt.Errorf("doc: %w", NewIndexingError("embed failed", cause))

	assert.True(t, HasCode(err, ErrCodeIndexing))
	assert.False(t, HasCode(err, ErrCodeParse))
	assert.ErrorIs(t, err, cause)
	assert.False(t, HasCode(cause, ErrCodeIndexing))
	assert.False(t, HasCode(nil, ErrCodeIndexing))
}

func TestHasCode_NestedCodes(t *testing.T) {
	inner := NewValidationErrorWithCause("bad key", ErrInvalidAPIKey)
	outer := NewGenerationError("ask failed", inner)

	assert.True(t, HasCode(outer, ErrCodeGeneration))
	assert.True(t, HasCode(outer, ErrCodeValidation))
	assert.ErrorIs(t, outer, ErrInvalidAPIKey)
}

func TestParsePromptMode(t *testing.T) {
	for in, want := range map[string]PromptMode{
		"Restricted":  PromptModeRestricted,
		"creative":    PromptModeCreative,
		" CREATIVE ": PromptModeCreative,
	} {
		got, err := ParsePromptMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParsePromptMode("wild")
	assert.ErrorIs(t, err, ErrInvalidPromptMode)
	assert.True(t, HasCode(err, ErrCodeValidation))
}

func TestTextPage(t *testing.T) {
	text, err := TextPage("hello").PlainText()
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}
