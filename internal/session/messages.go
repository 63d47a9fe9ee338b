package session

import (
	"errors"

	"document-qa/internal/models"
)

// UserMessage turns an action error into the warning shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, models.ErrInvalidAPIKey):
		return "Please enter your OpenAI API key!"
	case errors.Is(err, models.ErrNoDocuments):
		return "Please upload your documents first!"
	case errors.Is(err, models.ErrEmptyQuery):
		return "Please enter a question."
	}

	var typed *models.Error
	if !errors.As(err, &typed) {
		return "Something went wrong, please try again."
	}

	switch typed.Code {
	case models.ErrCodeParse:
		return "Could not read the uploaded documents (" + typed.Message + ")."
	case models.ErrCodeOutOfRange:
		return "Cannot remove that many pages: " + typed.Message + "."
	case models.ErrCodeIndexing:
		return "Error occurred while indexing the documents, check your API key and try again."
	case models.ErrCodeGeneration:
		return "Error occurred while generating the answer, please try again."
	default:
		return capitalize(typed.Message) + "."
	}
}

// Internal reports whether err is a failure of the system rather than of the user's input.
func Internal(err error) bool {
	if err == nil {
		return false
	}
	var typed *models.Error
	if !errors.As(err, &typed) {
		return true
	}
	return typed.Code == models.ErrCodeIndexing || typed.Code == models.ErrCodeGeneration
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
