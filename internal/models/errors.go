package models

import (
	"errors"
	"fmt"
)

// Error codes surfaced to the session boundary.
const (
	ErrCodeParse      = "PARSE_ERROR"
	ErrCodeOutOfRange = "OUT_OF_RANGE"
	ErrCodeIndexing   = "INDEXING_ERROR"
	ErrCodeGeneration = "GENERATION_ERROR"
	ErrCodeValidation = "VALIDATION_ERROR"
)

// Error is a typed failure carrying one of the codes above.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func NewParseError(message string, err error) *Error {
	return newError(ErrCodeParse, message, err)
}

func NewOutOfRangeError(message string) *Error {
	return newError(ErrCodeOutOfRange, message, nil)
}

func NewIndexingError(message string, err error) *Error {
	return newError(ErrCodeIndexing, message, err)
}

func NewGenerationError(message string, err error) *Error {
	return newError(ErrCodeGeneration, message, err)
}

func NewValidationError(message string) *Error {
	return newError(ErrCodeValidation, message, nil)
}

func NewValidationErrorWithCause(message string, err error) *Error {
	return newError(ErrCodeValidation, message, err)
}

// HasCode reports whether any *Error in err's chain carries code.
func HasCode(err error, code string) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Err
	}
	return false
}

var (
	ErrNoDocuments        = errors.New("no documents loaded")
	ErrInvalidAPIKey      = errors.New("invalid api key")
	ErrEmptyQuery         = errors.New("query cannot be empty")
	ErrUnsupportedFormat  = errors.New("unsupported file format")
	ErrInvalidPromptMode  = errors.New("invalid prompt mode")
	ErrInvalidTemperature = errors.New("temperature out of range")
)
