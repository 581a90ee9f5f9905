package errors

import (
	stderrors "errors"
	"fmt"
	"unicode/utf8"
)

// AppError is the structured error type for nearmatch.
// It carries enough context for logging, transport status mapping and
// user presentation.
type AppError struct {
	// Code is the unique error code (e.g., "ERR_402_INVALID_TEXT").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Storage, Validation, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Sentinels for errors.Is checks. ErrInvalidText matches by code,
// ErrStorage matches any storage-category error.
var (
	ErrInvalidText = &AppError{Code: ErrCodeInvalidText, Category: CategoryValidation}
	ErrStorage     = &AppError{Category: CategoryStorage}
)

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches by code, or by category when the target carries no code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	if t.Code == "" {
		return t.Category != "" && e.Category == t.Category
	}
	return e.Code == t.Code
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *AppError) WithSuggestion(suggestion string) *AppError {
	e.Suggestion = suggestion
	return e
}

// New creates a new AppError with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates an AppError from an existing error.
// The error's message becomes the AppError message.
func Wrap(code string, err error) *AppError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *AppError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// StorageError creates a storage error with the given code.
func StorageError(code, message string, cause error) *AppError {
	return New(code, message, cause)
}

// ValidationError creates a generic input validation error.
func ValidationError(message string, cause error) *AppError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InvalidTextError reports a text that is empty or contains a non-letter.
// position is the byte offset of the offending character, or -1 for empty input.
func InvalidTextError(text string, position int) *AppError {
	var msg string
	if position < 0 {
		msg = "text must not be empty"
	} else {
		r, _ := utf8.DecodeRuneInString(text[position:])
		msg = fmt.Sprintf("text contains non-letter character %q at position %d", r, position)
	}
	return New(ErrCodeInvalidText, msg, nil).
		WithDetail("text", text).
		WithSuggestion("Only the letters a-z and A-Z are accepted")
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *AppError {
	return New(ErrCodeInternal, message, cause)
}

// IsFatal checks if an error has fatal severity.
// Fatal errors abort startup.
func IsFatal(err error) bool {
	var ae *AppError
	if stderrors.As(err, &ae) {
		return ae.Severity == SeverityFatal
	}
	return false
}

// IsClientError reports whether err was caused by the caller's input.
func IsClientError(err error) bool {
	var ae *AppError
	if stderrors.As(err, &ae) {
		return ae.Category == CategoryValidation
	}
	return false
}

// GetCode extracts the error code from an AppError anywhere in the chain.
// Returns empty string if none is found.
func GetCode(err error) string {
	var ae *AppError
	if stderrors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// GetCategory extracts the category from an AppError anywhere in the chain.
func GetCategory(err error) Category {
	var ae *AppError
	if stderrors.As(err, &ae) {
		return ae.Category
	}
	return ""
}

// AsAppError returns the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var ae *AppError
	if stderrors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
