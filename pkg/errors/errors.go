// Package errors defines the error kinds surfaced by cacherch commands and
// maps them to process exit codes.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrIO                   = errors.New("io error")
	ErrUnsupportedExtension = errors.New("unsupported file extension")
	ErrExtraction           = errors.New("text extraction failed")
	ErrIndexStorage         = errors.New("index storage error")
	ErrQueryParse           = errors.New("query parse error")
	ErrIndexNotFound        = errors.New("index not found")
	ErrCacheStore           = errors.New("cache store error")
	ErrInvalidInput         = errors.New("invalid input")
)

// Exit codes returned by the CLI. Zero is success.
const (
	ExitOK = iota
	ExitFailure
	ExitUsage
	ExitIO
	ExitUnsupportedExtension
	ExitExtraction
	ExitIndexStorage
	ExitQueryParse
	ExitIndexNotFound
)

// AppError pairs a sentinel kind with a human-readable detail and, when
// available, the underlying cause.
type AppError struct {
	Err     error
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Err.Error(), e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

// Unwrap exposes both the sentinel and the cause to errors.Is / errors.As.
func (e *AppError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

func New(sentinel error, message string) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: message,
	}
}

func Newf(sentinel error, format string, args ...any) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap attaches cause to a new AppError of the given kind.
func Wrap(sentinel error, cause error, message string) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: message,
		Cause:   cause,
	}
}

// Detail returns the Message of the outermost AppError in err's chain, or
// the empty string.
func Detail(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return ""
}

func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch {
	case errors.Is(err, ErrIndexNotFound):
		return ExitIndexNotFound
	case errors.Is(err, ErrQueryParse):
		return ExitQueryParse
	case errors.Is(err, ErrUnsupportedExtension):
		return ExitUnsupportedExtension
	case errors.Is(err, ErrExtraction):
		return ExitExtraction
	case errors.Is(err, ErrIndexStorage):
		return ExitIndexStorage
	case errors.Is(err, ErrIO):
		return ExitIO
	case errors.Is(err, ErrInvalidInput):
		return ExitUsage
	default:
		return ExitFailure
	}
}
