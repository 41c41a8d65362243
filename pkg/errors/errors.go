// Package errors defines the sentinel errors shared across the pipeline
// stages and maps them to process exit codes.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedRecord = errors.New("malformed record")
	ErrEmptyDocument   = errors.New("empty document")
	ErrConfiguration   = errors.New("configuration error")
	ErrInternal        = errors.New("internal error")
)

// Exit codes reported by the stage binaries.
const (
	ExitOK            = 0
	ExitConfiguration = 1
	ExitBadRecord     = 2
)

type StageError struct {
	Err     error
	Message string
	Line    int64
}

func (e *StageError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: line %d: %s", e.Err.Error(), e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func New(sentinel error, message string) *StageError {
	return &StageError{
		Err:     sentinel,
		Message: message,
	}
}

func Newf(sentinel error, format string, args ...any) *StageError {
	return &StageError{
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
	}
}

// AtLine annotates a stage error with the 1-based input line it came from.
func (e *StageError) AtLine(line int64) *StageError {
	e.Line = line
	return e
}

// ExitCode maps an error to the exit code a stage binary should report.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrConfiguration):
		return ExitConfiguration
	case errors.Is(err, ErrMalformedRecord), errors.Is(err, ErrEmptyDocument):
		return ExitBadRecord
	default:
		return ExitBadRecord
	}
}

// IsRecordError reports whether err concerns a single input record, meaning
// a lenient stage may skip it and continue.
func IsRecordError(err error) bool {
	return errors.Is(err, ErrMalformedRecord) || errors.Is(err, ErrEmptyDocument)
}
