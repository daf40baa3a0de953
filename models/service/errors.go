package service

import (
	"fmt"
	"runtime"
)

type ProcessingError struct {
	Identifier string
	IsFatal    bool
	Message    string
	Source     string
}

// NewProcessingError returns a new ProcessingError. Param identifier is
// the owner-scoped file identifier being processed when the error
// occurred. Param isFatal describes whether the error is fatal. Fatal
// errors are those which will prevent a worker from succeeding when it
// retries the same item: a file whose record is gone will still be gone
// on the next attempt. Network and storage errors are transient and are
// likely to succeed on future tries, so they stay non-fatal until the
// attempt cap flags them.
func NewProcessingError(identifier, message string, isFatal bool) *ProcessingError {
	_, filename, line, ok := runtime.Caller(1)
	source := "unknown:0"
	if ok {
		source = fmt.Sprintf("%s:%d", filename, line)
	}
	return &ProcessingError{
		Identifier: identifier,
		IsFatal:    isFatal,
		Message:    message,
		Source:     source,
	}
}

func (e *ProcessingError) Error() string {
	severity := "non-fatal"
	if e.IsFatal {
		severity = "fatal"
	}
	source := "unknown:0"
	if e.Source != "" {
		source = e.Source
	}
	return fmt.Sprintf("(message: %s) (severity: %s) (identifier: %s) "+
		"(source: %s)", e.Message, severity, e.Identifier, source)
}
