package service

import (
	"encoding/json"
	"os"
	"strings"
	"sync"
	"time"
)

// WorkResult tracks one attempt to verify a file, including any errors
// the attempt produced. Workers serialize results into their logs when
// an item finishes or requeues.
type WorkResult struct {
	// Attempt is the number of the attempt to verify this item.
	Attempt int `json:"attempt"`

	// Operation is the name of the operation, e.g. "file_verification".
	Operation string `json:"operation"`

	// Host is the name of the network host on which the worker is running.
	Host string `json:"host"`

	// Pid is the pid of the worker doing this work.
	Pid int `json:"pid"`

	// StartedAt describes when this verification attempt started.
	// If StartedAt.IsZero(), the attempt has not begun.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt describes when this verification attempt completed.
	// A finished attempt may still have failed; check Succeeded().
	FinishedAt time.Time `json:"finished_at"`

	// Errors is a list of ProcessingError objects describing what went
	// wrong during the attempt. Don't write to this directly. It's public
	// so it can serialize to JSON, but access is locked internally with
	// a mutex. Use AddError.
	Errors []*ProcessingError `json:"errors"`

	mutex *sync.RWMutex
}

func NewWorkResult(operation string) *WorkResult {
	hostname, _ := os.Hostname()
	return &WorkResult{
		Operation: operation,
		Host:      hostname,
		Pid:       os.Getpid(),
		Errors:    make([]*ProcessingError, 0),
		mutex:     &sync.RWMutex{},
	}
}

func (result *WorkResult) Start() {
	result.StartedAt = time.Now().UTC()
}

func (result *WorkResult) Started() bool {
	return !result.StartedAt.IsZero()
}

func (result *WorkResult) Finish() {
	result.FinishedAt = time.Now().UTC()
}

func (result *WorkResult) Finished() bool {
	return !result.FinishedAt.IsZero()
}

func (result *WorkResult) RunTime() time.Duration {
	startTime := result.StartedAt
	if startTime.IsZero() {
		return time.Duration(0)
	}
	endTime := result.FinishedAt
	if endTime.IsZero() {
		endTime = time.Now()
	}
	return endTime.Sub(startTime)
}

func (result *WorkResult) Succeeded() bool {
	result.mutex.RLock()
	succeeded := result.Finished() && len(result.Errors) == 0
	result.mutex.RUnlock()
	return succeeded
}

// AddError adds a ProcessingError to the result. The total number of
// errors is capped at 30, unless the error being added is fatal. The cap
// exists because a dead Redis or storage endpoint produces the same
// transient error over and over, and a handful of copies makes the point.
// Fatal errors are always recorded.
func (result *WorkResult) AddError(err *ProcessingError) {
	if len(result.Errors) > 29 && !err.IsFatal {
		return
	}
	result.mutex.Lock()
	result.Errors = append(result.Errors, err)
	result.mutex.Unlock()
}

func (result *WorkResult) ClearErrors() {
	result.mutex.Lock()
	result.Errors = nil
	result.Errors = make([]*ProcessingError, 0)
	result.mutex.Unlock()
}

// Reset clears everything but the attempt number and the operation name.
func (result *WorkResult) Reset() {
	result.Host = ""
	result.Pid = 0
	result.StartedAt = time.Time{}
	result.FinishedAt = time.Time{}
	result.ClearErrors()
}

// HasErrors returns true if this result has any errors, fatal or not.
func (result *WorkResult) HasErrors() bool {
	result.mutex.RLock()
	hasErrors := len(result.Errors) > 0
	result.mutex.RUnlock()
	return hasErrors
}

// FatalErrors returns a list of all of this result's fatal errors.
func (result *WorkResult) FatalErrors() (errors []*ProcessingError) {
	result.mutex.RLock()
	for _, err := range result.Errors {
		if err.IsFatal {
			errors = append(errors, err)
		}
	}
	result.mutex.RUnlock()
	return errors
}

// HasFatalErrors returns true if this result has any fatal errors.
func (result *WorkResult) HasFatalErrors() bool {
	return len(result.FatalErrors()) > 0
}

// NonFatalErrors returns a list of all of this result's non-fatal errors.
func (result *WorkResult) NonFatalErrors() (errors []*ProcessingError) {
	result.mutex.RLock()
	for _, err := range result.Errors {
		if !err.IsFatal {
			errors = append(errors, err)
		}
	}
	result.mutex.RUnlock()
	return errors
}

// NonFatalErrorMessage returns all non-fatal error messages as a single
// pipe-delimited string.
func (result *WorkResult) NonFatalErrorMessage() string {
	errors := result.NonFatalErrors()
	messages := make([]string, len(errors))
	for i, err := range errors {
		messages[i] = err.Message
	}
	return strings.Join(messages[:], " | ")
}

// FatalErrorMessage returns all fatal error messages as a single
// pipe-delimited string.
func (result *WorkResult) FatalErrorMessage() string {
	errors := result.FatalErrors()
	messages := make([]string, len(errors))
	for i, err := range errors {
		messages[i] = err.Message
	}
	return strings.Join(messages[:], " | ")
}

// WorkResultFromJSON converts the JSON representation of a WorkResult
// into a full-fledged object. This initializes the internal mutex as well
// as deserializing the JSON. Deserializing any other way leads to nil
// pointer errors when the mutex is first used.
func WorkResultFromJSON(jsonData string) (*WorkResult, error) {
	result := &WorkResult{}
	err := json.Unmarshal([]byte(jsonData), result)
	if err != nil {
		return nil, err
	}
	result.mutex = &sync.RWMutex{}
	return result, nil
}

func (result *WorkResult) ToJSON() (string, error) {
	bytes, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}
