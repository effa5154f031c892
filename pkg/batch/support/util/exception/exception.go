// Package exception provides the custom error types and error-classification
// utilities for the Swell batch engine. Errors raised during scheduling and
// execution are standardized here so that retry policies and completion logic
// can categorize them uniformly.
package exception

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"sync"
)

// errorRegistry maps error names referenced in configuration to concrete Go
// error instances. It holds singletons for comparison via errors.Is.
var errorRegistry = make(map[string]error)

// registryMutex protects access to errorRegistry.
var registryMutex sync.RWMutex

// RegisterErrorType registers an error type in the registry.
// Registered names are referenced by retry configuration and by the
// IsErrorOfType function for error classification.
//
// name: a unique identifier for the error type.
// prototype: an error instance used for comparison with errors.Is.
//
// If prototype is nil or name is empty, this function panics.
func RegisterErrorType(name string, prototype error) {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if name == "" {
		panic("Error type name cannot be empty")
	}
	if prototype == nil {
		panic(fmt.Sprintf("Cannot register nil prototype for name: %s", name))
	}

	errorRegistry[name] = prototype
}

// IsErrorTypeRegistered checks whether the specified error type name is
// registered in the registry.
func IsErrorTypeRegistered(name string) bool {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	_, ok := errorRegistry[name]
	return ok
}

// BatchError is the custom error type raised during batch processing.
// It holds the module where the error occurred, a message, the wrapped
// original error, and flags indicating whether it is retryable or skippable.
type BatchError struct {
	// Module indicates the module where the error occurred (e.g., "scheduler", "chunk_executor").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped original error.
	OriginalErr error
	// isRetryable indicates whether this error is retryable.
	isRetryable bool
	// isSkippable indicates whether this error is skippable.
	isSkippable bool
	// StackTrace is the stack trace at the time of the error (for debugging).
	StackTrace string
}

// NewBatchError creates a new BatchError instance.
// module: the module where the error occurred.
// message: the error message.
// originalErr: the original error to wrap.
// isSkippable: whether this error is skippable.
// isRetryable: whether this error is retryable.
func NewBatchError(module, message string, originalErr error, isSkippable, isRetryable bool) *BatchError {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)

	return &BatchError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		isSkippable: isSkippable,
		StackTrace:  string(buf[:n]),
	}
}

// NewBatchErrorf creates a new BatchError instance using a format string.
// Optional flags and an error are extracted from the end of the variadic
// arguments in the order: [isSkippable bool], [isRetryable bool],
// [originalErr error]. The remaining arguments feed fmt.Sprintf.
func NewBatchErrorf(module, format string, a ...interface{}) *BatchError {
	var originalErr error
	isRetryable := false
	isSkippable := false
	args := a

	if len(args) > 0 {
		if err, ok := args[len(args)-1].(error); ok {
			originalErr = err
			args = args[:len(args)-1]
		}
	}
	if len(args) > 0 {
		if b, ok := args[len(args)-1].(bool); ok {
			isRetryable = b
			args = args[:len(args)-1]
		}
	}
	if len(args) > 0 {
		if b, ok := args[len(args)-1].(bool); ok {
			isSkippable = b
			args = args[:len(args)-1]
		}
	}

	be := NewBatchError(module, fmt.Sprintf(format, args...), originalErr, isSkippable, isRetryable)
	return be
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Unwrap.
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// IsRetryable returns whether this error is retryable.
func (e *BatchError) IsRetryable() bool {
	return e.isRetryable
}

// IsSkippable returns whether this error is skippable.
func (e *BatchError) IsSkippable() bool {
	return e.isSkippable
}

// IsBatchError determines whether the given error is of type BatchError.
func IsBatchError(err error) bool {
	if err == nil {
		return false
	}
	var be *BatchError
	return errors.As(err, &be)
}

// IsErrorOfType checks whether an error matches a specified type name.
// errorTypeName can be a registered sentinel name, a Go error type name
// (e.g., "*net.OpError") or a substring of an error message. It checks in
// order: registered sentinels via errors.Is, message substring, and type
// name comparison using reflection, walking the whole error chain.
func IsErrorOfType(err error, errorTypeName string) bool {
	if err == nil {
		return false
	}

	registryMutex.RLock()
	targetError, ok := errorRegistry[errorTypeName]
	registryMutex.RUnlock()

	if ok && errors.Is(err, targetError) {
		return true
	}

	currentErr := err
	for currentErr != nil {
		if strings.Contains(currentErr.Error(), errorTypeName) {
			return true
		}

		errType := reflect.TypeOf(currentErr)
		if errType != nil {
			if errType.String() == errorTypeName || (errType.Kind() == reflect.Ptr && errType.Elem().String() == errorTypeName) {
				return true
			}
		}

		currentErr = errors.Unwrap(currentErr)
	}

	return false
}

// Sentinel errors for the engine's failure taxonomy. Configuration errors
// fail fast at definition/schedule creation and never surface mid-run;
// dispatch conflicts are benign and indicate a lost claim race.
var (
	// ErrInvalidConfiguration indicates a structurally invalid job or schedule
	// configuration (bad chunk size, missing schedule fields).
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInvalidCronExpression indicates a cron expression that cannot be
	// parsed. Callers must deactivate the owning schedule rather than retry.
	ErrInvalidCronExpression = errors.New("invalid cron expression")

	// ErrDispatchConflict indicates that another dispatcher already claimed a
	// due firing. Expected under concurrent ticks; logged, never alerted.
	ErrDispatchConflict = errors.New("scheduler dispatch conflict")

	// ErrInstanceTimeout indicates that an instance exceeded its configured
	// timeout before all chunks finished.
	ErrInstanceTimeout = errors.New("instance timeout")

	// ErrRecordProcessing indicates that a record processor returned a failure
	// for a single record. Subject to the per-record retry budget.
	ErrRecordProcessing = errors.New("record processing error")

	// ErrChunkExecution indicates that a whole chunk failed outside of
	// per-record processing (storage errors, processor resolution).
	ErrChunkExecution = errors.New("chunk execution error")
)

func init() {
	// Register sentinel errors so retry configuration can reference them by name.
	RegisterErrorType("InvalidConfiguration", ErrInvalidConfiguration)
	RegisterErrorType("InvalidCronExpression", ErrInvalidCronExpression)
	RegisterErrorType("SchedulerDispatchConflict", ErrDispatchConflict)
	RegisterErrorType("InstanceTimeout", ErrInstanceTimeout)
	RegisterErrorType("RecordProcessingError", ErrRecordProcessing)
	RegisterErrorType("ChunkExecutionError", ErrChunkExecution)

	// Common error types that may be referenced in retry configuration.
	RegisterErrorType("io.EOF", errors.New("io.EOF"))
	RegisterErrorType("context.DeadlineExceeded", context.DeadlineExceeded)
	RegisterErrorType("context.Canceled", context.Canceled)
	RegisterErrorType("sql.ErrNoRows", sql.ErrNoRows)
}

// IsDispatchConflict determines whether an error indicates a lost scheduler
// claim race.
func IsDispatchConflict(err error) bool {
	return err != nil && errors.Is(err, ErrDispatchConflict)
}

// ExtractErrorMessage extracts the error message string from an error.
// For BatchError it returns the cleaner Message field; otherwise the
// standard Error() string.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var be *BatchError
	if errors.As(err, &be) {
		return be.Message
	}
	return err.Error()
}
