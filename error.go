package pushz

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrClosed is reported by operators whose stream was closed while work
	// was still pending, such as a spill or a merge that never started.
	ErrClosed = errors.New("pushz: stream closed")

	// ErrTimeout is the error used by WithTimeout when the deadline passes.
	ErrTimeout = errors.New("pushz: deadline exceeded")

	// ErrAlreadyBound is the panic value raised when a consumer is bound to a
	// second supplier.
	ErrAlreadyBound = errors.New("pushz: consumer already bound")

	// ErrRunNotFound is returned by sorter storage when a run id was never
	// written or was already cleaned up.
	ErrRunNotFound = errors.New("pushz: sorter run not found")
)

// StreamError represents an operator-internal failure tied to a specific item:
// a reducer strategy that panicked, a mapper function that panicked, a
// partition function that failed. It closes the stream it happened in.
//
//nolint:govet // fieldalignment: struct layout optimized for readability over memory
type StreamError[T any] struct {
	// Item is the item being processed when the failure happened.
	Item T

	// Err is the underlying error.
	Err error

	// ProcessorName identifies which operator generated the error.
	ProcessorName string

	// Timestamp records when the error occurred.
	Timestamp time.Time
}

// NewStreamError creates a new StreamError stamped with the real clock.
func NewStreamError[T any](item T, err error, processorName string) *StreamError[T] {
	return newStreamError(RealClock, item, err, processorName)
}

func newStreamError[T any](clock Clock, item T, err error, processorName string) *StreamError[T] {
	return &StreamError[T]{
		Item:          item,
		Err:           err,
		ProcessorName: processorName,
		Timestamp:     clock.Now(),
	}
}

// String returns a human-readable representation of the error.
func (se *StreamError[T]) String() string {
	return fmt.Sprintf("StreamError[%s]: %v (item: %v, time: %s)",
		se.ProcessorName, se.Err, se.Item, se.Timestamp.Format(time.RFC3339))
}

// Unwrap returns the underlying error, enabling error wrapping chains.
func (se *StreamError[T]) Unwrap() error {
	return se.Err
}

// Error implements the error interface.
func (se *StreamError[T]) Error() string {
	return se.String()
}

// recovered converts a recovered panic value into an error.
func recovered(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", r)
}
