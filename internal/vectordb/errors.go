package vectordb

import "errors"

// ErrUnavailable indicates the index could not be reached after exhausting
// the retry budget. Transport-level and 5xx failures map here; the caller
// decides whether the operation is fatal.
var ErrUnavailable = errors.New("vector index unavailable")

// ErrCollectionConflict indicates an existing collection has a different
// dimension or metric. Operator intervention is required; it is never
// auto-resolved by dropping data.
var ErrCollectionConflict = errors.New("collection schema conflict")

// ErrNotFound indicates a record lookup miss. A normal outcome, not a fault.
var ErrNotFound = errors.New("record not found")

// transientError marks an error as retryable by RetryPolicy.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func markTransient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

func isTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}
