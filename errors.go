package nonechucks

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfRange is returned when a position lies outside the wrapped
	// source. It is a genuine end-of-data signal and is never converted
	// into an invalid-sample marker.
	ErrOutOfRange = errors.New("position out of range")

	// ErrExhausted signals the clean end of a pass. It plays the role
	// io.EOF plays for readers: not a failure, just "no more data".
	ErrExhausted = errors.New("pass exhausted")

	// ErrOrdinalOutOfRange is returned when fewer valid samples exist
	// than the requested ordinal.
	ErrOrdinalOutOfRange = errors.New("ordinal out of range")

	// ErrIndexNotBuilt is returned by operations that require a fully
	// built validity index.
	ErrIndexNotBuilt = errors.New("validity index not built")

	// ErrNilDataset is returned when a constructor receives a nil dataset.
	ErrNilDataset = errors.New("dataset must not be nil")

	// ErrInvalidBatchSize is returned when the configured batch size is
	// not positive.
	ErrInvalidBatchSize = errors.New("batch size must be positive")

	// ErrNilCollate is returned when a nil collate function is configured.
	ErrNilCollate = errors.New("collate function must not be nil")
)

// ErrShapeMismatch indicates that two batches of incompatible shapes were
// concatenated, or that samples of uneven shapes were collated.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrShapeMismatch struct {
	Left  string
	Right string
	cause error
}

func (e *ErrShapeMismatch) Error() string {
	return fmt.Sprintf("batch shape mismatch: %s vs %s", e.Left, e.Right)
}

func (e *ErrShapeMismatch) Unwrap() error { return e.cause }

// ErrSnapshotMismatch indicates that a persisted validity index does not
// match the wrapped source (for example, the source length changed).
type ErrSnapshotMismatch struct {
	Want int
	Got  int
}

func (e *ErrSnapshotMismatch) Error() string {
	return fmt.Sprintf("index snapshot mismatch: snapshot covers %d positions, source has %d", e.Got, e.Want)
}
