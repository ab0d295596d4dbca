// Package store provides keyed sample storage backends and a Dataset
// adapter over them.
//
// A Store fetches one sample payload per key. Backends exist for in-memory
// maps, the local file system, Amazon S3, DynamoDB, and MinIO. Dataset
// turns a Store plus an ordered key list into a positional sample source:
// a missing key or an undecodable payload surfaces as a fetch error, which
// the safe-iteration layer absorbs as an invalid sample.
package store

import (
	"context"
	"os"
)

// ErrNotFound is returned when a key does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// Store is an abstraction for fetching immutable sample payloads by key.
type Store interface {
	// Get returns the payload stored under key.
	Get(ctx context.Context, key string) ([]byte, error)
}
