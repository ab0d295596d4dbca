// Package testutil provides deterministic helpers for testing safe
// iteration: seeded randomness and flaky in-memory sample sources with
// fetch accounting.
package testutil
