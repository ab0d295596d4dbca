package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/msamogh/nonechucks/codec"
)

// DecodeFunc turns a raw payload into a sample. A decode failure marks the
// position invalid, same as a failed fetch.
type DecodeFunc[T any] func(payload []byte) (T, error)

// Dataset is a positional sample source over a Store: position i fetches
// and decodes the payload under keys[i]. It satisfies the Dataset interface
// of the root package.
type Dataset[T any] struct {
	store  Store
	keys   []string
	decode DecodeFunc[T]
}

// NewDataset creates a Dataset over store with the given ordered key list.
func NewDataset[T any](s Store, keys []string, decode DecodeFunc[T]) (*Dataset[T], error) {
	if s == nil {
		return nil, errors.New("store must not be nil")
	}
	if decode == nil {
		return nil, errors.New("decode function must not be nil")
	}
	return &Dataset[T]{
		store:  s,
		keys:   append([]string(nil), keys...),
		decode: decode,
	}, nil
}

// NewJSONDataset creates a Dataset whose payloads are decoded with the
// default codec.
func NewJSONDataset[T any](s Store, keys []string) (*Dataset[T], error) {
	return NewDataset(s, keys, func(payload []byte) (T, error) {
		var v T
		if err := codec.Default.Unmarshal(payload, &v); err != nil {
			return v, fmt.Errorf("decode sample: %w", err)
		}
		return v, nil
	})
}

// Len returns the number of keys.
func (d *Dataset[T]) Len() int { return len(d.keys) }

// Key returns the key at the given position.
func (d *Dataset[T]) Key(position int) string { return d.keys[position] }

// GetItem fetches and decodes the sample at the given position.
func (d *Dataset[T]) GetItem(ctx context.Context, position int) (T, error) {
	var zero T
	if position < 0 || position >= len(d.keys) {
		return zero, fmt.Errorf("position %d out of range [0, %d)", position, len(d.keys))
	}
	payload, err := d.store.Get(ctx, d.keys[position])
	if err != nil {
		return zero, fmt.Errorf("fetch %s: %w", d.keys[position], err)
	}
	return d.decode(payload)
}
