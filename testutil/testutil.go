package testutil

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Perm returns a pseudo-random permutation of [0,n).
func (r *RNG) Perm(n int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Perm(n)
}

// PickInvalid selects count distinct positions in [0,n) to mark invalid.
func (r *RNG) PickInvalid(n, count int) []int {
	return r.Perm(n)[:count]
}

// IntDataset is an in-memory positional source of ints where the sample at
// position i is i itself. Positions listed as invalid fail to fetch. Every
// call to the underlying fetch is counted, so tests can assert memoization.
type IntDataset struct {
	n       int
	invalid map[int]bool
	fetches atomic.Int64
}

// NewIntDataset creates an IntDataset of length n with the given invalid
// positions.
func NewIntDataset(n int, invalid ...int) *IntDataset {
	bad := make(map[int]bool, len(invalid))
	for _, pos := range invalid {
		bad[pos] = true
	}
	return &IntDataset{n: n, invalid: bad}
}

// Len returns the number of positions in the source.
func (d *IntDataset) Len() int { return d.n }

// GetItem fetches the sample at the given position.
func (d *IntDataset) GetItem(ctx context.Context, position int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	d.fetches.Add(1)
	if d.invalid[position] {
		return 0, fmt.Errorf("sample %d is corrupt", position)
	}
	return position, nil
}

// Fetches returns how many times the underlying fetch was invoked.
func (d *IntDataset) Fetches() int64 {
	return d.fetches.Load()
}

// VecDataset is an in-memory positional source of fixed-width vectors.
// The sample at position i is a width-sized vector filled with float32(i).
// Positions listed as invalid fail to fetch.
type VecDataset struct {
	n       int
	width   int
	invalid map[int]bool
}

// NewVecDataset creates a VecDataset of length n with vectors of the given
// width.
func NewVecDataset(n, width int, invalid ...int) *VecDataset {
	bad := make(map[int]bool, len(invalid))
	for _, pos := range invalid {
		bad[pos] = true
	}
	return &VecDataset{n: n, width: width, invalid: bad}
}

// Len returns the number of positions in the source.
func (d *VecDataset) Len() int { return d.n }

// GetItem fetches the sample at the given position.
func (d *VecDataset) GetItem(ctx context.Context, position int) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.invalid[position] {
		return nil, fmt.Errorf("sample %d is corrupt", position)
	}
	vec := make([]float32, d.width)
	for i := range vec {
		vec[i] = float32(position)
	}
	return vec, nil
}
