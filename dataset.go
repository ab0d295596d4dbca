package nonechucks

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Dataset is a positional sample source. Fetching a position may fail for a
// subset of positions; SafeDataset exists to absorb those failures.
//
// Implementations do not need to be safe for concurrent use. SafeDataset
// coordinates access to them.
type Dataset[T any] interface {
	// Len returns the number of positions in the source.
	Len() int
	// GetItem fetches the sample at the given position. It may block on I/O
	// and must honor ctx cancellation.
	GetItem(ctx context.Context, position int) (T, error)
}

// DatasetFunc adapts a length and a fetch function into a Dataset.
type DatasetFunc[T any] struct {
	N  int
	Fn func(ctx context.Context, position int) (T, error)
}

// Len returns the number of positions in the source.
func (d DatasetFunc[T]) Len() int { return d.N }

// GetItem fetches the sample at the given position.
func (d DatasetFunc[T]) GetItem(ctx context.Context, position int) (T, error) {
	return d.Fn(ctx, position)
}

// SafeDataset wraps a Dataset and classifies each position as safe (the
// fetch returns a sample) or unsafe (the fetch fails) the first time it is
// touched. Unsafe positions are absorbed: Get reports them as invalid
// instead of propagating the fetch error.
//
// The classification index is built lazily as a side effect of access, or
// eagerly via BuildIndex. Classified results are memoized, so re-reading a
// position never refetches it. Concurrent first touches of a still
// unclassified position may each invoke the fetch; the first verdict to
// land wins and the others are discarded. The index survives across passes
// and is only cleared by Reset.
//
// All methods are safe for concurrent use, but classification order is
// append-order of first access and is therefore only deterministic for
// single-threaded access patterns.
type SafeDataset[T any] struct {
	inner   Dataset[T]
	logger  *Logger
	limiter *rate.Limiter
	workers int

	mu          sync.RWMutex
	safeOrder   []int
	unsafeOrder []int
	safeSet     *roaring.Bitmap
	unsafeSet   *roaring.Bitmap
	cache       map[int]T
}

// NewSafeDataset creates a SafeDataset wrapper around ds.
//
// With WithEagerEval, every position is classified before the constructor
// returns; use BuildIndex directly if you need cancellation during the
// eager build.
func NewSafeDataset[T any](ds Dataset[T], opts ...DatasetOption) (*SafeDataset[T], error) {
	if ds == nil {
		return nil, ErrNilDataset
	}

	o := datasetOptions{
		logger: NoopLogger(),
	}
	for _, fn := range opts {
		fn(&o)
	}

	d := &SafeDataset[T]{
		inner:     ds,
		logger:    o.logger,
		limiter:   o.limiter,
		workers:   o.workers,
		safeSet:   roaring.New(),
		unsafeSet: roaring.New(),
		cache:     make(map[int]T),
	}

	if o.eagerEval {
		if err := d.BuildIndex(context.Background()); err != nil {
			return nil, fmt.Errorf("eager index build: %w", err)
		}
	}

	return d, nil
}

// Len returns the length of the original source.
// This is not the number of valid samples; see NumSafe.
func (d *SafeDataset[T]) Len() int { return d.inner.Len() }

// Get classifies the position on first touch and returns its sample.
//
// The boolean reports validity: a false return with a nil error is the null
// marker for an unsafe position. ErrOutOfRange is returned unchanged for
// positions outside the source; it ends iteration and is never converted
// into a null marker. Any other fetch failure is recorded and absorbed.
func (d *SafeDataset[T]) Get(ctx context.Context, position int) (T, bool, error) {
	var zero T

	if position < 0 || position >= d.inner.Len() {
		return zero, false, fmt.Errorf("%w: position %d, length %d", ErrOutOfRange, position, d.inner.Len())
	}

	if sample, valid, found := d.cached(position); found {
		return sample, valid, nil
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return zero, false, err
		}
	}

	sample, err := d.inner.GetItem(ctx, position)
	if err != nil && ctx.Err() != nil {
		// Cancellation is not a verdict on the sample. Leave the position
		// unclassified so a later pass can retry it.
		return zero, false, context.Cause(ctx)
	}

	s, valid := d.classify(position, sample, err)
	d.logger.LogClassify(ctx, position, err)
	return s, valid, nil
}

// cached returns the memoized classification of a position, if any.
func (d *SafeDataset[T]) cached(position int) (T, bool, bool) {
	var zero T
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.safeSet.Contains(uint32(position)) {
		if sample, ok := d.cache[position]; ok {
			return sample, true, true
		}
		// Classification restored from a snapshot; the sample itself must
		// be refetched once.
		return zero, false, false
	}
	if d.unsafeSet.Contains(uint32(position)) {
		return zero, false, true
	}
	return zero, false, false
}

// classify records the outcome of a fetch. It is idempotent: if the
// position was classified concurrently, the first verdict wins and the
// memoized result is returned.
func (d *SafeDataset[T]) classify(position int, sample T, err error) (T, bool) {
	var zero T
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.safeSet.Contains(uint32(position)) {
		if cached, ok := d.cache[position]; ok {
			return cached, true
		}
		if err != nil {
			// Snapshot said safe, refetch failed. Keep the classification
			// and report a null; the next read retries the fetch.
			return zero, false
		}
		d.cache[position] = sample
		return sample, true
	}
	if d.unsafeSet.Contains(uint32(position)) {
		return zero, false
	}

	if err != nil {
		d.unsafeOrder = append(d.unsafeOrder, position)
		d.unsafeSet.Add(uint32(position))
		return zero, false
	}
	d.safeOrder = append(d.safeOrder, position)
	d.safeSet.Add(uint32(position))
	d.cache[position] = sample
	return sample, true
}

// rawFetch bypasses classification. Used by fetch workers; the verdict is
// applied by the coordinating goroutine via classify.
func (d *SafeDataset[T]) rawFetch(ctx context.Context, position int) (T, error) {
	if d.limiter != nil {
		var zero T
		if err := d.limiter.Wait(ctx); err != nil {
			return zero, err
		}
	}
	return d.inner.GetItem(ctx, position)
}

// IsIndexBuilt reports whether every position of the source has been
// classified.
func (d *SafeDataset[T]) IsIndexBuilt() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.safeOrder)+len(d.unsafeOrder) == d.inner.Len()
}

// NumExamined returns the number of positions classified so far.
func (d *SafeDataset[T]) NumExamined() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.safeOrder) + len(d.unsafeOrder)
}

// NumSafe returns the number of positions classified as valid so far.
func (d *SafeDataset[T]) NumSafe() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.safeOrder)
}

// NumUnsafe returns the number of positions classified as invalid so far.
func (d *SafeDataset[T]) NumUnsafe() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.unsafeOrder)
}

// SafeIndices returns a copy of the valid positions in first-access order.
func (d *SafeDataset[T]) SafeIndices() []int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]int, len(d.safeOrder))
	copy(out, d.safeOrder)
	return out
}

// UnsafeIndices returns a copy of the invalid positions in first-access
// order.
func (d *SafeDataset[T]) UnsafeIndices() []int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]int, len(d.unsafeOrder))
	copy(out, d.unsafeOrder)
	return out
}

// Reset clears the classification index and all memoized samples, forcing
// re-classification on the next access.
func (d *SafeDataset[T]) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.safeOrder = nil
	d.unsafeOrder = nil
	d.safeSet = roaring.New()
	d.unsafeSet = roaring.New()
	d.cache = make(map[int]T)
}

// ByOrdinal returns the source position of the n-th valid sample, treating
// the source as if compacted to only its valid members. It requires the
// index to be fully built; before that, use At, which degrades to a forward
// scan.
func (d *SafeDataset[T]) ByOrdinal(n int) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(d.safeOrder)+len(d.unsafeOrder) != d.inner.Len() {
		return 0, ErrIndexNotBuilt
	}
	if n < 0 || n >= len(d.safeOrder) {
		return 0, fmt.Errorf("%w: ordinal %d, %d valid samples", ErrOrdinalOutOfRange, n, len(d.safeOrder))
	}
	return d.safeOrder[n], nil
}

// At returns the n-th valid sample.
//
// Once the index is built, n is an ordinal over the valid positions. Before
// that, At degrades to a forward scan: it starts at position n, classifies
// as it goes, and returns the first valid sample at or after that position.
// The scan does not account for invalid positions before n, so the two
// behaviors give different answers for the same n once any earlier position
// is invalid. Build the index first when ordinal stability matters.
func (d *SafeDataset[T]) At(ctx context.Context, n int) (T, error) {
	var zero T
	if n < 0 {
		return zero, fmt.Errorf("%w: ordinal %d", ErrOrdinalOutOfRange, n)
	}
	if d.IsIndexBuilt() {
		pos, err := d.ByOrdinal(n)
		if err != nil {
			return zero, err
		}
		sample, valid, err := d.Get(ctx, pos)
		if err != nil {
			return zero, err
		}
		if !valid {
			return zero, fmt.Errorf("%w: position %d no longer fetchable", ErrOrdinalOutOfRange, pos)
		}
		return sample, nil
	}
	return d.ScanForward(ctx, n)
}

// ScanForward walks positions starting at start, classifying each, and
// returns the first valid sample found. It returns ErrOrdinalOutOfRange if
// the source is exhausted without finding one.
func (d *SafeDataset[T]) ScanForward(ctx context.Context, start int) (T, error) {
	var zero T
	for pos := start; ; pos++ {
		sample, valid, err := d.Get(ctx, pos)
		if errors.Is(err, ErrOutOfRange) {
			return zero, fmt.Errorf("%w: no valid sample at or after position %d", ErrOrdinalOutOfRange, start)
		}
		if err != nil {
			return zero, err
		}
		if valid {
			return sample, nil
		}
	}
}

// All iterates over the valid samples of the source in position order,
// classifying lazily as it goes. After a full iteration the index is built.
func (d *SafeDataset[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		for pos := 0; pos < d.inner.Len(); pos++ {
			sample, valid, err := d.Get(ctx, pos)
			if errors.Is(err, ErrOutOfRange) {
				return
			}
			if err != nil {
				yield(zero, err)
				return
			}
			if !valid {
				continue
			}
			if !yield(sample, nil) {
				return
			}
		}
	}
}

// BuildIndex classifies every position of the source once.
//
// With workers configured (WithBuildWorkers), fetches run in parallel, but each
// worker's verdict is funneled back through this goroutine and applied in
// position order, so the resulting classification order matches a
// sequential left-to-right build.
func (d *SafeDataset[T]) BuildIndex(ctx context.Context) error {
	n := d.inner.Len()

	if d.workers <= 1 {
		for pos := 0; pos < n; pos++ {
			if _, _, err := d.Get(ctx, pos); err != nil {
				d.logger.LogBuildIndex(ctx, d.NumExamined(), d.NumSafe(), err)
				return err
			}
		}
		d.logger.LogBuildIndex(ctx, d.NumExamined(), d.NumSafe(), nil)
		return nil
	}

	// Snapshot the unclassified positions up front. Only this goroutine
	// mutates the index below, so the snapshot stays accurate.
	d.mu.RLock()
	todo := make([]int, 0, n)
	for pos := 0; pos < n; pos++ {
		if !d.safeSet.Contains(uint32(pos)) && !d.unsafeSet.Contains(uint32(pos)) {
			todo = append(todo, pos)
		}
	}
	d.mu.RUnlock()
	if len(todo) == 0 {
		return nil
	}

	type result struct {
		pos    int
		sample T
		err    error
	}

	g, gctx := errgroup.WithContext(ctx)
	positions := make(chan int)
	results := make(chan result, d.workers)

	g.Go(func() error {
		defer close(positions)
		for _, pos := range todo {
			select {
			case positions <- pos:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < d.workers; w++ {
		g.Go(func() error {
			for pos := range positions {
				sample, err := d.rawFetch(gctx, pos)
				if err != nil && gctx.Err() != nil {
					return context.Cause(gctx)
				}
				select {
				case results <- result{pos: pos, sample: sample, err: err}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	var gerr error
	go func() {
		gerr = g.Wait()
		close(results)
	}()

	// Single-writer funnel: apply verdicts strictly in position order.
	pending := make(map[int]result, d.workers)
	next := 0
	for r := range results {
		pending[r.pos] = r
		for next < len(todo) {
			rr, ok := pending[todo[next]]
			if !ok {
				break
			}
			delete(pending, todo[next])
			d.classify(rr.pos, rr.sample, rr.err)
			d.logger.LogClassify(ctx, rr.pos, rr.err)
			next++
		}
	}
	if gerr != nil {
		d.logger.LogBuildIndex(ctx, d.NumExamined(), d.NumSafe(), gerr)
		return gerr
	}

	d.logger.LogBuildIndex(ctx, d.NumExamined(), d.NumSafe(), nil)
	return nil
}
