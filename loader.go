package nonechucks

import (
	"context"
	"errors"
	"iter"

	"github.com/msamogh/nonechucks/internal/reorder"
	"golang.org/x/sync/errgroup"
)

// Loader iterates a SafeDataset in fixed-size batches, compensating for
// invalid samples: every delivered batch has exactly the configured size,
// except for a possible final short batch (which WithDropLast discards).
//
// By default positions are visited left to right. With WithSampler the
// position stream is driven by a SafeSampler instead. With WithWorkers
// sample fetches are dispatched to a pool of workers and re-sequenced, so
// batch contents preserve source order either way.
type Loader[T any] struct {
	dataset   *SafeDataset[T]
	sampler   *SafeSampler[T]
	collate   CollateFunc[T]
	batchSize int
	dropLast  bool
	workers   int
	logger    *Logger
}

// NewLoader creates a Loader over dataset.
func NewLoader[T any](dataset *SafeDataset[T], opts ...LoaderOption[T]) (*Loader[T], error) {
	if dataset == nil {
		return nil, ErrNilDataset
	}

	o := loaderOptions[T]{
		batchSize: 1,
		collate:   CollateSlice[T],
		logger:    NoopLogger(),
	}
	for _, fn := range opts {
		fn(&o)
	}

	if o.batchSize <= 0 {
		return nil, ErrInvalidBatchSize
	}
	if o.collate == nil {
		return nil, ErrNilCollate
	}
	if o.sampler != nil && o.sampler.dataset != dataset {
		return nil, errors.New("sampler must be built over the same dataset")
	}

	return &Loader[T]{
		dataset:   dataset,
		sampler:   o.sampler,
		collate:   o.collate,
		batchSize: o.batchSize,
		dropLast:  o.dropLast,
		workers:   o.workers,
		logger:    o.logger,
	}, nil
}

// BatchSize returns the configured target batch size.
func (l *Loader[T]) BatchSize() int { return l.batchSize }

// Iter starts a new pass. The pending-overflow holding area and all
// counters are pass-scoped and start empty.
//
// With workers configured, the fetch pool is launched by the first Next
// call and stays bound to that call's context for the rest of the pass.
// Cancelling a later call's context interrupts that delivery only; the
// pool keeps running until the pass is exhausted or Closed.
//
// Callers that abandon a pass early should Close it to release the fetch
// workers; abandoning a pass never corrupts the validity index.
func (l *Loader[T]) Iter() *LoaderPass[T] {
	var src rawSource[T]
	if l.workers > 0 {
		src = newParallelSource(l)
	} else {
		src = newSyncSource(l)
	}
	return &LoaderPass[T]{
		loader: l,
		src:    src,
		co: &coalescer{
			pull:      src.pull,
			batchSize: l.batchSize,
			dropLast:  l.dropLast,
		},
	}
}

// All runs a full pass as an iterator. Workers are released when the
// iterator is dropped. Iteration stops silently at exhaustion; any other
// error is yielded once.
func (l *Loader[T]) All(ctx context.Context) iter.Seq2[Batch, error] {
	return func(yield func(Batch, error) bool) {
		pass := l.Iter()
		defer pass.Close()
		for {
			b, err := pass.Next(ctx)
			if errors.Is(err, ErrExhausted) {
				return
			}
			if !yield(b, err) {
				return
			}
			if err != nil {
				return
			}
		}
	}
}

// LoaderPass is one batched iteration over a source.
type LoaderPass[T any] struct {
	loader  *Loader[T]
	src     rawSource[T]
	co      *coalescer
	batches int
}

// Next delivers the next logical batch, or ErrExhausted when the pass is
// over. Individual invalid samples never surface here; only genuine
// exhaustion or a fatal fetch error does.
func (p *LoaderPass[T]) Next(ctx context.Context) (Batch, error) {
	b, err := p.co.next(ctx)
	if err != nil {
		if errors.Is(err, ErrExhausted) {
			p.loader.logger.LogPassEnd(ctx, p.batches, p.loader.dropLast)
			p.src.stop()
		}
		return nil, err
	}
	p.batches++
	p.loader.logger.LogBatch(ctx, b.Len(), p.batches)
	return b, nil
}

// Close releases the fetch workers of an abandoned pass. It is idempotent
// and safe to call on exhausted passes.
func (p *LoaderPass[T]) Close() {
	p.src.stop()
}

// rawSource is the per-pass worker-retrieval transport: it produces raw
// batches of at most batchSize samples with invalid entries stripped. It
// always keeps partial final batches; drop-last is decided above it, in the
// coalescer, because only after invalid filtering is the true picture
// known.
type rawSource[T any] interface {
	pull(ctx context.Context) (Batch, error)
	stop()
}

// syncSource fetches samples one at a time in the coordinating goroutine.
type syncSource[T any] struct {
	loader    *Loader[T]
	pass      *Pass[T] // non-nil when a sampler drives the position stream
	nextPos   int
	exhausted bool
}

func newSyncSource[T any](l *Loader[T]) *syncSource[T] {
	s := &syncSource[T]{loader: l}
	if l.sampler != nil {
		s.pass = l.sampler.Iter()
	}
	return s
}

func (s *syncSource[T]) pull(ctx context.Context) (Batch, error) {
	if s.exhausted {
		return nil, ErrExhausted
	}

	l := s.loader
	samples := make([]T, 0, l.batchSize)
	consumed := 0

	if s.pass != nil {
		for consumed < l.batchSize {
			pos, err := s.pass.Next(ctx)
			if errors.Is(err, ErrExhausted) {
				s.exhausted = true
				break
			}
			if err != nil {
				return nil, err
			}
			sample, valid, err := l.dataset.Get(ctx, pos)
			if err != nil {
				return nil, err
			}
			consumed++
			if valid {
				samples = append(samples, sample)
			}
		}
	} else {
		n := l.dataset.Len()
		for consumed < l.batchSize && s.nextPos < n {
			sample, valid, err := l.dataset.Get(ctx, s.nextPos)
			if err != nil {
				return nil, err
			}
			s.nextPos++
			consumed++
			if valid {
				samples = append(samples, sample)
			}
		}
		if s.nextPos >= n {
			s.exhausted = true
		}
	}

	if consumed == 0 {
		return nil, ErrExhausted
	}
	if len(samples) == 0 {
		// Every sample of this raw batch was invalid.
		return nil, nil
	}
	return l.collate(samples)
}

func (s *syncSource[T]) stop() {}

// fetchResult is one worker verdict, tagged with its dispatch sequence
// number for re-sequencing.
type fetchResult[T any] struct {
	seq        int
	pos        int
	sample     T
	valid      bool
	classified bool
	err        error
}

// parallelSource dispatches fetches to a pool of workers. Results are
// re-sequenced by dispatch order before filtering, and classification
// verdicts are applied only by the pulling goroutine, keeping the validity
// index under single-coordinator discipline.
type parallelSource[T any] struct {
	loader *Loader[T]

	started   bool
	cancel    context.CancelFunc
	results   chan fetchResult[T]
	buf       *reorder.Buffer[fetchResult[T]]
	done      chan struct{}
	werr      error
	exhausted bool
}

func newParallelSource[T any](l *Loader[T]) *parallelSource[T] {
	return &parallelSource[T]{
		loader: l,
		buf:    reorder.New[fetchResult[T]](),
	}
}

// start launches the dispatcher and fetch workers. The pool inherits the
// first pull's ctx and lives until the pass is exhausted, that ctx is
// canceled, or stop is called; later pulls cannot stop it.
func (s *parallelSource[T]) start(ctx context.Context) {
	l := s.loader

	gctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.results = make(chan fetchResult[T], l.workers)
	s.done = make(chan struct{})

	type job struct {
		seq int
		pos int
	}
	jobs := make(chan job)

	g, gctx := errgroup.WithContext(gctx)

	g.Go(func() error {
		defer close(jobs)
		seq := 0
		if l.sampler != nil {
			// The sampler classifies as it advances, so it runs in this
			// single dispatcher goroutine; workers then serve the already
			// memoized samples.
			pass := l.sampler.Iter()
			for {
				pos, err := pass.Next(gctx)
				if errors.Is(err, ErrExhausted) {
					return nil
				}
				if err != nil {
					return err
				}
				select {
				case jobs <- job{seq: seq, pos: pos}:
					seq++
				case <-gctx.Done():
					return gctx.Err()
				}
			}
		}
		for pos := 0; pos < l.dataset.Len(); pos++ {
			select {
			case jobs <- job{seq: seq, pos: pos}:
				seq++
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < l.workers; w++ {
		g.Go(func() error {
			for j := range jobs {
				r := fetchResult[T]{seq: j.seq, pos: j.pos}
				if sample, valid, found := l.dataset.cached(j.pos); found {
					r.sample, r.valid, r.classified = sample, valid, true
				} else {
					sample, err := l.dataset.rawFetch(gctx, j.pos)
					if err != nil && gctx.Err() != nil {
						return context.Cause(gctx)
					}
					r.sample, r.err = sample, err
				}
				select {
				case s.results <- r:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	go func() {
		s.werr = g.Wait()
		close(s.results)
		close(s.done)
	}()

	s.started = true
}

// nextInOrder returns the next result in dispatch order, buffering any that
// arrive early.
func (s *parallelSource[T]) nextInOrder(ctx context.Context) (fetchResult[T], bool, error) {
	var zero fetchResult[T]
	for {
		if r, ok := s.buf.Pop(); ok {
			return r, true, nil
		}
		select {
		case r, ok := <-s.results:
			if !ok {
				// The pool is gone. If the pulling context was cancelled,
				// that is why: report the cancellation, not exhaustion.
				// Only the cancel stop() itself issues is suppressed.
				if ctx.Err() != nil {
					return zero, false, context.Cause(ctx)
				}
				if s.werr != nil && !errors.Is(s.werr, context.Canceled) {
					return zero, false, s.werr
				}
				return zero, false, nil
			}
			s.buf.Push(r.seq, r)
		case <-ctx.Done():
			return zero, false, context.Cause(ctx)
		}
	}
}

func (s *parallelSource[T]) pull(ctx context.Context) (Batch, error) {
	if s.exhausted {
		return nil, ErrExhausted
	}
	if !s.started {
		s.start(ctx)
	}

	l := s.loader
	samples := make([]T, 0, l.batchSize)
	consumed := 0

	for consumed < l.batchSize {
		r, ok, err := s.nextInOrder(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			s.exhausted = true
			break
		}
		consumed++

		sample, valid := r.sample, r.valid
		if !r.classified {
			sample, valid = l.dataset.classify(r.pos, r.sample, r.err)
			l.loggerClassify(ctx, r.pos, r.err)
		}
		if valid {
			samples = append(samples, sample)
		}
	}

	if consumed == 0 {
		return nil, ErrExhausted
	}
	if len(samples) == 0 {
		return nil, nil
	}
	return l.collate(samples)
}

func (l *Loader[T]) loggerClassify(ctx context.Context, pos int, err error) {
	l.dataset.logger.LogClassify(ctx, pos, err)
}

func (s *parallelSource[T]) stop() {
	if !s.started {
		return
	}
	s.cancel()
	// Drain so blocked workers can exit before done closes.
	for range s.results {
	}
	<-s.done
}
