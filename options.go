package nonechucks

import (
	"log/slog"

	"golang.org/x/time/rate"
)

type datasetOptions struct {
	eagerEval bool
	workers   int
	logger    *Logger
	limiter   *rate.Limiter
}

// DatasetOption configures SafeDataset construction.
type DatasetOption func(*datasetOptions)

// WithEagerEval builds the validity index fully at construction by probing
// every position once, instead of classifying lazily during iteration.
func WithEagerEval() DatasetOption {
	return func(o *datasetOptions) {
		o.eagerEval = true
	}
}

// WithBuildWorkers sets the number of parallel fetch workers used by
// BuildIndex. Verdicts are still applied by a single coordinating
// goroutine, in position order. Values <= 1 build sequentially (default).
func WithBuildWorkers(workers int) DatasetOption {
	return func(o *datasetOptions) {
		o.workers = workers
	}
}

// WithDatasetLogger configures structured logging for classification and
// index builds. Pass nil to disable logging.
func WithDatasetLogger(logger *Logger) DatasetOption {
	return func(o *datasetOptions) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithDatasetLogLevel creates a text logger with the specified level and
// sets it. Convenience wrapper for WithDatasetLogger(NewTextLogger(level)).
func WithDatasetLogLevel(level slog.Level) DatasetOption {
	return func(o *datasetOptions) {
		o.logger = NewTextLogger(level)
	}
}

// WithRateLimit throttles fetches against the underlying source to at most
// perSec fetches per second with the given burst. Useful when the source is
// a remote store with request quotas.
func WithRateLimit(perSec float64, burst int) DatasetOption {
	return func(o *datasetOptions) {
		o.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
	}
}

type samplerOptions struct {
	order []int
	step  StepFunc
}

// SamplerOption configures SafeSampler construction.
type SamplerOption func(*samplerOptions)

// WithOrder supplies an upstream ordering: a fixed sequence of positions
// already decided by some other policy. The sampler replays it, skipping
// invalid positions. The sequence is materialized once, at construction.
func WithOrder(positions []int) SamplerOption {
	return func(o *samplerOptions) {
		order := make([]int, len(positions))
		copy(order, positions)
		o.order = order
	}
}

// WithStep sets the step rule that converts pass progress into the next
// raw index to try. Defaults to SequentialStep.
func WithStep(step StepFunc) SamplerOption {
	return func(o *samplerOptions) {
		if step == nil {
			step = SequentialStep
		}
		o.step = step
	}
}

type loaderOptions[T any] struct {
	batchSize int
	dropLast  bool
	workers   int
	collate   CollateFunc[T]
	sampler   *SafeSampler[T]
	logger    *Logger
}

// LoaderOption configures Loader construction.
type LoaderOption[T any] func(*loaderOptions[T])

// WithBatchSize sets the target size of delivered batches. Must be
// positive. Defaults to 1.
func WithBatchSize[T any](size int) LoaderOption[T] {
	return func(o *loaderOptions[T]) {
		o.batchSize = size
	}
}

// WithDropLast discards the final batch of a pass when it comes up short of
// the target size. Defaults to false: the final short batch is delivered.
func WithDropLast[T any](dropLast bool) LoaderOption[T] {
	return func(o *loaderOptions[T]) {
		o.dropLast = dropLast
	}
}

// WithWorkers dispatches sample fetches to a pool of workers. Results are
// re-sequenced before batching, so delivered batches preserve source order.
// Values <= 0 fetch synchronously (default).
func WithWorkers[T any](workers int) LoaderOption[T] {
	return func(o *loaderOptions[T]) {
		o.workers = workers
	}
}

// WithCollate sets the collation function that merges per-sample values
// into a Batch. Defaults to CollateSlice.
func WithCollate[T any](collate CollateFunc[T]) LoaderOption[T] {
	return func(o *loaderOptions[T]) {
		o.collate = collate
	}
}

// WithSampler drives the position stream with a SafeSampler instead of a
// plain left-to-right scan. The sampler must be built over the same
// SafeDataset as the loader.
func WithSampler[T any](sampler *SafeSampler[T]) LoaderOption[T] {
	return func(o *loaderOptions[T]) {
		o.sampler = sampler
	}
}

// WithLoaderLogger configures structured logging for batch delivery.
// Pass nil to disable logging.
func WithLoaderLogger[T any](logger *Logger) LoaderOption[T] {
	return func(o *loaderOptions[T]) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}
