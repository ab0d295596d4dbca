package nonechucks

import (
	"context"
	"errors"
	"iter"
)

// StepFunc converts pass progress into the next raw index to try.
//
// numValid is how many valid samples the pass has found so far, numExamined
// how many positions it has examined (valid or not). Returning an index
// outside the source (or outside the upstream ordering, when one is set)
// ends the pass.
type StepFunc func(numValid, numExamined int) int

// SequentialStep is the default step rule: a plain left-to-right scan.
// Combined with skip-on-invalid it yields every valid position in source
// order.
func SequentialStep(numValid, numExamined int) int { return numExamined }

// FirstAndLastStep returns a step rule that tries the first position, then
// the last, then ends the pass. length is the length of the source (or of
// the upstream ordering, when one is set).
func FirstAndLastStep(length int) StepFunc {
	return func(numValid, numExamined int) int {
		switch numExamined {
		case 0:
			return 0
		case 1:
			return length - 1
		default:
			return length
		}
	}
}

// SafeSampler produces a sequence of source positions to visit, skipping
// positions its SafeDataset classifies as invalid.
//
// By default it scans the source directly. With WithOrder it instead
// replays an upstream ordering: the step rule's raw index is mapped through
// the materialized order before classification. Either way, the pass ends
// when the chosen index runs off the end.
type SafeSampler[T any] struct {
	dataset *SafeDataset[T]
	order   []int
	step    StepFunc
}

// NewSafeSampler creates a sampler over the valid positions of dataset.
func NewSafeSampler[T any](dataset *SafeDataset[T], opts ...SamplerOption) (*SafeSampler[T], error) {
	if dataset == nil {
		return nil, ErrNilDataset
	}

	o := samplerOptions{
		step: SequentialStep,
	}
	for _, fn := range opts {
		fn(&o)
	}

	return &SafeSampler[T]{
		dataset: dataset,
		order:   o.order,
		step:    o.step,
	}, nil
}

// Iter starts a new pass. Counters are pass-scoped and start at zero.
func (s *SafeSampler[T]) Iter() *Pass[T] {
	return &Pass[T]{sampler: s}
}

// All is a convenience that runs a full pass as an iterator. Iteration
// stops silently at exhaustion; any other error is yielded once.
func (s *SafeSampler[T]) All(ctx context.Context) iter.Seq2[int, error] {
	return s.Iter().All(ctx)
}

// Pass is one iteration over the valid positions of a source.
type Pass[T any] struct {
	sampler     *SafeSampler[T]
	numValid    int
	numExamined int
	done        bool
}

// NumValid returns how many valid positions the pass has yielded so far.
func (p *Pass[T]) NumValid() int { return p.numValid }

// NumExamined returns how many positions the pass has examined so far.
func (p *Pass[T]) NumExamined() int { return p.numExamined }

// Next returns the next valid position of the pass.
//
// Invalid positions are classified, counted as examined, and skipped
// without returning. When the step rule (or the upstream ordering) runs off
// the end of the source, Next returns ErrExhausted and the pass is over.
func (p *Pass[T]) Next(ctx context.Context) (int, error) {
	if p.done {
		return 0, ErrExhausted
	}

	for {
		raw := p.sampler.step(p.numValid, p.numExamined)

		pos := raw
		if p.sampler.order != nil {
			if raw < 0 || raw >= len(p.sampler.order) {
				p.done = true
				return 0, ErrExhausted
			}
			pos = p.sampler.order[raw]
		}

		_, valid, err := p.sampler.dataset.Get(ctx, pos)
		if err != nil {
			if errors.Is(err, ErrOutOfRange) {
				// The terminal attempt does not count as examined.
				p.done = true
				return 0, ErrExhausted
			}
			return 0, err
		}
		p.numExamined++
		if valid {
			p.numValid++
			return pos, nil
		}
	}
}

// All drains the rest of the pass as an iterator.
func (p *Pass[T]) All(ctx context.Context) iter.Seq2[int, error] {
	return func(yield func(int, error) bool) {
		for {
			pos, err := p.Next(ctx)
			if errors.Is(err, ErrExhausted) {
				return
			}
			if !yield(pos, err) {
				return
			}
			if err != nil {
				return
			}
		}
	}
}
