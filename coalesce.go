package nonechucks

import (
	"context"
	"errors"
)

// pullFunc returns the next raw batch of a pass: up to batchSize samples
// with invalid entries already stripped. A nil batch with a nil error is
// the explicit empty signal for a raw batch whose samples were all invalid.
// ErrExhausted signals the clean end of the raw stream; the transport never
// drops partial final batches itself.
type pullFunc func(ctx context.Context) (Batch, error)

// coalescer turns a stream of possibly-short raw batches into logical
// batches of exactly batchSize samples, except for a possible final short
// batch. It is pass-scoped: the pending-overflow holding area starts empty
// and any leftover from an abandoned pass dies with the coalescer.
//
// Implemented as an explicit loop over three states (normal, coalescing,
// done) rather than recursion, so stack depth stays bounded. The filling
// flag is the re-entrancy guard: a pull issued while already coalescing is
// served as a plain pull and never starts a nested fill.
type coalescer struct {
	pull      pullFunc
	batchSize int
	dropLast  bool

	filling  bool
	overflow Batch
	done     bool
}

// take returns the pending overflow if any, otherwise pulls the next raw
// batch. Overflow is reinserted ahead of later pulls so sample order across
// the pass is preserved end-to-end.
func (c *coalescer) take(ctx context.Context) (Batch, error) {
	if c.overflow != nil {
		b := c.overflow
		c.overflow = nil
		return b, nil
	}
	return c.pull(ctx)
}

// next delivers the next logical batch, or ErrExhausted when the pass is
// over.
func (c *coalescer) next(ctx context.Context) (Batch, error) {
	if c.done {
		return nil, ErrExhausted
	}

	if c.filling {
		// Re-entrant pull: behave as a plain pull, no nested filling.
		return c.take(ctx)
	}

	acc, err := c.take(ctx)
	if errors.Is(err, ErrExhausted) {
		c.done = true
		return nil, ErrExhausted
	}
	if err != nil {
		return nil, err
	}

	c.filling = true
	defer func() { c.filling = false }()

	for batchLen(acc) < c.batchSize {
		nb, err := c.take(ctx)
		if errors.Is(err, ErrExhausted) {
			c.done = true
			if batchLen(acc) == 0 {
				return nil, ErrExhausted
			}
			if c.dropLast && batchLen(acc) < c.batchSize {
				return nil, ErrExhausted
			}
			return acc, nil
		}
		if err != nil {
			return nil, err
		}
		if batchLen(nb) == 0 {
			// All samples of the raw batch were invalid. It consumes no
			// capacity and does not end the pass.
			continue
		}

		remaining := c.batchSize - batchLen(acc)
		if nb.Len() > remaining {
			head := nb.Slice(0, remaining)
			c.overflow = nb.Slice(remaining, nb.Len())
			nb = head
		}
		acc, err = concatBatches(acc, nb)
		if err != nil {
			return nil, err
		}
	}

	return acc, nil
}
