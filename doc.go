// Package nonechucks provides safe iteration and size-correct batching over
// unreliable sample sources.
//
// A sample source is anything positional: position in, sample out. Real
// sources misbehave for some positions: the fetch fails, the payload is
// corrupt, the object is missing. Nonechucks lets you iterate such a source
// in fixed-size batches without knowing ahead of time which positions are
// bad:
//
//   - SafeDataset wraps a source and classifies each position as safe or
//     unsafe the first time it is touched. Results are memoized and the
//     classification index is shared across passes.
//   - SafeSampler walks the source (or replays an upstream ordering),
//     skipping invalid positions, with a pluggable step rule.
//   - Loader assembles batches and compensates for skipped samples by
//     pulling further raw batches, so every delivered batch has exactly the
//     requested size except for a possible final short batch.
//
// # Quick Start
//
//	ds, err := nonechucks.NewSafeDataset(source)
//	if err != nil {
//	    panic(err)
//	}
//
//	loader, err := nonechucks.NewLoader(ds,
//	    nonechucks.WithBatchSize[Sample](32),
//	    nonechucks.WithWorkers[Sample](4),
//	)
//	if err != nil {
//	    panic(err)
//	}
//
//	for batch, err := range loader.All(ctx) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    process(batch)
//	}
//
// Individual bad samples never surface as errors: a pass only ends for
// genuine exhaustion or misconfiguration.
//
// # Batch Shapes
//
// Batches are shape-agnostic. The built-in shapes are SliceBatch (list-like),
// ColumnBatch (named columns), and MatrixBatch (one contiguous row-major
// block). Custom shapes implement the Batch interface; custom collation is a
// CollateFunc.
//
// # Remote Sources
//
// The store subpackages provide sample sources backed by local files,
// in-memory maps, Amazon S3, DynamoDB, and MinIO, where both the fetch and
// the decode can fail and are absorbed as invalid samples.
//
// # Persistence
//
// Classifying a large flaky corpus is expensive. SaveIndex and LoadIndex
// persist the classification state in a self-describing compressed format
// so it survives process restarts.
package nonechucks
