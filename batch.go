package nonechucks

import "fmt"

// Batch is a collated group of samples in a caller-chosen shape.
//
// The coalescing machinery only ever measures, slices, and concatenates
// batches. It never looks inside, so callers are free to represent a batch
// as a plain slice, as named columns, or as one contiguous numeric block.
type Batch interface {
	// Len returns the number of samples in the batch.
	Len() int
	// Slice returns the samples in [i, j). The result may share memory
	// with the receiver.
	Slice(i, j int) Batch
	// Concat appends other to the receiver and returns the combined batch.
	// Both batches must have the same shape.
	Concat(other Batch) (Batch, error)
}

// CollateFunc merges per-sample values into a batch.
//
// A CollateFunc is never invoked with zero samples: a raw batch reduced to
// nothing by invalid-sample filtering is passed through the pipeline as an
// explicit empty signal instead.
type CollateFunc[T any] func(samples []T) (Batch, error)

// CollateSlice is the default collation: it wraps the samples in a
// SliceBatch without copying.
func CollateSlice[T any](samples []T) (Batch, error) {
	return SliceBatch[T](samples), nil
}

// CollateVectors stacks fixed-width vectors into a contiguous MatrixBatch.
// All samples must have the same width.
func CollateVectors(samples [][]float32) (Batch, error) {
	cols := len(samples[0])
	data := make([]float32, 0, len(samples)*cols)
	for i, s := range samples {
		if len(s) != cols {
			return nil, &ErrShapeMismatch{
				Left:  fmt.Sprintf("vector of width %d", cols),
				Right: fmt.Sprintf("vector of width %d at sample %d", len(s), i),
			}
		}
		data = append(data, s...)
	}
	return MatrixBatch{Data: data, Cols: cols}, nil
}

// SliceBatch is the list-like batch shape: one entry per sample.
type SliceBatch[T any] []T

// Len returns the number of samples in the batch.
func (b SliceBatch[T]) Len() int { return len(b) }

// Slice returns the samples in [i, j).
func (b SliceBatch[T]) Slice(i, j int) Batch { return b[i:j:j] }

// Concat appends another SliceBatch of the same element type.
func (b SliceBatch[T]) Concat(other Batch) (Batch, error) {
	o, ok := other.(SliceBatch[T])
	if !ok {
		return nil, &ErrShapeMismatch{Left: shapeName(b), Right: shapeName(other)}
	}
	out := make(SliceBatch[T], 0, len(b)+len(o))
	out = append(out, b...)
	out = append(out, o...)
	return out, nil
}

// ColumnBatch is the mapping-like batch shape: samples are split into named
// columns of equal length.
type ColumnBatch map[string]Batch

// Len returns the number of samples in the batch (the length of any column).
func (b ColumnBatch) Len() int {
	for _, col := range b {
		return col.Len()
	}
	return 0
}

// Slice slices every column to [i, j).
func (b ColumnBatch) Slice(i, j int) Batch {
	out := make(ColumnBatch, len(b))
	for key, col := range b {
		out[key] = col.Slice(i, j)
	}
	return out
}

// Concat merges another ColumnBatch column by column. Both batches must have
// the same column names.
func (b ColumnBatch) Concat(other Batch) (Batch, error) {
	o, ok := other.(ColumnBatch)
	if !ok {
		return nil, &ErrShapeMismatch{Left: shapeName(b), Right: shapeName(other)}
	}
	if len(b) != len(o) {
		return nil, &ErrShapeMismatch{
			Left:  fmt.Sprintf("%d columns", len(b)),
			Right: fmt.Sprintf("%d columns", len(o)),
		}
	}
	out := make(ColumnBatch, len(b))
	for key, col := range b {
		ocol, found := o[key]
		if !found {
			return nil, &ErrShapeMismatch{Left: "column " + key, Right: "missing column " + key}
		}
		merged, err := col.Concat(ocol)
		if err != nil {
			return nil, err
		}
		out[key] = merged
	}
	return out, nil
}

// MatrixBatch is the tensor-like batch shape: a contiguous row-major block
// of float32 values, one row per sample.
type MatrixBatch struct {
	Data []float32
	Cols int
}

// Len returns the number of rows (samples) in the batch.
func (b MatrixBatch) Len() int {
	if b.Cols == 0 {
		return 0
	}
	return len(b.Data) / b.Cols
}

// Slice returns the rows in [i, j). The result shares memory with the
// receiver.
func (b MatrixBatch) Slice(i, j int) Batch {
	return MatrixBatch{Data: b.Data[i*b.Cols : j*b.Cols : j*b.Cols], Cols: b.Cols}
}

// Concat appends another MatrixBatch of the same width.
func (b MatrixBatch) Concat(other Batch) (Batch, error) {
	o, ok := other.(MatrixBatch)
	if !ok {
		return nil, &ErrShapeMismatch{Left: shapeName(b), Right: shapeName(other)}
	}
	if b.Cols != o.Cols {
		return nil, &ErrShapeMismatch{
			Left:  fmt.Sprintf("matrix of width %d", b.Cols),
			Right: fmt.Sprintf("matrix of width %d", o.Cols),
		}
	}
	data := make([]float32, 0, len(b.Data)+len(o.Data))
	data = append(data, b.Data...)
	data = append(data, o.Data...)
	return MatrixBatch{Data: data, Cols: b.Cols}, nil
}

func shapeName(b Batch) string {
	return fmt.Sprintf("%T", b)
}

// concatBatches concatenates two batches, treating nil as the empty batch.
func concatBatches(a, b Batch) (Batch, error) {
	if a == nil || a.Len() == 0 {
		return b, nil
	}
	if b == nil || b.Len() == 0 {
		return a, nil
	}
	return a.Concat(b)
}

func batchLen(b Batch) int {
	if b == nil {
		return 0
	}
	return b.Len()
}
