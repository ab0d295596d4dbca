package nonechucks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceBatch(t *testing.T) {
	b := SliceBatch[string]{"a", "b", "c", "d"}
	assert.Equal(t, 4, b.Len())
	assert.Equal(t, SliceBatch[string]{"b", "c"}, b.Slice(1, 3))

	merged, err := b.Slice(0, 2).Concat(b.Slice(2, 4))
	require.NoError(t, err)
	assert.Equal(t, SliceBatch[string]{"a", "b", "c", "d"}, merged)
}

func TestSliceBatch_ConcatShapeMismatch(t *testing.T) {
	b := SliceBatch[string]{"a"}
	_, err := b.Concat(SliceBatch[int]{1})
	var sm *ErrShapeMismatch
	assert.ErrorAs(t, err, &sm)
}

func TestColumnBatch(t *testing.T) {
	b := ColumnBatch{
		"idx":   SliceBatch[int]{0, 1, 2},
		"label": SliceBatch[string]{"x", "y", "z"},
	}
	assert.Equal(t, 3, b.Len())

	sliced, ok := b.Slice(1, 3).(ColumnBatch)
	require.True(t, ok)
	assert.Equal(t, SliceBatch[int]{1, 2}, sliced["idx"])
	assert.Equal(t, SliceBatch[string]{"y", "z"}, sliced["label"])

	merged, err := b.Slice(0, 1).Concat(b.Slice(1, 3))
	require.NoError(t, err)
	assert.Equal(t, 3, merged.Len())
}

func TestColumnBatch_ConcatMissingColumn(t *testing.T) {
	a := ColumnBatch{"idx": SliceBatch[int]{0}}
	b := ColumnBatch{"other": SliceBatch[int]{1}}
	_, err := a.Concat(b)
	var sm *ErrShapeMismatch
	assert.ErrorAs(t, err, &sm)
}

func TestMatrixBatch(t *testing.T) {
	b := MatrixBatch{Data: []float32{0, 0, 1, 1, 2, 2}, Cols: 2}
	assert.Equal(t, 3, b.Len())

	sliced, ok := b.Slice(1, 3).(MatrixBatch)
	require.True(t, ok)
	assert.Equal(t, []float32{1, 1, 2, 2}, sliced.Data)

	merged, err := b.Slice(0, 1).Concat(b.Slice(1, 3))
	require.NoError(t, err)
	assert.Equal(t, b, merged)
}

func TestMatrixBatch_ConcatWidthMismatch(t *testing.T) {
	a := MatrixBatch{Data: []float32{1, 2}, Cols: 2}
	b := MatrixBatch{Data: []float32{1, 2, 3}, Cols: 3}
	_, err := a.Concat(b)
	var sm *ErrShapeMismatch
	assert.ErrorAs(t, err, &sm)
}

func TestCollateVectors(t *testing.T) {
	b, err := CollateVectors([][]float32{{1, 2}, {3, 4}, {5, 6}})
	require.NoError(t, err)
	m, ok := b.(MatrixBatch)
	require.True(t, ok)
	assert.Equal(t, 3, m.Len())
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, m.Data)
}

func TestCollateVectors_UnevenWidth(t *testing.T) {
	_, err := CollateVectors([][]float32{{1, 2}, {3}})
	var sm *ErrShapeMismatch
	assert.ErrorAs(t, err, &sm)
}
