package nonechucks

import (
	"context"
	"errors"
	"testing"

	"github.com/msamogh/nonechucks/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeSampler_SkipsInvalidPositions(t *testing.T) {
	ctx := context.Background()
	ds, err := NewSafeDataset[int](testutil.NewIntDataset(6, 2))
	require.NoError(t, err)
	s, err := NewSafeSampler(ds)
	require.NoError(t, err)

	pass := s.Iter()
	var got []int
	for {
		pos, err := pass.Next(ctx)
		if errors.Is(err, ErrExhausted) {
			break
		}
		require.NoError(t, err)
		got = append(got, pos)
	}

	assert.Equal(t, []int{0, 1, 3, 4, 5}, got)
	assert.Equal(t, 5, pass.NumValid())
	assert.Equal(t, 6, pass.NumExamined())

	// The pass stays exhausted.
	_, err = pass.Next(ctx)
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestSafeSampler_PassScopedCounters(t *testing.T) {
	ctx := context.Background()
	ds, err := NewSafeDataset[int](testutil.NewIntDataset(4, 1))
	require.NoError(t, err)
	s, err := NewSafeSampler(ds)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		pass := s.Iter()
		count := 0
		for _, err := range pass.All(ctx) {
			require.NoError(t, err)
			count++
		}
		assert.Equal(t, 3, count)
		assert.Equal(t, 3, pass.NumValid())
		assert.Equal(t, 4, pass.NumExamined())
	}
}

func TestSafeSampler_UpstreamOrder(t *testing.T) {
	ctx := context.Background()
	ds, err := NewSafeDataset[int](testutil.NewIntDataset(6, 2))
	require.NoError(t, err)

	// Replays a reversed ordering; the invalid position is skipped in
	// replay order and exhaustion comes from the ordering's end.
	s, err := NewSafeSampler(ds, WithOrder([]int{5, 4, 3, 2, 1, 0}))
	require.NoError(t, err)

	var got []int
	for pos, err := range s.All(ctx) {
		require.NoError(t, err)
		got = append(got, pos)
	}
	assert.Equal(t, []int{5, 4, 3, 1, 0}, got)
}

func TestSafeSampler_OrderShorterThanSource(t *testing.T) {
	ctx := context.Background()
	ds, err := NewSafeDataset[int](testutil.NewIntDataset(10))
	require.NoError(t, err)
	s, err := NewSafeSampler(ds, WithOrder([]int{7, 3}))
	require.NoError(t, err)

	var got []int
	for pos, err := range s.All(ctx) {
		require.NoError(t, err)
		got = append(got, pos)
	}
	assert.Equal(t, []int{7, 3}, got)
}

func TestSafeSampler_FirstAndLastStep(t *testing.T) {
	ctx := context.Background()
	ds, err := NewSafeDataset[int](testutil.NewIntDataset(10))
	require.NoError(t, err)
	s, err := NewSafeSampler(ds, WithStep(FirstAndLastStep(ds.Len())))
	require.NoError(t, err)

	var got []int
	for pos, err := range s.All(ctx) {
		require.NoError(t, err)
		got = append(got, pos)
	}
	assert.Equal(t, []int{0, 9}, got)
}

func TestSafeSampler_CustomStepSeesProgress(t *testing.T) {
	ctx := context.Background()
	ds, err := NewSafeDataset[int](testutil.NewIntDataset(8, 0, 1))
	require.NoError(t, err)

	// Record the progress the step rule observes.
	var steps [][2]int
	s, err := NewSafeSampler(ds, WithStep(func(numValid, numExamined int) int {
		steps = append(steps, [2]int{numValid, numExamined})
		return numExamined
	}))
	require.NoError(t, err)

	for _, err := range s.All(ctx) {
		require.NoError(t, err)
	}

	// The first two positions are invalid, so numValid lags numExamined
	// by two from the third step on.
	require.GreaterOrEqual(t, len(steps), 3)
	assert.Equal(t, [2]int{0, 0}, steps[0])
	assert.Equal(t, [2]int{0, 1}, steps[1])
	assert.Equal(t, [2]int{0, 2}, steps[2])
	assert.Equal(t, [2]int{1, 3}, steps[3])
}

func TestSafeSampler_NilDataset(t *testing.T) {
	_, err := NewSafeSampler[int](nil)
	assert.ErrorIs(t, err, ErrNilDataset)
}
