package Gotrends

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeReexpandsSparseVerdicts(t *testing.T) {
	mask := NewReferenceMask([]float64{1, 0, 1, 1, 0})

	out, err := Compose(mask, []bool{true, false, true})
	require.NoError(t, err)
	assert.Equal(t, OutputMask{1, 0, 0, 1, 0}, out)
	assert.Equal(t, 2, out.Sum())
	assert.True(t, out.Any())
}

func TestComposeLengthMismatch(t *testing.T) {
	mask := NewReferenceMask([]float64{1, 0, 1, 1, 0})

	for _, verdicts := range [][]bool{{true, true}, {true, true, true, true}, nil} {
		_, err := Compose(mask, verdicts)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrLengthMismatch))
	}
}

func TestComposeEmptyMask(t *testing.T) {
	mask := NewReferenceMask(make([]float64, 4))
	assert.False(t, mask.Any())

	out, err := Compose(mask, nil)
	require.NoError(t, err)
	assert.Equal(t, OutputMask{0, 0, 0, 0}, out)
	assert.False(t, out.Any())
}

func TestReferenceMaskPositions(t *testing.T) {
	mask := NewReferenceMask([]float64{0, 3, -1, 0.5, 0})
	assert.Equal(t, []int{1, 3}, mask.Positions())
	assert.Equal(t, 2, mask.Count())
}

func TestSelectKeepsRelativeOrder(t *testing.T) {
	mask := ReferenceMask{false, true, false, true, true}

	got, err := Select(mask, []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "d", "e"}, got)

	_, err = Select(mask, []string{"a"})
	assert.True(t, errors.Is(err, ErrLengthMismatch))
}

func TestSelectThenComposeRoundTrip(t *testing.T) {
	values := []float64{0, 2, 0, 0, 7, 1, 0, 9}
	mask := NewReferenceMask(values)

	selected, err := Select(mask, values)
	require.NoError(t, err)

	verdicts := make([]bool, len(selected))
	for i, v := range selected {
		verdicts[i] = v > 1
	}

	out, err := Compose(mask, verdicts)
	require.NoError(t, err)
	assert.Equal(t, OutputMask{0, 1, 0, 0, 1, 0, 0, 1}, out)
}
