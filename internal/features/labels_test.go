package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vectorsWithCloses(closes ...float64) []Vector {
	out := make([]Vector, len(closes))
	for i, c := range closes {
		out[i] = Vector{OpenTime: int64(i), Close: c}
	}
	return out
}

// TestLabelsClassesAndAlignment checks the three classes against
// hand-computed forward returns and the trailing drop.
func TestLabelsClassesAndAlignment(t *testing.T) {
	// t=0: 101/100-1 = +1%   -> +1
	// t=1: 100/100-1 =  0%   ->  0
	// t=2:  98/100-1 = -2%   -> -1
	vectors := vectorsWithCloses(100, 100, 100, 101, 100, 98)

	labels := Labels(vectors, 3, 0.002)

	require.Len(t, labels, 3, "the trailing horizon rows have no forward close")
	assert.Equal(t, []int{1, 0, -1}, labels)
}

// TestLabelsThresholdIsExclusive verifies a forward return exactly at the
// threshold stays neutral. The closes are chosen so the return is exactly
// representable in a float64, keeping the boundary comparison honest.
func TestLabelsThresholdIsExclusive(t *testing.T) {
	vectors := vectorsWithCloses(100, 150, 60)

	labels := Labels(vectors, 1, 0.5)

	require.Len(t, labels, 2)
	assert.Equal(t, 0, labels[0], "+50% is not above the +50% threshold")
	assert.Equal(t, -1, labels[1], "60/150 is well below -50%")
}

// TestLabelsDegenerateInputs covers the no-output cases.
func TestLabelsDegenerateInputs(t *testing.T) {
	vectors := vectorsWithCloses(100, 101, 102)

	assert.Nil(t, Labels(vectors, 0, 0.002), "non-positive horizon")
	assert.Nil(t, Labels(vectors, 3, 0.002), "series no longer than the horizon")
	assert.Nil(t, Labels(nil, 3, 0.002), "empty series")
}
