package result

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarginalize(t *testing.T) {
	counts := Counts{"000": 10, "011": 5, "101": 3, "110": 2}

	tests := []struct {
		name    string
		indices []int
		pad     bool
		want    Counts
	}{
		{"bit zero", []int{0}, false, Counts{"0": 12, "1": 8}},
		{"bit two", []int{2}, false, Counts{"0": 15, "1": 5}},
		{"two bits", []int{2, 0}, false, Counts{"00": 10, "01": 5, "10": 2, "11": 3}},
		{"unsorted duplicates", []int{0, 2, 0}, false, Counts{"00": 10, "01": 5, "10": 2, "11": 3}},
		{"padded", []int{1}, true, Counts{"0": 13, "1": 7}},
		{"two high bits", []int{1, 2}, true, Counts{"00": 10, "01": 5, "10": 3, "11": 2}},
		{"all bits", []int{0, 1, 2}, true, counts},
		{"nil indices", nil, false, counts},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marginalize(counts, tt.indices, tt.pad)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMarginalizePadsMissingOutcomes(t *testing.T) {
	got, err := Marginalize(Counts{"100": 4}, []int{0, 1}, true)
	require.NoError(t, err)
	assert.Equal(t, Counts{"00": 4, "01": 0, "10": 0, "11": 0}, got)

	got, err = Marginalize(Counts{"100": 4}, []int{0, 1}, false)
	require.NoError(t, err)
	assert.Equal(t, Counts{"00": 4}, got)
}

func TestMarginalizeRegisterSpacing(t *testing.T) {
	got, err := Marginalize(Counts{"01 1": 4, "10 0": 6}, []int{1}, false)
	require.NoError(t, err)
	assert.Equal(t, Counts{"1": 4, "0": 6}, got)

	got, err = Marginalize(Counts{"01 1": 4}, nil, false)
	require.NoError(t, err)
	assert.Equal(t, Counts{"011": 4}, got)
}

func TestMarginalizeErrors(t *testing.T) {
	_, err := Marginalize(Counts{"01": 1}, []int{2}, false)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = Marginalize(Counts{"01": 1, "011": 2}, []int{0}, false)
	assert.ErrorIs(t, err, ErrMalformedKey)

	_, err = Marginalize(Counts{"0x": 1}, []int{0}, false)
	assert.ErrorIs(t, err, ErrMalformedKey)
}

func TestRelabel(t *testing.T) {
	// Logical 0 sits on physical 2, logical 1 on 0, logical 2 on 1.
	got, err := Relabel(Counts{"100": 7, "001": 3}, []int{2, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, Counts{"001": 7, "010": 3}, got)

	same, err := Relabel(Counts{"10": 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, Counts{"10": 1}, same)

	_, err = Relabel(Counts{"10": 1}, []int{0})
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}
