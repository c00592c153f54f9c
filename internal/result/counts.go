// Package result post-processes measurement histograms. Keys are bit
// strings with clbit 0 as the rightmost character; spaces between
// registers are ignored.
package result

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Counts maps an outcome bit string to the number of shots that produced it.
type Counts map[string]uint32

var (
	// ErrMalformedKey is returned for keys that are not bit strings or that
	// disagree in length.
	ErrMalformedKey = errors.New("malformed counts key")
	// ErrIndexOutOfRange is returned for bit indices outside the keys.
	ErrIndexOutOfRange = errors.New("bit index out of range")
)

// width returns the shared key length of counts after removing spaces.
func width(counts Counts) (int, error) {
	n := -1
	for key := range counts {
		k := strings.ReplaceAll(key, " ", "")
		if strings.Trim(k, "01") != "" {
			return 0, fmt.Errorf("%w: %q", ErrMalformedKey, key)
		}
		if n >= 0 && len(k) != n {
			return 0, fmt.Errorf("%w: %q has %d bits, want %d", ErrMalformedKey, key, len(k), n)
		}
		n = len(k)
	}
	return max(n, 0), nil
}

// Marginalize sums counts over every bit not listed in indices. The output
// keys hold the kept bits in descending index order, so the lowest kept
// index is the rightmost character. A nil indices (or every index) only
// strips whitespace. With padZeros every possible outcome is present.
func Marginalize(counts Counts, indices []int, padZeros bool) (Counts, error) {
	n, err := width(counts)
	if err != nil {
		return nil, err
	}
	keep := slices.Clone(indices)
	slices.Sort(keep)
	keep = slices.Compact(keep)
	for _, i := range keep {
		if i < 0 || i >= n {
			return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, n)
		}
	}
	if indices == nil || len(keep) == n {
		keep = make([]int, n)
		for i := range keep {
			keep[i] = i
		}
		padZeros = false
	}
	slices.Reverse(keep)

	out := make(Counts)
	if padZeros {
		for v := range 1 << len(keep) {
			out[fmt.Sprintf("%0*b", len(keep), v)] = 0
		}
	}
	var sb strings.Builder
	for key, c := range counts {
		k := strings.ReplaceAll(key, " ", "")
		sb.Reset()
		for _, i := range keep {
			sb.WriteByte(k[n-1-i])
		}
		out[sb.String()] += c
	}
	return out, nil
}

// Relabel moves physical clbit p to logical position l for every l->p pair
// of layout, undoing an initial layout applied at compile time.
func Relabel(counts Counts, layout []int) (Counts, error) {
	if len(layout) == 0 {
		return counts, nil
	}
	n, err := width(counts)
	if err != nil {
		return nil, err
	}
	if len(layout) != n {
		return nil, fmt.Errorf("%w: layout covers %d bits, keys have %d", ErrIndexOutOfRange, len(layout), n)
	}
	for _, p := range layout {
		if p < 0 || p >= n {
			return nil, fmt.Errorf("%w: physical bit %d", ErrIndexOutOfRange, p)
		}
	}
	out := make(Counts, len(counts))
	buf := make([]byte, n)
	for key, c := range counts {
		k := strings.ReplaceAll(key, " ", "")
		for l, p := range layout {
			buf[n-1-l] = k[n-1-p]
		}
		out[string(buf)] += c
	}
	return out, nil
}
