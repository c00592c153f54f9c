package passes

import "errors"

var (
	// ErrNoDecompositionRule is returned when a gate outside the basis has no
	// rule to expand it.
	ErrNoDecompositionRule = errors.New("no decomposition rule")
	// ErrUnrollDepthExceeded is returned when rule expansion nests deeper
	// than the configured bound.
	ErrUnrollDepthExceeded = errors.New("unroll depth exceeded")
)
