package gates

import "errors"

var (
	// ErrUnknownGate is returned when a name is not in the vocabulary.
	ErrUnknownGate = errors.New("unknown gate")
	// ErrArity is returned when the parameter or operand count is wrong.
	ErrArity = errors.New("wrong arity")
	// ErrNoInverse is returned for operations without a defined inverse.
	ErrNoInverse = errors.New("operation has no inverse")
	// ErrNoMatrix is returned for directives and opaque operations.
	ErrNoMatrix = errors.New("operation has no matrix")
	// ErrInvalidMatrix is returned when a unitary payload is malformed.
	ErrInvalidMatrix = errors.New("invalid unitary matrix")
)
