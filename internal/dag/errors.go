package dag

import (
	"errors"
	"fmt"
)

var (
	ErrStructuralMismatch = errors.New("structural mismatch")
	ErrNodeNotFound       = errors.New("node not found")
	ErrDuplicateRegister  = errors.New("duplicate register")
	ErrUnknownWire        = errors.New("unknown wire")
	ErrInvalidGraph       = errors.New("invalid circuit graph")
)

// GraphError carries one of the sentinel kinds above plus detail.
type GraphError struct {
	Kind error
	Msg  string
}

func (e *GraphError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *GraphError) Unwrap() error { return e.Kind }

func mismatchf(format string, args ...any) error {
	return &GraphError{Kind: ErrStructuralMismatch, Msg: fmt.Sprintf(format, args...)}
}

func wiref(format string, args ...any) error {
	return &GraphError{Kind: ErrUnknownWire, Msg: fmt.Sprintf(format, args...)}
}

func invalidf(format string, args ...any) error {
	return &GraphError{Kind: ErrInvalidGraph, Msg: fmt.Sprintf(format, args...)}
}
