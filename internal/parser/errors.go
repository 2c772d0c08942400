package parser

import (
	"errors"
	"fmt"
)

// ErrUnparseable indicates the response holds no applicable edit.
var ErrUnparseable = errors.New("model did not return an applicable edit")

// UnparseableError explains why a response could not be turned into a proposal.
type UnparseableError struct {
	Reason string
}

func (e *UnparseableError) Error() string {
	if e.Reason == "" {
		return ErrUnparseable.Error()
	}
	return fmt.Sprintf("%s: %s", ErrUnparseable, e.Reason)
}

func (e *UnparseableError) Is(target error) bool { return target == ErrUnparseable }

func unparseable(format string, args ...any) error {
	return &UnparseableError{Reason: fmt.Sprintf(format, args...)}
}
