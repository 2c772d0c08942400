package session

import (
	"context"
	"errors"

	"github.com/iishyfishyy/tweak/internal/parser"
	"github.com/iishyfishyy/tweak/internal/patch"
	"github.com/iishyfishyy/tweak/internal/provider"
)

var (
	// ErrProviderUnavailable is returned when every transport attempt failed.
	// It wraps the last transport error.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrSessionUsed is returned by a second call to Run.
	ErrSessionUsed = errors.New("session already run")

	// ErrInterrupted is returned by reviewers when the user aborts the prompt.
	ErrInterrupted = errors.New("review interrupted")
)

// unavailableError joins ErrProviderUnavailable with the last transport failure.
type unavailableError struct {
	attempts int
	last     error
}

func (e *unavailableError) Error() string {
	return ErrProviderUnavailable.Error() + " after " + plural(e.attempts, "attempt") + ": " + e.last.Error()
}

func (e *unavailableError) Is(target error) bool { return target == ErrProviderUnavailable }

func (e *unavailableError) Unwrap() error { return e.last }

// Kind names the failure class of err for display and history.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrProviderUnavailable):
		return "ProviderUnavailable"
	case errors.Is(err, ErrSessionUsed):
		return "SessionUsed"
	case errors.Is(err, provider.ErrInvalidModel):
		return "InvalidModel"
	case errors.Is(err, provider.ErrNoProviderConfigured):
		return "NoProviderConfigured"
	case errors.Is(err, provider.ErrTransport):
		return "TransportError"
	case errors.Is(err, provider.ErrRejected):
		return "ProviderRejected"
	case errors.Is(err, parser.ErrUnparseable):
		return "UnparseableResponse"
	case errors.Is(err, patch.ErrOutOfRange):
		return "OutOfRangeEdit"
	case errors.Is(err, patch.ErrOverlap):
		return "OverlappingEdit"
	case errors.Is(err, patch.ErrFileNotFound):
		return "FileNotFound"
	case errors.Is(err, patch.ErrNotUTF8):
		return "NotUTF8"
	case errors.Is(err, patch.ErrWriteFailed):
		return "WriteFailed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Canceled"
	default:
		return "Error"
	}
}
