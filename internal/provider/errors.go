package provider

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for provider operations.
var (
	// ErrNoProviderConfigured indicates the provider is unknown or has no credentials.
	ErrNoProviderConfigured = errors.New("no provider configured")

	// ErrInvalidModel indicates the model is not offered by the provider.
	ErrInvalidModel = errors.New("invalid model")

	// ErrTransport indicates the request never got an HTTP answer.
	ErrTransport = errors.New("transport error")

	// ErrRejected indicates the provider answered with an error.
	ErrRejected = errors.New("provider rejected request")

	// ErrUnknownFamily indicates a provider entry names an unregistered family.
	ErrUnknownFamily = errors.New("unknown provider family")
)

const maxExcerpt = 512

// InvalidModelError is returned before any network call when the requested
// model is not in the provider's list.
type InvalidModelError struct {
	Provider  string
	Model     string
	Available []string
}

func (e *InvalidModelError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("no model available for %s", e.Provider)
	}
	return fmt.Sprintf("model %q is not available for %s (available: %s)",
		e.Model, e.Provider, strings.Join(e.Available, ", "))
}

func (e *InvalidModelError) Is(target error) bool { return target == ErrInvalidModel }

// TransportError wraps network failures: timeouts, resets, DNS, truncated bodies.
// It is the only retryable provider error.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport error: %v", e.Provider, e.Err)
}

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

func (e *TransportError) Unwrap() error { return e.Err }

// RejectedError reports a non-2xx status, or a 2xx body that could not be used.
type RejectedError struct {
	Provider string
	Status   int
	Body     string // excerpt
	Err      error  // decode or API error detail, optional
}

func (e *RejectedError) Error() string {
	msg := fmt.Sprintf("%s rejected request (HTTP %d)", e.Provider, e.Status)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *RejectedError) Is(target error) bool { return target == ErrRejected }

func (e *RejectedError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

func excerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) <= maxExcerpt {
		return s
	}
	cut := maxExcerpt
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
