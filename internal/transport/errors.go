package transport

import (
	"errors"
	"fmt"
	"strings"
)

// Classified errors returned by transport collaborators and the router.
// Collaborator implementations wrap their failures in one of these so the
// router can decide between falling back and propagating.
var (
	// ErrSizeLimitExceeded indicates the gateway refused the request body
	// for being over the configured ceiling. Drives fallback.
	ErrSizeLimitExceeded = errors.New("payload exceeds gateway size limit")

	// ErrTransientNetwork indicates a retriable transport-level failure.
	// Drives fallback; never surfaced unless the final strategy also fails.
	ErrTransientNetwork = errors.New("transient network failure")

	// ErrCompressionUnsupported indicates the compressor cannot handle the
	// input format. Terminal.
	ErrCompressionUnsupported = errors.New("compression unsupported for input")

	// ErrStorageUnavailable indicates object storage cannot be used,
	// typically because credentials are missing. Terminal.
	ErrStorageUnavailable = errors.New("object storage unavailable")

	// ErrProviderRejected indicates the provider refused the request for
	// semantic reasons (auth, quota, content). Terminal; no fallback helps.
	ErrProviderRejected = errors.New("provider rejected request")
)

// Attempt records one submission strategy that was tried and why it failed.
type Attempt struct {
	Strategy Strategy
	Err      error
}

// SubmitError is the composite error returned when every viable strategy
// has been exhausted. It describes each attempted strategy and its failure
// so callers (and logs) can see the full fallback progression.
type SubmitError struct {
	Attempts []Attempt
}

// Error implements the error interface.
func (e *SubmitError) Error() string {
	if len(e.Attempts) == 0 {
		return "submission failed: no strategies attempted"
	}

	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Strategy, a.Err))
	}
	return "submission failed after " + strings.Join(parts, "; ")
}

// Unwrap exposes every attempt's error for errors.Is / errors.As.
func (e *SubmitError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// fallbackDriving reports whether an error should advance the fallback
// progression instead of aborting the submission.
func fallbackDriving(err error) bool {
	return errors.Is(err, ErrSizeLimitExceeded) || errors.Is(err, ErrTransientNetwork)
}
