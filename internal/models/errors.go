package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for the scrape and pipeline layers. Callers classify with
// errors.Is; wrapping preserves the underlying API error for logs.
var (
	// ErrChannelNotFound means the reference matched no known channel. Terminal, never retried.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrVideoNotFound means the video no longer exists. Terminal.
	ErrVideoNotFound = errors.New("video not found")

	// ErrQuotaExceeded means the hosting API reported rate-limit or quota
	// exhaustion. Retryable later, not fatal for the run.
	ErrQuotaExceeded = errors.New("api quota exceeded")

	// ErrTranscriptUnavailable means captions are disabled or missing for the
	// video. Cached as a terminal record, not surfaced as an error.
	ErrTranscriptUnavailable = errors.New("transcript unavailable")

	// ErrNoUsableInput means zero transcripts with status ok reached the
	// pipeline, so no model call was made.
	ErrNoUsableInput = errors.New("no usable transcripts")
)

// TransientError tags failures that are worth retrying with the same input
// (network faults, 5xx responses, rate limits).
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err so IsTransient reports true for it.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is retryable by the caller.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *TransientError
	return errors.As(err, &te) || errors.Is(err, ErrQuotaExceeded)
}
