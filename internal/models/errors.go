package models

import (
	"errors"
	"fmt"
	"time"
)

// Common application errors
var (
	ErrSourceNotFound       = errors.New("source not found")
	ErrEventNotFound        = errors.New("event not found")
	ErrProfileNotFound      = errors.New("quality profile not found")
	ErrRuleNotFound         = errors.New("format rule not found")
	ErrImportNotFound       = errors.New("pending import not found")
	ErrImportAlreadyClaimed = errors.New("pending import already claimed")
	ErrImportStateTerminal  = errors.New("pending import is in a terminal state")
	ErrReleaseBlocklisted   = errors.New("release is blocklisted")
	ErrSourceDisabled       = errors.New("source is disabled by backoff")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrInvalidInput         = errors.New("invalid input")
)

// TransientNetworkError marks a soft failure routed to the connection
// track. It never escalates a source's backoff window.
type TransientNetworkError struct {
	Err error
}

func (e *TransientNetworkError) Error() string {
	return fmt.Sprintf("transient network error: %v", e.Err)
}

func (e *TransientNetworkError) Unwrap() error { return e.Err }

// SourceRejectionError marks a malformed or non-success source response.
// It escalates backoff on the track of the failed operation.
type SourceRejectionError struct {
	SourceID int64
	Message  string
}

func (e *SourceRejectionError) Error() string {
	return fmt.Sprintf("source %d rejected request: %s", e.SourceID, e.Message)
}

// RateLimitedError carries an explicit throttle signal from the transport,
// independent of failure escalation
type RateLimitedError struct {
	SourceID   int64
	RetryAfter time.Time
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("source %d rate limited until %s", e.SourceID, e.RetryAfter.Format(time.RFC3339))
}

// IsTransient reports whether err is a transient network error
func IsTransient(err error) bool {
	var t *TransientNetworkError
	return errors.As(err, &t)
}

// AsRateLimited extracts a rate-limit signal from err
func AsRateLimited(err error) (*RateLimitedError, bool) {
	var r *RateLimitedError
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}
