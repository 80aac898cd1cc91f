package helpers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type MarketRelayError struct {
	Message string
	Cause   error
}

func (e *MarketRelayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *MarketRelayError) Unwrap() error {
	return e.Cause
}

// Distinct error types for errors.As checks
type ConfigurationError struct{ MarketRelayError }
type DatabaseError struct{ MarketRelayError }
type ValidationError struct{ MarketRelayError }
type ConnectionLostError struct{ MarketRelayError }

var (
	ErrInvalidSymbol  = errors.New("invalid symbol")
	ErrInvalidRange   = errors.New("invalid range")
	ErrEmptyResult    = errors.New("empty result")
	ErrNotConfigured  = errors.New("provider not configured")
	ErrConnectionLost = errors.New("connection lost")
)

// NewValidationError wraps one of the validation sentinels with detail.
func NewValidationError(sentinel error, detail string) error {
	return &ValidationError{MarketRelayError{Message: detail, Cause: sentinel}}
}

func NewConfigurationError(message string, cause error) error {
	return &ConfigurationError{MarketRelayError{Message: message, Cause: cause}}
}

func NewDatabaseError(message string, cause error) error {
	return &DatabaseError{MarketRelayError{Message: message, Cause: cause}}
}

// NewConnectionLostError is the terminal consumer error; it matches ErrConnectionLost.
func NewConnectionLostError(detail string, cause error) error {
	return &ConnectionLostError{MarketRelayError{Message: detail, Cause: errors.Join(ErrConnectionLost, cause)}}
}

// IsValidation reports whether err originates from input validation.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// -----------------------------------------------------------------------------
// Upstream errors
// -----------------------------------------------------------------------------

type UpstreamKind int

const (
	UpstreamUnavailable UpstreamKind = iota // timeout, transport failure, 5xx
	UpstreamRateLimited                     // 429
	UpstreamMalformed                       // unparsable or empty payload
	UpstreamRejected                        // any other non-2xx
	UpstreamNotConfigured                   // missing credential
)

func (k UpstreamKind) String() string {
	switch k {
	case UpstreamUnavailable:
		return "unavailable"
	case UpstreamRateLimited:
		return "rate_limited"
	case UpstreamMalformed:
		return "malformed"
	case UpstreamRejected:
		return "rejected"
	case UpstreamNotConfigured:
		return "not_configured"
	}
	return "unknown"
}

// UpstreamError describes a failed call to an external data provider.
type UpstreamError struct {
	MarketRelayError
	Provider   string
	StatusCode int
	Kind       UpstreamKind
}

func NewUpstreamError(provider string, kind UpstreamKind, status int, cause error) *UpstreamError {
	return &UpstreamError{
		MarketRelayError: MarketRelayError{
			Message: fmt.Sprintf("%s %s", provider, kind),
			Cause:   cause,
		},
		Provider:   provider,
		StatusCode: status,
		Kind:       kind,
	}
}

// NotConfigured is returned by adapters whose provider lacks credentials.
func NotConfigured(provider string) *UpstreamError {
	return NewUpstreamError(provider, UpstreamNotConfigured, 0, ErrNotConfigured)
}

// Malformed wraps a decode or shape failure.
func Malformed(provider string, cause error) *UpstreamError {
	return NewUpstreamError(provider, UpstreamMalformed, 0, cause)
}

// Retryable is true for failures that a later call may not hit.
func (e *UpstreamError) Retryable() bool {
	return e.Kind == UpstreamUnavailable || e.Kind == UpstreamRateLimited
}

// ClassifyStatus maps a non-2xx HTTP status to an upstream error kind.
func ClassifyStatus(status int) UpstreamKind {
	switch {
	case status == http.StatusTooManyRequests:
		return UpstreamRateLimited
	case status >= 500:
		return UpstreamUnavailable
	default:
		return UpstreamRejected
	}
}

// -----------------------------------------------------------------------------

// IsRetryable decides whether a failure allows serving a stale cache entry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var up *UpstreamError
	if errors.As(err, &up) {
		return up.Retryable()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// IsRateLimited reports a 429 anywhere in the chain.
func IsRateLimited(err error) bool {
	var up *UpstreamError
	return errors.As(err, &up) && up.Kind == UpstreamRateLimited
}
