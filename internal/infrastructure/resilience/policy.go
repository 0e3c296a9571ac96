package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/dalylak/internal/core/domain"
)

// Outcome tells the executor what a failed call means for the backend.
type Outcome int

const (
	// Fatal failures are returned at once and count against the breaker.
	Fatal Outcome = iota
	// Transient failures are retried and count against the breaker.
	Transient
	// Ignored failures are returned at once and leave the breaker alone.
	// Cancellation and caller mistakes land here.
	Ignored
)

func (o Outcome) String() string {
	switch o {
	case Transient:
		return "transient"
	case Ignored:
		return "ignored"
	default:
		return "fatal"
	}
}

// StatusError is implemented by adapter errors that carry an upstream status.
type StatusError interface {
	error
	Transient() bool
}

// Policy maps backend errors to outcomes. Hooks run after cancellation and
// open-circuit checks and before the status and network fallbacks.
type Policy struct {
	Transient func(error) bool
	Ignored   func(error) bool
}

func (p Policy) Outcome(err error) Outcome {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Ignored
	case IsCircuitOpen(err):
		return Transient
	case p.Ignored != nil && p.Ignored(err):
		return Ignored
	case p.Transient != nil && p.Transient(err):
		return Transient
	}

	var statusErr StatusError
	if errors.As(err, &statusErr) {
		if statusErr.Transient() {
			return Transient
		}
		// 4xx says the request was wrong, not that the backend is sick.
		return Ignored
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Transient
	}
	return Fatal
}

// Temporary marks err as domain.ErrTemporary when trying again later could
// succeed. Other errors pass through untouched.
func (p Policy) Temporary(operation string, err error) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) || p.Outcome(err) != Transient {
		return err
	}
	return domain.WrapError(domain.ErrTemporary, operation, err)
}

// RetryableStatus reports whether an HTTP status is worth another attempt.
func RetryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
