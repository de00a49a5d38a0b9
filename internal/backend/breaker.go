package backend

import (
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// WithCircuitBreaker fails calls fast once the backend has failed
// failures times in a row, and probes it again after cooldown. Answers
// below 500 count as healthy: the backend replied, it just said no.
// failures == 0 leaves the client without a breaker.
func WithCircuitBreaker(failures uint32, cooldown time.Duration) Option {
	return func(c *Client) {
		if failures == 0 {
			c.breaker = nil
			return
		}
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "gastos-backend",
			MaxRequests: 1,
			Timeout:     cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			IsSuccessful: isHealthyOutcome,
			OnStateChange: func(name string, from, to gobreaker.State) {
				c.logger.Warn("Backend circuit breaker state changed",
					"breaker", name, "from", from.String(), "to", to.String())
			},
		})
	}
}

// callerGoneError marks a call abandoned because the caller's context
// ended. It says nothing about the backend's health.
type callerGoneError struct{ err error }

func (e *callerGoneError) Error() string { return e.err.Error() }
func (e *callerGoneError) Unwrap() error { return e.err }

func isHealthyOutcome(err error) bool {
	if err == nil {
		return true
	}
	var gone *callerGoneError
	if errors.As(err, &gone) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError
}

// BreakerState reports the breaker state, or "disabled".
func (c *Client) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State().String()
}
