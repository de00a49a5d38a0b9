package backend

import (
	"errors"
	"net/http"

	"gastos/internal/config"
	"gastos/internal/log"
	"gastos/internal/metrics"
)

// FromAppConfig builds the client described by the application config.
// logger and m may be nil.
func FromAppConfig(appConfig *config.Config, logger *log.Logger, m *metrics.Metrics) (*Client, error) {
	if appConfig == nil {
		return nil, errors.New("app config is nil")
	}

	opts := []Option{
		WithMetrics(m),
		WithHTTPClient(&http.Client{Timeout: appConfig.RequestTimeout}),
	}
	if logger != nil {
		opts = append(opts, WithLogger(logger))
	}
	if appConfig.BreakerFailures > 0 {
		opts = append(opts, WithCircuitBreaker(uint32(appConfig.BreakerFailures), appConfig.BreakerCooldown))
	}
	return New(appConfig.APIBaseURL, appConfig.RequestTimeout, opts...), nil
}
