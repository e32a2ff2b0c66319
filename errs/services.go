package errs

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// LLM & upstream service errors
var (
	ErrRateLimitExceeded  = errors.New("rate limit exceeded")
	ErrMalformedResponse  = errors.New("malformed model response")
	ErrCircuitBreakerOpen = errors.New("circuit breaker open")
	ErrServiceUnreachable = errors.New("service unreachable")
)

// Configuration & Environment Errors
var (
	ErrConfigMissing = errors.New("configuration missing")
	ErrConfigInvalid = errors.New("configuration invalid")
)

// NewRateLimitError is returned when the provider answers 429 or the batch
// was cut short because of it.
func NewRateLimitError(service string, retryAfter time.Duration) *ApiErr {
	details := fmt.Sprintf("Rate limit exceeded for %s service", service)
	if retryAfter > 0 {
		details = fmt.Sprintf("%s, retry after %s", details, retryAfter)
	}
	return &ApiErr{
		StatusCode: http.StatusTooManyRequests,
		err:        ErrRateLimitExceeded,
		Details:    details,
		Field:      "rate_limit",
	}
}

func NewCircuitOpenError(service string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusServiceUnavailable,
		err:        ErrCircuitBreakerOpen,
		Details:    fmt.Sprintf("Calls to %s are suspended after rate limiting", service),
	}
}

func NewMalformedResponseError(service string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadGateway,
		err:        ErrMalformedResponse,
		Details:    fmt.Sprintf("%s returned output that is not a valid project list", service),
		Cause:      cause,
	}
}

func NewServiceUnreachableError(service string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadGateway,
		err:        ErrServiceUnreachable,
		Details:    fmt.Sprintf("Call to %s failed", service),
		Cause:      cause,
	}
}

// Configuration & Environment Error Constructors
func NewConfigError(configName string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusInternalServerError,
		err:        ErrConfigMissing,
		Details:    fmt.Sprintf("Configuration error for %s", configName),
		Cause:      cause,
		Field:      configName,
	}
}

func NewConfigInvalidError(configName, value string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusInternalServerError,
		err:        ErrConfigInvalid,
		Details:    fmt.Sprintf("Invalid value %q for %s", value, configName),
		Field:      configName,
	}
}

func IsRateLimitError(err error) bool {
	return errors.Is(err, ErrRateLimitExceeded)
}

func IsCircuitOpenError(err error) bool {
	return errors.Is(err, ErrCircuitBreakerOpen)
}

func IsMalformedResponseError(err error) bool {
	return errors.Is(err, ErrMalformedResponse)
}

func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfigMissing) || errors.Is(err, ErrConfigInvalid)
}
