package inference

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors for the inference client.
var (
	ErrNotConfigured = errors.New("inference client not configured")
	ErrEmptyContent  = errors.New("inference response has no content")
	ErrBreakerOpen   = errors.New("inference circuit breaker open")
)

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("inference request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

type transportError struct {
	Timeout time.Duration
	Err     error
}

func (e *transportError) Error() string {
	return fmt.Sprintf("inference request: http error (timeout=%s): %v", e.Timeout, e.Err)
}

func (e *transportError) Unwrap() error { return e.Err }
