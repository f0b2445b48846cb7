package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnavailable is returned when a page could not be obtained from any
	// tier. Callers treat it as "page absent".
	ErrUnavailable = errors.New("page unavailable")

	// ErrOffline is returned in offline mode when a page is not cached.
	ErrOffline = errors.New("page not cached and network access is disabled")

	// ErrBodyTooLarge is returned when a response exceeds the body size limit.
	ErrBodyTooLarge = errors.New("response body exceeds size limit")

	// ErrInvalidProxyAddress is returned when the proxy address format is invalid.
	// Expected format is "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")
)

// StatusError reports a non-200 HTTP response.
type StatusError struct {
	StatusCode int
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// retryableStatus lists the responses worth retrying.
var retryableStatus = map[int]bool{
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// IsRetryableStatus reports whether code is a transient server failure.
func IsRetryableStatus(code int) bool {
	return retryableStatus[code]
}
