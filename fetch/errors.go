package fetch

import (
	"errors"
	"fmt"
)

// ErrTransport is returned when a fetch fails after all retries.
var ErrTransport = errors.New("fetch: transport failed")

// ErrUnsupportedScheme is returned by Mux for URLs with no registered transport.
var ErrUnsupportedScheme = errors.New("fetch: unsupported scheme")

// HTTPError reports a non-success HTTP status.
type HTTPError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("fetch %s: HTTP %s", e.URL, e.Status)
}

// Temporary reports whether the status is worth retrying.
func (e *HTTPError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == 408 || e.StatusCode == 429
}
